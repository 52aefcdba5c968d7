package server

const (
	taskClassCommon = "common"
	taskClassLong   = "long"
	taskClassShort  = "short"
)

type taskSpot struct {
	Type     string
	Zone     string
	Class    string
	Position Position
}

type ventNode struct {
	ID          string   `json:"id"`
	Zone        string   `json:"room"`
	Position    Position `json:"position"`
	Connections []string `json:"connections"`
}

type gameMap struct {
	Name         string
	SpawnPoint   Position
	MeetingPoint Position
	TaskSpots    []taskSpot
	Vents        []ventNode
}

var theSkeld = gameMap{
	Name:         "THE_SKELD",
	SpawnPoint:   Position{X: 780, Y: 420},
	MeetingPoint: Position{X: 780, Y: 380},
	TaskSpots: []taskSpot{
		{Type: "SWIPE_CARD", Zone: "admin", Class: taskClassCommon, Position: Position{X: 870, Y: 560}},
		{Type: "FIX_WIRING", Zone: "electrical", Class: taskClassCommon, Position: Position{X: 620, Y: 700}},
		{Type: "FUEL_ENGINES", Zone: "storage", Class: taskClassLong, Position: Position{X: 700, Y: 760}},
		{Type: "START_REACTOR", Zone: "reactor", Class: taskClassLong, Position: Position{X: 180, Y: 420}},
		{Type: "INSPECT_SAMPLE", Zone: "medbay", Class: taskClassLong, Position: Position{X: 560, Y: 320}},
		{Type: "SUBMIT_SCAN", Zone: "medbay", Class: taskClassLong, Position: Position{X: 540, Y: 360}},
		{Type: "UPLOAD_DATA", Zone: "cafeteria", Class: taskClassShort, Position: Position{X: 820, Y: 400}},
		{Type: "DOWNLOAD_DATA", Zone: "communications", Class: taskClassShort, Position: Position{X: 900, Y: 760}},
		{Type: "CLEAN_O2_FILTER", Zone: "o2", Class: taskClassShort, Position: Position{X: 940, Y: 360}},
		{Type: "CHART_COURSE", Zone: "navigation", Class: taskClassShort, Position: Position{X: 1180, Y: 400}},
		{Type: "STABILIZE_STEERING", Zone: "navigation", Class: taskClassShort, Position: Position{X: 1200, Y: 440}},
		{Type: "CLEAR_ASTEROIDS", Zone: "weapons", Class: taskClassShort, Position: Position{X: 1040, Y: 260}},
		{Type: "DIVERT_POWER", Zone: "electrical", Class: taskClassShort, Position: Position{X: 640, Y: 680}},
		{Type: "EMPTY_GARBAGE", Zone: "storage", Class: taskClassShort, Position: Position{X: 740, Y: 780}},
		{Type: "PRIME_SHIELDS", Zone: "shields", Class: taskClassShort, Position: Position{X: 1000, Y: 640}},
		{Type: "CALIBRATE_DISTRIBUTOR", Zone: "electrical", Class: taskClassShort, Position: Position{X: 600, Y: 720}},
		{Type: "UNLOCK_MANIFOLDS", Zone: "reactor", Class: taskClassShort, Position: Position{X: 200, Y: 460}},
	},
	Vents: []ventNode{
		{ID: "vent-reactor", Zone: "reactor", Position: Position{X: 220, Y: 400}, Connections: []string{"vent-upper-engine", "vent-lower-engine"}},
		{ID: "vent-upper-engine", Zone: "upper-engine", Position: Position{X: 320, Y: 260}, Connections: []string{"vent-reactor"}},
		{ID: "vent-lower-engine", Zone: "lower-engine", Position: Position{X: 320, Y: 680}, Connections: []string{"vent-reactor"}},
		{ID: "vent-medbay", Zone: "medbay", Position: Position{X: 580, Y: 340}, Connections: []string{"vent-electrical", "vent-security"}},
		{ID: "vent-electrical", Zone: "electrical", Position: Position{X: 660, Y: 690}, Connections: []string{"vent-medbay", "vent-security"}},
		{ID: "vent-security", Zone: "security", Position: Position{X: 440, Y: 460}, Connections: []string{"vent-medbay", "vent-electrical"}},
		{ID: "vent-cafeteria", Zone: "cafeteria", Position: Position{X: 840, Y: 360}, Connections: []string{"vent-admin", "vent-navigation"}},
		{ID: "vent-admin", Zone: "admin", Position: Position{X: 880, Y: 540}, Connections: []string{"vent-cafeteria", "vent-navigation"}},
		{ID: "vent-navigation", Zone: "navigation", Position: Position{X: 1160, Y: 420}, Connections: []string{"vent-cafeteria", "vent-admin"}},
	},
}

// mapByName falls back to The Skeld for maps without authored data yet.
func mapByName(name string) gameMap {
	switch name {
	case "THE_SKELD":
		return theSkeld
	default:
		m := theSkeld
		m.Name = name
		return m
	}
}

// sabotageSite is where crewmates stand to fix a given sabotage.
func (m gameMap) sabotageSite(sabotageType string) Position {
	zones := map[string]string{
		sabotageReactor: "reactor",
		sabotageO2:      "o2",
		sabotageComms:   "communications",
		sabotageLights:  "electrical",
		sabotageDoors:   "cafeteria",
	}
	zone, ok := zones[sabotageType]
	if !ok {
		return m.MeetingPoint
	}
	for _, spot := range m.TaskSpots {
		if spot.Zone == zone {
			return spot.Position
		}
	}
	return m.MeetingPoint
}

func (m gameMap) findVent(id string) *ventNode {
	for i := range m.Vents {
		if m.Vents[i].ID == id {
			return &m.Vents[i]
		}
	}
	return nil
}
