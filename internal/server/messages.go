package server

import "time"

// clientMessage is the single envelope for every client intent; Type selects
// which of the optional fields are meaningful.
type clientMessage struct {
	Type string `json:"type"`

	Name      string `json:"name,omitempty"`
	SpecialID string `json:"specialId,omitempty"`
	Color     string `json:"color,omitempty"`
	Code      string `json:"code,omitempty"`

	Settings *Settings `json:"settings,omitempty"`

	Position *Position `json:"position,omitempty"`
	Velocity *Position `json:"velocity,omitempty"`

	TaskID       string   `json:"taskId,omitempty"`
	TargetID     string   `json:"targetId,omitempty"`
	Targets      []string `json:"targets,omitempty"`
	BodyID       string   `json:"bodyId,omitempty"`
	VentID       string   `json:"ventId,omitempty"`
	SabotageType string   `json:"sabotageType,omitempty"`

	Content string `json:"content,omitempty"`
}

type serverMessage struct {
	Type string `json:"type"`
	Data any    `json:"data,omitempty"`
}

// playerPayload is the room-wide view of a player. It deliberately carries no
// role or task assignment data; with tasks dealt only to non-impostors, either
// would identify the impostor set to everyone in the room.
type playerPayload struct {
	ID             string   `json:"id"`
	Name           string   `json:"name"`
	Color          string   `json:"color"`
	IsHost         bool     `json:"isHost"`
	IsAlive        bool     `json:"isAlive"`
	Connected      bool     `json:"connected"`
	Position       Position `json:"position"`
	Velocity       Position `json:"velocity"`
	CanDoTaskToday bool     `json:"canDoTaskToday"`
}

type roomCreatedPayload struct {
	Code   string        `json:"code"`
	Player playerPayload `json:"player"`
}

type roomJoinedPayload struct {
	Code    string          `json:"code"`
	Player  playerPayload   `json:"player"`
	Players []playerPayload `json:"players"`
}

type gameStartedPayload struct {
	Players   []playerPayload `json:"players"`
	Settings  Settings        `json:"settings"`
	Tasks     []Task          `json:"tasks"`
	Vents     []ventNode      `json:"vents"`
	Day       int             `json:"day"`
	TotalDays int             `json:"totalDays"`
}

// roleAssignedPayload is private to each session: the recipient's role and
// the ids of the tasks dealt to them.
type roleAssignedPayload struct {
	Role  string   `json:"role"`
	Tasks []string `json:"tasks,omitempty"`
}

type phaseChangedPayload struct {
	Phase    string `json:"phase"`
	Day      int    `json:"day"`
	Duration int    `json:"duration,omitempty"` // seconds, 0 when player-driven
}

type playerMovedPayload struct {
	PlayerID string   `json:"playerId"`
	Position Position `json:"position"`
	Velocity Position `json:"velocity"`
}

type taskCompletedPayload struct {
	TaskID         string `json:"taskId"`
	PlayerID       string `json:"playerId"`
	TasksCompleted int    `json:"tasksCompleted"`
	TasksTotal     int    `json:"tasksTotal"`
}

type playerKilledPayload struct {
	KillerID string   `json:"killerId"`
	VictimID string   `json:"victimId"`
	Body     DeadBody `json:"body"`
}

type bombTriggeredPayload struct {
	TaskID   string   `json:"taskId"`
	VictimID string   `json:"victimId"`
	Body     DeadBody `json:"body"`
}

type ventUsedPayload struct {
	PlayerID string   `json:"playerId"`
	VentID   string   `json:"ventId"`
	Position Position `json:"position"`
	InVent   bool     `json:"inVent"`
}

type sabotagePayload struct {
	Type     string   `json:"type"`
	Position Position `json:"position"`
	EndsAt   int64    `json:"endsAt,omitempty"` // unix millis
}

type bodyReportedPayload struct {
	ReporterID string   `json:"reporterId"`
	Body       DeadBody `json:"body"`
}

type meetingCalledPayload struct {
	CallerID string `json:"callerId"`
}

type dailyVotingResultsPayload struct {
	SelectedPlayers []string `json:"selectedPlayers"`
	Day             int      `json:"day"`
}

type voteCount struct {
	TargetID string `json:"targetId"`
	Votes    int    `json:"votes"`
}

type votingResultsPayload struct {
	EjectedPlayer *playerPayload `json:"ejectedPlayer"`
	WasImpostor   bool           `json:"wasImpostor"`
	Skipped       bool           `json:"skipped"`
	Votes         []voteCount    `json:"votes"`
}

type newDayPayload struct {
	Day int `json:"day"`
}

type gameOverPayload struct {
	Winner  string          `json:"winner"`
	Reason  string          `json:"reason"`
	Players []playerRevealPayload `json:"players"`
}

// playerRevealPayload is the end-of-game roster with roles exposed.
type playerRevealPayload struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Color   string `json:"color"`
	Role    string `json:"role"`
	IsAlive bool   `json:"isAlive"`
}

type roleDiscoveredPayload struct {
	TargetID string `json:"targetId"`
	Role     string `json:"role"`
}

type roleStolenPayload struct {
	TargetID string `json:"targetId"`
	Role     string `json:"role"`
}

type errorPayload struct {
	Message string `json:"message"`
}

// EventPayload is the persisted JSONB shape for the event log.
type EventPayload struct {
	RoomCode   string `json:"room_code,omitempty"`
	PlayerName string `json:"player,omitempty"`
	PlayerID   string `json:"player_id,omitempty"`
	TargetID   string `json:"target_id,omitempty"`
	Day        int    `json:"day,omitempty"`
	Phase      string `json:"phase,omitempty"`
	Reason     string `json:"reason,omitempty"`
	Winner     string `json:"winner,omitempty"`
	TaskID     string `json:"task_id,omitempty"`
	Sabotage   string `json:"sabotage,omitempty"`
	Count      int    `json:"count,omitempty"`
}

func nowMillis(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UnixMilli()
}
