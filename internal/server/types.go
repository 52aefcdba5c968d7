package server

import "time"

const (
	phaseLobby             = "LOBBY"
	phaseStarting          = "STARTING"
	phaseRoleReveal        = "ROLE_REVEAL"
	phaseDailyVoting       = "DAILY_VOTING"
	phaseTasks             = "TASKS"
	phaseEmergencyMeeting  = "EMERGENCY_MEETING"
	phaseEliminationVoting = "ELIMINATION_VOTING"
	phaseEjection          = "EJECTION"
	phaseDayEnd            = "DAY_END"
	phaseGameOver          = "GAME_OVER"
)

const (
	roleCrewmate   = "CREWMATE"
	roleImpostor   = "IMPOSTOR"
	roleMedium     = "MEDIUM"
	roleGhostThief = "GHOST_THIEF"
	roleClown      = "CLOWN"
)

// Reserved special ids that unlock secondary roles at assignment time.
const (
	specialIDMedium     = "65023974"
	specialIDGhostThief = "93563514"
	specialIDClown      = "80273514"
)

const (
	winnerCrewmates = "crewmates"
	winnerImpostors = "impostors"
	winnerClown     = "clown"
	winnerDraw      = "draw"
)

const (
	sabotageReactor = "REACTOR_MELTDOWN"
	sabotageO2      = "O2_DEPLETION"
	sabotageComms   = "COMMUNICATIONS"
	sabotageLights  = "LIGHTS"
	sabotageDoors   = "DOORS"
)

// Capability flags attached to a player session instead of role subtypes.
const (
	capTalksToGhosts = "talks_to_ghosts"
	capDiscoverRoles = "discover_roles"
)

const voteSkip = "skip"

const (
	taskInteractionDistance = 50.0
	ventInteractionDistance = 50.0
	reportDistance          = 100.0
)

var killDistances = map[string]float64{
	"short":  100,
	"medium": 150,
	"long":   200,
}

var playerColors = []string{
	"red", "blue", "green", "pink", "orange", "yellow", "black", "white",
	"purple", "brown", "cyan", "lime", "maroon", "rose", "banana", "gray",
	"tan", "coral",
}

type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

type Settings struct {
	Map               string  `json:"map"`
	MaxPlayers        int     `json:"maxPlayers"`
	ImpostorCount     int     `json:"impostorCount"`
	ConfirmEjects     bool    `json:"confirmEjects"`
	EmergencyMeetings int     `json:"emergencyMeetings"`
	EmergencyCooldown int     `json:"emergencyCooldown"`
	DiscussionTime    int     `json:"discussionTime"`
	VotingTime        int     `json:"votingTime"`
	AnonymousVotes    bool    `json:"anonymousVotes"`
	PlayerSpeed       float64 `json:"playerSpeed"`
	CrewmateVision    float64 `json:"crewmateVision"`
	ImpostorVision    float64 `json:"impostorVision"`
	KillCooldown      int     `json:"killCooldown"`
	KillDistance      string  `json:"killDistance"`
	VisualTasks       bool    `json:"visualTasks"`
	TaskBarUpdates    string  `json:"taskBarUpdates"`
	TaskWinCondition  int     `json:"taskWinCondition"`
	CommonTasks       int     `json:"commonTasks"`
	LongTasks         int     `json:"longTasks"`
	ShortTasks        int     `json:"shortTasks"`
	GameDuration      int     `json:"gameDuration"`
	TasksPerDay       int     `json:"tasksPerDay"`
}

func defaultSettings() Settings {
	return Settings{
		Map:               "THE_SKELD",
		MaxPlayers:        15,
		ImpostorCount:     2,
		ConfirmEjects:     true,
		EmergencyMeetings: 1,
		EmergencyCooldown: 15,
		DiscussionTime:    15,
		VotingTime:        120,
		AnonymousVotes:    false,
		PlayerSpeed:       1.0,
		CrewmateVision:    1.0,
		ImpostorVision:    1.5,
		KillCooldown:      30,
		KillDistance:      "medium",
		VisualTasks:       true,
		TaskBarUpdates:    "always",
		TaskWinCondition:  100,
		CommonTasks:       1,
		LongTasks:         1,
		ShortTasks:        2,
		GameDuration:      15,
		TasksPerDay:       3,
	}
}

type Player struct {
	ID             string
	SpecialID      string
	Name           string
	Color          string
	Role           string
	IsHost         bool
	IsAlive        bool
	Connected      bool
	InVent         bool
	CurrentVent    string
	Position       Position
	Velocity       Position
	TasksAssigned  []string
	TasksCompleted []string
	CanDoTaskToday bool
	TasksDoneToday int
	Capabilities   map[string]bool

	EmergencyCalls    int
	LastEmergencyCall time.Time
	LastKillAt        time.Time

	// Ghost thief bookkeeping.
	DiscoveryUsedDay int
	RoleStolen       bool

	JoinedAt time.Time
}

func (p *Player) hasCapability(name string) bool {
	return p.Capabilities != nil && p.Capabilities[name]
}

func (p *Player) grantCapability(name string) {
	if p.Capabilities == nil {
		p.Capabilities = make(map[string]bool)
	}
	p.Capabilities[name] = true
}

type Task struct {
	ID           string   `json:"id"`
	Type         string   `json:"type"`
	Zone         string   `json:"room"`
	Position     Position `json:"position"`
	IsCompleted  bool     `json:"isCompleted"`
	AssignedTo   string   `json:"-"`
	StartedBy    string   `json:"-"`
	HasBomb      bool     `json:"-"`
	BombPlacedBy string   `json:"-"`
}

type DeadBody struct {
	ID         string   `json:"id"`
	PlayerID   string   `json:"playerId"`
	Color      string   `json:"color"`
	Position   Position `json:"position"`
	ReportedBy string   `json:"reportedBy,omitempty"`
}

type DailyVote struct {
	VoterID string
	Targets []string
	Day     int
	Order   int
}

type EliminationVote struct {
	VoterID  string
	TargetID string // voteSkip for an explicit skip
	Order    int
}

type ChatMessage struct {
	ID           string    `json:"id"`
	SenderID     string    `json:"senderId"`
	SenderName   string    `json:"senderName"`
	Content      string    `json:"content"`
	Timestamp    time.Time `json:"timestamp"`
	IsGhostChat  bool      `json:"isGhostChat"`
	IsMediumChat bool      `json:"isMediumChat"`
}

type Room struct {
	Code           string
	DBID           uint
	HostID         string
	Settings       Settings
	Phase          string
	PhaseGen       int
	PhaseStartedAt time.Time
	Started        bool

	Players    []Player
	Tasks      []Task
	DeadBodies []DeadBody

	DailyVotes       []DailyVote
	EliminationVotes []EliminationVote
	VoteOrder        int
	SelectedForTasks []string

	ChatLog []ChatMessage

	CurrentDay int
	TotalDays  int

	SabotageActive   string
	SabotageID       string
	SabotageEndsAt   time.Time
	SabotagePosition Position

	MeetingCallerID string
	LastEjectedID   string

	Winner    string
	WinReason string

	CreatedAt time.Time
}

func (r *Room) findPlayer(id string) *Player {
	for i := range r.Players {
		if r.Players[i].ID == id {
			return &r.Players[i]
		}
	}
	return nil
}

func (r *Room) findTask(id string) *Task {
	for i := range r.Tasks {
		if r.Tasks[i].ID == id {
			return &r.Tasks[i]
		}
	}
	return nil
}

func (r *Room) findBody(id string) *DeadBody {
	for i := range r.DeadBodies {
		if r.DeadBodies[i].ID == id {
			return &r.DeadBodies[i]
		}
	}
	return nil
}

func (r *Room) alivePlayers() []*Player {
	alive := make([]*Player, 0, len(r.Players))
	for i := range r.Players {
		if r.Players[i].IsAlive {
			alive = append(alive, &r.Players[i])
		}
	}
	return alive
}

func (r *Room) aliveCount() (impostors, crew int) {
	for i := range r.Players {
		if !r.Players[i].IsAlive {
			continue
		}
		if r.Players[i].Role == roleImpostor {
			impostors++
		} else {
			crew++
		}
	}
	return impostors, crew
}

func (r *Room) connectedCount() int {
	count := 0
	for i := range r.Players {
		if r.Players[i].Connected {
			count++
		}
	}
	return count
}

func (r *Room) completedTaskCount() int {
	count := 0
	for i := range r.Tasks {
		if r.Tasks[i].IsCompleted {
			count++
		}
	}
	return count
}

func colorInUse(room *Room, color string) bool {
	for i := range room.Players {
		if room.Players[i].Color == color {
			return true
		}
	}
	return false
}

func freeColor(room *Room, requested string) string {
	if requested != "" && !colorInUse(room, requested) {
		return requested
	}
	for _, color := range playerColors {
		if !colorInUse(room, color) {
			return color
		}
	}
	return requested
}

func distance(a, b Position) float64 {
	dx := a.X - b.X
	dy := a.Y - b.Y
	return dx*dx + dy*dy
}

func withinDistance(a, b Position, limit float64) bool {
	return distance(a, b) <= limit*limit
}

type RoomSummary struct {
	Code        string `json:"code"`
	PlayerCount int    `json:"playerCount"`
	MaxPlayers  int    `json:"maxPlayers"`
	Started     bool   `json:"started"`
}

func timeNowUTC() time.Time {
	return time.Now().UTC()
}
