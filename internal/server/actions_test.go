package server

import (
	"testing"
	"time"
)

func TestKillRequiresImpostor(t *testing.T) {
	s := newTestServer()
	room, ids := setupGame(t, s, phaseTasks, "a", "b", "c", "d")
	for _, id := range ids {
		setRole(t, s, room, id, roleCrewmate)
	}

	s.handleKill(nil, sessionFor(room, ids[0]), clientMessage{TargetID: ids[1]})

	if !playerByID(t, room, ids[1]).IsAlive {
		t.Error("crewmate managed to kill")
	}
}

func TestKillRejectsDeadImpostor(t *testing.T) {
	s := newTestServer()
	room, ids := setupGame(t, s, phaseTasks, "a", "b", "c", "d")
	setRole(t, s, room, ids[0], roleImpostor)
	s.store.UpdateRoom(room.Code, func(r *Room) error {
		r.findPlayer(ids[0]).IsAlive = false
		return nil
	})

	s.handleKill(nil, sessionFor(room, ids[0]), clientMessage{TargetID: ids[1]})

	if !playerByID(t, room, ids[1]).IsAlive {
		t.Error("dead impostor managed to kill")
	}
	if len(room.DeadBodies) != 0 {
		t.Error("body created by a rejected kill")
	}
}

func TestKillOutOfRange(t *testing.T) {
	s := newTestServer()
	room, ids := setupGame(t, s, phaseTasks, "a", "b", "c", "d")
	setRole(t, s, room, ids[0], roleImpostor)
	s.store.UpdateRoom(room.Code, func(r *Room) error {
		r.findPlayer(ids[0]).Position = Position{X: 0, Y: 0}
		r.findPlayer(ids[1]).Position = Position{X: 5000, Y: 5000}
		return nil
	})

	s.handleKill(nil, sessionFor(room, ids[0]), clientMessage{TargetID: ids[1]})

	if !playerByID(t, room, ids[1]).IsAlive {
		t.Error("kill landed from across the map")
	}
}

func TestKillCooldown(t *testing.T) {
	s := newTestServer()
	room, ids := setupGame(t, s, phaseTasks, "a", "b", "c", "d")
	setRole(t, s, room, ids[0], roleImpostor)
	s.store.UpdateRoom(room.Code, func(r *Room) error {
		r.findPlayer(ids[0]).LastKillAt = timeNowUTC()
		return nil
	})

	s.handleKill(nil, sessionFor(room, ids[0]), clientMessage{TargetID: ids[1]})

	if !playerByID(t, room, ids[1]).IsAlive {
		t.Error("kill landed inside the cooldown window")
	}
}

func TestKillAndReportFlow(t *testing.T) {
	s := newTestServer()
	room, ids := setupGame(t, s, phaseTasks, "a", "b", "c", "d")
	setRole(t, s, room, ids[0], roleImpostor)

	s.handleKill(nil, sessionFor(room, ids[0]), clientMessage{TargetID: ids[1]})

	victim := playerByID(t, room, ids[1])
	if victim.IsAlive {
		t.Fatal("kill did not land")
	}
	if len(room.DeadBodies) != 1 {
		t.Fatalf("bodies = %d, want 1", len(room.DeadBodies))
	}
	body := room.DeadBodies[0]
	if body.PlayerID != ids[1] {
		t.Errorf("body belongs to %s", body.PlayerID)
	}

	s.handleReportBody(nil, sessionFor(room, ids[2]), clientMessage{BodyID: body.ID})

	if room.Phase != phaseEliminationVoting {
		t.Errorf("phase = %s, want %s", room.Phase, phaseEliminationVoting)
	}
	if len(room.DeadBodies) != 0 {
		t.Error("body not cleared after report")
	}
	if room.MeetingCallerID != ids[2] {
		t.Errorf("meeting caller = %s, want %s", room.MeetingCallerID, ids[2])
	}
}

func TestReportRequiresProximity(t *testing.T) {
	s := newTestServer()
	room, ids := setupGame(t, s, phaseTasks, "a", "b", "c", "d")
	setRole(t, s, room, ids[0], roleImpostor)
	s.handleKill(nil, sessionFor(room, ids[0]), clientMessage{TargetID: ids[1]})
	bodyID := room.DeadBodies[0].ID
	s.store.UpdateRoom(room.Code, func(r *Room) error {
		r.findPlayer(ids[2]).Position = Position{X: 9000, Y: 9000}
		return nil
	})

	s.handleReportBody(nil, sessionFor(room, ids[2]), clientMessage{BodyID: bodyID})

	if room.Phase != phaseTasks {
		t.Errorf("phase = %s, want %s", room.Phase, phaseTasks)
	}
}

// taskSetup deals the player one task at their feet, plus an unfinished
// filler task so completing it does not end the game on the task threshold.
func taskSetup(t *testing.T, s *Server, room *Room, playerID string) string {
	t.Helper()
	var taskID string
	_, err := s.store.UpdateRoom(room.Code, func(r *Room) error {
		p := r.findPlayer(playerID)
		p.CanDoTaskToday = true
		task := Task{
			ID:         "task-1",
			Type:       "FIX_WIRING",
			Zone:       "electrical",
			Position:   p.Position,
			AssignedTo: playerID,
		}
		r.Tasks = append(r.Tasks, task, Task{ID: "task-filler", Type: "CLEAN_FILTER"})
		p.TasksAssigned = append(p.TasksAssigned, task.ID)
		taskID = task.ID
		return nil
	})
	if err != nil {
		t.Fatalf("task setup: %v", err)
	}
	return taskID
}

func TestStartTask(t *testing.T) {
	s := newTestServer()
	room, ids := setupGame(t, s, phaseTasks, "a", "b", "c", "d")
	setRole(t, s, room, ids[3], roleImpostor)
	taskID := taskSetup(t, s, room, ids[0])

	s.handleStartTask(nil, sessionFor(room, ids[0]), clientMessage{TaskID: taskID})
	if room.findTask(taskID).StartedBy != ids[0] {
		t.Fatal("task not marked in progress")
	}

	s.handleCompleteTask(nil, sessionFor(room, ids[0]), clientMessage{TaskID: taskID})
	if room.findTask(taskID).StartedBy != "" {
		t.Error("completion left the in-progress marker")
	}
}

func TestStartTaskRejectsUnassignedPlayer(t *testing.T) {
	s := newTestServer()
	room, ids := setupGame(t, s, phaseTasks, "a", "b", "c", "d")
	setRole(t, s, room, ids[3], roleImpostor)
	taskID := taskSetup(t, s, room, ids[0])

	s.handleStartTask(nil, sessionFor(room, ids[1]), clientMessage{TaskID: taskID})

	if room.findTask(taskID).StartedBy != "" {
		t.Error("someone else's task was started")
	}
}

func TestStartTaskOutOfRange(t *testing.T) {
	s := newTestServer()
	room, ids := setupGame(t, s, phaseTasks, "a", "b", "c", "d")
	setRole(t, s, room, ids[3], roleImpostor)
	taskID := taskSetup(t, s, room, ids[0])
	s.store.UpdateRoom(room.Code, func(r *Room) error {
		r.findPlayer(ids[0]).Position = Position{X: 9999, Y: 9999}
		return nil
	})

	s.handleStartTask(nil, sessionFor(room, ids[0]), clientMessage{TaskID: taskID})

	if room.findTask(taskID).StartedBy != "" {
		t.Error("task started from across the map")
	}
}

func TestCompleteTask(t *testing.T) {
	s := newTestServer()
	room, ids := setupGame(t, s, phaseTasks, "a", "b", "c", "d")
	setRole(t, s, room, ids[3], roleImpostor)
	taskID := taskSetup(t, s, room, ids[0])

	s.handleCompleteTask(nil, sessionFor(room, ids[0]), clientMessage{TaskID: taskID})

	if room.completedTaskCount() != 1 {
		t.Fatalf("completed = %d, want 1", room.completedTaskCount())
	}

	// Completing the same task again is rejected.
	s.handleCompleteTask(nil, sessionFor(room, ids[0]), clientMessage{TaskID: taskID})
	if room.completedTaskCount() != 1 {
		t.Errorf("completed = %d after repeat, want 1", room.completedTaskCount())
	}
}

func TestCompleteTaskNeedsDailySelection(t *testing.T) {
	s := newTestServer()
	room, ids := setupGame(t, s, phaseTasks, "a", "b", "c", "d")
	taskID := taskSetup(t, s, room, ids[0])
	s.store.UpdateRoom(room.Code, func(r *Room) error {
		r.findPlayer(ids[0]).CanDoTaskToday = false
		return nil
	})

	s.handleCompleteTask(nil, sessionFor(room, ids[0]), clientMessage{TaskID: taskID})

	if room.completedTaskCount() != 0 {
		t.Error("unselected player completed a task")
	}
}

func TestDailyTaskLimit(t *testing.T) {
	s := newTestServer()
	room, ids := setupGame(t, s, phaseTasks, "a", "b", "c", "d")
	setRole(t, s, room, ids[3], roleImpostor)
	s.store.UpdateRoom(room.Code, func(r *Room) error {
		r.Settings.TasksPerDay = 1
		return nil
	})
	first := taskSetup(t, s, room, ids[0])
	second := ""
	s.store.UpdateRoom(room.Code, func(r *Room) error {
		p := r.findPlayer(ids[0])
		task := Task{ID: "task-2", Type: "SWIPE_CARD", Position: p.Position, AssignedTo: ids[0]}
		r.Tasks = append(r.Tasks, task)
		p.TasksAssigned = append(p.TasksAssigned, task.ID)
		second = task.ID
		return nil
	})

	s.handleCompleteTask(nil, sessionFor(room, ids[0]), clientMessage{TaskID: first})
	s.handleCompleteTask(nil, sessionFor(room, ids[0]), clientMessage{TaskID: second})

	if room.completedTaskCount() != 1 {
		t.Errorf("completed = %d, want 1", room.completedTaskCount())
	}
}

func TestBombKillsOnTaskAttempt(t *testing.T) {
	s := newTestServer()
	room, ids := setupGame(t, s, phaseTasks, "a", "b", "c", "d")
	setRole(t, s, room, ids[1], roleImpostor)
	taskID := taskSetup(t, s, room, ids[0])
	s.store.UpdateRoom(room.Code, func(r *Room) error {
		r.findPlayer(ids[1]).Position = r.findTask(taskID).Position
		return nil
	})

	s.handlePlaceBomb(nil, sessionFor(room, ids[1]), clientMessage{TaskID: taskID})
	s.handleCompleteTask(nil, sessionFor(room, ids[0]), clientMessage{TaskID: taskID})

	if playerByID(t, room, ids[0]).IsAlive {
		t.Fatal("bomb did not kill")
	}
	if room.completedTaskCount() != 0 {
		t.Error("trapped task was marked complete")
	}
	if len(room.DeadBodies) != 1 {
		t.Errorf("bodies = %d, want 1", len(room.DeadBodies))
	}
	if room.findTask(taskID).HasBomb {
		t.Error("bomb still armed after triggering")
	}
}

func TestEmergencyMeetingQuota(t *testing.T) {
	s := newTestServer()
	room, ids := setupGame(t, s, phaseTasks, "a", "b", "c", "d")

	s.handleCallEmergency(nil, sessionFor(room, ids[0]))
	if room.Phase != phaseEmergencyMeeting {
		t.Fatalf("phase = %s, want %s", room.Phase, phaseEmergencyMeeting)
	}

	// Back to tasks, second call exceeds the per-player quota.
	s.store.UpdateRoom(room.Code, func(r *Room) error {
		r.Phase = phaseTasks
		r.findPlayer(ids[0]).LastEmergencyCall = timeNowUTC().Add(-time.Hour)
		return nil
	})
	s.handleCallEmergency(nil, sessionFor(room, ids[0]))
	if room.Phase != phaseTasks {
		t.Error("quota was not enforced")
	}

	// A different player still has their meeting.
	s.handleCallEmergency(nil, sessionFor(room, ids[1]))
	if room.Phase != phaseEmergencyMeeting {
		t.Error("second player's meeting was blocked")
	}
}

func TestVentTravel(t *testing.T) {
	s := newTestServer()
	room, ids := setupGame(t, s, phaseTasks, "a", "b", "c", "d")
	setRole(t, s, room, ids[0], roleImpostor)
	m := mapByName(room.Settings.Map)
	entry := m.Vents[0]
	s.store.UpdateRoom(room.Code, func(r *Room) error {
		r.findPlayer(ids[0]).Position = entry.Position
		return nil
	})

	s.handleUseVent(nil, sessionFor(room, ids[0]), clientMessage{VentID: entry.ID})
	p := playerByID(t, room, ids[0])
	if !p.InVent || p.CurrentVent != entry.ID {
		t.Fatalf("player not in vent %s", entry.ID)
	}

	next := entry.Connections[0]
	s.handleUseVent(nil, sessionFor(room, ids[0]), clientMessage{VentID: next})
	if p.CurrentVent != next {
		t.Fatalf("travel failed, in vent %s", p.CurrentVent)
	}

	s.handleUseVent(nil, sessionFor(room, ids[0]), clientMessage{VentID: next})
	if p.InVent {
		t.Error("player still in vent after exit")
	}
}

func TestVentRejectsCrewmate(t *testing.T) {
	s := newTestServer()
	room, ids := setupGame(t, s, phaseTasks, "a", "b", "c", "d")
	setRole(t, s, room, ids[0], roleCrewmate)
	entry := mapByName(room.Settings.Map).Vents[0]
	s.store.UpdateRoom(room.Code, func(r *Room) error {
		r.findPlayer(ids[0]).Position = entry.Position
		return nil
	})

	s.handleUseVent(nil, sessionFor(room, ids[0]), clientMessage{VentID: entry.ID})

	if playerByID(t, room, ids[0]).InVent {
		t.Error("crewmate entered a vent")
	}
}

func TestSabotageAndFix(t *testing.T) {
	s := newTestServer()
	room, ids := setupGame(t, s, phaseTasks, "a", "b", "c", "d")
	setRole(t, s, room, ids[0], roleImpostor)
	setRole(t, s, room, ids[1], roleCrewmate)

	s.handleStartSabotage(nil, sessionFor(room, ids[0]), clientMessage{SabotageType: sabotageReactor})
	if room.SabotageActive != sabotageReactor {
		t.Fatalf("sabotage = %s", room.SabotageActive)
	}
	if room.SabotageEndsAt.IsZero() {
		t.Error("fatal sabotage has no deadline")
	}

	// A second sabotage while one is active is rejected.
	s.handleStartSabotage(nil, sessionFor(room, ids[0]), clientMessage{SabotageType: sabotageLights})
	if room.SabotageActive != sabotageReactor {
		t.Error("overlapping sabotage accepted")
	}

	s.store.UpdateRoom(room.Code, func(r *Room) error {
		r.findPlayer(ids[1]).Position = r.SabotagePosition
		return nil
	})
	s.handleFixSabotage(nil, sessionFor(room, ids[1]))
	if room.SabotageActive != "" {
		t.Error("sabotage not cleared after fix")
	}
	s.cancelRoomTimers(room.Code)
}

func TestFixSabotageRejectsImpostor(t *testing.T) {
	s := newTestServer()
	room, ids := setupGame(t, s, phaseTasks, "a", "b", "c", "d")
	setRole(t, s, room, ids[0], roleImpostor)

	s.handleStartSabotage(nil, sessionFor(room, ids[0]), clientMessage{SabotageType: sabotageLights})
	s.store.UpdateRoom(room.Code, func(r *Room) error {
		r.findPlayer(ids[0]).Position = r.SabotagePosition
		return nil
	})
	s.handleFixSabotage(nil, sessionFor(room, ids[0]))

	if room.SabotageActive != sabotageLights {
		t.Error("impostor fixed their own sabotage")
	}
}

func TestChangeColorTaken(t *testing.T) {
	s := newTestServer()
	room, ids := setupGame(t, s, phaseLobby, "a", "b")
	colorA := playerByID(t, room, ids[0]).Color

	s.handleChangeColor(nil, sessionFor(room, ids[1]), clientMessage{Color: colorA})

	if playerByID(t, room, ids[1]).Color == colorA {
		t.Error("two players share a color")
	}
}

func TestChangeSettingsHostOnly(t *testing.T) {
	s := newTestServer()
	room, ids := setupGame(t, s, phaseLobby, "a", "b")
	next := defaultSettings()
	next.ImpostorCount = 3

	s.handleChangeSettings(nil, sessionFor(room, ids[1]), clientMessage{Settings: &next})
	if room.Settings.ImpostorCount == 3 {
		t.Error("non-host changed settings")
	}

	s.handleChangeSettings(nil, sessionFor(room, ids[0]), clientMessage{Settings: &next})
	if room.Settings.ImpostorCount != 3 {
		t.Error("host settings change was dropped")
	}
}

func TestGhostThiefDiscoverAndSteal(t *testing.T) {
	s := newTestServer()
	room, ids := setupGame(t, s, phaseTasks, "a", "b", "c", "d", "e")
	setRole(t, s, room, ids[0], roleGhostThief)
	setRole(t, s, room, ids[1], roleImpostor)
	s.store.UpdateRoom(room.Code, func(r *Room) error {
		thief := r.findPlayer(ids[0])
		thief.grantCapability(capDiscoverRoles)
		dead := r.findPlayer(ids[1])
		dead.IsAlive = false
		return nil
	})

	s.handleDiscoverRole(nil, sessionFor(room, ids[0]), clientMessage{TargetID: ids[1]})
	thief := playerByID(t, room, ids[0])
	if thief.DiscoveryUsedDay != room.CurrentDay {
		t.Error("discovery charge not spent")
	}

	// Second discovery the same day is rejected; steal still works.
	s.handleDiscoverRole(nil, sessionFor(room, ids[0]), clientMessage{TargetID: ids[1]})

	s.handleStealRole(nil, sessionFor(room, ids[0]), clientMessage{TargetID: ids[1]})
	if thief.Role != roleImpostor {
		t.Errorf("role = %s, want %s", thief.Role, roleImpostor)
	}
	if !thief.RoleStolen {
		t.Error("steal not marked used")
	}

	s.handleStealRole(nil, sessionFor(room, ids[0]), clientMessage{TargetID: ids[1]})
	if !thief.RoleStolen {
		t.Error("steal flag reset")
	}
}

func TestDiscoverRoleRequiresDeadTarget(t *testing.T) {
	s := newTestServer()
	room, ids := setupGame(t, s, phaseTasks, "a", "b", "c", "d")
	s.store.UpdateRoom(room.Code, func(r *Room) error {
		r.findPlayer(ids[0]).grantCapability(capDiscoverRoles)
		return nil
	})

	s.handleDiscoverRole(nil, sessionFor(room, ids[0]), clientMessage{TargetID: ids[1]})

	if playerByID(t, room, ids[0]).DiscoveryUsedDay != 0 {
		t.Error("discovery spent on a living target")
	}
}

func TestGhostChatSeparation(t *testing.T) {
	s := newTestServer()
	room, ids := setupGame(t, s, phaseTasks, "a", "b", "c", "d")
	s.store.UpdateRoom(room.Code, func(r *Room) error {
		r.findPlayer(ids[1]).IsAlive = false
		return nil
	})

	// Living players cannot chat during the task phase.
	s.handleSendMessage(nil, sessionFor(room, ids[0]), clientMessage{Content: "hello"})
	if len(room.ChatLog) != 0 {
		t.Error("living player chatted during tasks")
	}

	s.handleSendMessage(nil, sessionFor(room, ids[1]), clientMessage{Content: "boo"})
	if len(room.ChatLog) != 1 || !room.ChatLog[0].IsGhostChat {
		t.Fatal("ghost message missing")
	}
}

func TestMediumChatAfterTask(t *testing.T) {
	s := newTestServer()
	room, ids := setupGame(t, s, phaseTasks, "a", "b", "c", "d")
	setRole(t, s, room, ids[0], roleMedium)
	setRole(t, s, room, ids[3], roleImpostor)
	taskID := taskSetup(t, s, room, ids[0])

	s.handleCompleteTask(nil, sessionFor(room, ids[0]), clientMessage{TaskID: taskID})
	if !playerByID(t, room, ids[0]).hasCapability(capTalksToGhosts) {
		t.Fatal("medium did not unlock ghost chat")
	}

	s.handleSendMessage(nil, sessionFor(room, ids[0]), clientMessage{Content: "anyone there"})
	if len(room.ChatLog) != 1 {
		t.Fatal("medium message missing")
	}
	msg := room.ChatLog[0]
	if !msg.IsGhostChat || !msg.IsMediumChat {
		t.Errorf("message flags = %+v", msg)
	}
}

func TestLobbyChat(t *testing.T) {
	s := newTestServer()
	room, ids := setupGame(t, s, phaseLobby, "a", "b")

	s.handleSendMessage(nil, sessionFor(room, ids[0]), clientMessage{Content: "hey"})

	if len(room.ChatLog) != 1 || room.ChatLog[0].IsGhostChat {
		t.Error("lobby chat missing or misrouted")
	}
}
