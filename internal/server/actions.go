package server

import (
	"log"
	"net"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

func (s *Server) dispatch(conn *websocket.Conn, sess *session, remote string, msg clientMessage) {
	switch msg.Type {
	case "create_room":
		s.handleCreateRoom(conn, sess, remote, msg)
		return
	case "join_room":
		s.handleJoinRoom(conn, sess, msg)
		return
	}

	if sess.roomCode == "" {
		s.sendError(conn, "not in a room")
		return
	}

	switch msg.Type {
	case "leave_room":
		s.ws.Remove(sess.roomCode, conn)
		s.handleDisconnect(sess)
		sess.roomCode = ""
		sess.playerID = ""
	case "change_color":
		s.handleChangeColor(conn, sess, msg)
	case "change_settings":
		s.handleChangeSettings(conn, sess, msg)
	case "start_game":
		s.handleStartGame(conn, sess)
	case "player_move":
		s.handleMove(conn, sess, msg)
	case "start_task":
		s.handleStartTask(conn, sess, msg)
	case "complete_task":
		s.handleCompleteTask(conn, sess, msg)
	case "place_bomb":
		s.handlePlaceBomb(conn, sess, msg)
	case "kill_player":
		s.handleKill(conn, sess, msg)
	case "report_body":
		s.handleReportBody(conn, sess, msg)
	case "call_emergency":
		s.handleCallEmergency(conn, sess)
	case "use_vent":
		s.handleUseVent(conn, sess, msg)
	case "start_sabotage":
		s.handleStartSabotage(conn, sess, msg)
	case "fix_sabotage":
		s.handleFixSabotage(conn, sess)
	case "submit_daily_vote":
		s.handleDailyVote(conn, sess, msg)
	case "submit_elimination_vote":
		s.handleEliminationVote(conn, sess, msg)
	case "send_message":
		s.handleSendMessage(conn, sess, msg)
	case "discover_role":
		s.handleDiscoverRole(conn, sess, msg)
	case "steal_role":
		s.handleStealRole(conn, sess, msg)
	default:
		s.sendError(conn, "unknown message type")
	}
}

// withRoom runs a handler against the actor's room under the store mutex.
// Broadcasts are staged on after and flushed once the mutation committed, so
// sockets are never written while the room is locked.
func (s *Server) withRoom(conn *websocket.Conn, sess *session, fn func(room *Room, actor *Player, after *[]func()) error) {
	var after []func()
	_, err := s.store.UpdateRoom(sess.roomCode, func(room *Room) error {
		actor := room.findPlayer(sess.playerID)
		if actor == nil {
			return ErrNotAuthorized
		}
		if room.Phase == phaseGameOver {
			return ErrGameAlreadyOver
		}
		return fn(room, actor, &after)
	})
	if err != nil {
		s.sendError(conn, err.Error())
		return
	}
	for _, f := range after {
		f()
	}
}

func (s *Server) handleCreateRoom(conn *websocket.Conn, sess *session, remote string, msg clientMessage) {
	if sess.roomCode != "" {
		s.sendError(conn, "already in a room")
		return
	}
	req := createRoomRequest{Name: msg.Name, SpecialID: msg.SpecialID, Color: msg.Color}
	if err := gameValidator().Struct(req); err != nil {
		s.sendError(conn, "invalid name or color")
		return
	}
	host, _, _ := net.SplitHostPort(remote)
	if host == "" {
		host = remote
	}
	if !s.limiter.Allow(host) {
		s.sendError(conn, "too many rooms created, slow down")
		return
	}

	room, player := s.store.CreateRoom(msg.Name, msg.SpecialID, msg.Color)
	sess.roomCode = room.Code
	sess.playerID = player.ID
	s.ws.Add(room.Code, conn, player.ID)

	if err := s.persistRoom(room.Code); err != nil {
		log.Printf("persist room failed code=%s error=%v", room.Code, err)
	}
	if err := s.persistPlayer(room.Code, player); err != nil {
		log.Printf("persist player failed code=%s player=%s error=%v", room.Code, player.Name, err)
	}
	log.Printf("room created code=%s host=%s", room.Code, player.Name)
	s.ws.Send(conn, serverMessage{Type: "room_created", Data: roomCreatedPayload{
		Code:   room.Code,
		Player: playerToPayload(&player),
	}})
	s.broadcastHomeUpdate()
}

func (s *Server) handleJoinRoom(conn *websocket.Conn, sess *session, msg clientMessage) {
	if sess.roomCode != "" {
		s.sendError(conn, "already in a room")
		return
	}
	req := joinRoomRequest{Code: msg.Code, Name: msg.Name, SpecialID: msg.SpecialID, Color: msg.Color}
	if err := gameValidator().Struct(req); err != nil {
		s.sendError(conn, "invalid join request")
		return
	}

	player, roster, err := s.store.AddPlayer(msg.Code, msg.Name, msg.SpecialID, msg.Color)
	if err != nil {
		s.sendError(conn, err.Error())
		return
	}
	sess.roomCode = msg.Code
	sess.playerID = player.ID
	s.ws.Add(msg.Code, conn, player.ID)

	if err := s.persistPlayer(msg.Code, player); err != nil {
		log.Printf("persist player failed code=%s player=%s error=%v", msg.Code, player.Name, err)
	}
	log.Printf("player joined code=%s player=%s", msg.Code, player.Name)
	s.ws.Send(conn, serverMessage{Type: "room_joined", Data: roomJoinedPayload{
		Code:    msg.Code,
		Player:  playerToPayload(&player),
		Players: roster,
	}})
	s.broadcastCode(msg.Code, "players_updated", roster)
	s.broadcastHomeUpdate()
}

func (s *Server) handleDisconnect(sess *session) {
	code := sess.roomCode
	removed, roster, deleted, newHostID := s.store.RemovePlayer(code, sess.playerID)
	if removed == nil {
		return
	}
	if deleted {
		s.cancelRoomTimers(code)
		log.Printf("room deleted code=%s", code)
		s.broadcastHomeUpdate()
		return
	}
	log.Printf("player left code=%s player=%s", code, removed.Name)
	s.broadcastCode(code, "players_updated", roster)
	if newHostID != "" {
		s.broadcastCode(code, "host_changed", map[string]string{"hostId": newHostID})
	}
	s.broadcastHomeUpdate()
}

func (s *Server) handleChangeColor(conn *websocket.Conn, sess *session, msg clientMessage) {
	s.withRoom(conn, sess, func(room *Room, actor *Player, after *[]func()) error {
		if room.Phase != phaseLobby {
			return ErrInvalidPhase
		}
		if !validColor(msg.Color) {
			return ErrPreconditionFailed
		}
		if msg.Color != actor.Color && colorInUse(room, msg.Color) {
			return ErrColorTaken
		}
		actor.Color = msg.Color
		players := playersPayload(room)
		*after = append(*after, func() {
			s.broadcast(room, "players_updated", players)
		})
		return nil
	})
}

func (s *Server) handleChangeSettings(conn *websocket.Conn, sess *session, msg clientMessage) {
	s.withRoom(conn, sess, func(room *Room, actor *Player, after *[]func()) error {
		if room.Phase != phaseLobby {
			return ErrInvalidPhase
		}
		if !actor.IsHost {
			return ErrNotAuthorized
		}
		if msg.Settings == nil {
			return ErrPreconditionFailed
		}
		next := *msg.Settings
		if err := validateSettings(next); err != nil {
			return ErrPreconditionFailed
		}
		if next.MaxPlayers < len(room.Players) {
			return ErrPreconditionFailed
		}
		room.Settings = next
		settings := room.Settings
		*after = append(*after, func() {
			s.broadcast(room, "settings_updated", settings)
		})
		return nil
	})
}

func (s *Server) handleMove(conn *websocket.Conn, sess *session, msg clientMessage) {
	s.withRoom(conn, sess, func(room *Room, actor *Player, after *[]func()) error {
		if room.Phase != phaseTasks && room.Phase != phaseLobby {
			return ErrInvalidPhase
		}
		if !actor.IsAlive {
			return ErrNotAuthorized
		}
		if msg.Position == nil {
			return ErrPreconditionFailed
		}
		actor.Position = *msg.Position
		if msg.Velocity != nil {
			actor.Velocity = *msg.Velocity
		}
		moved := playerMovedPayload{PlayerID: actor.ID, Position: actor.Position, Velocity: actor.Velocity}
		if actor.InVent {
			code := room.Code
			audience := impostorAudience(room)
			*after = append(*after, func() {
				s.broadcastTo(code, audience, "player_moved", moved)
			})
			return nil
		}
		*after = append(*after, func() {
			s.broadcast(room, "player_moved", moved)
		})
		return nil
	})
}

// handleStartTask validates a task interaction before the client opens the
// minigame; completion still arrives as its own message.
func (s *Server) handleStartTask(conn *websocket.Conn, sess *session, msg clientMessage) {
	s.withRoom(conn, sess, func(room *Room, actor *Player, after *[]func()) error {
		if room.Phase != phaseTasks {
			return ErrInvalidPhase
		}
		if !actor.IsAlive {
			return ErrNotAuthorized
		}
		task := room.findTask(msg.TaskID)
		if task == nil || task.AssignedTo != actor.ID || !actor.CanDoTaskToday {
			return ErrNotAuthorized
		}
		if task.IsCompleted || actor.TasksDoneToday >= room.Settings.TasksPerDay {
			return ErrPreconditionFailed
		}
		if !withinDistance(actor.Position, task.Position, taskInteractionDistance) {
			return ErrPreconditionFailed
		}

		task.StartedBy = actor.ID
		taskID := task.ID
		actorID := actor.ID
		*after = append(*after, func() {
			s.sendPrivate(room, actorID, "task_started", map[string]string{"taskId": taskID})
		})
		return nil
	})
}

func (s *Server) handleCompleteTask(conn *websocket.Conn, sess *session, msg clientMessage) {
	s.withRoom(conn, sess, func(room *Room, actor *Player, after *[]func()) error {
		if room.Phase != phaseTasks {
			return ErrInvalidPhase
		}
		if !actor.IsAlive {
			return ErrNotAuthorized
		}
		task := room.findTask(msg.TaskID)
		if task == nil || task.AssignedTo != actor.ID || !actor.CanDoTaskToday {
			return ErrNotAuthorized
		}
		if task.IsCompleted || actor.TasksDoneToday >= room.Settings.TasksPerDay {
			return ErrPreconditionFailed
		}
		if !withinDistance(actor.Position, task.Position, taskInteractionDistance) {
			return ErrPreconditionFailed
		}

		if task.HasBomb {
			s.triggerBomb(room, task, actor, after)
			return nil
		}

		task.IsCompleted = true
		task.StartedBy = ""
		actor.TasksDoneToday++
		actor.TasksCompleted = append(actor.TasksCompleted, task.ID)
		completed := taskCompletedPayload{
			TaskID:         task.ID,
			PlayerID:       actor.ID,
			TasksCompleted: room.completedTaskCount(),
			TasksTotal:     len(room.Tasks),
		}
		if actor.Role == roleMedium && !actor.hasCapability(capTalksToGhosts) {
			actor.grantCapability(capTalksToGhosts)
			mediumID := actor.ID
			*after = append(*after, func() {
				s.sendPrivate(room, mediumID, "medium_enabled", nil)
			})
		}
		*after = append(*after, func() {
			s.broadcast(room, "task_completed", completed)
		})
		s.checkWin(room, nil, after)
		return nil
	})
}

// triggerBomb fires an armed trap instead of completing the task: the
// assigned crewmate dies on the spot.
func (s *Server) triggerBomb(room *Room, task *Task, victim *Player, after *[]func()) {
	task.HasBomb = false
	placedBy := task.BombPlacedBy
	task.BombPlacedBy = ""
	task.StartedBy = ""
	victim.IsAlive = false
	body := DeadBody{
		ID:       uuid.NewString(),
		PlayerID: victim.ID,
		Color:    victim.Color,
		Position: task.Position,
	}
	room.DeadBodies = append(room.DeadBodies, body)
	payload := bombTriggeredPayload{TaskID: task.ID, VictimID: victim.ID, Body: body}
	*after = append(*after, func() {
		s.broadcast(room, "bomb_triggered", payload)
	})
	s.persistEventStaged(room, "bomb_triggered", EventPayload{
		PlayerID: placedBy,
		TargetID: victim.ID,
		TaskID:   task.ID,
		Day:      room.CurrentDay,
	}, after)
	s.checkWin(room, nil, after)
}

func (s *Server) handlePlaceBomb(conn *websocket.Conn, sess *session, msg clientMessage) {
	s.withRoom(conn, sess, func(room *Room, actor *Player, after *[]func()) error {
		if room.Phase != phaseTasks {
			return ErrInvalidPhase
		}
		if !actor.IsAlive || actor.Role != roleImpostor {
			return ErrNotAuthorized
		}
		task := room.findTask(msg.TaskID)
		if task == nil || task.IsCompleted || task.HasBomb {
			return ErrPreconditionFailed
		}
		if !withinDistance(actor.Position, task.Position, taskInteractionDistance) {
			return ErrPreconditionFailed
		}
		task.HasBomb = true
		task.BombPlacedBy = actor.ID
		taskID := task.ID
		actorID := actor.ID
		*after = append(*after, func() {
			s.sendPrivate(room, actorID, "bomb_placed", map[string]string{"taskId": taskID})
		})
		return nil
	})
}

func (s *Server) handleKill(conn *websocket.Conn, sess *session, msg clientMessage) {
	s.withRoom(conn, sess, func(room *Room, actor *Player, after *[]func()) error {
		if room.Phase != phaseTasks {
			return ErrInvalidPhase
		}
		if !actor.IsAlive || actor.Role != roleImpostor {
			return ErrNotAuthorized
		}
		target := room.findPlayer(msg.TargetID)
		if target == nil || !target.IsAlive || target.Role == roleImpostor {
			return ErrPreconditionFailed
		}
		cooldown := time.Duration(room.Settings.KillCooldown) * time.Second
		if time.Since(actor.LastKillAt) < cooldown {
			return ErrPreconditionFailed
		}
		reach, ok := killDistances[room.Settings.KillDistance]
		if !ok {
			reach = killDistances["medium"]
		}
		if !withinDistance(actor.Position, target.Position, reach) {
			return ErrPreconditionFailed
		}

		target.IsAlive = false
		actor.LastKillAt = timeNowUTC()
		body := DeadBody{
			ID:       uuid.NewString(),
			PlayerID: target.ID,
			Color:    target.Color,
			Position: target.Position,
		}
		room.DeadBodies = append(room.DeadBodies, body)
		payload := playerKilledPayload{KillerID: actor.ID, VictimID: target.ID, Body: body}
		*after = append(*after, func() {
			s.broadcast(room, "player_killed", payload)
		})
		s.persistEventStaged(room, "player_killed", EventPayload{
			PlayerID: actor.ID,
			TargetID: target.ID,
			Day:      room.CurrentDay,
		}, after)
		s.checkWin(room, nil, after)
		return nil
	})
}

func (s *Server) handleReportBody(conn *websocket.Conn, sess *session, msg clientMessage) {
	s.withRoom(conn, sess, func(room *Room, actor *Player, after *[]func()) error {
		if room.Phase != phaseTasks {
			return ErrInvalidPhase
		}
		if !actor.IsAlive {
			return ErrNotAuthorized
		}
		body := room.findBody(msg.BodyID)
		if body == nil {
			return ErrPreconditionFailed
		}
		if !withinDistance(actor.Position, body.Position, reportDistance) {
			return ErrPreconditionFailed
		}

		reported := *body
		reported.ReportedBy = actor.ID
		for i := range room.DeadBodies {
			if room.DeadBodies[i].ID == body.ID {
				room.DeadBodies = append(room.DeadBodies[:i], room.DeadBodies[i+1:]...)
				break
			}
		}
		room.MeetingCallerID = actor.ID
		payload := bodyReportedPayload{ReporterID: actor.ID, Body: reported}
		*after = append(*after, func() {
			s.broadcast(room, "body_reported", payload)
		})
		s.enterEliminationVoting(room, after)
		return nil
	})
}

func (s *Server) handleCallEmergency(conn *websocket.Conn, sess *session) {
	s.withRoom(conn, sess, func(room *Room, actor *Player, after *[]func()) error {
		if room.Phase != phaseTasks {
			return ErrInvalidPhase
		}
		if !actor.IsAlive {
			return ErrNotAuthorized
		}
		if actor.EmergencyCalls >= room.Settings.EmergencyMeetings {
			return ErrPreconditionFailed
		}
		cooldown := time.Duration(room.Settings.EmergencyCooldown) * time.Second
		if !actor.LastEmergencyCall.IsZero() && time.Since(actor.LastEmergencyCall) < cooldown {
			return ErrPreconditionFailed
		}

		actor.EmergencyCalls++
		actor.LastEmergencyCall = timeNowUTC()
		room.MeetingCallerID = actor.ID
		payload := meetingCalledPayload{CallerID: actor.ID}
		*after = append(*after, func() {
			s.broadcast(room, "meeting_called", payload)
		})
		s.enterEmergencyMeeting(room, after)
		return nil
	})
}

func (s *Server) handleUseVent(conn *websocket.Conn, sess *session, msg clientMessage) {
	s.withRoom(conn, sess, func(room *Room, actor *Player, after *[]func()) error {
		if room.Phase != phaseTasks {
			return ErrInvalidPhase
		}
		if !actor.IsAlive || actor.Role != roleImpostor {
			return ErrNotAuthorized
		}
		m := mapByName(room.Settings.Map)
		vent := m.findVent(msg.VentID)
		if vent == nil {
			return ErrPreconditionFailed
		}

		switch {
		case !actor.InVent:
			if !withinDistance(actor.Position, vent.Position, ventInteractionDistance) {
				return ErrPreconditionFailed
			}
			actor.InVent = true
			actor.CurrentVent = vent.ID
			actor.Position = vent.Position
		case actor.CurrentVent == vent.ID:
			actor.InVent = false
			actor.CurrentVent = ""
		default:
			current := m.findVent(actor.CurrentVent)
			if current == nil || !contains(current.Connections, vent.ID) {
				return ErrPreconditionFailed
			}
			actor.CurrentVent = vent.ID
			actor.Position = vent.Position
		}

		payload := ventUsedPayload{
			PlayerID: actor.ID,
			VentID:   actor.CurrentVent,
			Position: actor.Position,
			InVent:   actor.InVent,
		}
		// Vent movement is invisible to crewmates.
		code := room.Code
		audience := impostorAudience(room)
		*after = append(*after, func() {
			s.broadcastTo(code, audience, "vent_used", payload)
		})
		return nil
	})
}

func (s *Server) handleStartSabotage(conn *websocket.Conn, sess *session, msg clientMessage) {
	s.withRoom(conn, sess, func(room *Room, actor *Player, after *[]func()) error {
		if room.Phase != phaseTasks {
			return ErrInvalidPhase
		}
		if !actor.IsAlive || actor.Role != roleImpostor {
			return ErrNotAuthorized
		}
		if room.SabotageActive != "" {
			return ErrPreconditionFailed
		}
		switch msg.SabotageType {
		case sabotageReactor, sabotageO2, sabotageComms, sabotageLights, sabotageDoors:
		default:
			return ErrPreconditionFailed
		}

		room.SabotageActive = msg.SabotageType
		room.SabotageID = uuid.NewString()
		room.SabotagePosition = mapByName(room.Settings.Map).sabotageSite(msg.SabotageType)
		payload := sabotagePayload{Type: room.SabotageActive, Position: room.SabotagePosition}
		if fatalSabotage(room.SabotageActive) {
			room.SabotageEndsAt = timeNowUTC().Add(time.Duration(s.cfg.SabotageSeconds) * time.Second)
			payload.EndsAt = nowMillis(room.SabotageEndsAt)
			s.scheduleSabotageTimer(room.Code, room.SabotageID, time.Duration(s.cfg.SabotageSeconds)*time.Second)
		}
		*after = append(*after, func() {
			s.broadcast(room, "sabotage_started", payload)
		})
		s.persistEventStaged(room, "sabotage_started", EventPayload{
			PlayerID: actor.ID,
			Sabotage: room.SabotageActive,
			Day:      room.CurrentDay,
		}, after)
		return nil
	})
}

func (s *Server) handleFixSabotage(conn *websocket.Conn, sess *session) {
	s.withRoom(conn, sess, func(room *Room, actor *Player, after *[]func()) error {
		if room.Phase != phaseTasks {
			return ErrInvalidPhase
		}
		if !actor.IsAlive || actor.Role == roleImpostor {
			return ErrNotAuthorized
		}
		if room.SabotageActive == "" {
			return ErrPreconditionFailed
		}
		if !withinDistance(actor.Position, room.SabotagePosition, taskInteractionDistance) {
			return ErrPreconditionFailed
		}

		fixed := room.SabotageActive
		room.SabotageActive = ""
		room.SabotageID = ""
		room.SabotageEndsAt = time.Time{}
		payload := sabotagePayload{Type: fixed}
		*after = append(*after, func() {
			s.broadcast(room, "sabotage_fixed", payload)
		})
		return nil
	})
}

func (s *Server) handleSendMessage(conn *websocket.Conn, sess *session, msg clientMessage) {
	s.withRoom(conn, sess, func(room *Room, actor *Player, after *[]func()) error {
		if !validChat(msg.Content) {
			return ErrPreconditionFailed
		}

		message := ChatMessage{
			ID:         uuid.NewString(),
			SenderID:   actor.ID,
			SenderName: actor.Name,
			Content:    msg.Content,
			Timestamp:  timeNowUTC(),
		}

		switch {
		case !actor.IsAlive:
			message.IsGhostChat = true
		case actor.Role == roleMedium && actor.hasCapability(capTalksToGhosts) && room.Phase == phaseTasks:
			message.IsGhostChat = true
			message.IsMediumChat = true
		default:
			if !chatOpenPhase(room.Phase) {
				return ErrInvalidPhase
			}
		}

		room.ChatLog = append(room.ChatLog, message)
		if message.IsGhostChat {
			code := room.Code
			audience := ghostAudience(room)
			*after = append(*after, func() {
				s.broadcastTo(code, audience, "ghost_message_received", message)
			})
			return nil
		}
		*after = append(*after, func() {
			s.broadcast(room, "message_received", message)
		})
		return nil
	})
}

func chatOpenPhase(phase string) bool {
	switch phase {
	case phaseLobby, phaseDailyVoting, phaseEmergencyMeeting, phaseEliminationVoting, phaseEjection, phaseDayEnd:
		return true
	}
	return false
}

func (s *Server) handleDiscoverRole(conn *websocket.Conn, sess *session, msg clientMessage) {
	s.withRoom(conn, sess, func(room *Room, actor *Player, after *[]func()) error {
		if room.Phase != phaseTasks {
			return ErrInvalidPhase
		}
		if !actor.IsAlive || !actor.hasCapability(capDiscoverRoles) {
			return ErrNotAuthorized
		}
		if actor.DiscoveryUsedDay == room.CurrentDay {
			return ErrPreconditionFailed
		}
		target := room.findPlayer(msg.TargetID)
		if target == nil || target.IsAlive {
			return ErrPreconditionFailed
		}

		actor.DiscoveryUsedDay = room.CurrentDay
		payload := roleDiscoveredPayload{TargetID: target.ID, Role: target.Role}
		actorID := actor.ID
		*after = append(*after, func() {
			s.sendPrivate(room, actorID, "role_discovered", payload)
		})
		return nil
	})
}

func (s *Server) handleStealRole(conn *websocket.Conn, sess *session, msg clientMessage) {
	s.withRoom(conn, sess, func(room *Room, actor *Player, after *[]func()) error {
		if room.Phase != phaseTasks {
			return ErrInvalidPhase
		}
		if !actor.IsAlive || !actor.hasCapability(capDiscoverRoles) {
			return ErrNotAuthorized
		}
		if actor.RoleStolen {
			return ErrPreconditionFailed
		}
		target := room.findPlayer(msg.TargetID)
		if target == nil || target.IsAlive {
			return ErrPreconditionFailed
		}

		actor.RoleStolen = true
		actor.Role = target.Role
		payload := roleStolenPayload{TargetID: target.ID, Role: actor.Role}
		actorID := actor.ID
		*after = append(*after, func() {
			s.sendPrivate(room, actorID, "role_stolen", payload)
		})
		// Stealing an impostor's role shifts the faction balance.
		s.checkWin(room, nil, after)
		return nil
	})
}

func contains(list []string, value string) bool {
	for _, item := range list {
		if item == value {
			return true
		}
	}
	return false
}

func fatalSabotage(sabotageType string) bool {
	return sabotageType == sabotageReactor || sabotageType == sabotageO2
}
