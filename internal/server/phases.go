package server

import (
	"log"
	"time"

	"github.com/gorilla/websocket"
)

func (s *Server) handleStartGame(conn *websocket.Conn, sess *session) {
	s.withRoom(conn, sess, func(room *Room, actor *Player, after *[]func()) error {
		if room.Phase != phaseLobby {
			return ErrInvalidPhase
		}
		if !actor.IsHost {
			return ErrNotAuthorized
		}
		if room.connectedCount() < 4 {
			return ErrPreconditionFailed
		}

		room.Started = true
		room.CurrentDay = 0
		room.TotalDays = room.Settings.GameDuration
		assignRoles(room)
		generateTasks(room)
		for i := range room.Players {
			room.Players[i].IsAlive = true
			room.Players[i].Position = mapByName(room.Settings.Map).SpawnPoint
		}

		started := gameStartPayload(room)
		code := room.Code
		count := len(room.Players)
		*after = append(*after, func() {
			s.broadcast(room, "game_started", started)
			log.Printf("game started code=%s players=%d", code, count)
			s.broadcastHomeUpdate()
		})
		s.persistEventStaged(room, "game_started", EventPayload{
			Count: len(room.Players),
		}, after)
		s.setPhase(room, phaseStarting, time.Duration(s.cfg.StartingSeconds)*time.Second, after)
		return nil
	})
}

// setPhase moves the room to the next phase, announces it, and arms the
// phase timer. Bumping PhaseGen invalidates any timer armed for an earlier
// phase of this room.
func (s *Server) setPhase(room *Room, phase string, duration time.Duration, after *[]func()) {
	room.Phase = phase
	room.PhaseGen++
	room.PhaseStartedAt = timeNowUTC()

	payload := phaseChangedPayload{
		Phase:    phase,
		Day:      room.CurrentDay,
		Duration: int(duration / time.Second),
	}
	*after = append(*after, func() {
		s.broadcast(room, "phase_changed", payload)
	})
	if duration > 0 {
		s.schedulePhaseTimer(room.Code, room.PhaseGen, duration)
	}
}

// phaseTimerFired advances a room whose phase timer expired. Stale timers,
// where the room moved on before the timer fired, are dropped by the
// generation check.
func (s *Server) phaseTimerFired(code string, gen int) {
	var after []func()
	_, err := s.store.UpdateRoom(code, func(room *Room) error {
		if room.PhaseGen != gen {
			return nil
		}
		s.advancePhase(room, &after)
		return nil
	})
	if err != nil {
		return
	}
	for _, f := range after {
		f()
	}
}

func (s *Server) advancePhase(room *Room, after *[]func()) {
	switch room.Phase {
	case phaseStarting:
		s.enterRoleReveal(room, after)
	case phaseRoleReveal:
		s.startNewDay(room, after)
	case phaseDailyVoting:
		s.resolveDailyVoting(room, after)
	case phaseTasks:
		s.enterDayEnd(room, after)
	case phaseEmergencyMeeting:
		s.setPhase(room, phaseEliminationVoting, time.Duration(room.Settings.VotingTime)*time.Second, after)
	case phaseEliminationVoting:
		s.resolveElimination(room, after)
	case phaseEjection:
		s.enterDayEnd(room, after)
	case phaseDayEnd:
		s.startNewDay(room, after)
	}
}

func (s *Server) enterRoleReveal(room *Room, after *[]func()) {
	for i := range room.Players {
		p := room.Players[i]
		if !p.Connected {
			continue
		}
		payload := roleAssignedPayload{
			Role:  p.Role,
			Tasks: append([]string(nil), p.TasksAssigned...),
		}
		playerID := p.ID
		*after = append(*after, func() {
			s.sendPrivate(room, playerID, "role_assigned", payload)
		})
	}
	s.setPhase(room, phaseRoleReveal, time.Duration(s.cfg.RoleRevealSeconds)*time.Second, after)
}

// startNewDay begins the next game day, or ends the game once the configured
// day count runs out.
func (s *Server) startNewDay(room *Room, after *[]func()) {
	if room.CurrentDay >= room.TotalDays {
		s.gameOver(room, s.cfg.TimeoutWinner, "time ran out", after)
		return
	}

	room.CurrentDay++
	room.DailyVotes = nil
	room.EliminationVotes = nil
	room.VoteOrder = 0
	room.SelectedForTasks = nil
	room.MeetingCallerID = ""
	room.LastEjectedID = ""
	for i := range room.Players {
		p := &room.Players[i]
		p.CanDoTaskToday = false
		p.TasksDoneToday = 0
		if p.Role == roleMedium {
			delete(p.Capabilities, capTalksToGhosts)
		}
	}

	payload := newDayPayload{Day: room.CurrentDay}
	*after = append(*after, func() {
		s.broadcast(room, "new_day_started", payload)
	})
	s.setPhase(room, phaseDailyVoting, time.Duration(s.cfg.DailyVotingSeconds)*time.Second, after)
}

// resolveDailyVoting tallies the morning ballot, elects the day's task
// workers, and deals each of them their daily tasks.
func (s *Server) resolveDailyVoting(room *Room, after *[]func()) {
	if room.Phase != phaseDailyVoting {
		return
	}

	selected := tallyDailyVotes(room, 3)
	if len(selected) == 0 {
		// Nobody voted; the first few living players work today.
		for _, p := range room.alivePlayers() {
			selected = append(selected, p.ID)
			if len(selected) == 3 {
				break
			}
		}
	}
	room.SelectedForTasks = selected

	for _, id := range selected {
		p := room.findPlayer(id)
		if p == nil || !p.IsAlive {
			continue
		}
		p.CanDoTaskToday = true
	}

	payload := dailyVotingResultsPayload{SelectedPlayers: selected, Day: room.CurrentDay}
	*after = append(*after, func() {
		s.broadcast(room, "daily_voting_results", payload)
	})
	s.enterTasks(room, after)
}

func (s *Server) enterTasks(room *Room, after *[]func()) {
	for i := range room.Players {
		if room.Players[i].Role == roleImpostor {
			// Fresh cooldown at the start of every work period.
			room.Players[i].LastKillAt = timeNowUTC()
		}
	}
	s.setPhase(room, phaseTasks, time.Duration(s.cfg.TaskDaySeconds)*time.Second, after)
}

func (s *Server) enterEmergencyMeeting(room *Room, after *[]func()) {
	s.clearMeetingState(room)
	s.setPhase(room, phaseEmergencyMeeting, time.Duration(room.Settings.DiscussionTime)*time.Second, after)
}

func (s *Server) enterEliminationVoting(room *Room, after *[]func()) {
	s.clearMeetingState(room)
	s.setPhase(room, phaseEliminationVoting, time.Duration(room.Settings.VotingTime)*time.Second, after)
}

// clearMeetingState resets ballots and gathers everyone at the table. An
// active non-fatal sabotage survives the meeting; fatal ones are cleared so
// a meeting cannot be used to wait one out.
func (s *Server) clearMeetingState(room *Room) {
	room.EliminationVotes = nil
	if fatalSabotage(room.SabotageActive) {
		room.SabotageActive = ""
		room.SabotageID = ""
		room.SabotageEndsAt = time.Time{}
	}
	meeting := mapByName(room.Settings.Map).MeetingPoint
	for i := range room.Players {
		p := &room.Players[i]
		if p.IsAlive {
			p.Position = meeting
			p.InVent = false
			p.CurrentVent = ""
		}
	}
}

func (s *Server) resolveElimination(room *Room, after *[]func()) {
	if room.Phase != phaseEliminationVoting {
		return
	}

	ejectedID, counts := tallyEliminationVotes(room)
	result := votingResultsPayload{Skipped: ejectedID == "", Votes: counts}

	var ejected *Player
	if ejectedID != "" {
		ejected = room.findPlayer(ejectedID)
	}
	if ejected != nil {
		ejected.IsAlive = false
		room.LastEjectedID = ejected.ID
		payload := playerToPayload(ejected)
		result.EjectedPlayer = &payload
		if room.Settings.ConfirmEjects {
			result.WasImpostor = ejected.Role == roleImpostor
		}
		s.persistEventStaged(room, "player_ejected", EventPayload{
			PlayerID: ejected.ID,
			Day:      room.CurrentDay,
		}, after)
	}

	*after = append(*after, func() {
		s.broadcast(room, "voting_results", result)
	})

	if s.checkWin(room, ejected, after) {
		return
	}
	s.setPhase(room, phaseEjection, time.Duration(s.cfg.EjectionSeconds)*time.Second, after)
}

func (s *Server) enterDayEnd(room *Room, after *[]func()) {
	if s.checkWin(room, nil, after) {
		return
	}
	s.setPhase(room, phaseDayEnd, time.Duration(s.cfg.DayEndSeconds)*time.Second, after)
}
