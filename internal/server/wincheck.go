package server

import (
	"log"
	"time"
)

// evaluateWinner checks every end condition in priority order. ejected is
// non-nil only when the check runs right after a meeting ejection, which is
// the one moment the clown can win.
func evaluateWinner(room *Room, ejected *Player, timeoutWinner string) (winner, reason string) {
	if ejected != nil && ejected.Role == roleClown {
		return winnerClown, "the clown got voted out"
	}

	impostors, crew := room.aliveCount()
	if impostors == 0 {
		return winnerCrewmates, "all impostors are gone"
	}
	if crew <= impostors {
		return winnerImpostors, "impostors outnumber the crew"
	}

	if len(room.Tasks) > 0 && room.Settings.TaskWinCondition > 0 {
		done := room.completedTaskCount() * 100
		if done >= len(room.Tasks)*room.Settings.TaskWinCondition {
			return winnerCrewmates, "all tasks completed"
		}
	}

	if room.CurrentDay >= room.TotalDays && room.Phase == phaseDayEnd {
		return timeoutWinner, "time ran out"
	}

	return "", ""
}

// checkWin ends the game if any win condition holds. Returns true when the
// game is over so callers can stop scheduling further phases.
func (s *Server) checkWin(room *Room, ejected *Player, after *[]func()) bool {
	if room.Phase == phaseGameOver {
		return true
	}
	winner, reason := evaluateWinner(room, ejected, s.cfg.TimeoutWinner)
	if winner == "" {
		return false
	}
	s.gameOver(room, winner, reason, after)
	return true
}

func (s *Server) gameOver(room *Room, winner, reason string, after *[]func()) {
	room.Winner = winner
	room.WinReason = reason
	room.Phase = phaseGameOver
	room.PhaseGen++
	room.PhaseStartedAt = timeNowUTC()
	room.SabotageActive = ""
	room.SabotageID = ""
	room.SabotageEndsAt = time.Time{}

	payload := gameOverPayload{
		Winner:  winner,
		Reason:  reason,
		Players: revealPayload(room),
	}
	code := room.Code
	days := room.CurrentDay
	*after = append(*after, func() {
		s.cancelRoomTimers(code)
		s.broadcast(room, "game_over", payload)
		log.Printf("game over code=%s winner=%s reason=%q days=%d", code, winner, reason, days)
		s.broadcastHomeUpdate()
	})
	s.persistEventStaged(room, "game_over", EventPayload{
		Winner: winner,
		Reason: reason,
		Day:    days,
	}, after)
	s.persistResultStaged(room, after)
}
