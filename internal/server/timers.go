package server

import (
	"strings"
	"time"
)

// Phase timers fire outside the store lock and revalidate the room state when
// they run. A room has at most one live phase timer and one sabotage timer.

func (s *Server) schedulePhaseTimer(code string, gen int, d time.Duration) {
	s.armTimer("phase:"+code, d, func() {
		s.phaseTimerFired(code, gen)
	})
}

func (s *Server) scheduleSabotageTimer(code, sabotageID string, d time.Duration) {
	s.armTimer("sabotage:"+code, d, func() {
		s.sabotageTimerFired(code, sabotageID)
	})
}

func (s *Server) armTimer(key string, d time.Duration, fn func()) {
	s.timersMu.Lock()
	defer s.timersMu.Unlock()
	if old, ok := s.timers[key]; ok {
		old.Stop()
	}
	s.timers[key] = time.AfterFunc(d, func() {
		s.timersMu.Lock()
		delete(s.timers, key)
		s.timersMu.Unlock()
		fn()
	})
}

func (s *Server) cancelRoomTimers(code string) {
	s.timersMu.Lock()
	defer s.timersMu.Unlock()
	for key, t := range s.timers {
		if strings.HasSuffix(key, ":"+code) {
			t.Stop()
			delete(s.timers, key)
		}
	}
}

// sabotageTimerFired ends the game when a fatal sabotage ran its full course
// unfixed. The sabotage id guards against a fix-then-resabotage race.
func (s *Server) sabotageTimerFired(code, sabotageID string) {
	var after []func()
	_, err := s.store.UpdateRoom(code, func(room *Room) error {
		if room.SabotageID != sabotageID || room.Phase != phaseTasks {
			return nil
		}
		if !fatalSabotage(room.SabotageActive) {
			return nil
		}
		failed := sabotagePayload{Type: room.SabotageActive, Position: room.SabotagePosition}
		after = append(after, func() {
			s.broadcast(room, "sabotage_failed", failed)
		})
		s.gameOver(room, winnerImpostors, "sabotage was not fixed in time", &after)
		return nil
	})
	if err != nil {
		return
	}
	for _, f := range after {
		f()
	}
}
