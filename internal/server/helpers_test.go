package server

import (
	"testing"

	"github.com/enzosantiagosrv1245-cell/among-us/internal/config"
)

func newTestServer() *Server {
	return New(nil, config.Default())
}

// setupGame creates a room with the given players and forces it into the
// given phase without going through the timer chain. Roles are left as
// zero values so each test can set them explicitly.
func setupGame(t *testing.T, s *Server, phase string, names ...string) (*Room, []string) {
	t.Helper()
	room, host := s.store.CreateRoom(names[0], "", "")
	ids := []string{host.ID}
	for _, name := range names[1:] {
		p, _, err := s.store.AddPlayer(room.Code, name, "", "")
		if err != nil {
			t.Fatalf("add player %s: %v", name, err)
		}
		ids = append(ids, p.ID)
	}
	if phase != phaseLobby {
		_, err := s.store.UpdateRoom(room.Code, func(r *Room) error {
			r.Started = true
			r.CurrentDay = 1
			r.TotalDays = r.Settings.GameDuration
			r.Phase = phase
			r.PhaseGen = 1
			return nil
		})
		if err != nil {
			t.Fatalf("update room: %v", err)
		}
	}
	return room, ids
}

func sessionFor(room *Room, playerID string) *session {
	return &session{roomCode: room.Code, playerID: playerID}
}

func setRole(t *testing.T, s *Server, room *Room, playerID, role string) {
	t.Helper()
	_, err := s.store.UpdateRoom(room.Code, func(r *Room) error {
		p := r.findPlayer(playerID)
		if p == nil {
			t.Fatalf("player %s not in room", playerID)
		}
		p.Role = role
		return nil
	})
	if err != nil {
		t.Fatalf("set role: %v", err)
	}
}

func playerByID(t *testing.T, room *Room, playerID string) *Player {
	t.Helper()
	p := room.findPlayer(playerID)
	if p == nil {
		t.Fatalf("player %s not in room", playerID)
	}
	return p
}
