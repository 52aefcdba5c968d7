package server

import (
	"crypto/rand"
	"math/big"
	"sort"
	"sync"

	"github.com/google/uuid"
)

// Store is the in-memory room arena. Every mutation of a Room happens under
// the store mutex, which gives command handlers run-to-completion semantics:
// no two handlers ever interleave inside the same room.
type Store struct {
	mu    sync.Mutex
	rooms map[string]*Room
}

func NewStore() *Store {
	return &Store{
		rooms: make(map[string]*Room),
	}
}

const codeCharset = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

func generateCode() string {
	code := make([]byte, 6)
	for i := range code {
		num, err := rand.Int(rand.Reader, big.NewInt(int64(len(codeCharset))))
		if err != nil {
			// crypto/rand failing is not recoverable in any useful way
			panic(err)
		}
		code[i] = codeCharset[num.Int64()]
	}
	return string(code)
}

func (s *Store) CreateRoom(hostName, specialID, color string) (*Room, Player) {
	s.mu.Lock()
	defer s.mu.Unlock()

	code := generateCode()
	for s.rooms[code] != nil {
		code = generateCode()
	}

	room := &Room{
		Code:      code,
		Settings:  defaultSettings(),
		Phase:     phaseLobby,
		CreatedAt: timeNowUTC(),
	}
	host := newPlayer(room, hostName, specialID, color, true)
	room.Players = append(room.Players, host)
	room.HostID = host.ID
	s.rooms[code] = room
	return room, room.Players[0]
}

func newPlayer(room *Room, name, specialID, color string, isHost bool) Player {
	spawn := mapByName(room.Settings.Map).SpawnPoint
	return Player{
		ID:        uuid.NewString(),
		SpecialID: specialID,
		Name:      name,
		Color:     freeColor(room, color),
		IsHost:    isHost,
		IsAlive:   true,
		Connected: true,
		Position:  spawn,
		JoinedAt:  timeNowUTC(),
	}
}

func (s *Store) GetRoom(code string) (*Room, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	room, ok := s.rooms[code]
	return room, ok
}

// UpdateRoom runs update while holding the store mutex. An error from update
// leaves no trace here; the closure is expected not to half-mutate on error.
func (s *Store) UpdateRoom(code string, update func(room *Room) error) (*Room, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	room, ok := s.rooms[code]
	if !ok {
		return nil, ErrRoomNotFound
	}
	if err := update(room); err != nil {
		return nil, err
	}
	return room, nil
}

// AddPlayer joins a player to a room. A requested color that collides with an
// existing player is silently swapped for the first free one. The joined
// player and the roster are snapshots taken before the lock is released, so
// callers never touch room state concurrently with another session's handler.
func (s *Store) AddPlayer(code, name, specialID, color string) (Player, []playerPayload, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	room, ok := s.rooms[code]
	if !ok {
		return Player{}, nil, ErrRoomNotFound
	}
	if len(room.Players) >= room.Settings.MaxPlayers {
		return Player{}, nil, ErrRoomFull
	}
	if room.Started {
		return Player{}, nil, ErrInvalidPhase
	}

	player := newPlayer(room, name, specialID, color, false)
	room.Players = append(room.Players, player)
	return player, playersPayload(room), nil
}

// RemovePlayer detaches a session. In the lobby the player is dropped from
// the roster; once a game has started the Player record stays (marked
// disconnected) so win evaluation and vote quorums remain meaningful. The
// room is deleted when no connected session remains, and the host seat moves
// to the earliest-joined connected player. The removed player and the roster
// are snapshots taken under the lock.
func (s *Store) RemovePlayer(code, playerID string) (removed *Player, roster []playerPayload, deleted bool, newHostID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	room, ok := s.rooms[code]
	if !ok {
		return nil, nil, false, ""
	}

	var detached Player
	found := false
	if room.Started {
		for i := range room.Players {
			if room.Players[i].ID == playerID {
				room.Players[i].Connected = false
				detached = room.Players[i]
				found = true
				break
			}
		}
	} else {
		for i := range room.Players {
			if room.Players[i].ID == playerID {
				detached = room.Players[i]
				room.Players = append(room.Players[:i], room.Players[i+1:]...)
				found = true
				break
			}
		}
	}
	if !found {
		return nil, nil, false, ""
	}

	if room.connectedCount() == 0 {
		delete(s.rooms, code)
		return &detached, nil, true, ""
	}

	if room.HostID == playerID {
		earliest := -1
		for i := range room.Players {
			if room.Players[i].ID == playerID {
				room.Players[i].IsHost = false
			}
			if !room.Players[i].Connected {
				continue
			}
			if earliest == -1 || room.Players[i].JoinedAt.Before(room.Players[earliest].JoinedAt) {
				earliest = i
			}
		}
		if earliest >= 0 {
			room.Players[earliest].IsHost = true
			room.HostID = room.Players[earliest].ID
			newHostID = room.HostID
		}
	}
	return &detached, playersPayload(room), false, newHostID
}

func (s *Store) DeleteRoom(code string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.rooms, code)
}

func (s *Store) ListRoomSummaries() []RoomSummary {
	s.mu.Lock()
	defer s.mu.Unlock()
	list := make([]RoomSummary, 0, len(s.rooms))
	for _, room := range s.rooms {
		list = append(list, RoomSummary{
			Code:        room.Code,
			PlayerCount: len(room.Players),
			MaxPlayers:  room.Settings.MaxPlayers,
			Started:     room.Started,
		})
	}
	sort.Slice(list, func(i, j int) bool {
		return list[i].Code < list[j].Code
	})
	return list
}
