package server

import (
	"encoding/json"
	"errors"
	"log"

	"github.com/enzosantiagosrv1245-cell/among-us/internal/db"
	"github.com/jackc/pgconn"
	"gorm.io/datatypes"
)

// All persistence is best effort: the server runs fine without a database,
// and a write failure never blocks or fails gameplay.

// persistRoom stores the room row. The snapshot for the insert and the
// database id backfill both happen under the room lock, so no room field is
// ever touched while another session's handler runs.
func (s *Server) persistRoom(code string) error {
	if s.db == nil {
		return nil
	}
	var record db.Room
	if _, err := s.store.UpdateRoom(code, func(room *Room) error {
		record = db.Room{
			Code:  room.Code,
			Phase: room.Phase,
			Map:   room.Settings.Map,
		}
		return nil
	}); err != nil {
		return nil
	}
	if err := s.db.Create(&record).Error; err != nil {
		if isUniqueViolation(err) {
			return nil
		}
		return err
	}
	_, err := s.store.UpdateRoom(code, func(room *Room) error {
		room.DBID = record.ID
		return nil
	})
	if errors.Is(err, ErrRoomNotFound) {
		return nil
	}
	return err
}

// persistPlayer stores a roster row from a player snapshot taken at
// create/join time.
func (s *Server) persistPlayer(code string, player Player) error {
	if s.db == nil {
		return nil
	}
	var roomDBID uint
	if _, err := s.store.UpdateRoom(code, func(room *Room) error {
		roomDBID = room.DBID
		return nil
	}); err != nil {
		return nil
	}
	if roomDBID == 0 {
		return nil
	}
	record := db.Player{
		RoomID:    roomDBID,
		SessionID: player.ID,
		Name:      player.Name,
		Color:     player.Color,
		Role:      player.Role,
		IsHost:    player.IsHost,
		JoinedAt:  player.JoinedAt,
	}
	if err := s.db.Create(&record).Error; err != nil {
		if isUniqueViolation(err) {
			return nil
		}
		return err
	}
	return nil
}

func (s *Server) persistEvent(roomDBID uint, day int, eventType string, payload EventPayload) error {
	if s.db == nil || roomDBID == 0 {
		return nil
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	record := db.Event{
		RoomID:  roomDBID,
		Day:     day,
		Type:    eventType,
		Payload: datatypes.JSON(raw),
	}
	return s.db.Create(&record).Error
}

func (s *Server) persistResult(roomDBID uint, winner, reason, phase string, days int) error {
	if s.db == nil || roomDBID == 0 {
		return nil
	}
	record := db.Result{
		RoomID: roomDBID,
		Winner: winner,
		Reason: reason,
		Days:   days,
	}
	if err := s.db.Create(&record).Error; err != nil {
		if isUniqueViolation(err) {
			return nil
		}
		return err
	}
	return s.db.Model(&db.Room{}).Where("id = ?", roomDBID).
		Update("phase", phase).Error
}

// persistEventStaged snapshots what the write needs under the lock and queues
// it with the other post-commit work.
func (s *Server) persistEventStaged(room *Room, eventType string, payload EventPayload, after *[]func()) {
	if s.db == nil || room.DBID == 0 {
		return
	}
	code := room.Code
	dbid := room.DBID
	day := room.CurrentDay
	*after = append(*after, func() {
		if err := s.persistEvent(dbid, day, eventType, payload); err != nil {
			log.Printf("persist event failed code=%s type=%s error=%v", code, eventType, err)
		}
	})
}

func (s *Server) persistResultStaged(room *Room, after *[]func()) {
	if s.db == nil || room.DBID == 0 {
		return
	}
	code := room.Code
	dbid := room.DBID
	winner := room.Winner
	reason := room.WinReason
	phase := room.Phase
	days := room.CurrentDay
	*after = append(*after, func() {
		if err := s.persistResult(dbid, winner, reason, phase, days); err != nil {
			log.Printf("persist result failed code=%s error=%v", code, err)
		}
	})
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
