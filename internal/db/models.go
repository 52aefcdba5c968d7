package db

import (
	"time"

	"gorm.io/datatypes"
)

type Room struct {
	ID        uint      `gorm:"primaryKey"`
	Code      string    `gorm:"size:12;uniqueIndex;not null"`
	Phase     string    `gorm:"size:32;not null"`
	Map       string    `gorm:"size:32;not null"`
	CreatedAt time.Time `gorm:"not null"`
	UpdatedAt time.Time `gorm:"not null"`
	Players   []Player
	Events    []Event
	Result    *Result
}

type Player struct {
	ID        uint      `gorm:"primaryKey"`
	RoomID    uint      `gorm:"index;not null;uniqueIndex:idx_players_room_name"`
	SessionID string    `gorm:"size:36;index;not null"`
	Name      string    `gorm:"size:64;not null;uniqueIndex:idx_players_room_name"`
	Color     string    `gorm:"size:16;not null"`
	Role      string    `gorm:"size:16"`
	IsHost    bool      `gorm:"not null;default:false"`
	JoinedAt  time.Time `gorm:"not null"`
	CreatedAt time.Time `gorm:"not null"`
	UpdatedAt time.Time `gorm:"not null"`
}

type Event struct {
	ID        uint           `gorm:"primaryKey"`
	RoomID    uint           `gorm:"index;not null"`
	PlayerID  *uint          `gorm:"index"`
	Day       int            `gorm:"not null;default:0"`
	Type      string         `gorm:"size:64;not null"`
	Payload   datatypes.JSON `gorm:"type:jsonb;not null"`
	CreatedAt time.Time      `gorm:"not null"`
}

type Result struct {
	ID        uint      `gorm:"primaryKey"`
	RoomID    uint      `gorm:"uniqueIndex;not null"`
	Winner    string    `gorm:"size:16;not null"`
	Reason    string    `gorm:"size:256;not null"`
	Days      int       `gorm:"not null"`
	CreatedAt time.Time `gorm:"not null"`
}
