package server

import (
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
)

const (
	maxNameLength = 20
	maxChatLength = 200
)

var (
	validatorOnce sync.Once
	validate      *validator.Validate
)

func gameValidator() *validator.Validate {
	validatorOnce.Do(func() {
		validate = validator.New()
		_ = validate.RegisterValidation("playername", func(fl validator.FieldLevel) bool {
			return validName(fl.Field().String())
		})
		_ = validate.RegisterValidation("colorid", func(fl validator.FieldLevel) bool {
			return validColor(fl.Field().String())
		})
		_ = validate.RegisterValidation("killdistance", func(fl validator.FieldLevel) bool {
			_, ok := killDistances[fl.Field().String()]
			return ok
		})
	})
	return validate
}

type createRoomRequest struct {
	Name      string `validate:"required,playername"`
	SpecialID string `validate:"omitempty,numeric,len=8"`
	Color     string `validate:"omitempty,colorid"`
}

type joinRoomRequest struct {
	Code      string `validate:"required,len=6"`
	Name      string `validate:"required,playername"`
	SpecialID string `validate:"omitempty,numeric,len=8"`
	Color     string `validate:"omitempty,colorid"`
}

type settingsRequest struct {
	ImpostorCount     int    `validate:"min=1,max=3"`
	MaxPlayers        int    `validate:"min=4,max=15"`
	KillDistance      string `validate:"killdistance"`
	KillCooldown      int    `validate:"min=10,max=60"`
	DiscussionTime    int    `validate:"min=0,max=120"`
	VotingTime        int    `validate:"min=15,max=300"`
	EmergencyMeetings int    `validate:"min=0,max=9"`
	GameDuration      int    `validate:"min=1,max=30"`
	TasksPerDay       int    `validate:"min=1,max=5"`
}

func validName(name string) bool {
	trimmed := strings.TrimSpace(name)
	return trimmed != "" && len(trimmed) <= maxNameLength
}

func validColor(color string) bool {
	for _, c := range playerColors {
		if c == color {
			return true
		}
	}
	return false
}

func validChat(content string) bool {
	trimmed := strings.TrimSpace(content)
	return trimmed != "" && len(trimmed) <= maxChatLength
}

func validateSettings(s Settings) error {
	return gameValidator().Struct(settingsRequest{
		ImpostorCount:     s.ImpostorCount,
		MaxPlayers:        s.MaxPlayers,
		KillDistance:      s.KillDistance,
		KillCooldown:      s.KillCooldown,
		DiscussionTime:    s.DiscussionTime,
		VotingTime:        s.VotingTime,
		EmergencyMeetings: s.EmergencyMeetings,
		GameDuration:      s.GameDuration,
		TasksPerDay:       s.TasksPerDay,
	})
}
