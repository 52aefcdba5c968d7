package server

import "errors"

var (
	ErrRoomNotFound       = errors.New("room not found")
	ErrRoomFull           = errors.New("room is full")
	ErrColorTaken         = errors.New("color already taken")
	ErrInvalidPhase       = errors.New("action not allowed in current phase")
	ErrNotAuthorized      = errors.New("not authorized")
	ErrPreconditionFailed = errors.New("precondition failed")
	ErrGameAlreadyOver    = errors.New("game already over")
)
