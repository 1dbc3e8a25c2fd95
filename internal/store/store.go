package store

import "errors"

// ErrDuplicate is returned when an insert hits a uniqueness constraint the caller treats as "already done".
var ErrDuplicate = errors.New("row already exists")

var (
	ErrInvalidTeam   = errors.New("team must be A or B")
	ErrInvalidStatus = errors.New("invalid event status transition")
)
