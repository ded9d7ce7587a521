package domain

import "errors"

var (
	ErrAlreadyJoined       = errors.New("user already in room")
	ErrRoomFull            = errors.New("room is full")
	ErrRoomClosed          = errors.New("room is closed")
	ErrRegistrationFailure = errors.New("room id space exhausted")
)
