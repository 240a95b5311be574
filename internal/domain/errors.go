package domain

import "errors"

var (
	ErrRoomNotFound  = errors.New("room not found")
	ErrRoomExists    = errors.New("room already exists")
	ErrRoomFull      = errors.New("room is full")
	ErrRoomNotEmpty  = errors.New("room is not empty")
	ErrAlreadyJoined = errors.New("connection already joined the room")
	ErrInvalidRoomID = errors.New("invalid room id")
	ErrStorage       = errors.New("storage failure")
)

// Gateway decoding errors.
var (
	ErrUnknownMessage   = errors.New("unknown message type")
	ErrMalformedMessage = errors.New("malformed message")
)
