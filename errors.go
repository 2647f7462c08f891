/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package main

import "errors"

// Failure taxonomy for inbound events. NotFound and InvalidTransition are
// logged no-ops; the rest are reported back to the originating connection.
var (
	ErrDuplicateRoomCode = errors.New("room code already in use")
	ErrEmptyCatalog      = errors.New("no catalog entries match the room settings")
	ErrInvalidTransition = errors.New("invalid game state transition")
	ErrMuted             = errors.New("you are muted in this room")
	ErrPermissionDenied  = errors.New("only the room owner may do that")
	ErrRateLimited       = errors.New("too many messages, slow down")
	ErrRoomFull          = errors.New("room is full")
	ErrRoomNotFound      = errors.New("room not found")
	ErrUserNotFound      = errors.New("user not found")
)
