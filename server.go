package main

import (
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"
)

// broadcaster is the outbound half of the event contract. The websocket
// gateway implements it; tests substitute a recorder.
type broadcaster interface {
	cast(event string, data any)
	roomCast(roomCode, event string, data any)
	direct(connectionID, event string, data any)
	dropRoom(roomCode string)
}

// Server is the room/game-session coordinator: one instance per process,
// owning the identity registry, the room store, and the countdown timers.
// Transport adapters translate wire events into calls on it and never
// carry state-machine logic of their own.
type Server struct {
	cfg     *Config
	log     zerolog.Logger
	clock   clockwork.Clock
	catalog *Catalog
	users   *Registry
	rooms   *RoomStore
	timers  *TimerService
	gw      broadcaster
}

func newServer(cfg *Config, logger zerolog.Logger, clock clockwork.Clock, catalog *Catalog, gw broadcaster) *Server {
	return &Server{
		cfg:     cfg,
		log:     logger,
		clock:   clock,
		catalog: catalog,
		users:   newRegistry(),
		rooms:   newRoomStore(),
		timers:  newTimerService(clock),
		gw:      gw,
	}
}

// createOrUpdateUser handles "user create": an upsert with no uniqueness
// conflicts, last writer wins.
func (s *Server) createOrUpdateUser(id, displayName, connectionID string) User {
	u := s.users.upsert(id, displayName, connectionID)
	s.log.Debug().Str("user", id).Str("name", u.DisplayName).Msg("user upserted")
	return u
}
