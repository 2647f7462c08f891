package main

import "strconv"

type advanceTrigger string

const (
	triggerTimerExpired advanceTrigger = "timer expired"
	triggerAllAnswered  advanceTrigger = "all answered"
	triggerManual       advanceTrigger = "manual advance"
)

// startGame handles "game start": owner-only, waiting rooms only. It
// snapshots the catalog into the room, resets per-round flags, and arms
// the first countdown.
func (s *Server) startGame(code, requesterID string) error {
	room, ok := s.rooms.get(code)
	if !ok {
		return ErrRoomNotFound
	}

	room.mu.Lock()
	defer room.mu.Unlock()

	if requesterID != room.OwnerID {
		return ErrPermissionDenied
	}
	if room.Status != StatusWaiting {
		return ErrInvalidTransition
	}

	rounds := s.catalog.snapshotFor(room.Difficulty)
	if len(rounds) == 0 {
		return ErrEmptyCatalog
	}

	room.rounds = rounds
	room.Status = StatusPlaying
	room.Round = 0
	room.resetProgressLocked()
	room.lastActive = s.clock.Now()

	s.log.Info().Str("room", code).Int("rounds", len(rounds)).Msg("game started")

	s.gw.roomCast(code, evGameStart, gameStateLocked(room))
	s.gw.roomCast(code, evGameImageUpdate, imageData{RoomCode: code, Round: 0, Image: room.rounds[0].Image})
	s.postSystemLocked(room, "Game on! Round 1 of "+strconv.Itoa(len(rounds)), KindGame)
	s.beginCountdownLocked(room)

	return nil
}

// beginCountdownLocked broadcasts the countdown start and arms the timer
// for the room's current round. Caller holds room.mu. Tick and expiry
// callbacks re-check round and status: a tick that lost a race against
// stop, or an expiry for a round that already advanced, must do nothing.
func (s *Server) beginCountdownLocked(room *Room) {
	code := room.Code
	round := room.Round

	s.gw.roomCast(code, evGameTimerStart, timerData{RoomCode: code, Remaining: room.Duration})

	s.timers.start(code, room.Duration, func(remaining int) {
		room.mu.Lock()
		defer room.mu.Unlock()

		if room.Status != StatusPlaying || room.Round != round {
			return
		}
		s.gw.roomCast(code, evTimerUpdate, timerData{RoomCode: code, Remaining: remaining})
	}, func() {
		_ = s.advanceRound(code, round, triggerTimerExpired, "")
	})
}

// advanceRound moves a room to its next round, or ends the game when the
// snapshot is exhausted. fromRound pins the transition to the round the
// trigger observed, so a timer expiry and a final answer racing each
// other advance exactly once; pass -1 to mean whatever round is current.
func (s *Server) advanceRound(code string, fromRound int, trigger advanceTrigger, requesterID string) error {
	room, ok := s.rooms.get(code)
	if !ok {
		return ErrRoomNotFound
	}

	room.mu.Lock()
	defer room.mu.Unlock()

	return s.advanceRoundLocked(room, fromRound, trigger, requesterID)
}

func (s *Server) advanceRoundLocked(room *Room, fromRound int, trigger advanceTrigger, requesterID string) error {
	if trigger == triggerManual && requesterID != room.OwnerID {
		return ErrPermissionDenied
	}
	if room.Status != StatusPlaying {
		return ErrInvalidTransition
	}
	if fromRound >= 0 && room.Round != fromRound {
		return ErrInvalidTransition
	}

	s.timers.stop(room.Code)
	room.Round++
	room.lastActive = s.clock.Now()

	s.log.Debug().
		Str("room", room.Code).
		Int("round", room.Round).
		Str("trigger", string(trigger)).
		Msg("advancing round")

	if room.Round >= len(room.rounds) {
		room.Status = StatusEnded
		s.gw.roomCast(room.Code, evGameTimerStop, timerData{RoomCode: room.Code})
		s.gw.roomCast(room.Code, evGameEnd, scoreboardLocked(room))
		s.postSystemLocked(room, "Game over!", KindGame)
		return nil
	}

	room.resetProgressLocked()

	s.gw.roomCast(room.Code, evGameUpdate, gameStateLocked(room))
	s.gw.roomCast(room.Code, evGameImageUpdate, imageData{
		RoomCode: room.Code,
		Round:    room.Round,
		Image:    room.rounds[room.Round].Image,
	})

	// Short breather before the next countdown arms.
	if s.cfg.roundPause > 0 {
		room.pauseGen++
		gen := room.pauseGen
		round := room.Round
		code := room.Code
		s.clock.AfterFunc(s.cfg.roundPause, func() {
			s.resumeCountdown(code, gen, round)
		})
	} else {
		s.beginCountdownLocked(room)
	}

	return nil
}

// resumeCountdown arms the countdown scheduled after a round pause, unless
// the room moved on (reset, ended, deleted) while the pause was pending.
func (s *Server) resumeCountdown(code string, gen uint64, round int) {
	room, ok := s.rooms.get(code)
	if !ok {
		return
	}

	room.mu.Lock()
	defer room.mu.Unlock()

	if room.pauseGen != gen || room.Status != StatusPlaying || room.Round != round {
		return
	}
	s.beginCountdownLocked(room)
}

// resetGame handles "game reset": owner-only, back to the waiting state
// with a zeroed scoreboard and no game data.
func (s *Server) resetGame(code, requesterID string) error {
	room, ok := s.rooms.get(code)
	if !ok {
		return ErrRoomNotFound
	}

	room.mu.Lock()
	defer room.mu.Unlock()

	if requesterID != room.OwnerID {
		return ErrPermissionDenied
	}

	s.timers.stop(code)
	room.pauseGen++
	room.Status = StatusWaiting
	room.Round = 0
	room.rounds = nil
	for _, m := range room.roster {
		m.Points = 0
		m.progress = roundProgress{}
	}
	room.lastActive = s.clock.Now()

	s.log.Info().Str("room", code).Msg("game reset")

	s.gw.roomCast(code, evGameTimerStop, timerData{RoomCode: code})
	s.gw.roomCast(code, evGameReset, gameStateLocked(room))
	s.gw.roomCast(code, evPlayerUpdate, rosterLocked(room))
	s.postSystemLocked(room, "Game reset", KindGame)

	return nil
}
