package main

// onDisconnect resolves the dropped connection to a user and marks them
// not-alive in every room holding a membership for them. Membership
// entries stay put so a rejoin within the grace period keeps points and
// role; rooms left with nobody alive get a teardown check scheduled.
func (s *Server) onDisconnect(connectionID string) {
	user, ok := s.users.disconnect(connectionID)
	if !ok {
		return
	}

	referenced := false
	for _, room := range s.rooms.snapshot() {
		room.mu.Lock()

		m, member := room.roster[user.ID]
		if !member {
			room.mu.Unlock()
			continue
		}
		referenced = true

		if m.Alive {
			m.Alive = false
			s.gw.roomCast(room.Code, evPlayerUpdate, rosterLocked(room))
			s.gw.roomCast(room.Code, evChatLeave, presenceData{RoomCode: room.Code, UserID: user.ID, Name: m.Name})
			s.postSystemLocked(room, m.Name+" left the room", KindSystem)

			if room.allDeadLocked() {
				s.scheduleTeardownLocked(room)
			}
		}

		room.mu.Unlock()
	}

	s.log.Debug().Str("user", user.ID).Msg("disconnected")

	if !referenced {
		s.users.dropIfIdle(user.ID)
	}
}

// scheduleTeardownLocked arms the grace-period deletion check for a room
// whose members are all gone. The generation counter makes the pending
// check irrelevant the moment anyone comes back. Caller holds room.mu.
func (s *Server) scheduleTeardownLocked(room *Room) {
	room.teardownGen++
	gen := room.teardownGen
	code := room.Code

	s.log.Debug().Str("room", code).Dur("grace", s.cfg.gracePeriod).Msg("room empty, teardown scheduled")

	s.clock.AfterFunc(s.cfg.gracePeriod, func() {
		s.teardownCheck(code, gen)
	})
}

// teardownCheck deletes the room only if nobody came back while the grace
// period ran. A stale generation means a rejoin happened (or a newer check
// superseded this one); re-checking the roster covers a reconnect blip
// that never touched the counter.
func (s *Server) teardownCheck(code string, gen uint64) {
	room, ok := s.rooms.get(code)
	if !ok {
		return
	}

	room.mu.Lock()
	if room.teardownGen != gen || !room.allDeadLocked() {
		room.mu.Unlock()
		return
	}
	room.pauseGen++
	members := make([]string, 0, len(room.roster))
	for id := range room.roster {
		members = append(members, id)
	}
	// Remove from the store before releasing the room lock so a join
	// racing the grace period either wins the lock first (and bumps the
	// generation) or finds the room already gone.
	s.rooms.remove(code)
	room.mu.Unlock()

	s.timers.stop(code)
	s.gw.dropRoom(code)

	// Registry entries whose only reference was this room go too, unless
	// the user reconnected in the meantime.
	for _, id := range members {
		if !s.memberAnywhere(id) {
			s.users.dropIfIdle(id)
		}
	}

	s.log.Info().Str("room", code).Msg("room deleted after grace period")
	s.gw.cast(evRooms, s.lobbyRooms())
}

func (s *Server) memberAnywhere(userID string) bool {
	for _, room := range s.rooms.snapshot() {
		room.mu.Lock()
		_, ok := room.roster[userID]
		room.mu.Unlock()
		if ok {
			return true
		}
	}
	return false
}
