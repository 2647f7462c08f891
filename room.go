package main

import (
	"crypto/rand"
	"sync"
	"time"
)

type RoomStatus string

const (
	StatusWaiting RoomStatus = "waiting"
	StatusPlaying RoomStatus = "playing"
	StatusEnded   RoomStatus = "ended"
)

// Game modes. Classic rooms play both phases each round: name the game,
// then pinpoint the location; the map phase unlocks only after a correct
// name guess. Map rooms skip straight to coordinates.
const (
	ModeClassic = "classic"
	ModeMap     = "map"
)

const (
	RoleAdmin  = "admin"
	RolePlayer = "player"
)

const defaultRoundSeconds = 60

// roundProgress is what a member has done in the current round. The name
// phase locks after a single attempt, right or wrong.
type roundProgress struct {
	nameDone    bool
	nameCorrect bool
	mapDone     bool
}

// Membership is a user's room-scoped state. It survives disconnects so a
// rejoin within the grace period keeps points and role.
type Membership struct {
	UserID string
	Name   string
	Role   string
	Points int
	Alive  bool

	progress roundProgress
}

// answered reports whether this member is done with the current round.
func (m *Membership) answered(mode string) bool {
	if mode == ModeMap {
		return m.progress.mapDone
	}
	if !m.progress.nameDone {
		return false
	}
	if m.progress.nameCorrect {
		return m.progress.mapDone
	}
	return true
}

type Room struct {
	mu sync.Mutex

	Code       string
	Name       string
	OwnerID    string
	Mode       string
	Difficulty string
	Duration   int
	Private    bool

	Status RoomStatus
	Round  int
	rounds []Round

	roster map[string]*Membership

	chat      *chatLog
	mods      map[string]*moderation
	lastPosts map[string][]time.Time

	createdAt  time.Time
	lastActive time.Time

	// Generation counters invalidate scheduled callbacks that are no
	// longer relevant: a pending between-rounds pause, or a teardown
	// check raced by a rejoin.
	pauseGen    uint64
	teardownGen uint64
}

func (r *Room) allAnsweredLocked() bool {
	anyone := false
	for _, m := range r.roster {
		if !m.Alive {
			continue
		}
		anyone = true
		if !m.answered(r.Mode) {
			return false
		}
	}
	return anyone
}

func (r *Room) allDeadLocked() bool {
	for _, m := range r.roster {
		if m.Alive {
			return false
		}
	}
	return true
}

func (r *Room) resetProgressLocked() {
	for _, m := range r.roster {
		m.progress = roundProgress{}
	}
}

// RoomStore owns every active room, keyed by code. Constructed once per
// process and passed to every handler; its lock covers map access only,
// never room state, so one room's traffic can't stall another's.
type RoomStore struct {
	mu    sync.RWMutex
	rooms map[string]*Room
}

func newRoomStore() *RoomStore {
	return &RoomStore{
		rooms: make(map[string]*Room),
	}
}

// create inserts a room, rejecting duplicate codes rather than silently
// replacing a session already in play.
func (s *RoomStore) create(room *Room) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.rooms[room.Code]; exists {
		return ErrDuplicateRoomCode
	}
	s.rooms[room.Code] = room

	return nil
}

func (s *RoomStore) get(code string) (*Room, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	room, ok := s.rooms[code]
	return room, ok
}

func (s *RoomStore) remove(code string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.rooms, code)
}

func (s *RoomStore) snapshot() []*Room {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*Room, 0, len(s.rooms))
	for _, room := range s.rooms {
		out = append(out, room)
	}
	return out
}

// newRoomCode generates a crypto-random 4-char shareable code and ensures
// it doesn't collide with an existing room.
func (s *RoomStore) newRoomCode() string {
	const letters = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"
	for {
		buf := make([]byte, 4)
		if _, err := rand.Read(buf); err != nil {
			panic("crypto/rand failure: " + err.Error())
		}
		out := make([]byte, 4)
		for i := range out {
			out[i] = letters[int(buf[i])%len(letters)]
		}
		code := string(out)

		s.mu.RLock()
		_, exists := s.rooms[code]
		s.mu.RUnlock()

		if !exists {
			return code
		}
	}
}

// createRoom handles "room create". The owner lands in the roster
// immediately so the owner-in-roster invariant holds from birth.
func (s *Server) createRoom(d roomCreateData) (*Room, error) {
	owner, ok := s.users.get(d.Owner)
	if !ok {
		return nil, ErrUserNotFound
	}

	code := d.Code
	if code == "" {
		code = s.rooms.newRoomCode()
	}

	mode := d.Mode
	if mode != ModeMap {
		mode = ModeClassic
	}
	duration := d.Duration
	if duration <= 0 {
		duration = defaultRoundSeconds
	}

	now := s.clock.Now()
	room := &Room{
		Code:       code,
		Name:       d.Name,
		OwnerID:    owner.ID,
		Mode:       mode,
		Difficulty: d.Difficulty,
		Duration:   duration,
		Private:    d.Privacy == "private",
		Status:     StatusWaiting,
		roster: map[string]*Membership{
			owner.ID: {
				UserID: owner.ID,
				Name:   owner.DisplayName,
				Role:   RoleAdmin,
				Alive:  true,
			},
		},
		chat:       newChatLog(s.cfg.chatHistory),
		mods:       make(map[string]*moderation),
		lastPosts:  make(map[string][]time.Time),
		createdAt:  now,
		lastActive: now,
	}

	if err := s.rooms.create(room); err != nil {
		return nil, err
	}

	s.log.Info().Str("room", code).Str("owner", owner.ID).Str("mode", mode).Msg("room created")
	s.gw.cast(evRooms, s.lobbyRooms())

	return room, nil
}

// joinRoom handles "room joined". A user with an existing membership is
// reactivated rather than duplicated, keeping their points and role.
func (s *Server) joinRoom(code, userID string) error {
	user, ok := s.users.get(userID)
	if !ok {
		return ErrUserNotFound
	}
	room, ok := s.rooms.get(code)
	if !ok {
		return ErrRoomNotFound
	}

	room.mu.Lock()
	defer room.mu.Unlock()

	// The grace-period teardown deletes under the room lock; a join that
	// was already holding the pointer must not resurrect a deleted room.
	if cur, ok := s.rooms.get(code); !ok || cur != room {
		return ErrRoomNotFound
	}

	room.lastActive = s.clock.Now()

	m, rejoin := room.roster[userID]
	if rejoin {
		m.Alive = true
		m.Name = user.DisplayName
		room.teardownGen++
	} else {
		if len(room.roster) >= s.cfg.roomSize {
			return ErrRoomFull
		}
		role := RolePlayer
		if userID == room.OwnerID {
			role = RoleAdmin
		}
		m = &Membership{
			UserID: userID,
			Name:   user.DisplayName,
			Role:   role,
			Alive:  true,
		}
		room.roster[userID] = m
	}

	s.log.Debug().Str("room", code).Str("user", userID).Bool("rejoin", rejoin).Msg("user joined room")

	s.gw.roomCast(code, evRoomUpdate, roomStateLocked(room))
	s.gw.roomCast(code, evPlayerUpdate, rosterLocked(room))
	s.gw.roomCast(code, evChatJoin, presenceData{RoomCode: code, UserID: userID, Name: m.Name})
	s.postSystemLocked(room, m.Name+" joined the room", KindSystem)

	return nil
}

// lobbyRooms is the lobby listing: every room, with private ones marked
// so clients can render them locked rather than invisible.
func (s *Server) lobbyRooms() []roomSummary {
	rooms := s.rooms.snapshot()

	out := make([]roomSummary, 0, len(rooms))
	for _, room := range rooms {
		room.mu.Lock()
		out = append(out, summaryLocked(room))
		room.mu.Unlock()
	}
	return out
}

// roomSnapshot answers "get room" queries with a consistent copy.
func (s *Server) roomSnapshot(code string) (roomState, error) {
	room, ok := s.rooms.get(code)
	if !ok {
		return roomState{}, ErrRoomNotFound
	}

	room.mu.Lock()
	defer room.mu.Unlock()

	return roomStateLocked(room), nil
}
