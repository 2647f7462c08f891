package main

import (
	"time"

	"github.com/google/uuid"
)

// Chat message kinds.
const (
	KindUser    = "user"
	KindSystem  = "system"
	KindGame    = "game"
	KindAdmin   = "admin"
	KindWarning = "warning"
	KindError   = "error"
	KindInfo    = "info"
)

type ChatMessage struct {
	ID         string              `json:"id"`
	RoomCode   string              `json:"roomCode"`
	AuthorID   string              `json:"authorId,omitempty"`
	AuthorName string              `json:"authorName"`
	Body       string              `json:"body"`
	Kind       string              `json:"kind"`
	CreatedAt  time.Time           `json:"createdAt"`
	Moderated  bool                `json:"moderated,omitempty"`
	Reactions  map[string][]string `json:"reactions,omitempty"`
}

// chatLog is a per-room, memory-bounded message history: once the cap is
// reached the oldest entries fall off. Never persisted.
type chatLog struct {
	limit int
	msgs  []*ChatMessage
}

func newChatLog(limit int) *chatLog {
	if limit < 1 {
		limit = 1
	}
	return &chatLog{limit: limit}
}

func (l *chatLog) append(m *ChatMessage) {
	l.msgs = append(l.msgs, m)
	if len(l.msgs) > l.limit {
		l.msgs = l.msgs[len(l.msgs)-l.limit:]
	}
}

func (l *chatLog) find(id string) *ChatMessage {
	for i := len(l.msgs) - 1; i >= 0; i-- {
		if l.msgs[i].ID == id {
			return l.msgs[i]
		}
	}
	return nil
}

func (l *chatLog) size() int {
	return len(l.msgs)
}

// moderation is the per-(room,user) record of admin actions.
type moderation struct {
	warnings     int
	mutedUntil   time.Time
	blockedUntil time.Time
}

// canPostLocked applies mute/block state and the trailing-window rate
// limit, recording the post timestamp on success. Caller holds room.mu.
func (s *Server) canPostLocked(room *Room, userID string) error {
	now := s.clock.Now()

	if mod, ok := room.mods[userID]; ok {
		if now.Before(mod.blockedUntil) || now.Before(mod.mutedUntil) {
			return ErrMuted
		}
	}

	recent := room.lastPosts[userID][:0]
	for _, ts := range room.lastPosts[userID] {
		if now.Sub(ts) < s.cfg.chatWindow {
			recent = append(recent, ts)
		}
	}

	if len(recent) >= s.cfg.chatBurst {
		room.lastPosts[userID] = recent
		return ErrRateLimited
	}

	room.lastPosts[userID] = append(recent, now)
	return nil
}

// postMessage handles "chat message": append to the room's bounded log and
// fan out to everyone subscribed to the room.
func (s *Server) postMessage(code, userID, body string) (*ChatMessage, error) {
	room, ok := s.rooms.get(code)
	if !ok {
		return nil, ErrRoomNotFound
	}

	room.mu.Lock()
	defer room.mu.Unlock()

	m, ok := room.roster[userID]
	if !ok {
		return nil, ErrUserNotFound
	}

	if err := s.canPostLocked(room, userID); err != nil {
		return nil, err
	}

	msg := &ChatMessage{
		ID:         uuid.NewString(),
		RoomCode:   code,
		AuthorID:   userID,
		AuthorName: m.Name,
		Body:       body,
		Kind:       KindUser,
		CreatedAt:  s.clock.Now(),
	}
	room.chat.append(msg)
	room.lastActive = msg.CreatedAt

	s.gw.roomCast(code, evChatMessage, msg)

	return msg, nil
}

// postSystemLocked appends and broadcasts a server-originated message
// narrating a state change. Caller holds room.mu.
func (s *Server) postSystemLocked(room *Room, body, kind string) {
	msg := &ChatMessage{
		ID:         uuid.NewString(),
		RoomCode:   room.Code,
		AuthorName: "server",
		Body:       body,
		Kind:       kind,
		CreatedAt:  s.clock.Now(),
	}
	room.chat.append(msg)

	s.gw.roomCast(room.Code, evChatMessage, msg)
}

// postSystemMessage is the unlocked variant for callers outside an event
// handler.
func (s *Server) postSystemMessage(code, body, kind string) error {
	room, ok := s.rooms.get(code)
	if !ok {
		return ErrRoomNotFound
	}

	room.mu.Lock()
	defer room.mu.Unlock()

	s.postSystemLocked(room, body, kind)
	return nil
}

// reactToMessage toggles a user's emoji reaction on a logged message. A
// message that already fell off the bounded log is silently gone.
func (s *Server) reactToMessage(code, messageID, userID, emoji string) error {
	room, ok := s.rooms.get(code)
	if !ok {
		return ErrRoomNotFound
	}

	room.mu.Lock()
	defer room.mu.Unlock()

	if _, ok := room.roster[userID]; !ok {
		return ErrUserNotFound
	}

	msg := room.chat.find(messageID)
	if msg == nil {
		return nil
	}

	if msg.Reactions == nil {
		msg.Reactions = make(map[string][]string)
	}

	users := msg.Reactions[emoji]
	for i, id := range users {
		if id == userID {
			users = append(users[:i], users[i+1:]...)
			if len(users) == 0 {
				delete(msg.Reactions, emoji)
			} else {
				msg.Reactions[emoji] = users
			}
			s.gw.roomCast(code, evChatMessageUpdate, msg)
			return nil
		}
	}
	msg.Reactions[emoji] = append(users, userID)

	s.gw.roomCast(code, evChatMessageUpdate, msg)

	return nil
}

// moderateUser handles owner "chat moderate" actions: warn, mute, block,
// or flag a single message.
func (s *Server) moderateUser(d chatModerateData) error {
	room, ok := s.rooms.get(d.RoomCode)
	if !ok {
		return ErrRoomNotFound
	}

	room.mu.Lock()
	defer room.mu.Unlock()

	if d.UserID != room.OwnerID {
		return ErrPermissionDenied
	}

	if d.Action == "flag" {
		if msg := room.chat.find(d.MessageID); msg != nil {
			msg.Moderated = true
			s.gw.roomCast(d.RoomCode, evChatMessageUpdate, msg)
		}
		return nil
	}

	target, ok := room.roster[d.Target]
	if !ok {
		return ErrUserNotFound
	}

	mod, ok := room.mods[d.Target]
	if !ok {
		mod = &moderation{}
		room.mods[d.Target] = mod
	}

	expiry := time.Duration(d.Duration) * time.Second
	if expiry <= 0 {
		expiry = time.Minute
	}

	switch d.Action {
	case "warn":
		mod.warnings++
		s.postSystemLocked(room, target.Name+" has been warned", KindWarning)
	case "mute":
		mod.mutedUntil = s.clock.Now().Add(expiry)
		s.postSystemLocked(room, target.Name+" has been muted", KindAdmin)
	case "block":
		mod.blockedUntil = s.clock.Now().Add(expiry)
		s.postSystemLocked(room, target.Name+" has been blocked", KindAdmin)
	default:
		s.log.Debug().Str("action", d.Action).Msg("unknown moderation action ignored")
	}

	return nil
}
