package main

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

type recordedEvent struct {
	room  string
	conn  string
	event string
	data  any
}

// castRecorder stands in for the websocket gateway so tests can assert on
// broadcasts. Timer callbacks record from their own goroutines, hence the
// lock.
type castRecorder struct {
	mu      sync.Mutex
	events  []recordedEvent
	dropped []string
}

func (c *castRecorder) cast(event string, data any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, recordedEvent{event: event, data: data})
}

func (c *castRecorder) roomCast(roomCode, event string, data any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, recordedEvent{room: roomCode, event: event, data: data})
}

func (c *castRecorder) direct(connectionID, event string, data any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, recordedEvent{conn: connectionID, event: event, data: data})
}

func (c *castRecorder) dropRoom(roomCode string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.dropped = append(c.dropped, roomCode)
}

func (c *castRecorder) count(event string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, e := range c.events {
		if e.event == event {
			n++
		}
	}
	return n
}

func (c *castRecorder) last(event string) (recordedEvent, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i := len(c.events) - 1; i >= 0; i-- {
		if c.events[i].event == event {
			return c.events[i], true
		}
	}
	return recordedEvent{}, false
}

func (c *castRecorder) droppedRooms() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.dropped...)
}

func testConfig() *Config {
	return &Config{
		chatBurst:   5,
		chatHistory: 50,
		chatWindow:  time.Minute,
		gracePeriod: 10 * time.Second,
		roomSize:    16,
		roundPause:  0,
		port:        8080,
	}
}

// testCatalog builds n identical rounds so tests don't depend on the
// shuffle order of the game-start snapshot.
func testCatalog(n int) *Catalog {
	rounds := make([]Round, n)
	for i := range rounds {
		rounds[i] = Round{
			Image:   fmt.Sprintf("img-%d.jpg", i),
			Answers: []string{"Legend of Zelda"},
			Lat:     10,
			Lng:     20,
		}
	}
	return &Catalog{rounds: rounds}
}

func testServer(t *testing.T, cfg *Config, cat *Catalog) (*Server, *castRecorder, *clockwork.FakeClock) {
	t.Helper()

	if cfg == nil {
		cfg = testConfig()
	}
	rec := &castRecorder{}
	clock := clockwork.NewFakeClock()

	return newServer(cfg, zerolog.Nop(), clock, cat, rec), rec, clock
}

func waitFor(t *testing.T, cond func() bool, msg string) {
	t.Helper()
	require.Eventually(t, cond, 2*time.Second, time.Millisecond, msg)
}

// makeRoom seeds a user and a room owned by them, returning the code.
func makeRoom(t *testing.T, srv *Server, owner string, d roomCreateData) string {
	t.Helper()

	srv.createOrUpdateUser(owner, owner, "conn-"+owner)
	d.Owner = owner
	room, err := srv.createRoom(d)
	require.NoError(t, err)

	return room.Code
}

func joinAs(t *testing.T, srv *Server, code, userID string) {
	t.Helper()

	srv.createOrUpdateUser(userID, userID, "conn-"+userID)
	require.NoError(t, srv.joinRoom(code, userID))
}

func roomStatus(t *testing.T, srv *Server, code string) (RoomStatus, int) {
	t.Helper()

	room, ok := srv.rooms.get(code)
	require.True(t, ok, "room %s not found", code)

	room.mu.Lock()
	defer room.mu.Unlock()
	return room.Status, room.Round
}

func points(t *testing.T, srv *Server, code, userID string) int {
	t.Helper()

	room, ok := srv.rooms.get(code)
	require.True(t, ok, "room %s not found", code)

	room.mu.Lock()
	defer room.mu.Unlock()
	m, ok := room.roster[userID]
	require.True(t, ok, "user %s not in roster", userID)
	return m.Points
}
