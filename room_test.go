package main

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCreateRoomSeedsOwner(t *testing.T) {
	srv, rec, _ := testServer(t, nil, testCatalog(3))

	code := makeRoom(t, srv, "alice", roomCreateData{Name: "Friday night"})
	require.Len(t, code, 4)

	room, ok := srv.rooms.get(code)
	require.True(t, ok)
	require.Equal(t, StatusWaiting, room.Status)
	require.Equal(t, ModeClassic, room.Mode)
	require.Equal(t, defaultRoundSeconds, room.Duration)

	m, ok := room.roster["alice"]
	require.True(t, ok, "owner must be in the roster from creation")
	require.Equal(t, RoleAdmin, m.Role)
	require.True(t, m.Alive)

	require.Equal(t, 1, rec.count(evRooms), "lobby must hear about the new room")
}

func TestCreateRoomRejectsDuplicateCode(t *testing.T) {
	srv, _, _ := testServer(t, nil, testCatalog(3))

	srv.createOrUpdateUser("alice", "alice", "c1")
	_, err := srv.createRoom(roomCreateData{Code: "ABCD", Owner: "alice"})
	require.NoError(t, err)

	_, err = srv.createRoom(roomCreateData{Code: "ABCD", Owner: "alice"})
	require.ErrorIs(t, err, ErrDuplicateRoomCode)
}

func TestCreateRoomUnknownOwner(t *testing.T) {
	srv, _, _ := testServer(t, nil, testCatalog(3))

	_, err := srv.createRoom(roomCreateData{Owner: "ghost"})
	require.ErrorIs(t, err, ErrUserNotFound)
}

func TestJoinRoomUnknownRoom(t *testing.T) {
	srv, _, _ := testServer(t, nil, testCatalog(3))

	srv.createOrUpdateUser("bob", "bob", "c1")
	require.ErrorIs(t, srv.joinRoom("ZZZZ", "bob"), ErrRoomNotFound)
}

func TestJoinRoomUnknownUser(t *testing.T) {
	srv, _, _ := testServer(t, nil, testCatalog(3))

	code := makeRoom(t, srv, "alice", roomCreateData{})
	require.ErrorIs(t, srv.joinRoom(code, "ghost"), ErrUserNotFound)
}

func TestJoinRoomTwiceDoesNotDuplicate(t *testing.T) {
	srv, _, _ := testServer(t, nil, testCatalog(3))

	code := makeRoom(t, srv, "alice", roomCreateData{})
	joinAs(t, srv, code, "bob")
	require.NoError(t, srv.joinRoom(code, "bob"))

	room, _ := srv.rooms.get(code)
	room.mu.Lock()
	defer room.mu.Unlock()
	require.Len(t, room.roster, 2)
}

func TestLobbyMarksPrivateRooms(t *testing.T) {
	srv, _, _ := testServer(t, nil, testCatalog(3))

	makeRoom(t, srv, "alice", roomCreateData{Code: "PUBL", Name: "open table"})
	makeRoom(t, srv, "bob", roomCreateData{Code: "PRIV", Name: "invite only", Privacy: "private"})

	lobby := srv.lobbyRooms()
	require.Len(t, lobby, 2, "private rooms are listed, not hidden")

	flags := make(map[string]bool, len(lobby))
	for _, r := range lobby {
		flags[r.Code] = r.Private
	}
	require.False(t, flags["PUBL"])
	require.True(t, flags["PRIV"], "private rooms carry the marker")

	// Private rooms stay joinable by code.
	joinAs(t, srv, "PRIV", "carol")
}

func TestJoinRoomAtCapacity(t *testing.T) {
	cfg := testConfig()
	cfg.roomSize = 2
	srv, _, _ := testServer(t, cfg, testCatalog(3))

	code := makeRoom(t, srv, "alice", roomCreateData{})
	joinAs(t, srv, code, "bob")

	srv.createOrUpdateUser("carol", "carol", "conn-carol")
	require.ErrorIs(t, srv.joinRoom(code, "carol"), ErrRoomFull)

	room, _ := srv.rooms.get(code)
	room.mu.Lock()
	require.Len(t, room.roster, 2, "rejected join must not touch the roster")
	room.mu.Unlock()

	// An existing member rejoining doesn't count against capacity.
	srv.onDisconnect("conn-bob")
	srv.createOrUpdateUser("bob", "bob", "conn-bob-2")
	require.NoError(t, srv.joinRoom(code, "bob"))
}

func TestRoomSnapshot(t *testing.T) {
	srv, _, _ := testServer(t, nil, testCatalog(3))

	code := makeRoom(t, srv, "alice", roomCreateData{Name: "snap", Mode: ModeMap, Duration: 30})
	joinAs(t, srv, code, "bob")

	state, err := srv.roomSnapshot(code)
	require.NoError(t, err)
	require.Equal(t, code, state.Code)
	require.Equal(t, ModeMap, state.Mode)
	require.Equal(t, 30, state.Duration)
	require.Len(t, state.Players, 2)

	_, err = srv.roomSnapshot("ZZZZ")
	require.ErrorIs(t, err, ErrRoomNotFound)
}

func TestGeneratedRoomCodesAreWellFormed(t *testing.T) {
	store := newRoomStore()

	seen := make(map[string]bool)
	for i := 0; i < 50; i++ {
		code := store.newRoomCode()
		require.Len(t, code, 4)
		for _, c := range code {
			require.NotContains(t, "IO01", string(c), "ambiguous characters are excluded")
		}
		seen[code] = true
	}
	require.Greater(t, len(seen), 1)
}
