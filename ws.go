package main

import (
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/julienschmidt/httprouter"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

type wsClient struct {
	conn         *websocket.Conn
	send         chan outbound
	connectionID string
}

// Gateway is the websocket adapter: it owns the live connections and the
// per-room channel subscriptions, and translates wire events into
// coordinator calls. All state-machine logic lives in Server; changing
// transports means replacing this file, nothing else.
type Gateway struct {
	mu      sync.Mutex
	clients map[string]*wsClient
	rooms   map[string]map[*wsClient]bool
	srv     *Server
}

func newGateway() *Gateway {
	return &Gateway{
		clients: make(map[string]*wsClient),
		rooms:   make(map[string]map[*wsClient]bool),
	}
}

// attach wires the coordinator in after construction; the two reference
// each other (Server broadcasts, Gateway dispatches).
func (g *Gateway) attach(srv *Server) {
	g.srv = srv
}

func newConnectionID() string {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		panic("crypto/rand failure: " + err.Error())
	}
	return hex.EncodeToString(buf)
}

func (g *Gateway) add(c *wsClient) {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.clients[c.connectionID] = c
}

func (g *Gateway) remove(c *wsClient) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if _, ok := g.clients[c.connectionID]; !ok {
		return
	}
	delete(g.clients, c.connectionID)
	for _, subs := range g.rooms {
		delete(subs, c)
	}
	close(c.send)
}

func (g *Gateway) subscribe(c *wsClient, roomCode string) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if _, ok := g.clients[c.connectionID]; !ok {
		return
	}
	subs, ok := g.rooms[roomCode]
	if !ok {
		subs = make(map[*wsClient]bool)
		g.rooms[roomCode] = subs
	}
	subs[c] = true
}

// push enqueues without blocking; a client that can't keep up is dropped,
// its read pump noticing on the closed connection. Caller holds g.mu.
func (g *Gateway) push(c *wsClient, msg outbound) {
	select {
	case c.send <- msg:
	default:
		delete(g.clients, c.connectionID)
		for _, subs := range g.rooms {
			delete(subs, c)
		}
		close(c.send)
	}
}

func (g *Gateway) cast(event string, data any) {
	g.mu.Lock()
	defer g.mu.Unlock()

	msg := outbound{Event: event, Data: data}
	for _, c := range g.clients {
		g.push(c, msg)
	}
}

func (g *Gateway) roomCast(roomCode, event string, data any) {
	g.mu.Lock()
	defer g.mu.Unlock()

	msg := outbound{Event: event, Data: data}
	for c := range g.rooms[roomCode] {
		g.push(c, msg)
	}
}

func (g *Gateway) direct(connectionID, event string, data any) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if c, ok := g.clients[connectionID]; ok {
		g.push(c, outbound{Event: event, Data: data})
	}
}

func (g *Gateway) dropRoom(roomCode string) {
	g.mu.Lock()
	defer g.mu.Unlock()

	delete(g.rooms, roomCode)
}

func serveWS(srv *Server, g *Gateway) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			srv.log.Error().Err(err).Str("client", realIP(r)).Msg("websocket upgrade failed")
			return
		}

		c := &wsClient{
			conn:         conn,
			send:         make(chan outbound, 16),
			connectionID: newConnectionID(),
		}
		g.add(c)

		srv.log.Debug().Str("conn", c.connectionID).Str("client", realIP(r)).Msg("client connected")

		go c.writePump()
		c.readPump(srv, g)
	}
}

func (c *wsClient) writePump() {
	defer c.conn.Close()

	for msg := range c.send {
		if err := c.conn.WriteJSON(msg); err != nil {
			return
		}
	}
}

func (c *wsClient) readPump(srv *Server, g *Gateway) {
	defer func() {
		g.remove(c)
		srv.onDisconnect(c.connectionID)
		_ = c.conn.Close()
	}()

	for {
		var env envelope
		if err := c.conn.ReadJSON(&env); err != nil {
			return
		}
		g.dispatch(c, env)
	}
}

// dispatch routes one inbound envelope. Permission and validation
// failures go back to the originating connection only; not-found and
// stale-state failures are logged no-ops per the event contract.
func (g *Gateway) dispatch(c *wsClient, env envelope) {
	srv := g.srv

	fail := func(err error) {
		if err == nil {
			return
		}
		switch {
		case errors.Is(err, ErrPermissionDenied),
			errors.Is(err, ErrDuplicateRoomCode),
			errors.Is(err, ErrEmptyCatalog),
			errors.Is(err, ErrMuted),
			errors.Is(err, ErrRateLimited),
			errors.Is(err, ErrRoomFull):
			g.direct(c.connectionID, evError, errorData{Event: env.Event, Message: err.Error()})
		default:
			srv.log.Debug().Err(err).Str("event", env.Event).Str("conn", c.connectionID).Msg("event dropped")
		}
	}

	switch env.Event {
	case evUserCreate:
		var d userCreateData
		if json.Unmarshal(env.Data, &d) != nil || d.UserID == "" {
			return
		}
		srv.createOrUpdateUser(d.UserID, d.DisplayName, c.connectionID)

	case evRoomCreate:
		var d roomCreateData
		if json.Unmarshal(env.Data, &d) != nil || d.Owner == "" {
			return
		}
		room, err := srv.createRoom(d)
		if err != nil {
			fail(err)
			return
		}
		g.subscribe(c, room.Code)
		if state, err := srv.roomSnapshot(room.Code); err == nil {
			g.direct(c.connectionID, evRoomUpdate, state)
		}

	case evRoomJoined:
		var d roomJoinData
		if json.Unmarshal(env.Data, &d) != nil {
			return
		}
		// Subscribe before joining so the joiner sees their own join
		// broadcast; undone if the join is rejected.
		g.subscribe(c, d.RoomCode)
		if err := srv.joinRoom(d.RoomCode, d.UserID); err != nil {
			g.mu.Lock()
			delete(g.rooms[d.RoomCode], c)
			g.mu.Unlock()
			fail(err)
		}

	case evGameStart:
		var d gameControlData
		if json.Unmarshal(env.Data, &d) != nil {
			return
		}
		fail(srv.startGame(d.RoomCode, d.UserID))

	case evNextImage:
		var d gameControlData
		if json.Unmarshal(env.Data, &d) != nil {
			return
		}
		fail(srv.advanceRound(d.RoomCode, -1, triggerManual, d.UserID))

	case evGameAnswer:
		var d gameAnswerData
		if json.Unmarshal(env.Data, &d) != nil {
			return
		}
		fail(srv.submitAnswer(d))

	case evGameReset:
		var d gameControlData
		if json.Unmarshal(env.Data, &d) != nil {
			return
		}
		fail(srv.resetGame(d.RoomCode, d.UserID))

	case evChatMessage:
		var d chatMessageData
		if json.Unmarshal(env.Data, &d) != nil || d.Body == "" {
			return
		}
		_, err := srv.postMessage(d.RoomCode, d.UserID, d.Body)
		fail(err)

	case evChatReact:
		var d chatReactData
		if json.Unmarshal(env.Data, &d) != nil {
			return
		}
		fail(srv.reactToMessage(d.RoomCode, d.MessageID, d.UserID, d.Emoji))

	case evChatModerate:
		var d chatModerateData
		if json.Unmarshal(env.Data, &d) != nil {
			return
		}
		fail(srv.moderateUser(d))

	case evGetRooms:
		g.direct(c.connectionID, evRooms, srv.lobbyRooms())

	case evGetRoom:
		var d gameControlData
		if json.Unmarshal(env.Data, &d) != nil {
			return
		}
		if state, err := srv.roomSnapshot(d.RoomCode); err == nil {
			g.direct(c.connectionID, evRoomUpdate, state)
		}

	case evGetUser:
		var d userCreateData
		if json.Unmarshal(env.Data, &d) != nil {
			return
		}
		if u, ok := srv.users.get(d.UserID); ok {
			g.direct(c.connectionID, evUser, userCreateData{UserID: u.ID, DisplayName: u.DisplayName})
		}

	default:
		// ignore unknown types
	}
}
