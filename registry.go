package main

import "sync"

// User is identity-scoped state: who a client claims to be, independent of
// any room. The connection handle is overwritten on every (re)connect;
// stale handles are never queued.
type User struct {
	ID           string
	DisplayName  string
	ConnectionID string
}

// Registry maps stable client-supplied user ids to display names and live
// connection handles. Lookups by connection id are indexed so disconnect
// handling doesn't scan the whole registry.
type Registry struct {
	mu     sync.RWMutex
	users  map[string]*User
	byConn map[string]string
}

func newRegistry() *Registry {
	return &Registry{
		users:  make(map[string]*User),
		byConn: make(map[string]string),
	}
}

// upsert creates or updates a user. Last writer wins on both display name
// and connection id.
func (r *Registry) upsert(id, displayName, connectionID string) User {
	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.users[id]
	if !ok {
		u = &User{ID: id}
		r.users[id] = u
	}

	if u.ConnectionID != "" && u.ConnectionID != connectionID {
		delete(r.byConn, u.ConnectionID)
	}
	if displayName != "" {
		u.DisplayName = displayName
	}
	u.ConnectionID = connectionID
	if connectionID != "" {
		r.byConn[connectionID] = id
	}

	return *u
}

func (r *Registry) get(id string) (User, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	u, ok := r.users[id]
	if !ok {
		return User{}, false
	}
	return *u, true
}

func (r *Registry) byConnection(connectionID string) (User, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	id, ok := r.byConn[connectionID]
	if !ok {
		return User{}, false
	}
	u, ok := r.users[id]
	if !ok {
		return User{}, false
	}
	return *u, true
}

// disconnect resolves a dropped connection to its user and clears the
// handle. The user entry itself stays until dropIfIdle decides otherwise.
func (r *Registry) disconnect(connectionID string) (User, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	id, ok := r.byConn[connectionID]
	if !ok {
		return User{}, false
	}
	delete(r.byConn, connectionID)

	u := r.users[id]
	u.ConnectionID = ""

	return *u, true
}

// dropIfIdle removes a user that has no live connection. A user that
// reconnected since the caller last looked is left alone.
func (r *Registry) dropIfIdle(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if u, ok := r.users[id]; ok && u.ConnectionID == "" {
		delete(r.users, id)
	}
}
