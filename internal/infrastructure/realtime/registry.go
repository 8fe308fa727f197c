package realtime

import (
	"sync"
	"time"
)

// Identity is the ephemeral registration record for one live user.
// Exactly one entry exists per user; a later register for the same user
// overwrites the previous one.
type Identity struct {
	UserID      string
	Role        string
	DisplayName string
	ConnID      string
	ConnectedAt time.Time
}

// Registry is the authoritative in-process bookkeeping of live connections,
// registered identities, and room memberships. It is scoped to a single
// server process; the relay is its only mutator.
type Registry struct {
	mu         sync.RWMutex
	conns      map[string]*Connection            // connID -> connection
	identities map[string]Identity               // userID -> identity
	connUsers  map[string]string                 // connID -> userID (registered conns only)
	rooms      map[string]map[string]*Connection // roomID -> connID -> connection
	connRooms  map[string]map[string]struct{}    // connID -> set of roomIDs
}

// NewRegistry constructs an initialized Registry.
func NewRegistry() *Registry {
	return &Registry{
		conns:      make(map[string]*Connection),
		identities: make(map[string]Identity),
		connUsers:  make(map[string]string),
		rooms:      make(map[string]map[string]*Connection),
		connRooms:  make(map[string]map[string]struct{}),
	}
}

// Attach starts tracking a freshly-upgraded connection and launches its
// write loop. The connection carries no identity until Register is called.
func (r *Registry) Attach(conn *Connection) {
	r.mu.Lock()
	r.conns[conn.ID] = conn
	r.connRooms[conn.ID] = make(map[string]struct{})
	r.mu.Unlock()

	conn.Start()
}

// Register binds a user identity to the connection, overwriting any prior
// entry for the same user. The displaced connection (if any) is returned so
// the caller can close it; its later detach will not clobber the new entry.
func (r *Registry) Register(conn *Connection, userID, role, displayName string) (replaced *Connection) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.conns[conn.ID]; !ok {
		return nil
	}

	if prev, ok := r.identities[userID]; ok && prev.ConnID != conn.ID {
		replaced = r.conns[prev.ConnID]
		delete(r.connUsers, prev.ConnID)
	}

	// A connection re-registering as a different user releases its old identity.
	if oldUser, ok := r.connUsers[conn.ID]; ok && oldUser != userID {
		if cur, ok := r.identities[oldUser]; ok && cur.ConnID == conn.ID {
			delete(r.identities, oldUser)
		}
	}

	r.identities[userID] = Identity{
		UserID:      userID,
		Role:        role,
		DisplayName: displayName,
		ConnID:      conn.ID,
		ConnectedAt: time.Now().UTC(),
	}
	r.connUsers[conn.ID] = userID
	return replaced
}

// Detach removes the connection from all bookkeeping. The identity entry is
// removed only when the handle still matches the current registration, so a
// stale disconnect callback firing after a reconnect cannot clobber the new
// entry. The identity that was current for this handle is returned for
// offline-presence broadcasting.
func (r *Registry) Detach(conn *Connection) (Identity, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.conns[conn.ID]; !ok {
		return Identity{}, false
	}
	delete(r.conns, conn.ID)

	for roomID := range r.connRooms[conn.ID] {
		r.leaveLocked(roomID, conn.ID)
	}
	delete(r.connRooms, conn.ID)

	userID, registered := r.connUsers[conn.ID]
	if !registered {
		return Identity{}, false
	}
	delete(r.connUsers, conn.ID)

	id, ok := r.identities[userID]
	if ok && id.ConnID == conn.ID {
		delete(r.identities, userID)
		return id, true
	}
	return Identity{}, false
}

// Join adds the connection to the room, creating the member set if absent.
// Idempotent: joining a room twice is a no-op.
func (r *Registry) Join(roomID string, conn *Connection) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.conns[conn.ID]; !ok {
		return
	}

	room := r.rooms[roomID]
	if room == nil {
		room = make(map[string]*Connection)
		r.rooms[roomID] = room
	}
	room[conn.ID] = conn

	memberships := r.connRooms[conn.ID]
	if memberships == nil {
		memberships = make(map[string]struct{})
		r.connRooms[conn.ID] = memberships
	}
	memberships[roomID] = struct{}{}
}

// Leave removes the connection from the room. The room entry is deleted when
// its member set becomes empty.
func (r *Registry) Leave(roomID string, conn *Connection) {
	r.mu.Lock()
	r.leaveLocked(roomID, conn.ID)
	r.mu.Unlock()
}

// InRoom reports whether the connection is currently a member of the room.
func (r *Registry) InRoom(roomID string, connID string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.rooms[roomID][connID]
	return ok
}

// Identity returns the identity currently bound to the connection handle.
func (r *Registry) Identity(connID string) (Identity, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	userID, ok := r.connUsers[connID]
	if !ok {
		return Identity{}, false
	}
	id, ok := r.identities[userID]
	return id, ok
}

// Broadcast writes payload to all members of the room. excludeConnID, when
// non-empty, skips that handle. Returns the number of successful deliveries.
func (r *Registry) Broadcast(roomID string, payload []byte, excludeConnID string) int {
	r.mu.RLock()
	room := r.rooms[roomID]
	targets := make([]*Connection, 0, len(room))
	for id, conn := range room {
		if excludeConnID != "" && id == excludeConnID {
			continue
		}
		targets = append(targets, conn)
	}
	r.mu.RUnlock()

	delivered := 0
	for _, conn := range targets {
		if err := conn.Send(payload); err == nil {
			delivered++
		}
	}
	return delivered
}

// BroadcastToRole writes payload to room members whose registered role
// matches. Unregistered members are skipped.
func (r *Registry) BroadcastToRole(roomID string, role string, payload []byte) int {
	r.mu.RLock()
	var targets []*Connection
	for connID, conn := range r.rooms[roomID] {
		userID, ok := r.connUsers[connID]
		if !ok {
			continue
		}
		if id, ok := r.identities[userID]; ok && id.Role == role {
			targets = append(targets, conn)
		}
	}
	r.mu.RUnlock()

	delivered := 0
	for _, conn := range targets {
		if err := conn.Send(payload); err == nil {
			delivered++
		}
	}
	return delivered
}

// BroadcastAll writes payload to every live connection except excludeConnID.
func (r *Registry) BroadcastAll(payload []byte, excludeConnID string) int {
	r.mu.RLock()
	targets := make([]*Connection, 0, len(r.conns))
	for id, conn := range r.conns {
		if excludeConnID != "" && id == excludeConnID {
			continue
		}
		targets = append(targets, conn)
	}
	r.mu.RUnlock()

	delivered := 0
	for _, conn := range targets {
		if err := conn.Send(payload); err == nil {
			delivered++
		}
	}
	return delivered
}

// NotifyUser delivers payload to the current connection of the given user.
func (r *Registry) NotifyUser(userID string, payload []byte) bool {
	r.mu.RLock()
	id, ok := r.identities[userID]
	var conn *Connection
	if ok {
		conn = r.conns[id.ConnID]
	}
	r.mu.RUnlock()
	if conn == nil {
		return false
	}
	return conn.Send(payload) == nil
}

// FirstByRole returns the earliest-registered live connection whose identity
// carries the given role, or nil when none is live. Routing to "some live
// connection with role X" mirrors the source system; durable delivery is the
// caller's HTTP persistence write.
func (r *Registry) FirstByRole(role string) *Connection {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var best Identity
	found := false
	for _, id := range r.identities {
		if id.Role != role {
			continue
		}
		if !found || id.ConnectedAt.Before(best.ConnectedAt) {
			best = id
			found = true
		}
	}
	if !found {
		return nil
	}
	return r.conns[best.ConnID]
}

// Counts reports live connection, registered user, and room totals for the
// health endpoint.
func (r *Registry) Counts() (connections, users, rooms int) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.conns), len(r.identities), len(r.rooms)
}

// Close terminates all tracked connections and clears registry state.
func (r *Registry) Close() {
	r.mu.Lock()
	conns := make([]*Connection, 0, len(r.conns))
	for _, conn := range r.conns {
		conns = append(conns, conn)
	}
	r.conns = make(map[string]*Connection)
	r.identities = make(map[string]Identity)
	r.connUsers = make(map[string]string)
	r.rooms = make(map[string]map[string]*Connection)
	r.connRooms = make(map[string]map[string]struct{})
	r.mu.Unlock()

	for _, conn := range conns {
		conn.Close(1001, "registry shutdown")
	}
}

func (r *Registry) leaveLocked(roomID string, connID string) {
	room := r.rooms[roomID]
	if room == nil {
		return
	}
	delete(room, connID)
	if len(room) == 0 {
		delete(r.rooms, roomID)
	}
	if memberships, ok := r.connRooms[connID]; ok {
		delete(memberships, roomID)
	}
}
