// Package client is the Go counterpart of the browser-side connection
// manager: one persistent relay connection per Manager, automatic
// reconnection with re-registration, and a subscription API that is safe to
// call before the connection exists.
package client

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

// State describes the manager's connection lifecycle.
type State string

const (
	StateDisconnected State = "disconnected"
	StateConnecting   State = "connecting"
	StateConnected    State = "connected"
	StateReconnecting State = "reconnecting"
)

// Handler receives the raw JSON frame for a subscribed event type.
type Handler func(raw json.RawMessage)

// Subscription identifies one registered handler so it can be removed.
type Subscription struct {
	event string
	fn    Handler
}

// Options tune connection behavior. Zero values get sane defaults.
type Options struct {
	MaxRetries    int           // reconnection attempts before giving up
	RetryDelay    time.Duration // fixed delay between attempts
	DialTimeout   time.Duration
	Logger        *zerolog.Logger
	OnReconnect   func() // called after a successful automatic reconnect; rooms are NOT rejoined automatically
	OnStateChange func(State)
}

func (o *Options) defaults() {
	if o.MaxRetries <= 0 {
		o.MaxRetries = 5
	}
	if o.RetryDelay <= 0 {
		o.RetryDelay = 3 * time.Second
	}
	if o.DialTimeout <= 0 {
		o.DialTimeout = 20 * time.Second
	}
}

// Manager owns exactly one underlying relay connection. All emit helpers are
// fire-and-forget: results are observed via subsequently relayed events, not
// return values, and emitting while disconnected is a logged no-op.
type Manager struct {
	url  string
	opts Options
	log  zerolog.Logger

	mu        sync.Mutex
	state     State
	conn      *websocket.Conn
	listeners map[string][]*Subscription
	pending   []*Subscription // FIFO of subscriptions requested before connect
	userID    string
	userRole  string
	userName  string
	lastErr   error
	gen       int // bumped on every (re)connect; stale read loops check it

	writeMu sync.Mutex
}

// New constructs a Manager for the given relay websocket URL.
func New(url string, opts Options) *Manager {
	opts.defaults()
	var log zerolog.Logger
	if opts.Logger != nil {
		log = *opts.Logger
	} else {
		log = zerolog.Nop()
	}
	return &Manager{
		url:       url,
		opts:      opts,
		log:       log,
		state:     StateDisconnected,
		listeners: make(map[string][]*Subscription),
	}
}

// Connect establishes the connection and registers the identity. Calling it
// again while connected is a no-op; the manager never holds two underlying
// connections. The initial dial fails fast with an error; the bounded retry
// policy only applies once an established connection drops.
func (m *Manager) Connect(userID, role, name string) error {
	m.mu.Lock()
	if m.state == StateConnected || m.state == StateConnecting || m.state == StateReconnecting {
		m.mu.Unlock()
		return nil
	}
	m.state = StateConnecting
	m.userID, m.userRole, m.userName = userID, role, name
	gen := m.gen
	m.mu.Unlock()
	m.notifyState(StateConnecting)

	conn, err := m.dial()
	if err != nil {
		m.mu.Lock()
		if m.state == StateConnecting {
			m.state = StateDisconnected
			m.lastErr = err
		}
		m.mu.Unlock()
		m.notifyState(StateDisconnected)
		return err
	}

	// Disconnect may have run while the dial was in flight; attach then
	// abandons the connection instead of resurrecting the session.
	m.attach(conn, gen)
	return nil
}

// On subscribes fn to an event type. Before the connection exists the
// subscription is queued, not dropped; queued subscriptions are attached in
// request order once the connection is established.
func (m *Manager) On(event string, fn Handler) *Subscription {
	sub := &Subscription{event: event, fn: fn}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state == StateConnected {
		m.listeners[event] = append(m.listeners[event], sub)
	} else {
		m.pending = append(m.pending, sub)
	}
	return sub
}

// Off removes a subscription. Components must call Off for every On they
// registered before going away, or the callback leaks against a connection
// that outlives them.
func (m *Manager) Off(sub *Subscription) {
	if sub == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	subs := m.listeners[sub.event]
	for i, s := range subs {
		if s == sub {
			m.listeners[sub.event] = append(subs[:i], subs[i+1:]...)
			return
		}
	}
	for i, s := range m.pending {
		if s == sub {
			m.pending = append(m.pending[:i], m.pending[i+1:]...)
			return
		}
	}
}

// Disconnect tears the connection down and clears all listener bookkeeping.
// Idempotent on an already-disconnected manager.
func (m *Manager) Disconnect() {
	m.mu.Lock()
	conn := m.conn
	m.conn = nil
	m.state = StateDisconnected
	m.gen++
	m.listeners = make(map[string][]*Subscription)
	m.pending = nil
	m.mu.Unlock()

	if conn != nil {
		_ = conn.Close()
	}
	m.notifyState(StateDisconnected)
}

// State reports the current connection state.
func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Err returns the last connection error, set when reconnection is exhausted.
func (m *Manager) Err() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastErr
}

// Emit helpers. Outbound actions have no meaning without a live session, so
// unlike listener registration they are never queued.

func (m *Manager) SendMessage(roomID, message, senderID, senderName, senderRole string) {
	m.emit("send_message", map[string]any{
		"room_id":     roomID,
		"message":     message,
		"sender_id":   senderID,
		"sender_name": senderName,
		"sender_role": senderRole,
	})
}

func (m *Manager) JoinRoom(roomID, userID string) {
	m.emit("join_room", map[string]any{"room_id": roomID, "user_id": userID})
}

func (m *Manager) LeaveRoom(roomID string) {
	m.emit("leave_room", map[string]any{"room_id": roomID})
}

func (m *Manager) SendTyping(roomID, userName string) {
	m.emit("typing", map[string]any{"room_id": roomID, "user_name": userName})
}

func (m *Manager) StopTyping(roomID, userName string) {
	m.emit("stop_typing", map[string]any{"room_id": roomID, "user_name": userName})
}

func (m *Manager) MarkAsRead(roomID, userID string, messageIDs []string) {
	m.emit("mark_read", map[string]any{"room_id": roomID, "user_id": userID, "message_ids": messageIDs})
}

func (m *Manager) RequestDocument(ngoID, proposalID, documentType, orgName string) {
	m.emit("request_document", map[string]any{
		"ngo_id": ngoID, "proposal_id": proposalID, "document_type": documentType, "org_name": orgName,
	})
}

func (m *Manager) NotifyDocumentUpload(corporateID, proposalID, documentName, orgName string) {
	m.emit("document_uploaded", map[string]any{
		"corporate_id": corporateID, "proposal_id": proposalID, "document_name": documentName, "org_name": orgName,
	})
}

func (m *Manager) RequestTrancheRelease(corporateID, proposalID, trancheID, orgName string) {
	m.emit("tranche_release_request", map[string]any{
		"corporate_id": corporateID, "proposal_id": proposalID, "tranche_id": trancheID, "org_name": orgName,
	})
}

func (m *Manager) emit(event string, fields map[string]any) {
	m.mu.Lock()
	conn := m.conn
	connected := m.state == StateConnected
	m.mu.Unlock()

	if !connected || conn == nil {
		m.log.Error().Str("event", event).Msg("emit while disconnected, dropping")
		return
	}

	fields["type"] = event
	payload, err := json.Marshal(fields)
	if err != nil {
		m.log.Error().Err(err).Str("event", event).Msg("emit encode failed")
		return
	}

	m.writeMu.Lock()
	err = conn.WriteMessage(websocket.TextMessage, payload)
	m.writeMu.Unlock()
	if err != nil {
		m.log.Error().Err(err).Str("event", event).Msg("emit write failed")
	}
}

func (m *Manager) dial() (*websocket.Conn, error) {
	dialer := websocket.Dialer{HandshakeTimeout: m.opts.DialTimeout}
	conn, _, err := dialer.Dial(m.url, nil)
	return conn, err
}

// attach installs the connection, flushes queued subscriptions in FIFO
// order, re-emits register, and starts the read loop. gen is the caller's
// snapshot from before its dial: when it no longer matches, or the manager
// was disconnected in the meantime, the connection is closed and discarded
// rather than installed.
func (m *Manager) attach(conn *websocket.Conn, gen int) bool {
	m.mu.Lock()
	if gen != m.gen || m.state == StateDisconnected {
		m.mu.Unlock()
		_ = conn.Close()
		return false
	}
	m.conn = conn
	m.state = StateConnected
	m.gen++
	next := m.gen
	for _, sub := range m.pending {
		m.listeners[sub.event] = append(m.listeners[sub.event], sub)
	}
	m.pending = nil
	m.mu.Unlock()
	m.notifyState(StateConnected)

	m.register()
	go m.readLoop(conn, next)
	return true
}

func (m *Manager) register() {
	m.mu.Lock()
	userID, role, name := m.userID, m.userRole, m.userName
	m.mu.Unlock()
	m.emit("register", map[string]any{"user_id": userID, "user_role": role, "user_name": name})
}

func (m *Manager) readLoop(conn *websocket.Conn, gen int) {
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			m.mu.Lock()
			stale := gen != m.gen || m.state == StateDisconnected
			m.mu.Unlock()
			if stale {
				return
			}
			m.reconnect(gen)
			return
		}
		m.dispatch(data)
	}
}

func (m *Manager) dispatch(data []byte) {
	var head struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &head); err != nil || head.Type == "" {
		return
	}

	m.mu.Lock()
	subs := make([]*Subscription, len(m.listeners[head.Type]))
	copy(subs, m.listeners[head.Type])
	m.mu.Unlock()

	for _, sub := range subs {
		sub.fn(data)
	}
}

// reconnect serializes recovery: bounded attempt count, fixed delay,
// re-register on success. Room memberships are not restored; callers rejoin
// via OnReconnect.
func (m *Manager) reconnect(gen int) {
	m.mu.Lock()
	if gen != m.gen || m.state == StateDisconnected {
		m.mu.Unlock()
		return
	}
	m.state = StateReconnecting
	m.conn = nil
	m.mu.Unlock()
	m.notifyState(StateReconnecting)

	for attempt := 1; attempt <= m.opts.MaxRetries; attempt++ {
		time.Sleep(m.opts.RetryDelay)

		m.mu.Lock()
		if m.state == StateDisconnected {
			m.mu.Unlock()
			return
		}
		m.mu.Unlock()

		conn, err := m.dial()
		if err != nil {
			m.log.Warn().Err(err).Int("attempt", attempt).Msg("reconnect failed")
			continue
		}

		if !m.attach(conn, gen) {
			return
		}
		if m.opts.OnReconnect != nil {
			m.opts.OnReconnect()
		}
		return
	}

	m.mu.Lock()
	m.state = StateDisconnected
	m.lastErr = errReconnectExhausted
	m.mu.Unlock()
	m.notifyState(StateDisconnected)
	m.log.Error().Int("attempts", m.opts.MaxRetries).Msg("reconnect attempts exhausted")
}

func (m *Manager) notifyState(s State) {
	if m.opts.OnStateChange != nil {
		m.opts.OnStateChange(s)
	}
}

type reconnectError string

func (e reconnectError) Error() string { return string(e) }

const errReconnectExhausted = reconnectError("client: reconnect attempts exhausted")
