package realtime

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

// connPair is one live server-side Connection plus the client socket that
// can observe what the registry delivers to it.
type connPair struct {
	conn   *Connection
	client *websocket.Conn
}

type connHarness struct {
	srv    *httptest.Server
	accept chan *websocket.Conn
}

func newConnHarness(t *testing.T) *connHarness {
	t.Helper()
	h := &connHarness{accept: make(chan *websocket.Conn, 16)}
	upgrader := websocket.Upgrader{}
	h.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ws, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		h.accept <- ws
		// Hold the handler open; reads are drained so pings are answered.
		for {
			if _, _, err := ws.ReadMessage(); err != nil {
				return
			}
		}
	}))
	t.Cleanup(h.srv.Close)
	return h
}

func (h *connHarness) dial(t *testing.T) connPair {
	t.Helper()
	url := "ws" + strings.TrimPrefix(h.srv.URL, "http")
	client, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { _ = client.Close() })

	select {
	case ws := <-h.accept:
		return connPair{conn: NewConnection(ws), client: client}
	case <-time.After(2 * time.Second):
		t.Fatal("server never accepted the connection")
		return connPair{}
	}
}

func (p connPair) read(t *testing.T) []byte {
	t.Helper()
	_ = p.client.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := p.client.ReadMessage()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	return data
}

func TestRegisterOverwritesPreviousEntry(t *testing.T) {
	h := newConnHarness(t)
	reg := NewRegistry()

	first := h.dial(t)
	second := h.dial(t)
	reg.Attach(first.conn)
	reg.Attach(second.conn)

	if replaced := reg.Register(first.conn, "corp-1", "CORPORATE", "Acme"); replaced != nil {
		t.Fatalf("first register should displace nothing, got %s", replaced.ID)
	}
	replaced := reg.Register(second.conn, "corp-1", "CORPORATE", "Acme")
	if replaced == nil || replaced.ID != first.conn.ID {
		t.Fatalf("second register should displace the first connection")
	}

	id, ok := reg.Identity(second.conn.ID)
	if !ok || id.UserID != "corp-1" || id.ConnID != second.conn.ID {
		t.Fatalf("identity should point at the newest handle, got %+v", id)
	}
	if _, ok := reg.Identity(first.conn.ID); ok {
		t.Fatal("displaced handle should no longer resolve an identity")
	}

	_, users, _ := reg.Counts()
	if users != 1 {
		t.Fatalf("want exactly one registered user, got %d", users)
	}
}

func TestStaleDisconnectDoesNotClobberReconnect(t *testing.T) {
	h := newConnHarness(t)
	reg := NewRegistry()

	old := h.dial(t)
	fresh := h.dial(t)
	reg.Attach(old.conn)
	reg.Register(old.conn, "ngo-1", "NGO", "Helping Hands")

	reg.Attach(fresh.conn)
	reg.Register(fresh.conn, "ngo-1", "NGO", "Helping Hands")

	// The old handle's disconnect callback fires after the reconnect.
	if _, wasCurrent := reg.Detach(old.conn); wasCurrent {
		t.Fatal("stale detach must not report the identity as current")
	}

	id, ok := reg.Identity(fresh.conn.ID)
	if !ok || id.ConnID != fresh.conn.ID {
		t.Fatal("reconnected identity was clobbered by the stale disconnect")
	}
}

func TestDisconnectPurgesRoomMemberships(t *testing.T) {
	h := newConnHarness(t)
	reg := NewRegistry()

	members := make([]connPair, 3)
	for i := range members {
		members[i] = h.dial(t)
		reg.Attach(members[i].conn)
		reg.Join("room-42", members[i].conn)
	}

	_, _, rooms := reg.Counts()
	if rooms != 1 {
		t.Fatalf("want one room, got %d", rooms)
	}

	for _, m := range members {
		reg.Detach(m.conn)
	}

	_, _, rooms = reg.Counts()
	if rooms != 0 {
		t.Fatal("room entry must be deleted once every member disconnects")
	}
}

func TestJoinIsIdempotent(t *testing.T) {
	h := newConnHarness(t)
	reg := NewRegistry()

	p := h.dial(t)
	reg.Attach(p.conn)
	reg.Join("room-1", p.conn)
	reg.Join("room-1", p.conn)

	if n := reg.Broadcast("room-1", []byte(`{"type":"ping"}`), ""); n != 1 {
		t.Fatalf("double join must not duplicate delivery, delivered %d", n)
	}
	p.read(t)
}

func TestLeaveDeletesEmptyRoom(t *testing.T) {
	h := newConnHarness(t)
	reg := NewRegistry()

	p := h.dial(t)
	reg.Attach(p.conn)
	reg.Join("room-1", p.conn)
	reg.Leave("room-1", p.conn)

	_, _, rooms := reg.Counts()
	if rooms != 0 {
		t.Fatal("empty room entry should be deleted")
	}
}

func TestBroadcastExcludesSender(t *testing.T) {
	h := newConnHarness(t)
	reg := NewRegistry()

	a := h.dial(t)
	b := h.dial(t)
	reg.Attach(a.conn)
	reg.Attach(b.conn)
	reg.Join("room-1", a.conn)
	reg.Join("room-1", b.conn)

	if n := reg.Broadcast("room-1", []byte(`{"type":"user_typing"}`), a.conn.ID); n != 1 {
		t.Fatalf("want delivery to the other member only, delivered %d", n)
	}
	if got := string(b.read(t)); got != `{"type":"user_typing"}` {
		t.Fatalf("unexpected payload %q", got)
	}
}

func TestBroadcastToRole(t *testing.T) {
	h := newConnHarness(t)
	reg := NewRegistry()

	corp := h.dial(t)
	ngo := h.dial(t)
	reg.Attach(corp.conn)
	reg.Attach(ngo.conn)
	reg.Register(corp.conn, "corp-1", "CORPORATE", "Acme")
	reg.Register(ngo.conn, "ngo-1", "NGO", "Helping Hands")
	reg.Join("room-1", corp.conn)
	reg.Join("room-1", ngo.conn)

	if n := reg.BroadcastToRole("room-1", "NGO", []byte(`{"type":"notification"}`)); n != 1 {
		t.Fatalf("want one NGO delivery, got %d", n)
	}
	ngo.read(t)
}

func TestFirstByRole(t *testing.T) {
	h := newConnHarness(t)
	reg := NewRegistry()

	if c := reg.FirstByRole("NGO"); c != nil {
		t.Fatal("empty registry must return nil")
	}

	first := h.dial(t)
	second := h.dial(t)
	reg.Attach(first.conn)
	reg.Register(first.conn, "ngo-1", "NGO", "One")
	time.Sleep(5 * time.Millisecond)
	reg.Attach(second.conn)
	reg.Register(second.conn, "ngo-2", "NGO", "Two")

	got := reg.FirstByRole("NGO")
	if got == nil || got.ID != first.conn.ID {
		t.Fatal("want the earliest-registered NGO connection")
	}

	if c := reg.FirstByRole("ADMIN"); c != nil {
		t.Fatal("no admin is live, want nil")
	}
}

func TestNotifyUser(t *testing.T) {
	h := newConnHarness(t)
	reg := NewRegistry()

	p := h.dial(t)
	reg.Attach(p.conn)
	reg.Register(p.conn, "corp-1", "CORPORATE", "Acme")

	if !reg.NotifyUser("corp-1", []byte(`{"type":"notification"}`)) {
		t.Fatal("delivery to a live user should succeed")
	}
	p.read(t)

	if reg.NotifyUser("ghost", []byte(`{}`)) {
		t.Fatal("delivery to an unknown user should report failure")
	}
}
