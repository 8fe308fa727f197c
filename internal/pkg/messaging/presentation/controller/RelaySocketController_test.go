package controller

import (
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"csrbridge/internal/infrastructure/realtime"
)

type relayHarness struct {
	srv *httptest.Server
	reg *realtime.Registry
}

func newRelayHarness(t *testing.T) *relayHarness {
	t.Helper()
	gin.SetMode(gin.TestMode)

	reg := realtime.NewRegistry()
	r := gin.New()
	r.GET("/ws", NewRelaySocketController(reg).Handle())

	srv := httptest.NewServer(r)
	t.Cleanup(func() {
		srv.Close()
		reg.Close()
	})
	return &relayHarness{srv: srv, reg: reg}
}

type relayClient struct {
	ws *websocket.Conn
}

// dial opens a relay session and consumes the connected handshake.
func (h *relayHarness) dial(t *testing.T) *relayClient {
	t.Helper()
	url := "ws" + strings.TrimPrefix(h.srv.URL, "http") + "/ws"
	ws, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { _ = ws.Close() })

	c := &relayClient{ws: ws}
	c.waitFor(t, "connected")
	return c
}

// register performs the identity handshake and drains the resulting presence
// broadcast so later assertions start from a quiet socket.
func (h *relayHarness) register(t *testing.T, c *relayClient, userID, role, name string) {
	t.Helper()
	c.emit(t, map[string]any{"type": "register", "user_id": userID, "user_role": role, "user_name": name})
	c.waitFor(t, "registered")
	status := c.waitFor(t, "user_status")
	if status["user_id"] != userID || status["status"] != "online" {
		t.Fatalf("want own online presence, got %v", status)
	}
}

func (c *relayClient) emit(t *testing.T, v map[string]any) {
	t.Helper()
	if err := c.ws.WriteJSON(v); err != nil {
		t.Fatalf("emit: %v", err)
	}
}

func (c *relayClient) next(t *testing.T) map[string]any {
	t.Helper()
	_ = c.ws.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := c.ws.ReadMessage()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	var frame map[string]any
	if err := json.Unmarshal(data, &frame); err != nil {
		t.Fatalf("decode %q: %v", data, err)
	}
	return frame
}

// waitFor skips unrelated frames (presence from other tests' actors, acks)
// until one of the wanted type arrives.
func (c *relayClient) waitFor(t *testing.T, frameType string) map[string]any {
	t.Helper()
	for i := 0; i < 20; i++ {
		frame := c.next(t)
		if frame["type"] == frameType {
			return frame
		}
	}
	t.Fatalf("no %q frame within 20 reads", frameType)
	return nil
}

// expectSilence asserts nothing is delivered within the window.
func (c *relayClient) expectSilence(t *testing.T, d time.Duration) {
	t.Helper()
	_ = c.ws.SetReadDeadline(time.Now().Add(d))
	if _, data, err := c.ws.ReadMessage(); err == nil {
		t.Fatalf("expected silence, got %s", data)
	}
}

func waitForCounts(t *testing.T, reg *realtime.Registry, conns, users, rooms int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		c, u, r := reg.Counts()
		if c == conns && u == users && r == rooms {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	c, u, r := reg.Counts()
	t.Fatalf("counts never reached (%d,%d,%d), last (%d,%d,%d)", conns, users, rooms, c, u, r)
}

func TestChatMessageReachesRoomAndNotifiesCounterpart(t *testing.T) {
	h := newRelayHarness(t)

	corp := h.dial(t)
	ngo := h.dial(t)
	h.register(t, corp, "corp-1", "CORPORATE", "Acme Corp")
	h.register(t, ngo, "ngo-1", "NGO", "Helping Hands")

	corp.emit(t, map[string]any{"type": "join_room", "room_id": "room-42"})
	corp.waitFor(t, "room_joined")
	ngo.emit(t, map[string]any{"type": "join_room", "room_id": "room-42"})
	ngo.waitFor(t, "room_joined")
	joined := corp.waitFor(t, "user_joined")
	if joined["user_id"] != "ngo-1" {
		t.Fatalf("want ngo-1 join event, got %v", joined)
	}

	corp.emit(t, map[string]any{
		"type": "send_message", "room_id": "room-42", "message": "Hello",
		"sender_id": "corp-1", "sender_name": "Acme Corp", "sender_role": "CORPORATE",
	})

	got := ngo.waitFor(t, "new_message")
	msg, ok := got["message"].(map[string]any)
	if !ok || msg["message"] != "Hello" || msg["sender_id"] != "corp-1" {
		t.Fatalf("unexpected envelope %v", got)
	}
	if msg["id"] == "" || msg["id"] == nil {
		t.Fatal("envelope must carry a correlation id")
	}

	notif := ngo.waitFor(t, "notification")
	if notif["notification_type"] != "NEW_MESSAGE" || notif["link"] != "/chat/room-42" {
		t.Fatalf("unexpected notification %v", notif)
	}

	// The sender receives its own broadcast but never the counterpart
	// notification: the next frame after the envelope must be the typing
	// event emitted below, proving nothing else was queued in between.
	own := corp.waitFor(t, "new_message")
	if m, _ := own["message"].(map[string]any); m == nil || m["sender_id"] != "corp-1" {
		t.Fatalf("sender should see its own envelope, got %v", own)
	}
	ngo.emit(t, map[string]any{"type": "typing", "room_id": "room-42", "user_name": "Helping Hands"})
	if frame := corp.next(t); frame["type"] != "user_typing" {
		t.Fatalf("sender received an unexpected frame before typing: %v", frame)
	}
}

func TestTypingExcludesOriginator(t *testing.T) {
	h := newRelayHarness(t)

	corp := h.dial(t)
	ngo := h.dial(t)
	h.register(t, corp, "corp-1", "CORPORATE", "Acme Corp")
	h.register(t, ngo, "ngo-1", "NGO", "Helping Hands")
	corp.emit(t, map[string]any{"type": "join_room", "room_id": "room-1"})
	corp.waitFor(t, "room_joined")
	ngo.emit(t, map[string]any{"type": "join_room", "room_id": "room-1"})
	ngo.waitFor(t, "room_joined")
	corp.waitFor(t, "user_joined")

	corp.emit(t, map[string]any{"type": "typing", "room_id": "room-1", "user_name": "Acme Corp"})
	if got := ngo.waitFor(t, "user_typing"); got["user_name"] != "Acme Corp" {
		t.Fatalf("unexpected typing frame %v", got)
	}

	corp.emit(t, map[string]any{"type": "stop_typing", "room_id": "room-1", "user_name": "Acme Corp"})
	ngo.waitFor(t, "user_stopped_typing")
	corp.expectSilence(t, 200*time.Millisecond)
}

func TestMarkReadFansOutToOtherMembers(t *testing.T) {
	h := newRelayHarness(t)

	corp := h.dial(t)
	ngo := h.dial(t)
	h.register(t, corp, "corp-1", "CORPORATE", "Acme Corp")
	h.register(t, ngo, "ngo-1", "NGO", "Helping Hands")
	corp.emit(t, map[string]any{"type": "join_room", "room_id": "room-1"})
	corp.waitFor(t, "room_joined")
	ngo.emit(t, map[string]any{"type": "join_room", "room_id": "room-1"})
	ngo.waitFor(t, "room_joined")

	ngo.emit(t, map[string]any{
		"type": "mark_read", "room_id": "room-1", "user_id": "ngo-1",
		"message_ids": []string{"m-1", "m-2"},
	})
	got := corp.waitFor(t, "messages_read")
	if got["reader_id"] != "ngo-1" {
		t.Fatalf("unexpected reader %v", got)
	}
	ids, _ := got["message_ids"].([]any)
	if len(ids) != 2 {
		t.Fatalf("want two message ids, got %v", got["message_ids"])
	}
}

func TestDocumentRequestRoutesToLiveNgo(t *testing.T) {
	h := newRelayHarness(t)

	corp := h.dial(t)
	ngo := h.dial(t)
	h.register(t, corp, "corp-1", "CORPORATE", "Acme Corp")
	h.register(t, ngo, "ngo-1", "NGO", "Helping Hands")

	corp.emit(t, map[string]any{
		"type": "request_document", "ngo_id": "ngo-1", "proposal_id": "p-7",
		"document_type": "utilization report", "org_name": "Acme Corp",
	})

	got := ngo.waitFor(t, "notification")
	if got["notification_type"] != "DOCUMENT_REQUEST" {
		t.Fatalf("unexpected notification %v", got)
	}
	if got["link"] != "/proposals/p-7" || got["priority"] != "high" {
		t.Fatalf("unexpected notification fields %v", got)
	}
}

func TestDocumentUploadRoutesToLiveCorporate(t *testing.T) {
	h := newRelayHarness(t)

	corp := h.dial(t)
	ngo := h.dial(t)
	h.register(t, corp, "corp-1", "CORPORATE", "Acme Corp")
	h.register(t, ngo, "ngo-1", "NGO", "Helping Hands")

	ngo.emit(t, map[string]any{
		"type": "document_uploaded", "corporate_id": "corp-1", "proposal_id": "p-7",
		"document_name": "report.pdf", "org_name": "Helping Hands",
	})

	got := corp.waitFor(t, "notification")
	if got["notification_type"] != "DOCUMENT_UPLOAD" {
		t.Fatalf("unexpected notification %v", got)
	}
}

func TestDocumentRequestWithNoLiveRecipientIsDropped(t *testing.T) {
	h := newRelayHarness(t)

	corp := h.dial(t)
	h.register(t, corp, "corp-1", "CORPORATE", "Acme Corp")

	corp.emit(t, map[string]any{
		"type": "request_document", "ngo_id": "ngo-1", "proposal_id": "p-7",
		"document_type": "utilization report", "org_name": "Acme Corp",
	})

	// No NGO is live: nothing comes back, not even an error.
	corp.expectSilence(t, 300*time.Millisecond)
}

func TestDuplicateRegisterDisplacesOlderSession(t *testing.T) {
	h := newRelayHarness(t)

	first := h.dial(t)
	h.register(t, first, "corp-1", "CORPORATE", "Acme Corp")

	second := h.dial(t)
	h.register(t, second, "corp-1", "CORPORATE", "Acme Corp")

	// The displaced socket is closed by the server.
	_ = first.ws.SetReadDeadline(time.Now().Add(2 * time.Second))
	for {
		if _, _, err := first.ws.ReadMessage(); err != nil {
			break
		}
	}

	waitForCounts(t, h.reg, 1, 1, 0)
}

func TestAbruptDisconnectBroadcastsOfflineAndPrunesRooms(t *testing.T) {
	h := newRelayHarness(t)

	corp := h.dial(t)
	ngo := h.dial(t)
	h.register(t, corp, "corp-1", "CORPORATE", "Acme Corp")
	h.register(t, ngo, "ngo-1", "NGO", "Helping Hands")
	corp.emit(t, map[string]any{"type": "join_room", "room_id": "room-1"})
	corp.waitFor(t, "room_joined")
	ngo.emit(t, map[string]any{"type": "join_room", "room_id": "room-1"})
	ngo.waitFor(t, "room_joined")

	// No leave_room, no close frame: the transport just dies.
	_ = corp.ws.Close()

	status := ngo.waitFor(t, "user_status")
	if status["user_id"] != "corp-1" || status["status"] != "offline" {
		t.Fatalf("want corp-1 offline presence, got %v", status)
	}

	// The survivor keeps the room alive; the dead member is pruned.
	waitForCounts(t, h.reg, 1, 1, 1)
}

func TestRegisterValidation(t *testing.T) {
	h := newRelayHarness(t)

	tests := []struct {
		name  string
		frame map[string]any
	}{
		{"missing user id", map[string]any{"type": "register", "user_role": "NGO"}},
		{"missing role", map[string]any{"type": "register", "user_id": "u-1"}},
		{"unknown role", map[string]any{"type": "register", "user_id": "u-1", "user_role": "WIZARD"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := h.dial(t)
			c.emit(t, tt.frame)
			got := c.waitFor(t, "error")
			if got["code"] != "bad_request" {
				t.Fatalf("want bad_request, got %v", got)
			}
		})
	}
}

func TestSendMessageValidationGoesToSenderOnly(t *testing.T) {
	h := newRelayHarness(t)

	corp := h.dial(t)
	ngo := h.dial(t)
	h.register(t, corp, "corp-1", "CORPORATE", "Acme Corp")
	h.register(t, ngo, "ngo-1", "NGO", "Helping Hands")
	corp.emit(t, map[string]any{"type": "join_room", "room_id": "room-1"})
	corp.waitFor(t, "room_joined")
	ngo.emit(t, map[string]any{"type": "join_room", "room_id": "room-1"})
	ngo.waitFor(t, "room_joined")

	corp.emit(t, map[string]any{"type": "send_message", "room_id": "room-1"})
	got := corp.waitFor(t, "error")
	if got["code"] != "bad_request" {
		t.Fatalf("want bad_request, got %v", got)
	}
	ngo.expectSilence(t, 200*time.Millisecond)
}

func TestUnknownFrameType(t *testing.T) {
	h := newRelayHarness(t)

	c := h.dial(t)
	c.emit(t, map[string]any{"type": "teleport"})
	got := c.waitFor(t, "error")
	if got["code"] != "unsupported_type" {
		t.Fatalf("want unsupported_type, got %v", got)
	}
}

func TestMalformedJSONGetsErrorFrame(t *testing.T) {
	h := newRelayHarness(t)

	c := h.dial(t)
	if err := c.ws.WriteMessage(websocket.TextMessage, []byte("{not json")); err != nil {
		t.Fatalf("write: %v", err)
	}
	got := c.waitFor(t, "error")
	if got["code"] != "bad_request" {
		t.Fatalf("want bad_request, got %v", got)
	}
}

func TestLeaveRoomStopsDelivery(t *testing.T) {
	h := newRelayHarness(t)

	corp := h.dial(t)
	ngo := h.dial(t)
	h.register(t, corp, "corp-1", "CORPORATE", "Acme Corp")
	h.register(t, ngo, "ngo-1", "NGO", "Helping Hands")
	corp.emit(t, map[string]any{"type": "join_room", "room_id": "room-1"})
	corp.waitFor(t, "room_joined")
	ngo.emit(t, map[string]any{"type": "join_room", "room_id": "room-1"})
	ngo.waitFor(t, "room_joined")

	ngo.emit(t, map[string]any{"type": "leave_room", "room_id": "room-1"})
	ngo.waitFor(t, "room_left")

	corp.emit(t, map[string]any{"type": "typing", "room_id": "room-1", "user_name": "Acme Corp"})
	ngo.expectSilence(t, 200*time.Millisecond)
}
