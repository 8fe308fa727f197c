package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

// Message is the client-side view of a persisted chat message.
type Message struct {
	ID         string    `json:"id"`
	RoomID     string    `json:"room_id"`
	SenderID   string    `json:"sender_id"`
	SenderRole string    `json:"sender_role"`
	SenderName string    `json:"sender_name"`
	Message    string    `json:"message"`
	Type       string    `json:"message_type"`
	Metadata   *string   `json:"metadata"`
	IsRead     bool      `json:"is_read"`
	CreatedAt  time.Time `json:"created_at"`
}

// Notification is the client-side view of a persisted notification.
type Notification struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	UserRole  string    `json:"user_role"`
	Type      string    `json:"type"`
	Title     string    `json:"title"`
	Message   string    `json:"message"`
	Link      *string   `json:"link"`
	Metadata  *string   `json:"metadata"`
	IsRead    bool      `json:"is_read"`
	CreatedAt time.Time `json:"created_at"`
}

// CreateMessageRequest is the persistence write issued before the live emit.
type CreateMessageRequest struct {
	SenderID   string  `json:"sender_id"`
	SenderRole string  `json:"sender_role"`
	SenderName string  `json:"sender_name"`
	Message    string  `json:"message"`
	Type       string  `json:"message_type,omitempty"`
	Metadata   *string `json:"metadata,omitempty"`
}

// MessageAPI is the message-persistence boundary consumed by ChatFeed.
type MessageAPI interface {
	CreateMessage(ctx context.Context, roomID string, req CreateMessageRequest) (Message, error)
	ListMessages(ctx context.Context, roomID string, before *time.Time, limit int) ([]Message, error)
	MarkMessagesRead(ctx context.Context, roomID, userID string) (int64, error)
}

// NotificationAPI is the notification-persistence boundary consumed by
// NotificationFeed.
type NotificationAPI interface {
	ListNotifications(ctx context.Context, userID string, unreadOnly bool, limit int) ([]Notification, int64, error)
	MarkNotificationsRead(ctx context.Context, userID string, ids []string, markAll bool) (int64, error)
	ClearNotifications(ctx context.Context, userID string) (int64, error)
}

// HTTPAPI talks to the csrbridge REST surface. It implements both MessageAPI
// and NotificationAPI.
type HTTPAPI struct {
	base string
	hc   *http.Client
}

// NewHTTPAPI constructs an API client for a base URL like "http://host:8080".
func NewHTTPAPI(base string, hc *http.Client) *HTTPAPI {
	if hc == nil {
		hc = &http.Client{Timeout: 10 * time.Second}
	}
	return &HTTPAPI{base: base, hc: hc}
}

var (
	_ MessageAPI      = (*HTTPAPI)(nil)
	_ NotificationAPI = (*HTTPAPI)(nil)
)

func (a *HTTPAPI) CreateMessage(ctx context.Context, roomID string, req CreateMessageRequest) (Message, error) {
	var out Message
	err := a.do(ctx, http.MethodPost, "/api/v1/rooms/"+url.PathEscape(roomID)+"/messages", req, &out)
	return out, err
}

func (a *HTTPAPI) ListMessages(ctx context.Context, roomID string, before *time.Time, limit int) ([]Message, error) {
	q := url.Values{}
	if before != nil {
		q.Set("before", before.Format(time.RFC3339Nano))
	}
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	path := "/api/v1/rooms/" + url.PathEscape(roomID) + "/messages"
	if enc := q.Encode(); enc != "" {
		path += "?" + enc
	}
	var out struct {
		Messages []Message `json:"messages"`
	}
	if err := a.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return out.Messages, nil
}

func (a *HTTPAPI) MarkMessagesRead(ctx context.Context, roomID, userID string) (int64, error) {
	var out struct {
		Updated int64 `json:"updated"`
	}
	err := a.do(ctx, http.MethodPatch, "/api/v1/rooms/"+url.PathEscape(roomID)+"/messages/read",
		map[string]string{"user_id": userID}, &out)
	return out.Updated, err
}

func (a *HTTPAPI) ListNotifications(ctx context.Context, userID string, unreadOnly bool, limit int) ([]Notification, int64, error) {
	q := url.Values{"user_id": {userID}}
	if unreadOnly {
		q.Set("unread_only", "true")
	}
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	var out struct {
		Notifications []Notification `json:"notifications"`
		UnreadCount   int64          `json:"unread_count"`
	}
	if err := a.do(ctx, http.MethodGet, "/api/v1/notifications?"+q.Encode(), nil, &out); err != nil {
		return nil, 0, err
	}
	return out.Notifications, out.UnreadCount, nil
}

func (a *HTTPAPI) MarkNotificationsRead(ctx context.Context, userID string, ids []string, markAll bool) (int64, error) {
	var out struct {
		Updated int64 `json:"updated"`
	}
	err := a.do(ctx, http.MethodPatch, "/api/v1/notifications/read", map[string]any{
		"user_id":       userID,
		"ids":           ids,
		"mark_all_read": markAll,
	}, &out)
	return out.Updated, err
}

func (a *HTTPAPI) ClearNotifications(ctx context.Context, userID string) (int64, error) {
	q := url.Values{"user_id": {userID}}
	var out struct {
		Deleted int64 `json:"deleted"`
	}
	err := a.do(ctx, http.MethodDelete, "/api/v1/notifications?"+q.Encode(), nil, &out)
	return out.Deleted, err
}

func (a *HTTPAPI) do(ctx context.Context, method, path string, in any, out any) error {
	var body *bytes.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return err
		}
		body = bytes.NewReader(b)
	} else {
		body = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, a.base+path, body)
	if err != nil {
		return err
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := a.hc.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		var apiErr struct {
			Error string `json:"error"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&apiErr)
		if apiErr.Error != "" {
			return fmt.Errorf("api: %s: %s", resp.Status, apiErr.Error)
		}
		return fmt.Errorf("api: %s", resp.Status)
	}

	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
