package client

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// NotificationFeed is the per-user unread-aware notification list. Local
// mutations are optimistic: the list and counter update immediately and the
// persistence call follows. Failures are logged, not rolled back; Refresh
// reconciles against persisted truth.
type NotificationFeed struct {
	mgr    *Manager
	api    NotificationAPI
	userID string
	log    zerolog.Logger

	mu     sync.Mutex
	items  []Notification
	unread int64
	sub    *Subscription
}

// NewNotificationFeed wires a feed for the given user.
func NewNotificationFeed(mgr *Manager, api NotificationAPI, userID string, log zerolog.Logger) *NotificationFeed {
	return &NotificationFeed{mgr: mgr, api: api, userID: userID, log: log}
}

// Open fetches the persisted list plus unread count and subscribes to live
// notification events.
func (f *NotificationFeed) Open(ctx context.Context) error {
	if err := f.Refresh(ctx); err != nil {
		return err
	}
	f.sub = f.mgr.On("notification", f.handleNotification)
	return nil
}

// Close detaches the live subscription.
func (f *NotificationFeed) Close() {
	if f.sub != nil {
		f.mgr.Off(f.sub)
		f.sub = nil
	}
}

// Refresh reloads list and unread count from the persistence layer,
// replacing any optimistic local state.
func (f *NotificationFeed) Refresh(ctx context.Context) error {
	items, unread, err := f.api.ListNotifications(ctx, f.userID, false, 0)
	if err != nil {
		return err
	}
	f.mu.Lock()
	f.items = items
	f.unread = unread
	f.mu.Unlock()
	return nil
}

// MarkRead optimistically flips one notification and persists the change.
func (f *NotificationFeed) MarkRead(ctx context.Context, id string) {
	f.mu.Lock()
	for i := range f.items {
		if f.items[i].ID == id && !f.items[i].IsRead {
			f.items[i].IsRead = true
			if f.unread > 0 {
				f.unread--
			}
			break
		}
	}
	f.mu.Unlock()

	if _, err := f.api.MarkNotificationsRead(ctx, f.userID, []string{id}, false); err != nil {
		f.log.Error().Err(err).Str("notification_id", id).Msg("mark read persistence failed")
	}
}

// MarkAllRead optimistically flips everything and persists the change.
func (f *NotificationFeed) MarkAllRead(ctx context.Context) {
	f.mu.Lock()
	for i := range f.items {
		f.items[i].IsRead = true
	}
	f.unread = 0
	f.mu.Unlock()

	if _, err := f.api.MarkNotificationsRead(ctx, f.userID, nil, true); err != nil {
		f.log.Error().Err(err).Msg("mark all read persistence failed")
	}
}

// ClearAll optimistically empties the feed and persists the bulk delete.
func (f *NotificationFeed) ClearAll(ctx context.Context) {
	f.mu.Lock()
	f.items = nil
	f.unread = 0
	f.mu.Unlock()

	if _, err := f.api.ClearNotifications(ctx, f.userID); err != nil {
		f.log.Error().Err(err).Msg("clear notifications persistence failed")
	}
}

// Items returns a snapshot of the feed.
func (f *NotificationFeed) Items() []Notification {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]Notification, len(f.items))
	copy(out, f.items)
	return out
}

// Unread returns the locally tracked unread count.
func (f *NotificationFeed) Unread() int64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.unread
}

// handleNotification prepends a live event and bumps the counter. The relay
// only delivers events addressed to this connection, so no user filtering
// happens here; the persisted row (written via the separate HTTP call) is
// what Refresh later reconciles against.
func (f *NotificationFeed) handleNotification(raw json.RawMessage) {
	var frame struct {
		NotificationType string `json:"notification_type"`
		Title            string `json:"title"`
		Message          string `json:"message"`
		Link             string `json:"link"`
	}
	if err := json.Unmarshal(raw, &frame); err != nil {
		return
	}

	var link *string
	if frame.Link != "" {
		link = &frame.Link
	}

	f.mu.Lock()
	f.items = append([]Notification{{
		UserID:    f.userID,
		Type:      frame.NotificationType,
		Title:     frame.Title,
		Message:   frame.Message,
		Link:      link,
		CreatedAt: time.Now().UTC(),
	}}, f.items...)
	f.unread++
	f.mu.Unlock()
}
