package dashboard

import (
	"encoding/json"
	"time"

	"github.com/gorkemtikic/shotlib/internal/catalog"
)

// Notifier translates catalog events into dashboard broadcasts. All
// methods are safe to call with a nil receiver, so callers can wire a
// notifier unconditionally and only construct one when the dashboard
// is running.
type Notifier struct {
	server *Server
}

// NewNotifier creates a notifier bound to the given server.
func NewNotifier(server *Server) *Notifier {
	return &Notifier{server: server}
}

// ItemChanged reports an item addition, update, or deletion.
func (n *Notifier) ItemChanged(item catalog.Item, action string) {
	if n == nil || n.server == nil {
		return
	}

	data, err := json.Marshal(ItemUpdateData{
		ItemID:   item.ID,
		Action:   action,
		Title:    item.Title,
		Topic:    item.Topic,
		Language: item.Language,
	})
	if err != nil {
		return
	}

	n.server.Broadcast(Message{
		Type:      MessageTypeItemUpdate,
		Timestamp: time.Now(),
		Data:      data,
	})
	n.broadcastStats()
}

// FeedbackChanged reports a feedback submission or resolution.
func (n *Notifier) FeedbackChanged(fb catalog.Feedback, action string) {
	if n == nil || n.server == nil {
		return
	}

	data, err := json.Marshal(FeedbackUpdateData{
		FeedbackID: fb.ID,
		ItemID:     fb.ItemID,
		Action:     action,
		Status:     string(fb.Status),
	})
	if err != nil {
		return
	}

	n.server.Broadcast(Message{
		Type:      MessageTypeFeedbackUpdate,
		Timestamp: time.Now(),
		Data:      data,
	})
	n.broadcastStats()
}

// SyncComplete reports a finished push to the remote store. Conflicted
// pushes are reported too so watchers can see the retry churn.
func (n *Notifier) SyncComplete(operation string, items int, duration time.Duration, conflict bool) {
	if n == nil || n.server == nil {
		return
	}

	data, err := json.Marshal(SyncCompleteData{
		Operation: operation,
		Items:     items,
		Duration:  duration,
		Conflict:  conflict,
	})
	if err != nil {
		return
	}

	n.server.Broadcast(Message{
		Type:      MessageTypeSyncComplete,
		Timestamp: time.Now(),
		Data:      data,
	})
}

// broadcastStats pushes a refreshed stats snapshot to all clients.
func (n *Notifier) broadcastStats() {
	data, err := json.Marshal(n.server.stats())
	if err != nil {
		return
	}

	n.server.Broadcast(Message{
		Type:      MessageTypeStats,
		Timestamp: time.Now(),
		Data:      data,
	})
}
