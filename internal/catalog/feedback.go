package catalog

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// FeedbackStatus is the lifecycle state of a feedback entry.
type FeedbackStatus string

const (
	// FeedbackActive is the initial state of a submitted feedback.
	FeedbackActive FeedbackStatus = "active"
	// FeedbackResolved is the terminal state. The transition is
	// one-way.
	FeedbackResolved FeedbackStatus = "resolved"
)

// Feedback is a user-submitted annotation on an item.
//
// ItemID is a weak reference: the feedback only relates to the item,
// it is not owned by it. Deleting the item leaves the feedback behind
// as an orphan, and readers must render it with a placeholder instead
// of dropping it.
type Feedback struct {
	ID         int64          `json:"id"`
	ItemID     int64          `json:"itemId"`
	Message    string         `json:"message"`
	Status     FeedbackStatus `json:"status"`
	Timestamp  string         `json:"timestamp"`
	ResolvedAt string         `json:"resolvedAt,omitempty"`
}

// NewFeedback creates an active feedback for the given item with a
// timestamp-derived id.
func NewFeedback(itemID int64, message string) (Feedback, error) {
	if strings.TrimSpace(message) == "" {
		return Feedback{}, fmt.Errorf("feedback message cannot be empty")
	}
	now := time.Now()
	return Feedback{
		ID:        now.UnixMilli(),
		ItemID:    itemID,
		Message:   message,
		Status:    FeedbackActive,
		Timestamp: now.UTC().Format(time.RFC3339),
	}, nil
}

// Resolve transitions the feedback to resolved. Resolving an already
// resolved feedback is a no-op: Status and ResolvedAt keep their
// original values.
func (f *Feedback) Resolve(at time.Time) {
	if f.Status == FeedbackResolved {
		return
	}
	f.Status = FeedbackResolved
	f.ResolvedAt = at.UTC().Format(time.RFC3339)
}

// DecodeFeedbacks parses a feedbacks document. A non-array document is
// an error; callers that tolerate a missing document handle that
// before decoding.
func DecodeFeedbacks(data []byte) ([]Feedback, error) {
	var fbs []Feedback
	if err := json.Unmarshal(data, &fbs); err != nil {
		return nil, fmt.Errorf("failed to parse feedback collection: %w", err)
	}
	return fbs, nil
}

// EncodeFeedbacks serializes the feedback collection pretty-printed.
func EncodeFeedbacks(fbs []Feedback) ([]byte, error) {
	if fbs == nil {
		fbs = []Feedback{}
	}
	data, err := json.MarshalIndent(fbs, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal feedback collection: %w", err)
	}
	return data, nil
}

// MigrateLegacyFeedbacks drains feedbacks embedded inside items (the
// pre-split schema) into standalone entries linked by item id. It is a
// one-time, best-effort step: entries whose id already exists in the
// current feedback list are skipped, and items come back with their
// embedded list cleared.
func MigrateLegacyFeedbacks(items []Item, existing []Feedback) ([]Item, []Feedback) {
	seen := make(map[int64]bool, len(existing))
	for _, f := range existing {
		seen[f.ID] = true
	}

	migrated := existing
	for i := range items {
		for _, f := range items[i].Feedbacks {
			f.ItemID = items[i].ID
			if f.Status == "" {
				f.Status = FeedbackActive
			}
			if seen[f.ID] {
				continue
			}
			seen[f.ID] = true
			migrated = append(migrated, f)
		}
		items[i].Feedbacks = nil
	}
	return items, migrated
}
