// Package catalog provides the data structures for the screenshot
// library collection.
//
// The authoritative store is a pair of JSON documents in the content
// repository: data.json (the item collection) and feedbacks.json (the
// annotation collection). Both are full-array documents rewritten on
// every mutation, so the types here must round-trip losslessly,
// including absent optional fields and non-ASCII text bodies.
package catalog

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Platform partitions items into the two catalog views.
type Platform string

const (
	// PlatformMobile is the primary (app) partition.
	PlatformMobile Platform = "mobile"
	// PlatformWeb is the secondary (browser) partition.
	PlatformWeb Platform = "web"
)

// Item represents one catalog entry: an annotated UI screenshot.
//
// The JSON field names match the historical data.json schema so that
// existing collections parse unchanged. ID doubles as the creation
// timestamp in unix milliseconds; once assigned it is never reused and
// never changes for the lifetime of the item.
type Item struct {
	ID    int64  `json:"id"`
	Title string `json:"title"`

	// Text is the default-language body. TextTR is the optional
	// Turkish translation; nil means "no translation", which must not
	// serialize as an empty string.
	Text   string  `json:"text"`
	TextTR *string `json:"text_tr,omitempty"`

	Topic    string   `json:"topic,omitempty"`
	Language string   `json:"language"`
	Platform Platform `json:"platform,omitempty"`

	// Image is the asset reference: either an absolute URL or a
	// repo-relative path under the assets directory. Exactly one per
	// item.
	Image string `json:"image"`

	// UpdatedAt is a display string, not a machine timestamp. It is
	// derived at write time from an explicit value or from the ID.
	UpdatedAt string `json:"updatedAt,omitempty"`

	// Feedbacks is the legacy embedded annotation list from old
	// collection files. It is drained into the feedbacks document by
	// the one-time migration in cache.Load and never written back.
	Feedbacks []Feedback `json:"feedbacks,omitempty"`
}

// NewID returns a fresh item identifier derived from the current time
// in unix milliseconds.
func NewID() int64 {
	return time.Now().UnixMilli()
}

// Validate checks that the item has usable field values.
func (it *Item) Validate() error {
	if it.ID == 0 {
		return fmt.Errorf("id is required")
	}
	if strings.TrimSpace(it.Title) == "" {
		return fmt.Errorf("title is required")
	}
	if it.Image == "" {
		return fmt.Errorf("image reference is required")
	}
	if it.Platform != "" && it.Platform != PlatformMobile && it.Platform != PlatformWeb {
		return fmt.Errorf("platform must be %q or %q (got %q)", PlatformMobile, PlatformWeb, it.Platform)
	}
	return nil
}

// SetDefaults applies default values for optional fields.
func (it *Item) SetDefaults() {
	if it.ID == 0 {
		it.ID = NewID()
	}
	if it.Language == "" {
		it.Language = "English"
	}
	if it.Platform == "" {
		it.Platform = PlatformMobile
	}
	if it.UpdatedAt == "" {
		it.UpdatedAt = FormatUpdatedAt(it.ID, it.Language)
	}
}

// ItemPatch carries a partial update. Nil fields are left unchanged on
// the target item; this is what makes update(id, {topic: "X"}) keep
// title, text and image intact.
type ItemPatch struct {
	Title    *string   `json:"title,omitempty"`
	Text     *string   `json:"text,omitempty"`
	TextTR   *string   `json:"text_tr,omitempty"`
	Topic    *string   `json:"topic,omitempty"`
	Language *string   `json:"language,omitempty"`
	Platform *Platform `json:"platform,omitempty"`
	Image    *string   `json:"image,omitempty"`
}

// Apply merges the patch into the item and refreshes UpdatedAt. The ID
// is never touched.
func (p *ItemPatch) Apply(it *Item) {
	if p.Title != nil {
		it.Title = *p.Title
	}
	if p.Text != nil {
		it.Text = *p.Text
	}
	if p.TextTR != nil {
		if *p.TextTR == "" {
			it.TextTR = nil
		} else {
			v := *p.TextTR
			it.TextTR = &v
		}
	}
	if p.Topic != nil {
		it.Topic = *p.Topic
	}
	if p.Language != nil {
		it.Language = *p.Language
	}
	if p.Platform != nil {
		it.Platform = *p.Platform
	}
	if p.Image != nil {
		it.Image = *p.Image
	}
	it.UpdatedAt = FormatUpdatedAt(time.Now().UnixMilli(), it.Language)
}

// IsZero reports whether the patch changes nothing.
func (p *ItemPatch) IsZero() bool {
	return p.Title == nil && p.Text == nil && p.TextTR == nil &&
		p.Topic == nil && p.Language == nil && p.Platform == nil && p.Image == nil
}

// DecodeItems parses a collection document into items.
func DecodeItems(data []byte) ([]Item, error) {
	var items []Item
	if err := json.Unmarshal(data, &items); err != nil {
		return nil, fmt.Errorf("failed to parse item collection: %w", err)
	}
	return items, nil
}

// EncodeItems serializes the collection pretty-printed, the way the
// remote documents have always been stored.
func EncodeItems(items []Item) ([]byte, error) {
	if items == nil {
		items = []Item{}
	}
	data, err := json.MarshalIndent(items, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal item collection: %w", err)
	}
	return data, nil
}

// AssignMissingIDs fills in ids for legacy items that predate the id
// field, using now+index to keep them unique. Existing ids are never
// rewritten. Returns the number of ids assigned.
func AssignMissingIDs(items []Item) int {
	base := time.Now().UnixMilli()
	assigned := 0
	for i := range items {
		if items[i].ID == 0 {
			items[i].ID = base + int64(i)
			assigned++
		}
	}
	return assigned
}
