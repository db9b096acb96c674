package daemon

import (
	"context"
	"errors"
	"io"
	"log"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/gorkemtikic/shotlib/internal/cache"
	"github.com/gorkemtikic/shotlib/internal/catalog"
	"github.com/gorkemtikic/shotlib/internal/sync"
)

// fakePusher records pushes and can fail on demand.
type fakePusher struct {
	items     []catalog.Item
	feedbacks []catalog.Feedback
	messages  []string
	err       error
}

func (p *fakePusher) OverwriteItems(ctx context.Context, items []catalog.Item, message string) error {
	if p.err != nil {
		return p.err
	}
	p.items = items
	p.messages = append(p.messages, message)
	return nil
}

func (p *fakePusher) PushFeedbacks(ctx context.Context, fbs []catalog.Feedback) error {
	if p.err != nil {
		return p.err
	}
	p.feedbacks = fbs
	return nil
}

// fakeSink records every event it receives.
type fakeSink struct {
	itemEvents     []string // "action:id"
	feedbackEvents []string
	syncs          []SyncRecord
}

type SyncRecord struct {
	Operation string
	Items     int
	Conflict  bool
}

func (s *fakeSink) ItemChanged(_ catalog.Item, action string) {
	s.itemEvents = append(s.itemEvents, action)
}

func (s *fakeSink) FeedbackChanged(_ catalog.Feedback, action string) {
	s.feedbackEvents = append(s.feedbackEvents, action)
}

func (s *fakeSink) SyncComplete(operation string, items int, _ time.Duration, conflict bool) {
	s.syncs = append(s.syncs, SyncRecord{Operation: operation, Items: items, Conflict: conflict})
}

// setupDaemon builds a daemon over a temp working copy with a fake
// pusher and sink.
func setupDaemon(t *testing.T, pusher Pusher) (*Daemon, *fakeSink, string) {
	t.Helper()

	dir := t.TempDir()
	dataPath := filepath.Join(dir, "data.json")
	feedbacksPath := filepath.Join(dir, "feedbacks.json")

	sink := &fakeSink{}
	quiet := log.New(io.Discard, "", 0)
	store := cache.New(nil, cache.Options{Logger: quiet})

	d, err := New(pusher, store, dataPath, feedbacksPath, &Config{
		RefreshInterval:  time.Minute,
		DebounceInterval: 10 * time.Millisecond,
		Logger:           quiet,
		Events:           sink,
	})
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	t.Cleanup(func() { _ = d.watcher.Close() })
	return d, sink, dir
}

func writeItems(t *testing.T, path string, items []catalog.Item) {
	t.Helper()
	data, err := catalog.EncodeItems(items)
	if err != nil {
		t.Fatalf("EncodeItems() error: %v", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("WriteFile() error: %v", err)
	}
}

func TestNew_Validation(t *testing.T) {
	quiet := log.New(io.Discard, "", 0)
	store := cache.New(nil, cache.Options{Logger: quiet})
	pusher := &fakePusher{}

	tests := []struct {
		name     string
		pusher   Pusher
		store    *cache.Store
		dataPath string
	}{
		{name: "nil pusher", store: store, dataPath: "data.json"},
		{name: "nil store", pusher: pusher, dataPath: "data.json"},
		{name: "empty data path", pusher: pusher, store: store},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := New(tt.pusher, tt.store, tt.dataPath, "", nil); err == nil {
				t.Error("New() succeeded, want error")
			}
		})
	}
}

func TestPushFile_Items(t *testing.T) {
	pusher := &fakePusher{}
	d, sink, _ := setupDaemon(t, pusher)

	items := []catalog.Item{
		{ID: 1700000000001, Title: "Deposit flow", Image: "screenshots/deposit.png"},
		{Title: "Withdraw flow", Image: "screenshots/withdraw.png"}, // no id yet
	}
	writeItems(t, d.dataPath, items)

	if err := d.pushFile(d.dataPath); err != nil {
		t.Fatalf("pushFile() error: %v", err)
	}

	if len(pusher.items) != 2 {
		t.Fatalf("pushed %d items, want 2", len(pusher.items))
	}
	if pusher.items[1].ID == 0 {
		t.Error("missing id was not assigned before push")
	}
	if len(pusher.messages) != 1 || pusher.messages[0] != "Sync data.json via shotlib daemon" {
		t.Errorf("commit message = %v", pusher.messages)
	}

	// Assigned ids are written back to the working copy.
	data, err := os.ReadFile(d.dataPath)
	if err != nil {
		t.Fatalf("ReadFile() error: %v", err)
	}
	onDisk, err := catalog.DecodeItems(data)
	if err != nil {
		t.Fatalf("DecodeItems() error: %v", err)
	}
	if onDisk[1].ID != pusher.items[1].ID {
		t.Errorf("working copy id %d, pushed id %d", onDisk[1].ID, pusher.items[1].ID)
	}

	// Cache now mirrors the push, and the sink saw the changes.
	if got := len(d.store.Items()); got != 2 {
		t.Errorf("cache has %d items, want 2", got)
	}
	if len(sink.itemEvents) != 2 || sink.itemEvents[0] != "added" {
		t.Errorf("item events = %v", sink.itemEvents)
	}
	if len(sink.syncs) != 1 || sink.syncs[0] != (SyncRecord{Operation: "items", Items: 2}) {
		t.Errorf("sync events = %v", sink.syncs)
	}
}

func TestPushFile_Feedbacks(t *testing.T) {
	pusher := &fakePusher{}
	d, sink, _ := setupDaemon(t, pusher)

	fbs := []catalog.Feedback{
		{ID: 1, ItemID: 1700000000001, Message: "Outdated screenshot", Status: catalog.FeedbackActive},
	}
	data, err := catalog.EncodeFeedbacks(fbs)
	if err != nil {
		t.Fatalf("EncodeFeedbacks() error: %v", err)
	}
	if err := os.WriteFile(d.feedbacksPath, data, 0o644); err != nil {
		t.Fatalf("WriteFile() error: %v", err)
	}

	if err := d.pushFile(d.feedbacksPath); err != nil {
		t.Fatalf("pushFile() error: %v", err)
	}

	if len(pusher.feedbacks) != 1 {
		t.Fatalf("pushed %d feedbacks, want 1", len(pusher.feedbacks))
	}
	if got := len(d.store.Feedbacks()); got != 1 {
		t.Errorf("cache has %d feedbacks, want 1", got)
	}
	if len(sink.feedbackEvents) != 1 || sink.feedbackEvents[0] != "submitted" {
		t.Errorf("feedback events = %v", sink.feedbackEvents)
	}
	if len(sink.syncs) != 1 || sink.syncs[0] != (SyncRecord{Operation: "feedbacks", Items: 1}) {
		t.Errorf("sync events = %v", sink.syncs)
	}
}

func TestPushFile_RefusesMalformedFile(t *testing.T) {
	pusher := &fakePusher{}
	d, _, _ := setupDaemon(t, pusher)

	if err := os.WriteFile(d.dataPath, []byte("{not json"), 0o644); err != nil {
		t.Fatalf("WriteFile() error: %v", err)
	}

	if err := d.pushFile(d.dataPath); err == nil {
		t.Fatal("pushFile() succeeded on malformed input")
	}
	if pusher.items != nil {
		t.Error("malformed file reached the pusher")
	}
}

func TestPushFile_MissingFileIsNoop(t *testing.T) {
	pusher := &fakePusher{}
	d, sink, _ := setupDaemon(t, pusher)

	if err := d.pushFile(d.dataPath); err != nil {
		t.Fatalf("pushFile() on missing file: %v", err)
	}
	if len(sink.syncs) != 0 {
		t.Errorf("sync events for missing file: %v", sink.syncs)
	}
}

func TestPushFile_ConflictReported(t *testing.T) {
	pusher := &fakePusher{err: sync.ErrConcurrentModification}
	d, sink, _ := setupDaemon(t, pusher)

	writeItems(t, d.dataPath, []catalog.Item{
		{ID: 1700000000001, Title: "Deposit flow", Image: "screenshots/deposit.png"},
	})

	err := d.pushFile(d.dataPath)
	if !errors.Is(err, sync.ErrConcurrentModification) {
		t.Fatalf("pushFile() error = %v, want concurrent modification", err)
	}
	if len(sink.syncs) != 1 || !sink.syncs[0].Conflict {
		t.Errorf("sync events = %v, want one conflict", sink.syncs)
	}
	// Failed pushes leave the cache alone.
	if len(d.store.Items()) != 0 {
		t.Error("cache was updated despite the push failing")
	}
}

func TestTracked(t *testing.T) {
	d, _, dir := setupDaemon(t, &fakePusher{})

	if !d.tracked(d.dataPath) || !d.tracked(d.feedbacksPath) {
		t.Error("tracked() false for watched files")
	}
	if d.tracked(filepath.Join(dir, "notes.txt")) {
		t.Error("tracked() true for unrelated file")
	}
}

func TestWriteWorkingCopy(t *testing.T) {
	d, _, _ := setupDaemon(t, &fakePusher{})

	d.store.Replace([]catalog.Item{
		{ID: 1700000000001, Title: "Deposit flow", Image: "screenshots/deposit.png"},
	})
	d.store.ReplaceFeedbacks([]catalog.Feedback{
		{ID: 1, ItemID: 1700000000001, Message: "Outdated", Status: catalog.FeedbackActive},
	})

	if err := d.WriteWorkingCopy(); err != nil {
		t.Fatalf("WriteWorkingCopy() error: %v", err)
	}

	data, err := os.ReadFile(d.dataPath)
	if err != nil {
		t.Fatalf("ReadFile() error: %v", err)
	}
	items, err := catalog.DecodeItems(data)
	if err != nil || len(items) != 1 || items[0].Title != "Deposit flow" {
		t.Errorf("item working copy = %v, %v", items, err)
	}

	data, err = os.ReadFile(d.feedbacksPath)
	if err != nil {
		t.Fatalf("ReadFile() error: %v", err)
	}
	fbs, err := catalog.DecodeFeedbacks(data)
	if err != nil || len(fbs) != 1 || fbs[0].Message != "Outdated" {
		t.Errorf("feedback working copy = %v, %v", fbs, err)
	}
}
