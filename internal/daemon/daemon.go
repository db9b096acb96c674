// Package daemon provides the background worker that keeps a local
// working copy of the library in lockstep with the remote repository.
//
// The daemon:
// 1. Watches the local data and feedback files for changes
// 2. Pushes modified files to the remote store with debouncing
// 3. Periodically refreshes the in-memory cache from the raw host
// 4. Handles graceful shutdown
package daemon

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	gosync "sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/gorkemtikic/shotlib/internal/cache"
	"github.com/gorkemtikic/shotlib/internal/catalog"
	"github.com/gorkemtikic/shotlib/internal/sync"
)

// Config holds configuration for the daemon.
type Config struct {
	// RefreshInterval is how often to re-fetch the library from the
	// raw host.
	RefreshInterval time.Duration

	// DebounceInterval is how long to wait after the last file event
	// before pushing. This batches rapid editor saves together.
	DebounceInterval time.Duration

	// LogFile, when set, routes daemon logs to a size-rotated file
	// instead of stderr.
	LogFile string

	// Logger for daemon activity. Overrides LogFile when set.
	Logger *log.Logger

	// Events receives change notifications, typically the dashboard
	// notifier. Nil disables them.
	Events EventSink
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		RefreshInterval:  5 * time.Minute,
		DebounceInterval: 2 * time.Second,
		Logger:           log.New(os.Stderr, "[daemon] ", log.LstdFlags),
	}
}

// logWriter builds the daemon log sink from config.
func (c *Config) logWriter() io.Writer {
	if c.LogFile == "" {
		return os.Stderr
	}
	return &lumberjack.Logger{
		Filename:   c.LogFile,
		MaxSize:    10, // megabytes
		MaxBackups: 3,
		MaxAge:     14, // days
	}
}

// Pusher is the subset of the sync coordinator the daemon needs.
type Pusher interface {
	OverwriteItems(ctx context.Context, items []catalog.Item, message string) error
	PushFeedbacks(ctx context.Context, fbs []catalog.Feedback) error
}

var _ Pusher = (*sync.Coordinator)(nil)

// EventSink receives change notifications as the daemon pushes. All
// methods must be non-blocking.
type EventSink interface {
	ItemChanged(item catalog.Item, action string)
	FeedbackChanged(fb catalog.Feedback, action string)
	SyncComplete(operation string, items int, duration time.Duration, conflict bool)
}

// noopSink is used when no sink is configured.
type noopSink struct{}

func (noopSink) ItemChanged(catalog.Item, string)              {}
func (noopSink) FeedbackChanged(catalog.Feedback, string)      {}
func (noopSink) SyncComplete(string, int, time.Duration, bool) {}

// Daemon watches the working copy and pushes changes to the remote
// store.
type Daemon struct {
	pusher        Pusher
	store         *cache.Store
	dataPath      string
	feedbacksPath string
	config        *Config

	watcher       *fsnotify.Watcher
	changeQueue   map[string]time.Time // filepath -> last event time
	changeQueueMu gosync.Mutex

	ctx    context.Context
	cancel context.CancelFunc
	wg     gosync.WaitGroup

	events EventSink
	logger *log.Logger
}

// New creates a new Daemon instance.
//
// The daemon requires:
//   - pusher: sync coordinator used for remote writes
//   - store: in-memory cache refreshed on the RefreshInterval
//   - dataPath: local working copy of the item file
//   - feedbacksPath: local working copy of the feedback file
//
// Use Start() to begin watching and pushing.
func New(pusher Pusher, store *cache.Store, dataPath, feedbacksPath string, config *Config) (*Daemon, error) {
	if pusher == nil {
		return nil, fmt.Errorf("pusher cannot be nil")
	}
	if store == nil {
		return nil, fmt.Errorf("store cannot be nil")
	}
	if dataPath == "" {
		return nil, fmt.Errorf("dataPath cannot be empty")
	}
	if config == nil {
		config = DefaultConfig()
	}
	if feedbacksPath == "" {
		feedbacksPath = filepath.Join(filepath.Dir(dataPath), "feedbacks.json")
	}

	logger := config.Logger
	if logger == nil {
		logger = log.New(config.logWriter(), "[daemon] ", log.LstdFlags)
	}

	var events EventSink = noopSink{}
	if config.Events != nil {
		events = config.Events
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create watcher: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &Daemon{
		pusher:        pusher,
		store:         store,
		dataPath:      dataPath,
		feedbacksPath: feedbacksPath,
		config:        config,
		watcher:       watcher,
		changeQueue:   make(map[string]time.Time),
		ctx:           ctx,
		cancel:        cancel,
		events:        events,
		logger:        logger,
	}, nil
}

// Start begins the daemon's operation.
//
// The daemon will:
// 1. Load the library into the cache
// 2. Start watching the data and feedback files
// 3. Periodically refresh the cache from the raw host
// 4. Push file changes with debouncing
//
// This blocks until ctx is cancelled or an error occurs.
func (d *Daemon) Start(ctx context.Context) error {
	d.logger.Println("Starting daemon")

	if err := d.store.Load(ctx); err != nil {
		return fmt.Errorf("initial load failed: %w", err)
	}

	// Editors replace files on save, so watch the containing
	// directories rather than the files themselves.
	dirs := map[string]bool{
		filepath.Dir(d.dataPath):      true,
		filepath.Dir(d.feedbacksPath): true,
	}
	for dir := range dirs {
		if err := d.watcher.Add(dir); err != nil {
			return fmt.Errorf("failed to watch %s: %w", dir, err)
		}
		d.logger.Printf("Watching: %s", dir)
	}

	d.wg.Add(3)
	go d.watchFileEvents()
	go d.processChangeQueue()
	go d.refreshLoop()

	select {
	case <-ctx.Done():
		d.logger.Println("Shutdown signal received")
		return d.Stop()
	case <-d.ctx.Done():
		return nil
	}
}

// Stop gracefully shuts down the daemon.
func (d *Daemon) Stop() error {
	d.logger.Println("Stopping daemon")

	d.cancel()

	if err := d.watcher.Close(); err != nil {
		d.logger.Printf("Error closing watcher: %v", err)
	}

	d.wg.Wait()

	d.logger.Println("Daemon stopped")
	return nil
}

// watchFileEvents monitors filesystem events and queues changes.
func (d *Daemon) watchFileEvents() {
	defer d.wg.Done()

	for {
		select {
		case <-d.ctx.Done():
			return

		case event, ok := <-d.watcher.Events:
			if !ok {
				return
			}

			if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Rename) == 0 {
				continue
			}

			// Only the two tracked files matter.
			if !d.tracked(event.Name) {
				continue
			}

			d.logger.Printf("File event: %s %s", event.Op, event.Name)
			d.queueChange(event.Name)

		case err, ok := <-d.watcher.Errors:
			if !ok {
				return
			}
			d.logger.Printf("Watcher error: %v", err)
		}
	}
}

// tracked reports whether path is one of the watched working-copy
// files.
func (d *Daemon) tracked(path string) bool {
	return filepath.Clean(path) == filepath.Clean(d.dataPath) ||
		filepath.Clean(path) == filepath.Clean(d.feedbacksPath)
}

// queueChange records a file event for debounced processing.
func (d *Daemon) queueChange(path string) {
	d.changeQueueMu.Lock()
	defer d.changeQueueMu.Unlock()

	d.changeQueue[filepath.Clean(path)] = time.Now()
}

// processChangeQueue pushes queued file changes once they settle.
func (d *Daemon) processChangeQueue() {
	defer d.wg.Done()

	ticker := time.NewTicker(500 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-d.ctx.Done():
			return

		case <-ticker.C:
			d.processPendingChanges()
		}
	}
}

// processPendingChanges pushes files whose last event is older than
// the debounce interval.
func (d *Daemon) processPendingChanges() {
	d.changeQueueMu.Lock()
	ready := make([]string, 0, len(d.changeQueue))
	now := time.Now()
	for path, queuedAt := range d.changeQueue {
		if now.Sub(queuedAt) < d.config.DebounceInterval {
			continue
		}
		ready = append(ready, path)
		delete(d.changeQueue, path)
	}
	d.changeQueueMu.Unlock()

	for _, path := range ready {
		d.logger.Printf("Pushing change: %s", path)
		if err := d.pushFile(path); err != nil {
			d.logger.Printf("Error pushing %s: %v", path, err)
		}
	}
}

// pushFile uploads one working-copy file to the remote store.
func (d *Daemon) pushFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			// Deleted or mid-rename, the next event will requeue it.
			return nil
		}
		return fmt.Errorf("failed to read %s: %w", path, err)
	}

	ctx, cancel := context.WithTimeout(d.ctx, 60*time.Second)
	defer cancel()

	start := time.Now()

	switch filepath.Clean(path) {
	case filepath.Clean(d.feedbacksPath):
		fbs, err := catalog.DecodeFeedbacks(data)
		if err != nil {
			return fmt.Errorf("refusing to push malformed feedback file: %w", err)
		}
		err = d.pusher.PushFeedbacks(ctx, fbs)
		d.events.SyncComplete("feedbacks", len(fbs), time.Since(start), isConflict(err))
		if err != nil {
			return err
		}
		d.notifyFeedbackDiff(d.store.Feedbacks(), fbs)
		d.store.ReplaceFeedbacks(fbs)
		return nil

	default:
		items, err := catalog.DecodeItems(data)
		if err != nil {
			return fmt.Errorf("refusing to push malformed item file: %w", err)
		}
		if n := catalog.AssignMissingIDs(items); n > 0 {
			d.logger.Printf("Assigned %d missing item ids", n)
			if err := d.rewriteItems(path, items); err != nil {
				d.logger.Printf("Warning: failed to write ids back: %v", err)
			}
		}
		err = d.pusher.OverwriteItems(ctx, items, fmt.Sprintf("Sync %s via shotlib daemon", filepath.Base(path)))
		d.events.SyncComplete("items", len(items), time.Since(start), isConflict(err))
		if err != nil {
			return err
		}
		d.notifyItemDiff(d.store.Items(), items)
		d.store.Replace(items)
		return nil
	}
}

func isConflict(err error) bool {
	return err != nil && errors.Is(err, sync.ErrConcurrentModification)
}

// notifyItemDiff emits per-item events for the transition from old to
// new.
func (d *Daemon) notifyItemDiff(old, new []catalog.Item) {
	prev := make(map[int64]catalog.Item, len(old))
	for _, it := range old {
		prev[it.ID] = it
	}

	seen := make(map[int64]bool, len(new))
	for _, it := range new {
		seen[it.ID] = true
		before, ok := prev[it.ID]
		switch {
		case !ok:
			d.events.ItemChanged(it, "added")
		case before.UpdatedAt != it.UpdatedAt || before.Title != it.Title || before.Text != it.Text:
			d.events.ItemChanged(it, "updated")
		}
	}
	for id, it := range prev {
		if !seen[id] {
			d.events.ItemChanged(it, "deleted")
		}
	}
}

// notifyFeedbackDiff emits per-feedback events for the transition from
// old to new.
func (d *Daemon) notifyFeedbackDiff(old, new []catalog.Feedback) {
	prev := make(map[int64]catalog.Feedback, len(old))
	for _, fb := range old {
		prev[fb.ID] = fb
	}

	for _, fb := range new {
		before, ok := prev[fb.ID]
		switch {
		case !ok:
			d.events.FeedbackChanged(fb, "submitted")
		case before.Status != fb.Status:
			d.events.FeedbackChanged(fb, "resolved")
		}
	}
}

// rewriteItems writes the item slice back to the working copy after id
// assignment, so local and remote agree on identifiers.
func (d *Daemon) rewriteItems(path string, items []catalog.Item) error {
	data, err := catalog.EncodeItems(items)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// refreshLoop periodically reloads the cache from the raw host.
func (d *Daemon) refreshLoop() {
	defer d.wg.Done()

	if d.config.RefreshInterval <= 0 {
		return
	}

	ticker := time.NewTicker(d.config.RefreshInterval)
	defer ticker.Stop()

	for {
		select {
		case <-d.ctx.Done():
			return

		case <-ticker.C:
			ctx, cancel := context.WithTimeout(d.ctx, 60*time.Second)
			err := d.store.Load(ctx)
			cancel()
			if err != nil {
				d.logger.Printf("Error refreshing cache: %v", err)
			}
		}
	}
}

// WriteWorkingCopy dumps the cache contents to the watched files. Used
// by `serve` to seed a working copy before the watcher starts.
func (d *Daemon) WriteWorkingCopy() error {
	if err := os.MkdirAll(filepath.Dir(d.dataPath), 0o755); err != nil {
		return fmt.Errorf("failed to create working directory: %w", err)
	}

	items, err := catalog.EncodeItems(d.store.Items())
	if err != nil {
		return fmt.Errorf("failed to encode items: %w", err)
	}
	if err := os.WriteFile(d.dataPath, items, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", d.dataPath, err)
	}

	fbs, err := catalog.EncodeFeedbacks(d.store.Feedbacks())
	if err != nil {
		return fmt.Errorf("failed to encode feedbacks: %w", err)
	}
	if err := os.WriteFile(d.feedbacksPath, fbs, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", d.feedbacksPath, err)
	}

	return nil
}
