// Package cache maintains the in-memory mirror of the catalog
// collections plus derived views.
//
// Mutations are optimistic and purely local: Add, Update and Remove
// change only the mirror and are immediately visible to readers. They
// never talk to the remote store. After the sync coordinator commits a
// mutation, Replace installs the server-confirmed collection as the
// new truth; the optimistic projection is never assumed correct.
//
// If the initial live fetch fails, the cache silently falls back to a
// bundled last-known-good snapshot, with nothing louder than a log
// line.
package cache

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"sort"
	"sync"

	"github.com/gorkemtikic/shotlib/internal/catalog"
	"github.com/gorkemtikic/shotlib/internal/remote"
)

// Fetcher reads raw documents from the content host. *remote.Client
// satisfies it.
type Fetcher interface {
	FetchRaw(ctx context.Context, path string) ([]byte, error)
}

// FavoriteStore persists the favorited-title set across runs.
// Favorites are keyed by title, not id; that is the legacy contract of
// the per-device store and toggling one is a purely local operation
// with no remote effect.
type FavoriteStore interface {
	Toggle(title string) (favorited bool, err error)
	IsFavorite(title string) (bool, error)
	List() ([]string, error)
}

// Options configures a Store.
type Options struct {
	// DataPath and FeedbacksPath are the repo-relative document paths
	// used for the live fetch.
	DataPath      string
	FeedbacksPath string

	// Fallback is the bundled last-known-good collection document,
	// used when the live fetch fails. May be nil.
	Fallback []byte

	// Favorites persists the favorite set. Nil keeps favorites
	// in memory only.
	Favorites FavoriteStore

	// Logger for cache activity. Defaults to a stderr logger.
	Logger *log.Logger
}

// Store is the mutex-guarded collection mirror.
type Store struct {
	fetcher Fetcher
	opts    Options
	logger  *log.Logger

	mu        sync.RWMutex
	items     []catalog.Item
	feedbacks []catalog.Feedback

	memFavs map[string]bool // used only when no FavoriteStore is set
}

// New creates a Store. fetcher may be nil for a purely local mirror
// (Load then always uses the fallback snapshot).
func New(fetcher Fetcher, opts Options) *Store {
	if opts.DataPath == "" {
		opts.DataPath = "src/data/data.json"
	}
	if opts.FeedbacksPath == "" {
		opts.FeedbacksPath = "src/data/feedbacks.json"
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.New(os.Stderr, "[cache] ", log.LstdFlags)
	}
	return &Store{
		fetcher: fetcher,
		opts:    opts,
		logger:  logger,
		memFavs: make(map[string]bool),
	}
}

// Load populates the mirror: live collection first, bundled snapshot
// on failure. The feedback document is best-effort on top of either —
// a missing or broken feedbacks.json degrades to "no data", it never
// fails the load. Legacy feedbacks embedded in items are migrated out
// once, here.
func (s *Store) Load(ctx context.Context) error {
	items, live := s.loadItems(ctx)

	var feedbacks []catalog.Feedback
	if live {
		feedbacks = s.loadFeedbacks(ctx)
	}

	catalog.AssignMissingIDs(items)
	items, feedbacks = catalog.MigrateLegacyFeedbacks(items, feedbacks)

	s.mu.Lock()
	s.items = items
	s.feedbacks = feedbacks
	s.mu.Unlock()

	s.logger.Printf("Loaded %d items, %d feedbacks (live=%v)", len(items), len(feedbacks), live)
	return nil
}

// loadItems returns the item collection and whether it came from the
// live document.
func (s *Store) loadItems(ctx context.Context) ([]catalog.Item, bool) {
	if s.fetcher != nil {
		data, err := s.fetcher.FetchRaw(ctx, s.opts.DataPath)
		if err == nil {
			items, derr := catalog.DecodeItems(data)
			if derr == nil {
				return items, true
			}
			err = derr
		}
		s.logger.Printf("Live data fetch failed, using bundled snapshot: %v", err)
	}

	if s.opts.Fallback == nil {
		return []catalog.Item{}, false
	}
	items, err := catalog.DecodeItems(s.opts.Fallback)
	if err != nil {
		s.logger.Printf("Warning: bundled snapshot is unparseable: %v", err)
		return []catalog.Item{}, false
	}
	return items, false
}

// loadFeedbacks reads the feedback document, degrading to empty.
func (s *Store) loadFeedbacks(ctx context.Context) []catalog.Feedback {
	data, err := s.fetcher.FetchRaw(ctx, s.opts.FeedbacksPath)
	if err != nil {
		if !errors.Is(err, remote.ErrNotFound) {
			s.logger.Printf("Could not load feedbacks, starting fresh: %v", err)
		}
		return nil
	}
	fbs, err := catalog.DecodeFeedbacks(data)
	if err != nil {
		s.logger.Printf("Could not parse feedbacks, starting fresh: %v", err)
		return nil
	}
	return fbs
}

// Items returns a copy of the current collection.
func (s *Store) Items() []catalog.Item {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]catalog.Item, len(s.items))
	copy(out, s.items)
	return out
}

// Get returns the item with the given id.
func (s *Store) Get(id int64) (catalog.Item, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, it := range s.items {
		if it.ID == id {
			return it, true
		}
	}
	return catalog.Item{}, false
}

// Len returns the number of items.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.items)
}

// Add prepends an item to the mirror, assigning an id if absent, and
// returns the stored value. Local only.
func (s *Store) Add(item catalog.Item) catalog.Item {
	item.SetDefaults()

	s.mu.Lock()
	defer s.mu.Unlock()
	s.items = append([]catalog.Item{item}, s.items...)
	return item
}

// Update merges a partial patch into the item with the given id.
// Unspecified fields keep their prior values. Local only.
func (s *Store) Update(id int64, patch catalog.ItemPatch) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.items {
		if s.items[i].ID == id {
			patch.Apply(&s.items[i])
			return nil
		}
	}
	return fmt.Errorf("no item with id %d", id)
}

// Remove deletes the item with the given id. Feedback entries that
// reference it are deliberately left alone; they become orphans and
// remain retrievable. Local only.
func (s *Store) Remove(id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.items {
		if s.items[i].ID == id {
			s.items = append(s.items[:i], s.items[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("no item with id %d", id)
}

// Replace installs the server-reconciled collection, discarding
// whatever optimistic state the mirror held.
func (s *Store) Replace(items []catalog.Item) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items = make([]catalog.Item, len(items))
	copy(s.items, items)
}

// Topics returns the distinct non-empty topics, case-preserving,
// sorted ascending by ordinal comparison. Computed on each call.
func (s *Store) Topics() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return distinct(s.items, func(it catalog.Item) string { return it.Topic })
}

// Languages returns the distinct non-empty languages, sorted the same
// way as Topics.
func (s *Store) Languages() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return distinct(s.items, func(it catalog.Item) string { return it.Language })
}

func distinct(items []catalog.Item, key func(catalog.Item) string) []string {
	seen := make(map[string]bool)
	var out []string
	for _, it := range items {
		k := key(it)
		if k == "" || seen[k] {
			continue
		}
		seen[k] = true
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
