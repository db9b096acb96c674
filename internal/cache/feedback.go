package cache

import (
	"fmt"
	"sort"
	"time"

	"github.com/gorkemtikic/shotlib/internal/catalog"
)

// Feedbacks returns a copy of the current feedback collection,
// including entries whose item has since been deleted.
func (s *Store) Feedbacks() []catalog.Feedback {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]catalog.Feedback, len(s.feedbacks))
	copy(out, s.feedbacks)
	return out
}

// FeedbacksForItem returns the feedbacks referencing the given item
// id, newest first.
func (s *Store) FeedbacksForItem(itemID int64) []catalog.Feedback {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []catalog.Feedback
	for _, f := range s.feedbacks {
		if f.ItemID == itemID {
			out = append(out, f)
		}
	}
	return out
}

// AddFeedback creates an active feedback for the item and prepends it
// to the mirror. The item does not have to exist: a feedback is a weak
// reference and may legitimately outlive its item.
func (s *Store) AddFeedback(itemID int64, message string) (catalog.Feedback, error) {
	fb, err := catalog.NewFeedback(itemID, message)
	if err != nil {
		return catalog.Feedback{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.feedbacks = append([]catalog.Feedback{fb}, s.feedbacks...)
	return fb, nil
}

// ResolveFeedback transitions a feedback to resolved. Resolving an
// already resolved feedback is a no-op, not an error: Status stays
// resolved and ResolvedAt keeps its original instant.
func (s *Store) ResolveFeedback(id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.feedbacks {
		if s.feedbacks[i].ID == id {
			s.feedbacks[i].Resolve(time.Now())
			return nil
		}
	}
	return fmt.Errorf("no feedback with id %d", id)
}

// ReplaceFeedbacks installs a server-reconciled feedback collection.
func (s *Store) ReplaceFeedbacks(fbs []catalog.Feedback) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.feedbacks = make([]catalog.Feedback, len(fbs))
	copy(s.feedbacks, fbs)
}

// ToggleFavorite flips the favorite state of a title and reports the
// new state. Favorites live in the per-device store, independent of
// the remote collection.
func (s *Store) ToggleFavorite(title string) (bool, error) {
	if s.opts.Favorites != nil {
		return s.opts.Favorites.Toggle(title)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.memFavs[title] {
		delete(s.memFavs, title)
		return false, nil
	}
	s.memFavs[title] = true
	return true, nil
}

// IsFavorite reports whether a title is favorited.
func (s *Store) IsFavorite(title string) (bool, error) {
	if s.opts.Favorites != nil {
		return s.opts.Favorites.IsFavorite(title)
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.memFavs[title], nil
}

// Favorites returns the favorited titles, sorted ascending.
func (s *Store) Favorites() ([]string, error) {
	if s.opts.Favorites != nil {
		return s.opts.Favorites.List()
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, 0, len(s.memFavs))
	for t := range s.memFavs {
		out = append(out, t)
	}
	sort.Strings(out)
	return out, nil
}
