package cache

import (
	"context"
	"fmt"
	"io"
	"log"
	"testing"

	"github.com/gorkemtikic/shotlib/internal/catalog"
	"github.com/gorkemtikic/shotlib/internal/remote"
)

// fakeFetcher serves canned documents per path.
type fakeFetcher struct {
	docs map[string][]byte
	errs map[string]error
}

func (f *fakeFetcher) FetchRaw(ctx context.Context, path string) ([]byte, error) {
	if err, ok := f.errs[path]; ok {
		return nil, err
	}
	if doc, ok := f.docs[path]; ok {
		return doc, nil
	}
	return nil, fmt.Errorf("%w: %s", remote.ErrNotFound, path)
}

func quietStore(t *testing.T, fetcher Fetcher, opts Options) *Store {
	t.Helper()

	opts.Logger = log.New(io.Discard, "", 0)
	return New(fetcher, opts)
}

func mustEncode(t *testing.T, items []catalog.Item) []byte {
	t.Helper()

	data, err := catalog.EncodeItems(items)
	if err != nil {
		t.Fatalf("EncodeItems() error: %v", err)
	}
	return data
}

func TestStore_Load_Live(t *testing.T) {
	fetcher := &fakeFetcher{docs: map[string][]byte{
		"src/data/data.json": mustEncode(t, []catalog.Item{
			{ID: 1, Title: "a", Image: "a.png"},
			{ID: 2, Title: "b", Image: "b.png"},
		}),
	}}

	s := quietStore(t, fetcher, Options{})
	if err := s.Load(context.Background()); err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if s.Len() != 2 {
		t.Errorf("Len() = %d, want 2", s.Len())
	}
}

func TestStore_Load_FallsBackToBundledSnapshot(t *testing.T) {
	fetcher := &fakeFetcher{errs: map[string]error{
		"src/data/data.json": fmt.Errorf("%w: host down", remote.ErrTransient),
	}}
	fallback := mustEncode(t, []catalog.Item{{ID: 9, Title: "bundled", Image: "x.png"}})

	s := quietStore(t, fetcher, Options{Fallback: fallback})
	if err := s.Load(context.Background()); err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	items := s.Items()
	if len(items) != 1 || items[0].Title != "bundled" {
		t.Errorf("fallback items = %+v", items)
	}
}

func TestStore_Load_MigratesEmbeddedFeedbacks(t *testing.T) {
	fetcher := &fakeFetcher{docs: map[string][]byte{
		"src/data/data.json": mustEncode(t, []catalog.Item{{
			ID: 1, Title: "a", Image: "a.png",
			Feedbacks: []catalog.Feedback{
				{ID: 50, Message: "legacy note", Timestamp: "2024-01-01T00:00:00Z"},
			},
		}}),
	}}

	s := quietStore(t, fetcher, Options{})
	if err := s.Load(context.Background()); err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	item, _ := s.Get(1)
	if len(item.Feedbacks) != 0 {
		t.Error("embedded feedbacks survived migration")
	}

	fbs := s.FeedbacksForItem(1)
	if len(fbs) != 1 || fbs[0].Message != "legacy note" {
		t.Errorf("migrated feedbacks = %+v", fbs)
	}
	if fbs[0].Status != catalog.FeedbackActive {
		t.Errorf("migrated feedback status = %q, want active", fbs[0].Status)
	}
}

func TestStore_PartialUpdate(t *testing.T) {
	s := quietStore(t, nil, Options{})
	s.Replace([]catalog.Item{{
		ID: 1, Title: "keep me", Text: "original", Topic: "Deposits",
		Language: "English", Platform: "mobile", Image: "one.png",
	}})

	topic := "Withdrawals"
	if err := s.Update(1, catalog.ItemPatch{Topic: &topic}); err != nil {
		t.Fatalf("Update() error: %v", err)
	}

	item, _ := s.Get(1)
	if item.Topic != "Withdrawals" {
		t.Errorf("topic = %q", item.Topic)
	}
	if item.Title != "keep me" || item.Text != "original" || item.Image != "one.png" {
		t.Errorf("Update() clobbered unspecified fields: %+v", item)
	}
}

func TestStore_RemoveLeavesFeedbackOrphaned(t *testing.T) {
	s := quietStore(t, nil, Options{})
	s.Replace([]catalog.Item{{ID: 1, Title: "doomed", Image: "d.png"}})

	fb, err := s.AddFeedback(1, "still matters")
	if err != nil {
		t.Fatalf("AddFeedback() error: %v", err)
	}

	if err := s.Remove(1); err != nil {
		t.Fatalf("Remove() error: %v", err)
	}

	// The item is gone, the feedback is not.
	if _, ok := s.Get(1); ok {
		t.Error("item still present after Remove()")
	}
	orphans := s.FeedbacksForItem(1)
	if len(orphans) != 1 || orphans[0].ID != fb.ID {
		t.Errorf("orphaned feedback lost: %+v", orphans)
	}
}

func TestStore_ResolveFeedback_Idempotent(t *testing.T) {
	s := quietStore(t, nil, Options{})
	fb, err := s.AddFeedback(7, "needs a retake")
	if err != nil {
		t.Fatalf("AddFeedback() error: %v", err)
	}

	if err := s.ResolveFeedback(fb.ID); err != nil {
		t.Fatalf("ResolveFeedback() error: %v", err)
	}
	first := s.FeedbacksForItem(7)[0].ResolvedAt

	if err := s.ResolveFeedback(fb.ID); err != nil {
		t.Fatalf("second ResolveFeedback() error: %v", err)
	}
	if got := s.FeedbacksForItem(7)[0].ResolvedAt; got != first {
		t.Errorf("second resolve changed ResolvedAt from %q to %q", first, got)
	}
}

func TestStore_AddPrepends(t *testing.T) {
	s := quietStore(t, nil, Options{})
	s.Replace([]catalog.Item{{ID: 1, Title: "old", Image: "o.png"}})

	added := s.Add(catalog.Item{Title: "new", Image: "n.png"})
	if added.ID == 0 {
		t.Error("Add() did not assign an id")
	}

	items := s.Items()
	if len(items) != 2 || items[0].Title != "new" {
		t.Errorf("Add() did not prepend: %+v", items)
	}
}

func TestStore_TopicsAndLanguages(t *testing.T) {
	s := quietStore(t, nil, Options{})
	s.Replace([]catalog.Item{
		{ID: 1, Title: "a", Topic: "Deposits", Language: "Turkish", Image: "a.png"},
		{ID: 2, Title: "b", Topic: "Account", Language: "English", Image: "b.png"},
		{ID: 3, Title: "c", Topic: "Deposits", Language: "English", Image: "c.png"},
		{ID: 4, Title: "d", Image: "d.png"}, // empty values are skipped
	})

	topics := s.Topics()
	if len(topics) != 2 || topics[0] != "Account" || topics[1] != "Deposits" {
		t.Errorf("Topics() = %v", topics)
	}

	langs := s.Languages()
	if len(langs) != 2 || langs[0] != "English" || langs[1] != "Turkish" {
		t.Errorf("Languages() = %v", langs)
	}
}

func TestStore_FavoritesInMemory(t *testing.T) {
	s := quietStore(t, nil, Options{})

	on, err := s.ToggleFavorite("Deposit flow")
	if err != nil || !on {
		t.Fatalf("ToggleFavorite() = %v, %v", on, err)
	}
	if fav, _ := s.IsFavorite("Deposit flow"); !fav {
		t.Error("IsFavorite() = false after toggle on")
	}

	if _, err := s.ToggleFavorite("Account page"); err != nil {
		t.Fatalf("ToggleFavorite() error: %v", err)
	}
	favs, err := s.Favorites()
	if err != nil {
		t.Fatalf("Favorites() error: %v", err)
	}
	if len(favs) != 2 || favs[0] != "Account page" {
		t.Errorf("Favorites() = %v, want sorted pair", favs)
	}

	off, err := s.ToggleFavorite("Deposit flow")
	if err != nil || off {
		t.Fatalf("second ToggleFavorite() = %v, %v", off, err)
	}
	if fav, _ := s.IsFavorite("Deposit flow"); fav {
		t.Error("IsFavorite() = true after toggle off")
	}
}

func TestStore_ReplaceInstallsServerTruth(t *testing.T) {
	s := quietStore(t, nil, Options{})
	s.Add(catalog.Item{Title: "optimistic", Image: "x.png"})

	reconciled := []catalog.Item{{ID: 100, Title: "server says", Image: "s.png"}}
	s.Replace(reconciled)

	items := s.Items()
	if len(items) != 1 || items[0].Title != "server says" {
		t.Errorf("Replace() result = %+v", items)
	}
}
