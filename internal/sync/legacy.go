package sync

import (
	"context"
	"errors"
	"fmt"

	"github.com/gorkemtikic/shotlib/internal/catalog"
	"github.com/gorkemtikic/shotlib/internal/remote"
)

// OverwriteItems rewrites the whole item collection through the legacy
// contents path: read the current sha, then a single sha-guarded PUT.
//
// A missing document is tolerated as "create new file". A stale sha is
// rejected by the remote and surfaces as remote.ErrConflict; unlike
// the atomic path this is not wrapped as ErrConcurrentModification
// because the caller is expected to show it to the user as a
// refresh-and-retry instruction, not to re-run a mutation.
func (c *Coordinator) OverwriteItems(ctx context.Context, items []catalog.Item, message string) error {
	encoded, err := catalog.EncodeItems(items)
	if err != nil {
		return err
	}
	if message == "" {
		message = "Update data.json via shotlib"
	}
	return c.overwrite(ctx, c.opts.DataPath, encoded, message)
}

// PushFeedbacks rewrites the feedback document through the legacy
// path. Feedback writes never bundle an asset, so the narrower
// guarantee is enough.
func (c *Coordinator) PushFeedbacks(ctx context.Context, fbs []catalog.Feedback) error {
	encoded, err := catalog.EncodeFeedbacks(fbs)
	if err != nil {
		return err
	}
	return c.overwrite(ctx, c.opts.FeedbacksPath, encoded, "Update feedbacks.json via shotlib")
}

// overwrite performs the two-step read-sha-then-put sequence.
func (c *Coordinator) overwrite(ctx context.Context, path string, content []byte, message string) error {
	sha := ""
	fc, err := c.store.ReadFile(ctx, path, "")
	switch {
	case err == nil:
		sha = fc.SHA
	case errors.Is(err, remote.ErrNotFound):
		// First write creates the file.
	default:
		return fmt.Errorf("failed to read current %s: %w", path, err)
	}

	if _, err := c.store.PutFile(ctx, path, content, sha, message); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}

	c.logger.Printf("Overwrote %s (%d bytes)", path, len(content))
	return nil
}
