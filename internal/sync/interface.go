package sync

import (
	"context"

	"github.com/gorkemtikic/shotlib/internal/remote"
)

// Store is the slice of the hosting API the coordinator needs.
// *remote.Client satisfies it; tests substitute an in-memory fake to
// exercise the failure ordering without a network.
type Store interface {
	// Branch returns the branch all operations target.
	Branch() string

	// GetRef returns the commit sha at the head of the branch.
	GetRef(ctx context.Context, branch string) (string, error)

	// GetCommit returns the tree sha of a commit.
	GetCommit(ctx context.Context, sha string) (string, error)

	// ReadFile reads a file at a ref through the contents endpoint.
	// Returns remote.ErrNotFound when the path is absent at that ref.
	ReadFile(ctx context.Context, path, ref string) (remote.FileContent, error)

	// PutFile is the sha-guarded create-or-replace used by the legacy
	// path. A stale sha surfaces as remote.ErrConflict.
	PutFile(ctx context.Context, path string, content []byte, sha, message string) (remote.PutResult, error)

	// CreateBlob uploads raw bytes and returns the blob sha.
	CreateBlob(ctx context.Context, content []byte) (string, error)

	// CreateTree layers entries on top of baseTreeSHA.
	CreateTree(ctx context.Context, baseTreeSHA string, entries []remote.TreeEntry) (string, error)

	// CreateCommit creates a commit for a tree with a single parent.
	CreateCommit(ctx context.Context, treeSHA, parentSHA, message string) (string, error)

	// UpdateRef moves the branch. With force=false a non-fast-forward
	// update is rejected with remote.ErrConflict; that rejection is
	// the optimistic-concurrency guard this package is built on.
	UpdateRef(ctx context.Context, branch, sha string, force bool) error
}
