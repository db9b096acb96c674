package sync

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"path"
	"strings"
	"time"
	"unicode"

	"github.com/gorkemtikic/shotlib/internal/catalog"
	"github.com/gorkemtikic/shotlib/internal/remote"
)

// Op identifies the logical mutation a coordinator invocation applies.
type Op int

const (
	// OpAdd prepends a new item to the collection.
	OpAdd Op = iota
	// OpUpdate merges a partial patch into an existing item.
	OpUpdate
	// OpDelete removes an item. Feedback entries referencing it are
	// left untouched in their own document.
	OpDelete
)

// String returns a human-readable representation of the operation.
func (op Op) String() string {
	switch op {
	case OpAdd:
		return "add"
	case OpUpdate:
		return "update"
	case OpDelete:
		return "delete"
	default:
		return "unknown"
	}
}

// Asset is an image upload bundled with a mutation. Name is the
// original filename; only its sanitized form ever reaches the
// repository.
type Asset struct {
	Name string
	Data []byte
}

// Mutation describes one logical change to the item collection.
//
// OpAdd uses Item (ID assigned if zero) and optionally Asset.
// OpUpdate uses ID and Patch, optionally Asset (the patch's image
// reference is then filled in from the upload). OpDelete uses ID only.
type Mutation struct {
	Op    Op
	Item  *catalog.Item
	Patch *catalog.ItemPatch
	ID    int64
	Asset *Asset
}

// Options configures a Coordinator.
type Options struct {
	// DataPath is the repo-relative path of the item collection
	// document, e.g. "src/data/data.json".
	DataPath string

	// FeedbacksPath is the repo-relative path of the feedback
	// document.
	FeedbacksPath string

	// AssetsDir is the repo-relative directory uploads are committed
	// under, e.g. "public/screenshots".
	AssetsDir string

	// AssetRefPrefix is prepended to the asset filename to form the
	// item's image reference as the deployed site resolves it, e.g.
	// "screenshots/".
	AssetRefPrefix string

	// Logger for coordinator activity. Defaults to a stderr logger.
	Logger *log.Logger
}

// Coordinator applies logical mutations to the remote collection as
// single commits with conflict detection. See the package
// documentation for the protocol.
type Coordinator struct {
	store  Store
	opts   Options
	logger *log.Logger
}

// New creates a Coordinator over the given store.
func New(store Store, opts Options) (*Coordinator, error) {
	if store == nil {
		return nil, fmt.Errorf("store cannot be nil")
	}
	if opts.DataPath == "" {
		return nil, fmt.Errorf("data path cannot be empty")
	}
	if opts.FeedbacksPath == "" {
		opts.FeedbacksPath = path.Join(path.Dir(opts.DataPath), "feedbacks.json")
	}
	if opts.AssetsDir == "" {
		opts.AssetsDir = "public/screenshots"
	}
	if opts.AssetRefPrefix == "" {
		opts.AssetRefPrefix = "screenshots/"
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.New(os.Stderr, "[sync] ", log.LstdFlags)
	}
	return &Coordinator{store: store, opts: opts, logger: logger}, nil
}

// Apply performs one mutation as a single commit and returns the
// collection as committed, which the caller must install as its new
// local state.
//
// The seven steps are strictly sequential; each consumes the sha the
// previous one produced. On a concurrent writer the final ref update
// fails and the whole attempt surfaces as ErrConcurrentModification
// with nothing visible at the branch head.
func (c *Coordinator) Apply(ctx context.Context, mut Mutation) ([]catalog.Item, error) {
	branch := c.store.Branch()

	// Step 1: observe the branch head.
	baseCommit, err := c.store.GetRef(ctx, branch)
	if err != nil {
		return nil, fmt.Errorf("failed to read branch head: %w", err)
	}

	// Step 2: read the collection as of that commit.
	items, err := c.readItems(ctx, baseCommit)
	if err != nil {
		return nil, err
	}

	// Step 3: upload the bundled asset, if any. The blob is invisible
	// until the ref update lands, so a failure after this point leaves
	// no partial write behind.
	var assetEntry *remote.TreeEntry
	if mut.Asset != nil {
		blobSHA, err := c.store.CreateBlob(ctx, mut.Asset.Data)
		if err != nil {
			return nil, fmt.Errorf("failed to upload asset: %w", err)
		}
		filename := AssetFileName(mut.Asset.Name, time.Now())
		assetEntry = &remote.TreeEntry{
			Path: path.Join(c.opts.AssetsDir, filename),
			Mode: remote.FileMode,
			Type: "blob",
			SHA:  blobSHA,
		}
		ref := c.opts.AssetRefPrefix + filename

		switch mut.Op {
		case OpAdd:
			mut.Item.Image = ref
		case OpUpdate:
			if mut.Patch == nil {
				mut.Patch = &catalog.ItemPatch{}
			}
			mut.Patch.Image = &ref
		}
	}

	// Step 4: apply the mutation in memory.
	items, desc, err := applyMutation(items, mut)
	if err != nil {
		return nil, err
	}

	// Step 5: serialize and build the new tree atop the base commit.
	encoded, err := catalog.EncodeItems(items)
	if err != nil {
		return nil, err
	}
	dataBlobSHA, err := c.store.CreateBlob(ctx, encoded)
	if err != nil {
		return nil, fmt.Errorf("failed to upload collection document: %w", err)
	}

	baseTree, err := c.store.GetCommit(ctx, baseCommit)
	if err != nil {
		return nil, fmt.Errorf("failed to read base commit: %w", err)
	}

	entries := []remote.TreeEntry{{
		Path: c.opts.DataPath,
		Mode: remote.FileMode,
		Type: "blob",
		SHA:  dataBlobSHA,
	}}
	if assetEntry != nil {
		entries = append(entries, *assetEntry)
	}

	treeSHA, err := c.store.CreateTree(ctx, baseTree, entries)
	if err != nil {
		return nil, fmt.Errorf("failed to create tree: %w", err)
	}

	// Step 6: commit parented on the observed head.
	message := fmt.Sprintf("%s via shotlib", desc)
	commitSHA, err := c.store.CreateCommit(ctx, treeSHA, baseCommit, message)
	if err != nil {
		return nil, fmt.Errorf("failed to create commit: %w", err)
	}

	// Step 7: conditional ref update. force=false makes a concurrent
	// writer lose exactly one of the two races.
	if err := c.store.UpdateRef(ctx, branch, commitSHA, false); err != nil {
		if errors.Is(err, remote.ErrConflict) {
			return nil, fmt.Errorf("%w: %v", ErrConcurrentModification, err)
		}
		return nil, fmt.Errorf("failed to advance branch: %w", err)
	}

	c.logger.Printf("Committed %s (%d items) as %.12s", desc, len(items), commitSHA)
	return items, nil
}

// readItems fetches and parses the item collection at a ref. A missing
// document is treated as an empty collection so the very first commit
// can create it; a present but unparseable one is fatal to the
// attempt.
func (c *Coordinator) readItems(ctx context.Context, ref string) ([]catalog.Item, error) {
	fc, err := c.store.ReadFile(ctx, c.opts.DataPath, ref)
	if err != nil {
		if errors.Is(err, remote.ErrNotFound) {
			return []catalog.Item{}, nil
		}
		return nil, fmt.Errorf("failed to read collection: %w", err)
	}

	items, err := catalog.DecodeItems(fc.Content)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptRemoteState, err)
	}
	return items, nil
}

// applyMutation applies mut to items and returns the new collection
// plus a short description for the commit message.
func applyMutation(items []catalog.Item, mut Mutation) ([]catalog.Item, string, error) {
	switch mut.Op {
	case OpAdd:
		if mut.Item == nil {
			return nil, "", fmt.Errorf("add mutation requires an item")
		}
		item := *mut.Item
		item.SetDefaults()
		if err := item.Validate(); err != nil {
			return nil, "", fmt.Errorf("invalid item: %w", err)
		}
		items = append([]catalog.Item{item}, items...)
		return items, fmt.Sprintf("Add %q", item.Title), nil

	case OpUpdate:
		if mut.Patch == nil || mut.Patch.IsZero() {
			return nil, "", fmt.Errorf("update mutation requires a non-empty patch")
		}
		for i := range items {
			if items[i].ID == mut.ID {
				mut.Patch.Apply(&items[i])
				if err := items[i].Validate(); err != nil {
					return nil, "", fmt.Errorf("invalid item after update: %w", err)
				}
				return items, fmt.Sprintf("Update %q", items[i].Title), nil
			}
		}
		return nil, "", fmt.Errorf("%w: %d", ErrNoSuchItem, mut.ID)

	case OpDelete:
		for i := range items {
			if items[i].ID == mut.ID {
				title := items[i].Title
				items = append(items[:i], items[i+1:]...)
				return items, fmt.Sprintf("Delete %q", title), nil
			}
		}
		return nil, "", fmt.Errorf("%w: %d", ErrNoSuchItem, mut.ID)

	default:
		return nil, "", fmt.Errorf("unknown mutation op %d", mut.Op)
	}
}

// AssetFileName builds the collision-resistant repository filename for
// an uploaded asset: the upload instant in unix milliseconds plus the
// sanitized original name, with every run of non-alphanumeric
// characters (the extension dot aside) collapsed to a single dash.
func AssetFileName(original string, at time.Time) string {
	base := path.Base(original)
	ext := path.Ext(base)
	stem := strings.TrimSuffix(base, ext)

	var b strings.Builder
	lastDash := true // suppress a leading dash
	for _, r := range stem {
		if unicode.IsLetter(r) && r < unicode.MaxASCII || unicode.IsDigit(r) && r < unicode.MaxASCII {
			b.WriteRune(r)
			lastDash = false
			continue
		}
		if !lastDash {
			b.WriteByte('-')
			lastDash = true
		}
	}
	cleaned := strings.TrimSuffix(b.String(), "-")
	if cleaned == "" {
		cleaned = "upload"
	}

	ext = strings.ToLower(ext)
	if ext == "" || strings.ContainsFunc(ext[1:], func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	}) {
		ext = ".png"
	}

	return fmt.Sprintf("%d_%s%s", at.UnixMilli(), cleaned, ext)
}
