package remote

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
)

// TreeEntry describes one path in a tree to be created. Exactly one of
// SHA or Content must be set: SHA references an existing blob (binary
// assets go through CreateBlob first), Content inlines a UTF-8 text
// file.
type TreeEntry struct {
	Path    string `json:"path"`
	Mode    string `json:"mode"`
	Type    string `json:"type"`
	SHA     string `json:"sha,omitempty"`
	Content string `json:"content,omitempty"`
}

// FileMode is the tree mode for a regular file.
const FileMode = "100644"

// GetRef returns the commit sha the branch currently points at.
func (c *Client) GetRef(ctx context.Context, branch string) (string, error) {
	url := fmt.Sprintf("%s/repos/%s/%s/git/ref/heads/%s",
		c.cfg.APIBaseURL, c.cfg.Owner, c.cfg.Repo, branch)

	data, err := c.do(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", fmt.Errorf("failed to read ref %s: %w", branch, err)
	}

	var payload struct {
		Object struct {
			SHA string `json:"sha"`
		} `json:"object"`
	}
	if err := json.Unmarshal(data, &payload); err != nil {
		return "", fmt.Errorf("failed to parse ref response: %w", err)
	}
	return payload.Object.SHA, nil
}

// GetCommit returns the tree sha of the given commit. The coordinator
// needs it to build the next tree atop the base commit.
func (c *Client) GetCommit(ctx context.Context, sha string) (string, error) {
	url := fmt.Sprintf("%s/repos/%s/%s/git/commits/%s",
		c.cfg.APIBaseURL, c.cfg.Owner, c.cfg.Repo, sha)

	data, err := c.do(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", fmt.Errorf("failed to read commit %s: %w", sha, err)
	}

	var payload struct {
		Tree struct {
			SHA string `json:"sha"`
		} `json:"tree"`
	}
	if err := json.Unmarshal(data, &payload); err != nil {
		return "", fmt.Errorf("failed to parse commit response: %w", err)
	}
	return payload.Tree.SHA, nil
}

// CreateBlob uploads raw bytes as a blob object and returns its sha.
// Content is transported base64-encoded, which keeps binary assets and
// multi-byte text intact.
func (c *Client) CreateBlob(ctx context.Context, content []byte) (string, error) {
	url := fmt.Sprintf("%s/repos/%s/%s/git/blobs",
		c.cfg.APIBaseURL, c.cfg.Owner, c.cfg.Repo)

	body := map[string]string{
		"content":  base64.StdEncoding.EncodeToString(content),
		"encoding": "base64",
	}

	data, err := c.do(ctx, http.MethodPost, url, body)
	if err != nil {
		return "", fmt.Errorf("failed to create blob: %w", err)
	}

	var payload struct {
		SHA string `json:"sha"`
	}
	if err := json.Unmarshal(data, &payload); err != nil {
		return "", fmt.Errorf("failed to parse blob response: %w", err)
	}
	return payload.SHA, nil
}

// CreateTree creates a tree containing the given entries layered on
// top of baseTreeSHA and returns the new tree's sha.
func (c *Client) CreateTree(ctx context.Context, baseTreeSHA string, entries []TreeEntry) (string, error) {
	if len(entries) == 0 {
		return "", fmt.Errorf("cannot create an empty tree")
	}

	url := fmt.Sprintf("%s/repos/%s/%s/git/trees",
		c.cfg.APIBaseURL, c.cfg.Owner, c.cfg.Repo)

	body := map[string]any{
		"base_tree": baseTreeSHA,
		"tree":      entries,
	}

	data, err := c.do(ctx, http.MethodPost, url, body)
	if err != nil {
		return "", fmt.Errorf("failed to create tree: %w", err)
	}

	var payload struct {
		SHA string `json:"sha"`
	}
	if err := json.Unmarshal(data, &payload); err != nil {
		return "", fmt.Errorf("failed to parse tree response: %w", err)
	}
	return payload.SHA, nil
}

// CreateCommit creates a commit for treeSHA parented on parentSHA and
// returns the new commit's sha.
func (c *Client) CreateCommit(ctx context.Context, treeSHA, parentSHA, message string) (string, error) {
	url := fmt.Sprintf("%s/repos/%s/%s/git/commits",
		c.cfg.APIBaseURL, c.cfg.Owner, c.cfg.Repo)

	body := map[string]any{
		"message": message,
		"tree":    treeSHA,
		"parents": []string{parentSHA},
	}

	data, err := c.do(ctx, http.MethodPost, url, body)
	if err != nil {
		return "", fmt.Errorf("failed to create commit: %w", err)
	}

	var payload struct {
		SHA string `json:"sha"`
	}
	if err := json.Unmarshal(data, &payload); err != nil {
		return "", fmt.Errorf("failed to parse commit response: %w", err)
	}
	return payload.SHA, nil
}

// UpdateRef moves the branch to the given commit.
//
// With force=false the remote rejects the update unless it is a
// fast-forward from the branch's current position; a concurrent writer
// that advanced the branch first therefore surfaces as ErrConflict.
// This check is the serialization point for the whole write protocol.
func (c *Client) UpdateRef(ctx context.Context, branch, sha string, force bool) error {
	url := fmt.Sprintf("%s/repos/%s/%s/git/refs/heads/%s",
		c.cfg.APIBaseURL, c.cfg.Owner, c.cfg.Repo, branch)

	body := map[string]any{
		"sha":   sha,
		"force": force,
	}

	if _, err := c.do(ctx, http.MethodPatch, url, body); err != nil {
		return fmt.Errorf("failed to update ref %s: %w", branch, err)
	}
	return nil
}
