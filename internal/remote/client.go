// Package remote provides a typed client for the content-hosting API
// that backs the screenshot library.
//
// The collection lives as JSON documents in a git repository exposed
// over a GitHub-style REST API. Two write paths exist:
//
//  1. The contents path: a single-file create-or-replace PUT guarded
//     by the file's last-known sha (the legacy path).
//  2. The git-object path: blob → tree → commit → ref update, which
//     gives multi-file atomicity and a branch-level concurrency guard
//     (used by the sync coordinator).
//
// All operations are fail-fast: errors map onto the sentinel taxonomy
// in errors.go and the client never retries on its own.
package remote

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// Config holds the repository coordinates and credential for a Client.
// There are no process-global defaults; callers construct a Config
// explicitly and pass it to New.
type Config struct {
	// Owner and Repo identify the content repository.
	Owner string
	Repo  string

	// Branch is the single branch all reads and writes target.
	Branch string

	// Token is the bearer credential. Operations that write (and the
	// authenticated read endpoints) fail with ErrAuth without it.
	Token string

	// APIBaseURL overrides the REST API endpoint. Defaults to the
	// public GitHub API.
	APIBaseURL string

	// RawBaseURL overrides the raw content host used by FetchRaw.
	RawBaseURL string

	// HTTPClient overrides the HTTP client. Defaults to a client with
	// a 30 second timeout.
	HTTPClient *http.Client
}

const (
	defaultAPIBaseURL = "https://api.github.com"
	defaultRawBaseURL = "https://raw.githubusercontent.com"
	userAgent         = "shotlib"
)

// Client performs operations against the hosting API.
type Client struct {
	cfg  Config
	http *http.Client
}

// New creates a Client from the given configuration.
func New(cfg Config) (*Client, error) {
	if cfg.Owner == "" || cfg.Repo == "" {
		return nil, fmt.Errorf("owner and repo are required")
	}
	if cfg.Branch == "" {
		cfg.Branch = "main"
	}
	if cfg.APIBaseURL == "" {
		cfg.APIBaseURL = defaultAPIBaseURL
	}
	if cfg.RawBaseURL == "" {
		cfg.RawBaseURL = defaultRawBaseURL
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	return &Client{cfg: cfg, http: httpClient}, nil
}

// Branch returns the branch this client targets.
func (c *Client) Branch() string {
	return c.cfg.Branch
}

// FileContent is the result of reading a file through the contents
// endpoint: the decoded bytes plus the blob sha needed for a safe
// follow-up write.
type FileContent struct {
	Content []byte
	SHA     string
}

// apiError is the error envelope the hosting API returns.
type apiError struct {
	Message string `json:"message"`
}

// do issues a request with auth headers and maps non-2xx responses
// onto the sentinel error taxonomy. The response body is returned for
// 2xx responses and must be decoded by the caller.
func (c *Client) do(ctx context.Context, method, url string, body any) ([]byte, error) {
	var reqBody io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to encode request body: %w", err)
		}
		reqBody = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Accept", "application/vnd.github.v3+json")
	req.Header.Set("User-Agent", userAgent)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.cfg.Token != "" {
		req.Header.Set("Authorization", "token "+c.cfg.Token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTransient, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: reading response: %v", ErrTransient, err)
	}

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return data, nil
	}

	var ae apiError
	_ = json.Unmarshal(data, &ae)
	msg := ae.Message
	if msg == "" {
		msg = http.StatusText(resp.StatusCode)
	}

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return nil, fmt.Errorf("%w: %s", ErrAuth, msg)
	case resp.StatusCode == http.StatusNotFound:
		return nil, fmt.Errorf("%w: %s", ErrNotFound, msg)
	case resp.StatusCode == http.StatusConflict || resp.StatusCode == http.StatusUnprocessableEntity:
		return nil, fmt.Errorf("%w: %s", ErrConflict, msg)
	case resp.StatusCode >= 500:
		return nil, fmt.Errorf("%w: %s (status %d)", ErrTransient, msg, resp.StatusCode)
	default:
		return nil, fmt.Errorf("unexpected status %d: %s", resp.StatusCode, msg)
	}
}

// ReadFile reads a file through the contents endpoint at the given
// ref. An empty ref reads the configured branch.
//
// Returns ErrNotFound if the path does not exist at the ref.
func (c *Client) ReadFile(ctx context.Context, path, ref string) (FileContent, error) {
	if ref == "" {
		ref = c.cfg.Branch
	}
	url := fmt.Sprintf("%s/repos/%s/%s/contents/%s?ref=%s",
		c.cfg.APIBaseURL, c.cfg.Owner, c.cfg.Repo, path, ref)

	data, err := c.do(ctx, http.MethodGet, url, nil)
	if err != nil {
		return FileContent{}, fmt.Errorf("failed to read %s: %w", path, err)
	}

	var payload struct {
		Content  string `json:"content"`
		Encoding string `json:"encoding"`
		SHA      string `json:"sha"`
	}
	if err := json.Unmarshal(data, &payload); err != nil {
		return FileContent{}, fmt.Errorf("failed to parse contents response for %s: %w", path, err)
	}

	content, err := decodeBase64(payload.Content)
	if err != nil {
		return FileContent{}, fmt.Errorf("failed to decode content of %s: %w", path, err)
	}

	return FileContent{Content: content, SHA: payload.SHA}, nil
}

// PutResult describes a completed contents-endpoint write.
type PutResult struct {
	ContentSHA string
	CommitSHA  string
}

// PutFile creates or replaces a single file through the contents
// endpoint. sha is the blob sha from the last read; pass an empty sha
// to create a new file. The remote rejects the write with ErrConflict
// when the sha is stale.
//
// This is the legacy, non-atomic path: it cannot bundle an asset with
// a collection update. The coordinator uses the git-object path
// instead.
func (c *Client) PutFile(ctx context.Context, path string, content []byte, sha, message string) (PutResult, error) {
	url := fmt.Sprintf("%s/repos/%s/%s/contents/%s",
		c.cfg.APIBaseURL, c.cfg.Owner, c.cfg.Repo, path)

	body := map[string]any{
		"message": message,
		"content": base64.StdEncoding.EncodeToString(content),
		"branch":  c.cfg.Branch,
	}
	if sha != "" {
		body["sha"] = sha
	}

	data, err := c.do(ctx, http.MethodPut, url, body)
	if err != nil {
		return PutResult{}, fmt.Errorf("failed to put %s: %w", path, err)
	}

	var payload struct {
		Content struct {
			SHA string `json:"sha"`
		} `json:"content"`
		Commit struct {
			SHA string `json:"sha"`
		} `json:"commit"`
	}
	if err := json.Unmarshal(data, &payload); err != nil {
		return PutResult{}, fmt.Errorf("failed to parse put response for %s: %w", path, err)
	}

	return PutResult{ContentSHA: payload.Content.SHA, CommitSHA: payload.Commit.SHA}, nil
}

// VerifyToken checks the configured credential against the identity
// endpoint and returns the authenticated login. A bad credential
// surfaces as ErrAuth.
func (c *Client) VerifyToken(ctx context.Context) (string, error) {
	if c.cfg.Token == "" {
		return "", fmt.Errorf("%w: no token configured", ErrAuth)
	}

	data, err := c.do(ctx, http.MethodGet, c.cfg.APIBaseURL+"/user", nil)
	if err != nil {
		return "", fmt.Errorf("token verification failed: %w", err)
	}

	var payload struct {
		Login string `json:"login"`
	}
	if err := json.Unmarshal(data, &payload); err != nil {
		return "", fmt.Errorf("failed to parse identity response: %w", err)
	}
	return payload.Login, nil
}

// FetchRaw reads a file from the raw content host on the configured
// branch, with a cache-busting query so a freshly committed document
// is never served stale.
func (c *Client) FetchRaw(ctx context.Context, path string) ([]byte, error) {
	url := fmt.Sprintf("%s/%s/%s/%s/%s?t=%d",
		c.cfg.RawBaseURL, c.cfg.Owner, c.cfg.Repo, c.cfg.Branch, path, time.Now().UnixMilli())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build raw request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTransient, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
	case resp.StatusCode >= 500:
		return nil, fmt.Errorf("%w: raw fetch of %s (status %d)", ErrTransient, path, resp.StatusCode)
	case resp.StatusCode != http.StatusOK:
		return nil, fmt.Errorf("unexpected status %d fetching %s", resp.StatusCode, path)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: reading %s: %v", ErrTransient, path, err)
	}
	return data, nil
}

// decodeBase64 decodes contents-endpoint payloads, which arrive
// base64-encoded with embedded newlines. The decoded bytes are the
// exact stored file, so UTF-8 text survives byte-for-byte.
func decodeBase64(s string) ([]byte, error) {
	cleaned := strings.Map(func(r rune) rune {
		if r == '\n' || r == '\r' || r == ' ' {
			return -1
		}
		return r
	}, s)
	return base64.StdEncoding.DecodeString(cleaned)
}
