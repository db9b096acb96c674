package remote

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

// newTestClient points a client at the given handler for both the API
// and the raw host.
func newTestClient(t *testing.T, handler http.Handler) (*Client, *httptest.Server) {
	t.Helper()

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	client, err := New(Config{
		Owner:      "acme",
		Repo:       "library",
		Branch:     "main",
		Token:      "test-token",
		APIBaseURL: srv.URL,
		RawBaseURL: srv.URL,
	})
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	return client, srv
}

func TestClient_StatusMapping(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		want   error
	}{
		{"unauthorized", http.StatusUnauthorized, `{"message":"Bad credentials"}`, ErrAuth},
		{"forbidden", http.StatusForbidden, `{"message":"rate limited"}`, ErrAuth},
		{"not found", http.StatusNotFound, `{"message":"Not Found"}`, ErrNotFound},
		{"conflict", http.StatusConflict, `{"message":"sha mismatch"}`, ErrConflict},
		{"unprocessable", http.StatusUnprocessableEntity, `{"message":"Reference cannot be updated"}`, ErrConflict},
		{"server error", http.StatusBadGateway, ``, ErrTransient},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))

			_, err := client.ReadFile(context.Background(), "src/data/data.json", "")
			if !errors.Is(err, tt.want) {
				t.Errorf("ReadFile() error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestClient_ReadFile(t *testing.T) {
	// Body with multi-byte text, encoded the way the API delivers it:
	// base64 with embedded newlines.
	content := `[{"id":1,"title":"充值流程","text":"Varlıklar'a dokunun","language":"Chinese","image":"x.png"}]`
	encoded := base64.StdEncoding.EncodeToString([]byte(content))
	wrapped := encoded[:20] + "\n" + encoded[20:]

	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/repos/acme/library/contents/src/data/data.json" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if got := r.URL.Query().Get("ref"); got != "main" {
			t.Errorf("ref = %q, want main", got)
		}
		if got := r.Header.Get("Authorization"); got != "token test-token" {
			t.Errorf("Authorization = %q", got)
		}
		_ = json.NewEncoder(w).Encode(map[string]string{
			"content":  wrapped,
			"encoding": "base64",
			"sha":      "abc123",
		})
	}))

	fc, err := client.ReadFile(context.Background(), "src/data/data.json", "")
	if err != nil {
		t.Fatalf("ReadFile() error: %v", err)
	}
	if string(fc.Content) != content {
		t.Errorf("ReadFile() content = %q, want %q", fc.Content, content)
	}
	if fc.SHA != "abc123" {
		t.Errorf("ReadFile() sha = %q, want abc123", fc.SHA)
	}
}

func TestClient_PutFile(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPut {
			t.Errorf("method = %s, want PUT", r.Method)
		}

		var body struct {
			Message string `json:"message"`
			Content string `json:"content"`
			Branch  string `json:"branch"`
			SHA     string `json:"sha"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Fatalf("failed to decode request body: %v", err)
		}
		if body.SHA != "oldsha" {
			t.Errorf("sha = %q, want oldsha", body.SHA)
		}
		if body.Branch != "main" {
			t.Errorf("branch = %q, want main", body.Branch)
		}
		decoded, err := base64.StdEncoding.DecodeString(body.Content)
		if err != nil || string(decoded) != "[]" {
			t.Errorf("content = %q (err %v), want base64 of []", body.Content, err)
		}

		_, _ = w.Write([]byte(`{"content":{"sha":"newsha"},"commit":{"sha":"commitsha"}}`))
	}))

	res, err := client.PutFile(context.Background(), "src/data/data.json", []byte("[]"), "oldsha", "Update data.json via shotlib")
	if err != nil {
		t.Fatalf("PutFile() error: %v", err)
	}
	if res.ContentSHA != "newsha" || res.CommitSHA != "commitsha" {
		t.Errorf("PutFile() = %+v", res)
	}
}

func TestClient_PutFile_StaleSHA(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusConflict)
		_, _ = w.Write([]byte(`{"message":"does not match"}`))
	}))

	_, err := client.PutFile(context.Background(), "f.json", []byte("x"), "stale", "m")
	if !errors.Is(err, ErrConflict) {
		t.Errorf("PutFile() with stale sha: error = %v, want ErrConflict", err)
	}
}

func TestClient_VerifyToken(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/user" {
			t.Errorf("path = %s, want /user", r.URL.Path)
		}
		_, _ = w.Write([]byte(`{"login":"octocat"}`))
	}))

	login, err := client.VerifyToken(context.Background())
	if err != nil {
		t.Fatalf("VerifyToken() error: %v", err)
	}
	if login != "octocat" {
		t.Errorf("VerifyToken() = %q, want octocat", login)
	}
}

func TestClient_VerifyToken_NoToken(t *testing.T) {
	client, err := New(Config{Owner: "acme", Repo: "library"})
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}

	_, err = client.VerifyToken(context.Background())
	if !errors.Is(err, ErrAuth) {
		t.Errorf("VerifyToken() without token: error = %v, want ErrAuth", err)
	}
}

func TestClient_FetchRaw(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/acme/library/main/src/data/data.json" {
			t.Errorf("path = %s", r.URL.Path)
		}
		if r.URL.Query().Get("t") == "" {
			t.Error("missing cache-busting query parameter")
		}
		_, _ = w.Write([]byte(`[]`))
	}))

	data, err := client.FetchRaw(context.Background(), "src/data/data.json")
	if err != nil {
		t.Fatalf("FetchRaw() error: %v", err)
	}
	if string(data) != "[]" {
		t.Errorf("FetchRaw() = %q", data)
	}
}

func TestIsRetryable(t *testing.T) {
	if !IsRetryable(ErrTransient) {
		t.Error("ErrTransient should be retryable")
	}
	for _, err := range []error{ErrAuth, ErrNotFound, ErrConflict} {
		if IsRetryable(err) {
			t.Errorf("%v should not be retryable", err)
		}
	}
	if !IsUserActionRequired(ErrConflict) || !IsUserActionRequired(ErrAuth) {
		t.Error("conflict and auth require user action")
	}
}
