// Package analytics sends usage events to the external tracking
// endpoint and computes the library statistics shown on the dashboard.
//
// Event delivery is fire-and-forget: a single HTTP GET with the event
// encoded in the query string, response body unread, no retry. A
// failed send costs one debug log line and nothing else; analytics
// must never make a catalog operation fail.
package analytics

import (
	"context"
	"encoding/json"
	"io"
	"log"
	"net/http"
	"net/url"
	"os"
	"runtime"
	"time"
)

// Logger delivers events to the tracking endpoint.
type Logger struct {
	endpoint string
	deviceID string
	http     *http.Client
	logger   *log.Logger
}

// New creates a Logger. An empty endpoint disables delivery entirely:
// Log becomes a no-op and FetchInteractionStats reports no data.
func New(endpoint, deviceID string, logger *log.Logger) *Logger {
	if logger == nil {
		logger = log.New(os.Stderr, "[analytics] ", log.LstdFlags)
	}
	return &Logger{
		endpoint: endpoint,
		deviceID: deviceID,
		http:     &http.Client{Timeout: 10 * time.Second},
		logger:   logger,
	}
}

// Log sends one event with free-form key/value context. Best-effort:
// errors are logged and swallowed, the response is discarded.
func (l *Logger) Log(ctx context.Context, event string, extra map[string]string) {
	if l.endpoint == "" {
		return
	}

	params := url.Values{}
	params.Set("event", event)
	params.Set("uid", l.deviceID)
	params.Set("platform", runtime.GOOS)
	for k, v := range extra {
		if v != "" {
			params.Set(k, v)
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		l.endpoint+"?"+params.Encode(), nil)
	if err != nil {
		l.logger.Printf("Failed to build event request: %v", err)
		return
	}

	resp, err := l.http.Do(req)
	if err != nil {
		l.logger.Printf("Event %s not delivered: %v", event, err)
		return
	}
	// Delivery is all that matters; drain and move on.
	_, _ = io.Copy(io.Discard, resp.Body)
	_ = resp.Body.Close()
}

// InteractionStats is the usage summary the tracking endpoint can
// optionally report back.
type InteractionStats struct {
	UniqueUsers   int    `json:"uniqueUsers"`
	TopScreenshot string `json:"topScreenshot"`
	TotalClicks   int    `json:"totalClicks"`
}

// FetchInteractionStats asks the endpoint for aggregated usage data.
// Any failure degrades to (nil, nil): the caller renders "no data"
// rather than erroring the whole view.
func (l *Logger) FetchInteractionStats(ctx context.Context) (*InteractionStats, error) {
	if l.endpoint == "" {
		return nil, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		l.endpoint+"?getStats=true", nil)
	if err != nil {
		return nil, nil
	}

	resp, err := l.http.Do(req)
	if err != nil {
		l.logger.Printf("Stats fetch failed: %v", err)
		return nil, nil
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		l.logger.Printf("Stats fetch failed: status %d", resp.StatusCode)
		return nil, nil
	}

	var stats InteractionStats
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&stats); err != nil {
		l.logger.Printf("Stats response unparseable: %v", err)
		return nil, nil
	}
	return &stats, nil
}
