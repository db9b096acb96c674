package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"

	"github.com/gorkemtikic/shotlib/internal/analytics"
	"github.com/gorkemtikic/shotlib/internal/cache"
	"github.com/gorkemtikic/shotlib/internal/config"
	"github.com/gorkemtikic/shotlib/internal/localstate"
	"github.com/gorkemtikic/shotlib/internal/remote"
	"github.com/gorkemtikic/shotlib/internal/sync"
)

// app bundles the wired components behind every command.
type app struct {
	cfg       *config.Config
	state     *localstate.Store
	client    *remote.Client
	coord     *sync.Coordinator
	store     *cache.Store
	analytics *analytics.Logger
	logger    *log.Logger
}

// newApp loads config and opens the local state database. When
// needRemote is set it also builds the remote client and sync
// coordinator, which requires repo coordinates and a token.
func newApp(ctx context.Context, needRemote bool) (*app, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}

	logger := log.New(io.Discard, "", 0)
	if verbose {
		logger = log.New(os.Stderr, "[shotlib] ", log.LstdFlags)
	}

	state, err := localstate.Open(cfg.StateDB)
	if err != nil {
		return nil, fmt.Errorf("failed to open state database: %w", err)
	}

	a := &app{cfg: cfg, state: state, logger: logger}

	deviceID, err := state.DeviceID(ctx)
	if err != nil {
		deviceID = "unknown"
		logger.Printf("Device id unavailable: %v", err)
	}
	a.analytics = analytics.New(cfg.Analytics.Endpoint, deviceID, logger)

	if !needRemote {
		return a, nil
	}

	if err := cfg.Validate(); err != nil {
		state.Close()
		return nil, err
	}

	token := os.Getenv("SHOTLIB_TOKEN")
	if token == "" {
		token, err = state.Token(ctx)
		if err != nil {
			state.Close()
			return nil, fmt.Errorf("failed to read stored token: %w", err)
		}
	}
	if token == "" {
		state.Close()
		return nil, fmt.Errorf("no access token configured, run 'shotlib auth login' first")
	}

	client, err := remote.New(remote.Config{
		Owner:      cfg.Repo.Owner,
		Repo:       cfg.Repo.Name,
		Branch:     cfg.Repo.Branch,
		Token:      token,
		APIBaseURL: cfg.Repo.APIBaseURL,
		RawBaseURL: cfg.Repo.RawBaseURL,
	})
	if err != nil {
		state.Close()
		return nil, err
	}
	a.client = client

	coord, err := sync.New(client, sync.Options{
		DataPath:      cfg.Paths.Data,
		FeedbacksPath: cfg.Paths.Feedbacks,
		AssetsDir:     cfg.Paths.AssetsDir,
		Logger:        logger,
	})
	if err != nil {
		state.Close()
		return nil, err
	}
	a.coord = coord

	a.store = cache.New(client, cache.Options{
		DataPath:      cfg.Paths.Data,
		FeedbacksPath: cfg.Paths.Feedbacks,
		Favorites:     state.Favorites(),
		Logger:        logger,
	})

	return a, nil
}

// Close releases the app's resources.
func (a *app) Close() {
	if a.state != nil {
		if err := a.state.Close(); err != nil {
			a.logger.Printf("Error closing state database: %v", err)
		}
	}
}

// load populates the cache from the remote library.
func (a *app) load(ctx context.Context) error {
	if err := a.store.Load(ctx); err != nil {
		return fmt.Errorf("failed to load library: %w", err)
	}
	return nil
}
