package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("SHOTLIB_CONFIG_DIR", t.TempDir())

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "main", cfg.Repo.Branch)
	assert.Equal(t, "https://api.github.com", cfg.Repo.APIBaseURL)
	assert.Equal(t, "https://raw.githubusercontent.com", cfg.Repo.RawBaseURL)
	assert.Equal(t, "src/data/data.json", cfg.Paths.Data)
	assert.Equal(t, "src/data/feedbacks.json", cfg.Paths.Feedbacks)
	assert.Equal(t, "public/screenshots", cfg.Paths.AssetsDir)
	assert.Equal(t, 8080, cfg.Dashboard.Port)
	assert.Equal(t, 5*time.Minute, cfg.Daemon.Refresh())
	assert.Equal(t, 2*time.Second, cfg.Daemon.Debounce())
}

func TestLoad_FileAndEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
repo:
  owner: acme
  name: library
  branch: develop
daemon:
  refresh_interval: 30s
`), 0o644))

	// Environment wins over the file.
	t.Setenv("SHOTLIB_REPO_OWNER", "someone-else")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "someone-else", cfg.Repo.Owner)
	assert.Equal(t, "library", cfg.Repo.Name)
	assert.Equal(t, "develop", cfg.Repo.Branch)
	assert.Equal(t, 30*time.Second, cfg.Daemon.Refresh())
}

func TestLoad_MissingFileIsFine(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "main", cfg.Repo.Branch)
}

func TestLoad_MalformedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("repo: [broken"), 0o644))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	cfg := &Config{}
	assert.ErrorContains(t, cfg.Validate(), "repo.owner")

	cfg.Repo.Owner = "acme"
	assert.ErrorContains(t, cfg.Validate(), "repo.name")

	cfg.Repo.Name = "library"
	assert.NoError(t, cfg.Validate())
}

func TestDaemonConfig_IntervalFallbacks(t *testing.T) {
	tests := []struct {
		raw  string
		want time.Duration
	}{
		{"10s", 10 * time.Second},
		{"", 5 * time.Minute},
		{"garbage", 5 * time.Minute},
		{"-1m", 5 * time.Minute},
	}
	for _, tt := range tests {
		got := DaemonConfig{RefreshInterval: tt.raw}.Refresh()
		assert.Equal(t, tt.want, got, "refresh %q", tt.raw)
	}

	assert.Equal(t, 2*time.Second, DaemonConfig{}.Debounce())
	assert.Equal(t, time.Second, DaemonConfig{DebounceInterval: "1s"}.Debounce())
}

func TestWorkingPaths(t *testing.T) {
	cfg := &Config{
		Paths: PathsConfig{
			Data:       "src/data/data.json",
			Feedbacks:  "src/data/feedbacks.json",
			WorkingDir: "/tmp/work",
		},
	}
	assert.Equal(t, filepath.Join("/tmp/work", "data.json"), cfg.WorkingDataPath())
	assert.Equal(t, filepath.Join("/tmp/work", "feedbacks.json"), cfg.WorkingFeedbacksPath())
}

func TestWriteStarter(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")

	require.NoError(t, WriteStarter(path))

	// The starter round-trips through Load.
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "your-github-user", cfg.Repo.Owner)
	assert.Equal(t, 8080, cfg.Dashboard.Port)

	// A second init refuses to clobber.
	assert.ErrorContains(t, WriteStarter(path), "already exists")
}
