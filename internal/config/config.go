// Package config loads shotlib configuration from file, environment,
// and defaults.
//
// Precedence, highest first: SHOTLIB_* environment variables, the
// config file, built-in defaults. The access token is deliberately not
// part of the file; it lives in the local state database (or the
// SHOTLIB_TOKEN variable for CI use).
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// Config is the root application configuration.
type Config struct {
	Repo      RepoConfig      `mapstructure:"repo" yaml:"repo"`
	Paths     PathsConfig     `mapstructure:"paths" yaml:"paths"`
	Analytics AnalyticsConfig `mapstructure:"analytics" yaml:"analytics"`
	Dashboard DashboardConfig `mapstructure:"dashboard" yaml:"dashboard"`
	Daemon    DaemonConfig    `mapstructure:"daemon" yaml:"daemon"`
	StateDB   string          `mapstructure:"state_db" yaml:"state_db"`
	LogFile   string          `mapstructure:"log_file" yaml:"log_file"`
}

// RepoConfig identifies the hosted repository backing the library.
type RepoConfig struct {
	Owner      string `mapstructure:"owner" yaml:"owner"`
	Name       string `mapstructure:"name" yaml:"name"`
	Branch     string `mapstructure:"branch" yaml:"branch"`
	APIBaseURL string `mapstructure:"api_base_url" yaml:"api_base_url"`
	RawBaseURL string `mapstructure:"raw_base_url" yaml:"raw_base_url"`
}

// PathsConfig locates the library documents inside the repository and
// the local working copy on disk.
type PathsConfig struct {
	Data       string `mapstructure:"data" yaml:"data"`
	Feedbacks  string `mapstructure:"feedbacks" yaml:"feedbacks"`
	AssetsDir  string `mapstructure:"assets_dir" yaml:"assets_dir"`
	WorkingDir string `mapstructure:"working_dir" yaml:"working_dir"`
}

// AnalyticsConfig holds usage reporting settings. An empty endpoint
// disables reporting entirely.
type AnalyticsConfig struct {
	Endpoint string `mapstructure:"endpoint" yaml:"endpoint"`
}

// DashboardConfig holds local dashboard settings.
type DashboardConfig struct {
	Port int `mapstructure:"port" yaml:"port"`
}

// DaemonConfig holds background sync settings.
type DaemonConfig struct {
	RefreshInterval  string `mapstructure:"refresh_interval" yaml:"refresh_interval"`
	DebounceInterval string `mapstructure:"debounce_interval" yaml:"debounce_interval"`
}

// Refresh parses the refresh interval, falling back to 5 minutes.
func (c DaemonConfig) Refresh() time.Duration {
	d, err := time.ParseDuration(c.RefreshInterval)
	if err != nil || d <= 0 {
		return 5 * time.Minute
	}
	return d
}

// Debounce parses the debounce interval, falling back to 2 seconds.
func (c DaemonConfig) Debounce() time.Duration {
	d, err := time.ParseDuration(c.DebounceInterval)
	if err != nil || d <= 0 {
		return 2 * time.Second
	}
	return d
}

// DefaultDir returns the per-user configuration directory.
func DefaultDir() string {
	if dir := os.Getenv("SHOTLIB_CONFIG_DIR"); dir != "" {
		return dir
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ".shotlib"
	}
	return filepath.Join(home, ".shotlib")
}

// DefaultPath returns the default config file location.
func DefaultPath() string {
	return filepath.Join(DefaultDir(), "config.yaml")
}

func setDefaults(v *viper.Viper) {
	// Keys with no natural default still need registering so that
	// AutomaticEnv can bind them during Unmarshal.
	v.SetDefault("repo.owner", "")
	v.SetDefault("repo.name", "")
	v.SetDefault("analytics.endpoint", "")
	v.SetDefault("repo.branch", "main")
	v.SetDefault("repo.api_base_url", "https://api.github.com")
	v.SetDefault("repo.raw_base_url", "https://raw.githubusercontent.com")
	v.SetDefault("paths.data", "src/data/data.json")
	v.SetDefault("paths.feedbacks", "src/data/feedbacks.json")
	v.SetDefault("paths.assets_dir", "public/screenshots")
	v.SetDefault("paths.working_dir", filepath.Join(DefaultDir(), "working"))
	v.SetDefault("dashboard.port", 8080)
	v.SetDefault("daemon.refresh_interval", "5m")
	v.SetDefault("daemon.debounce_interval", "2s")
	v.SetDefault("state_db", filepath.Join(DefaultDir(), "state.db"))
	v.SetDefault("log_file", "")
}

// Load reads configuration from the given file path. An empty path
// falls back to the default location; a missing file is not an error,
// defaults and environment still apply.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("SHOTLIB")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path == "" {
		path = DefaultPath()
	}
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	if err := v.ReadInConfig(); err != nil {
		if !os.IsNotExist(err) {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return nil, fmt.Errorf("failed to read config %s: %w", path, err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	return &cfg, nil
}

// Validate checks that the settings required for remote operations are
// present.
func (c *Config) Validate() error {
	if c.Repo.Owner == "" {
		return fmt.Errorf("repo.owner is required (set it in %s or SHOTLIB_REPO_OWNER)", DefaultPath())
	}
	if c.Repo.Name == "" {
		return fmt.Errorf("repo.name is required (set it in %s or SHOTLIB_REPO_NAME)", DefaultPath())
	}
	return nil
}

// WorkingDataPath returns the working-copy location of the item file.
func (c *Config) WorkingDataPath() string {
	return filepath.Join(c.Paths.WorkingDir, filepath.Base(c.Paths.Data))
}

// WorkingFeedbacksPath returns the working-copy location of the
// feedback file.
func (c *Config) WorkingFeedbacksPath() string {
	return filepath.Join(c.Paths.WorkingDir, filepath.Base(c.Paths.Feedbacks))
}

// WriteStarter writes a starter config file at path, refusing to
// clobber an existing one.
func WriteStarter(path string) error {
	if path == "" {
		path = DefaultPath()
	}
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists: %s", path)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	starter := Config{
		Repo: RepoConfig{
			Owner:      "your-github-user",
			Name:       "your-library-repo",
			Branch:     "main",
			APIBaseURL: "https://api.github.com",
			RawBaseURL: "https://raw.githubusercontent.com",
		},
		Paths: PathsConfig{
			Data:       "src/data/data.json",
			Feedbacks:  "src/data/feedbacks.json",
			AssetsDir:  "public/screenshots",
			WorkingDir: filepath.Join(DefaultDir(), "working"),
		},
		Dashboard: DashboardConfig{Port: 8080},
		Daemon: DaemonConfig{
			RefreshInterval:  "5m",
			DebounceInterval: "2s",
		},
		StateDB: filepath.Join(DefaultDir(), "state.db"),
	}

	data, err := yaml.Marshal(&starter)
	if err != nil {
		return fmt.Errorf("failed to marshal starter config: %w", err)
	}

	header := []byte("# shotlib configuration. Environment variables with the SHOTLIB_\n# prefix override any value here, e.g. SHOTLIB_REPO_OWNER.\n")
	if err := os.WriteFile(path, append(header, data...), 0o644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}
