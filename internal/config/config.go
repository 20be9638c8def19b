package config

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// BasicAuthConfig holds HTTP Basic Auth credentials for the Web UI/API.
type BasicAuthConfig struct {
	Username string `yaml:"username" json:"username"`
	Password string `yaml:"password" json:"password"`
}

// BackupConfig controls the periodic snapshot of the data file.
type BackupConfig struct {
	// Cron is a cron-style schedule string (e.g. "0 3 * * *"). Empty
	// disables the backup job.
	Cron string `yaml:"cron" json:"cron"`

	// Dir is where snapshot copies are written. Defaults to a "backups"
	// directory next to the data file.
	Dir string `yaml:"dir" json:"dir"`

	// Keep is how many snapshots to retain; older ones are pruned.
	Keep int `yaml:"keep" json:"keep"`
}

// SnapshotConfig controls the headless-Chromium calendar screenshot.
type SnapshotConfig struct {
	// Enabled gates the /api/snapshot endpoint (requires a local Chromium).
	Enabled bool `yaml:"enabled" json:"enabled"`

	// Width and Height are the capture viewport in pixels.
	Width  int `yaml:"width" json:"width"`
	Height int `yaml:"height" json:"height"`

	// Path is where the PNG preview is written and served from.
	Path string `yaml:"path" json:"path"`
}

// Config is the top-level application configuration.
type Config struct {
	// Listen is the HTTP listen address for the Web UI and API.
	Listen string `yaml:"listen" json:"listen"`

	// DataFile is the JSON event collection path.
	DataFile string `yaml:"data_file" json:"data_file"`

	// Timezone is the IANA timezone used for interpreting dialog
	// times-of-day (e.g. "Europe/Berlin"). Empty means the host's local
	// zone; arithmetic is local-time only.
	Timezone string `yaml:"timezone" json:"timezone"`

	// DefaultColor is applied to events created without an explicit color.
	DefaultColor string `yaml:"default_color" json:"default_color"`

	// ImportHorizonDays bounds how far ahead ICS imports expand
	// recurring events.
	ImportHorizonDays int `yaml:"import_horizon_days" json:"import_horizon_days"`

	// ImportCacheDir is where conditional-GET metadata for ICS URLs lives.
	ImportCacheDir string `yaml:"import_cache_dir" json:"import_cache_dir"`

	Backup   BackupConfig   `yaml:"backup" json:"backup"`
	Snapshot SnapshotConfig `yaml:"snapshot" json:"snapshot"`

	// BasicAuth, if non-nil, enables HTTP Basic Authentication on all
	// endpoints except /health.
	BasicAuth *BasicAuthConfig `yaml:"basic_auth,omitempty" json:"basic_auth,omitempty"`
}

// DefaultConfig returns an in-memory default configuration.
func DefaultConfig() *Config {
	return &Config{
		Listen:            "127.0.0.1:8080",
		DataFile:          "data/events.json",
		Timezone:          "",
		DefaultColor:      "#3b82f6",
		ImportHorizonDays: 365,
		ImportCacheDir:    "data/ics-cache",
		Backup: BackupConfig{
			Cron: "",
			Dir:  "",
			Keep: 7,
		},
		Snapshot: SnapshotConfig{
			Enabled: false,
			Width:   1280,
			Height:  960,
			Path:    "data/preview.png",
		},
		BasicAuth: nil,
	}
}

// Normalize fills in missing/zero values with sensible defaults so that
// partially-filled configs still behave correctly.
func (c *Config) Normalize() {
	if c.Listen == "" {
		c.Listen = "127.0.0.1:8080"
	}
	if c.DataFile == "" {
		c.DataFile = "data/events.json"
	}
	if c.DefaultColor == "" {
		c.DefaultColor = "#3b82f6"
	}
	if c.ImportHorizonDays <= 0 {
		c.ImportHorizonDays = 365
	}
	if c.ImportCacheDir == "" {
		c.ImportCacheDir = "data/ics-cache"
	}
	if c.Backup.Dir == "" {
		c.Backup.Dir = filepath.Join(filepath.Dir(c.DataFile), "backups")
	}
	if c.Backup.Keep <= 0 {
		c.Backup.Keep = 7
	}
	if c.Snapshot.Width <= 0 {
		c.Snapshot.Width = 1280
	}
	if c.Snapshot.Height <= 0 {
		c.Snapshot.Height = 960
	}
	if c.Snapshot.Path == "" {
		c.Snapshot.Path = filepath.Join(filepath.Dir(c.DataFile), "preview.png")
	}
}

// Load loads configuration from the given YAML path.
//
// Behavior:
//   - If the file does not exist:
//   - create parent directory if needed
//   - write a default config with 0600 perms
//   - return the default config
//   - If the file exists:
//   - read YAML and unmarshal into Config
//   - normalize defaults
func Load(path string) (*Config, error) {
	if path == "" {
		return nil, errors.New("config path is empty")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			// First run: create default config file.
			cfg := DefaultConfig()
			cfg.Normalize()
			if err := Save(path, cfg); err != nil {
				// Even if save fails, return cfg with error so caller can decide.
				return cfg, err
			}
			return cfg, nil
		}
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	cfg.Normalize()

	return &cfg, nil
}

// Save writes the given configuration to the specified path.
//
// Implementation details:
//   - Ensures parent directory exists (0700).
//   - Marshals cfg to YAML.
//   - Writes atomically via a temp file + rename.
//   - Ensures final file permissions are 0600.
func Save(path string, cfg *Config) error {
	if path == "" {
		return errors.New("config path is empty")
	}
	if cfg == nil {
		return errors.New("config is nil")
	}

	cfg.Normalize()

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, ".webcal-config-*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmpName, 0o600); err != nil {
		return err
	}
	return os.Rename(tmpName, path)
}
