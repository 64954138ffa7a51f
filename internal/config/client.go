package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
)

// ClientConfig configures the donezo command-line client.
type ClientConfig struct {
	APIURL    string   `toml:"api_url"`
	DataDir   string   `toml:"data_dir"`
	Timeout   Duration `toml:"timeout"`
	SentryDSN string   `toml:"sentry_dsn"`
	LogLevel  string   `toml:"log_level"`
}

// Duration decodes TOML strings such as "15s".
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", text, err)
	}
	d.Duration = v
	return nil
}

// DefaultClientPath returns $XDG_CONFIG_HOME/donezo/donezo.toml.
func DefaultClientPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "donezo.toml"
	}
	return filepath.Join(dir, "donezo", "donezo.toml")
}

// LoadClient layers defaults, the TOML file at path (a missing file is not an
// error) and DONEZO_* environment variables.
func LoadClient(path string) (*ClientConfig, error) {
	cfg := &ClientConfig{
		APIURL:   "http://localhost:8080",
		DataDir:  defaultDataDir(),
		Timeout:  Duration{15 * time.Second},
		LogLevel: "warn",
	}

	if path != "" {
		if _, err := toml.DecodeFile(path, cfg); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("read client config %s: %w", path, err)
		}
	}

	cfg.APIURL = getEnv("DONEZO_API_URL", cfg.APIURL)
	cfg.DataDir = getEnv("DONEZO_DATA_DIR", cfg.DataDir)
	cfg.SentryDSN = getEnv("DONEZO_SENTRY_DSN", cfg.SentryDSN)
	cfg.LogLevel = getEnv("DONEZO_LOG_LEVEL", cfg.LogLevel)
	if v := os.Getenv("DONEZO_TIMEOUT"); v != "" {
		cfg.Timeout.Duration = parseDuration(v, cfg.Timeout.Duration)
	}
	return cfg, nil
}

// StorePath is the local store database inside DataDir.
func (c *ClientConfig) StorePath() string {
	return filepath.Join(c.DataDir, "donezo.db")
}

func defaultDataDir() string {
	if dir := os.Getenv("XDG_DATA_HOME"); dir != "" {
		return filepath.Join(dir, "donezo")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ".donezo"
	}
	return filepath.Join(home, ".local", "share", "donezo")
}
