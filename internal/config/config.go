package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

const (
	// FilePermissions is the default permission mode for regular files (read/write for owner, read for others)
	FilePermissions = 0644
	// DirPermissions is the default permission mode for directories (rwxr-xr-x)
	DirPermissions = 0755

	// DefaultConfigPath is the endpoint file read when none is given
	DefaultConfigPath = "./ballast.json"
	// DefaultSnapshotPath is the snapshot history file
	DefaultSnapshotPath = "./.ballast_snapshot.json"
	// DotEnvFile is loaded into the environment before settings are parsed
	DotEnvFile = ".env"
)

// Snapshot store backends
const (
	StoreJSON   = "json"
	StoreSQLite = "sqlite"
)

// Settings are process-level options read from the environment
type Settings struct {
	ConfigPath     string        `env:"BALLAST_CONFIG" envDefault:"./ballast.json"`
	SnapshotPath   string        `env:"BALLAST_SNAPSHOT" envDefault:"./.ballast_snapshot.json"`
	Store          string        `env:"BALLAST_STORE" envDefault:"json"`
	LogLevel       string        `env:"BALLAST_LOG_LEVEL" envDefault:"warn"`
	LogFormat      string        `env:"BALLAST_LOG_FORMAT" envDefault:"console"`
	Output         string        `env:"BALLAST_OUTPUT" envDefault:"text"`
	RequestTimeout time.Duration `env:"BALLAST_REQUEST_TIMEOUT" envDefault:"0s"`
}

// LoadSettings reads Settings from the environment, loading .env first if present.
// Variables already set in the environment win over .env entries.
func LoadSettings() (*Settings, error) {
	if _, err := os.Stat(DotEnvFile); err == nil {
		if err := godotenv.Load(DotEnvFile); err != nil {
			return nil, fmt.Errorf("failed to load %s: %w", DotEnvFile, err)
		}
	}

	settings := &Settings{}
	if err := env.Parse(settings); err != nil {
		return nil, fmt.Errorf("failed to parse environment settings: %w", err)
	}

	if err := settings.Validate(); err != nil {
		return nil, err
	}

	return settings, nil
}

// Validate checks enumerated settings
func (s *Settings) Validate() error {
	switch s.Store {
	case StoreJSON, StoreSQLite:
	default:
		return fmt.Errorf("unknown snapshot store %q (expected %s or %s)", s.Store, StoreJSON, StoreSQLite)
	}
	if s.RequestTimeout < 0 {
		return fmt.Errorf("request timeout cannot be negative")
	}
	return nil
}

// EnsureParentDir creates the directory holding path if it does not exist
func EnsureParentDir(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, DirPermissions); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", dir, err)
	}
	return nil
}
