package history

import (
	"path/filepath"
	"strings"
	"time"

	"codeberg.org/mutker/eveenergy/internal/errors"
)

const (
	defaultDirPerm       = 0o755
	defaultMaxEntries    = 7 * 24 * 60
	defaultBatchSize     = 16
	defaultFlushInterval = 30 * time.Second
	backupDirName        = "backups"
)

// Config controls how much history is kept and how it is persisted.
type Config struct {
	// Dir holds the history database. Empty keeps history in memory only.
	Dir           string
	MaxEntries    int
	BatchSize     int
	FlushInterval time.Duration
	// Debug enables debug-level diagnostics from the recorder.
	Debug bool
}

func DefaultConfig() Config {
	return Config{
		MaxEntries:    defaultMaxEntries,
		BatchSize:     defaultBatchSize,
		FlushInterval: defaultFlushInterval,
	}
}

func (c Config) Validate() error {
	errFactory := errors.New()

	if c.MaxEntries <= 0 {
		return errFactory.WithData(ErrInvalidConfig, "max_entries must be positive")
	}
	if c.Dir != "" && c.BatchSize <= 0 {
		return errFactory.WithData(ErrInvalidConfig, "batch_size must be positive")
	}
	if c.Dir != "" && c.FlushInterval <= 0 {
		return errFactory.WithData(ErrInvalidConfig, "flush_interval must be positive")
	}
	return nil
}

// DBPath returns the database file used for the device called name, or ""
// when history is not persisted.
func (c Config) DBPath(name string) string {
	if c.Dir == "" {
		return ""
	}
	return filepath.Join(c.Dir, fileName(name))
}

func fileName(name string) string {
	slug := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		case r >= 'A' && r <= 'Z':
			return r + ('a' - 'A')
		default:
			return '_'
		}
	}, strings.TrimSpace(name))
	if slug == "" {
		slug = "device"
	}
	return slug + ".history.db"
}
