// Package config defines service configuration structures and loading hooks.
//
// Conventions:
// - Provide New() to build a Config with defaults.
// - Load layers a YAML file and ROLLCALL_ environment variables on top.
// - Validation failures wrap ErrInvalidConfig.
package config

import (
	"fmt"
	"strings"
	"time"
)

// Frame source kinds.
const (
	FrameSourceDir      = "dir"
	FrameSourceSnapshot = "snapshot"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// Addr configures the status HTTP listen address, e.g. ":9080".
	// An empty value disables the status server.
	Addr string `koanf:"addr"`

	// EnrollDir holds one image per enrolled person; the file stem is the identity.
	EnrollDir string `koanf:"enroll_dir"`

	// LedgerPath is the append-only attendance CSV.
	LedgerPath string `koanf:"ledger_path"`

	// TimeLayout is the Go time layout of the ledger's Time column.
	TimeLayout string `koanf:"time_layout"`

	// MatchThreshold is the exclusive distance bound for a positive match.
	MatchThreshold float64 `koanf:"match_threshold"`

	// EmbeddingURL is the base URL of the face embedding service.
	EmbeddingURL string `koanf:"embedding_url"`

	// EmbeddingTimeoutMS bounds a single embedding request.
	EmbeddingTimeoutMS int `koanf:"embedding_timeout_ms"`

	// FrameSource selects where live frames come from: dir or snapshot.
	FrameSource string `koanf:"frame_source"`

	// FrameDir is read in name order when FrameSource is dir.
	FrameDir string `koanf:"frame_dir"`

	// SnapshotURL is polled when FrameSource is snapshot.
	SnapshotURL string `koanf:"snapshot_url"`

	// SnapshotIntervalMS is the polling period for SnapshotURL.
	SnapshotIntervalMS int `koanf:"snapshot_interval_ms"`

	// QueueSize bounds the frame hand-off between capture and matching.
	QueueSize int `koanf:"queue_size"`

	// QuitKey ends the session when read from stdin.
	QuitKey string `koanf:"quit_key"`

	// EnrollProgress renders a progress bar while the roster is built.
	EnrollProgress bool `koanf:"enroll_progress"`
}

// New creates a Config populated with defaults.
func New() *Config {
	return &Config{
		LogLevel:           "info",
		Addr:               ":9080",
		EnrollDir:          "images",
		LedgerPath:         "attendance.csv",
		TimeLayout:         "2006-01-02 15:04:05",
		MatchThreshold:     0.6,
		EmbeddingURL:       "http://localhost:8000",
		EmbeddingTimeoutMS: 10_000,
		FrameSource:        FrameSourceDir,
		FrameDir:           "frames",
		SnapshotIntervalMS: 200,
		QueueSize:          4,
		QuitKey:            "q",
		EnrollProgress:     true,
	}
}

// EmbeddingTimeout returns EmbeddingTimeoutMS as a duration.
func (c *Config) EmbeddingTimeout() time.Duration {
	return time.Duration(c.EmbeddingTimeoutMS) * time.Millisecond
}

// SnapshotInterval returns SnapshotIntervalMS as a duration.
func (c *Config) SnapshotInterval() time.Duration {
	return time.Duration(c.SnapshotIntervalMS) * time.Millisecond
}

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	switch {
	case c.EnrollDir == "":
		return fmt.Errorf("%w: enroll_dir must not be empty", ErrInvalidConfig)
	case c.LedgerPath == "":
		return fmt.Errorf("%w: ledger_path must not be empty", ErrInvalidConfig)
	case c.TimeLayout == "":
		return fmt.Errorf("%w: time_layout must not be empty", ErrInvalidConfig)
	case c.MatchThreshold <= 0:
		return fmt.Errorf("%w: match_threshold must be positive, got %v", ErrInvalidConfig, c.MatchThreshold)
	case c.EmbeddingURL == "":
		return fmt.Errorf("%w: embedding_url must not be empty", ErrInvalidConfig)
	case c.QueueSize < 1:
		return fmt.Errorf("%w: queue_size must be at least 1, got %d", ErrInvalidConfig, c.QueueSize)
	case len([]rune(c.QuitKey)) != 1:
		return fmt.Errorf("%w: quit_key must be a single character", ErrInvalidConfig)
	}

	switch strings.ToLower(c.FrameSource) {
	case FrameSourceDir:
		if c.FrameDir == "" {
			return fmt.Errorf("%w: frame_dir must not be empty", ErrInvalidConfig)
		}
	case FrameSourceSnapshot:
		if c.SnapshotURL == "" {
			return fmt.Errorf("%w: snapshot_url must not be empty", ErrInvalidConfig)
		}
		if c.SnapshotIntervalMS < 0 {
			return fmt.Errorf("%w: snapshot_interval_ms must not be negative", ErrInvalidConfig)
		}
	default:
		return fmt.Errorf("%w: unknown frame_source %q", ErrInvalidConfig, c.FrameSource)
	}
	return nil
}
