package config_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/okian/rollcall/internal/config"
	"github.com/smartystreets/goconvey/convey"
)

func TestConfigNew(t *testing.T) {
	convey.Convey("Given default configuration", t, func() {
		cfg := config.New()

		convey.Convey("Then the defaults describe a valid session", func() {
			convey.So(cfg.MatchThreshold, convey.ShouldEqual, 0.6)
			convey.So(cfg.LedgerPath, convey.ShouldEqual, "attendance.csv")
			convey.So(cfg.TimeLayout, convey.ShouldEqual, "2006-01-02 15:04:05")
			convey.So(cfg.EnrollDir, convey.ShouldEqual, "images")
			convey.So(cfg.QuitKey, convey.ShouldEqual, "q")
			convey.So(cfg.FrameSource, convey.ShouldEqual, config.FrameSourceDir)
			convey.So(cfg.Validate(), convey.ShouldBeNil)
		})
	})
}

func TestConfigLoader(t *testing.T) {
	convey.Convey("Given a config loader", t, func() {
		ctx := context.Background()
		clearConfigEnvVars()

		convey.Convey("When loading config with defaults only", func() {
			cfg, err := config.Load(ctx)

			convey.Convey("Then it should load successfully with defaults", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":9080")
				convey.So(cfg.QueueSize, convey.ShouldEqual, 4)
				convey.So(cfg.MatchThreshold, convey.ShouldEqual, 0.6)
			})
		})

		convey.Convey("When loading config with environment variables", func() {
			_ = os.Setenv("ROLLCALL_MATCH_THRESHOLD", "0.45")
			_ = os.Setenv("ROLLCALL_LEDGER_PATH", "/tmp/ledger.csv")
			_ = os.Setenv("ROLLCALL_QUEUE_SIZE", "16")
			_ = os.Setenv("ROLLCALL_ENROLL_PROGRESS", "false")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should override defaults with env vars", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.MatchThreshold, convey.ShouldEqual, 0.45)
				convey.So(cfg.LedgerPath, convey.ShouldEqual, "/tmp/ledger.csv")
				convey.So(cfg.QueueSize, convey.ShouldEqual, 16)
				convey.So(cfg.EnrollProgress, convey.ShouldBeFalse)
			})
		})

		convey.Convey("When loading config with both file and environment variables", func() {
			tmpFile := createTempConfigFile(t, `
addr: ":9090"
enroll_dir: "/srv/faces"
frame_source: snapshot
snapshot_url: "http://camera.local/snapshot.jpg"
snapshot_interval_ms: 500
`)
			_ = os.Setenv("ROLLCALL_CONFIG", tmpFile)
			_ = os.Setenv("ROLLCALL_ADDR", ":8080")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then environment variables should override file values", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":8080")
				convey.So(cfg.EnrollDir, convey.ShouldEqual, "/srv/faces")
				convey.So(cfg.FrameSource, convey.ShouldEqual, config.FrameSourceSnapshot)
				convey.So(cfg.SnapshotInterval().Milliseconds(), convey.ShouldEqual, 500)
				convey.So(cfg.LedgerPath, convey.ShouldEqual, "attendance.csv")
			})
		})

		convey.Convey("When loading config with invalid YAML file", func() {
			tmpFile := createTempConfigFile(t, `invalid: yaml: content: [`)
			_ = os.Setenv("ROLLCALL_CONFIG", tmpFile)
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should return a load error", func() {
				convey.So(errors.Is(err, config.ErrLoadConfig), convey.ShouldBeTrue)
				convey.So(cfg, convey.ShouldBeNil)
			})
		})

		convey.Convey("When loading config with non-existent file", func() {
			_ = os.Setenv("ROLLCALL_CONFIG", "/non/existent/file.yaml")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should return an error", func() {
				convey.So(errors.Is(err, config.ErrLoadConfig), convey.ShouldBeTrue)
				convey.So(cfg, convey.ShouldBeNil)
			})
		})

		convey.Convey("When loading config with invalid numeric environment variables", func() {
			_ = os.Setenv("ROLLCALL_QUEUE_SIZE", "invalid")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should return an error", func() {
				convey.So(err, convey.ShouldNotBeNil)
				convey.So(cfg, convey.ShouldBeNil)
			})
		})
	})
}

func TestConfigValidate(t *testing.T) {
	convey.Convey("Given a default config", t, func() {
		cfg := config.New()

		convey.Convey("When the threshold is not positive", func() {
			cfg.MatchThreshold = 0

			convey.So(errors.Is(cfg.Validate(), config.ErrInvalidConfig), convey.ShouldBeTrue)
		})

		convey.Convey("When the ledger path is empty", func() {
			cfg.LedgerPath = ""

			convey.So(cfg.Validate().Error(), convey.ShouldContainSubstring, "ledger_path")
		})

		convey.Convey("When the time layout is empty", func() {
			cfg.TimeLayout = ""

			convey.So(cfg.Validate().Error(), convey.ShouldContainSubstring, "time_layout")
		})

		convey.Convey("When the quit key is more than one character", func() {
			cfg.QuitKey = "qq"

			convey.So(errors.Is(cfg.Validate(), config.ErrInvalidConfig), convey.ShouldBeTrue)
		})

		convey.Convey("When the queue is empty", func() {
			cfg.QueueSize = 0

			convey.So(errors.Is(cfg.Validate(), config.ErrInvalidConfig), convey.ShouldBeTrue)
		})

		convey.Convey("When snapshot capture has no URL", func() {
			cfg.FrameSource = config.FrameSourceSnapshot

			convey.So(cfg.Validate().Error(), convey.ShouldContainSubstring, "snapshot_url")
		})

		convey.Convey("When the frame source is unknown", func() {
			cfg.FrameSource = "webcam0"

			convey.So(cfg.Validate().Error(), convey.ShouldContainSubstring, "frame_source")
		})

		convey.Convey("When the status server is disabled", func() {
			cfg.Addr = ""

			convey.So(cfg.Validate(), convey.ShouldBeNil)
		})
	})
}

func clearConfigEnvVars() {
	for _, key := range []string{
		"ROLLCALL_CONFIG",
		"ROLLCALL_ADDR",
		"ROLLCALL_MATCH_THRESHOLD",
		"ROLLCALL_LEDGER_PATH",
		"ROLLCALL_QUEUE_SIZE",
		"ROLLCALL_ENROLL_PROGRESS",
	} {
		_ = os.Unsetenv(key)
	}
}

func createTempConfigFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "rollcall.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}
