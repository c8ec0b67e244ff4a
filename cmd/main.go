package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/okian/rollcall/internal/adapters/frames"
	"github.com/okian/rollcall/internal/adapters/http/api"
	"github.com/okian/rollcall/internal/adapters/operator"
	"github.com/okian/rollcall/internal/adapters/provider"
	"github.com/okian/rollcall/internal/adapters/render"
	"github.com/okian/rollcall/internal/adapters/repository"
	app "github.com/okian/rollcall/internal/app"
	"github.com/okian/rollcall/internal/config"
	"github.com/okian/rollcall/internal/domain/dedupe"
	"github.com/okian/rollcall/internal/domain/ledger"
	"github.com/okian/rollcall/internal/domain/matching"
	"github.com/okian/rollcall/internal/domain/model"
	"github.com/okian/rollcall/internal/domain/roster"
	"github.com/okian/rollcall/pkg/logger"
	"github.com/okian/rollcall/pkg/metrics"
)

// HTTP server timeout constants.
const (
	readTimeout               = 10 * time.Second
	writeTimeout              = 10 * time.Second
	idleTimeout               = 60 * time.Second
	readHeaderTimeout         = 5 * time.Second
	shutdownTimeout           = 30 * time.Second
	systemMetricsInterval     = 10 * time.Second
	nanosecondsPerMillisecond = 1e6
	embeddingIdleConns        = 4
)

var rootCmd = &cobra.Command{
	Use:   "rollcall",
	Short: "Log first sightings of enrolled faces to an attendance CSV",
	Long: `rollcall enrolls one face per image in the enrollment directory, then
watches a frame source and appends "Name,Time" to the attendance ledger the
first time each enrolled person is seen in a session.

Type the quit key (default q) and press enter to end the session.`,
	Args:          cobra.NoArgs,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          runSession,
}

func init() {
	cobra.OnInitialize(initEnv)
}

func initEnv() {
	// .env file is optional, don't fail if not found
	_ = godotenv.Load()
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "rollcall: "+err.Error())
		os.Exit(1)
	}
}

// setup initializes logging and loads configuration for every command.
func setup(ctx context.Context) (*config.Config, logger.Logger, error) {
	if err := logger.Init(); err != nil {
		return nil, nil, fmt.Errorf("failed to initialize logging: %w", err)
	}
	lg := logger.Get()

	cfg, err := config.Load(ctx)
	if err != nil {
		return nil, nil, err
	}

	// Apply configured log level (fallback to info on invalid input)
	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		lg.Warn(ctx, "invalid log_level; falling back to info", logger.String("log_level", cfg.LogLevel), logger.Error(err))
		_ = logger.SetLevelString("info")
	}
	return cfg, lg, nil
}

// newEncoder returns the embedding client. Enrollment and live frames hit the
// same host back to back, so idle connections are kept for reuse.
func newEncoder(cfg *config.Config) *provider.HTTPClient {
	client := &http.Client{Transport: &http.Transport{
		Proxy:               http.ProxyFromEnvironment,
		MaxIdleConnsPerHost: embeddingIdleConns,
		IdleConnTimeout:     idleTimeout,
	}}
	return provider.NewHTTPClient(cfg.EmbeddingURL,
		provider.WithHTTPClient(client),
		provider.WithTimeout(cfg.EmbeddingTimeout()),
	)
}

func buildRoster(ctx context.Context, cfg *config.Config, enc provider.Encoder, lg logger.Logger) []model.RosterEntry {
	opts := []roster.Option{roster.WithLogger(lg)}
	if cfg.EnrollProgress {
		opts = append(opts, roster.WithProgress(os.Stderr))
	}
	return roster.Build(ctx, roster.NewDirSource(cfg.EnrollDir), enc, opts...)
}

func openFrames(cfg *config.Config) (frames.Source, error) {
	switch strings.ToLower(cfg.FrameSource) {
	case config.FrameSourceSnapshot:
		return frames.NewSnapshotSource(cfg.SnapshotURL, frames.WithInterval(cfg.SnapshotInterval())), nil
	default:
		return frames.OpenDir(cfg.FrameDir)
	}
}

func runSession(_ *cobra.Command, _ []string) error {
	// Root context with cancel on SIGINT/SIGTERM or the operator quit key.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	ctx, quit := context.WithCancel(ctx)
	defer quit()

	cfg, lg, err := setup(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	enc := newEncoder(cfg)
	enrolled := buildRoster(ctx, cfg, enc, lg)
	lg.Info(ctx, "roster ready", logger.Int("identities", len(enrolled)), logger.String("dir", cfg.EnrollDir))

	store, err := repository.OpenCSVStore(cfg.LedgerPath, repository.WithTimeLayout(cfg.TimeLayout))
	if err != nil {
		return fmt.Errorf("%w: %w", app.ErrLedgerWrite, err)
	}
	book := ledger.New(store,
		ledger.WithDeduper(dedupe.NewInMemoryDeduper(dedupe.WithCapacityHint(len(enrolled)))),
		ledger.WithLogger(lg),
	)
	defer func() {
		if err := book.Close(); err != nil {
			lg.Error(ctx, "ledger close failed", logger.Error(err))
		}
	}()

	src, err := openFrames(cfg)
	if err != nil {
		return fmt.Errorf("%w: %w", app.ErrDevice, err)
	}
	defer func() { _ = src.Close() }()

	svc := app.New(
		app.WithFrames(src),
		app.WithEncoder(enc),
		app.WithMatcher(matching.NewMatcher(matching.WithThreshold(cfg.MatchThreshold))),
		app.WithRoster(enrolled),
		app.WithLedger(book),
		app.WithRenderer(render.NewLogRenderer(lg)),
		app.WithLogger(lg),
		app.WithQueueSize(cfg.QueueSize),
	)

	go operator.WatchQuit(ctx, os.Stdin, cfg.QuitKey, quit)
	go startSystemMetricsUpdater(ctx)

	var srv *http.Server
	if cfg.Addr != "" {
		srv = startHTTPServer(ctx, cfg.Addr, svc, lg)
	}

	lg.Info(ctx, "type the quit key and press enter to stop", logger.String("quit_key", cfg.QuitKey))
	runErr := svc.Run(ctx)

	if srv != nil {
		// Graceful shutdown with timeout
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			lg.Error(ctx, "server shutdown failed", logger.Error(err))
		}
	}

	switch {
	case errors.Is(runErr, app.ErrDevice):
		lg.Error(ctx, "camera failure; session ended", logger.Error(runErr))
	case errors.Is(runErr, app.ErrLedgerWrite):
		lg.Error(ctx, "attendance ledger unavailable; session ended", logger.Error(runErr))
	}
	return runErr
}

func startHTTPServer(ctx context.Context, addr string, deps api.Dependencies, lg logger.Logger) *http.Server {
	srv := &http.Server{
		Addr:              addr,
		Handler:           api.NewServer(deps).Handler(),
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	go func() {
		lg.Info(ctx, "starting HTTP server", logger.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			lg.Error(ctx, "HTTP server failed", logger.Error(err))
		}
	}()
	return srv
}

// startSystemMetricsUpdater starts a background goroutine that updates system metrics.
func startSystemMetricsUpdater(ctx context.Context) {
	ticker := time.NewTicker(systemMetricsInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			updateSystemMetrics()
		}
	}
}

// updateSystemMetrics updates system-level metrics.
func updateSystemMetrics() {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	metrics.UpdateSystemMemoryUsage(m.Alloc)
	metrics.UpdateSystemGoroutineCount(runtime.NumGoroutine())

	if m.NumGC > 0 {
		avgPauseMs := float64(m.PauseTotalNs) / float64(m.NumGC) / nanosecondsPerMillisecond
		metrics.RecordSystemGCPauseTime(avgPauseMs)
	}
}
