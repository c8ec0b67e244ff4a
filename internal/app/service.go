// Package service runs an attendance session: frames flow from the frame
// source through the matcher into the ledger, and serve the status API.
package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/okian/rollcall/internal/adapters/frames"
	framequeue "github.com/okian/rollcall/internal/adapters/mq/queue"
	"github.com/okian/rollcall/internal/adapters/mq/worker"
	"github.com/okian/rollcall/internal/adapters/provider"
	"github.com/okian/rollcall/internal/adapters/render"
	"github.com/okian/rollcall/internal/domain/ledger"
	"github.com/okian/rollcall/internal/domain/matching"
	"github.com/okian/rollcall/internal/domain/model"
	"github.com/okian/rollcall/internal/domain/roster"
	"github.com/okian/rollcall/pkg/logger"
	"github.com/okian/rollcall/pkg/metrics"
)

// Sentinel kinds for session errors.
var (
	// ErrDevice means the frame source failed. The session ends without retry.
	ErrDevice = errors.New("frame source failed")
	// ErrLedgerWrite means a first sighting could not be persisted.
	ErrLedgerWrite = ledger.ErrLedgerWrite
	// ErrNotConfigured means a required collaborator was not supplied.
	ErrNotConfigured = errors.New("session not configured")
	// ErrAlreadyRunning is returned by a second concurrent Run.
	ErrAlreadyRunning = errors.New("session already running")
)

const defaultQueueSize = 4

// Session implements the attendance pipeline and the status API dependencies.
type Session struct {
	mu sync.RWMutex

	// Collaborators
	frames   frames.Source
	encoder  provider.Encoder
	matcher  *matching.Matcher
	roster   []model.RosterEntry
	ledger   *ledger.Ledger
	renderer render.Renderer
	overlay  *render.LatestRenderer

	// Configuration
	queueSize int
	now       func() time.Time

	// State
	id        string
	startedAt time.Time
	running   bool
	worker    *worker.FrameWorker
	queue     *framequeue.InMemoryQueue

	logger logger.Logger
}

// Option applies a configuration option to the Session.
type Option func(*Session)

// WithFrames sets the frame source. Required.
func WithFrames(src frames.Source) Option {
	return func(s *Session) { s.frames = src }
}

// WithEncoder sets the embedding provider. Required.
func WithEncoder(enc provider.Encoder) Option {
	return func(s *Session) { s.encoder = enc }
}

// WithMatcher sets the matcher. Defaults to matching.NewMatcher().
func WithMatcher(m *matching.Matcher) Option {
	return func(s *Session) {
		if m != nil {
			s.matcher = m
		}
	}
}

// WithRoster sets the enrolled identities. An empty roster is valid.
func WithRoster(entries []model.RosterEntry) Option {
	return func(s *Session) { s.roster = entries }
}

// WithLedger sets the attendance ledger. Required.
func WithLedger(l *ledger.Ledger) Option {
	return func(s *Session) { s.ledger = l }
}

// WithRenderer adds a renderer for per-frame labels.
func WithRenderer(r render.Renderer) Option {
	return func(s *Session) {
		if r != nil {
			s.renderer = r
		}
	}
}

// WithLogger sets a custom logger for the session.
func WithLogger(l logger.Logger) Option {
	return func(s *Session) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithQueueSize sets how many captured frames may wait for the matcher.
func WithQueueSize(size int) Option {
	return func(s *Session) {
		if size > 0 {
			s.queueSize = size
		}
	}
}

// WithClock sets the source of attendance timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Session) {
		if now != nil {
			s.now = now
		}
	}
}

// New constructs a Session.
func New(opts ...Option) *Session {
	s := &Session{
		matcher:   matching.NewMatcher(),
		overlay:   render.NewLatestRenderer(),
		queueSize: defaultQueueSize,
		now:       time.Now,
		id:        uuid.NewString(),
		logger:    logger.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.Named("session")
	return s
}

// ID returns the session identifier.
func (s *Session) ID() string { return s.id }

// Run processes frames until the source is exhausted (nil), ctx is cancelled
// by the operator (nil), the frame source fails (ErrDevice), or the ledger
// cannot be written (ErrLedgerWrite).
//
// Capture and matching run as two stages joined by a bounded FIFO. There is
// exactly one matching stage, so identities are logged in first-detection
// order. Cancellation is checked between frames only.
func (s *Session) Run(ctx context.Context) error {
	if s.frames == nil || s.encoder == nil || s.ledger == nil {
		return ErrNotConfigured
	}

	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return ErrAlreadyRunning
	}
	s.running = true
	s.startedAt = s.now()
	s.queue = framequeue.NewInMemoryQueue(framequeue.WithCapacity(s.queueSize))
	s.worker = worker.NewFrameWorker(s.queue, s.encoder, s.matcher, s.roster, s.ledger,
		worker.WithName("matcher"),
		worker.WithLogger(s.logger),
		worker.WithRenderer(render.Multi{s.overlay, s.renderer}),
		worker.WithClock(s.now),
	)
	q, w := s.queue, s.worker
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.running = false
		s.mu.Unlock()
	}()

	s.logger.Info(ctx, "session started",
		logger.String("session_id", s.id),
		logger.Int("roster", len(s.roster)),
		logger.Float64("threshold", s.matcher.Threshold()),
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		defer func() { _ = q.Close() }()
		return s.capture(gctx, q)
	})
	// The matcher ends on quit or once the closed queue is drained. A capture
	// failure must not cancel it: frames already captured are still logged.
	g.Go(func() error {
		return w.Run(ctx)
	})

	err := g.Wait()
	st := w.Stats()
	fields := []logger.Field{
		logger.String("session_id", s.id),
		logger.Uint64("frames", st.Frames),
		logger.Int("logged", s.ledger.Count()),
	}
	if err != nil {
		s.logger.Error(ctx, "session failed", append(fields, logger.Error(err))...)
		return err
	}
	s.logger.Info(ctx, "session ended", fields...)
	return nil
}

// capture pulls frames and hands them to the matcher.
func (s *Session) capture(ctx context.Context, q framequeue.Queue) error {
	for {
		if ctx.Err() != nil {
			return nil
		}
		f, err := s.frames.Next(ctx)
		if errors.Is(err, io.EOF) {
			s.logger.Info(ctx, "frame source exhausted")
			return nil
		}
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			metrics.RecordFrameError()
			metrics.RecordErrorByComponent("capture", "device")
			return fmt.Errorf("%w: %w", ErrDevice, err)
		}
		if err := q.Put(ctx, f); err != nil {
			// Only cancellation or shutdown can stop a blocking Put.
			return nil
		}
	}
}

// Stats returns session statistics for the status API.
func (s *Session) Stats() map[string]any {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := map[string]any{
		"session_id":  s.id,
		"running":     s.running,
		"roster_size": len(s.roster),
		"threshold":   s.matcher.Threshold(),
	}
	if s.ledger != nil {
		stats["records"] = s.ledger.Count()
	}
	if !s.startedAt.IsZero() {
		stats["started_at"] = s.startedAt
	}
	if s.worker != nil {
		st := s.worker.Stats()
		stats["frames"] = st.Frames
		stats["faces"] = st.Faces
		stats["identified"] = st.Identified
		stats["unknown"] = st.Unknown
		stats["provider_errors"] = st.ProviderErrors
	}
	if s.queue != nil {
		stats["queue_length"] = s.queue.Len()
	}
	return stats
}

// Attendance returns this session's records in first-seen order.
func (s *Session) Attendance(_ context.Context) []model.Record {
	if s.ledger == nil {
		return nil
	}
	return s.ledger.Entries()
}

// Roster returns the enrolled identities in roster order.
func (s *Session) Roster(_ context.Context) []model.Identity {
	return roster.Identities(s.roster)
}

// Overlay returns the labels of the most recently processed frame.
func (s *Session) Overlay(_ context.Context) render.Overlay {
	return s.overlay.Latest()
}
