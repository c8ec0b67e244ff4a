// Package worker runs the matching stage of the session pipeline: it takes
// frames off the queue one at a time, matches every face against the roster
// and records first sightings.
package worker

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/okian/rollcall/internal/adapters/provider"
	"github.com/okian/rollcall/internal/adapters/render"
	"github.com/okian/rollcall/internal/domain/model"
	"github.com/okian/rollcall/pkg/logger"
	"github.com/okian/rollcall/pkg/metrics"
)

// Queue defines how the worker receives frames.
type Queue interface {
	Frames() <-chan model.Frame
}

// Matcher picks an identity for a probe.
type Matcher interface {
	Match(probe model.Embedding, roster []model.RosterEntry) model.MatchResult
}

// Recorder logs first sightings.
type Recorder interface {
	RecordIfFirst(ctx context.Context, identity model.Identity, ts time.Time) (model.Outcome, error)
}

// Stats are cumulative counters for the worker's lifetime.
type Stats struct {
	Frames         uint64 `json:"frames"`
	Faces          uint64 `json:"faces"`
	Identified     uint64 `json:"identified"`
	Unknown        uint64 `json:"unknown"`
	ProviderErrors uint64 `json:"provider_errors"`
}

// FrameWorker is the single consumer of the frame queue.
type FrameWorker struct {
	queue    Queue
	encoder  provider.Encoder
	matcher  Matcher
	roster   []model.RosterEntry
	recorder Recorder
	renderer render.Renderer
	now      func() time.Time
	name     string

	frames         atomic.Uint64
	faces          atomic.Uint64
	identified     atomic.Uint64
	unknown        atomic.Uint64
	providerErrors atomic.Uint64

	logger logger.Logger
}

// NewFrameWorker creates a worker. The roster is read-only for the worker's
// lifetime.
func NewFrameWorker(q Queue, enc provider.Encoder, m Matcher, roster []model.RosterEntry, rec Recorder, opts ...Option) *FrameWorker {
	w := &FrameWorker{
		queue:    q,
		encoder:  enc,
		matcher:  m,
		roster:   roster,
		recorder: rec,
		renderer: render.Multi{},
		now:      time.Now,
		name:     "worker",
		logger:   logger.Nop(),
	}
	for _, opt := range opts {
		opt(w)
	}
	w.logger = w.logger.Named(w.name)
	return w
}

// Run consumes frames until the queue is closed, ctx is cancelled, or a frame
// fails fatally. Cancellation is observed between frames only: a frame that
// has been taken off the queue is processed to completion.
func (w *FrameWorker) Run(ctx context.Context) error {
	frames := w.queue.Frames()
	for {
		select {
		case <-ctx.Done():
			return nil
		case f, ok := <-frames:
			if !ok {
				return nil
			}
			if ctx.Err() != nil {
				return nil
			}
			if err := w.Process(context.WithoutCancel(ctx), f); err != nil {
				return err
			}
		}
	}
}

// Process handles one frame: every face is matched in provider order and
// first sightings are recorded before the next face is looked at.
// Only a ledger failure is returned; a provider failure skips the frame.
func (w *FrameWorker) Process(ctx context.Context, f model.Frame) error {
	start := time.Now()
	defer func() {
		w.frames.Add(1)
		metrics.RecordFrameProcessed(float64(time.Since(start).Microseconds()) / 1000)
	}()

	faces, err := w.encoder.DetectAndEncode(ctx, f.Data)
	if err != nil {
		w.providerErrors.Add(1)
		metrics.RecordErrorByComponent("worker", "provider")
		w.logger.Warn(ctx, "embedding provider failed, skipping frame",
			logger.Uint64("frame", f.Seq),
			logger.Error(err),
		)
		w.renderer.Render(ctx, f, nil)
		return nil
	}

	w.faces.Add(uint64(len(faces)))
	metrics.RecordFacesDetected(len(faces))
	w.logger.Debug(ctx, "detected faces", logger.Uint64("frame", f.Seq), logger.Int("faces", len(faces)))

	labels := make([]model.Label, 0, len(faces))
	for _, face := range faces {
		res := w.matcher.Match(face.Embedding, w.roster)
		metrics.RecordMatch(res.Known, res.Distance)
		if res.Known {
			w.identified.Add(1)
			outcome, err := w.recorder.RecordIfFirst(ctx, res.Identity, w.now())
			if err != nil {
				return fmt.Errorf("frame %d: %w", f.Seq, err)
			}
			if outcome == model.Recorded {
				w.logger.Info(ctx, "first sighting",
					logger.String("identity", string(res.Identity)),
					logger.Float64("distance", res.Distance),
					logger.Uint64("frame", f.Seq),
				)
			}
		} else {
			w.unknown.Add(1)
		}
		labels = append(labels, model.Label{Region: face.Region, Text: res.Label()})
	}

	w.renderer.Render(ctx, f, labels)
	return nil
}

// Stats returns a snapshot of the worker's counters.
func (w *FrameWorker) Stats() Stats {
	return Stats{
		Frames:         w.frames.Load(),
		Faces:          w.faces.Load(),
		Identified:     w.identified.Load(),
		Unknown:        w.unknown.Load(),
		ProviderErrors: w.providerErrors.Load(),
	}
}
