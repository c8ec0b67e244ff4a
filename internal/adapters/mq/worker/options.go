package worker

import (
	"time"

	"github.com/okian/rollcall/internal/adapters/render"
	"github.com/okian/rollcall/pkg/logger"
)

// Option applies a configuration option to the FrameWorker.
type Option func(*FrameWorker)

// WithName sets the worker name for identification and logging.
func WithName(name string) Option {
	return func(w *FrameWorker) {
		if name != "" {
			w.name = name
		}
	}
}

// WithLogger sets a custom logger for the worker.
func WithLogger(l logger.Logger) Option {
	return func(w *FrameWorker) {
		if l != nil {
			w.logger = l
		}
	}
}

// WithRenderer sets where per-frame labels are sent.
func WithRenderer(r render.Renderer) Option {
	return func(w *FrameWorker) {
		if r != nil {
			w.renderer = r
		}
	}
}

// WithClock sets the source of attendance timestamps.
func WithClock(now func() time.Time) Option {
	return func(w *FrameWorker) {
		if now != nil {
			w.now = now
		}
	}
}
