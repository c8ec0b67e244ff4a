// Package render receives per-frame overlay labels. Renderers are purely
// observational; nothing flows back into the session.
package render

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/okian/rollcall/internal/domain/model"
	"github.com/okian/rollcall/pkg/logger"
)

// Renderer is handed the labels of every processed frame.
type Renderer interface {
	Render(ctx context.Context, frame model.Frame, labels []model.Label)
}

// LogRenderer writes each frame's labels at debug level.
type LogRenderer struct {
	log logger.Logger
}

// NewLogRenderer returns a renderer logging through l.
func NewLogRenderer(l logger.Logger) *LogRenderer {
	if l == nil {
		l = logger.Nop()
	}
	return &LogRenderer{log: l}
}

func (r *LogRenderer) Render(ctx context.Context, frame model.Frame, labels []model.Label) {
	for _, lb := range labels {
		r.log.Debug(ctx, "face",
			logger.Uint64("frame", frame.Seq),
			logger.String("label", lb.Text),
			logger.Int("top", lb.Region.Top),
			logger.Int("right", lb.Region.Right),
			logger.Int("bottom", lb.Region.Bottom),
			logger.Int("left", lb.Region.Left),
		)
	}
}

// Overlay is the last rendered frame's labels.
type Overlay struct {
	Frame      uint64        `json:"frame"`
	CapturedAt time.Time     `json:"captured_at"`
	Labels     []model.Label `json:"labels"`
}

// LatestRenderer keeps the most recent overlay for the status API.
type LatestRenderer struct {
	mu      sync.RWMutex
	overlay Overlay
}

// NewLatestRenderer returns an empty LatestRenderer.
func NewLatestRenderer() *LatestRenderer {
	return &LatestRenderer{overlay: Overlay{Labels: []model.Label{}}}
}

func (r *LatestRenderer) Render(_ context.Context, frame model.Frame, labels []model.Label) {
	o := Overlay{Frame: frame.Seq, CapturedAt: frame.CapturedAt, Labels: slices.Clone(labels)}
	if o.Labels == nil {
		o.Labels = []model.Label{}
	}
	r.mu.Lock()
	r.overlay = o
	r.mu.Unlock()
}

// Latest returns the last overlay.
func (r *LatestRenderer) Latest() Overlay {
	r.mu.RLock()
	defer r.mu.RUnlock()
	o := r.overlay
	o.Labels = slices.Clone(o.Labels)
	return o
}

// Multi fans out to every renderer in order.
type Multi []Renderer

func (m Multi) Render(ctx context.Context, frame model.Frame, labels []model.Label) {
	for _, r := range m {
		if r != nil {
			r.Render(ctx, frame, labels)
		}
	}
}
