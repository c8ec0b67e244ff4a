// Package roster builds the enrolled set of identities at startup.
package roster

import (
	"bytes"
	"context"
	"fmt"
	"image"
	_ "image/jpeg" // register decoder
	_ "image/png"  // register decoder
	"io"

	"github.com/schollz/progressbar/v3"
	_ "golang.org/x/image/bmp"  // register decoder
	_ "golang.org/x/image/webp" // register decoder

	"github.com/okian/rollcall/internal/adapters/provider"
	"github.com/okian/rollcall/internal/domain/model"
	"github.com/okian/rollcall/pkg/logger"
	"github.com/okian/rollcall/pkg/metrics"
)

// Policy picks which detected face of an enrollment image is enrolled.
type Policy int

// FirstFaceWins enrolls the first face in the provider's detection order.
// Which physical face that is depends on the provider.
const FirstFaceWins Policy = iota

// Skip reasons reported to metrics.
const (
	SkipReadError     = "read_error"
	SkipInvalidImage  = "invalid_image"
	SkipProviderError = "provider_error"
	SkipNoFace        = "no_face"
	SkipDuplicate     = "duplicate_label"
)

// Option applies a configuration option to Build.
type Option func(*builder)

// WithLogger sets the logger for enrollment diagnostics.
func WithLogger(l logger.Logger) Option {
	return func(b *builder) {
		if l != nil {
			b.log = l
		}
	}
}

// WithProgress renders a progress bar to w while images are enrolled.
func WithProgress(w io.Writer) Option {
	return func(b *builder) {
		b.progress = w
	}
}

type builder struct {
	log      logger.Logger
	progress io.Writer
	policy   Policy
}

// Build enrolls every image from source. Images that cannot be read or
// decoded, that the provider rejects, or that contain no face are skipped.
// A source that cannot be listed yields an empty roster.
// The result keeps discovery order and holds at most one entry per identity.
func Build(ctx context.Context, source ImageSource, enc provider.Encoder, opts ...Option) []model.RosterEntry {
	b := &builder{log: logger.Nop(), policy: FirstFaceWins}
	for _, opt := range opts {
		opt(b)
	}

	images, err := source.List(ctx)
	if err != nil {
		b.log.Error(ctx, "enrollment source unreadable, continuing with empty roster", logger.Error(err))
		metrics.RecordErrorByComponent("roster", "list")
		metrics.UpdateRosterSize(0)
		return nil
	}

	var bar *progressbar.ProgressBar
	if b.progress != nil {
		bar = progressbar.NewOptions(len(images),
			progressbar.OptionSetWriter(b.progress),
			progressbar.OptionSetDescription("Enrolling faces"),
			progressbar.OptionShowCount(),
			progressbar.OptionSetItsString("images"),
			progressbar.OptionShowElapsedTimeOnFinish(),
			progressbar.OptionFullWidth(),
		)
	}

	entries := make([]model.RosterEntry, 0, len(images))
	enrolled := make(map[model.Identity]bool, len(images))
	for _, img := range images {
		if bar != nil {
			_ = bar.Add(1)
		}
		if enrolled[img.Label] {
			b.skip(ctx, img, SkipDuplicate, nil)
			continue
		}
		emb, reason, err := b.enroll(ctx, source, enc, img)
		if reason != "" {
			b.skip(ctx, img, reason, err)
			continue
		}
		enrolled[img.Label] = true
		entries = append(entries, model.RosterEntry{Identity: img.Label, Embedding: emb})
		b.log.Info(ctx, "loaded face", logger.String("identity", string(img.Label)), logger.String("file", img.Name))
	}
	if bar != nil {
		_ = bar.Finish()
	}

	metrics.UpdateRosterSize(len(entries))
	b.log.Info(ctx, "roster built", logger.Int("enrolled", len(entries)), logger.Int("images", len(images)))
	return entries
}

func (b *builder) enroll(ctx context.Context, source ImageSource, enc provider.Encoder, img Image) (model.Embedding, string, error) {
	data, err := source.Read(ctx, img)
	if err != nil {
		return nil, SkipReadError, err
	}
	if _, _, err := image.DecodeConfig(bytes.NewReader(data)); err != nil {
		return nil, SkipInvalidImage, fmt.Errorf("decode: %w", err)
	}
	faces, err := enc.DetectAndEncode(ctx, data)
	if err != nil {
		return nil, SkipProviderError, err
	}
	face, ok := b.pick(faces)
	if !ok {
		return nil, SkipNoFace, nil
	}
	return face.Embedding, "", nil
}

func (b *builder) pick(faces []model.Face) (model.Face, bool) {
	switch b.policy {
	case FirstFaceWins:
		if len(faces) == 0 || len(faces[0].Embedding) == 0 {
			return model.Face{}, false
		}
		return faces[0], true
	default:
		return model.Face{}, false
	}
}

func (b *builder) skip(ctx context.Context, img Image, reason string, err error) {
	metrics.RecordEnrollmentSkipped(reason)
	fields := []logger.Field{
		logger.String("identity", string(img.Label)),
		logger.String("file", img.Name),
		logger.String("reason", reason),
	}
	if err != nil {
		fields = append(fields, logger.Error(err))
	}
	msg := "enrollment image skipped"
	if reason == SkipNoFace {
		msg = "no encoding found"
	}
	b.log.Warn(ctx, msg, fields...)
}

// Identities returns the identities of entries in roster order.
func Identities(entries []model.RosterEntry) []model.Identity {
	out := make([]model.Identity, len(entries))
	for i, e := range entries {
		out[i] = e.Identity
	}
	return out
}
