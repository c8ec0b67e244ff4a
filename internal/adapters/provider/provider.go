// Package provider talks to the external face detection and embedding service.
package provider

import (
	"context"
	"errors"

	"github.com/okian/rollcall/internal/domain/model"
)

// ErrProvider wraps every failure reported by an Encoder.
var ErrProvider = errors.New("embedding provider")

// Encoder detects faces in an encoded image and returns one embedding per
// face, in the provider's detection order. Zero faces is not an error.
type Encoder interface {
	DetectAndEncode(ctx context.Context, image []byte) ([]model.Face, error)
}

// EncoderFunc adapts a function to Encoder.
type EncoderFunc func(ctx context.Context, image []byte) ([]model.Face, error)

func (f EncoderFunc) DetectAndEncode(ctx context.Context, image []byte) ([]model.Face, error) {
	return f(ctx, image)
}
