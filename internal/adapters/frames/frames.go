// Package frames supplies captured frames to the session.
package frames

import (
	"context"
	"errors"

	"github.com/okian/rollcall/internal/domain/model"
)

// Sentinel kinds for frame source errors.
var (
	ErrOpenSource = errors.New("open frame source")
	ErrReadFrame  = errors.New("read frame")
	ErrClosed     = errors.New("frame source closed")
)

// Source yields frames in capture order. Next returns io.EOF once the source
// is exhausted; any other error means the device failed.
type Source interface {
	Next(ctx context.Context) (model.Frame, error)
	Close() error
}
