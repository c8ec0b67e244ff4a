// Package repository persists attendance records.
package repository

import (
	"context"

	"github.com/okian/rollcall/internal/domain/model"
)

// Store is an append-only sink for attendance records.
type Store interface {
	// Append durably writes r after all previously appended records.
	// A record is written whole or not at all.
	Append(ctx context.Context, r model.Record) error

	// Records returns every persisted record in file order, including those
	// written by earlier sessions.
	Records(ctx context.Context) ([]model.Record, error)

	Close() error
}
