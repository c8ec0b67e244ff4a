// Package ledger owns the session's at-most-once attendance log.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/okian/rollcall/internal/adapters/repository"
	"github.com/okian/rollcall/internal/domain/dedupe"
	"github.com/okian/rollcall/internal/domain/model"
	"github.com/okian/rollcall/pkg/logger"
	"github.com/okian/rollcall/pkg/metrics"
)

// ErrLedgerWrite means a first sighting could not be persisted.
var ErrLedgerWrite = errors.New("ledger write failed")

// Option applies a configuration option to the Ledger.
type Option func(*Ledger)

// WithDeduper replaces the default in-memory seen-set.
func WithDeduper(d dedupe.Deduper) Option {
	return func(l *Ledger) {
		if d != nil {
			l.seen = d
		}
	}
}

// WithLogger sets the logger.
func WithLogger(lg logger.Logger) Option {
	return func(l *Ledger) {
		if lg != nil {
			l.log = lg
		}
	}
}

// Ledger pairs the session seen-set with the append-only store behind one
// check-and-append step.
type Ledger struct {
	store repository.Store
	seen  dedupe.Deduper
	log   logger.Logger

	mu      sync.RWMutex
	entries []model.Record
}

// New creates a Ledger writing to store.
func New(store repository.Store, opts ...Option) *Ledger {
	l := &Ledger{
		store: store,
		seen:  dedupe.NewInMemoryDeduper(),
		log:   logger.Nop(),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// RecordIfFirst appends (identity, ts) if identity has not been logged this
// session. On a store failure the reservation is released and the error
// wraps ErrLedgerWrite.
func (l *Ledger) RecordIfFirst(ctx context.Context, identity model.Identity, ts time.Time) (model.Outcome, error) {
	id := string(identity)
	if l.seen.SeenAndRecord(ctx, id) {
		metrics.RecordAttendanceDuplicate()
		return model.AlreadyRecorded, nil
	}

	rec := model.Record{Identity: identity, Time: ts}
	start := time.Now()
	if err := l.store.Append(ctx, rec); err != nil {
		l.seen.Unrecord(ctx, id)
		metrics.RecordLedgerWriteError()
		metrics.RecordErrorByComponent("ledger", "write")
		l.log.Error(ctx, "attendance write failed", logger.String("identity", id), logger.Error(err))
		return 0, fmt.Errorf("%w: %s: %w", ErrLedgerWrite, id, err)
	}
	metrics.RecordAttendance(float64(time.Since(start).Microseconds()) / 1000)

	l.mu.Lock()
	l.entries = append(l.entries, rec)
	n := len(l.entries)
	l.mu.Unlock()
	metrics.UpdateSessionIdentities(int64(n))

	l.log.Info(ctx, "attendance logged", logger.String("identity", id), logger.Time("time", ts))
	return model.Recorded, nil
}

// Entries returns this session's records in first-seen order.
func (l *Ledger) Entries() []model.Record {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return slices.Clone(l.entries)
}

// Count returns the number of identities logged this session.
func (l *Ledger) Count() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.entries)
}

// History returns every persisted record, including earlier sessions.
func (l *Ledger) History(ctx context.Context) ([]model.Record, error) {
	return l.store.Records(ctx)
}

// Close closes the underlying store.
func (l *Ledger) Close() error {
	return l.store.Close()
}
