package repository

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/okian/rollcall/internal/domain/model"
)

// CSVStore appends records to a CSV file with a Name,Time header.
// The header is written only when the file is empty, so the ledger
// accumulates across runs.
type CSVStore struct {
	mu     sync.Mutex
	path   string
	file   ledgerFile
	size   int64
	layout string
	loc    *time.Location
	closed bool
}

var _ Store = (*CSVStore)(nil)

// ledgerFile is the subset of *os.File the store writes through.
type ledgerFile interface {
	io.Writer
	Truncate(size int64) error
	Sync() error
	Close() error
}

// OpenCSVStore opens or creates the ledger at path.
func OpenCSVStore(path string, opts ...Option) (*CSVStore, error) {
	s := &CSVStore{
		path:   path,
		layout: DefaultTimeLayout,
		loc:    time.Local,
	}
	for _, opt := range opts {
		opt(s)
	}

	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrOpenStore, path, err)
	}
	info, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("%w: stat %s: %w", ErrOpenStore, path, err)
	}
	s.file = f
	s.size = info.Size()

	if s.size == 0 {
		if err := s.writeRow(HeaderName, HeaderTime); err != nil {
			_ = f.Close()
			return nil, fmt.Errorf("%w: header: %w", ErrOpenStore, err)
		}
	}
	return s, nil
}

// Append writes r as one row.
func (s *CSVStore) Append(_ context.Context, r model.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrStoreClosed
	}
	if err := s.writeRow(string(r.Identity), r.Time.In(s.loc).Format(s.layout)); err != nil {
		return fmt.Errorf("%w: %s: %w", ErrWriteRecord, r.Identity, err)
	}
	return nil
}

// writeRow encodes the row into memory and issues a single write. A short
// write or a failed sync is truncated away, so the file only ever holds rows
// that were reported as written.
func (s *CSVStore) writeRow(fields ...string) error {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(fields); err != nil {
		return err
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return err
	}

	n, err := s.file.Write(buf.Bytes())
	if err != nil {
		if n > 0 {
			_ = s.file.Truncate(s.size)
		}
		return err
	}
	if err := s.file.Sync(); err != nil {
		_ = s.file.Truncate(s.size)
		return err
	}
	s.size += int64(n)
	return nil
}

// Records re-reads the ledger file.
func (s *CSVStore) Records(_ context.Context) ([]model.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, ErrStoreClosed
	}
	return ReadCSV(s.path, s.layout, s.loc)
}

// Close closes the underlying file. Further appends fail with ErrStoreClosed.
func (s *CSVStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	return s.file.Close()
}

// ReadCSV parses a ledger file written by CSVStore. A missing file yields
// no records.
func ReadCSV(path, layout string, loc *time.Location) ([]model.Record, error) {
	f, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrReadRecords, err)
	}
	defer func() { _ = f.Close() }()

	r := csv.NewReader(f)
	r.FieldsPerRecord = 2
	var out []model.Record
	for line := 1; ; line++ {
		row, err := r.Read()
		if errors.Is(err, io.EOF) {
			return out, nil
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %w", ErrReadRecords, path, err)
		}
		if line == 1 && row[0] == HeaderName && row[1] == HeaderTime {
			continue
		}
		ts, err := time.ParseInLocation(layout, row[1], loc)
		if err != nil {
			return nil, fmt.Errorf("%w: %s line %d: %w", ErrReadRecords, path, line, err)
		}
		out = append(out, model.Record{Identity: model.Identity(row[0]), Time: ts})
	}
}
