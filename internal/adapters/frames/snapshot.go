package frames

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/okian/rollcall/internal/domain/model"
)

// SnapshotOption applies a configuration option to the SnapshotSource.
type SnapshotOption func(*SnapshotSource)

// WithInterval sets the minimum time between captures.
func WithInterval(d time.Duration) SnapshotOption {
	return func(s *SnapshotSource) {
		if d >= 0 {
			s.interval = d
		}
	}
}

// WithClient sets the HTTP client used to fetch snapshots.
func WithClient(c *http.Client) SnapshotOption {
	return func(s *SnapshotSource) {
		if c != nil {
			s.client = c
		}
	}
}

// SnapshotSource captures frames by polling a camera's still-image URL.
// A failed capture is reported as-is and never retried.
type SnapshotSource struct {
	url      string
	client   *http.Client
	interval time.Duration

	mu     sync.Mutex
	last   time.Time
	seq    uint64
	closed bool
}

var _ Source = (*SnapshotSource)(nil)

// NewSnapshotSource returns a source polling url.
func NewSnapshotSource(url string, opts ...SnapshotOption) *SnapshotSource {
	s := &SnapshotSource{
		url:      url,
		client:   &http.Client{Timeout: 5 * time.Second},
		interval: 200 * time.Millisecond,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Next waits out the capture interval, then fetches one snapshot.
func (s *SnapshotSource) Next(ctx context.Context) (model.Frame, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return model.Frame{}, ErrClosed
	}
	if wait := time.Until(s.last.Add(s.interval)); wait > 0 && !s.last.IsZero() {
		t := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			t.Stop()
			return model.Frame{}, ctx.Err()
		case <-t.C:
		}
	}

	data, err := s.fetch(ctx)
	s.last = time.Now()
	if err != nil {
		return model.Frame{}, fmt.Errorf("%w: %w", ErrReadFrame, err)
	}
	s.seq++
	return model.Frame{Seq: s.seq, Data: data, CapturedAt: s.last}, nil
}

func (s *SnapshotSource) fetch(ctx context.Context) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("snapshot status %d", resp.StatusCode)
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("empty snapshot")
	}
	return data, nil
}

func (s *SnapshotSource) Close() error {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	s.client.CloseIdleConnections()
	return nil
}
