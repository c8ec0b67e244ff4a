package frames

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/okian/rollcall/internal/domain/model"
)

var frameExt = map[string]bool{".jpg": true, ".jpeg": true, ".png": true, ".bmp": true, ".webp": true} //nolint:gochecknoglobals // lookup table

// DirSource replays the image files of a directory in name order, as a
// recorded session.
type DirSource struct {
	mu     sync.Mutex
	dir    string
	files  []string
	next   int
	seq    uint64
	now    func() time.Time
	closed bool
}

var _ Source = (*DirSource)(nil)

// OpenDir lists dir. The listing is taken once; files added later are not
// replayed.
func OpenDir(dir string) (*DirSource, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrOpenSource, dir, err)
	}
	var files []string
	for _, e := range entries {
		if e.Type().IsRegular() && frameExt[strings.ToLower(filepath.Ext(e.Name()))] {
			files = append(files, e.Name())
		}
	}
	slices.Sort(files)
	return &DirSource{dir: dir, files: files, now: time.Now}, nil
}

// Len returns the number of frames in the replay.
func (s *DirSource) Len() int { return len(s.files) }

func (s *DirSource) Next(_ context.Context) (model.Frame, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return model.Frame{}, ErrClosed
	}
	if s.next >= len(s.files) {
		return model.Frame{}, io.EOF
	}
	name := s.files[s.next]
	s.next++

	data, err := os.ReadFile(filepath.Join(s.dir, name))
	if err != nil {
		return model.Frame{}, fmt.Errorf("%w: %s: %w", ErrReadFrame, name, err)
	}
	s.seq++
	return model.Frame{Seq: s.seq, Data: data, CapturedAt: s.now()}, nil
}

func (s *DirSource) Close() error {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	return nil
}
