package roster

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/okian/rollcall/internal/domain/model"
)

// Image is one labeled enrollment image.
type Image struct {
	Label model.Identity
	Name  string
}

// ImageSource lists and reads labeled enrollment images.
type ImageSource interface {
	List(ctx context.Context) ([]Image, error)
	Read(ctx context.Context, img Image) ([]byte, error)
}

// supportedExt lists the enrollment image extensions DirSource accepts.
var supportedExt = map[string]bool{ //nolint:gochecknoglobals // lookup table
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".webp": true,
	".bmp":  true,
}

// DirSource reads enrollment images from a flat directory. Each file's name
// without extension is its label.
type DirSource struct {
	dir string
}

// NewDirSource returns a source over dir.
func NewDirSource(dir string) *DirSource {
	return &DirSource{dir: dir}
}

// List returns supported image files sorted by file name.
func (s *DirSource) List(_ context.Context) ([]Image, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", s.dir, err)
	}

	var out []Image
	for _, e := range entries {
		if !e.Type().IsRegular() {
			continue
		}
		name := e.Name()
		ext := filepath.Ext(name)
		if !supportedExt[strings.ToLower(ext)] {
			continue
		}
		out = append(out, Image{Label: model.NewIdentity(strings.TrimSuffix(name, ext)), Name: name})
	}
	slices.SortFunc(out, func(a, b Image) int { return strings.Compare(a.Name, b.Name) })
	return out, nil
}

// Read returns the raw bytes of img.
func (s *DirSource) Read(_ context.Context, img Image) ([]byte, error) {
	data, err := os.ReadFile(filepath.Join(s.dir, img.Name))
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", img.Name, err)
	}
	return data, nil
}
