package registry

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"skillrouter/internal/fs"
	"skillrouter/internal/index"
)

// Local reads a registry mirror from the filesystem. The mirror uses the
// same layout as the HTTP tree: <root>/index.json plus per-skill body
// documents under their body paths.
type Local struct {
	root string
	fs   fs.FS
}

// NewLocal returns a Local registry rooted at dir.
func NewLocal(dir string) *Local {
	return &Local{root: dir, fs: fs.NewReal()}
}

func (l *Local) FetchIndex(_ context.Context) (index.Index, error) {
	data, err := l.read(indexPath)
	if err != nil {
		return index.Index{}, err
	}

	idx, parseErr := index.Parse(data)
	if parseErr != nil {
		return index.Index{}, fmt.Errorf("%w: %w", ErrMalformed, parseErr)
	}

	return idx, nil
}

func (l *Local) FetchBody(_ context.Context, desc index.Descriptor) ([]byte, error) {
	data, err := l.read(desc.BodyPath)
	if err != nil {
		return nil, err
	}

	return verifyBody(data, desc.BodyHash)
}

func (l *Local) read(path string) ([]byte, error) {
	// Body paths come from the index document; refuse anything that would
	// escape the mirror root.
	rel := filepath.Clean(filepath.FromSlash(strings.TrimLeft(path, "/")))
	if rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
	}

	data, err := l.fs.ReadFile(filepath.Join(l.root, rel))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
		}

		return nil, fmt.Errorf("%w: %w", ErrNetworkUnavailable, err)
	}

	return data, nil
}
