package source

import (
	"context"
	"os"
	"path/filepath"
	"sort"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/compliance-chaser/internal/model"
)

// DirSource reads supported documents from a local directory.
type DirSource struct {
	Dir string
}

// NewDirSource creates a DirSource rooted at dir.
func NewDirSource(dir string) *DirSource {
	return &DirSource{Dir: dir}
}

// List returns every supported file in the directory, sorted by name.
// Subdirectories are not descended into.
func (s *DirSource) List(ctx context.Context) (*Listing, error) {
	entries, err := os.ReadDir(s.Dir)
	if err != nil {
		return nil, eris.Wrapf(err, "source: read dir %s", s.Dir)
	}

	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() || !Supported(e.Name()) {
			continue
		}
		names = append(names, e.Name())
	}
	sort.Strings(names)

	out := &Listing{}
	for _, name := range names {
		if err := ctx.Err(); err != nil {
			return nil, eris.Wrap(err, "source: list cancelled")
		}

		data, err := os.ReadFile(filepath.Join(s.Dir, name))
		if err == nil {
			var text string
			if text, err = Decode(name, data); err == nil {
				out.Documents = append(out.Documents, model.Document{FileName: name, Text: text})
				continue
			}
		}
		zap.L().Warn("source: skipping unreadable file", zap.String("file", name), zap.Error(err))
		out.Errors = append(out.Errors, FileError{Name: name, Err: err})
	}
	return out, nil
}
