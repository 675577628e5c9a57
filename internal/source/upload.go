package source

import (
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
)

// ErrInvalidFileName is returned for an upload name that is empty, contains
// a path, or has an unsupported extension.
var ErrInvalidFileName = eris.New("source: invalid upload file name")

// SaveUpload writes r to dir/name and returns the stored file name. The
// name must be a bare file name; anything resolving outside dir is refused.
func SaveUpload(dir, name string, r io.Reader) (string, error) {
	clean := strings.TrimSpace(name)
	if clean == "" || clean == "." || clean == ".." ||
		strings.ContainsAny(clean, `/\`) || filepath.Base(clean) != clean {
		return "", eris.Wrapf(ErrInvalidFileName, "name %q", name)
	}
	if !Supported(clean) {
		return "", eris.Wrapf(ErrInvalidFileName, "unsupported extension %q", filepath.Ext(clean))
	}

	dest := filepath.Join(dir, clean)
	if !strings.HasPrefix(filepath.Clean(dest), filepath.Clean(dir)+string(os.PathSeparator)) {
		return "", eris.Wrapf(ErrInvalidFileName, "name %q escapes upload dir", name)
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", eris.Wrap(err, "source: create upload dir")
	}

	tmp, err := os.CreateTemp(dir, ".upload-*")
	if err != nil {
		return "", eris.Wrap(err, "source: create temp file")
	}
	defer os.Remove(tmp.Name()) //nolint:errcheck

	if _, err := io.Copy(tmp, r); err != nil {
		tmp.Close() //nolint:errcheck,gosec
		return "", eris.Wrap(err, "source: write upload")
	}
	if err := tmp.Close(); err != nil {
		return "", eris.Wrap(err, "source: close upload")
	}
	if err := os.Rename(tmp.Name(), dest); err != nil {
		return "", eris.Wrap(err, "source: move upload into place")
	}
	return clean, nil
}
