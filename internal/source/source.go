// Package source acquires source documents and decodes them to plain text.
package source

import (
	"bytes"
	"context"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/rotisserie/eris"
	"golang.org/x/text/encoding/htmlindex"
	"golang.org/x/text/unicode/norm"

	"github.com/sells-group/compliance-chaser/internal/model"
)

// ErrUnsupported is returned for a file type that cannot be decoded.
var ErrUnsupported = eris.New("source: unsupported file type")

// legacyCharset decodes plain-text files that are not valid UTF-8.
const legacyCharset = "windows-1252"

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// Source lists the documents available for processing.
type Source interface {
	List(ctx context.Context) (*Listing, error)
}

// FileError is a file that was found but could not be read or decoded.
type FileError struct {
	Name string
	Err  error
}

func (e FileError) Error() string {
	return e.Name + ": " + e.Err.Error()
}

// Listing is the outcome of one List call. Unreadable files land in Errors
// and do not prevent the rest from being returned.
type Listing struct {
	Documents []model.Document
	Errors    []FileError
}

// Supported reports whether name has an extension Decode understands.
func Supported(name string) bool {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".txt", ".md", ".docx":
		return true
	}
	return false
}

// Decode converts raw file bytes to NFC-normalized text based on the
// extension of name.
func Decode(name string, data []byte) (string, error) {
	var (
		text string
		err  error
	)
	switch strings.ToLower(filepath.Ext(name)) {
	case ".docx":
		text, err = DocxText(data)
	case ".txt", ".md":
		text, err = decodePlain(data)
	default:
		return "", eris.Wrapf(ErrUnsupported, "source: %s", name)
	}
	if err != nil {
		return "", eris.Wrapf(err, "source: decode %s", name)
	}
	return norm.NFC.String(text), nil
}

func decodePlain(data []byte) (string, error) {
	data = bytes.TrimPrefix(data, utf8BOM)
	if utf8.Valid(data) {
		return string(data), nil
	}
	enc, err := htmlindex.Get(legacyCharset)
	if err != nil {
		return "", eris.Wrap(err, "source: load legacy charset")
	}
	out, err := enc.NewDecoder().Bytes(data)
	if err != nil {
		return "", eris.Wrap(err, "source: decode legacy text")
	}
	return string(out), nil
}
