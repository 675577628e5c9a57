package source

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"io"
	"strings"

	"github.com/rotisserie/eris"
	"golang.org/x/text/encoding/htmlindex"
)

const docxBody = "word/document.xml"

// maxDocxBody caps the uncompressed size of word/document.xml.
const maxDocxBody = 64 << 20

// DocxText returns the paragraph text of a .docx file, one non-empty
// trimmed paragraph per line.
func DocxText(data []byte) (string, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", eris.Wrap(err, "docx: open archive")
	}

	for _, f := range zr.File {
		if f.Name != docxBody {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return "", eris.Wrap(err, "docx: open body")
		}
		defer rc.Close() //nolint:errcheck
		return paragraphs(io.LimitReader(rc, maxDocxBody))
	}
	return "", eris.Errorf("docx: %s not found in archive", docxBody)
}

func paragraphs(r io.Reader) (string, error) {
	decoder := xml.NewDecoder(r)
	decoder.CharsetReader = func(charset string, input io.Reader) (io.Reader, error) {
		enc, err := htmlindex.Get(charset)
		if err != nil {
			return nil, eris.Wrapf(err, "docx: unsupported charset %q", charset)
		}
		return enc.NewDecoder().Reader(input), nil
	}

	var (
		lines  []string
		para   strings.Builder
		inText bool
	)
	flush := func() {
		if t := strings.TrimSpace(para.String()); t != "" {
			lines = append(lines, t)
		}
		para.Reset()
	}

	for {
		tok, err := decoder.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", eris.Wrap(err, "docx: read token")
		}

		switch el := tok.(type) {
		case xml.StartElement:
			switch el.Name.Local {
			case "t":
				inText = true
			case "tab":
				para.WriteByte('\t')
			case "br", "cr":
				para.WriteByte(' ')
			}
		case xml.EndElement:
			switch el.Name.Local {
			case "t":
				inText = false
			case "p":
				flush()
			}
		case xml.CharData:
			if inText {
				para.Write(el)
			}
		}
	}
	flush()

	return strings.Join(lines, "\n"), nil
}
