// Package identity derives stable client identifiers from source file names.
package identity

import (
	"crypto/md5" //nolint:gosec // identifier, not a security boundary
	"encoding/hex"
	"path/filepath"
	"strings"
)

const (
	prefix    = "DOC_"
	hashChars = 4
)

// ClientID returns DOC_ followed by the first four upper-case hex digits of
// the MD5 of fileName. It depends only on the name, never on content.
func ClientID(fileName string) string {
	sum := md5.Sum([]byte(fileName)) //nolint:gosec
	return prefix + strings.ToUpper(hex.EncodeToString(sum[:])[:hashChars])
}

// DisplayNameFromFile is the fallback client name: the file name without
// its directory or extension.
func DisplayNameFromFile(fileName string) string {
	base := filepath.Base(fileName)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
