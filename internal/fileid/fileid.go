// Package fileid derives stable document ids for annotated sources.
package fileid

import (
	"crypto/sha256"
	"encoding/hex"
	"path/filepath"
)

const (
	pathPrefix    = "file:"
	contentPrefix = "sha256:"
)

// PathID returns the document id for a file on disk. The same cleaned
// absolute path always yields the same id, so repeated jobs on one file group.
func PathID(absolutePath string) string {
	hash := sha256.Sum256([]byte(filepath.Clean(absolutePath)))
	return pathPrefix + hex.EncodeToString(hash[:])
}

// ContentID returns the document id for an uploaded document with no path.
func ContentID(content []byte) string {
	hash := sha256.Sum256(content)
	return contentPrefix + hex.EncodeToString(hash[:])
}
