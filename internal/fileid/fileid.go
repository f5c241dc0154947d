// Package fileid builds stable record identifiers from a source file name and section anchor.
package fileid

import (
	"crypto/sha256"
	"encoding/hex"
	"path/filepath"
)

const (
	separator      = ":"
	documentSuffix = "##DOC"
	preambleSuffix = "##PREAMBLE"
	sourcePrefix   = "src:"
)

// DocumentID is the id of the record that represents a whole file.
func DocumentID(fileName string) string {
	return fileName + separator + documentSuffix
}

// PreambleID is the id of a file's preamble record. The "##" suffixes cannot
// collide with a section anchor.
func PreambleID(fileName string) string {
	return fileName + separator + preambleSuffix
}

// SectionID is the id of a section record.
func SectionID(fileName, anchor string) string {
	return fileName + separator + anchor
}

// SourceKey returns a stable key for the given absolute source path.
// Same path always yields the same key.
func SourceKey(absolutePath string) string {
	normalized := filepath.Clean(absolutePath)
	hash := sha256.Sum256([]byte(normalized))
	return sourcePrefix + hex.EncodeToString(hash[:])
}
