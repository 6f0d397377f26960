// Package pathfs implements the path normalization, include/exclude rule
// compilation, and sandboxed file access abstraction shared by the crawler,
// catalog, and query engine.
package pathfs

import (
	"path/filepath"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// Normalize returns the canonical matching form of path: NFC-normalized,
// forward-slashed, and lowercased. The original casing is never discarded
// by callers — Normalize only produces the key used for comparison and
// lookup (invariant: normalize(r.path) == r.path once stored).
func Normalize(path string) string {
	slashed := strings.ReplaceAll(path, "\\", "/")
	nfc := norm.NFC.String(slashed)

	return strings.ToLower(nfc)
}

// Canonicalize resolves path to an absolute, cleaned, NFC-normalized form
// while preserving original casing. Unlike Normalize, the result is the
// stored FileRecord.path, not the comparison key.
func Canonicalize(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", err
	}

	return norm.NFC.String(filepath.ToSlash(filepath.Clean(abs))), nil
}

// IsDescendantOf reports whether child is equal to or nested under parent.
// Both arguments are normalized before comparison so casing and Unicode
// form never affect the result.
func IsDescendantOf(child, parent string) bool {
	c := Normalize(child)
	p := Normalize(parent)

	if c == p {
		return true
	}

	return strings.HasPrefix(c, p+"/")
}
