// Package sid computes stable identifiers for elaborated nodes — a hash
// of the declaration's source position and name that stays the same
// across re-elaborations of an unchanged declaration, so a caller (the
// CLI's JSON output, a future incremental check) can tell which nodes in
// two elaboration runs are "the same" without comparing equation bodies.
package sid

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"path/filepath"
	"runtime"
	"strings"
)

// SID is a stable identifier for one elaborated node declaration.
type SID string

// NewSID hashes a declaration's canonical source position together with
// its kind and name into a short, file-system-and-case independent ID.
func NewSID(path string, line, column int, kind, name string) SID {
	canonPath := canonicalizePath(path)

	parts := []string{
		canonPath,
		fmt.Sprintf("%d", line),
		fmt.Sprintf("%d", column),
		kind,
		name,
	}

	input := strings.Join(parts, "|")
	hash := sha256.Sum256([]byte(input))
	return SID(hex.EncodeToString(hash[:])[:16])
}

// canonicalizePath normalizes a file path for stable SID calculation.
func canonicalizePath(path string) string {
	path = filepath.Clean(path)

	if resolved, err := filepath.EvalSymlinks(path); err == nil {
		path = resolved
	}

	if !filepath.IsAbs(path) {
		if abs, err := filepath.Abs(path); err == nil {
			path = abs
		}
	}

	// On case-insensitive filesystems (Windows, macOS), normalize to
	// lowercase. This is for SID stability only - actual resolution uses
	// real FS semantics.
	if isCaseInsensitive() {
		path = strings.ToLower(path)
	}

	return filepath.ToSlash(path)
}

func isCaseInsensitive() bool {
	return runtime.GOOS == "windows" || runtime.GOOS == "darwin"
}
