package config

import (
	"path/filepath"
	"strings"
)

// ResolveRuntimePath returns an absolute path for raw, or for fallback when
// raw is empty. Relative paths are taken from the working directory, the
// same base file post sources are read from.
func ResolveRuntimePath(raw, fallback string) string {
	target := strings.TrimSpace(raw)
	if target == "" {
		target = strings.TrimSpace(fallback)
	}
	if target == "" {
		target = "."
	}
	abs, err := filepath.Abs(target)
	if err != nil {
		return filepath.Clean(target)
	}
	return abs
}
