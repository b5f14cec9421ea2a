// Package pathutil resolves user-supplied file paths.
package pathutil

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Expand replaces a leading ~ with the home directory and expands
// $VAR and ${VAR} references.
func Expand(path string) (string, error) {
	path = os.ExpandEnv(path)
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("expand home dir: %w", err)
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~")), nil
}

// ResolvePath expands path and makes it absolute. Relative paths are
// resolved from baseDir, or from the working directory when baseDir is empty.
func ResolvePath(path, baseDir string) (string, error) {
	if path == "" {
		return "", fmt.Errorf("path cannot be empty")
	}

	expanded, err := Expand(path)
	if err != nil {
		return "", err
	}
	if filepath.IsAbs(expanded) {
		return filepath.Clean(expanded), nil
	}

	if baseDir == "" {
		if baseDir, err = os.Getwd(); err != nil {
			return "", fmt.Errorf("get working dir: %w", err)
		}
	}
	return filepath.Join(baseDir, expanded), nil
}
