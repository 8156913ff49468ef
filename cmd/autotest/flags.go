package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

var inputExtensions = []string{".yaml", ".yml", ".json"}

// resolveInput finds a script or batch file. name is tried as a path first,
// then inside dir, with each known extension when it has none.
func resolveInput(kind, dir, name string) (string, error) {
	if strings.TrimSpace(name) == "" {
		return "", fmt.Errorf("%s name is required", kind)
	}

	candidates := []string{name}
	if filepath.Ext(name) == "" {
		for _, ext := range inputExtensions {
			candidates = append(candidates, filepath.Join(dir, name+ext))
		}
	} else {
		candidates = append(candidates, filepath.Join(dir, name))
	}

	for _, candidate := range candidates {
		info, err := os.Stat(candidate)
		if err == nil && !info.IsDir() {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("%s %q does not exist in %s", kind, name, dir)
}

// requireDir checks that path is an existing directory.
func requireDir(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("directory does not exist: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("%s is not a directory", path)
	}
	return nil
}
