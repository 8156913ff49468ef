package validation

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/exec"
	"strings"

	"github.com/alexisbeaulieu97/autotest/internal/assemble"
)

// CheckCommandExists verifies a command is available on PATH, or at the
// given path when it contains a separator.
func CheckCommandExists(command string) error {
	if command == "" {
		return fmt.Errorf("command name is required")
	}

	if _, err := exec.LookPath(command); err != nil {
		return err
	}
	return nil
}

// CheckDirExists verifies a directory exists at the given path.
func CheckDirExists(path string) error {
	if path == "" {
		return fmt.Errorf("path is required")
	}

	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("path %s does not exist", path)
		}
		return err
	}
	if !info.IsDir() {
		return fmt.Errorf("path %s is not a directory", path)
	}
	return nil
}

// CheckTemplate verifies that the template file at path only uses
// placeholders the assembler supplies for kind.
func CheckTemplate(path, kind string, categories []string) error {
	if path == "" {
		return fmt.Errorf("template path is required")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	names, err := assemble.Placeholders(kind, categories)
	if err != nil {
		return err
	}
	known := make(map[string]struct{}, len(names))
	for _, name := range names {
		known[name] = struct{}{}
	}

	var unknown []string
	for _, ref := range assemble.References(string(data)) {
		if _, ok := known[ref]; !ok {
			unknown = append(unknown, "__"+ref+"__")
		}
	}
	if len(unknown) > 0 {
		return fmt.Errorf("%s uses unknown placeholders %s", path, strings.Join(unknown, ", "))
	}
	return nil
}

// CheckBuiltInCategories returns the categories the built-in template of
// kind renders that are missing from categories.
func CheckBuiltInCategories(kind string, categories []string) ([]string, error) {
	referenced, err := assemble.BuiltInCategories(kind)
	if err != nil {
		return nil, err
	}
	known := make(map[string]struct{}, len(categories))
	for _, c := range categories {
		known[c] = struct{}{}
	}

	var outside []string
	for _, c := range referenced {
		if _, ok := known[c]; !ok {
			outside = append(outside, c)
		}
	}
	return outside, nil
}
