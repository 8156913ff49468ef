// Package store persists reports as JSON files and rendered documents as
// HTML files.
package store

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/alexisbeaulieu97/autotest/internal/logger"
	"github.com/alexisbeaulieu97/autotest/internal/model"
	"github.com/alexisbeaulieu97/autotest/internal/ports"
)

// Subdirectories of a report directory.
const (
	JSONDir = "json"
	DocDir  = "html"
)

// ReportName is the file name of the index-th report of a batch run.
func ReportName(timeStamp string, index int) string {
	return fmt.Sprintf("report-%s-%03d.json", timeStamp, index)
}

var unsafeFileChars = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// DocName derives a document file name from the audited URL.
func DocName(url string, summary bool) string {
	name := strings.TrimPrefix(strings.TrimPrefix(url, "https://"), "http://")
	name = strings.Trim(unsafeFileChars.ReplaceAllString(name, "_"), "_")
	if name == "" {
		name = "page"
	}
	if summary {
		name += "-summary"
	}
	return name + ".html"
}

// FileStore keeps one JSON file per report in a directory.
type FileStore struct {
	dir string
	log *logger.Logger
}

var _ ports.ReportStore = (*FileStore)(nil)

// NewFileStore creates the directory if needed.
func NewFileStore(dir string, log *logger.Logger) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create report directory: %w", err)
	}
	return &FileStore{dir: dir, log: log}, nil
}

// Dir returns the directory the store writes to.
func (s *FileStore) Dir() string {
	return s.dir
}

// Save writes report under name atomically and returns the file path.
func (s *FileStore) Save(ctx context.Context, name string, report model.Report) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if err := checkName(name); err != nil {
		return "", err
	}

	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal report %s: %w", name, err)
	}
	path := filepath.Join(s.dir, name)
	if err := WriteFile(path, append(data, '\n')); err != nil {
		return "", err
	}
	s.log.WithFields(map[string]any{"path": path}).Debug("report saved")
	return path, nil
}

// Load reads the report stored under name.
func (s *FileStore) Load(ctx context.Context, name string) (model.Report, error) {
	if err := ctx.Err(); err != nil {
		return model.Report{}, err
	}
	if err := checkName(name); err != nil {
		return model.Report{}, err
	}

	data, err := os.ReadFile(filepath.Join(s.dir, name))
	if err != nil {
		return model.Report{}, err
	}
	var report model.Report
	if err := json.Unmarshal(data, &report); err != nil {
		return model.Report{}, fmt.Errorf("failed to parse report %s: %w", name, err)
	}
	return report, nil
}

// List loads every .json report in the directory, ordered by file name.
func (s *FileStore) List(ctx context.Context) ([]ports.StoredReport, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, err
	}

	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.Type().IsRegular() && strings.HasSuffix(entry.Name(), ".json") {
			names = append(names, entry.Name())
		}
	}
	sort.Strings(names)

	reports := make([]ports.StoredReport, 0, len(names))
	for _, name := range names {
		report, err := s.Load(ctx, name)
		if err != nil {
			return nil, err
		}
		reports = append(reports, ports.StoredReport{Name: name, Report: report})
	}
	return reports, nil
}

func checkName(name string) error {
	if name == "" || filepath.Base(name) != name || !strings.HasSuffix(name, ".json") {
		return fmt.Errorf("invalid report file name %q", name)
	}
	return nil
}

// WriteFile writes data to path through a temporary file and a rename, so
// readers never see a partial file.
func WriteFile(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}
	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0o644); err != nil {
		return fmt.Errorf("failed to write temporary file: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("failed to rename temporary file: %w", err)
	}
	return nil
}
