package assemble

import (
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/alexisbeaulieu97/autotest/internal/ports"
)

// Document kinds.
const (
	KindDetail  = "detail"
	KindSummary = "summary"
	KindCompare = "compare"
)

//go:embed templates/*.html
var embedded embed.FS

var reportPlaceholders = []string{
	"dateISO", "dateSlash", "file", "testDate", "scoreProc", "version", "org", "url",
	"totalScore", "deficitRows", "deficitSummary", "scoreTable", "scoreBand", "scoreIndicatorGraphic",
}

var comparePlaceholders = []string{"dateISO", "dateSlash", "comparisonRows", "hostCount"}

// Placeholders lists the names the assembler supplies for a document kind.
// Report documents also get a <category>Result for each category.
func Placeholders(kind string, categories []string) ([]string, error) {
	switch kind {
	case KindDetail, KindSummary:
		names := append([]string(nil), reportPlaceholders...)
		for _, c := range categories {
			names = append(names, c+"Result")
		}
		return names, nil
	case KindCompare:
		return append([]string(nil), comparePlaceholders...), nil
	default:
		return nil, fmt.Errorf("unknown document kind %q", kind)
	}
}

// TemplateSet serves templates from a directory, falling back to the
// built-in templates for kinds the directory does not override.
type TemplateSet struct {
	dir        string
	categories []string
}

var _ ports.TemplateProvider = (*TemplateSet)(nil)

// NewTemplateSet creates a provider. dir may be empty.
func NewTemplateSet(dir string, categories []string) *TemplateSet {
	return &TemplateSet{dir: dir, categories: append([]string(nil), categories...)}
}

// Template returns the template for kind, reading <dir>/<kind>.html when present.
func (s *TemplateSet) Template(kind string) (ports.Template, error) {
	placeholders, err := Placeholders(kind, s.categories)
	if err != nil {
		return ports.Template{}, err
	}

	name := kind + ".html"
	var body []byte
	if s.dir != "" {
		body, err = os.ReadFile(filepath.Join(s.dir, name))
		if err != nil && !errors.Is(err, fs.ErrNotExist) {
			return ports.Template{}, fmt.Errorf("read template %s: %w", name, err)
		}
	}
	if body == nil {
		body, err = embedded.ReadFile("templates/" + name)
		if err != nil {
			return ports.Template{}, fmt.Errorf("built-in template %s: %w", name, err)
		}
		// The built-in layout names a fixed category list, which a custom
		// profile may not share.
		if kind != KindCompare {
			for _, c := range ResultCategories(string(body)) {
				placeholders = appendMissing(placeholders, c+"Result")
			}
		}
	}
	return ports.Template{Kind: kind, Body: string(body), Placeholders: placeholders}, nil
}

// BuiltInCategories lists the categories the built-in template of kind
// renders a narrative for.
func BuiltInCategories(kind string) ([]string, error) {
	if _, err := Placeholders(kind, nil); err != nil {
		return nil, err
	}
	if kind == KindCompare {
		return nil, nil
	}
	body, err := embedded.ReadFile("templates/" + kind + ".html")
	if err != nil {
		return nil, fmt.Errorf("built-in template %s.html: %w", kind, err)
	}
	return ResultCategories(string(body)), nil
}

// ResultCategories returns the sorted categories body references through a
// __<category>Result__ placeholder.
func ResultCategories(body string) []string {
	var out []string
	for _, name := range References(body) {
		if c, ok := strings.CutSuffix(name, "Result"); ok && c != "" {
			out = append(out, c)
		}
	}
	sort.Strings(out)
	return out
}

func appendMissing(names []string, name string) []string {
	for _, n := range names {
		if n == name {
			return names
		}
	}
	return append(names, name)
}
