// Package validation checks that the environment can carry out an audit run
// before any host is visited.
package validation

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/alexisbeaulieu97/autotest/internal/assemble"
	"github.com/alexisbeaulieu97/autotest/internal/config"
)

// Check names a kind of preflight check.
type Check string

const (
	CheckDirectory     Check = "directory"
	CheckEngineCommand Check = "engine_command"
	CheckTemplateFile  Check = "template"
	CheckBuiltIn       Check = "builtin_template"
)

// Result captures the outcome of a single check.
type Result struct {
	Check   Check
	Subject string
	Passed  bool
	Message string
	Error   error
}

// Preflight checks the input directories, the commands of command engines and
// any template overrides. categories are the profile categories templates may
// reference. When categories is non-empty, each built-in report template in
// use that names categories outside it gets a passing result listing them,
// since those sections render as not run. All checks run; the error lists
// every failure.
func Preflight(ctx context.Context, settings *config.Settings, categories []string) ([]Result, error) {
	var results []Result
	var failedMessages []string

	record := func(check Check, subject string, err error) {
		result := Result{Check: check, Subject: subject}
		if err != nil {
			result.Message = err.Error()
			result.Error = err
			failedMessages = append(failedMessages, fmt.Sprintf("%s: %s", subject, err))
		} else {
			result.Passed = true
			result.Message = "passed"
		}
		results = append(results, result)
	}

	record(CheckDirectory, "scriptDir", CheckDirExists(settings.ScriptDir))
	record(CheckDirectory, "batchDir", CheckDirExists(settings.BatchDir))

	names := make([]string, 0, len(settings.Engines))
	for name := range settings.Engines {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if err := ctx.Err(); err != nil {
			return results, err
		}
		spec := settings.Engines[name]
		if spec.Kind != "command" {
			continue
		}
		record(CheckEngineCommand, "engines."+name, CheckCommandExists(spec.Command))
	}

	overridden := make(map[string]bool)
	if settings.TemplateDir != "" {
		if err := CheckDirExists(settings.TemplateDir); err != nil {
			record(CheckDirectory, "templateDir", err)
		} else {
			for _, kind := range []string{assemble.KindDetail, assemble.KindSummary, assemble.KindCompare} {
				path := filepath.Join(settings.TemplateDir, kind+".html")
				if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
					continue
				}
				overridden[kind] = true
				record(CheckTemplateFile, kind+".html", CheckTemplate(path, kind, categories))
			}
		}
	}

	if len(categories) > 0 {
		for _, kind := range []string{assemble.KindDetail, assemble.KindSummary} {
			if overridden[kind] {
				continue
			}
			outside, err := CheckBuiltInCategories(kind, categories)
			if err != nil {
				record(CheckBuiltIn, kind+".html", err)
				continue
			}
			if len(outside) > 0 {
				results = append(results, Result{
					Check:   CheckBuiltIn,
					Subject: kind + ".html",
					Passed:  true,
					Message: "not in profile, rendered as not run: " + strings.Join(outside, ", "),
				})
			}
		}
	}

	if len(failedMessages) > 0 {
		combined := strings.Join(failedMessages, "; ")
		return results, fmt.Errorf("preflight failed: %s", combined)
	}

	return results, nil
}
