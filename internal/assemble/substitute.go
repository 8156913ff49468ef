package assemble

import (
	"errors"
	"regexp"

	"github.com/alexisbeaulieu97/autotest/internal/ports"
	autotesterrors "github.com/alexisbeaulieu97/autotest/pkg/errors"
)

var placeholderPattern = regexp.MustCompile(`__([a-zA-Z]+)__`)

var errUndeclared = errors.New("placeholder is not declared by the template")

// References returns the placeholder names body uses, in order of first use.
func References(body string) []string {
	var names []string
	seen := make(map[string]struct{})
	for _, m := range placeholderPattern.FindAllStringSubmatch(body, -1) {
		if _, ok := seen[m[1]]; ok {
			continue
		}
		seen[m[1]] = struct{}{}
		names = append(names, m[1])
	}
	return names
}

// Substitute replaces every __name__ in the template body with params[name]
// in a single pass. Substituted values are never rescanned. A name that is
// missing from params, or absent from a non-empty declared set, fails the
// whole document.
func Substitute(tmpl ports.Template, params map[string]string) (string, error) {
	var declared map[string]struct{}
	if len(tmpl.Placeholders) > 0 {
		declared = make(map[string]struct{}, len(tmpl.Placeholders))
		for _, name := range tmpl.Placeholders {
			declared[name] = struct{}{}
		}
	}

	for _, name := range References(tmpl.Body) {
		if declared != nil {
			if _, ok := declared[name]; !ok {
				return "", autotesterrors.NewReportGenerationError(tmpl.Kind, name, errUndeclared)
			}
		}
		if _, ok := params[name]; !ok {
			return "", autotesterrors.NewReportGenerationError(tmpl.Kind, name, nil)
		}
	}

	return placeholderPattern.ReplaceAllStringFunc(tmpl.Body, func(match string) string {
		return params[match[2:len(match)-2]]
	}), nil
}
