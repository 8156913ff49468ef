package assemble

import (
	"fmt"
	"html"
	"sort"
	"strconv"
	"strings"

	"github.com/alexisbeaulieu97/autotest/internal/model"
)

// narrative states whether the page passed, failed or could not be measured
// on a category.
func (a *Assembler) narrative(category string, score model.ScoreResult, outcome *model.Outcome, file string) string {
	value, inferred, ok := score.Contribution(category)
	switch {
	case !ok:
		return fmt.Sprintf("<p>The <code>%s</code> test was not run.</p>", category)
	case inferred:
		return fmt.Sprintf("<p>The <code>%s</code> test could not be performed. The page received an inferred score of %d on <code>%s</code>.</p>", category, value, category)
	case value == 0:
		return fmt.Sprintf("<p>The page <strong>passed</strong> the <code>%s</code> test.</p>", category)
	}

	failed := fmt.Sprintf(
		`<p>The page <strong>did not pass</strong> the <code>%s</code> test and received a score of %d on <code>%s</code>. The details are in the <a href="%s%s">JSON-format file</a>, in the section starting with <code>"which": "%s"</code>.`,
		category, value, category, a.linkPrefix, file, category,
	)
	lines := a.explain(category, outcome)
	if len(lines) == 0 {
		return failed + "</p>"
	}

	items := make([]string, len(lines))
	for i, line := range lines {
		items[i] = "<li>" + line + "</li>"
	}
	list := joiner + "<ul>" + innerJoiner + strings.Join(items, innerJoiner) + joiner + "</ul>"

	if outcome != nil && outcome.Raw != nil && outcome.Raw.Shape() == model.ShapeViolations {
		return failed + " There was at least one failure of:</p>" + list
	}
	return failed + "</p>" + joiner + "<p>Summary of the details:</p>" + list
}

// explain lists the findings behind a failed category. It reads the raw
// result and never modifies it.
func (a *Assembler) explain(category string, outcome *model.Outcome) []string {
	if outcome == nil || outcome.Raw == nil {
		return nil
	}
	hidden := make(map[string]struct{})
	if cat, ok := a.profile.Categories[category]; ok {
		for _, name := range cat.Hide {
			hidden[name] = struct{}{}
		}
	}

	switch raw := outcome.Raw.(type) {
	case *model.Violations:
		return explainViolations(raw)
	case *model.Subtotals:
		var lines []string
		for _, name := range raw.Names() {
			if _, skip := hidden[name]; skip {
				continue
			}
			value, _ := raw.Get(name)
			lines = append(lines, fmt.Sprintf("%s: %s", html.EscapeString(name), strconv.FormatFloat(value, 'f', -1, 64)))
		}
		return lines
	case *model.Tally:
		var lines []string
		for _, tag := range raw.TagNames() {
			if _, skip := hidden[tag]; skip {
				continue
			}
			values := raw.Tags[tag]
			keys := make([]string, 0, len(values))
			for k := range values {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			for _, k := range keys {
				lines = append(lines, fmt.Sprintf("%s/%s: %d", html.EscapeString(tag), html.EscapeString(k), values[k]))
			}
		}
		return lines
	}
	return nil
}

func explainViolations(raw *model.Violations) []string {
	seen := make(map[string]struct{}, len(raw.Items))
	lines := make([]string, 0, len(raw.Items))
	for _, item := range raw.Items {
		rule := item.Rule
		if item.Group != "" {
			rule = item.Group + "/" + rule
		}
		line := html.EscapeString(rule) + ": " + html.EscapeString(item.Description)
		if _, dup := seen[line]; dup {
			continue
		}
		seen[line] = struct{}{}
		lines = append(lines, line)
	}
	return lines
}
