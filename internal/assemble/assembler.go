// Package assemble renders human-readable documents from scored reports.
//
// Rendering is pure: given a report, a template and a clock, the output is
// byte-identical across calls except for the date placeholders.
package assemble

import (
	"errors"
	"fmt"
	"html"
	"sort"
	"strings"
	"time"

	"github.com/alexisbeaulieu97/autotest/internal/model"
	"github.com/alexisbeaulieu97/autotest/internal/ports"
	"github.com/alexisbeaulieu97/autotest/internal/scoring"
	autotesterrors "github.com/alexisbeaulieu97/autotest/pkg/errors"
)

// DefaultLinkPrefix is prepended to the report file name in links from
// documents back to the JSON report.
const DefaultLinkPrefix = "../json/"

const (
	joiner      = "\n      "
	innerJoiner = "\n        "
)

// Options tune document rendering.
type Options struct {
	// Profile supplies bands and explanation filters. Nil uses the default profile.
	Profile *scoring.Profile
	// Clock feeds the dateISO and dateSlash placeholders. Defaults to time.Now.
	Clock func() time.Time
	// LinkPrefix defaults to DefaultLinkPrefix.
	LinkPrefix string
}

// Assembler builds document placeholder values and renders templates.
type Assembler struct {
	profile    *scoring.Profile
	clock      func() time.Time
	linkPrefix string
}

// New creates an Assembler.
func New(opts Options) *Assembler {
	a := &Assembler{profile: opts.Profile, clock: opts.Clock, linkPrefix: opts.LinkPrefix}
	if a.profile == nil {
		a.profile = scoring.DefaultProfile()
	}
	if a.clock == nil {
		a.clock = time.Now
	}
	if a.linkPrefix == "" {
		a.linkPrefix = DefaultLinkPrefix
	}
	return a
}

// Render fills tmpl with the placeholder values of report. file is the name
// the report is stored under.
func (a *Assembler) Render(tmpl ports.Template, report model.Report, file string) (string, error) {
	params, err := a.Params(report, file)
	if err != nil {
		return "", autotesterrors.NewReportGenerationError(tmpl.Kind, "", err)
	}
	// Declared categories outside the profile were never run.
	score := *report.Score()
	for _, name := range tmpl.Placeholders {
		category, ok := strings.CutSuffix(name, "Result")
		if !ok || category == "" {
			continue
		}
		if _, known := params[name]; !known {
			params[name] = a.narrative(category, score, nil, file)
		}
	}
	return Substitute(tmpl, params)
}

// Params computes every placeholder value for report.
func (a *Assembler) Params(report model.Report, file string) (map[string]string, error) {
	scored := report.Score()
	if scored == nil {
		return nil, errors.New("report has no score")
	}
	score := *scored

	params := a.dateParams()
	params["file"] = file
	params["testDate"] = report.TestDate
	params["scoreProc"] = score.ScoreProc
	params["version"] = score.Version
	params["org"] = html.EscapeString(report.Target())
	params["url"] = html.EscapeString(reportURL(&report))

	total := score.Total()
	params["totalScore"] = fmt.Sprint(total)
	params["deficitRows"] = deficitRows(score)
	params["deficitSummary"] = deficitSummary(score)
	params["scoreTable"] = scoreTable(score)
	params["scoreBand"] = a.profile.Band(total).Name
	params["scoreIndicatorGraphic"] = indicator(a.profile.Bands, a.profile.BandIndex(total))

	inputs := scoring.InputsFromReport(&report)
	for _, category := range a.categories(score) {
		params[category+"Result"] = a.narrative(category, score, inputs[category], file)
	}
	return params, nil
}

func (a *Assembler) dateParams() map[string]string {
	dateISO := a.clock().UTC().Format(time.DateOnly)
	return map[string]string{
		"dateISO":   dateISO,
		"dateSlash": strings.ReplaceAll(dateISO, "-", "/"),
	}
}

// categories is every profile category plus any scored category the
// profile does not know.
func (a *Assembler) categories(score model.ScoreResult) []string {
	seen := make(map[string]struct{})
	for _, c := range a.profile.CategoryNames() {
		seen[c] = struct{}{}
	}
	for _, c := range score.Categories() {
		seen[c] = struct{}{}
	}
	out := make([]string, 0, len(seen))
	for c := range seen {
		out = append(out, c)
	}
	sort.Strings(out)
	return out
}

func reportURL(report *model.Report) string {
	if act := report.URLAct(); act != nil && act.Which != "" {
		return act.Which
	}
	return report.Host.URL
}

type row struct {
	name  string
	value int
}

// ranked orders rows by descending value, then name.
func ranked(values map[string]int, keep func(name string, value int) bool) []row {
	rows := make([]row, 0, len(values))
	for name, value := range values {
		if keep(name, value) {
			rows = append(rows, row{name: name, value: value})
		}
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].value != rows[j].value {
			return rows[i].value > rows[j].value
		}
		return rows[i].name < rows[j].name
	})
	return rows
}

func deficitRows(score model.ScoreResult) string {
	merged := make(map[string]int, len(score.Deficit)+len(score.Inferences))
	for c, v := range score.Deficit {
		merged[c] = v
	}
	for c, v := range score.Inferences {
		merged[c] = v
	}
	rows := ranked(merged, func(string, int) bool { return true })
	lines := make([]string, len(rows))
	for i, r := range rows {
		lines[i] = fmt.Sprintf("<tr><th>%s</th><td>%d</td></tr>", r.name, r.value)
	}
	return strings.Join(lines, innerJoiner)
}

func deficitSummary(score model.ScoreResult) string {
	rows := ranked(score.Deficit, func(name string, value int) bool {
		return name != model.TotalKey && value > 0
	})
	lines := make([]string, len(rows))
	for i, r := range rows {
		lines[i] = fmt.Sprintf(`<div><code class="bold">%s:</code> did not pass</div>`, r.name)
	}
	return strings.Join(lines, innerJoiner)
}

// scoreTable lists the measured deficits one per line, total first.
func scoreTable(score model.ScoreResult) string {
	var b strings.Builder
	fmt.Fprintf(&b, "  %s: %d\n", model.TotalKey, score.Total())
	names := make([]string, 0, len(score.Deficit))
	for c := range score.Deficit {
		if c != model.TotalKey {
			names = append(names, c)
		}
	}
	sort.Strings(names)
	for _, c := range names {
		fmt.Fprintf(&b, "  %s: %d\n", c, score.Deficit[c])
	}
	return b.String()
}
