package assemble

import (
	"fmt"
	"html"
	"sort"
	"strings"

	"github.com/alexisbeaulieu97/autotest/internal/model"
	"github.com/alexisbeaulieu97/autotest/internal/ports"
)

// Ranking is one host's combined deficit across several report sets.
type Ranking struct {
	Host  string
	Name  string
	URL   string
	Score int
	// Parts holds the host's total in each set, in set order.
	Parts []int
}

// Rank combines report sets by host and orders hosts by ascending combined
// total. Hosts missing from any set, or unscored in any set, are left out
// and returned by name.
func Rank(sets ...[]model.Report) ([]Ranking, []string) {
	if len(sets) == 0 {
		return nil, nil
	}

	indexed := make([]map[string]*model.Report, len(sets))
	for i, set := range sets {
		indexed[i] = make(map[string]*model.Report, len(set))
		for j := range set {
			indexed[i][set[j].Host.Which] = &set[j]
		}
	}

	var (
		rankings []Ranking
		skipped  []string
	)
	for j := range sets[0] {
		first := &sets[0][j]
		ranking := Ranking{
			Host:  first.Host.Which,
			Name:  first.Target(),
			URL:   reportURL(first),
			Parts: make([]int, 0, len(sets)),
		}
		complete := true
		for _, set := range indexed {
			report, ok := set[ranking.Host]
			if !ok || report.Score() == nil {
				complete = false
				break
			}
			total := report.Score().Total()
			ranking.Score += total
			ranking.Parts = append(ranking.Parts, total)
		}
		if !complete {
			skipped = append(skipped, ranking.Host)
			continue
		}
		rankings = append(rankings, ranking)
	}

	sort.SliceStable(rankings, func(i, j int) bool {
		if rankings[i].Score != rankings[j].Score {
			return rankings[i].Score < rankings[j].Score
		}
		return rankings[i].Host < rankings[j].Host
	})
	return rankings, skipped
}

// RenderComparison fills a compare template with the ranking table.
func (a *Assembler) RenderComparison(tmpl ports.Template, rankings []Ranking) (string, error) {
	rows := make([]string, len(rankings))
	for i, r := range rankings {
		url := html.EscapeString(r.URL)
		rows[i] = fmt.Sprintf(`<tr><td>%d</td><td>%s</td><td><a href="%s">%s</a></td></tr>`, r.Score, html.EscapeString(r.Name), url, url)
	}

	params := a.dateParams()
	params["comparisonRows"] = strings.Join(rows, "\n            ")
	params["hostCount"] = fmt.Sprint(len(rankings))
	return Substitute(tmpl, params)
}
