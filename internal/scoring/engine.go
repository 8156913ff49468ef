package scoring

import (
	"errors"
	"fmt"
	"sort"

	"github.com/alexisbeaulieu97/autotest/internal/model"
)

// LogCategory is the synthetic category fed by a host's diagnostics counters.
const LogCategory = "log"

// Inputs maps a category to its test outcome. A nil or crashed outcome means
// the category could not be measured.
type Inputs map[string]*model.Outcome

// InputsFromReport collects the outcomes of a report's test acts and the
// synthetic log input built from its diagnostics.
func InputsFromReport(report *model.Report) Inputs {
	inputs := make(Inputs)
	for _, act := range report.Acts {
		if act.Type == model.ActTest {
			inputs[act.Which] = act.Outcome
		}
	}
	if _, ok := inputs[LogCategory]; !ok {
		inputs[LogCategory] = model.Succeeded(report.Diagnostics.Subtotals())
	}
	return inputs
}

// Engine scores test outcomes against a profile. It holds no mutable state
// and is safe for concurrent use.
type Engine struct {
	profile *Profile
}

// NewEngine builds an engine over a validated profile.
func NewEngine(profile *Profile) *Engine {
	if profile == nil {
		profile = DefaultProfile()
	}
	return &Engine{profile: profile}
}

// Profile returns the engine's profile.
func (e *Engine) Profile() *Profile {
	return e.profile
}

// Score converts outcomes into a score result. Every input category
// contributes exactly once, in deficit when measured and in inferences
// otherwise. The returned error joins rule problems; the result is complete
// even when it is non-nil, with the affected categories inferred.
func (e *Engine) Score(inputs Inputs) (model.ScoreResult, error) {
	result := model.NewScoreResult(e.profile.ScoreProc, e.profile.Version)

	var errs []error
	for _, category := range sortedCategories(inputs) {
		if err := e.contribute(&result, category, inputs[category]); err != nil {
			errs = append(errs, err)
		}
	}
	result.Recompute()
	return result, errors.Join(errs...)
}

// Inference returns the fallback value of a category.
func (e *Engine) Inference(category string) int {
	if cat, ok := e.profile.Categories[category]; ok {
		return cat.Inference
	}
	return e.profile.DefaultInference
}

func (e *Engine) contribute(result *model.ScoreResult, category string, outcome *model.Outcome) error {
	delete(result.Deficit, category)
	delete(result.Inferences, category)

	if outcome.Crashed() {
		result.Inferences[category] = e.Inference(category)
		return nil
	}

	cat, ok := e.profile.Categories[category]
	if !ok {
		result.Inferences[category] = e.profile.DefaultInference
		return fmt.Errorf("category %s has no rule in profile %s v%s", category, e.profile.ScoreProc, e.profile.Version)
	}

	value, err := cat.Rule.Apply(category, outcome.Raw)
	if err != nil {
		result.Inferences[category] = cat.Inference
		return err
	}
	result.Deficit[category] = value
	return nil
}

// RescoreOptions controls which categories Rescore recomputes.
type RescoreOptions struct {
	// Previous is the profile the report was scored with. When nil every
	// category is recomputed.
	Previous *Profile
	// Force recomputes every category even when the report already carries
	// the engine's scoreProc and version.
	Force bool
}

// Rescore returns a copy of report scored with the engine's profile. Only the
// categories whose rule changed are recomputed; the total is rebuilt from
// scratch. It also returns the recomputed categories.
func (e *Engine) Rescore(report model.Report, opts RescoreOptions) (model.Report, []string, error) {
	out := report.Clone()
	act := out.ScoreAct()
	if act == nil {
		return out, nil, fmt.Errorf("report %s has no score act", report.ID)
	}

	inputs := InputsFromReport(&out)
	if act.Score == nil {
		result, err := e.Score(inputs)
		act.Score = &result
		return out, result.Categories(), err
	}

	score := act.Score
	current := score.ScoreProc == e.profile.ScoreProc && score.Version == e.profile.Version
	if current && !opts.Force {
		return out, nil, nil
	}

	present := make(map[string]struct{})
	for _, c := range score.Categories() {
		present[c] = struct{}{}
	}
	for c := range inputs {
		present[c] = struct{}{}
	}

	var targets []string
	if opts.Previous == nil || opts.Force {
		for c := range present {
			targets = append(targets, c)
		}
		sort.Strings(targets)
	} else {
		for _, c := range e.profile.Changed(opts.Previous) {
			if _, ok := present[c]; ok {
				targets = append(targets, c)
			}
		}
	}

	if score.Deficit == nil {
		score.Deficit = map[string]int{}
	}
	if score.Inferences == nil {
		score.Inferences = map[string]int{}
	}
	var errs []error
	for _, c := range targets {
		if err := e.contribute(score, c, inputs[c]); err != nil {
			errs = append(errs, err)
		}
	}
	score.ScoreProc = e.profile.ScoreProc
	score.Version = e.profile.Version
	score.Recompute()
	return out, targets, errors.Join(errs...)
}

func sortedCategories(inputs Inputs) []string {
	names := make([]string, 0, len(inputs))
	for name := range inputs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
