package scoring

import (
	"fmt"
	"math"
	"sort"

	"github.com/alexisbeaulieu97/autotest/internal/model"
)

// epsilon absorbs binary rounding before flooring, so 0.29*100 floors to 29.
const epsilon = 1e-9

// ShapeMismatchError reports a raw result whose shape the category rule cannot read.
type ShapeMismatchError struct {
	Category string
	Rule     RuleKind
	Shape    model.Shape
}

func (e *ShapeMismatchError) Error() string {
	return fmt.Sprintf("category %s: %s rule cannot score a %s result", e.Category, e.Rule, e.Shape)
}

// Apply evaluates the rule over a raw result and returns a non-negative deficit.
func (r Rule) Apply(category string, raw model.RawResult) (int, error) {
	switch r.Kind {
	case RuleViolations:
		v, ok := raw.(*model.Violations)
		if !ok {
			return 0, mismatch(category, r.Kind, raw)
		}
		return r.violations(v), nil
	case RulePower:
		s, ok := raw.(*model.Subtotals)
		if !ok {
			return 0, mismatch(category, r.Kind, raw)
		}
		metric, _ := s.Get(r.Metric)
		return Power(r.Factor, metric, r.Threshold, r.Exponent), nil
	case RuleWeighted:
		s, ok := raw.(*model.Subtotals)
		if !ok {
			return 0, mismatch(category, r.Kind, raw)
		}
		return r.weighted(s), nil
	case RuleTally:
		t, ok := raw.(*model.Tally)
		if !ok {
			return 0, mismatch(category, r.Kind, raw)
		}
		return r.tally(t), nil
	default:
		return 0, fmt.Errorf("category %s: unknown rule kind %q", category, r.Kind)
	}
}

func mismatch(category string, kind RuleKind, raw model.RawResult) error {
	var shape model.Shape = "none"
	if raw != nil {
		shape = raw.Shape()
	}
	return &ShapeMismatchError{Category: category, Rule: kind, Shape: shape}
}

// Power is floor(factor * max(0, metric-threshold)^exponent), clamped to zero.
func Power(factor, metric, threshold, exponent float64) int {
	excess := math.Max(0, metric-threshold)
	if excess == 0 {
		return 0
	}
	return clampFloor(factor * math.Pow(excess, exponent))
}

func (r Rule) violations(v *model.Violations) int {
	items := v.Items
	if len(r.Groups) > 0 {
		allowed := make(map[string]struct{}, len(r.Groups))
		for _, g := range r.Groups {
			allowed[g] = struct{}{}
		}
		kept := make([]model.Violation, 0, len(items))
		for _, item := range items {
			if _, ok := allowed[item.Group]; ok {
				kept = append(kept, item)
			}
		}
		items = kept
	}

	filtered := &model.Violations{Items: items}
	total := r.PerRule * float64(filtered.DistinctRules())
	for _, item := range items {
		weight := r.PerInstance
		if w, ok := r.Impacts[item.Impact]; ok {
			weight *= w
		}
		if w, ok := r.GroupWeights[item.Group]; ok {
			weight *= w
		}
		total += weight * float64(max(1, item.Count))
	}
	return clampFloor(total)
}

// weighted and tally add in sorted key order so a score never depends on
// map iteration.
func (r Rule) weighted(s *model.Subtotals) int {
	total := 0.0
	for _, name := range s.Names() {
		value := s.Values[name]
		weight, ok := r.Weights[name]
		if !ok {
			weight = r.DefaultWeight
		}
		total += weight * math.Max(0, value)
	}
	return clampFloor(total)
}

func (r Rule) tally(t *model.Tally) int {
	total := 0.0
	for _, tag := range sortedKeys(t.Tags) {
		values := t.Tags[tag]
		for _, value := range sortedKeys(values) {
			count := values[value]
			weight := r.Weight
			if w, ok := r.ValueWeights[value]; ok {
				weight = w
			}
			total += weight * float64(max(0, count))
		}
	}
	return clampFloor(total)
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func clampFloor(x float64) int {
	if math.IsNaN(x) || x <= 0 {
		return 0
	}
	if x >= math.MaxInt32 {
		return math.MaxInt32
	}
	return int(math.Floor(x + epsilon))
}
