package scoring

import (
	_ "embed"
	"fmt"
	"reflect"
	"sort"

	"gopkg.in/yaml.v3"
)

// RuleKind selects the extraction formula of a category.
type RuleKind string

const (
	// RuleViolations weighs distinct rules and instances of a violations result.
	RuleViolations RuleKind = "violations"
	// RulePower applies floor(factor * max(0, metric - threshold)^exponent) to one sub-metric.
	RulePower RuleKind = "power"
	// RuleWeighted sums weighted sub-metrics.
	RuleWeighted RuleKind = "weighted"
	// RuleTally weighs the counts of an element tally.
	RuleTally RuleKind = "tally"
)

// Rule is the configuration of one category formula. Only the fields of the
// selected Kind are consulted.
type Rule struct {
	Kind RuleKind `yaml:"kind" json:"kind" validate:"required,oneof=violations power weighted tally"`

	// violations
	PerRule      float64            `yaml:"perRule,omitempty" json:"perRule,omitempty" validate:"gte=0"`
	PerInstance  float64            `yaml:"perInstance,omitempty" json:"perInstance,omitempty" validate:"gte=0"`
	Impacts      map[string]float64 `yaml:"impacts,omitempty" json:"impacts,omitempty" validate:"omitempty,dive,gte=0"`
	GroupWeights map[string]float64 `yaml:"groupWeights,omitempty" json:"groupWeights,omitempty" validate:"omitempty,dive,gte=0"`
	Groups       []string           `yaml:"groups,omitempty" json:"groups,omitempty"`

	// power
	Metric    string  `yaml:"metric,omitempty" json:"metric,omitempty"`
	Factor    float64 `yaml:"factor,omitempty" json:"factor,omitempty" validate:"gte=0"`
	Threshold float64 `yaml:"threshold,omitempty" json:"threshold,omitempty" validate:"gte=0"`
	Exponent  float64 `yaml:"exponent,omitempty" json:"exponent,omitempty" validate:"gte=0"`

	// weighted
	Weights       map[string]float64 `yaml:"weights,omitempty" json:"weights,omitempty" validate:"omitempty,dive,gte=0"`
	DefaultWeight float64            `yaml:"defaultWeight,omitempty" json:"defaultWeight,omitempty" validate:"gte=0"`

	// tally
	Weight       float64            `yaml:"weight,omitempty" json:"weight,omitempty" validate:"gte=0"`
	ValueWeights map[string]float64 `yaml:"valueWeights,omitempty" json:"valueWeights,omitempty" validate:"omitempty,dive,gte=0"`
}

// Category couples a rule with the inferred value used when the test did not
// complete.
type Category struct {
	Rule      Rule `yaml:"rule" json:"rule"`
	Inference int  `yaml:"inference" json:"inference" validate:"gte=0"`
	// Hide lists sub-metric names left out of explanations.
	Hide []string `yaml:"hide,omitempty" json:"hide,omitempty"`
}

// Band is one severity band of the total. A band covers totals below Below
// and at or above the previous band's bound. Below is zero only for the last,
// unbounded band.
type Band struct {
	Name  string `yaml:"name" json:"name" validate:"required"`
	Below int    `yaml:"below,omitempty" json:"below,omitempty" validate:"gte=0"`
	Color string `yaml:"color,omitempty" json:"color,omitempty"`
}

// Profile is the swappable scoring configuration: formulas, fallbacks and bands.
type Profile struct {
	ScoreProc        string              `yaml:"scoreProc" json:"scoreProc" validate:"required"`
	Version          string              `yaml:"version" json:"version" validate:"required"`
	DefaultInference int                 `yaml:"defaultInference,omitempty" json:"defaultInference,omitempty" validate:"gte=0"`
	Categories       map[string]Category `yaml:"categories" json:"categories" validate:"required,min=1,dive,keys,category,endkeys"`
	Bands            []Band              `yaml:"bands" json:"bands" validate:"required,min=1,dive"`
}

//go:embed default_profile.yaml
var defaultProfileYAML []byte

// DecodeProfile parses a profile document. It does not validate it.
func DecodeProfile(data []byte) (*Profile, error) {
	var p Profile
	if err := yaml.Unmarshal(data, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// DefaultProfile returns the built-in a11y version 7 profile.
func DefaultProfile() *Profile {
	p, err := DecodeProfile(defaultProfileYAML)
	if err != nil {
		panic(fmt.Sprintf("scoring: embedded default profile: %v", err))
	}
	return p
}

// CategoryNames returns the configured categories in sorted order.
func (p *Profile) CategoryNames() []string {
	names := make([]string, 0, len(p.Categories))
	for name := range p.Categories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Band returns the band the total falls into.
func (p *Profile) Band(total int) Band {
	for _, b := range p.Bands {
		if b.Below == 0 || total < b.Below {
			return b
		}
	}
	if len(p.Bands) == 0 {
		return Band{}
	}
	return p.Bands[len(p.Bands)-1]
}

// BandIndex returns the position of the total's band.
func (p *Profile) BandIndex(total int) int {
	for i, b := range p.Bands {
		if b.Below == 0 || total < b.Below {
			return i
		}
	}
	return len(p.Bands) - 1
}

// Changed returns the categories whose rule or inference differs between prev
// and p, including categories present in only one of them.
func (p *Profile) Changed(prev *Profile) []string {
	seen := make(map[string]struct{})
	for name, cat := range p.Categories {
		old, ok := prev.Categories[name]
		if !ok || !reflect.DeepEqual(old.Rule, cat.Rule) || old.Inference != cat.Inference {
			seen[name] = struct{}{}
		}
	}
	for name := range prev.Categories {
		if _, ok := p.Categories[name]; !ok {
			seen[name] = struct{}{}
		}
	}
	out := make([]string, 0, len(seen))
	for name := range seen {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}
