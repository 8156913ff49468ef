package model

import (
	"encoding/json"
	"fmt"
	"sort"
)

// Shape names one variant of the RawResult union.
type Shape string

const (
	// ShapeViolations is a list of rule violations (axe, IBM, WAVE).
	ShapeViolations Shape = "violations"
	// ShapeTally is an element-tag tally (role, zIndex).
	ShapeTally Shape = "tally"
	// ShapeSubtotals is a set of named numeric sub-metrics (bulk, focus and hover probes, log).
	ShapeSubtotals Shape = "subtotals"
)

// RawResult is the output of one test engine. The set of implementations is
// closed: Violations, Tally and Subtotals.
type RawResult interface {
	Shape() Shape
	cloneRaw() RawResult
}

// Violation is one failed rule reported by a rule-based engine.
type Violation struct {
	Rule        string `json:"rule"`
	Description string `json:"description"`
	Impact      string `json:"impact,omitempty"`
	Group       string `json:"group,omitempty"`
	Count       int    `json:"count"`
}

// Violations is the result shape of rule-based engines.
type Violations struct {
	Items []Violation `json:"items"`
}

// Shape implements RawResult.
func (v *Violations) Shape() Shape { return ShapeViolations }

func (v *Violations) cloneRaw() RawResult {
	out := &Violations{Items: make([]Violation, len(v.Items))}
	copy(out.Items, v.Items)
	return out
}

// DistinctRules counts unique rule identifiers, optionally restricted to groups.
func (v *Violations) DistinctRules(groups ...string) int {
	seen := make(map[string]struct{}, len(v.Items))
	for _, item := range v.filter(groups) {
		seen[item.Group+"/"+item.Rule] = struct{}{}
	}
	return len(seen)
}

// Instances sums violation counts, optionally restricted to groups. An item
// with a zero count still counts as one instance.
func (v *Violations) Instances(groups ...string) int {
	total := 0
	for _, item := range v.filter(groups) {
		total += max(1, item.Count)
	}
	return total
}

func (v *Violations) filter(groups []string) []Violation {
	if len(groups) == 0 {
		return v.Items
	}
	allowed := make(map[string]struct{}, len(groups))
	for _, g := range groups {
		allowed[g] = struct{}{}
	}
	out := make([]Violation, 0, len(v.Items))
	for _, item := range v.Items {
		if _, ok := allowed[item.Group]; ok {
			out = append(out, item)
		}
	}
	return out
}

// Tally counts elements by tag and attribute value, e.g. tag -> role -> count.
type Tally struct {
	Examined int                       `json:"examined,omitempty"`
	Tags     map[string]map[string]int `json:"tags"`
}

// Shape implements RawResult.
func (t *Tally) Shape() Shape { return ShapeTally }

func (t *Tally) cloneRaw() RawResult {
	out := &Tally{Examined: t.Examined, Tags: make(map[string]map[string]int, len(t.Tags))}
	for tag, attrs := range t.Tags {
		inner := make(map[string]int, len(attrs))
		for k, v := range attrs {
			inner[k] = v
		}
		out.Tags[tag] = inner
	}
	return out
}

// Sum returns the total count across all tags.
func (t *Tally) Sum() int {
	total := 0
	for _, attrs := range t.Tags {
		for _, n := range attrs {
			total += n
		}
	}
	return total
}

// TagNames returns the tallied tags in sorted order.
func (t *Tally) TagNames() []string {
	names := make([]string, 0, len(t.Tags))
	for tag := range t.Tags {
		names = append(names, tag)
	}
	sort.Strings(names)
	return names
}

// Subtotals holds named numeric sub-metrics.
type Subtotals struct {
	Values map[string]float64 `json:"values"`
}

// Shape implements RawResult.
func (s *Subtotals) Shape() Shape { return ShapeSubtotals }

func (s *Subtotals) cloneRaw() RawResult {
	out := &Subtotals{Values: make(map[string]float64, len(s.Values))}
	for k, v := range s.Values {
		out.Values[k] = v
	}
	return out
}

// Get returns the named value and whether it was reported.
func (s *Subtotals) Get(name string) (float64, bool) {
	v, ok := s.Values[name]
	return v, ok
}

// Names returns the reported metric names in sorted order.
func (s *Subtotals) Names() []string {
	names := make([]string, 0, len(s.Values))
	for name := range s.Values {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// CloneRaw returns a deep copy of r, or nil.
func CloneRaw(r RawResult) RawResult {
	if r == nil {
		return nil
	}
	return r.cloneRaw()
}

type rawEnvelope struct {
	Shape Shape           `json:"shape"`
	Data  json.RawMessage `json:"data"`
}

// MarshalRaw encodes a RawResult with its shape discriminator.
func MarshalRaw(r RawResult) ([]byte, error) {
	data, err := json.Marshal(r)
	if err != nil {
		return nil, err
	}
	return json.Marshal(rawEnvelope{Shape: r.Shape(), Data: data})
}

// UnmarshalRaw decodes a RawResult produced by MarshalRaw.
func UnmarshalRaw(data []byte) (RawResult, error) {
	var env rawEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, err
	}
	return DecodeShape(env.Shape, env.Data)
}

// DecodeShape decodes a bare payload of the given shape.
func DecodeShape(shape Shape, data []byte) (RawResult, error) {
	var r RawResult
	switch shape {
	case ShapeViolations:
		r = &Violations{}
	case ShapeTally:
		r = &Tally{}
	case ShapeSubtotals:
		r = &Subtotals{}
	default:
		return nil, fmt.Errorf("unknown result shape %q", shape)
	}
	if err := json.Unmarshal(data, r); err != nil {
		return nil, fmt.Errorf("decode %s result: %w", shape, err)
	}
	return r, nil
}
