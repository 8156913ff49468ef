package model

import (
	"fmt"
	"sort"
)

// TotalKey is the deficit key holding the sum of all category contributions.
const TotalKey = "total"

// ScoreResult is attached to the trailing score act of a report.
//
// A category's contribution lives in Deficit when it was measured and in
// Inferences when its test crashed or never ran; never both.
type ScoreResult struct {
	ScoreProc  string         `json:"scoreProc"`
	Version    string         `json:"version"`
	Deficit    map[string]int `json:"deficit"`
	Inferences map[string]int `json:"inferences"`
}

// NewScoreResult returns an empty result tagged with the scoring procedure.
func NewScoreResult(scoreProc, version string) ScoreResult {
	return ScoreResult{
		ScoreProc:  scoreProc,
		Version:    version,
		Deficit:    map[string]int{TotalKey: 0},
		Inferences: map[string]int{},
	}
}

// Total returns deficit.total.
func (s ScoreResult) Total() int {
	return s.Deficit[TotalKey]
}

// Contribution returns a category's deficit and whether it was inferred.
func (s ScoreResult) Contribution(category string) (value int, inferred bool, ok bool) {
	if v, found := s.Inferences[category]; found {
		return v, true, true
	}
	if category == TotalKey {
		return 0, false, false
	}
	v, found := s.Deficit[category]
	return v, false, found
}

// Categories returns every scored category, measured or inferred, sorted.
func (s ScoreResult) Categories() []string {
	seen := make(map[string]struct{}, len(s.Deficit)+len(s.Inferences))
	for c := range s.Deficit {
		if c != TotalKey {
			seen[c] = struct{}{}
		}
	}
	for c := range s.Inferences {
		seen[c] = struct{}{}
	}
	out := make([]string, 0, len(seen))
	for c := range seen {
		out = append(out, c)
	}
	sort.Strings(out)
	return out
}

// Recompute sets deficit.total from scratch.
func (s *ScoreResult) Recompute() {
	if s.Deficit == nil {
		s.Deficit = map[string]int{}
	}
	total := 0
	for c, v := range s.Deficit {
		if c != TotalKey {
			total += v
		}
	}
	for _, v := range s.Inferences {
		total += v
	}
	s.Deficit[TotalKey] = total
}

// Check verifies the total and exclusivity invariants.
func (s ScoreResult) Check() error {
	sum := 0
	for c, v := range s.Deficit {
		if c == TotalKey {
			continue
		}
		if v < 0 {
			return fmt.Errorf("category %s has negative deficit %d", c, v)
		}
		if _, dup := s.Inferences[c]; dup {
			return fmt.Errorf("category %s is both measured and inferred", c)
		}
		sum += v
	}
	for c, v := range s.Inferences {
		if c == TotalKey {
			return fmt.Errorf("inferences must not contain %q", TotalKey)
		}
		if v < 0 {
			return fmt.Errorf("category %s has negative inference %d", c, v)
		}
		sum += v
	}
	total, ok := s.Deficit[TotalKey]
	if !ok {
		return fmt.Errorf("deficit is missing %q", TotalKey)
	}
	if total != sum {
		return fmt.Errorf("deficit total %d does not match category sum %d", total, sum)
	}
	return nil
}

// Clone returns a deep copy.
func (s ScoreResult) Clone() ScoreResult {
	out := ScoreResult{
		ScoreProc:  s.ScoreProc,
		Version:    s.Version,
		Deficit:    make(map[string]int, len(s.Deficit)),
		Inferences: make(map[string]int, len(s.Inferences)),
	}
	for k, v := range s.Deficit {
		out.Deficit[k] = v
	}
	for k, v := range s.Inferences {
		out.Inferences[k] = v
	}
	return out
}
