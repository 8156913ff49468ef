package model

import (
	"encoding/json"
	"fmt"
)

// ActType identifies the kind of a script step.
type ActType string

const (
	// ActURL navigates to the target page.
	ActURL ActType = "url"
	// ActTest runs one test engine against the current page.
	ActTest ActType = "test"
	// ActScore scores the preceding test acts.
	ActScore ActType = "score"
	// ActComparison is reserved for cross-host comparisons.
	ActComparison ActType = "comparison"
)

// CrashKind classifies why a test produced no raw result.
type CrashKind string

const (
	CrashFailed     CrashKind = "crash"
	CrashTimeout    CrashKind = "timeout"
	CrashRejection  CrashKind = "rejection"
	CrashProhibited CrashKind = "prohibited"
	CrashSkipped    CrashKind = "skipped"
)

// Crash records a test that did not complete.
type Crash struct {
	Kind   CrashKind `json:"kind"`
	Reason string    `json:"reason,omitempty"`
}

// Outcome is the result attached to a test act: exactly one of Raw or Crash.
type Outcome struct {
	Raw   RawResult
	Crash *Crash
}

// Crashed reports whether the test produced no raw result.
func (o *Outcome) Crashed() bool {
	return o == nil || o.Crash != nil || o.Raw == nil
}

// Succeeded wraps a raw result.
func Succeeded(raw RawResult) *Outcome {
	return &Outcome{Raw: raw}
}

// Crashed builds a crash outcome.
func Crashed(kind CrashKind, reason string) *Outcome {
	return &Outcome{Crash: &Crash{Kind: kind, Reason: reason}}
}

func (o *Outcome) clone() *Outcome {
	if o == nil {
		return nil
	}
	out := &Outcome{Raw: CloneRaw(o.Raw)}
	if o.Crash != nil {
		c := *o.Crash
		out.Crash = &c
	}
	return out
}

type outcomeJSON struct {
	Shape Shape           `json:"shape,omitempty"`
	Data  json.RawMessage `json:"data,omitempty"`
	Crash *Crash          `json:"crash,omitempty"`
}

// MarshalJSON encodes the outcome with its shape discriminator.
func (o Outcome) MarshalJSON() ([]byte, error) {
	if o.Crash != nil || o.Raw == nil {
		crash := o.Crash
		if crash == nil {
			crash = &Crash{Kind: CrashFailed}
		}
		return json.Marshal(outcomeJSON{Crash: crash})
	}
	data, err := json.Marshal(o.Raw)
	if err != nil {
		return nil, err
	}
	return json.Marshal(outcomeJSON{Shape: o.Raw.Shape(), Data: data})
}

// UnmarshalJSON decodes an outcome written by MarshalJSON.
func (o *Outcome) UnmarshalJSON(data []byte) error {
	var raw outcomeJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if raw.Crash != nil {
		*o = Outcome{Crash: raw.Crash}
		return nil
	}
	result, err := DecodeShape(raw.Shape, raw.Data)
	if err != nil {
		return err
	}
	*o = Outcome{Raw: result}
	return nil
}

// Act is one step of a script. The result fields are populated by execution
// according to Type: URL for url acts, Outcome for test acts, Score for score acts.
type Act struct {
	Type  ActType `json:"type" yaml:"type" validate:"required,oneof=url test score comparison"`
	Which string  `json:"which,omitempty" yaml:"which,omitempty"`
	What  string  `json:"what,omitempty" yaml:"what,omitempty"`

	URL     string       `json:"-" yaml:"-"`
	Outcome *Outcome     `json:"-" yaml:"-"`
	Score   *ScoreResult `json:"-" yaml:"-"`
}

// Executed reports whether the act carries a result.
func (a Act) Executed() bool {
	switch a.Type {
	case ActURL:
		return a.URL != ""
	case ActTest:
		return a.Outcome != nil
	case ActScore:
		return a.Score != nil
	default:
		return false
	}
}

// Clone returns a deep copy of the act.
func (a Act) Clone() Act {
	out := a
	out.Outcome = a.Outcome.clone()
	if a.Score != nil {
		s := a.Score.Clone()
		out.Score = &s
	}
	return out
}

type actJSON struct {
	Type   ActType         `json:"type"`
	Which  string          `json:"which,omitempty"`
	What   string          `json:"what,omitempty"`
	Result json.RawMessage `json:"result,omitempty"`
}

// MarshalJSON writes the act with its type-specific result under "result".
func (a Act) MarshalJSON() ([]byte, error) {
	out := actJSON{Type: a.Type, Which: a.Which, What: a.What}

	var (
		result []byte
		err    error
	)
	switch a.Type {
	case ActURL:
		if a.URL != "" {
			result, err = json.Marshal(a.URL)
		}
	case ActTest:
		if a.Outcome != nil {
			result, err = json.Marshal(a.Outcome)
		}
	case ActScore:
		if a.Score != nil {
			result, err = json.Marshal(a.Score)
		}
	}
	if err != nil {
		return nil, err
	}
	out.Result = result
	return json.Marshal(out)
}

// UnmarshalJSON decodes the result according to the act type.
func (a *Act) UnmarshalJSON(data []byte) error {
	var raw actJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	*a = Act{Type: raw.Type, Which: raw.Which, What: raw.What}
	if len(raw.Result) == 0 || string(raw.Result) == "null" {
		return nil
	}

	switch raw.Type {
	case ActURL:
		return json.Unmarshal(raw.Result, &a.URL)
	case ActTest:
		var outcome Outcome
		if err := json.Unmarshal(raw.Result, &outcome); err != nil {
			return fmt.Errorf("act %s: %w", raw.Which, err)
		}
		a.Outcome = &outcome
	case ActScore:
		var score ScoreResult
		if err := json.Unmarshal(raw.Result, &score); err != nil {
			return fmt.Errorf("score act: %w", err)
		}
		a.Score = &score
	}
	return nil
}
