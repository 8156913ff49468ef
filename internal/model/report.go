package model

import (
	"strconv"
	"time"
)

// timeStampEpoch is the origin of report timestamps.
var timeStampEpoch = time.Date(2021, time.May, 1, 0, 0, 0, 0, time.UTC)

// NewTimeStamp encodes t as base-36 ten-second units since 2021-05-01 UTC.
func NewTimeStamp(t time.Time) string {
	units := t.Sub(timeStampEpoch) / (10 * time.Second)
	if units < 0 {
		units = 0
	}
	return strconv.FormatInt(int64(units), 36)
}

// Host is one audit target of a batch.
type Host struct {
	Which string `json:"which" yaml:"which" validate:"required"`
	What  string `json:"what" yaml:"what"`
	URL   string `json:"url" yaml:"url" validate:"required,http_url"`
}

// Batch is an ordered set of hosts that one script runs against.
type Batch struct {
	What  string `json:"what" yaml:"what" validate:"required"`
	Hosts []Host `json:"hosts" yaml:"hosts" validate:"required,min=1,dive"`
}

// Script is an ordered template of acts.
type Script struct {
	What   string `json:"what" yaml:"what" validate:"required"`
	Strict bool   `json:"strict" yaml:"strict"`
	Acts   []Act  `json:"acts" yaml:"acts" validate:"required,min=1,dive"`
}

// Categories returns the test categories in declaration order.
func (s Script) Categories() []string {
	var out []string
	for _, act := range s.Acts {
		if act.Type == ActTest {
			out = append(out, act.Which)
		}
	}
	return out
}

// Diagnostics are navigation and console counters accumulated while a host runs.
type Diagnostics struct {
	LogCount            int `json:"logCount"`
	LogSize             int `json:"logSize"`
	VisitRejectionCount int `json:"visitRejectionCount"`
	ProhibitedCount     int `json:"prohibitedCount"`
	VisitTimeoutCount   int `json:"visitTimeoutCount"`
}

// Subtotals exposes the counters as the synthetic log category input.
func (d Diagnostics) Subtotals() *Subtotals {
	return &Subtotals{Values: map[string]float64{
		"logCount":            float64(d.LogCount),
		"logSize":             float64(d.LogSize),
		"visitRejectionCount": float64(d.VisitRejectionCount),
		"prohibitedCount":     float64(d.ProhibitedCount),
		"visitTimeoutCount":   float64(d.VisitTimeoutCount),
	}}
}

// Report is the executed act sequence for one host.
type Report struct {
	ID          string      `json:"id"`
	TimeStamp   string      `json:"timeStamp"`
	TestDate    string      `json:"testDate"`
	Script      string      `json:"script"`
	Strict      bool        `json:"strict"`
	Host        Host        `json:"host"`
	Failed      bool        `json:"failed"`
	Failure     string      `json:"failure,omitempty"`
	Diagnostics Diagnostics `json:"diagnostics"`
	Acts        []Act       `json:"acts"`
}

// URLAct returns the first url act, or nil.
func (r *Report) URLAct() *Act {
	for i := range r.Acts {
		if r.Acts[i].Type == ActURL {
			return &r.Acts[i]
		}
	}
	return nil
}

// ScoreAct returns the trailing score act, or nil.
func (r *Report) ScoreAct() *Act {
	for i := len(r.Acts) - 1; i >= 0; i-- {
		if r.Acts[i].Type == ActScore {
			return &r.Acts[i]
		}
	}
	return nil
}

// Score returns the score result, or nil if the report was never scored.
func (r *Report) Score() *ScoreResult {
	if act := r.ScoreAct(); act != nil {
		return act.Score
	}
	return nil
}

// Tests indexes executed test acts by category.
func (r *Report) Tests() map[string]Act {
	out := make(map[string]Act)
	for _, act := range r.Acts {
		if act.Type == ActTest {
			out[act.Which] = act
		}
	}
	return out
}

// Target is the organization identity the report is about. It is the url
// act's description, falling back to the host description and then the
// host name.
func (r *Report) Target() string {
	if act := r.URLAct(); act != nil && act.What != "" {
		return act.What
	}
	if r.Host.What != "" {
		return r.Host.What
	}
	return r.Host.Which
}

// Clone returns a deep copy that shares no mutable state with r.
func (r Report) Clone() Report {
	out := r
	out.Acts = make([]Act, len(r.Acts))
	for i, act := range r.Acts {
		out.Acts[i] = act.Clone()
	}
	return out
}
