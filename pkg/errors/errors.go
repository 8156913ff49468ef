package errors

import (
	"fmt"
)

// Subjects used by ValidationError to distinguish rejected inputs.
const (
	SubjectScript   = "script"
	SubjectBatch    = "batch"
	SubjectSettings = "settings"
	SubjectProfile  = "profile"
)

// ParseError represents a YAML/JSON parsing failure with optional line metadata.
type ParseError struct {
	Path    string
	Line    int
	Message string
	Err     error
}

// NewParseError constructs a ParseError.
func NewParseError(path string, line int, err error) error {
	message := ""
	if err != nil {
		message = err.Error()
	}
	return &ParseError{Path: path, Line: line, Message: message, Err: err}
}

func (e *ParseError) Error() string {
	if e == nil {
		return ""
	}

	if e.Line > 0 {
		return fmt.Sprintf("parse error: %s:%d: %s", e.Path, e.Line, e.Message)
	}
	return fmt.Sprintf("parse error: %s: %s", e.Path, e.Message)
}

// Unwrap exposes the underlying error.
func (e *ParseError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// ValidationError is a structural rejection of a script, batch, settings file
// or scoring profile. It is raised before any host executes.
type ValidationError struct {
	Subject string
	Field   string
	Message string
	Err     error
}

// NewValidationError constructs a ValidationError.
func NewValidationError(subject, field, message string, err error) error {
	return &ValidationError{Subject: subject, Field: field, Message: message, Err: err}
}

// NewScriptInvalid reports a malformed script.
func NewScriptInvalid(field, message string, err error) error {
	return NewValidationError(SubjectScript, field, message, err)
}

// NewBatchInvalid reports a malformed batch.
func NewBatchInvalid(field, message string, err error) error {
	return NewValidationError(SubjectBatch, field, message, err)
}

func (e *ValidationError) Error() string {
	if e == nil {
		return ""
	}
	subject := e.Subject
	if subject == "" {
		subject = "input"
	}
	if e.Field != "" {
		return fmt.Sprintf("%s invalid: %s: %s", subject, e.Field, e.Message)
	}
	return fmt.Sprintf("%s invalid: %s", subject, e.Message)
}

// Unwrap exposes the underlying error.
func (e *ValidationError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// ExecutionError represents a host-level failure while running a script.
type ExecutionError struct {
	Host string
	Err  error
}

// NewExecutionError constructs an ExecutionError.
func NewExecutionError(host string, err error) error {
	return &ExecutionError{Host: host, Err: err}
}

func (e *ExecutionError) Error() string {
	if e == nil {
		return ""
	}
	if e.Host != "" {
		return fmt.Sprintf("execution error on host %s: %v", e.Host, e.Err)
	}
	return fmt.Sprintf("execution error: %v", e.Err)
}

// Unwrap exposes the root error.
func (e *ExecutionError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// TestCrash indicates that one category's test did not produce a result.
type TestCrash struct {
	Category string
	Err      error
}

// NewTestCrash constructs a TestCrash for the category.
func NewTestCrash(category string, err error) error {
	return &TestCrash{Category: category, Err: err}
}

func (e *TestCrash) Error() string {
	if e == nil {
		return ""
	}
	if e.Err == nil {
		return fmt.Sprintf("test %s crashed", e.Category)
	}
	return fmt.Sprintf("test %s crashed: %v", e.Category, e.Err)
}

// Unwrap exposes the underlying error.
func (e *TestCrash) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// VisitKind classifies navigation failures.
type VisitKind string

const (
	// VisitTimeout means the page did not load within the visit timeout.
	VisitTimeout VisitKind = "timeout"
	// VisitRejection means the server refused or failed the visit.
	VisitRejection VisitKind = "rejection"
	// VisitProhibited means navigation was blocked, e.g. a redirect to a forbidden target.
	VisitProhibited VisitKind = "prohibited"
)

// VisitError is a navigation-level failure.
type VisitError struct {
	Kind VisitKind
	URL  string
	Err  error
}

// NewVisitError constructs a VisitError.
func NewVisitError(kind VisitKind, url string, err error) error {
	return &VisitError{Kind: kind, URL: url, Err: err}
}

func (e *VisitError) Error() string {
	if e == nil {
		return ""
	}
	if e.Err == nil {
		return fmt.Sprintf("visit %s: %s", e.Kind, e.URL)
	}
	return fmt.Sprintf("visit %s: %s: %v", e.Kind, e.URL, e.Err)
}

// Unwrap exposes the underlying error.
func (e *VisitError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// ReportGenerationError is fatal for one document only.
type ReportGenerationError struct {
	Template    string
	Placeholder string
	Err         error
}

// NewReportGenerationError constructs a ReportGenerationError.
func NewReportGenerationError(template, placeholder string, err error) error {
	return &ReportGenerationError{Template: template, Placeholder: placeholder, Err: err}
}

func (e *ReportGenerationError) Error() string {
	if e == nil {
		return ""
	}
	msg := fmt.Sprintf("report generation error [%s]", e.Template)
	if e.Placeholder != "" {
		msg = fmt.Sprintf("%s: unresolved placeholder __%s__", msg, e.Placeholder)
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

// Unwrap exposes the underlying error.
func (e *ReportGenerationError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// MergeMismatch reports an existing report that had no new-test counterpart.
type MergeMismatch struct {
	Target string
	Source string
}

// NewMergeMismatch constructs a MergeMismatch.
func NewMergeMismatch(target, source string) *MergeMismatch {
	return &MergeMismatch{Target: target, Source: source}
}

func (e *MergeMismatch) Error() string {
	if e == nil {
		return ""
	}
	if e.Source != "" {
		return fmt.Sprintf("no new test result found for %s (%s)", e.Target, e.Source)
	}
	return fmt.Sprintf("no new test result found for %s", e.Target)
}
