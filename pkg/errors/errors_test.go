package errors

import (
	stdErrors "errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseErrorWrapsUnderlying(t *testing.T) {
	t.Parallel()

	underlying := fmt.Errorf("unexpected token")
	err := NewParseError("short.yaml", 12, underlying)

	var parseErr *ParseError
	require.ErrorAs(t, err, &parseErr)
	require.Equal(t, "short.yaml", parseErr.Path)
	require.Equal(t, 12, parseErr.Line)
	require.True(t, stdErrors.Is(err, underlying))
	require.Contains(t, err.Error(), "short.yaml:12")
}

func TestValidationErrorCarriesSubject(t *testing.T) {
	t.Parallel()

	err := NewScriptInvalid("acts[3].type", "score act must be last", nil)

	var validationErr *ValidationError
	require.ErrorAs(t, err, &validationErr)
	require.Equal(t, SubjectScript, validationErr.Subject)
	require.Equal(t, "acts[3].type", validationErr.Field)
	require.Equal(t, "script invalid: acts[3].type: score act must be last", err.Error())

	err = NewBatchInvalid("", "batch has no hosts", nil)
	require.ErrorAs(t, err, &validationErr)
	require.Equal(t, SubjectBatch, validationErr.Subject)
	require.Equal(t, "batch invalid: batch has no hosts", err.Error())
}

func TestExecutionErrorIncludesHostContext(t *testing.T) {
	t.Parallel()

	underlying := stdErrors.New("browser gone")
	err := NewExecutionError("w3c", underlying)

	var executionErr *ExecutionError
	require.ErrorAs(t, err, &executionErr)
	require.Equal(t, "w3c", executionErr.Host)
	require.True(t, stdErrors.Is(err, underlying))
}

func TestTestCrashIncludesCategory(t *testing.T) {
	t.Parallel()

	underlying := stdErrors.New("engine exited 2")
	err := fmt.Errorf("run: %w", NewTestCrash("axe", underlying))

	var crash *TestCrash
	require.ErrorAs(t, err, &crash)
	require.Equal(t, "axe", crash.Category)
	require.True(t, stdErrors.Is(err, underlying))
	require.Contains(t, err.Error(), "test axe crashed")
}

func TestVisitErrorKinds(t *testing.T) {
	t.Parallel()

	for _, kind := range []VisitKind{VisitTimeout, VisitRejection, VisitProhibited} {
		err := NewVisitError(kind, "https://example.org", nil)
		var visitErr *VisitError
		require.ErrorAs(t, err, &visitErr)
		require.Equal(t, kind, visitErr.Kind)
		require.Contains(t, err.Error(), string(kind))
	}
}

func TestReportGenerationErrorNamesPlaceholder(t *testing.T) {
	t.Parallel()

	err := NewReportGenerationError("summary", "orgLogo", nil)
	require.Equal(t, "report generation error [summary]: unresolved placeholder __orgLogo__", err.Error())
}

func TestMergeMismatchMessage(t *testing.T) {
	t.Parallel()

	require.Equal(t, "no new test result found for W3C (report-x-001.json)", NewMergeMismatch("W3C", "report-x-001.json").Error())
	require.Equal(t, "no new test result found for W3C", NewMergeMismatch("W3C", "").Error())
}

func TestNilReceiversAreSafe(t *testing.T) {
	t.Parallel()

	var parseErr *ParseError
	var validationErr *ValidationError
	var crash *TestCrash
	var visitErr *VisitError
	require.Empty(t, parseErr.Error())
	require.Nil(t, parseErr.Unwrap())
	require.Empty(t, validationErr.Error())
	require.Nil(t, crash.Unwrap())
	require.Empty(t, visitErr.Error())
}
