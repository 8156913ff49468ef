package validation

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/alexisbeaulieu97/autotest/internal/config"
	"github.com/alexisbeaulieu97/autotest/internal/scoring"
)

func TestPreflight_Success(t *testing.T) {
	t.Parallel()

	tmp := t.TempDir()
	for _, dir := range []string{"scripts", "batches", "templates"} {
		require.NoError(t, os.Mkdir(filepath.Join(tmp, dir), 0o755))
	}
	require.NoError(t, os.WriteFile(filepath.Join(tmp, "templates", "summary.html"), []byte("<h1>__org__</h1>__axeResult__"), 0o644))

	settings := &config.Settings{
		ScriptDir:   filepath.Join(tmp, "scripts"),
		BatchDir:    filepath.Join(tmp, "batches"),
		TemplateDir: filepath.Join(tmp, "templates"),
		Engines: map[string]config.EngineSpec{
			"axe":  {Kind: "command", Command: "echo", Shape: "violations"},
			"wave": {Kind: "http", URL: "https://wave.example/", Shape: "violations"},
		},
	}

	results, err := Preflight(context.Background(), settings, []string{"axe"})
	require.NoError(t, err)
	require.Len(t, results, 5)

	require.Equal(t, CheckEngineCommand, results[2].Check)
	require.Equal(t, "engines.axe", results[2].Subject)
	require.Equal(t, CheckTemplateFile, results[3].Check)
	require.Equal(t, CheckBuiltIn, results[4].Check)
	require.Equal(t, "detail.html", results[4].Subject)
	for _, result := range results {
		require.True(t, result.Passed, result.Subject)
	}
}

func TestPreflight_FailureAggregatesResults(t *testing.T) {
	t.Parallel()

	tmp := t.TempDir()
	settings := &config.Settings{
		ScriptDir: tmp,
		BatchDir:  filepath.Join(tmp, "missing"),
		Engines: map[string]config.EngineSpec{
			"axe": {Kind: "command", Command: "definitely_missing_command", Shape: "violations"},
		},
	}

	results, err := Preflight(context.Background(), settings, nil)
	require.Error(t, err)
	require.Contains(t, err.Error(), "batchDir")
	require.Contains(t, err.Error(), "engines.axe")
	require.Len(t, results, 3)

	require.True(t, results[0].Passed)
	require.False(t, results[1].Passed)
	require.False(t, results[2].Passed)
	require.NotEmpty(t, results[2].Message)
}

func TestPreflight_StopsOnCancelledContext(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	tmp := t.TempDir()
	settings := &config.Settings{
		ScriptDir: tmp,
		BatchDir:  tmp,
		Engines:   map[string]config.EngineSpec{"axe": {Kind: "command", Command: "echo"}},
	}
	_, err := Preflight(ctx, settings, nil)
	require.ErrorIs(t, err, context.Canceled)
}

func TestPreflight_ListsBuiltInCategoriesOutsideProfile(t *testing.T) {
	t.Parallel()

	tmp := t.TempDir()
	settings := &config.Settings{ScriptDir: tmp, BatchDir: tmp}

	categories := scoring.DefaultProfile().CategoryNames()
	results, err := Preflight(context.Background(), settings, categories)
	require.NoError(t, err)
	require.Len(t, results, 2)

	trimmed := make([]string, 0, len(categories))
	for _, c := range categories {
		if c != "embAc" && c != "motion" {
			trimmed = append(trimmed, c)
		}
	}
	results, err = Preflight(context.Background(), settings, trimmed)
	require.NoError(t, err)
	require.Len(t, results, 3)
	require.Equal(t, CheckBuiltIn, results[2].Check)
	require.Equal(t, "detail.html", results[2].Subject)
	require.True(t, results[2].Passed)
	require.Contains(t, results[2].Message, "embAc, motion")
}
