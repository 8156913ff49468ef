package validation

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCheckCommandExists(t *testing.T) {
	t.Parallel()

	require.NoError(t, CheckCommandExists("echo"))

	err := CheckCommandExists("command-that-should-not-exist-12345")
	require.Error(t, err)
	require.Error(t, CheckCommandExists(""))
}

func TestCheckDirExists(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	file := filepath.Join(dir, "exists.txt")
	require.NoError(t, os.WriteFile(file, []byte("hello"), 0o644))

	require.NoError(t, CheckDirExists(dir))
	require.ErrorContains(t, CheckDirExists(file), "not a directory")
	require.ErrorContains(t, CheckDirExists(filepath.Join(dir, "missing")), "does not exist")
}

func TestCheckTemplate(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	good := filepath.Join(dir, "detail.html")
	require.NoError(t, os.WriteFile(good, []byte("__org__ __totalScore__ __roleResult__"), 0o644))
	bad := filepath.Join(dir, "summary.html")
	require.NoError(t, os.WriteFile(bad, []byte("__org__ __motionResult__ __logo__"), 0o644))

	require.NoError(t, CheckTemplate(good, "detail", []string{"role"}))

	err := CheckTemplate(bad, "summary", []string{"role"})
	require.ErrorContains(t, err, "__motionResult__, __logo__")

	require.Error(t, CheckTemplate(good, "poster", nil))
}

func TestCheckBuiltInCategories(t *testing.T) {
	t.Parallel()

	outside, err := CheckBuiltInCategories("detail", []string{"axe", "wave"})
	require.NoError(t, err)
	require.Contains(t, outside, "motion")
	require.NotContains(t, outside, "axe")

	outside, err = CheckBuiltInCategories("compare", nil)
	require.NoError(t, err)
	require.Empty(t, outside)

	_, err = CheckBuiltInCategories("poster", nil)
	require.Error(t, err)
}
