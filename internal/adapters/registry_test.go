package adapters

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/alexisbeaulieu97/autotest/internal/config"
	"github.com/alexisbeaulieu97/autotest/internal/model"
	"github.com/alexisbeaulieu97/autotest/internal/ports"
)

func noopEngine() ports.TestEngine {
	return ports.EngineFunc(func(context.Context, string, ports.Page) (model.RawResult, error) {
		return &model.Subtotals{}, nil
	})
}

func TestRegistry_RegisterAndResolve(t *testing.T) {
	t.Parallel()

	r := NewRegistry(nil)
	require.NoError(t, r.Register("axe", KindCommand, noopEngine()))

	engine, err := r.Engine("axe")
	require.NoError(t, err)
	require.NotNil(t, engine)
	require.Equal(t, KindCommand, r.Kind("axe"))

	_, err = r.Engine("wave")
	var notFound ErrEngineNotFound
	require.True(t, errors.As(err, &notFound))
	require.Equal(t, "wave", notFound.Category)

	err = r.Register("axe", KindCommand, noopEngine())
	require.ErrorAs(t, err, &ErrDuplicateEngine{})

	require.Error(t, r.Register("ibm", KindCommand, nil))
	require.Equal(t, []string{"wave"}, r.Missing([]string{"axe", "wave"}))
}

func TestRegistry_ConcurrentLookups(t *testing.T) {
	t.Parallel()

	r := NewRegistry(nil)
	require.NoError(t, r.Register("axe", KindCommand, noopEngine()))

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = r.Engine("axe")
			_ = r.Categories()
		}()
	}
	wg.Wait()
}

func TestBuildRegistry(t *testing.T) {
	t.Parallel()

	engines := map[string]config.EngineSpec{
		"axe":  {Kind: KindCommand, Command: "axe-runner", Shape: "violations"},
		"wave": {Kind: KindHTTP, URL: "https://wave.example/api/request", KeyEnv: "WAVE_KEY", Shape: "violations"},
		"bulk": {Kind: KindCommand, Command: "bulk-runner", Shape: "subtotals"},
	}
	lookup := func(key string) (string, bool) {
		if key == "WAVE_KEY" {
			return "k", true
		}
		return "", false
	}

	r, err := BuildRegistry(engines, lookup, nil, nil)
	require.NoError(t, err)
	require.Equal(t, []string{"axe", "bulk", "role", "wave", "zIndex"}, r.Categories())
	require.Equal(t, KindCommand, r.Kind("bulk"))
	require.Equal(t, KindProbe, r.Kind("role"))

	wave, err := r.Engine("wave")
	require.NoError(t, err)
	require.Equal(t, "k", wave.(*HTTPEngine).Key)
}

func TestBuildRegistry_MissingKey(t *testing.T) {
	t.Parallel()

	engines := map[string]config.EngineSpec{
		"wave": {Kind: KindHTTP, URL: "https://wave.example/", KeyEnv: "WAVE_KEY", Shape: "violations"},
	}
	_, err := BuildRegistry(engines, func(string) (string, bool) { return "", false }, nil, nil)
	require.ErrorContains(t, err, "WAVE_KEY")
}
