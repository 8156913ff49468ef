package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/alexisbeaulieu97/autotest/internal/events"
	"github.com/alexisbeaulieu97/autotest/internal/model"
	"github.com/alexisbeaulieu97/autotest/internal/ports"
	"github.com/alexisbeaulieu97/autotest/internal/scoring"
	autotesterrors "github.com/alexisbeaulieu97/autotest/pkg/errors"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type resolver map[string]ports.TestEngine

func (r resolver) Engine(category string) (ports.TestEngine, error) {
	engine, ok := r[category]
	if !ok {
		return nil, fmt.Errorf("no engine registered for %s", category)
	}
	return engine, nil
}

type navigatorFunc func(ctx context.Context, url string) (ports.Page, ports.VisitStats, error)

func (f navigatorFunc) Visit(ctx context.Context, url string) (ports.Page, ports.VisitStats, error) {
	return f(ctx, url)
}

func axeFinding() *model.Violations {
	return &model.Violations{Items: []model.Violation{{Rule: "image-alt", Impact: "critical", Count: 1}}}
}

func cleanBulk() *model.Subtotals {
	return &model.Subtotals{Values: map[string]float64{"visibleElements": 100}}
}

func fixedEngines() resolver {
	return resolver{
		"axe": ports.EngineFunc(func(context.Context, string, ports.Page) (model.RawResult, error) {
			return axeFinding(), nil
		}),
		"bulk": ports.EngineFunc(func(context.Context, string, ports.Page) (model.RawResult, error) {
			return cleanBulk(), nil
		}),
	}
}

func batchScript(strict bool) *model.Script {
	return &model.Script{
		What:   "two engines",
		Strict: strict,
		Acts: []model.Act{
			{Type: model.ActTest, Which: "axe"},
			{Type: model.ActTest, Which: "bulk"},
			{Type: model.ActScore, Which: "a11y"},
		},
	}
}

func batchOf(names ...string) *model.Batch {
	batch := &model.Batch{What: "test batch"}
	for _, name := range names {
		batch.Hosts = append(batch.Hosts, model.Host{Which: name, What: "Host " + name, URL: "https://" + name + ".example.org/"})
	}
	return batch
}

func newExecutor(t *testing.T, deps Dependencies, opts Options) *Executor {
	t.Helper()
	if deps.Scorer == nil {
		deps.Scorer = scoring.NewEngine(nil)
	}
	if deps.Clock == nil {
		deps.Clock = func() time.Time { return time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC) }
	}
	executor, err := NewExecutor(deps, opts)
	require.NoError(t, err)
	return executor
}

func TestNewExecutorRequiresCollaborators(t *testing.T) {
	t.Parallel()

	_, err := NewExecutor(Dependencies{Scorer: scoring.NewEngine(nil)}, Options{})
	require.Error(t, err)

	_, err = NewExecutor(Dependencies{Engines: resolver{}}, Options{})
	require.Error(t, err)

	var execErr *autotesterrors.ExecutionError
	require.ErrorAs(t, err, &execErr)
}

func TestRunPreservesBatchOrder(t *testing.T) {
	t.Parallel()

	delays := map[string]time.Duration{
		"https://alpha.example.org/": 40 * time.Millisecond,
		"https://beta.example.org/":  20 * time.Millisecond,
		"https://gamma.example.org/": 0,
	}
	engines := resolver{
		"axe": ports.EngineFunc(func(ctx context.Context, _ string, page ports.Page) (model.RawResult, error) {
			select {
			case <-time.After(delays[page.URL]):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
			return axeFinding(), nil
		}),
		"bulk": fixedEngines()["bulk"],
	}

	executor := newExecutor(t, Dependencies{Engines: engines}, Options{Concurrency: 3})
	reports, err := executor.Run(context.Background(), batchScript(false), batchOf("alpha", "beta", "gamma"))
	require.NoError(t, err)
	require.Len(t, reports, 3)

	for i, which := range []string{"alpha", "beta", "gamma"} {
		report := reports[i]
		assert.Equal(t, which, report.Host.Which)
		assert.False(t, report.Failed)
		require.NotNil(t, report.Score())
		assert.Equal(t, 4, report.Score().Total())
		assert.Equal(t, "https://"+which+".example.org/", report.URLAct().URL)
	}

	stamp := reports[0].TimeStamp
	for _, report := range reports {
		assert.Equal(t, stamp, report.TimeStamp)
		assert.Equal(t, "2024-03-01", report.TestDate)
	}
}

func TestRunIsolatesCrashInNonStrictMode(t *testing.T) {
	t.Parallel()

	engines := fixedEngines()
	engines["axe"] = ports.EngineFunc(func(_ context.Context, _ string, page ports.Page) (model.RawResult, error) {
		if page.URL == "https://broken.example.org/" {
			return nil, errors.New("engine exited with status 1")
		}
		return axeFinding(), nil
	})

	executor := newExecutor(t, Dependencies{Engines: engines}, Options{})
	reports, err := executor.Run(context.Background(), batchScript(false), batchOf("broken", "fine"))
	require.NoError(t, err)
	require.Len(t, reports, 2)

	broken := reports[0]
	assert.False(t, broken.Failed)
	tests := broken.Tests()
	require.True(t, tests["axe"].Outcome.Crashed())
	assert.Equal(t, model.CrashFailed, tests["axe"].Outcome.Crash.Kind)
	assert.False(t, tests["bulk"].Outcome.Crashed())

	score := broken.Score()
	require.NotNil(t, score)
	assert.Equal(t, 500, score.Inferences["axe"])
	_, inDeficit := score.Deficit["axe"]
	assert.False(t, inDeficit)
	assert.Equal(t, 0, score.Deficit["bulk"])
	assert.Equal(t, 500, score.Total())
	require.NoError(t, score.Check())

	fine := reports[1]
	assert.Equal(t, 4, fine.Score().Total())
	assert.Empty(t, fine.Score().Inferences)
}

func TestRunStrictModeAbortsHost(t *testing.T) {
	t.Parallel()

	var bulkCalls atomic.Int32
	engines := resolver{
		"axe": ports.EngineFunc(func(context.Context, string, ports.Page) (model.RawResult, error) {
			return nil, errors.New("engine exited with status 2")
		}),
		"bulk": ports.EngineFunc(func(context.Context, string, ports.Page) (model.RawResult, error) {
			bulkCalls.Add(1)
			return cleanBulk(), nil
		}),
	}

	executor := newExecutor(t, Dependencies{Engines: engines}, Options{})
	reports, err := executor.Run(context.Background(), batchScript(true), batchOf("strict"))
	require.NoError(t, err)
	require.Len(t, reports, 1)

	report := reports[0]
	assert.True(t, report.Failed)
	assert.True(t, report.Strict)
	assert.Contains(t, report.Failure, "engine exited with status 2")
	assert.Zero(t, bulkCalls.Load())

	tests := report.Tests()
	assert.Equal(t, model.CrashFailed, tests["axe"].Outcome.Crash.Kind)
	assert.Equal(t, model.CrashSkipped, tests["bulk"].Outcome.Crash.Kind)

	score := report.Score()
	require.NotNil(t, score)
	assert.Equal(t, 500, score.Inferences["axe"])
	assert.Equal(t, 500, score.Inferences["bulk"])
	assert.Equal(t, 1000, score.Total())
}

func TestRunOptionsStrictOverridesScript(t *testing.T) {
	t.Parallel()

	engines := fixedEngines()
	engines["axe"] = ports.EngineFunc(func(context.Context, string, ports.Page) (model.RawResult, error) {
		return nil, errors.New("boom")
	})

	executor := newExecutor(t, Dependencies{Engines: engines}, Options{Strict: true})
	reports, err := executor.Run(context.Background(), batchScript(false), batchOf("forced"))
	require.NoError(t, err)
	assert.True(t, reports[0].Failed)
	assert.Equal(t, model.CrashSkipped, reports[0].Tests()["bulk"].Outcome.Crash.Kind)
}

func TestRunHostVisitTimeout(t *testing.T) {
	t.Parallel()

	engines := fixedEngines()
	engines["axe"] = ports.EngineFunc(func(ctx context.Context, _ string, page ports.Page) (model.RawResult, error) {
		if page.URL == "https://slow.example.org/" {
			<-ctx.Done()
			return nil, ctx.Err()
		}
		return axeFinding(), nil
	})

	executor := newExecutor(t, Dependencies{Engines: engines}, Options{VisitTimeout: 100 * time.Millisecond})
	reports, err := executor.Run(context.Background(), batchScript(false), batchOf("slow", "quick"))
	require.NoError(t, err)

	slow := reports[0]
	tests := slow.Tests()
	assert.Equal(t, model.CrashTimeout, tests["axe"].Outcome.Crash.Kind)
	assert.Equal(t, model.CrashTimeout, tests["bulk"].Outcome.Crash.Kind)
	assert.Equal(t, 1, slow.Diagnostics.VisitTimeoutCount)

	score := slow.Score()
	require.NotNil(t, score)
	assert.Equal(t, 500, score.Inferences["axe"])
	assert.Equal(t, 500, score.Inferences["bulk"])
	// visitTimeoutCount weighs 10 in the log category
	assert.Equal(t, 10, score.Deficit[scoring.LogCategory])

	quick := reports[1]
	assert.Zero(t, quick.Diagnostics.VisitTimeoutCount)
	assert.Equal(t, 4, quick.Score().Total())
}

func TestRunTestTimeoutCrashesOnlyThatTest(t *testing.T) {
	t.Parallel()

	engines := fixedEngines()
	engines["axe"] = ports.EngineFunc(func(ctx context.Context, _ string, _ ports.Page) (model.RawResult, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	})

	executor := newExecutor(t, Dependencies{Engines: engines}, Options{TestTimeout: 30 * time.Millisecond})
	reports, err := executor.Run(context.Background(), batchScript(false), batchOf("hang"))
	require.NoError(t, err)

	tests := reports[0].Tests()
	assert.Equal(t, model.CrashTimeout, tests["axe"].Outcome.Crash.Kind)
	assert.False(t, tests["bulk"].Outcome.Crashed())
	assert.Zero(t, reports[0].Diagnostics.VisitTimeoutCount)
}

func TestRunCountsVisitFailures(t *testing.T) {
	t.Parallel()

	navigator := navigatorFunc(func(_ context.Context, url string) (ports.Page, ports.VisitStats, error) {
		switch url {
		case "https://refused.example.org/":
			return ports.Page{}, ports.VisitStats{LogCount: 2}, autotesterrors.NewVisitError(autotesterrors.VisitRejection, url, errors.New("status 503"))
		case "https://blocked.example.org/":
			return ports.Page{}, ports.VisitStats{}, autotesterrors.NewVisitError(autotesterrors.VisitProhibited, url, errors.New("redirect to forbidden host"))
		}
		return ports.Page{URL: url, FinalURL: url + "home", Status: 200}, ports.VisitStats{}, nil
	})

	executor := newExecutor(t, Dependencies{Engines: fixedEngines(), Navigator: navigator}, Options{})
	reports, err := executor.Run(context.Background(), batchScript(false), batchOf("refused", "blocked", "open"))
	require.NoError(t, err)

	refused := reports[0]
	assert.False(t, refused.Failed)
	assert.Equal(t, 1, refused.Diagnostics.VisitRejectionCount)
	assert.Equal(t, 2, refused.Diagnostics.LogCount)
	assert.Equal(t, model.CrashRejection, refused.Tests()["axe"].Outcome.Crash.Kind)
	assert.Equal(t, model.CrashRejection, refused.Tests()["bulk"].Outcome.Crash.Kind)

	blocked := reports[1]
	assert.Equal(t, 1, blocked.Diagnostics.ProhibitedCount)
	assert.Equal(t, model.CrashProhibited, blocked.Tests()["axe"].Outcome.Crash.Kind)
	// prohibitedCount weighs 15
	assert.Equal(t, 15, blocked.Score().Deficit[scoring.LogCategory])

	open := reports[2]
	assert.Equal(t, "https://open.example.org/home", open.URLAct().URL)
	assert.Equal(t, 4, open.Score().Total())
}

func TestRunIsolatesEnginePanics(t *testing.T) {
	t.Parallel()

	engines := fixedEngines()
	engines["bulk"] = ports.EngineFunc(func(_ context.Context, _ string, page ports.Page) (model.RawResult, error) {
		if page.URL == "https://panic.example.org/" {
			panic("nil map write")
		}
		return cleanBulk(), nil
	})

	executor := newExecutor(t, Dependencies{Engines: engines}, Options{})
	reports, err := executor.Run(context.Background(), batchScript(false), batchOf("panic", "calm"))
	require.NoError(t, err)

	crashed := reports[0].Tests()["bulk"]
	require.True(t, crashed.Outcome.Crashed())
	assert.Contains(t, crashed.Outcome.Crash.Reason, "nil map write")
	assert.Equal(t, 500, reports[0].Score().Inferences["bulk"])

	assert.False(t, reports[1].Tests()["bulk"].Outcome.Crashed())
}

func TestRunMissingEngineIsACrash(t *testing.T) {
	t.Parallel()

	engines := resolver{"axe": fixedEngines()["axe"]}
	executor := newExecutor(t, Dependencies{Engines: engines}, Options{})
	reports, err := executor.Run(context.Background(), batchScript(false), batchOf("partial"))
	require.NoError(t, err)

	bulk := reports[0].Tests()["bulk"]
	require.True(t, bulk.Outcome.Crashed())
	assert.Contains(t, bulk.Outcome.Crash.Reason, "no engine registered")
}

func TestRunRejectsInvalidInputBeforeExecution(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	engines := resolver{
		"axe": ports.EngineFunc(func(context.Context, string, ports.Page) (model.RawResult, error) {
			calls.Add(1)
			return axeFinding(), nil
		}),
	}
	executor := newExecutor(t, Dependencies{Engines: engines}, Options{})

	t.Run("duplicate host", func(t *testing.T) {
		batch := batchOf("same", "same")
		_, err := executor.Run(context.Background(), batchScript(false), batch)
		var validationErr *autotesterrors.ValidationError
		require.ErrorAs(t, err, &validationErr)
	})

	t.Run("score act not last", func(t *testing.T) {
		script := &model.Script{What: "bad", Acts: []model.Act{
			{Type: model.ActScore, Which: "a11y"},
			{Type: model.ActTest, Which: "axe"},
		}}
		_, err := executor.Run(context.Background(), script, batchOf("one"))
		require.Error(t, err)
	})

	t.Run("unbatched script without url", func(t *testing.T) {
		_, err := executor.Run(context.Background(), batchScript(false), nil)
		require.Error(t, err)
	})

	assert.Zero(t, calls.Load())
}

func TestRunWithoutBatchUsesURLAct(t *testing.T) {
	t.Parallel()

	script := &model.Script{
		What: "single page",
		Acts: []model.Act{
			{Type: model.ActURL, Which: "https://example.org/", What: "Example"},
			{Type: model.ActTest, Which: "axe"},
			{Type: model.ActScore, Which: "a11y"},
		},
	}

	executor := newExecutor(t, Dependencies{Engines: fixedEngines(), NewID: func() string { return "fixed-id" }}, Options{})
	reports, err := executor.Run(context.Background(), script, nil)
	require.NoError(t, err)
	require.Len(t, reports, 1)

	report := reports[0]
	assert.Equal(t, "fixed-id", report.ID)
	assert.Equal(t, "https://example.org/", report.Host.Which)
	assert.Equal(t, "Example", report.Target())
	assert.Equal(t, 4, report.Score().Total())
	// the script itself is left unexecuted
	assert.Nil(t, script.Acts[1].Outcome)
}

func TestRunPublishesEvents(t *testing.T) {
	t.Parallel()

	publisher := events.NewLoggingPublisher(nil)
	var (
		mu     sync.Mutex
		counts = map[string]int{}
	)
	_, err := publisher.Subscribe(events.AllEvents, func(_ context.Context, event ports.Event) error {
		mu.Lock()
		defer mu.Unlock()
		counts[event.Type]++
		return nil
	})
	require.NoError(t, err)

	engines := fixedEngines()
	engines["bulk"] = ports.EngineFunc(func(context.Context, string, ports.Page) (model.RawResult, error) {
		return nil, errors.New("no results")
	})

	executor := newExecutor(t, Dependencies{Engines: engines, Events: publisher}, Options{})
	_, err = executor.Run(context.Background(), batchScript(false), batchOf("one", "two"))
	require.NoError(t, err)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, 1, counts[ports.EventBatchStarted])
	assert.Equal(t, 1, counts[ports.EventBatchCompleted])
	assert.Equal(t, 2, counts[ports.EventHostStarted])
	assert.Equal(t, 2, counts[ports.EventHostCompleted])
	assert.Equal(t, 2, counts[ports.EventTestCompleted])
	assert.Equal(t, 2, counts[ports.EventTestCrashed])
}

func TestRunReportsInterruption(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	executor := newExecutor(t, Dependencies{Engines: fixedEngines()}, Options{})
	reports, err := executor.Run(ctx, batchScript(false), batchOf("late"))
	require.ErrorIs(t, err, context.Canceled)
	require.Len(t, reports, 1)
	assert.Equal(t, model.CrashTimeout, reports[0].Tests()["axe"].Outcome.Crash.Kind)
	assert.Zero(t, reports[0].Diagnostics.VisitTimeoutCount)
}

func TestBindActsPrependsURL(t *testing.T) {
	t.Parallel()

	acts := bindActs(batchScript(false).Acts, model.Host{Which: "w3c", What: "W3C", URL: "https://www.w3.org/"})
	require.Len(t, acts, 4)
	assert.Equal(t, model.ActURL, acts[0].Type)
	assert.Equal(t, "https://www.w3.org/", acts[0].Which)
	assert.Equal(t, "W3C", acts[0].What)
}

func TestBindActsFallsBackToHostName(t *testing.T) {
	t.Parallel()

	acts := []model.Act{
		{Type: model.ActURL, Which: "https://template.example/", What: "Template org"},
		{Type: model.ActScore, Which: "a11y"},
	}
	bound := bindActs(acts, model.Host{Which: "alpha", URL: "https://alpha.example.org/"})
	assert.Equal(t, "alpha", bound[0].What)
	assert.Equal(t, "Template org", acts[0].What)
}

func TestRunHostsWithoutDescriptionKeepDistinctTargets(t *testing.T) {
	t.Parallel()

	script := batchScript(false)
	script.Acts = append([]model.Act{{Type: model.ActURL, Which: "https://template.example/", What: "Template org"}}, script.Acts...)
	batch := &model.Batch{What: "bare hosts", Hosts: []model.Host{
		{Which: "alpha", URL: "https://alpha.example.org/"},
		{Which: "beta", URL: "https://beta.example.org/"},
	}}

	executor := newExecutor(t, Dependencies{Engines: fixedEngines()}, Options{})
	reports, err := executor.Run(context.Background(), script, batch)
	require.NoError(t, err)
	require.Len(t, reports, 2)

	assert.Equal(t, "alpha", reports[0].Target())
	assert.Equal(t, "beta", reports[1].Target())
	assert.Equal(t, "https://beta.example.org/", reports[1].URLAct().Which)
}
