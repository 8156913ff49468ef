package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/alexisbeaulieu97/autotest/internal/config"
	"github.com/alexisbeaulieu97/autotest/internal/logger"
	"github.com/alexisbeaulieu97/autotest/internal/model"
	"github.com/alexisbeaulieu97/autotest/internal/ports"
	"github.com/alexisbeaulieu97/autotest/internal/scoring"
	autotesterrors "github.com/alexisbeaulieu97/autotest/pkg/errors"
)

// Executor runs a script once per batch host.
type Executor struct {
	engines   ports.EngineResolver
	navigator ports.Navigator
	scorer    *scoring.Engine
	events    ports.EventPublisher
	logger    *logger.Logger
	clock     func() time.Time
	newID     func() string
	opts      Options
}

// NewExecutor creates an executor. Engines and Scorer are required.
func NewExecutor(deps Dependencies, opts Options) (*Executor, error) {
	if deps.Engines == nil {
		return nil, autotesterrors.NewExecutionError("", errors.New("no engine resolver configured"))
	}
	if deps.Scorer == nil {
		return nil, autotesterrors.NewExecutionError("", errors.New("no scoring engine configured"))
	}
	if opts.Concurrency <= 0 {
		opts.Concurrency = DefaultConcurrency
	}

	e := &Executor{
		engines:   deps.Engines,
		navigator: deps.Navigator,
		scorer:    deps.Scorer,
		events:    deps.Events,
		logger:    deps.Logger,
		clock:     deps.Clock,
		newID:     deps.NewID,
		opts:      opts,
	}
	if e.clock == nil {
		e.clock = time.Now
	}
	if e.newID == nil {
		e.newID = uuid.NewString
	}
	return e, nil
}

// Run executes script against every host of batch and returns one report per
// host in batch order. A nil batch runs the script once against its own url
// act. Structural problems are rejected before any host starts; host
// failures are recorded in the host's report and never returned.
func (e *Executor) Run(ctx context.Context, script *model.Script, batch *model.Batch) ([]model.Report, error) {
	if err := config.ValidateScript(script, batch != nil); err != nil {
		return nil, err
	}

	var hosts []model.Host
	if batch != nil {
		if err := config.ValidateBatch(batch); err != nil {
			return nil, err
		}
		hosts = batch.Hosts
	} else {
		urlAct := script.Acts[0]
		hosts = []model.Host{{Which: urlAct.Which, What: urlAct.What, URL: urlAct.Which}}
	}

	timeStamp := model.NewTimeStamp(e.clock())
	reports := make([]model.Report, len(hosts))

	e.publish(ctx, ports.Event{Type: ports.EventBatchStarted, Hosts: len(hosts), Message: script.What})
	e.logger.WithFields(map[string]any{"script": script.What, "hosts": len(hosts), "concurrency": e.opts.Concurrency}).Info("batch started")

	var g errgroup.Group
	g.SetLimit(e.opts.Concurrency)
	for i, host := range hosts {
		g.Go(func() error {
			reports[i] = e.runHost(ctx, i, script, host, timeStamp)
			return nil
		})
	}
	_ = g.Wait()

	e.publish(ctx, ports.Event{Type: ports.EventBatchCompleted, Hosts: len(hosts)})
	e.logger.WithFields(map[string]any{"script": script.What, "hosts": len(hosts)}).Info("batch completed")

	if err := ctx.Err(); err != nil {
		return reports, fmt.Errorf("batch interrupted: %w", err)
	}
	return reports, nil
}

// hostRun is the single-writer state of one host's execution.
type hostRun struct {
	report  *model.Report
	log     *logger.Logger
	index   int
	page    *ports.Page
	visit   model.CrashKind
	aborted bool
	expired bool
}

func (e *Executor) runHost(ctx context.Context, index int, script *model.Script, host model.Host, timeStamp string) (report model.Report) {
	strict := script.Strict || e.opts.Strict
	report = model.Report{
		ID:        e.newID(),
		TimeStamp: timeStamp,
		TestDate:  e.clock().UTC().Format(time.DateOnly),
		Script:    script.What,
		Strict:    strict,
		Host:      host,
		Acts:      bindActs(script.Acts, host),
	}
	run := &hostRun{report: &report, log: e.logger.ForHost(host.Which), index: index}

	e.publish(ctx, ports.Event{Type: ports.EventHostStarted, Index: index, Host: host.Which, Message: host.URL})
	run.log.Debug("host started")

	defer func() {
		if r := recover(); r != nil {
			err := autotesterrors.NewExecutionError(host.Which, fmt.Errorf("panic: %v", r))
			run.log.Error(err, "host panicked")
			run.aborted = true
			report.Failed = true
			report.Failure = err.Error()
			e.finish(run)
		}
		e.complete(ctx, run)
	}()

	hostCtx := ctx
	if e.opts.VisitTimeout > 0 {
		var cancel context.CancelFunc
		hostCtx, cancel = context.WithTimeout(ctx, e.opts.VisitTimeout)
		defer cancel()
	}

	for i := range report.Acts {
		act := &report.Acts[i]
		switch act.Type {
		case model.ActURL:
			e.visit(hostCtx, run, act)
		case model.ActTest:
			e.test(hostCtx, run, act)
		case model.ActScore:
			e.score(run, act)
		}
		if strict && run.aborted {
			e.finish(run)
			break
		}
	}
	return report
}

// bindActs copies the script acts and points the url act at the host,
// prepending one when the script has none. The url act always carries the
// host's identity, its description or else its name, so reports of
// different hosts never share a target.
func bindActs(acts []model.Act, host model.Host) []model.Act {
	bound := make([]model.Act, 0, len(acts)+1)
	if len(acts) == 0 || acts[0].Type != model.ActURL {
		bound = append(bound, model.Act{Type: model.ActURL})
	}
	for _, act := range acts {
		bound = append(bound, act.Clone())
	}
	bound[0].Which = host.URL
	bound[0].What = host.What
	if bound[0].What == "" {
		bound[0].What = host.Which
	}
	return bound
}

func (e *Executor) visit(ctx context.Context, run *hostRun, act *model.Act) {
	if e.navigator == nil {
		act.URL = act.Which
		run.page = &ports.Page{URL: act.Which, FinalURL: act.Which}
		return
	}

	page, stats, err := e.navigator.Visit(ctx, act.Which)
	diag := &run.report.Diagnostics
	diag.LogCount += stats.LogCount
	diag.LogSize += stats.LogSize
	diag.VisitRejectionCount += stats.Rejections
	diag.ProhibitedCount += stats.Prohibited
	diag.VisitTimeoutCount += stats.Timeouts

	if err == nil {
		act.URL = page.FinalURL
		if act.URL == "" {
			act.URL = act.Which
		}
		run.page = &page
		return
	}

	run.visit = classifyVisit(ctx, err)
	switch run.visit {
	case model.CrashTimeout:
		diag.VisitTimeoutCount++
		run.expired = ctx.Err() != nil
	case model.CrashProhibited:
		diag.ProhibitedCount++
	default:
		run.visit = model.CrashRejection
		diag.VisitRejectionCount++
	}
	run.log.Warn(err, "visit failed")
	e.fail(run, err.Error())
}

func classifyVisit(ctx context.Context, err error) model.CrashKind {
	var visitErr *autotesterrors.VisitError
	if errors.As(err, &visitErr) {
		switch visitErr.Kind {
		case autotesterrors.VisitTimeout:
			return model.CrashTimeout
		case autotesterrors.VisitProhibited:
			return model.CrashProhibited
		default:
			return model.CrashRejection
		}
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return model.CrashTimeout
	}
	return model.CrashRejection
}

func (e *Executor) test(ctx context.Context, run *hostRun, act *model.Act) {
	category := act.Which
	log := run.log.ForCategory(category)

	switch {
	case run.aborted && run.report.Strict:
		act.Outcome = model.Crashed(model.CrashSkipped, "strict mode aborted the host")
	case run.expired || ctx.Err() != nil:
		e.expire(ctx, run)
		e.fail(run, "host visit timeout")
		act.Outcome = model.Crashed(model.CrashTimeout, "host visit timeout")
	case run.page == nil:
		kind := run.visit
		if kind == "" {
			kind = model.CrashSkipped
		}
		act.Outcome = model.Crashed(kind, "page could not be visited")
	default:
		act.Outcome = e.runTest(ctx, run, category)
	}

	if act.Outcome.Crashed() {
		log.Warn(nil, fmt.Sprintf("test %s recorded as crash (%s)", category, act.Outcome.Crash.Kind))
		e.publish(ctx, ports.Event{Type: ports.EventTestCrashed, Index: run.index, Host: run.report.Host.Which, Category: category, Message: act.Outcome.Crash.Reason})
		return
	}
	log.Debug("test completed")
	e.publish(ctx, ports.Event{Type: ports.EventTestCompleted, Index: run.index, Host: run.report.Host.Which, Category: category})
}

func (e *Executor) runTest(ctx context.Context, run *hostRun, category string) (outcome *model.Outcome) {
	defer func() {
		if r := recover(); r != nil {
			err := autotesterrors.NewTestCrash(category, fmt.Errorf("panic: %v", r))
			outcome = model.Crashed(model.CrashFailed, err.Error())
			e.fail(run, err.Error())
		}
	}()

	engine, err := e.engines.Engine(category)
	if err != nil {
		crash := autotesterrors.NewTestCrash(category, err)
		e.fail(run, crash.Error())
		return model.Crashed(model.CrashFailed, crash.Error())
	}

	testCtx := ctx
	if e.opts.TestTimeout > 0 {
		var cancel context.CancelFunc
		testCtx, cancel = context.WithTimeout(ctx, e.opts.TestTimeout)
		defer cancel()
	}

	raw, err := engine.Run(testCtx, category, *run.page)
	if err == nil && raw == nil {
		err = errors.New("engine returned no result")
	}
	if err == nil {
		return model.Succeeded(raw)
	}

	crash := autotesterrors.NewTestCrash(category, err)
	e.fail(run, crash.Error())
	if ctx.Err() != nil {
		e.expire(ctx, run)
		return model.Crashed(model.CrashTimeout, crash.Error())
	}
	if errors.Is(testCtx.Err(), context.DeadlineExceeded) {
		return model.Crashed(model.CrashTimeout, crash.Error())
	}
	return model.Crashed(model.CrashFailed, crash.Error())
}

// expire records the host timeout once.
func (e *Executor) expire(ctx context.Context, run *hostRun) {
	if run.expired {
		return
	}
	run.expired = true
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		run.report.Diagnostics.VisitTimeoutCount++
	}
	run.log.Warn(ctx.Err(), "host visit timeout, remaining tests become crashes")
}

func (e *Executor) score(run *hostRun, act *model.Act) {
	result, err := e.scorer.Score(scoring.InputsFromReport(run.report))
	if err != nil {
		run.log.Warn(err, "scoring inferred categories it could not read")
	}
	act.Score = &result
}

// fail marks the first failure. In strict mode it aborts the host.
func (e *Executor) fail(run *hostRun, reason string) {
	if run.aborted {
		return
	}
	run.aborted = true
	if run.report.Strict {
		run.report.Failed = true
		run.report.Failure = reason
		run.log.Warn(nil, "strict mode: aborting remaining acts")
	}
}

// finish converts every unexecuted act into its final form: remaining tests
// become crashes and the score act is computed with inferences.
func (e *Executor) finish(run *hostRun) {
	kind, reason := model.CrashSkipped, "host aborted before the test ran"
	switch {
	case run.expired:
		kind, reason = model.CrashTimeout, "host visit timeout"
	case run.page == nil && run.visit != "":
		kind, reason = run.visit, "page could not be visited"
	}

	for i := range run.report.Acts {
		act := &run.report.Acts[i]
		switch act.Type {
		case model.ActTest:
			if act.Outcome == nil {
				act.Outcome = model.Crashed(kind, reason)
			}
		case model.ActScore:
			e.score(run, act)
		}
	}
}

func (e *Executor) complete(ctx context.Context, run *hostRun) {
	report := run.report
	total := 0
	if score := report.Score(); score != nil {
		total = score.Total()
	}

	if report.Failed {
		run.log.WithFields(map[string]any{"failure": report.Failure}).Warn(nil, "host failed")
		e.publish(ctx, ports.Event{Type: ports.EventHostFailed, Index: run.index, Host: report.Host.Which, Total: total, Message: report.Failure})
		return
	}
	run.log.WithFields(map[string]any{"total": total}).Info("host completed")
	e.publish(ctx, ports.Event{Type: ports.EventHostCompleted, Index: run.index, Host: report.Host.Which, Total: total})
}

func (e *Executor) publish(ctx context.Context, event ports.Event) {
	if e.events == nil {
		return
	}
	_ = e.events.Publish(ctx, event)
}
