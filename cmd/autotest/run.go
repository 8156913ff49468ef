package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/alexisbeaulieu97/autotest/internal/adapters"
	"github.com/alexisbeaulieu97/autotest/internal/assemble"
	"github.com/alexisbeaulieu97/autotest/internal/config"
	"github.com/alexisbeaulieu97/autotest/internal/engine"
	"github.com/alexisbeaulieu97/autotest/internal/events"
	"github.com/alexisbeaulieu97/autotest/internal/model"
	"github.com/alexisbeaulieu97/autotest/internal/ports"
	"github.com/alexisbeaulieu97/autotest/internal/scoring"
	"github.com/alexisbeaulieu97/autotest/internal/store"
	"github.com/alexisbeaulieu97/autotest/internal/tui"
)

type runOptions struct {
	Script         string
	Batch          string
	Strict         bool
	Concurrency    int
	Docs           bool
	NonInteractive bool
}

var runCmdRunner = runAudit

func newRunCmd(root *rootFlags) *cobra.Command {
	opts := runOptions{}

	cmd := &cobra.Command{
		Use:   "run SCRIPT [BATCH]",
		Short: "Run a script against its page or every host of a batch",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.Script = args[0]
			if len(args) == 2 {
				opts.Batch = args[1]
			}
			if !term.IsTerminal(int(os.Stdout.Fd())) {
				opts.NonInteractive = true
			}
			return runCmdRunner(cmd, root, opts)
		},
	}

	cmd.Flags().BoolVar(&opts.Strict, "strict", false, "Fail a host on its first crashed test")
	cmd.Flags().IntVarP(&opts.Concurrency, "concurrency", "p", 0, "Hosts audited at once (overrides settings)")
	cmd.Flags().BoolVar(&opts.Docs, "docs", false, "Render detail and summary documents for the new reports")
	cmd.Flags().BoolVar(&opts.NonInteractive, "non-interactive", false, "Print the final status instead of the live dashboard")

	return cmd
}

func runAudit(cmd *cobra.Command, root *rootFlags, opts runOptions) error {
	app, err := loadAppContext(cmd, root, !opts.NonInteractive)
	if err != nil {
		return err
	}
	settings := app.settings

	var batch *model.Batch
	if opts.Batch != "" {
		batchPath, err := resolveInput("batch", settings.BatchDir, opts.Batch)
		if err != nil {
			return err
		}
		if batch, err = config.LoadBatch(batchPath); err != nil {
			return err
		}
	}
	scriptPath, err := resolveInput("script", settings.ScriptDir, opts.Script)
	if err != nil {
		return err
	}
	script, err := config.LoadScript(scriptPath, batch != nil)
	if err != nil {
		return err
	}

	registry, err := adapters.BuildRegistry(settings.Engines, os.LookupEnv, nil, app.log)
	if err != nil {
		return err
	}
	if missing := registry.Missing(script.Categories()); len(missing) > 0 {
		app.log.WithFields(map[string]any{"categories": missing}).Warn(nil, "no engine bound, these tests will crash")
	}

	navigator := adapters.NewHTTPNavigator(adapters.NavigatorOptions{
		UserAgent:    settings.Navigator.UserAgent,
		MaxRedirects: settings.Navigator.MaxRedirects,
		Prohibited:   settings.Navigator.Prohibited,
		Retries:      settings.Navigator.Retries,
		Logger:       app.log,
	})

	concurrency := settings.Concurrency
	if opts.Concurrency > 0 {
		concurrency = opts.Concurrency
	}
	publisher := events.NewLoggingPublisher(app.log)
	executor, err := engine.NewExecutor(engine.Dependencies{
		Engines:   registry,
		Navigator: navigator,
		Scorer:    scoring.NewEngine(app.profile),
		Events:    publisher,
		Logger:    app.log,
	}, engine.Options{
		Concurrency:  concurrency,
		VisitTimeout: settings.VisitTimeoutDuration(),
		TestTimeout:  settings.TestTimeoutDuration(),
		Strict:       opts.Strict || settings.Strict,
	})
	if err != nil {
		return err
	}

	ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer cancel()

	interactive := !opts.NonInteractive
	state := tui.NewModel(script.What, batchHosts(script, batch), opts.NonInteractive, cancel)

	var (
		program    *tea.Program
		programErr error
		mu         sync.Mutex
	)
	done := make(chan struct{})
	if interactive {
		program = tea.NewProgram(state, tea.WithOutput(cmd.OutOrStdout()))
		go func() {
			_, programErr = program.Run()
			close(done)
		}()
	}

	sub, err := publisher.Subscribe(events.AllEvents, func(_ context.Context, event ports.Event) error {
		msg, ok := tui.FromEvent(event)
		if !ok {
			return nil
		}
		mu.Lock()
		defer mu.Unlock()
		dispatchTuiMessage(interactive, program, &state, msg)
		return nil
	})
	if err != nil {
		return err
	}
	defer sub.Unsubscribe()

	reports, runErr := executor.Run(ctx, script, batch)

	if interactive {
		program.Send(tea.QuitMsg{})
		<-done
		if programErr != nil {
			return programErr
		}
	} else {
		mu.Lock()
		fmt.Fprintln(cmd.OutOrStdout(), state.View())
		mu.Unlock()
	}

	if len(reports) == 0 {
		return runErr
	}

	// Reports of an interrupted batch are still written.
	writeCtx := context.WithoutCancel(ctx)
	stored, paths, err := saveReports(writeCtx, app, reports)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "wrote %d reports to %s\n", len(stored), app.settings.ReportDir)

	var docErr error
	if opts.Docs {
		var docs []string
		docs, docErr = renderDocuments(app, stored, []string{assemble.KindDetail, assemble.KindSummary})
		paths = append(paths, docs...)
		fmt.Fprintf(cmd.OutOrStdout(), "wrote %d documents to %s\n", len(docs), app.docDir())
	}

	if err := app.archiveOutput(writeCtx, fmt.Sprintf("%s: %d reports", script.What, len(stored)), paths); err != nil {
		return err
	}
	if runErr != nil {
		return runErr
	}
	return docErr
}

// batchHosts lists the hosts the executor will run, for the dashboard.
func batchHosts(script *model.Script, batch *model.Batch) []model.Host {
	if batch != nil {
		return batch.Hosts
	}
	act := script.Acts[0]
	return []model.Host{{Which: act.Which, What: act.What, URL: act.Which}}
}

func saveReports(ctx context.Context, app *appContext, reports []model.Report) ([]ports.StoredReport, []string, error) {
	reportStore, err := app.reportStore()
	if err != nil {
		return nil, nil, err
	}

	stored := make([]ports.StoredReport, 0, len(reports))
	paths := make([]string, 0, len(reports))
	for i, report := range reports {
		name := store.ReportName(report.TimeStamp, i)
		path, err := reportStore.Save(ctx, name, report)
		if err != nil {
			return stored, paths, err
		}
		stored = append(stored, ports.StoredReport{Name: name, Report: report})
		paths = append(paths, path)
	}
	return stored, paths, nil
}

func dispatchTuiMessage(interactive bool, program *tea.Program, state *tui.Model, msg tea.Msg) {
	if interactive {
		if program != nil {
			program.Send(msg)
		}
		return
	}

	updated, _ := state.Update(msg)
	if m, ok := updated.(tui.Model); ok {
		*state = m
	}
}
