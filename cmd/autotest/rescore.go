package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/alexisbeaulieu97/autotest/internal/config"
	"github.com/alexisbeaulieu97/autotest/internal/scoring"
	"github.com/alexisbeaulieu97/autotest/pkg/diff"
)

type rescoreOptions struct {
	Previous string
	Force    bool
	DryRun   bool
	Reports  []string
}

func newRescoreCmd(root *rootFlags) *cobra.Command {
	opts := rescoreOptions{}

	cmd := &cobra.Command{
		Use:   "rescore [REPORT...]",
		Short: "Recompute scores of stored reports with the current profile",
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.Reports = args
			return runRescore(cmd, root, opts)
		},
	}

	cmd.Flags().StringVar(&opts.Previous, "previous", "", "Profile the reports were scored with; only its changed categories are recomputed")
	cmd.Flags().BoolVar(&opts.Force, "force", false, "Recompute every category, even for reports already on the current profile")
	cmd.Flags().BoolVar(&opts.DryRun, "dry-run", false, "Show score changes without writing them")

	return cmd
}

func runRescore(cmd *cobra.Command, root *rootFlags, opts rescoreOptions) error {
	app, err := loadAppContext(cmd, root, false)
	if err != nil {
		return err
	}

	var previous *scoring.Profile
	if opts.Previous != "" {
		if previous, err = config.LoadProfile(opts.Previous); err != nil {
			return err
		}
	}

	stored, err := selectReports(cmd, app, opts.Reports)
	if err != nil {
		return err
	}
	reportStore, err := app.reportStore()
	if err != nil {
		return err
	}

	scorer := scoring.NewEngine(app.profile)
	out := cmd.OutOrStdout()

	var (
		paths []string
		errs  []error
	)
	for _, s := range stored {
		updated, categories, err := scorer.Rescore(s.Report, scoring.RescoreOptions{Previous: previous, Force: opts.Force})
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", s.Name, err))
			if updated.Score() == nil {
				continue
			}
			// Categories the profile cannot score carry its default
			// inference; the rest of the rescore still stands.
			app.log.WithFields(map[string]any{"report": s.Name}).Warn(err, "report rescored with inferred categories")
		}

		before, err := json.MarshalIndent(s.Report.Score(), "", "  ")
		if err != nil {
			return err
		}
		after, err := json.MarshalIndent(updated.Score(), "", "  ")
		if err != nil {
			return err
		}
		if bytes.Equal(before, after) {
			app.log.WithFields(map[string]any{"report": s.Name}).Debug("score unchanged")
			continue
		}

		app.log.WithFields(map[string]any{"report": s.Name, "categories": categories}).Info("report rescored")
		if opts.DryRun {
			fmt.Fprint(out, diff.Lines(before, after, s.Name, s.Name+" (rescored)"))
			paths = append(paths, s.Name)
			continue
		}

		path, err := reportStore.Save(cmd.Context(), s.Name, updated)
		if err != nil {
			return err
		}
		paths = append(paths, path)
	}

	verb := "rescored"
	if opts.DryRun {
		verb = "would rescore"
	}
	fmt.Fprintf(out, "%s %d of %d reports\n", verb, len(paths), len(stored))

	if !opts.DryRun {
		message := fmt.Sprintf("rescore with %s %s", app.profile.ScoreProc, app.profile.Version)
		if err := app.archiveOutput(cmd.Context(), message, paths); err != nil {
			return err
		}
	}
	return errors.Join(errs...)
}
