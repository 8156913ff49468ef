package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/alexisbeaulieu97/autotest/internal/adapters"
	"github.com/alexisbeaulieu97/autotest/internal/config"
	"github.com/alexisbeaulieu97/autotest/internal/model"
	"github.com/alexisbeaulieu97/autotest/internal/validation"
)

func newValidateCmd(root *rootFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate SCRIPT [BATCH]",
		Short: "Check settings, the scoring profile, a script and an optional batch",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(cmd, root, args)
		},
	}

	return cmd
}

func runValidate(cmd *cobra.Command, root *rootFlags, args []string) error {
	app, err := loadAppContext(cmd, root, false)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()

	var batch *model.Batch
	if len(args) == 2 {
		path, err := resolveInput("batch", app.settings.BatchDir, args[1])
		if err != nil {
			return err
		}
		if batch, err = config.LoadBatch(path); err != nil {
			return err
		}
		fmt.Fprintf(out, "✓ batch %s: %d hosts\n", path, len(batch.Hosts))
	}

	path, err := resolveInput("script", app.settings.ScriptDir, args[0])
	if err != nil {
		return err
	}
	script, err := config.LoadScript(path, batch != nil)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "✓ script %s: %d acts\n", path, len(script.Acts))

	registry, err := adapters.BuildRegistry(app.settings.Engines, os.LookupEnv, nil, app.log)
	if err != nil {
		return err
	}
	if missing := registry.Missing(script.Categories()); len(missing) > 0 {
		return fmt.Errorf("no engine bound for categories: %s", strings.Join(missing, ", "))
	}
	fmt.Fprintf(out, "✓ profile %s %s: %d categories\n", app.profile.ScoreProc, app.profile.Version, len(app.profile.CategoryNames()))

	results, err := validation.Preflight(cmd.Context(), app.settings, app.profile.CategoryNames())
	for _, result := range results {
		icon := "✓"
		if !result.Passed {
			icon = "✗"
		}
		fmt.Fprintf(out, "%s %s %s: %s\n", icon, result.Check, result.Subject, result.Message)
	}
	return err
}
