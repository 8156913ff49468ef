package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/alexisbeaulieu97/autotest/internal/assemble"
	"github.com/alexisbeaulieu97/autotest/internal/merge"
	"github.com/alexisbeaulieu97/autotest/internal/store"
)

type addTestOptions struct {
	Category string
	From     string
	Docs     bool
}

func newAddTestCmd(root *rootFlags) *cobra.Command {
	opts := addTestOptions{}

	cmd := &cobra.Command{
		Use:   "add-test CATEGORY DIR",
		Short: "Merge one test from a set of new reports into the stored reports",
		Long:  "Copy the CATEGORY test result of each report in DIR into the stored report of the same organization, then rescore it.",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.Category = args[0]
			opts.From = args[1]
			return runAddTest(cmd, root, opts)
		},
	}

	cmd.Flags().BoolVar(&opts.Docs, "docs", false, "Render documents for the amended reports")

	return cmd
}

func runAddTest(cmd *cobra.Command, root *rootFlags, opts addTestOptions) error {
	if err := requireDir(opts.From); err != nil {
		return err
	}

	app, err := loadAppContext(cmd, root, false)
	if err != nil {
		return err
	}
	reportStore, err := app.reportStore()
	if err != nil {
		return err
	}
	if reportStore.Dir() == opts.From {
		return errors.New("new test reports must not live in the report directory")
	}

	existing, err := reportStore.List(cmd.Context())
	if err != nil {
		return err
	}
	newStore, err := store.NewFileStore(opts.From, app.log)
	if err != nil {
		return err
	}
	newTests, err := newStore.List(cmd.Context())
	if err != nil {
		return err
	}

	result, mergeErr := merge.MergeAll(existing, newTests, opts.Category, app.log)

	out := cmd.OutOrStdout()
	var paths []string
	for _, s := range result.Merged {
		path, err := reportStore.Save(cmd.Context(), s.Name, s.Report)
		if err != nil {
			return err
		}
		paths = append(paths, path)
	}
	for _, mismatch := range result.Mismatches {
		fmt.Fprintln(out, mismatch.Error())
	}
	fmt.Fprintf(out, "added %s to %d of %d reports\n", opts.Category, len(result.Merged), len(existing))

	var docErr error
	if opts.Docs && len(result.Merged) > 0 {
		var docs []string
		docs, docErr = renderDocuments(app, result.Merged, []string{assemble.KindDetail, assemble.KindSummary})
		paths = append(paths, docs...)
	}

	if err := app.archiveOutput(cmd.Context(), fmt.Sprintf("add %s test to %d reports", opts.Category, len(result.Merged)), paths); err != nil {
		return err
	}
	return errors.Join(mergeErr, docErr)
}
