package main

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/alexisbeaulieu97/autotest/internal/assemble"
	"github.com/alexisbeaulieu97/autotest/internal/model"
	"github.com/alexisbeaulieu97/autotest/internal/store"
)

type compareOptions struct {
	Dirs []string
	Out  string
}

func newCompareCmd(root *rootFlags) *cobra.Command {
	opts := compareOptions{}

	cmd := &cobra.Command{
		Use:   "compare [DIR...]",
		Short: "Rank hosts by their combined deficit across report directories",
		Long:  "Rank the hosts of one or more report directories by total deficit. Without arguments the stored reports are ranked.",
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.Dirs = args
			return runCompare(cmd, root, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.Out, "out", "o", "", "Output file (default <reportDir>/html/compare.html)")

	return cmd
}

func runCompare(cmd *cobra.Command, root *rootFlags, opts compareOptions) error {
	app, err := loadAppContext(cmd, root, false)
	if err != nil {
		return err
	}

	dirs := opts.Dirs
	if len(dirs) == 0 {
		dirs = []string{filepath.Join(app.settings.ReportDir, store.JSONDir)}
	}

	sets := make([][]model.Report, 0, len(dirs))
	for _, dir := range dirs {
		if err := requireDir(dir); err != nil {
			return err
		}
		reportStore, err := store.NewFileStore(dir, app.log)
		if err != nil {
			return err
		}
		stored, err := reportStore.List(cmd.Context())
		if err != nil {
			return err
		}
		reports := make([]model.Report, len(stored))
		for i, s := range stored {
			reports[i] = s.Report
		}
		sets = append(sets, reports)
	}

	rankings, skipped := assemble.Rank(sets...)
	tmpl, err := app.templates().Template(assemble.KindCompare)
	if err != nil {
		return err
	}
	doc, err := app.assembler().RenderComparison(tmpl, rankings)
	if err != nil {
		return err
	}

	outPath := opts.Out
	if outPath == "" {
		outPath = filepath.Join(app.docDir(), "compare.html")
	}
	if err := store.WriteFile(outPath, []byte(doc)); err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	for _, host := range skipped {
		fmt.Fprintf(out, "skipped %s: not scored in every set\n", host)
	}
	fmt.Fprintf(out, "ranked %d hosts into %s\n", len(rankings), outPath)

	return app.archiveOutput(cmd.Context(), fmt.Sprintf("compare %d hosts", len(rankings)), []string{outPath})
}
