package main

import (
	"errors"
	"fmt"
	"path/filepath"
	"slices"

	"github.com/spf13/cobra"

	"github.com/alexisbeaulieu97/autotest/internal/assemble"
	"github.com/alexisbeaulieu97/autotest/internal/ports"
	"github.com/alexisbeaulieu97/autotest/internal/store"
)

type docOptions struct {
	Kinds   []string
	Reports []string
}

func newDocCmd(root *rootFlags) *cobra.Command {
	opts := docOptions{}

	cmd := &cobra.Command{
		Use:   "doc [REPORT...]",
		Short: "Render documents from stored reports",
		Long:  "Render detail and summary documents for the named reports, or for every report in the report directory.",
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.Reports = args
			return runDoc(cmd, root, opts)
		},
	}

	cmd.Flags().StringSliceVarP(&opts.Kinds, "kind", "k", []string{assemble.KindDetail, assemble.KindSummary}, "Document kinds to render (detail, summary)")

	return cmd
}

func runDoc(cmd *cobra.Command, root *rootFlags, opts docOptions) error {
	for _, kind := range opts.Kinds {
		if kind != assemble.KindDetail && kind != assemble.KindSummary {
			return fmt.Errorf("unknown document kind %q", kind)
		}
	}

	app, err := loadAppContext(cmd, root, false)
	if err != nil {
		return err
	}
	stored, err := selectReports(cmd, app, opts.Reports)
	if err != nil {
		return err
	}

	paths, renderErr := renderDocuments(app, stored, opts.Kinds)
	fmt.Fprintf(cmd.OutOrStdout(), "wrote %d documents to %s\n", len(paths), app.docDir())

	if err := app.archiveOutput(cmd.Context(), fmt.Sprintf("documents for %d reports", len(stored)), paths); err != nil {
		return err
	}
	return renderErr
}

// selectReports loads the named reports, or all of them when names is empty.
func selectReports(cmd *cobra.Command, app *appContext, names []string) ([]ports.StoredReport, error) {
	reportStore, err := app.reportStore()
	if err != nil {
		return nil, err
	}
	if len(names) == 0 {
		return reportStore.List(cmd.Context())
	}

	stored := make([]ports.StoredReport, 0, len(names))
	for _, name := range names {
		name = filepath.Base(name)
		report, err := reportStore.Load(cmd.Context(), name)
		if err != nil {
			return nil, fmt.Errorf("load report %s: %w", name, err)
		}
		stored = append(stored, ports.StoredReport{Name: name, Report: report})
	}
	return stored, nil
}

// renderDocuments writes one document per report and kind. A document that
// fails to render is skipped; the others are still written and the failures
// are returned together.
func renderDocuments(app *appContext, stored []ports.StoredReport, kinds []string) ([]string, error) {
	templates := app.templates()
	assembler := app.assembler()

	var (
		paths []string
		errs  []error
	)
	for _, kind := range kinds {
		tmpl, err := templates.Template(kind)
		if err != nil {
			return paths, err
		}

		for _, s := range stored {
			if s.Report.Score() == nil {
				app.log.WithFields(map[string]any{"report": s.Name}).Warn(nil, "report has no score, no document written")
				continue
			}

			doc, err := assembler.Render(tmpl, s.Report, s.Name)
			if err != nil {
				app.log.WithFields(map[string]any{"report": s.Name, "kind": kind}).Error(err, "document not generated")
				errs = append(errs, fmt.Errorf("%s: %w", s.Name, err))
				continue
			}

			url := s.Report.Host.URL
			if act := s.Report.URLAct(); act != nil && act.Which != "" {
				url = act.Which
			}
			path := filepath.Join(app.docDir(), store.DocName(url, kind == assemble.KindSummary))
			if slices.Contains(paths, path) {
				app.log.WithFields(map[string]any{"report": s.Name, "path": path}).Warn(nil, "document overwrites another report's document")
			}
			if err := store.WriteFile(path, []byte(doc)); err != nil {
				return paths, err
			}
			paths = append(paths, path)
		}
	}
	return paths, errors.Join(errs...)
}
