package ports

import (
	"context"

	"github.com/alexisbeaulieu97/autotest/internal/model"
)

// Template is a document body with the placeholder names it may reference.
type Template struct {
	Kind         string
	Body         string
	Placeholders []string
}

// TemplateProvider supplies templates by document kind. The assembler never
// reads templates from storage itself.
type TemplateProvider interface {
	Template(kind string) (Template, error)
}

// StoredReport is a report together with the file name it was stored under.
type StoredReport struct {
	Name   string
	Report model.Report
}

// ReportStore persists reports as data.
type ReportStore interface {
	Save(ctx context.Context, name string, report model.Report) (string, error)
	Load(ctx context.Context, name string) (model.Report, error)
	List(ctx context.Context) ([]StoredReport, error)
}
