package ports

import (
	"context"

	"github.com/alexisbeaulieu97/autotest/internal/model"
)

// Page is the context a test engine runs against: the visited page as the
// navigator left it.
type Page struct {
	// URL is the address the script asked for.
	URL string
	// FinalURL is the address after redirects.
	FinalURL string
	Status   int
	// Body holds the fetched document when the navigator retains it.
	Body []byte
}

// TestEngine runs one accessibility test category against a page.
//
// Implementations return a RawResult whose shape matches what the category's
// scoring rule reads. Any error is treated as a crash of that category only:
// the executor records it, infers the category's score and continues with the
// next act. Implementations must honor ctx cancellation, since a host's visit
// timeout is delivered through it.
type TestEngine interface {
	Run(ctx context.Context, category string, page Page) (model.RawResult, error)
}

// EngineFunc adapts a function to TestEngine.
type EngineFunc func(ctx context.Context, category string, page Page) (model.RawResult, error)

// Run implements TestEngine.
func (f EngineFunc) Run(ctx context.Context, category string, page Page) (model.RawResult, error) {
	return f(ctx, category, page)
}

// EngineResolver looks up the engine registered for a category.
type EngineResolver interface {
	Engine(category string) (TestEngine, error)
}

// VisitStats are the diagnostics a navigator accumulates while visiting.
type VisitStats struct {
	LogCount   int
	LogSize    int
	Rejections int
	Prohibited int
	Timeouts   int
}

// Navigator loads a page for the tests of one host.
//
// Visit failures are reported as *errors.VisitError so the executor can count
// them by kind. The returned stats are merged into the host's diagnostics
// whether or not the visit succeeded.
type Navigator interface {
	Visit(ctx context.Context, url string) (Page, VisitStats, error)
}
