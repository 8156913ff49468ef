package engine

import (
	"time"

	"github.com/alexisbeaulieu97/autotest/internal/logger"
	"github.com/alexisbeaulieu97/autotest/internal/ports"
	"github.com/alexisbeaulieu97/autotest/internal/scoring"
)

// DefaultConcurrency bounds concurrent hosts when Options leaves it unset.
const DefaultConcurrency = 4

// Options are the execution parameters of a batch run.
type Options struct {
	// Concurrency bounds how many hosts run at once.
	Concurrency int
	// VisitTimeout bounds a host's whole act sequence. Zero disables it.
	VisitTimeout time.Duration
	// TestTimeout bounds a single test act. Zero disables it.
	TestTimeout time.Duration
	// Strict forces strict mode for every script.
	Strict bool
}

// Dependencies are the collaborators an Executor drives.
type Dependencies struct {
	Engines ports.EngineResolver
	// Navigator may be nil, in which case engines receive the bare URL.
	Navigator ports.Navigator
	Scorer    *scoring.Engine
	Events    ports.EventPublisher
	Logger    *logger.Logger
	// Clock defaults to time.Now.
	Clock func() time.Time
	// NewID defaults to random UUIDs.
	NewID func() string
}
