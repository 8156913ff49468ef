package ports

import "context"

const (
	// EventBatchStarted is emitted once before any host runs.
	EventBatchStarted = "batch.started"
	// EventBatchCompleted is emitted after every host report is final.
	EventBatchCompleted = "batch.completed"
	// EventHostStarted is emitted when a host begins its act sequence.
	EventHostStarted = "host.started"
	// EventHostCompleted is emitted when a host report is final.
	EventHostCompleted = "host.completed"
	// EventHostFailed is emitted when a host report is marked failed.
	EventHostFailed = "host.failed"
	// EventTestCompleted is emitted after a test act produced a raw result.
	EventTestCompleted = "test.completed"
	// EventTestCrashed is emitted after a test act was recorded as a crash.
	EventTestCrashed = "test.crashed"
)

// Event is a progress notification from the batch executor.
type Event struct {
	Type string
	// Index is the host's position in the batch.
	Index    int
	Host     string
	Category string
	// Total is the report's deficit total on host completion.
	Total   int
	Message string
	// Hosts is the batch size, set on batch events.
	Hosts int
}

// EventHandler reacts to a published event.
type EventHandler func(ctx context.Context, event Event) error

// Subscription cancels a registered handler.
type Subscription interface {
	Unsubscribe()
}

// EventPublisher distributes executor events. Publish is synchronous and may
// be called from several host goroutines at once, so implementations must be
// safe for concurrent use.
type EventPublisher interface {
	Publish(ctx context.Context, event Event) error
	Subscribe(eventType string, handler EventHandler) (Subscription, error)
}
