package repo

import (
	"log/slog"
	"sync"
)

// Event names, as seen by subscribers.
const (
	EventWriteRetry           = "brain.write.retry"
	EventWriteIntegrityFailed = "brain.write.integrity_failed"
	EventWriteCompleted       = "brain.write.completed"
	EventEntitySaved          = "brain.entity.saved"
	EventEntityDeleted        = "brain.entity.deleted"
	EventEntityRestored       = "brain.entity.restored"
	EventProjectUpdated       = "brain.project.updated"
	EventProjectDeleted       = "brain.project.deleted"
	EventCleanupCompleted     = "brain.cleanup.completed"
)

// Event is a store lifecycle notification.
type Event interface {
	// EventName returns the name subscribers register under.
	EventName() string
}

// WriteRetry fires when a write-verify cycle failed and the single
// internal retry is about to run.
type WriteRetry struct {
	Brain   string
	Path    string
	Attempt int
	Cause   error
}

func (WriteRetry) EventName() string { return EventWriteRetry }

// WriteIntegrityFailed fires on the second, fatal verification failure.
type WriteIntegrityFailed struct {
	Brain    string
	Path     string
	Expected string
	Actual   string
}

func (WriteIntegrityFailed) EventName() string { return EventWriteIntegrityFailed }

// WriteCompleted fires after a successful persist with the final hash
// and the number of attempts it took.
type WriteCompleted struct {
	Brain    string
	Path     string
	Hash     string
	Attempts int
}

func (WriteCompleted) EventName() string { return EventWriteCompleted }

// EntitySaved fires after a new version is durably committed.
type EntitySaved struct {
	Brain   string
	Project string
	Entity  string
	Version int64
	Hash    string
	Commit  string
}

func (EntitySaved) EventName() string { return EventEntitySaved }

// EntityDeleted fires after entities are removed or deleted.
type EntityDeleted struct {
	Brain    string
	Project  string
	Entities []string
	Hard     bool
}

func (EntityDeleted) EventName() string { return EventEntityDeleted }

// EntityRestored fires after a prior version is reactivated.
type EntityRestored struct {
	Brain   string
	Project string
	Entity  string
	Version int64
}

func (EntityRestored) EventName() string { return EventEntityRestored }

// ProjectUpdated fires after a project is created, updated, archived or
// restored. Action is one of "created", "updated", "archived", "restored".
type ProjectUpdated struct {
	Brain   string
	Project string
	Action  string
}

func (ProjectUpdated) EventName() string { return EventProjectUpdated }

// ProjectDeleted fires after a hard project deletion.
type ProjectDeleted struct {
	Brain         string
	Project       string
	PurgedCommits int
}

func (ProjectDeleted) EventName() string { return EventProjectDeleted }

// CleanupCompleted fires after purge, compact or repair finishes.
// Op is one of "purge", "compact", "repair".
type CleanupCompleted struct {
	Brain    string
	Project  string
	Op       string
	Affected int
}

func (CleanupCompleted) EventName() string { return EventCleanupCompleted }

// Handler consumes one event. Handlers run synchronously on the
// publishing goroutine, in registration order.
type Handler func(Event)

// Subscription identifies a registered handler for later removal.
type Subscription struct {
	name string
	id   int
}

type subscriber struct {
	id int
	fn Handler
}

// Bus is a synchronous, failure-isolated event dispatcher. A subscriber
// panic is recovered and logged; it never propagates into the store's
// transaction, so a broken listener can only affect its own side effects.
type Bus struct {
	mu       sync.Mutex
	nextID   int
	handlers map[string][]subscriber
	logger   *slog.Logger
}

// NewBus creates an event bus. logger may be nil.
func NewBus(logger *slog.Logger) *Bus {
	if logger == nil {
		logger = slog.Default()
	}
	return &Bus{
		handlers: map[string][]subscriber{},
		logger:   logger,
	}
}

// Subscribe registers a handler for one event name.
func (b *Bus) Subscribe(name string, fn Handler) Subscription {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.nextID++
	b.handlers[name] = append(b.handlers[name], subscriber{id: b.nextID, fn: fn})
	return Subscription{name: name, id: b.nextID}
}

// Unsubscribe removes a previously registered handler.
func (b *Bus) Unsubscribe(s Subscription) {
	b.mu.Lock()
	defer b.mu.Unlock()

	subs := b.handlers[s.name]
	for i, sub := range subs {
		if sub.id == s.id {
			b.handlers[s.name] = append(subs[:i:i], subs[i+1:]...)
			return
		}
	}
}

// Publish delivers an event to its subscribers in registration order.
func (b *Bus) Publish(e Event) {
	b.mu.Lock()
	subs := make([]subscriber, len(b.handlers[e.EventName()]))
	copy(subs, b.handlers[e.EventName()])
	b.mu.Unlock()

	for _, sub := range subs {
		b.dispatch(e, sub)
	}
}

func (b *Bus) dispatch(e Event, sub subscriber) {
	defer func() {
		if r := recover(); r != nil {
			b.logger.Error("event subscriber panicked",
				"event", e.EventName(),
				"panic", r)
		}
	}()
	sub.fn(e)
}
