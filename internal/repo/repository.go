package repo

import (
	"log/slog"
	"os"
	"time"

	"github.com/google/uuid"

	"github.com/pindral/brainstore/internal/brain"
	"github.com/pindral/brainstore/internal/storage"
)

// DefaultBrain is the user brain activated when none has been chosen.
const DefaultBrain = "main"

// Repository orchestrates all operations across brains. It holds no
// document state between calls; each operation loads, mutates and
// persists one brain as a single transaction.
type Repository struct {
	layout *storage.Layout
	bus    *Bus
	logger *slog.Logger
	clock  func() time.Time
	newID  func() string

	active string
}

// Option configures a Repository.
type Option func(*Repository)

// WithLogger sets the structured logger.
func WithLogger(l *slog.Logger) Option {
	return func(r *Repository) { r.logger = l }
}

// WithClock injects the time source. Tests use a fixed clock so
// persisted documents are deterministic.
func WithClock(clock func() time.Time) Option {
	return func(r *Repository) { r.clock = clock }
}

// WithIDSource injects the uuid source for new brain instance ids.
func WithIDSource(newID func() string) Option {
	return func(r *Repository) { r.newID = newID }
}

// New creates a Repository rooted at layout and guarantees the system
// brain exists.
func New(layout *storage.Layout, opts ...Option) (*Repository, error) {
	r := &Repository{
		layout: layout,
		logger: slog.Default(),
		clock:  time.Now,
		newID:  uuid.NewString,
	}
	for _, opt := range opts {
		opt(r)
	}
	r.bus = NewBus(r.logger)

	if err := r.EnsureBrain(brain.SystemSlug); err != nil {
		return nil, err
	}
	return r, nil
}

// Events returns the repository's event bus for subscribers.
func (r *Repository) Events() *Bus {
	return r.bus
}

// Layout returns the filesystem layout the repository operates on.
func (r *Repository) Layout() *storage.Layout {
	return r.layout
}

// EnsureBrain idempotently creates a brain with default structure if the
// file is absent.
func (r *Repository) EnsureBrain(slug string) error {
	slug, err := NormalizeSlug(slug)
	if err != nil {
		return err
	}
	if r.layout.BrainExists(slug) {
		return nil
	}

	lock, err := r.acquire(slug)
	if err != nil {
		return err
	}
	defer lock.Release()

	// Re-check under the lock: another process may have won the race.
	if r.layout.BrainExists(slug) {
		return nil
	}

	doc := brain.NewDocument(slug, r.newID(), r.clock())
	if err := r.persist(slug, doc); err != nil {
		return err
	}
	r.logger.Info("brain created", "brain", slug)
	return nil
}

// CreateBrain creates a new brain, failing with Conflict if the slug is
// reserved or already taken.
func (r *Repository) CreateBrain(slug string) error {
	slug, err := NormalizeSlug(slug)
	if err != nil {
		return err
	}
	if slug == brain.SystemSlug {
		return brain.NewConflict("%q is a reserved brain name", slug).WithBrain(slug)
	}
	if r.layout.BrainExists(slug) {
		return brain.NewConflict("brain %q already exists", slug).WithBrain(slug)
	}
	return r.EnsureBrain(slug)
}

// Use activates a brain for subsequent operations in this process.
// The system brain can never be the active user brain.
func (r *Repository) Use(slug string) error {
	slug, err := NormalizeSlug(slug)
	if err != nil {
		return err
	}
	if slug == brain.SystemSlug {
		return brain.NewConflict("the system brain cannot be activated").WithBrain(slug)
	}
	if !r.layout.BrainExists(slug) {
		return brain.NewNotFound("brain %q not found", slug).WithBrain(slug)
	}
	r.active = slug
	return nil
}

// Active returns the active brain slug, or "" if none was chosen.
func (r *Repository) Active() string {
	return r.active
}

// EnsureActiveBrain returns the active brain, creating and activating
// the default user brain when none has been chosen yet.
func (r *Repository) EnsureActiveBrain() (string, error) {
	if r.active != "" {
		return r.active, nil
	}
	if err := r.EnsureBrain(DefaultBrain); err != nil {
		return "", err
	}
	if err := r.Use(DefaultBrain); err != nil {
		return "", err
	}
	return r.active, nil
}

// ListBrains returns all stored brain slugs.
func (r *Repository) ListBrains() ([]string, error) {
	return r.layout.ListBrains()
}

// DeleteBrain removes a brain file entirely. The system brain is
// protected; the active brain must be deactivated first.
func (r *Repository) DeleteBrain(slug string) error {
	slug, err := NormalizeSlug(slug)
	if err != nil {
		return err
	}
	if slug == brain.SystemSlug {
		return brain.NewConflict("the system brain cannot be deleted").WithBrain(slug)
	}
	if slug == r.active {
		return brain.NewConflict("brain %q is active; switch brains before deleting", slug).WithBrain(slug)
	}
	if !r.layout.BrainExists(slug) {
		return brain.NewNotFound("brain %q not found", slug).WithBrain(slug)
	}

	lock, err := r.acquire(slug)
	if err != nil {
		return err
	}
	defer lock.Release()

	if err := os.Remove(r.layout.BrainPath(slug)); err != nil {
		return brain.NewWriteFailed("failed to delete brain %q", slug).WithBrain(slug).WithCause(err)
	}
	r.logger.Info("brain deleted", "brain", slug)
	return nil
}

// acquire takes the brain's exclusive file lock.
func (r *Repository) acquire(slug string) (*storage.FileLock, error) {
	lock, err := storage.AcquireLock(r.layout.LockPath(slug))
	if err != nil {
		return nil, brain.NewWriteFailed("failed to lock brain %q", slug).WithBrain(slug).WithCause(err)
	}
	return lock, nil
}

// load reads and decodes a brain document. No lock is taken: readers
// observe a stale-but-never-partial snapshot.
func (r *Repository) load(slug string) (*brain.Document, error) {
	data, err := storage.Load(r.layout.BrainPath(slug))
	if err != nil {
		if brain.IsNotFound(err) {
			return nil, brain.NewNotFound("brain %q not found", slug).WithBrain(slug)
		}
		return nil, err
	}
	doc, err := brain.Decode(data)
	if err != nil {
		return nil, err
	}
	return doc, nil
}

// persist encodes and durably writes a document, bumping its updated-at
// stamp. Write signals are republished as bus events.
func (r *Repository) persist(slug string, doc *brain.Document) error {
	doc.Meta.UpdatedAt = r.clock()
	data, err := doc.Encode()
	if err != nil {
		return err
	}

	writer := &storage.Writer{
		Observer: &busWriteObserver{bus: r.bus, brain: slug},
		Logger:   r.logger,
	}
	if _, err := writer.Persist(r.layout.BrainPath(slug), data); err != nil {
		return err
	}
	return nil
}

// mutate runs one load-mutate-persist transaction against a brain.
// The mutation returns the events to publish; they fire only after the
// document is durably persisted. On any failure the in-memory document
// is discarded, so no partial effect survives.
func (r *Repository) mutate(slug string, fn func(doc *brain.Document) ([]Event, error)) error {
	lock, err := r.acquire(slug)
	if err != nil {
		return err
	}
	defer lock.Release()

	doc, err := r.load(slug)
	if err != nil {
		return err
	}

	events, err := fn(doc)
	if err != nil {
		return err
	}

	if err := r.persist(slug, doc); err != nil {
		return err
	}

	for _, e := range events {
		r.bus.Publish(e)
	}
	return nil
}

// mutateActive runs a transaction against the active brain.
func (r *Repository) mutateActive(fn func(doc *brain.Document) ([]Event, error)) error {
	slug, err := r.EnsureActiveBrain()
	if err != nil {
		return err
	}
	return r.mutate(slug, fn)
}

// loadActive loads the active brain for a read-only projection.
func (r *Repository) loadActive() (*brain.Document, error) {
	slug, err := r.EnsureActiveBrain()
	if err != nil {
		return nil, err
	}
	return r.load(slug)
}

// busWriteObserver republishes atomic-writer signals as bus events.
type busWriteObserver struct {
	bus   *Bus
	brain string
}

func (o *busWriteObserver) WriteRetry(path string, attempt int, cause error) {
	o.bus.Publish(WriteRetry{Brain: o.brain, Path: path, Attempt: attempt, Cause: cause})
}

func (o *busWriteObserver) WriteIntegrityFailed(path, expected, actual string) {
	o.bus.Publish(WriteIntegrityFailed{Brain: o.brain, Path: path, Expected: expected, Actual: actual})
}

func (o *busWriteObserver) WriteCompleted(path, hash string, attempts int) {
	o.bus.Publish(WriteCompleted{Brain: o.brain, Path: path, Hash: hash, Attempts: attempts})
}
