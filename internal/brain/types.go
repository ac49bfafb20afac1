package brain

import (
	"time"

	"github.com/pindral/brainstore/internal/canon"
)

// SchemaVersion is the on-disk document schema version.
const SchemaVersion = 1

// SystemSlug names the brain that always exists and is never deleted.
const SystemSlug = "system"

// Status is the lifecycle state of a stored version.
type Status string

const (
	// StatusActive marks the single current version of an entity.
	StatusActive Status = "active"

	// StatusInactive marks a superseded version that can be restored.
	StatusInactive Status = "inactive"

	// StatusArchived marks a version parked by an archive operation.
	// Archived versions can be restored back to active.
	StatusArchived Status = "archived"

	// StatusDeleted is terminal: the version is removed from the ledger.
	// It never appears in a persisted document.
	StatusDeleted Status = "deleted"
)

// ValidStatus reports whether s is a status a persisted version may carry.
func ValidStatus(s Status) bool {
	switch s {
	case StatusActive, StatusInactive, StatusArchived:
		return true
	default:
		return false
	}
}

// Meta is the brain-level metadata block.
type Meta struct {
	Slug          string
	UUID          string
	SchemaVersion int
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// Version is one immutable snapshot of an entity's payload.
// Versions are exclusively owned by their entity and never shared.
type Version struct {
	Version     int64
	Hash        string // content hash of the payload
	Commit      string // hash of the commit envelope
	CommittedAt time.Time
	Status      Status
	Payload     canon.Value
}

// SchemaRef binds an entity to a schema entity by slug plus an optional
// version or commit selector (same ref grammar as ResolveVersion).
type SchemaRef struct {
	Slug string
	Ref  string
}

// Entity is a path-addressed, version-tracked unit of structured data.
// ActiveVersion is zero when no version is active. LastVersion is the
// high-water mark of numbers ever committed; deletion never lowers it,
// so a number is never reused even after the newest version is purged.
type Entity struct {
	ActiveVersion int64
	LastVersion   int64
	Versions      map[int64]*Version
	Schema        *SchemaRef
}

// Project is a named collection of entities, keyed by path.
type Project struct {
	Slug        string
	Title       string
	Description string
	CreatedAt   time.Time
	UpdatedAt   time.Time
	Archived    bool
	Entities    map[string]*Entity
}

// CommitEntry locates the version a commit hash refers to.
// It exists only as a derived index entry.
type CommitEntry struct {
	Project string
	Entity  string
	Version int64
}

// Document is the top-level persisted brain: metadata, all projects, and
// the commit index. One Document maps to exactly one file on disk.
type Document struct {
	Meta     Meta
	Projects map[string]*Project
	Commits  CommitIndex
}

// NewDocument creates an empty brain document.
func NewDocument(slug, uuid string, now time.Time) *Document {
	return &Document{
		Meta: Meta{
			Slug:          slug,
			UUID:          uuid,
			SchemaVersion: SchemaVersion,
			CreatedAt:     now,
			UpdatedAt:     now,
		},
		Projects: map[string]*Project{},
		Commits:  CommitIndex{},
	}
}

// NewProject creates an empty project.
func NewProject(slug, title, description string, now time.Time) *Project {
	return &Project{
		Slug:        slug,
		Title:       title,
		Description: description,
		CreatedAt:   now,
		UpdatedAt:   now,
		Entities:    map[string]*Entity{},
	}
}

// Project returns the named project or a NotFound error.
func (d *Document) Project(slug string) (*Project, error) {
	p, ok := d.Projects[slug]
	if !ok {
		return nil, NewNotFound("project %q not found", slug).WithProject(slug)
	}
	return p, nil
}

// Entity returns the entity at path or a NotFound error.
func (p *Project) Entity(path string) (*Entity, error) {
	e, ok := p.Entities[path]
	if !ok {
		return nil, NewNotFound("entity %q not found in project %q", path, p.Slug).
			WithProject(p.Slug).WithEntity(path)
	}
	return e, nil
}
