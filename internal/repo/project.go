package repo

import (
	"sort"
	"time"

	"github.com/pindral/brainstore/internal/brain"
)

// ProjectInfo is the metadata-only projection of a project.
type ProjectInfo struct {
	Slug        string    `json:"slug"`
	Title       string    `json:"title"`
	Description string    `json:"description,omitempty"`
	Archived    bool      `json:"archived,omitempty"`
	Entities    int       `json:"entities"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// ProjectUpdate carries optional field changes; nil means "keep".
type ProjectUpdate struct {
	Title       *string
	Description *string
}

// CreateProject creates an empty project in the active brain.
func (r *Repository) CreateProject(slug, title, description string) error {
	slug, err := NormalizeSlug(slug)
	if err != nil {
		return err
	}
	return r.mutateActive(func(doc *brain.Document) ([]Event, error) {
		if _, exists := doc.Projects[slug]; exists {
			return nil, brain.NewConflict("project %q already exists", slug).
				WithBrain(doc.Meta.Slug).WithProject(slug)
		}
		if title == "" {
			title = slug
		}
		doc.Projects[slug] = brain.NewProject(slug, title, description, r.clock())
		return []Event{ProjectUpdated{
			Brain:   doc.Meta.Slug,
			Project: slug,
			Action:  "created",
		}}, nil
	})
}

// UpdateProject applies the non-nil fields of upd to an existing project.
func (r *Repository) UpdateProject(slug string, upd ProjectUpdate) error {
	slug, err := NormalizeSlug(slug)
	if err != nil {
		return err
	}
	return r.mutateActive(func(doc *brain.Document) ([]Event, error) {
		p, err := doc.Project(slug)
		if err != nil {
			return nil, err
		}
		if upd.Title != nil {
			p.Title = *upd.Title
		}
		if upd.Description != nil {
			p.Description = *upd.Description
		}
		p.UpdatedAt = r.clock()
		return []Event{ProjectUpdated{
			Brain:   doc.Meta.Slug,
			Project: slug,
			Action:  "updated",
		}}, nil
	})
}

// ArchiveProject soft-archives a project: the project is flagged and
// every entity's active version is parked as archived, so nothing in the
// project resolves as active until the project is restored.
func (r *Repository) ArchiveProject(slug string) error {
	slug, err := NormalizeSlug(slug)
	if err != nil {
		return err
	}
	return r.mutateActive(func(doc *brain.Document) ([]Event, error) {
		p, err := doc.Project(slug)
		if err != nil {
			return nil, err
		}
		if p.Archived {
			return nil, brain.NewConflict("project %q is already archived", slug).
				WithBrain(doc.Meta.Slug).WithProject(slug)
		}
		for _, e := range p.Entities {
			e.Deactivate(brain.StatusArchived)
		}
		p.Archived = true
		p.UpdatedAt = r.clock()
		return []Event{ProjectUpdated{
			Brain:   doc.Meta.Slug,
			Project: slug,
			Action:  "archived",
		}}, nil
	})
}

// RestoreProject unarchives a project. With reactivate, each entity's
// newest archived version becomes active again; without it, entities stay
// dormant until restored individually.
func (r *Repository) RestoreProject(slug string, reactivate bool) error {
	slug, err := NormalizeSlug(slug)
	if err != nil {
		return err
	}
	return r.mutateActive(func(doc *brain.Document) ([]Event, error) {
		p, err := doc.Project(slug)
		if err != nil {
			return nil, err
		}
		if !p.Archived {
			return nil, brain.NewConflict("project %q is not archived", slug).
				WithBrain(doc.Meta.Slug).WithProject(slug)
		}
		p.Archived = false
		if reactivate {
			for _, e := range p.Entities {
				if e.ActiveVersion != 0 {
					continue
				}
				if n := newestWithStatus(e, brain.StatusArchived); n != 0 {
					if err := e.Restore(n); err != nil {
						return nil, err
					}
				}
			}
		}
		p.UpdatedAt = r.clock()
		return []Event{ProjectUpdated{
			Brain:   doc.Meta.Slug,
			Project: slug,
			Action:  "restored",
		}}, nil
	})
}

// DeleteProject hard-deletes a project. With purgeCommits, every commit
// entry pointing into the project is dropped from the index; otherwise
// the entries go stale and the next compact sweeps them.
func (r *Repository) DeleteProject(slug string, purgeCommits bool) error {
	slug, err := NormalizeSlug(slug)
	if err != nil {
		return err
	}
	return r.mutateActive(func(doc *brain.Document) ([]Event, error) {
		if _, err := doc.Project(slug); err != nil {
			return nil, err
		}
		purged := 0
		if purgeCommits {
			for hash, entry := range doc.Commits {
				if entry.Project == slug {
					doc.Commits.Remove(hash)
					purged++
				}
			}
		}
		delete(doc.Projects, slug)
		return []Event{ProjectDeleted{
			Brain:         doc.Meta.Slug,
			Project:       slug,
			PurgedCommits: purged,
		}}, nil
	})
}

// ListProjects returns metadata for every project in the active brain,
// sorted by slug.
func (r *Repository) ListProjects() ([]ProjectInfo, error) {
	doc, err := r.loadActive()
	if err != nil {
		return nil, err
	}
	infos := make([]ProjectInfo, 0, len(doc.Projects))
	for _, p := range doc.Projects {
		infos = append(infos, ProjectInfo{
			Slug:        p.Slug,
			Title:       p.Title,
			Description: p.Description,
			Archived:    p.Archived,
			Entities:    len(p.Entities),
			CreatedAt:   p.CreatedAt,
			UpdatedAt:   p.UpdatedAt,
		})
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].Slug < infos[j].Slug })
	return infos, nil
}

// newestWithStatus returns the highest version number carrying status,
// or 0 if none does.
func newestWithStatus(e *brain.Entity, status brain.Status) int64 {
	var newest int64
	for n, v := range e.Versions {
		if v.Status == status && n > newest {
			newest = n
		}
	}
	return newest
}
