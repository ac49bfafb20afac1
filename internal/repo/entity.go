package repo

import (
	"errors"
	"sort"
	"time"

	"github.com/pindral/brainstore/internal/brain"
	"github.com/pindral/brainstore/internal/canon"
	"github.com/pindral/brainstore/internal/schema"
)

// MoveMode controls what happens to a pre-existing target entity's
// children during a move.
type MoveMode string

const (
	// MoveMerge keeps the union of both subtrees; a path collision is a
	// conflict.
	MoveMerge MoveMode = "merge"

	// MoveReplace drops the target's prior subtree, purging its commits.
	MoveReplace MoveMode = "replace"
)

// SaveOptions tunes a save call beyond the plain payload commit.
type SaveOptions struct {
	// Parent repositions the entity (and its subtree) under a new parent
	// path before committing. Empty string means root placement.
	Parent *string

	// Schema binds the entity to a schema entity in the same project.
	Schema *brain.SchemaRef

	// Meta is caller-supplied commit metadata, folded into the commit
	// envelope and therefore into the commit hash.
	Meta canon.Object
}

// SaveResult reports the committed version.
type SaveResult struct {
	Project string `json:"project"`
	Entity  string `json:"entity"`
	Version int64  `json:"version,omitempty"`
	Hash    string `json:"hash,omitempty"`
	Commit  string `json:"commit,omitempty"`
}

// EntityInfo is the metadata-only projection of an entity.
type EntityInfo struct {
	Path          string           `json:"path"`
	ActiveVersion int64            `json:"active_version,omitempty"`
	Versions      int              `json:"versions"`
	Schema        *brain.SchemaRef `json:"schema,omitempty"`
}

// SaveEntity creates or version-bumps an entity. The project is created
// lazily if absent. A nil payload is a pure reposition or schema-bind
// call and commits no new version.
func (r *Repository) SaveEntity(project, path string, payload any, opts SaveOptions) (*SaveResult, error) {
	project, err := NormalizeSlug(project)
	if err != nil {
		return nil, err
	}
	path, err = NormalizePath(path)
	if err != nil {
		return nil, err
	}
	if opts.Parent != nil && *opts.Parent != "" {
		parent, err := NormalizePath(*opts.Parent)
		if err != nil {
			return nil, err
		}
		opts.Parent = &parent
	}

	var result SaveResult
	err = r.mutateActive(func(doc *brain.Document) ([]Event, error) {
		var events []Event

		p, ok := doc.Projects[project]
		if !ok {
			p = brain.NewProject(project, project, "", r.clock())
			doc.Projects[project] = p
			events = append(events, ProjectUpdated{
				Brain:   doc.Meta.Slug,
				Project: project,
				Action:  "created",
			})
		}
		if p.Archived {
			return nil, brain.NewConflict("project %q is archived", project).
				WithBrain(doc.Meta.Slug).WithProject(project)
		}

		if opts.Parent != nil {
			if _, ok := p.Entities[path]; !ok {
				return nil, brain.NewValidation("cannot reposition entity %q: it does not exist", path).
					WithBrain(doc.Meta.Slug).WithProject(project).WithEntity(path)
			}
			moved, err := relocate(doc, p, path, brain.JoinPath(*opts.Parent, brain.BasePath(path)), MoveMerge)
			if err != nil {
				return nil, err
			}
			path = moved
		}

		e, ok := p.Entities[path]
		if !ok {
			if payload == nil && opts.Schema == nil {
				return nil, brain.NewNotFound("entity %q not found in project %q", path, project).
					WithBrain(doc.Meta.Slug).WithProject(project).WithEntity(path)
			}
			e = brain.NewEntity()
			p.Entities[path] = e
		}

		if opts.Schema != nil {
			if err := r.checkSchemaRef(doc, p, *opts.Schema); err != nil {
				return nil, err
			}
			e.Schema = opts.Schema
		}

		result = SaveResult{Project: project, Entity: path}
		if payload == nil {
			p.UpdatedAt = r.clock()
			events = append(events, ProjectUpdated{
				Brain:   doc.Meta.Slug,
				Project: project,
				Action:  "updated",
			})
			return events, nil
		}

		value, err := canon.FromAny(payload)
		if err != nil {
			return nil, brain.NewValidation("payload is not canonicalizable: %v", err).
				WithBrain(doc.Meta.Slug).WithProject(project).WithEntity(path)
		}
		if e.Schema != nil {
			source, err := r.schemaSource(doc, p, *e.Schema)
			if err != nil {
				return nil, err
			}
			if err := schema.Validate(source, value); err != nil {
				return nil, wrapBrainErr(err, doc.Meta.Slug, project, path)
			}
		}

		contentHash, err := canon.ContentHash(value)
		if err != nil {
			return nil, err
		}

		now := r.clock()
		n := e.NextVersion()
		commit, err := canon.CommitHash(project, path, n, contentHash,
			now.UTC().Format(time.RFC3339Nano), opts.Meta)
		if err != nil {
			return nil, err
		}
		if err := e.Append(&brain.Version{
			Version:     n,
			Hash:        contentHash,
			Commit:      commit,
			CommittedAt: now,
			Payload:     value,
		}); err != nil {
			return nil, err
		}
		doc.Commits.Insert(commit, brain.CommitEntry{Project: project, Entity: path, Version: n})
		p.UpdatedAt = now

		result.Version = n
		result.Hash = contentHash
		result.Commit = commit
		events = append(events, EntitySaved{
			Brain:   doc.Meta.Slug,
			Project: project,
			Entity:  path,
			Version: n,
			Hash:    contentHash,
			Commit:  commit,
		})
		return events, nil
	})
	if err != nil {
		return nil, err
	}
	return &result, nil
}

// MoveEntity reassigns an entity and its subtree to a new path without
// touching payloads or version history.
func (r *Repository) MoveEntity(project, sourcePath, targetPath string, mode MoveMode) error {
	project, err := NormalizeSlug(project)
	if err != nil {
		return err
	}
	sourcePath, err = NormalizePath(sourcePath)
	if err != nil {
		return err
	}
	targetPath, err = NormalizePath(targetPath)
	if err != nil {
		return err
	}
	switch mode {
	case MoveMerge, MoveReplace:
	default:
		return brain.NewValidation("unknown move mode %q", mode)
	}

	return r.mutateActive(func(doc *brain.Document) ([]Event, error) {
		p, err := doc.Project(project)
		if err != nil {
			return nil, err
		}
		if _, err := relocate(doc, p, sourcePath, targetPath, mode); err != nil {
			return nil, err
		}
		p.UpdatedAt = r.clock()
		return []Event{ProjectUpdated{
			Brain:   doc.Meta.Slug,
			Project: project,
			Action:  "updated",
		}}, nil
	})
}

// RemoveEntity soft-deactivates entities. By default each removed
// entity's children are promoted to its parent; with recursive the whole
// subtree is deactivated in place.
func (r *Repository) RemoveEntity(project string, paths []string, recursive bool) error {
	return r.dropEntities(project, paths, recursive, false)
}

// DeleteEntity hard-deletes entities, removing their version records and
// purging their commit entries. By default children are promoted to the
// deleted entity's parent; with recursive the whole subtree is deleted.
func (r *Repository) DeleteEntity(project string, paths []string, recursive bool) error {
	return r.dropEntities(project, paths, recursive, true)
}

func (r *Repository) dropEntities(project string, paths []string, recursive, hard bool) error {
	project, err := NormalizeSlug(project)
	if err != nil {
		return err
	}
	normalized := make([]string, len(paths))
	for i, path := range paths {
		if normalized[i], err = NormalizePath(path); err != nil {
			return err
		}
	}

	return r.mutateActive(func(doc *brain.Document) ([]Event, error) {
		p, err := doc.Project(project)
		if err != nil {
			return nil, err
		}

		var affected []string
		for _, path := range normalized {
			if _, err := p.Entity(path); err != nil {
				return nil, err
			}

			children := p.Children(path)
			if recursive {
				for _, child := range children {
					dropOne(doc, p, child, hard)
					affected = append(affected, child)
				}
			} else {
				parent := brain.ParentPath(path)
				for _, child := range children {
					promoted := brain.Rebase(child, path, parent)
					if _, exists := p.Entities[promoted]; exists {
						return nil, brain.NewConflict("cannot promote %q: %q already exists", child, promoted).
							WithBrain(doc.Meta.Slug).WithProject(project).WithEntity(promoted)
					}
					p.Entities[promoted] = p.Entities[child]
					delete(p.Entities, child)
					retargetCommits(doc, project, child, promoted)
				}
			}

			dropOne(doc, p, path, hard)
			affected = append(affected, path)
		}

		sort.Strings(affected)
		p.UpdatedAt = r.clock()
		return []Event{EntityDeleted{
			Brain:    doc.Meta.Slug,
			Project:  project,
			Entities: affected,
			Hard:     hard,
		}}, nil
	})
}

// dropOne soft-deactivates or hard-deletes one entity record.
func dropOne(doc *brain.Document, p *brain.Project, path string, hard bool) {
	e := p.Entities[path]
	if e == nil {
		return
	}
	if !hard {
		e.Deactivate(brain.StatusInactive)
		return
	}
	for _, v := range e.Versions {
		if v.Commit != "" {
			doc.Commits.Remove(v.Commit)
		}
	}
	delete(p.Entities, path)
}

// relocate moves the entity at from, plus its subtree, to to. The
// source record always replaces a pre-existing target record; mode only
// decides the fate of the target's children. Returns the final path of
// the moved entity.
func relocate(doc *brain.Document, p *brain.Project, from, to string, mode MoveMode) (string, error) {
	if from == to {
		return to, nil
	}
	if _, err := p.Entity(from); err != nil {
		return "", err
	}
	if brain.IsDescendant(to, from) {
		return "", brain.NewConflict("cannot move %q into its own subtree %q", from, to).
			WithProject(p.Slug).WithEntity(from)
	}

	if _, exists := p.Entities[to]; exists {
		if mode == MoveReplace {
			for _, child := range p.Children(to) {
				dropOne(doc, p, child, true)
			}
		}
		dropOne(doc, p, to, true)
	}

	moves := map[string]string{from: to}
	for _, child := range p.Children(from) {
		moves[child] = brain.Rebase(child, from, to)
	}

	// Detach first so overlapping source and destination sets cannot
	// clobber each other, then check collisions against what remains.
	detached := map[string]*brain.Entity{}
	for old := range moves {
		detached[old] = p.Entities[old]
		delete(p.Entities, old)
	}
	for _, dst := range moves {
		if _, exists := p.Entities[dst]; exists {
			return "", brain.NewConflict("path %q is already occupied", dst).
				WithProject(p.Slug).WithEntity(dst)
		}
	}
	for old, dst := range moves {
		p.Entities[dst] = detached[old]
		retargetCommits(doc, p.Slug, old, dst)
	}
	return to, nil
}

// retargetCommits repoints commit-index entries after a path change.
func retargetCommits(doc *brain.Document, project, oldPath, newPath string) {
	for hash, entry := range doc.Commits {
		if entry.Project == project && entry.Entity == oldPath {
			entry.Entity = newPath
			doc.Commits[hash] = entry
		}
	}
}

// ListEntities returns metadata for entities in a project, optionally
// restricted to the subtree below parentFilter, sorted by path.
func (r *Repository) ListEntities(project, parentFilter string) ([]EntityInfo, error) {
	project, err := NormalizeSlug(project)
	if err != nil {
		return nil, err
	}
	if parentFilter != "" {
		if parentFilter, err = NormalizePath(parentFilter); err != nil {
			return nil, err
		}
	}

	doc, err := r.loadActive()
	if err != nil {
		return nil, err
	}
	p, err := doc.Project(project)
	if err != nil {
		return nil, err
	}

	var infos []EntityInfo
	for path, e := range p.Entities {
		if parentFilter != "" && path != parentFilter && !brain.IsDescendant(path, parentFilter) {
			continue
		}
		infos = append(infos, EntityInfo{
			Path:          path,
			ActiveVersion: e.ActiveVersion,
			Versions:      len(e.Versions),
			Schema:        e.Schema,
		})
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].Path < infos[j].Path })
	return infos, nil
}

// checkSchemaRef verifies a schema binding resolves to a schema entity
// with usable CUE source before the binding is stored.
func (r *Repository) checkSchemaRef(doc *brain.Document, p *brain.Project, ref brain.SchemaRef) error {
	_, err := r.schemaSource(doc, p, ref)
	return err
}

// schemaSource resolves a schema binding to its CUE source. Schemas live
// in the same project as the entities bound to them.
func (r *Repository) schemaSource(doc *brain.Document, p *brain.Project, ref brain.SchemaRef) (string, error) {
	schemaEntity, err := p.Entity(ref.Slug)
	if err != nil {
		return "", err
	}
	v, err := resolveRef(doc, schemaEntity, ref.Ref)
	if err != nil {
		return "", brain.NewNotFound("schema %q ref %q does not resolve", ref.Slug, ref.Ref).
			WithBrain(doc.Meta.Slug).WithProject(p.Slug).WithEntity(ref.Slug).WithCause(err)
	}
	return schema.Source(v.Payload)
}

// wrapBrainErr stamps location fields onto a typed error if absent.
func wrapBrainErr(err error, brainSlug, project, entity string) error {
	var be *brain.Error
	if !errors.As(err, &be) {
		return err
	}
	if be.Brain == "" {
		be = be.WithBrain(brainSlug)
	}
	if be.Project == "" {
		be = be.WithProject(project)
	}
	if be.Entity == "" {
		be = be.WithEntity(entity)
	}
	return be
}
