package repo

import (
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/pindral/brainstore/internal/brain"
	"github.com/pindral/brainstore/internal/canon"
)

// VersionView is one resolved version, payload included.
type VersionView struct {
	Project     string       `json:"project"`
	Entity      string       `json:"entity"`
	Version     int64        `json:"version"`
	Hash        string       `json:"hash"`
	Commit      string       `json:"commit"`
	CommittedAt time.Time    `json:"committed_at"`
	Status      brain.Status `json:"status"`
	Payload     any          `json:"payload"`
}

// VersionInfo is the metadata-only projection of a version.
type VersionInfo struct {
	Version     int64        `json:"version"`
	Hash        string       `json:"hash"`
	Commit      string       `json:"commit"`
	CommittedAt time.Time    `json:"committed_at"`
	Status      brain.Status `json:"status"`
}

// CommitInfo is one commit-index entry.
type CommitInfo struct {
	Hash    string `json:"hash"`
	Entity  string `json:"entity"`
	Version int64  `json:"version"`
}

// resolveRef resolves a version reference against one entity's ledger.
// The grammar: empty means the active version, decimal digits a version
// number, and "#"-prefixed (or bare 64-char) hex a commit hash.
func resolveRef(doc *brain.Document, e *brain.Entity, ref string) (*brain.Version, error) {
	switch {
	case ref == "":
		v := e.Active()
		if v == nil {
			return nil, brain.NewNotFound("entity has no active version")
		}
		return v, nil

	case isDigits(ref):
		n, err := strconv.ParseInt(ref, 10, 64)
		if err != nil {
			return nil, brain.NewValidation("version number %q does not parse", ref)
		}
		return e.Version(n)

	default:
		hash := strings.TrimPrefix(ref, "#")
		if !isCommitHash(hash) {
			return nil, brain.NewValidation("ref %q is neither a version number nor a commit hash", ref)
		}
		for _, v := range e.Versions {
			if v.Commit == hash {
				return v, nil
			}
		}
		// The index may know where the commit landed, even if not here.
		if entry, ok := doc.FindCommit(hash); ok {
			return nil, brain.NewNotFound("commit %s belongs to entity %q, not this one", hash, entry.Entity).
				WithProject(entry.Project).WithEntity(entry.Entity).WithVersion(entry.Version)
		}
		return nil, brain.NewNotFound("commit %s not found", hash)
	}
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

func isCommitHash(s string) bool {
	if len(s) != 64 {
		return false
	}
	for _, r := range s {
		switch {
		case r >= '0' && r <= '9', r >= 'a' && r <= 'f':
		default:
			return false
		}
	}
	return true
}

// ResolveVersion resolves ref against an entity and returns the full
// version, payload included.
func (r *Repository) ResolveVersion(project, entity, ref string) (*VersionView, error) {
	project, err := NormalizeSlug(project)
	if err != nil {
		return nil, err
	}
	entity, err = NormalizePath(entity)
	if err != nil {
		return nil, err
	}

	doc, err := r.loadActive()
	if err != nil {
		return nil, err
	}
	p, err := doc.Project(project)
	if err != nil {
		return nil, err
	}
	e, err := p.Entity(entity)
	if err != nil {
		return nil, err
	}
	v, err := resolveRef(doc, e, ref)
	if err != nil {
		return nil, wrapBrainErr(err, doc.Meta.Slug, project, entity)
	}
	return &VersionView{
		Project:     project,
		Entity:      entity,
		Version:     v.Version,
		Hash:        v.Hash,
		Commit:      v.Commit,
		CommittedAt: v.CommittedAt,
		Status:      v.Status,
		Payload:     canon.ToAny(v.Payload),
	}, nil
}

// RestoreVersion reactivates an inactive or archived version as the new
// active version. No new version number is created.
func (r *Repository) RestoreVersion(project, entity, ref string) (*VersionView, error) {
	project, err := NormalizeSlug(project)
	if err != nil {
		return nil, err
	}
	entity, err = NormalizePath(entity)
	if err != nil {
		return nil, err
	}

	var view VersionView
	err = r.mutateActive(func(doc *brain.Document) ([]Event, error) {
		p, err := doc.Project(project)
		if err != nil {
			return nil, err
		}
		e, err := p.Entity(entity)
		if err != nil {
			return nil, err
		}
		v, err := resolveRef(doc, e, ref)
		if err != nil {
			return nil, wrapBrainErr(err, doc.Meta.Slug, project, entity)
		}
		if err := e.Restore(v.Version); err != nil {
			return nil, wrapBrainErr(err, doc.Meta.Slug, project, entity)
		}
		p.UpdatedAt = r.clock()

		view = VersionView{
			Project:     project,
			Entity:      entity,
			Version:     v.Version,
			Hash:        v.Hash,
			Commit:      v.Commit,
			CommittedAt: v.CommittedAt,
			Status:      v.Status,
			Payload:     canon.ToAny(v.Payload),
		}
		return []Event{EntityRestored{
			Brain:   doc.Meta.Slug,
			Project: project,
			Entity:  entity,
			Version: v.Version,
		}}, nil
	})
	if err != nil {
		return nil, err
	}
	return &view, nil
}

// ListVersions returns metadata for every version of an entity in
// ascending version order.
func (r *Repository) ListVersions(project, entity string) ([]VersionInfo, error) {
	project, err := NormalizeSlug(project)
	if err != nil {
		return nil, err
	}
	entity, err = NormalizePath(entity)
	if err != nil {
		return nil, err
	}

	doc, err := r.loadActive()
	if err != nil {
		return nil, err
	}
	p, err := doc.Project(project)
	if err != nil {
		return nil, err
	}
	e, err := p.Entity(entity)
	if err != nil {
		return nil, err
	}

	infos := make([]VersionInfo, 0, len(e.Versions))
	for _, n := range e.SortedVersions() {
		v := e.Versions[n]
		infos = append(infos, VersionInfo{
			Version:     v.Version,
			Hash:        v.Hash,
			Commit:      v.Commit,
			CommittedAt: v.CommittedAt,
			Status:      v.Status,
		})
	}
	return infos, nil
}

// ListCommits returns commit-index entries for a project, optionally
// filtered to one entity's path or subtree, newest versions first.
// limit <= 0 means unlimited.
func (r *Repository) ListCommits(project, entityFilter string, limit int) ([]CommitInfo, error) {
	project, err := NormalizeSlug(project)
	if err != nil {
		return nil, err
	}
	if entityFilter != "" {
		if entityFilter, err = NormalizePath(entityFilter); err != nil {
			return nil, err
		}
	}

	doc, err := r.loadActive()
	if err != nil {
		return nil, err
	}
	if _, err := doc.Project(project); err != nil {
		return nil, err
	}

	var infos []CommitInfo
	for hash, entry := range doc.Commits {
		if entry.Project != project {
			continue
		}
		if entityFilter != "" && entry.Entity != entityFilter && !brain.IsDescendant(entry.Entity, entityFilter) {
			continue
		}
		infos = append(infos, CommitInfo{Hash: hash, Entity: entry.Entity, Version: entry.Version})
	}
	sort.Slice(infos, func(i, j int) bool {
		if infos[i].Entity != infos[j].Entity {
			return infos[i].Entity < infos[j].Entity
		}
		return infos[i].Version > infos[j].Version
	})
	if limit > 0 && len(infos) > limit {
		infos = infos[:limit]
	}
	return infos, nil
}
