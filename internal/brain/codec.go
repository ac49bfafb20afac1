package brain

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/pindral/brainstore/internal/canon"
)

// The on-disk document is the canonical encoding of the structure built
// here: every map key-sorted, list order preserved, timestamps RFC 3339
// UTC strings. Because the bytes are canonical, re-encoding an unchanged
// document is byte-identical, which is what makes write verification and
// golden tests meaningful.

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(s string) (time.Time, error) {
	return time.Parse(time.RFC3339Nano, s)
}

// Encode serializes the document to its canonical on-disk bytes.
func (d *Document) Encode() ([]byte, error) {
	projects := map[string]any{}
	for slug, p := range d.Projects {
		projects[slug] = encodeProject(p)
	}

	commits := map[string]any{}
	for hash, entry := range d.Commits {
		commits[hash] = map[string]any{
			"project": entry.Project,
			"entity":  entry.Entity,
			"version": entry.Version,
		}
	}

	doc := map[string]any{
		"meta": map[string]any{
			"slug":           d.Meta.Slug,
			"uuid":           d.Meta.UUID,
			"schema_version": int64(d.Meta.SchemaVersion),
			"created_at":     formatTime(d.Meta.CreatedAt),
			"updated_at":     formatTime(d.Meta.UpdatedAt),
		},
		"projects": projects,
		"commits":  commits,
	}

	data, err := canon.Marshal(doc)
	if err != nil {
		return nil, NewValidation("document not canonically encodable").WithCause(err)
	}
	return data, nil
}

func encodeProject(p *Project) map[string]any {
	entities := map[string]any{}
	for path, e := range p.Entities {
		entities[path] = encodeEntity(e)
	}

	out := map[string]any{
		"slug":        p.Slug,
		"title":       p.Title,
		"description": p.Description,
		"created_at":  formatTime(p.CreatedAt),
		"updated_at":  formatTime(p.UpdatedAt),
		"entities":    entities,
	}
	if p.Archived {
		out["archived"] = true
	}
	return out
}

func encodeEntity(e *Entity) map[string]any {
	versions := map[string]any{}
	for n, v := range e.Versions {
		versions[strconv.FormatInt(n, 10)] = map[string]any{
			"version":      v.Version,
			"hash":         v.Hash,
			"commit":       v.Commit,
			"committed_at": formatTime(v.CommittedAt),
			"status":       string(v.Status),
			"payload":      v.Payload,
		}
	}

	out := map[string]any{
		"versions":     versions,
		"last_version": e.LastVersion,
	}
	if e.ActiveVersion > 0 {
		out["active_version"] = e.ActiveVersion
	} else {
		out["active_version"] = nil
	}
	if e.Schema != nil {
		schema := map[string]any{"slug": e.Schema.Slug}
		if e.Schema.Ref != "" {
			schema["ref"] = e.Schema.Ref
		}
		out["schema"] = schema
	}
	return out
}

// Raw mirror structs for decoding. Payloads stay as json.RawMessage
// until canon.Decode gives them their typed form.

type rawDocument struct {
	Meta     rawMeta               `json:"meta"`
	Projects map[string]rawProject `json:"projects"`
	Commits  map[string]rawCommit  `json:"commits"`
}

type rawMeta struct {
	Slug          string `json:"slug"`
	UUID          string `json:"uuid"`
	SchemaVersion int    `json:"schema_version"`
	CreatedAt     string `json:"created_at"`
	UpdatedAt     string `json:"updated_at"`
}

type rawProject struct {
	Slug        string               `json:"slug"`
	Title       string               `json:"title"`
	Description string               `json:"description"`
	CreatedAt   string               `json:"created_at"`
	UpdatedAt   string               `json:"updated_at"`
	Archived    bool                 `json:"archived"`
	Entities    map[string]rawEntity `json:"entities"`
}

type rawEntity struct {
	ActiveVersion *int64                `json:"active_version"`
	LastVersion   *int64                `json:"last_version"`
	Versions      map[string]rawVersion `json:"versions"`
	Schema        *rawSchemaRef         `json:"schema"`
}

type rawSchemaRef struct {
	Slug string `json:"slug"`
	Ref  string `json:"ref"`
}

type rawVersion struct {
	Version     int64           `json:"version"`
	Hash        string          `json:"hash"`
	Commit      string          `json:"commit"`
	CommittedAt string          `json:"committed_at"`
	Status      string          `json:"status"`
	Payload     json.RawMessage `json:"payload"`
}

type rawCommit struct {
	Project string `json:"project"`
	Entity  string `json:"entity"`
	Version int64  `json:"version"`
}

// Decode parses on-disk bytes back into a Document.
func Decode(data []byte) (*Document, error) {
	var raw rawDocument
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, NewValidation("malformed brain document").WithCause(err)
	}

	createdAt, err := parseTime(raw.Meta.CreatedAt)
	if err != nil {
		return nil, NewValidation("meta.created_at: %v", err)
	}
	updatedAt, err := parseTime(raw.Meta.UpdatedAt)
	if err != nil {
		return nil, NewValidation("meta.updated_at: %v", err)
	}

	doc := &Document{
		Meta: Meta{
			Slug:          raw.Meta.Slug,
			UUID:          raw.Meta.UUID,
			SchemaVersion: raw.Meta.SchemaVersion,
			CreatedAt:     createdAt,
			UpdatedAt:     updatedAt,
		},
		Projects: make(map[string]*Project, len(raw.Projects)),
		Commits:  make(CommitIndex, len(raw.Commits)),
	}

	for slug, rp := range raw.Projects {
		p, err := decodeProject(slug, rp)
		if err != nil {
			return nil, err
		}
		doc.Projects[slug] = p
	}

	for hash, rc := range raw.Commits {
		doc.Commits[hash] = CommitEntry{
			Project: rc.Project,
			Entity:  rc.Entity,
			Version: rc.Version,
		}
	}

	return doc, nil
}

func decodeProject(slug string, raw rawProject) (*Project, error) {
	createdAt, err := parseTime(raw.CreatedAt)
	if err != nil {
		return nil, NewValidation("project %q created_at: %v", slug, err).WithProject(slug)
	}
	updatedAt, err := parseTime(raw.UpdatedAt)
	if err != nil {
		return nil, NewValidation("project %q updated_at: %v", slug, err).WithProject(slug)
	}

	p := &Project{
		Slug:        raw.Slug,
		Title:       raw.Title,
		Description: raw.Description,
		CreatedAt:   createdAt,
		UpdatedAt:   updatedAt,
		Archived:    raw.Archived,
		Entities:    make(map[string]*Entity, len(raw.Entities)),
	}

	for path, re := range raw.Entities {
		e, err := decodeEntity(slug, path, re)
		if err != nil {
			return nil, err
		}
		p.Entities[path] = e
	}

	return p, nil
}

func decodeEntity(project, path string, raw rawEntity) (*Entity, error) {
	e := NewEntity()
	if raw.ActiveVersion != nil {
		e.ActiveVersion = *raw.ActiveVersion
	}
	if raw.Schema != nil {
		e.Schema = &SchemaRef{Slug: raw.Schema.Slug, Ref: raw.Schema.Ref}
	}

	for key, rv := range raw.Versions {
		n, err := strconv.ParseInt(key, 10, 64)
		if err != nil {
			return nil, NewValidation("entity %q: version key %q is not a number", path, key).
				WithProject(project).WithEntity(path)
		}
		if n != rv.Version {
			return nil, NewValidation("entity %q: version key %d disagrees with record %d", path, n, rv.Version).
				WithProject(project).WithEntity(path)
		}

		committedAt, err := parseTime(rv.CommittedAt)
		if err != nil {
			return nil, NewValidation("entity %q version %d committed_at: %v", path, n, err).
				WithProject(project).WithEntity(path).WithVersion(n)
		}

		// Impossible statuses (including the terminal "deleted") are kept
		// as-is rather than rejected, so a hand-edited file still loads
		// and repair can demote the record.
		status := Status(rv.Status)

		payload, err := canon.Decode(rv.Payload)
		if err != nil {
			return nil, NewValidation("entity %q version %d: malformed payload", path, n).
				WithProject(project).WithEntity(path).WithVersion(n).WithCause(err)
		}

		e.Versions[n] = &Version{
			Version:     n,
			Hash:        rv.Hash,
			Commit:      rv.Commit,
			CommittedAt: committedAt,
			Status:      status,
			Payload:     payload,
		}
	}

	if raw.LastVersion != nil {
		e.LastVersion = *raw.LastVersion
	} else {
		// Files written before the high-water mark existed: derive it
		// from the surviving records.
		for n := range e.Versions {
			if n > e.LastVersion {
				e.LastVersion = n
			}
		}
	}

	return e, nil
}

// Clone deep-copies the document by an encode/decode round trip.
// Used where a mutation must be attempted without touching the original.
func (d *Document) Clone() (*Document, error) {
	data, err := d.Encode()
	if err != nil {
		return nil, fmt.Errorf("clone: %w", err)
	}
	return Decode(data)
}
