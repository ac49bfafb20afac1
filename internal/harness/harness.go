package harness

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/pindral/brainstore/internal/brain"
	"github.com/pindral/brainstore/internal/repo"
	"github.com/pindral/brainstore/internal/storage"
)

// Frozen inputs: every timestamp and the brain uuid are constant, so a
// scenario always produces byte-identical documents.
var (
	frozenTime = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	frozenUUID = "00000000-0000-4000-8000-000000000001"
)

// Runner executes scenarios against a throwaway store.
type Runner struct {
	baseDir string
}

// NewRunner creates a runner storing brains under baseDir, which the
// caller owns (typically t.TempDir()).
func NewRunner(baseDir string) *Runner {
	return &Runner{baseDir: baseDir}
}

// Run executes every step of a scenario and returns the trace plus the
// final canonical document.
func (r *Runner) Run(scenario *Scenario) (*Result, error) {
	layout, err := storage.NewLayout(r.baseDir)
	if err != nil {
		return nil, err
	}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	store, err := repo.New(layout,
		repo.WithLogger(logger),
		repo.WithClock(func() time.Time { return frozenTime }),
		repo.WithIDSource(func() string { return frozenUUID }),
	)
	if err != nil {
		return nil, err
	}

	result := &Result{Pass: true, Trace: []TraceEvent{}}
	r.subscribe(store, result)

	if err := store.EnsureBrain(scenario.Brain); err != nil {
		return nil, err
	}
	if err := store.Use(scenario.Brain); err != nil {
		return nil, err
	}

	for i, step := range scenario.Steps {
		version, stepErr := r.execute(store, step)
		r.check(result, i, step, version, stepErr)
	}

	doc, err := storage.Load(layout.BrainPath(scenario.Brain))
	if err != nil {
		return nil, err
	}
	result.Document = doc
	return result, nil
}

// execute dispatches one step to the repository. For save and restore
// steps the committed version number is returned alongside the error.
func (r *Runner) execute(store *repo.Repository, step Step) (int64, error) {
	switch step.Op {
	case "save":
		opts := repo.SaveOptions{Parent: step.Parent}
		if step.Schema != "" {
			slug, ref := splitSchemaSelector(step.Schema)
			opts.Schema = &brain.SchemaRef{Slug: slug, Ref: ref}
		}
		var payload any
		if step.Payload != nil {
			payload = step.Payload
		}
		res, err := store.SaveEntity(step.Project, step.Entity, payload, opts)
		if err != nil {
			return 0, err
		}
		return res.Version, nil

	case "move":
		mode := repo.MoveMerge
		if step.Mode == "replace" {
			mode = repo.MoveReplace
		}
		return 0, store.MoveEntity(step.Project, step.Entity, step.Target, mode)

	case "remove":
		return 0, store.RemoveEntity(step.Project, []string{step.Entity}, step.Recursive)

	case "delete":
		return 0, store.DeleteEntity(step.Project, []string{step.Entity}, step.Recursive)

	case "restore":
		v, err := store.RestoreVersion(step.Project, step.Entity, step.Ref)
		if err != nil {
			return 0, err
		}
		return v.Version, nil

	case "create_project":
		return 0, store.CreateProject(step.Project, step.Title, step.Description)

	case "update_project":
		upd := repo.ProjectUpdate{}
		if step.Title != "" {
			upd.Title = &step.Title
		}
		if step.Description != "" {
			upd.Description = &step.Description
		}
		return 0, store.UpdateProject(step.Project, upd)

	case "archive_project":
		return 0, store.ArchiveProject(step.Project)

	case "restore_project":
		return 0, store.RestoreProject(step.Project, step.Reactivate)

	case "delete_project":
		return 0, store.DeleteProject(step.Project, true)

	case "purge":
		_, err := store.PurgeInactiveVersions(step.Project, step.Entity, step.Keep, step.DryRun)
		return 0, err

	case "compact":
		_, err := store.Compact(step.Project)
		return 0, err

	case "repair":
		_, err := store.Repair(step.Project, step.DryRun)
		return 0, err

	default:
		return 0, fmt.Errorf("unknown op %q", step.Op)
	}
}

// check validates a step's outcome against its expectation.
func (r *Runner) check(result *Result, index int, step Step, version int64, err error) {
	expectedKind := ""
	expectedVersion := int64(0)
	if step.Expect != nil {
		expectedKind = step.Expect.Error
		expectedVersion = step.Expect.Version
	}

	if expectedKind == "" {
		if err != nil {
			result.AddError(fmt.Sprintf("step %d (%s): unexpected error: %v", index+1, step.Op, err))
			return
		}
		if expectedVersion != 0 && version != expectedVersion {
			result.AddError(fmt.Sprintf("step %d (%s): expected version %d, got %d", index+1, step.Op, expectedVersion, version))
		}
		return
	}

	if err == nil {
		result.AddError(fmt.Sprintf("step %d (%s): expected %s error, got success", index+1, step.Op, expectedKind))
		return
	}
	var be *brain.Error
	if !errors.As(err, &be) || string(be.Kind) != expectedKind {
		result.AddError(fmt.Sprintf("step %d (%s): expected %s error, got: %v", index+1, step.Op, expectedKind, err))
	}
}

// subscribe records every domain event in the trace. Write events are
// skipped: their file paths vary by machine.
func (r *Runner) subscribe(store *repo.Repository, result *Result) {
	names := []string{
		repo.EventEntitySaved,
		repo.EventEntityDeleted,
		repo.EventEntityRestored,
		repo.EventProjectUpdated,
		repo.EventProjectDeleted,
		repo.EventCleanupCompleted,
	}
	for _, name := range names {
		store.Events().Subscribe(name, func(e repo.Event) {
			result.Trace = append(result.Trace, traceOf(e))
		})
	}
}

// traceOf flattens an event for the snapshot.
func traceOf(e repo.Event) TraceEvent {
	te := TraceEvent{Name: e.EventName()}
	switch ev := e.(type) {
	case repo.EntitySaved:
		te.Project, te.Entity, te.Version = ev.Project, ev.Entity, ev.Version
	case repo.EntityDeleted:
		te.Project = ev.Project
		te.Detail = strings.Join(ev.Entities, ",")
		if ev.Hard {
			te.Detail += " (hard)"
		}
	case repo.EntityRestored:
		te.Project, te.Entity, te.Version = ev.Project, ev.Entity, ev.Version
	case repo.ProjectUpdated:
		te.Project, te.Detail = ev.Project, ev.Action
	case repo.ProjectDeleted:
		te.Project = ev.Project
		te.Detail = fmt.Sprintf("purged %d commits", ev.PurgedCommits)
	case repo.CleanupCompleted:
		te.Project = ev.Project
		te.Detail = fmt.Sprintf("%s affected %d", ev.Op, ev.Affected)
	}
	return te
}

// splitSchemaSelector splits "schemas/character@2" into slug and ref.
func splitSchemaSelector(selector string) (slug, ref string) {
	if i := strings.LastIndex(selector, "#"); i >= 0 {
		return selector[:i], "#" + selector[i+1:]
	}
	if i := strings.LastIndex(selector, "@"); i >= 0 {
		return selector[:i], selector[i+1:]
	}
	return selector, ""
}
