package repo

import (
	"fmt"
	"sort"

	"github.com/pindral/brainstore/internal/brain"
)

// PurgedVersion identifies one version removed (or slated for removal)
// by a purge.
type PurgedVersion struct {
	Entity  string `json:"entity"`
	Version int64  `json:"version"`
	Commit  string `json:"commit,omitempty"`
}

// PurgeReport summarizes a purge run.
type PurgeReport struct {
	Project string          `json:"project"`
	DryRun  bool            `json:"dry_run,omitempty"`
	Purged  []PurgedVersion `json:"purged"`
}

// CompactReport summarizes a compact run.
type CompactReport struct {
	Project      string `json:"project"`
	IndexEntries int    `json:"index_entries"`
	RemovedStale int    `json:"removed_stale"`
	AddedMissing int    `json:"added_missing"`
}

// RepairFinding is one inconsistency detected by repair.
type RepairFinding struct {
	Entity string `json:"entity"`
	Issue  string `json:"issue"`
	Action string `json:"action"`
}

// RepairReport summarizes a repair run.
type RepairReport struct {
	Project  string          `json:"project"`
	DryRun   bool            `json:"dry_run,omitempty"`
	Findings []RepairFinding `json:"findings"`
}

// PurgeInactiveVersions irreversibly deletes non-active versions beyond
// a retention count. For each matching entity the newest keepNewest
// non-active versions survive; older ones are deleted from the ledger
// and their commit entries purged. Active versions are never touched.
// With dryRun the report lists the would-be deletions without mutating.
func (r *Repository) PurgeInactiveVersions(project, entityFilter string, keepNewest int, dryRun bool) (*PurgeReport, error) {
	project, err := NormalizeSlug(project)
	if err != nil {
		return nil, err
	}
	if entityFilter != "" {
		if entityFilter, err = NormalizePath(entityFilter); err != nil {
			return nil, err
		}
	}
	if keepNewest < 0 {
		return nil, brain.NewValidation("keepNewest must not be negative")
	}

	report := &PurgeReport{Project: project, DryRun: dryRun, Purged: []PurgedVersion{}}

	if dryRun {
		doc, err := r.loadActive()
		if err != nil {
			return nil, err
		}
		p, err := doc.Project(project)
		if err != nil {
			return nil, err
		}
		report.Purged = planPurge(p, entityFilter, keepNewest)
		return report, nil
	}

	err = r.mutateActive(func(doc *brain.Document) ([]Event, error) {
		p, err := doc.Project(project)
		if err != nil {
			return nil, err
		}
		report.Purged = planPurge(p, entityFilter, keepNewest)
		for _, pv := range report.Purged {
			e := p.Entities[pv.Entity]
			if _, err := e.Delete(pv.Version); err != nil {
				return nil, err
			}
			if pv.Commit != "" {
				doc.Commits.Remove(pv.Commit)
			}
		}
		p.UpdatedAt = r.clock()
		return []Event{CleanupCompleted{
			Brain:    doc.Meta.Slug,
			Project:  project,
			Op:       "purge",
			Affected: len(report.Purged),
		}}, nil
	})
	if err != nil {
		return nil, err
	}
	return report, nil
}

// planPurge lists the non-active versions beyond the retention count,
// oldest first per entity, entities in path order.
func planPurge(p *brain.Project, entityFilter string, keepNewest int) []PurgedVersion {
	paths := make([]string, 0, len(p.Entities))
	for path := range p.Entities {
		if entityFilter != "" && path != entityFilter && !brain.IsDescendant(path, entityFilter) {
			continue
		}
		paths = append(paths, path)
	}
	sort.Strings(paths)

	var out []PurgedVersion
	for _, path := range paths {
		e := p.Entities[path]
		var inactive []int64
		for _, n := range e.SortedVersions() {
			if e.Versions[n].Status != brain.StatusActive {
				inactive = append(inactive, n)
			}
		}
		if len(inactive) <= keepNewest {
			continue
		}
		for _, n := range inactive[:len(inactive)-keepNewest] {
			out = append(out, PurgedVersion{
				Entity:  path,
				Version: n,
				Commit:  e.Versions[n].Commit,
			})
		}
	}
	return out
}

// Compact rebuilds the commit index from the version ledgers, dropping
// stale entries and registering missing ones. Version content and hashes
// are never touched; canonical encoding already normalizes on-disk
// ordering on the following persist.
func (r *Repository) Compact(project string) (*CompactReport, error) {
	project, err := NormalizeSlug(project)
	if err != nil {
		return nil, err
	}

	report := &CompactReport{Project: project}
	err = r.mutateActive(func(doc *brain.Document) ([]Event, error) {
		if _, err := doc.Project(project); err != nil {
			return nil, err
		}

		rebuilt := doc.RebuildCommits()
		for hash := range doc.Commits {
			if _, ok := rebuilt[hash]; !ok {
				report.RemovedStale++
			}
		}
		for hash := range rebuilt {
			if _, ok := doc.Commits[hash]; !ok {
				report.AddedMissing++
			}
		}
		doc.Commits = rebuilt
		report.IndexEntries = len(rebuilt)

		return []Event{CleanupCompleted{
			Brain:    doc.Meta.Slug,
			Project:  project,
			Op:       "compact",
			Affected: report.RemovedStale + report.AddedMissing,
		}}, nil
	})
	if err != nil {
		return nil, err
	}
	return report, nil
}

// Repair detects and fixes inconsistent entity metadata: dangling
// active-version pointers, several versions claiming active at once,
// impossible statuses, and missing commit timestamps. With dryRun the
// findings are reported without mutating.
func (r *Repository) Repair(project string, dryRun bool) (*RepairReport, error) {
	project, err := NormalizeSlug(project)
	if err != nil {
		return nil, err
	}

	report := &RepairReport{Project: project, DryRun: dryRun, Findings: []RepairFinding{}}

	if dryRun {
		doc, err := r.loadActive()
		if err != nil {
			return nil, err
		}
		p, err := doc.Project(project)
		if err != nil {
			return nil, err
		}
		report.Findings = repairProject(p, r, false)
		return report, nil
	}

	err = r.mutateActive(func(doc *brain.Document) ([]Event, error) {
		p, err := doc.Project(project)
		if err != nil {
			return nil, err
		}
		report.Findings = repairProject(p, r, true)
		if len(report.Findings) == 0 {
			// Nothing to fix; persisting is harmless and keeps the
			// transaction shape uniform.
			return nil, nil
		}
		p.UpdatedAt = r.clock()
		return []Event{CleanupCompleted{
			Brain:    doc.Meta.Slug,
			Project:  project,
			Op:       "repair",
			Affected: len(report.Findings),
		}}, nil
	})
	if err != nil {
		return nil, err
	}
	return report, nil
}

// repairProject scans every entity and, when apply is set, fixes what it
// finds. The scan order is deterministic so dry-run and apply agree.
func repairProject(p *brain.Project, r *Repository, apply bool) []RepairFinding {
	paths := make([]string, 0, len(p.Entities))
	for path := range p.Entities {
		paths = append(paths, path)
	}
	sort.Strings(paths)

	var findings []RepairFinding
	for _, path := range paths {
		e := p.Entities[path]

		for _, n := range e.SortedVersions() {
			v := e.Versions[n]
			if !brain.ValidStatus(v.Status) {
				findings = append(findings, RepairFinding{
					Entity: path,
					Issue:  fmt.Sprintf("version %d carries impossible status %q", n, v.Status),
					Action: "demoted to inactive",
				})
				if apply {
					v.Status = brain.StatusInactive
				}
			}
			if v.CommittedAt.IsZero() {
				findings = append(findings, RepairFinding{
					Entity: path,
					Issue:  fmt.Sprintf("version %d has no commit timestamp", n),
					Action: "stamped with current time",
				})
				if apply {
					v.CommittedAt = r.clock()
				}
			}
		}

		if nums := e.SortedVersions(); len(nums) > 0 && e.LastVersion < nums[len(nums)-1] {
			top := nums[len(nums)-1]
			findings = append(findings, RepairFinding{
				Entity: path,
				Issue:  fmt.Sprintf("version counter %d is below newest record %d", e.LastVersion, top),
				Action: "counter raised",
			})
			if apply {
				e.LastVersion = top
			}
		}

		if e.ActiveVersion != 0 {
			if _, ok := e.Versions[e.ActiveVersion]; !ok {
				findings = append(findings, RepairFinding{
					Entity: path,
					Issue:  fmt.Sprintf("active-version pointer %d has no record", e.ActiveVersion),
					Action: "pointer cleared",
				})
				if apply {
					e.ActiveVersion = 0
				}
			}
		}

		// Several versions claiming active: the newest keeps the claim.
		actives := activesOf(e)
		if len(actives) > 1 {
			keep := actives[len(actives)-1]
			findings = append(findings, RepairFinding{
				Entity: path,
				Issue:  fmt.Sprintf("%d versions claim active at once", len(actives)),
				Action: fmt.Sprintf("version %d kept active, others demoted", keep),
			})
			if apply {
				for _, n := range actives[:len(actives)-1] {
					e.Versions[n].Status = brain.StatusInactive
				}
				e.ActiveVersion = keep
			}
		}

		// Pointer and status disagree: the pointer wins when nothing else
		// is active, otherwise it follows the active record.
		if e.ActiveVersion != 0 {
			if v, ok := e.Versions[e.ActiveVersion]; ok && v.Status != brain.StatusActive && len(actives) == 0 {
				// The record's status is not named in the finding: in apply
				// mode an impossible status was already demoted above, and
				// the dry-run report must read the same.
				findings = append(findings, RepairFinding{
					Entity: path,
					Issue:  fmt.Sprintf("active-version pointer %d targets a non-active record", e.ActiveVersion),
					Action: "record promoted to active",
				})
				if apply {
					v.Status = brain.StatusActive
				}
			}
		} else if len(actives) == 1 {
			findings = append(findings, RepairFinding{
				Entity: path,
				Issue:  fmt.Sprintf("version %d is active but the pointer is unset", actives[0]),
				Action: "pointer restored",
			})
			if apply {
				e.ActiveVersion = actives[0]
			}
		}
	}
	return findings
}

// activesOf returns version numbers carrying StatusActive, ascending.
func activesOf(e *brain.Entity) []int64 {
	var out []int64
	for _, n := range e.SortedVersions() {
		if e.Versions[n].Status == brain.StatusActive {
			out = append(out, n)
		}
	}
	return out
}
