package brain

import (
	"sort"
)

// NewEntity creates an empty entity with no versions.
func NewEntity() *Entity {
	return &Entity{Versions: map[int64]*Version{}}
}

// Active returns the entity's active version, or nil if none.
func (e *Entity) Active() *Version {
	if e.ActiveVersion == 0 {
		return nil
	}
	return e.Versions[e.ActiveVersion]
}

// Version returns the numbered version or a NotFound error.
func (e *Entity) Version(n int64) (*Version, error) {
	v, ok := e.Versions[n]
	if !ok {
		return nil, NewNotFound("version %d not found", n).WithVersion(n)
	}
	return v, nil
}

// NextVersion returns the next version number: one past the high-water
// mark. The mark survives deletion of the newest version, so a number
// handed out once is never handed out again. Surviving records above
// the mark (possible only after hand edits) still push it forward.
func (e *Entity) NextVersion() int64 {
	next := e.LastVersion
	for n := range e.Versions {
		if n > next {
			next = n
		}
	}
	return next + 1
}

// SortedVersions returns version numbers in ascending order.
func (e *Entity) SortedVersions() []int64 {
	nums := make([]int64, 0, len(e.Versions))
	for n := range e.Versions {
		nums = append(nums, n)
	}
	sort.Slice(nums, func(i, j int) bool { return nums[i] < nums[j] })
	return nums
}

// Append adds v as the new active version, demoting the current active
// version (if any) to inactive. The two transitions are one logical step;
// the caller persists the whole document as one transaction.
func (e *Entity) Append(v *Version) error {
	if _, exists := e.Versions[v.Version]; exists {
		return NewConflict("version %d already exists", v.Version).WithVersion(v.Version)
	}
	if prev := e.Active(); prev != nil {
		prev.Status = StatusInactive
	}
	v.Status = StatusActive
	e.Versions[v.Version] = v
	e.ActiveVersion = v.Version
	if v.Version > e.LastVersion {
		e.LastVersion = v.Version
	}
	return nil
}

// Restore reactivates a previously inactive or archived version as the
// new active version. No new version number is created.
func (e *Entity) Restore(n int64) error {
	target, err := e.Version(n)
	if err != nil {
		return err
	}
	if target.Status == StatusActive {
		return NewConflict("version %d is already active", n).WithVersion(n)
	}
	if prev := e.Active(); prev != nil {
		prev.Status = StatusInactive
	}
	target.Status = StatusActive
	e.ActiveVersion = n
	return nil
}

// Deactivate demotes the active version (if any) to the given status.
// Used by soft removal (inactive) and archival (archived).
func (e *Entity) Deactivate(to Status) {
	if v := e.Active(); v != nil {
		v.Status = to
	}
	e.ActiveVersion = 0
}

// Delete removes a version from the ledger entirely. Deleted is terminal:
// the record is gone and its number is never reused. Returns the removed
// version so the caller can prune its commit-index entry.
func (e *Entity) Delete(n int64) (*Version, error) {
	v, err := e.Version(n)
	if err != nil {
		return nil, err
	}
	delete(e.Versions, n)
	if e.ActiveVersion == n {
		e.ActiveVersion = 0
	}
	return v, nil
}

// ActiveCount returns the number of versions carrying StatusActive.
// For a consistent entity this is 0 or 1; repair uses it to detect drift.
func (e *Entity) ActiveCount() int {
	count := 0
	for _, v := range e.Versions {
		if v.Status == StatusActive {
			count++
		}
	}
	return count
}
