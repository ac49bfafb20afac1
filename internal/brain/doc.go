// Package brain defines the persisted data model for brainstore.
//
// A brain is one persisted namespace: metadata, a set of projects, and a
// derived commit index. Projects hold path-addressed entities; entities
// hold an ordered ledger of immutable versions. Exactly one version per
// entity is active at any time (or none, before the first save).
//
// Hierarchy is expressed through string paths ("characters/heroes/aria"),
// never through object pointers, so entity trees cannot form ownership
// cycles. The commit index maps commit hashes to (project, entity,
// version) triplets; it is never authoritative and can always be rebuilt
// by replaying every entity's version ledger.
//
// The package contains types, the version lifecycle state machine, and
// the codec between the in-memory document and its canonical on-disk
// bytes. Orchestration lives in internal/repo; file I/O in
// internal/storage.
package brain
