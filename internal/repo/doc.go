// Package repo orchestrates all operations against brain documents.
//
// Every public operation is one logical transaction: acquire the brain's
// file lock, load the document fully into memory, mutate it, re-encode
// canonically, persist through the atomic writer, then publish events.
// The in-memory document is owned by the call that loaded it and is
// discarded afterwards; no mutable state is cached across calls.
//
// A failed persist leaves no partial effect: the mutated document is
// simply dropped and the previous file content stays in place.
//
// Lifecycle events are published on a synchronous bus in subscriber
// registration order. A panicking subscriber is isolated: it cannot
// corrupt the transaction that triggered it.
package repo
