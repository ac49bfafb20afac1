// Package storage provides durable file storage for brain documents.
//
// The package implements the write-verify-swap primitive: every persisted
// file is written to a temporary sibling, flushed, atomically renamed
// over the target, then re-read and hash-checked. A reader opening the
// target at any point observes either the previous fully-written content
// or the new fully-written content, never a partial write.
//
// Writes to the same brain are serialized by a blocking flock(2) on a
// sibling .lock file, held by the caller for the whole load-mutate-persist
// cycle. Readers take no lock: the rename semantics guarantee a
// stale-but-never-partial snapshot.
package storage
