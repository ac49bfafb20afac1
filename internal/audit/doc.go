// Package audit persists store events to an append-only SQLite log.
//
// The log is an observer, never an authority: losing it loses history,
// not data. It subscribes to the repository's event bus and records one
// row per event with its location fields plus a JSON detail blob.
package audit
