// Package canon provides the canonical value representation for brainstore.
//
// This package contains the payload value types and their canonical
// serialization. All other internal packages import canon; canon imports
// nothing internal. This ensures the encoder remains the foundational
// layer with no circular dependencies.
//
// Key design constraints:
//   - Object keys are sorted by byte order of the exact key string
//   - Array element order is preserved verbatim
//   - Integers and floats never share an encoding (integral floats carry ".0")
//   - NaN and infinities are rejected
//   - All JSON tags use snake_case
//
// Canonical bytes are the sole input to content and commit hashing, so
// semantically identical payloads always hash identically regardless of
// the key insertion order they were built with.
package canon
