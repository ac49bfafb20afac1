package canon

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Domain prefixes for content-addressed identity.
// Version suffix enables future algorithm migration.
const (
	DomainContent = "brainstore/content/v1"
	DomainCommit  = "brainstore/commit/v1"
)

// hashWithDomain computes SHA-256 hash with domain separation.
// Format: SHA256(domain + 0x00 + data)
// The null byte separator prevents domain/data boundary ambiguity.
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// SumBytes returns the plain SHA-256 hex digest of raw bytes.
// Used by the atomic writer to verify persisted files, where the bytes
// themselves (not a structured value) are the identity.
func SumBytes(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// ContentHash computes the content-addressed hash of a payload value.
// The hash is stable across restarts and key insertion orders.
func ContentHash(v Value) (string, error) {
	canonical, err := Marshal(v)
	if err != nil {
		return "", fmt.Errorf("ContentHash: failed to marshal: %w", err)
	}
	return hashWithDomain(DomainContent, canonical), nil
}

// CommitHash computes the content-addressed hash of a commit envelope:
// the project slug, entity path, version number, content hash and commit
// timestamp that together identify one stored revision.
func CommitHash(project, entity string, version int64, contentHash, committedAt string, meta Object) (string, error) {
	obj := Object{
		"project":      String(project),
		"entity":       String(entity),
		"version":      Int(version),
		"content_hash": String(contentHash),
		"timestamp":    String(committedAt),
	}
	if len(meta) > 0 {
		obj["meta"] = meta
	}

	canonical, err := Marshal(obj)
	if err != nil {
		return "", fmt.Errorf("CommitHash: failed to marshal: %w", err)
	}
	return hashWithDomain(DomainCommit, canonical), nil
}

// MustContentHash is like ContentHash but panics on error.
// Use only in tests or when inputs are known to be valid.
func MustContentHash(v Value) string {
	h, err := ContentHash(v)
	if err != nil {
		panic(err)
	}
	return h
}
