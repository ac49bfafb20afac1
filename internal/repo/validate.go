package repo

import (
	"regexp"
	"strings"

	"golang.org/x/text/unicode/norm"

	"github.com/pindral/brainstore/internal/brain"
)

// Slugs and path segments share one shape: lowercase ascii letters,
// digits, hyphens and underscores, starting with a letter or digit.
var segmentPattern = regexp.MustCompile(`^[a-z0-9][a-z0-9_-]*$`)

const maxSlugLength = 128

// NormalizeSlug NFC-normalizes and validates a brain or project slug.
// Identifiers are normalized once at the boundary so the same visible
// name always maps to the same stored key.
func NormalizeSlug(slug string) (string, error) {
	s := norm.NFC.String(strings.TrimSpace(slug))
	if s == "" {
		return "", brain.NewValidation("name must not be empty")
	}
	if len(s) > maxSlugLength {
		return "", brain.NewValidation("name %q exceeds %d characters", s, maxSlugLength)
	}
	if !segmentPattern.MatchString(s) {
		return "", brain.NewValidation("name %q must match %s", s, segmentPattern.String())
	}
	return s, nil
}

// NormalizePath NFC-normalizes and validates a hierarchical entity path
// such as "worldbook/castle/throne-room".
func NormalizePath(path string) (string, error) {
	p := norm.NFC.String(strings.TrimSpace(path))
	if p == "" {
		return "", brain.NewValidation("entity path must not be empty")
	}
	if strings.HasPrefix(p, "/") || strings.HasSuffix(p, "/") {
		return "", brain.NewValidation("entity path %q must not start or end with a slash", p)
	}
	segments := strings.Split(p, "/")
	for _, seg := range segments {
		if !segmentPattern.MatchString(seg) {
			return "", brain.NewValidation("entity path segment %q must match %s", seg, segmentPattern.String())
		}
	}
	return strings.Join(segments, "/"), nil
}
