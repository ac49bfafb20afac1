package brain

import (
	"strings"
)

// Entity paths are slash-separated slugs: "characters/heroes/aria".
// Parent/child relationships are expressed only through these strings,
// never through object references.

// ParentPath returns the parent of an entity path, or "" for a root path.
func ParentPath(path string) string {
	idx := strings.LastIndex(path, "/")
	if idx < 0 {
		return ""
	}
	return path[:idx]
}

// BasePath returns the final segment of an entity path.
func BasePath(path string) string {
	idx := strings.LastIndex(path, "/")
	if idx < 0 {
		return path
	}
	return path[idx+1:]
}

// JoinPath joins a parent path and a child segment. An empty parent
// yields the segment itself (root placement).
func JoinPath(parent, segment string) string {
	if parent == "" {
		return segment
	}
	return parent + "/" + segment
}

// IsDescendant reports whether path lies strictly below ancestor.
func IsDescendant(path, ancestor string) bool {
	return strings.HasPrefix(path, ancestor+"/")
}

// Rebase moves path from under oldParent to under newParent.
// path must equal oldParent or be a descendant of it.
func Rebase(path, oldParent, newParent string) string {
	if path == oldParent {
		return newParent
	}
	rest := strings.TrimPrefix(path, oldParent+"/")
	return JoinPath(newParent, rest)
}

// Children returns the paths in p that are strict descendants of path,
// in no particular order.
func (p *Project) Children(path string) []string {
	var out []string
	for candidate := range p.Entities {
		if IsDescendant(candidate, path) {
			out = append(out, candidate)
		}
	}
	return out
}
