package cli

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSplitSelector(t *testing.T) {
	hash := strings.Repeat("ab", 32)

	tests := []struct {
		in   string
		path string
		ref  string
	}{
		{"article", "article", ""},
		{"article@7", "article", "7"},
		{"keep/castle@12", "keep/castle", "12"},
		{"article#" + hash, "article", "#" + hash},
		{"keep/castle#" + hash, "keep/castle", "#" + hash},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			path, ref := splitSelector(tt.in)
			assert.Equal(t, tt.path, path)
			assert.Equal(t, tt.ref, ref)
		})
	}
}
