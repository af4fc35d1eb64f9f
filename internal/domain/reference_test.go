package domain

import (
	"regexp"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var referencePattern = regexp.MustCompile(`^CREDIT-[A-Z0-9]{1,4}-\d+-[0-9A-F]{10}$`)

func TestNewReferenceFormat(t *testing.T) {
	ref := NewReference("", "jane.doe@example.com", 3)

	assert.True(t, strings.HasPrefix(ref, "CREDIT-JANE-3-"), ref)
	assert.Regexp(t, referencePattern, ref)
}

func TestNewReferenceCustomPrefix(t *testing.T) {
	ref := NewReference("SHOP", "ab@x.io", 1)
	assert.True(t, strings.HasPrefix(ref, "SHOP-ABXI-1-"), ref)
}

func TestEmailFragment(t *testing.T) {
	tests := []struct {
		email string
		want  string
	}{
		{"jane.doe@example.com", "JANE"},
		{"a.b-c@d.com", "ABCD"},
		{"xy@z", "XYZ"},
		{"@@@", "USER"},
		{"", "USER"},
		{"élan@x.com", "LANX"},
	}
	for _, tt := range tests {
		t.Run(tt.email, func(t *testing.T) {
			assert.Equal(t, tt.want, emailFragment(tt.email))
		})
	}
}

func TestNewReferenceDistinct(t *testing.T) {
	const n = 10000
	seen := make(map[string]struct{}, n)
	for i := 0; i < n; i++ {
		ref := NewReference("", "buyer@example.com", 1)
		require.True(t, strings.HasPrefix(ref, "CREDIT-"))
		_, dup := seen[ref]
		require.False(t, dup, "duplicate reference %s after %d generations", ref, i)
		seen[ref] = struct{}{}
	}
}
