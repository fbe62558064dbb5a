package randx

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPadID(t *testing.T) {
	seen := make(map[string]struct{})
	for i := 0; i < 50; i++ {
		id, err := PadID()
		require.NoError(t, err)
		assert.Len(t, id, PadIDLength)
		assert.True(t, IsValidPadID(id))
		seen[id] = struct{}{}
	}
	assert.Greater(t, len(seen), 45)
}

func TestIsValidPadID(t *testing.T) {
	tests := []struct {
		id   string
		want bool
	}{
		{"abc123", true},
		{"team-notes_2024", true},
		{"", false},
		{"has space", false},
		{"../etc", false},
		{"ünïcode", false},
		{strings.Repeat("a", MaxPadIDLength), true},
		{strings.Repeat("a", MaxPadIDLength+1), false},
	}

	for _, tt := range tests {
		t.Run(tt.id, func(t *testing.T) {
			assert.Equal(t, tt.want, IsValidPadID(tt.id))
		})
	}
}

func TestSecret(t *testing.T) {
	a, err := Secret(32)
	require.NoError(t, err)
	b, err := Secret(32)
	require.NoError(t, err)

	assert.Len(t, a, 43)
	assert.NotEqual(t, a, b)
}
