package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSeatCodes(t *testing.T) {
	codes := SeatCodes(2, 3)
	assert.Equal(t, []string{"A0000", "A0001", "A0002", "B0000", "B0001", "B0002"}, codes)
}

func TestSeatCodes_UniqueWithinRound(t *testing.T) {
	codes := SeatCodes(10, 10)
	require.Len(t, codes, 100)
	seen := make(map[string]bool, len(codes))
	for _, c := range codes {
		assert.False(t, seen[c], "duplicate seat code %s", c)
		seen[c] = true
	}
}

func TestSeatCodes_EmptyGrid(t *testing.T) {
	assert.Empty(t, SeatCodes(0, 10))
	assert.Empty(t, SeatCodes(10, 0))
}

func TestNewRoundID_Unique(t *testing.T) {
	a := NewRoundID()
	b := NewRoundID()
	assert.NotEmpty(t, a)
	assert.NotEqual(t, a, b)
}
