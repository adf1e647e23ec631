package model

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestTermOrdinalRoundTrip(t *testing.T) {
	for _, n := range []int{1, 2, 3} {
		term, ok := TermFromOrdinal(n)
		require.True(t, ok)
		require.Equal(t, n, term.Ordinal())
	}
}

// Out-of-range ordinals decode to First. This masks contract drift in the
// API payload; the ok flag is the only signal and callers log it.
func TestTermFromOrdinalFallsBackToFirst(t *testing.T) {
	for _, n := range []int{0, 4, -1, 99} {
		term, ok := TermFromOrdinal(n)
		require.False(t, ok, "ordinal %d", n)
		require.Equal(t, TermFirst, term)
	}
}

func TestTermNextStopsAtThird(t *testing.T) {
	next, ok := TermFirst.Next()
	require.True(t, ok)
	require.Equal(t, TermSecond, next)

	next, ok = next.Next()
	require.True(t, ok)
	require.Equal(t, TermThird, next)

	_, ok = next.Next()
	require.False(t, ok)
}

func TestParseTerm(t *testing.T) {
	term, err := ParseTerm("Second")
	require.NoError(t, err)
	require.Equal(t, TermSecond, term)

	term, err = ParseTerm("3")
	require.NoError(t, err)
	require.Equal(t, TermThird, term)

	_, err = ParseTerm("Fourth")
	require.Error(t, err)
	_, err = ParseTerm("0")
	require.Error(t, err)
}

func TestNextSessionLabel(t *testing.T) {
	next, err := NextSessionLabel("2024/2025")
	require.NoError(t, err)
	require.Equal(t, "2025/2026", next)

	_, err = NextSessionLabel("2024-2025")
	require.Error(t, err)

	_, err = NextSessionLabel("2024/2026")
	require.Error(t, err)
}

func TestScoresIsZero(t *testing.T) {
	require.True(t, Scores{}.IsZero())
	require.False(t, Scores{Exam: 1}.IsZero())
}
