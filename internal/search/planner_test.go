package search

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	hgerrors "github.com/standardbeagle/hgrep/internal/errors"
)

func partStrings(c Candidates) [][]string {
	parts := make([][]string, len(c.Parts))
	for i, part := range c.Parts {
		strs := make([]string, len(part.Trigrams))
		for j, trigram := range part.Trigrams {
			strs[j] = trigram.String()
		}
		parts[i] = strs
	}
	return parts
}

func TestPlanLiteralWindows(t *testing.T) {
	cands, err := Plan("abcde")
	require.NoError(t, err)

	// For any literal of length >= 3 the planner yields exactly the 3-rune
	// sliding windows, in order.
	assert.Equal(t, [][]string{{"abc", "bcd", "cde"}}, partStrings(cands))
	assert.False(t, cands.Unfiltered())
}

func TestPlanShortLiteral(t *testing.T) {
	cands, err := Plan("ab")
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"ab"}}, partStrings(cands))
}

func TestPlanConcatMerges(t *testing.T) {
	// "colo" then optional "u" then "r": the optional branch doubles the
	// candidates and every branch merges into full windows.
	cands, err := Plan("colou?r")
	require.NoError(t, err)

	assert.ElementsMatch(t, [][]string{
		{"col", "olo", "lor"},
		{"col", "olo", "lou", "our"},
	}, partStrings(cands))
	assert.False(t, cands.Unfiltered())
}

func TestPlanStarEmitsWildcardBranch(t *testing.T) {
	cands, err := Plan("a*")
	require.NoError(t, err)

	assert.Equal(t, [][]string{{}, {"a"}, {"aa"}, {"aaa"}}, partStrings(cands))
	// The zero-repeat branch matches unconditionally: the engine must fall
	// back to a full scan.
	assert.True(t, cands.Unfiltered())
}

func TestPlanRepetitionCapsAtThree(t *testing.T) {
	cands, err := Plan("(ab){0,10}")
	require.NoError(t, err)

	assert.Equal(t, [][]string{
		{},
		{"ab"},
		{"aba", "bab"},
		{"aba", "bab", "aba", "bab"},
	}, partStrings(cands))
	assert.True(t, cands.Unfiltered())
}

func TestPlanBoundedRepetition(t *testing.T) {
	cands, err := Plan("(?:ab){2}")
	require.NoError(t, err)

	assert.Equal(t, [][]string{{"aba", "bab"}}, partStrings(cands))
	assert.False(t, cands.Unfiltered())
}

func TestPlanAlternation(t *testing.T) {
	cands, err := Plan("foobar|bazqux")
	require.NoError(t, err)

	assert.Equal(t, [][]string{
		{"foo", "oob", "oba", "bar"},
		{"baz", "azq", "zqu", "qux"},
	}, partStrings(cands))
}

func TestPlanCharClassMergesIntoWindows(t *testing.T) {
	cands, err := Plan("colou[rR]")
	require.NoError(t, err)

	require.Len(t, cands.Parts, 1)
	got := partStrings(cands)[0]
	// Class ranges come out of the parser sorted: [rR] becomes [Rr].
	assert.Equal(t, []string{"col", "olo", "lou", "ou[Rr]"}, got)
}

func TestPlanCaptureIsTransparent(t *testing.T) {
	grouped, err := Plan("(foobar)")
	require.NoError(t, err)

	plain, err := Plan("foobar")
	require.NoError(t, err)

	assert.Equal(t, partStrings(plain), partStrings(grouped))
}

func TestPlanRejectsAnchorsAndBoundaries(t *testing.T) {
	for _, query := range []string{"^foo", "foo$", `\bfoo`, `\Afoo`} {
		_, err := Plan(query)
		assert.Error(t, err, "query %q", query)
		assert.True(t, hgerrors.IsQueryParse(err), "query %q", query)
	}
}

func TestPlanRejectsInvalidRegex(t *testing.T) {
	_, err := Plan("foo(")
	require.Error(t, err)
	assert.True(t, hgerrors.IsQueryParse(err))
}

func TestPlanEmptyPattern(t *testing.T) {
	cands, err := Plan("")
	require.NoError(t, err)
	assert.Empty(t, cands.Parts)
	assert.True(t, cands.Unfiltered())
}

func TestPlanDotIsClass(t *testing.T) {
	cands, err := Plan("a.c")
	require.NoError(t, err)

	require.Len(t, cands.Parts, 1)
	require.Len(t, cands.Parts[0].Trigrams, 1)
	trigram := cands.Parts[0].Trigrams[0]
	assert.False(t, trigram.IsLiteral())
	assert.Equal(t, 3, trigram.Len())
}
