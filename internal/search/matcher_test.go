package search

import (
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMatchWordsInContent(t *testing.T) {
	lines := []string{"let quick = 1;"}

	match := matchWordsInContent([]string{"quick"}, lines, 0)
	require.NotNil(t, match)

	assert.Equal(t, map[int][]Highlight{
		0: {{Term: "quick", Column: 4}},
	}, match.WordsPerLine)
	assert.Equal(t, map[int]string{0: "let quick = 1;"}, match.Lines)
}

func TestMatchWordsRequiresEveryWord(t *testing.T) {
	lines := []string{"hello world"}

	assert.NotNil(t, matchWordsInContent([]string{"hello", "world"}, lines, 0))
	assert.Nil(t, matchWordsInContent([]string{"hello", "brave"}, lines, 0))
}

func TestMatchWordsFirstOccurrenceOnly(t *testing.T) {
	lines := []string{"aaa bbb", "aaa again"}

	match := matchWordsInContent([]string{"aaa"}, lines, 0)
	require.NotNil(t, match)
	require.Len(t, match.WordsPerLine, 1)
	assert.Equal(t, []Highlight{{Term: "aaa", Column: 0}}, match.WordsPerLine[0])
}

func TestMatchWordsHighlightsSortedByColumn(t *testing.T) {
	lines := []string{"beta alpha"}

	match := matchWordsInContent([]string{"alpha", "beta"}, lines, 0)
	require.NotNil(t, match)
	assert.Equal(t, []Highlight{
		{Term: "beta", Column: 0},
		{Term: "alpha", Column: 5},
	}, match.WordsPerLine[0])
}

func TestMatchWordsContextWindow(t *testing.T) {
	lines := []string{"zero", "one", "two", "needle", "four", "five"}

	match := matchWordsInContent([]string{"needle"}, lines, 2)
	require.NotNil(t, match)

	assert.Equal(t, map[int]string{
		1: "one",
		2: "two",
		3: "needle",
		4: "four",
		5: "five",
	}, match.Lines)
}

func TestMatchRegexInContent(t *testing.T) {
	lines := []string{"color", "colour"}

	match := matchRegexInContent(regexp.MustCompile("colou?r"), lines, 1)
	require.NotNil(t, match)

	assert.Equal(t, map[int][]Highlight{
		0: {{Term: "color", Column: 0}},
		1: {{Term: "colour", Column: 0}},
	}, match.WordsPerLine)
}

func TestMatchRegexNoMatch(t *testing.T) {
	assert.Nil(t, matchRegexInContent(regexp.MustCompile("xyz+"), []string{"abc"}, 0))
}

func TestMatchRegexCapsCollectedLines(t *testing.T) {
	lines := make([]string, 50)
	for i := range lines {
		lines[i] = "match here"
	}

	match := matchRegexInContent(regexp.MustCompile("match"), lines, 0)
	require.NotNil(t, match)
	assert.LessOrEqual(t, len(match.WordsPerLine), maxRegexMatchLines+1)
}
