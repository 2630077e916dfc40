package search

import (
	"regexp"
	"sort"

	ahocorasick "github.com/petar-dambovaliev/aho-corasick"

	"github.com/standardbeagle/hgrep/internal/types"
)

// contextLines is how far around a matched line the result carries text.
const contextLines = 2

// maxRegexMatchLines bounds a regex re-check per commit: collection stops
// once more than this many lines have matched, so at most
// maxRegexMatchLines+1 lines are collected. Results past this add nothing to
// first/last materialization.
const maxRegexMatchLines = 10

// Highlight is one matched term and its byte column within a line.
type Highlight struct {
	Term   string
	Column int
}

// CommitMatch is the verified match of a query against one commit's version
// of a file: the matched terms per line plus a small window of surrounding
// text.
type CommitMatch struct {
	Commit types.CommitIndex

	// WordsPerLine maps a 0-based line number to its highlights, ordered by
	// column.
	WordsPerLine map[int][]Highlight

	// Lines carries the context text: every matched line ±2 neighbors.
	Lines map[int]string
}

type matchPos struct {
	line int
	col  int
}

// matchWordsInContent runs the Aho-Corasick matcher over the lines and
// reports the first occurrence of every word. Returns nil unless every word
// is found: the trigram filter over-approximates and a commit that misses
// one word is a false positive.
func matchWordsInContent(words []string, lines []string, commit types.CommitIndex) *CommitMatch {
	builder := ahocorasick.NewAhoCorasickBuilder(ahocorasick.Opts{
		MatchKind: ahocorasick.LeftMostFirstMatch,
	})
	ac := builder.Build(words)

	found := make(map[int]matchPos, len(words))
	for lineNum, line := range lines {
		for _, m := range ac.FindAll(line) {
			if _, ok := found[m.Pattern()]; ok {
				continue
			}
			found[m.Pattern()] = matchPos{line: lineNum, col: m.Start()}
		}
		if len(found) == len(words) {
			break
		}
	}

	if len(found) != len(words) {
		return nil
	}

	matches := make([]termMatch, 0, len(found))
	for pattern, pos := range found {
		matches = append(matches, termMatch{term: words[pattern], pos: pos})
	}
	return newCommitMatch(commit, matches, lines)
}

// matchRegexInContent runs the real regex line by line, recording the first
// match per line up to a small cap.
func matchRegexInContent(re *regexp.Regexp, lines []string, commit types.CommitIndex) *CommitMatch {
	var matches []termMatch
	for lineNum, line := range lines {
		loc := re.FindStringIndex(line)
		if loc != nil {
			matches = append(matches, termMatch{
				term: line[loc[0]:loc[1]],
				pos:  matchPos{line: lineNum, col: loc[0]},
			})
		}
		if len(matches) > maxRegexMatchLines {
			break
		}
	}

	if len(matches) == 0 {
		return nil
	}
	return newCommitMatch(commit, matches, lines)
}

type termMatch struct {
	term string
	pos  matchPos
}

func newCommitMatch(commit types.CommitIndex, matches []termMatch, content []string) *CommitMatch {
	wordsPerLine := make(map[int][]Highlight)
	for _, m := range matches {
		wordsPerLine[m.pos.line] = append(wordsPerLine[m.pos.line], Highlight{
			Term:   m.term,
			Column: m.pos.col,
		})
	}
	for line := range wordsPerLine {
		highlights := wordsPerLine[line]
		sort.Slice(highlights, func(i, j int) bool {
			return highlights[i].Column < highlights[j].Column
		})
	}

	contextText := make(map[int]string)
	for _, m := range matches {
		start := m.pos.line - contextLines
		if start < 0 {
			start = 0
		}
		for line := start; line <= m.pos.line+contextLines && line < len(content); line++ {
			contextText[line] = content[line]
		}
	}

	return &CommitMatch{
		Commit:       commit,
		WordsPerLine: wordsPerLine,
		Lines:        contextText,
	}
}
