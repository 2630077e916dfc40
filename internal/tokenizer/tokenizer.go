// Package tokenizer splits file content into trigram tokens.
//
// A trigram is a window of three consecutive UTF-8 runes inside one line; the
// window advances one rune per step. Lines shorter than three runes emit the
// whole line as a single short token, so boundary content stays searchable.
// Whitespace and punctuation receive no special treatment: the substring is
// the token.
package tokenizer

import (
	"sort"
	"unicode/utf8"

	"github.com/standardbeagle/hgrep/internal/types"
)

// SplitLines tokenizes lines and returns, for every trigram key, the sorted,
// deduplicated line numbers it occurs on. Line numbers start at lineStart.
func SplitLines(lines []string, lineStart int) map[types.Key][]int {
	seen := make(map[types.Key]map[int]struct{})

	for offset, line := range lines {
		lineNum := lineStart + offset
		emitTrigrams(line, func(k types.Key) {
			set, ok := seen[k]
			if !ok {
				set = make(map[int]struct{})
				seen[k] = set
			}
			set[lineNum] = struct{}{}
		})
	}

	result := make(map[types.Key][]int, len(seen))
	for k, set := range seen {
		lineNums := make([]int, 0, len(set))
		for n := range set {
			lineNums = append(lineNums, n)
		}
		sort.Ints(lineNums)
		result[k] = lineNums
	}
	return result
}

// SplitLinesToSet tokenizes lines and returns only the set of trigram keys.
func SplitLinesToSet(lines []string) map[types.Key]struct{} {
	result := make(map[types.Key]struct{})
	for _, line := range lines {
		emitTrigrams(line, func(k types.Key) {
			result[k] = struct{}{}
		})
	}
	return result
}

// emitTrigrams walks one line and calls emit for every token. The byte
// offsets of the last three rune starts are enough to slice each window
// without materializing a rune slice.
func emitTrigrams(line string, emit func(types.Key)) {
	var starts [3]int
	count := 0

	for index, r := range line {
		end := index + utf8.RuneLen(r)
		if count >= 2 {
			start := starts[(count+1)%3]
			emit(types.KeyFromString(line[start:end]))
		}
		starts[count%3] = index
		count++
	}

	// A line with fewer than three runes is emitted whole.
	if count > 0 && count <= 2 {
		emit(types.KeyFromString(line))
	}
}
