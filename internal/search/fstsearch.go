package search

import (
	"fmt"
	"regexp"
	"unicode/utf8"

	"github.com/blevesearch/vellum"
	vregexp "github.com/blevesearch/vellum/regexp"

	"github.com/standardbeagle/hgrep/internal/types"
)

// searchFST collects every key of the finite-state set accepted by the
// pattern. The automaton matches whole keys, so a pattern of N positions
// only ever matches N-rune tokens.
func searchFST(fst *vellum.FST, pattern string) ([]types.Key, error) {
	if fst == nil {
		return nil, nil
	}

	automaton, err := vregexp.New(pattern)
	if err != nil {
		return nil, err
	}

	var keys []types.Key
	itr, err := fst.Search(automaton, nil, nil)
	for err == nil {
		current, _ := itr.Current()
		// Current's bytes are reused by the iterator; KeyFromBytes copies.
		keys = append(keys, types.KeyFromBytes(current))
		err = itr.Next()
	}
	if err != vellum.ErrIteratorDone {
		return nil, err
	}
	return keys, nil
}

// expandTrigram resolves a planned trigram into concrete index keys: a bare
// literal is looked up directly, a class-bearing trigram runs a DFA search
// over the word set.
func expandTrigram(t Trigram, fst *vellum.FST) ([]types.Key, error) {
	if t.IsLiteral() {
		return []types.Key{t.LiteralKey()}, nil
	}
	return searchFST(fst, t.RegexPattern())
}

// shortWordPattern builds the whole-token pattern matching every trigram that
// contains a 1- or 2-rune word.
func shortWordPattern(word string) (string, error) {
	escaped := regexp.QuoteMeta(word)

	switch utf8.RuneCountInString(word) {
	case 2:
		return fmt.Sprintf("%s.|.%s", escaped, escaped), nil
	case 1:
		return fmt.Sprintf("%s..|.%s.|..%s", escaped, escaped, escaped), nil
	default:
		return "", fmt.Errorf("short word pattern requires 1 or 2 runes, got %q", word)
	}
}
