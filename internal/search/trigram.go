package search

import (
	"regexp"
	"strings"

	"github.com/standardbeagle/hgrep/internal/types"
)

// RuneRange is one inclusive range of a character class.
type RuneRange struct {
	Lo rune
	Hi rune
}

// Symbol is one position of a planned trigram: either a literal rune or a
// character class. Class is nil for literals.
type Symbol struct {
	Rune  rune
	Class []RuneRange
}

func litSymbol(r rune) Symbol {
	return Symbol{Rune: r}
}

func classSymbol(ranges []RuneRange) Symbol {
	return Symbol{Class: ranges}
}

// Trigram is a sequence of up to three symbols that any match must contain as
// consecutive characters. Shorter trigrams arise at pattern boundaries; they
// match only index tokens of the same length.
type Trigram struct {
	syms []Symbol
}

// TrigramFromString builds a literal trigram. The string must be at most
// three runes.
func TrigramFromString(s string) Trigram {
	var syms []Symbol
	for _, r := range s {
		syms = append(syms, litSymbol(r))
	}
	return Trigram{syms: syms}
}

// TrigramFromClass builds a single-position trigram carrying a character
// class; filtering expands it into every concrete token at query time.
func TrigramFromClass(ranges []RuneRange) Trigram {
	return Trigram{syms: []Symbol{classSymbol(ranges)}}
}

// Len returns the number of character positions.
func (t Trigram) Len() int {
	return len(t.syms)
}

// IsLiteral reports whether every position is a concrete rune.
func (t Trigram) IsLiteral() bool {
	for _, s := range t.syms {
		if s.Class != nil {
			return false
		}
	}
	return true
}

// LiteralKey returns the index key of a fully literal trigram.
func (t Trigram) LiteralKey() types.Key {
	var sb strings.Builder
	for _, s := range t.syms {
		sb.WriteRune(s.Rune)
	}
	return types.KeyFromString(sb.String())
}

// RegexPattern renders the trigram as a full-token regular expression for
// DFA-driven search of a finite-state word set.
func (t Trigram) RegexPattern() string {
	var sb strings.Builder
	for _, s := range t.syms {
		if s.Class == nil {
			sb.WriteString(regexp.QuoteMeta(string(s.Rune)))
			continue
		}

		sb.WriteByte('[')
		for _, r := range s.Class {
			if r.Lo == r.Hi {
				sb.WriteString(escapeClassRune(r.Lo))
			} else {
				sb.WriteString(escapeClassRune(r.Lo))
				sb.WriteByte('-')
				sb.WriteString(escapeClassRune(r.Hi))
			}
		}
		sb.WriteByte(']')
	}
	return sb.String()
}

func (t Trigram) String() string {
	if t.IsLiteral() {
		return t.LiteralKey().String()
	}
	return t.RegexPattern()
}

func escapeClassRune(r rune) string {
	switch r {
	case '\\', ']', '^', '-':
		return "\\" + string(r)
	}
	return string(r)
}

// concatSmall joins two trigrams whose combined length is at most three.
func concatSmall(left, right Trigram) Trigram {
	syms := make([]Symbol, 0, len(left.syms)+len(right.syms))
	syms = append(syms, left.syms...)
	syms = append(syms, right.syms...)
	return Trigram{syms: syms}
}

// concatWindows emits every 3-position window spanning the boundary between
// left and right, in order.
func concatWindows(left, right Trigram) []Trigram {
	total := len(left.syms) + len(right.syms)

	var windows []Trigram
	for start := 0; start <= total-3; start++ {
		syms := make([]Symbol, 0, 3)
		for i := start; i < start+3; i++ {
			if i < len(left.syms) {
				syms = append(syms, left.syms[i])
			} else {
				syms = append(syms, right.syms[i-len(left.syms)])
			}
		}
		windows = append(windows, Trigram{syms: syms})
	}
	return windows
}

// mergeTrigrams fuses the trigram lists of adjacent concatenated parts. For
// consecutive lists A then B: when last(A) and first(B) fit inside one
// trigram they fuse; otherwise every window spanning the boundary is emitted
// followed by the rest of B. This guarantees every emitted trigram is a
// necessary substring of any match.
func mergeTrigrams(lists [][]Trigram) []Trigram {
	var merged []Trigram

	for _, next := range lists {
		if len(next) == 0 {
			continue
		}
		if len(merged) == 0 {
			merged = append(merged, next...)
			continue
		}

		left := merged[len(merged)-1]
		merged = merged[:len(merged)-1]
		right := next[0]

		if right.Len() <= 3-left.Len() {
			merged = append(merged, concatSmall(left, right))
		} else {
			merged = append(merged, concatWindows(left, right)...)
		}
		merged = append(merged, next[1:]...)
	}

	return merged
}
