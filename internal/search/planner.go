package search

import (
	"fmt"
	"regexp/syntax"
	"unicode"

	"github.com/standardbeagle/hgrep/internal/errors"
)

// PartTrigrams is one conjunctive group: a file must contain every trigram of
// the group for the branch to possibly match. A group with no trigrams
// matches unconditionally, which degenerates the whole query to a
// caller-level full scan.
type PartTrigrams struct {
	Trigrams []Trigram
}

// Candidates is the planner output: a disjunction of conjunctive trigram
// groups. Empty candidates leave the query unconstrained.
type Candidates struct {
	Parts []PartTrigrams
}

// Unfiltered reports whether trigram filtering cannot narrow this query:
// either no candidates were planned or some group matches unconditionally.
func (c Candidates) Unfiltered() bool {
	if len(c.Parts) == 0 {
		return true
	}
	for _, part := range c.Parts {
		if len(part.Trigrams) == 0 {
			return true
		}
	}
	return false
}

// Plan parses the regular expression and derives its search candidates.
// Unsupported constructs (look-around, anchors) fail with a QueryParse error.
func Plan(query string) (Candidates, error) {
	re, err := syntax.Parse(query, syntax.Perl)
	if err != nil {
		return Candidates{}, errors.NewQueryParseError(query, err)
	}

	cands, err := buildCandidates(re)
	if err != nil {
		return Candidates{}, errors.NewQueryParseError(query, err)
	}
	return cands, nil
}

// buildCandidates walks the parsed syntax tree. The combinators are pure, so
// each node's candidates depend only on its children.
func buildCandidates(re *syntax.Regexp) (Candidates, error) {
	switch re.Op {
	case syntax.OpEmptyMatch, syntax.OpNoMatch:
		return Candidates{}, nil

	case syntax.OpLiteral:
		if re.Flags&syntax.FoldCase != 0 {
			// A case-folded literal (the parser turns [rR] into one) matches
			// every case variant, so each rune becomes a class of its fold
			// orbit.
			positions := make([][]Trigram, 0, len(re.Rune))
			for _, r := range re.Rune {
				ranges := []RuneRange{{Lo: r, Hi: r}}
				for f := unicode.SimpleFold(r); f != r; f = unicode.SimpleFold(f) {
					ranges = append(ranges, RuneRange{Lo: f, Hi: f})
				}
				positions = append(positions, []Trigram{TrigramFromClass(ranges)})
			}
			return Candidates{Parts: []PartTrigrams{{Trigrams: mergeTrigrams(positions)}}}, nil
		}
		return candidatesFromLiteral(re.Rune), nil

	case syntax.OpCharClass:
		return Candidates{Parts: []PartTrigrams{{
			Trigrams: []Trigram{TrigramFromClass(classRanges(re.Rune))},
		}}}, nil

	case syntax.OpAnyChar:
		return Candidates{Parts: []PartTrigrams{{
			Trigrams: []Trigram{TrigramFromClass([]RuneRange{{Lo: 0, Hi: unicode.MaxRune}})},
		}}}, nil

	case syntax.OpAnyCharNotNL:
		return Candidates{Parts: []PartTrigrams{{
			Trigrams: []Trigram{TrigramFromClass([]RuneRange{
				{Lo: 0, Hi: '\n' - 1},
				{Lo: '\n' + 1, Hi: unicode.MaxRune},
			})},
		}}}, nil

	case syntax.OpStar:
		return repeatCandidates(re.Sub[0], 0, -1)

	case syntax.OpPlus:
		return repeatCandidates(re.Sub[0], 1, -1)

	case syntax.OpQuest:
		return repeatCandidates(re.Sub[0], 0, 1)

	case syntax.OpRepeat:
		return repeatCandidates(re.Sub[0], re.Min, re.Max)

	case syntax.OpConcat:
		parts, err := buildAll(re.Sub)
		if err != nil {
			return Candidates{}, err
		}
		return Concat(parts), nil

	case syntax.OpAlternate:
		parts, err := buildAll(re.Sub)
		if err != nil {
			return Candidates{}, err
		}
		return Alternation(parts), nil

	case syntax.OpCapture:
		// Groups are planned transparently; the semantic re-check runs the
		// real regex, captures included.
		return buildCandidates(re.Sub[0])

	case syntax.OpBeginLine, syntax.OpEndLine, syntax.OpBeginText, syntax.OpEndText,
		syntax.OpWordBoundary, syntax.OpNoWordBoundary:
		return Candidates{}, fmt.Errorf("look-around and anchors are not supported: %s", re.Op)

	default:
		return Candidates{}, fmt.Errorf("unsupported regex construct: %s", re.Op)
	}
}

func buildAll(subs []*syntax.Regexp) ([]Candidates, error) {
	parts := make([]Candidates, 0, len(subs))
	for _, sub := range subs {
		cands, err := buildCandidates(sub)
		if err != nil {
			return nil, err
		}
		parts = append(parts, cands)
	}
	return parts, nil
}

// candidatesFromLiteral plans a literal: a short literal becomes one short
// trigram; a longer one becomes its 3-rune sliding windows, in order.
func candidatesFromLiteral(runes []rune) Candidates {
	if len(runes) < 3 {
		return Candidates{Parts: []PartTrigrams{{
			Trigrams: []Trigram{TrigramFromString(string(runes))},
		}}}
	}

	trigrams := make([]Trigram, 0, len(runes)-2)
	for i := 0; i+3 <= len(runes); i++ {
		trigrams = append(trigrams, TrigramFromString(string(runes[i:i+3])))
	}
	return Candidates{Parts: []PartTrigrams{{Trigrams: trigrams}}}
}

func classRanges(pairs []rune) []RuneRange {
	ranges := make([]RuneRange, 0, len(pairs)/2)
	for i := 0; i+1 < len(pairs); i += 2 {
		ranges = append(ranges, RuneRange{Lo: pairs[i], Hi: pairs[i+1]})
	}
	return ranges
}

// Concat combines the candidates of concatenated sub-patterns: the Cartesian
// product of the branch choices, each branch merged pairwise. Unconstrained
// sub-patterns contribute nothing.
func Concat(parts []Candidates) Candidates {
	constrained := make([]Candidates, 0, len(parts))
	for _, p := range parts {
		if len(p.Parts) > 0 {
			constrained = append(constrained, p)
		}
	}
	if len(constrained) == 0 {
		return Candidates{}
	}

	limits := make([]int, len(constrained))
	for i, p := range constrained {
		limits[i] = len(p.Parts)
	}

	var result Candidates
	permutations(limits, func(pick []int) bool {
		lists := make([][]Trigram, len(pick))
		for i, choice := range pick {
			lists[i] = constrained[i].Parts[choice].Trigrams
		}
		result.Parts = append(result.Parts, PartTrigrams{Trigrams: mergeTrigrams(lists)})
		return true
	})
	return result
}

// Alternation combines alternative branches as a disjunction. An
// unconstrained branch makes the whole alternation unconditional: it
// contributes a group with no trigrams, preserving planner soundness.
func Alternation(parts []Candidates) Candidates {
	var result Candidates
	for _, p := range parts {
		if len(p.Parts) == 0 {
			result.Parts = append(result.Parts, PartTrigrams{})
			continue
		}
		result.Parts = append(result.Parts, p.Parts...)
	}
	return result
}

// Repeat plans sub-pattern repetition. Repeats beyond three copies carry no
// additional trigram information, so min and max are capped at 3; an
// unbounded max (max < 0) is treated as 3. A zero-count branch contributes an
// unconditional group.
func Repeat(part Candidates, min, max int) Candidates {
	if min > 3 {
		min = 3
	}
	if max < 0 || max > 3 {
		max = 3
	}

	var result Candidates
	for repeat := min; repeat <= max; repeat++ {
		if repeat == 0 || len(part.Parts) == 0 {
			// Zero copies, or repetition of an unconstrained sub-pattern,
			// matches unconditionally.
			result.Parts = append(result.Parts, PartTrigrams{})
			continue
		}

		limits := make([]int, repeat)
		for i := range limits {
			limits[i] = len(part.Parts)
		}

		permutations(limits, func(pick []int) bool {
			lists := make([][]Trigram, len(pick))
			for i, choice := range pick {
				lists[i] = part.Parts[choice].Trigrams
			}
			result.Parts = append(result.Parts, PartTrigrams{Trigrams: mergeTrigrams(lists)})
			return true
		})
	}
	return result
}

func repeatCandidates(sub *syntax.Regexp, min, max int) (Candidates, error) {
	cands, err := buildCandidates(sub)
	if err != nil {
		return Candidates{}, err
	}
	return Repeat(cands, min, max), nil
}
