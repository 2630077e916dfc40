package search

import (
	"strings"
	"unicode/utf8"

	"github.com/RoaringBitmap/roaring/v2"

	"github.com/standardbeagle/hgrep/internal/bitmap"
	"github.com/standardbeagle/hgrep/internal/index"
	"github.com/standardbeagle/hgrep/internal/tokenizer"
	"github.com/standardbeagle/hgrep/internal/types"
)

// Mode selects the query form.
type Mode int

const (
	ModePlain Mode = iota
	ModeRegex
)

// RawResult is one file that survived trigram filtering: the query form it
// matched and the set of commits at which every queried token was present.
// Raw results precede semantic verification; the trigram filter is necessary
// but not sufficient.
type RawResult struct {
	FileID     types.FileID
	Mode       Mode
	Words      []string // populated for ModePlain
	Regex      string   // populated for ModeRegex
	Overlapped *roaring.Bitmap
}

// SearchOption bounds a raw search. Zero MaxResults means unbounded.
type SearchOption struct {
	MaxResults int
}

func (o SearchOption) reached(count int) bool {
	return o.MaxResults > 0 && count >= o.MaxResults
}

// Searcher evaluates queries against a finalized index. It is read-only and
// safe for concurrent use.
type Searcher struct {
	index *index.Index
}

// NewSearcher creates a searcher over the finalized index.
func NewSearcher(idx *index.Index) *Searcher {
	return &Searcher{index: idx}
}

// PlainSearch splits the query on whitespace and returns every file, with
// its commit set, that contained all words somewhere in its history. Results
// are ordered by ascending file id; the order is deterministic for a fixed
// index.
func (s *Searcher) PlainSearch(query string, opt SearchOption) ([]RawResult, error) {
	words := strings.Fields(query)
	if len(words) == 0 {
		return nil, nil
	}

	// Phase 1: files that ever contained each word.
	fileBitmaps := make([]*roaring.Bitmap, 0, len(words))
	for _, word := range words {
		files, err := s.filesEverContaining(word)
		if err != nil {
			return nil, err
		}
		if files == nil {
			// A trigram of this word was never observed anywhere.
			return nil, nil
		}
		fileBitmaps = append(fileBitmaps, files)
	}

	candidates := bitmap.IntersectVec(fileBitmaps)
	if candidates.IsEmpty() {
		return nil, nil
	}

	// Phase 2: per candidate file, intersect the words' commit sets with the
	// file's modification points.
	var results []RawResult

	iter := candidates.Iterator()
	for iter.HasNext() {
		fid := types.FileID(iter.Next())
		doc := s.index.Document(fid)
		if doc == nil {
			continue
		}

		commitBitmaps := []*roaring.Bitmap{doc.ModifiedCommits}
		matched := true
		for _, word := range words {
			commits, err := s.wordCommitsInDoc(doc, word)
			if err != nil {
				return nil, err
			}
			if commits == nil {
				matched = false
				break
			}
			commitBitmaps = append(commitBitmaps, commits)
		}
		if !matched {
			continue
		}

		overlapped := bitmap.IntersectVec(commitBitmaps)
		if overlapped.IsEmpty() {
			continue
		}

		results = append(results, RawResult{
			FileID:     fid,
			Mode:       ModePlain,
			Words:      words,
			Overlapped: overlapped,
		})
		if opt.reached(len(results)) {
			return results, nil
		}
	}

	return results, nil
}

// RegexSearch plans the query into trigram candidates and evaluates each
// conjunctive group. The unfiltered return is true when trigram filtering
// cannot constrain the query (no candidates, or an unconditional group); the
// caller is expected to fall back to a full scan.
func (s *Searcher) RegexSearch(query string, opt SearchOption) (results []RawResult, unfiltered bool, err error) {
	if strings.TrimSpace(query) == "" {
		return nil, false, nil
	}

	candidates, err := Plan(query)
	if err != nil {
		return nil, false, err
	}

	if candidates.Unfiltered() {
		return nil, true, nil
	}

	for _, part := range candidates.Parts {
		partResults, err := s.searchPart(query, part, opt, len(results))
		if err != nil {
			return nil, false, err
		}
		results = append(results, partResults...)
		if opt.reached(len(results)) {
			return results, false, nil
		}
	}

	return results, false, nil
}

// searchPart evaluates one conjunctive trigram group.
func (s *Searcher) searchPart(query string, part PartTrigrams, opt SearchOption, found int) ([]RawResult, error) {
	// Reduce to candidate files: per trigram, the union of files ever
	// containing any expansion; across trigrams, the intersection.
	fileBitmaps := make([]*roaring.Bitmap, 0, len(part.Trigrams))
	for _, trigram := range part.Trigrams {
		keys, err := expandTrigram(trigram, s.index.AllWords())
		if err != nil {
			return nil, err
		}

		var perKey []*roaring.Bitmap
		for _, key := range keys {
			if files, ok := s.index.WordToFiles[key]; ok {
				perKey = append(perKey, files)
			}
		}
		if len(perKey) == 0 {
			// Nothing in the corpus can satisfy this trigram.
			return nil, nil
		}

		union := bitmap.UnionVec(perKey)
		if union.IsEmpty() {
			return nil, nil
		}
		fileBitmaps = append(fileBitmaps, union)
	}

	candidates := bitmap.IntersectVec(fileBitmaps)
	if candidates == nil || candidates.IsEmpty() {
		return nil, nil
	}

	var results []RawResult
	head := s.index.HeadCommit()

	iter := candidates.Iterator()
	for iter.HasNext() {
		fid := types.FileID(iter.Next())
		doc := s.index.Document(fid)
		if doc == nil {
			continue
		}

		overlapped, err := s.trigramCommitsInDoc(doc, part.Trigrams, head)
		if err != nil {
			return nil, err
		}
		if overlapped == nil || overlapped.IsEmpty() {
			continue
		}

		results = append(results, RawResult{
			FileID:     fid,
			Mode:       ModeRegex,
			Regex:      query,
			Overlapped: overlapped,
		})
		if opt.reached(found + len(results)) {
			return results, nil
		}
	}

	return results, nil
}

// filesEverContaining returns the files whose history contains the word, or
// nil when a required trigram is missing from the corpus. Words of one or
// two runes expand through the global word set into every trigram containing
// them.
func (s *Searcher) filesEverContaining(word string) (*roaring.Bitmap, error) {
	if utf8.RuneCountInString(word) <= 2 {
		pattern, err := shortWordPattern(word)
		if err != nil {
			return nil, err
		}
		keys, err := searchFST(s.index.AllWords(), pattern)
		if err != nil {
			return nil, err
		}

		var perKey []*roaring.Bitmap
		for _, key := range keys {
			if files, ok := s.index.WordToFiles[key]; ok {
				perKey = append(perKey, files)
			}
		}
		if len(perKey) == 0 {
			return roaring.New(), nil
		}
		return bitmap.UnionVec(perKey), nil
	}

	trigrams := tokenizer.SplitLinesToSet([]string{word})

	bitmaps := make([]*roaring.Bitmap, 0, len(trigrams))
	for key := range trigrams {
		files, ok := s.index.WordToFiles[key]
		if !ok {
			return nil, nil
		}
		bitmaps = append(bitmaps, files)
	}
	return bitmap.IntersectVec(bitmaps), nil
}

// wordCommitsInDoc returns the commits at which the document contained the
// word, or nil when the word cannot occur in the file.
func (s *Searcher) wordCommitsInDoc(doc *index.Document, word string) (*roaring.Bitmap, error) {
	if utf8.RuneCountInString(word) < 3 {
		pattern, err := shortWordPattern(word)
		if err != nil {
			return nil, err
		}
		keys, err := searchFST(doc.AllWords(), pattern)
		if err != nil {
			return nil, err
		}

		var perKey []*roaring.Bitmap
		for _, key := range keys {
			if wi, ok := doc.Words[key]; ok {
				perKey = append(perKey, wi.Inclusivity)
			}
		}
		if len(perKey) == 0 {
			return nil, nil
		}
		// A short word is a single trigram: the union over its expansions is
		// the word's commit set.
		return bitmap.UnionVec(perKey), nil
	}

	trigrams := tokenizer.SplitLinesToSet([]string{word})

	bitmaps := make([]*roaring.Bitmap, 0, len(trigrams))
	for key := range trigrams {
		wi, ok := doc.Words[key]
		if !ok {
			return nil, nil
		}
		bitmaps = append(bitmaps, wi.Inclusivity)
	}
	return bitmap.IntersectVec(bitmaps), nil
}

// trigramCommitsInDoc intersects the commit sets of every group trigram
// within one document. The seed bitmap is the file's modification points,
// extended with HEAD when the file is still live so an unmodified-at-HEAD
// file can still report its current state.
func (s *Searcher) trigramCommitsInDoc(doc *index.Document, trigrams []Trigram, head types.CommitIndex) (*roaring.Bitmap, error) {
	seed := doc.ModifiedCommits.Clone()
	if !doc.IsDeleted {
		seed.Add(uint32(head))
	}

	commitBitmaps := []*roaring.Bitmap{seed}
	for _, trigram := range trigrams {
		keys, err := expandTrigram(trigram, doc.AllWords())
		if err != nil {
			return nil, err
		}

		var perKey []*roaring.Bitmap
		for _, key := range keys {
			if wi, ok := doc.Words[key]; ok {
				perKey = append(perKey, wi.Inclusivity)
			}
		}
		if len(perKey) == 0 {
			return nil, nil
		}
		commitBitmaps = append(commitBitmaps, bitmap.UnionVec(perKey))
	}

	return bitmap.IntersectVec(commitBitmaps), nil
}

// FullScan produces a raw result for every document, covering each file's
// modification points. Used when the planner cannot constrain a regex query;
// semantic verification discards the false positives.
func (s *Searcher) FullScan(query string, opt SearchOption) []RawResult {
	var results []RawResult
	head := s.index.HeadCommit()

	for fid, doc := range s.index.Documents {
		if doc == nil {
			continue
		}

		overlapped := doc.ModifiedCommits.Clone()
		if !doc.IsDeleted {
			overlapped.Add(uint32(head))
		}
		if overlapped.IsEmpty() {
			continue
		}

		results = append(results, RawResult{
			FileID:     types.FileID(fid),
			Mode:       ModeRegex,
			Regex:      query,
			Overlapped: overlapped,
		})
		if opt.reached(len(results)) {
			return results
		}
	}

	return results
}
