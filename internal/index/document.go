package index

import (
	"fmt"

	"github.com/RoaringBitmap/roaring/v2"
	"github.com/blevesearch/vellum"

	"github.com/standardbeagle/hgrep/internal/errors"
	"github.com/standardbeagle/hgrep/internal/types"
)

// WordIndex tracks one trigram inside one file across history.
type WordIndex struct {
	// History holds the live introductions of the trigram: every
	// (commit, line-within-commit) that inserted it and has not yet been
	// deleted. While at least one entry is live, the trigram is still present
	// at later commits.
	History map[types.WordKey]struct{}

	// Inclusivity is the set of commits at which the file contains the
	// trigram. Bits are set eagerly at insertion commits and filled in as
	// compact ranges when a live run ends.
	Inclusivity *roaring.Bitmap
}

func newWordIndex() *WordIndex {
	return &WordIndex{
		History:     make(map[types.WordKey]struct{}),
		Inclusivity: roaring.New(),
	}
}

// WordRemoval names the live introductions of one trigram that a deletion
// removed.
type WordRemoval struct {
	Key      types.Key
	WordKeys []types.WordKey
}

// Document is the per-file word index: for every trigram that ever appeared
// in the file, its live history and commit-inclusivity bitmap, plus the set
// of commits that modified the file.
type Document struct {
	Words           map[types.Key]*WordIndex
	ModifiedCommits *roaring.Bitmap
	IsDeleted       bool

	allWords *wordSet
}

// NewDocument creates an empty document. It is created at the first commit
// that introduces the file and never destroyed; deletion only ends the live
// runs.
func NewDocument() *Document {
	return &Document{
		Words:           make(map[types.Key]*WordIndex),
		ModifiedCommits: roaring.New(),
	}
}

// AddWords records the trigrams introduced at commit c on the given lines.
func (d *Document) AddWords(c types.CommitIndex, words map[types.Key][]int) {
	for key, lines := range words {
		wi, ok := d.Words[key]
		if !ok {
			wi = newWordIndex()
			d.Words[key] = wi
		}

		for _, line := range lines {
			wi.History[types.WordKey{Commit: c, Line: line}] = struct{}{}
		}

		wi.Inclusivity.Add(uint32(c))
	}

	d.ModifiedCommits.Add(uint32(c))
}

// RemoveWords ends the given live introductions at commit c. When the last
// introduction of a trigram dies, its live run is closed by filling the
// inclusivity range [max(inclusivity), c). The fill is a no-op when the
// previous max is already at or past c-1.
//
// Returns an IndexingError when a word key is absent from history; the
// document is left in the state reached so far.
func (d *Document) RemoveWords(c types.CommitIndex, removals []WordRemoval) error {
	for _, removal := range removals {
		wi, ok := d.Words[removal.Key]
		if !ok {
			return errors.NewIndexingError("remove_words",
				fmt.Errorf("trigram %q not present in document", removal.Key.String())).
				WithCommit(c)
		}

		for _, wk := range removal.WordKeys {
			if _, ok := wi.History[wk]; !ok {
				return errors.NewIndexingError("remove_words",
					fmt.Errorf("word key (commit %d, line %d) absent from history of %q",
						wk.Commit, wk.Line, removal.Key.String())).
					WithCommit(c)
			}
			delete(wi.History, wk)
		}
	}

	// A deletion may name the same trigram several times; close each run
	// once.
	seen := make(map[types.Key]struct{}, len(removals))
	for _, removal := range removals {
		if _, ok := seen[removal.Key]; ok {
			continue
		}
		seen[removal.Key] = struct{}{}

		wi := d.Words[removal.Key]
		if len(wi.History) == 0 {
			fillRunEnd(wi.Inclusivity, c)
		}
	}

	d.ModifiedCommits.Add(uint32(c))
	return nil
}

// RemoveDocument ends every live run at commit c. Called when the file is
// deleted; inclusivity stays intact so historical search keeps working.
func (d *Document) RemoveDocument(c types.CommitIndex) {
	for _, wi := range d.Words {
		if len(wi.History) == 0 {
			continue
		}

		fillRunEnd(wi.Inclusivity, c)
		wi.History = make(map[types.WordKey]struct{})
	}

	d.ModifiedCommits.Add(uint32(c))
}

// Finalize extends every still-live run through headCommit and builds the
// document's finite-state word set. Must be called once the commit walk is
// done; queries rely on the FST.
func (d *Document) Finalize(headCommit types.CommitIndex) error {
	for _, wi := range d.Words {
		if wi.Inclusivity.Contains(uint32(headCommit)) {
			continue
		}

		if len(wi.History) == 0 {
			continue
		}

		if wi.Inclusivity.IsEmpty() {
			wi.Inclusivity.Add(uint32(headCommit))
			continue
		}
		wi.Inclusivity.AddRange(
			uint64(wi.Inclusivity.Maximum()), uint64(headCommit)+1)
	}

	keys := make([]types.Key, 0, len(d.Words))
	for k := range d.Words {
		keys = append(keys, k)
	}

	ws, err := buildWordSet(keys)
	if err != nil {
		return err
	}
	d.allWords = ws
	return nil
}

// AllWords returns the finalized finite-state set of every trigram that has
// ever appeared in this file, or nil before Finalize.
func (d *Document) AllWords() *vellum.FST {
	if d.allWords == nil {
		return nil
	}
	return d.allWords.fst
}

// fillRunEnd closes a live run at commit c: the trigram was still present at
// c-1, so the range [max(inclusivity), c) is filled. Empty inclusivity
// cannot happen for a trigram with history, but is tolerated.
func fillRunEnd(inclusivity *roaring.Bitmap, c types.CommitIndex) {
	if inclusivity.IsEmpty() {
		return
	}
	inclusivity.AddRange(uint64(inclusivity.Maximum()), uint64(c))
}
