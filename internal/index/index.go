package index

import (
	"github.com/RoaringBitmap/roaring/v2"
	"github.com/blevesearch/vellum"

	"github.com/standardbeagle/hgrep/internal/types"
)

// Index is the finalized, read-only search index: dense commit and file id
// spaces, per-file documents, the global word→files map, and the global
// finite-state set of every trigram ever observed.
//
// An Index is a value with no global state; once built or loaded it is
// shared for reads and never mutated while serving.
type Index struct {
	CommitHashes      []types.CommitHash
	commitHashToIndex map[types.CommitHash]types.CommitIndex

	// FilePaths[id] is the path of file id; Documents is parallel to it.
	// Entries of Documents may be nil for ids that never produced a document.
	FilePaths []string
	Documents []*Document

	// WordToFiles maps a trigram to every file id that ever contained it.
	WordToFiles map[types.Key]*roaring.Bitmap

	// NotDeletedHead is the set of file ids still present at HEAD.
	NotDeletedHead *roaring.Bitmap

	allWords *wordSet
}

// HeadCommit returns the commit index of HEAD.
func (ix *Index) HeadCommit() types.CommitIndex {
	return types.CommitIndex(len(ix.CommitHashes) - 1)
}

// CommitCount returns the number of indexed commits.
func (ix *Index) CommitCount() int {
	return len(ix.CommitHashes)
}

// CommitIndexOf resolves a commit hash to its dense index.
func (ix *Index) CommitIndexOf(hash types.CommitHash) (types.CommitIndex, bool) {
	c, ok := ix.commitHashToIndex[hash]
	return c, ok
}

// Document returns the document of a file id, or nil.
func (ix *Index) Document(fid types.FileID) *Document {
	if int(fid) >= len(ix.Documents) {
		return nil
	}
	return ix.Documents[fid]
}

// Path returns the path of a file id.
func (ix *Index) Path(fid types.FileID) string {
	if int(fid) >= len(ix.FilePaths) {
		return ""
	}
	return ix.FilePaths[fid]
}

// AllWords returns the global finite-state set of trigram keys.
func (ix *Index) AllWords() *vellum.FST {
	return ix.allWords.fst
}
