package index

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/RoaringBitmap/roaring/v2"
	"go.uber.org/zap"

	"github.com/standardbeagle/hgrep/internal/errors"
	"github.com/standardbeagle/hgrep/internal/linedelta"
	"github.com/standardbeagle/hgrep/internal/tokenizer"
	"github.com/standardbeagle/hgrep/internal/types"
)

// DiffStatus classifies one file entry of a tree-to-tree diff.
type DiffStatus int

const (
	StatusAdded DiffStatus = iota
	StatusModified
	StatusDeleted
)

// Hunk is one change block of a zero-context diff. Line numbers are the
// 1-based values of the unified hunk header: a pure insertion reports the old
// line *after which* lines were inserted in OldStart with OldCount zero.
type Hunk struct {
	OldStart int
	OldCount int
	NewStart int
	NewCount int

	Added   []string
	Deleted []string
}

// FileDiff is the diff of one path between two adjacent commits of the walk.
type FileDiff struct {
	Path   string
	Status DiffStatus
	Hunks  []Hunk
}

// Source enumerates history for the indexer. Implementations must deliver
// commits in topological-then-reverse order (root first) and diffs with zero
// context lines.
type Source interface {
	// Commits returns every commit hash reachable from HEAD, root first.
	Commits() ([]types.CommitHash, error)

	// WalkTree yields every blob of the commit's tree.
	WalkTree(commit types.CommitHash, fn func(path string, content []byte) error) error

	// Diff reports the changes from prev's tree to cur's tree.
	Diff(prev, cur types.CommitHash) ([]FileDiff, error)

	// ReadBlob reads one blob at a commit; ok is false when the path is
	// absent or not a blob.
	ReadBlob(commit types.CommitHash, path string) ([]byte, bool, error)
}

// Indexer drives the commit walk and accumulates the per-file documents and
// global bitmaps. Indexing is single-threaded: each commit's diff references
// the state left by the previous one.
type Indexer struct {
	commitHashes      []types.CommitHash
	commitHashToIndex map[types.CommitHash]types.CommitIndex

	fileNameToID map[string]types.FileID
	fileIDToPath []string

	trackers  map[types.FileID]*linedelta.Tracker
	documents map[types.FileID]*Document

	wordToFiles map[types.Key]*roaring.Bitmap

	checker *BinaryChecker
	logger  *zap.Logger
}

// NewIndexer creates an indexer. logger may not be nil; pass zap.NewNop()
// when logging is unwanted.
func NewIndexer(logger *zap.Logger) *Indexer {
	return &Indexer{
		commitHashToIndex: make(map[types.CommitHash]types.CommitIndex),
		fileNameToID:      make(map[string]types.FileID),
		trackers:          make(map[types.FileID]*linedelta.Tracker),
		documents:         make(map[types.FileID]*Document),
		wordToFiles:       make(map[types.Key]*roaring.Bitmap),
		checker:           NewBinaryChecker(),
		logger:            logger,
	}
}

// IndexHistory walks every commit of the source. A fatal indexing error stops
// the walk; the prefix processed so far stays consistent and can still be
// finalized with Build.
func (ix *Indexer) IndexHistory(src Source) error {
	commits, err := src.Commits()
	if err != nil {
		return err
	}

	for i, hash := range commits {
		c := types.CommitIndex(i)
		ix.commitHashes = append(ix.commitHashes, hash)
		ix.commitHashToIndex[hash] = c

		if i == 0 {
			if err := ix.indexTree(c, hash, src); err != nil {
				ix.logger.Error("indexing root tree failed",
					zap.Uint32("commit", uint32(c)), zap.Error(err))
				return err
			}
			continue
		}

		diffs, err := src.Diff(commits[i-1], hash)
		if err != nil {
			return err
		}

		for _, fd := range diffs {
			if err := ix.indexFileDiff(c, hash, fd, src); err != nil {
				ix.logger.Error("indexing diff failed",
					zap.Uint32("commit", uint32(c)),
					zap.String("path", fd.Path),
					zap.Error(err))
				return err
			}
		}
	}

	return nil
}

// Build finalizes every document at the last processed commit and assembles
// the global index.
func (ix *Indexer) Build() (*Index, error) {
	if len(ix.commitHashes) == 0 {
		return nil, errors.NewIndexingError("build", fmt.Errorf("no commits indexed"))
	}

	head := types.CommitIndex(len(ix.commitHashes) - 1)

	notDeleted := roaring.New()
	documents := make([]*Document, len(ix.fileIDToPath))
	for fid, doc := range ix.documents {
		if err := doc.Finalize(head); err != nil {
			return nil, err
		}
		documents[fid] = doc
		if !doc.IsDeleted {
			notDeleted.Add(uint32(fid))
		}
	}

	keys := make([]types.Key, 0, len(ix.wordToFiles))
	for k := range ix.wordToFiles {
		keys = append(keys, k)
	}
	allWords, err := buildWordSet(keys)
	if err != nil {
		return nil, err
	}

	return &Index{
		CommitHashes:      ix.commitHashes,
		commitHashToIndex: ix.commitHashToIndex,
		FilePaths:         ix.fileIDToPath,
		Documents:         documents,
		WordToFiles:       ix.wordToFiles,
		NotDeletedHead:    notDeleted,
		allWords:          allWords,
	}, nil
}

// indexTree indexes every text blob of the root commit.
func (ix *Indexer) indexTree(c types.CommitIndex, hash types.CommitHash, src Source) error {
	return src.WalkTree(hash, func(path string, content []byte) error {
		if !ix.checker.IsText(content, fileExt(path)) {
			ix.logger.Debug("skipping binary blob", zap.String("path", path))
			return nil
		}

		fid := ix.fileID(path)
		ix.addNewLines(c, fid, 0, 0, splitContentLines(content))
		return nil
	})
}

func (ix *Indexer) indexFileDiff(c types.CommitIndex, commit types.CommitHash, fd FileDiff, src Source) error {
	switch fd.Status {
	case StatusAdded:
		return ix.indexAddedFile(c, commit, fd, src)

	case StatusModified:
		fid, ok := ix.fileNameToID[fd.Path]
		if !ok || ix.documents[fid] == nil {
			// The file was rejected as binary earlier; its edits stay out of
			// the index.
			return nil
		}
		return ix.indexModifiedFile(c, fid, fd)

	case StatusDeleted:
		fid, ok := ix.fileNameToID[fd.Path]
		if !ok || ix.documents[fid] == nil {
			return nil
		}

		if len(fd.Hunks) != 1 || fd.Hunks[0].NewStart != 0 {
			return errors.NewIndexingError("delete_file",
				fmt.Errorf("unexpected hunks for deleted file: %+v", fd.Hunks)).
				WithFile(fid, fd.Path).WithCommit(c)
		}

		ix.trackers[fid].DeleteAll()
		doc := ix.documents[fid]
		doc.RemoveDocument(c)
		doc.IsDeleted = true
		return nil
	}

	return nil
}

func (ix *Indexer) indexAddedFile(c types.CommitIndex, commit types.CommitHash, fd FileDiff, src Source) error {
	content, ok, err := src.ReadBlob(commit, fd.Path)
	if err != nil {
		return err
	}
	if ok && !ix.checker.IsText(content, fileExt(fd.Path)) {
		ix.logger.Debug("skipping binary blob", zap.String("path", fd.Path))
		return nil
	}

	if len(fd.Hunks) != 1 {
		return errors.NewIndexingError("add_file",
			fmt.Errorf("new file should have one hunk, got %d", len(fd.Hunks))).
			WithCommit(c)
	}
	if fd.Hunks[0].NewStart != 1 || fd.Hunks[0].OldStart != 0 {
		return errors.NewIndexingError("add_file",
			fmt.Errorf("new file hunk has unexpected bounds: %+v", fd.Hunks[0])).
			WithCommit(c)
	}

	fid := ix.fileID(fd.Path)
	if doc := ix.documents[fid]; doc != nil {
		// The path existed before, was deleted, and is reappearing.
		doc.IsDeleted = false
	}

	ix.addNewLines(c, fid, 0, 0, fd.Hunks[0].Added)
	return nil
}

// indexModifiedFile applies hunks in reverse order so earlier hunks' offsets
// stay valid while later ones mutate the tracker.
func (ix *Indexer) indexModifiedFile(c types.CommitIndex, fid types.FileID, fd FileDiff) error {
	for i := len(fd.Hunks) - 1; i >= 0; i-- {
		hunk := fd.Hunks[i]

		if hunk.OldStart == 0 && hunk.OldCount != 0 {
			return errors.NewIndexingError("modify_file",
				fmt.Errorf("hunk with old start 0 but old count %d", hunk.OldCount)).
				WithFile(fid, fd.Path).WithCommit(c)
		}
		if hunk.NewStart == 0 && hunk.NewCount != 0 {
			return errors.NewIndexingError("modify_file",
				fmt.Errorf("hunk with new start 0 but new count %d", hunk.NewCount)).
				WithFile(fid, fd.Path).WithCommit(c)
		}

		if hunk.OldCount > 0 {
			// The hunk header is 1-based and names the first deleted line;
			// the tracker is 0-based.
			if err := ix.deleteLines(c, fid, hunk.OldStart-1, hunk.Deleted); err != nil {
				return err
			}

			if hunk.NewCount > 0 {
				ix.addNewLines(c, fid, hunk.OldStart-1, hunk.NewStart-1, hunk.Added)
			}
		} else {
			// Pure insertion: lines land after old line OldStart, which is
			// exactly offset OldStart in 0-based terms.
			ix.addNewLines(c, fid, hunk.OldStart, hunk.NewStart-1, hunk.Added)
		}
	}

	return nil
}

// addNewLines threads an insertion through the tracker, tokenizes the added
// text, and feeds the document and the global word map.
func (ix *Indexer) addNewLines(c types.CommitIndex, fid types.FileID, prevLineStart, newLineStart int, lines []string) {
	if tracker, ok := ix.trackers[fid]; ok {
		tracker.AddLines(prevLineStart, len(lines),
			linedelta.Origin{Commit: c, Line: newLineStart})
	} else {
		ix.trackers[fid] = linedelta.New(c, len(lines))
	}

	tokens := tokenizer.SplitLines(lines, newLineStart)

	doc, ok := ix.documents[fid]
	if !ok {
		doc = NewDocument()
		ix.documents[fid] = doc
	}

	for key := range tokens {
		files, ok := ix.wordToFiles[key]
		if !ok {
			files = roaring.New()
			ix.wordToFiles[key] = files
		}
		files.Add(uint32(fid))
	}

	doc.AddWords(c, tokens)
}

// deleteLines removes lines from the tracker, recovers which trigram
// introductions died from the removed text, and ends them in the document.
func (ix *Indexer) deleteLines(c types.CommitIndex, fid types.FileID, deleteStart int, lines []string) error {
	tracker, ok := ix.trackers[fid]
	if !ok {
		return errors.NewIndexingError("delete_lines",
			fmt.Errorf("no line tracker for file")).
			WithFile(fid, ix.fileIDToPath[fid]).WithCommit(c)
	}

	deleteResults := tracker.DeleteLines(deleteStart, len(lines))

	wordKeyPerLine := flattenDeleteResults(deleteResults)
	if len(wordKeyPerLine) != len(lines) {
		return errors.NewIndexingError("delete_lines",
			fmt.Errorf("tracker removed %d lines, diff removed %d",
				len(wordKeyPerLine), len(lines))).
			WithFile(fid, ix.fileIDToPath[fid]).WithCommit(c)
	}

	// Tokenize the removed text with line 0 as base: the local line number
	// selects the (commit, line) pair that introduced it.
	tokens := tokenizer.SplitLines(lines, 0)

	removals := make([]WordRemoval, 0, len(tokens))
	for key, localLines := range tokens {
		wordKeys := make([]types.WordKey, len(localLines))
		for i, line := range localLines {
			wordKeys[i] = wordKeyPerLine[line]
		}
		removals = append(removals, WordRemoval{Key: key, WordKeys: wordKeys})
	}

	doc := ix.documents[fid]
	if doc == nil {
		return errors.NewIndexingError("delete_lines",
			fmt.Errorf("no document for file")).
			WithFile(fid, ix.fileIDToPath[fid]).WithCommit(c)
	}

	if err := doc.RemoveWords(c, removals); err != nil {
		return err
	}
	return nil
}

func (ix *Indexer) fileID(path string) types.FileID {
	if id, ok := ix.fileNameToID[path]; ok {
		return id
	}

	id := types.FileID(len(ix.fileIDToPath))
	ix.fileNameToID[path] = id
	ix.fileIDToPath = append(ix.fileIDToPath, path)
	return id
}

// flattenDeleteResults expands run spans into one word key per deleted line,
// in deletion order.
func flattenDeleteResults(results []linedelta.DeleteResult) []types.WordKey {
	total := 0
	for _, r := range results {
		total += r.End - r.Start
	}

	keys := make([]types.WordKey, 0, total)
	for _, r := range results {
		for line := r.Start; line < r.End; line++ {
			keys = append(keys, types.WordKey{Commit: r.Commit, Line: line})
		}
	}
	return keys
}

// splitContentLines splits blob bytes into lines the way diffs report them:
// on '\n', without the trailing newline, with a trailing '\r' stripped. The
// content is decoded lossily so non-UTF-8 bytes cannot poison keys.
func splitContentLines(content []byte) []string {
	text := strings.ToValidUTF8(string(content), "�")
	if text == "" {
		return nil
	}

	lines := strings.Split(text, "\n")
	if lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	for i, line := range lines {
		lines[i] = strings.TrimSuffix(line, "\r")
	}
	return lines
}

func fileExt(path string) string {
	ext := filepath.Ext(path)
	return strings.ToLower(strings.TrimPrefix(ext, "."))
}
