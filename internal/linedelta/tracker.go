// Package linedelta tracks, for every current line of a file, the commit and
// the line-within-that-commit that introduced it.
//
// Lines are stored as runs: consecutive lines introduced by the same commit
// share one chunk, keyed by the ending line offset of the run. Insertions and
// deletions therefore touch O(runs) entries instead of O(lines).
package linedelta

import (
	"sort"

	"github.com/standardbeagle/hgrep/internal/types"
)

// Origin is the provenance of a run: the commit that introduced it and the
// first line the run occupied within that commit's version of the file.
type Origin struct {
	Commit types.CommitIndex
	Line   int
}

// DeleteResult reports one run (or part of one) removed by DeleteLines. Start
// and End are the half-open [Start, End) line span within the originating
// commit's version of the file.
type DeleteResult struct {
	Commit types.CommitIndex
	Start  int
	End    int
}

// Tracker maps every current line of one file to its origin.
type Tracker struct {
	// lineEnds[i] is the line offset at which run i ends (exclusive).
	lineEnds []int
	origins  []Origin
}

// New creates a tracker for a file created at initCommit with totalLines
// lines, all originating at line 0 of that commit.
func New(initCommit types.CommitIndex, totalLines int) *Tracker {
	return &Tracker{
		lineEnds: []int{totalLines},
		origins:  []Origin{{Commit: initCommit, Line: 0}},
	}
}

// AddLines inserts count lines at insertStart carrying the given origin. A
// run containing insertStart is split; following run ends shift by count.
// No-op when count is zero.
func (t *Tracker) AddLines(insertStart, count int, origin Origin) {
	if count == 0 {
		return
	}

	chunkIndex := t.findChunkByLine(insertStart)
	if chunkIndex == len(t.lineEnds) {
		// Append past end-of-file.
		last := 0
		if len(t.lineEnds) > 0 {
			last = t.lineEnds[len(t.lineEnds)-1]
		}
		t.lineEnds = append(t.lineEnds, last+count)
		t.origins = append(t.origins, origin)
		return
	}

	chunkStart := t.chunkStart(chunkIndex)

	if chunkStart == insertStart {
		t.lineEnds = insertInt(t.lineEnds, chunkIndex, chunkStart+count)
		t.origins = insertOrigin(t.origins, chunkIndex, origin)

		for i := chunkIndex + 1; i < len(t.lineEnds); i++ {
			t.lineEnds[i] += count
		}
		return
	}

	// The insertion falls inside a run: split it around the new lines.
	prevEnd := t.lineEnds[chunkIndex]
	t.lineEnds[chunkIndex] = insertStart
	t.lineEnds = insertInts(t.lineEnds, chunkIndex+1,
		insertStart+count, prevEnd+count)

	for i := chunkIndex + 3; i < len(t.lineEnds); i++ {
		t.lineEnds[i] += count
	}

	split := t.origins[chunkIndex]
	t.origins = insertOrigins(t.origins, chunkIndex+1,
		origin,
		Origin{
			Commit: split.Commit,
			// The tail of the split run starts where the insertion cut it.
			Line: split.Line + (insertStart - chunkStart),
		})
}

// DeleteLines removes count lines starting at deleteStart and returns, per
// affected run, the origin span that disappeared. No-op when count is zero.
//
// Three shapes matter:
//  1. the deletion covers the right end of the first run and the left end of
//     the last run: the last run's origin line advances by the number of
//     left-truncated lines;
//  2. the deletion is strictly inside one run: the run splits in two with the
//     tail's origin line advanced past the deleted span;
//  3. the deletion ends exactly at a run boundary: origin lines stay put.
func (t *Tracker) DeleteLines(deleteStart, count int) []DeleteResult {
	if count == 0 {
		return nil
	}

	startIndex := t.findChunkByLine(deleteStart)
	endIndex := t.findChunkByLine(deleteStart + count - 1)

	if startIndex == endIndex {
		chunkStart := t.chunkStart(startIndex)

		// Shape 2: the only case that splits a run.
		if chunkStart < deleteStart && deleteStart+count < t.lineEnds[startIndex] {
			origin := t.origins[startIndex]
			t.origins = insertOrigin(t.origins, startIndex+1, Origin{
				Commit: origin.Commit,
				Line:   origin.Line + deleteStart + count - chunkStart,
			})
			t.lineEnds = insertInt(t.lineEnds, startIndex, deleteStart)

			for i := startIndex + 1; i < len(t.lineEnds); i++ {
				t.lineEnds[i] = saturatingSub(t.lineEnds[i], count)
			}

			deletePos := origin.Line + deleteStart - chunkStart
			return []DeleteResult{{
				Commit: origin.Commit,
				Start:  deletePos,
				End:    deletePos + count,
			}}
		}
	}

	results := make([]DeleteResult, 0, endIndex-startIndex+1)

	for i := startIndex; i <= endIndex; i++ {
		chunkStart := t.chunkStart(i)

		startOffset := 0
		if chunkStart < deleteStart {
			startOffset = deleteStart - chunkStart
		}

		var endOffset int
		if t.lineEnds[i] < deleteStart+count {
			endOffset = t.lineEnds[i] - chunkStart
		} else {
			endOffset = deleteStart + count - chunkStart
		}

		origin := t.origins[i]
		results = append(results, DeleteResult{
			Commit: origin.Commit,
			Start:  origin.Line + startOffset,
			End:    origin.Line + endOffset,
		})
	}

	// Runs fully covered by the deletion get purged below.
	shouldDeleteStart := (t.lineEnds[startIndex]-t.chunkStart(startIndex)) <= count &&
		t.chunkStart(startIndex) == deleteStart
	shouldDeleteEnd := t.lineEnds[endIndex] == deleteStart+count

	purgeStart := startIndex + 1
	if shouldDeleteStart {
		purgeStart = startIndex
	}
	purgeEnd := saturatingSub(endIndex, 1)
	if shouldDeleteEnd {
		purgeEnd = endIndex
	}

	// Shape 1: the last run loses its left edge, its origin line advances.
	lastChunkStart := t.chunkStart(endIndex)
	if lastChunkStart >= deleteStart {
		t.origins[endIndex].Line += deleteStart + count - lastChunkStart
	}

	numFromStart := minInt(t.lineEnds[startIndex], deleteStart+count) - deleteStart
	t.lineEnds[startIndex] -= numFromStart

	for i := startIndex + 1; i < len(t.lineEnds); i++ {
		// Entries between startIndex and endIndex go wrong here, but they are
		// drained just below.
		t.lineEnds[i] = saturatingSub(t.lineEnds[i], count)
	}

	if purgeStart <= purgeEnd {
		t.lineEnds = append(t.lineEnds[:purgeStart], t.lineEnds[purgeEnd+1:]...)
		t.origins = append(t.origins[:purgeStart], t.origins[purgeEnd+1:]...)
	}

	return results
}

// DeleteAll empties the tracker; used when the file is deleted at a commit.
func (t *Tracker) DeleteAll() {
	t.lineEnds = t.lineEnds[:0]
	t.origins = t.origins[:0]
}

// Len returns the current number of tracked lines.
func (t *Tracker) Len() int {
	if len(t.lineEnds) == 0 {
		return 0
	}
	return t.lineEnds[len(t.lineEnds)-1]
}

func (t *Tracker) findChunkByLine(lineNum int) int {
	idx := sort.SearchInts(t.lineEnds, lineNum)
	if idx < len(t.lineEnds) && t.lineEnds[idx] == lineNum {
		return idx + 1
	}
	return idx
}

func (t *Tracker) chunkStart(chunkIndex int) int {
	if chunkIndex == 0 {
		return 0
	}
	return t.lineEnds[chunkIndex-1]
}

func insertInt(s []int, at, value int) []int {
	s = append(s, 0)
	copy(s[at+1:], s[at:])
	s[at] = value
	return s
}

func insertInts(s []int, at int, a, b int) []int {
	s = append(s, 0, 0)
	copy(s[at+2:], s[at:])
	s[at] = a
	s[at+1] = b
	return s
}

func insertOrigin(s []Origin, at int, value Origin) []Origin {
	s = append(s, Origin{})
	copy(s[at+1:], s[at:])
	s[at] = value
	return s
}

func insertOrigins(s []Origin, at int, a, b Origin) []Origin {
	s = append(s, Origin{}, Origin{})
	copy(s[at+2:], s[at:])
	s[at] = a
	s[at+1] = b
	return s
}

func saturatingSub(a, b int) int {
	if a < b {
		return 0
	}
	return a - b
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}
