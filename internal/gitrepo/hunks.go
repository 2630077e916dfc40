package gitrepo

import (
	"strings"

	fdiff "github.com/go-git/go-git/v5/plumbing/format/diff"

	"github.com/standardbeagle/hgrep/internal/index"
)

// hunksFromChunks converts a file patch's Equal/Add/Delete chunk stream into
// zero-context hunks with 1-based unified-diff header coordinates. Adjacent
// Add/Delete runs coalesce into one hunk; an Equal chunk closes the open
// hunk. A pure insertion reports the old line it follows in OldStart with
// OldCount zero, matching `diff -U0`.
func hunksFromChunks(chunks []fdiff.Chunk) []index.Hunk {
	var hunks []index.Hunk

	oldNext, newNext := 1, 1

	var (
		open     bool
		oldStart int
		newStart int
		deleted  []string
		added    []string
	)

	closeHunk := func() {
		if !open {
			return
		}

		hunk := index.Hunk{
			OldCount: len(deleted),
			NewCount: len(added),
			Deleted:  deleted,
			Added:    added,
		}
		if len(deleted) > 0 {
			hunk.OldStart = oldStart
		} else {
			hunk.OldStart = oldNext - 1
		}
		if len(added) > 0 {
			hunk.NewStart = newStart
		} else {
			hunk.NewStart = newNext - 1
		}

		hunks = append(hunks, hunk)
		open, deleted, added = false, nil, nil
	}

	for _, chunk := range chunks {
		lines := splitChunkLines(chunk.Content())
		if len(lines) == 0 {
			continue
		}

		switch chunk.Type() {
		case fdiff.Equal:
			closeHunk()
			oldNext += len(lines)
			newNext += len(lines)

		case fdiff.Delete:
			if !open {
				open = true
			}
			if len(deleted) == 0 {
				oldStart = oldNext
			}
			deleted = append(deleted, lines...)
			oldNext += len(lines)

		case fdiff.Add:
			if !open {
				open = true
			}
			if len(added) == 0 {
				newStart = newNext
			}
			added = append(added, lines...)
			newNext += len(lines)
		}
	}
	closeHunk()

	return hunks
}

// splitChunkLines splits chunk text into lines, dropping the trailing
// newline's empty remainder and any carriage returns.
func splitChunkLines(content string) []string {
	if content == "" {
		return nil
	}

	lines := strings.Split(content, "\n")
	if lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	for i, line := range lines {
		lines[i] = strings.TrimSuffix(line, "\r")
	}
	return lines
}
