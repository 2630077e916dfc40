package gitrepo

import (
	"testing"

	fdiff "github.com/go-git/go-git/v5/plumbing/format/diff"
	"github.com/stretchr/testify/assert"

	"github.com/standardbeagle/hgrep/internal/index"
)

type fakeChunk struct {
	content string
	op      fdiff.Operation
}

func (c fakeChunk) Content() string       { return c.content }
func (c fakeChunk) Type() fdiff.Operation { return c.op }

func eq(content string) fdiff.Chunk  { return fakeChunk{content: content, op: fdiff.Equal} }
func add(content string) fdiff.Chunk { return fakeChunk{content: content, op: fdiff.Add} }
func del(content string) fdiff.Chunk { return fakeChunk{content: content, op: fdiff.Delete} }

func TestHunksFromChunksReplacement(t *testing.T) {
	// old: a b c  →  new: a X c
	hunks := hunksFromChunks([]fdiff.Chunk{
		eq("a\n"),
		del("b\n"),
		add("X\n"),
		eq("c\n"),
	})

	assert.Equal(t, []index.Hunk{{
		OldStart: 2, OldCount: 1,
		NewStart: 2, NewCount: 1,
		Deleted: []string{"b"},
		Added:   []string{"X"},
	}}, hunks)
}

func TestHunksFromChunksPureInsertion(t *testing.T) {
	// old: a b  →  new: a X Y b; the insertion follows old line 1.
	hunks := hunksFromChunks([]fdiff.Chunk{
		eq("a\n"),
		add("X\nY\n"),
		eq("b\n"),
	})

	assert.Equal(t, []index.Hunk{{
		OldStart: 1, OldCount: 0,
		NewStart: 2, NewCount: 2,
		Added: []string{"X", "Y"},
	}}, hunks)
}

func TestHunksFromChunksPureDeletion(t *testing.T) {
	// old: a b c  →  new: a c
	hunks := hunksFromChunks([]fdiff.Chunk{
		eq("a\n"),
		del("b\n"),
		eq("c\n"),
	})

	assert.Equal(t, []index.Hunk{{
		OldStart: 2, OldCount: 1,
		NewStart: 1, NewCount: 0,
		Deleted: []string{"b"},
	}}, hunks)
}

func TestHunksFromChunksMultipleHunks(t *testing.T) {
	// old: a b c d e  →  new: A b c d E
	hunks := hunksFromChunks([]fdiff.Chunk{
		del("a\n"),
		add("A\n"),
		eq("b\nc\nd\n"),
		del("e\n"),
		add("E\n"),
	})

	assert.Equal(t, []index.Hunk{
		{
			OldStart: 1, OldCount: 1,
			NewStart: 1, NewCount: 1,
			Deleted: []string{"a"},
			Added:   []string{"A"},
		},
		{
			OldStart: 5, OldCount: 1,
			NewStart: 5, NewCount: 1,
			Deleted: []string{"e"},
			Added:   []string{"E"},
		},
	}, hunks)
}

func TestHunksFromChunksInsertionAtTop(t *testing.T) {
	hunks := hunksFromChunks([]fdiff.Chunk{
		add("X\n"),
		eq("a\n"),
	})

	assert.Equal(t, []index.Hunk{{
		OldStart: 0, OldCount: 0,
		NewStart: 1, NewCount: 1,
		Added: []string{"X"},
	}}, hunks)
}

func TestHunksFromChunksWholeFileAdded(t *testing.T) {
	hunks := hunksFromChunks([]fdiff.Chunk{
		add("a\nb\n"),
	})

	assert.Equal(t, []index.Hunk{{
		OldStart: 0, OldCount: 0,
		NewStart: 1, NewCount: 2,
		Added: []string{"a", "b"},
	}}, hunks)
}

func TestHunksFromChunksWholeFileDeleted(t *testing.T) {
	hunks := hunksFromChunks([]fdiff.Chunk{
		del("a\nb\n"),
	})

	assert.Equal(t, []index.Hunk{{
		OldStart: 1, OldCount: 2,
		NewStart: 0, NewCount: 0,
		Deleted: []string{"a", "b"},
	}}, hunks)
}

func TestHunksFromChunksAddBeforeDelete(t *testing.T) {
	// Some diff streams emit Add before Delete inside one change block; both
	// must land in the same hunk with correct coordinates.
	hunks := hunksFromChunks([]fdiff.Chunk{
		eq("a\n"),
		add("X\n"),
		del("b\n"),
		eq("c\n"),
	})

	assert.Equal(t, []index.Hunk{{
		OldStart: 2, OldCount: 1,
		NewStart: 2, NewCount: 1,
		Deleted: []string{"b"},
		Added:   []string{"X"},
	}}, hunks)
}

func TestHunksFromChunksCRLF(t *testing.T) {
	hunks := hunksFromChunks([]fdiff.Chunk{
		del("a\r\n"),
		add("b\r\n"),
	})

	assert.Equal(t, []index.Hunk{{
		OldStart: 1, OldCount: 1,
		NewStart: 1, NewCount: 1,
		Deleted: []string{"a"},
		Added:   []string{"b"},
	}}, hunks)
}

func TestHunksFromChunksNoTrailingNewline(t *testing.T) {
	hunks := hunksFromChunks([]fdiff.Chunk{
		add("only line"),
	})

	assert.Equal(t, []index.Hunk{{
		OldStart: 0, OldCount: 0,
		NewStart: 1, NewCount: 1,
		Added: []string{"only line"},
	}}, hunks)
}

func TestSplitChunkLines(t *testing.T) {
	assert.Nil(t, splitChunkLines(""))
	assert.Equal(t, []string{"a"}, splitChunkLines("a"))
	assert.Equal(t, []string{"a"}, splitChunkLines("a\n"))
	assert.Equal(t, []string{"a", "b"}, splitChunkLines("a\nb\n"))
	assert.Equal(t, []string{"a", ""}, splitChunkLines("a\n\n"))
}
