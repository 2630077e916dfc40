package search

import (
	"testing"

	"github.com/RoaringBitmap/roaring/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	hgerrors "github.com/standardbeagle/hgrep/internal/errors"
	"github.com/standardbeagle/hgrep/internal/types"
)

func materializeFirst(t *testing.T, history *scriptedHistory, query string, mode Mode) (*SearchResult, []RawResult) {
	t.Helper()

	idx := buildTestIndex(t, history)
	searcher := NewSearcher(idx)

	var (
		raw []RawResult
		err error
	)
	if mode == ModePlain {
		raw, err = searcher.PlainSearch(query, SearchOption{})
	} else {
		raw, _, err = searcher.RegexSearch(query, SearchOption{})
	}
	require.NoError(t, err)
	require.NotEmpty(t, raw)

	result, err := Materialize(history, idx, &raw[0])
	require.NoError(t, err)
	return result, raw
}

func TestMaterializeRootOnlyMatch(t *testing.T) {
	result, _ := materializeFirst(t, rootOnlyHistory(), "quick", ModePlain)
	require.NotNil(t, result)

	assert.Equal(t, "foo.rs", result.FilePath)
	assert.Equal(t, types.CommitIndex(0), result.First.Commit)
	assert.Nil(t, result.Last)
	assert.Equal(t, []Highlight{{Term: "quick", Column: 4}}, result.First.WordsPerLine[0])
}

func TestMaterializeRemovedWordHasNoLastMatch(t *testing.T) {
	result, _ := materializeFirst(t, removalHistory(), "beta", ModePlain)
	require.NotNil(t, result)

	assert.Equal(t, types.CommitIndex(0), result.First.Commit)
	assert.Nil(t, result.Last)
}

func TestMaterializePersistingWordFirstAndLast(t *testing.T) {
	result, _ := materializeFirst(t, singleFileHistory(), "hello", ModePlain)
	require.NotNil(t, result)

	assert.Equal(t, types.CommitIndex(0), result.First.Commit)
	require.NotNil(t, result.Last)
	assert.Equal(t, types.CommitIndex(1), result.Last.Commit)
}

func TestMaterializeRegexAcrossSpellings(t *testing.T) {
	history := colorHistory()
	idx := buildTestIndex(t, history)
	searcher := NewSearcher(idx)

	raw, _, err := searcher.RegexSearch("colou?r", SearchOption{})
	require.NoError(t, err)
	require.NotEmpty(t, raw)

	// Pick the branch covering both commits.
	var widest *RawResult
	for i := range raw {
		if widest == nil || raw[i].Overlapped.GetCardinality() > widest.Overlapped.GetCardinality() {
			widest = &raw[i]
		}
	}

	result, err := Materialize(history, idx, widest)
	require.NoError(t, err)
	require.NotNil(t, result)

	assert.Equal(t, types.CommitIndex(0), result.First.Commit)
	assert.Equal(t, []Highlight{{Term: "color", Column: 0}}, result.First.WordsPerLine[0])

	require.NotNil(t, result.Last)
	assert.Equal(t, types.CommitIndex(1), result.Last.Commit)
	// At commit 1 both spellings exist; the first per line is recorded.
	assert.Equal(t, []Highlight{{Term: "colour", Column: 0}}, result.Last.WordsPerLine[1])
}

func TestMaterializeFalsePositiveIsDiscarded(t *testing.T) {
	// The file contains all trigrams of "herald" spread across lines, but
	// never the word itself: raw search reports it, re-check rejects it.
	history := &scriptedHistory{
		commits: []types.CommitHash{commitHash(1)},
		trees: []map[string]string{
			{"t.txt": "heralx\nerald"},
		},
	}
	idx := buildTestIndex(t, history)
	searcher := NewSearcher(idx)

	raw, err := searcher.PlainSearch("herald", SearchOption{})
	require.NoError(t, err)
	require.Len(t, raw, 1, "trigram filter should over-approximate")

	result, err := Materialize(history, idx, &raw[0])
	require.NoError(t, err)
	assert.Nil(t, result)
}

func TestMaterializeInvalidCommitIndex(t *testing.T) {
	history := rootOnlyHistory()
	idx := buildTestIndex(t, history)

	raw := RawResult{
		FileID:     0,
		Mode:       ModePlain,
		Words:      []string{"quick"},
		Overlapped: roaring.BitmapOf(0, 99),
	}

	_, err := Materialize(history, idx, &raw)
	require.Error(t, err)
	assert.True(t, hgerrors.IsInvalidCommitIndex(err))
}

func TestMaterializeAbsentBlobSkipsCommit(t *testing.T) {
	history := singleFileHistory()
	idx := buildTestIndex(t, history)

	// Pretend the blob is missing at commit 0; the walk must move on to
	// commit 1 instead of failing.
	delete(history.trees[0], "a")

	raw := RawResult{
		FileID:     0,
		Mode:       ModePlain,
		Words:      []string{"hello"},
		Overlapped: roaring.BitmapOf(0, 1),
	}

	result, err := Materialize(history, idx, &raw)
	require.NoError(t, err)
	require.NotNil(t, result)
	assert.Equal(t, types.CommitIndex(1), result.First.Commit)
	assert.Nil(t, result.Last)
}

func TestNewSearchHit(t *testing.T) {
	history := singleFileHistory()
	result, _ := materializeFirst(t, singleFileHistory(), "hello", ModePlain)
	require.NotNil(t, result)

	hit, err := NewSearchHit(history, result)
	require.NoError(t, err)

	assert.Equal(t, "a", hit.FilePath)
	assert.Equal(t, uint32(0), hit.FirstMatch.CommitIndex)
	assert.Equal(t, "commit 0", hit.FirstMatch.CommitSummary)
	assert.Equal(t, "2024-05-01T12:00:00Z", hit.FirstMatch.CommitDate)
	require.Len(t, hit.FirstMatch.Lines, 1)
	assert.Equal(t, 1, hit.FirstMatch.Lines[0].LineNumber)
	assert.Equal(t, "hello world", hit.FirstMatch.Lines[0].Content)

	require.NotNil(t, hit.LastMatch)
	assert.Equal(t, uint32(1), hit.LastMatch.CommitIndex)
}
