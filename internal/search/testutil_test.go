package search

import (
	"fmt"
	"sort"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/standardbeagle/hgrep/internal/index"
	"github.com/standardbeagle/hgrep/internal/types"
)

// scriptedHistory implements index.Source and the query-path repo interfaces
// over an in-memory sequence of trees and hand-written zero-context diffs.
type scriptedHistory struct {
	commits []types.CommitHash
	trees   []map[string]string
	diffs   [][]index.FileDiff

	// paths is filled after the index is built so blob reads can resolve
	// file ids.
	paths []string

	readCount atomic.Int64
}

func commitHash(n byte) types.CommitHash {
	var h types.CommitHash
	h[0] = n
	return h
}

func (s *scriptedHistory) commitIndex(hash types.CommitHash) int {
	for i, h := range s.commits {
		if h == hash {
			return i
		}
	}
	return -1
}

func (s *scriptedHistory) Commits() ([]types.CommitHash, error) {
	return s.commits, nil
}

func (s *scriptedHistory) WalkTree(commit types.CommitHash, fn func(string, []byte) error) error {
	tree := s.trees[s.commitIndex(commit)]

	paths := make([]string, 0, len(tree))
	for path := range tree {
		paths = append(paths, path)
	}
	sort.Strings(paths)

	for _, path := range paths {
		if err := fn(path, []byte(tree[path])); err != nil {
			return err
		}
	}
	return nil
}

func (s *scriptedHistory) Diff(prev, cur types.CommitHash) ([]index.FileDiff, error) {
	return s.diffs[s.commitIndex(cur)], nil
}

func (s *scriptedHistory) ReadBlob(commit types.CommitHash, path string) ([]byte, bool, error) {
	content, ok := s.trees[s.commitIndex(commit)][path]
	return []byte(content), ok, nil
}

// ReadFileAtCommit implements RepoReader against the scripted trees.
func (s *scriptedHistory) ReadFileAtCommit(commit types.CommitIndex, fileID types.FileID) (string, string, bool, error) {
	s.readCount.Add(1)
	if int(fileID) >= len(s.paths) {
		return "", "", false, nil
	}
	path := s.paths[fileID]
	content, ok := s.trees[commit][path]
	return path, content, ok, nil
}

// CommitMeta implements CommitMetaReader with synthetic metadata.
func (s *scriptedHistory) CommitMeta(commit types.CommitIndex) (string, time.Time, string, error) {
	if int(commit) >= len(s.commits) {
		return "", time.Time{}, "", fmt.Errorf("no such commit %d", commit)
	}
	sha := fmt.Sprintf("%040x", int(s.commits[commit][0]))
	when := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC).Add(time.Duration(commit) * time.Hour)
	return sha, when, fmt.Sprintf("commit %d", commit), nil
}

func buildTestIndex(t *testing.T, history *scriptedHistory) *index.Index {
	t.Helper()

	indexer := index.NewIndexer(zap.NewNop())
	require.NoError(t, indexer.IndexHistory(history))

	idx, err := indexer.Build()
	require.NoError(t, err)

	history.paths = idx.FilePaths
	return idx
}

// singleFileHistory is the "hello world" → "hello brave world" scenario.
func singleFileHistory() *scriptedHistory {
	return &scriptedHistory{
		commits: []types.CommitHash{commitHash(1), commitHash(2)},
		trees: []map[string]string{
			{"a": "hello world"},
			{"a": "hello brave world"},
		},
		diffs: [][]index.FileDiff{
			nil,
			{{
				Path:   "a",
				Status: index.StatusModified,
				Hunks: []index.Hunk{{
					OldStart: 1, OldCount: 1,
					NewStart: 1, NewCount: 1,
					Deleted: []string{"hello world"},
					Added:   []string{"hello brave world"},
				}},
			}},
		},
	}
}

// colorHistory is the regex scenario: "color" at commit 0, "colour" added at
// commit 1.
func colorHistory() *scriptedHistory {
	return &scriptedHistory{
		commits: []types.CommitHash{commitHash(1), commitHash(2)},
		trees: []map[string]string{
			{"c.txt": "color"},
			{"c.txt": "color\ncolour"},
		},
		diffs: [][]index.FileDiff{
			nil,
			{{
				Path:   "c.txt",
				Status: index.StatusModified,
				Hunks: []index.Hunk{{
					OldStart: 1, OldCount: 0,
					NewStart: 2, NewCount: 1,
					Added: []string{"colour"},
				}},
			}},
		},
	}
}

// rootOnlyHistory is the single-commit scenario with one line of content.
func rootOnlyHistory() *scriptedHistory {
	return &scriptedHistory{
		commits: []types.CommitHash{commitHash(1)},
		trees: []map[string]string{
			{"foo.rs": "let quick = 1;"},
		},
	}
}

// removalHistory introduces "beta" at commit 0 and removes it at commit 1.
func removalHistory() *scriptedHistory {
	return &scriptedHistory{
		commits: []types.CommitHash{commitHash(1), commitHash(2)},
		trees: []map[string]string{
			{"a.txt": "alpha\nbeta"},
			{"a.txt": "alpha\ngamma"},
		},
		diffs: [][]index.FileDiff{
			nil,
			{{
				Path:   "a.txt",
				Status: index.StatusModified,
				Hunks: []index.Hunk{{
					OldStart: 2, OldCount: 1,
					NewStart: 2, NewCount: 1,
					Deleted: []string{"beta"},
					Added:   []string{"gamma"},
				}},
			}},
		},
	}
}
