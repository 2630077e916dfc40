package search

import (
	"regexp"
	"time"

	"github.com/standardbeagle/hgrep/internal/errors"
	"github.com/standardbeagle/hgrep/internal/index"
	"github.com/standardbeagle/hgrep/internal/types"
)

// RepoReader reads blobs at specific commits on the query path. ok is false
// when the path is absent at that commit or is not a blob.
type RepoReader interface {
	ReadFileAtCommit(commit types.CommitIndex, fileID types.FileID) (path string, content string, ok bool, err error)
}

// CommitMetaReader resolves commit metadata for result presentation.
type CommitMetaReader interface {
	CommitMeta(commit types.CommitIndex) (sha string, when time.Time, summary string, err error)
}

// Repo is a repository handle usable for materialization. Handles are not
// assumed thread-safe; one goroutine uses a handle at a time.
type Repo interface {
	RepoReader
	CommitMetaReader
}

// SearchResult is a materialized raw result: the file path plus the verified
// first and (optionally) last matching commits.
type SearchResult struct {
	FilePath string
	First    *CommitMatch
	Last     *CommitMatch
}

// Materialize verifies a raw result against actual blob content. It walks
// the overlapped commits ascending until the semantic matcher confirms a
// match (the first match), then descending from the end for the last match,
// stopping at the first commit's index. Returns nil when every re-check
// fails: the trigram filter is necessary but not sufficient.
func Materialize(reader RepoReader, idx *index.Index, raw *RawResult) (*SearchResult, error) {
	if raw.Overlapped.IsEmpty() {
		return nil, nil
	}
	if max := raw.Overlapped.Maximum(); int(max) >= idx.CommitCount() {
		return nil, errors.NewInvalidCommitIndexError(types.CommitIndex(max), idx.CommitCount())
	}

	var re *regexp.Regexp
	if raw.Mode == ModeRegex {
		compiled, err := regexp.Compile(raw.Regex)
		if err != nil {
			return nil, errors.NewQueryParseError(raw.Regex, err)
		}
		re = compiled
	}

	var (
		filePath string
		first    *CommitMatch
	)

	iter := raw.Overlapped.Iterator()
	for iter.HasNext() {
		commit := types.CommitIndex(iter.Next())
		path, match, err := matchAtCommit(reader, raw, re, commit)
		if err != nil {
			return nil, err
		}
		if match != nil {
			filePath = path
			first = match
			break
		}
	}

	if first == nil {
		return nil, nil
	}

	var last *CommitMatch
	rev := raw.Overlapped.ReverseIterator()
	for rev.HasNext() {
		commit := types.CommitIndex(rev.Next())
		if commit <= first.Commit {
			break
		}

		_, match, err := matchAtCommit(reader, raw, re, commit)
		if err != nil {
			return nil, err
		}
		if match != nil {
			last = match
			break
		}
	}

	return &SearchResult{FilePath: filePath, First: first, Last: last}, nil
}

func matchAtCommit(reader RepoReader, raw *RawResult, re *regexp.Regexp, commit types.CommitIndex) (string, *CommitMatch, error) {
	path, content, ok, err := reader.ReadFileAtCommit(commit, raw.FileID)
	if err != nil {
		return "", nil, err
	}
	if !ok {
		// BlobAbsent: the commit cannot confirm the match; try the next one.
		return "", nil, nil
	}

	lines := splitLines(content)

	var match *CommitMatch
	switch raw.Mode {
	case ModePlain:
		match = matchWordsInContent(raw.Words, lines, commit)
	case ModeRegex:
		match = matchRegexInContent(re, lines, commit)
	}
	return path, match, nil
}

func splitLines(content string) []string {
	if content == "" {
		return nil
	}

	var lines []string
	start := 0
	for i := 0; i < len(content); i++ {
		if content[i] == '\n' {
			line := content[start:i]
			if len(line) > 0 && line[len(line)-1] == '\r' {
				line = line[:len(line)-1]
			}
			lines = append(lines, line)
			start = i + 1
		}
	}
	if start < len(content) {
		lines = append(lines, content[start:])
	}
	return lines
}
