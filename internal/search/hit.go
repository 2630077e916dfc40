package search

import (
	"sort"
	"time"
)

// LineMatch is one line of result text with its highlights.
type LineMatch struct {
	LineNumber int         `json:"line_number"` // 1-based
	Content    string      `json:"content"`
	Highlights []Highlight `json:"highlights"`
}

// MatchDetail describes a verified match at one commit, with the commit
// metadata a client needs to present it.
type MatchDetail struct {
	CommitIndex   uint32      `json:"commit_index"`
	CommitSHA     string      `json:"commit_sha"`
	CommitDate    string      `json:"commit_date"` // ISO 8601
	CommitSummary string      `json:"commit_summary"`
	Lines         []LineMatch `json:"lines"`
}

// SearchHit is the presentation form of a materialized result.
type SearchHit struct {
	FilePath   string       `json:"file_path"`
	FirstMatch MatchDetail  `json:"first_match"`
	LastMatch  *MatchDetail `json:"last_match,omitempty"`
}

// NewSearchHit resolves commit metadata for a materialized result.
func NewSearchHit(meta CommitMetaReader, result *SearchResult) (*SearchHit, error) {
	first, err := newMatchDetail(meta, result.First)
	if err != nil {
		return nil, err
	}

	hit := &SearchHit{
		FilePath:   result.FilePath,
		FirstMatch: *first,
	}

	if result.Last != nil {
		last, err := newMatchDetail(meta, result.Last)
		if err != nil {
			return nil, err
		}
		hit.LastMatch = last
	}

	return hit, nil
}

func newMatchDetail(meta CommitMetaReader, match *CommitMatch) (*MatchDetail, error) {
	sha, when, summary, err := meta.CommitMeta(match.Commit)
	if err != nil {
		return nil, err
	}

	lineNumbers := make([]int, 0, len(match.Lines))
	for line := range match.Lines {
		lineNumbers = append(lineNumbers, line)
	}
	sort.Ints(lineNumbers)

	lines := make([]LineMatch, 0, len(lineNumbers))
	for _, line := range lineNumbers {
		lines = append(lines, LineMatch{
			LineNumber: line + 1,
			Content:    match.Lines[line],
			Highlights: match.WordsPerLine[line],
		})
	}

	return &MatchDetail{
		CommitIndex:   uint32(match.Commit),
		CommitSHA:     sha,
		CommitDate:    when.UTC().Format(time.RFC3339),
		CommitSummary: summary,
		Lines:         lines,
	}, nil
}
