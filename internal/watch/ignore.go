package watch

import (
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// IgnoreChecker filters watcher events by glob patterns relative to the
// repository root. The .git directory is always ignored: the watcher reacts
// to working-tree edits, not to git's own bookkeeping.
type IgnoreChecker struct {
	root     string
	patterns []string
}

// NewIgnoreChecker creates a checker for the repository rooted at root.
func NewIgnoreChecker(root string, patterns []string) *IgnoreChecker {
	return &IgnoreChecker{root: root, patterns: patterns}
}

// IsIgnored reports whether the path should not trigger re-indexing.
func (ic *IgnoreChecker) IsIgnored(path string) bool {
	rel, err := filepath.Rel(ic.root, path)
	if err != nil {
		rel = path
	}
	rel = filepath.ToSlash(rel)

	if rel == ".git" || strings.HasPrefix(rel, ".git/") {
		return true
	}

	for _, pattern := range ic.patterns {
		if ok, err := doublestar.Match(pattern, rel); err == nil && ok {
			return true
		}
	}
	return false
}
