package watch

import (
	"path/filepath"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIgnoreCheckerGitAlwaysIgnored(t *testing.T) {
	checker := NewIgnoreChecker("/repo", nil)

	assert.True(t, checker.IsIgnored(filepath.Join("/repo", ".git")))
	assert.True(t, checker.IsIgnored(filepath.Join("/repo", ".git", "objects", "ab")))
	assert.False(t, checker.IsIgnored(filepath.Join("/repo", "main.go")))
}

func TestIgnoreCheckerPatterns(t *testing.T) {
	checker := NewIgnoreChecker("/repo", []string{"**/*.log", "build/**"})

	assert.True(t, checker.IsIgnored(filepath.Join("/repo", "sub", "x.log")))
	assert.True(t, checker.IsIgnored(filepath.Join("/repo", "build", "out", "a.o")))
	assert.False(t, checker.IsIgnored(filepath.Join("/repo", "src", "a.go")))
}

func TestCoalesceCreateThenRemoveDrops(t *testing.T) {
	paths := coalesce([]fsEvent{
		{kind: EventCreate, path: "tmp.txt"},
		{kind: EventRemove, path: "tmp.txt"},
	})
	assert.Empty(t, paths)
}

func TestCoalesceRemoveOfExistingIsKept(t *testing.T) {
	paths := coalesce([]fsEvent{
		{kind: EventRemove, path: "old.txt"},
	})
	assert.Equal(t, []string{"old.txt"}, paths)
}

func TestCoalesceMergesDuplicates(t *testing.T) {
	paths := coalesce([]fsEvent{
		{kind: EventModify, path: "a.go"},
		{kind: EventModify, path: "a.go"},
		{kind: EventCreate, path: "b.go"},
		{kind: EventModify, path: "b.go"},
	})

	sort.Strings(paths)
	assert.Equal(t, []string{"a.go", "b.go"}, paths)
}
