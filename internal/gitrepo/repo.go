// Package gitrepo adapts a git repository (via go-git) to the indexer's
// Source interface and the query path's blob/metadata readers.
package gitrepo

import (
	"fmt"
	"sort"
	"strings"
	"time"

	git "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/go-git/go-git/v5/utils/merkletrie"

	"github.com/standardbeagle/hgrep/internal/index"
	"github.com/standardbeagle/hgrep/internal/types"
)

// Repo is one repository handle. Handles are not thread-safe; the pool hands
// them out exclusively.
type Repo struct {
	repo *git.Repository
	path string
}

// Open opens the repository at path.
func Open(path string) (*Repo, error) {
	repo, err := git.PlainOpen(path)
	if err != nil {
		return nil, fmt.Errorf("open repository %s: %w", path, err)
	}
	return &Repo{repo: repo, path: path}, nil
}

// Path returns the repository path the handle was opened with.
func (r *Repo) Path() string {
	return r.path
}

// Commits enumerates every commit reachable from HEAD in
// topological-then-reverse order: parents always precede children, the root
// comes first and HEAD last. Ties among ready commits break by hash order.
func (r *Repo) Commits() ([]types.CommitHash, error) {
	head, err := r.repo.Head()
	if err != nil {
		return nil, err
	}

	// Collect the reachable commit graph.
	pendingParents := make(map[plumbing.Hash]int)
	children := make(map[plumbing.Hash][]plumbing.Hash)

	queue := []plumbing.Hash{head.Hash()}
	seen := map[plumbing.Hash]struct{}{head.Hash(): {}}

	for len(queue) > 0 {
		hash := queue[0]
		queue = queue[1:]

		commit, err := r.repo.CommitObject(hash)
		if err != nil {
			return nil, err
		}

		pendingParents[hash] = len(commit.ParentHashes)
		for _, parent := range commit.ParentHashes {
			children[parent] = append(children[parent], hash)
			if _, ok := seen[parent]; !ok {
				seen[parent] = struct{}{}
				queue = append(queue, parent)
			}
		}
	}

	// Kahn's algorithm, emitting parents before children.
	var ready []plumbing.Hash
	for hash, pending := range pendingParents {
		if pending == 0 {
			ready = append(ready, hash)
		}
	}
	sortHashes(ready)

	ordered := make([]types.CommitHash, 0, len(pendingParents))
	for len(ready) > 0 {
		hash := ready[0]
		ready = ready[1:]

		ordered = append(ordered, types.CommitHash(hash))

		unblocked := false
		for _, child := range children[hash] {
			pendingParents[child]--
			if pendingParents[child] == 0 {
				ready = append(ready, child)
				unblocked = true
			}
		}
		if unblocked {
			sortHashes(ready)
		}
	}

	if len(ordered) != len(pendingParents) {
		return nil, fmt.Errorf("commit graph has a cycle: ordered %d of %d commits",
			len(ordered), len(pendingParents))
	}
	return ordered, nil
}

// WalkTree yields every blob of the commit's tree, depth first.
func (r *Repo) WalkTree(commit types.CommitHash, fn func(path string, content []byte) error) error {
	tree, err := r.treeOf(commit)
	if err != nil {
		return err
	}

	iter := tree.Files()
	defer iter.Close()

	return iter.ForEach(func(file *object.File) error {
		content, err := file.Contents()
		if err != nil {
			// Unreadable blobs (e.g. missing objects in shallow clones) are
			// skipped rather than failing the whole walk.
			return nil
		}
		return fn(file.Name, []byte(content))
	})
}

// Diff reports the changes between two commits' trees as zero-context
// hunks. Binary file patches are skipped.
func (r *Repo) Diff(prev, cur types.CommitHash) ([]index.FileDiff, error) {
	prevTree, err := r.treeOf(prev)
	if err != nil {
		return nil, err
	}
	curTree, err := r.treeOf(cur)
	if err != nil {
		return nil, err
	}

	changes, err := object.DiffTree(prevTree, curTree)
	if err != nil {
		return nil, err
	}

	var diffs []index.FileDiff
	for _, change := range changes {
		fd, ok, err := r.fileDiff(change)
		if err != nil {
			return nil, err
		}
		if ok {
			diffs = append(diffs, fd)
		}
	}
	return diffs, nil
}

// ReadBlob reads one blob at a commit. ok is false when the path is absent
// or is not a blob.
func (r *Repo) ReadBlob(commit types.CommitHash, path string) ([]byte, bool, error) {
	commitObj, err := r.commitOf(commit)
	if err != nil {
		return nil, false, err
	}

	file, err := commitObj.File(path)
	if err == object.ErrFileNotFound {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}

	content, err := file.Contents()
	if err != nil {
		return nil, false, err
	}
	return []byte(content), true, nil
}

func (r *Repo) fileDiff(change *object.Change) (index.FileDiff, bool, error) {
	action, err := change.Action()
	if err != nil {
		return index.FileDiff{}, false, err
	}

	var (
		status index.DiffStatus
		path   string
	)
	switch action {
	case merkletrie.Insert:
		status = index.StatusAdded
		path = change.To.Name
	case merkletrie.Delete:
		status = index.StatusDeleted
		path = change.From.Name
	case merkletrie.Modify:
		status = index.StatusModified
		path = change.To.Name
	default:
		return index.FileDiff{}, false, nil
	}

	patch, err := change.Patch()
	if err != nil {
		return index.FileDiff{}, false, err
	}

	var hunks []index.Hunk
	for _, filePatch := range patch.FilePatches() {
		if filePatch.IsBinary() {
			return index.FileDiff{}, false, nil
		}
		hunks = append(hunks, hunksFromChunks(filePatch.Chunks())...)
	}

	return index.FileDiff{Path: path, Status: status, Hunks: hunks}, true, nil
}

func (r *Repo) commitOf(hash types.CommitHash) (*object.Commit, error) {
	return r.repo.CommitObject(plumbing.Hash(hash))
}

func (r *Repo) treeOf(hash types.CommitHash) (*object.Tree, error) {
	commit, err := r.commitOf(hash)
	if err != nil {
		return nil, err
	}
	return commit.Tree()
}

func sortHashes(hashes []plumbing.Hash) {
	sort.Slice(hashes, func(i, j int) bool {
		return strings.Compare(hashes[i].String(), hashes[j].String()) < 0
	})
}

// CommitMetaAt resolves presentation metadata for a commit hash.
func (r *Repo) CommitMetaAt(hash types.CommitHash) (sha string, when time.Time, summary string, err error) {
	commit, err := r.commitOf(hash)
	if err != nil {
		return "", time.Time{}, "", err
	}

	summary = commit.Message
	if idx := strings.IndexByte(summary, '\n'); idx >= 0 {
		summary = summary[:idx]
	}
	return commit.Hash.String(), commit.Committer.When, strings.TrimSpace(summary), nil
}
