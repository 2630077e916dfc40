package gitrepo

import (
	"time"

	"github.com/standardbeagle/hgrep/internal/errors"
	"github.com/standardbeagle/hgrep/internal/index"
	"github.com/standardbeagle/hgrep/internal/search"
	"github.com/standardbeagle/hgrep/internal/types"
)

// IndexedRepo binds a repository handle to a finalized index so the query
// path can address blobs by (commit index, file id).
type IndexedRepo struct {
	repo *Repo
	idx  *index.Index
}

// NewIndexedRepo wraps a handle for query-path reads.
func NewIndexedRepo(repo *Repo, idx *index.Index) *IndexedRepo {
	return &IndexedRepo{repo: repo, idx: idx}
}

// ReadFileAtCommit implements search.RepoReader.
func (ir *IndexedRepo) ReadFileAtCommit(commit types.CommitIndex, fileID types.FileID) (string, string, bool, error) {
	if int(commit) >= ir.idx.CommitCount() {
		return "", "", false, errors.NewInvalidCommitIndexError(commit, ir.idx.CommitCount())
	}

	path := ir.idx.Path(fileID)
	if path == "" {
		return "", "", false, nil
	}

	content, ok, err := ir.repo.ReadBlob(ir.idx.CommitHashes[commit], path)
	if err != nil || !ok {
		return "", "", false, err
	}
	return path, string(content), true, nil
}

// CommitMeta implements search.CommitMetaReader.
func (ir *IndexedRepo) CommitMeta(commit types.CommitIndex) (string, time.Time, string, error) {
	if int(commit) >= ir.idx.CommitCount() {
		return "", time.Time{}, "", errors.NewInvalidCommitIndexError(commit, ir.idx.CommitCount())
	}
	return ir.repo.CommitMetaAt(ir.idx.CommitHashes[commit])
}

// Pool holds one repository handle per materialization worker. go-git
// handles are not assumed thread-safe, so a handle is exclusive while
// checked out; Get blocks when all handles are busy.
type Pool struct {
	handles chan search.Repo
	size    int
}

// NewPool opens size independent handles of the repository at path.
func NewPool(path string, idx *index.Index, size int) (*Pool, error) {
	if size < 1 {
		size = 1
	}

	pool := &Pool{
		handles: make(chan search.Repo, size),
		size:    size,
	}
	for i := 0; i < size; i++ {
		repo, err := Open(path)
		if err != nil {
			return nil, err
		}
		pool.handles <- NewIndexedRepo(repo, idx)
	}
	return pool, nil
}

// Get checks a handle out of the pool, blocking until one is free.
func (p *Pool) Get() search.Repo {
	return <-p.handles
}

// Put returns a handle to the pool.
func (p *Pool) Put(repo search.Repo) {
	p.handles <- repo
}

// Size returns the number of handles.
func (p *Pool) Size() int {
	return p.size
}
