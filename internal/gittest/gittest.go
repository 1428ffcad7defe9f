// Package gittest builds throwaway repositories for tests.
package gittest

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/memfs"
	"github.com/go-git/go-billy/v5/util"
	gitlib "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/go-git/go-git/v5/storage/memory"
	"github.com/stretchr/testify/require"
)

var epoch = time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)

func Signature() *object.Signature {
	return &object.Signature{Name: "Test Author", Email: "author@example.com", When: epoch}
}

type Repo struct {
	t    testing.TB
	Repo *gitlib.Repository
	FS   billy.Filesystem
	// Path is the worktree root on disk, empty for in-memory repositories.
	Path string
}

// New creates an empty repository backed by memory storage and memfs.
func New(t testing.TB) *Repo {
	t.Helper()
	fs := memfs.New()
	repo, err := gitlib.Init(memory.NewStorage(), fs)
	require.NoError(t, err)
	return &Repo{t: t, Repo: repo, FS: fs}
}

// NewOnDisk creates an empty repository in a temporary directory.
func NewOnDisk(t testing.TB) *Repo {
	t.Helper()
	dir := t.TempDir()
	repo, err := gitlib.PlainInit(dir, false)
	require.NoError(t, err)
	wt, err := repo.Worktree()
	require.NoError(t, err)
	return &Repo{t: t, Repo: repo, FS: wt.Filesystem, Path: dir}
}

func (r *Repo) worktree() *gitlib.Worktree {
	r.t.Helper()
	wt, err := r.Repo.Worktree()
	require.NoError(r.t, err)
	return wt
}

// Write replaces path in the worktree without staging it.
func (r *Repo) Write(path, content string) {
	r.WriteMode(path, content, 0o644)
}

func (r *Repo) WriteMode(path, content string, perm os.FileMode) {
	r.t.Helper()
	if dir := filepath.Dir(path); dir != "." {
		require.NoError(r.t, r.FS.MkdirAll(dir, 0o755))
	}
	_ = r.FS.Remove(path)
	require.NoError(r.t, util.WriteFile(r.FS, path, []byte(content), perm))
}

func (r *Repo) Remove(path string) {
	r.t.Helper()
	require.NoError(r.t, r.FS.Remove(path))
}

// Delete removes path from the worktree and the index.
func (r *Repo) Delete(path string) {
	r.t.Helper()
	_, err := r.worktree().Remove(path)
	require.NoError(r.t, err)
}

func (r *Repo) Add(paths ...string) {
	r.t.Helper()
	wt := r.worktree()
	for _, p := range paths {
		_, err := wt.Add(p)
		require.NoError(r.t, err)
	}
}

// Unstage drops path from the index, keeping the worktree copy.
func (r *Repo) Unstage(path string) {
	r.t.Helper()
	idx, err := r.Repo.Storer.Index()
	require.NoError(r.t, err)
	_, err = idx.Remove(path)
	require.NoError(r.t, err)
	require.NoError(r.t, r.Repo.Storer.SetIndex(idx))
}

// Commit stages every given file and commits the index.
func (r *Repo) Commit(msg string, paths ...string) plumbing.Hash {
	r.t.Helper()
	r.Add(paths...)
	hash, err := r.worktree().Commit(msg, &gitlib.CommitOptions{
		Author:            Signature(),
		AllowEmptyCommits: true,
	})
	require.NoError(r.t, err)
	return hash
}

// CommitFiles writes and commits files in one step.
func (r *Repo) CommitFiles(msg string, files map[string]string) plumbing.Hash {
	r.t.Helper()
	paths := make([]string, 0, len(files))
	for path, content := range files {
		r.Write(path, content)
		paths = append(paths, path)
	}
	return r.Commit(msg, paths...)
}

func (r *Repo) TreeOf(commit plumbing.Hash) plumbing.Hash {
	r.t.Helper()
	c, err := r.Repo.CommitObject(commit)
	require.NoError(r.t, err)
	return c.TreeHash
}

// Tag creates an annotated tag when message is non-empty, a lightweight one
// otherwise.
func (r *Repo) Tag(name string, target plumbing.Hash, message string) *plumbing.Reference {
	r.t.Helper()
	var opts *gitlib.CreateTagOptions
	if message != "" {
		opts = &gitlib.CreateTagOptions{Tagger: Signature(), Message: message}
	}
	ref, err := r.Repo.CreateTag(name, target, opts)
	require.NoError(r.t, err)
	return ref
}

// Blob stores data as a loose blob that no tree references.
func (r *Repo) Blob(data []byte) plumbing.Hash {
	r.t.Helper()
	obj := r.Repo.Storer.NewEncodedObject()
	obj.SetType(plumbing.BlobObject)
	w, err := obj.Writer()
	require.NoError(r.t, err)
	_, err = w.Write(data)
	require.NoError(r.t, err)
	require.NoError(r.t, w.Close())
	hash, err := r.Repo.Storer.SetEncodedObject(obj)
	require.NoError(r.t, err)
	return hash
}

func (r *Repo) Branch(name string, target plumbing.Hash) {
	r.t.Helper()
	ref := plumbing.NewHashReference(plumbing.NewBranchReferenceName(name), target)
	require.NoError(r.t, r.Repo.Storer.SetReference(ref))
}
