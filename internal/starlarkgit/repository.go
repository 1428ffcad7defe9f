package starlarkgit

import (
	"fmt"

	"github.com/thiagokokada/gitbind/internal/git"
	sl "go.starlark.net/starlark"
)

// Repository is the script-side handle on an opened repository.
type Repository struct {
	svc *git.Service
}

func NewRepository(svc *git.Service) *Repository {
	return &Repository{svc: svc}
}

func (r *Repository) String() string        { return fmt.Sprintf("<git_repository %q>", r.svc.RepoPath()) }
func (r *Repository) Type() string          { return "git_repository" }
func (r *Repository) Freeze()               {}
func (r *Repository) Truth() sl.Bool        { return sl.True }
func (r *Repository) Hash() (uint32, error) { return sl.String(r.svc.RepoPath()).Hash() }
func (r *Repository) AttrNames() []string   { return []string{"path"} }

func (r *Repository) Attr(name string) (sl.Value, error) {
	if name == "path" {
		return sl.String(r.svc.RepoPath()), nil
	}
	return nil, nil
}

const threadRepositoryKey = "git.repository"

// defaultRepository is the repository the host bound to the thread, used
// when a script passes repo=None.
func defaultRepository(t *sl.Thread) *Repository {
	if t == nil {
		return nil
	}
	repo, _ := t.Local(threadRepositoryKey).(*Repository)
	return repo
}
