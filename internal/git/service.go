package git

import (
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"

	gitlib "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
)

// DefaultContextLines matches git's default unified context.
const DefaultContextLines = 3

// Service runs diff and revision operations against one repository.
// Each call acquires what it needs and releases it before returning, so a
// Service carries no per-call state.
type Service struct {
	repo repoState
}

type repoState struct {
	*gitlib.Repository
	path string
}

func Open(repoPath string) (*Service, error) {
	if repoPath == "" {
		return nil, invalidArgument("repository path is empty")
	}
	abs, err := filepath.Abs(repoPath)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRepositoryOpen, err)
	}
	repo, err := gitlib.PlainOpenWithOptions(abs, &gitlib.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		return nil, fmt.Errorf("%w: open repository %s: %v", ErrRepositoryOpen, abs, err)
	}
	slog.Debug("repository opened", slog.String("path", abs))
	return &Service{repo: repoState{path: abs, Repository: repo}}, nil
}

// New wraps an already opened repository, e.g. one backed by in-memory
// storage.
func New(repo *gitlib.Repository, path string) *Service {
	return &Service{repo: repoState{path: path, Repository: repo}}
}

func (s *Service) RepoPath() string {
	return s.repo.path
}

func (s *Service) ensureRepo() error {
	if s == nil || s.repo.Repository == nil {
		return fmt.Errorf("%w: repository not initialized", ErrRepositoryOpen)
	}
	return nil
}

// headTree returns the tree HEAD points at; plumbing.ErrReferenceNotFound
// is returned unchanged for an unborn branch.
func (s *Service) headTree() (*object.Tree, error) {
	ref, err := s.repo.Head()
	if err != nil {
		return nil, err
	}
	commit, err := s.repo.CommitObject(ref.Hash())
	if err != nil {
		return nil, err
	}
	return commit.Tree()
}

func (s *Service) treeObject(hash plumbing.Hash) (*object.Tree, error) {
	obj, err := s.repo.Object(plumbing.AnyObject, hash)
	if err != nil {
		return nil, err
	}
	tree, err := peelToTree(obj)
	if err != nil {
		return nil, err
	}
	return tree, nil
}

func peelToTree(obj object.Object) (*object.Tree, error) {
	for range 8 {
		switch o := obj.(type) {
		case *object.Tree:
			return o, nil
		case *object.Commit:
			return o.Tree()
		case *object.Tag:
			next, err := o.Object()
			if err != nil {
				return nil, err
			}
			obj = next
		default:
			return nil, fmt.Errorf("object %s is a %s, not a tree", obj.ID(), obj.Type())
		}
	}
	return nil, errors.New("tag chain too deep")
}
