// Package starlarkgit exposes diff and revision lookup to Starlark scripts
// as the git module.
package starlarkgit

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/go-git/go-git/v5/plumbing"
	"github.com/thiagokokada/gitbind/internal/git"
	sl "go.starlark.net/starlark"
	sls "go.starlark.net/starlarkstruct"
)

var Module = &sls.Module{
	Name: "git",
	Members: sl.StringDict{
		"repository":      sl.NewBuiltin("git.repository", apiRepository),
		"diff":            sl.NewBuiltin("git.diff", apiDiff),
		"revparse_single": sl.NewBuiltin("git.revparse_single", apiRevparseSingle),
		"tree":            sl.NewBuiltin("git.tree", apiTree),
	},
}

func slError(fn *sl.Builtin, format string, args ...any) (sl.Value, error) {
	return sl.None, fmt.Errorf("%s: %s", fn.Name(), fmt.Sprintf(format, args...))
}

// git.repository(path=".") -> git_repository
func apiRepository(t *sl.Thread, fn *sl.Builtin, args sl.Tuple, kwargs []sl.Tuple) (sl.Value, error) {
	path := "."
	if err := sl.UnpackArgs(fn.Name(), args, kwargs, "path?", &path); err != nil {
		return sl.None, err
	}
	svc, err := git.Open(path)
	if err != nil {
		return slError(fn, "%v", err)
	}
	return NewRepository(svc), nil
}

// resolveRepository picks the explicit repo argument, then the repository a
// tree argument came from, then the thread default.
func resolveRepository(t *sl.Thread, v sl.Value, fromTree *Repository) (*Repository, error) {
	switch r := v.(type) {
	case *Repository:
		return r, nil
	case sl.NoneType:
		if fromTree != nil {
			return fromTree, nil
		}
		if repo := defaultRepository(t); repo != nil {
			return repo, nil
		}
		return nil, errors.New("no repository given")
	default:
		return nil, fmt.Errorf("'repo' must be a git_repository, got %s", v.Type())
	}
}

// sameRepository reports whether a and b are handles on one repository,
// possibly opened twice.
func sameRepository(a, b *Repository) bool {
	if a == b {
		return true
	}
	path := a.svc.RepoPath()
	return path != "" && path == b.svc.RepoPath()
}

// git.diff(repo=None, tree1=None, tree2=None, index=False, filename=None)
//
// filename=None returns a git_diff struct, filename="" returns the patch as a
// string, any other filename receives the patch and None is returned.
func apiDiff(t *sl.Thread, fn *sl.Builtin, args sl.Tuple, kwargs []sl.Tuple) (sl.Value, error) {
	var (
		repoV     sl.Value = sl.None
		tree1V    sl.Value = sl.None
		tree2V    sl.Value = sl.None
		filenameV sl.Value = sl.None
		index     bool
	)
	if err := sl.UnpackArgs(fn.Name(), args, kwargs,
		"repo?", &repoV,
		"tree1?", &tree1V,
		"tree2?", &tree2V,
		"index?", &index,
		"filename?", &filenameV,
	); err != nil {
		return sl.None, err
	}

	var (
		tree1, tree2 = optionalTree(tree1V), optionalTree(tree2V)
		treeRepo     *Repository
	)
	if tree1V != sl.None {
		if !tree1.ok {
			return slError(fn, "'tree1' must be a git_tree or None")
		}
		treeRepo = tree1.repo
	}
	if tree2V != sl.None && !tree2.ok {
		return slError(fn, "'tree2' must be a git_tree or None")
	}
	repo, err := resolveRepository(t, repoV, treeRepo)
	if err != nil {
		return slError(fn, "%v", err)
	}
	for _, tree := range []treeOption{tree1, tree2} {
		if tree.repo != nil && !sameRepository(repo, tree.repo) {
			return slError(fn, "tree from %s used with %s", tree.repo, repo)
		}
	}

	cmp, err := git.SelectComparison(tree1.hash, tree2.hash, index)
	if err != nil {
		return slError(fn, "%v", err)
	}

	dest := git.ToStructure()
	switch f := filenameV.(type) {
	case sl.NoneType:
	case sl.String:
		if f == "" {
			dest = git.ToText()
		} else {
			dest = git.ToFile(string(f))
		}
	default:
		return slError(fn, "'filename' must be a string or None, got %s", filenameV.Type())
	}

	slog.Debug("script diff",
		slog.String("old", cmp.Old.Label()),
		slog.String("new", cmp.New.Label()),
	)
	out, err := repo.svc.Diff(cmp, dest, git.DefaultDiffOptions())
	if err != nil {
		return slError(fn, "%v", err)
	}
	switch dest.Mode {
	case git.OutputText:
		return sl.String(out.Text), nil
	case git.OutputFile:
		return sl.None, nil
	}
	return diffValue(out.Result, sideValue(cmp.Old, tree1V), sideValue(cmp.New, tree2V)), nil
}

type treeOption struct {
	hash *plumbing.Hash
	repo *Repository
	ok   bool
}

func optionalTree(v sl.Value) treeOption {
	if v == sl.None {
		return treeOption{}
	}
	hash, repo, ok := treeArg(v)
	return treeOption{hash: hash, repo: repo, ok: ok}
}

// sideValue is the tree struct a side was built from, or its label.
func sideValue(s git.Snapshot, treeV sl.Value) sl.Value {
	if s.Kind == git.SnapshotTree && treeV != sl.None {
		return treeV
	}
	return sl.String(s.Label())
}

// git.revparse_single(repo, revision) -> git_blob | git_commit | git_tag | git_tree
func apiRevparseSingle(t *sl.Thread, fn *sl.Builtin, args sl.Tuple, kwargs []sl.Tuple) (sl.Value, error) {
	var (
		repoV    sl.Value
		revision string
	)
	if err := sl.UnpackArgs(fn.Name(), args, kwargs, "repo", &repoV, "revision", &revision); err != nil {
		return sl.None, err
	}
	repo, err := resolveRepository(t, repoV, nil)
	if err != nil {
		return slError(fn, "%v", err)
	}
	obj, err := repo.svc.RevParseSingle(revision)
	if err != nil {
		return slError(fn, "%v", err)
	}
	return objectValue(repo, obj), nil
}

// git.tree(obj) -> git_tree of a commit, tag or tree struct
func apiTree(t *sl.Thread, fn *sl.Builtin, args sl.Tuple, kwargs []sl.Tuple) (sl.Value, error) {
	var objV sl.Value
	if err := sl.UnpackPositionalArgs(fn.Name(), args, kwargs, 1, &objV); err != nil {
		return sl.None, err
	}
	s, ok := objV.(*sls.Struct)
	if !ok {
		return slError(fn, "expected a git_commit, git_tag or git_tree, got %s", objV.Type())
	}
	if _, isTree := isStruct(s, "git_tree"); isTree {
		return s, nil
	}
	_, isCommit := isStruct(s, "git_commit")
	_, isTag := isStruct(s, "git_tag")
	if !isCommit && !isTag {
		return slError(fn, "expected a git_commit, git_tag or git_tree, got %s", s.Constructor())
	}
	sha, ok := structString(s, "sha")
	if !ok {
		return slError(fn, "object has no sha")
	}
	repo, err := resolveRepository(t, sl.None, structRepository(s))
	if err != nil {
		return slError(fn, "%v", err)
	}
	obj, err := repo.svc.RevParseSingle(sha + "^{tree}")
	if err != nil {
		return slError(fn, "%v", err)
	}
	return objectValue(repo, obj), nil
}
