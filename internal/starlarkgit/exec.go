package starlarkgit

import (
	"errors"
	"fmt"
	"io"
	"log/slog"

	sl "go.starlark.net/starlark"
	"go.starlark.net/syntax"
)

// Scripts may loop and reassign at top level.
var fileOptions = &syntax.FileOptions{
	Set:             true,
	While:           true,
	TopLevelControl: true,
	GlobalReassign:  true,
	Recursion:       true,
}

// Predeclared is the global environment scripts start with.
func Predeclared() sl.StringDict {
	return sl.StringDict{"git": Module}
}

// ExecScript runs a Starlark program with the git module predeclared. repo,
// when non-nil, is what git.diff and git.revparse_single use for repo=None.
// print() output goes to out.
func ExecScript(repo *Repository, filename string, src any, out io.Writer) (sl.StringDict, error) {
	thread := &sl.Thread{
		Name: filename,
		Print: func(_ *sl.Thread, msg string) {
			fmt.Fprintln(out, msg)
		},
	}
	if repo != nil {
		thread.SetLocal(threadRepositoryKey, repo)
	}
	slog.Debug("running script", slog.String("file", filename))
	globals, err := sl.ExecFileOptions(fileOptions, thread, filename, src, Predeclared())
	if err != nil {
		var evalErr *sl.EvalError
		if errors.As(err, &evalErr) {
			return nil, errors.New(evalErr.Backtrace())
		}
		return nil, err
	}
	return globals, nil
}
