package cmd

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"github.com/thiagokokada/gitbind/internal/git"
	"github.com/thiagokokada/gitbind/internal/starlarkgit"
)

func newScriptCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "run SCRIPT",
		Short: "Run a Starlark script with the git module",
		Long: `Run a Starlark script. The predeclared git module provides
git.repository, git.diff, git.revparse_single and git.tree. Calls that take
repo=None use the repository selected with --repo.`,
		Args: cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			src, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("read script: %w", err)
			}
			var repo *starlarkgit.Repository
			svc, err := git.Open(a.cfg.Repo)
			if err != nil {
				slog.Debug("no default repository for script", slog.Any("error", err))
			} else {
				repo = starlarkgit.NewRepository(svc)
			}
			_, err = starlarkgit.ExecScript(repo, args[0], src, a.stdout)
			return err
		},
	}
}
