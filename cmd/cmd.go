package cmd

import (
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"github.com/thiagokokada/gitbind/internal/config"
)

func Run() error {
	return run(os.Args[1:], os.Stdout, os.Stderr)
}

// app carries what every subcommand needs once flags are parsed.
type app struct {
	cfgFile string
	cfg     config.Config
	stdout  io.Writer
	stderr  io.Writer
}

func run(args []string, stdout, stderr io.Writer) error {
	root := newRootCmd(&app{stdout: stdout, stderr: stderr})
	root.SetArgs(args)
	return root.Execute()
}

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:           "gitbind",
		Short:         "Diff and revision lookup for git repositories, scriptable with Starlark",
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(a.cfgFile, cmd.Flags())
			if err != nil {
				return err
			}
			a.cfg = cfg
			setupLogging(a.stderr, cfg.Verbose)
			return nil
		},
	}
	root.SetOut(a.stdout)
	root.SetErr(a.stderr)

	pf := root.PersistentFlags()
	pf.StringVar(&a.cfgFile, "config", "", "config file (default .gitbind.yaml in the current directory or ~/.config/gitbind)")
	pf.StringP("repo", "C", ".", "path to the repository")
	pf.Bool("verbose", false, "enable verbose logging")

	root.AddCommand(
		newDiffCmd(a),
		newRevparseCmd(a),
		newScriptCmd(a),
		newVersionCmd(a),
	)
	return root
}

func setupLogging(w io.Writer, verbose bool) {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level})))
}
