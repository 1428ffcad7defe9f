package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"sync"

	"github.com/go-git/go-git/v5/plumbing"
	"github.com/spf13/cobra"
	"github.com/thiagokokada/gitbind/internal/config"
	"github.com/thiagokokada/gitbind/internal/git"
	"github.com/thiagokokada/gitbind/internal/highlight"
	"github.com/thiagokokada/gitbind/internal/view"
	"github.com/thiagokokada/gitbind/internal/watch"
	"golang.org/x/term"
)

type diffFlags struct {
	cached bool
	output string
	watch  bool
}

func newDiffCmd(a *app) *cobra.Command {
	var flags diffFlags
	cmd := &cobra.Command{
		Use:   "diff [TREE1 [TREE2]]",
		Short: "Show changes between the index, the working tree and trees",
		Long: `Show changes between two snapshots of the repository.

With no arguments the index is compared to the working tree, or HEAD to the
index with --cached. TREE1 alone is compared to the working tree, or to the
index with --cached. TREE1 and TREE2 are compared to each other. Trees may be
given as any revision that resolves to a commit, tag or tree.`,
		Args: cobra.MaximumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDiff(cmd.Context(), a, flags, args)
		},
	}
	f := cmd.Flags()
	f.BoolVar(&flags.cached, "cached", false, "compare against the index instead of the working tree")
	f.StringVarP(&flags.output, "output", "o", "", "write the patch to this file instead of stdout")
	f.BoolVar(&flags.watch, "watch", false, "re-render whenever the repository changes")
	f.IntP("unified", "U", git.DefaultContextLines, "lines of context around each change")
	f.String("format", config.FormatText, "output format: text, json or tree")
	f.String("color", config.ColorAuto, "colorize output: auto, always or never")
	f.String("theme", highlight.ThemeAuto.String(), "color theme: auto, light or dark")
	f.Duration("watch-delay", watch.DefaultDelay, "quiet period before re-rendering in --watch mode")
	return cmd
}

func runDiff(ctx context.Context, a *app, flags diffFlags, args []string) error {
	svc, err := git.Open(a.cfg.Repo)
	if err != nil {
		return err
	}
	cmp, err := comparisonFromArgs(svc, args, flags.cached)
	if err != nil {
		return err
	}
	theme, err := highlight.ThemeFromString(a.cfg.Theme)
	if err != nil {
		return err
	}
	r := &diffRenderer{
		svc:    svc,
		cmp:    cmp,
		opts:   git.DiffOptions{ContextLines: a.cfg.ContextLines},
		format: a.cfg.Format,
		output: flags.output,
		color:  useColor(a.cfg.Color, a.stdout),
		theme:  theme,
		w:      a.stdout,
	}
	if err := r.render(false); err != nil {
		return err
	}
	if !flags.watch {
		return nil
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt)
	defer stop()
	w, err := watch.Start(svc.RepoPath(), a.cfg.WatchDelay, func() {
		if err := r.render(r.color); err != nil {
			slog.Error("render diff", slog.Any("error", err))
		}
	})
	if err != nil {
		return err
	}
	defer w.Close()
	slog.Info("watching repository", slog.String("path", svc.RepoPath()))
	<-ctx.Done()
	return nil
}

// comparisonFromArgs resolves TREE1 and TREE2 and picks the comparison.
func comparisonFromArgs(svc *git.Service, args []string, cached bool) (git.Comparison, error) {
	var trees [2]*plumbing.Hash
	for i, rev := range args {
		hash, err := treeHash(svc, rev)
		if err != nil {
			return git.Comparison{}, err
		}
		trees[i] = &hash
	}
	return git.SelectComparison(trees[0], trees[1], cached)
}

func treeHash(svc *git.Service, rev string) (plumbing.Hash, error) {
	obj, err := svc.RevParseSingle(rev)
	if err != nil {
		return plumbing.ZeroHash, err
	}
	switch o := obj.(type) {
	case *git.Tree:
		return o.Hash, nil
	case *git.Commit:
		return o.Tree, nil
	case *git.Tag:
		tree, err := svc.RevParseSingle(o.Hash.String() + "^{tree}")
		if err != nil {
			return plumbing.ZeroHash, err
		}
		return tree.ID(), nil
	default:
		return plumbing.ZeroHash, fmt.Errorf("%w: %s is a %s, not a tree", git.ErrInvalidArgument, rev, obj.Kind())
	}
}

func useColor(mode string, w io.Writer) bool {
	switch mode {
	case config.ColorAlways:
		return true
	case config.ColorNever:
		return false
	}
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

type diffRenderer struct {
	mu sync.Mutex

	svc    *git.Service
	cmp    git.Comparison
	opts   git.DiffOptions
	format string
	output string
	color  bool
	theme  highlight.Theme
	w      io.Writer
}

const clearScreen = "\x1b[H\x1b[2J"

// render writes the diff once. wipe clears the terminal first.
func (r *diffRenderer) render(wipe bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.output != "" {
		if _, err := r.svc.Diff(r.cmp, git.ToFile(r.output), r.opts); err != nil {
			return err
		}
		slog.Info("diff written", slog.String("path", r.output))
		return nil
	}
	if wipe {
		fmt.Fprint(r.w, clearScreen)
	}

	switch r.format {
	case config.FormatJSON, config.FormatTree:
		out, err := r.svc.Diff(r.cmp, git.ToStructure(), r.opts)
		if err != nil {
			return err
		}
		if r.format == config.FormatTree {
			return view.Tree(r.w, out.Result, r.color)
		}
		enc := json.NewEncoder(r.w)
		enc.SetIndent("", "  ")
		return enc.Encode(out.Result)
	default:
		out, err := r.svc.Diff(r.cmp, git.ToText(), r.opts)
		if err != nil {
			return err
		}
		if r.color {
			return highlight.Patch(r.w, out.Text, r.theme)
		}
		_, err = io.WriteString(r.w, out.Text)
		return err
	}
}
