// Package view renders a materialized diff as an indented tree of files,
// hunks and lines.
package view

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
	"github.com/thiagokokada/gitbind/internal/git"
)

type styles struct {
	file    lipgloss.Style
	status  lipgloss.Style
	hunk    lipgloss.Style
	lineno  lipgloss.Style
	added   lipgloss.Style
	deleted lipgloss.Style
	context lipgloss.Style
	marker  lipgloss.Style
	summary lipgloss.Style
}

func newStyles(r *lipgloss.Renderer) styles {
	return styles{
		file:    r.NewStyle().Bold(true),
		status:  r.NewStyle().Foreground(lipgloss.Color("109")),
		hunk:    r.NewStyle().Foreground(lipgloss.Color("139")),
		lineno:  r.NewStyle().Foreground(lipgloss.Color("241")),
		added:   r.NewStyle().Foreground(lipgloss.Color("108")),
		deleted: r.NewStyle().Foreground(lipgloss.Color("167")),
		context: r.NewStyle(),
		marker:  r.NewStyle().Foreground(lipgloss.Color("245")).Italic(true),
		summary: r.NewStyle().Foreground(lipgloss.Color("245")),
	}
}

// Tree writes result to w. With color off the output is plain text.
func Tree(w io.Writer, result *git.DiffResult, color bool) error {
	r := lipgloss.NewRenderer(w)
	if color {
		r.SetColorProfile(termenv.ANSI256)
	} else {
		r.SetColorProfile(termenv.Ascii)
	}
	st := newStyles(r)
	bw := bufio.NewWriter(w)

	if result == nil || len(result.Files) == 0 {
		fmt.Fprintln(bw, st.summary.Render("no changes"))
		return bw.Flush()
	}
	fmt.Fprintln(bw, st.summary.Render(fmt.Sprintf("%s -> %s, %d file(s)", result.Old, result.New, len(result.Files))))
	for _, file := range result.Files {
		added, deleted := Stat(file)
		fmt.Fprintf(bw, "%s %s %s\n",
			st.status.Render(fmt.Sprintf("%-8s", file.Status)),
			st.file.Render(fileLabel(file)),
			st.summary.Render(fmt.Sprintf("(+%d -%d)", added, deleted)),
		)
		if file.Binary {
			fmt.Fprintf(bw, "  %s\n", st.marker.Render("binary"))
			continue
		}
		for _, hunk := range file.Hunks {
			fmt.Fprintf(bw, "  %s\n", st.hunk.Render(strings.TrimSuffix(hunk.Header, "\n")))
			for _, line := range hunk.Lines {
				fmt.Fprintf(bw, "    %s %s\n",
					st.lineno.Render(lineNumbers(line)),
					renderLine(st, line),
				)
			}
		}
	}
	return bw.Flush()
}

// Stat counts the added and deleted lines of a file.
func Stat(file git.FileDelta) (added, deleted int) {
	for _, hunk := range file.Hunks {
		for _, line := range hunk.Lines {
			switch line.Origin {
			case git.OriginAddition:
				added++
			case git.OriginDeletion:
				deleted++
			}
		}
	}
	return added, deleted
}

func fileLabel(file git.FileDelta) string {
	if file.OldPath != file.NewPath && file.OldPath != "" && file.NewPath != "" {
		return file.OldPath + " -> " + file.NewPath
	}
	return file.Path()
}

func lineNumbers(line git.Line) string {
	return fmt.Sprintf("%5s %5s", lineno(line.OldLineno), lineno(line.NewLineno))
}

func lineno(n int) string {
	if n < 0 {
		return ""
	}
	return fmt.Sprint(n)
}

func renderLine(st styles, line git.Line) string {
	content := strings.TrimSuffix(line.Content, "\n")
	switch line.Origin {
	case git.OriginAddition:
		return st.added.Render("+" + content)
	case git.OriginDeletion:
		return st.deleted.Render("-" + content)
	case git.OriginContext:
		return st.context.Render(" " + content)
	default:
		return st.marker.Render(strings.TrimSpace(line.Content))
	}
}
