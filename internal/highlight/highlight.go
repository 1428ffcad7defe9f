// Package highlight colors patch text for terminals.
package highlight

import (
	"fmt"
	"io"

	"github.com/alecthomas/chroma/v2"
	"github.com/alecthomas/chroma/v2/formatters"
	"github.com/alecthomas/chroma/v2/lexers"
	"github.com/alecthomas/chroma/v2/styles"
)

func StyleFor(t Theme) *chroma.Style {
	name := "github"
	if t.Resolve() == ThemeDark {
		name = "github-dark"
	}
	if st := styles.Get(name); st != nil {
		return st
	}
	return styles.Fallback
}

func diffLexer() chroma.Lexer {
	lexer := lexers.Get("diff")
	if lexer == nil {
		lexer = lexers.Fallback
	}
	return chroma.Coalesce(lexer)
}

// Patch writes text to w with ANSI colors for a 256 color terminal.
func Patch(w io.Writer, text string, t Theme) error {
	if text == "" {
		return nil
	}
	iterator, err := diffLexer().Tokenise(nil, text)
	if err != nil {
		return fmt.Errorf("tokenise patch: %w", err)
	}
	formatter := formatters.Get("terminal256")
	if formatter == nil {
		formatter = formatters.Fallback
	}
	if err := formatter.Format(w, StyleFor(t), iterator); err != nil {
		return fmt.Errorf("format patch: %w", err)
	}
	return nil
}
