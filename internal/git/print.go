package git

import (
	"bufio"
	"fmt"
	"io"

	"github.com/go-git/go-git/v5/plumbing"
)

const abbrevLen = 7

// PrintPatch renders the diff in git's patch format, driven by the same
// traversal the materializing pass uses.
func PrintPatch(d *Diff, w io.Writer) error {
	bw := bufio.NewWriter(w)
	p := &patchPrinter{w: bw}
	err := d.ForEach(DiffCallbacks{
		File:   p.file,
		Binary: p.binary,
		Hunk:   p.hunk,
		Line:   p.line,
	})
	if err != nil {
		return err
	}
	if p.err != nil {
		return p.err
	}
	return bw.Flush()
}

type patchPrinter struct {
	w   *bufio.Writer
	err error

	// pathsWritten is set once the ---/+++ pair of the current file is out.
	pathsWritten bool
}

func (p *patchPrinter) printf(format string, args ...any) error {
	if p.err != nil {
		return p.err
	}
	_, p.err = fmt.Fprintf(p.w, format, args...)
	return p.err
}

func (p *patchPrinter) file(delta *DiffDelta, _ float64) error {
	p.pathsWritten = false
	oldPath, newPath := delta.OldFile.Path, delta.NewFile.Path
	p.printf("diff --git a/%s b/%s\n", oldPath, newPath)
	switch delta.Status {
	case DeltaAdded:
		p.printf("new file mode %s\n", ModeString(delta.NewFile.Mode))
		p.printf("index %s..%s\n", abbrev(plumbing.ZeroHash), abbrev(delta.NewFile.ID))
	case DeltaDeleted:
		p.printf("deleted file mode %s\n", ModeString(delta.OldFile.Mode))
		p.printf("index %s..%s\n", abbrev(delta.OldFile.ID), abbrev(plumbing.ZeroHash))
	default:
		if delta.OldFile.Mode != delta.NewFile.Mode {
			p.printf("old mode %s\n", ModeString(delta.OldFile.Mode))
			p.printf("new mode %s\n", ModeString(delta.NewFile.Mode))
		}
		if delta.OldFile.ID != delta.NewFile.ID {
			if delta.OldFile.Mode == delta.NewFile.Mode {
				p.printf("index %s..%s %s\n", abbrev(delta.OldFile.ID), abbrev(delta.NewFile.ID), ModeString(delta.NewFile.Mode))
			} else {
				p.printf("index %s..%s\n", abbrev(delta.OldFile.ID), abbrev(delta.NewFile.ID))
			}
		}
	}
	return p.err
}

func (p *patchPrinter) binary(delta *DiffDelta) error {
	oldName, newName := patchNames(delta)
	return p.printf("Binary files %s and %s differ\n", oldName, newName)
}

func (p *patchPrinter) hunk(delta *DiffDelta, hunk *DiffHunk) error {
	if !p.pathsWritten {
		oldName, newName := patchNames(delta)
		p.printf("--- %s\n+++ %s\n", oldName, newName)
		p.pathsWritten = true
	}
	return p.printf("%s", hunk.Header)
}

func (p *patchPrinter) line(_ *DiffDelta, _ *DiffHunk, line *DiffLine) error {
	switch line.Origin {
	case OriginContext, OriginAddition, OriginDeletion:
		return p.printf("%c%s", byte(line.Origin), line.Content)
	default:
		return p.printf("%s", line.Content)
	}
}

func patchNames(delta *DiffDelta) (string, string) {
	oldName := "a/" + delta.OldFile.Path
	newName := "b/" + delta.NewFile.Path
	switch delta.Status {
	case DeltaAdded:
		oldName = "/dev/null"
	case DeltaDeleted:
		newName = "/dev/null"
	}
	return oldName, newName
}

func abbrev(h plumbing.Hash) string {
	return h.String()[:abbrevLen]
}
