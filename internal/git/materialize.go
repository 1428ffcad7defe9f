package git

import (
	"fmt"
)

// Bounds are the sizes learned by the counting pass.
type Bounds struct {
	Files    int
	MaxHunks int // most hunks in any single file
	MaxLines int // most lines in any single hunk
}

// Count walks the diff once and reports its fan-out at each level.
func Count(d *Diff) (Bounds, error) {
	var (
		b            Bounds
		hunks, lines int
	)
	err := d.ForEach(DiffCallbacks{
		File: func(*DiffDelta, float64) error {
			b.Files++
			hunks, lines = 0, 0
			return nil
		},
		Hunk: func(*DiffDelta, *DiffHunk) error {
			hunks++
			b.MaxHunks = max(b.MaxHunks, hunks)
			lines = 0
			return nil
		},
		Line: func(*DiffDelta, *DiffHunk, *DiffLine) error {
			lines++
			b.MaxLines = max(b.MaxLines, lines)
			return nil
		},
	})
	if err != nil {
		return Bounds{}, err
	}
	return b, nil
}

// materializer stages hunks and lines until the boundary that closes their
// parent arrives. The traversal never announces the end of a file or a
// hunk, so children are committed when the next sibling starts, or when the
// final nil file call forces it.
type materializer struct {
	files []FileDelta
	hunks []Hunk
	lines []Line

	fileN, hunkN, lineN int
}

func newMaterializer(b Bounds) *materializer {
	return &materializer{
		files: make([]FileDelta, b.Files),
		hunks: make([]Hunk, b.MaxHunks),
		lines: make([]Line, b.MaxLines),
	}
}

func (m *materializer) onFile(delta *DiffDelta) error {
	if err := m.onHunk(nil); err != nil {
		return err
	}
	if m.fileN > 0 {
		hunks := make([]Hunk, m.hunkN)
		copy(hunks, m.hunks[:m.hunkN])
		m.files[m.fileN-1].Hunks = hunks
	}
	if delta == nil {
		return nil
	}
	if m.fileN >= len(m.files) {
		return fmt.Errorf("%w: more than %d files", errBoundExceeded, len(m.files))
	}
	m.files[m.fileN] = FileDelta{
		OldPath: delta.OldFile.Path,
		NewPath: delta.NewFile.Path,
		Status:  delta.Status,
		OldID:   delta.OldFile.ID,
		NewID:   delta.NewFile.ID,
		OldMode: delta.OldFile.Mode,
		NewMode: delta.NewFile.Mode,
		Binary:  delta.Binary,
	}
	m.fileN++
	m.hunkN = 0
	m.lineN = 0
	return nil
}

func (m *materializer) onHunk(hunk *DiffHunk) error {
	if m.hunkN > 0 {
		lines := make([]Line, m.lineN)
		copy(lines, m.lines[:m.lineN])
		m.hunks[m.hunkN-1].Lines = lines
	}
	if hunk == nil {
		return nil
	}
	if m.hunkN >= len(m.hunks) {
		return fmt.Errorf("%w: more than %d hunks in a file", errBoundExceeded, len(m.hunks))
	}
	m.hunks[m.hunkN] = Hunk{
		OldStart: hunk.OldStart,
		OldLines: hunk.OldLines,
		NewStart: hunk.NewStart,
		NewLines: hunk.NewLines,
		Header:   hunk.Header,
	}
	m.hunkN++
	m.lineN = 0
	return nil
}

func (m *materializer) onLine(line *DiffLine) error {
	if m.lineN >= len(m.lines) {
		return fmt.Errorf("%w: more than %d lines in a hunk", errBoundExceeded, len(m.lines))
	}
	m.lines[m.lineN] = Line{
		Origin:    line.Origin,
		OldLineno: line.OldLineno,
		NewLineno: line.NewLineno,
		NumLines:  line.NumLines,
		Content:   line.Content,
	}
	m.lineN++
	return nil
}

// Materialize turns the diff into its nested form with two traversals: one
// to size the staging buffers, one to fill them.
func Materialize(d *Diff) ([]FileDelta, error) {
	bounds, err := Count(d)
	if err != nil {
		return nil, err
	}
	m := newMaterializer(bounds)
	err = d.ForEach(DiffCallbacks{
		File: func(delta *DiffDelta, _ float64) error { return m.onFile(delta) },
		Hunk: func(_ *DiffDelta, hunk *DiffHunk) error { return m.onHunk(hunk) },
		Line: func(_ *DiffDelta, _ *DiffHunk, line *DiffLine) error { return m.onLine(line) },
	})
	if err != nil {
		return nil, err
	}
	if err := m.onFile(nil); err != nil {
		return nil, err
	}
	return m.files[:m.fileN], nil
}
