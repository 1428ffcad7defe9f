package git

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
)

// Diff compares the two snapshots of cmp and delivers the result to dest:
// a DiffResult, the patch text, or a file holding the patch text.
func (s *Service) Diff(cmp Comparison, dest Destination, opts DiffOptions) (DiffOutput, error) {
	if dest.Mode == OutputFile && dest.Path == "" {
		return DiffOutput{}, invalidArgument("output file name is empty")
	}
	d, err := s.DiffHandle(cmp, opts)
	if err != nil {
		return DiffOutput{}, err
	}
	switch dest.Mode {
	case OutputStructured:
		files, err := Materialize(d)
		if err != nil {
			return DiffOutput{}, libraryError("format diff", err)
		}
		return DiffOutput{Result: &DiffResult{
			Old:   d.Old().Label(),
			New:   d.New().Label(),
			Files: files,
		}}, nil
	case OutputText:
		var b strings.Builder
		if err := PrintPatch(d, &b); err != nil {
			return DiffOutput{}, libraryError("print diff", err)
		}
		return DiffOutput{Text: b.String()}, nil
	case OutputFile:
		if err := writePatchFile(d, dest.Path); err != nil {
			return DiffOutput{}, err
		}
		slog.Debug("diff written", slog.String("path", dest.Path))
		return DiffOutput{}, nil
	default:
		return DiffOutput{}, invalidArgument("unknown output mode %d", dest.Mode)
	}
}

func writePatchFile(d *Diff, path string) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer func() {
		err = errors.Join(err, f.Close())
	}()
	if err := PrintPatch(d, f); err != nil {
		return libraryError("print diff", err)
	}
	return nil
}
