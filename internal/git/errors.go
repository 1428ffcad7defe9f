package git

import (
	"errors"
	"fmt"

	"github.com/go-git/go-git/v5/plumbing"
	gitindex "github.com/go-git/go-git/v5/plumbing/format/index"
	"github.com/go-git/go-git/v5/plumbing/object"
)

var (
	ErrInvalidArgument   = errors.New("invalid argument")
	ErrRepositoryOpen    = errors.New("invalid repository")
	ErrNotFound          = errors.New("requested object could not be found")
	ErrUnsupportedObject = errors.New("revision must resolve to a blob, commit, tag or tree")
	ErrAmbiguous         = errors.New("ambiguous object id")
)

// LibraryError wraps a failure reported by go-git while running Op.
type LibraryError struct {
	Op  string
	Err error
}

func (e *LibraryError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *LibraryError) Unwrap() error { return e.Err }

func libraryError(op string, err error) error {
	if err == nil {
		return nil
	}
	var libErr *LibraryError
	if errors.As(err, &libErr) {
		return err
	}
	return &LibraryError{Op: op, Err: err}
}

func invalidArgument(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidArgument, fmt.Sprintf(format, args...))
}

func isNotFound(err error) bool {
	return errors.Is(err, plumbing.ErrObjectNotFound) ||
		errors.Is(err, plumbing.ErrReferenceNotFound) ||
		errors.Is(err, object.ErrFileNotFound) ||
		errors.Is(err, object.ErrDirectoryNotFound) ||
		errors.Is(err, object.ErrEntryNotFound) ||
		errors.Is(err, gitindex.ErrEntryNotFound)
}
