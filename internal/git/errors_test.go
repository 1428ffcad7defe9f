package git

import (
	"errors"
	"fmt"
	"testing"

	"github.com/go-git/go-git/v5/plumbing"
	gitindex "github.com/go-git/go-git/v5/plumbing/format/index"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/stretchr/testify/assert"
)

func TestLibraryErrorDoesNotNest(t *testing.T) {
	t.Parallel()
	inner := libraryError("read index", plumbing.ErrObjectNotFound)
	outer := libraryError("diff", fmt.Errorf("wrapped: %w", inner))

	var libErr *LibraryError
	assert.ErrorAs(t, outer, &libErr)
	assert.Equal(t, "read index", libErr.Op)
	assert.ErrorIs(t, outer, plumbing.ErrObjectNotFound)
	assert.Nil(t, libraryError("noop", nil))
	assert.Equal(t, "read index: object not found", inner.Error())
}

func TestInvalidArgument(t *testing.T) {
	t.Parallel()
	err := invalidArgument("bad mode %d", 7)
	assert.ErrorIs(t, err, ErrInvalidArgument)
	assert.EqualError(t, err, "invalid argument: bad mode 7")
}

func TestIsNotFound(t *testing.T) {
	t.Parallel()
	for _, err := range []error{
		plumbing.ErrObjectNotFound,
		plumbing.ErrReferenceNotFound,
		object.ErrFileNotFound,
		object.ErrDirectoryNotFound,
		object.ErrEntryNotFound,
		gitindex.ErrEntryNotFound,
		fmt.Errorf("lookup: %w", plumbing.ErrObjectNotFound),
	} {
		assert.True(t, isNotFound(err), "%v", err)
	}
	assert.False(t, isNotFound(errors.New("object corrupt")))
	assert.False(t, isNotFound(nil))
}
