package git

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/filemode"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/go-git/go-git/v5/plumbing/storer"
)

type ObjectKind uint8

const (
	KindBlob ObjectKind = iota + 1
	KindCommit
	KindTag
	KindTree
)

func (k ObjectKind) String() string {
	switch k {
	case KindBlob:
		return "blob"
	case KindCommit:
		return "commit"
	case KindTag:
		return "tag"
	case KindTree:
		return "tree"
	default:
		return "unknown"
	}
}

func (k ObjectKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// Object is what RevParseSingle resolves to: a *Blob, *Commit, *Tag or
// *Tree.
type Object interface {
	Kind() ObjectKind
	ID() plumbing.Hash
}

type Blob struct {
	Hash   plumbing.Hash
	Size   int64
	Binary bool
}

type Commit struct {
	Hash         plumbing.Hash
	Tree         plumbing.Hash
	ParentHashes []plumbing.Hash
	Author       Signature
	Committer    Signature
	Summary      string
	Message      string
}

type Tag struct {
	Hash       plumbing.Hash
	Name       string
	Message    string
	Tagger     Signature
	Target     plumbing.Hash
	TargetKind ObjectKind
}

type TreeEntry struct {
	Name string
	Mode filemode.FileMode
	Kind ObjectKind
	Hash plumbing.Hash
}

type Tree struct {
	Hash    plumbing.Hash
	Entries []TreeEntry
}

func (b *Blob) Kind() ObjectKind { return KindBlob }
func (b *Blob) ID() plumbing.Hash { return b.Hash }
func (c *Commit) Kind() ObjectKind { return KindCommit }
func (c *Commit) ID() plumbing.Hash { return c.Hash }
func (t *Tag) Kind() ObjectKind { return KindTag }
func (t *Tag) ID() plumbing.Hash { return t.Hash }
func (t *Tree) Kind() ObjectKind { return KindTree }
func (t *Tree) ID() plumbing.Hash { return t.Hash }

// RevParseSingle resolves a revision to the object it names. A revision
// that names nothing fails with ErrNotFound and a short id matching several
// objects with ErrAmbiguous; any other failure is a *LibraryError, or
// ErrUnsupportedObject for exotic object kinds.
func (s *Service) RevParseSingle(rev string) (Object, error) {
	if err := s.ensureRepo(); err != nil {
		return nil, err
	}
	if strings.TrimSpace(rev) == "" {
		return nil, invalidArgument("revision is empty")
	}
	obj, err := s.resolveObject(rev)
	if err != nil {
		if isNotFound(err) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, rev)
		}
		if errors.Is(err, ErrAmbiguous) {
			return nil, err
		}
		return nil, libraryError("revparse "+rev, err)
	}
	slog.Debug("revision resolved",
		slog.String("revision", rev),
		slog.String("id", obj.ID().String()),
		slog.String("type", obj.Type().String()),
	)
	return convertObject(obj)
}

func (s *Service) resolveObject(rev string) (object.Object, error) {
	// <rev>^{/regexp} searches commit messages
	if strings.Contains(rev, "^{/") {
		return s.resolveRevision(rev)
	}
	// <rev>:<path> and :<path> (index)
	if i := strings.IndexByte(rev, ':'); i >= 0 {
		return s.resolvePath(rev[:i], rev[i+1:])
	}
	// <rev>^{type}
	if strings.HasSuffix(rev, "}") {
		if i := strings.LastIndex(rev, "^{"); i > 0 {
			obj, err := s.resolveObject(rev[:i])
			if err != nil {
				return nil, err
			}
			return peel(obj, rev[i+2:len(rev)-1])
		}
	}
	if isFullHash(rev) {
		return s.repo.Object(plumbing.AnyObject, plumbing.NewHash(rev))
	}
	if isShortHash(rev) {
		hash, ok, err := s.expandShortHash(rev)
		if err != nil {
			return nil, err
		}
		if ok {
			return s.repo.Object(plumbing.AnyObject, hash)
		}
	}
	if ref, ok := s.tagReference(rev); ok {
		return s.repo.Object(plumbing.AnyObject, ref.Hash())
	}
	return s.resolveRevision(rev)
}

// resolveRevision defers to go-git's revision grammar. Walking past the
// root commit, asking for a missing merge parent or matching no commit
// message all mean the revision names nothing.
func (s *Service) resolveRevision(rev string) (object.Object, error) {
	hash, err := s.repo.ResolveRevision(plumbing.Revision(rev))
	if err != nil {
		if errors.Is(err, io.EOF) || strings.HasPrefix(err.Error(), "no commit message match") {
			return nil, fmt.Errorf("%w: %v", plumbing.ErrReferenceNotFound, err)
		}
		return nil, err
	}
	return s.repo.Object(plumbing.AnyObject, *hash)
}

// expandShortHash finds the single object of any kind whose id starts with
// prefix. go-git's own lookup only considers commits and tags.
func (s *Service) expandShortHash(prefix string) (plumbing.Hash, bool, error) {
	prefix = strings.ToLower(prefix)
	iter, err := s.repo.Storer.IterEncodedObjects(plumbing.AnyObject)
	if err != nil {
		return plumbing.ZeroHash, false, err
	}
	defer iter.Close()
	var matches []plumbing.Hash
	err = iter.ForEach(func(obj plumbing.EncodedObject) error {
		if h := obj.Hash(); strings.HasPrefix(h.String(), prefix) {
			matches = append(matches, h)
			if len(matches) > 1 {
				return storer.ErrStop
			}
		}
		return nil
	})
	if err != nil {
		return plumbing.ZeroHash, false, err
	}
	switch len(matches) {
	case 0:
		return plumbing.ZeroHash, false, nil
	case 1:
		return matches[0], true, nil
	default:
		return plumbing.ZeroHash, false, fmt.Errorf("%w: short id %s", ErrAmbiguous, prefix)
	}
}

// tagReference finds a tag ref without peeling it, so annotated tags
// resolve to the tag object rather than to the commit.
func (s *Service) tagReference(rev string) (*plumbing.Reference, bool) {
	names := []plumbing.ReferenceName{plumbing.NewTagReferenceName(rev)}
	if strings.HasPrefix(rev, "refs/tags/") {
		names = []plumbing.ReferenceName{plumbing.ReferenceName(rev)}
	}
	for _, name := range names {
		ref, err := s.repo.Reference(name, true)
		if err == nil {
			return ref, true
		}
	}
	return nil, false
}

func (s *Service) resolvePath(base, path string) (object.Object, error) {
	path = strings.Trim(path, "/")
	if base == "" {
		idx, err := s.repo.Storer.Index()
		if err != nil {
			return nil, err
		}
		entry, err := idx.Entry(path)
		if err != nil {
			return nil, err
		}
		return s.repo.Object(plumbing.AnyObject, entry.Hash)
	}
	obj, err := s.resolveObject(base)
	if err != nil {
		return nil, err
	}
	tree, err := peelToTree(obj)
	if err != nil {
		return nil, err
	}
	if path == "" {
		return tree, nil
	}
	entry, err := tree.FindEntry(path)
	if err != nil {
		return nil, err
	}
	return s.repo.Object(plumbing.AnyObject, entry.Hash)
}

func peel(obj object.Object, target string) (object.Object, error) {
	switch target {
	case "":
		for {
			tag, ok := obj.(*object.Tag)
			if !ok {
				return obj, nil
			}
			next, err := tag.Object()
			if err != nil {
				return nil, err
			}
			obj = next
		}
	case "tree":
		return peelToTree(obj)
	case "commit":
		for range 8 {
			switch o := obj.(type) {
			case *object.Commit:
				return o, nil
			case *object.Tag:
				next, err := o.Object()
				if err != nil {
					return nil, err
				}
				obj = next
			default:
				return nil, fmt.Errorf("object %s cannot be peeled to a commit", obj.ID())
			}
		}
		return nil, fmt.Errorf("object %s: tag chain too deep", obj.ID())
	case "tag":
		if _, ok := obj.(*object.Tag); ok {
			return obj, nil
		}
		return nil, fmt.Errorf("object %s is not a tag", obj.ID())
	case "blob":
		if _, ok := obj.(*object.Blob); ok {
			return obj, nil
		}
		return nil, fmt.Errorf("object %s is not a blob", obj.ID())
	default:
		return nil, fmt.Errorf("invalid peel target %q", target)
	}
}

func isFullHash(rev string) bool {
	return len(rev) == 40 && isHex(rev)
}

const minShortHash = 4

func isShortHash(rev string) bool {
	return len(rev) >= minShortHash && len(rev) < 40 && isHex(rev)
}

func isHex(s string) bool {
	for _, c := range s {
		switch {
		case '0' <= c && c <= '9', 'a' <= c && c <= 'f', 'A' <= c && c <= 'F':
		default:
			return false
		}
	}
	return true
}

func convertObject(obj object.Object) (Object, error) {
	switch o := obj.(type) {
	case *object.Blob:
		blob := &Blob{Hash: o.Hash, Size: o.Size}
		data, err := blobBytes(o)
		if err != nil {
			return nil, libraryError("read blob", err)
		}
		blob.Binary = isBinary(data)
		return blob, nil
	case *object.Commit:
		return newCommit(o), nil
	case *object.Tag:
		return &Tag{
			Hash:       o.Hash,
			Name:       o.Name,
			Message:    o.Message,
			Tagger:     newSignature(o.Tagger),
			Target:     o.Target,
			TargetKind: kindOf(o.TargetType),
		}, nil
	case *object.Tree:
		tree := &Tree{Hash: o.Hash, Entries: make([]TreeEntry, 0, len(o.Entries))}
		for _, e := range o.Entries {
			tree.Entries = append(tree.Entries, TreeEntry{
				Name: e.Name,
				Mode: e.Mode,
				Kind: entryKind(e.Mode),
				Hash: e.Hash,
			})
		}
		return tree, nil
	default:
		return nil, fmt.Errorf("%w: %s is a %s", ErrUnsupportedObject, obj.ID(), obj.Type())
	}
}

func newCommit(c *object.Commit) *Commit {
	return &Commit{
		Hash:         c.Hash,
		Tree:         c.TreeHash,
		ParentHashes: c.ParentHashes,
		Author:       newSignature(c.Author),
		Committer:    newSignature(c.Committer),
		Summary:      commitSummary(c.Message),
		Message:      c.Message,
	}
}

func newSignature(sig object.Signature) Signature {
	return Signature{Name: sig.Name, Email: sig.Email, When: sig.When}
}

func commitSummary(message string) string {
	return strings.SplitN(strings.TrimSpace(message), "\n", 2)[0]
}

func kindOf(t plumbing.ObjectType) ObjectKind {
	switch t {
	case plumbing.BlobObject:
		return KindBlob
	case plumbing.CommitObject:
		return KindCommit
	case plumbing.TagObject:
		return KindTag
	case plumbing.TreeObject:
		return KindTree
	default:
		return 0
	}
}

func entryKind(mode filemode.FileMode) ObjectKind {
	switch mode {
	case filemode.Dir:
		return KindTree
	case filemode.Submodule:
		return KindCommit
	default:
		return KindBlob
	}
}
