package git

import (
	"errors"
	"log/slog"
	"sort"

	"github.com/go-git/go-git/v5/plumbing/object"
)

// Diff is a computed set of file deltas. It can only be consumed through
// ForEach, which replays it file by file, hunk by hunk, line by line.
type Diff struct {
	old     Snapshot
	new     Snapshot
	context int
	deltas  []*pendingDelta
}

type pendingDelta struct {
	delta DiffDelta
	old   *fileVersion
	new   *fileVersion
	patch *filePatch
}

// DiffCallbacks are invoked synchronously, in order, by ForEach. A nil
// slot is skipped. Returning an error stops the traversal and ForEach
// returns that error unchanged.
type DiffCallbacks struct {
	File   func(delta *DiffDelta, progress float64) error
	Binary func(delta *DiffDelta) error
	Hunk   func(delta *DiffDelta, hunk *DiffHunk) error
	Line   func(delta *DiffDelta, hunk *DiffHunk, line *DiffLine) error
}

func (d *Diff) Old() Snapshot { return d.old }
func (d *Diff) New() Snapshot { return d.new }

func (d *Diff) NumDeltas() int {
	if d == nil {
		return 0
	}
	return len(d.deltas)
}

func (d *Diff) ForEach(cb DiffCallbacks) error {
	if d == nil {
		return invalidArgument("nil diff")
	}
	for i, pending := range d.deltas {
		patch, err := d.patchFor(pending)
		if err != nil {
			return err
		}
		delta := pending.delta
		delta.Binary = patch.binary
		if cb.File != nil {
			progress := float64(i) / float64(len(d.deltas))
			if err := cb.File(&delta, progress); err != nil {
				return err
			}
		}
		if patch.binary {
			if cb.Binary != nil {
				if err := cb.Binary(&delta); err != nil {
					return err
				}
			}
			continue
		}
		if cb.Hunk == nil && cb.Line == nil {
			continue
		}
		for _, h := range patch.hunks {
			hunk := h.hunk
			if cb.Hunk != nil {
				if err := cb.Hunk(&delta, &hunk); err != nil {
					return err
				}
			}
			if cb.Line == nil {
				continue
			}
			for _, l := range h.lines {
				line := l
				if err := cb.Line(&delta, &hunk, &line); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

func (d *Diff) patchFor(p *pendingDelta) (*filePatch, error) {
	if p.patch != nil {
		return p.patch, nil
	}
	oldData, err := loadVersion(p.old)
	if err != nil {
		return nil, libraryError("load "+p.delta.OldFile.Path, err)
	}
	newData, err := loadVersion(p.new)
	if err != nil {
		return nil, libraryError("load "+p.delta.NewFile.Path, err)
	}
	patch, err := buildFilePatch(oldData, newData, d.context)
	if err != nil {
		return nil, libraryError("diff "+p.delta.NewFile.Path, err)
	}
	p.patch = patch
	return patch, nil
}

func loadVersion(f *fileVersion) ([]byte, error) {
	if f == nil || f.load == nil {
		return nil, nil
	}
	return f.load()
}

// DiffHandle computes the deltas of a comparison without traversing them.
func (s *Service) DiffHandle(cmp Comparison, opts DiffOptions) (*Diff, error) {
	if err := s.ensureRepo(); err != nil {
		return nil, err
	}
	if err := cmp.validate(); err != nil {
		return nil, err
	}
	slog.Debug("computing diff",
		slog.String("old", cmp.Old.Label()),
		slog.String("new", cmp.New.Label()),
	)
	var (
		deltas []*pendingDelta
		err    error
	)
	if isTreeLike(cmp.Old) && isTreeLike(cmp.New) {
		deltas, err = s.treeToTreeDeltas(cmp)
	} else {
		deltas, err = s.snapshotDeltas(cmp)
	}
	if err != nil {
		return nil, err
	}
	slog.Debug("diff computed", slog.Int("files", len(deltas)))
	return &Diff{old: cmp.Old, new: cmp.New, context: opts.contextLines(), deltas: deltas}, nil
}

func isTreeLike(s Snapshot) bool {
	return s.Kind == SnapshotTree || s.Kind == SnapshotHead
}

func (s *Service) resolveTree(snap Snapshot) (*object.Tree, error) {
	if snap.Kind == SnapshotHead {
		tree, err := s.headTree()
		if err != nil {
			return nil, libraryError("resolve HEAD^{tree}", err)
		}
		return tree, nil
	}
	tree, err := s.treeObject(snap.Tree)
	if err != nil {
		return nil, libraryError("lookup tree", err)
	}
	return tree, nil
}

func (s *Service) treeToTreeDeltas(cmp Comparison) ([]*pendingDelta, error) {
	oldTree, err := s.resolveTree(cmp.Old)
	if err != nil {
		return nil, err
	}
	newTree, err := s.resolveTree(cmp.New)
	if err != nil {
		return nil, err
	}
	changes, err := object.DiffTree(oldTree, newTree)
	if err != nil {
		return nil, libraryError("diff trees", err)
	}
	deltas := make([]*pendingDelta, 0, len(changes))
	for _, change := range changes {
		from, to, err := change.Files()
		if err != nil {
			return nil, libraryError("read change "+change.String(), err)
		}
		if pending := newPendingDelta(objectVersion(from), objectVersion(to)); pending != nil {
			deltas = append(deltas, pending)
		}
	}
	sort.SliceStable(deltas, func(i, j int) bool {
		return deltaPath(deltas[i]) < deltaPath(deltas[j])
	})
	return deltas, nil
}

func objectVersion(f *object.File) *fileVersion {
	if f == nil {
		return nil
	}
	return &fileVersion{
		path: f.Name,
		hash: f.Hash,
		mode: f.Mode,
		size: f.Size,
		load: func() ([]byte, error) { return blobBytes(&f.Blob) },
	}
}

func (s *Service) snapshotDeltas(cmp Comparison) ([]*pendingDelta, error) {
	oldFiles, err := s.loadSnapshot(cmp.Old, nil)
	if err != nil {
		return nil, err
	}
	var candidates snapshotFiles
	if cmp.New.Kind == SnapshotWorkdir {
		// Tracked paths are those in the old side or in the index.
		candidates = oldFiles
		if cmp.Old.Kind != SnapshotIndex {
			indexed, err := s.indexFiles()
			if err != nil {
				return nil, err
			}
			candidates = mergeFiles(oldFiles, indexed)
		}
	}
	newFiles, err := s.loadSnapshot(cmp.New, candidates)
	if err != nil {
		return nil, err
	}
	var deltas []*pendingDelta
	for _, path := range sortedPaths(oldFiles, newFiles) {
		if pending := newPendingDelta(oldFiles[path], newFiles[path]); pending != nil {
			deltas = append(deltas, pending)
		}
	}
	return deltas, nil
}

func mergeFiles(sets ...snapshotFiles) snapshotFiles {
	merged := snapshotFiles{}
	for _, set := range sets {
		for path, f := range set {
			if _, ok := merged[path]; !ok {
				merged[path] = f
			}
		}
	}
	return merged
}

// newPendingDelta classifies a path; unchanged paths yield nil.
func newPendingDelta(oldFile, newFile *fileVersion) *pendingDelta {
	var status DeltaStatus
	switch {
	case oldFile == nil && newFile == nil:
		return nil
	case oldFile == nil:
		status = DeltaAdded
	case newFile == nil:
		status = DeltaDeleted
	case oldFile.hash == newFile.hash && oldFile.mode == newFile.mode:
		return nil
	default:
		status = DeltaModified
	}
	delta := DiffDelta{
		Status:  status,
		OldFile: oldFile.diffFile(),
		NewFile: newFile.diffFile(),
	}
	// Both sides carry the path, as git does for additions and deletions.
	if delta.OldFile.Path == "" {
		delta.OldFile.Path = delta.NewFile.Path
	}
	if delta.NewFile.Path == "" {
		delta.NewFile.Path = delta.OldFile.Path
	}
	return &pendingDelta{delta: delta, old: oldFile, new: newFile}
}

func deltaPath(p *pendingDelta) string {
	if p.delta.NewFile.Path != "" {
		return p.delta.NewFile.Path
	}
	return p.delta.OldFile.Path
}

var errBoundExceeded = errors.New("diff changed between counting and materializing")
