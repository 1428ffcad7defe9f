package git

import (
	"github.com/go-git/go-git/v5/plumbing"
)

type SnapshotKind uint8

const (
	SnapshotWorkdir SnapshotKind = iota
	SnapshotIndex
	SnapshotHead
	SnapshotTree
)

func (k SnapshotKind) String() string {
	switch k {
	case SnapshotWorkdir:
		return "workdir"
	case SnapshotIndex:
		return "index"
	case SnapshotHead:
		return "HEAD"
	case SnapshotTree:
		return "tree"
	default:
		return "unknown"
	}
}

// Snapshot is one side of a comparison. Tree is only meaningful for
// SnapshotTree and may name a tree, or a commit or tag that peels to one.
type Snapshot struct {
	Kind SnapshotKind
	Tree plumbing.Hash
}

func Workdir() Snapshot { return Snapshot{Kind: SnapshotWorkdir} }
func Index() Snapshot { return Snapshot{Kind: SnapshotIndex} }
func Head() Snapshot { return Snapshot{Kind: SnapshotHead} }

func TreeSnapshot(hash plumbing.Hash) Snapshot {
	return Snapshot{Kind: SnapshotTree, Tree: hash}
}

// Label is what a structured diff records for this side.
func (s Snapshot) Label() string {
	if s.Kind == SnapshotTree {
		return s.Tree.String()
	}
	return s.Kind.String()
}

type Comparison struct {
	Old Snapshot
	New Snapshot
}

// SelectComparison maps the (tree1, tree2, cached) argument triple onto one
// of the five supported comparisons:
//
//	tree1 == nil, !cached          index   -> workdir
//	tree1 == nil,  cached          HEAD    -> index
//	tree1, tree2 == nil, !cached   tree1   -> workdir
//	tree1, tree2 == nil,  cached   tree1   -> index
//	tree1, tree2                   tree1   -> tree2
func SelectComparison(tree1, tree2 *plumbing.Hash, cached bool) (Comparison, error) {
	switch {
	case tree1 == nil && tree2 != nil:
		return Comparison{}, invalidArgument("second tree given without a first tree")
	case tree1 == nil && !cached:
		return Comparison{Old: Index(), New: Workdir()}, nil
	case tree1 == nil && cached:
		return Comparison{Old: Head(), New: Index()}, nil
	case tree2 == nil && !cached:
		return Comparison{Old: TreeSnapshot(*tree1), New: Workdir()}, nil
	case tree2 == nil && cached:
		return Comparison{Old: TreeSnapshot(*tree1), New: Index()}, nil
	default:
		return Comparison{Old: TreeSnapshot(*tree1), New: TreeSnapshot(*tree2)}, nil
	}
}

func (c Comparison) validate() error {
	switch {
	case c.Old.Kind == SnapshotIndex && c.New.Kind == SnapshotWorkdir:
	case (c.Old.Kind == SnapshotHead || c.Old.Kind == SnapshotTree) &&
		(c.New.Kind == SnapshotIndex || c.New.Kind == SnapshotWorkdir || c.New.Kind == SnapshotTree || c.New.Kind == SnapshotHead):
	default:
		return invalidArgument("cannot compare %s to %s", c.Old.Kind, c.New.Kind)
	}
	for _, side := range []Snapshot{c.Old, c.New} {
		if side.Kind == SnapshotTree && side.Tree.IsZero() {
			return invalidArgument("tree snapshot without an id")
		}
	}
	return nil
}

type DiffOptions struct {
	// ContextLines is the number of unchanged lines around each change.
	// Negative values select DefaultContextLines.
	ContextLines int
}

func (o DiffOptions) contextLines() int {
	if o.ContextLines < 0 {
		return DefaultContextLines
	}
	return o.ContextLines
}

func DefaultDiffOptions() DiffOptions {
	return DiffOptions{ContextLines: DefaultContextLines}
}

type OutputMode uint8

const (
	OutputStructured OutputMode = iota
	OutputText
	OutputFile
)

// Destination selects where Service.Diff sends its result.
type Destination struct {
	Mode OutputMode
	Path string
}

func ToStructure() Destination { return Destination{Mode: OutputStructured} }
func ToText() Destination { return Destination{Mode: OutputText} }
func ToFile(path string) Destination { return Destination{Mode: OutputFile, Path: path} }

// DiffOutput holds Result for OutputStructured and Text for OutputText.
// Both are empty for OutputFile.
type DiffOutput struct {
	Result *DiffResult
	Text   string
}
