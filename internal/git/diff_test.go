package git

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"

	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/filemode"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/thiagokokada/gitbind/internal/gittest"
)

func newService(r *gittest.Repo) *Service {
	return New(r.Repo, r.Path)
}

func numberedLines(prefix string, n int) string {
	var b strings.Builder
	for i := 1; i <= n; i++ {
		fmt.Fprintf(&b, "%s%d\n", prefix, i)
	}
	return b.String()
}

func treeComparison(t *testing.T, r *gittest.Repo, from, to plumbing.Hash) Comparison {
	t.Helper()
	tree1, tree2 := r.TreeOf(from), r.TreeOf(to)
	cmp, err := SelectComparison(&tree1, &tree2, false)
	require.NoError(t, err)
	return cmp
}

func structured(t *testing.T, svc *Service, cmp Comparison, opts DiffOptions) *DiffResult {
	t.Helper()
	out, err := svc.Diff(cmp, ToStructure(), opts)
	require.NoError(t, err)
	require.NotNil(t, out.Result)
	return out.Result
}

func TestDiffTreesOneAddedLine(t *testing.T) {
	t.Parallel()
	r := gittest.New(t)
	c1 := r.CommitFiles("first", map[string]string{"notes.txt": "a\nb\n"})
	c2 := r.CommitFiles("second", map[string]string{"notes.txt": "a\nb\nc\n"})
	svc := newService(r)

	result := structured(t, svc, treeComparison(t, r, c1, c2), DiffOptions{ContextLines: 0})
	require.Len(t, result.Files, 1)
	file := result.Files[0]
	assert.Equal(t, "notes.txt", file.OldPath)
	assert.Equal(t, "notes.txt", file.NewPath)
	assert.Equal(t, DeltaModified, file.Status)
	require.Len(t, file.Hunks, 1)
	hunk := file.Hunks[0]
	assert.Equal(t, "@@ -2,0 +3 @@\n", hunk.Header)
	require.Len(t, hunk.Lines, 1)
	assert.Equal(t, Line{Origin: OriginAddition, OldLineno: -1, NewLineno: 3, NumLines: 1, Content: "c\n"}, hunk.Lines[0])

	assert.Equal(t, r.TreeOf(c1).String(), result.Old)
	assert.Equal(t, r.TreeOf(c2).String(), result.New)
}

func TestDiffCountAndMaterializeAgree(t *testing.T) {
	t.Parallel()
	r := gittest.New(t)
	c1 := r.CommitFiles("first", map[string]string{
		"a.txt":    numberedLines("line", 20),
		"gone.txt": "bye\n",
	})
	changed := strings.Replace(numberedLines("line", 20), "line1\n", "LINE1\n", 1)
	changed = strings.Replace(changed, "line20\n", "LINE20\n", 1)
	r.Write("a.txt", changed)
	r.Write("b.txt", "x\ny\nz\n")
	r.Delete("gone.txt")
	r.Add("a.txt", "b.txt")
	c2 := r.Commit("second")
	svc := newService(r)

	d, err := svc.DiffHandle(treeComparison(t, r, c1, c2), DefaultDiffOptions())
	require.NoError(t, err)
	bounds, err := Count(d)
	require.NoError(t, err)
	assert.Equal(t, Bounds{Files: 3, MaxHunks: 2, MaxLines: 5}, bounds)

	files, err := Materialize(d)
	require.NoError(t, err)
	require.Len(t, files, 3)

	assert.Equal(t, "a.txt", files[0].Path())
	require.Len(t, files[0].Hunks, 2)
	assert.Equal(t, "@@ -1,4 +1,4 @@\n", files[0].Hunks[0].Header)
	assert.Equal(t, "@@ -17,4 +17,4 @@\n", files[0].Hunks[1].Header)
	assert.Len(t, files[0].Hunks[0].Lines, 5)
	assert.Len(t, files[0].Hunks[1].Lines, 5)

	assert.Equal(t, "b.txt", files[1].Path())
	assert.Equal(t, DeltaAdded, files[1].Status)
	require.Len(t, files[1].Hunks, 1)
	assert.Equal(t, "@@ -0,0 +1,3 @@\n", files[1].Hunks[0].Header)
	assert.Len(t, files[1].Hunks[0].Lines, 3)

	assert.Equal(t, "gone.txt", files[2].Path())
	assert.Equal(t, DeltaDeleted, files[2].Status)
	assert.True(t, files[2].NewID.IsZero())
	require.Len(t, files[2].Hunks, 1)
	assert.Equal(t, []Line{{Origin: OriginDeletion, OldLineno: 1, NewLineno: -1, NumLines: 1, Content: "bye\n"}}, files[2].Hunks[0].Lines)
}

var (
	diffGitLine  = regexp.MustCompile(`(?m)^diff --git a/(\S+) b/(\S+)$`)
	hunkHeaderRE = regexp.MustCompile(`(?m)^@@ .* @@$`)
)

func TestDiffTextMatchesStructured(t *testing.T) {
	t.Parallel()
	r := gittest.New(t)
	c1 := r.CommitFiles("first", map[string]string{
		"docs/readme.md": numberedLines("doc", 12),
		"main.go":        "package main\n\nfunc main() {}\n",
	})
	c2 := r.CommitFiles("second", map[string]string{
		"docs/readme.md": strings.Replace(numberedLines("doc", 12), "doc6\n", "doc six\n", 1),
		"main.go":        "package main\n\nfunc main() {\n\tprintln(1)\n}\n",
		"new.txt":        "fresh",
	})
	svc := newService(r)
	cmp := treeComparison(t, r, c1, c2)

	result := structured(t, svc, cmp, DefaultDiffOptions())
	out, err := svc.Diff(cmp, ToText(), DefaultDiffOptions())
	require.NoError(t, err)
	assert.Nil(t, out.Result)
	text := out.Text

	var paths []string
	for _, m := range diffGitLine.FindAllStringSubmatch(text, -1) {
		paths = append(paths, m[2])
	}
	var wantPaths, wantHeaders []string
	var body strings.Builder
	for _, f := range result.Files {
		wantPaths = append(wantPaths, f.Path())
		for _, h := range f.Hunks {
			wantHeaders = append(wantHeaders, strings.TrimSuffix(h.Header, "\n"))
			for _, l := range h.Lines {
				switch l.Origin {
				case OriginContext, OriginAddition, OriginDeletion:
					body.WriteByte(byte(l.Origin))
				}
				body.WriteString(l.Content)
			}
		}
	}
	assert.Equal(t, []string{"docs/readme.md", "main.go", "new.txt"}, wantPaths)
	assert.Equal(t, wantPaths, paths)
	assert.Equal(t, wantHeaders, hunkHeaderRE.FindAllString(text, -1))

	// Stripping file headers from the patch leaves exactly the hunk bodies.
	var stripped strings.Builder
	inHunk := false
	for _, line := range strings.SplitAfter(text, "\n") {
		switch {
		case strings.HasPrefix(line, "diff --git "):
			inHunk = false
		case strings.HasPrefix(line, "@@ "):
			inHunk = true
		case inHunk:
			stripped.WriteString(line)
		}
	}
	assert.Equal(t, body.String(), stripped.String())
}

func TestDiffZeroFiles(t *testing.T) {
	t.Parallel()
	r := gittest.New(t)
	c1 := r.CommitFiles("first", map[string]string{"a.txt": "same\n"})
	c2 := r.Commit("empty")
	svc := newService(r)
	cmp := treeComparison(t, r, c1, c2)

	result := structured(t, svc, cmp, DefaultDiffOptions())
	assert.Empty(t, result.Files)

	out, err := svc.Diff(cmp, ToText(), DefaultDiffOptions())
	require.NoError(t, err)
	assert.Equal(t, "", out.Text)

	d, err := svc.DiffHandle(cmp, DefaultDiffOptions())
	require.NoError(t, err)
	bounds, err := Count(d)
	require.NoError(t, err)
	assert.Equal(t, Bounds{}, bounds)
}

func TestDiffLastFileWithoutHunks(t *testing.T) {
	t.Parallel()
	r := gittest.New(t)
	r.CommitFiles("first", map[string]string{
		"a.txt":  "one\n",
		"run.sh": "#!/bin/sh\necho hi\n",
	})
	r.Write("a.txt", "two\n")
	r.WriteMode("run.sh", "#!/bin/sh\necho hi\n", 0o755)
	svc := newService(r)

	cmp, err := SelectComparison(nil, nil, false)
	require.NoError(t, err)
	result := structured(t, svc, cmp, DefaultDiffOptions())
	require.Len(t, result.Files, 2)
	assert.Equal(t, "index", result.Old)
	assert.Equal(t, "workdir", result.New)

	last := result.Files[1]
	assert.Equal(t, "run.sh", last.Path())
	assert.Equal(t, filemode.Regular, last.OldMode)
	assert.Equal(t, filemode.Executable, last.NewMode)
	assert.Equal(t, last.OldID, last.NewID)
	assert.NotNil(t, last.Hunks)
	assert.Empty(t, last.Hunks)

	out, err := svc.Diff(cmp, ToText(), DefaultDiffOptions())
	require.NoError(t, err)
	assert.Contains(t, out.Text, "diff --git a/run.sh b/run.sh\nold mode 100644\nnew mode 100755\n")
}

func TestDiffBinaryFile(t *testing.T) {
	t.Parallel()
	r := gittest.New(t)
	r.CommitFiles("first", map[string]string{"z.bin": "\x00\x01\x02"})
	r.Write("z.bin", "\x00\x01\x03")
	svc := newService(r)
	cmp := Comparison{Old: Index(), New: Workdir()}

	d, err := svc.DiffHandle(cmp, DefaultDiffOptions())
	require.NoError(t, err)
	var binaries, hunks int
	err = d.ForEach(DiffCallbacks{
		Binary: func(delta *DiffDelta) error {
			binaries++
			assert.True(t, delta.Binary)
			return nil
		},
		Hunk: func(*DiffDelta, *DiffHunk) error {
			hunks++
			return nil
		},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, binaries)
	assert.Zero(t, hunks)

	result := structured(t, svc, cmp, DefaultDiffOptions())
	require.Len(t, result.Files, 1)
	assert.True(t, result.Files[0].Binary)
	assert.Empty(t, result.Files[0].Hunks)

	out, err := svc.Diff(cmp, ToText(), DefaultDiffOptions())
	require.NoError(t, err)
	assert.Contains(t, out.Text, "Binary files a/z.bin and b/z.bin differ\n")
}

func TestDiffNoNewlineAtEOF(t *testing.T) {
	t.Parallel()
	r := gittest.New(t)
	c1 := r.CommitFiles("first", map[string]string{"f": "a"})
	c2 := r.CommitFiles("second", map[string]string{"f": "b"})
	svc := newService(r)
	cmp := treeComparison(t, r, c1, c2)

	result := structured(t, svc, cmp, DefaultDiffOptions())
	require.Len(t, result.Files, 1)
	require.Len(t, result.Files[0].Hunks, 1)
	var origins []LineOrigin
	for _, l := range result.Files[0].Hunks[0].Lines {
		origins = append(origins, l.Origin)
	}
	assert.Equal(t, []LineOrigin{OriginDeletion, OriginAddEOFNL, OriginAddition, OriginDelEOFNL}, origins)

	out, err := svc.Diff(cmp, ToText(), DefaultDiffOptions())
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(out.Text,
		"@@ -1 +1 @@\n-a\n\\ No newline at end of file\n+b\n\\ No newline at end of file\n"), out.Text)
}

func TestDiffComparisons(t *testing.T) {
	t.Parallel()
	r := gittest.New(t)
	c1 := r.CommitFiles("first", map[string]string{"tracked.txt": "v1\n"})
	r.Write("tracked.txt", "v2\n")
	r.Add("tracked.txt")
	r.Write("tracked.txt", "v3\n")
	r.Write("untracked.txt", "nobody knows\n")
	svc := newService(r)
	tree1 := r.TreeOf(c1)

	content := func(t *testing.T, result *DiffResult) (string, string) {
		t.Helper()
		require.Len(t, result.Files, 1)
		var removed, added string
		for _, l := range result.Files[0].Hunks[0].Lines {
			switch l.Origin {
			case OriginDeletion:
				removed += l.Content
			case OriginAddition:
				added += l.Content
			}
		}
		return removed, added
	}

	tests := []struct {
		name        string
		tree1       *plumbing.Hash
		cached      bool
		old, new    string
		wantRemoved string
		wantAdded   string
	}{
		{name: "index to workdir", old: "index", new: "workdir", wantRemoved: "v2\n", wantAdded: "v3\n"},
		{name: "HEAD to index", cached: true, old: "HEAD", new: "index", wantRemoved: "v1\n", wantAdded: "v2\n"},
		{name: "tree to workdir", tree1: &tree1, old: tree1.String(), new: "workdir", wantRemoved: "v1\n", wantAdded: "v3\n"},
		{name: "tree to index", tree1: &tree1, cached: true, old: tree1.String(), new: "index", wantRemoved: "v1\n", wantAdded: "v2\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmp, err := SelectComparison(tt.tree1, nil, tt.cached)
			require.NoError(t, err)
			result := structured(t, svc, cmp, DefaultDiffOptions())
			assert.Equal(t, tt.old, result.Old)
			assert.Equal(t, tt.new, result.New)
			assert.Equal(t, "tracked.txt", result.Files[0].Path())
			removed, added := content(t, result)
			assert.Equal(t, tt.wantRemoved, removed)
			assert.Equal(t, tt.wantAdded, added)
		})
	}
}

func TestDiffUnbornHead(t *testing.T) {
	t.Parallel()
	r := gittest.New(t)
	r.Write("first.txt", "hello\n")
	r.Add("first.txt")
	svc := newService(r)

	cmp, err := SelectComparison(nil, nil, true)
	require.NoError(t, err)
	result := structured(t, svc, cmp, DefaultDiffOptions())
	require.Len(t, result.Files, 1)
	assert.Equal(t, DeltaAdded, result.Files[0].Status)
	assert.Equal(t, "first.txt", result.Files[0].OldPath)
}

func TestDiffWorkdirDeletion(t *testing.T) {
	t.Parallel()
	r := gittest.New(t)
	r.CommitFiles("first", map[string]string{"dir/keep.txt": "keep\n", "dir/drop.txt": "drop\n"})
	r.Remove("dir/drop.txt")
	svc := newService(r)

	result := structured(t, svc, Comparison{Old: Index(), New: Workdir()}, DefaultDiffOptions())
	require.Len(t, result.Files, 1)
	assert.Equal(t, DeltaDeleted, result.Files[0].Status)
	assert.Equal(t, "dir/drop.txt", result.Files[0].Path())
}

func TestDiffToFile(t *testing.T) {
	t.Parallel()
	r := gittest.New(t)
	c1 := r.CommitFiles("first", map[string]string{"a.txt": "1\n"})
	c2 := r.CommitFiles("second", map[string]string{"a.txt": "2\n"})
	svc := newService(r)
	cmp := treeComparison(t, r, c1, c2)

	text, err := svc.Diff(cmp, ToText(), DefaultDiffOptions())
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "out.patch")
	require.NoError(t, os.WriteFile(path, []byte(strings.Repeat("stale\n", 100)), 0o644))
	out, err := svc.Diff(cmp, ToFile(path), DefaultDiffOptions())
	require.NoError(t, err)
	assert.Nil(t, out.Result)
	assert.Empty(t, out.Text)

	written, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, text.Text, string(written))

	_, err = svc.Diff(cmp, ToFile(""), DefaultDiffOptions())
	assert.ErrorIs(t, err, ErrInvalidArgument)
}

func TestDiffHandleInvalid(t *testing.T) {
	t.Parallel()
	r := gittest.New(t)
	svc := newService(r)

	_, err := svc.DiffHandle(Comparison{Old: Workdir(), New: Index()}, DefaultDiffOptions())
	assert.ErrorIs(t, err, ErrInvalidArgument)

	_, err = svc.DiffHandle(Comparison{Old: TreeSnapshot(plumbing.ZeroHash), New: Workdir()}, DefaultDiffOptions())
	assert.ErrorIs(t, err, ErrInvalidArgument)

	missing := plumbing.NewHash("0123456789abcdef0123456789abcdef01234567")
	_, err = svc.DiffHandle(Comparison{Old: TreeSnapshot(missing), New: Workdir()}, DefaultDiffOptions())
	var libErr *LibraryError
	assert.ErrorAs(t, err, &libErr)

	var nilSvc *Service
	_, err = nilSvc.DiffHandle(Comparison{Old: Index(), New: Workdir()}, DefaultDiffOptions())
	assert.ErrorIs(t, err, ErrRepositoryOpen)
}
