package cmd

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/go-git/go-git/v5/plumbing"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/thiagokokada/gitbind/internal/git"
	"github.com/thiagokokada/gitbind/internal/gittest"
)

type fixture struct {
	repo   *gittest.Repo
	first  string
	second string
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	t.Setenv("HOME", t.TempDir())
	r := gittest.NewOnDisk(t)
	first := r.CommitFiles("first", map[string]string{"a.txt": "one\n"})
	second := r.CommitFiles("second", map[string]string{"a.txt": "one\ntwo\n"})
	r.Tag("v1", first, "first release\n")
	r.Write("a.txt", "one\ntwo\nthree\n")
	return fixture{repo: r, first: first.String(), second: second.String()}
}

func (f fixture) run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var stdout, stderr strings.Builder
	err := run(append([]string{"-C", f.repo.Path}, args...), &stdout, &stderr)
	return stdout.String(), err
}

func TestVersion(t *testing.T) {
	f := newFixture(t)
	out, err := f.run(t, "version")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "gitbind "), out)
}

func TestDiffText(t *testing.T) {
	f := newFixture(t)
	firstTree := f.repo.TreeOf(plumbing.NewHash(f.first)).String()[:7]
	secondTree := f.repo.TreeOf(plumbing.NewHash(f.second)).String()[:7]
	tests := []struct {
		name     string
		args     []string
		contains []string
		excludes []string
	}{
		{
			name:     "index to workdir",
			args:     []string{"diff"},
			contains: []string{"diff --git a/a.txt b/a.txt\n", "@@ -1,2 +1,3 @@\n", "+three\n"},
			excludes: []string{"+two\n"},
		},
		{
			name:     "HEAD to index is empty",
			args:     []string{"diff", "--cached"},
			excludes: []string{"diff --git"},
		},
		{
			name:     "tree to tree",
			args:     []string{"diff", "HEAD~1", "HEAD"},
			contains: []string{"@@ -1 +1,2 @@\n", "+two\n"},
			excludes: []string{"+three\n"},
		},
		{
			name:     "abbreviated tree ids",
			args:     []string{"diff", firstTree, secondTree},
			contains: []string{"@@ -1 +1,2 @@\n", "+two\n"},
			excludes: []string{"+three\n"},
		},
		{
			name:     "tag to workdir",
			args:     []string{"diff", "v1"},
			contains: []string{"+two\n", "+three\n"},
		},
		{
			name:     "no context",
			args:     []string{"diff", "-U", "0"},
			contains: []string{"@@ -2,0 +3 @@\n+three\n"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := f.run(t, append(tt.args, "--color", "never")...)
			require.NoError(t, err)
			for _, want := range tt.contains {
				assert.Contains(t, out, want)
			}
			for _, unwanted := range tt.excludes {
				assert.NotContains(t, out, unwanted)
			}
		})
	}
}

func TestDiffColor(t *testing.T) {
	f := newFixture(t)
	out, err := f.run(t, "diff", "--color", "always", "--theme", "dark")
	require.NoError(t, err)
	assert.Contains(t, out, "\x1b[")
}

func TestDiffJSON(t *testing.T) {
	f := newFixture(t)
	out, err := f.run(t, "diff", "--format", "json")
	require.NoError(t, err)

	var result struct {
		Old   string `json:"old"`
		New   string `json:"new"`
		Files []struct {
			NewFile string `json:"new_file"`
			Status  string `json:"status"`
			OldMode string `json:"old_mode"`
			Hunks   []struct {
				Header string `json:"header"`
				Lines  []struct {
					Origin    string `json:"origin"`
					NewLineno int    `json:"new_lineno"`
					Content   string `json:"content"`
				} `json:"lines"`
			} `json:"hunks"`
		} `json:"files"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &result))
	assert.Equal(t, "index", result.Old)
	assert.Equal(t, "workdir", result.New)
	require.Len(t, result.Files, 1)
	file := result.Files[0]
	assert.Equal(t, "a.txt", file.NewFile)
	assert.Equal(t, "modified", file.Status)
	assert.Equal(t, "100644", file.OldMode)
	require.Len(t, file.Hunks, 1)
	last := file.Hunks[0].Lines[len(file.Hunks[0].Lines)-1]
	assert.Equal(t, "addition", last.Origin)
	assert.Equal(t, 3, last.NewLineno)
	assert.Equal(t, "three\n", last.Content)
}

func TestDiffTree(t *testing.T) {
	f := newFixture(t)
	out, err := f.run(t, "diff", "--format", "tree", "--color", "never")
	require.NoError(t, err)
	assert.Contains(t, out, "modified a.txt (+1 -0)")
	assert.Contains(t, out, "+three")
}

func TestDiffOutputFile(t *testing.T) {
	f := newFixture(t)
	path := filepath.Join(t.TempDir(), "changes.patch")
	out, err := f.run(t, "diff", "--output", path)
	require.NoError(t, err)
	assert.Empty(t, out)
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "+three\n")
}

func TestDiffErrors(t *testing.T) {
	f := newFixture(t)

	_, err := f.run(t, "diff", "HEAD:a.txt")
	assert.ErrorIs(t, err, git.ErrInvalidArgument)

	_, err = f.run(t, "diff", "missing-branch")
	assert.ErrorIs(t, err, git.ErrNotFound)

	_, err = f.run(t, "diff", "--format", "xml")
	assert.ErrorContains(t, err, "unknown format")

	_, err = f.run(t, "diff", "a", "b", "c")
	assert.Error(t, err)

	var stdout, stderr strings.Builder
	err = run([]string{"-C", t.TempDir(), "diff"}, &stdout, &stderr)
	assert.ErrorIs(t, err, git.ErrRepositoryOpen)
}

func TestRevparse(t *testing.T) {
	f := newFixture(t)

	out, err := f.run(t, "revparse", "HEAD")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "commit "+f.second+"\n"), out)
	assert.Contains(t, out, "parent "+f.first+"\n")
	assert.Contains(t, out, "    second\n")

	out, err = f.run(t, "revparse", "v1")
	require.NoError(t, err)
	assert.Contains(t, out, "object "+f.first+"\ntype commit\nname v1\n")

	out, err = f.run(t, "revparse", "HEAD^{tree}")
	require.NoError(t, err)
	assert.Contains(t, out, "100644 blob ")
	assert.Contains(t, out, "\ta.txt\n")

	out, err = f.run(t, "revparse", "--json", "HEAD:a.txt")
	require.NoError(t, err)
	var blob map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &blob))
	assert.Equal(t, "blob", blob["type"])
	assert.EqualValues(t, len("one\ntwo\n"), blob["size"])

	_, err = f.run(t, "revparse", "nope")
	assert.ErrorIs(t, err, git.ErrNotFound)
}

func TestRunScript(t *testing.T) {
	f := newFixture(t)
	script := filepath.Join(t.TempDir(), "count.star")
	require.NoError(t, os.WriteFile(script, []byte(`
d = git.diff()
print(len(d.files), d.files[0].new_file)
print(git.revparse_single(None, "v1").name)
`), 0o644))

	out, err := f.run(t, "run", script)
	require.NoError(t, err)
	assert.Equal(t, "1 a.txt\nv1\n", out)

	require.NoError(t, os.WriteFile(script, []byte(`git.revparse_single(None, "nope")`), 0o644))
	_, err = f.run(t, "run", script)
	assert.ErrorContains(t, err, "requested object could not be found")
}
