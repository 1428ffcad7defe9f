package starlarkgit

import (
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/thiagokokada/gitbind/internal/git"
	sl "go.starlark.net/starlark"
	sls "go.starlark.net/starlarkstruct"
)

func newStruct(constructor string, fields sl.StringDict) *sls.Struct {
	return sls.FromStringDict(sl.String(constructor), fields)
}

func isStruct(v sl.Value, constructor string) (*sls.Struct, bool) {
	s, ok := v.(*sls.Struct)
	if !ok {
		return nil, false
	}
	name, ok := s.Constructor().(sl.String)
	return s, ok && string(name) == constructor
}

func structString(s *sls.Struct, field string) (string, bool) {
	v, err := s.Attr(field)
	if err != nil {
		return "", false
	}
	str, ok := sl.AsString(v)
	return str, ok
}

func structRepository(s *sls.Struct) *Repository {
	v, err := s.Attr("repo")
	if err != nil {
		return nil
	}
	repo, _ := v.(*Repository)
	return repo
}

func diffValue(result *git.DiffResult, oldSide, newSide sl.Value) sl.Value {
	files := make([]sl.Value, 0, len(result.Files))
	for _, f := range result.Files {
		files = append(files, fileValue(f))
	}
	return newStruct("git_diff", sl.StringDict{
		"old":   oldSide,
		"new":   newSide,
		"files": sl.NewList(files),
	})
}

func fileValue(f git.FileDelta) sl.Value {
	hunks := make([]sl.Value, 0, len(f.Hunks))
	for _, h := range f.Hunks {
		hunks = append(hunks, hunkValue(h))
	}
	return newStruct("git_diff_file", sl.StringDict{
		"old_file": sl.String(f.OldPath),
		"new_file": sl.String(f.NewPath),
		"status":   sl.String(f.Status.String()),
		"old_id":   sl.String(f.OldID.String()),
		"new_id":   sl.String(f.NewID.String()),
		"binary":   sl.Bool(f.Binary),
		"hunks":    sl.NewList(hunks),
	})
}

func hunkValue(h git.Hunk) sl.Value {
	lines := make([]sl.Value, 0, len(h.Lines))
	for _, l := range h.Lines {
		lines = append(lines, newStruct("git_diff_line", sl.StringDict{
			"origin":     sl.String(string(rune(l.Origin))),
			"old_lineno": sl.MakeInt(l.OldLineno),
			"new_lineno": sl.MakeInt(l.NewLineno),
			"num_lines":  sl.MakeInt(l.NumLines),
			"content":    sl.String(l.Content),
		}))
	}
	return newStruct("git_diff_hunk", sl.StringDict{
		"old_start": sl.MakeInt(h.OldStart),
		"old_lines": sl.MakeInt(h.OldLines),
		"new_start": sl.MakeInt(h.NewStart),
		"new_lines": sl.MakeInt(h.NewLines),
		"header":    sl.String(h.Header),
		"lines":     sl.NewList(lines),
	})
}

func objectValue(repo *Repository, obj git.Object) sl.Value {
	switch o := obj.(type) {
	case *git.Blob:
		return newStruct("git_blob", sl.StringDict{
			"sha":    sl.String(o.Hash.String()),
			"size":   sl.MakeInt64(o.Size),
			"binary": sl.Bool(o.Binary),
			"repo":   repo,
		})
	case *git.Commit:
		parents := make([]sl.Value, 0, len(o.ParentHashes))
		for _, p := range o.ParentHashes {
			parents = append(parents, sl.String(p.String()))
		}
		return newStruct("git_commit", sl.StringDict{
			"sha":       sl.String(o.Hash.String()),
			"tree":      sl.String(o.Tree.String()),
			"parents":   sl.NewList(parents),
			"author":    signatureValue(o.Author),
			"committer": signatureValue(o.Committer),
			"summary":   sl.String(o.Summary),
			"message":   sl.String(o.Message),
			"repo":      repo,
		})
	case *git.Tag:
		return newStruct("git_tag", sl.StringDict{
			"sha":         sl.String(o.Hash.String()),
			"name":        sl.String(o.Name),
			"message":     sl.String(o.Message),
			"tagger":      signatureValue(o.Tagger),
			"target":      sl.String(o.Target.String()),
			"target_type": sl.String(o.TargetKind.String()),
			"repo":        repo,
		})
	case *git.Tree:
		entries := make([]sl.Value, 0, len(o.Entries))
		for _, e := range o.Entries {
			entries = append(entries, newStruct("git_tree_entry", sl.StringDict{
				"name": sl.String(e.Name),
				"mode": sl.String(git.ModeString(e.Mode)),
				"type": sl.String(e.Kind.String()),
				"sha":  sl.String(e.Hash.String()),
			}))
		}
		return newStruct("git_tree", sl.StringDict{
			"sha":     sl.String(o.Hash.String()),
			"entries": sl.NewList(entries),
			"repo":    repo,
		})
	default:
		return sl.None
	}
}

func signatureValue(sig git.Signature) sl.Value {
	return newStruct("git_signature", sl.StringDict{
		"name":  sl.String(sig.Name),
		"email": sl.String(sig.Email),
		"when":  sl.MakeInt64(sig.When.Unix()),
	})
}

// treeArg reads a git_tree struct passed to git.diff.
func treeArg(v sl.Value) (*plumbing.Hash, *Repository, bool) {
	s, ok := isStruct(v, "git_tree")
	if !ok {
		return nil, nil, false
	}
	sha, ok := structString(s, "sha")
	if !ok || !plumbing.IsHash(sha) {
		return nil, nil, false
	}
	hash := plumbing.NewHash(sha)
	return &hash, structRepository(s), true
}
