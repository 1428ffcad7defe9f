package git

import (
	"errors"
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/util"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/filemode"
	"github.com/go-git/go-git/v5/plumbing/object"
)

// fileVersion is one side of one path in a comparison. Content is loaded
// lazily, only for paths that actually differ.
type fileVersion struct {
	path string
	hash plumbing.Hash
	mode filemode.FileMode
	size int64
	load func() ([]byte, error)
}

func (f *fileVersion) diffFile() DiffFile {
	if f == nil {
		return DiffFile{}
	}
	return DiffFile{Path: f.path, ID: f.hash, Mode: f.mode, Size: f.size}
}

type snapshotFiles map[string]*fileVersion

func (s *Service) loadSnapshot(snap Snapshot, candidates snapshotFiles) (snapshotFiles, error) {
	switch snap.Kind {
	case SnapshotHead:
		tree, err := s.headTree()
		if errors.Is(err, plumbing.ErrReferenceNotFound) {
			return snapshotFiles{}, nil
		}
		if err != nil {
			return nil, libraryError("resolve HEAD^{tree}", err)
		}
		return treeFiles(tree)
	case SnapshotTree:
		tree, err := s.treeObject(snap.Tree)
		if err != nil {
			return nil, libraryError("lookup tree", err)
		}
		return treeFiles(tree)
	case SnapshotIndex:
		return s.indexFiles()
	case SnapshotWorkdir:
		return s.workdirFiles(candidates)
	default:
		return nil, invalidArgument("unknown snapshot kind %d", snap.Kind)
	}
}

func treeFiles(tree *object.Tree) (snapshotFiles, error) {
	files := snapshotFiles{}
	if tree == nil {
		return files, nil
	}
	iter := tree.Files()
	defer iter.Close()
	err := iter.ForEach(func(f *object.File) error {
		file := f
		files[f.Name] = &fileVersion{
			path: f.Name,
			hash: f.Hash,
			mode: f.Mode,
			size: f.Size,
			load: func() ([]byte, error) { return blobBytes(&file.Blob) },
		}
		return nil
	})
	if err != nil {
		return nil, libraryError("walk tree", err)
	}
	return files, nil
}

func (s *Service) indexFiles() (snapshotFiles, error) {
	idx, err := s.repo.Storer.Index()
	if err != nil {
		return nil, libraryError("read index", err)
	}
	files := snapshotFiles{}
	for _, entry := range idx.Entries {
		if entry.Mode == filemode.Submodule {
			continue
		}
		hash := entry.Hash
		files[entry.Name] = &fileVersion{
			path: entry.Name,
			hash: hash,
			mode: entry.Mode,
			size: int64(entry.Size),
			load: func() ([]byte, error) {
				blob, err := object.GetBlob(s.repo.Storer, hash)
				if err != nil {
					return nil, err
				}
				return blobBytes(blob)
			},
		}
	}
	return files, nil
}

// workdirFiles reads the working tree for every tracked candidate path.
// Untracked files are not part of a diff, so only candidates are visited.
func (s *Service) workdirFiles(candidates snapshotFiles) (snapshotFiles, error) {
	wt, err := s.repo.Worktree()
	if err != nil {
		return nil, libraryError("open worktree", err)
	}
	files := snapshotFiles{}
	for _, path := range sortedPaths(candidates) {
		file, err := fileFromDisk(wt.Filesystem, path)
		if err != nil {
			return nil, libraryError("read "+path, err)
		}
		if file != nil {
			files[path] = file
		}
	}
	return files, nil
}

func fileFromDisk(fs billy.Filesystem, path string) (*fileVersion, error) {
	info, err := fs.Lstat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	if info.IsDir() {
		return nil, nil
	}
	var data []byte
	mode := filemode.Regular
	if info.Mode()&os.ModeSymlink != 0 {
		target, err := fs.Readlink(path)
		if err != nil {
			return nil, err
		}
		data = []byte(target)
		mode = filemode.Symlink
	} else {
		data, err = util.ReadFile(fs, path)
		if err != nil {
			return nil, err
		}
		if m, err := filemode.NewFromOSFileMode(info.Mode()); err == nil {
			mode = m
		}
	}
	return &fileVersion{
		path: path,
		hash: plumbing.ComputeHash(plumbing.BlobObject, data),
		mode: mode,
		size: int64(len(data)),
		load: func() ([]byte, error) { return data, nil },
	}, nil
}

func blobBytes(blob *object.Blob) ([]byte, error) {
	if blob == nil {
		return nil, nil
	}
	r, err := blob.Reader()
	if err != nil {
		return nil, fmt.Errorf("open blob %s: %w", blob.Hash, err)
	}
	defer r.Close()
	return io.ReadAll(r)
}

func sortedPaths(sets ...snapshotFiles) []string {
	seen := map[string]struct{}{}
	var paths []string
	for _, set := range sets {
		for path := range set {
			if _, ok := seen[path]; ok {
				continue
			}
			seen[path] = struct{}{}
			paths = append(paths, path)
		}
	}
	sort.Strings(paths)
	return paths
}
