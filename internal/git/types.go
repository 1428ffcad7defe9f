package git

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/filemode"
)

type Signature struct {
	Name  string    `json:"name"`
	Email string    `json:"email"`
	When  time.Time `json:"when"`
}

type DeltaStatus uint8

const (
	DeltaUnmodified DeltaStatus = iota
	DeltaAdded
	DeltaDeleted
	DeltaModified
)

func (s DeltaStatus) String() string {
	switch s {
	case DeltaAdded:
		return "added"
	case DeltaDeleted:
		return "deleted"
	case DeltaModified:
		return "modified"
	default:
		return "unmodified"
	}
}

func (s DeltaStatus) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// LineOrigin uses the same markers git prints in front of patch lines.
type LineOrigin byte

const (
	OriginContext      LineOrigin = ' '
	OriginAddition     LineOrigin = '+'
	OriginDeletion     LineOrigin = '-'
	OriginContextEOFNL LineOrigin = '='
	OriginAddEOFNL     LineOrigin = '>'
	OriginDelEOFNL     LineOrigin = '<'
)

func (o LineOrigin) String() string {
	switch o {
	case OriginContext:
		return "context"
	case OriginAddition:
		return "addition"
	case OriginDeletion:
		return "deletion"
	case OriginContextEOFNL:
		return "context-eofnl"
	case OriginAddEOFNL:
		return "add-eofnl"
	case OriginDelEOFNL:
		return "del-eofnl"
	default:
		return "unknown"
	}
}

func (o LineOrigin) MarshalText() ([]byte, error) {
	return []byte(o.String()), nil
}

// DiffFile describes one side of a delta as the diff engine sees it.
type DiffFile struct {
	Path string
	ID   plumbing.Hash
	Mode filemode.FileMode
	Size int64
}

// DiffDelta is handed to traversal callbacks once per file.
type DiffDelta struct {
	Status  DeltaStatus
	OldFile DiffFile
	NewFile DiffFile
	Binary  bool
}

type DiffHunk struct {
	OldStart int
	OldLines int
	NewStart int
	NewLines int
	Header   string
}

type DiffLine struct {
	Origin    LineOrigin
	OldLineno int // -1 when the line has no old side
	NewLineno int // -1 when the line has no new side
	NumLines  int
	Content   string
}

// DiffResult is the materialized form of a diff.
type DiffResult struct {
	Old   string      `json:"old"`
	New   string      `json:"new"`
	Files []FileDelta `json:"files"`
}

type FileDelta struct {
	OldPath string            `json:"old_file"`
	NewPath string            `json:"new_file"`
	Status  DeltaStatus       `json:"status"`
	OldID   plumbing.Hash     `json:"old_id"`
	NewID   plumbing.Hash     `json:"new_id"`
	OldMode filemode.FileMode `json:"old_mode"`
	NewMode filemode.FileMode `json:"new_mode"`
	Binary  bool              `json:"binary"`
	Hunks   []Hunk            `json:"hunks"`
}

type Hunk struct {
	OldStart int    `json:"old_start"`
	OldLines int    `json:"old_lines"`
	NewStart int    `json:"new_start"`
	NewLines int    `json:"new_lines"`
	Header   string `json:"header"`
	Lines    []Line `json:"lines"`
}

type Line struct {
	Origin    LineOrigin `json:"origin"`
	OldLineno int        `json:"old_lineno"`
	NewLineno int        `json:"new_lineno"`
	NumLines  int        `json:"num_lines"`
	Content   string     `json:"content"`
}

// Path returns the path that best names the file: the new path unless the
// file was deleted.
func (f FileDelta) Path() string {
	if f.Status == DeltaDeleted || f.NewPath == "" {
		return f.OldPath
	}
	return f.NewPath
}

func (f FileDelta) MarshalJSON() ([]byte, error) {
	type plain FileDelta
	return json.Marshal(struct {
		plain
		OldID   string `json:"old_id"`
		NewID   string `json:"new_id"`
		OldMode string `json:"old_mode"`
		NewMode string `json:"new_mode"`
	}{
		plain:   plain(f),
		OldID:   f.OldID.String(),
		NewID:   f.NewID.String(),
		OldMode: ModeString(f.OldMode),
		NewMode: ModeString(f.NewMode),
	})
}

// ModeString renders a file mode the way git prints it, e.g. "100644".
func ModeString(m filemode.FileMode) string {
	return fmt.Sprintf("%06o", uint32(m))
}
