package git

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/go-git/go-git/v5/utils/binary"
	"github.com/pmezard/go-difflib/difflib"
)

const noNewlineMarker = "\n\\ No newline at end of file\n"

// filePatch is the hunked form of one delta, computed once and replayed on
// every traversal.
type filePatch struct {
	binary bool
	hunks  []hunkLines
}

type hunkLines struct {
	hunk  DiffHunk
	lines []DiffLine
}

func buildFilePatch(oldData, newData []byte, context int) (*filePatch, error) {
	if isBinary(oldData) || isBinary(newData) {
		return &filePatch{binary: true}, nil
	}
	a := splitLines(oldData)
	b := splitLines(newData)
	matcher := difflib.NewMatcherWithJunk(a, b, false, nil)
	var hunks []hunkLines
	for _, group := range matcher.GetGroupedOpCodes(context) {
		if onlyEqual(group) {
			continue
		}
		hunks = append(hunks, buildHunk(a, b, group))
	}
	return &filePatch{hunks: hunks}, nil
}

func buildHunk(a, b []string, group []difflib.OpCode) hunkLines {
	first, last := group[0], group[len(group)-1]
	h := DiffHunk{
		OldStart: rangeStart(first.I1, last.I2),
		OldLines: last.I2 - first.I1,
		NewStart: rangeStart(first.J1, last.J2),
		NewLines: last.J2 - first.J1,
	}
	h.Header = fmt.Sprintf("@@ -%s +%s @@\n",
		formatRange(h.OldStart, h.OldLines), formatRange(h.NewStart, h.NewLines))

	var lines []DiffLine
	for _, op := range group {
		switch op.Tag {
		case 'e':
			for i := op.I1; i < op.I2; i++ {
				j := op.J1 + (i - op.I1)
				lines = appendLine(lines, OriginContext, i+1, j+1, a[i])
			}
		case 'd':
			for i := op.I1; i < op.I2; i++ {
				lines = appendLine(lines, OriginDeletion, i+1, -1, a[i])
			}
		case 'i':
			for j := op.J1; j < op.J2; j++ {
				lines = appendLine(lines, OriginAddition, -1, j+1, b[j])
			}
		case 'r':
			for i := op.I1; i < op.I2; i++ {
				lines = appendLine(lines, OriginDeletion, i+1, -1, a[i])
			}
			for j := op.J1; j < op.J2; j++ {
				lines = appendLine(lines, OriginAddition, -1, j+1, b[j])
			}
		}
	}
	return hunkLines{hunk: h, lines: lines}
}

// appendLine adds a line and, when it is the unterminated last line of a
// file, the marker line that follows it.
func appendLine(lines []DiffLine, origin LineOrigin, oldNo, newNo int, content string) []DiffLine {
	lines = append(lines, DiffLine{
		Origin:    origin,
		OldLineno: oldNo,
		NewLineno: newNo,
		NumLines:  strings.Count(content, "\n"),
		Content:   content,
	})
	if strings.HasSuffix(content, "\n") {
		return lines
	}
	marker := OriginContextEOFNL
	switch origin {
	case OriginAddition:
		marker = OriginDelEOFNL
	case OriginDeletion:
		marker = OriginAddEOFNL
	}
	return append(lines, DiffLine{
		Origin:    marker,
		OldLineno: -1,
		NewLineno: -1,
		NumLines:  1,
		Content:   noNewlineMarker,
	})
}

func onlyEqual(group []difflib.OpCode) bool {
	for _, op := range group {
		if op.Tag != 'e' {
			return false
		}
	}
	return true
}

// rangeStart follows the unified format: an empty range starts at the line
// before it.
func rangeStart(start, stop int) int {
	if stop == start {
		return start
	}
	return start + 1
}

func formatRange(start, length int) string {
	if length == 1 {
		return fmt.Sprintf("%d", start)
	}
	return fmt.Sprintf("%d,%d", start, length)
}

// splitLines keeps line terminators; the last element lacks one when the
// data does not end with a newline.
func splitLines(data []byte) []string {
	if len(data) == 0 {
		return nil
	}
	lines := strings.SplitAfter(string(data), "\n")
	if lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	return lines
}

func isBinary(data []byte) bool {
	if len(data) == 0 {
		return false
	}
	bin, err := binary.IsBinary(bytes.NewReader(data))
	return err == nil && bin
}
