package patch

import (
	"strings"
)

// MergeMode describes what a merge did to the original file.
type MergeMode int

const (
	// Unchanged means the patch had no identifiable definition.
	Unchanged MergeMode = iota
	// Replaced means an existing block was overwritten.
	Replaced
	// Appended means the function was absent and was added at end-of-file.
	Appended
)

func (m MergeMode) String() string {
	switch m {
	case Replaced:
		return "replaced"
	case Appended:
		return "appended"
	default:
		return "unchanged"
	}
}

// MergeResult is the merged file plus where the replacement landed.
type MergeResult struct {
	Lines        []string
	Mode         MergeMode
	FunctionName string
	// Start and End delimit the replaced block in the original, [Start, End).
	// Both are len(original) for an append.
	Start, End int
	Block      []string
}

// SplitLines splits s into lines that keep their line endings.
func SplitLines(s string) []string {
	if s == "" {
		return nil
	}
	lines := strings.SplitAfter(s, "\n")
	if lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	return lines
}

// JoinLines is the inverse of SplitLines.
func JoinLines(lines []string) string {
	return strings.Join(lines, "")
}

// ExtractBlock returns the function name and replacement block of a patch:
// the lines from its first top-level definition up to, not including, a
// second one. The span is kept as collected, blank lines included; only an
// unterminated last line gains a line ending.
func ExtractBlock(patch string) (string, []string, bool) {
	lines := SplitLines(patch)

	start := -1
	name := ""
	for i, line := range lines {
		if n, ok := definitionName(line); ok {
			start, name = i, n
			break
		}
	}
	if start < 0 {
		return "", nil, false
	}

	end := len(lines)
	for j := start + 1; j < len(lines); j++ {
		if _, ok := definitionName(lines[j]); ok {
			end = j
			break
		}
	}

	block := make([]string, end-start)
	copy(block, lines[start:end])
	if last := len(block) - 1; !strings.HasSuffix(block[last], "\n") {
		block[last] += "\n"
	}

	return name, block, true
}

// FindBlock locates the top-level definition of name in lines. The block
// extends over following lines that start with a space or tab and stops at
// the first line that does not, blank lines included.
func FindBlock(lines []string, name string) (int, int, bool) {
	for s, line := range lines {
		if n, ok := definitionName(line); !ok || n != name {
			continue
		}
		e := s + 1
		for e < len(lines) && startsIndented(lines[e]) {
			e++
		}
		return s, e, true
	}
	return 0, 0, false
}

func startsIndented(line string) bool {
	return line != "" && (line[0] == ' ' || line[0] == '\t')
}

// Merge replaces the block of the patch's function in original with the
// patch's block, or appends it after a blank line when the function is
// absent. Lines outside the located block are never touched.
func Merge(original []string, patch string) MergeResult {
	name, block, ok := ExtractBlock(patch)
	if !ok {
		out := make([]string, len(original))
		copy(out, original)
		return MergeResult{Lines: out, Mode: Unchanged, Start: len(original), End: len(original)}
	}

	if s, e, found := FindBlock(original, name); found {
		out := make([]string, 0, len(original)-(e-s)+len(block))
		out = append(out, original[:s]...)
		out = append(out, block...)
		out = append(out, original[e:]...)
		return MergeResult{Lines: out, Mode: Replaced, FunctionName: name, Start: s, End: e, Block: block}
	}

	out := make([]string, 0, len(original)+1+len(block))
	out = append(out, original...)
	if last := len(out) - 1; last >= 0 && !strings.HasSuffix(out[last], "\n") {
		out[last] += "\n"
	}
	out = append(out, "\n")
	out = append(out, block...)
	return MergeResult{Lines: out, Mode: Appended, FunctionName: name, Start: len(original), End: len(original), Block: block}
}
