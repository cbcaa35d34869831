package faultlocator

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
)

// ErrTargetMissing is returned when the script or the faulting file does not exist.
var ErrTargetMissing = errors.New("target missing")

// framePattern matches trace frame markers such as `File "app/main.py", line 3`.
var framePattern = regexp.MustCompile(`File "([^"]+)"`)

// Diagnostic is captured error text plus the files its trace references.
type Diagnostic struct {
	Text string
	// Frames lists referenced paths in trace order, outermost call first.
	Frames []string
}

// Parse extracts every frame marker from text, in order of appearance.
func Parse(text string) Diagnostic {
	d := Diagnostic{Text: text}
	for _, m := range framePattern.FindAllStringSubmatch(text, -1) {
		d.Frames = append(d.Frames, m[1])
	}
	return d
}

// FaultFrame returns the deepest frame, which traces list last.
func (d Diagnostic) FaultFrame() (string, bool) {
	if len(d.Frames) == 0 {
		return "", false
	}
	return d.Frames[len(d.Frames)-1], true
}

// Locator resolves the faulting source file of a diagnostic.
type Locator struct {
	Root string
}

// New creates a Locator resolving relative paths against root.
func New(root string) *Locator {
	return &Locator{Root: root}
}

// Locate selects the faulting file of d, falling back to script when the
// trace names no file. The result is absolute when Root is set and must exist.
func (l *Locator) Locate(d Diagnostic, script string) (string, error) {
	path, ok := d.FaultFrame()
	if !ok {
		path = script
	}

	if !filepath.IsAbs(path) && l.Root != "" {
		path = filepath.Join(l.Root, path)
	}

	info, err := os.Stat(path)
	if err != nil {
		return path, fmt.Errorf("%w: %s", ErrTargetMissing, path)
	}
	if info.IsDir() {
		return path, fmt.Errorf("%w: %s is a directory", ErrTargetMissing, path)
	}

	return path, nil
}
