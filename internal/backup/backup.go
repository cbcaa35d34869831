package backup

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog/log"
)

// Mode selects where backups are placed.
type Mode string

const (
	// Sibling writes <target><suffix> next to the target.
	Sibling Mode = "sibling"
	// Directory mirrors the target's path, relative to the project root, under a backups directory.
	Directory Mode = "directory"
)

// Backup records one snapshot of a file's pre-patch bytes.
type Backup struct {
	Original string
	Path     string
	Size     int
}

// Manager snapshots files before they are overwritten. Exactly one backup is
// kept per target; a later snapshot replaces the earlier one.
type Manager struct {
	Mode   Mode
	Suffix string
	Dir    string
	Root   string
}

// PathFor returns the backup location of target.
func (m *Manager) PathFor(target string) string {
	if m.Mode != Directory {
		return target + m.Suffix
	}

	rel := filepath.Base(target)
	if m.Root != "" {
		if r, err := filepath.Rel(m.Root, target); err == nil && !strings.HasPrefix(r, "..") {
			rel = r
		}
	}

	dir := m.Dir
	if !filepath.IsAbs(dir) && m.Root != "" {
		dir = filepath.Join(m.Root, dir)
	}
	return filepath.Join(dir, rel+m.Suffix)
}

// Snapshot copies target's current bytes verbatim to its backup location.
// Callers must not write target when Snapshot fails.
func (m *Manager) Snapshot(target string) (*Backup, error) {
	data, err := os.ReadFile(target)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s for backup: %w", target, err)
	}

	mode := os.FileMode(0644)
	if info, err := os.Stat(target); err == nil {
		mode = info.Mode().Perm()
	}

	path := m.PathFor(target)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create backup directory: %w", err)
	}
	if err := os.WriteFile(path, data, mode); err != nil {
		return nil, fmt.Errorf("failed to write backup %s: %w", path, err)
	}

	log.Info().
		Str("target", target).
		Str("backup", path).
		Int("bytes", len(data)).
		Msg("Backup written")

	return &Backup{Original: target, Path: path, Size: len(data)}, nil
}

// Restore copies the backup of target back over target.
func (m *Manager) Restore(target string) (*Backup, error) {
	path := m.PathFor(target)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("no backup for %s: %w", target, err)
	}

	if err := WriteFile(target, data); err != nil {
		return nil, err
	}

	log.Info().
		Str("target", target).
		Str("backup", path).
		Msg("Backup restored")

	return &Backup{Original: target, Path: path, Size: len(data)}, nil
}

// WriteFile overwrites path with data in one whole-content write, keeping
// the file's permissions.
func WriteFile(path string, data []byte) error {
	mode := os.FileMode(0644)
	if info, err := os.Stat(path); err == nil {
		mode = info.Mode().Perm()
	}
	if err := os.WriteFile(path, data, mode); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}
