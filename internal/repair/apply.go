package repair

import (
	"fmt"
	"os"

	"github.com/repairloop/internal/backup"
	"github.com/repairloop/internal/patch"
)

// Apply merges a validated candidate into target: read, merge, back up, then
// overwrite in one write. An Unchanged merge touches nothing and takes no
// backup. Any failure before the write leaves target as it was.
func Apply(backups *backup.Manager, target string, candidate *patch.Candidate) (patch.MergeResult, *backup.Backup, error) {
	if candidate == nil || !candidate.Verdict.Valid {
		return patch.MergeResult{}, nil, fmt.Errorf("%w: candidate was not validated", ErrPatchRejected)
	}

	data, err := os.ReadFile(target)
	if err != nil {
		return patch.MergeResult{}, nil, fmt.Errorf("failed to read %s: %w", target, err)
	}

	result := patch.Merge(patch.SplitLines(string(data)), candidate.Decoded)
	if result.Mode == patch.Unchanged {
		return result, nil, nil
	}

	bk, err := backups.Snapshot(target)
	if err != nil {
		return result, nil, fmt.Errorf("backup failed, %s left untouched: %w", target, err)
	}

	if err := backup.WriteFile(target, []byte(patch.JoinLines(result.Lines))); err != nil {
		return result, bk, fmt.Errorf("failed to write merged %s (backup at %s): %w", target, bk.Path, err)
	}

	return result, bk, nil
}
