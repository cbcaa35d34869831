package audit

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog/log"
)

// Write stores the raw oracle response verbatim at path, replacing the
// previous artifact. Missing parent directories are created.
func Write(path, raw string) error {
	if path == "" {
		return fmt.Errorf("audit path is empty")
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create audit directory: %w", err)
	}

	if err := os.WriteFile(path, []byte(raw), 0o644); err != nil {
		return fmt.Errorf("failed to write audit artifact %s: %w", path, err)
	}

	log.Debug().Str("path", path).Int("bytes", len(raw)).Msg("Oracle response recorded")
	return nil
}

// Read returns the last recorded response.
func Read(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read audit artifact %s: %w", path, err)
	}
	return string(data), nil
}
