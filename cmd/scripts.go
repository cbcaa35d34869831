package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/urfave/cli/v2"

	"github.com/repairloop/internal/config"
)

// ScriptsCommand returns the scripts command
func ScriptsCommand() *cli.Command {
	return &cli.Command{
		Name:   "scripts",
		Usage:  "List runnable scripts in the project's scripts directory",
		Action: runScripts,
	}
}

func runScripts(c *cli.Context) error {
	cfg, err := loadConfig(c, false)
	if err != nil {
		return err
	}

	scripts, err := listScripts(cfg)
	if err != nil {
		return err
	}

	dir := cfg.ResolvePath(cfg.Project.ScriptsDir)
	if len(scripts) == 0 {
		fmt.Fprintf(c.App.Writer, "No scripts found in %s\n", dir)
		return nil
	}

	fmt.Fprintf(c.App.Writer, "Scripts in %s:\n", dir)
	for _, s := range scripts {
		fmt.Fprintf(c.App.Writer, "  %s\n", s)
	}
	return nil
}

// listScripts returns the regular files of the scripts directory, relative to
// the project root. Hidden files and backups are skipped.
func listScripts(cfg *config.Config) ([]string, error) {
	dir := cfg.ResolvePath(cfg.Project.ScriptsDir)
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to list scripts: %w", err)
	}

	var out []string
	for _, e := range entries {
		name := e.Name()
		if !e.Type().IsRegular() || strings.HasPrefix(name, ".") {
			continue
		}
		if cfg.Repair.BackupSuffix != "" && strings.HasSuffix(name, cfg.Repair.BackupSuffix) {
			continue
		}
		rel, err := filepath.Rel(cfg.Project.Root, filepath.Join(dir, name))
		if err != nil {
			rel = filepath.Join(dir, name)
		}
		out = append(out, rel)
	}
	sort.Strings(out)
	return out, nil
}
