package cmd

import (
	"fmt"

	"github.com/urfave/cli/v2"
)

// RestoreCommand returns the restore command
func RestoreCommand() *cli.Command {
	return &cli.Command{
		Name:      "restore",
		Usage:     "Copy a file's backup back over it",
		ArgsUsage: "TARGET",
		Action:    runRestore,
	}
}

func runRestore(c *cli.Context) error {
	if c.NArg() < 1 {
		return fmt.Errorf("missing required argument: TARGET")
	}

	cfg, err := loadConfig(c, false)
	if err != nil {
		return err
	}

	target, err := resolveArg(c.Args().Get(0))
	if err != nil {
		return err
	}

	bk, err := newBackupManager(cfg).Restore(target)
	if err != nil {
		return err
	}

	fmt.Fprintf(c.App.Writer, "Restored %s from %s (%d bytes)\n", target, bk.Path, bk.Size)
	return nil
}
