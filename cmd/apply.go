package cmd

import (
	"fmt"

	"github.com/urfave/cli/v2"

	"github.com/repairloop/internal/audit"
	"github.com/repairloop/internal/oracle"
	"github.com/repairloop/internal/patch"
	"github.com/repairloop/internal/repair"
)

// ApplyCommand returns the apply command
func ApplyCommand() *cli.Command {
	return &cli.Command{
		Name:      "apply",
		Usage:     "Apply a saved oracle response to a file",
		ArgsUsage: "PATCH_JSON TARGET",
		Action:    runApply,
	}
}

func runApply(c *cli.Context) error {
	if c.NArg() < 2 {
		return fmt.Errorf("missing required arguments: PATCH_JSON TARGET")
	}

	cfg, err := loadConfig(c, false)
	if err != nil {
		return err
	}

	responsePath, err := resolveArg(c.Args().Get(0))
	if err != nil {
		return err
	}
	target, err := resolveArg(c.Args().Get(1))
	if err != nil {
		return err
	}

	raw, err := audit.Read(responsePath)
	if err != nil {
		return err
	}

	response := oracle.DecodeResponse(raw)
	if err := response.Err(); err != nil {
		return err
	}

	candidate := patch.NewCandidate(response.Patch)
	if !candidate.Verdict.Valid {
		return fmt.Errorf("%w: %s", repair.ErrPatchRejected, candidate.Verdict.Reason)
	}

	result, bk, err := repair.Apply(newBackupManager(cfg), target, candidate)
	if err != nil {
		return err
	}

	w := c.App.Writer
	switch result.Mode {
	case patch.Unchanged:
		fmt.Fprintf(w, "No function definition found; %s left unchanged\n", target)
	case patch.Appended:
		fmt.Fprintf(w, "Appended %s to %s (backup: %s)\n", result.FunctionName, target, bk.Path)
	default:
		fmt.Fprintf(w, "Replaced %s in %s, lines %d-%d (backup: %s)\n", result.FunctionName, target, result.Start+1, result.End, bk.Path)
	}
	return nil
}
