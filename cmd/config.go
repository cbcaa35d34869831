package cmd

import (
	"fmt"

	"github.com/urfave/cli/v2"

	"github.com/repairloop/internal/config"
)

// ConfigCommand returns the config command
func ConfigCommand() *cli.Command {
	return &cli.Command{
		Name:  "config",
		Usage: "Manage configuration",
		Subcommands: []*cli.Command{
			{
				Name:  "init",
				Usage: "Initialize a new configuration file",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "output",
						Aliases: []string{"o"},
						Usage:   "Output file path",
						Value:   "repairloop.toml",
					},
				},
				Action: runConfigInit,
			},
			{
				Name:   "validate",
				Usage:  "Validate the configuration file",
				Action: runConfigValidate,
			},
		},
	}
}

func runConfigInit(c *cli.Context) error {
	outputPath := c.String("output")

	if err := config.InitConfig(outputPath); err != nil {
		return fmt.Errorf("failed to initialize config: %w", err)
	}

	fmt.Fprintf(c.App.Writer, "Created configuration file at %s\n", outputPath)
	return nil
}

func runConfigValidate(c *cli.Context) error {
	cfg, err := loadConfig(c, true)
	if err != nil {
		return err
	}

	w := c.App.Writer
	fmt.Fprintln(w, "Configuration is valid")
	fmt.Fprintf(w, "   - project.root = %s\n", cfg.Project.Root)
	fmt.Fprintf(w, "   - project.script = %s\n", cfg.DefaultTarget())
	fmt.Fprintf(w, "   - oracle = %s %s\n", cfg.Oracle.Provider, cfg.Oracle.Model)
	fmt.Fprintf(w, "   - oracle.api_key = %s\n", maskSecret(cfg.Oracle.APIKey))
	fmt.Fprintf(w, "   - repair.backup_mode = %s\n", cfg.Repair.BackupMode)
	return nil
}
