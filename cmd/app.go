package cmd

import (
	"github.com/urfave/cli/v2"
)

// NewApp builds the repairloop command-line application.
func NewApp(version string) *cli.App {
	return &cli.App{
		Name:    "repairloop",
		Usage:   "Run a script, ask an AI oracle for a fix and merge it back function by function",
		Version: version,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Load configuration from `FILE`",
				Value:   "repairloop.toml",
			},
			&cli.StringFlag{
				Name:  "env-file",
				Usage: "Load environment variables from `FILE` when it exists",
				Value: ".env",
			},
		},
		Commands: []*cli.Command{
			RunCommand(),
			ApplyCommand(),
			RestoreCommand(),
			ScriptsCommand(),
			ConfigCommand(),
		},
	}
}
