package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v2"

	"github.com/repairloop/internal/config"
	"github.com/repairloop/internal/executor"
	"github.com/repairloop/internal/faultlocator"
	"github.com/repairloop/internal/logging"
	"github.com/repairloop/internal/oracle"
	"github.com/repairloop/internal/prompts"
	"github.com/repairloop/internal/redact"
	"github.com/repairloop/internal/repair"
)

// RunCommand returns the run command
func RunCommand() *cli.Command {
	return &cli.Command{
		Name:  "run",
		Usage: "Run a script and repair the failing function",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:    "yes",
				Aliases: []string{"y"},
				Usage:   "Apply the patch without asking for confirmation",
			},
			&cli.StringFlag{
				Name:    "provider",
				Aliases: []string{"p"},
				Usage:   "Override the oracle provider",
			},
			&cli.StringFlag{
				Name:    "model",
				Aliases: []string{"m"},
				Usage:   "Override the oracle model",
			},
			&cli.StringFlag{
				Name:    "interpreter",
				Aliases: []string{"i"},
				Usage:   "Override the interpreter used to run the script",
			},
			&cli.BoolFlag{
				Name:    "verbose",
				Aliases: []string{"v"},
				Usage:   "Enable verbose output for this command",
			},
		},
		ArgsUsage: "[SCRIPT]",
		Action:    runRepair,
	}
}

func runRepair(c *cli.Context) error {
	cfg, err := loadConfig(c, true)
	if err != nil {
		return err
	}

	script := cfg.DefaultTarget()
	if c.NArg() > 0 {
		if script, err = resolveArg(c.Args().Get(0)); err != nil {
			return err
		}
	}

	session := repair.NewSession(script)

	logger, err := logging.StartSessionLogging(cfg.ResolvePath(cfg.Logging.Dir), session.ID)
	if err != nil {
		return fmt.Errorf("failed to start session log: %w", err)
	}
	defer logger.Close()

	ctx := context.Background()

	o, err := newOracle(ctx, cfg, logger)
	if err != nil {
		return err
	}

	loop := newLoop(cfg, o, logger)
	if cfg.Repair.Confirm && !c.Bool("yes") {
		loop.Confirmer = &repair.PromptConfirmer{In: os.Stdin, Out: c.App.Writer}
	}

	log.Info().
		Str("session", session.ID).
		Str("script", script).
		Str("provider", string(o.GetProvider())).
		Str("model", o.GetModel()).
		Str("log", logger.Path()).
		Msg("Starting repair session")

	if err := loop.Run(ctx, session); err != nil {
		return fmt.Errorf("repair session %s aborted in %s: %w", session.ID, session.State, err)
	}

	repair.WriteReport(c.App.Writer, session)

	if session.Outcome.Failure() {
		return session.Err
	}
	return nil
}

func newOracle(ctx context.Context, cfg *config.Config, logger *logging.SessionLogger) (*oracle.Connector, error) {
	set, err := prompts.Load(cfg.ResolvePath(cfg.Oracle.ContextFile), cfg.ResolvePath(cfg.Oracle.PromptFile))
	if err != nil {
		return nil, err
	}

	var redactor *redact.Redactor
	if cfg.Repair.RedactSecrets {
		if redactor, err = redact.New(); err != nil {
			return nil, err
		}
	}

	return oracle.NewConnector(ctx, oracle.Options{
		Provider: oracle.Provider(cfg.Oracle.Provider),
		APIKey:   cfg.Oracle.APIKey,
		BaseURL:  cfg.Oracle.BaseURL,
		ModelConfig: oracle.ModelConfig{
			Model:       cfg.Oracle.Model,
			Temperature: cfg.Oracle.Temperature,
			MaxTokens:   cfg.Oracle.MaxTokens,
		},
		MaxRetries:        cfg.Oracle.MaxRetries,
		RequestsPerMinute: cfg.Oracle.RequestsPerMinute,
		Prompts:           set,
		Redactor:          redactor,
		Logger:            logger,
	})
}

func newLoop(cfg *config.Config, o oracle.Oracle, logger *logging.SessionLogger) *repair.Loop {
	return &repair.Loop{
		Interpreter: cfg.Project.Interpreter,
		Runner:      executor.New(cfg.Project.Root),
		Locator:     faultlocator.New(cfg.Project.Root),
		Oracle:      o,
		Backups:     newBackupManager(cfg),
		AuditPath:   cfg.ResolvePath(cfg.Repair.AuditPath),
		Logger:      logger,
	}
}
