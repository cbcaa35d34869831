package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/urfave/cli/v2"

	"github.com/repairloop/internal/backup"
	"github.com/repairloop/internal/config"
	"github.com/repairloop/internal/logging"
)

// loadConfig reads the .env file and the configuration named by the global
// flags, applies command-line overrides, validates the result and sets up
// console logging. Oracle settings are only checked when withOracle is set.
func loadConfig(c *cli.Context, withOracle bool) (*config.Config, error) {
	if err := loadOptionalEnvFile(c.String("env-file")); err != nil {
		return nil, fmt.Errorf("failed to load env file: %w", err)
	}

	configPath := c.String("config")
	if !c.IsSet("config") {
		if _, err := os.Stat(configPath); err != nil {
			configPath = ""
		}
	}

	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	applyOverrides(c, cfg)

	if err := config.Validate(cfg); err != nil {
		return nil, err
	}
	if withOracle {
		if err := config.ValidateOracle(cfg); err != nil {
			return nil, err
		}
	}

	logging.Setup(c.App.ErrWriter, cfg.Logging.Level, c.Bool("verbose"))
	return cfg, nil
}

func applyOverrides(c *cli.Context, cfg *config.Config) {
	if c.IsSet("provider") {
		cfg.OverrideProvider(c.String("provider"))
	}
	if c.IsSet("model") {
		cfg.Oracle.Model = c.String("model")
	}
	if c.IsSet("interpreter") {
		cfg.Project.Interpreter = c.String("interpreter")
	}
}

func newBackupManager(cfg *config.Config) *backup.Manager {
	return &backup.Manager{
		Mode:   backup.Mode(cfg.Repair.BackupMode),
		Suffix: cfg.Repair.BackupSuffix,
		Dir:    cfg.Repair.BackupDir,
		Root:   cfg.Project.Root,
	}
}

// resolveArg makes a command-line path absolute relative to the working directory.
func resolveArg(p string) (string, error) {
	if p == "" {
		return "", nil
	}
	abs, err := filepath.Abs(p)
	if err != nil {
		return "", fmt.Errorf("invalid path %s: %w", p, err)
	}
	return abs, nil
}
