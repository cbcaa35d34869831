package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/knadh/koanf/parsers/toml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Backup placement modes.
const (
	BackupSibling   = "sibling"
	BackupDirectory = "directory"
)

// EnvPrefix is the prefix for environment overrides. Sections are separated by
// a double underscore, e.g. REPAIRLOOP_ORACLE__API_KEY.
const EnvPrefix = "REPAIRLOOP_"

// Config represents the application configuration
type Config struct {
	Project ProjectConfig `koanf:"project"`
	Oracle  OracleConfig  `koanf:"oracle"`
	Repair  RepairConfig  `koanf:"repair"`
	Logging LoggingConfig `koanf:"logging"`
}

// ProjectConfig locates the program being repaired.
type ProjectConfig struct {
	Root        string `koanf:"root"`
	Interpreter string `koanf:"interpreter"`
	Script      string `koanf:"script"`
	ScriptsDir  string `koanf:"scripts_dir"`
}

// OracleConfig configures the reasoning service connection.
type OracleConfig struct {
	Provider          string  `koanf:"provider"`
	Model             string  `koanf:"model"`
	APIKey            string  `koanf:"api_key"`
	BaseURL           string  `koanf:"base_url"`
	Temperature       float64 `koanf:"temperature"`
	MaxTokens         int     `koanf:"max_tokens"`
	MaxRetries        int     `koanf:"max_retries"`
	RequestsPerMinute int     `koanf:"requests_per_minute"`
	ContextFile       string  `koanf:"context_file"`
	PromptFile        string  `koanf:"prompt_file"`
}

// RepairConfig controls the repair session itself.
type RepairConfig struct {
	Confirm       bool   `koanf:"confirm"`
	AuditPath     string `koanf:"audit_path"`
	BackupMode    string `koanf:"backup_mode"`
	BackupSuffix  string `koanf:"backup_suffix"`
	BackupDir     string `koanf:"backup_dir"`
	RedactSecrets bool   `koanf:"redact_secrets"`
}

// LoggingConfig controls console verbosity and the session log directory.
type LoggingConfig struct {
	Level string `koanf:"level"`
	Dir   string `koanf:"dir"`
}

// ConfigError reports missing or invalid project configuration.
type ConfigError struct {
	Field  string
	Reason string
}

func (e *ConfigError) Error() string {
	if e.Field == "" {
		return "invalid configuration: " + e.Reason
	}
	return fmt.Sprintf("invalid configuration: %s: %s", e.Field, e.Reason)
}

// providerKeyEnv maps oracle providers to the environment variable their SDKs conventionally read.
var providerKeyEnv = map[string]string{
	"groq":   "GROQ_API_KEY",
	"openai": "OPENAI_API_KEY",
	"gemini": "GEMINI_API_KEY",
	"claude": "ANTHROPIC_API_KEY",
	"cohere": "COHERE_API_KEY",
}

func defaults() map[string]interface{} {
	return map[string]interface{}{
		"project.interpreter":        "python",
		"project.script":             "scripts/script_a.py",
		"project.scripts_dir":        "scripts",
		"oracle.provider":            "groq",
		"oracle.temperature":         0.0,
		"oracle.max_tokens":          1024,
		"oracle.max_retries":         0,
		"oracle.requests_per_minute": 30,
		"repair.confirm":             true,
		"repair.audit_path":          "agent/last_patch.json",
		"repair.backup_mode":         BackupSibling,
		"repair.backup_suffix":       ".bak",
		"repair.backup_dir":          "backups",
		"repair.redact_secrets":      false,
		"logging.level":              "info",
		"logging.dir":                "repair_logs",
	}
}

// LoadConfig loads the configuration from a file
func LoadConfig(configPath string) (*Config, error) {
	var k = koanf.New(".")

	if err := k.Load(confmap.Provider(defaults(), "."), nil); err != nil {
		return nil, fmt.Errorf("error loading defaults: %w", err)
	}

	if configPath != "" {
		if _, err := os.Stat(configPath); err != nil {
			return nil, &ConfigError{Field: "config", Reason: fmt.Sprintf("cannot read %s: %v", configPath, err)}
		}
		if err := k.Load(file.Provider(configPath), toml.Parser()); err != nil {
			return nil, &ConfigError{Field: "config", Reason: err.Error()}
		}
	} else {
		defaultPaths := []string{"./repairloop.toml", "./agent/repairloop.toml", "$HOME/.repairloop.toml"}
		for _, path := range defaultPaths {
			path = os.ExpandEnv(path)
			if _, err := os.Stat(path); err == nil {
				if err := k.Load(file.Provider(path), toml.Parser()); err == nil {
					break
				}
			}
		}
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("error loading environment: %w", err)
	}

	var config Config
	if err := k.Unmarshal("", &config); err != nil {
		return nil, &ConfigError{Reason: fmt.Sprintf("error unmarshalling config: %v", err)}
	}

	if config.Oracle.APIKey == "" {
		if name, ok := providerKeyEnv[config.Oracle.Provider]; ok {
			config.Oracle.APIKey = os.Getenv(name)
		}
	}

	if config.Project.Root != "" {
		root, err := filepath.Abs(os.ExpandEnv(config.Project.Root))
		if err != nil {
			return nil, &ConfigError{Field: "project.root", Reason: err.Error()}
		}
		config.Project.Root = root
	}

	return &config, nil
}

// envKey turns REPAIRLOOP_ORACLE__API_KEY into oracle.api_key.
func envKey(s string) string {
	s = strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	return strings.ReplaceAll(s, "__", ".")
}

// InitConfig initializes a new configuration file
func InitConfig(configPath string) error {
	if _, err := os.Stat(configPath); err == nil {
		return fmt.Errorf("configuration file already exists at %s", configPath)
	}

	sampleConfig := `# repairloop configuration

[project]
root = "."
interpreter = "python"
script = "scripts/script_a.py"
scripts_dir = "scripts"

[oracle]
provider = "groq"
model = "llama-3.1-8b-instant"
# api_key is read from GROQ_API_KEY when left empty
api_key = ""
temperature = 0.0
max_tokens = 1024
max_retries = 0
requests_per_minute = 30
# context_file = "agent/context.txt"
# prompt_file = "agent/prompt.txt"

[repair]
confirm = true
audit_path = "agent/last_patch.json"
backup_mode = "sibling"
backup_suffix = ".bak"
backup_dir = "backups"
redact_secrets = false

[logging]
level = "info"
dir = "repair_logs"
`

	return os.WriteFile(configPath, []byte(sampleConfig), 0644)
}

// Validate checks the settings every command needs: the project, backups and
// the audit path. Oracle settings are checked by ValidateOracle.
func Validate(config *Config) error {
	if config.Project.Root == "" {
		return &ConfigError{Field: "project.root", Reason: "project root is required"}
	}
	info, err := os.Stat(config.Project.Root)
	if err != nil {
		return &ConfigError{Field: "project.root", Reason: fmt.Sprintf("%s does not exist", config.Project.Root)}
	}
	if !info.IsDir() {
		return &ConfigError{Field: "project.root", Reason: fmt.Sprintf("%s is not a directory", config.Project.Root)}
	}

	if config.Project.Interpreter == "" {
		return &ConfigError{Field: "project.interpreter", Reason: "interpreter is required"}
	}

	switch config.Repair.BackupMode {
	case BackupSibling:
		if config.Repair.BackupSuffix == "" {
			return &ConfigError{Field: "repair.backup_suffix", Reason: "a sibling backup needs a non-empty suffix"}
		}
	case BackupDirectory:
		if config.Repair.BackupDir == "" {
			return &ConfigError{Field: "repair.backup_dir", Reason: "backup directory is required"}
		}
	default:
		return &ConfigError{Field: "repair.backup_mode", Reason: fmt.Sprintf("unknown mode %q", config.Repair.BackupMode)}
	}

	if config.Repair.AuditPath == "" {
		return &ConfigError{Field: "repair.audit_path", Reason: "audit path is required"}
	}

	return nil
}

// ValidateOracle checks the oracle settings needed before contacting the oracle.
func ValidateOracle(config *Config) error {
	if config.Oracle.Provider == "" {
		return &ConfigError{Field: "oracle.provider", Reason: "oracle provider is required"}
	}

	switch config.Oracle.Provider {
	case "groq", "openai", "gemini", "claude", "cohere":
		if config.Oracle.APIKey == "" {
			return &ConfigError{Field: "oracle.api_key", Reason: fmt.Sprintf("%s api_key is required", config.Oracle.Provider)}
		}
	case "ollama":
	default:
		return &ConfigError{Field: "oracle.provider", Reason: fmt.Sprintf("unsupported provider %q", config.Oracle.Provider)}
	}

	if config.Oracle.MaxRetries < 0 {
		return &ConfigError{Field: "oracle.max_retries", Reason: "must not be negative"}
	}
	return nil
}

// ResolvePath resolves p against the project root unless it is already absolute.
func (c *Config) ResolvePath(p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(c.Project.Root, p)
}

// DefaultTarget is the script run when none is given on the command line.
func (c *Config) DefaultTarget() string {
	return c.ResolvePath(c.Project.Script)
}

// OverrideProvider switches the oracle provider, picking up that provider's
// conventional key variable when it is set.
func (c *Config) OverrideProvider(provider string) {
	if provider == "" || provider == c.Oracle.Provider {
		return
	}
	c.Oracle.Provider = provider
	if name, ok := providerKeyEnv[provider]; ok {
		if key := os.Getenv(name); key != "" {
			c.Oracle.APIKey = key
		}
	}
}
