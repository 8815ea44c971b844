package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"github.com/BurntSushi/toml"
	"github.com/kelseyhightower/envconfig"

	"github.com/Zuo-Peng/sesslog/internal/prompt"
)

// EnvPrefix prefixes every environment override, e.g. SESSLOG_LOG_ROOT.
const EnvPrefix = "SESSLOG"

type Config struct {
	LogRoot      string   `toml:"log_root" envconfig:"LOG_ROOT"`
	DBPath       string   `toml:"db_path" envconfig:"DB_PATH"`
	ProcessedDir string   `toml:"processed_dir" envconfig:"PROCESSED_DIR"`
	Extensions   []string `toml:"extensions" envconfig:"EXTENSIONS"`
	Workers      int      `toml:"workers" envconfig:"WORKERS"`
	MaxFileSize  int64    `toml:"max_file_size" envconfig:"MAX_FILE_SIZE"`
	TabWidth     int      `toml:"tab_width" envconfig:"TAB_WIDTH"`

	Prompt PromptConfig `toml:"prompt" envconfig:"PROMPT"`
	Log    LogConfig    `toml:"log" envconfig:"LOG"`
	Serve  ServeConfig  `toml:"serve" envconfig:"SERVE"`
}

type PromptConfig struct {
	// Built-in dialects to enable, in evaluation order. Empty means all.
	Dialects []string        `toml:"dialects" envconfig:"DIALECTS"`
	Custom   []CustomDialect `toml:"custom" ignored:"true"`
}

// CustomDialect is a user supplied prompt expression, tried before the
// built-in dialects.
type CustomDialect struct {
	Name    string `toml:"name"`
	Pattern string `toml:"pattern"`
}

type LogConfig struct {
	Level  string `toml:"level" envconfig:"LEVEL"`
	Format string `toml:"format" envconfig:"FORMAT"`
}

type ServeConfig struct {
	Addr string `toml:"addr" envconfig:"ADDR"`
}

// Dir is the directory holding the config file and the default database.
func Dir(home string) string {
	return filepath.Join(home, ".config", "sesslog")
}

// Load reads ~/.config/sesslog/config.toml if present.
func Load() (*Config, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, err
	}
	return load(filepath.Join(Dir(home), "config.toml"), home, false)
}

// LoadFile reads the config at path, which must exist.
func LoadFile(path string) (*Config, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, err
	}
	return load(path, home, true)
}

func load(cfgPath, home string, required bool) (*Config, error) {
	cfg := defaults(home)

	if _, err := os.Stat(cfgPath); err == nil {
		if _, err := toml.DecodeFile(cfgPath, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", cfgPath, err)
		}
	} else if required {
		return nil, fmt.Errorf("config %s: %w", cfgPath, err)
	}

	// environment wins over the file
	if err := envconfig.Process(EnvPrefix, cfg); err != nil {
		return nil, fmt.Errorf("env config: %w", err)
	}

	cfg.LogRoot = expandHome(cfg.LogRoot, home)
	cfg.DBPath = expandHome(cfg.DBPath, home)
	cfg.ProcessedDir = expandHome(cfg.ProcessedDir, home)
	if cfg.ProcessedDir == "" {
		cfg.ProcessedDir = filepath.Join(cfg.LogRoot, "processed_logs")
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func defaults(home string) *Config {
	return &Config{
		LogRoot:    filepath.Join(home, "ssm-logs"),
		DBPath:     filepath.Join(Dir(home), "sesslog.db"),
		Extensions: []string{".log", ".txt", ".gz", ".zst"},
		Workers:    runtime.NumCPU(),
		Log:        LogConfig{Level: "info", Format: "console"},
		Serve:      ServeConfig{Addr: "127.0.0.1:8377"},
	}
}

func (c *Config) validate() error {
	if c.Workers < 1 {
		c.Workers = 1
	}
	if _, err := c.Recognizer(); err != nil {
		return fmt.Errorf("prompt config: %w", err)
	}
	return nil
}

// Recognizer builds the prompt recognizer for the configured dialects.
func (c *Config) Recognizer() (*prompt.Recognizer, error) {
	custom := make([]prompt.CustomSpec, 0, len(c.Prompt.Custom))
	for _, d := range c.Prompt.Custom {
		custom = append(custom, prompt.CustomSpec{Name: d.Name, Pattern: d.Pattern})
	}
	dialects, err := prompt.Select(c.Prompt.Dialects, custom)
	if err != nil {
		return nil, err
	}
	return prompt.NewRecognizer(dialects...), nil
}

func expandHome(path, home string) string {
	if len(path) > 1 && path[0] == '~' && path[1] == '/' {
		return filepath.Join(home, path[2:])
	}
	return path
}
