package config

import (
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

var (
	exeDirCache string
)

// getExecutableDir returns the directory where the executable is located
func getExecutableDir() string {
	if exeDirCache != "" {
		return exeDirCache
	}
	execPath, err := os.Executable()
	if err != nil {
		exeDirCache = "."
		return exeDirCache
	}
	execPath, err = filepath.EvalSymlinks(execPath)
	if err != nil {
		exeDirCache = "."
		return exeDirCache
	}
	exeDirCache = filepath.Dir(execPath)
	return exeDirCache
}

type Config struct {
	Port       int              `yaml:"port"`
	Transport  string           `yaml:"transport,omitempty"` // MCP transport: "stdio" or "sse"
	Logging    LoggingConfig    `yaml:"logging"`
	Store      StoreConfig      `yaml:"store"`
	AI         AIConfig         `yaml:"ai,omitempty"`
	MultiRound MultiRoundConfig `yaml:"multi_round"`
	Relay      RelayConfig      `yaml:"relay,omitempty"`
	Audit      AuditConfig      `yaml:"audit,omitempty"`
	Retention  RetentionConfig  `yaml:"retention,omitempty"`

	path string
}

type LoggingConfig struct {
	Level string `yaml:"level"`
	File  string `yaml:"file"`
}

// StoreConfig locates the SQLite database.
type StoreConfig struct {
	Path string `yaml:"path"`
}

// AIConfig selects the model a run is sent to.
type AIConfig struct {
	Provider    string  `yaml:"provider,omitempty"`
	Model       string  `yaml:"model,omitempty"`
	APIURL      string  `yaml:"api_url,omitempty"`
	APIKey      string  `yaml:"api_key,omitempty"`
	MaxTokens   int     `yaml:"max_tokens,omitempty"`
	Temperature float32 `yaml:"temperature,omitempty"`
}

// MultiRoundConfig is the initial multi-round setting used when no session
// state has been saved yet.
type MultiRoundConfig struct {
	Enabled   bool `yaml:"enabled"`
	MaxRounds int  `yaml:"max_rounds"`
}

type RelayConfig struct {
	Port    int  `yaml:"port,omitempty"`
	AutoRun bool `yaml:"auto_run"`
}

// AuditConfig controls the JSONL audit trail of prompts sent to models.
type AuditConfig struct {
	Enabled       bool   `yaml:"enabled"`
	Dir           string `yaml:"dir,omitempty"`
	RetentionDays int    `yaml:"retention_days,omitempty"`
	FilePrefix    string `yaml:"file_prefix,omitempty"`
}

// RetentionConfig schedules pruning of run logs and audit files.
type RetentionConfig struct {
	Schedule string `yaml:"schedule,omitempty"`
	LogDays  int    `yaml:"log_days,omitempty"`
}

func DefaultConfig() *Config {
	return &Config{
		Port:      18080,
		Transport: "stdio",
		Logging: LoggingConfig{
			Level: "info",
			File:  "",
		},
		Store: StoreConfig{
			Path: filepath.Join(ConfigDir(), "promptdeck.db"),
		},
		AI: AIConfig{
			Provider:    "openAI",
			Model:       "gpt-4.1-mini",
			MaxTokens:   2000,
			Temperature: 0.3,
		},
		MultiRound: MultiRoundConfig{
			Enabled:   false,
			MaxRounds: 5,
		},
		Relay: RelayConfig{
			Port:    2025,
			AutoRun: true,
		},
		Audit: AuditConfig{
			Enabled:       false,
			Dir:           filepath.Join(ConfigDir(), "audit"),
			RetentionDays: 7,
			FilePrefix:    "promptdeck",
		},
		Retention: RetentionConfig{
			Schedule: "@daily",
			LogDays:  30,
		},
	}
}

func ConfigDir() string {
	exeDir := getExecutableDir()
	return filepath.Join(exeDir, ".promptdeck")
}

func ConfigPath() string {
	exeDir := getExecutableDir()
	return filepath.Join(exeDir, ".promptdeck.yaml")
}

// Load reads the default config file, falling back to defaults when it is
// missing.
func Load() (*Config, error) {
	return LoadFromPath(ConfigPath())
}

// LoadFromPath reads a config file at path. Environment overrides are applied
// after the file.
func LoadFromPath(path string) (*Config, error) {
	cfg := DefaultConfig()
	cfg.path = path

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			cfg.applyEnv()
			return cfg, nil
		}
		return nil, err
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	cfg.applyEnv()

	return cfg, nil
}

func (c *Config) applyEnv() {
	if v := strings.TrimSpace(os.Getenv("PROMPTDECK_API_KEY")); v != "" {
		c.AI.APIKey = v
	}
	if v := strings.TrimSpace(os.Getenv("PROMPTDECK_PROVIDER")); v != "" {
		c.AI.Provider = v
	}
	if v := strings.TrimSpace(os.Getenv("PROMPTDECK_MODEL")); v != "" {
		c.AI.Model = v
	}
}

// Path returns the file the config was loaded from.
func (c *Config) Path() string {
	if c.path == "" {
		return ConfigPath()
	}
	return c.path
}

func (c *Config) Save() error {
	path := c.Path()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0600)
}
