package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/kayz/promptdeck/internal/config"
	"github.com/kayz/promptdeck/internal/logger"
	"github.com/spf13/cobra"
)

var (
	logLevel   string
	logFile    string
	configPath string
	aiProvider string
	aiModel    string
	aiAPIKey   string
	aiBaseURL  string
)

var rootCmd = &cobra.Command{
	Use:   "promptdeck",
	Short: "Prompt template console with fields, short history and model runs",
	Long: `promptdeck edits prompt templates with {{field}} placeholders,
keeps a short multi-round history and sends the expanded prompt to a model.

Modes:
  promptdeck                Run the web console (default)
  promptdeck web            Run the web console, optionally with the relay
  promptdeck relay-server   Run only the WebSocket relay for external devices
  promptdeck mcp            Serve the console over MCP
  promptdeck expand         Expand a template from a pack file or the saved session`,
	CompletionOptions: cobra.CompletionOptions{
		DisableDefaultCmd: true,
	},
	SilenceUsage: true,
	RunE:         runWeb,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		level, err := logger.ParseLevel(logLevel)
		if err != nil {
			return err
		}
		logger.SetLevel(level)
		if logFile != "" {
			if err := logger.SetOutput(logFile); err != nil {
				return fmt.Errorf("open log file: %w", err)
			}
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		logger.Sync()
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log", "info",
		"Log level: trace, debug, info, warn, error, fatal")
	rootCmd.PersistentFlags().StringVar(&logFile, "log-file", "",
		"Write logs to this file instead of stderr")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "",
		"Config file (default: .promptdeck.yaml next to the executable)")
	rootCmd.PersistentFlags().StringVar(&aiProvider, "provider", "",
		"AI provider (openAI, claude, gemini, deepSeek, xai, meta, qwen, mistral)")
	rootCmd.PersistentFlags().StringVar(&aiModel, "model", "", "Model name")
	rootCmd.PersistentFlags().StringVar(&aiAPIKey, "api-key", "", "AI API key")
	rootCmd.PersistentFlags().StringVar(&aiBaseURL, "base-url", "", "Custom API base URL")
}

// loadConfig reads the config file and applies command line overrides.
// Priority: flag > environment > config file.
func loadConfig() (*config.Config, error) {
	var (
		cfg *config.Config
		err error
	)
	if configPath != "" {
		cfg, err = config.LoadFromPath(configPath)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	if v := strings.TrimSpace(aiProvider); v != "" {
		cfg.AI.Provider = v
	}
	if v := strings.TrimSpace(aiModel); v != "" {
		cfg.AI.Model = v
	}
	if v := strings.TrimSpace(aiAPIKey); v != "" {
		cfg.AI.APIKey = v
	}
	if v := strings.TrimSpace(aiBaseURL); v != "" {
		cfg.AI.APIURL = v
	}
	if cfg.Logging.File != "" && logFile == "" {
		if err := logger.SetOutput(cfg.Logging.File); err != nil {
			logger.Warn("[Config] Failed to open log file %s: %v", cfg.Logging.File, err)
		}
	}
	return cfg, nil
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
