package cmd

import (
	"github.com/kayz/promptdeck/internal/logger"
	"github.com/kayz/promptdeck/internal/relay"
	"github.com/spf13/cobra"
)

var (
	relayServerPort    int
	relayServerAutoRun bool
	relayServerNoRun   bool
)

var relayServerCmd = &cobra.Command{
	Use:   "relay-server",
	Short: "Run the WebSocket relay for external devices",
	Long: `Run the WebSocket relay between an external device and the console.

Endpoints:
  /quest     The device sends quest_data updates and receives llm_response
  /frontend  A browser front end mirrors the device traffic
  /health    Connection status as JSON

Every quest_data update is sifted into the matching fields. With auto-run
the model is called after each update and the output is sent back.`,
	RunE: runRelayServer,
}

func init() {
	rootCmd.AddCommand(relayServerCmd)
	relayServerCmd.Flags().IntVar(&relayServerPort, "port", 0, "Relay listen port (default from config, 2025)")
	relayServerCmd.Flags().BoolVar(&relayServerAutoRun, "auto-run", false, "Run the model after every quest update")
	relayServerCmd.Flags().BoolVar(&relayServerNoRun, "no-run", false, "Only sift quest updates, never run the model")
}

func runRelayServer(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if relayServerPort > 0 {
		cfg.Relay.Port = relayServerPort
	}
	if relayServerAutoRun {
		cfg.Relay.AutoRun = true
	}
	if relayServerNoRun {
		cfg.Relay.AutoRun = false
	}

	sess, err := openSession(cfg)
	if err != nil {
		return err
	}
	defer sess.Close()
	sess.startRetention()

	hub := relay.NewHub(relay.Options{Console: sess.console, AutoRun: cfg.Relay.AutoRun})
	defer hub.Close()

	logger.Info("[Relay] Listening on ws://127.0.0.1:%d (auto-run: %v)", cfg.Relay.Port, cfg.Relay.AutoRun)
	return serveUntilSignal(newHTTPServer(cfg.Relay.Port, hub.Handler()))
}
