package cmd

import (
	"fmt"

	"github.com/kayz/promptdeck/internal/mcp"
	"github.com/spf13/cobra"
)

var (
	mcpTransport string
	mcpPort      int
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Serve the console to MCP clients",
	Long: `Serve the saved console session over the Model Context Protocol.

Tools: expand_prompt, short_history, list_fields, set_field, set_input.
Logs go to stderr (or --log-file) so stdio stays clean for JSON-RPC.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		transport := cfg.Transport
		if mcpTransport != "" {
			transport = mcpTransport
		}
		port := cfg.Port
		if mcpPort > 0 {
			port = mcpPort
		}

		sess, err := openSession(cfg)
		if err != nil {
			return err
		}
		defer sess.Close()

		srv := mcp.NewServer(sess.console, Version)
		switch transport {
		case "", "stdio":
			return srv.ServeStdio()
		case "sse":
			return srv.ServeSSE(fmt.Sprintf(":%d", port))
		default:
			return fmt.Errorf("unknown MCP transport %q (want stdio or sse)", transport)
		}
	},
}

func init() {
	rootCmd.AddCommand(mcpCmd)
	mcpCmd.Flags().StringVar(&mcpTransport, "transport", "", "stdio or sse (default from config)")
	mcpCmd.Flags().IntVar(&mcpPort, "port", 0, "SSE listen port (default from config)")
}
