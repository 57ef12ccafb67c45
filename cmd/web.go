package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/kayz/promptdeck/internal/logger"
	"github.com/kayz/promptdeck/internal/relay"
	"github.com/kayz/promptdeck/internal/webui"
	"github.com/spf13/cobra"
)

var (
	webPort      int
	webWithRelay bool
)

var webCmd = &cobra.Command{
	Use:   "web",
	Short: "Run the promptdeck web console",
	RunE:  runWeb,
}

func init() {
	rootCmd.AddCommand(webCmd)
	webCmd.Flags().IntVar(&webPort, "port", 0, "Web UI listen port (default from config, 18080)")
	webCmd.Flags().BoolVar(&webWithRelay, "relay", false, "Also run the WebSocket relay on the relay port")
}

func runWeb(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if webPort > 0 {
		cfg.Port = webPort
	}

	sess, err := openSession(cfg)
	if err != nil {
		return err
	}
	defer sess.Close()
	sess.startRetention()

	var servers []*http.Server
	opts := webui.Options{
		Console: sess.console,
		Library: sess.store,
		Catalog: sess.catalog,
	}

	var hub *relay.Hub
	if webWithRelay {
		hub = relay.NewHub(relay.Options{Console: sess.console, AutoRun: cfg.Relay.AutoRun})
		defer hub.Close()
		opts.Relay = hub
		servers = append(servers, newHTTPServer(cfg.Relay.Port, hub.Handler()))
	}

	servers = append(servers, newHTTPServer(cfg.Port, webui.NewServer(opts).Handler()))
	logger.Info("[Web] Console listening on http://127.0.0.1:%d", cfg.Port)
	if hub != nil {
		logger.Info("[Relay] Listening on ws://127.0.0.1:%d/quest and /frontend", cfg.Relay.Port)
	}

	return serveUntilSignal(servers...)
}

func newHTTPServer(port int, h http.Handler) *http.Server {
	return &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           h,
		ReadHeaderTimeout: 5 * time.Second,
	}
}

// serveUntilSignal runs the servers until SIGINT/SIGTERM or the first
// listener failure, then shuts them all down.
func serveUntilSignal(servers ...*http.Server) error {
	errCh := make(chan error, len(servers))
	for _, srv := range servers {
		go func(srv *http.Server) {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errCh <- fmt.Errorf("listen %s: %w", srv.Addr, err)
			}
		}(srv)
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	var runErr error
	select {
	case sig := <-sigCh:
		logger.Info("[Web] Received %s, shutting down", sig)
	case runErr = <-errCh:
		logger.Error("[Web] %v", runErr)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	for _, srv := range servers {
		_ = srv.Shutdown(ctx)
	}
	return runErr
}
