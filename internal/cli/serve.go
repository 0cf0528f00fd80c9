package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/Surjit27/Clairvox/internal/server"
)

var serveAddr string

// serveCmd represents the serve command
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the verification HTTP API",
	Long: `Serve exposes claim verification over HTTP:
  POST /v1/verify         {"claim": "..."}
  POST /v1/verify/batch   {"claims": ["...", "..."]}
  POST /v1/analyze        {"answer": "..."}
  GET  /healthz
  GET  /metrics           Prometheus metrics

Example:
  clairvox serve --addr :8080`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (default: server.addr)")
}

func runServe(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.close()

	if serveAddr != "" {
		a.cfg.Server.Addr = serveAddr
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	srv := server.New(a.cfg, a.verifier, a.logger.Named("http"), a.metrics)

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Start() }()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	a.logger.Info("shutting down", zap.String("addr", a.cfg.Server.Addr))
	if err := srv.Stop(context.Background()); err != nil {
		return fmt.Errorf("stop server: %w", err)
	}
	return <-errCh
}
