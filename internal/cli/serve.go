package cli

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/spf13/cobra"

	fiberadapter "github.com/lborres/volunteer/adapters/fiber"
)

const shutdownTimeout = 10 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the web console",
	Long: `Serve the role dashboards over HTTP.

The persisted token is resolved in the background; guarded pages answer with
a loading view until the session has settled.

Examples:
  volunteer-console serve                      # Listen on server.addr
  volunteer-console serve --addr :8080         # Override the listen address
  volunteer-console serve --base-path /console # Mount under a prefix`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().String("addr", "", "listen address (default is server.addr)")
	serveCmd.Flags().String("base-path", "", "route prefix")
	serveCmd.Flags().Bool("access-log", true, "log every request")
}

func runServe(cmd *cobra.Command, args []string) error {
	addr, _ := cmd.Flags().GetString("addr")
	basePath, _ := cmd.Flags().GetString("base-path")
	accessLog, _ := cmd.Flags().GetBool("access-log")
	if addr == "" {
		addr = cfg.Server.Addr
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app := fiber.New(fiber.Config{AppName: "volunteer-console"})
	adapterConfig := fiberadapter.Config{BasePath: basePath}
	if accessLog {
		adapterConfig.AccessLog = logger.Writer()
	}

	console, closeConsole, err := newConsole(ctx, fiberadapter.NewWithConfig(app, adapterConfig))
	if err != nil {
		return err
	}
	defer closeConsole()

	go console.Start(ctx)

	errCh := make(chan error, 1)
	go func() {
		errCh <- app.Listen(addr, fiber.ListenConfig{DisableStartupMessage: true})
	}()
	logger.WithField("addr", addr).Info("console listening")

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := app.ShutdownWithContext(shutdownCtx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
