package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/teranos/longrun/errors"
	"github.com/teranos/longrun/logger"
	"github.com/teranos/longrun/server"
	"github.com/teranos/longrun/sym"
)

// ServeCmd starts the HTTP service shell
var ServeCmd = &cobra.Command{
	Use:     "serve",
	Aliases: []string{"server"},
	Short:   sym.PulseOpen + " Serve the long running service over HTTP",
	Long: sym.PulseOpen + ` serve — Serve the long running service over HTTP

Endpoints:
  POST   /api/jobs                 start a batch {"number_of_jobs": N, "min_duration": D}
  GET    /api/jobs/{id}            derived status
  GET    /api/jobs/{id}/results    when the job ran
  GET    /api/jobs/{id}/watch      websocket status stream
  GET    /api/service              service metadata
  DELETE /api/service              close (refused while jobs are in flight)
  GET    /api/service/parameters   run parameters
  GET    /health, /metrics`,
	RunE: runServe,
}

var servePortFlag int

func init() {
	ServeCmd.Flags().IntVarP(&servePortFlag, "port", "p", 0, "Port to listen on (default from server.port)")
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx := contextOf(cmd)

	a, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	port := a.cfg.ServerPort()
	if servePortFlag != 0 {
		port = servePortFlag
	}

	printStartupBanner(a, port)

	srv := server.New(a.svc, server.OptionsFromConfig(a.cfg, a.metrics), logger.ComponentLogger("server"))

	errChan := make(chan error, 1)
	go func() {
		errChan <- srv.Start(port)
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	select {
	case err := <-errChan:
		return errors.Wrap(err, "server failed to start")
	case <-sigChan:
		pterm.Info.Println("Shutting down gracefully (press Ctrl+C again to force)...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), server.ShutdownTimeout)
		defer cancel()

		shutdownDone := make(chan error, 1)
		go func() {
			shutdownDone <- srv.Stop(shutdownCtx)
		}()

		select {
		case err := <-shutdownDone:
			if err != nil {
				return fmt.Errorf("shutdown error: %w", err)
			}
			if err := a.svc.Close(shutdownCtx); err != nil {
				// Records stay in the registry; a later process can still answer for them
				logger.PulseWarnw("Jobs still in flight at shutdown", logger.FieldError, err.Error())
				pterm.Warning.Printfln("Jobs still in flight at shutdown: %v", err)
			} else {
				logger.PulseInfow("Service closed at shutdown")
			}
			pterm.Success.Println("Server stopped cleanly")
			return nil
		case <-sigChan:
			pterm.Warning.Println("Force shutdown - exiting immediately")
			os.Exit(1)
			return nil
		}
	}
}

func printStartupBanner(a *app, port int) {
	pterm.DefaultHeader.WithFullWidth().Printfln("%s %s", sym.Pulse, "longrun")
	pterm.Info.Printfln("Registry: %s", a.backend.Name())
	if a.backend.Name() == "sqlite" {
		pterm.Info.Printfln("Database: %s", a.cfg.Database.Path)
	}
	pterm.Info.Printfln("Listening on port %d", port)
}
