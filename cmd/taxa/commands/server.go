package commands

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/teranos/taxa/am"
	"github.com/teranos/taxa/errors"
	"github.com/teranos/taxa/version"
	"github.com/teranos/taxa/logger"
	"github.com/teranos/taxa/server"
)

// ServerCmd starts the JSON-RPC gateway
var ServerCmd = &cobra.Command{
	Use:     "server",
	Aliases: []string{"serve"},
	Short:   "Start the taxonomy JSON-RPC gateway",
	Long: `Open every configured namespace backend and serve the taxonomy operations
over HTTP. Edits to the request budget in the active config file are applied
without a restart.`,
	RunE: runServer,
}

var serverPort int

func init() {
	ServerCmd.Flags().IntVar(&serverPort, "port", 0, "Port to listen on (overrides server.port)")
}

func runServer(cmd *cobra.Command, args []string) error {
	cfg, err := am.Load()
	if err != nil {
		return errors.Wrap(err, "failed to load configuration")
	}
	port := cfg.GetServerPort()
	if serverPort != 0 {
		port = serverPort
	}

	log := logger.Logger.Named("server")
	srv, err := server.NewFromConfig(cfg, log)
	if err != nil {
		return errors.Wrap(err, "failed to create server")
	}

	info := version.Get()
	pterm.DefaultSection.Printf("taxa %s", info.Version)
	pterm.Info.Printf("Listening on :%d (service %s)\n", port, cfg.GetService())
	for _, ns := range srv.Engine().Registry().List() {
		pterm.Info.Printf("Namespace %s\n", ns.ID)
	}

	if err := srv.WatchConfig(am.ActiveConfigFile()); err != nil {
		log.Warnw("Config watching disabled", logger.FieldError, err)
	}

	errChan := make(chan error, 1)
	go func() {
		errChan <- srv.Start(port)
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errChan:
		stopErr := srv.Stop()
		if err != nil {
			return errors.Wrap(err, "server failed")
		}
		return stopErr
	case <-sigChan:
		pterm.Info.Println("Shutting down gracefully (press Ctrl+C again to force)...")

		shutdownDone := make(chan error, 1)
		go func() {
			shutdownDone <- srv.Stop()
		}()

		select {
		case err := <-shutdownDone:
			if err != nil {
				return errors.Wrap(err, "shutdown error")
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
