package main

import (
	"fmt"
	"log"
	"os"
	"os/signal"
	"runtime"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/GriffinCanCode/webdesk/internal/infrastructure/config"
	"github.com/GriffinCanCode/webdesk/internal/infrastructure/server"
)

const version = "0.1.0"

// flags holds CLI overrides; only flags set on the command line win over
// the environment.
type flags struct {
	port     string
	host     string
	logLevel string
	dev      bool
	appsFile string
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var f flags

	root := &cobra.Command{
		Use:   "webdesk",
		Short: "Browser desktop backend",
		Long: `webdesk serves the browser desktop: per-session window state over
REST and WebSocket, plus the chat and weather proxies used by its apps.`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			applyFlags(cmd, cfg, f)
			return serve(cfg)
		},
	}

	root.Flags().StringVar(&f.port, "port", "", "Server port (env PORT)")
	root.Flags().StringVar(&f.host, "host", "", "Bind address (env HOST)")
	root.Flags().StringVar(&f.logLevel, "log-level", "", "Log level: debug, info, warn, error (env LOG_LEVEL)")
	root.Flags().BoolVar(&f.dev, "dev", false, "Development mode: console logs, error details (env LOG_DEV)")
	root.Flags().StringVar(&f.appsFile, "apps", "", "YAML or TOML app registry file (env APPS_FILE)")

	root.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "webdesk %s\n", version)
			fmt.Fprintf(cmd.OutOrStdout(), "  OS/Arch: %s/%s\n", runtime.GOOS, runtime.GOARCH)
			fmt.Fprintf(cmd.OutOrStdout(), "  Go: %s\n", runtime.Version())
		},
	})

	return root
}

func applyFlags(cmd *cobra.Command, cfg *config.Config, f flags) {
	set := cmd.Flags().Changed
	if set("port") {
		cfg.Server.Port = f.port
	}
	if set("host") {
		cfg.Server.Host = f.host
	}
	if set("log-level") {
		cfg.Logging.Level = f.logLevel
	}
	if set("dev") {
		cfg.Logging.Development = f.dev
		if f.dev && !set("log-level") {
			cfg.Logging.Level = "debug"
		}
	}
	if set("apps") {
		cfg.Desktop.AppsFile = f.appsFile
	}
}

func serve(cfg *config.Config) error {
	srv, err := server.NewServer(cfg)
	if err != nil {
		return fmt.Errorf("failed to create server: %w", err)
	}

	// Handle graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	errChan := make(chan error, 1)
	go func() {
		errChan <- srv.Run()
	}()

	select {
	case <-sigChan:
		log.Println("Shutting down gracefully...")
		if err := srv.Close(); err != nil {
			return err
		}
		return <-errChan
	case err := <-errChan:
		_ = srv.Close()
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	}
}
