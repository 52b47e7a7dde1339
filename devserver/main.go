package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/courtside/clubapp/internal/config"
	"github.com/courtside/clubapp/internal/devapi"
	"github.com/courtside/clubapp/internal/pkg/idgen"
	"github.com/courtside/clubapp/internal/pkg/logger"
)

func main() {
	rootCmd := newRootCommand()
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	var (
		configPath    string
		port          int
		logLevel      string
		logFile       string
		logToStderr   bool
		alsoLogStderr bool
		logFormat     string
		closeLog      = func() error { return nil }
	)

	cmd := &cobra.Command{
		Use:   "devserver",
		Short: "Club API development server",
		Long: `A development server for the club API auth endpoints.

Members and sessions are kept in memory. Every phone accepts the configured
verification code, and access tokens are short lived so clients exercise
the refresh path.`,
		SilenceUsage: true,
		PreRunE: func(cmd *cobra.Command, args []string) error {
			var err error
			closeLog, err = setupServerLogging(logLevel, logFile, logToStderr, alsoLogStderr, logFormat)
			return err
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			defer closeLog()

			cfg, err := config.Load(configPath)
			if err != nil {
				return fmt.Errorf("failed to load configuration: %w", err)
			}
			if cmd.Flags().Changed("port") {
				cfg.Server.Port = port
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runServer(ctx, cfg)
		},
	}

	cmd.Flags().StringVar(&configPath, "config", "", "Path to config file (optional)")
	cmd.Flags().IntVar(&port, "port", 8080, "Override the listen port from the config file")

	// Add logging flags
	cmd.Flags().StringVar(&logLevel, "log-level", "info", "Log level (debug, info, warn, error)")
	cmd.Flags().StringVar(&logFile, "log-file", "", "Log file path (if specified, logs to file instead of stderr)")
	cmd.Flags().BoolVar(&logToStderr, "logtostderr", false, "Log to stderr (default behavior unless --log-file specified)")
	cmd.Flags().BoolVar(&alsoLogStderr, "alsologtostderr", false, "Log to both file and stderr")
	cmd.Flags().StringVar(&logFormat, "log-format", "json", "Log format (text, json)")

	return cmd
}

// setupServerLogging configures the global logger for the server
func setupServerLogging(logLevel, logFile string, logToStderr, alsoLogStderr bool, logFormat string) (func() error, error) {
	// Default to stderr logging unless file is specified
	if logFile == "" {
		logToStderr = true
	}

	globalLogger, closeFn, err := logger.SetupLogger(logger.Config{
		Level:         logger.ParseLevel(logLevel),
		LogFile:       logFile,
		LogToStderr:   logToStderr,
		AlsoLogStderr: alsoLogStderr,
		Format:        logFormat,
	})
	if err != nil {
		return nil, err
	}

	slog.SetDefault(globalLogger)
	return closeFn, nil
}

func runServer(ctx context.Context, cfg *config.Config) error {
	log := slog.Default().With(slog.String("component", "devserver"))

	ids, err := idgen.New(cfg.IDs.Node)
	if err != nil {
		return fmt.Errorf("failed to initialize ID generator: %w", err)
	}

	api, err := devapi.New(devapi.Options{
		SigningKey:       cfg.Auth.JWT.SigningKey,
		AccessLifetime:   cfg.Auth.JWT.AccessLifetime,
		RefreshLifetime:  cfg.Auth.JWT.RefreshLifetime,
		RefreshHeader:    cfg.Auth.RefreshHeader,
		VerificationCode: cfg.Auth.VerificationCode,
		CodeLifetime:     cfg.Auth.CodeLifetime,
		IDs:              ids,
		Logger:           slog.Default(),
	})
	if err != nil {
		return fmt.Errorf("failed to create dev API: %w", err)
	}

	srv := &http.Server{
		Addr:              cfg.Server.Address(),
		Handler:           api.Router(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("starting club dev API",
			slog.String("address", srv.Addr),
			slog.String("environment", cfg.Environment),
			slog.Duration("access_lifetime", cfg.Auth.JWT.AccessLifetime))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("failed to serve: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
