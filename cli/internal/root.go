package cli

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/courtside/clubapp/internal/client"
	"github.com/courtside/clubapp/internal/pkg/logger"
	"github.com/courtside/clubapp/internal/tokenstore"
)

// contextKey is a custom type for context keys to avoid collisions
type contextKey string

const cliContextKey contextKey = "cliContext"

// CliContext holds shared CLI context
type CliContext struct {
	Config      *Config
	ContextName string
	Client      *client.Client
	Logger      *slog.Logger

	closeStore func() error
}

// Global flags
var (
	contextOverride string
	logLevel        string
	logFile         string
	logToStderr     bool
	alsoLogStderr   bool
	logFormat       string
	closeLog        = func() error { return nil }
)

// NewRootCommand creates the root cobra command
func NewRootCommand() *cobra.Command {
	var ctx CliContext

	rootCmd := &cobra.Command{
		Use:           "clubctl",
		Short:         "CLI for the tennis club API",
		Long:          `A command line interface for the tennis club API. Requests carry the stored session and refresh it when the server rejects the access token.`,
		SilenceUsage:  true, // Don't print usage on errors
		SilenceErrors: true, // Don't print errors (main.go handles it)
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := setupLogging(); err != nil {
				return fmt.Errorf("failed to setup logging: %w", err)
			}

			ctx.Logger = logger.WithCommand(slog.Default().With("component", "cli"), cmd.Name())
			ctx.Logger.Debug("CLI started")

			// Config commands manage contexts and never talk to the API
			if cmd.Name() == "config" || (cmd.Parent() != nil && cmd.Parent().Name() == "config") {
				return nil
			}

			config, err := LoadConfig()
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}
			if contextOverride != "" {
				if err := config.SetCurrentContext(contextOverride); err != nil {
					return err
				}
			}
			current, err := config.GetCurrentContext()
			if err != nil {
				return err
			}
			ctx.Config = config
			ctx.ContextName = config.CurrentContext
			ctx.Logger = logger.WithContext(ctx.Logger, ctx.ContextName)

			storeCfg, err := current.StoreConfig(ctx.ContextName)
			if err != nil {
				return err
			}
			store, closeStore, err := tokenstore.Open(cmd.Context(), storeCfg)
			if err != nil {
				return fmt.Errorf("failed to open session store: %w", err)
			}
			ctx.closeStore = closeStore

			ctx.Client, err = client.NewClient(current.ClientConfig(), store)
			if err != nil {
				return fmt.Errorf("failed to create client: %w", err)
			}

			cmd.SetContext(context.WithValue(cmd.Context(), cliContextKey, &ctx))
			return nil
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			defer closeLog()
			if ctx.closeStore != nil {
				return ctx.closeStore()
			}
			return nil
		},
	}

	rootCmd.AddCommand(newAuthCommand())
	rootCmd.AddCommand(newAPICommand())
	rootCmd.AddCommand(newConfigCommand())

	rootCmd.PersistentFlags().StringVar(&contextOverride, "context", "",
		"Context to use instead of the current context")

	// Add logging flags
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "warn",
		"Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&logFile, "log-file", "",
		"Log file path (if specified, logs to file instead of stderr)")
	rootCmd.PersistentFlags().BoolVar(&logToStderr, "logtostderr", false,
		"Log to stderr (default behavior unless --log-file specified)")
	rootCmd.PersistentFlags().BoolVar(&alsoLogStderr, "alsologtostderr", false,
		"Log to both file and stderr")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "text",
		"Log format (text, json)")

	return rootCmd
}

// setupLogging configures the global logger based on CLI flags
func setupLogging() error {
	// Default to stderr logging unless file is specified
	toStderr := logToStderr || logFile == ""

	globalLogger, closeFn, err := logger.SetupLogger(logger.Config{
		Level:         logger.ParseLevel(logLevel),
		LogFile:       logFile,
		LogToStderr:   toStderr,
		AlsoLogStderr: alsoLogStderr,
		Format:        logFormat,
	})
	if err != nil {
		return err
	}
	closeLog = closeFn

	slog.SetDefault(globalLogger)
	return nil
}

// getCliContext extracts the CLI context from the command context
func getCliContext(cmd *cobra.Command) *CliContext {
	return cmd.Context().Value(cliContextKey).(*CliContext)
}
