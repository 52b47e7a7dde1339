package cli

import (
	"fmt"
	"net/url"
	"sort"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/courtside/clubapp/internal/client"
	"github.com/courtside/clubapp/internal/tokenstore"
)

func newConfigCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage CLI configuration and contexts",
		Long:  `Manage CLI configuration including API contexts, similar to kubectl contexts.`,
	}

	cmd.AddCommand(newCurrentContextCommand())
	cmd.AddCommand(newUseContextCommand())
	cmd.AddCommand(newListContextsCommand())
	cmd.AddCommand(newAddContextCommand())
	cmd.AddCommand(newDeleteContextCommand())
	cmd.AddCommand(newConfigShowCommand())

	return cmd
}

// current-context command
func newCurrentContextCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "current-context",
		Short: "Display the current context",
		RunE: func(cmd *cobra.Command, args []string) error {
			config, err := LoadConfig()
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}

			fmt.Fprintln(cmd.OutOrStdout(), config.CurrentContext)
			return nil
		},
	}
}

// use-context command
func newUseContextCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "use-context CONTEXT_NAME",
		Short: "Switch to a different context",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			contextName := args[0]

			config, err := LoadConfig()
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}

			if err := config.SetCurrentContext(contextName); err != nil {
				return err
			}

			if err := SaveConfig(config); err != nil {
				return fmt.Errorf("failed to save config: %w", err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Switched to context %q\n", contextName)
			return nil
		},
	}
}

// list-contexts command
func newListContextsCommand() *cobra.Command {
	return &cobra.Command{
		Use:     "list-contexts",
		Aliases: []string{"get-contexts"},
		Short:   "List all available contexts",
		RunE: func(cmd *cobra.Command, args []string) error {
			config, err := LoadConfig()
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}

			if len(config.Contexts) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No contexts configured")
				return nil
			}

			// Sort context names for consistent output
			names := make([]string, 0, len(config.Contexts))
			for name := range config.Contexts {
				names = append(names, name)
			}
			sort.Strings(names)

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 3, ' ', 0)
			fmt.Fprintln(w, "CURRENT\tNAME\tBASE URL\tSESSION STORE")

			for _, name := range names {
				ctx := config.Contexts[name]
				current := " "
				if name == config.CurrentContext {
					current = "*"
				}
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\n",
					current,
					name,
					ctx.Server.BaseURL,
					ctx.Session.Store,
				)
			}
			return w.Flush()
		},
	}
}

// add-context command
func newAddContextCommand() *cobra.Command {
	var (
		baseURL         string
		timeout         time.Duration
		store           string
		credentialsFile string
		redis           RedisSettings
	)

	cmd := &cobra.Command{
		Use:   "add-context CONTEXT_NAME",
		Short: "Add or update a context",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			contextName := args[0]

			u, err := url.Parse(baseURL)
			if err != nil || u.Scheme == "" || u.Host == "" {
				return fmt.Errorf("--base-url must be an absolute URL, got %q", baseURL)
			}
			switch store {
			case tokenstore.BackendFile, tokenstore.BackendRedis, tokenstore.BackendMemory:
			default:
				return fmt.Errorf("--store must be one of file, redis, memory")
			}

			config, err := LoadConfig()
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}

			ctx := NewContext(baseURL)
			ctx.Server.Timeout = timeout
			ctx.Session.Store = store
			ctx.Session.CredentialsFile = credentialsFile
			ctx.Session.Redis = redis

			config.AddContext(contextName, ctx)

			// If this is the first context, make it current
			if len(config.Contexts) == 1 {
				config.CurrentContext = contextName
			}

			if err := SaveConfig(config); err != nil {
				return fmt.Errorf("failed to save config: %w", err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Context %q added/updated\n", contextName)
			return nil
		},
	}

	cmd.Flags().StringVar(&baseURL, "base-url", "", "API base URL (e.g. http://localhost:8080)")
	cmd.Flags().DurationVar(&timeout, "timeout", client.DefaultTimeout, "Timeout for each HTTP call")
	cmd.Flags().StringVar(&store, "store", tokenstore.BackendFile, "Session store (file, redis, memory)")
	cmd.Flags().StringVar(&credentialsFile, "credentials-file", "", "Credentials file for the file store (default: per-context file in the user config dir)")
	cmd.Flags().StringVar(&redis.Addr, "redis-addr", "", "Redis address for the redis store")
	cmd.Flags().StringVar(&redis.Password, "redis-password", "", "Redis password")
	cmd.Flags().IntVar(&redis.DB, "redis-db", 0, "Redis database number")
	cmd.Flags().StringVar(&redis.Prefix, "redis-prefix", "", "Redis key prefix (default: per-context prefix)")
	_ = cmd.MarkFlagRequired("base-url")

	return cmd
}

// delete-context command
func newDeleteContextCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "delete-context CONTEXT_NAME",
		Short: "Delete a context",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			contextName := args[0]

			config, err := LoadConfig()
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}

			if err := config.DeleteContext(contextName); err != nil {
				return err
			}

			if err := SaveConfig(config); err != nil {
				return fmt.Errorf("failed to save config: %w", err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Context %q deleted\n", contextName)
			return nil
		},
	}
}

// show command
func newConfigShowCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Show current context configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			config, err := LoadConfig()
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}

			ctx, err := config.GetCurrentContext()
			if err != nil {
				return fmt.Errorf("failed to get current context: %w", err)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Current context: %s\n", config.CurrentContext)
			fmt.Fprintf(out, "  Base URL: %s\n", ctx.Server.BaseURL)
			fmt.Fprintf(out, "  Timeout: %s\n", ctx.Server.Timeout)
			fmt.Fprintf(out, "  Session: %s\n", ctx.SessionDescription(config.CurrentContext))

			configPath, _ := GetConfigPath()
			fmt.Fprintf(out, "  Config File: %s\n", configPath)

			return nil
		},
	}
}
