// Package cli provides the ezspanner command-line interface.
package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/nhath/ezspanner/internal/config"
	"github.com/nhath/ezspanner/internal/logging"
)

// Version is set at build time.
var Version = "dev"

// globalFlags are the persistent flags shared by every command.
type globalFlags struct {
	configPath string
	project    string
	instance   string
	database   string
	backend    string
	debug      bool
}

// env is what every command runs with once the config is loaded.
type env struct {
	cfg    *config.Config
	logger *zap.Logger
}

type envKey struct{}

// NewRootCmd creates the root command. Without a subcommand it starts the
// interactive console.
func NewRootCmd() *cobra.Command {
	flags := &globalFlags{}

	rootCmd := &cobra.Command{
		Use:   "ezspanner",
		Short: "Interactive SQL console for Cloud Spanner",
		Long: `ezspanner is a terminal SQL console. Pick a project, instance and
database, write a query, format it, run it and browse the session history.

Run without arguments to start the interactive console.`,
		Version: Version,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if cmd.Name() == "help" || cmd.Name() == "completion" || cmd.Name() == "__complete" {
				return nil
			}

			cfg, err := config.Load(flags.configPath)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			flags.apply(cfg)

			mode := logging.Headless
			if cmd == cmd.Root() {
				mode = logging.Interactive
			}
			logger, err := logging.New(mode, flags.debug)
			if err != nil {
				return err
			}

			cmd.SetContext(context.WithValue(cmd.Context(), envKey{}, &env{cfg: cfg, logger: logger}))
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, _ []string) {
			if e := getEnv(cmd.Context()); e != nil {
				_ = e.logger.Sync()
			}
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runConsole(cmd.Context(), getEnv(cmd.Context()))
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	pf := rootCmd.PersistentFlags()
	pf.StringVar(&flags.configPath, "config", "", "config file (default: $XDG_CONFIG_HOME/"+config.DefaultPath+")")
	pf.StringVarP(&flags.project, "project", "p", "", "project ID")
	pf.StringVarP(&flags.instance, "instance", "i", "", "instance ID")
	pf.StringVarP(&flags.database, "database", "d", "", "database ID")
	pf.StringVar(&flags.backend, "backend", "", "gateway backend (spanner|sql|remote)")
	pf.BoolVar(&flags.debug, "debug", false, "enable debug logging")

	_ = rootCmd.RegisterFlagCompletionFunc("backend", func(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
		return []string{config.BackendSpanner, config.BackendSQL, config.BackendRemote}, cobra.ShellCompDirectiveNoFileComp
	})

	rootCmd.AddCommand(NewFormatCommand())
	rootCmd.AddCommand(NewQueryCommand())
	rootCmd.AddCommand(NewHistoryCommand())
	rootCmd.AddCommand(NewInstancesCommand())
	rootCmd.AddCommand(NewDatabasesCommand())
	rootCmd.AddCommand(NewServeCommand())
	rootCmd.AddCommand(NewProfileCommand())

	return rootCmd
}

// apply overrides config values with flags that were set.
func (f *globalFlags) apply(cfg *config.Config) {
	if f.project != "" {
		cfg.Connection.Project = f.project
	}
	if f.instance != "" {
		cfg.Connection.Instance = f.instance
	}
	if f.database != "" {
		cfg.Connection.Database = f.database
	}
	if f.backend != "" {
		cfg.Gateway.Backend = f.backend
	}
}

// Execute runs the root command.
func Execute(ctx context.Context) error {
	rootCmd := NewRootCmd()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return err
	}
	return nil
}

func getEnv(ctx context.Context) *env {
	if ctx == nil {
		return nil
	}
	if e, ok := ctx.Value(envKey{}).(*env); ok {
		return e
	}
	return nil
}

// mustEnv returns the env stored by PersistentPreRunE, or one built from
// defaults when a command runs on its own.
func mustEnv(cmd *cobra.Command) *env {
	if e := getEnv(cmd.Context()); e != nil {
		return e
	}
	return &env{cfg: config.DefaultConfig(), logger: zap.NewNop()}
}
