package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rnwolfe/tasky/internal/config"
	"github.com/rnwolfe/tasky/internal/log"
	"github.com/rnwolfe/tasky/internal/ui"
	"github.com/spf13/cobra"
)

var (
	verbose     bool
	projectFlag string
)

var rootCmd = &cobra.Command{
	Use:   "tasky",
	Short: "Project tasks with scriptable lifecycle hooks",
	Long: `tasky keeps a task list per project and runs the project's hooks
(.tasky/hooks/hook.json) before and after every change.`,
	PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
		return setupLogging()
	},
	CompletionOptions: cobra.CompletionOptions{
		HiddenDefaultCmd: true,
	},
	SilenceUsage:  true,
	SilenceErrors: true,
}

func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		ui.Err(err.Error())
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Log hook execution details to stderr")
	rootCmd.PersistentFlags().StringVarP(&projectFlag, "project", "p", "", "Project name or path (default: nearest .tasky above the cwd)")

	rootCmd.AddCommand(taskCmd)
	rootCmd.AddCommand(projectCmd)
	rootCmd.AddCommand(hookCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(versionCmd)
}

// setupLogging applies [log] level from config; --verbose wins.
func setupLogging() error {
	if verbose {
		log.SetLevel(log.LevelDebug)
		return nil
	}
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if cfg.Log.Level != "" {
		log.SetLevel(log.ParseLevel(cfg.Log.Level))
	}
	return nil
}
