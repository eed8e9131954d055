package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/bryanwahyu/cve-advisor/internal/bootstrap"
	"github.com/bryanwahyu/cve-advisor/internal/config"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := newRootCommand().ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintf(os.Stderr, "advisor: %v\n", err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "advisor",
		Short:         "Turn vulnerability scans into a styled advisory and post it to chat",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	flags := cmd.PersistentFlags()
	flags.String("config", config.Path(), "path to config.yaml (optional) [$CONFIG_PATH]")
	flags.String("log-level", "", "override log.level [$LOG_LEVEL]")

	cmd.AddCommand(newRunCommand(), newContextCommand())
	return cmd
}

// loadConfig reads the config named by --config; a missing file is fine,
// the environment may carry everything.
func loadConfig(cmd *cobra.Command) (*config.Config, *zap.Logger, error) {
	path, _ := cmd.Flags().GetString("config")
	cfg, err := config.LoadOptional(path)
	if err != nil {
		return nil, nil, err
	}
	if lvl, _ := cmd.Flags().GetString("log-level"); lvl != "" {
		cfg.Log.Level = lvl
	}
	if cfg.Log.Format == "json" && cfg.Log.File == "" {
		cfg.Log.Format = "console"
	}
	return cfg, bootstrap.Logger(cfg, "advisor"), nil
}
