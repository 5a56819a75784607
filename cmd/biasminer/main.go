// Command biasminer measures where YouTube recommendations lead viewers of
// news channels with a known editorial bias.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/samvad-hq/yt-bias-miner/internal/config"
	"github.com/samvad-hq/yt-bias-miner/internal/logger"
)

var version = "0.1.0"

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "biasminer: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	defer logger.Close()

	return newRootCmd().ExecuteContext(ctx)
}

// env carries what every subcommand needs once the root command has run.
type env struct {
	cfg *config.Config
	log logger.Logger
}

func newRootCmd() *cobra.Command {
	e := &env{}

	rootCmd := &cobra.Command{
		Use:           "biasminer",
		Short:         "Mine YouTube recommendations for news channels and measure their bias",
		Long:          "biasminer collects recent uploads of classified news channels, samples the recommendations shown next to each video and reports which side of the spectrum they lead to.",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			log, err := logger.Init(cfg)
			if err != nil {
				return fmt.Errorf("init logger: %w", err)
			}
			e.cfg = cfg
			e.log = log
			logger.DebugObj("config loaded", "config", cfg.Redacted())
			return nil
		},
	}
	rootCmd.SetVersionTemplate("biasminer version {{.Version}}\n")

	rootCmd.AddCommand(
		newMineCmd(e),
		newRunCmd(e),
		newReportCmd(e),
		newOutletsCmd(e),
		newRecommendationsCmd(e),
		newChannelCmd(e),
		newVersionCmd(),
	)
	return rootCmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		PersistentPreRunE: func(*cobra.Command, []string) error {
			return nil
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			fmt.Fprintf(cmd.OutOrStdout(), "biasminer version %s\n", version)
			return nil
		},
	}
}
