// Command queuewatch monitors a queue from the terminal.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/notifyhub/queue-watch/internal/config"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "queuewatch",
		Short:        "Watch a queue entry and get alerted when it is called",
		SilenceUsage: true,
	}

	root.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose logging")
	root.PersistentFlags().String("base-url", "", "Status source base URL (overrides STATUS_SOURCE_BASE_URL)")

	root.AddCommand(newWatchCmd(), newStatusCmd())
	return root
}

// loadConfig reads the environment configuration and applies flag overrides.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if baseURL, _ := cmd.Flags().GetString("base-url"); baseURL != "" {
		cfg.StatusSourceBaseURL = baseURL
	}
	return cfg, cfg.Validate()
}

// newLogger logs to stderr so alerts on stdout stay readable.
func newLogger(cmd *cobra.Command) (*zap.Logger, error) {
	zcfg := zap.NewDevelopmentConfig()
	zcfg.Level = zap.NewAtomicLevelAt(zapcore.WarnLevel)
	if verbose, _ := cmd.Flags().GetBool("verbose"); verbose {
		zcfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	}
	zcfg.OutputPaths = []string{"stderr"}
	return zcfg.Build()
}
