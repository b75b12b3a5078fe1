package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/bluetide-io/bluetide/pkg/config"
	"github.com/bluetide-io/bluetide/pkg/log"
)

var (
	// Version information (set via ldflags during build)
	Version   = "dev"
	Commit    = "unknown"
	BuildTime = "unknown"
)

var (
	flagConfig   string
	flagLogLevel string
	flagJSON     bool
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "bluetide",
	Short: "Bluetide - zero-downtime Docker deployments over SSH",
	Long: `Bluetide deploys container images to remote hosts over SSH,
either by recreating the container in place or with a blue-green
zero-downtime switch behind a Caddy reverse proxy.

Targets are declared in a YAML file (bluetide.yaml by default) with a
defaults block merged under every target.`,
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		log.Init(log.Config{
			Level:      log.Level(flagLogLevel),
			JSONOutput: flagJSON,
		})
	},
}

func init() {
	rootCmd.SetVersionTemplate(fmt.Sprintf(
		"Bluetide version %s\nCommit: %s\nBuilt: %s\n",
		Version, Commit, BuildTime,
	))

	rootCmd.PersistentFlags().StringVarP(&flagConfig, "config", "c", "", "Config file (default: bluetide.yaml or $BLUETIDE_CONFIG)")
	rootCmd.PersistentFlags().StringVar(&flagLogLevel, "log-level", "info", "Log level (debug|info|warn|error)")
	rootCmd.PersistentFlags().BoolVar(&flagJSON, "json", false, "Log in JSON instead of console format")
}

// loadConfig loads the config file from the flag, environment or default
// location.
func loadConfig() (*config.Config, error) {
	return config.Load(config.Path(flagConfig))
}
