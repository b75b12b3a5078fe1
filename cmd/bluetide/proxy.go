package main

import (
	"github.com/spf13/cobra"

	"github.com/bluetide-io/bluetide/pkg/proxy"
	"github.com/bluetide-io/bluetide/pkg/sshexec"
	"github.com/bluetide-io/bluetide/pkg/term"
)

var setupProxyCmd = &cobra.Command{
	Use:   "setup-proxy TARGET",
	Short: "Set up the Caddy reverse proxy for a target",
	Long: `Create the proxy state directories on the target host, generate the
Caddyfile and (re)create the Caddy container. With a domain configured the
proxy serves a TLS virtual host with automatic certificates; without one
it listens on plain HTTP port 80.

Re-running applies configuration changes by recreating the proxy.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		target, err := cfg.Resolve(args[0])
		if err != nil {
			return err
		}

		conn, err := sshexec.Connect(target)
		if err != nil {
			return err
		}
		defer conn.Close()

		if err := conn.CheckConnectivity(cmd.Context()); err != nil {
			return err
		}

		if err := proxy.NewController(conn).EnsureRunning(cmd.Context(), target); err != nil {
			return err
		}
		term.Success("proxy for %s is running", target.Name)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(setupProxyCmd)
}
