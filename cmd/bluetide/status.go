package main

import (
	"github.com/spf13/cobra"

	"github.com/bluetide-io/bluetide/pkg/container"
	"github.com/bluetide-io/bluetide/pkg/deploy"
	"github.com/bluetide-io/bluetide/pkg/proxy"
	"github.com/bluetide-io/bluetide/pkg/sshexec"
	"github.com/bluetide-io/bluetide/pkg/term"
)

var statusCmd = &cobra.Command{
	Use:   "status TARGET",
	Short: "Show container and proxy state for a target",
	Args:  cobra.ExactArgs(1),
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

		ctx := cmd.Context()
		containers := container.NewManager(conn)
		proxies := proxy.NewController(conn)

		status, err := containers.Status(ctx, target.ContainerName)
		if err != nil {
			return err
		}
		if status == "" {
			term.Failure("%s: not running", target.ContainerName)
		} else {
			term.Success("%s: %s", target.ContainerName, status)
		}

		if candidate, err := containers.Exists(ctx, deploy.CandidateName(target)); err == nil && candidate {
			term.Warn("stale candidate %s exists", deploy.CandidateName(target))
		}

		running, err := proxies.IsRunning(ctx, target)
		if err != nil {
			return err
		}
		if !running {
			term.Warn("proxy %s is not set up", proxy.ContainerName(target))
			return nil
		}

		port, err := proxies.CurrentPort(ctx, target)
		if err != nil {
			return err
		}
		term.Plain("proxy %s forwards to port %d", proxy.ContainerName(target), port)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(statusCmd)
}
