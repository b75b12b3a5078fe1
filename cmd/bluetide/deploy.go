package main

import (
	"github.com/spf13/cobra"

	"github.com/bluetide-io/bluetide/pkg/deploy"
)

var deployCmd = &cobra.Command{
	Use:   "deploy TARGET [TAG]",
	Short: "Deploy a target by recreating its container",
	Long: `Deploy a target with the simple strategy: upload the target files,
pull the image, stop and remove the current container and start a new one.
The service is briefly unavailable while the container is replaced.

TAG defaults to "latest".`,
	Args: cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		target, err := cfg.Resolve(args[0])
		if err != nil {
			return err
		}
		tag := ""
		if len(args) == 2 {
			tag = args[1]
		}

		d := deploy.New(deploy.SSHDial)
		_, err = d.Direct(cmd.Context(), target, tag)
		return err
	},
}

var zeroDowntimeCmd = &cobra.Command{
	Use:   "deploy-zero-downtime TARGET [TAG]",
	Short: "Deploy a target with a blue-green zero-downtime switch",
	Long: `Deploy a target without downtime: a candidate container starts on the
alternate port, is health checked, traffic is switched to it through the
Caddy proxy, the old container is replaced on the canonical port and
traffic is switched back.

Requires the target's proxy to be set up first (see setup-proxy).
If the candidate never passes its health check it is removed and the
running version keeps serving traffic.

TAG defaults to "latest".`,
	Args: cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		target, err := cfg.Resolve(args[0])
		if err != nil {
			return err
		}
		tag := ""
		if len(args) == 2 {
			tag = args[1]
		}

		d := deploy.New(deploy.SSHDial)
		_, err = d.BlueGreen(cmd.Context(), target, tag)
		return err
	},
}

func init() {
	rootCmd.AddCommand(deployCmd)
	rootCmd.AddCommand(zeroDowntimeCmd)
}
