package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/bluetide-io/bluetide/pkg/batch"
	"github.com/bluetide-io/bluetide/pkg/deploy"
)

var (
	batchAll             bool
	batchParallel        bool
	batchSequential      bool
	batchZeroDowntime    bool
	batchTag             string
	batchMarkerDirectory string
)

var batchCmd = &cobra.Command{
	Use:   "deploy-batch [TARGET...]",
	Short: "Deploy multiple targets in one run",
	Long: `Deploy several targets, sequentially by default or concurrently with
--parallel. With --all every configured target is deployed. Outcomes are
aggregated into a final success/failure count; failed targets leave a
marker file for inspection.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if batchAll && len(args) > 0 {
			return fmt.Errorf("--all and explicit targets are mutually exclusive")
		}
		if !batchAll && len(args) == 0 {
			return fmt.Errorf("specify targets or use --all")
		}
		if batchParallel && batchSequential {
			return fmt.Errorf("--parallel and --sequential are mutually exclusive")
		}

		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		var opts []batch.Option
		if batchParallel {
			opts = append(opts, batch.Parallel())
		}
		if batchZeroDowntime {
			opts = append(opts, batch.ZeroDowntime())
		}
		if batchMarkerDirectory != "" {
			opts = append(opts, batch.WithMarkerDir(batchMarkerDirectory))
		}

		driver := batch.New(deploy.New(deploy.SSHDial), cfg, opts...)
		_, err = driver.Run(cmd.Context(), args, batchTag)
		return err
	},
}

func init() {
	batchCmd.Flags().BoolVar(&batchAll, "all", false, "Deploy every configured target")
	batchCmd.Flags().BoolVar(&batchParallel, "parallel", false, "Deploy targets concurrently")
	batchCmd.Flags().BoolVar(&batchSequential, "sequential", false, "Deploy targets one after another (default)")
	batchCmd.Flags().BoolVar(&batchZeroDowntime, "zero-downtime", false, "Use the blue-green strategy for every target")
	batchCmd.Flags().StringVar(&batchTag, "tag", "", "Image tag for all targets (default: latest)")
	batchCmd.Flags().StringVar(&batchMarkerDirectory, "marker-dir", "", "Directory for per-target failure markers")

	rootCmd.AddCommand(batchCmd)
}
