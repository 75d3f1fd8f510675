package cmd

import (
	"github.com/spf13/cobra"

	"heatstore/experiment"
)

// RunCmd 主计算，[mms] 启用时接着做收敛性检验
var RunCmd = &cobra.Command{
	Use:   "run",
	Short: "Advance the configured experiment to T",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := signalContext()
		defer cancel()

		if noOutput, _ := cmd.Flags().GetBool("no-output"); noOutput {
			cfg.Output.NoOutput = true
		}
		sink, err := experiment.OpenSink(ctx, cfg.Output)
		if err != nil {
			return err
		}
		store, err := experiment.OpenHistory(ctx, cfg.History)
		if err != nil {
			return err
		}
		if store != nil {
			defer func() { _ = store.Close() }()
		}
		return experiment.Execute(ctx, cfg, sink, nil, store)
	},
}

func init() {
	RunCmd.Flags().Bool("no-output", false, "skip field and scalar files")
}
