// Package cmd 命令行入口
package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"heatstore/config"
)

var (
	configPath string
	logLevel   string

	// 由 PersistentPreRunE 加载
	cfg *config.Config
)

// RootCmd represents the base command when called without any subcommands
var RootCmd = &cobra.Command{
	Use:   "heatstore",
	Short: "One dimensional two phase heat storage simulator",
	Long: `
Simulates a packed-bed thermal storage unit: a fluid phase advected and diffused
through the bed and a solid phase that only diffuses, on a uniform 1D mesh.

heatstore run     advance the configured experiment and write field and scalar output
heatstore mms     run the manufactured solution convergence study
heatstore serve   stream live runs over websocket`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		if cfg, err = config.Load(configPath); err != nil {
			return err
		}
		level := cfg.Log.Level
		if cmd.Flags().Changed("log-level") {
			level = logLevel
		}
		lvl, err := log.ParseLevel(level)
		if err != nil {
			return fmt.Errorf("log level: %w", err)
		}
		log.SetLevel(lvl)
		return nil
	},
}

func init() {
	log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	RootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "conf/config.ini", "ini file with the experiment parameters")
	RootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "override [log] level")
	RootCmd.AddCommand(RunCmd, MMSCmd, ServeCmd)
}

// signalContext SIGINT / SIGTERM 时取消
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

func Execute() {
	if err := RootCmd.Execute(); err != nil {
		log.WithError(err).Error("heatstore failed")
		os.Exit(1)
	}
}
