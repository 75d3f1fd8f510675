package cmd

import (
	"errors"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"heatstore/experiment"
)

// MMSCmd 只做收敛性检验，不要求 [mms] enabled
var MMSCmd = &cobra.Command{
	Use:   "mms",
	Short: "Run the manufactured solution convergence study",
	RunE: func(cmd *cobra.Command, args []string) error {
		if cfg.MMS.ExactSolution == "" {
			return errors.New("mms: set [mms] enabled = true and fill in the section")
		}
		ctx, cancel := signalContext()
		defer cancel()

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
		tester, err := experiment.RunMMS(ctx, cfg.MMS, sink, nil, store)
		if err != nil {
			return err
		}
		for _, e := range tester.Series() {
			log.WithFields(log.Fields{
				"num_cells": e.NumCells,
				"error":     e.Error,
				"order":     e.Order,
			}).Info("level")
		}
		return nil
	},
}
