package experiment

import (
	"context"
	"fmt"

	log "github.com/sirupsen/logrus"

	"heatstore/config"
	"heatstore/history"
	"heatstore/mms"
	"heatstore/output"
)

// NewTester 由 [mms] 段构造收敛性检验
func NewTester(c config.MMS) (*mms.Tester, error) {
	sol, err := mms.NewSolution(c.ExactSolution, c.FluidVelocity, c.Alpha, c.Wavenumber)
	if err != nil {
		return nil, err
	}
	return mms.NewTester(mms.Params{
		NumCellsInitial: c.MeshInitial,
		NumStages:       c.NumStages,
		Factor:          c.Factor,
		DomainLength:    c.DomainLength,
		NumSteps:        c.NumSteps,
		TimeStep:        c.TimeStep,
		StepThreshold:   c.StepThreshold,
		FluidVelocity:   c.FluidVelocity,
		Conductivity:    c.Alpha,
		TLeft:           c.TLeft,
		Rhs:             sol.Rhs,
		Exact:           sol.Exact,
	})
}

// RunMMS 运行收敛性检验，sink 不能为 nil；store 不为 nil 时每一级的统计写入历史记录
func RunMMS(ctx context.Context, c config.MMS, sink output.Sink, metrics *Metrics, store *history.Store) (*mms.Tester, error) {
	if sink == nil {
		return nil, fmt.Errorf("%w: mms statistics", ErrNoSink)
	}
	tester, err := NewTester(c)
	if err != nil {
		return nil, err
	}

	p := tester.Params()
	var run history.Run
	if store != nil {
		run, err = store.StartRun(ctx, history.Run{
			Solution: c.ExactSolution,
			Velocity: p.FluidVelocity,
			Alpha:    p.Conductivity,
			TimeStep: p.TimeStep,
		})
		if err != nil {
			return nil, err
		}
		log.WithFields(log.Fields{"run": run.ID, "solution": run.Solution}).Info("mms run recorded")
	}

	tester.OnLevel = func(e *mms.Entry) error {
		metrics.observeLevel(e.NumCells, e.Error, e.Order)
		if store == nil {
			return nil
		}
		return store.AddLevel(ctx, history.Level{
			RunID:    run.ID,
			NumCells: e.NumCells,
			Error:    e.Error,
			Diff:     e.DiffPrev,
			TimeStep: p.TimeStep,
			NumSteps: e.Steps,
			StepDiff: e.StepDiff,
			Order:    e.Order,
		})
	}

	if err := tester.Run(ctx, sink); err != nil {
		return nil, fmt.Errorf("experiment: mms: %w", err)
	}
	if c.Plot != "" {
		if err := mms.PlotConvergence(ctx, sink, c.Plot, tester.Series()); err != nil {
			return nil, err
		}
	}
	return tester, nil
}
