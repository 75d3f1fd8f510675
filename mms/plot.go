package mms

import (
	"context"
	"fmt"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"

	"heatstore/output"
)

// PlotConvergence 在双对数坐标下画出误差和相邻两级的差随单元数的变化，输出 png
// 非正的值（例如第一级的 diff）不画
func PlotConvergence(ctx context.Context, sink output.Sink, name string, series []Entry) error {
	var errPts, diffPts plotter.XYs
	for _, e := range series {
		if e.Error > 0 {
			errPts = append(errPts, plotter.XY{X: float64(e.NumCells), Y: e.Error})
		}
		if e.DiffPrev > 0 {
			diffPts = append(diffPts, plotter.XY{X: float64(e.NumCells), Y: e.DiffPrev})
		}
	}
	if len(errPts) == 0 {
		return fmt.Errorf("mms: nothing to plot")
	}

	p := plot.New()
	p.Title.Text = "MMS convergence"
	p.X.Label.Text = "num_cells"
	p.Y.Label.Text = "max norm"
	p.X.Scale = plot.LogScale{}
	p.Y.Scale = plot.LogScale{}
	p.X.Tick.Marker = plot.LogTicks{Prec: -1}
	p.Y.Tick.Marker = plot.LogTicks{Prec: -1}
	p.Add(plotter.NewGrid())

	lines := []interface{}{"error", errPts}
	if len(diffPts) > 0 {
		lines = append(lines, "diff", diffPts)
	}
	if err := plotutil.AddLinePoints(p, lines...); err != nil {
		return fmt.Errorf("mms: plot: %w", err)
	}

	wt, err := p.WriterTo(6*vg.Inch, 4*vg.Inch, "png")
	if err != nil {
		return fmt.Errorf("mms: plot: %w", err)
	}
	w, err := sink.Create(ctx, name)
	if err != nil {
		return fmt.Errorf("mms: open %s: %w", name, err)
	}
	if _, err := wt.WriteTo(w); err != nil {
		_ = w.Close()
		return fmt.Errorf("mms: write %s: %w", name, err)
	}
	return w.Close()
}
