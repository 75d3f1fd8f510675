package server

import (
	"io"
	"strconv"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"
	"github.com/go-echarts/go-echarts/v2/types"

	"heatstore/model"
)

// renderChart 流体和固体温度沿 x 的分布
func renderChart(w io.Writer, title string, frame model.Frame) error {
	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{
			Theme: types.ThemeWesteros,
		}),
		charts.WithTitleOpts(opts.Title{
			Title:    title,
			Subtitle: "t=" + strconv.FormatFloat(frame.Time, 'g', 6, 64) + " n=" + strconv.Itoa(frame.Step),
		}),
		charts.WithLegendOpts(opts.Legend{
			Right: "10",
			Top:   "20",
		}),
		charts.WithXAxisOpts(opts.XAxis{
			Name: "x",
		}),
		charts.WithYAxisOpts(opts.YAxis{
			Name:  "T",
			Scale: true,
		}),
		charts.WithTooltipOpts(opts.Tooltip{Show: true, Trigger: "axis"}),
	)

	xs := make([]string, len(frame.X))
	for i, x := range frame.X {
		xs[i] = strconv.FormatFloat(x, 'g', 6, 64)
	}
	line.SetXAxis(xs).
		AddSeries("Tf", lineData(frame.Tf)).
		AddSeries("Ts", lineData(frame.Ts))
	return line.Render(w)
}

func lineData(v []float64) []opts.LineData {
	res := make([]opts.LineData, len(v))
	for i := range v {
		res[i] = opts.LineData{Value: v[i]}
	}
	return res
}
