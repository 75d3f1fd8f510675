package experiment

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "heatstore"

// Metrics 计算过程的监控指标，nil 表示不统计
type Metrics struct {
	steps    prometheus.Counter
	time     prometheus.Gauge
	stepDiff prometheus.Gauge
	frames   prometheus.Counter
	mmsError *prometheus.GaugeVec
	mmsOrder *prometheus.GaugeVec
}

// NewMetrics reg 为 nil 时只创建不注册
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		steps: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "steps_total",
			Help:      "Number of solver time steps taken.",
		}),
		time: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "simulation_time",
			Help:      "Current simulated time of the running experiment.",
		}),
		stepDiff: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "step_diff",
			Help:      "Max norm of the fluid temperature change over the last step.",
		}),
		frames: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "frames_total",
			Help:      "Number of field frames written.",
		}),
		mmsError: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "mms",
			Name:      "error",
			Help:      "Max norm error against the exact solution per mesh level.",
		}, []string{"num_cells"}),
		mmsOrder: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "mms",
			Name:      "order",
			Help:      "Observed convergence order per mesh level.",
		}, []string{"num_cells"}),
	}
	if reg != nil {
		reg.MustRegister(m.steps, m.time, m.stepDiff, m.frames, m.mmsError, m.mmsOrder)
	}
	return m
}

func (m *Metrics) observeStep(t, diff float64) {
	if m == nil {
		return
	}
	m.steps.Inc()
	m.time.Set(t)
	m.stepDiff.Set(diff)
}

func (m *Metrics) observeFrame() {
	if m == nil {
		return
	}
	m.frames.Inc()
}

func (m *Metrics) observeLevel(numCells int, errNorm, order float64) {
	if m == nil {
		return
	}
	label := strconv.Itoa(numCells)
	m.mmsError.WithLabelValues(label).Set(errNorm)
	m.mmsOrder.WithLabelValues(label).Set(order)
}
