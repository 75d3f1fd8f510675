// Package experiment 按配置文件推进一次蓄热计算
//
// 网格和求解器由 [hydro] 段构造；场和标量按固定的时间间隔写入输出；
// [mms] 段启用时在计算结束后再做一次收敛性检验。
package experiment

import (
	"context"
	"errors"
	"fmt"
	"math"

	log "github.com/sirupsen/logrus"

	"heatstore/calculator"
	"heatstore/config"
	"heatstore/field"
	"heatstore/mesh"
	"heatstore/model"
	"heatstore/output"
)

// ErrNoSink 需要写输出但没有提供输出目的地
var ErrNoSink = errors.New("experiment: output sink required")

type Experiment struct {
	cfg       *config.Config
	mesh      *mesh.Mesh
	solver    *calculator.HeatStorage
	scheduler *calculator.Scheduler // 未启用时为 nil
	metrics   *Metrics
	sink      output.Sink

	session       *output.SessionPlain
	sessionScalar *output.SessionPlainScalar

	n               int
	lastFrame       float64
	lastFrameScalar float64
	frame           int
	frameScalar     int
	published       int // 上一次推送时的步数，-1 表示还没推送过

	// OnFrame 每隔 Server.FrameInterval 步以及开始、结束时调用，可以为 nil
	OnFrame func(model.Frame)
}

// New no_output 为 false 时 sink 不能为 nil
func New(ctx context.Context, cfg *config.Config, sink output.Sink, metrics *Metrics) (*Experiment, error) {
	h := cfg.Hydro
	m, err := mesh.NewUniform(mesh.Rect{A: h.A, B: h.B}, h.Nx)
	if err != nil {
		return nil, fmt.Errorf("experiment: %w", err)
	}
	e := &Experiment{
		cfg:       cfg,
		mesh:      m,
		metrics:   metrics,
		sink:      sink,
		published: -1,
	}
	e.solver = calculator.NewHeatStorage(m, calculator.Params{
		TimeStep:          h.TimeStep,
		FluidVelocity:     h.FluidVelocity,
		ConductivityFluid: h.ConductivityFluid,
		ConductivitySolid: h.ConductivitySolid,
		TemperatureHot:    h.TemperatureHot,
		TemperatureCold:   h.TemperatureCold,
		ExchangeFluid:     h.Exchange,
		ExchangeSolid:     h.Exchange,
	}, nil, nil)

	if cfg.Scheduler.Enabled() {
		d := cfg.Scheduler.Durations
		if e.scheduler, err = calculator.NewScheduler(d[0], d[1], d[2], d[3]); err != nil {
			return nil, fmt.Errorf("experiment: %w", err)
		}
	}

	if cfg.Output.NoOutput {
		return e, nil
	}
	if sink == nil {
		return nil, ErrNoSink
	}
	if err := e.openSessions(ctx); err != nil {
		return nil, err
	}
	return e, nil
}

func (e *Experiment) openSessions(ctx context.Context) error {
	content := []output.EntryField{
		{Name: "x", Fn: func(c mesh.IdxCell) float64 { return e.mesh.Center(c) }},
		{Name: "Tf", Fn: func(c mesh.IdxCell) float64 { return e.solver.Fluid()[c] }},
		{Name: "Ts", Fn: func(c mesh.IdxCell) float64 { return e.solver.Solid()[c] }},
	}
	contentScalar := []output.EntryScalar{
		{Name: "time", Fn: func() float64 { return e.solver.Time() }},
		{Name: "n", Fn: func() float64 { return float64(e.n) }},
	}
	if e.scheduler != nil {
		contentScalar = append(contentScalar, output.EntryScalar{
			Name: "status", Fn: func() float64 { return float64(e.Status()) },
		})
	}

	var err error
	e.session, err = output.NewSessionPlain(ctx, e.sink, e.cfg.Output.FilenameField, content, e.mesh)
	if err != nil {
		return err
	}
	e.sessionScalar, err = output.NewSessionPlainScalar(ctx, e.sink, e.cfg.Output.FilenameScalar, contentScalar)
	if err != nil {
		_ = e.session.Close()
		return err
	}
	return nil
}

func (e *Experiment) Mesh() *mesh.Mesh { return e.mesh }

func (e *Experiment) Solver() *calculator.HeatStorage { return e.solver }

// Steps 已经推进的步数
func (e *Experiment) Steps() int { return e.n }

// NumSteps 推进到 T 需要的步数
func (e *Experiment) NumSteps() int {
	h := e.cfg.Hydro
	return int(math.Ceil(h.TotalTime/h.TimeStep - 1e-9))
}

// Status 当前时刻的调度阶段编号，未启用调度时为 0
func (e *Experiment) Status() int {
	if e.scheduler == nil {
		return 0
	}
	return e.scheduler.StateIdx(e.solver.Time())
}

// Step 推进一个时间步
func (e *Experiment) Step() {
	e.solver.StartStep()
	e.solver.CalcStep()
	e.solver.FinishStep()
	e.n++
	e.metrics.observeStep(e.solver.Time(),
		field.CalcDiff(e.solver.FluidTemperature(field.TimeCurr), e.solver.FluidTemperature(field.TimePrev)))
}

func (e *Experiment) writeInitial() error {
	if e.session == nil {
		return nil
	}
	if err := e.session.Write(0, "initial"); err != nil {
		return err
	}
	e.metrics.observeFrame()
	return e.sessionScalar.Write()
}

// WriteResults 距上一帧超过 T/max_frame_index 时写场，超过 T/max_frame_scalar_index 时写标量；
// force 为 true 时只要时间前进过就写
func (e *Experiment) WriteResults(force bool) error {
	if e.session == nil {
		return nil
	}
	out := e.cfg.Output
	t := e.solver.Time()
	total := e.cfg.Hydro.TotalTime

	frameDuration := total / float64(out.MaxFrameIndex)
	if (force && t > e.lastFrame) || (!out.NoMeshOutput && t >= e.lastFrame+frameDuration) {
		e.lastFrame = t
		if err := e.session.Write(t, "step"); err != nil {
			return err
		}
		e.metrics.observeFrame()
		log.WithFields(log.Fields{"frame": e.frame, "t": t}).Debug("field frame written")
		e.frame++
	}

	frameScalarDuration := total / float64(out.MaxFrameScalarIndex)
	if (force && t > e.lastFrameScalar) || t >= e.lastFrameScalar+frameScalarDuration {
		e.lastFrameScalar = t
		if err := e.sessionScalar.Write(); err != nil {
			return err
		}
		log.WithFields(log.Fields{"frame": e.frameScalar, "t": t}).Debug("scalar frame written")
		e.frameScalar++
	}
	return nil
}

// Snapshot 复制当前温度分布
func (e *Experiment) Snapshot() model.Frame {
	x := make([]float64, e.mesh.NumCells())
	for _, c := range e.mesh.Cells() {
		x[c] = e.mesh.Center(c)
	}
	return model.Frame{
		Time:   e.solver.Time(),
		Step:   e.n,
		Status: e.Status(),
		X:      x,
		Tf:     e.solver.Fluid().Clone(),
		Ts:     e.solver.Solid().Clone(),
	}
}

func (e *Experiment) publish(index int) int {
	if e.OnFrame == nil || e.published == e.n {
		return index
	}
	f := e.Snapshot()
	f.Index = index
	e.published = e.n
	e.OnFrame(f)
	return index + 1
}

// Run 推进到 T 并关闭输出；ctx 取消时尽快返回 ctx.Err()
func (e *Experiment) Run(ctx context.Context) error {
	defer func() { _ = e.Close() }()

	numSteps := e.NumSteps()
	p := e.solver.Params()
	log.WithFields(log.Fields{
		"name":      e.cfg.Experiment.Name,
		"cells":     e.mesh.NumCells(),
		"dt":        p.TimeStep,
		"uf":        p.FluidVelocity,
		"T":         e.cfg.Hydro.TotalTime,
		"num_steps": numSteps,
		"scheduler": e.scheduler != nil,
	}).Info("experiment started")

	if err := e.writeInitial(); err != nil {
		return err
	}
	index := e.publish(0)

	every := e.cfg.Server.FrameInterval
	for e.n < numSteps {
		if err := ctx.Err(); err != nil {
			log.WithFields(log.Fields{"n": e.n, "t": e.solver.Time()}).Info("experiment cancelled")
			return err
		}
		e.Step()
		if err := e.WriteResults(false); err != nil {
			return err
		}
		if every > 0 && e.n%every == 0 {
			index = e.publish(index)
		}
	}
	if err := e.WriteResults(true); err != nil {
		return err
	}
	e.publish(index)

	log.WithFields(log.Fields{
		"n":      e.n,
		"t":      e.solver.Time(),
		"frames": e.frame,
	}).Info("experiment finished")
	return e.Close()
}

// Close 可以重复调用
func (e *Experiment) Close() error {
	var errs []error
	if e.session != nil {
		errs = append(errs, e.session.Close())
	}
	if e.sessionScalar != nil {
		errs = append(errs, e.sessionScalar.Close())
	}
	return errors.Join(errs...)
}
