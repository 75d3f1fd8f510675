package mms

import (
	"context"
	"fmt"
	"math"
	"strconv"

	log "github.com/sirupsen/logrus"

	"heatstore/calculator"
	"heatstore/field"
	"heatstore/mesh"
	"heatstore/output"
)

const (
	StatisticsName  = "mms_statistics.dat"
	FieldNamePrefix = "field_T_fluid_"
)

// Params 收敛性检验参数
type Params struct {
	NumCellsInitial int
	NumStages       int
	Factor          int // 每一级网格单元数的放大倍数
	DomainLength    float64
	NumSteps        int // 每一级最多推进的步数
	TimeStep        float64
	StepThreshold   float64 // 相邻两步差值小于该值时认为已经稳态
	FluidVelocity   float64
	Conductivity    float64
	TLeft           float64
	Rhs             calculator.FuncTX
	Exact           calculator.FuncTX
}

func (p Params) validate() error {
	switch {
	case p.NumCellsInitial <= 0:
		return fmt.Errorf("mms: initial number of cells must be positive")
	case p.NumStages <= 0:
		return fmt.Errorf("mms: number of stages must be positive")
	case p.Factor <= 0:
		return fmt.Errorf("mms: factor must be positive")
	case p.NumSteps < 0:
		return fmt.Errorf("mms: negative step budget")
	case p.Rhs == nil || p.Exact == nil:
		return fmt.Errorf("mms: rhs and exact solution required")
	}
	return nil
}

// Entry 一级网格的结果
type Entry struct {
	NumCells int
	H        float64
	Mesh     *mesh.Mesh
	Solver   *calculator.HeatStorage

	Fluid field.Cell // 最终流体温度
	Exact field.Cell // 精确解在单元中心的值

	Error    float64 // 与精确解的差
	ErrorL2  float64 // 与精确解之差的 L2 范数
	DiffPrev float64 // 与上一级（插值到本级网格）的差，第一级为 0
	Steps    int     // 实际推进的步数
	StepDiff float64 // 最后一步前后两层的差
	Order    float64 // 与上一级相比的收敛阶，第一级为 NaN
}

// Tester 逐级加密网格，每一级推进到稳态或步数上限后与精确解比较
type Tester struct {
	p      Params
	series []Entry

	// OnLevel 每一级完成后调用，可以为 nil
	OnLevel func(e *Entry) error
}

func NewTester(p Params) (*Tester, error) {
	if err := p.validate(); err != nil {
		return nil, err
	}
	return &Tester{p: p}, nil
}

func (t *Tester) Params() Params { return t.p }

func (t *Tester) Series() []Entry { return t.series }

// Run 依次计算每一级，统计数据写到 mms_statistics.dat，各级场写到 field_T_fluid_<N>.dat，
// 最后把最细网格上的精确解写到 field_T_fluid_exact.dat
func (t *Tester) Run(ctx context.Context, sink output.Sink) error {
	p := t.p
	t.series = t.series[:0]

	var row Entry
	stat, err := output.NewSessionPlainScalar(ctx, sink, StatisticsName, []output.EntryScalar{
		{Name: "num_cells", Fn: func() float64 { return float64(row.NumCells) }},
		{Name: "error", Fn: func() float64 { return row.Error }},
		{Name: "diff", Fn: func() float64 { return row.DiffPrev }},
		{Name: "dt", Fn: func() float64 { return p.TimeStep }},
		{Name: "num_steps", Fn: func() float64 { return float64(row.Steps) }},
		{Name: "step_diff", Fn: func() float64 { return row.StepDiff }},
	})
	if err != nil {
		return err
	}
	defer func() { _ = stat.Close() }()

	numCells := p.NumCellsInitial
	for i := 0; i < p.NumStages; i, numCells = i+1, numCells*p.Factor {
		if err := ctx.Err(); err != nil {
			return err
		}
		entry, err := t.runLevel(numCells)
		if err != nil {
			return err
		}
		t.series = append(t.series, entry)
		e := &t.series[len(t.series)-1]

		row = *e
		if err := stat.Write(); err != nil {
			return err
		}
		log.WithFields(log.Fields{
			"num_cells": e.NumCells,
			"error":     e.Error,
			"error_l2":  e.ErrorL2,
			"diff":      e.DiffPrev,
			"order":     e.Order,
			"num_steps": e.Steps,
			"step_diff": e.StepDiff,
		}).Info("mms level finished")

		name := FieldNamePrefix + strconv.Itoa(numCells) + ".dat"
		if err := e.Solver.WriteField(ctx, sink, e.Fluid, name); err != nil {
			return err
		}
		if t.OnLevel != nil {
			if err := t.OnLevel(e); err != nil {
				return err
			}
		}
	}

	if err := stat.Close(); err != nil {
		return err
	}

	if len(t.series) > 0 {
		last := t.series[len(t.series)-1]
		if err := last.Solver.WriteField(ctx, sink, last.Exact, FieldNamePrefix+"exact.dat"); err != nil {
			return err
		}
	}
	return nil
}

func (t *Tester) runLevel(numCells int) (Entry, error) {
	p := t.p
	m, err := mesh.NewUniform(mesh.Rect{A: 0, B: p.DomainLength}, numCells)
	if err != nil {
		return Entry{}, err
	}

	rhsFluid := calculator.Evaluate(p.Rhs, 0, m)
	rhsSolid := field.NewCell(m, 0)
	hs := calculator.NewHeatStorage(m, calculator.Params{
		TimeStep:          p.TimeStep,
		FluidVelocity:     p.FluidVelocity,
		ConductivityFluid: p.Conductivity,
		ConductivitySolid: p.Conductivity,
		TemperatureHot:    p.TLeft,
		TemperatureCold:   p.TLeft,
	}, &rhsFluid, &rhsSolid)

	for n := 0; n < p.NumSteps; n++ {
		hs.StartStep()
		hs.CalcStep()
		hs.FinishStep()
		if field.CalcDiff(hs.FluidTemperature(field.TimeCurr), hs.FluidTemperature(field.TimePrev)) < p.StepThreshold {
			break
		}
	}

	e := Entry{
		NumCells: numCells,
		H:        m.Step(),
		Mesh:     m,
		Solver:   hs,
		Fluid:    hs.Fluid().Clone(),
		Exact:    calculator.Evaluate(p.Exact, 0, m),
		Steps:    hs.Steps(),
		StepDiff: field.CalcDiff(hs.FluidTemperature(field.TimeCurr), hs.FluidTemperature(field.TimePrev)),
		Order:    math.NaN(),
	}
	e.Error = field.CalcDiff(e.Exact, e.Fluid)
	residual := e.Exact.Clone()
	for i := range residual {
		residual[i] -= e.Fluid[i]
	}
	e.ErrorL2 = field.Norm(residual, e.H, 2)
	if len(t.series) > 0 {
		prev := t.series[len(t.series)-1]
		e.DiffPrev = field.CalcDiff(e.Fluid, calculator.InterpolateField(prev.Fluid, prev.Mesh, m))
		if prev.Error > 0 && e.Error > 0 && p.Factor > 1 {
			e.Order = math.Log(prev.Error/e.Error) / math.Log(float64(p.Factor))
		}
	}
	return e, nil
}
