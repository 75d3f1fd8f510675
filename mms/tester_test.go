package mms

import (
	"bytes"
	"context"
	"errors"
	"math"
	"strings"
	"testing"

	"github.com/cpmech/gosl/chk"

	"heatstore/output"
)

func newCosParams(t *testing.T, stages int) Params {
	t.Helper()
	// k L = pi, so the exact solution has zero slope at the outlet
	sol, err := NewSolution("cos(kx)", 1, 0.05, math.Pi)
	if err != nil {
		t.Fatalf("NewSolution: %v", err)
	}
	return Params{
		NumCellsInitial: 8,
		NumStages:       stages,
		Factor:          2,
		DomainLength:    1,
		NumSteps:        40000,
		TimeStep:        0.002,
		StepThreshold:   1e-12,
		FluidVelocity:   1,
		Conductivity:    0.05,
		TLeft:           1,
		Rhs:             sol.Rhs,
		Exact:           sol.Exact,
	}
}

func TestNewSolution(tst *testing.T) {
	chk.PrintTitle("NewSolution")
	for _, name := range Solutions {
		sol, err := NewSolution(name, 1, 0.1, 2)
		if err != nil {
			tst.Fatalf("%s: %v", name, err)
		}
		chk.Float64(tst, name+" at 0", 1e-15, sol.Exact(0, 0), 1)
	}
	// rhs = u g' - alpha g''，用中心差分检查
	sol, _ := NewSolution("cos(kx^2)", 0.7, 0.3, 1.3)
	const d = 1e-4
	for _, x := range []float64{0.2, 0.5, 0.9} {
		g1 := (sol.Exact(0, x+d) - sol.Exact(0, x-d)) / (2 * d)
		g2 := (sol.Exact(0, x+d) - 2*sol.Exact(0, x) + sol.Exact(0, x-d)) / (d * d)
		chk.Float64(tst, "rhs", 1e-5, sol.Rhs(0, x), 0.7*g1-0.3*g2)
	}
}

func TestNewSolutionUnknown(t *testing.T) {
	_, err := NewSolution("sin(kx)", 1, 1, 1)
	if !errors.Is(err, ErrUnknownSolution) {
		t.Fatalf("error = %v, want ErrUnknownSolution", err)
	}
	if !strings.Contains(err.Error(), "sin(kx)") {
		t.Fatalf("error %q does not name the selector", err)
	}
}

func TestTesterConvergence(tst *testing.T) {
	chk.PrintTitle("Tester cos(kx) convergence")
	tester, err := NewTester(newCosParams(tst, 3))
	if err != nil {
		tst.Fatalf("NewTester: %v", err)
	}
	var levels []int
	tester.OnLevel = func(e *Entry) error {
		levels = append(levels, e.NumCells)
		return nil
	}
	sink := output.NewMemorySink()
	if err := tester.Run(context.Background(), sink); err != nil {
		tst.Fatalf("Run: %v", err)
	}

	series := tester.Series()
	chk.Int(tst, "levels", len(series), 3)
	chk.Ints(tst, "cells", levels, []int{8, 16, 32})
	chk.Float64(tst, "first diff", 0, series[0].DiffPrev, 0)
	for i := 1; i < len(series); i++ {
		if !(series[i].Error < series[i-1].Error) {
			tst.Fatalf("error did not decrease: level %d %g, level %d %g",
				i-1, series[i-1].Error, i, series[i].Error)
		}
		if !(series[i].DiffPrev > 0) {
			tst.Fatalf("level %d: diff = %g, want positive", i, series[i].DiffPrev)
		}
		if series[i].Order < 0.5 {
			tst.Fatalf("level %d: order %g too low", i, series[i].Order)
		}
	}
	for _, e := range series {
		if e.Steps >= 40000 {
			tst.Fatalf("level %d did not reach steady state", e.NumCells)
		}
		if e.StepDiff >= 1e-12 {
			tst.Fatalf("level %d: step diff %g above threshold", e.NumCells, e.StepDiff)
		}
		// 区间长度为 1 时 L2 范数不超过最大误差
		if !(e.ErrorL2 > 0 && e.ErrorL2 <= e.Error*(1+1e-12)) {
			tst.Fatalf("level %d: l2 error %g, max error %g", e.NumCells, e.ErrorL2, e.Error)
		}
	}

	want := []string{
		"field_T_fluid_16.dat",
		"field_T_fluid_32.dat",
		"field_T_fluid_8.dat",
		"field_T_fluid_exact.dat",
		"mms_statistics.dat",
	}
	chk.Strings(tst, "outputs", sink.Names(), want)

	stat, _ := sink.Get(StatisticsName)
	lines := strings.Split(strings.TrimSpace(string(stat)), "\n")
	if len(lines) != 4 || lines[0] != "num_cells error diff dt num_steps step_diff" {
		tst.Fatalf("unexpected statistics:\n%s", stat)
	}
	if !strings.HasPrefix(lines[1], "8 ") || len(strings.Fields(lines[3])) != 6 {
		tst.Fatalf("unexpected statistics rows:\n%s", stat)
	}

	exact, _ := sink.Get("field_T_fluid_exact.dat")
	if n := bytes.Count(exact, []byte("\n")); n != 33 {
		tst.Fatalf("exact field has %d lines, want 33", n)
	}
}

func TestTesterStepBudget(t *testing.T) {
	p := newCosParams(t, 1)
	p.NumSteps = 5
	tester, err := NewTester(p)
	if err != nil {
		t.Fatalf("NewTester: %v", err)
	}
	if err := tester.Run(context.Background(), output.NewMemorySink()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if got := tester.Series()[0].Steps; got != 5 {
		t.Fatalf("steps = %d, want 5", got)
	}
}

func TestNewTesterInvalid(t *testing.T) {
	p := newCosParams(t, 2)
	p.Factor = 0
	if _, err := NewTester(p); err == nil {
		t.Fatalf("expected error for zero factor")
	}
	p = newCosParams(t, 2)
	p.Exact = nil
	if _, err := NewTester(p); err == nil {
		t.Fatalf("expected error for missing exact solution")
	}
}

func TestPlotConvergence(t *testing.T) {
	series := []Entry{
		{NumCells: 8, Error: 0.1},
		{NumCells: 16, Error: 0.05, DiffPrev: 0.04},
		{NumCells: 32, Error: 0.025, DiffPrev: 0.02},
	}
	sink := output.NewMemorySink()
	if err := PlotConvergence(context.Background(), sink, "mms_convergence.png", series); err != nil {
		t.Fatalf("PlotConvergence: %v", err)
	}
	b, err := sink.Get("mms_convergence.png")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if !bytes.HasPrefix(b, []byte("\x89PNG")) {
		t.Fatalf("output is not a png")
	}
	if err := PlotConvergence(context.Background(), sink, "empty.png", nil); err == nil {
		t.Fatalf("expected error for empty series")
	}
}
