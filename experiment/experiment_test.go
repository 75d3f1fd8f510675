package experiment

import (
	"bytes"
	"context"
	"errors"
	"math"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/cpmech/gosl/chk"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"heatstore/config"
	"heatstore/history"
	"heatstore/mms"
	"heatstore/model"
	"heatstore/output"
)

// 步长和帧间隔都取二进制可精确表示的数，帧数是确定的
func testConfig() *config.Config {
	return &config.Config{
		Experiment: config.Experiment{Name: "test", Title: "test"},
		Hydro: config.Hydro{
			Nx:                4,
			A:                 0,
			B:                 1,
			FluidVelocity:     1,
			ConductivityFluid: 0.01,
			ConductivitySolid: 0.01,
			TemperatureHot:    1,
			TemperatureCold:   0,
			TimeStep:          0.125,
			TotalTime:         1,
		},
		Output: config.Output{
			Driver:              "memory",
			MaxFrameIndex:       4,
			MaxFrameScalarIndex: 8,
			FilenameField:       "test.field.dat",
			FilenameScalar:      "test.scalar.dat",
		},
		Server: config.Server{FrameInterval: 2, Backlog: 8},
	}
}

func lines(t *testing.T, sink *output.MemorySink, name string) []string {
	t.Helper()
	b, err := sink.Get(name)
	if err != nil {
		t.Fatalf("Get %s: %v", name, err)
	}
	return strings.Split(strings.TrimRight(string(b), "\n"), "\n")
}

func TestExperimentRun(tst *testing.T) {
	chk.PrintTitle("Experiment run")
	cfg := testConfig()
	sink := output.NewMemorySink()
	e, err := New(context.Background(), cfg, sink, nil)
	if err != nil {
		tst.Fatalf("New: %v", err)
	}
	var frames []model.Frame
	e.OnFrame = func(f model.Frame) { frames = append(frames, f) }

	if err := e.Run(context.Background()); err != nil {
		tst.Fatalf("Run: %v", err)
	}
	chk.Int(tst, "steps", e.Steps(), 8)
	chk.Float64(tst, "time", 0, e.Solver().Time(), 1)

	// 初始帧 + t=0.25,0.5,0.75,1
	field, _ := sink.Get("test.field.dat")
	chk.Int(tst, "field frames", bytes.Count(field, []byte("x Tf Ts\n")), 5)
	if n := len(lines(tst, sink, "test.field.dat")); n != 5*5+4 {
		tst.Fatalf("field file has %d lines, want %d", n, 5*5+4)
	}

	scalar := lines(tst, sink, "test.scalar.dat")
	chk.Int(tst, "scalar lines", len(scalar), 10)
	chk.Strings(tst, "scalar header", []string{scalar[0]}, []string{"time n"})
	chk.Strings(tst, "scalar last", []string{scalar[9]}, []string{"1 8"})

	chk.Int(tst, "published", len(frames), 5)
	for i, f := range frames {
		chk.Int(tst, "index", f.Index, i)
		chk.Int(tst, "step", f.Step, 2*i)
		chk.Int(tst, "cells", len(f.Tf), 4)
	}
	chk.Array(tst, "x", 0, frames[0].X, []float64{0.125, 0.375, 0.625, 0.875})
	chk.Array(tst, "initial tf", 0, frames[0].Tf, []float64{0, 0, 0, 0})
	last := frames[len(frames)-1]
	if !(last.Tf[0] > 0 && last.Tf[0] <= 1) {
		tst.Fatalf("inlet cell not heated: %v", last.Tf)
	}
	chk.Array(tst, "solid", 0, last.Ts, []float64{0, 0, 0, 0})
}

func TestExperimentSchedulerStatus(tst *testing.T) {
	chk.PrintTitle("Experiment scheduler status")
	cfg := testConfig()
	cfg.Scheduler.Durations = [4]float64{0.25, 0.25, 0.25, 0.25}
	sink := output.NewMemorySink()
	e, err := New(context.Background(), cfg, sink, nil)
	if err != nil {
		tst.Fatalf("New: %v", err)
	}
	if err := e.Run(context.Background()); err != nil {
		tst.Fatalf("Run: %v", err)
	}
	rows := lines(tst, sink, "test.scalar.dat")
	chk.Strings(tst, "header", []string{rows[0]}, []string{"time n status"})
	var status []int
	for _, row := range rows[1:] {
		fields := strings.Fields(row)
		v, err := strconv.Atoi(fields[2])
		if err != nil {
			tst.Fatalf("status %q: %v", fields[2], err)
		}
		status = append(status, v)
	}
	chk.Ints(tst, "status", status, []int{1, 1, 3, 3, 2, 2, 3, 3, 1})
}

func TestExperimentNoMeshOutput(t *testing.T) {
	cfg := testConfig()
	cfg.Output.NoMeshOutput = true
	sink := output.NewMemorySink()
	e, err := New(context.Background(), cfg, sink, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := e.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	// 只剩初始帧；最后一帧与上一帧时间不同，强制写出
	field, _ := sink.Get("test.field.dat")
	if n := bytes.Count(field, []byte("x Tf Ts\n")); n != 2 {
		t.Fatalf("field frames = %d, want 2", n)
	}
	if n := len(lines(t, sink, "test.scalar.dat")); n != 10 {
		t.Fatalf("scalar lines = %d, want 10", n)
	}
}

func TestExperimentNoOutput(t *testing.T) {
	cfg := testConfig()
	cfg.Output.NoOutput = true
	e, err := New(context.Background(), cfg, nil, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := e.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if e.Steps() != e.NumSteps() {
		t.Fatalf("steps = %d, want %d", e.Steps(), e.NumSteps())
	}
	if _, err := New(context.Background(), testConfig(), nil, nil); err == nil {
		t.Fatalf("expected error without sink")
	}
}

func TestExperimentCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	e, err := New(ctx, testConfig(), output.NewMemorySink(), nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := e.Run(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("Run error = %v, want context.Canceled", err)
	}
	if e.Steps() != 0 {
		t.Fatalf("steps = %d after cancel", e.Steps())
	}
}

func TestExperimentMetrics(tst *testing.T) {
	chk.PrintTitle("Experiment metrics")
	reg := prometheus.NewRegistry()
	metrics := NewMetrics(reg)
	e, err := New(context.Background(), testConfig(), output.NewMemorySink(), metrics)
	if err != nil {
		tst.Fatalf("New: %v", err)
	}
	if err := e.Run(context.Background()); err != nil {
		tst.Fatalf("Run: %v", err)
	}
	chk.Float64(tst, "steps", 0, testutil.ToFloat64(metrics.steps), 8)
	chk.Float64(tst, "frames", 0, testutil.ToFloat64(metrics.frames), 5)
	chk.Float64(tst, "time", 0, testutil.ToFloat64(metrics.time), 1)
	if n, err := testutil.GatherAndCount(reg); err != nil || n == 0 {
		tst.Fatalf("gather: %d, %v", n, err)
	}
}

func TestExecuteWithMMS(tst *testing.T) {
	chk.PrintTitle("Execute with mms")
	cfg := testConfig()
	cfg.MMS = config.MMS{
		Enabled:       true,
		ExactSolution: "cos(kx)",
		FluidVelocity: 1,
		Alpha:         0.05,
		Wavenumber:    math.Pi,
		MeshInitial:   8,
		NumStages:     2,
		Factor:        2,
		DomainLength:  1,
		NumSteps:      40000,
		TimeStep:      0.002,
		StepThreshold: 1e-12,
		TLeft:         1,
		Plot:          "mms_convergence.png",
	}
	ctx := context.Background()
	store, err := OpenHistory(ctx, config.History{Driver: history.DriverSQLite, DSN: filepath.Join(tst.TempDir(), "history.db")})
	if err != nil {
		tst.Fatalf("OpenHistory: %v", err)
	}
	defer func() { _ = store.Close() }()
	metrics := NewMetrics(prometheus.NewRegistry())
	sink := output.NewMemorySink()

	if err := Execute(ctx, cfg, sink, metrics, store); err != nil {
		tst.Fatalf("Execute: %v", err)
	}
	for _, name := range []string{"test.field.dat", mms.StatisticsName, "field_T_fluid_16.dat", "mms_convergence.png"} {
		if _, err := sink.Get(name); err != nil {
			tst.Fatalf("missing output %s: %v", name, err)
		}
	}

	runs, err := store.Runs(ctx, 10)
	if err != nil || len(runs) != 1 {
		tst.Fatalf("runs = %v, %v", runs, err)
	}
	chk.Float64(tst, "run alpha", 0, runs[0].Alpha, 0.05)
	chk.Float64(tst, "run dt", 0, runs[0].TimeStep, 0.002)
	levels, err := store.Levels(ctx, runs[0].ID)
	if err != nil {
		tst.Fatalf("Levels: %v", err)
	}
	chk.Int(tst, "levels", len(levels), 2)
	if !(levels[1].Error < levels[0].Error) {
		tst.Fatalf("stored errors do not decrease: %+v", levels)
	}
	chk.Float64(tst, "metric error", 0, testutil.ToFloat64(metrics.mmsError.WithLabelValues("16")), levels[1].Error)
}

func TestExecuteMMSWithoutSink(t *testing.T) {
	cfg := testConfig()
	cfg.Output.NoOutput = true
	cfg.MMS = config.MMS{
		Enabled:       true,
		ExactSolution: "cos(kx)",
		FluidVelocity: 1,
		Alpha:         0.05,
		Wavenumber:    math.Pi,
		MeshInitial:   8,
		NumStages:     1,
		Factor:        2,
		DomainLength:  1,
		NumSteps:      10,
		TimeStep:      0.002,
		TLeft:         1,
	}
	if err := Execute(context.Background(), cfg, nil, nil, nil); !errors.Is(err, ErrNoSink) {
		t.Fatalf("Execute error = %v, want ErrNoSink", err)
	}
	if _, err := RunMMS(context.Background(), cfg.MMS, nil, nil, nil); !errors.Is(err, ErrNoSink) {
		t.Fatalf("RunMMS error = %v, want ErrNoSink", err)
	}
}

func TestNewTesterUnknownSolution(t *testing.T) {
	_, err := NewTester(config.MMS{ExactSolution: "exp(x)"})
	if !errors.Is(err, mms.ErrUnknownSolution) {
		t.Fatalf("error = %v, want ErrUnknownSolution", err)
	}
}

func TestOpenHistoryDisabled(t *testing.T) {
	store, err := OpenHistory(context.Background(), config.History{})
	if err != nil || store != nil {
		t.Fatalf("OpenHistory = %v, %v; want nil, nil", store, err)
	}
}
