// Package config 从 ini 文件读取实验参数
//
// 必需的键在 Load 时一次性检查，缺失时返回 ErrMissingKey，不会在第一次使用时才发现。
package config

import (
	"errors"
	"fmt"
	"strings"

	"gopkg.in/ini.v1"
)

var ErrMissingKey = errors.New("config: missing key")

type Config struct {
	Experiment Experiment
	Hydro      Hydro
	Scheduler  Scheduler
	Output     Output
	MMS        MMS
	History    History
	Server     Server
	Log        Log
}

type Experiment struct {
	Name  string
	Title string
}

// Hydro 求解器和网格参数
type Hydro struct {
	Nx int
	A  float64 // 计算域左端
	B  float64 // 计算域右端

	FluidVelocity     float64 // uf
	ConductivityFluid float64 // alpha_fluid
	ConductivitySolid float64 // alpha_solid
	TemperatureHot    float64 // T_hot
	TemperatureCold   float64 // T_cold
	Exchange          float64 // 流体和固体共用
	TimeStep          float64 // dt
	TotalTime         float64 // T
}

// Scheduler 四个阶段的时长，全为 0 时不启用
type Scheduler struct {
	Durations [4]float64
}

func (s Scheduler) Enabled() bool {
	return s.Durations[0]+s.Durations[1]+s.Durations[2]+s.Durations[3] > 0
}

type Output struct {
	Driver string // fs | memory | s3
	Root   string

	NoOutput     bool
	NoMeshOutput bool

	MaxFrameIndex       int
	MaxFrameScalarIndex int

	FilenameField  string
	FilenameScalar string

	S3Bucket    string
	S3Region    string
	S3Endpoint  string
	S3Prefix    string
	S3PathStyle bool
}

type MMS struct {
	Enabled       bool
	ExactSolution string
	FluidVelocity float64
	Alpha         float64
	Wavenumber    float64
	MeshInitial   int
	NumStages     int
	Factor        int
	DomainLength  float64
	NumSteps      int
	TimeStep      float64
	StepThreshold float64
	TLeft         float64
	Plot          string // 收敛曲线 png，空则不画
}

type History struct {
	Driver string // sqlite | pgx，空则不记录
	DSN    string
}

type Server struct {
	Addr          string
	FrameInterval int // 每隔多少步推送一帧
	Backlog       int // 新连接能补收的帧数
}

type Log struct {
	Level string
}

// Load 读取 ini 文件
func Load(path string) (*Config, error) {
	file, err := ini.Load(path)
	if err != nil {
		return nil, fmt.Errorf("config: load %s: %w", path, err)
	}
	return Parse(file)
}

// Parse 从已加载的 ini 文件构造配置
func Parse(file *ini.File) (*Config, error) {
	r := reader{file: file}
	cfg := &Config{}

	exp := file.Section("experiment")
	cfg.Experiment = Experiment{
		Name:  exp.Key("name").MustString("heat_storage"),
		Title: exp.Key("title").String(),
	}
	if cfg.Experiment.Title == "" {
		cfg.Experiment.Title = cfg.Experiment.Name
	}

	cfg.Hydro = Hydro{
		Nx:                r.getInt("hydro", "Nx"),
		A:                 r.getVect("hydro", "A"),
		B:                 r.getVect("hydro", "B"),
		FluidVelocity:     r.getFloat("hydro", "uf"),
		ConductivityFluid: r.getFloat("hydro", "alpha_fluid"),
		ConductivitySolid: r.getFloat("hydro", "alpha_solid"),
		TemperatureHot:    r.getFloat("hydro", "T_hot"),
		TemperatureCold:   r.getFloat("hydro", "T_cold"),
		Exchange:          r.getFloat("hydro", "exchange"),
		TimeStep:          r.getFloat("hydro", "dt"),
		TotalTime:         r.getFloat("hydro", "T"),
	}

	sch := file.Section("scheduler")
	for i := range cfg.Scheduler.Durations {
		cfg.Scheduler.Durations[i] = sch.Key(fmt.Sprintf("duration_%d", i+1)).MustFloat64(0)
	}

	out := file.Section("output")
	cfg.Output = Output{
		Driver:              out.Key("driver").MustString("fs"),
		Root:                out.Key("root").MustString("."),
		NoOutput:            out.Key("no_output").MustBool(false),
		NoMeshOutput:        out.Key("no_mesh_output").MustBool(false),
		MaxFrameIndex:       out.Key("max_frame_index").MustInt(100),
		MaxFrameScalarIndex: out.Key("max_frame_scalar_index").MustInt(1000),
		FilenameField:       out.Key("filename_field").MustString(cfg.Experiment.Name + ".field.dat"),
		FilenameScalar:      out.Key("filename_scalar").MustString(cfg.Experiment.Name + ".scalar.dat"),
		S3Bucket:            out.Key("s3_bucket").String(),
		S3Region:            out.Key("s3_region").String(),
		S3Endpoint:          out.Key("s3_endpoint").String(),
		S3Prefix:            out.Key("s3_prefix").String(),
		S3PathStyle:         out.Key("s3_path_style").MustBool(false),
	}

	mms := file.Section("mms")
	cfg.MMS.Enabled = mms.Key("enabled").MustBool(false)
	if cfg.MMS.Enabled {
		cfg.MMS = MMS{
			Enabled:       true,
			ExactSolution: r.getString("mms", "exact_solution"),
			FluidVelocity: r.getFloat("mms", "fluid_velocity"),
			Alpha:         r.getFloat("mms", "alpha"),
			Wavenumber:    r.getFloat("mms", "wavenumber"),
			MeshInitial:   r.getInt("mms", "mesh_initial"),
			NumStages:     r.getInt("mms", "num_stages"),
			Factor:        r.getInt("mms", "factor"),
			DomainLength:  r.getFloat("mms", "domain_length"),
			NumSteps:      r.getInt("mms", "num_steps"),
			TimeStep:      r.getFloat("mms", "time_step"),
			StepThreshold: r.getFloat("mms", "step_threshold"),
			TLeft:         r.getFloat("mms", "T_left"),
			Plot:          mms.Key("plot").String(),
		}
	}

	hist := file.Section("history")
	cfg.History = History{
		Driver: hist.Key("driver").String(),
		DSN:    hist.Key("dsn").String(),
	}

	srv := file.Section("server")
	cfg.Server = Server{
		Addr:          srv.Key("addr").MustString(":9000"),
		FrameInterval: srv.Key("frame_interval").MustInt(10),
		Backlog:       srv.Key("backlog").MustInt(64),
	}

	cfg.Log = Log{Level: file.Section("log").Key("level").MustString("info")}

	if err := r.err(); err != nil {
		return nil, err
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	h := c.Hydro
	switch {
	case h.Nx <= 0:
		return fmt.Errorf("config: hydro.Nx must be positive, got %d", h.Nx)
	case h.B <= h.A:
		return fmt.Errorf("config: hydro.B (%g) must be greater than hydro.A (%g)", h.B, h.A)
	case h.TimeStep <= 0:
		return fmt.Errorf("config: hydro.dt must be positive, got %g", h.TimeStep)
	case h.TotalTime < 0:
		return fmt.Errorf("config: hydro.T must not be negative, got %g", h.TotalTime)
	case c.Output.MaxFrameIndex <= 0 || c.Output.MaxFrameScalarIndex <= 0:
		return fmt.Errorf("config: output frame indices must be positive")
	}
	return nil
}

// reader 收集所有缺失或格式错误的键，最后一起报告
type reader struct {
	file    *ini.File
	missing []string
	invalid []error
}

func (r *reader) key(section, name string) *ini.Key {
	s := r.file.Section(section)
	if !s.HasKey(name) {
		r.missing = append(r.missing, section+"."+name)
		return nil
	}
	return s.Key(name)
}

func (r *reader) getInt(section, name string) int {
	k := r.key(section, name)
	if k == nil {
		return 0
	}
	v, err := k.Int()
	if err != nil {
		r.invalid = append(r.invalid, fmt.Errorf("%s.%s: %w", section, name, err))
	}
	return v
}

func (r *reader) getFloat(section, name string) float64 {
	k := r.key(section, name)
	if k == nil {
		return 0
	}
	v, err := k.Float64()
	if err != nil {
		r.invalid = append(r.invalid, fmt.Errorf("%s.%s: %w", section, name, err))
	}
	return v
}

func (r *reader) getString(section, name string) string {
	k := r.key(section, name)
	if k == nil {
		return ""
	}
	return k.String()
}

func (r *reader) getVect(section, name string) float64 {
	k := r.key(section, name)
	if k == nil {
		return 0
	}
	vals, err := k.StrictFloat64s(",")
	if err != nil {
		r.invalid = append(r.invalid, fmt.Errorf("%s.%s: %w", section, name, err))
		return 0
	}
	v, err := GetVect[float64](vals)
	if err != nil {
		r.invalid = append(r.invalid, fmt.Errorf("%s.%s: %w", section, name, err))
	}
	return v
}

func (r *reader) err() error {
	if len(r.missing) > 0 {
		return fmt.Errorf("%w: %s", ErrMissingKey, strings.Join(r.missing, ", "))
	}
	if len(r.invalid) > 0 {
		return fmt.Errorf("config: invalid values: %w", errors.Join(r.invalid...))
	}
	return nil
}
