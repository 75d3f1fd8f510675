package calculator

import (
	"context"

	"heatstore/field"
	"heatstore/mesh"
	"heatstore/output"
)

// Params 求解器物理参数
type Params struct {
	TimeStep          float64
	FluidVelocity     float64 // 流体速度，假定非负
	ConductivityFluid float64
	ConductivitySolid float64
	TemperatureHot    float64 // 左端入口温度
	TemperatureCold   float64 // 初始温度
	ExchangeFluid     float64 // 流固换热系数，目前不参与计算
	ExchangeSolid     float64
}

// HeatStorage 一维流体+固体两相蓄热求解器
//
// 流体：一阶迎风对流 + 二阶中心差分扩散；固体：仅扩散，两端绝热。
// 时间上为显式欧拉，dt 的稳定性由调用方保证。
type HeatStorage struct {
	mesh *mesh.Mesh
	p    Params

	fluid *field.Layers
	solid *field.Layers

	// 源项，可以为 nil
	rhsFluid *field.Cell
	rhsSolid *field.Cell

	// 面通量，复用避免每步分配
	fluxFluid field.Face
	fluxSolid field.Face

	t     float64
	steps int
}

// NewHeatStorage 两个温度场的两层都初始化为冷端温度
func NewHeatStorage(m *mesh.Mesh, p Params, rhsFluid, rhsSolid *field.Cell) *HeatStorage {
	if rhsFluid != nil && len(*rhsFluid) != m.NumCells() {
		panic("calculator: fluid source does not match mesh")
	}
	if rhsSolid != nil && len(*rhsSolid) != m.NumCells() {
		panic("calculator: solid source does not match mesh")
	}
	return &HeatStorage{
		mesh:      m,
		p:         p,
		fluid:     field.NewLayers(m, p.TemperatureCold),
		solid:     field.NewLayers(m, p.TemperatureCold),
		rhsFluid:  rhsFluid,
		rhsSolid:  rhsSolid,
		fluxFluid: field.NewFace(m, 0),
		fluxSolid: field.NewFace(m, 0),
	}
}

func (hs *HeatStorage) StartStep() {}

// CalcStep 方程 dT/dt + div(flux) = rhs
func (hs *HeatStorage) CalcStep() {
	hs.fluid.Swap()
	hs.solid.Swap()
	tf, tfNew := hs.fluid.Prev, hs.fluid.Curr
	ts, tsNew := hs.solid.Prev, hs.solid.Curr

	m := hs.mesh
	h := m.Volume(0) // 均匀网格
	dt := hs.p.TimeStep
	uf := hs.p.FluidVelocity
	alphaF := hs.p.ConductivityFluid
	alphaS := hs.p.ConductivitySolid
	tIn := hs.p.TemperatureHot

	for _, f := range m.Faces() {
		cm := m.NeighbourCell(f, mesh.Left)
		cp := m.NeighbourCell(f, mesh.Right)
		switch {
		case cm.IsNone(): // 左边界：入口温度
			hs.fluxFluid[f] = uf * tIn
			hs.fluxSolid[f] = 0
		case cp.IsNone(): // 右边界：零梯度出流
			hs.fluxFluid[f] = uf * tf[cm]
			hs.fluxSolid[f] = 0
		default:
			// 对流：一阶迎风；扩散：二阶中心
			hs.fluxFluid[f] = uf*tf[cm] - alphaF*(tf[cp]-tf[cm])/h
			hs.fluxSolid[f] = -alphaS * (ts[cp] - ts[cm]) / h
		}
	}

	for _, c := range m.Cells() {
		fm := m.NeighbourFace(c, mesh.Left)
		fp := m.NeighbourFace(c, mesh.Right)
		tfNew[c] = tf[c] - dt/h*(hs.fluxFluid[fp]-hs.fluxFluid[fm])
		tsNew[c] = ts[c] - dt/h*(hs.fluxSolid[fp]-hs.fluxSolid[fm])
	}

	if hs.rhsFluid != nil {
		rhs := *hs.rhsFluid
		for _, c := range m.Cells() {
			tfNew[c] += dt * rhs[c]
		}
	}
	if hs.rhsSolid != nil {
		rhs := *hs.rhsSolid
		for _, c := range m.Cells() {
			tsNew[c] += dt * rhs[c]
		}
	}

	// TODO: implicit fluid-solid heat exchange using ExchangeFluid/ExchangeSolid
}

func (hs *HeatStorage) FinishStep() {
	hs.t += hs.p.TimeStep
	hs.steps++
}

func (hs *HeatStorage) Time() float64 { return hs.t }

func (hs *HeatStorage) TimeStep() float64 { return hs.p.TimeStep }

func (hs *HeatStorage) Steps() int { return hs.steps }

func (hs *HeatStorage) Mesh() *mesh.Mesh { return hs.mesh }

func (hs *HeatStorage) Params() Params { return hs.p }

func (hs *HeatStorage) FluidTemperature(layer field.Layer) field.Cell { return hs.fluid.Get(layer) }

func (hs *HeatStorage) SolidTemperature(layer field.Layer) field.Cell { return hs.solid.Get(layer) }

// Fluid 当前层流体温度
func (hs *HeatStorage) Fluid() field.Cell { return hs.fluid.Curr }

// Solid 当前层固体温度
func (hs *HeatStorage) Solid() field.Cell { return hs.solid.Curr }

// FaceFluxes 最近一步的面通量，只读
func (hs *HeatStorage) FaceFluxes() (fluid, solid field.Face) {
	return hs.fluxFluid, hs.fluxSolid
}

// WriteField 以 x u 两列写出场 u
func (hs *HeatStorage) WriteField(ctx context.Context, sink output.Sink, u field.Cell, name string) error {
	content := []output.EntryField{
		{Name: "x", Fn: func(c mesh.IdxCell) float64 { return hs.mesh.Center(c) }},
		{Name: "u", Fn: func(c mesh.IdxCell) float64 { return u[c] }},
	}
	session, err := output.NewSessionPlain(ctx, sink, name, content, hs.mesh)
	if err != nil {
		return err
	}
	if err := session.Write(0, "field"); err != nil {
		_ = session.Close()
		return err
	}
	return session.Close()
}
