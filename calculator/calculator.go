package calculator

import (
	"heatstore/field"
	"heatstore/mesh"
)

// UnsteadySolver 显式时间推进的求解器
//
// 每一步按 StartStep -> CalcStep -> FinishStep 的顺序调用，
// 调用顺序由调用方保证，求解器本身不做检查。
type UnsteadySolver interface {
	StartStep()
	CalcStep()
	FinishStep()

	Time() float64
	TimeStep() float64
	Steps() int
}

// FuncTX 与时间和坐标有关的标量函数
type FuncTX func(t, x float64) float64

// Evaluate 在网格单元中心处计算 fn
func Evaluate(fn FuncTX, t float64, m *mesh.Mesh) field.Cell {
	return field.Evaluate(m, t, fn)
}

var _ UnsteadySolver = (*HeatStorage)(nil)
