package field

import (
	"math"

	"gonum.org/v1/gonum/floats"

	"heatstore/mesh"
)

// Cell 每个单元一个标量
type Cell []float64

// Face 每个面一个标量
type Face []float64

// NewCell 按网格单元数分配，并初始化为 v
func NewCell(m *mesh.Mesh, v float64) Cell {
	c := make(Cell, m.NumCells())
	c.Fill(v)
	return c
}

// NewFace 按网格面数分配，并初始化为 v
func NewFace(m *mesh.Mesh, v float64) Face {
	f := make(Face, m.NumFaces())
	for i := range f {
		f[i] = v
	}
	return f
}

// Evaluate 在单元中心处计算 fn(t, x)
func Evaluate(m *mesh.Mesh, t float64, fn func(t, x float64) float64) Cell {
	res := make(Cell, m.NumCells())
	for _, c := range m.Cells() {
		res[c] = fn(t, m.Center(c))
	}
	return res
}

func (c Cell) Fill(v float64) {
	for i := range c {
		c[i] = v
	}
}

func (c Cell) Clone() Cell {
	res := make(Cell, len(c))
	copy(res, c)
	return res
}

// CalcDiff 两个场的最大差值（无穷范数）
func CalcDiff(a, b Cell) float64 {
	if len(a) != len(b) {
		panic("field: CalcDiff on fields of different size")
	}
	if len(a) == 0 {
		return 0
	}
	return floats.Distance(a, b, math.Inf(1))
}

// Norm 场的 L_p 范数，按单元体积 h 加权
func Norm(c Cell, h float64, p float64) float64 {
	if math.IsInf(p, 1) {
		return floats.Norm(c, p)
	}
	return floats.Norm(c, p) * math.Pow(h, 1/p)
}
