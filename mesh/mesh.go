// Package mesh 一维均匀有限体积网格
//
// 单元 i 的左面为面 i，右面为面 i+1。面 0 和面 N 为边界面，各自缺少一侧相邻单元。
package mesh

import "fmt"

const (
	// 方向
	Left  = 0 // -x
	Right = 1 // +x
)

// IdxCell 单元编号，None 表示不存在
type IdxCell int

// IdxFace 面编号
type IdxFace int

const None = -1

func (c IdxCell) IsNone() bool { return c < 0 }

func (f IdxFace) IsNone() bool { return f < 0 }

// Rect 计算域 [A, B]
type Rect struct {
	A float64
	B float64
}

func (r Rect) Length() float64 { return r.B - r.A }

// Mesh 构造后不再修改
type Mesh struct {
	domain   Rect
	numCells int
	h        float64
	centers  []float64
	cells    []IdxCell
	faces    []IdxFace
}

// NewUniform 在 domain 上构造 numCells 个等距单元
func NewUniform(domain Rect, numCells int) (*Mesh, error) {
	if numCells <= 0 {
		return nil, fmt.Errorf("mesh: number of cells must be positive, got %d", numCells)
	}
	if domain.Length() <= 0 {
		return nil, fmt.Errorf("mesh: empty domain [%g, %g]", domain.A, domain.B)
	}
	m := &Mesh{
		domain:   domain,
		numCells: numCells,
		h:        domain.Length() / float64(numCells),
		centers:  make([]float64, numCells),
		cells:    make([]IdxCell, numCells),
		faces:    make([]IdxFace, numCells+1),
	}
	for i := 0; i < numCells; i++ {
		m.cells[i] = IdxCell(i)
		m.centers[i] = domain.A + (float64(i)+0.5)*m.h
	}
	for i := range m.faces {
		m.faces[i] = IdxFace(i)
	}
	return m, nil
}

func (m *Mesh) Domain() Rect { return m.domain }

func (m *Mesh) NumCells() int { return m.numCells }

func (m *Mesh) NumFaces() int { return m.numCells + 1 }

// Cells 按坐标升序
func (m *Mesh) Cells() []IdxCell { return m.cells }

// Faces 按坐标升序
func (m *Mesh) Faces() []IdxFace { return m.faces }

// Center 单元中心坐标
func (m *Mesh) Center(c IdxCell) float64 { return m.centers[c] }

// Volume 一维情况下即单元宽度 h
func (m *Mesh) Volume(IdxCell) float64 { return m.h }

// Step 网格步长
func (m *Mesh) Step() float64 { return m.h }

// NeighbourCell 面 f 在 side 一侧的单元，边界处返回 None
func (m *Mesh) NeighbourCell(f IdxFace, side int) IdxCell {
	c := int(f) - 1
	if side == Right {
		c = int(f)
	}
	if c < 0 || c >= m.numCells {
		return None
	}
	return IdxCell(c)
}

// NeighbourFace 单元 c 在 side 一侧的面
func (m *Mesh) NeighbourFace(c IdxCell, side int) IdxFace {
	if side == Right {
		return IdxFace(c + 1)
	}
	return IdxFace(c)
}

// AdjacentCell 单元 c 在 side 一侧的相邻单元，边界处返回 None
func (m *Mesh) AdjacentCell(c IdxCell, side int) IdxCell {
	return m.NeighbourCell(m.NeighbourFace(c, side), side)
}
