package field

import "heatstore/mesh"

// Layer 时间层
type Layer int

const (
	TimePrev Layer = iota // 上一步
	TimeCurr              // 当前步
)

func (l Layer) String() string {
	switch l {
	case TimePrev:
		return "time_prev"
	case TimeCurr:
		return "time_curr"
	default:
		return "unknown"
	}
}

// Layers 双缓冲：每个显式步开始时交换 Prev 与 Curr，旧的 Curr 成为新的写入目标
type Layers struct {
	Prev Cell
	Curr Cell
}

func NewLayers(m *mesh.Mesh, v float64) *Layers {
	return &Layers{
		Prev: NewCell(m, v),
		Curr: NewCell(m, v),
	}
}

func (l *Layers) Get(layer Layer) Cell {
	switch layer {
	case TimePrev:
		return l.Prev
	case TimeCurr:
		return l.Curr
	default:
		panic("field: unknown layer " + layer.String())
	}
}

func (l *Layers) Swap() {
	l.Prev, l.Curr = l.Curr, l.Prev
}
