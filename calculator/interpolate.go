package calculator

import (
	"heatstore/field"
	"heatstore/mesh"
)

// Interpolate 在 [xl, xr] 上对 x 做线性插值
func Interpolate(x, xl, xr, ul, ur float64) float64 {
	return ((x-xl)*ur + (xr-x)*ul) / (xr - xl)
}

// InterpolateField 把一维网格 meshSrc 上的场线性插值到 meshDst 的单元中心
//
// 目标单元按坐标升序处理，源网格上的左右夹点只向右移动，整体 O(N)。
// 夹点退化为同一个单元时（目标点在第一个源单元中心左侧，或在最后一个源单元中心右侧）
// 取该单元的值，不做外推。
func InterpolateField(src field.Cell, meshSrc, meshDst *mesh.Mesh) field.Cell {
	res := make(field.Cell, meshDst.NumCells())
	left := mesh.IdxCell(0)
	right := left
	for _, c := range meshDst.Cells() {
		x := meshDst.Center(c)
		for meshSrc.Center(right) < x {
			next := meshSrc.AdjacentCell(right, mesh.Right)
			if next.IsNone() {
				left = right
				break
			}
			left = right
			right = next
		}
		if left == right {
			res[c] = src[right]
			continue
		}
		res[c] = Interpolate(x, meshSrc.Center(left), meshSrc.Center(right), src[left], src[right])
	}
	return res
}
