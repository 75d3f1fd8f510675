// Package mms 人造解收敛性检验
package mms

import (
	"errors"
	"fmt"
	"math"

	"heatstore/calculator"
)

var ErrUnknownSolution = errors.New("mms: unknown exact solution")

// Solution 人造精确解及与之匹配的源项
//
// 精确解 g 满足 u g' - alpha g'' = rhs，与时间无关。
type Solution struct {
	Name  string
	Exact calculator.FuncTX
	Rhs   calculator.FuncTX
}

// Solutions 支持的人造解
var Solutions = []string{"cos(kx)", "cos(kx^2)"}

// NewSolution 根据名字构造人造解，velocity 为流速，alpha 为导热系数，k 为波数
func NewSolution(name string, velocity, alpha, k float64) (Solution, error) {
	uf := velocity
	switch name {
	case "cos(kx)":
		return Solution{
			Name:  name,
			Exact: func(_, x float64) float64 { return math.Cos(x * k) },
			Rhs: func(_, x float64) float64 {
				return -uf*k*math.Sin(x*k) + alpha*k*k*math.Cos(x*k)
			},
		}, nil
	case "cos(kx^2)":
		return Solution{
			Name:  name,
			Exact: func(_, x float64) float64 { return math.Cos(x * x * k) },
			Rhs: func(_, x float64) float64 {
				return -uf*k*2*x*math.Sin(x*x*k) +
					alpha*(k*k*4*x*x*math.Cos(x*x*k)+k*2*math.Sin(x*x*k))
			},
		}, nil
	default:
		return Solution{}, fmt.Errorf("%w: %q", ErrUnknownSolution, name)
	}
}
