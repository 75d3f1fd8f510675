package config

import "fmt"

// Scalar 支持的浮点类型
type Scalar interface {
	~float32 | ~float64
}

// GetVect 从配置中的向量取一维坐标，按目标类型转换
func GetVect[T Scalar](v []float64) (T, error) {
	if len(v) == 0 {
		return 0, fmt.Errorf("config: empty vector")
	}
	return T(v[0]), nil
}
