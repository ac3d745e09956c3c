package riskmetrics

import (
	"fmt"
	"math"

	talib "github.com/markcheno/go-talib"
)

// LogReturns 计算相邻价格的对数收益 ln(p[i]/p[i-1])，长度为 len(prices)-1。
func LogReturns(prices []float64) ([]float64, error) {
	if len(prices) < 2 {
		return nil, fmt.Errorf("%w: 计算收益至少需要 2 个价格, 实际 %d", ErrInsufficientData, len(prices))
	}
	if err := checkPositive(prices); err != nil {
		return nil, err
	}

	// ROCR(1) 给出 p[i]/p[i-1]，首个元素没有前值，直接丢弃。
	ratios := talib.Rocr(prices, 1)
	logs := talib.Ln(ratios[1:])

	out := make([]float64, len(logs))
	copy(out, logs)
	return out, nil
}

func checkPositive(prices []float64) error {
	for i, p := range prices {
		if math.IsNaN(p) || math.IsInf(p, 0) {
			return fmt.Errorf("%w: 第 %d 个价格不是有限值", ErrDomain, i)
		}
		if p <= 0 {
			return fmt.Errorf("%w: 第 %d 个价格非正 (%g)", ErrDomain, i, p)
		}
	}
	return nil
}
