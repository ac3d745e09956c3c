package riskmetrics

import (
	"fmt"

	"gonum.org/v1/gonum/floats"
)

// RunningPeak 返回累计最高价序列。
func RunningPeak(prices []float64) []float64 {
	peaks := make([]float64, len(prices))
	for i, p := range prices {
		if i == 0 || p > peaks[i-1] {
			peaks[i] = p
			continue
		}
		peaks[i] = peaks[i-1]
	}
	return peaks
}

// Drawdowns 返回相对累计高点的回撤序列，每个元素都不大于 0。
func Drawdowns(prices []float64) ([]float64, error) {
	if len(prices) == 0 {
		return nil, fmt.Errorf("%w: 价格序列为空", ErrInsufficientData)
	}
	if err := checkPositive(prices); err != nil {
		return nil, err
	}

	peaks := RunningPeak(prices)
	dd := make([]float64, len(prices))
	for i, p := range prices {
		dd[i] = (p - peaks[i]) / peaks[i]
	}
	return dd, nil
}

// MaxDrawdown 返回最深回撤（负的比例，例如 -0.23 表示自高点下跌 23%）。
// 单个价格的回撤为 0。
func MaxDrawdown(prices []float64) (float64, error) {
	dd, err := Drawdowns(prices)
	if err != nil {
		return 0, err
	}
	return floats.Min(dd), nil
}
