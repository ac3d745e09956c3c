package riskmetrics

import (
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// TradingDaysPerYear 为日频数据每年的交易日数。
const TradingDaysPerYear = 252

// DefaultRiskFreeRate 为默认年化无风险利率。
const DefaultRiskFreeRate = 0.02

// PerPeriodRate 将年化无风险利率换算为单期利率。
func PerPeriodRate(riskFreeRate float64) float64 {
	return riskFreeRate / TradingDaysPerYear
}

// popMeanStd 返回总体均值与总体标准差（除以 N）。
// 常数序列的标准差按 0 处理，避免浮点累加误差产生极小的非零值。
func popMeanStd(x []float64) (mean, std float64) {
	mean, std = stat.PopMeanStdDev(x, nil)
	if isConstant(x) {
		std = 0
	}
	return mean, std
}

func isConstant(x []float64) bool {
	if len(x) == 0 {
		return true
	}
	return floats.Max(x) == floats.Min(x)
}

func excess(x []float64, rate float64) []float64 {
	out := make([]float64, len(x))
	copy(out, x)
	floats.AddConst(-rate, out)
	return out
}
