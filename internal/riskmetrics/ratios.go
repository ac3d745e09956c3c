package riskmetrics

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/stat"
)

// SharpeRatio 计算单期（未年化）夏普比率：mean(excess)/std(excess)，std 为总体标准差。
// 超额收益方差为 0 或序列为空时返回 Undefined。
func SharpeRatio(returns []float64, riskFreeRate float64) Value {
	if len(returns) == 0 {
		return Undefined()
	}

	mean, std := popMeanStd(excess(returns, PerPeriodRate(riskFreeRate)))
	if std == 0 {
		return Undefined()
	}
	return Defined(mean / std)
}

// SortinoRatio 计算索提诺比率。
// 分子为全部收益的平均超额收益，分母只取严格为负的收益的总体标准差。
func SortinoRatio(returns []float64, riskFreeRate float64) Value {
	downside := make([]float64, 0, len(returns))
	for _, r := range returns {
		if r < 0 {
			downside = append(downside, r)
		}
	}
	if len(downside) == 0 {
		return Undefined()
	}

	_, downStd := popMeanStd(downside)
	if downStd == 0 {
		return Undefined()
	}

	mean := stat.Mean(excess(returns, PerPeriodRate(riskFreeRate)), nil)
	return Defined(mean / downStd)
}

// CalmarRatio 计算卡玛比率：mean(returns)*periodsPerYear / |MaxDrawdown(prices)|。
// returns 必须由 prices 推导而来；回撤为 0 时返回 Undefined。
func CalmarRatio(returns, prices []float64, periodsPerYear int) (Value, error) {
	if periodsPerYear <= 0 {
		return Undefined(), fmt.Errorf("%w: periodsPerYear 必须大于0, 实际 %d", ErrDomain, periodsPerYear)
	}

	mdd, err := MaxDrawdown(prices)
	if err != nil {
		return Undefined(), err
	}
	if len(returns) != len(prices)-1 {
		return Undefined(), fmt.Errorf("%w: 收益长度 %d 与价格长度 %d 不一致", ErrDomain, len(returns), len(prices))
	}
	if len(returns) == 0 || mdd == 0 {
		return Undefined(), nil
	}

	annualized := stat.Mean(returns, nil) * float64(periodsPerYear)
	return Defined(annualized / math.Abs(mdd)), nil
}
