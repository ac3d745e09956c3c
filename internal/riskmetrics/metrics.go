package riskmetrics

import "fmt"

// Options 控制指标计算参数。
type Options struct {
	RiskFreeRate   float64 // 年化无风险利率
	PeriodsPerYear int     // 卡玛比率年化所用的每年期数
	Workers        int     // 批量计算并发数
}

// DefaultOptions 返回默认参数。
func DefaultOptions() Options {
	return Options{
		RiskFreeRate:   DefaultRiskFreeRate,
		PeriodsPerYear: TradingDaysPerYear,
		Workers:        4,
	}
}

func (o Options) normalize() Options {
	def := DefaultOptions()
	if o.PeriodsPerYear <= 0 {
		o.PeriodsPerYear = def.PeriodsPerYear
	}
	if o.Workers <= 0 {
		o.Workers = def.Workers
	}
	return o
}

// Metrics 为单个资产未经取整的指标结果。
type Metrics struct {
	Sharpe      Value
	Sortino     Value
	Calmar      Value
	MaxDrawdown float64
}

// Compute 依次计算夏普、索提诺、卡玛与最大回撤。
func Compute(series PriceSeries, opts Options) (Metrics, error) {
	opts = opts.normalize()
	prices := series.Prices()

	returns, err := LogReturns(prices)
	if err != nil {
		return Metrics{}, fmt.Errorf("%s: %w", series.Asset, err)
	}

	calmar, err := CalmarRatio(returns, prices, opts.PeriodsPerYear)
	if err != nil {
		return Metrics{}, fmt.Errorf("%s: %w", series.Asset, err)
	}

	mdd, err := MaxDrawdown(prices)
	if err != nil {
		return Metrics{}, fmt.Errorf("%s: %w", series.Asset, err)
	}

	return Metrics{
		Sharpe:      SharpeRatio(returns, opts.RiskFreeRate),
		Sortino:     SortinoRatio(returns, opts.RiskFreeRate),
		Calmar:      calmar,
		MaxDrawdown: mdd,
	}, nil
}
