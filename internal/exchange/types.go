package exchange

import (
	"context"
	"fmt"
	"strings"
	"time"

	"riskboard/internal/riskmetrics"
)

// Candle 代表单根K线。
type Candle struct {
	Timestamp time.Time
	Open      float64
	High      float64
	Low       float64
	Close     float64
	Volume    float64
}

// PriceSource 按资产提供回看窗口内按时间升序排列的收盘价序列。
type PriceSource interface {
	Name() string
	FetchSeries(ctx context.Context, symbol string, lookbackDays int) (riskmetrics.PriceSeries, error)
}

// FetchFailure 记录获取失败的资产。
type FetchFailure struct {
	Symbol string `json:"symbol"`
	Reason string `json:"reason"`
	Err    error  `json:"-"`
}

// FetchResult 为一次批量获取的结果，Series 与输入顺序一致。
type FetchResult struct {
	Series   []riskmetrics.PriceSeries
	Failures []FetchFailure
}

// CandlesToSeries 使用K线收盘价构造价格序列。
func CandlesToSeries(symbol string, candles []Candle) (riskmetrics.PriceSeries, error) {
	obs := make([]riskmetrics.Observation, 0, len(candles))
	for _, c := range candles {
		obs = append(obs, riskmetrics.Observation{Time: c.Timestamp, Price: c.Close})
	}
	return buildSeries(symbol, obs)
}

// buildSeries 丢弃乱序观测，同一时间戳保留最新报价，然后构造序列。
func buildSeries(symbol string, obs []riskmetrics.Observation) (riskmetrics.PriceSeries, error) {
	if len(obs) == 0 {
		return riskmetrics.PriceSeries{}, fmt.Errorf("%w: %s", ErrNoData, symbol)
	}

	cleaned := make([]riskmetrics.Observation, 0, len(obs))
	for _, o := range obs {
		n := len(cleaned)
		switch {
		case n == 0 || o.Time.After(cleaned[n-1].Time):
			cleaned = append(cleaned, o)
		case o.Time.Equal(cleaned[n-1].Time):
			cleaned[n-1] = o
		}
	}

	return riskmetrics.NewPriceSeries(symbol, cleaned)
}

// NormalizeSymbols 去除空白并转为大写，丢弃空值与重复值，保持原有顺序。
func NormalizeSymbols(symbols []string) []string {
	seen := make(map[string]struct{}, len(symbols))
	out := make([]string, 0, len(symbols))
	for _, s := range symbols {
		s = strings.ToUpper(strings.TrimSpace(s))
		if s == "" {
			continue
		}
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}
