package riskmetrics

import (
	"fmt"
	"math"
	"strings"
	"time"
)

// Observation 是单个时间点的价格。
type Observation struct {
	Time  time.Time
	Price float64
}

// PriceSeries 是单个资产按时间升序排列的价格序列，构造后只读。
type PriceSeries struct {
	Asset        string
	Observations []Observation
}

// NewPriceSeries 校验并构造价格序列。
// 非正价格不在此处拒绝，而是由具体指标以 ErrDomain 报告。
func NewPriceSeries(asset string, obs []Observation) (PriceSeries, error) {
	asset = strings.TrimSpace(asset)
	if asset == "" {
		return PriceSeries{}, fmt.Errorf("%w: 资产标识不能为空", ErrDomain)
	}

	for i, o := range obs {
		if math.IsNaN(o.Price) || math.IsInf(o.Price, 0) {
			return PriceSeries{}, fmt.Errorf("%w: %s 第 %d 个价格不是有限值", ErrDomain, asset, i)
		}
		if i > 0 && !o.Time.After(obs[i-1].Time) {
			return PriceSeries{}, fmt.Errorf("%w: %s 时间戳未严格递增 (index %d)", ErrDomain, asset, i)
		}
	}

	copied := make([]Observation, len(obs))
	copy(copied, obs)
	return PriceSeries{Asset: asset, Observations: copied}, nil
}

// Len 返回观测数量。
func (s PriceSeries) Len() int {
	return len(s.Observations)
}

// Prices 返回价格切片的副本。
func (s PriceSeries) Prices() []float64 {
	out := make([]float64, len(s.Observations))
	for i, o := range s.Observations {
		out[i] = o.Price
	}
	return out
}

// Times 返回时间戳切片的副本。
func (s PriceSeries) Times() []time.Time {
	out := make([]time.Time, len(s.Observations))
	for i, o := range s.Observations {
		out[i] = o.Time
	}
	return out
}
