package report

import (
	"math"
	"sort"
	"time"

	"riskboard/internal/riskmetrics"
)

// priceGrid 将多个资产按时间外连接，缺失的报价为 NaN。
type priceGrid struct {
	times    []time.Time
	assets   []string
	cells    [][]float64 // [行][资产]
	intraday bool
}

// alignSeries 按时间对齐多个价格序列。
// 若任一资产在同一 UTC 日内有多个观测，则按完整时间戳对齐，否则按 UTC 日期对齐。
func alignSeries(series []riskmetrics.PriceSeries) priceGrid {
	grid := priceGrid{
		assets:   make([]string, len(series)),
		intraday: hasIntraday(series),
	}

	keyOf := func(t time.Time) time.Time {
		t = t.UTC()
		if grid.intraday {
			return t
		}
		return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	}

	rows := make(map[int64][]float64)
	for col, s := range series {
		grid.assets[col] = s.Asset
		for i, t := range s.Times() {
			key := keyOf(t).UnixNano()
			cells, ok := rows[key]
			if !ok {
				cells = make([]float64, len(series))
				for j := range cells {
					cells[j] = math.NaN()
				}
				rows[key] = cells
			}
			cells[col] = s.Observations[i].Price
		}
	}

	keys := make([]int64, 0, len(rows))
	for k := range rows {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })

	grid.times = make([]time.Time, len(keys))
	grid.cells = make([][]float64, len(keys))
	for i, k := range keys {
		grid.times[i] = time.Unix(0, k).UTC()
		grid.cells[i] = rows[k]
	}
	return grid
}

func hasIntraday(series []riskmetrics.PriceSeries) bool {
	for _, s := range series {
		times := s.Times()
		for i := 1; i < len(times); i++ {
			py, pm, pd := times[i-1].UTC().Date()
			y, m, d := times[i].UTC().Date()
			if py == y && pm == m && pd == d {
				return true
			}
		}
	}
	return false
}

// label 返回第 i 行的时间标签，layout 按对齐粒度选择。
func (g priceGrid) label(i int, dailyLayout, intradayLayout string) string {
	if g.intraday {
		return g.times[i].Format(intradayLayout)
	}
	return g.times[i].Format(dailyLayout)
}

// firstComplete 返回所有资产都有报价的第一行，不存在时返回 -1。
func (g priceGrid) firstComplete() int {
	for i, row := range g.cells {
		complete := true
		for _, v := range row {
			if math.IsNaN(v) {
				complete = false
				break
			}
		}
		if complete {
			return i
		}
	}
	return -1
}
