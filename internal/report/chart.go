package report

import (
	"errors"
	"fmt"
	"math"

	"github.com/vicanso/go-charts/v2"
	"gonum.org/v1/gonum/floats"

	"riskboard/internal/riskmetrics"
)

// RenderChart 绘制价格走势图（PNG）。
// 各资产按时间对齐，从全部资产都有报价的第一个时间点起以 100 为基准，缺失的报价留空。
func RenderChart(series []riskmetrics.PriceSeries) ([]byte, error) {
	values, labels, assets := normalizedLines(series)
	if len(values) == 0 {
		return nil, errors.New("report: 没有可绘制的价格数据")
	}

	splitNum := 6
	if len(labels) <= 30 {
		splitNum = len(labels) / 3
		if splitNum < 3 {
			splitNum = 3
		}
	}

	p, err := charts.LineRender(
		values,
		charts.TitleTextOptionFunc("Price Data (rebased to 100)"),
		charts.XAxisOptionFunc(charts.XAxisOption{
			Data:        labels,
			SplitNumber: splitNum,
			BoundaryGap: charts.FalseFlag(),
		}),
		charts.LegendLabelsOptionFunc(assets),
		charts.ThemeOptionFunc(charts.ThemeLight),
	)
	if err != nil {
		return nil, fmt.Errorf("report: 渲染图表失败: %w", err)
	}

	buf, err := p.Bytes()
	if err != nil {
		return nil, fmt.Errorf("report: 生成图表失败: %w", err)
	}
	return buf, nil
}

func normalizedLines(series []riskmetrics.PriceSeries) ([][]float64, []string, []string) {
	usable := make([]riskmetrics.PriceSeries, 0, len(series))
	for _, s := range series {
		if s.Len() < 2 || floats.Min(s.Prices()) <= 0 {
			continue
		}
		usable = append(usable, s)
	}
	if len(usable) == 0 {
		return nil, nil, nil
	}

	grid := alignSeries(usable)
	start := grid.firstComplete()
	bases := make([]float64, len(usable))
	if start >= 0 {
		copy(bases, grid.cells[start])
	} else {
		// 没有共同的时间点时，各资产以自身首个报价为基准。
		start = 0
		for col, s := range usable {
			bases[col] = s.Observations[0].Price
		}
	}

	rows := len(grid.times) - start
	values := make([][]float64, len(usable))
	for col := range usable {
		line := make([]float64, rows)
		for i := range line {
			v := grid.cells[start+i][col]
			if math.IsNaN(v) {
				line[i] = charts.GetNullValue()
				continue
			}
			line[i] = v / bases[col] * 100
		}
		values[col] = line
	}

	labels := make([]string, rows)
	for i := range labels {
		labels[i] = grid.label(start+i, "Jan 02", "01-02 15:04")
	}
	return values, labels, grid.assets
}
