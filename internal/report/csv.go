package report

import (
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"strconv"
	"time"

	"riskboard/internal/riskmetrics"
)

// WriteCSV 以 CSV 输出结果表，不可用的值写为空字符串。
func WriteCSV(w io.Writer, table riskmetrics.Table) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(riskmetrics.Columns); err != nil {
		return fmt.Errorf("report: 写入 CSV 表头失败: %w", err)
	}
	for _, row := range table.Rows {
		record := rowFields(row)
		for i, f := range record {
			if f == "N/A" {
				record[i] = ""
			}
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("report: 写入 CSV 失败: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// WritePricesCSV 导出价格数据：首列为时间，其余每列对应一个资产，按时间外连接，缺失的报价为空。
// 日线数据按日期对齐；同一日内有多个观测时按完整时间戳（UTC）对齐。
func WritePricesCSV(w io.Writer, series []riskmetrics.PriceSeries) error {
	grid := alignSeries(series)

	cw := csv.NewWriter(w)
	header := make([]string, 0, len(series)+1)
	if grid.intraday {
		header = append(header, "Time")
	} else {
		header = append(header, "Date")
	}
	header = append(header, grid.assets...)
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("report: 写入价格表头失败: %w", err)
	}

	for i, row := range grid.cells {
		record := make([]string, 0, len(row)+1)
		record = append(record, grid.label(i, time.DateOnly, time.DateTime))
		for _, v := range row {
			if math.IsNaN(v) {
				record = append(record, "")
				continue
			}
			record = append(record, strconv.FormatFloat(v, 'f', -1, 64))
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("report: 写入价格数据失败: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}
