package report

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"text/tabwriter"

	"riskboard/internal/riskmetrics"
)

// WriteTable 以对齐文本表输出指标，不可用的值显示为 N/A，失败资产列在表后。
func WriteTable(w io.Writer, table riskmetrics.Table) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', tabwriter.AlignRight)

	for i, col := range riskmetrics.Columns {
		if i > 0 {
			fmt.Fprint(tw, "\t")
		}
		fmt.Fprint(tw, col)
	}
	fmt.Fprintln(tw, "\t")

	for _, row := range table.Rows {
		fields := rowFields(row)
		for i, f := range fields {
			if i > 0 {
				fmt.Fprint(tw, "\t")
			}
			fmt.Fprint(tw, f)
		}
		fmt.Fprintln(tw, "\t")
	}

	if err := tw.Flush(); err != nil {
		return fmt.Errorf("report: 输出表格失败: %w", err)
	}

	if len(table.Failures) > 0 {
		fmt.Fprintln(w)
		fmt.Fprintln(w, "Skipped assets:")
		for _, f := range table.Failures {
			if _, err := fmt.Fprintf(w, "  %s: %s\n", f.Asset, f.Reason); err != nil {
				return fmt.Errorf("report: 输出失败资产失败: %w", err)
			}
		}
	}
	return nil
}

// WriteJSON 以 JSON 输出整张结果表。
func WriteJSON(w io.Writer, table riskmetrics.Table) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(table); err != nil {
		return fmt.Errorf("report: 序列化结果表失败: %w", err)
	}
	return nil
}

func rowFields(row riskmetrics.Row) []string {
	return []string{
		row.Asset,
		formatValue(row.Sharpe),
		formatValue(row.Sortino),
		formatValue(row.Calmar),
		formatFloat(row.MaxDrawdownPct),
	}
}

func formatValue(v riskmetrics.Value) string {
	f, ok := v.Float64()
	if !ok {
		return "N/A"
	}
	return formatFloat(f)
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', riskmetrics.DisplayPlaces, 64)
}
