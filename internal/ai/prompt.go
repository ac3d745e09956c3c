package ai

import (
	"bytes"
	"fmt"
	"text/template"

	"riskboard/internal/riskmetrics"
)

const systemPrompt = `你是一名谨慎的投资组合风险分析师，只根据给定的指标做出判断，不给出买卖建议。`

const summaryTemplate = `
以下是 {{ len .Rows }} 个资产基于日线收盘价计算的风险指标（无风险利率 {{ printf "%.2f" .RiskFreeRatePct }}%，年化周期 {{ .PeriodsPerYear }}）。
夏普与索提诺比率为日频数值，未做年化；N/A 表示该指标在样本中不可计算。

| 资产 | 夏普 | 索提诺 | 卡玛 | 最大回撤(%) |
|------|------|--------|------|-------------|
{{- range .Rows }}
| {{ .Asset }} | {{ .Sharpe }} | {{ .Sortino }} | {{ .Calmar }} | {{ printf "%.2f" .MaxDrawdownPct }} |
{{- end }}
{{ if .Failures }}
以下资产因数据问题未能计算：
{{- range .Failures }}
- {{ .Asset }}: {{ .Kind }}
{{- end }}
{{ end }}
请用不超过 150 字总结：
1. 风险调整后收益最好与最差的资产；
2. 回撤最深的资产及其幅度；
3. 需要关注的异常（例如指标不可用）。
只输出纯文本，不要使用 Markdown 代码块。
`

var tmpl = template.Must(template.New("summary").Parse(summaryTemplate))

// PromptContext 用于渲染提示词。
type PromptContext struct {
	Rows            []riskmetrics.Row
	Failures        []riskmetrics.Failure
	RiskFreeRatePct float64
	PeriodsPerYear  int
}

// BuildPrompt 将结果表渲染成提示词字符串。
func BuildPrompt(table riskmetrics.Table) (string, error) {
	ctx := PromptContext{
		Rows:            table.Rows,
		Failures:        table.Failures,
		RiskFreeRatePct: table.RiskFreeRate * 100,
		PeriodsPerYear:  table.PeriodsPerYear,
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, ctx); err != nil {
		return "", fmt.Errorf("渲染提示词失败: %w", err)
	}

	return buf.String(), nil
}
