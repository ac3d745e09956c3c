package riskmetrics

import (
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// DisplayPlaces 为结果表保留的小数位数。
const DisplayPlaces = 2

// Columns 为结果表的固定列顺序。
var Columns = []string{"Asset", "Sharpe Ratio", "Sortino Ratio", "Calmar Ratio", "Max Drawdown (%)"}

// Row 为结果表中单个资产的一行，数值已取整，最大回撤以百分比表示。
// 取整按十进制表示远离零舍入（0.125 → 0.13，1.005 → 1.01），
// 而不是对二进制值做银行家舍入（后者得到 0.12 与 1.0）。
type Row struct {
	Asset          string  `json:"asset"`
	Sharpe         Value   `json:"sharpe_ratio"`
	Sortino        Value   `json:"sortino_ratio"`
	Calmar         Value   `json:"calmar_ratio"`
	MaxDrawdownPct float64 `json:"max_drawdown_pct"`
}

// NewRow 将原始指标转换为展示行。
func NewRow(asset string, m Metrics) Row {
	return Row{
		Asset:          asset,
		Sharpe:         m.Sharpe.Round(DisplayPlaces),
		Sortino:        m.Sortino.Round(DisplayPlaces),
		Calmar:         m.Calmar.Round(DisplayPlaces),
		MaxDrawdownPct: roundFloat(m.MaxDrawdown*100, DisplayPlaces),
	}
}

// Failure 记录未能计算的资产，它们不会出现在 Rows 中。
type Failure struct {
	Asset  string `json:"asset"`
	Kind   string `json:"kind"`
	Reason string `json:"reason"`
	Err    error  `json:"-"`
}

// Table 汇总一次批量计算的结果。
type Table struct {
	GeneratedAt    time.Time `json:"generated_at"`
	RiskFreeRate   float64   `json:"risk_free_rate"`
	PeriodsPerYear int       `json:"periods_per_year"`
	Rows           []Row     `json:"rows"`
	Failures       []Failure `json:"failures,omitempty"`
}

// Engine 批量计算多个资产的风险指标。
type Engine struct {
	opts   Options
	logger *zap.Logger
	now    func() time.Time
}

// NewEngine 创建 Engine。
func NewEngine(opts Options, logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{
		opts:   opts.normalize(),
		logger: logger,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// Options 返回生效的计算参数。
func (e *Engine) Options() Options {
	return e.opts
}

type outcome struct {
	row Row
	err error
}

// Evaluate 独立计算每个资产的指标并按输入顺序组装结果表。
// 单个资产失败只记录在 Failures 中，不影响其他资产。
func (e *Engine) Evaluate(assets []PriceSeries) Table {
	outcomes := make([]outcome, len(assets))

	seen := make(map[string]struct{}, len(assets))
	skip := make([]bool, len(assets))
	for i, s := range assets {
		if _, ok := seen[s.Asset]; ok {
			outcomes[i].err = fmt.Errorf("%w: %s", ErrDuplicateAsset, s.Asset)
			skip[i] = true
			continue
		}
		seen[s.Asset] = struct{}{}
	}

	var group errgroup.Group
	group.SetLimit(e.opts.Workers)
	for i := range assets {
		if skip[i] {
			continue
		}
		series := assets[i]
		idx := i
		group.Go(func() error {
			m, err := Compute(series, e.opts)
			if err != nil {
				outcomes[idx].err = err
				return nil
			}
			outcomes[idx].row = NewRow(series.Asset, m)
			return nil
		})
	}
	_ = group.Wait()

	table := Table{
		GeneratedAt:    e.now(),
		RiskFreeRate:   e.opts.RiskFreeRate,
		PeriodsPerYear: e.opts.PeriodsPerYear,
		Rows:           make([]Row, 0, len(assets)),
	}
	for i, out := range outcomes {
		if out.err != nil {
			e.logger.Warn("资产指标计算失败",
				zap.String("asset", assets[i].Asset),
				zap.String("kind", Kind(out.err)),
				zap.Error(out.err),
			)
			table.Failures = append(table.Failures, Failure{
				Asset:  assets[i].Asset,
				Kind:   Kind(out.err),
				Reason: out.err.Error(),
				Err:    out.err,
			})
			continue
		}
		table.Rows = append(table.Rows, out.row)
	}

	e.logger.Debug("风险指标计算完成",
		zap.Int("assets", len(assets)),
		zap.Int("rows", len(table.Rows)),
		zap.Int("failures", len(table.Failures)),
	)

	return table
}
