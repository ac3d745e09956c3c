package app

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"riskboard/internal/config"
	"riskboard/internal/exchange"
	"riskboard/internal/monitor"
	"riskboard/internal/report"
	"riskboard/internal/riskmetrics"
)

// ErrNoSeries 表示本轮没有任何资产成功获取到价格数据。
var ErrNoSeries = errors.New("没有可用的价格数据")

// Summarizer 根据结果表生成文字评述。
type Summarizer interface {
	Summarize(ctx context.Context, table riskmetrics.Table) (string, error)
}

// RunResult 为单轮计算的结果。
type RunResult struct {
	RunID         string
	Table         riskmetrics.Table
	FetchFailures []exchange.FetchFailure
	Summary       string
}

type pipeline struct {
	symbols      []string
	lookbackDays int
	reportCfg    config.ReportConfig

	sourceName string
	market     *exchange.MarketDataService
	engine     *riskmetrics.Engine
	monitor    *monitor.Service
	ai         Summarizer
	metrics    *runMetrics
	stdout     io.Writer
	logger     *zap.Logger

	mu     sync.RWMutex
	latest *monitor.ReportPayload
}

// Tick 执行一轮完整流程：获取行情、计算指标、输出报告并持久化。
func (p *pipeline) Tick(ctx context.Context) (result RunResult, err error) {
	result.RunID = monitor.NewRunID()
	logger := p.logger.With(zap.String("run_id", result.RunID))
	defer func() {
		p.metrics.observeRun(err, time.Now())
	}()

	fetched, err := p.market.FetchAll(ctx, p.symbols, p.lookbackDays)
	if err != nil {
		return result, fmt.Errorf("获取价格数据失败: %w", err)
	}
	result.FetchFailures = fetched.Failures
	p.metrics.observeFetch(p.sourceName, fetched.Failures)
	if p.monitor != nil {
		p.monitor.RecordFetchFailures(ctx, result.RunID, p.sourceName, fetched.Failures)
	}

	if len(fetched.Series) == 0 {
		p.recordError(ctx, result.RunID, "没有可用的价格数据", ErrNoSeries, map[string]any{"symbols": p.symbols})
		return result, ErrNoSeries
	}

	start := time.Now()
	table := p.engine.Evaluate(fetched.Series)
	p.metrics.observeTable(table, time.Since(start))
	result.Table = table

	logger.Info("风险指标计算完成",
		zap.Int("assets", len(table.Rows)),
		zap.Int("asset_failures", len(table.Failures)),
		zap.Int("fetch_failures", len(fetched.Failures)),
	)

	if p.ai != nil && len(table.Rows) > 0 {
		summary, aiErr := p.ai.Summarize(ctx, table)
		if aiErr != nil {
			logger.Warn("生成风险评述失败", zap.Error(aiErr))
			p.recordError(ctx, result.RunID, "生成风险评述失败", aiErr, nil)
		} else {
			result.Summary = summary
		}
	}

	var outErr error
	if err := p.writeReport(table, result.Summary); err != nil {
		outErr = multierr.Append(outErr, err)
	}
	if p.reportCfg.PricesCSV != "" {
		if err := writeFile(p.reportCfg.PricesCSV, func(w io.Writer) error {
			return report.WritePricesCSV(w, fetched.Series)
		}); err != nil {
			outErr = multierr.Append(outErr, fmt.Errorf("导出价格CSV失败: %w", err))
		}
	}
	if p.reportCfg.ChartPath != "" {
		if err := p.writeChart(fetched.Series); err != nil {
			outErr = multierr.Append(outErr, fmt.Errorf("生成价格图表失败: %w", err))
		}
	}
	if outErr != nil {
		p.recordError(ctx, result.RunID, "输出报告失败", outErr, nil)
	}

	payload := monitor.ReportPayload{
		Symbols: p.symbols,
		Table:   table,
		Summary: result.Summary,
	}
	if p.monitor != nil {
		p.monitor.RecordReport(ctx, result.RunID, p.symbols, table, result.Summary)
	}
	p.mu.Lock()
	p.latest = &payload
	p.mu.Unlock()

	return result, outErr
}

// Latest 返回内存中最近一次的结果表。
func (p *pipeline) Latest() (monitor.ReportPayload, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.latest == nil {
		return monitor.ReportPayload{}, false
	}
	return *p.latest, true
}

func (p *pipeline) writeReport(table riskmetrics.Table, summary string) error {
	render := func(w io.Writer) error {
		switch p.reportCfg.Format {
		case config.FormatCSV:
			return report.WriteCSV(w, table)
		case config.FormatJSON:
			return report.WriteJSON(w, table)
		default:
			if err := report.WriteTable(w, table); err != nil {
				return err
			}
			if summary != "" {
				_, err := fmt.Fprintf(w, "\nCommentary:\n%s\n", summary)
				return err
			}
			return nil
		}
	}

	if p.reportCfg.Output == "" {
		if err := render(p.stdout); err != nil {
			return fmt.Errorf("输出报告失败: %w", err)
		}
		return nil
	}
	if err := writeFile(p.reportCfg.Output, render); err != nil {
		return fmt.Errorf("写入报告文件失败: %w", err)
	}
	return nil
}

func (p *pipeline) writeChart(series []riskmetrics.PriceSeries) error {
	png, err := report.RenderChart(series)
	if err != nil {
		return err
	}
	return writeFile(p.reportCfg.ChartPath, func(w io.Writer) error {
		_, err := io.Copy(w, bytes.NewReader(png))
		return err
	})
}

func (p *pipeline) recordError(ctx context.Context, runID, msg string, err error, fields map[string]any) {
	if p.monitor == nil {
		return
	}
	p.monitor.RecordError(ctx, runID, msg, err, fields)
}

// writeFile 经由同目录临时文件重命名写入 path。
func writeFile(path string, render func(w io.Writer) error) (err error) {
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("创建目录 %q 失败: %w", dir, err)
		}
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*")
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = os.Remove(tmp.Name())
		}
	}()

	if err = render(tmp); err != nil {
		_ = tmp.Close()
		return err
	}
	if err = tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}
