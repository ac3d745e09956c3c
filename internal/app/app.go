package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"

	"riskboard/internal/ai"
	"riskboard/internal/config"
	"riskboard/internal/exchange"
	"riskboard/internal/monitor"
	"riskboard/internal/riskmetrics"
	"riskboard/internal/store"
)

// App 聚合核心依赖并驱动系统生命周期。
type App struct {
	cfg    *config.Config
	logger *zap.Logger
	store  *store.Store

	source     exchange.PriceSource
	summarizer Summarizer
	stdout     io.Writer
}

// Option 用于定制 App 的依赖。
type Option func(*App)

// WithPriceSource 替换默认的价格数据源。
func WithPriceSource(source exchange.PriceSource) Option {
	return func(a *App) {
		a.source = source
	}
}

// WithOutput 替换报告的默认输出位置（标准输出）。
func WithOutput(w io.Writer) Option {
	return func(a *App) {
		a.stdout = w
	}
}

// WithSummarizer 替换默认的评述生成器。
func WithSummarizer(s Summarizer) Option {
	return func(a *App) {
		a.summarizer = s
	}
}

// New 创建 App 实例，store 为 nil 时不保存运行记录。
func New(cfg *config.Config, logger *zap.Logger, store *store.Store, opts ...Option) *App {
	if logger == nil {
		logger = zap.NewNop()
	}
	a := &App{
		cfg:    cfg,
		logger: logger,
		store:  store,
		stdout: os.Stdout,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Run 立即执行一轮计算，随后按 scheduler.interval 重复，直到 ctx 结束。
// interval 为 0 时只执行一轮并返回该轮的错误。
func (a *App) Run(ctx context.Context) error {
	p, err := a.newPipeline()
	if err != nil {
		return err
	}

	a.logger.Info("风险看板已初始化",
		zap.String("environment", a.cfg.App.Environment),
		zap.String("source", p.sourceName),
		zap.Strings("symbols", p.symbols),
		zap.Duration("interval", a.cfg.Scheduler.Interval),
		zap.Float64("risk_free_rate", p.engine.Options().RiskFreeRate),
		zap.Int("periods_per_year", p.engine.Options().PeriodsPerYear),
		zap.Int("workers", p.engine.Options().Workers),
	)

	if a.cfg.Monitor.Port > 0 {
		if err := startMonitorServer(ctx, newMonitorHandler(p.monitor, p.Latest, p.metrics, a.logger), a.cfg.Monitor.Port, a.logger); err != nil {
			return err
		}
	}

	interval := a.cfg.Scheduler.Interval
	if _, err = p.Tick(ctx); err != nil {
		if interval <= 0 {
			return err
		}
		a.logger.Error("首次执行失败", zap.Error(err))
	}
	if interval <= 0 {
		return nil
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			if err := ctx.Err(); err != nil && !errors.Is(err, context.Canceled) {
				return fmt.Errorf("系统异常退出: %w", err)
			}
			a.logger.Info("系统收到退出信号，正在停止")
			return nil
		case <-ticker.C:
			if _, err := p.Tick(ctx); err != nil {
				a.logger.Error("执行调度失败", zap.Error(err))
			}
		}
	}
}

func (a *App) newPipeline() (*pipeline, error) {
	symbols := exchange.NormalizeSymbols(a.cfg.Source.Symbols)
	if len(symbols) == 0 {
		return nil, errors.New("未配置任何资产 (source.symbols)")
	}

	source := a.source
	if source == nil {
		var err error
		source, err = newPriceSource(a.cfg, a.logger)
		if err != nil {
			return nil, err
		}
	}

	p := &pipeline{
		symbols:      symbols,
		lookbackDays: a.cfg.Source.LookbackDays,
		reportCfg:    a.cfg.Report,
		sourceName:   source.Name(),
		market:       exchange.NewMarketDataService(source, a.cfg.Metrics.Workers, a.logger),
		engine: riskmetrics.NewEngine(riskmetrics.Options{
			RiskFreeRate:   a.cfg.Metrics.RiskFreeRate,
			PeriodsPerYear: a.cfg.Metrics.PeriodsPerYear,
			Workers:        a.cfg.Metrics.Workers,
		}, a.logger),
		metrics: newRunMetrics(),
		stdout:  a.stdout,
		logger:  a.logger,
	}
	p.reportCfg.Format = strings.ToLower(p.reportCfg.Format)

	if a.store != nil {
		svc, err := monitor.NewService(a.store, a.logger)
		if err != nil {
			return nil, fmt.Errorf("初始化监控服务失败: %w", err)
		}
		p.monitor = svc
	}

	switch {
	case a.summarizer != nil:
		p.ai = a.summarizer
	case a.cfg.OpenAI.Enabled:
		client, err := ai.NewClient(a.cfg.OpenAI, a.logger)
		if err != nil {
			return nil, fmt.Errorf("初始化AI客户端失败: %w", err)
		}
		p.ai = client
	}

	return p, nil
}

func newPriceSource(cfg *config.Config, logger *zap.Logger) (exchange.PriceSource, error) {
	switch strings.ToLower(cfg.Source.Provider) {
	case config.ProviderYahoo:
		return exchange.NewYahooSource(cfg.Source, logger), nil
	case config.ProviderCCXT:
		client, err := exchange.NewClient(cfg.Exchange, cfg.Source, logger)
		if err != nil {
			return nil, fmt.Errorf("初始化行情客户端失败: %w", err)
		}
		return client, nil
	default:
		return nil, fmt.Errorf("不支持的数据源: %q", cfg.Source.Provider)
	}
}
