package exchange

import (
	"context"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"riskboard/internal/riskmetrics"
)

const defaultFetchConcurrency = 4

// MarketDataService 并发获取多个资产的价格序列。
type MarketDataService struct {
	source      PriceSource
	logger      *zap.Logger
	concurrency int
}

// NewMarketDataService 创建市场数据服务。
func NewMarketDataService(source PriceSource, concurrency int, logger *zap.Logger) *MarketDataService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if concurrency <= 0 {
		concurrency = defaultFetchConcurrency
	}
	return &MarketDataService{
		source:      source,
		logger:      logger,
		concurrency: concurrency,
	}
}

// FetchAll 获取全部资产的价格序列。
// 单个资产失败只记录到 Failures，其余资产继续获取；结果保持输入顺序。
func (s *MarketDataService) FetchAll(ctx context.Context, symbols []string, lookbackDays int) (FetchResult, error) {
	symbols = NormalizeSymbols(symbols)
	series := make([]riskmetrics.PriceSeries, len(symbols))
	errs := make([]error, len(symbols))

	start := time.Now()
	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(s.concurrency)

	for i, symbol := range symbols {
		group.Go(func() error {
			data, err := s.source.FetchSeries(groupCtx, symbol, lookbackDays)
			if err != nil {
				errs[i] = err
				return nil
			}
			series[i] = data
			return nil
		})
	}

	_ = group.Wait()
	if err := ctx.Err(); err != nil {
		return FetchResult{}, err
	}

	result := FetchResult{Series: make([]riskmetrics.PriceSeries, 0, len(symbols))}
	for i, symbol := range symbols {
		if errs[i] != nil {
			s.logger.Warn("获取价格数据失败",
				zap.String("symbol", symbol),
				zap.String("source", s.source.Name()),
				zap.Error(errs[i]),
			)
			result.Failures = append(result.Failures, FetchFailure{
				Symbol: symbol,
				Reason: errs[i].Error(),
				Err:    errs[i],
			})
			continue
		}
		result.Series = append(result.Series, series[i])
	}

	s.logger.Debug("价格数据获取完成",
		zap.String("source", s.source.Name()),
		zap.Int("requested", len(symbols)),
		zap.Int("fetched", len(result.Series)),
		zap.Int("failed", len(result.Failures)),
		zap.Duration("latency", time.Since(start)),
	)

	return result, nil
}
