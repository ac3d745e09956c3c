package exchange

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strconv"
	"strings"
	"sync"
	"time"

	ccxt "github.com/ccxt/ccxt/go/v4"
	"go.uber.org/zap"

	"riskboard/internal/config"
	"riskboard/internal/riskmetrics"
)

// Client 通过 ccxt 获取交易所K线，并实现重试机制。
type Client struct {
	source   config.SourceConfig
	logger   *zap.Logger
	exchange *ccxt.Binanceusdm
	retry    retryPolicy

	marketsMu     sync.Mutex
	marketsLoaded bool
}

// NewClient 构造 Binance USDⓈ-M 行情客户端。
func NewClient(cfg config.ExchangeConfig, source config.SourceConfig, logger *zap.Logger) (*Client, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if name := strings.ToLower(cfg.Name); name != "" && name != "binanceusdm" {
		return nil, fmt.Errorf("exchange: 暂不支持交易所 %q", cfg.Name)
	}

	userConfig := map[string]interface{}{
		"enableRateLimit": true,
		"timeout":         source.Timeout.Milliseconds(),
		"options": map[string]interface{}{
			"adjustForTimeDifference": true,
			"defaultType":             "future",
		},
	}

	if cfg.APIKey != "" {
		userConfig["apiKey"] = cfg.APIKey
	}
	if cfg.APISecret != "" {
		userConfig["secret"] = cfg.APISecret
	}
	if cfg.APIPass != "" {
		userConfig["password"] = cfg.APIPass
	}

	ex := ccxt.NewBinanceusdm(userConfig)
	if cfg.UseSandbox {
		ex.SetSandboxMode(true)
	}

	c := &Client{
		source:   source,
		logger:   logger,
		exchange: ex,
	}
	c.retry = retryPolicy{cfg: source.Retry, logger: logger, classify: c.classifyError}
	return c, nil
}

// Name 返回数据源名称。
func (c *Client) Name() string {
	return config.ProviderCCXT
}

// FetchSeries 获取回看窗口内的K线并转换为收盘价序列。
func (c *Client) FetchSeries(ctx context.Context, symbol string, lookbackDays int) (riskmetrics.PriceSeries, error) {
	limit, err := candleLimit(c.source.Timeframe, lookbackDays)
	if err != nil {
		return riskmetrics.PriceSeries{}, err
	}

	candles, err := c.FetchCandles(ctx, symbol, c.source.Timeframe, limit)
	if err != nil {
		return riskmetrics.PriceSeries{}, err
	}
	return CandlesToSeries(symbol, candles)
}

// FetchCandles 获取指定周期的K线数据。
func (c *Client) FetchCandles(ctx context.Context, symbol, timeframe string, limit int64) ([]Candle, error) {
	if limit <= 0 {
		limit = 1
	}

	var raw []ccxt.OHLCV

	err := c.retry.do(ctx, fmt.Sprintf("fetch_ohlcv_%s_%s", symbol, timeframe), func(ctx context.Context) error {
		if err := c.ensureMarketsLoaded(ctx); err != nil {
			return err
		}

		result, err := c.exchange.FetchOHLCV(
			symbol,
			ccxt.WithFetchOHLCVTimeframe(timeframe),
			ccxt.WithFetchOHLCVLimit(limit),
		)
		if err != nil {
			return err
		}

		raw = result
		return nil
	})
	if err != nil {
		return nil, err
	}

	candles := make([]Candle, 0, len(raw))
	for _, item := range raw {
		candles = append(candles, Candle{
			Timestamp: time.UnixMilli(item.Timestamp).UTC(),
			Open:      item.Open,
			High:      item.High,
			Low:       item.Low,
			Close:     item.Close,
			Volume:    item.Volume,
		})
	}

	return candles, nil
}

func (c *Client) ensureMarketsLoaded(ctx context.Context) error {
	c.marketsMu.Lock()
	defer c.marketsMu.Unlock()

	if c.marketsLoaded {
		return nil
	}

	if _, err := c.exchange.LoadMarkets(); err != nil {
		return err
	}

	c.marketsLoaded = true
	c.logger.Info("已完成市场元数据加载", zap.String("exchange", c.Name()))
	return nil
}

func (c *Client) classifyError(err error) (error, bool) {
	if err == nil {
		return nil, false
	}

	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err, false
	}

	var ccxtErr *ccxt.Error
	if errors.As(err, &ccxtErr) {
		if ccxtErr.Type == ccxt.OnMaintenanceErrType {
			message := strings.TrimSpace(ccxtErr.Message)
			if message == "" {
				message = "exchange under maintenance"
			}
			return fmt.Errorf("%w: %s", ErrMaintenance, message), false
		}
		return err, IsRetryable(err)
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return err, true
	}

	return err, false
}

// candleLimit 将回看天数换算为指定周期的K线数量。
func candleLimit(timeframe string, lookbackDays int) (int64, error) {
	if lookbackDays <= 0 {
		return 0, fmt.Errorf("exchange: lookback_days 必须大于0")
	}
	step, err := timeframeDuration(timeframe)
	if err != nil {
		return 0, err
	}
	window := time.Duration(lookbackDays) * 24 * time.Hour
	limit := int64(window / step)
	if limit < 1 {
		limit = 1
	}
	// 首根K线仅作为收益计算的基准价。
	return limit + 1, nil
}

func timeframeDuration(timeframe string) (time.Duration, error) {
	if len(timeframe) < 2 {
		return 0, fmt.Errorf("exchange: 无效的周期 %q", timeframe)
	}
	n, err := strconv.Atoi(timeframe[:len(timeframe)-1])
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("exchange: 无效的周期 %q", timeframe)
	}
	unit := time.Duration(n)
	switch timeframe[len(timeframe)-1] {
	case 'm':
		return unit * time.Minute, nil
	case 'h':
		return unit * time.Hour, nil
	case 'd':
		return unit * 24 * time.Hour, nil
	case 'w':
		return unit * 7 * 24 * time.Hour, nil
	default:
		return 0, fmt.Errorf("exchange: 不支持的周期单位 %q", timeframe)
	}
}
