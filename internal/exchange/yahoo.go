package exchange

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"riskboard/internal/config"
	"riskboard/internal/riskmetrics"
)

var defaultYahooBaseURLs = []string{
	"https://query1.finance.yahoo.com",
	"https://query2.finance.yahoo.com",
}

const yahooUserAgent = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.4 Safari/605.1.15"

// yahooChartResp 对应 Yahoo v8 chart 接口（只保留所需字段）。
type yahooChartResp struct {
	Chart struct {
		Result []struct {
			Meta struct {
				Symbol   string `json:"symbol"`
				Currency string `json:"currency"`
			} `json:"meta"`
			Timestamp  []int64 `json:"timestamp"`
			Indicators struct {
				Quote []struct {
					Close []*float64 `json:"close"`
				} `json:"quote"`
			} `json:"indicators"`
		} `json:"result"`
		Error *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"chart"`
}

// httpStatusError 表示非 200 响应。
type httpStatusError struct {
	Host   string
	Status int
	Body   string
}

func (e *httpStatusError) Error() string {
	return fmt.Sprintf("yahoo %s returned %d: %s", e.Host, e.Status, e.Body)
}

// YahooSource 通过 Yahoo Finance chart 接口获取日线收盘价。
type YahooSource struct {
	source   config.SourceConfig
	logger   *zap.Logger
	client   *http.Client
	baseURLs []string
	now      func() time.Time
	retry    retryPolicy
}

// YahooOption 定制 YahooSource。
type YahooOption func(*YahooSource)

// WithYahooBaseURLs 替换默认的 Yahoo 主机列表，按顺序回退。
func WithYahooBaseURLs(urls ...string) YahooOption {
	return func(s *YahooSource) {
		if len(urls) > 0 {
			s.baseURLs = urls
		}
	}
}

// WithHTTPClient 指定 HTTP 客户端。
func WithHTTPClient(client *http.Client) YahooOption {
	return func(s *YahooSource) {
		if client != nil {
			s.client = client
		}
	}
}

// WithClock 指定时间来源，便于测试回看窗口。
func WithClock(now func() time.Time) YahooOption {
	return func(s *YahooSource) {
		if now != nil {
			s.now = now
		}
	}
}

// NewYahooSource 创建 Yahoo 数据源。
func NewYahooSource(source config.SourceConfig, logger *zap.Logger, opts ...YahooOption) *YahooSource {
	if logger == nil {
		logger = zap.NewNop()
	}
	timeout := source.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}

	s := &YahooSource{
		source:   source,
		logger:   logger,
		client:   &http.Client{Timeout: timeout},
		baseURLs: defaultYahooBaseURLs,
		now:      func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(s)
	}
	s.retry = retryPolicy{cfg: source.Retry, logger: logger, classify: classifyYahooError}
	return s
}

// Name 返回数据源名称。
func (s *YahooSource) Name() string {
	return config.ProviderYahoo
}

// FetchSeries 获取最近 lookbackDays 天的日线收盘价。
func (s *YahooSource) FetchSeries(ctx context.Context, symbol string, lookbackDays int) (riskmetrics.PriceSeries, error) {
	if lookbackDays <= 0 {
		return riskmetrics.PriceSeries{}, fmt.Errorf("exchange: lookback_days 必须大于0")
	}

	end := s.now()
	start := end.AddDate(0, 0, -lookbackDays)

	var resp yahooChartResp
	err := s.retry.do(ctx, "yahoo_chart_"+symbol, func(ctx context.Context) error {
		var lastErr error
		for _, base := range s.baseURLs {
			chart, err := s.fetchChart(ctx, base, symbol, start, end)
			if err == nil {
				resp = chart
				return nil
			}
			lastErr = err
			if _, retry := classifyYahooError(err); !retry {
				return err
			}
		}
		return lastErr
	})
	if err != nil {
		return riskmetrics.PriceSeries{}, err
	}

	return chartToSeries(symbol, resp)
}

func (s *YahooSource) fetchChart(ctx context.Context, base, symbol string, start, end time.Time) (yahooChartResp, error) {
	query := url.Values{}
	query.Set("period1", fmt.Sprintf("%d", start.Unix()))
	query.Set("period2", fmt.Sprintf("%d", end.Unix()))
	query.Set("interval", "1d")
	query.Set("events", "div,splits")
	endpoint := fmt.Sprintf("%s/v8/finance/chart/%s?%s", strings.TrimRight(base, "/"), url.PathEscape(symbol), query.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return yahooChartResp{}, err
	}
	req.Header.Set("User-Agent", yahooUserAgent)
	req.Header.Set("Accept", "application/json")

	httpResp, err := s.client.Do(req)
	if err != nil {
		return yahooChartResp{}, err
	}
	defer httpResp.Body.Close()

	body, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return yahooChartResp{}, fmt.Errorf("读取 yahoo 响应失败: %w", err)
	}

	if httpResp.StatusCode != http.StatusOK {
		preview := string(body)
		if len(preview) > 120 {
			preview = preview[:120]
		}
		return yahooChartResp{}, &httpStatusError{Host: base, Status: httpResp.StatusCode, Body: preview}
	}

	var chart yahooChartResp
	if err := json.Unmarshal(body, &chart); err != nil {
		return yahooChartResp{}, fmt.Errorf("解析 yahoo 响应失败: %w", err)
	}
	return chart, nil
}

func chartToSeries(symbol string, resp yahooChartResp) (riskmetrics.PriceSeries, error) {
	if resp.Chart.Error != nil {
		return riskmetrics.PriceSeries{}, fmt.Errorf("%w: %s %s", ErrNoData, symbol, resp.Chart.Error.Description)
	}
	if len(resp.Chart.Result) == 0 || len(resp.Chart.Result[0].Indicators.Quote) == 0 {
		return riskmetrics.PriceSeries{}, fmt.Errorf("%w: %s", ErrNoData, symbol)
	}

	result := resp.Chart.Result[0]
	closes := result.Indicators.Quote[0].Close
	n := len(result.Timestamp)
	if len(closes) < n {
		n = len(closes)
	}

	obs := make([]riskmetrics.Observation, 0, n)
	for i := 0; i < n; i++ {
		if closes[i] == nil {
			continue
		}
		obs = append(obs, riskmetrics.Observation{
			Time:  time.Unix(result.Timestamp[i], 0).UTC(),
			Price: *closes[i],
		})
	}

	return buildSeries(symbol, obs)
}

func classifyYahooError(err error) (error, bool) {
	if err == nil {
		return nil, false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err, false
	}

	var statusErr *httpStatusError
	if errors.As(err, &statusErr) {
		switch {
		case statusErr.Status == http.StatusNotFound:
			return fmt.Errorf("%w: %v", ErrNoData, err), false
		case statusErr.Status == http.StatusTooManyRequests, statusErr.Status >= 500:
			return err, true
		default:
			return err, false
		}
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return err, true
	}

	return err, false
}
