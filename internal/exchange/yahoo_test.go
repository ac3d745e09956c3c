package exchange

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"riskboard/internal/config"
)

func testSourceConfig() config.SourceConfig {
	return config.SourceConfig{
		Provider:     config.ProviderYahoo,
		LookbackDays: 365,
		Timeframe:    "1d",
		Timeout:      2 * time.Second,
		Retry: config.RetryConfig{
			MaxAttempts: 3,
			MinDelay:    time.Millisecond,
			MaxDelay:    5 * time.Millisecond,
		},
	}
}

const chartBody = `{"chart":{"result":[{"meta":{"symbol":"AAPL","currency":"USD"},
"timestamp":[1704205800,1704292200,1704378600,1704378600,1704465000],
"indicators":{"quote":[{"close":[185.64,null,181.91,182.1,181.18]}]}}],"error":null}}`

func TestYahooSource_FetchSeries(t *testing.T) {
	var gotQuery string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/v8/finance/chart/AAPL") {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		gotQuery = r.URL.RawQuery
		fmt.Fprint(w, chartBody)
	}))
	defer srv.Close()

	now := time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC)
	src := NewYahooSource(testSourceConfig(), nil,
		WithYahooBaseURLs(srv.URL),
		WithHTTPClient(srv.Client()),
		WithClock(func() time.Time { return now }),
	)

	series, err := src.FetchSeries(context.Background(), "AAPL", 30)
	if err != nil {
		t.Fatalf("FetchSeries returned error: %v", err)
	}

	prices := series.Prices()
	want := []float64{185.64, 182.1, 181.18}
	if len(prices) != len(want) {
		t.Fatalf("unexpected prices %v", prices)
	}
	for i := range want {
		if prices[i] != want[i] {
			t.Errorf("price %d: got %v want %v", i, prices[i], want[i])
		}
	}
	if !strings.Contains(gotQuery, "interval=1d") {
		t.Errorf("expected daily interval, got %s", gotQuery)
	}
	if !strings.Contains(gotQuery, fmt.Sprintf("period1=%d", now.AddDate(0, 0, -30).Unix())) {
		t.Errorf("unexpected lookback window %s", gotQuery)
	}
}

func TestYahooSource_RetriesAndFallsBack(t *testing.T) {
	var primaryCalls int32
	primary := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&primaryCalls, 1)
		w.WriteHeader(http.StatusTooManyRequests)
		fmt.Fprint(w, "Edge: Too Many Requests")
	}))
	defer primary.Close()

	secondary := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, chartBody)
	}))
	defer secondary.Close()

	src := NewYahooSource(testSourceConfig(), nil, WithYahooBaseURLs(primary.URL, secondary.URL))
	series, err := src.FetchSeries(context.Background(), "AAPL", 30)
	if err != nil {
		t.Fatalf("FetchSeries returned error: %v", err)
	}
	if series.Len() != 3 {
		t.Fatalf("unexpected series length %d", series.Len())
	}
	if atomic.LoadInt32(&primaryCalls) != 1 {
		t.Fatalf("expected one call to primary host, got %d", primaryCalls)
	}
}

func TestYahooSource_NotFound(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusNotFound)
		fmt.Fprint(w, `{"chart":{"result":null,"error":{"code":"Not Found","description":"No data found, symbol may be delisted"}}}`)
	}))
	defer srv.Close()

	src := NewYahooSource(testSourceConfig(), nil, WithYahooBaseURLs(srv.URL))
	_, err := src.FetchSeries(context.Background(), "NOPE", 30)
	if !errors.Is(err, ErrNoData) {
		t.Fatalf("expected ErrNoData, got %v", err)
	}
	if atomic.LoadInt32(&calls) != 1 {
		t.Fatalf("expected no retry for 404, got %d calls", calls)
	}
}

func TestYahooSource_GivesUpAfterMaxAttempts(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	src := NewYahooSource(testSourceConfig(), nil, WithYahooBaseURLs(srv.URL))
	_, err := src.FetchSeries(context.Background(), "AAPL", 30)

	var statusErr *httpStatusError
	if !errors.As(err, &statusErr) || statusErr.Status != http.StatusBadGateway {
		t.Fatalf("expected 502 status error, got %v", err)
	}
	if got := atomic.LoadInt32(&calls); got != 3 {
		t.Fatalf("expected 3 attempts, got %d", got)
	}
}

func TestChartToSeries_EmptyResult(t *testing.T) {
	if _, err := chartToSeries("AAPL", yahooChartResp{}); !errors.Is(err, ErrNoData) {
		t.Fatalf("expected ErrNoData, got %v", err)
	}
}
