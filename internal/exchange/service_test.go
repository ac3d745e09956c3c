package exchange

import (
	"context"
	"errors"
	"testing"
	"time"

	"riskboard/internal/riskmetrics"
)

type fakeSource struct {
	prices map[string][]float64
	delay  map[string]time.Duration
}

func (f *fakeSource) Name() string { return "fake" }

func (f *fakeSource) FetchSeries(ctx context.Context, symbol string, lookbackDays int) (riskmetrics.PriceSeries, error) {
	if d := f.delay[symbol]; d > 0 {
		select {
		case <-ctx.Done():
			return riskmetrics.PriceSeries{}, ctx.Err()
		case <-time.After(d):
		}
	}
	prices, ok := f.prices[symbol]
	if !ok {
		return riskmetrics.PriceSeries{}, ErrNoData
	}
	candles := make([]Candle, len(prices))
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for i, p := range prices {
		candles[i] = Candle{Timestamp: start.AddDate(0, 0, i), Close: p}
	}
	return CandlesToSeries(symbol, candles)
}

func TestMarketDataService_FetchAll(t *testing.T) {
	src := &fakeSource{
		prices: map[string][]float64{
			"AAPL":    {1, 2, 3},
			"BTC-USD": {10, 9, 11},
		},
		delay: map[string]time.Duration{"AAPL": 20 * time.Millisecond},
	}
	svc := NewMarketDataService(src, 2, nil)

	result, err := svc.FetchAll(context.Background(), []string{" aapl", "MISSING", "btc-usd", "AAPL", ""}, 365)
	if err != nil {
		t.Fatalf("FetchAll returned error: %v", err)
	}

	if len(result.Series) != 2 {
		t.Fatalf("expected 2 series, got %d", len(result.Series))
	}
	if result.Series[0].Asset != "AAPL" || result.Series[1].Asset != "BTC-USD" {
		t.Fatalf("unexpected order %s, %s", result.Series[0].Asset, result.Series[1].Asset)
	}
	if len(result.Failures) != 1 || result.Failures[0].Symbol != "MISSING" || !errors.Is(result.Failures[0].Err, ErrNoData) {
		t.Fatalf("unexpected failures %+v", result.Failures)
	}
}

func TestMarketDataService_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	svc := NewMarketDataService(&fakeSource{}, 1, nil)
	if _, err := svc.FetchAll(ctx, []string{"AAPL"}, 365); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestCandlesToSeries_CleansOrdering(t *testing.T) {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	candles := []Candle{
		{Timestamp: start, Close: 1},
		{Timestamp: start.AddDate(0, 0, 1), Close: 2},
		{Timestamp: start.AddDate(0, 0, 1), Close: 2.5},
		{Timestamp: start, Close: 9},
		{Timestamp: start.AddDate(0, 0, 2), Close: 3},
	}

	series, err := CandlesToSeries("ETH", candles)
	if err != nil {
		t.Fatalf("CandlesToSeries returned error: %v", err)
	}
	want := []float64{1, 2.5, 3}
	got := series.Prices()
	if len(got) != len(want) {
		t.Fatalf("unexpected prices %v", got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("price %d: got %v want %v", i, got[i], want[i])
		}
	}

	if _, err := CandlesToSeries("ETH", nil); !errors.Is(err, ErrNoData) {
		t.Fatalf("expected ErrNoData, got %v", err)
	}
}
