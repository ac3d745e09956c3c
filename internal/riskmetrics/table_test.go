package riskmetrics

import (
	"errors"
	"math"
	"testing"
	"time"
)

func makeSeries(t *testing.T, asset string, prices ...float64) PriceSeries {
	t.Helper()
	start := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
	obs := make([]Observation, len(prices))
	for i, p := range prices {
		obs[i] = Observation{Time: start.AddDate(0, 0, i), Price: p}
	}
	series, err := NewPriceSeries(asset, obs)
	if err != nil {
		t.Fatalf("NewPriceSeries(%s) returned error: %v", asset, err)
	}
	return series
}

func yearOfPrices() []float64 {
	prices := make([]float64, 252)
	for i := range prices {
		prices[i] = 100 + 10*math.Sin(float64(i)/9) + float64(i)*0.05
	}
	return prices
}

func TestEngineEvaluate_IsolatesFailures(t *testing.T) {
	engine := NewEngine(DefaultOptions(), nil)

	table := engine.Evaluate([]PriceSeries{
		makeSeries(t, "AAPL", yearOfPrices()...),
		makeSeries(t, "DELISTED", 12.5),
	})

	if len(table.Rows) != 1 {
		t.Fatalf("expected 1 row, got %d", len(table.Rows))
	}
	if table.Rows[0].Asset != "AAPL" {
		t.Fatalf("unexpected row asset %s", table.Rows[0].Asset)
	}
	if len(table.Failures) != 1 {
		t.Fatalf("expected 1 failure, got %d", len(table.Failures))
	}
	failure := table.Failures[0]
	if failure.Asset != "DELISTED" || !errors.Is(failure.Err, ErrInsufficientData) {
		t.Fatalf("unexpected failure %+v", failure)
	}
	if failure.Kind != "insufficient_data" {
		t.Fatalf("unexpected failure kind %s", failure.Kind)
	}
}

func TestEngineEvaluate_PreservesOrderAndRounds(t *testing.T) {
	engine := NewEngine(Options{RiskFreeRate: 0.02, Workers: 2}, nil)

	assets := []PriceSeries{
		makeSeries(t, "ZZZ", 100, 105, 102, 108, 95, 110),
		makeSeries(t, "BAD", 10, -1, 12),
		makeSeries(t, "AAA", 10, 11, 12, 13),
		makeSeries(t, "MMM", 50, 49, 48),
	}
	table := engine.Evaluate(assets)

	wantOrder := []string{"ZZZ", "AAA", "MMM"}
	if len(table.Rows) != len(wantOrder) {
		t.Fatalf("unexpected row count %d", len(table.Rows))
	}
	for i, asset := range wantOrder {
		if table.Rows[i].Asset != asset {
			t.Errorf("row %d: got %s want %s", i, table.Rows[i].Asset, asset)
		}
	}

	first := table.Rows[0]
	if first.MaxDrawdownPct != -12.04 {
		t.Errorf("expected -12.04%% drawdown, got %v", first.MaxDrawdownPct)
	}
	for _, v := range []Value{first.Sharpe, first.Sortino, first.Calmar} {
		f, ok := v.Float64()
		if !ok {
			t.Fatalf("expected defined metrics for ZZZ, got %+v", first)
		}
		if math.Abs(f*100-math.Round(f*100)) > 1e-9 {
			t.Errorf("value %v not rounded to 2 places", f)
		}
	}

	rising := table.Rows[1]
	if rising.Calmar.IsDefined() || rising.Sortino.IsDefined() {
		t.Errorf("expected undefined calmar and sortino for rising series, got %+v", rising)
	}
	if rising.MaxDrawdownPct != 0 {
		t.Errorf("expected zero drawdown for rising series, got %v", rising.MaxDrawdownPct)
	}

	if len(table.Failures) != 1 || table.Failures[0].Asset != "BAD" || !errors.Is(table.Failures[0].Err, ErrDomain) {
		t.Fatalf("unexpected failures %+v", table.Failures)
	}
	if table.PeriodsPerYear != TradingDaysPerYear {
		t.Errorf("expected default periods per year, got %d", table.PeriodsPerYear)
	}
}

func TestEngineEvaluate_DuplicateAsset(t *testing.T) {
	engine := NewEngine(DefaultOptions(), nil)

	table := engine.Evaluate([]PriceSeries{
		makeSeries(t, "BTC-USD", 100, 101, 99),
		makeSeries(t, "BTC-USD", 1, 2, 3),
	})

	if len(table.Rows) != 1 || len(table.Failures) != 1 {
		t.Fatalf("expected one row and one failure, got %d/%d", len(table.Rows), len(table.Failures))
	}
	if !errors.Is(table.Failures[0].Err, ErrDuplicateAsset) {
		t.Fatalf("expected ErrDuplicateAsset, got %v", table.Failures[0].Err)
	}
}

func TestEngineEvaluate_Empty(t *testing.T) {
	table := NewEngine(DefaultOptions(), nil).Evaluate(nil)
	if len(table.Rows) != 0 || len(table.Failures) != 0 {
		t.Fatalf("expected empty table, got %+v", table)
	}
}

func TestNewEngine_NormalizesOptions(t *testing.T) {
	got := NewEngine(Options{RiskFreeRate: 0.05}, nil).Options()
	want := Options{RiskFreeRate: 0.05, PeriodsPerYear: TradingDaysPerYear, Workers: 4}
	if got != want {
		t.Fatalf("Options() = %+v, want %+v", got, want)
	}
}

func TestPriceSeries_TimesIsCopy(t *testing.T) {
	s := makeSeries(t, "AAPL", 100, 101)
	times := s.Times()
	if len(times) != 2 || !times[0].Equal(s.Observations[0].Time) {
		t.Fatalf("unexpected times %v", times)
	}
	times[0] = time.Time{}
	if s.Observations[0].Time.IsZero() {
		t.Fatalf("Times must not alias the series")
	}
}

func TestNewPriceSeries_Validation(t *testing.T) {
	start := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name  string
		asset string
		obs   []Observation
	}{
		{name: "empty asset", asset: " ", obs: []Observation{{Time: start, Price: 1}}},
		{name: "nan price", asset: "X", obs: []Observation{{Time: start, Price: math.NaN()}}},
		{name: "duplicate timestamp", asset: "X", obs: []Observation{{Time: start, Price: 1}, {Time: start, Price: 2}}},
		{name: "inverted timestamp", asset: "X", obs: []Observation{{Time: start, Price: 1}, {Time: start.Add(-time.Hour), Price: 2}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := NewPriceSeries(tt.asset, tt.obs); !errors.Is(err, ErrDomain) {
				t.Fatalf("expected ErrDomain, got %v", err)
			}
		})
	}

	obs := []Observation{{Time: start, Price: 1}, {Time: start.Add(time.Hour), Price: 2}}
	series, err := NewPriceSeries(" ETH-USD ", obs)
	if err != nil {
		t.Fatalf("NewPriceSeries returned error: %v", err)
	}
	obs[0].Price = 99
	if series.Prices()[0] != 1 {
		t.Fatalf("series must not alias caller data")
	}
	if series.Asset != "ETH-USD" {
		t.Fatalf("expected trimmed asset, got %q", series.Asset)
	}
}
