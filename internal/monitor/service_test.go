package monitor

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"riskboard/internal/config"
	"riskboard/internal/exchange"
	"riskboard/internal/riskmetrics"
	"riskboard/internal/store"
)

func newTestService(t *testing.T) *Service {
	t.Helper()
	st, err := store.NewSQLite(config.DatabaseConfig{InMemory: true})
	if err != nil {
		t.Fatalf("NewSQLite returned error: %v", err)
	}
	t.Cleanup(func() { _ = st.Close() })

	svc, err := NewService(st, nil)
	if err != nil {
		t.Fatalf("NewService returned error: %v", err)
	}
	return svc
}

func sampleTable() riskmetrics.Table {
	return riskmetrics.Table{
		GeneratedAt:    time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
		RiskFreeRate:   0.02,
		PeriodsPerYear: 252,
		Rows: []riskmetrics.Row{
			{
				Asset:          "AAPL",
				Sharpe:         riskmetrics.Defined(0.17),
				Sortino:        riskmetrics.Undefined(),
				Calmar:         riskmetrics.Defined(3.5),
				MaxDrawdownPct: -12.04,
			},
		},
		Failures: []riskmetrics.Failure{
			{Asset: "DELISTED", Kind: "insufficient_data", Reason: "DELISTED: insufficient data"},
		},
	}
}

func TestNewService_NilStore(t *testing.T) {
	if _, err := NewService(nil, nil); err == nil {
		t.Fatalf("expected error for nil store")
	}
}

func TestRecordReport_LatestReport(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	if _, err := svc.LatestReport(ctx); !errors.Is(err, ErrNoReport) {
		t.Fatalf("expected ErrNoReport on empty store, got %v", err)
	}

	runID := NewRunID()
	svc.RecordReport(ctx, runID, []string{"AAPL", "DELISTED"}, sampleTable(), "calm week")

	latest, err := svc.LatestReport(ctx)
	if err != nil {
		t.Fatalf("LatestReport returned error: %v", err)
	}
	if len(latest.Table.Rows) != 1 || latest.Table.Rows[0].Asset != "AAPL" {
		t.Fatalf("unexpected rows: %+v", latest.Table.Rows)
	}
	if latest.Table.Rows[0].Sortino.IsDefined() {
		t.Fatalf("expected undefined sortino to survive persistence")
	}
	if v, ok := latest.Table.Rows[0].Sharpe.Float64(); !ok || v != 0.17 {
		t.Fatalf("unexpected sharpe: %v %v", v, ok)
	}
	if latest.Summary != "calm week" {
		t.Fatalf("unexpected summary %q", latest.Summary)
	}

	failures, err := svc.ListEvents(ctx, EventAssetFailure, 10)
	if err != nil {
		t.Fatalf("ListEvents returned error: %v", err)
	}
	if len(failures) != 1 || failures[0].RunID != runID {
		t.Fatalf("expected one asset failure for run %s, got %+v", runID, failures)
	}
	var payload AssetFailurePayload
	if err := json.Unmarshal(failures[0].Payload, &payload); err != nil {
		t.Fatalf("decode payload: %v", err)
	}
	if payload.Asset != "DELISTED" || payload.Kind != "insufficient_data" {
		t.Fatalf("unexpected payload %+v", payload)
	}
}

func TestListEvents_FilterAndOrder(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	runID := NewRunID()
	svc.RecordFetchFailures(ctx, runID, "yahoo", []exchange.FetchFailure{
		{Symbol: "FOO", Reason: "no data"},
		{Symbol: "BAR", Reason: "timeout"},
	})
	svc.RecordError(ctx, runID, "写入报告失败", errors.New("disk full"), map[string]any{"path": "/tmp/x"})

	all, err := svc.ListEvents(ctx, "", 10)
	if err != nil {
		t.Fatalf("ListEvents returned error: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("expected 3 events, got %d", len(all))
	}
	if all[0].Type != EventError {
		t.Fatalf("expected newest event first, got %s", all[0].Type)
	}

	fetch, err := svc.ListEvents(ctx, EventFetchFailure, 1)
	if err != nil {
		t.Fatalf("ListEvents returned error: %v", err)
	}
	if len(fetch) != 1 {
		t.Fatalf("expected limit to apply, got %d", len(fetch))
	}
	var payload FetchFailurePayload
	if err := json.Unmarshal(fetch[0].Payload, &payload); err != nil {
		t.Fatalf("decode payload: %v", err)
	}
	if payload.Symbol != "BAR" || payload.Source != "yahoo" {
		t.Fatalf("unexpected payload %+v", payload)
	}
}

func TestParseEventType(t *testing.T) {
	cases := map[string]bool{
		"":              true,
		"report":        true,
		"fetch_failure": true,
		"execution":     false,
	}
	for raw, want := range cases {
		if _, ok := ParseEventType(raw); ok != want {
			t.Fatalf("ParseEventType(%q) ok=%v, want %v", raw, ok, want)
		}
	}
}
