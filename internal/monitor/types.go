package monitor

import (
	"encoding/json"
	"time"

	"riskboard/internal/riskmetrics"
)

// EventType 表示运行事件类型。
type EventType string

const (
	EventReport       EventType = "report"
	EventAssetFailure EventType = "asset_failure"
	EventFetchFailure EventType = "fetch_failure"
	EventError        EventType = "error"
)

// ParseEventType 解析查询参数中的事件类型，空字符串表示全部。
func ParseEventType(raw string) (EventType, bool) {
	switch t := EventType(raw); t {
	case "", EventReport, EventAssetFailure, EventFetchFailure, EventError:
		return t, true
	default:
		return "", false
	}
}

// Event 封装通用运行事件。
type Event struct {
	ID        int64           `json:"id"`
	RunID     string          `json:"run_id"`
	Type      EventType       `json:"type"`
	Timestamp time.Time       `json:"timestamp"`
	Payload   json.RawMessage `json:"payload"`
}

// ReportPayload 记录一次完整的指标结果表。
type ReportPayload struct {
	Symbols []string          `json:"symbols"`
	Table   riskmetrics.Table `json:"table"`
	Summary string            `json:"summary,omitempty"`
}

// AssetFailurePayload 记录单个资产的计算失败。
type AssetFailurePayload struct {
	Asset  string `json:"asset"`
	Kind   string `json:"kind"`
	Reason string `json:"reason"`
}

// FetchFailurePayload 记录单个资产的行情获取失败。
type FetchFailurePayload struct {
	Symbol string `json:"symbol"`
	Source string `json:"source"`
	Reason string `json:"reason"`
}

// ErrorPayload 记录异常。
type ErrorPayload struct {
	Message string         `json:"message"`
	Error   string         `json:"error"`
	Context map[string]any `json:"context,omitempty"`
}
