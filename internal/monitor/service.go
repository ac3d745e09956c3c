package monitor

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"riskboard/internal/exchange"
	"riskboard/internal/riskmetrics"
	"riskboard/internal/store"
)

// ErrNoReport 表示尚未保存任何结果表。
var ErrNoReport = errors.New("monitor: 暂无结果表")

// Service 负责持久化运行事件。
type Service struct {
	db     *sql.DB
	logger *zap.Logger
	now    func() time.Time
}

// NewService 初始化监控服务，创建所需表结构。
func NewService(store *store.Store, logger *zap.Logger) (*Service, error) {
	if store == nil {
		return nil, fmt.Errorf("monitor: store 不能为空")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	s := &Service{
		db:     store.DB(),
		logger: logger,
		now:    func() time.Time { return time.Now().UTC() },
	}

	if err := s.initSchema(); err != nil {
		return nil, err
	}

	return s, nil
}

func (s *Service) initSchema() error {
	stmt := `
CREATE TABLE IF NOT EXISTS run_events (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	run_id TEXT NOT NULL,
	event_type TEXT NOT NULL,
	payload TEXT NOT NULL,
	created_at TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_run_events_type ON run_events(event_type);
CREATE INDEX IF NOT EXISTS idx_run_events_run ON run_events(run_id);
`
	if _, err := s.db.Exec(stmt); err != nil {
		return fmt.Errorf("monitor: 初始化表失败: %w", err)
	}
	return nil
}

// NewRunID 生成一次运行的唯一标识。
func NewRunID() string {
	return uuid.NewString()
}

// Record 写入单个事件，payload 会被序列化为 JSON。
func (s *Service) Record(ctx context.Context, runID string, typ EventType, payload any) error {
	raw, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("monitor: 序列化事件失败: %w", err)
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO run_events (run_id, event_type, payload, created_at) VALUES (?, ?, ?, ?)`,
		runID, string(typ), string(raw), s.now().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("monitor: 写入事件失败: %w", err)
	}

	return nil
}

// RecordReport 保存结果表，并为每个失败资产追加一条 asset_failure 事件。
func (s *Service) RecordReport(ctx context.Context, runID string, symbols []string, table riskmetrics.Table, summary string) {
	if err := s.Record(ctx, runID, EventReport, ReportPayload{
		Symbols: symbols,
		Table:   table,
		Summary: summary,
	}); err != nil {
		s.logger.Warn("记录结果表失败", zap.String("run_id", runID), zap.Error(err))
	}

	for _, f := range table.Failures {
		if err := s.Record(ctx, runID, EventAssetFailure, AssetFailurePayload{
			Asset:  f.Asset,
			Kind:   f.Kind,
			Reason: f.Reason,
		}); err != nil {
			s.logger.Warn("记录资产失败事件失败", zap.String("asset", f.Asset), zap.Error(err))
		}
	}
}

// RecordFetchFailures 记录行情获取失败。
func (s *Service) RecordFetchFailures(ctx context.Context, runID, source string, failures []exchange.FetchFailure) {
	for _, f := range failures {
		if err := s.Record(ctx, runID, EventFetchFailure, FetchFailurePayload{
			Symbol: f.Symbol,
			Source: source,
			Reason: f.Reason,
		}); err != nil {
			s.logger.Warn("记录行情失败事件失败", zap.String("symbol", f.Symbol), zap.Error(err))
		}
	}
}

// RecordError 记录异常。
func (s *Service) RecordError(ctx context.Context, runID, msg string, err error, ctxMap map[string]any) {
	payload := ErrorPayload{
		Message: msg,
		Context: ctxMap,
	}
	if err != nil {
		payload.Error = err.Error()
	}
	if recErr := s.Record(ctx, runID, EventError, payload); recErr != nil {
		s.logger.Warn("记录异常事件失败", zap.Error(recErr))
	}
}

// ListEvents 按类型检索最近事件，eventType 为空时返回全部类型。
func (s *Service) ListEvents(ctx context.Context, eventType EventType, limit int) ([]Event, error) {
	if limit <= 0 {
		limit = 100
	}

	query := `SELECT id, run_id, event_type, payload, created_at FROM run_events`
	args := make([]any, 0, 2)
	if eventType != "" {
		query += ` WHERE event_type = ?`
		args = append(args, string(eventType))
	}
	query += ` ORDER BY id DESC LIMIT ?`
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("monitor: 查询事件失败: %w", err)
	}
	defer rows.Close()

	events := make([]Event, 0, limit)
	for rows.Next() {
		var (
			ev      Event
			typ     string
			payload string
			created string
		)
		if scanErr := rows.Scan(&ev.ID, &ev.RunID, &typ, &payload, &created); scanErr != nil {
			return nil, fmt.Errorf("monitor: 解析事件失败: %w", scanErr)
		}

		ts, parseErr := time.Parse(time.RFC3339Nano, created)
		if parseErr != nil {
			s.logger.Warn("事件时间格式异常", zap.Int64("id", ev.ID), zap.String("created_at", created))
		}
		ev.Type = EventType(typ)
		ev.Timestamp = ts
		ev.Payload = json.RawMessage(payload)
		events = append(events, ev)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("monitor: 读取事件失败: %w", err)
	}

	return events, nil
}

// LatestReport 返回最近一次保存的结果表。
func (s *Service) LatestReport(ctx context.Context) (ReportPayload, error) {
	events, err := s.ListEvents(ctx, EventReport, 1)
	if err != nil {
		return ReportPayload{}, err
	}
	if len(events) == 0 {
		return ReportPayload{}, ErrNoReport
	}

	var payload ReportPayload
	if err := json.Unmarshal(events[0].Payload, &payload); err != nil {
		return ReportPayload{}, fmt.Errorf("monitor: 解析结果表失败: %w", err)
	}
	return payload, nil
}
