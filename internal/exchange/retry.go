package exchange

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"riskboard/internal/config"
)

// classifier 规范化错误并判断是否值得重试。
type classifier func(err error) (error, bool)

type retryPolicy struct {
	cfg      config.RetryConfig
	logger   *zap.Logger
	classify classifier
}

func (p retryPolicy) do(ctx context.Context, operation string, fn func(ctx context.Context) error) error {
	attempt := 0
	delay := p.cfg.MinDelay
	if delay <= 0 {
		delay = 200 * time.Millisecond
	}
	maxDelay := p.cfg.MaxDelay
	if maxDelay <= 0 {
		maxDelay = 2 * time.Second
	}
	maxAttempts := p.cfg.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = 1
	}

	for {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}

		attempt++
		start := time.Now()
		err := fn(ctx)
		duration := time.Since(start)
		if err == nil {
			if attempt > 1 {
				p.logger.Info("数据源调用重试后成功",
					zap.String("operation", operation),
					zap.Int("attempts", attempt),
					zap.Duration("latency", duration),
				)
			}
			return nil
		}

		normalizedErr, retry := p.classify(err)

		if errors.Is(normalizedErr, ErrMaintenance) {
			p.logger.Warn("交易所维护中",
				zap.String("operation", operation),
				zap.Error(normalizedErr),
			)
			return normalizedErr
		}

		if !retry || attempt >= maxAttempts {
			p.logger.Debug("数据源调用失败",
				zap.String("operation", operation),
				zap.Int("attempts", attempt),
				zap.Duration("latency", duration),
				zap.Error(normalizedErr),
			)
			return normalizedErr
		}

		wait := delay
		if wait > maxDelay {
			wait = maxDelay
		}

		p.logger.Warn("数据源调用失败，等待重试",
			zap.String("operation", operation),
			zap.Int("attempt", attempt),
			zap.Duration("wait", wait),
			zap.Error(normalizedErr),
		)

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}

		delay *= 2
		if delay > maxDelay {
			delay = maxDelay
		}
	}
}
