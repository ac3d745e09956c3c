package exchange

import (
	"errors"

	ccxt "github.com/ccxt/ccxt/go/v4"
)

var (
	// ErrMaintenance 表示交易所处于维护状态，需要上层跳过该资产。
	ErrMaintenance = errors.New("exchange on maintenance")
	// ErrNoData 表示数据源没有返回任何价格。
	ErrNoData = errors.New("no price data")
)

// IsRetryable 判断 ccxt 错误是否可重试。
// 只重试网络与限流类错误。
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}

	var ccxtErr *ccxt.Error
	if errors.As(err, &ccxtErr) {
		switch ccxtErr.Type {
		case ccxt.NetworkErrorErrType,
			ccxt.RequestTimeoutErrType,
			ccxt.ExchangeNotAvailableErrType,
			ccxt.RateLimitExceededErrType,
			ccxt.DDoSProtectionErrType:
			return true
		default:
			return false
		}
	}

	return false
}
