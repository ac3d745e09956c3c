package riskmetrics

import "errors"

var (
	// ErrInsufficientData 表示观测数量不足以计算所需指标。
	ErrInsufficientData = errors.New("riskmetrics: insufficient data")
	// ErrDomain 表示输入超出公式定义域，例如非正价格。
	ErrDomain = errors.New("riskmetrics: domain error")
	// ErrDuplicateAsset 表示同一批次中出现重复的资产标识。
	ErrDuplicateAsset = errors.New("riskmetrics: duplicate asset")
)

// Kind 将错误归类为便于展示和统计的短标签。
func Kind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrInsufficientData):
		return "insufficient_data"
	case errors.Is(err, ErrDomain):
		return "domain_error"
	case errors.Is(err, ErrDuplicateAsset):
		return "duplicate_asset"
	default:
		return "unknown"
	}
}
