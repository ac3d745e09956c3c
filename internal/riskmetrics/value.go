package riskmetrics

import (
	"encoding/json"
	"math"
	"strconv"

	"github.com/shopspring/decimal"
)

// Value 是指标结果：要么是确定的数值，要么是“不可用”。
// 零方差、无下行样本、零回撤等情况返回 Undefined，而不是错误。
type Value struct {
	v       float64
	defined bool
}

// Defined 包装一个数值结果，NaN 与 ±Inf 视为不可用。
func Defined(v float64) Value {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return Undefined()
	}
	return Value{v: v, defined: true}
}

// Undefined 返回不可用的指标值。
func Undefined() Value {
	return Value{}
}

// IsDefined 报告指标是否可用。
func (m Value) IsDefined() bool {
	return m.defined
}

// Float64 返回数值及其是否可用。
func (m Value) Float64() (float64, bool) {
	if !m.defined {
		return math.NaN(), false
	}
	return m.v, true
}

// Round 按小数位四舍五入（远离零），不可用的值保持不变。
func (m Value) Round(places int32) Value {
	if !m.defined {
		return m
	}
	return Defined(roundFloat(m.v, places))
}

func (m Value) String() string {
	if !m.defined {
		return "N/A"
	}
	return strconv.FormatFloat(m.v, 'f', -1, 64)
}

// MarshalJSON 不可用时输出 null。
func (m Value) MarshalJSON() ([]byte, error) {
	if !m.defined {
		return []byte("null"), nil
	}
	return json.Marshal(m.v)
}

// UnmarshalJSON 接受数值或 null。
func (m *Value) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*m = Undefined()
		return nil
	}
	var v float64
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*m = Defined(v)
	return nil
}

func roundFloat(v float64, places int32) float64 {
	return decimal.NewFromFloat(v).Round(places).InexactFloat64()
}
