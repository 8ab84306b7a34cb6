package market

import (
	"encoding/json"
	"fmt"

	"github.com/shopspring/decimal"
)

// asDecimal 把接口返回的金额字段（string/number 皆有可能）转成 Decimal
func asDecimal(v any) (decimal.Decimal, bool) {
	switch t := v.(type) {
	case nil:
		return decimal.Zero, false
	case string:
		if t == "" {
			return decimal.Zero, false
		}
		d, err := decimal.NewFromString(t)
		if err != nil {
			return decimal.Zero, false
		}
		return d, true
	case float64:
		return decimal.NewFromFloat(t), true
	case int64:
		return decimal.NewFromInt(t), true
	case int:
		return decimal.NewFromInt(int64(t)), true
	case json.Number:
		d, err := decimal.NewFromString(t.String())
		if err != nil {
			return decimal.Zero, false
		}
		return d, true
	default:
		d, err := decimal.NewFromString(fmt.Sprint(v))
		if err != nil {
			return decimal.Zero, false
		}
		return d, true
	}
}

// extractDecimal 按候选键顺序从 map 中取第一个能解析的金额
func extractDecimal(m map[string]any, keys ...string) (decimal.Decimal, bool) {
	if m == nil {
		return decimal.Zero, false
	}
	for _, key := range keys {
		if raw, ok := m[key]; ok {
			if d, ok := asDecimal(raw); ok {
				return d, true
			}
		}
	}
	return decimal.Zero, false
}

// formatDecimal 输出无科学计数法的十进制字符串（下单金额要求）
func formatDecimal(d decimal.Decimal) string {
	return d.String()
}

// FormatAmount 把浮点金额转为下单用的十进制字符串
func FormatAmount(v float64) string {
	return decimal.NewFromFloat(v).String()
}
