// Package money 金额计算，统一使用 decimal 避免浮点误差
package money

import (
	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// TaxOn 按税率计算税额，保留两位小数
func TaxOn(base, rate decimal.Decimal) decimal.Decimal {
	return base.Mul(rate).Round(2)
}

// ToMinor 转换为最小货币单位（INR 为 paise）
func ToMinor(total decimal.Decimal) int64 {
	return total.Mul(hundred).Round(0).IntPart()
}

// PercentOf 百分比折扣，向下取整到整数货币单位
func PercentOf(base, pct decimal.Decimal) decimal.Decimal {
	return base.Mul(pct).Div(hundred).Floor()
}

// Format 两位小数展示
func Format(d decimal.Decimal) string {
	return d.StringFixed(2)
}
