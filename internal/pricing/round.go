package pricing

import "github.com/shopspring/decimal"

// RoundMoney округляет сумму до целых минимальных единиц, половину вверх.
func RoundMoney(v float64) int64 {
	return decimal.NewFromFloat(v).Round(0).IntPart()
}
