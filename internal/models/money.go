package models

import "github.com/shopspring/decimal"

// Money is a currency amount. It scans and stores like decimal.Decimal but
// always renders with two decimal places, so 45 goes out as "45.00".
type Money struct {
	decimal.Decimal
}

func NewMoney(d decimal.Decimal) Money {
	return Money{Decimal: d}
}

func (m Money) MarshalJSON() ([]byte, error) {
	return []byte(`"` + m.StringFixed(2) + `"`), nil
}
