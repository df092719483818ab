package model

import "github.com/shopspring/decimal"

type Valuation struct {
	Invested      decimal.Decimal `json:"invested"`
	Current       decimal.Decimal `json:"current"`
	Profit        decimal.Decimal `json:"profit"`
	ProfitPercent decimal.Decimal `json:"profitPercent"`
	DayGain       decimal.Decimal `json:"dayGain"`
}
