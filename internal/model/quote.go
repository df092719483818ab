package model

import "github.com/shopspring/decimal"

// QuoteResult is produced fresh on every retrieval call and only ever merged
// into a Position. Price > 0 when valid; ChangePercent is 0 when the provider
// had no previous price point.
type QuoteResult struct {
	Ticker        string
	Price         decimal.Decimal
	ChangePercent decimal.Decimal
	Source        string
}
