package dbModel

import (
	"time"

	"github.com/shopspring/decimal"
)

type Position struct {
	ID            int64           `db:"position_id"`
	OwnerID       int64           `db:"owner_id"`
	Ticker        string          `db:"ticker"`
	Name          string          `db:"name"`
	AssetClass    string          `db:"asset_class"`
	Quantity      decimal.Decimal `db:"quantity"`
	AvgCost       decimal.Decimal `db:"avg_cost"`
	CurrentPrice  decimal.Decimal `db:"current_price"`
	ChangePercent decimal.Decimal `db:"change_percent"`
	LastUpdate    *time.Time      `db:"last_update"`
	EntryDate     *time.Time      `db:"entry_date"`
	Sector        string          `db:"sector"`
	Indexer       string          `db:"indexer"`
	MaturityDate  *time.Time      `db:"maturity_date"`
	PensionType   string          `db:"pension_type"`
	CurrencyRate  decimal.Decimal `db:"currency_rate"`
	IntlEtf       bool            `db:"intl_etf"`
}

type RefreshRun struct {
	OwnerID       int64     `db:"owner_id"`
	Attempted     int       `db:"attempted"`
	Updated       int       `db:"updated"`
	FailedTickers string    `db:"failed_tickers"`
	CreatedAt     time.Time `db:"dt_create"`
}
