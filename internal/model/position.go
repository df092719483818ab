package model

import (
	"time"

	"github.com/shopspring/decimal"
)

type AssetClass string

const (
	ClassEquity        AssetClass = "EQUITY"
	ClassReit          AssetClass = "REIT"
	ClassEtf           AssetClass = "ETF"
	ClassOption        AssetClass = "OPTION"
	ClassFixedIncome   AssetClass = "FIXED_INCOME"
	ClassFund          AssetClass = "FUND"
	ClassCrypto        AssetClass = "CRYPTO"
	ClassPension       AssetClass = "PENSION"
	ClassInternational AssetClass = "INTERNATIONAL"
)

// Quotable reports whether positions of this class carry an exchange ticker
// the quote engine can refresh. Fixed income, funds and pensions are valued
// by statement, not by market quote.
func (c AssetClass) Quotable() bool {
	switch c {
	case ClassEquity, ClassReit, ClassEtf, ClassOption, ClassCrypto, ClassInternational:
		return true
	}
	return false
}

type PensionType string

const (
	PensionEquityLike      PensionType = "ACAO"
	PensionFixedIncomeLike PensionType = "RENDA_FIXA"
)

type Position struct {
	ID            int64
	OwnerID       int64
	Ticker        string
	Name          string
	AssetClass    AssetClass
	Quantity      decimal.Decimal
	AvgCost       decimal.Decimal
	CurrentPrice  decimal.Decimal
	ChangePercent decimal.Decimal
	LastUpdate    *time.Time
	EntryDate     *time.Time

	// class-specific attributes
	Sector       string          // FII sector (LOGISTICA, RECEBIVEIS, ...)
	Indexer      string          // fixed-income rate indexer (CDI, IPCA, prefixado rate)
	MaturityDate *time.Time      // fixed income / options
	PensionType  PensionType     // explicit on pension records
	CurrencyRate decimal.Decimal // BRL per unit of foreign currency, international only
	IntlEtf      bool            // ETF designated as international exposure
}

type PositionView struct {
	Position
	Valuation
	Weight decimal.Decimal // percent within the requested view, not the whole portfolio
}

type RefreshReport struct {
	Attempted     int      `json:"attempted"`
	Updated       int      `json:"updated"`
	FailedTickers []string `json:"failedTickers"`
}
