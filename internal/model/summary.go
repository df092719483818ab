package model

import "github.com/shopspring/decimal"

// MaturityTier buckets time-to-maturity. Labels follow the product's
// pt-BR display names.
type MaturityTier string

const (
	TierShort     MaturityTier = "Curto Prazo" // <= 2 years
	TierMedium    MaturityTier = "Médio Prazo" // <= 4 years
	TierLong      MaturityTier = "Longo Prazo" // > 4 years
	TierUndefined MaturityTier = "Indefinido"  // no maturity date
)

type AssetGroup string

const (
	GroupFixedIncomeFloating  AssetGroup = "Renda Fixa Pós"
	GroupFixedIncomeFixed     AssetGroup = "Renda Fixa Pré"
	GroupFixedIncomeInflation AssetGroup = "Renda Fixa IPCA"
	GroupDomesticEquity       AssetGroup = "Ações Brasil"
	GroupDomesticReit         AssetGroup = "FIIs"
	GroupFund                 AssetGroup = "Fundos"
	GroupCrypto               AssetGroup = "Cripto"
	GroupPension              AssetGroup = "Previdência"
	GroupIntlEquity           AssetGroup = "Ações Internacionais"
	GroupIntlFixedIncome      AssetGroup = "Renda Fixa Internacional"
	GroupEtf                  AssetGroup = "ETFs"
)

// FII broad categories.
const (
	FiiPropertyBacked = "Tijolo"
	FiiPaperBacked    = "Papel"
)

type Classification struct {
	Tier     MaturityTier
	Group    AssetGroup
	SubGroup string // FII Tijolo/Papel, empty for other classes
}

type Bucket struct {
	Name    string          `json:"name"`
	Value   decimal.Decimal `json:"value"`
	Percent decimal.Decimal `json:"percent"`
}

type GroupBreakdown struct {
	Group   AssetGroup      `json:"group"`
	Value   decimal.Decimal `json:"value"`
	Percent decimal.Decimal `json:"percent"`
	ByTier  []Bucket        `json:"byTier"`
}

// AllocationSummary is derived per request, never stored.
type AllocationSummary struct {
	TotalValue    decimal.Decimal  `json:"totalValue"`
	Groups        []GroupBreakdown `json:"groups"`
	ByMaturity    []Bucket         `json:"byMaturity"`
	DomesticIntl  []Bucket         `json:"domesticIntl"`
	FiiBroad      []Bucket         `json:"fiiBroad"`
	PositionCount int              `json:"positionCount"`
}
