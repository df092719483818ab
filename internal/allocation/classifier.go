package allocation

import (
	"strings"
	"time"

	"github.com/pbaptista/carteira_helper/internal/model"
)

const (
	yearsShort  = 2.0
	yearsMedium = 4.0
)

// fiiBroadCategory maps FII sector codes to the Tijolo/Papel split.
// Unknown or missing sectors fall back to Papel.
var fiiBroadCategory = map[string]string{
	"LAJES CORPORATIVAS": model.FiiPropertyBacked,
	"LOGISTICA":          model.FiiPropertyBacked,
	"SHOPPING CENTER":    model.FiiPropertyBacked,
	"HIBRIDO":            model.FiiPropertyBacked,
	"RENDA":              model.FiiPropertyBacked,
	"RECEBIVEIS":         model.FiiPaperBacked,
	"FIAGRO":             model.FiiPaperBacked,
	"FUNDO DE FUNDOS":    model.FiiPaperBacked,
	"INFRA":              model.FiiPaperBacked,
	"OUTROS":             model.FiiPaperBacked,
}

// Classify assigns a position to its maturity tier, asset group and, for
// FIIs, the Tijolo/Papel sub-group. Pure; today is passed in so callers and
// tests control the clock.
func Classify(p model.Position, today time.Time) model.Classification {
	c := model.Classification{
		Tier:  maturityTier(p.MaturityDate, today),
		Group: assetGroup(p),
	}

	if p.AssetClass == model.ClassReit {
		c.SubGroup = FiiBroadCategory(p.Sector)
	}

	return c
}

// maturityTier buckets time-to-maturity in years, inclusive at the lower
// tier: exactly 2y is still Curto, exactly 4y is still Médio.
func maturityTier(maturity *time.Time, today time.Time) model.MaturityTier {
	if maturity == nil {
		return model.TierUndefined
	}

	years := maturity.Sub(today).Hours() / 24 / 365

	switch {
	case years <= yearsShort:
		return model.TierShort
	case years <= yearsMedium:
		return model.TierMedium
	default:
		return model.TierLong
	}
}

func assetGroup(p model.Position) model.AssetGroup {
	switch p.AssetClass {
	case model.ClassEquity, model.ClassOption:
		return model.GroupDomesticEquity
	case model.ClassReit:
		return model.GroupDomesticReit
	case model.ClassEtf:
		return model.GroupEtf
	case model.ClassFund:
		return model.GroupFund
	case model.ClassCrypto:
		return model.GroupCrypto
	case model.ClassPension:
		return model.GroupPension
	case model.ClassFixedIncome:
		return fixedIncomeGroup(p.Indexer)
	case model.ClassInternational:
		// foreign fixed-income holdings carry an indexer, stocks do not
		if p.Indexer != "" {
			return model.GroupIntlFixedIncome
		}
		return model.GroupIntlEquity
	}
	return model.GroupDomesticEquity
}

// fixedIncomeGroup matches the rate-indexer string case-insensitively
// against known index substrings. Anything that names neither an inflation
// nor a floating-rate index is a prefixado.
func fixedIncomeGroup(indexer string) model.AssetGroup {
	idx := strings.ToUpper(indexer)

	switch {
	case strings.Contains(idx, "IPCA"), strings.Contains(idx, "IGP"):
		return model.GroupFixedIncomeInflation
	case strings.Contains(idx, "CDI"), strings.Contains(idx, "SELIC"), strings.Contains(idx, "DI"):
		return model.GroupFixedIncomeFloating
	default:
		return model.GroupFixedIncomeFixed
	}
}

// FiiBroadCategory resolves a FII sector code to Tijolo or Papel.
func FiiBroadCategory(sector string) string {
	if cat, ok := fiiBroadCategory[strings.ToUpper(strings.TrimSpace(sector))]; ok {
		return cat
	}
	return model.FiiPaperBacked
}

// EquityLike reports whether a pension position counts with equities in
// risk splits. Driven by the explicit type on the record, never inferred.
func EquityLike(p model.Position) bool {
	return p.AssetClass == model.ClassPension && p.PensionType == model.PensionEquityLike
}
