package allocation

import (
	"time"

	"github.com/pbaptista/carteira_helper/internal/model"
	"github.com/pbaptista/carteira_helper/internal/valuation"
	"github.com/shopspring/decimal"
)

var (
	hundred = decimal.NewFromInt(100)

	// rows worth less than one cent are noise in the hierarchical
	// breakdowns; they still count toward every total.
	epsilon = decimal.NewFromFloat(0.01)

	groupOrder = []model.AssetGroup{
		model.GroupFixedIncomeFloating,
		model.GroupFixedIncomeFixed,
		model.GroupFixedIncomeInflation,
		model.GroupDomesticEquity,
		model.GroupDomesticReit,
		model.GroupEtf,
		model.GroupFund,
		model.GroupCrypto,
		model.GroupPension,
		model.GroupIntlEquity,
		model.GroupIntlFixedIncome,
	}

	tierOrder = []model.MaturityTier{
		model.TierShort,
		model.TierMedium,
		model.TierLong,
		model.TierUndefined,
	}

	bucketDomestic = "Brasil"
	bucketIntl     = "Internacional"
)

// Aggregate runs the valuation calculator and the classifier over every
// position once and folds the values into the allocation views. Stateless:
// the same snapshot always yields the same summary.
func Aggregate(positions []model.Position, today time.Time) model.AllocationSummary {
	var (
		total      = decimal.Zero
		groupVals  = map[model.AssetGroup]decimal.Decimal{}
		groupTiers = map[model.AssetGroup]map[model.MaturityTier]decimal.Decimal{}
		tierVals   = map[model.MaturityTier]decimal.Decimal{}
		regionVals = map[string]decimal.Decimal{}
		fiiVals    = map[string]decimal.Decimal{}
		fiiTotal   = decimal.Zero
	)

	for _, p := range positions {
		val := CurrentValue(p)
		c := Classify(p, today)

		total = total.Add(val)
		groupVals[c.Group] = groupVals[c.Group].Add(val)
		tierVals[c.Tier] = tierVals[c.Tier].Add(val)

		if groupTiers[c.Group] == nil {
			groupTiers[c.Group] = map[model.MaturityTier]decimal.Decimal{}
		}
		groupTiers[c.Group][c.Tier] = groupTiers[c.Group][c.Tier].Add(val)

		regionVals[region(p)] = regionVals[region(p)].Add(val)

		if p.AssetClass == model.ClassReit {
			fiiVals[c.SubGroup] = fiiVals[c.SubGroup].Add(val)
			fiiTotal = fiiTotal.Add(val)
		}
	}

	summary := model.AllocationSummary{
		TotalValue:    total,
		PositionCount: len(positions),
	}

	for _, group := range groupOrder {
		val, ok := groupVals[group]
		if !ok || val.LessThan(epsilon) {
			continue
		}

		breakdown := model.GroupBreakdown{
			Group:   group,
			Value:   val,
			Percent: percentOf(val, total),
		}

		for _, tier := range tierOrder {
			tierVal, ok := groupTiers[group][tier]
			if !ok || tierVal.LessThan(epsilon) {
				continue
			}
			breakdown.ByTier = append(breakdown.ByTier, model.Bucket{
				Name:    string(tier),
				Value:   tierVal,
				Percent: percentOf(tierVal, total),
			})
		}

		summary.Groups = append(summary.Groups, breakdown)
	}

	for _, tier := range tierOrder {
		val, ok := tierVals[tier]
		if !ok || val.LessThan(epsilon) {
			continue
		}
		summary.ByMaturity = append(summary.ByMaturity, model.Bucket{
			Name:    string(tier),
			Value:   val,
			Percent: percentOf(val, total),
		})
	}

	for _, name := range []string{bucketDomestic, bucketIntl} {
		val, ok := regionVals[name]
		if !ok || val.LessThan(epsilon) {
			continue
		}
		summary.DomesticIntl = append(summary.DomesticIntl, model.Bucket{
			Name:    name,
			Value:   val,
			Percent: percentOf(val, total),
		})
	}

	// FII Tijolo/Papel percentages are relative to the FII slice, matching
	// the dedicated FII view
	for _, name := range []string{model.FiiPropertyBacked, model.FiiPaperBacked} {
		val, ok := fiiVals[name]
		if !ok || val.LessThan(epsilon) {
			continue
		}
		summary.FiiBroad = append(summary.FiiBroad, model.Bucket{
			Name:    name,
			Value:   val,
			Percent: percentOf(val, fiiTotal),
		})
	}

	return summary
}

// Weights computes each position's share of the given subset's value. The
// subset is whatever view the caller is rendering, not necessarily the whole
// portfolio.
func Weights(positions []model.Position) map[int64]decimal.Decimal {
	total := decimal.Zero
	for _, p := range positions {
		total = total.Add(CurrentValue(p))
	}

	weights := make(map[int64]decimal.Decimal, len(positions))
	for _, p := range positions {
		weights[p.ID] = percentOf(CurrentValue(p), total)
	}
	return weights
}

// CurrentValue is the position's current value in home currency: foreign
// holdings are converted at the stored currency rate.
func CurrentValue(p model.Position) decimal.Decimal {
	val := valuation.Value(p).Current
	if p.AssetClass == model.ClassInternational && p.CurrencyRate.IsPositive() {
		val = val.Mul(p.CurrencyRate)
	}
	return val
}

func region(p model.Position) string {
	switch {
	case p.AssetClass == model.ClassInternational,
		p.AssetClass == model.ClassCrypto,
		p.AssetClass == model.ClassEtf && p.IntlEtf:
		return bucketIntl
	}
	return bucketDomestic
}

func percentOf(val, total decimal.Decimal) decimal.Decimal {
	if !total.IsPositive() {
		return decimal.Zero
	}
	return val.Div(total).Mul(hundred)
}
