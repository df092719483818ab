package allocation

import (
	"testing"

	"github.com/pbaptista/carteira_helper/internal/model"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dec(s string) decimal.Decimal {
	d, _ := decimal.NewFromString(s)
	return d
}

func equityPos(id int64, qty, avgCost, price string) model.Position {
	return model.Position{
		ID:           id,
		AssetClass:   model.ClassEquity,
		Quantity:     dec(qty),
		AvgCost:      dec(avgCost),
		CurrentPrice: dec(price),
	}
}

func TestAggregateEquityAndReitScenario(t *testing.T) {
	positions := []model.Position{
		equityPos(1, "100", "30.00", "33.00"),
		{
			ID:           2,
			AssetClass:   model.ClassReit,
			Sector:       "LOGISTICA",
			Quantity:     dec("10"),
			AvgCost:      dec("100.00"),
			CurrentPrice: dec("95.00"),
		},
	}

	summary := Aggregate(positions, today)

	assert.True(t, summary.TotalValue.Equal(dec("4250")), "total = %s", summary.TotalValue)

	require.Len(t, summary.Groups, 2)
	assert.Equal(t, model.GroupDomesticEquity, summary.Groups[0].Group)
	assert.True(t, summary.Groups[0].Value.Equal(dec("3300")))
	assert.Equal(t, model.GroupDomesticReit, summary.Groups[1].Group)
	assert.True(t, summary.Groups[1].Value.Equal(dec("950")))

	// the logistics FII lands on the property-backed side
	require.Len(t, summary.FiiBroad, 1)
	assert.Equal(t, model.FiiPropertyBacked, summary.FiiBroad[0].Name)
	assert.True(t, summary.FiiBroad[0].Value.Equal(dec("950")))
	assert.True(t, summary.FiiBroad[0].Percent.Equal(dec("100")))

	// everything here is domestic
	require.Len(t, summary.DomesticIntl, 1)
	assert.Equal(t, "Brasil", summary.DomesticIntl[0].Name)
}

func TestAggregatePercentagesSumToHundred(t *testing.T) {
	positions := []model.Position{
		equityPos(1, "100", "30.00", "33.00"),
		{ID: 2, AssetClass: model.ClassCrypto, Quantity: dec("0.5"), AvgCost: dec("200000"), CurrentPrice: dec("180000")},
		{ID: 3, AssetClass: model.ClassFixedIncome, Indexer: "120% CDI", Quantity: dec("1"), AvgCost: dec("10042.55")},
		{ID: 4, AssetClass: model.ClassInternational, Quantity: dec("2"), AvgCost: dec("100"), CurrentPrice: dec("120"), CurrencyRate: dec("5.5")},
	}

	summary := Aggregate(positions, today)
	require.True(t, summary.TotalValue.IsPositive())

	sum := decimal.Zero
	for _, g := range summary.Groups {
		sum = sum.Add(g.Percent)
	}
	assert.True(t, sum.Sub(dec("100")).Abs().LessThan(dec("0.0001")), "group percents sum to %s", sum)

	sum = decimal.Zero
	for _, b := range summary.ByMaturity {
		sum = sum.Add(b.Percent)
	}
	assert.True(t, sum.Sub(dec("100")).Abs().LessThan(dec("0.0001")), "tier percents sum to %s", sum)

	sum = decimal.Zero
	for _, b := range summary.DomesticIntl {
		sum = sum.Add(b.Percent)
	}
	assert.True(t, sum.Sub(dec("100")).Abs().LessThan(dec("0.0001")), "region percents sum to %s", sum)
}

func TestAggregateEmptyPortfolio(t *testing.T) {
	summary := Aggregate(nil, today)

	assert.True(t, summary.TotalValue.IsZero())
	assert.Empty(t, summary.Groups)
	assert.Empty(t, summary.ByMaturity)
	assert.Empty(t, summary.DomesticIntl)
	assert.Zero(t, summary.PositionCount)
}

func TestAggregateZeroTotalYieldsZeroPercents(t *testing.T) {
	// fully exited position kept for history: quantity 0
	positions := []model.Position{equityPos(1, "0", "30.00", "33.00")}

	summary := Aggregate(positions, today)

	assert.True(t, summary.TotalValue.IsZero())
	for _, g := range summary.Groups {
		assert.True(t, g.Percent.IsZero())
	}
}

func TestAggregateInternationalConversion(t *testing.T) {
	positions := []model.Position{
		{ID: 1, AssetClass: model.ClassInternational, Quantity: dec("1"), AvgCost: dec("100"), CurrentPrice: dec("120.49"), CurrencyRate: dec("5.5")},
	}

	summary := Aggregate(positions, today)

	// 120.49 USD * 5.5 BRL/USD
	assert.True(t, summary.TotalValue.Equal(dec("662.695")), "total = %s", summary.TotalValue)
	require.Len(t, summary.DomesticIntl, 1)
	assert.Equal(t, "Internacional", summary.DomesticIntl[0].Name)
}

func TestAggregateIntlEtfCountsAsInternational(t *testing.T) {
	positions := []model.Position{
		{ID: 1, AssetClass: model.ClassEtf, IntlEtf: true, Quantity: dec("10"), AvgCost: dec("50"), CurrentPrice: dec("60")},
		equityPos(2, "10", "10", "10"),
	}

	summary := Aggregate(positions, today)

	require.Len(t, summary.DomesticIntl, 2)
	byName := map[string]decimal.Decimal{}
	for _, b := range summary.DomesticIntl {
		byName[b.Name] = b.Value
	}
	assert.True(t, byName["Internacional"].Equal(dec("600")))
	assert.True(t, byName["Brasil"].Equal(dec("100")))
}

func TestAggregateDropsDustFromBreakdownsButNotTotals(t *testing.T) {
	positions := []model.Position{
		equityPos(1, "100", "30.00", "33.00"),
		{ID: 2, AssetClass: model.ClassCrypto, Quantity: dec("0.000001"), AvgCost: dec("100"), CurrentPrice: dec("100")},
	}

	summary := Aggregate(positions, today)

	for _, g := range summary.Groups {
		assert.NotEqual(t, model.GroupCrypto, g.Group)
	}
	// dust still counted in the total
	assert.True(t, summary.TotalValue.Equal(dec("3300.0001")), "total = %s", summary.TotalValue)
}

func TestAggregateIsIdempotent(t *testing.T) {
	positions := []model.Position{
		equityPos(1, "100", "30.00", "33.00"),
		{ID: 2, AssetClass: model.ClassFixedIncome, Indexer: "IPCA", Quantity: dec("1"), AvgCost: dec("1991.85"), MaturityDate: maturityIn(30 * 365)},
	}

	first := Aggregate(positions, today)
	second := Aggregate(positions, today)

	assert.Equal(t, first, second)
}

func TestAggregateNestsTiersUnderGroups(t *testing.T) {
	positions := []model.Position{
		{ID: 1, AssetClass: model.ClassFixedIncome, Indexer: "CDI", Quantity: dec("1"), AvgCost: dec("1000"), MaturityDate: maturityIn(365)},
		{ID: 2, AssetClass: model.ClassFixedIncome, Indexer: "CDI", Quantity: dec("1"), AvgCost: dec("2000"), MaturityDate: maturityIn(10 * 365)},
		{ID: 3, AssetClass: model.ClassFixedIncome, Indexer: "CDI", Quantity: dec("1"), AvgCost: dec("4000")},
	}

	summary := Aggregate(positions, today)

	require.Len(t, summary.Groups, 1)
	group := summary.Groups[0]
	assert.Equal(t, model.GroupFixedIncomeFloating, group.Group)
	require.Len(t, group.ByTier, 3)
	assert.Equal(t, string(model.TierShort), group.ByTier[0].Name)
	assert.Equal(t, string(model.TierLong), group.ByTier[1].Name)
	assert.Equal(t, string(model.TierUndefined), group.ByTier[2].Name)

	require.Len(t, summary.ByMaturity, 3)
}

func TestWeightsAreScopedToTheGivenSubset(t *testing.T) {
	all := []model.Position{
		equityPos(1, "10", "10", "30"), // 300
		equityPos(2, "10", "10", "10"), // 100
		{ID: 3, AssetClass: model.ClassReit, Quantity: dec("10"), AvgCost: dec("50"), CurrentPrice: dec("60")}, // 600
	}

	// weights within the equities-only view ignore the REIT
	equitiesOnly := Weights(all[:2])
	assert.True(t, equitiesOnly[1].Equal(dec("75")))
	assert.True(t, equitiesOnly[2].Equal(dec("25")))

	whole := Weights(all)
	assert.True(t, whole[1].Equal(dec("30")))
	assert.True(t, whole[3].Equal(dec("60")))
}

func TestWeightsZeroTotal(t *testing.T) {
	weights := Weights([]model.Position{equityPos(1, "0", "10", "10")})
	assert.True(t, weights[1].IsZero())
}
