package valuation

import (
	"github.com/pbaptista/carteira_helper/internal/model"
	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// Value computes the monetary figures for one position. Pure, no I/O.
//
// A position whose price has never been refreshed (CurrentPrice == 0) is
// valued at average cost rather than zero.
//
// DayGain reconstructs the previous close from today's price and the change
// percent: prevClose = price / (1 + change/100). The provider's change basis
// can differ slightly from the position's price basis.
func Value(p model.Position) model.Valuation {
	v := model.Valuation{}

	v.Invested = p.Quantity.Mul(p.AvgCost)

	price := p.CurrentPrice
	if !price.IsPositive() {
		price = p.AvgCost
	}
	v.Current = p.Quantity.Mul(price)

	v.Profit = v.Current.Sub(v.Invested)
	if v.Invested.IsPositive() {
		v.ProfitPercent = v.Profit.Div(v.Invested).Mul(hundred)
	}

	if !p.ChangePercent.IsZero() && p.CurrentPrice.IsPositive() {
		// a change of exactly -100% makes the previous close unrecoverable
		denom := decimal.NewFromInt(1).Add(p.ChangePercent.Div(hundred))
		if !denom.IsZero() {
			prevClose := p.CurrentPrice.Div(denom)
			v.DayGain = p.Quantity.Mul(p.CurrentPrice.Sub(prevClose))
		}
	}

	return v
}
