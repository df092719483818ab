package dbConverter

import (
	"github.com/pbaptista/carteira_helper/internal/model"
	"github.com/pbaptista/carteira_helper/internal/model/dbModel"
)

func ConvertPosition(dbPos dbModel.Position) model.Position {
	return model.Position{
		ID:            dbPos.ID,
		OwnerID:       dbPos.OwnerID,
		Ticker:        dbPos.Ticker,
		Name:          dbPos.Name,
		AssetClass:    model.AssetClass(dbPos.AssetClass),
		Quantity:      dbPos.Quantity,
		AvgCost:       dbPos.AvgCost,
		CurrentPrice:  dbPos.CurrentPrice,
		ChangePercent: dbPos.ChangePercent,
		LastUpdate:    dbPos.LastUpdate,
		EntryDate:     dbPos.EntryDate,
		Sector:        dbPos.Sector,
		Indexer:       dbPos.Indexer,
		MaturityDate:  dbPos.MaturityDate,
		PensionType:   model.PensionType(dbPos.PensionType),
		CurrencyRate:  dbPos.CurrencyRate,
		IntlEtf:       dbPos.IntlEtf,
	}
}
