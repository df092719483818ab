package xlsxGenerator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/pbaptista/carteira_helper/internal/model"
	"github.com/pbaptista/carteira_helper/utils"
	"github.com/xuri/excelize/v2"
)

type XLSXGenerator struct{}

func New() *XLSXGenerator {
	return &XLSXGenerator{}
}

func (g *XLSXGenerator) Generate(ctx context.Context, summary model.AllocationSummary, positions []model.PositionView) (fileBytes []byte, fileExtension string, err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "XLSXGenerator.Generate"

	if len(positions) == 0 {
		return nil, "", errors.New("empty positions")
	}

	slog.Debug("Generate start", slog.String("rqID", rqID), slog.String("op", op))

	f := excelize.NewFile()
	defer func() {
		if err := f.Close(); err != nil {
			slog.Error("got error while closing file", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		}
	}()

	if err := g.fillAllocationSheet(f, summary); err != nil {
		return nil, "", err
	}

	if err := g.fillPositionsSheet(f, positions); err != nil {
		return nil, "", err
	}

	if err := f.DeleteSheet("Sheet1"); err != nil {
		slog.Error("got error while deleting Sheet1", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		slog.Error("got error while Saving file to bytes buffer", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return nil, "", err
	}

	slog.Debug("Generate completed", slog.String("rqID", rqID), slog.String("op", op))

	return buf.Bytes(), ".xlsx", nil
}

func headerStyle(f *excelize.File, color string) (int, error) {
	return f.NewStyle(&excelize.Style{
		Alignment: &excelize.Alignment{
			Horizontal: "center",
			Vertical:   "center",
		},
		Font: &excelize.Font{
			Bold: true,
			Size: 11,
		},
		Fill: excelize.Fill{
			Type:    "pattern",
			Pattern: 1,
			Color:   []string{color},
		},
	})
}

func (g *XLSXGenerator) sectionHeader(f *excelize.File, sheetName, from, to, title, color string) error {
	if err := f.MergeCell(sheetName, from, to); err != nil {
		return err
	}

	f.SetCellValue(sheetName, from, title)

	styleID, err := headerStyle(f, color)
	if err != nil {
		return err
	}

	if err := f.SetCellStyle(sheetName, from, from, styleID); err != nil {
		return fmt.Errorf("failed applying style: %w", err)
	}

	return nil
}

func (g *XLSXGenerator) fillAllocationSheet(f *excelize.File, summary model.AllocationSummary) error {
	sheetName := "Alocação"
	_, err := f.NewSheet(sheetName)
	if err != nil {
		return err
	}

	// per-group allocation
	if err := g.sectionHeader(f, sheetName, "A1", "C1", "Alocação por grupo", "#cfe2f3"); err != nil {
		return err
	}

	_ = f.SetCellStr(sheetName, "A2", "grupo")
	_ = f.SetCellStr(sheetName, "B2", "valor")
	_ = f.SetCellStr(sheetName, "C2", "%")

	row := 3
	for _, group := range summary.Groups {
		_ = f.SetCellStr(sheetName, fmt.Sprintf("A%d", row), string(group.Group))
		_ = f.SetCellValue(sheetName, fmt.Sprintf("B%d", row), group.Value.InexactFloat64())
		_ = f.SetCellValue(sheetName, fmt.Sprintf("C%d", row), group.Percent.InexactFloat64())
		row++
	}

	_ = f.SetCellStr(sheetName, fmt.Sprintf("A%d", row), "Total")
	_ = f.SetCellValue(sheetName, fmt.Sprintf("B%d", row), summary.TotalValue.InexactFloat64())

	// maturity tiers
	if err := g.sectionHeader(f, sheetName, "E1", "G1", "Por prazo", "#d9ead3"); err != nil {
		return err
	}

	_ = f.SetCellStr(sheetName, "E2", "prazo")
	_ = f.SetCellStr(sheetName, "F2", "valor")
	_ = f.SetCellStr(sheetName, "G2", "%")

	row = 3
	for _, bucket := range summary.ByMaturity {
		_ = f.SetCellStr(sheetName, fmt.Sprintf("E%d", row), bucket.Name)
		_ = f.SetCellValue(sheetName, fmt.Sprintf("F%d", row), bucket.Value.InexactFloat64())
		_ = f.SetCellValue(sheetName, fmt.Sprintf("G%d", row), bucket.Percent.InexactFloat64())
		row++
	}

	// domestic vs international
	if err := g.sectionHeader(f, sheetName, "I1", "K1", "Brasil x Internacional", "#f9cb9c"); err != nil {
		return err
	}

	_ = f.SetCellStr(sheetName, "I2", "região")
	_ = f.SetCellStr(sheetName, "J2", "valor")
	_ = f.SetCellStr(sheetName, "K2", "%")

	row = 3
	for _, bucket := range summary.DomesticIntl {
		_ = f.SetCellStr(sheetName, fmt.Sprintf("I%d", row), bucket.Name)
		_ = f.SetCellValue(sheetName, fmt.Sprintf("J%d", row), bucket.Value.InexactFloat64())
		_ = f.SetCellValue(sheetName, fmt.Sprintf("K%d", row), bucket.Percent.InexactFloat64())
		row++
	}

	// FIIs Tijolo x Papel
	if len(summary.FiiBroad) > 0 {
		if err := g.sectionHeader(f, sheetName, "M1", "O1", "FIIs Tijolo x Papel", "#f4cccc"); err != nil {
			return err
		}

		_ = f.SetCellStr(sheetName, "M2", "tipo")
		_ = f.SetCellStr(sheetName, "N2", "valor")
		_ = f.SetCellStr(sheetName, "O2", "%")

		row = 3
		for _, bucket := range summary.FiiBroad {
			_ = f.SetCellStr(sheetName, fmt.Sprintf("M%d", row), bucket.Name)
			_ = f.SetCellValue(sheetName, fmt.Sprintf("N%d", row), bucket.Value.InexactFloat64())
			_ = f.SetCellValue(sheetName, fmt.Sprintf("O%d", row), bucket.Percent.InexactFloat64())
			row++
		}
	}

	return nil
}

func (g *XLSXGenerator) fillPositionsSheet(f *excelize.File, positions []model.PositionView) error {
	sheetName := "Posições"
	_, err := f.NewSheet(sheetName)
	if err != nil {
		return err
	}

	if err := g.sectionHeader(f, sheetName, "A1", "I1", "Posições", "#cccccc"); err != nil {
		return err
	}

	_ = f.SetCellStr(sheetName, "A2", "ativo")
	_ = f.SetCellStr(sheetName, "B2", "classe")
	_ = f.SetCellStr(sheetName, "C2", "quantidade")
	_ = f.SetCellStr(sheetName, "D2", "preço médio")
	_ = f.SetCellStr(sheetName, "E2", "preço atual")
	_ = f.SetCellStr(sheetName, "F2", "valor atual")
	_ = f.SetCellStr(sheetName, "G2", "lucro")
	_ = f.SetCellStr(sheetName, "H2", "lucro %")
	_ = f.SetCellStr(sheetName, "I2", "peso %")

	for i, view := range positions {
		row := i + 3
		_ = f.SetCellStr(sheetName, fmt.Sprintf("A%d", row), view.Ticker)
		_ = f.SetCellStr(sheetName, fmt.Sprintf("B%d", row), string(view.AssetClass))
		_ = f.SetCellValue(sheetName, fmt.Sprintf("C%d", row), view.Quantity.InexactFloat64())
		_ = f.SetCellValue(sheetName, fmt.Sprintf("D%d", row), view.AvgCost.InexactFloat64())
		_ = f.SetCellValue(sheetName, fmt.Sprintf("E%d", row), view.CurrentPrice.InexactFloat64())
		_ = f.SetCellValue(sheetName, fmt.Sprintf("F%d", row), view.Valuation.Current.InexactFloat64())
		_ = f.SetCellValue(sheetName, fmt.Sprintf("G%d", row), view.Valuation.Profit.InexactFloat64())
		_ = f.SetCellValue(sheetName, fmt.Sprintf("H%d", row), view.Valuation.ProfitPercent.InexactFloat64())
		_ = f.SetCellValue(sheetName, fmt.Sprintf("I%d", row), view.Weight.InexactFloat64())
	}

	return nil
}
