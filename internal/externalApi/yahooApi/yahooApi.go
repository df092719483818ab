package yahooApi

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/go-resty/resty/v2"
	"github.com/pbaptista/carteira_helper/config"
	"github.com/pbaptista/carteira_helper/internal/externalApi"
	"github.com/pbaptista/carteira_helper/internal/model"
	"github.com/pbaptista/carteira_helper/internal/model/yahooModel"
	"github.com/pbaptista/carteira_helper/utils"
	"github.com/shopspring/decimal"
)

const source = "yahoo"

type YahooApi struct {
	client *resty.Client
}

func New(cfg *config.Config) *YahooApi {
	client := resty.New().
		SetDebug(cfg.API.Debug).
		SetTimeout(cfg.API.Timeout).
		SetBaseURL(cfg.API.YahooApi.Url).
		SetHeader("User-Agent", cfg.API.YahooApi.UserAgent)
	return &YahooApi{client: client}
}

// GetQuotes issues one bulk request for the whole symbol set. Symbols absent
// from the response are simply missing from the returned map.
func (a *YahooApi) GetQuotes(ctx context.Context, symbols []string) (map[string]model.QuoteResult, error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "YahooApi.GetQuotes"
	url := "/v7/finance/quote"
	params := map[string]string{
		"symbols": strings.Join(symbols, ","),
		"range":   "5d",
	}

	slog.Debug("GetQuotes start", slog.String("rqID", rqID), slog.String("op", op), slog.Any("symbols", symbols))

	resp, err := a.client.R().
		SetHeader("Accept", "application/json").
		SetQueryParams(params).
		SetContext(ctx).
		Get(url)

	if err != nil {
		slog.Error("error while dialing YahooApi", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return nil, err
	}

	raw := yahooModel.RawBulkQuotes{}
	err = json.Unmarshal(resp.Body(), &raw)
	if err != nil {
		slog.Error("can't unmarshall response into yahooModel.RawBulkQuotes", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return nil, err
	}

	res := make(map[string]model.QuoteResult, len(raw.QuoteResponse.Result))
	for _, rawQuote := range raw.QuoteResponse.Result {
		quote, err := parseRawQuote(rawQuote)
		if err != nil {
			// malformed entry degrades to "missing" for that symbol only
			slog.Warn("skipping malformed quote entry", slog.String("rqID", rqID), slog.String("op", op), slog.String("symbol", rawQuote.Symbol), slog.String("err", err.Error()))
			continue
		}
		res[rawQuote.Symbol] = quote
	}

	slog.Debug("GetQuotes completed", slog.String("rqID", rqID), slog.String("op", op), slog.Int("resolved", len(res)))

	return res, nil
}

// GetQuote fetches a single symbol through the chart endpoint, which is more
// forgiving than the bulk one for singleton and recently listed symbols.
func (a *YahooApi) GetQuote(ctx context.Context, symbol string) (model.QuoteResult, error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "YahooApi.GetQuote"
	url := fmt.Sprintf("/v8/finance/chart/%s", symbol)

	slog.Debug("GetQuote start", slog.String("rqID", rqID), slog.String("op", op), slog.String("symbol", symbol))

	resp, err := a.client.R().
		SetHeader("Accept", "application/json").
		SetContext(ctx).
		Get(url)

	if err != nil {
		slog.Error("error while dialing YahooApi", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return model.QuoteResult{}, err
	}

	raw := yahooModel.RawChart{}
	err = json.Unmarshal(resp.Body(), &raw)
	if err != nil {
		slog.Error("can't unmarshall response into yahooModel.RawChart", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return model.QuoteResult{}, err
	}

	if len(raw.Chart.Result) == 0 {
		return model.QuoteResult{}, externalApi.ErrNotFound
	}

	meta := raw.Chart.Result[0].Meta
	if meta.RegularMarketPrice == nil || *meta.RegularMarketPrice <= 0 {
		return model.QuoteResult{}, externalApi.ErrNotFound
	}

	quote := model.QuoteResult{
		Price:         decimal.NewFromFloat(*meta.RegularMarketPrice),
		ChangePercent: changeFromPrevClose(*meta.RegularMarketPrice, meta.ChartPreviousClose),
		Source:        source,
	}

	slog.Debug("GetQuote completed", slog.String("rqID", rqID), slog.String("op", op), slog.String("symbol", symbol))

	return quote, nil
}

func parseRawQuote(raw yahooModel.RawQuote) (model.QuoteResult, error) {
	if raw.Symbol == "" {
		return model.QuoteResult{}, fmt.Errorf("quote entry without symbol")
	}

	if raw.RegularMarketPrice == nil || *raw.RegularMarketPrice <= 0 {
		return model.QuoteResult{}, fmt.Errorf("no positive price for %s", raw.Symbol)
	}

	quote := model.QuoteResult{
		Price:  decimal.NewFromFloat(*raw.RegularMarketPrice),
		Source: source,
	}

	if raw.RegularMarketChangePercent != nil {
		quote.ChangePercent = decimal.NewFromFloat(*raw.RegularMarketChangePercent)
		return quote, nil
	}

	quote.ChangePercent = changeFromPrevClose(*raw.RegularMarketPrice, raw.RegularMarketPreviousClose)
	return quote, nil
}

// changeFromPrevClose derives the day change from the previous available
// price point; with no previous point the change is 0, not an error.
func changeFromPrevClose(price float64, prevClose *float64) decimal.Decimal {
	if prevClose == nil || *prevClose <= 0 {
		return decimal.Zero
	}
	p := decimal.NewFromFloat(price)
	prev := decimal.NewFromFloat(*prevClose)
	return p.Sub(prev).Div(prev).Mul(decimal.NewFromInt(100))
}
