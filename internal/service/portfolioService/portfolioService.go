package portfolioService

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/pbaptista/carteira_helper/config"
	"github.com/pbaptista/carteira_helper/internal/allocation"
	"github.com/pbaptista/carteira_helper/internal/model"
	"github.com/pbaptista/carteira_helper/internal/quote"
	"github.com/pbaptista/carteira_helper/internal/service"
	"github.com/pbaptista/carteira_helper/internal/valuation"
	"github.com/pbaptista/carteira_helper/utils"
	"github.com/shopspring/decimal"
)

type Repository interface {
	GetPositions(ctx context.Context, ownerID int64) ([]model.Position, error)
	GetPositionsByClass(ctx context.Context, ownerID int64, class model.AssetClass) ([]model.Position, error)
	SavePriceUpdate(ctx context.Context, positionID int64, price, changePercent decimal.Decimal, ts time.Time) error
	GetOwnerIDs(ctx context.Context) ([]int64, error)
	InsertRefreshToHistory(ctx context.Context, ownerID int64, report model.RefreshReport) error
}

type Cache interface {
	SetQuotes(ctx context.Context, quotes map[string]model.QuoteResult) error
	GetQuote(ctx context.Context, ticker string) (model.QuoteResult, error)
	GetSummary(ctx context.Context, ownerID int64) (model.AllocationSummary, error)
	SetSummary(ctx context.Context, ownerID int64, summary model.AllocationSummary) error
	FlushSummary(ctx context.Context, ownerID int64) error
}

type QuoteEngine interface {
	Fetch(ctx context.Context, requests []quote.Request) map[string]model.QuoteResult
}

type ReportGenerator interface {
	Generate(ctx context.Context, summary model.AllocationSummary, positions []model.PositionView) (fileBytes []byte, fileExtension string, err error)
}

type CloudStorage interface {
	UploadFile(ctx context.Context, file []byte, filename string) (link string, err error)
}

type PortfolioService struct {
	cfg          *config.Config
	repo         Repository
	cache        Cache
	engine       QuoteEngine
	reportGen    ReportGenerator
	cloudStorage CloudStorage
}

func New(
	cfg *config.Config,
	repo Repository,
	cache Cache,
	engine QuoteEngine,
	reportGen ReportGenerator,
	cloudStorage CloudStorage,
) *PortfolioService {
	return &PortfolioService{
		cfg:          cfg,
		repo:         repo,
		cache:        cache,
		engine:       engine,
		reportGen:    reportGen,
		cloudStorage: cloudStorage,
	}
}

// RefreshPrices pulls fresh quotes for every quotable position of the owner
// and persists whatever resolved. Tickers with a live cache entry are served
// from the cache and skip the provider entirely. A partially failed refresh
// is still a successful refresh: failures are reported, never returned as an
// error.
func (s *PortfolioService) RefreshPrices(ctx context.Context, ownerID int64) (report model.RefreshReport, err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "PortfolioService.RefreshPrices"

	slog.Debug("RefreshPrices start", slog.String("rqID", rqID), slog.String("op", op), slog.Int64("ownerID", ownerID))
	defer func() {
		slog.Debug("RefreshPrices finished", slog.String("rqID", rqID), slog.String("op", op), slog.Int64("ownerID", ownerID))
	}()

	ctx, cancel := context.WithTimeout(ctx, s.cfg.Quote.RefreshTimeout)
	defer cancel()

	positions, err := s.repo.GetPositions(ctx, ownerID)
	if err != nil {
		slog.Error("got error from repo.GetPositions", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return model.RefreshReport{}, err
	}

	requests := make([]quote.Request, 0, len(positions))
	byTicker := make(map[string][]model.Position)
	for _, p := range positions {
		if !p.AssetClass.Quotable() || !p.Quantity.IsPositive() {
			continue
		}
		if _, seen := byTicker[p.Ticker]; !seen {
			requests = append(requests, quote.Request{Ticker: p.Ticker, Class: p.AssetClass})
		}
		byTicker[p.Ticker] = append(byTicker[p.Ticker], p)
	}

	report.Attempted = len(requests)

	quotes := make(map[string]model.QuoteResult, len(requests))
	toFetch := make([]quote.Request, 0, len(requests))
	for _, req := range requests {
		if cached, err := s.cache.GetQuote(ctx, req.Ticker); err == nil {
			quotes[req.Ticker] = cached
			continue
		}
		toFetch = append(toFetch, req)
	}

	var fetched map[string]model.QuoteResult
	if len(toFetch) > 0 {
		fetched = s.engine.Fetch(ctx, toFetch)
		for ticker, q := range fetched {
			quotes[ticker] = q
		}
	}

	now := time.Now()
	for ticker, q := range quotes {
		for _, p := range byTicker[ticker] {
			err := s.repo.SavePriceUpdate(ctx, p.ID, q.Price, q.ChangePercent, now)
			if err != nil {
				slog.Error(
					"got error from repo.SavePriceUpdate",
					slog.String("rqID", rqID),
					slog.String("op", op),
					slog.String("ticker", ticker),
					slog.String("err", err.Error()),
				)
				continue
			}
			report.Updated++
		}
	}

	for _, req := range requests {
		if _, ok := quotes[req.Ticker]; !ok {
			report.FailedTickers = append(report.FailedTickers, req.Ticker)
		}
	}

	if len(fetched) > 0 {
		go s.cache.SetQuotes(context.WithoutCancel(ctx), fetched)
	}

	if len(quotes) > 0 {
		// flushed synchronously so the next summary read never sees stale prices
		err = s.cache.FlushSummary(ctx, ownerID)
		if err != nil {
			slog.Error("got error from cache.FlushSummary", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		}
	}

	// every run lands in the history, including "nothing to refresh" ones
	go s.saveRefreshToHistory(context.WithoutCancel(ctx), ownerID, report)

	return report, nil
}

func (s *PortfolioService) saveRefreshToHistory(ctx context.Context, ownerID int64, report model.RefreshReport) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "PortfolioService.saveRefreshToHistory"

	err := s.repo.InsertRefreshToHistory(ctx, ownerID, report)
	if err != nil {
		slog.Error("got error from repo.InsertRefreshToHistory", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
	}
}

// RefreshAll refreshes every owner that holds at least one position. One
// owner failing does not stop the rest.
func (s *PortfolioService) RefreshAll(ctx context.Context) error {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "PortfolioService.RefreshAll"

	slog.Debug("RefreshAll start", slog.String("rqID", rqID), slog.String("op", op))
	defer func() {
		slog.Debug("RefreshAll finished", slog.String("rqID", rqID), slog.String("op", op))
	}()

	ownerIDs, err := s.repo.GetOwnerIDs(ctx)
	if err != nil {
		slog.Error("got error from repo.GetOwnerIDs", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return err
	}

	for _, ownerID := range ownerIDs {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		report, err := s.RefreshPrices(ctx, ownerID)
		if err != nil {
			slog.Error(
				"got error from RefreshPrices",
				slog.String("rqID", rqID),
				slog.String("op", op),
				slog.Int64("ownerID", ownerID),
				slog.String("err", err.Error()),
			)
			continue
		}

		slog.Info(
			"owner refreshed",
			slog.String("rqID", rqID),
			slog.String("op", op),
			slog.Int64("ownerID", ownerID),
			slog.Int("attempted", report.Attempted),
			slog.Int("updated", report.Updated),
			slog.Any("failedTickers", report.FailedTickers),
		)
	}

	return nil
}

func (s *PortfolioService) GetSummary(ctx context.Context, ownerID int64) (summary model.AllocationSummary, err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "PortfolioService.GetSummary"

	slog.Debug("GetSummary start", slog.String("rqID", rqID), slog.String("op", op), slog.Int64("ownerID", ownerID))
	defer func() {
		slog.Debug("GetSummary finished", slog.String("rqID", rqID), slog.String("op", op), slog.Int64("ownerID", ownerID))
	}()

	summary, err = s.cache.GetSummary(ctx, ownerID)
	if err == nil {
		return summary, nil
	}

	slog.Warn("can't get summary from cache", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))

	positions, err := s.repo.GetPositions(ctx, ownerID)
	if err != nil {
		slog.Error("got error from repo.GetPositions", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return model.AllocationSummary{}, err
	}

	summary = allocation.Aggregate(positions, time.Now())

	go s.cache.SetSummary(context.WithoutCancel(ctx), ownerID, summary)

	return summary, nil
}

// GetPositionsView returns positions enriched with valuation and weight.
// Weights are relative to the returned set: filtering by class yields weights
// within that class, not within the whole portfolio.
func (s *PortfolioService) GetPositionsView(ctx context.Context, ownerID int64, class model.AssetClass) (views []model.PositionView, err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "PortfolioService.GetPositionsView"

	slog.Debug("GetPositionsView start", slog.String("rqID", rqID), slog.String("op", op), slog.Int64("ownerID", ownerID), slog.String("class", string(class)))
	defer func() {
		slog.Debug("GetPositionsView finished", slog.String("rqID", rqID), slog.String("op", op), slog.Int64("ownerID", ownerID))
	}()

	var positions []model.Position
	if class != "" {
		positions, err = s.repo.GetPositionsByClass(ctx, ownerID, class)
	} else {
		positions, err = s.repo.GetPositions(ctx, ownerID)
	}
	if err != nil {
		slog.Error("got error from repo", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return nil, err
	}

	weights := allocation.Weights(positions)

	views = make([]model.PositionView, 0, len(positions))
	for _, p := range positions {
		views = append(views, model.PositionView{
			Position:  p,
			Valuation: valuation.Value(p),
			Weight:    weights[p.ID],
		})
	}

	return views, nil
}

// GenerateAllocationReport builds the xlsx allocation report and uploads it
// to cloud storage, returning the shareable link.
func (s *PortfolioService) GenerateAllocationReport(ctx context.Context, ownerID int64) (link string, err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "PortfolioService.GenerateAllocationReport"

	slog.Debug("GenerateAllocationReport start", slog.String("rqID", rqID), slog.String("op", op), slog.Int64("ownerID", ownerID))
	defer func() {
		slog.Debug("GenerateAllocationReport finished", slog.String("rqID", rqID), slog.String("op", op), slog.Int64("ownerID", ownerID))
	}()

	views, err := s.GetPositionsView(ctx, ownerID, "")
	if err != nil {
		return "", err
	}

	if len(views) == 0 {
		return "", service.ErrNoPositions
	}

	summary, err := s.GetSummary(ctx, ownerID)
	if err != nil {
		return "", err
	}

	fileBytes, ext, err := s.reportGen.Generate(ctx, summary, views)
	if err != nil {
		slog.Error("got error from reportGen.Generate", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return "", err
	}

	filename := fmt.Sprintf("carteira_%d_%s%s", ownerID, time.Now().Format("2006-01-02_15-04-05"), ext)

	link, err = s.cloudStorage.UploadFile(ctx, fileBytes, filename)
	if err != nil {
		slog.Error("got error from cloudStorage.UploadFile", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return "", err
	}

	return link, nil
}
