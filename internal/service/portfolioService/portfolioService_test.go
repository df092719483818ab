package portfolioService

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/pbaptista/carteira_helper/config"
	"github.com/pbaptista/carteira_helper/internal/model"
	"github.com/pbaptista/carteira_helper/internal/quote"
	"github.com/pbaptista/carteira_helper/internal/service"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRepo struct {
	mu            sync.Mutex
	positions     []model.Position
	ownerIDs      []int64
	getErr        error
	savedPrices   map[int64]decimal.Decimal
	historyOwners []int64
}

func (r *fakeRepo) GetPositions(_ context.Context, _ int64) ([]model.Position, error) {
	return r.positions, r.getErr
}

func (r *fakeRepo) GetPositionsByClass(_ context.Context, _ int64, class model.AssetClass) ([]model.Position, error) {
	var out []model.Position
	for _, p := range r.positions {
		if p.AssetClass == class {
			out = append(out, p)
		}
	}
	return out, r.getErr
}

func (r *fakeRepo) SavePriceUpdate(_ context.Context, positionID int64, price, _ decimal.Decimal, _ time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.savedPrices == nil {
		r.savedPrices = make(map[int64]decimal.Decimal)
	}
	r.savedPrices[positionID] = price
	return nil
}

func (r *fakeRepo) GetOwnerIDs(_ context.Context) ([]int64, error) {
	return r.ownerIDs, nil
}

func (r *fakeRepo) InsertRefreshToHistory(_ context.Context, ownerID int64, _ model.RefreshReport) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.historyOwners = append(r.historyOwners, ownerID)
	return nil
}

type fakeCache struct {
	mu           sync.Mutex
	summary      model.AllocationSummary
	summaryErr   error
	setSummaries int
	flushed      []int64
	quoteSets    int
	quotes       map[string]model.QuoteResult
}

func (c *fakeCache) SetQuotes(_ context.Context, _ map[string]model.QuoteResult) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.quoteSets++
	return nil
}

func (c *fakeCache) GetQuote(_ context.Context, ticker string) (model.QuoteResult, error) {
	if q, ok := c.quotes[ticker]; ok {
		return q, nil
	}
	return model.QuoteResult{}, errors.New("cache miss")
}

func (c *fakeCache) GetSummary(_ context.Context, _ int64) (model.AllocationSummary, error) {
	return c.summary, c.summaryErr
}

func (c *fakeCache) SetSummary(_ context.Context, _ int64, _ model.AllocationSummary) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.setSummaries++
	return nil
}

func (c *fakeCache) FlushSummary(_ context.Context, ownerID int64) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.flushed = append(c.flushed, ownerID)
	return nil
}

type fakeEngine struct {
	mu       sync.Mutex
	requests [][]quote.Request
	result   map[string]model.QuoteResult
}

func (e *fakeEngine) Fetch(_ context.Context, requests []quote.Request) map[string]model.QuoteResult {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.requests = append(e.requests, requests)
	return e.result
}

type fakeReportGen struct {
	err error
}

func (g *fakeReportGen) Generate(_ context.Context, _ model.AllocationSummary, _ []model.PositionView) ([]byte, string, error) {
	if g.err != nil {
		return nil, "", g.err
	}
	return []byte("xlsx"), ".xlsx", nil
}

type fakeCloudStorage struct {
	link string
	err  error
}

func (s *fakeCloudStorage) UploadFile(_ context.Context, _ []byte, _ string) (string, error) {
	return s.link, s.err
}

func dec(s string) decimal.Decimal {
	d, _ := decimal.NewFromString(s)
	return d
}

func testService(repo *fakeRepo, cache *fakeCache, engine *fakeEngine) *PortfolioService {
	cfg := &config.Config{}
	cfg.Quote.RefreshTimeout = time.Second
	return New(cfg, repo, cache, engine, &fakeReportGen{}, &fakeCloudStorage{link: "https://drive.example/report"})
}

func TestRefreshPricesPartialFailureIsNotAnError(t *testing.T) {
	repo := &fakeRepo{positions: []model.Position{
		{ID: 1, Ticker: "PETR4", AssetClass: model.ClassEquity, Quantity: dec("10")},
		{ID: 2, Ticker: "VALE3", AssetClass: model.ClassEquity, Quantity: dec("5")},
	}}
	cache := &fakeCache{}
	engine := &fakeEngine{result: map[string]model.QuoteResult{
		"PETR4": {Ticker: "PETR4", Price: dec("38.50")},
	}}

	report, err := testService(repo, cache, engine).RefreshPrices(context.Background(), 7)

	require.NoError(t, err)
	assert.Equal(t, 2, report.Attempted)
	assert.Equal(t, 1, report.Updated)
	assert.Equal(t, []string{"VALE3"}, report.FailedTickers)

	repo.mu.Lock()
	defer repo.mu.Unlock()
	assert.True(t, repo.savedPrices[1].Equal(dec("38.50")))
	_, saved := repo.savedPrices[2]
	assert.False(t, saved)
}

func TestRefreshPricesSkipsNonQuotableAndEmptyPositions(t *testing.T) {
	repo := &fakeRepo{positions: []model.Position{
		{ID: 1, Ticker: "CDB XP", AssetClass: model.ClassFixedIncome, Quantity: dec("1")},
		{ID: 2, Ticker: "PETR4", AssetClass: model.ClassEquity, Quantity: dec("0")},
		{ID: 3, Ticker: "VALE3", AssetClass: model.ClassEquity, Quantity: dec("10")},
	}}
	engine := &fakeEngine{result: map[string]model.QuoteResult{"VALE3": {Ticker: "VALE3", Price: dec("55")}}}

	report, err := testService(repo, &fakeCache{}, engine).RefreshPrices(context.Background(), 7)

	require.NoError(t, err)
	assert.Equal(t, 1, report.Attempted)
	assert.Equal(t, 1, report.Updated)
	assert.Empty(t, report.FailedTickers)

	require.Len(t, engine.requests, 1)
	require.Len(t, engine.requests[0], 1)
	assert.Equal(t, "VALE3", engine.requests[0][0].Ticker)
}

func TestRefreshPricesNothingQuotableSkipsEngine(t *testing.T) {
	repo := &fakeRepo{positions: []model.Position{
		{ID: 1, Ticker: "TESOURO IPCA", AssetClass: model.ClassFixedIncome, Quantity: dec("2")},
	}}
	engine := &fakeEngine{}

	report, err := testService(repo, &fakeCache{}, engine).RefreshPrices(context.Background(), 7)

	require.NoError(t, err)
	assert.Zero(t, report.Attempted)
	assert.Empty(t, engine.requests)
}

func TestRefreshPricesServesFreshQuotesFromCache(t *testing.T) {
	repo := &fakeRepo{positions: []model.Position{
		{ID: 1, Ticker: "PETR4", AssetClass: model.ClassEquity, Quantity: dec("10")},
		{ID: 2, Ticker: "VALE3", AssetClass: model.ClassEquity, Quantity: dec("5")},
	}}
	cache := &fakeCache{quotes: map[string]model.QuoteResult{
		"PETR4": {Ticker: "PETR4", Price: dec("40.10")},
	}}
	engine := &fakeEngine{result: map[string]model.QuoteResult{
		"VALE3": {Ticker: "VALE3", Price: dec("55")},
	}}

	report, err := testService(repo, cache, engine).RefreshPrices(context.Background(), 7)

	require.NoError(t, err)
	assert.Equal(t, 2, report.Attempted)
	assert.Equal(t, 2, report.Updated)
	assert.Empty(t, report.FailedTickers)

	// only the cache miss reaches the provider
	require.Len(t, engine.requests, 1)
	require.Len(t, engine.requests[0], 1)
	assert.Equal(t, "VALE3", engine.requests[0][0].Ticker)

	repo.mu.Lock()
	defer repo.mu.Unlock()
	assert.True(t, repo.savedPrices[1].Equal(dec("40.10")))
}

func TestRefreshPricesAllQuotesCachedSkipsEngine(t *testing.T) {
	repo := &fakeRepo{positions: []model.Position{
		{ID: 1, Ticker: "PETR4", AssetClass: model.ClassEquity, Quantity: dec("10")},
	}}
	cache := &fakeCache{quotes: map[string]model.QuoteResult{
		"PETR4": {Ticker: "PETR4", Price: dec("40.10")},
	}}
	engine := &fakeEngine{}

	report, err := testService(repo, cache, engine).RefreshPrices(context.Background(), 7)

	require.NoError(t, err)
	assert.Equal(t, 1, report.Updated)
	assert.Empty(t, engine.requests)
}

func TestRefreshPricesZeroAttemptedStillRecordedInHistory(t *testing.T) {
	repo := &fakeRepo{positions: []model.Position{
		{ID: 1, Ticker: "CDB XP", AssetClass: model.ClassFixedIncome, Quantity: dec("1")},
	}}

	report, err := testService(repo, &fakeCache{}, &fakeEngine{}).RefreshPrices(context.Background(), 7)

	require.NoError(t, err)
	assert.Zero(t, report.Attempted)

	// the history insert runs detached from the request
	require.Eventually(t, func() bool {
		repo.mu.Lock()
		defer repo.mu.Unlock()
		return len(repo.historyOwners) == 1
	}, time.Second, 5*time.Millisecond)
}

func TestRefreshPricesUpdatesAllPositionsSharingATicker(t *testing.T) {
	repo := &fakeRepo{positions: []model.Position{
		{ID: 1, Ticker: "ITSA4", AssetClass: model.ClassEquity, Quantity: dec("100")},
		{ID: 2, Ticker: "ITSA4", AssetClass: model.ClassEquity, Quantity: dec("50")},
	}}
	engine := &fakeEngine{result: map[string]model.QuoteResult{"ITSA4": {Ticker: "ITSA4", Price: dec("11.20")}}}

	report, err := testService(repo, &fakeCache{}, engine).RefreshPrices(context.Background(), 7)

	require.NoError(t, err)
	assert.Equal(t, 1, report.Attempted)
	assert.Equal(t, 2, report.Updated)

	require.Len(t, engine.requests, 1)
	assert.Len(t, engine.requests[0], 1)
}

func TestRefreshPricesFlushesSummaryCache(t *testing.T) {
	repo := &fakeRepo{positions: []model.Position{
		{ID: 1, Ticker: "PETR4", AssetClass: model.ClassEquity, Quantity: dec("10")},
	}}
	cache := &fakeCache{}
	engine := &fakeEngine{result: map[string]model.QuoteResult{"PETR4": {Ticker: "PETR4", Price: dec("38.50")}}}

	_, err := testService(repo, cache, engine).RefreshPrices(context.Background(), 7)

	require.NoError(t, err)
	cache.mu.Lock()
	defer cache.mu.Unlock()
	assert.Equal(t, []int64{7}, cache.flushed)
}

func TestRefreshPricesRepoErrorIsReturned(t *testing.T) {
	repo := &fakeRepo{getErr: errors.New("db down")}

	_, err := testService(repo, &fakeCache{}, &fakeEngine{}).RefreshPrices(context.Background(), 7)

	assert.Error(t, err)
}

func TestGetSummaryCacheHitSkipsRepo(t *testing.T) {
	cached := model.AllocationSummary{TotalValue: dec("1000"), PositionCount: 3}
	cache := &fakeCache{summary: cached}
	repo := &fakeRepo{getErr: errors.New("should not be called")}

	summary, err := testService(repo, cache, &fakeEngine{}).GetSummary(context.Background(), 7)

	require.NoError(t, err)
	assert.Equal(t, cached, summary)
}

func TestGetSummaryCacheMissComputesFromPositions(t *testing.T) {
	cache := &fakeCache{summaryErr: errors.New("cache miss")}
	repo := &fakeRepo{positions: []model.Position{
		{ID: 1, AssetClass: model.ClassEquity, Quantity: dec("100"), AvgCost: dec("30"), CurrentPrice: dec("33")},
	}}

	summary, err := testService(repo, cache, &fakeEngine{}).GetSummary(context.Background(), 7)

	require.NoError(t, err)
	assert.True(t, summary.TotalValue.Equal(dec("3300")))
	assert.Equal(t, 1, summary.PositionCount)
}

func TestGetPositionsViewWeightsScopedToFilter(t *testing.T) {
	repo := &fakeRepo{positions: []model.Position{
		{ID: 1, AssetClass: model.ClassEquity, Quantity: dec("10"), AvgCost: dec("10"), CurrentPrice: dec("30")},
		{ID: 2, AssetClass: model.ClassEquity, Quantity: dec("10"), AvgCost: dec("10"), CurrentPrice: dec("10")},
		{ID: 3, AssetClass: model.ClassReit, Quantity: dec("10"), AvgCost: dec("50"), CurrentPrice: dec("60")},
	}}
	svc := testService(repo, &fakeCache{}, &fakeEngine{})

	views, err := svc.GetPositionsView(context.Background(), 7, model.ClassEquity)
	require.NoError(t, err)
	require.Len(t, views, 2)
	assert.True(t, views[0].Weight.Equal(dec("75")))
	assert.True(t, views[1].Weight.Equal(dec("25")))

	all, err := svc.GetPositionsView(context.Background(), 7, "")
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.True(t, all[0].Weight.Equal(dec("30")))
}

func TestGetPositionsViewIncludesValuation(t *testing.T) {
	repo := &fakeRepo{positions: []model.Position{
		{ID: 1, AssetClass: model.ClassEquity, Quantity: dec("100"), AvgCost: dec("30"), CurrentPrice: dec("33")},
	}}

	views, err := testService(repo, &fakeCache{}, &fakeEngine{}).GetPositionsView(context.Background(), 7, "")

	require.NoError(t, err)
	require.Len(t, views, 1)
	assert.True(t, views[0].Valuation.Invested.Equal(dec("3000")))
	assert.True(t, views[0].Valuation.Current.Equal(dec("3300")))
	assert.True(t, views[0].Valuation.Profit.Equal(dec("300")))
}

func TestGenerateAllocationReportReturnsLink(t *testing.T) {
	repo := &fakeRepo{positions: []model.Position{
		{ID: 1, AssetClass: model.ClassEquity, Quantity: dec("100"), AvgCost: dec("30"), CurrentPrice: dec("33")},
	}}
	cache := &fakeCache{summaryErr: errors.New("cache miss")}

	link, err := testService(repo, cache, &fakeEngine{}).GenerateAllocationReport(context.Background(), 7)

	require.NoError(t, err)
	assert.Equal(t, "https://drive.example/report", link)
}

func TestGenerateAllocationReportEmptyPortfolio(t *testing.T) {
	repo := &fakeRepo{}

	_, err := testService(repo, &fakeCache{}, &fakeEngine{}).GenerateAllocationReport(context.Background(), 7)

	assert.ErrorIs(t, err, service.ErrNoPositions)
}

func TestRefreshAllContinuesPastOwners(t *testing.T) {
	repo := &fakeRepo{
		ownerIDs: []int64{1, 2},
		positions: []model.Position{
			{ID: 1, Ticker: "PETR4", AssetClass: model.ClassEquity, Quantity: dec("10")},
		},
	}
	engine := &fakeEngine{result: map[string]model.QuoteResult{"PETR4": {Ticker: "PETR4", Price: dec("38.50")}}}

	err := testService(repo, &fakeCache{}, engine).RefreshAll(context.Background())

	require.NoError(t, err)
	assert.Len(t, engine.requests, 2)
}
