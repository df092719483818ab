package quote

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/pbaptista/carteira_helper/config"
	"github.com/pbaptista/carteira_helper/internal/model"
	"github.com/pbaptista/carteira_helper/internal/ticker"
	"github.com/pbaptista/carteira_helper/utils"
	"golang.org/x/sync/errgroup"
)

type QuoteApi interface {
	GetQuotes(ctx context.Context, symbols []string) (map[string]model.QuoteResult, error)
	GetQuote(ctx context.Context, symbol string) (model.QuoteResult, error)
}

// Request identifies one instrument to refresh. The asset class drives
// symbol normalization.
type Request struct {
	Ticker string
	Class  model.AssetClass
}

type Engine struct {
	api        QuoteApi
	chunkSize  int
	workers    int
	retryPause time.Duration
}

func New(cfg *config.Config, api QuoteApi) *Engine {
	return &Engine{
		api:        api,
		chunkSize:  cfg.Quote.ChunkSize,
		workers:    cfg.Quote.ChunkWorkers,
		retryPause: cfg.Quote.RetryPause,
	}
}

// Fetch resolves quotes for the requested tickers best-effort. Tickers that
// fail both the bulk sweep and the individual fallback are omitted from the
// result; callers must treat absence as "keep the previous cached value".
// Fetch never fails for partial (or even total) provider trouble — on a
// context deadline it returns whatever has been assembled so far.
func (e *Engine) Fetch(ctx context.Context, reqs []Request) map[string]model.QuoteResult {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "Engine.Fetch"

	results := make(map[string]model.QuoteResult, len(reqs))
	if len(reqs) == 0 {
		return results
	}

	slog.Debug("Fetch start", slog.String("rqID", rqID), slog.String("op", op), slog.Int("tickers", len(reqs)))

	symbols := make([]string, 0, len(reqs))
	toInternal := make(map[string]string, len(reqs))
	for _, req := range reqs {
		symbol := ticker.Normalize(req.Ticker, req.Class)
		if symbol == "" {
			continue
		}
		if _, ok := toInternal[symbol]; ok {
			continue
		}
		toInternal[symbol] = req.Ticker
		symbols = append(symbols, symbol)
	}

	var (
		mu     sync.Mutex
		failed []string
	)

	g := errgroup.Group{}
	g.SetLimit(e.workers)

	for start := 0; start < len(symbols); start += e.chunkSize {
		chunk := symbols[start:min(start+e.chunkSize, len(symbols))]
		g.Go(func() error {
			quotes, err := e.fetchChunk(ctx, chunk)

			mu.Lock()
			defer mu.Unlock()

			if err != nil {
				// whole chunk goes to the individual fallback, never aborts
				// the sweep; a singleton already took the individual path, so
				// retrying it would repeat the exact same call
				slog.Warn("chunk fetch failed", slog.String("rqID", rqID), slog.String("op", op), slog.Any("chunk", chunk), slog.String("err", err.Error()))
				if len(chunk) > 1 {
					failed = append(failed, chunk...)
				}
				return nil
			}

			for _, symbol := range chunk {
				quote, ok := quotes[symbol]
				if !ok || !quote.Price.IsPositive() {
					failed = append(failed, symbol)
					continue
				}
				quote.Ticker = toInternal[symbol]
				results[quote.Ticker] = quote
			}
			return nil
		})
	}

	_ = g.Wait()

	e.retryIndividually(ctx, failed, toInternal, results)

	slog.Debug("Fetch completed", slog.String("rqID", rqID), slog.String("op", op), slog.Int("resolved", len(results)), slog.Int("requested", len(symbols)))

	return results
}

// fetchChunk routes a singleton chunk through the single-quote endpoint:
// the bulk parsing assumptions do not hold for one-symbol requests.
func (e *Engine) fetchChunk(ctx context.Context, chunk []string) (map[string]model.QuoteResult, error) {
	if len(chunk) == 1 {
		quote, err := e.api.GetQuote(ctx, chunk[0])
		if err != nil {
			return nil, err
		}
		return map[string]model.QuoteResult{chunk[0]: quote}, nil
	}
	return e.api.GetQuotes(ctx, chunk)
}

// retryIndividually re-resolves bulk failures one symbol at a time with a
// pause between calls to respect provider rate limits. A retry result never
// overwrites an earlier success for the same ticker.
func (e *Engine) retryIndividually(ctx context.Context, failed []string, toInternal map[string]string, results map[string]model.QuoteResult) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "Engine.retryIndividually"

	for i, symbol := range failed {
		if i > 0 {
			select {
			case <-ctx.Done():
				slog.Warn("retry budget exhausted, returning partial result", slog.String("rqID", rqID), slog.String("op", op))
				return
			case <-time.After(e.retryPause):
			}
		}

		quote, err := e.api.GetQuote(ctx, symbol)
		if err != nil {
			slog.Warn("individual retry failed", slog.String("rqID", rqID), slog.String("op", op), slog.String("symbol", symbol), slog.String("err", err.Error()))
			if ctx.Err() != nil {
				return
			}
			continue
		}

		if !quote.Price.IsPositive() {
			continue
		}

		internal := toInternal[symbol]
		if _, ok := results[internal]; ok {
			continue
		}
		quote.Ticker = internal
		results[internal] = quote
	}
}
