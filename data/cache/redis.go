package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/pbaptista/carteira_helper/config"
	"github.com/pbaptista/carteira_helper/internal/model"
	"github.com/pbaptista/carteira_helper/utils"
	"github.com/redis/go-redis/v9"
)

type RedisCache struct {
	redis *redis.Client
	cfg   *config.Config
}

func NewRedisCache(redisClient *redis.Client, cfg *config.Config) *RedisCache {
	return &RedisCache{redis: redisClient, cfg: cfg}
}

func quoteKey(ticker string) string {
	return "quote:" + ticker
}

func summaryKey(ownerID int64) string {
	return fmt.Sprintf("summary:%d", ownerID)
}

func (r *RedisCache) SetQuotes(ctx context.Context, quotes map[string]model.QuoteResult) error {
	rqID := utils.GetRequestIDFromCtx(ctx)
	slog.Debug("SetQuotes start", slog.String("rqID", rqID))

	pipe := r.redis.Pipeline()
	for ticker, quote := range quotes {
		quoteJson, err := json.Marshal(quote)
		if err != nil {
			slog.Error(
				"can't marshall quote in SetQuotes",
				slog.String("rqID", rqID),
				slog.String("err", err.Error()),
				slog.Any("quote", quote),
			)
			return errors.New("can't marshall quote")
		}

		_, err = pipe.Set(ctx, quoteKey(ticker), quoteJson, r.cfg.Cache.QuotesExpiration).Result()
		if err != nil {
			slog.Error(
				"failed on pipe.Set",
				slog.String("rqID", rqID),
				slog.String("err", err.Error()),
				slog.Any("quote", quote),
			)
			return err
		}
	}

	_, err := pipe.Exec(ctx)
	if err != nil {
		slog.Error("failed on pipe.Exec", slog.String("rqID", rqID), slog.String("err", err.Error()))
		return err
	}

	slog.Debug("SetQuotes completed", slog.String("rqID", rqID))

	return nil
}

func (r *RedisCache) GetQuote(ctx context.Context, ticker string) (model.QuoteResult, error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	slog.Debug("GetQuote start", slog.String("rqID", rqID))

	res, err := r.redis.Get(ctx, quoteKey(ticker)).Result()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			slog.Error("failed on redis.Get", slog.String("rqID", rqID), slog.String("err", err.Error()), slog.String("key", quoteKey(ticker)))
		}
		return model.QuoteResult{}, err
	}

	quote := model.QuoteResult{}
	err = json.Unmarshal([]byte(res), &quote)
	if err != nil {
		slog.Error(
			"can't unmarshall quote in GetQuote",
			slog.String("rqID", rqID),
			slog.String("err", err.Error()),
			slog.String("resultFromRedis", res),
		)
		return model.QuoteResult{}, errors.New("can't unmarshall quote")
	}

	slog.Debug("GetQuote finished", slog.String("rqID", rqID))

	return quote, nil
}

func (r *RedisCache) SetSummary(ctx context.Context, ownerID int64, summary model.AllocationSummary) error {
	rqID := utils.GetRequestIDFromCtx(ctx)
	slog.Debug("SetSummary start", slog.String("rqID", rqID), slog.Int64("ownerID", ownerID))

	summaryJson, err := json.Marshal(summary)
	if err != nil {
		slog.Error("can't marshall summary in SetSummary", slog.String("rqID", rqID), slog.String("err", err.Error()))
		return errors.New("can't marshall summary")
	}

	_, err = r.redis.Set(ctx, summaryKey(ownerID), summaryJson, r.cfg.Cache.SummaryExpiration).Result()
	if err != nil {
		slog.Error("failed on redis.Set", slog.String("rqID", rqID), slog.String("err", err.Error()))
		return err
	}

	slog.Debug("SetSummary completed", slog.String("rqID", rqID))

	return nil
}

func (r *RedisCache) GetSummary(ctx context.Context, ownerID int64) (model.AllocationSummary, error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	slog.Debug("GetSummary start", slog.String("rqID", rqID), slog.Int64("ownerID", ownerID))

	res, err := r.redis.Get(ctx, summaryKey(ownerID)).Result()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			slog.Error("failed on redis.Get", slog.String("rqID", rqID), slog.String("err", err.Error()), slog.String("key", summaryKey(ownerID)))
		}
		return model.AllocationSummary{}, err
	}

	summary := model.AllocationSummary{}
	err = json.Unmarshal([]byte(res), &summary)
	if err != nil {
		slog.Error(
			"can't unmarshall summary in GetSummary",
			slog.String("rqID", rqID),
			slog.String("err", err.Error()),
			slog.String("resultFromRedis", res),
		)
		return model.AllocationSummary{}, errors.New("can't unmarshall summary")
	}

	slog.Debug("GetSummary finished", slog.String("rqID", rqID))

	return summary, nil
}

// FlushSummary drops the cached summary so the next read recomputes it.
func (r *RedisCache) FlushSummary(ctx context.Context, ownerID int64) error {
	rqID := utils.GetRequestIDFromCtx(ctx)
	slog.Debug("FlushSummary start", slog.String("rqID", rqID), slog.Int64("ownerID", ownerID))

	_, err := r.redis.Del(ctx, summaryKey(ownerID)).Result()
	if err != nil {
		slog.Error("failed on redis.Del", slog.String("rqID", rqID), slog.String("err", err.Error()))
		return err
	}

	slog.Debug("FlushSummary completed", slog.String("rqID", rqID))

	return nil
}
