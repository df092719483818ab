package repository

import (
	"context"
	"log/slog"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib" // pgx driver
	"github.com/jmoiron/sqlx"
	"github.com/pbaptista/carteira_helper/config"
	"github.com/pbaptista/carteira_helper/internal/converter/dbConverter"
	"github.com/pbaptista/carteira_helper/internal/model"
	"github.com/pbaptista/carteira_helper/internal/model/dbModel"
	"github.com/pbaptista/carteira_helper/utils"
	"github.com/shopspring/decimal"
)

type Postgres struct {
	db  *sqlx.DB
	cfg *config.Config
}

func NewPostgres(cfg *config.Config, db *sqlx.DB) *Postgres {
	return &Postgres{db: db, cfg: cfg}
}

const positionColumns = `
	position_id, owner_id, ticker, COALESCE(name, '') AS name, asset_class,
	quantity, avg_cost, current_price, change_percent, last_update, entry_date,
	COALESCE(sector, '') AS sector, COALESCE(indexer, '') AS indexer,
	maturity_date, COALESCE(pension_type, '') AS pension_type,
	currency_rate, intl_etf
`

func (r *Postgres) getPositions(ctx context.Context, query string, args ...any) (positions []model.Position, err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	slog.Debug("getPositions start", slog.String("rqID", rqID), slog.String("query", query))
	defer func() {
		if err != nil {
			slog.Error("getPositions failed", slog.String("rqID", rqID), slog.String("err", err.Error()))
		} else {
			slog.Debug("getPositions completed", slog.String("rqID", rqID))
		}
	}()

	rows, err := r.db.QueryxContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}

	defer rows.Close()

	for rows.Next() {
		var pos dbModel.Position
		err = rows.StructScan(&pos)
		if err != nil {
			return nil, err
		}
		positions = append(positions, dbConverter.ConvertPosition(pos))
	}

	return positions, nil
}

func (r *Postgres) GetPositions(ctx context.Context, ownerID int64) ([]model.Position, error) {
	query := `
		SELECT ` + positionColumns + `
		FROM positions
		WHERE owner_id = $1
		ORDER BY ticker
		`

	return r.getPositions(ctx, query, ownerID)
}

func (r *Postgres) GetPositionsByClass(ctx context.Context, ownerID int64, class model.AssetClass) ([]model.Position, error) {
	query := `
		SELECT ` + positionColumns + `
		FROM positions
		WHERE owner_id = $1
		AND asset_class = $2
		ORDER BY ticker
		`

	return r.getPositions(ctx, query, ownerID, string(class))
}

// SavePriceUpdate overwrites only the price fields: prices are ephemeral and
// last-write-wins is acceptable for concurrent refreshes of the same owner.
func (r *Postgres) SavePriceUpdate(ctx context.Context, positionID int64, price, changePercent decimal.Decimal, ts time.Time) (err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "Postgres.SavePriceUpdate"
	query := `
		UPDATE positions
		SET
			current_price = $1,
			change_percent = $2,
			last_update = $3
		WHERE position_id = $4
		`

	slog.Debug("SavePriceUpdate start", slog.String("rqID", rqID), slog.String("op", op), slog.Int64("positionID", positionID))
	defer func() {
		if err != nil {
			slog.Error("SavePriceUpdate failed", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		} else {
			slog.Debug("SavePriceUpdate completed", slog.String("rqID", rqID), slog.String("op", op))
		}
	}()

	res, err := r.db.ExecContext(ctx, query, price, changePercent, ts, positionID)
	if err != nil {
		return err
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}

	return nil
}

func (r *Postgres) GetOwnerIDs(ctx context.Context) (ownerIDs []int64, err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "Postgres.GetOwnerIDs"
	query := `SELECT DISTINCT owner_id FROM positions ORDER BY owner_id`

	slog.Debug("GetOwnerIDs start", slog.String("rqID", rqID), slog.String("op", op))
	defer func() {
		if err != nil {
			slog.Error("GetOwnerIDs failed", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		} else {
			slog.Debug("GetOwnerIDs completed", slog.String("rqID", rqID), slog.String("op", op))
		}
	}()

	err = r.db.SelectContext(ctx, &ownerIDs, query)
	if err != nil {
		return nil, err
	}

	return ownerIDs, nil
}

func (r *Postgres) InsertRefreshToHistory(ctx context.Context, ownerID int64, report model.RefreshReport) (err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "Postgres.InsertRefreshToHistory"
	query := `
		INSERT INTO refresh_history(owner_id, attempted, updated, failed_tickers)
		VALUES ($1, $2, $3, $4)
		`

	slog.Debug(
		"InsertRefreshToHistory start",
		slog.String("rqID", rqID),
		slog.String("op", op),
		slog.Int64("ownerID", ownerID),
		slog.Any("report", report),
	)
	defer func() {
		if err != nil {
			slog.Error("InsertRefreshToHistory failed", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		} else {
			slog.Debug("InsertRefreshToHistory completed", slog.String("rqID", rqID), slog.String("op", op))
		}
	}()

	failed := ""
	for i, t := range report.FailedTickers {
		if i > 0 {
			failed += ","
		}
		failed += t
	}

	_, err = r.db.ExecContext(ctx, query, ownerID, report.Attempted, report.Updated, failed)
	if err != nil {
		return err
	}

	return nil
}
