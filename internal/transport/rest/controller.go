package rest

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/pbaptista/carteira_helper/internal/model"
	"github.com/pbaptista/carteira_helper/internal/service"
	customMW "github.com/pbaptista/carteira_helper/internal/transport/rest/middleware"
	"github.com/pbaptista/carteira_helper/utils"
)

type PortfolioService interface {
	RefreshPrices(ctx context.Context, ownerID int64) (model.RefreshReport, error)
	GetSummary(ctx context.Context, ownerID int64) (model.AllocationSummary, error)
	GetPositionsView(ctx context.Context, ownerID int64, class model.AssetClass) ([]model.PositionView, error)
	GenerateAllocationReport(ctx context.Context, ownerID int64) (link string, err error)
}

type Controller struct {
	service PortfolioService
}

func NewController(service PortfolioService) *Controller {
	return &Controller{service: service}
}

func (c *Controller) Routes() http.Handler {
	r := chi.NewRouter()

	r.Use(chimw.Recoverer)
	r.Use(customMW.RqID)
	r.Use(customMW.Logger)

	r.Route("/portfolios/{ownerID}", func(r chi.Router) {
		r.Post("/refresh", c.refreshPrices)
		r.Get("/summary", c.getSummary)
		r.Get("/positions", c.getPositions)
		r.Post("/report", c.generateReport)
	})

	return r
}

func (c *Controller) refreshPrices(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	ownerID, err := ownerIDFromURL(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid ownerID")
		return
	}

	report, err := c.service.RefreshPrices(ctx, ownerID)
	if err != nil {
		c.writeServiceError(ctx, w, err)
		return
	}

	writeJSON(ctx, w, http.StatusOK, report)
}

func (c *Controller) getSummary(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	ownerID, err := ownerIDFromURL(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid ownerID")
		return
	}

	summary, err := c.service.GetSummary(ctx, ownerID)
	if err != nil {
		c.writeServiceError(ctx, w, err)
		return
	}

	writeJSON(ctx, w, http.StatusOK, summary)
}

func (c *Controller) getPositions(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	ownerID, err := ownerIDFromURL(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid ownerID")
		return
	}

	class := model.AssetClass(r.URL.Query().Get("class"))

	views, err := c.service.GetPositionsView(ctx, ownerID, class)
	if err != nil {
		c.writeServiceError(ctx, w, err)
		return
	}

	writeJSON(ctx, w, http.StatusOK, views)
}

func (c *Controller) generateReport(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	ownerID, err := ownerIDFromURL(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid ownerID")
		return
	}

	link, err := c.service.GenerateAllocationReport(ctx, ownerID)
	if err != nil {
		c.writeServiceError(ctx, w, err)
		return
	}

	writeJSON(ctx, w, http.StatusOK, map[string]string{"link": link})
}

func (c *Controller) writeServiceError(ctx context.Context, w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, service.ErrNotFound):
		writeError(w, http.StatusNotFound, "not found")
	case errors.Is(err, service.ErrNoPositions):
		writeError(w, http.StatusUnprocessableEntity, "portfolio has no positions")
	default:
		slog.Error("internal error", slog.String("rqID", utils.GetRequestIDFromCtx(ctx)), slog.String("err", err.Error()))
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func ownerIDFromURL(r *http.Request) (int64, error) {
	return strconv.ParseInt(chi.URLParam(r, "ownerID"), 10, 64)
}

func writeJSON(ctx context.Context, w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		slog.Error("failed encoding response", slog.String("rqID", utils.GetRequestIDFromCtx(ctx)), slog.String("err", err.Error()))
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
