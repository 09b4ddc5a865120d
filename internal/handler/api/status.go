package api

import (
	"time"

	"MicroTrade/internal/domain/models"
	domservice "MicroTrade/internal/domain/service"
	"MicroTrade/internal/ledger"
	svcmetrics "MicroTrade/internal/service/metrics"
	xhttp "MicroTrade/pkg/http"
	xlogger "MicroTrade/pkg/logger"

	"github.com/labstack/echo/v4"
)

// StatusHandler serves the read-only view of the engine: session metrics,
// open positions, active model, and trade history.
type StatusHandler struct {
	logger   *xlogger.Logger
	ldg      *ledger.Ledger
	modelSrc domservice.ModelSource
}

func NewStatusHandler(logger *xlogger.Logger, ldg *ledger.Ledger, modelSrc domservice.ModelSource) *StatusHandler {
	svcmetrics.Register()
	return &StatusHandler{logger: logger, ldg: ldg, modelSrc: modelSrc}
}

func (h *StatusHandler) RegisterRoutes(e *echo.Echo) {
	e.GET("/healthz", h.Health)
	g := e.Group("/api/v1")
	g.GET("/session", h.Session)
	g.GET("/positions", h.Positions)
	g.GET("/model", h.Model)
	g.GET("/trades", h.Trades)
}

func (h *StatusHandler) Health(c echo.Context) error {
	return xhttp.SuccessResponse(c, map[string]string{"status": "ok"})
}

func (h *StatusHandler) Session(c echo.Context) error {
	start := time.Now()
	defer h.observe("session", start)
	return xhttp.SuccessResponse(c, h.ldg.Snapshot())
}

func (h *StatusHandler) Positions(c echo.Context) error {
	start := time.Now()
	defer h.observe("positions", start)
	return xhttp.SuccessResponse(c, h.ldg.OpenPositions())
}

func (h *StatusHandler) Model(c echo.Context) error {
	start := time.Now()
	defer h.observe("model", start)

	state := h.modelSrc.Active()
	if state == nil {
		return xhttp.SuccessResponse(c, models.ModelStatus{Trained: false})
	}
	return xhttp.SuccessResponse(c, models.ModelStatus{
		Trained:      true,
		Version:      state.Version,
		TrainedCount: state.TrainedCount,
		TrainedAt:    state.TrainedAt.Format(time.RFC3339),
	})
}

func (h *StatusHandler) Trades(c echo.Context) error {
	start := time.Now()
	defer h.observe("trades", start)

	req := &models.TradesRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		svcmetrics.APIErrors.WithLabelValues("trades").Inc()
		return xhttp.BadRequestResponse(c, verr)
	}

	var trades []models.TradeRecord
	if req.Symbol == "" {
		trades = h.ldg.All()
		if req.N > 0 && len(trades) > req.N {
			trades = trades[len(trades)-req.N:]
		}
	} else {
		trades = h.ldg.History(req.Symbol, req.N)
	}

	if since := xhttp.ParseTimeDefault(c.QueryParam("since"), time.Time{}); !since.IsZero() {
		filtered := trades[:0:0]
		for _, t := range trades {
			if !t.ClosedAt.Before(since) {
				filtered = append(filtered, t)
			}
		}
		trades = filtered
	}
	return xhttp.SuccessResponse(c, trades)
}

func (h *StatusHandler) observe(endpoint string, start time.Time) {
	svcmetrics.APILatency.WithLabelValues(endpoint).Observe(time.Since(start).Seconds())
}
