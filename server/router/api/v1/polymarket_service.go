package v1

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/hrygo/execfi/plugin/ai/agent"
	"github.com/hrygo/execfi/plugin/ai/router"
	"github.com/hrygo/execfi/plugin/polymarket"
	apierrors "github.com/hrygo/execfi/server/internal/errors"
)

const defaultTrendingMarketLimit = 10

type placeBetRequest struct {
	OutcomeIndex *int        `json:"outcomeIndex"`
	Outcome      string      `json:"outcome"`
	Amount       json.Number `json:"amount"`
}

// SearchMarkets handles GET /api/v1/polymarket/search?q=...
func (s *APIV1Service) SearchMarkets(c echo.Context) error {
	q := strings.TrimSpace(c.QueryParam("q"))
	if q == "" {
		return apierrors.InvalidArgument("q is required")
	}
	params := map[string]string{
		agent.ParamAction: agent.MarketActionSearch,
		agent.ParamQuery:  q,
	}
	if limit := c.QueryParam("limit"); limit != "" {
		params[agent.ParamLimit] = limit
	}
	return s.runExecutor(c, router.IntentPredictionMarket, params)
}

// TrendingMarkets handles GET /api/v1/polymarket/trending?timeframe=24h.
func (s *APIV1Service) TrendingMarkets(c echo.Context) error {
	timeframe := c.QueryParam("timeframe")
	if timeframe == "" {
		timeframe = "24h"
	}
	if !polymarket.ValidTimeframe(timeframe) {
		return apierrors.InvalidArgument("unsupported timeframe " + timeframe)
	}
	limit := queryInt(c, "limit")
	if limit <= 0 {
		limit = defaultTrendingMarketLimit
	}
	markets, err := s.Markets.GetTrendingMarkets(c.Request().Context(), timeframe, limit)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]any{"timeframe": timeframe, "markets": markets})
}

// AnalyzeMarket handles GET /api/v1/polymarket/:marketId/analyze.
func (s *APIV1Service) AnalyzeMarket(c echo.Context) error {
	return s.runExecutor(c, router.IntentPredictionMarket, map[string]string{
		agent.ParamAction:   agent.MarketActionAnalyze,
		agent.ParamMarketID: c.Param("marketId"),
	})
}

// PlaceBet handles POST /api/v1/polymarket/:marketId/bet. The bet is only
// recorded as a pending action; it is placed once the action is confirmed.
func (s *APIV1Service) PlaceBet(c echo.Context) error {
	var req placeBetRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	if req.OutcomeIndex == nil || *req.OutcomeIndex < 0 {
		return apierrors.InvalidArgument("outcomeIndex is required")
	}
	if req.Amount == "" {
		return apierrors.InvalidArgument("amount is required")
	}
	params := map[string]string{
		agent.ParamAction:       agent.MarketActionBet,
		agent.ParamMarketID:     c.Param("marketId"),
		agent.ParamOutcomeIndex: strconv.Itoa(*req.OutcomeIndex),
		agent.ParamAmount:       req.Amount.String(),
	}
	if req.Outcome != "" {
		params[agent.ParamOutcome] = req.Outcome
	}
	return s.runExecutor(c, router.IntentPredictionMarket, params)
}
