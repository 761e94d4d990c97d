package v1

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/hrygo/execfi/plugin/ai/agent"
	"github.com/hrygo/execfi/plugin/ai/router"
	"github.com/hrygo/execfi/plugin/gmgn"
	apierrors "github.com/hrygo/execfi/server/internal/errors"
)

const defaultTrendingTokenLimit = 10

type analyzeTokenRequest struct {
	Mint string `json:"mint"`
}

// AnalyzeToken handles POST /api/v1/gmgn/analyze.
func (s *APIV1Service) AnalyzeToken(c echo.Context) error {
	var req analyzeTokenRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	mint := strings.TrimSpace(req.Mint)
	if mint == "" {
		return apierrors.InvalidArgument("mint is required")
	}
	return s.runExecutor(c, router.IntentTokenAnalysis, map[string]string{agent.ParamMint: mint})
}

// TrendingTokens handles GET /api/v1/gmgn/trending?timeframe=1h.
func (s *APIV1Service) TrendingTokens(c echo.Context) error {
	timeframe := c.QueryParam("timeframe")
	if timeframe == "" {
		timeframe = "1h"
	}
	if !gmgn.ValidTimeframe(timeframe) {
		return apierrors.InvalidArgument("unsupported timeframe " + timeframe)
	}
	limit := queryInt(c, "limit")
	if limit <= 0 {
		limit = defaultTrendingTokenLimit
	}
	tokens, err := s.Tokens.GetTrendingTokens(c.Request().Context(), limit, timeframe)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]any{"timeframe": timeframe, "tokens": tokens})
}
