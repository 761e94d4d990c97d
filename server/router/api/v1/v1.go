// Package v1 serves the JSON API under /api/v1.
package v1

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"

	"github.com/hrygo/execfi/internal/profile"
	"github.com/hrygo/execfi/plugin/ai/agent"
	"github.com/hrygo/execfi/plugin/ai/router"
	"github.com/hrygo/execfi/plugin/gmgn"
	"github.com/hrygo/execfi/plugin/polymarket"
	apierrors "github.com/hrygo/execfi/server/internal/errors"
	"github.com/hrygo/execfi/internal/observability"
	"github.com/hrygo/execfi/server/middleware"
	"github.com/hrygo/execfi/server/service/action"
	"github.com/hrygo/execfi/server/service/chat"
	"github.com/hrygo/execfi/store"
)

// Executors runs one executor directly, bypassing classification.
type Executors interface {
	Route(ctx context.Context, intent router.Intent, input *agent.Input) (*agent.Result, error)
}

// TrendingTokens lists trending tokens.
type TrendingTokens interface {
	GetTrendingTokens(ctx context.Context, limit int, timeframe string) ([]*gmgn.TrendingToken, error)
}

// TrendingMarkets lists trending prediction markets.
type TrendingMarkets interface {
	GetTrendingMarkets(ctx context.Context, timeframe string, limit int) ([]*polymarket.Market, error)
}

type APIV1Service struct {
	Profile   *profile.Profile
	Store     *store.Store
	Chat      chat.Service
	Actions   *action.Service
	Executors Executors
	Tokens    TrendingTokens
	Markets   TrendingMarkets
	// Realtime serves the websocket endpoint.
	Realtime     http.Handler
	Limiter      *middleware.RateLimiter
	Metrics      *observability.Metrics
	AgentMetrics *agent.Metrics
}

// Register mounts every route on e.
func (s *APIV1Service) Register(e *echo.Echo) {
	e.HTTPErrorHandler = apierrors.HTTPErrorHandler
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.CORSWithConfig(echomiddleware.CORSConfig{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
		AllowHeaders: []string{echo.HeaderAuthorization, echo.HeaderContentType, echo.HeaderXRequestID},
	}))
	e.Use(middleware.RequestLogger(s.Metrics))

	e.GET("/healthz", s.Healthz)

	api := e.Group("/api/v1", middleware.JWTAuth(s.Profile.JWTSecret))
	if s.Limiter != nil {
		api.Use(s.Limiter.Middleware())
	}

	api.POST("/conversations", s.CreateConversation)
	api.GET("/conversations", s.ListConversations)
	api.GET("/conversations/:id", s.GetConversation)
	api.POST("/conversations/:id/messages", s.SendMessage)
	api.DELETE("/conversations/:id", s.DeleteConversation)

	api.GET("/actions", s.ListActions)
	api.GET("/actions/:id", s.GetAction)
	api.POST("/actions/:id/confirm", s.ConfirmAction)
	api.POST("/actions/:id/cancel", s.CancelAction)
	api.POST("/actions/:id/fail", s.FailAction)

	api.GET("/signals", s.ListUserSignals)
	api.GET("/signals/recent", s.ListRecentSignals)
	api.GET("/signals/feed.rss", s.SignalFeed)
	api.GET("/signals/feed.atom", s.SignalFeed)

	api.POST("/gmgn/analyze", s.AnalyzeToken)
	api.GET("/gmgn/trending", s.TrendingTokens)

	api.GET("/polymarket/search", s.SearchMarkets)
	api.GET("/polymarket/trending", s.TrendingMarkets)
	api.GET("/polymarket/:marketId/analyze", s.AnalyzeMarket)
	api.POST("/polymarket/:marketId/bet", s.PlaceBet)

	api.POST("/x402/pay", s.CreatePayment)
	api.GET("/x402/verify/:signature", s.VerifyPayment)

	if s.Realtime != nil {
		api.GET("/ws", echo.WrapHandler(s.Realtime))
	}
}

func currentIdentity(c echo.Context) (*middleware.Identity, error) {
	id, ok := middleware.CurrentIdentity(c)
	if !ok {
		return nil, apierrors.Unauthorized("authentication required")
	}
	return id, nil
}

func bind(c echo.Context, v any) error {
	if err := c.Bind(v); err != nil {
		return apierrors.Wrap(err, apierrors.ErrCodeInvalidArgument, "invalid request body")
	}
	return nil
}

// runExecutor runs the executor of intent for the caller with params.
func (s *APIV1Service) runExecutor(c echo.Context, intent router.Intent, params map[string]string) error {
	id, err := currentIdentity(c)
	if err != nil {
		return err
	}
	result, err := s.Executors.Route(c.Request().Context(), intent, &agent.Input{
		WalletAddress: id.WalletAddress,
		Chain:         id.Chain,
		UserID:        id.UserID,
		Params:        params,
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, newExecutorResponse(result))
}
