// Package server assembles the capability clients, the executor pipeline and
// the HTTP API into one process.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/hrygo/execfi/internal/profile"
	"github.com/hrygo/execfi/plugin/ai"
	"github.com/hrygo/execfi/plugin/ai/agent"
	"github.com/hrygo/execfi/plugin/ai/router"
	"github.com/hrygo/execfi/plugin/apiclient"
	"github.com/hrygo/execfi/plugin/blockchain"
	"github.com/hrygo/execfi/plugin/gmgn"
	"github.com/hrygo/execfi/plugin/polymarket"
	"github.com/hrygo/execfi/plugin/swap"
	"github.com/hrygo/execfi/plugin/x402"
	"github.com/hrygo/execfi/internal/observability"
	"github.com/hrygo/execfi/server/middleware"
	"github.com/hrygo/execfi/server/realtime"
	v1 "github.com/hrygo/execfi/server/router/api/v1"
	"github.com/hrygo/execfi/server/service/action"
	"github.com/hrygo/execfi/server/service/chat"
	"github.com/hrygo/execfi/store"
	"github.com/hrygo/execfi/store/cache"
)

const (
	capabilityTimeout = 15 * time.Second
	capabilityRetries = 2
	metricsLogPeriod  = 10 * time.Minute
)

type Server struct {
	Profile *profile.Profile
	Store   *store.Store

	echoServer   *echo.Echo
	hub          *realtime.Hub
	cache        *cache.TieredCache
	agentMetrics *agent.Metrics
	cancel       context.CancelFunc
}

// NewServer builds every collaborator from profile. The store must already
// be migrated.
func NewServer(ctx context.Context, profile *profile.Profile, st *store.Store) (*Server, error) {
	s := &Server{
		Profile:      profile,
		Store:        st,
		agentMetrics: agent.NewMetrics(),
	}

	var l2 cache.L2
	if profile.RedisAddr != "" {
		redisCache, err := cache.NewRedisCache(ctx, cache.DefaultRedisConfig(profile.RedisAddr))
		if err != nil {
			slog.Warn("redis unavailable, using in-memory cache only", "addr", profile.RedisAddr, "error", err)
		} else {
			l2 = redisCache
		}
	}
	s.cache = cache.NewTieredCache(cache.Config{
		DefaultTTL:      cache.WalletAnalysisTTL,
		CleanupInterval: time.Minute,
		MaxItems:        10000,
	}, l2)

	var llm ai.LLMService
	aiConfig := ai.NewConfigFromProfile(profile)
	if aiConfig.Enabled {
		if err := aiConfig.Validate(); err != nil {
			return nil, errors.Wrap(err, "invalid AI configuration")
		}
		service, err := ai.NewLLMService(&aiConfig.LLM)
		if err != nil {
			return nil, errors.Wrap(err, "failed to create LLM service")
		}
		llm = service
	}

	classifierConfig := router.Config{Strategy: profile.ClassifierStrategy}
	if llm != nil {
		classifierConfig.LLMClient = llm
	} else if profile.ClassifierStrategy == router.StrategyAI {
		slog.Warn("ai classifier strategy requested without an LLM, falling back to keywords")
		classifierConfig.Strategy = router.StrategyKeyword
	}
	classifier := router.NewService(classifierConfig)

	extractor, err := agent.NewExtractor(profile.ExtractionMode, llm)
	if err != nil {
		return nil, err
	}
	policy, err := agent.NewPolicy(profile.MaxTransactionAmount, profile.Blocklist)
	if err != nil {
		return nil, errors.Wrap(err, "failed to build transaction policy")
	}

	opts := []apiclient.Option{
		apiclient.WithTimeout(capabilityTimeout),
		apiclient.WithMaxRetries(capabilityRetries),
	}
	tokens := gmgn.NewClient(profile.GMGNURL, profile.GMGNAPIKey, s.cache, opts...)
	markets := polymarket.NewClient(profile.PolymarketURL, profile.PolymarketAPIKey, opts...)
	payments := x402.NewClient(profile.X402URL, profile.X402APIKey, opts...)
	swaps := swap.NewClient(profile.JupiterURL, opts...)
	wallets := blockchain.NewService(profile.RPCURLs, s.cache, tokens, opts...)

	s.hub = realtime.NewHub(profile.JWTSecret, &roomAuthorizer{store: st})

	executors, err := agent.NewExecutorRouter(agent.Deps{
		Store:     st,
		Wallets:   wallets,
		Swaps:     swaps,
		Tokens:    tokens,
		Markets:   markets,
		Payments:  payments,
		LLM:       llm,
		Extractor: extractor,
		Policy:    policy,
		Notifier:  s.hub,
		Metrics:   s.agentMetrics,
	})
	if err != nil {
		return nil, err
	}

	api := &v1.APIV1Service{
		Profile:      profile,
		Store:        st,
		Chat:         chat.NewService(st, classifier, executors),
		Actions:      action.NewService(st, markets, payments, s.hub, s.agentMetrics),
		Executors:    executors,
		Tokens:       tokens,
		Markets:      markets,
		Realtime:     s.hub,
		Limiter:      middleware.NewRateLimiter(profile.RateLimitPerSecond, profile.RateLimitBurst),
		Metrics:      observability.NewMetrics(),
		AgentMetrics: s.agentMetrics,
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	api.Register(e)
	s.echoServer = e

	slog.Info("server assembled",
		"mode", profile.Mode,
		"ai_enabled", llm != nil,
		"classifier", classifierConfig.Strategy,
		"extraction", profile.ExtractionMode,
		"redis", l2 != nil,
	)
	return s, nil
}

// Handler exposes the HTTP handler, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.echoServer
}

// Start listens on the configured address and blocks until the server stops.
// It returns nil after a graceful Shutdown.
func (s *Server) Start(ctx context.Context) error {
	ctx, s.cancel = context.WithCancel(ctx)
	go s.logMetrics(ctx)

	addr := net.JoinHostPort(s.Profile.Addr, fmt.Sprint(s.Profile.Port))
	s.echoServer.Server.ReadHeaderTimeout = 10 * time.Second
	s.echoServer.Server.IdleTimeout = 120 * time.Second
	slog.Info("server listening", "addr", addr, "version", s.Profile.Version)
	if err := s.echoServer.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return errors.Wrap(err, "failed to start server")
	}
	return nil
}

// Shutdown stops accepting requests, disconnects websocket clients and
// releases the cache and store.
func (s *Server) Shutdown(ctx context.Context) {
	if s.cancel != nil {
		s.cancel()
	}
	if err := s.echoServer.Shutdown(ctx); err != nil {
		slog.Error("failed to shutdown http server", "error", err)
	}
	if err := s.hub.Close(); err != nil {
		slog.Error("failed to close realtime hub", "error", err)
	}
	if err := s.cache.Close(); err != nil {
		slog.Error("failed to close cache", "error", err)
	}
	if err := s.Store.Close(); err != nil {
		slog.Error("failed to close store", "error", err)
	}
	s.agentMetrics.LogSummary()
	slog.Info("server stopped properly")
}

func (s *Server) logMetrics(ctx context.Context) {
	ticker := time.NewTicker(metricsLogPeriod)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.agentMetrics.LogSummary()
		}
	}
}
