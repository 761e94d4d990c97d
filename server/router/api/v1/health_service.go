package v1

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/hrygo/execfi/plugin/ai/agent"
	"github.com/hrygo/execfi/internal/observability"
)

const healthCheckTimeout = 2 * time.Second

type healthResponse struct {
	Status   string                        `json:"status"`
	Version  string                        `json:"version"`
	Mode     string                        `json:"mode"`
	Database string                        `json:"database"`
	Routes   []observability.RouteSnapshot `json:"routes"`
	Agent    agent.Summary                 `json:"agent"`
}

// Healthz reports database reachability together with request and executor
// metrics. It answers 503 when the database cannot be reached.
func (s *APIV1Service) Healthz(c echo.Context) error {
	resp := healthResponse{
		Status:   "ok",
		Version:  s.Profile.Version,
		Mode:     s.Profile.Mode,
		Database: "ok",
		Routes:   []observability.RouteSnapshot{},
	}
	if s.Metrics != nil {
		resp.Routes = s.Metrics.Snapshot()
	}
	if s.AgentMetrics != nil {
		resp.Agent = s.AgentMetrics.Summary()
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), healthCheckTimeout)
	defer cancel()
	if err := s.Store.GetDriver().GetDB().PingContext(ctx); err != nil {
		resp.Status = "degraded"
		resp.Database = err.Error()
		return c.JSON(http.StatusServiceUnavailable, resp)
	}
	return c.JSON(http.StatusOK, resp)
}
