package v1

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/feeds"
	"github.com/labstack/echo/v4"

	"github.com/hrygo/execfi/internal/profile"
	apierrors "github.com/hrygo/execfi/server/internal/errors"
	"github.com/hrygo/execfi/store"
)

const (
	defaultUserSignalLimit   = 50
	defaultRecentSignalLimit = 20
	recentSignalWindow       = 24 * time.Hour
)

// ListUserSignals handles GET /api/v1/signals.
func (s *APIV1Service) ListUserSignals(c echo.Context) error {
	id, err := currentIdentity(c)
	if err != nil {
		return err
	}
	limit := queryInt(c, "limit")
	if limit <= 0 {
		limit = defaultUserSignalLimit
	}
	signals, err := s.Store.ListSignals(c.Request().Context(), &store.FindSignal{UserID: &id.UserID, Limit: &limit})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]any{"signals": newSignalViews(signals)})
}

// ListRecentSignals handles GET /api/v1/signals/recent?chain=solana. It
// returns signals of every user from the last 24 hours.
func (s *APIV1Service) ListRecentSignals(c echo.Context) error {
	chain, err := chainParam(c)
	if err != nil {
		return err
	}
	signals, err := s.recentSignals(c, chain)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]any{"chain": chain, "signals": newSignalViews(signals)})
}

// SignalFeed serves the recent signals of a chain as RSS, or Atom when the
// path ends in .atom.
func (s *APIV1Service) SignalFeed(c echo.Context) error {
	chain, err := chainParam(c)
	if err != nil {
		return err
	}
	signals, err := s.recentSignals(c, chain)
	if err != nil {
		return err
	}

	base := c.Scheme() + "://" + c.Request().Host + "/api/v1/signals"
	feed := &feeds.Feed{
		Title:       fmt.Sprintf("ExecFi %s trading signals", chain),
		Link:        &feeds.Link{Href: base + "/recent?chain=" + chain},
		Description: "Trading signals generated in the last 24 hours.",
		Created:     time.Now().UTC(),
	}
	for _, sig := range signals {
		feed.Items = append(feed.Items, &feeds.Item{
			Id:          sig.ID,
			Title:       fmt.Sprintf("%s %s (%d%% confidence, %s risk)", strings.ToUpper(string(sig.SignalType)), sig.TokenSymbol, sig.Confidence, sig.RiskLevel),
			Link:        &feeds.Link{Href: base + "/recent?chain=" + chain + "#" + sig.ID},
			Description: sig.Reasoning,
			Created:     time.UnixMilli(sig.CreatedTs).UTC(),
		})
	}

	if strings.HasSuffix(c.Path(), ".atom") {
		atom, err := feed.ToAtom()
		if err != nil {
			return err
		}
		return c.Blob(http.StatusOK, "application/atom+xml; charset=utf-8", []byte(atom))
	}
	rss, err := feed.ToRss()
	if err != nil {
		return err
	}
	return c.Blob(http.StatusOK, "application/rss+xml; charset=utf-8", []byte(rss))
}

func (s *APIV1Service) recentSignals(c echo.Context, chain string) ([]*store.Signal, error) {
	limit := queryInt(c, "limit")
	if limit <= 0 {
		limit = defaultRecentSignalLimit
	}
	after := time.Now().Add(-recentSignalWindow).UnixMilli()
	return s.Store.ListSignals(c.Request().Context(), &store.FindSignal{Chain: &chain, CreatedAfter: &after, Limit: &limit})
}

func chainParam(c echo.Context) (string, error) {
	chain := strings.ToLower(c.QueryParam("chain"))
	if chain == "" {
		return "solana", nil
	}
	for _, supported := range profile.Chains {
		if chain == supported {
			return chain, nil
		}
	}
	return "", apierrors.InvalidArgument("unsupported chain " + chain)
}
