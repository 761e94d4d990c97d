package v1

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/hrygo/execfi/server/service/action"
	"github.com/hrygo/execfi/server/service/chat"
)

type confirmActionRequest struct {
	TxHash string `json:"txHash"`
}

type failActionRequest struct {
	Reason string `json:"reason"`
}

// ListActions handles GET /api/v1/actions?status=pending.
func (s *APIV1Service) ListActions(c echo.Context) error {
	id, err := currentIdentity(c)
	if err != nil {
		return err
	}
	actions, err := s.Actions.ListActions(c.Request().Context(), id.UserID, c.QueryParam("status"), queryInt(c, "limit"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]any{"actions": newActionViews(actions)})
}

// GetAction handles GET /api/v1/actions/:id.
func (s *APIV1Service) GetAction(c echo.Context) error {
	id, err := currentIdentity(c)
	if err != nil {
		return err
	}
	a, err := s.Actions.GetAction(c.Request().Context(), c.Param("id"), id.UserID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, chat.NewActionRecord(a))
}

// ConfirmAction handles POST /api/v1/actions/:id/confirm.
func (s *APIV1Service) ConfirmAction(c echo.Context) error {
	id, err := currentIdentity(c)
	if err != nil {
		return err
	}
	var req confirmActionRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	a, err := s.Actions.Confirm(c.Request().Context(), c.Param("id"), id.UserID, action.ConfirmRequest{TxHash: req.TxHash})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, chat.NewActionRecord(a))
}

// CancelAction handles POST /api/v1/actions/:id/cancel.
func (s *APIV1Service) CancelAction(c echo.Context) error {
	id, err := currentIdentity(c)
	if err != nil {
		return err
	}
	a, err := s.Actions.Cancel(c.Request().Context(), c.Param("id"), id.UserID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, chat.NewActionRecord(a))
}

// FailAction handles POST /api/v1/actions/:id/fail.
func (s *APIV1Service) FailAction(c echo.Context) error {
	id, err := currentIdentity(c)
	if err != nil {
		return err
	}
	var req failActionRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	a, err := s.Actions.Fail(c.Request().Context(), c.Param("id"), id.UserID, req.Reason)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, chat.NewActionRecord(a))
}
