package v1

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/hrygo/execfi/plugin/ai/agent"
	"github.com/hrygo/execfi/plugin/ai/router"
	apierrors "github.com/hrygo/execfi/server/internal/errors"
	"github.com/hrygo/execfi/store"
)

type createPaymentRequest struct {
	Amount           json.Number `json:"amount"`
	RecipientAddress string      `json:"recipientAddress"`
	TokenMint        string      `json:"tokenMint"`
}

type paymentView struct {
	ID               string `json:"id"`
	ActionID         string `json:"actionId"`
	Reference        string `json:"reference"`
	Amount           string `json:"amount"`
	TokenMint        string `json:"tokenMint"`
	RecipientAddress string `json:"recipientAddress"`
	PaymentURL       string `json:"paymentUrl"`
	Signature        string `json:"signature,omitempty"`
	Status           string `json:"status"`
	ExpiresAt        int64  `json:"expiresAt"`
	UpdatedTs        int64  `json:"updatedTs"`
}

func newPaymentView(p *store.Payment) *paymentView {
	return &paymentView{
		ID:               p.ID,
		ActionID:         p.ActionID,
		Reference:        p.Reference,
		Amount:           p.Amount,
		TokenMint:        p.TokenMint,
		RecipientAddress: p.RecipientAddress,
		PaymentURL:       p.PaymentURL,
		Signature:        p.Signature,
		Status:           string(p.Status),
		ExpiresAt:        p.ExpiresAt,
		UpdatedTs:        p.UpdatedTs,
	}
}

// CreatePayment handles POST /api/v1/x402/pay.
func (s *APIV1Service) CreatePayment(c echo.Context) error {
	var req createPaymentRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	recipient := strings.TrimSpace(req.RecipientAddress)
	tokenMint := strings.TrimSpace(req.TokenMint)
	if req.Amount == "" || recipient == "" || tokenMint == "" {
		return apierrors.InvalidArgument("amount, recipientAddress and tokenMint are required")
	}
	return s.runExecutor(c, router.IntentX402Payment, map[string]string{
		agent.ParamAmount:    req.Amount.String(),
		agent.ParamRecipient: recipient,
		agent.ParamTokenMint: tokenMint,
	})
}

// VerifyPayment handles GET /api/v1/x402/verify/:signature?reference=...
// and settles the payment once the rail reports a final status.
func (s *APIV1Service) VerifyPayment(c echo.Context) error {
	id, err := currentIdentity(c)
	if err != nil {
		return err
	}
	payment, err := s.Actions.VerifyPayment(c.Request().Context(), id.UserID, c.Param("signature"), c.QueryParam("reference"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, newPaymentView(payment))
}
