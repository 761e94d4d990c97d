// Package action resolves pending ledger actions. It is the only place an
// action leaves the pending state, and the only place a confirmed bet moves
// funds.
package action

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/hrygo/execfi/plugin/ai/agent"
	"github.com/hrygo/execfi/plugin/polymarket"
	"github.com/hrygo/execfi/plugin/x402"
	"github.com/hrygo/execfi/server/realtime"
	"github.com/hrygo/execfi/store"
)

// DefaultListLimit bounds ListActions when no limit is given.
const DefaultListLimit = 50

// BetPlacer places a confirmed prediction-market order.
type BetPlacer interface {
	PlaceBet(ctx context.Context, req *polymarket.BetRequest) (*polymarket.BetResult, error)
}

// PaymentVerifier reports the settlement of an x402 payment.
type PaymentVerifier interface {
	GetStatus(ctx context.Context, signature string) (*x402.Transaction, error)
}

// ConfirmRequest carries what the client reports when confirming.
type ConfirmRequest struct {
	// TxHash is the signature of the transaction the client submitted.
	TxHash string
}

// TransactionUpdate is the payload of a transaction-update event.
type TransactionUpdate struct {
	TransactionID string          `json:"transactionId"`
	Status        string          `json:"status"`
	Data          json.RawMessage `json:"data"`
}

// Service resolves actions.
type Service struct {
	store    *store.Store
	bets     BetPlacer
	payments PaymentVerifier
	notifier agent.Notifier
	metrics  *agent.Metrics
}

// NewService creates the action service. notifier and metrics may be nil.
func NewService(st *store.Store, bets BetPlacer, payments PaymentVerifier, notifier agent.Notifier, metrics *agent.Metrics) *Service {
	return &Service{store: st, bets: bets, payments: payments, notifier: notifier, metrics: metrics}
}

// GetAction returns an action owned by userID.
func (s *Service) GetAction(ctx context.Context, id, userID string) (*store.Action, error) {
	action, err := s.store.GetAction(ctx, id)
	if err != nil {
		return nil, err
	}
	if action.UserID != userID {
		return nil, store.ErrOwnership
	}
	return action, nil
}

// ListActions returns the ledger of userID, newest first, optionally filtered
// by status.
func (s *Service) ListActions(ctx context.Context, userID, status string, limit int) ([]*store.Action, error) {
	find := &store.FindAction{UserID: &userID}
	if status != "" {
		st := store.ActionStatus(status)
		if st != store.ActionStatusPending && !st.IsTerminal() {
			return nil, fmt.Errorf("unknown action status %q: %w", status, store.ErrInvalidInput)
		}
		find.Status = &st
	}
	if limit <= 0 {
		limit = DefaultListLimit
	}
	find.Limit = &limit
	return s.store.ListActions(ctx, find)
}

// Confirm moves a pending action to confirmed. A bet action is claimed before
// the order is placed, so concurrent confirmations place at most one order;
// when placing it fails the action is marked failed and the error is
// returned. Payment requests settle only through VerifyPayment.
func (s *Service) Confirm(ctx context.Context, id, userID string, req ConfirmRequest) (*store.Action, error) {
	action, err := s.pending(ctx, id, userID)
	if err != nil {
		return nil, err
	}

	var result any
	switch action.Kind {
	case store.ActionKindPaymentRequest:
		return nil, fmt.Errorf("payment requests are confirmed by verifying the payment: %w", store.ErrLedgerConflict)
	case store.ActionKindBetPlacement:
		action, err = s.store.ClaimAction(ctx, &store.ClaimAction{ID: action.ID})
		if err != nil {
			return nil, err
		}
		bet, err := s.placeBet(ctx, action)
		// The order is out; the ledger must record it even if the caller left.
		ctx = context.WithoutCancel(ctx)
		if err != nil {
			if _, failErr := s.transition(ctx, action, store.ActionStatusFailed, map[string]string{"error": err.Error()}, store.AuditActionFailed); failErr != nil {
				slog.Error("failed to mark bet as failed", "action_id", action.ID, "error", failErr)
			}
			return nil, err
		}
		result = bet
	default:
		result = map[string]string{"txHash": strings.TrimSpace(req.TxHash)}
	}
	return s.transition(ctx, action, store.ActionStatusConfirmed, result, store.AuditActionConfirmed)
}

// Cancel moves a pending action to cancelled.
func (s *Service) Cancel(ctx context.Context, id, userID string) (*store.Action, error) {
	action, err := s.pending(ctx, id, userID)
	if err != nil {
		return nil, err
	}
	if action.Kind == store.ActionKindPaymentRequest {
		return nil, fmt.Errorf("payment requests settle only through verification: %w", store.ErrLedgerConflict)
	}
	return s.transition(ctx, action, store.ActionStatusCancelled, map[string]string{}, store.AuditActionCancelled)
}

// Fail moves a pending action to failed, recording reason. Clients report
// failures of transactions they submitted this way.
func (s *Service) Fail(ctx context.Context, id, userID, reason string) (*store.Action, error) {
	action, err := s.pending(ctx, id, userID)
	if err != nil {
		return nil, err
	}
	if action.Kind == store.ActionKindPaymentRequest {
		return nil, fmt.Errorf("payment requests settle only through verification: %w", store.ErrLedgerConflict)
	}
	return s.transition(ctx, action, store.ActionStatusFailed, map[string]string{"reason": reason}, store.AuditActionFailed)
}

// VerifyPayment asks the rail for the status of signature and settles the
// payment identified by reference. A payment the rail still reports pending
// is returned unchanged. A transaction in another mint, below the requested
// amount, or already settling another payment is rejected.
func (s *Service) VerifyPayment(ctx context.Context, userID, signature, reference string) (*store.Payment, error) {
	signature, reference = strings.TrimSpace(signature), strings.TrimSpace(reference)
	if signature == "" || reference == "" {
		return nil, fmt.Errorf("signature and reference are required: %w", store.ErrInvalidInput)
	}

	payment, err := s.store.GetPayment(ctx, &store.FindPayment{Reference: &reference})
	if err != nil {
		return nil, err
	}
	if payment.UserID != userID {
		return nil, store.ErrOwnership
	}
	if payment.Status != store.PaymentStatusPending {
		return nil, store.ErrLedgerConflict
	}

	tx, err := agent.Call(ctx, s.metrics, "x402", func(ctx context.Context) (*x402.Transaction, error) {
		return s.payments.GetStatus(ctx, signature)
	})
	if err != nil {
		return nil, err
	}
	if tx.Status == x402.StatusPending {
		return payment, nil
	}
	if err := s.matchPayment(ctx, payment, signature, tx); err != nil {
		return nil, err
	}

	status := store.PaymentStatusFailed
	if tx.Status == x402.StatusCompleted {
		status = store.PaymentStatusCompleted
	}
	raw, err := json.Marshal(tx)
	if err != nil {
		return nil, err
	}
	settled, err := s.store.SettlePayment(ctx, &store.SettlePayment{
		PaymentID: payment.ID,
		Status:    status,
		Signature: signature,
		Result:    string(raw),
	})
	if err != nil {
		return nil, err
	}

	s.audit(ctx, userID, store.AuditPaymentVerified, "payment", settled.ID, map[string]any{
		"signature": signature,
		"status":    status,
		"reference": reference,
	})
	actionStatus := store.ActionStatusFailed
	if status == store.PaymentStatusCompleted {
		actionStatus = store.ActionStatusConfirmed
	}
	s.notify(settled.ActionID, actionStatus, raw)
	slog.Info("payment verified", "payment_id", settled.ID, "status", status, "user_id", userID)
	return settled, nil
}

func (s *Service) matchPayment(ctx context.Context, payment *store.Payment, signature string, tx *x402.Transaction) error {
	if tx.Signature != "" && tx.Signature != signature {
		return fmt.Errorf("rail returned transaction %s for signature %s: %w", tx.Signature, signature, store.ErrInvalidInput)
	}
	if tx.TokenMint != payment.TokenMint {
		return fmt.Errorf("transaction mint %s does not match payment mint %s: %w", tx.TokenMint, payment.TokenMint, store.ErrInvalidInput)
	}
	want, err := decimal.NewFromString(payment.Amount)
	if err != nil {
		return fmt.Errorf("invalid payment amount %q: %w", payment.Amount, err)
	}
	if tx.Amount.LessThan(want) {
		return fmt.Errorf("transaction amount %s is below payment amount %s: %w", tx.Amount, want, store.ErrInvalidInput)
	}

	used, err := s.store.ListPayments(ctx, &store.FindPayment{Signature: &signature})
	if err != nil {
		return err
	}
	for _, p := range used {
		if p.ID != payment.ID {
			return fmt.Errorf("signature already settled payment %s: %w", p.ID, store.ErrLedgerConflict)
		}
	}
	return nil
}

func (s *Service) pending(ctx context.Context, id, userID string) (*store.Action, error) {
	action, err := s.GetAction(ctx, id, userID)
	if err != nil {
		return nil, err
	}
	if action.Status != store.ActionStatusPending {
		return nil, store.ErrLedgerConflict
	}
	return action, nil
}

func (s *Service) placeBet(ctx context.Context, action *store.Action) (*polymarket.BetResult, error) {
	var bet agent.BetPlacement
	if err := json.Unmarshal([]byte(action.Payload), &bet); err != nil {
		return nil, fmt.Errorf("invalid bet payload: %w", err)
	}
	return agent.Call(ctx, s.metrics, "polymarket", func(ctx context.Context) (*polymarket.BetResult, error) {
		return s.bets.PlaceBet(ctx, &polymarket.BetRequest{
			MarketID:     bet.MarketID,
			OutcomeIndex: bet.OutcomeIndex,
			Amount:       bet.Amount,
			Maker:        bet.Maker,
		})
	})
}

func (s *Service) transition(ctx context.Context, action *store.Action, to store.ActionStatus, result any, auditAction string) (*store.Action, error) {
	raw, err := json.Marshal(result)
	if err != nil {
		return nil, err
	}
	updated, err := s.store.TransitionAction(ctx, &store.TransitionAction{
		ID:        action.ID,
		From:      store.ActionStatusPending,
		To:        to,
		Result:    string(raw),
		ClaimedTs: action.ClaimedTs,
	})
	if err != nil {
		return nil, err
	}

	s.audit(ctx, action.UserID, auditAction, "action", action.ID, map[string]any{
		"kind":   action.Kind,
		"status": to,
	})
	s.notify(action.ID, to, raw)
	slog.Info("action resolved", "action_id", action.ID, "kind", action.Kind, "status", to, "user_id", action.UserID)
	return updated, nil
}

// audit is best effort: the transition already happened.
func (s *Service) audit(ctx context.Context, userID, auditAction, resourceType, resourceID string, details map[string]any) {
	raw, err := json.Marshal(details)
	if err != nil {
		return
	}
	if _, err := s.store.CreateAuditLog(ctx, &store.AuditLog{
		UserID:       userID,
		Action:       auditAction,
		ResourceType: resourceType,
		ResourceID:   resourceID,
		Details:      string(raw),
	}); err != nil {
		slog.Error("failed to write audit log", "action", auditAction, "resource_id", resourceID, "error", err)
	}
}

func (s *Service) notify(actionID string, status store.ActionStatus, data json.RawMessage) {
	if s.notifier == nil {
		return
	}
	s.notifier.Publish(realtime.TransactionRoom(actionID), realtime.EventTransactionUpdate, &TransactionUpdate{
		TransactionID: actionID,
		Status:        string(status),
		Data:          data,
	})
}
