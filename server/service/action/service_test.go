package action

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/hrygo/execfi/plugin/ai/agent"
	"github.com/hrygo/execfi/plugin/polymarket"
	"github.com/hrygo/execfi/plugin/x402"
	"github.com/hrygo/execfi/server/realtime"
	"github.com/hrygo/execfi/store"
	storetest "github.com/hrygo/execfi/store/test"
)

// MockBetPlacer is a mock for BetPlacer.
type MockBetPlacer struct {
	mock.Mock
}

func (m *MockBetPlacer) PlaceBet(ctx context.Context, req *polymarket.BetRequest) (*polymarket.BetResult, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*polymarket.BetResult), args.Error(1)
}

// MockPaymentVerifier is a mock for PaymentVerifier.
type MockPaymentVerifier struct {
	mock.Mock
}

func (m *MockPaymentVerifier) GetStatus(ctx context.Context, signature string) (*x402.Transaction, error) {
	args := m.Called(ctx, signature)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*x402.Transaction), args.Error(1)
}

type event struct {
	room, name string
	payload    *TransactionUpdate
}

type recordingNotifier struct {
	mu     sync.Mutex
	events []event
}

func (n *recordingNotifier) Publish(room, name string, payload any) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, event{room: room, name: name, payload: payload.(*TransactionUpdate)})
}

type fixture struct {
	store    *store.Store
	bets     *MockBetPlacer
	payments *MockPaymentVerifier
	notifier *recordingNotifier
	svc      *Service
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	st := storetest.NewTestingStore(context.Background(), t)
	f := &fixture{
		store:    st,
		bets:     &MockBetPlacer{},
		payments: &MockPaymentVerifier{},
		notifier: &recordingNotifier{},
	}
	f.svc = NewService(st, f.bets, f.payments, f.notifier, agent.NewMetrics())
	t.Cleanup(func() {
		f.bets.AssertExpectations(t)
		f.payments.AssertExpectations(t)
	})
	return f
}

func (f *fixture) pending(t *testing.T, userID string, kind store.ActionKind, payload any) *store.Action {
	t.Helper()
	raw, err := json.Marshal(payload)
	require.NoError(t, err)
	a, err := f.store.CreateAction(context.Background(), &store.Action{
		UserID:               userID,
		ConversationID:       "conv-" + userID,
		Kind:                 kind,
		RequiresConfirmation: true,
		Payload:              string(raw),
	})
	require.NoError(t, err)
	return a
}

func (f *fixture) audits(t *testing.T, userID string) []string {
	t.Helper()
	logs, err := f.store.ListAuditLogs(context.Background(), &store.FindAuditLog{UserID: &userID})
	require.NoError(t, err)
	var actions []string
	for _, l := range logs {
		actions = append(actions, l.Action)
	}
	return actions
}

func TestConfirm_TransactionRecordsHash(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	a := f.pending(t, "u1", store.ActionKindTransactionSimulation, map[string]string{"amount": "1"})

	confirmed, err := f.svc.Confirm(ctx, a.ID, "u1", ConfirmRequest{TxHash: " 5xSig "})
	require.NoError(t, err)
	assert.Equal(t, store.ActionStatusConfirmed, confirmed.Status)
	assert.JSONEq(t, `{"txHash":"5xSig"}`, confirmed.Result)

	assert.Equal(t, []string{store.AuditActionConfirmed}, f.audits(t, "u1"))
	require.Len(t, f.notifier.events, 1)
	ev := f.notifier.events[0]
	assert.Equal(t, realtime.TransactionRoom(a.ID), ev.room)
	assert.Equal(t, realtime.EventTransactionUpdate, ev.name)
	assert.Equal(t, "confirmed", ev.payload.Status)

	_, err = f.svc.Confirm(ctx, a.ID, "u1", ConfirmRequest{})
	assert.ErrorIs(t, err, store.ErrLedgerConflict, "confirmed is terminal")
	_, err = f.svc.Cancel(ctx, a.ID, "u1")
	assert.ErrorIs(t, err, store.ErrLedgerConflict)
}

func TestConfirm_Bet(t *testing.T) {
	ctx := context.Background()
	bet := agent.BetPlacement{MarketID: "m1", OutcomeIndex: 1, Outcome: "No", Amount: "50", Maker: "wallet-u1"}

	t.Run("places order", func(t *testing.T) {
		f := newFixture(t)
		a := f.pending(t, "u1", store.ActionKindBetPlacement, bet)
		f.bets.On("PlaceBet", mock.Anything, &polymarket.BetRequest{MarketID: "m1", OutcomeIndex: 1, Amount: "50", Maker: "wallet-u1"}).
			Return(&polymarket.BetResult{OrderID: "o1", MarketID: "m1", Outcome: 1, Amount: "50", EstimatedPrice: 0.42}, nil).Once()

		confirmed, err := f.svc.Confirm(ctx, a.ID, "u1", ConfirmRequest{})
		require.NoError(t, err)
		assert.Equal(t, store.ActionStatusConfirmed, confirmed.Status)
		assert.Contains(t, confirmed.Result, `"orderId":"o1"`)
	})

	t.Run("order failure fails the action", func(t *testing.T) {
		f := newFixture(t)
		a := f.pending(t, "u1", store.ActionKindBetPlacement, bet)
		f.bets.On("PlaceBet", mock.Anything, mock.Anything).Return(nil, errors.New("insufficient balance")).Once()

		_, err := f.svc.Confirm(ctx, a.ID, "u1", ConfirmRequest{})
		require.Error(t, err)
		assert.ErrorIs(t, err, agent.ErrCapability)

		stored, err := f.store.GetAction(ctx, a.ID)
		require.NoError(t, err)
		assert.Equal(t, store.ActionStatusFailed, stored.Status)
		assert.Contains(t, stored.Result, "insufficient balance")
		assert.Equal(t, []string{store.AuditActionFailed}, f.audits(t, "u1"))
	})
}

func TestConfirm_ConcurrentBetPlacesOnce(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	a := f.pending(t, "u1", store.ActionKindBetPlacement, agent.BetPlacement{MarketID: "m1", OutcomeIndex: 0, Amount: "10", Maker: "wallet-u1"})

	var placed atomic.Int32
	f.bets.On("PlaceBet", mock.Anything, mock.Anything).
		Run(func(mock.Arguments) {
			placed.Add(1)
			time.Sleep(20 * time.Millisecond)
		}).
		Return(&polymarket.BetResult{OrderID: "o1", MarketID: "m1", Amount: "10"}, nil)

	const confirmers = 5
	var wg sync.WaitGroup
	results := make(chan error, confirmers)
	for i := 0; i < confirmers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.svc.Confirm(ctx, a.ID, "u1", ConfirmRequest{})
			results <- err
		}()
	}
	wg.Wait()
	close(results)

	succeeded := 0
	for err := range results {
		if err == nil {
			succeeded++
			continue
		}
		assert.ErrorIs(t, err, store.ErrLedgerConflict)
	}
	assert.Equal(t, 1, succeeded)
	assert.Equal(t, int32(1), placed.Load())

	stored, err := f.store.GetAction(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, store.ActionStatusConfirmed, stored.Status)
	assert.Equal(t, []string{store.AuditActionConfirmed}, f.audits(t, "u1"))
}

func TestCancel_ClaimedBetConflicts(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	a := f.pending(t, "u1", store.ActionKindBetPlacement, agent.BetPlacement{MarketID: "m1", Amount: "10"})
	_, err := f.store.ClaimAction(ctx, &store.ClaimAction{ID: a.ID})
	require.NoError(t, err)

	tests := []struct {
		name string
		run  func() error
	}{
		{"confirm", func() error { _, err := f.svc.Confirm(ctx, a.ID, "u1", ConfirmRequest{}); return err }},
		{"cancel", func() error { _, err := f.svc.Cancel(ctx, a.ID, "u1"); return err }},
		{"fail", func() error { _, err := f.svc.Fail(ctx, a.ID, "u1", "gave up"); return err }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ErrorIs(t, tt.run(), store.ErrLedgerConflict)
		})
	}
	stored, err := f.store.GetAction(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, store.ActionStatusPending, stored.Status)
}

func TestConfirm_Rejections(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	a := f.pending(t, "owner", store.ActionKindSwapQuote, map[string]string{})

	_, err := f.svc.Confirm(ctx, a.ID, "intruder", ConfirmRequest{})
	assert.ErrorIs(t, err, store.ErrOwnership)
	_, err = f.svc.Confirm(ctx, "missing", "owner", ConfirmRequest{})
	assert.ErrorIs(t, err, store.ErrNotFound)

	payment := f.pending(t, "owner", store.ActionKindPaymentRequest, map[string]string{})
	_, err = f.svc.Confirm(ctx, payment.ID, "owner", ConfirmRequest{TxHash: "x"})
	assert.ErrorIs(t, err, store.ErrLedgerConflict)
	_, err = f.svc.Cancel(ctx, payment.ID, "owner")
	assert.ErrorIs(t, err, store.ErrLedgerConflict)

	stored, err := f.store.GetAction(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, store.ActionStatusPending, stored.Status)
	assert.Empty(t, f.notifier.events)
}

func TestCancelAndFail(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	first := f.pending(t, "u1", store.ActionKindSwapQuote, map[string]string{})
	second := f.pending(t, "u1", store.ActionKindTransactionSimulation, map[string]string{})

	cancelled, err := f.svc.Cancel(ctx, first.ID, "u1")
	require.NoError(t, err)
	assert.Equal(t, store.ActionStatusCancelled, cancelled.Status)

	failed, err := f.svc.Fail(ctx, second.ID, "u1", "rejected by wallet")
	require.NoError(t, err)
	assert.Equal(t, store.ActionStatusFailed, failed.Status)
	assert.JSONEq(t, `{"reason":"rejected by wallet"}`, failed.Result)

	assert.ElementsMatch(t, []string{store.AuditActionCancelled, store.AuditActionFailed}, f.audits(t, "u1"))

	list, err := f.svc.ListActions(ctx, "u1", "cancelled", 0)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, first.ID, list[0].ID)

	all, err := f.svc.ListActions(ctx, "u1", "", 0)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	_, err = f.svc.ListActions(ctx, "u1", "done", 0)
	assert.ErrorIs(t, err, store.ErrInvalidInput)
}

const usdcMint = "EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v"

func createPayment(t *testing.T, f *fixture, userID, reference string) *store.Payment {
	t.Helper()
	p, err := f.store.CreatePaymentWithAction(context.Background(), &store.Payment{
		UserID:           userID,
		Reference:        reference,
		Amount:           "2",
		TokenMint:        usdcMint,
		RecipientAddress: "recipient",
		SenderAddress:    "wallet-" + userID,
	}, &store.Action{
		UserID:               userID,
		Kind:                 store.ActionKindPaymentRequest,
		RequiresConfirmation: true,
	})
	require.NoError(t, err)
	return p
}

func TestVerifyPayment(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name          string
		status        x402.Status
		paymentStatus store.PaymentStatus
		actionStatus  store.ActionStatus
	}{
		{"completed confirms", x402.StatusCompleted, store.PaymentStatusCompleted, store.ActionStatusConfirmed},
		{"failed fails", x402.StatusFailed, store.PaymentStatusFailed, store.ActionStatusFailed},
		{"pending leaves it pending", x402.StatusPending, store.PaymentStatusPending, store.ActionStatusPending},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			p := createPayment(t, f, "u1", "ref-"+string(tt.status))
			f.payments.On("GetStatus", mock.Anything, "sig-1").
				Return(&x402.Transaction{Signature: "sig-1", Status: tt.status, Amount: decimal.NewFromInt(2), TokenMint: usdcMint}, nil).Once()

			got, err := f.svc.VerifyPayment(ctx, "u1", "sig-1", p.Reference)
			require.NoError(t, err)
			assert.Equal(t, tt.paymentStatus, got.Status)

			a, err := f.store.GetAction(ctx, p.ActionID)
			require.NoError(t, err)
			assert.Equal(t, tt.actionStatus, a.Status)

			if tt.status == x402.StatusPending {
				assert.Empty(t, f.notifier.events)
				return
			}
			assert.Equal(t, "sig-1", got.Signature)
			assert.Equal(t, []string{store.AuditPaymentVerified}, f.audits(t, "u1"))
			require.Len(t, f.notifier.events, 1)
			assert.Equal(t, realtime.TransactionRoom(p.ActionID), f.notifier.events[0].room)
		})
	}
}

func TestVerifyPayment_Rejections(t *testing.T) {
	ctx := context.Background()
	completed := func(signature, mint string, amount decimal.Decimal) *x402.Transaction {
		return &x402.Transaction{Signature: signature, Status: x402.StatusCompleted, Amount: amount, TokenMint: mint}
	}

	tests := []struct {
		name      string
		userID    string
		signature string
		reference string
		// settledBy settles another payment with signature first.
		settledBy bool
		tx        *x402.Transaction
		railErr   error
		wantErr   error
	}{
		{name: "foreign user", userID: "intruder", signature: "sig", reference: "ref-owner", wantErr: store.ErrOwnership},
		{name: "missing reference", userID: "owner", signature: "sig", reference: "", wantErr: store.ErrInvalidInput},
		{name: "unknown reference", userID: "owner", signature: "sig", reference: "unknown", wantErr: store.ErrNotFound},
		{name: "rail down", userID: "owner", signature: "sig", reference: "ref-owner", railErr: errors.New("rail down"), wantErr: agent.ErrCapability},
		{
			name: "wrong mint", userID: "owner", signature: "sig", reference: "ref-owner",
			tx: completed("sig", "So11111111111111111111111111111111111111112", decimal.NewFromInt(2)), wantErr: store.ErrInvalidInput,
		},
		{
			name: "short amount", userID: "owner", signature: "sig", reference: "ref-owner",
			tx: completed("sig", usdcMint, decimal.RequireFromString("1.99")), wantErr: store.ErrInvalidInput,
		},
		{
			name: "rail answers for another signature", userID: "owner", signature: "sig", reference: "ref-owner",
			tx: completed("sig-other", usdcMint, decimal.NewFromInt(2)), wantErr: store.ErrInvalidInput,
		},
		{
			name: "failed transfer in another mint", userID: "owner", signature: "sig", reference: "ref-owner",
			tx: &x402.Transaction{Signature: "sig", Status: x402.StatusFailed, TokenMint: "other"}, wantErr: store.ErrInvalidInput,
		},
		{
			name: "signature reused", userID: "owner", signature: "sig-used", reference: "ref-owner", settledBy: true,
			tx: completed("sig-used", usdcMint, decimal.NewFromInt(2)), wantErr: store.ErrLedgerConflict,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			p := createPayment(t, f, "owner", "ref-owner")
			if tt.settledBy {
				other := createPayment(t, f, "owner", "ref-other")
				_, err := f.store.SettlePayment(ctx, &store.SettlePayment{PaymentID: other.ID, Status: store.PaymentStatusCompleted, Signature: tt.signature})
				require.NoError(t, err)
			}
			if tt.tx != nil || tt.railErr != nil {
				f.payments.On("GetStatus", mock.Anything, tt.signature).Return(tt.tx, tt.railErr).Once()
			}

			_, err := f.svc.VerifyPayment(ctx, tt.userID, tt.signature, tt.reference)
			assert.ErrorIs(t, err, tt.wantErr)

			stored, err := f.store.GetPayment(ctx, &store.FindPayment{ID: &p.ID})
			require.NoError(t, err)
			assert.Equal(t, store.PaymentStatusPending, stored.Status)
			assert.Empty(t, stored.Signature)
			a, err := f.store.GetAction(ctx, p.ActionID)
			require.NoError(t, err)
			assert.Equal(t, store.ActionStatusPending, a.Status)
			assert.Empty(t, f.notifier.events)
		})
	}
}

func TestVerifyPayment_SettlesOnce(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	p := createPayment(t, f, "owner", "ref-owner")

	f.payments.On("GetStatus", mock.Anything, "sig-ok").
		Return(&x402.Transaction{Signature: "sig-ok", Status: x402.StatusCompleted, Amount: decimal.RequireFromString("2.5"), TokenMint: usdcMint}, nil).Once()
	_, err := f.svc.VerifyPayment(ctx, "owner", "sig-ok", p.Reference)
	require.NoError(t, err)
	_, err = f.svc.VerifyPayment(ctx, "owner", "sig-ok", p.Reference)
	assert.ErrorIs(t, err, store.ErrLedgerConflict, "settled payments cannot be verified again")
}
