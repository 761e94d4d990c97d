package test

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/hrygo/execfi/store"
)

func TestActionStore_Transition(t *testing.T) {
	ctx := context.Background()
	ts := NewTestingStore(ctx, t)

	action, err := ts.CreateAction(ctx, &store.Action{
		UserID:               "wallet-a",
		Kind:                 store.ActionKindTransactionSimulation,
		RequiresConfirmation: true,
		Payload:              `{"amount":"1"}`,
	})
	require.NoError(t, err)
	require.Equal(t, store.ActionStatusPending, action.Status)

	got, err := ts.GetAction(ctx, action.ID)
	require.NoError(t, err)
	require.True(t, got.RequiresConfirmation)
	require.Equal(t, store.ActionKindTransactionSimulation, got.Kind)

	confirmed, err := ts.TransitionAction(ctx, &store.TransitionAction{
		ID:     action.ID,
		From:   store.ActionStatusPending,
		To:     store.ActionStatusConfirmed,
		Result: `{"ok":true}`,
	})
	require.NoError(t, err)
	require.Equal(t, store.ActionStatusConfirmed, confirmed.Status)
	require.Equal(t, `{"ok":true}`, confirmed.Result)

	// A terminal action never moves again.
	_, err = ts.TransitionAction(ctx, &store.TransitionAction{
		ID:   action.ID,
		From: store.ActionStatusPending,
		To:   store.ActionStatusCancelled,
	})
	require.ErrorIs(t, err, store.ErrLedgerConflict)

	_, err = ts.TransitionAction(ctx, &store.TransitionAction{
		ID:   action.ID,
		From: store.ActionStatusConfirmed,
		To:   store.ActionStatusFailed,
	})
	require.ErrorIs(t, err, store.ErrLedgerConflict)

	_, err = ts.TransitionAction(ctx, &store.TransitionAction{
		ID:   "missing",
		From: store.ActionStatusPending,
		To:   store.ActionStatusConfirmed,
	})
	require.ErrorIs(t, err, store.ErrNotFound)
}

func TestActionStore_ConcurrentConfirmation(t *testing.T) {
	ctx := context.Background()
	ts := NewTestingStore(ctx, t)

	action, err := ts.CreateAction(ctx, &store.Action{
		UserID:               "wallet-a",
		Kind:                 store.ActionKindSwapQuote,
		RequiresConfirmation: true,
	})
	require.NoError(t, err)

	const writers = 8
	var wg sync.WaitGroup
	results := make(chan error, writers)
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := ts.TransitionAction(ctx, &store.TransitionAction{
				ID:   action.ID,
				From: store.ActionStatusPending,
				To:   store.ActionStatusConfirmed,
			})
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
		require.ErrorIs(t, err, store.ErrLedgerConflict)
	}
	require.Equal(t, 1, succeeded)
}

func TestActionStore_ListFilters(t *testing.T) {
	ctx := context.Background()
	ts := NewTestingStore(ctx, t)

	for _, userID := range []string{"wallet-a", "wallet-a", "wallet-b"} {
		_, err := ts.CreateAction(ctx, &store.Action{UserID: userID, Kind: store.ActionKindBetPlacement, RequiresConfirmation: true})
		require.NoError(t, err)
	}

	userID := "wallet-a"
	status := store.ActionStatusPending
	list, err := ts.ListActions(ctx, &store.FindAction{UserID: &userID, Status: &status})
	require.NoError(t, err)
	require.Len(t, list, 2)
}

func TestActionStore_Claim(t *testing.T) {
	ctx := context.Background()
	ts := NewTestingStore(ctx, t)

	action, err := ts.CreateAction(ctx, &store.Action{
		UserID:               "wallet-a",
		Kind:                 store.ActionKindBetPlacement,
		RequiresConfirmation: true,
	})
	require.NoError(t, err)
	require.Zero(t, action.ClaimedTs)

	claimed, err := ts.ClaimAction(ctx, &store.ClaimAction{ID: action.ID, ClaimedTs: 42})
	require.NoError(t, err)
	require.Equal(t, int64(42), claimed.ClaimedTs)
	require.Equal(t, store.ActionStatusPending, claimed.Status)

	_, err = ts.ClaimAction(ctx, &store.ClaimAction{ID: action.ID})
	require.ErrorIs(t, err, store.ErrLedgerConflict, "an action is claimed once")
	_, err = ts.ClaimAction(ctx, &store.ClaimAction{ID: "missing"})
	require.ErrorIs(t, err, store.ErrNotFound)

	tests := []struct {
		name      string
		to        store.ActionStatus
		claimedTs int64
	}{
		{name: "unclaimed cancel", to: store.ActionStatusCancelled, claimedTs: 0},
		{name: "unclaimed fail", to: store.ActionStatusFailed, claimedTs: 0},
		{name: "stale claim", to: store.ActionStatusConfirmed, claimedTs: 7},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ts.TransitionAction(ctx, &store.TransitionAction{
				ID:        action.ID,
				From:      store.ActionStatusPending,
				To:        tt.to,
				ClaimedTs: tt.claimedTs,
			})
			require.ErrorIs(t, err, store.ErrLedgerConflict)
		})
	}

	confirmed, err := ts.TransitionAction(ctx, &store.TransitionAction{
		ID:        action.ID,
		From:      store.ActionStatusPending,
		To:        store.ActionStatusConfirmed,
		ClaimedTs: claimed.ClaimedTs,
	})
	require.NoError(t, err)
	require.Equal(t, store.ActionStatusConfirmed, confirmed.Status)

	_, err = ts.ClaimAction(ctx, &store.ClaimAction{ID: action.ID})
	require.ErrorIs(t, err, store.ErrLedgerConflict, "terminal actions cannot be claimed")
}
