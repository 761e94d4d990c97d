package server

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/hrygo/execfi/store"
)

// roomAuthorizer lets a user join conversation and transaction rooms only
// for resources they own.
type roomAuthorizer struct {
	store *store.Store
}

func (a *roomAuthorizer) CanJoin(ctx context.Context, userID, room string) bool {
	switch {
	case strings.HasPrefix(room, "conversation-"):
		_, err := a.store.GetOwnedConversation(ctx, strings.TrimPrefix(room, "conversation-"), userID)
		return a.allowed(err, room)
	case strings.HasPrefix(room, "transaction-"):
		action, err := a.store.GetAction(ctx, strings.TrimPrefix(room, "transaction-"))
		if err != nil {
			return a.allowed(err, room)
		}
		return action.UserID == userID
	case strings.HasPrefix(room, "user-"):
		return strings.TrimPrefix(room, "user-") == userID
	default:
		return false
	}
}

func (a *roomAuthorizer) allowed(err error, room string) bool {
	if err != nil && !errors.Is(err, store.ErrNotFound) && !errors.Is(err, store.ErrOwnership) {
		slog.Warn("failed to authorize realtime room", "room", room, "error", err)
	}
	return err == nil
}
