package store

import (
	"context"
	"slices"
	"time"

	"github.com/google/uuid"

	"github.com/hrygo/execfi/internal/profile"
)

// DefaultRecentMessageLimit bounds the context window handed to executors.
const DefaultRecentMessageLimit = 10

// Store provides database access to all raw objects.
type Store struct {
	profile *profile.Profile
	driver  Driver
}

// New creates a new instance of Store.
func New(driver Driver, profile *profile.Profile) *Store {
	return &Store{
		driver:  driver,
		profile: profile,
	}
}

func (s *Store) GetDriver() Driver {
	return s.driver
}

func (s *Store) Close() error {
	return s.driver.Close()
}

func (s *Store) CreateConversation(ctx context.Context, create *Conversation) (*Conversation, error) {
	if create.ID == "" {
		create.ID = uuid.NewString()
	}
	if create.CreatedTs == 0 {
		create.CreatedTs = nowMillis()
	}
	return s.driver.CreateConversation(ctx, create)
}

func (s *Store) ListConversations(ctx context.Context, find *FindConversation) ([]*Conversation, error) {
	return s.driver.ListConversations(ctx, find)
}

// GetConversation returns ErrNotFound when no conversation has the id.
func (s *Store) GetConversation(ctx context.Context, id string) (*Conversation, error) {
	list, err := s.driver.ListConversations(ctx, &FindConversation{ID: &id})
	if err != nil {
		return nil, err
	}
	if len(list) == 0 {
		return nil, ErrNotFound
	}
	return list[0], nil
}

// GetOwnedConversation returns ErrOwnership when the conversation exists but
// belongs to someone else.
func (s *Store) GetOwnedConversation(ctx context.Context, id, userID string) (*Conversation, error) {
	conversation, err := s.GetConversation(ctx, id)
	if err != nil {
		return nil, err
	}
	if conversation.UserID != userID {
		return nil, ErrOwnership
	}
	return conversation, nil
}

// DeleteConversation verifies ownership before removing the conversation
// and its messages.
func (s *Store) DeleteConversation(ctx context.Context, id, userID string) error {
	if _, err := s.GetOwnedConversation(ctx, id, userID); err != nil {
		return err
	}
	return s.driver.DeleteConversation(ctx, &DeleteConversation{ID: id, UserID: userID})
}

func (s *Store) CreateMessage(ctx context.Context, create *Message) (*Message, error) {
	if create.ID == "" {
		create.ID = uuid.NewString()
	}
	if create.CreatedTs == 0 {
		create.CreatedTs = nowMillis()
	}
	if create.Metadata == "" {
		create.Metadata = "{}"
	}
	return s.driver.CreateMessage(ctx, create)
}

func (s *Store) ListMessages(ctx context.Context, find *FindMessage) ([]*Message, error) {
	return s.driver.ListMessages(ctx, find)
}

// GetRecentMessages returns at most limit messages of the conversation,
// oldest first.
func (s *Store) GetRecentMessages(ctx context.Context, conversationID string, limit int) ([]*Message, error) {
	if limit <= 0 {
		limit = DefaultRecentMessageLimit
	}
	list, err := s.driver.ListMessages(ctx, &FindMessage{
		ConversationID: conversationID,
		Limit:          &limit,
		NewestFirst:    true,
	})
	if err != nil {
		return nil, err
	}
	slices.Reverse(list)
	return list, nil
}

func (s *Store) CreateAction(ctx context.Context, create *Action) (*Action, error) {
	prepareAction(create)
	return s.driver.CreateAction(ctx, create)
}

func (s *Store) ListActions(ctx context.Context, find *FindAction) ([]*Action, error) {
	return s.driver.ListActions(ctx, find)
}

func (s *Store) GetAction(ctx context.Context, id string) (*Action, error) {
	list, err := s.driver.ListActions(ctx, &FindAction{ID: &id})
	if err != nil {
		return nil, err
	}
	if len(list) == 0 {
		return nil, ErrNotFound
	}
	return list[0], nil
}

func (s *Store) TransitionAction(ctx context.Context, transition *TransitionAction) (*Action, error) {
	if !transition.From.CanTransition(transition.To) {
		return nil, ErrLedgerConflict
	}
	if transition.UpdatedTs == 0 {
		transition.UpdatedTs = nowMillis()
	}
	if transition.Result == "" {
		transition.Result = "{}"
	}
	return s.driver.TransitionAction(ctx, transition)
}

func (s *Store) ClaimAction(ctx context.Context, claim *ClaimAction) (*Action, error) {
	if claim.ClaimedTs == 0 {
		claim.ClaimedTs = nowMillis()
	}
	return s.driver.ClaimAction(ctx, claim)
}

func (s *Store) CreateSignal(ctx context.Context, create *Signal) (*Signal, error) {
	if create.ID == "" {
		create.ID = uuid.NewString()
	}
	if create.CreatedTs == 0 {
		create.CreatedTs = nowMillis()
	}
	return s.driver.CreateSignal(ctx, create)
}

func (s *Store) ListSignals(ctx context.Context, find *FindSignal) ([]*Signal, error) {
	return s.driver.ListSignals(ctx, find)
}

func (s *Store) UpsertTokenAnalysis(ctx context.Context, upsert *TokenAnalysis) (*TokenAnalysis, error) {
	if upsert.UpdatedTs == 0 {
		upsert.UpdatedTs = nowMillis()
	}
	return s.driver.UpsertTokenAnalysis(ctx, upsert)
}

func (s *Store) ListTokenAnalyses(ctx context.Context, find *FindTokenAnalysis) ([]*TokenAnalysis, error) {
	return s.driver.ListTokenAnalyses(ctx, find)
}

func (s *Store) UpsertMarketAnalysis(ctx context.Context, upsert *MarketAnalysis) (*MarketAnalysis, error) {
	if upsert.UpdatedTs == 0 {
		upsert.UpdatedTs = nowMillis()
	}
	return s.driver.UpsertMarketAnalysis(ctx, upsert)
}

func (s *Store) ListMarketAnalyses(ctx context.Context, find *FindMarketAnalysis) ([]*MarketAnalysis, error) {
	return s.driver.ListMarketAnalyses(ctx, find)
}

func (s *Store) CreatePaymentWithAction(ctx context.Context, payment *Payment, action *Action) (*Payment, error) {
	prepareAction(action)
	if payment.ID == "" {
		payment.ID = uuid.NewString()
	}
	if payment.Status == "" {
		payment.Status = PaymentStatusPending
	}
	if payment.CreatedTs == 0 {
		payment.CreatedTs = action.CreatedTs
	}
	payment.UpdatedTs = payment.CreatedTs
	payment.ActionID = action.ID
	return s.driver.CreatePaymentWithAction(ctx, payment, action)
}

func (s *Store) ListPayments(ctx context.Context, find *FindPayment) ([]*Payment, error) {
	return s.driver.ListPayments(ctx, find)
}

func (s *Store) GetPayment(ctx context.Context, find *FindPayment) (*Payment, error) {
	list, err := s.driver.ListPayments(ctx, find)
	if err != nil {
		return nil, err
	}
	if len(list) == 0 {
		return nil, ErrNotFound
	}
	return list[0], nil
}

func (s *Store) SettlePayment(ctx context.Context, settle *SettlePayment) (*Payment, error) {
	if settle.Status == PaymentStatusPending {
		return nil, ErrInvalidInput
	}
	if settle.UpdatedTs == 0 {
		settle.UpdatedTs = nowMillis()
	}
	if settle.Result == "" {
		settle.Result = "{}"
	}
	return s.driver.SettlePayment(ctx, settle)
}

func (s *Store) CreateAuditLog(ctx context.Context, create *AuditLog) (*AuditLog, error) {
	if create.ID == "" {
		create.ID = uuid.NewString()
	}
	if create.CreatedTs == 0 {
		create.CreatedTs = nowMillis()
	}
	if create.Details == "" {
		create.Details = "{}"
	}
	return s.driver.CreateAuditLog(ctx, create)
}

func (s *Store) ListAuditLogs(ctx context.Context, find *FindAuditLog) ([]*AuditLog, error) {
	return s.driver.ListAuditLogs(ctx, find)
}

func prepareAction(action *Action) {
	if action.ID == "" {
		action.ID = uuid.NewString()
	}
	if action.Status == "" {
		action.Status = ActionStatusPending
	}
	if action.Payload == "" {
		action.Payload = "{}"
	}
	if action.Result == "" {
		action.Result = "{}"
	}
	if action.CreatedTs == 0 {
		action.CreatedTs = nowMillis()
	}
	action.UpdatedTs = action.CreatedTs
}

func nowMillis() int64 {
	return time.Now().UnixMilli()
}
