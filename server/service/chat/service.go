// Package chat runs the message pipeline: ownership check, classification,
// persistence of the user message, executor dispatch and persistence of the
// assistant reply. It also owns the conversation operations.
package chat

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/hrygo/execfi/plugin/ai/agent"
	"github.com/hrygo/execfi/plugin/ai/router"
	"github.com/hrygo/execfi/internal/observability"
	"github.com/hrygo/execfi/store"
)

const (
	// ContextWindow is the number of recent messages handed to executors.
	ContextWindow = store.DefaultRecentMessageLimit

	DefaultConversationLimit = 20
	DefaultMessageLimit      = 50
	// MaxMessageLength bounds a single user message in runes.
	MaxMessageLength = 10000
)

// Router dispatches a classified message to its executor.
type Router interface {
	Route(ctx context.Context, intent router.Intent, input *agent.Input) (*agent.Result, error)
}

// Service defines the conversation and message operations.
type Service interface {
	// HandleUserMessage runs one message through the pipeline. The user
	// message is persisted even when routing fails; the assistant message
	// only when routing succeeds. Pending actions of a reply that could not
	// be stored are cancelled.
	HandleUserMessage(ctx context.Context, req *MessageRequest) (*Exchange, error)

	CreateConversation(ctx context.Context, userID, title string) (*store.Conversation, error)
	ListConversations(ctx context.Context, userID string, limit, offset int) ([]*store.Conversation, error)
	GetConversation(ctx context.Context, id, userID string) (*store.Conversation, error)
	ListMessages(ctx context.Context, id, userID string, limit, offset int) ([]*store.Message, error)
	DeleteConversation(ctx context.Context, id, userID string) error
}

// MessageRequest is one user message against a wallet and chain.
type MessageRequest struct {
	ConversationID string
	UserID         string
	Text           string
	WalletAddress  string
	Chain          string
	// Params are structured fields forwarded to the executor.
	Params map[string]string
}

// Exchange is the outcome of HandleUserMessage.
type Exchange struct {
	UserMessage      *store.Message
	AssistantMessage *store.Message
	Actions          []*store.Action
	Classification   router.Classification
}

// MessageMetadata is stored with every assistant message.
type MessageMetadata struct {
	ExecutorTag string          `json:"executorTag"`
	Actions     []*ActionRecord `json:"actions"`
}

// ActionRecord is the JSON shape of an action.
type ActionRecord struct {
	ID                   string          `json:"id,omitempty"`
	Kind                 string          `json:"kind"`
	RequiresConfirmation bool            `json:"requiresConfirmation"`
	Status               string          `json:"status,omitempty"`
	Payload              json.RawMessage `json:"payload"`
	Result               json.RawMessage `json:"result,omitempty"`
	CreatedTs            int64           `json:"createdTs,omitempty"`
	UpdatedTs            int64           `json:"updatedTs,omitempty"`
}

// NewActionRecord converts a ledger or inline action.
func NewActionRecord(a *store.Action) *ActionRecord {
	record := &ActionRecord{
		ID:                   a.ID,
		Kind:                 string(a.Kind),
		RequiresConfirmation: a.RequiresConfirmation,
		Status:               string(a.Status),
		Payload:              rawJSON(a.Payload),
		CreatedTs:            a.CreatedTs,
		UpdatedTs:            a.UpdatedTs,
	}
	if a.Result != "" && a.Result != "{}" {
		record.Result = rawJSON(a.Result)
	}
	return record
}

func rawJSON(s string) json.RawMessage {
	if s == "" || !json.Valid([]byte(s)) {
		return json.RawMessage("{}")
	}
	return json.RawMessage(s)
}

type service struct {
	store      *store.Store
	classifier router.Classifier
	router     Router
	now        func() time.Time
}

// NewService creates the chat service.
func NewService(s *store.Store, classifier router.Classifier, r Router) Service {
	return &service{store: s, classifier: classifier, router: r, now: time.Now}
}

func (s *service) HandleUserMessage(ctx context.Context, req *MessageRequest) (*Exchange, error) {
	text := strings.TrimSpace(req.Text)
	if text == "" || len([]rune(text)) > MaxMessageLength {
		return nil, fmt.Errorf("message must be 1 to %d characters: %w", MaxMessageLength, store.ErrInvalidInput)
	}

	reqCtx := observability.RequestFrom(ctx, req.UserID)

	if _, err := s.store.GetOwnedConversation(ctx, req.ConversationID, req.UserID); err != nil {
		return nil, err
	}

	classification := s.classifier.Classify(ctx, text)
	reqCtx.Info("message classified",
		slog.String(observability.LogFieldIntent, string(classification.Intent)),
		slog.Int("confidence", classification.Confidence),
		slog.Int(observability.LogFieldMessageLen, len(text)),
	)

	userMessage, err := s.store.CreateMessage(ctx, &store.Message{
		ConversationID: req.ConversationID,
		UserID:         req.UserID,
		Role:           store.MessageRoleUser,
		Content:        text,
		IntentType:     string(classification.Intent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to persist user message: %w", err)
	}

	recent, err := s.store.GetRecentMessages(ctx, req.ConversationID, ContextWindow)
	if err != nil {
		return nil, fmt.Errorf("failed to load conversation context: %w", err)
	}

	input := &agent.Input{
		UserMessage:    text,
		WalletAddress:  req.WalletAddress,
		Chain:          req.Chain,
		UserID:         req.UserID,
		ConversationID: req.ConversationID,
		Context:        contextMessages(recent),
		Params:         req.Params,
	}
	result, err := s.router.Route(ctx, classification.Intent, input)
	if err != nil {
		reqCtx.Error("message routing failed", err, slog.Int64(observability.LogFieldDuration, reqCtx.DurationMs()))
		return nil, err
	}
	reqCtx.Executor = result.ExecutorTag

	metadata := MessageMetadata{ExecutorTag: result.ExecutorTag, Actions: make([]*ActionRecord, 0, len(result.Actions))}
	for _, a := range result.Actions {
		metadata.Actions = append(metadata.Actions, NewActionRecord(a))
	}
	rawMetadata, err := json.Marshal(metadata)
	if err != nil {
		return nil, fmt.Errorf("failed to encode message metadata: %w", err)
	}

	assistantMessage, err := s.store.CreateMessage(ctx, &store.Message{
		ConversationID: req.ConversationID,
		UserID:         req.UserID,
		Role:           store.MessageRoleAssistant,
		Content:        result.ResponseText,
		IntentType:     string(classification.Intent),
		Metadata:       string(rawMetadata),
	})
	if err != nil {
		s.cancelUnreported(ctx, result.Actions)
		return nil, fmt.Errorf("failed to persist assistant message: %w", err)
	}

	reqCtx.Info("message handled",
		slog.Int("actions", len(result.Actions)),
		slog.Int64(observability.LogFieldDuration, reqCtx.DurationMs()),
	)
	return &Exchange{
		UserMessage:      userMessage,
		AssistantMessage: assistantMessage,
		Actions:          result.Actions,
		Classification:   classification,
	}, nil
}

// cancelUnreported cancels the ledger actions of a reply that was never
// stored, since the user cannot see or confirm them.
func (s *service) cancelUnreported(ctx context.Context, actions []*store.Action) {
	ctx = context.WithoutCancel(ctx)
	for _, a := range actions {
		if !a.RequiresConfirmation || a.ID == "" || a.Status != store.ActionStatusPending {
			continue
		}
		if _, err := s.store.TransitionAction(ctx, &store.TransitionAction{
			ID:     a.ID,
			From:   store.ActionStatusPending,
			To:     store.ActionStatusCancelled,
			Result: `{"reason":"assistant message not stored"}`,
		}); err != nil {
			slog.Error("failed to cancel unreported action", "action_id", a.ID, "error", err)
			continue
		}
		a.Status = store.ActionStatusCancelled
	}
}

func contextMessages(messages []*store.Message) []agent.ContextMessage {
	out := make([]agent.ContextMessage, 0, len(messages))
	for _, m := range messages {
		out = append(out, agent.ContextMessage{Role: string(m.Role), Content: m.Content})
	}
	return out
}

func (s *service) CreateConversation(ctx context.Context, userID, title string) (*store.Conversation, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		title = "Conversation " + s.now().Format("2006-01-02")
	}
	conversation, err := s.store.CreateConversation(ctx, &store.Conversation{UserID: userID, Title: title})
	if err != nil {
		return nil, fmt.Errorf("failed to create conversation: %w", err)
	}
	slog.Info("conversation created", "conversation_id", conversation.ID, "user_id", userID)
	return conversation, nil
}

func (s *service) ListConversations(ctx context.Context, userID string, limit, offset int) ([]*store.Conversation, error) {
	limit, offset = page(limit, offset, DefaultConversationLimit)
	return s.store.ListConversations(ctx, &store.FindConversation{UserID: &userID, Limit: &limit, Offset: &offset})
}

func (s *service) GetConversation(ctx context.Context, id, userID string) (*store.Conversation, error) {
	return s.store.GetOwnedConversation(ctx, id, userID)
}

func (s *service) ListMessages(ctx context.Context, id, userID string, limit, offset int) ([]*store.Message, error) {
	if _, err := s.store.GetOwnedConversation(ctx, id, userID); err != nil {
		return nil, err
	}
	limit, offset = page(limit, offset, DefaultMessageLimit)
	return s.store.ListMessages(ctx, &store.FindMessage{ConversationID: id, Limit: &limit, Offset: &offset})
}

func (s *service) DeleteConversation(ctx context.Context, id, userID string) error {
	if err := s.store.DeleteConversation(ctx, id, userID); err != nil {
		return err
	}
	slog.Info("conversation deleted", "conversation_id", id, "user_id", userID)
	return nil
}

func page(limit, offset, def int) (int, int) {
	if limit <= 0 {
		limit = def
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}
