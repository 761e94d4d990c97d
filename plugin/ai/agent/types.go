// Package agent turns a classified message into an executor result: the
// reply text, the executor tag and the actions the user may confirm.
package agent

import (
	"context"
	"encoding/json"

	"github.com/hrygo/execfi/store"
)

// Executor tags recorded in assistant message metadata.
const (
	TagAnalyze    = "analyze"
	TagSend       = "send"
	TagSwap       = "swap"
	TagSignal     = "signal"
	TagX402       = "x402"
	TagGMGN       = "gmgn"
	TagPolymarket = "polymarket"
	TagCanned     = "canned"
)

// ContextMessage is one prior message of the conversation, oldest first.
type ContextMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Input is everything an executor may use. Params carries structured fields
// supplied by API callers (for example a market id) and overrides anything
// extracted from the message.
type Input struct {
	UserMessage    string
	WalletAddress  string
	Chain          string
	UserID         string
	ConversationID string
	Context        []ContextMessage
	Params         map[string]string
}

// Param returns Params[key] or "".
func (in *Input) Param(key string) string {
	if in.Params == nil {
		return ""
	}
	return in.Params[key]
}

// Result is the outcome of one executor run. Actions that require
// confirmation are already written to the ledger; informational actions are
// returned inline only.
type Result struct {
	ResponseText string
	ExecutorTag  string
	Actions      []*store.Action
}

// Executor handles one intent.
type Executor interface {
	Execute(ctx context.Context, input *Input) (*Result, error)
}

// ExecutorFunc adapts a function to Executor.
type ExecutorFunc func(ctx context.Context, input *Input) (*Result, error)

func (f ExecutorFunc) Execute(ctx context.Context, input *Input) (*Result, error) {
	return f(ctx, input)
}

func clarification(tag, text string) *Result {
	return &Result{ResponseText: text, ExecutorTag: tag}
}

// informational builds an inline action that never touches the ledger.
func informational(input *Input, kind store.ActionKind, data any) (*store.Action, error) {
	payload, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}
	return &store.Action{
		UserID:         input.UserID,
		ConversationID: input.ConversationID,
		Kind:           kind,
		Payload:        string(payload),
	}, nil
}

// pendingAction builds a confirmable action ready to be written to the ledger.
func pendingAction(input *Input, kind store.ActionKind, data any) (*store.Action, error) {
	action, err := informational(input, kind, data)
	if err != nil {
		return nil, err
	}
	action.RequiresConfirmation = true
	action.Status = store.ActionStatusPending
	return action, nil
}
