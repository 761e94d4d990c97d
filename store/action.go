package store

// ActionKind identifies what an action's payload describes.
type ActionKind string

const (
	ActionKindAnalysis              ActionKind = "analysis"
	ActionKindTransactionSimulation ActionKind = "transaction_simulation"
	ActionKindSwapQuote             ActionKind = "swap_quote"
	ActionKindTradingSignal         ActionKind = "trading_signal"
	ActionKindTokenAnalysis         ActionKind = "token_analysis"
	ActionKindMarketSearch          ActionKind = "market_search"
	ActionKindMarketAnalysis        ActionKind = "market_analysis"
	ActionKindBetRecommendation     ActionKind = "bet_recommendation"
	ActionKindBetPlacement          ActionKind = "bet_placement"
	ActionKindPaymentRequest        ActionKind = "payment_request"
)

// ActionStatus is the ledger state of a confirmable action.
//
//	pending -> confirmed | failed | cancelled
//
// Every status other than pending is terminal.
type ActionStatus string

const (
	ActionStatusPending   ActionStatus = "pending"
	ActionStatusConfirmed ActionStatus = "confirmed"
	ActionStatusFailed    ActionStatus = "failed"
	ActionStatusCancelled ActionStatus = "cancelled"
)

// IsTerminal reports whether no further transition is allowed from s.
func (s ActionStatus) IsTerminal() bool {
	return s == ActionStatusConfirmed || s == ActionStatusFailed || s == ActionStatusCancelled
}

// CanTransition reports whether the ledger accepts s -> to.
func (s ActionStatus) CanTransition(to ActionStatus) bool {
	return s == ActionStatusPending && to.IsTerminal()
}

// Action is a provisional record of an operation produced by an executor.
// Only actions with RequiresConfirmation are written to the ledger; the
// others are informational and travel inline in the assistant message.
type Action struct {
	ID                   string
	UserID               string
	ConversationID       string
	Kind                 ActionKind
	RequiresConfirmation bool
	Payload              string // JSON string
	Status               ActionStatus
	Result               string // JSON string, set on transition
	ClaimedTs            int64  // non-zero once a confirmation started external work
	CreatedTs            int64
	UpdatedTs            int64
}

type FindAction struct {
	ID     *string
	UserID *string
	Status *ActionStatus
	Limit  *int
}

// TransitionAction moves an action out of From. The driver applies it as a
// compare-and-set and returns ErrLedgerConflict when the stored status is
// not From or the stored claim is not ClaimedTs. Unclaimed actions use a
// zero ClaimedTs.
type TransitionAction struct {
	ID        string
	From      ActionStatus
	To        ActionStatus
	Result    string
	ClaimedTs int64
	UpdatedTs int64
}

// ClaimAction reserves a pending action for a single caller.
type ClaimAction struct {
	ID        string
	ClaimedTs int64
}
