package store

import (
	"context"
	"database/sql"
)

// Driver is an interface for store driver.
// It contains all methods that store database driver should implement.
type Driver interface {
	GetDB() *sql.DB
	Close() error

	IsInitialized(ctx context.Context) (bool, error)

	// Conversation model related methods.
	CreateConversation(ctx context.Context, create *Conversation) (*Conversation, error)
	ListConversations(ctx context.Context, find *FindConversation) ([]*Conversation, error)
	DeleteConversation(ctx context.Context, delete *DeleteConversation) error

	// Message model related methods.
	CreateMessage(ctx context.Context, create *Message) (*Message, error)
	ListMessages(ctx context.Context, find *FindMessage) ([]*Message, error)

	// Action ledger related methods.
	CreateAction(ctx context.Context, create *Action) (*Action, error)
	ListActions(ctx context.Context, find *FindAction) ([]*Action, error)
	// TransitionAction returns ErrNotFound for a missing id and
	// ErrLedgerConflict when the stored status differs from From.
	TransitionAction(ctx context.Context, transition *TransitionAction) (*Action, error)
	// ClaimAction returns ErrLedgerConflict unless the action is pending
	// and unclaimed.
	ClaimAction(ctx context.Context, claim *ClaimAction) (*Action, error)

	// Signal model related methods.
	CreateSignal(ctx context.Context, create *Signal) (*Signal, error)
	ListSignals(ctx context.Context, find *FindSignal) ([]*Signal, error)

	// Analysis model related methods.
	UpsertTokenAnalysis(ctx context.Context, upsert *TokenAnalysis) (*TokenAnalysis, error)
	ListTokenAnalyses(ctx context.Context, find *FindTokenAnalysis) ([]*TokenAnalysis, error)
	UpsertMarketAnalysis(ctx context.Context, upsert *MarketAnalysis) (*MarketAnalysis, error)
	ListMarketAnalyses(ctx context.Context, find *FindMarketAnalysis) ([]*MarketAnalysis, error)

	// Payment model related methods.
	// CreatePaymentWithAction writes the payment and its ledger action atomically.
	CreatePaymentWithAction(ctx context.Context, payment *Payment, action *Action) (*Payment, error)
	ListPayments(ctx context.Context, find *FindPayment) ([]*Payment, error)
	// SettlePayment returns ErrLedgerConflict when the payment is no longer pending.
	SettlePayment(ctx context.Context, settle *SettlePayment) (*Payment, error)

	// AuditLog model related methods.
	CreateAuditLog(ctx context.Context, create *AuditLog) (*AuditLog, error)
	ListAuditLogs(ctx context.Context, find *FindAuditLog) ([]*AuditLog, error)

	// SystemSetting related methods, used by the migrator.
	GetSystemSetting(ctx context.Context, name string) (string, error)
	UpsertSystemSetting(ctx context.Context, name, value string) error
}
