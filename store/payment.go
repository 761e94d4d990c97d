package store

type PaymentStatus string

const (
	PaymentStatusPending   PaymentStatus = "pending"
	PaymentStatusCompleted PaymentStatus = "completed"
	PaymentStatusFailed    PaymentStatus = "failed"
)

// Payment is an x402 payment request. It is created together with its
// payment_request action and settled only on external proof.
type Payment struct {
	ID               string
	UserID           string
	ActionID         string
	Reference        string
	Amount           string
	TokenMint        string
	RecipientAddress string
	SenderAddress    string
	PaymentURL       string
	ExpiresAt        int64
	LamportFee       int64
	TokenFee         float64
	Signature        string
	Status           PaymentStatus
	CreatedTs        int64
	UpdatedTs        int64
}

type FindPayment struct {
	ID        *string
	UserID    *string
	Reference *string
	Signature *string
}

// SettlePayment moves a pending payment to Status and its action to the
// matching terminal ledger status in a single transaction.
type SettlePayment struct {
	PaymentID string
	Status    PaymentStatus
	Signature string
	Result    string
	UpdatedTs int64
}

// AuditLog records security-relevant operations.
type AuditLog struct {
	ID           string
	UserID       string
	Action       string
	ResourceType string
	ResourceID   string
	Details      string // JSON string
	CreatedTs    int64
}

type FindAuditLog struct {
	UserID *string
	Action *string
}

// Audit log actions.
const (
	AuditWalletAnalyzed  = "WALLET_ANALYZED"
	AuditActionConfirmed = "ACTION_CONFIRMED"
	AuditActionCancelled = "ACTION_CANCELLED"
	AuditActionFailed    = "ACTION_FAILED"
	AuditPaymentVerified = "PAYMENT_VERIFIED"
)
