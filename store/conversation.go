package store

// Conversation is a user-owned, append-only thread of messages.
type Conversation struct {
	ID        string
	UserID    string
	Title     string
	CreatedTs int64

	// MessageCount is only populated by ListConversations.
	MessageCount int
}

type FindConversation struct {
	ID     *string
	UserID *string
	Limit  *int
	Offset *int
}

type DeleteConversation struct {
	ID     string
	UserID string
}

type MessageRole string

const (
	MessageRoleUser      MessageRole = "user"
	MessageRoleAssistant MessageRole = "assistant"
)

// Message is immutable once created.
type Message struct {
	ID             string
	ConversationID string
	UserID         string
	Role           MessageRole
	Content        string
	IntentType     string
	Metadata       string // JSON string
	CreatedTs      int64  // unix milliseconds
}

type FindMessage struct {
	ConversationID string
	Limit          *int
	Offset         *int
	// NewestFirst reverses the natural creation order.
	NewestFirst bool
}
