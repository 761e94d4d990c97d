package v1

import (
	"encoding/json"
	"log/slog"

	"github.com/hrygo/execfi/plugin/ai/agent"
	"github.com/hrygo/execfi/plugin/markdown"
	"github.com/hrygo/execfi/server/service/chat"
	"github.com/hrygo/execfi/store"
)

type conversationView struct {
	ID           string `json:"id"`
	Title        string `json:"title"`
	CreatedTs    int64  `json:"createdTs"`
	MessageCount int    `json:"messageCount"`
}

func newConversationView(c *store.Conversation) *conversationView {
	return &conversationView{ID: c.ID, Title: c.Title, CreatedTs: c.CreatedTs, MessageCount: c.MessageCount}
}

type messageView struct {
	ID             string          `json:"id"`
	ConversationID string          `json:"conversationId"`
	Role           string          `json:"role"`
	Content        string          `json:"content"`
	ContentHTML    string          `json:"contentHtml,omitempty"`
	IntentType     string          `json:"intentType"`
	Metadata       json.RawMessage `json:"metadata"`
	CreatedTs      int64           `json:"createdTs"`
}

// newMessageView renders assistant replies as HTML; user text is returned
// verbatim.
func newMessageView(m *store.Message) *messageView {
	view := &messageView{
		ID:             m.ID,
		ConversationID: m.ConversationID,
		Role:           string(m.Role),
		Content:        m.Content,
		IntentType:     m.IntentType,
		Metadata:       json.RawMessage("{}"),
		CreatedTs:      m.CreatedTs,
	}
	if json.Valid([]byte(m.Metadata)) {
		view.Metadata = json.RawMessage(m.Metadata)
	}
	if m.Role == store.MessageRoleAssistant {
		view.ContentHTML = renderHTML(m.Content)
	}
	return view
}

func renderHTML(content string) string {
	html, err := markdown.RenderHTML(content)
	if err != nil {
		slog.Warn("failed to render markdown", "error", err)
		return ""
	}
	return html
}

func newActionViews(actions []*store.Action) []*chat.ActionRecord {
	views := make([]*chat.ActionRecord, 0, len(actions))
	for _, a := range actions {
		views = append(views, chat.NewActionRecord(a))
	}
	return views
}

type executorResponse struct {
	ResponseText string               `json:"responseText"`
	ResponseHTML string               `json:"responseHtml"`
	ExecutorTag  string               `json:"executorTag"`
	Actions      []*chat.ActionRecord `json:"actions"`
}

func newExecutorResponse(r *agent.Result) *executorResponse {
	return &executorResponse{
		ResponseText: r.ResponseText,
		ResponseHTML: renderHTML(r.ResponseText),
		ExecutorTag:  r.ExecutorTag,
		Actions:      newActionViews(r.Actions),
	}
}

type signalView struct {
	ID            string  `json:"id"`
	TokenAddress  string  `json:"tokenAddress"`
	TokenSymbol   string  `json:"tokenSymbol"`
	Chain         string  `json:"chain"`
	SignalType    string  `json:"signalType"`
	Confidence    int     `json:"confidence"`
	RiskLevel     string  `json:"riskLevel"`
	Reasoning     string  `json:"reasoning"`
	PriceAtSignal float64 `json:"priceAtSignal"`
	Volume24h     float64 `json:"volume24h"`
	CreatedTs     int64   `json:"createdTs"`
}

func newSignalViews(signals []*store.Signal) []*signalView {
	views := make([]*signalView, 0, len(signals))
	for _, s := range signals {
		views = append(views, &signalView{
			ID:            s.ID,
			TokenAddress:  s.TokenAddress,
			TokenSymbol:   s.TokenSymbol,
			Chain:         s.Chain,
			SignalType:    string(s.SignalType),
			Confidence:    s.Confidence,
			RiskLevel:     string(s.RiskLevel),
			Reasoning:     s.Reasoning,
			PriceAtSignal: s.PriceAtSignal,
			Volume24h:     s.Volume24h,
			CreatedTs:     s.CreatedTs,
		})
	}
	return views
}
