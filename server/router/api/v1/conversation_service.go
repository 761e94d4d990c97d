package v1

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/hrygo/execfi/server/service/chat"
)

type createConversationRequest struct {
	Title string `json:"title"`
}

type sendMessageRequest struct {
	Content string            `json:"content"`
	Params  map[string]string `json:"params"`
}

// CreateConversation handles POST /api/v1/conversations.
func (s *APIV1Service) CreateConversation(c echo.Context) error {
	id, err := currentIdentity(c)
	if err != nil {
		return err
	}
	var req createConversationRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	conversation, err := s.Chat.CreateConversation(c.Request().Context(), id.UserID, req.Title)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, map[string]any{
		"conversationId": conversation.ID,
		"conversation":   newConversationView(conversation),
	})
}

// ListConversations handles GET /api/v1/conversations.
func (s *APIV1Service) ListConversations(c echo.Context) error {
	id, err := currentIdentity(c)
	if err != nil {
		return err
	}
	list, err := s.Chat.ListConversations(c.Request().Context(), id.UserID, queryInt(c, "limit"), queryInt(c, "offset"))
	if err != nil {
		return err
	}
	views := make([]*conversationView, 0, len(list))
	for _, conversation := range list {
		views = append(views, newConversationView(conversation))
	}
	return c.JSON(http.StatusOK, map[string]any{"conversations": views})
}

// GetConversation handles GET /api/v1/conversations/:id and returns the
// conversation with a page of its messages, oldest first.
func (s *APIV1Service) GetConversation(c echo.Context) error {
	id, err := currentIdentity(c)
	if err != nil {
		return err
	}
	ctx := c.Request().Context()
	conversationID := c.Param("id")
	conversation, err := s.Chat.GetConversation(ctx, conversationID, id.UserID)
	if err != nil {
		return err
	}
	messages, err := s.Chat.ListMessages(ctx, conversationID, id.UserID, queryInt(c, "limit"), queryInt(c, "offset"))
	if err != nil {
		return err
	}
	views := make([]*messageView, 0, len(messages))
	for _, m := range messages {
		views = append(views, newMessageView(m))
	}
	return c.JSON(http.StatusOK, map[string]any{
		"conversationId": conversation.ID,
		"conversation":   newConversationView(conversation),
		"messages":       views,
	})
}

// SendMessage handles POST /api/v1/conversations/:id/messages.
func (s *APIV1Service) SendMessage(c echo.Context) error {
	id, err := currentIdentity(c)
	if err != nil {
		return err
	}
	var req sendMessageRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	exchange, err := s.Chat.HandleUserMessage(c.Request().Context(), &chat.MessageRequest{
		ConversationID: c.Param("id"),
		UserID:         id.UserID,
		Text:           req.Content,
		WalletAddress:  id.WalletAddress,
		Chain:          id.Chain,
		Params:         req.Params,
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, map[string]any{
		"userMessage":      newMessageView(exchange.UserMessage),
		"assistantMessage": newMessageView(exchange.AssistantMessage),
		"actions":          newActionViews(exchange.Actions),
		"classification":   exchange.Classification,
	})
}

// DeleteConversation handles DELETE /api/v1/conversations/:id.
func (s *APIV1Service) DeleteConversation(c echo.Context) error {
	id, err := currentIdentity(c)
	if err != nil {
		return err
	}
	if err := s.Chat.DeleteConversation(c.Request().Context(), c.Param("id"), id.UserID); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]string{"message": "Conversation deleted"})
}

// queryInt returns 0 for a missing or malformed parameter so services apply
// their defaults.
func queryInt(c echo.Context, name string) int {
	v, err := strconv.Atoi(c.QueryParam(name))
	if err != nil {
		return 0
	}
	return v
}
