package sqlite

import (
	"context"
	"fmt"
	"strings"

	"github.com/hrygo/execfi/store"
)

func (d *DB) CreateConversation(ctx context.Context, create *store.Conversation) (*store.Conversation, error) {
	stmt := "INSERT INTO conversation (id, user_id, title, created_ts) VALUES (" + placeholders(4) + ")"
	if _, err := d.db.ExecContext(ctx, stmt, create.ID, create.UserID, create.Title, create.CreatedTs); err != nil {
		return nil, fmt.Errorf("failed to create conversation: %w", err)
	}
	return create, nil
}

func (d *DB) ListConversations(ctx context.Context, find *store.FindConversation) ([]*store.Conversation, error) {
	where, args := []string{"1 = 1"}, []any{}
	if v := find.ID; v != nil {
		where, args = append(where, "c.id = "+placeholder(len(args)+1)), append(args, *v)
	}
	if v := find.UserID; v != nil {
		where, args = append(where, "c.user_id = "+placeholder(len(args)+1)), append(args, *v)
	}

	query := `SELECT c.id, c.user_id, c.title, c.created_ts,
			(SELECT COUNT(*) FROM message m WHERE m.conversation_id = c.id)
		FROM conversation c
		WHERE ` + strings.Join(where, " AND ") + `
		ORDER BY c.created_ts DESC, c.id DESC` + limitOffset(find.Limit, find.Offset)

	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list conversations: %w", err)
	}
	defer rows.Close()

	list := make([]*store.Conversation, 0)
	for rows.Next() {
		c := &store.Conversation{}
		if err := rows.Scan(&c.ID, &c.UserID, &c.Title, &c.CreatedTs, &c.MessageCount); err != nil {
			return nil, fmt.Errorf("failed to scan conversation: %w", err)
		}
		list = append(list, c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return list, nil
}

// DeleteConversation removes messages first so the delete does not depend on
// foreign key enforcement.
func (d *DB) DeleteConversation(ctx context.Context, delete *store.DeleteConversation) error {
	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM message WHERE conversation_id = "+placeholder(1), delete.ID); err != nil {
		return fmt.Errorf("failed to delete messages: %w", err)
	}
	result, err := tx.ExecContext(ctx, "DELETE FROM conversation WHERE id = "+placeholder(1)+" AND user_id = "+placeholder(2), delete.ID, delete.UserID)
	if err != nil {
		return fmt.Errorf("failed to delete conversation: %w", err)
	}
	if n, err := result.RowsAffected(); err == nil && n == 0 {
		return store.ErrNotFound
	}
	return tx.Commit()
}

func (d *DB) CreateMessage(ctx context.Context, create *store.Message) (*store.Message, error) {
	fields := []string{"id", "conversation_id", "user_id", "role", "content", "intent_type", "metadata", "created_ts"}
	stmt := "INSERT INTO message (" + strings.Join(fields, ", ") + ") VALUES (" + placeholders(len(fields)) + ")"
	_, err := d.db.ExecContext(ctx, stmt,
		create.ID, create.ConversationID, create.UserID, string(create.Role),
		create.Content, create.IntentType, create.Metadata, create.CreatedTs,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create message: %w", err)
	}
	return create, nil
}

// ListMessages orders by creation time with the insertion sequence as the
// tie breaker, so messages written in the same millisecond keep their order.
func (d *DB) ListMessages(ctx context.Context, find *store.FindMessage) ([]*store.Message, error) {
	order := "created_ts ASC, seq ASC"
	if find.NewestFirst {
		order = "created_ts DESC, seq DESC"
	}
	query := `SELECT id, conversation_id, user_id, role, content, intent_type, metadata, created_ts
		FROM message
		WHERE conversation_id = ` + placeholder(1) + `
		ORDER BY ` + order + limitOffset(find.Limit, find.Offset)

	rows, err := d.db.QueryContext(ctx, query, find.ConversationID)
	if err != nil {
		return nil, fmt.Errorf("failed to list messages: %w", err)
	}
	defer rows.Close()

	list := make([]*store.Message, 0)
	for rows.Next() {
		m := &store.Message{}
		var role string
		if err := rows.Scan(&m.ID, &m.ConversationID, &m.UserID, &role, &m.Content, &m.IntentType, &m.Metadata, &m.CreatedTs); err != nil {
			return nil, fmt.Errorf("failed to scan message: %w", err)
		}
		m.Role = store.MessageRole(role)
		list = append(list, m)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return list, nil
}
