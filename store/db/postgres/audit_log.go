package postgres

import (
	"context"
	"fmt"
	"strings"

	"github.com/hrygo/execfi/store"
)

func (d *DB) CreateAuditLog(ctx context.Context, create *store.AuditLog) (*store.AuditLog, error) {
	stmt := "INSERT INTO audit_log (id, user_id, action_name, resource_type, resource_id, details, created_ts) VALUES (" + placeholders(7) + ")"
	if _, err := d.db.ExecContext(ctx, stmt, create.ID, create.UserID, create.Action, create.ResourceType, create.ResourceID, create.Details, create.CreatedTs); err != nil {
		return nil, fmt.Errorf("failed to create audit log: %w", err)
	}
	return create, nil
}

func (d *DB) ListAuditLogs(ctx context.Context, find *store.FindAuditLog) ([]*store.AuditLog, error) {
	where, args := []string{"1 = 1"}, []any{}
	if v := find.UserID; v != nil {
		where, args = append(where, "user_id = "+placeholder(len(args)+1)), append(args, *v)
	}
	if v := find.Action; v != nil {
		where, args = append(where, "action_name = "+placeholder(len(args)+1)), append(args, *v)
	}

	query := "SELECT id, user_id, action_name, resource_type, resource_id, details, created_ts FROM audit_log WHERE " +
		strings.Join(where, " AND ") + " ORDER BY created_ts DESC"
	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list audit logs: %w", err)
	}
	defer rows.Close()

	list := make([]*store.AuditLog, 0)
	for rows.Next() {
		l := &store.AuditLog{}
		if err := rows.Scan(&l.ID, &l.UserID, &l.Action, &l.ResourceType, &l.ResourceID, &l.Details, &l.CreatedTs); err != nil {
			return nil, fmt.Errorf("failed to scan audit log: %w", err)
		}
		list = append(list, l)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return list, nil
}
