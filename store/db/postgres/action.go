package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/hrygo/execfi/store"
)

const actionColumns = "id, user_id, conversation_id, kind, requires_confirmation, payload, status, result, claimed_ts, created_ts, updated_ts"

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

type scanner interface {
	Scan(dest ...any) error
}

func insertAction(ctx context.Context, db execer, create *store.Action) error {
	stmt := "INSERT INTO action_ledger (" + actionColumns + ") VALUES (" + placeholders(11) + ")"
	_, err := db.ExecContext(ctx, stmt,
		create.ID, create.UserID, create.ConversationID, string(create.Kind), create.RequiresConfirmation,
		create.Payload, string(create.Status), create.Result, create.ClaimedTs, create.CreatedTs, create.UpdatedTs,
	)
	if err != nil {
		return fmt.Errorf("failed to create action: %w", err)
	}
	return nil
}

func scanAction(row scanner) (*store.Action, error) {
	a := &store.Action{}
	var kind, status string
	if err := row.Scan(&a.ID, &a.UserID, &a.ConversationID, &kind, &a.RequiresConfirmation,
		&a.Payload, &status, &a.Result, &a.ClaimedTs, &a.CreatedTs, &a.UpdatedTs); err != nil {
		return nil, err
	}
	a.Kind = store.ActionKind(kind)
	a.Status = store.ActionStatus(status)
	return a, nil
}

func (d *DB) CreateAction(ctx context.Context, create *store.Action) (*store.Action, error) {
	if err := insertAction(ctx, d.db, create); err != nil {
		return nil, err
	}
	return create, nil
}

func (d *DB) ListActions(ctx context.Context, find *store.FindAction) ([]*store.Action, error) {
	where, args := []string{"1 = 1"}, []any{}
	if v := find.ID; v != nil {
		where, args = append(where, "id = "+placeholder(len(args)+1)), append(args, *v)
	}
	if v := find.UserID; v != nil {
		where, args = append(where, "user_id = "+placeholder(len(args)+1)), append(args, *v)
	}
	if v := find.Status; v != nil {
		where, args = append(where, "status = "+placeholder(len(args)+1)), append(args, string(*v))
	}

	query := "SELECT " + actionColumns + " FROM action_ledger WHERE " + strings.Join(where, " AND ") +
		" ORDER BY created_ts DESC, id DESC" + limitOffset(find.Limit, nil)
	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list actions: %w", err)
	}
	defer rows.Close()

	list := make([]*store.Action, 0)
	for rows.Next() {
		a, err := scanAction(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan action: %w", err)
		}
		list = append(list, a)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return list, nil
}

// TransitionAction is a compare-and-set on status and claim; concurrent
// confirmations of the same action let exactly one writer through.
func (d *DB) TransitionAction(ctx context.Context, transition *store.TransitionAction) (*store.Action, error) {
	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt := "UPDATE action_ledger SET status = " + placeholder(1) + ", result = " + placeholder(2) + ", updated_ts = " + placeholder(3) +
		" WHERE id = " + placeholder(4) + " AND status = " + placeholder(5) + " AND claimed_ts = " + placeholder(6)
	result, err := tx.ExecContext(ctx, stmt, string(transition.To), transition.Result, transition.UpdatedTs, transition.ID,
		string(transition.From), transition.ClaimedTs)
	if err != nil {
		return nil, fmt.Errorf("failed to transition action: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return nil, err
	}

	action, err := scanAction(tx.QueryRowContext(ctx, "SELECT "+actionColumns+" FROM action_ledger WHERE id = "+placeholder(1), transition.ID))
	if err == sql.ErrNoRows {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get action: %w", err)
	}
	if affected == 0 {
		return nil, store.ErrLedgerConflict
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transition: %w", err)
	}
	return action, nil
}

// ClaimAction stamps a pending, unclaimed action so that only the claimant
// may move it out of pending.
func (d *DB) ClaimAction(ctx context.Context, claim *store.ClaimAction) (*store.Action, error) {
	stmt := "UPDATE action_ledger SET claimed_ts = " + placeholder(1) +
		" WHERE id = " + placeholder(2) + " AND status = " + placeholder(3) + " AND claimed_ts = 0"
	result, err := d.db.ExecContext(ctx, stmt, claim.ClaimedTs, claim.ID, string(store.ActionStatusPending))
	if err != nil {
		return nil, fmt.Errorf("failed to claim action: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return nil, err
	}

	action, err := scanAction(d.db.QueryRowContext(ctx, "SELECT "+actionColumns+" FROM action_ledger WHERE id = "+placeholder(1), claim.ID))
	if err == sql.ErrNoRows {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get action: %w", err)
	}
	if affected == 0 {
		return nil, store.ErrLedgerConflict
	}
	return action, nil
}
