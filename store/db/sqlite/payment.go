package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/hrygo/execfi/store"
)

const paymentColumns = "id, user_id, action_id, reference, amount, token_mint, recipient_address, sender_address, payment_url, expires_at, lamport_fee, token_fee, signature, status, created_ts, updated_ts"

func scanPayment(row scanner) (*store.Payment, error) {
	p := &store.Payment{}
	var status string
	if err := row.Scan(&p.ID, &p.UserID, &p.ActionID, &p.Reference, &p.Amount, &p.TokenMint, &p.RecipientAddress,
		&p.SenderAddress, &p.PaymentURL, &p.ExpiresAt, &p.LamportFee, &p.TokenFee, &p.Signature, &status,
		&p.CreatedTs, &p.UpdatedTs); err != nil {
		return nil, err
	}
	p.Status = store.PaymentStatus(status)
	return p, nil
}

func (d *DB) CreatePaymentWithAction(ctx context.Context, payment *store.Payment, action *store.Action) (*store.Payment, error) {
	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := insertAction(ctx, tx, action); err != nil {
		return nil, err
	}
	stmt := "INSERT INTO payment (" + paymentColumns + ") VALUES (" + placeholders(16) + ")"
	_, err = tx.ExecContext(ctx, stmt,
		payment.ID, payment.UserID, payment.ActionID, payment.Reference, payment.Amount, payment.TokenMint,
		payment.RecipientAddress, payment.SenderAddress, payment.PaymentURL, payment.ExpiresAt,
		payment.LamportFee, payment.TokenFee, payment.Signature, string(payment.Status),
		payment.CreatedTs, payment.UpdatedTs,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create payment: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit payment: %w", err)
	}
	return payment, nil
}

func (d *DB) ListPayments(ctx context.Context, find *store.FindPayment) ([]*store.Payment, error) {
	where, args := []string{"1 = 1"}, []any{}
	if v := find.ID; v != nil {
		where, args = append(where, "id = "+placeholder(len(args)+1)), append(args, *v)
	}
	if v := find.UserID; v != nil {
		where, args = append(where, "user_id = "+placeholder(len(args)+1)), append(args, *v)
	}
	if v := find.Reference; v != nil {
		where, args = append(where, "reference = "+placeholder(len(args)+1)), append(args, *v)
	}
	if v := find.Signature; v != nil {
		where, args = append(where, "signature = "+placeholder(len(args)+1)), append(args, *v)
	}

	query := "SELECT " + paymentColumns + " FROM payment WHERE " + strings.Join(where, " AND ") + " ORDER BY created_ts DESC"
	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list payments: %w", err)
	}
	defer rows.Close()

	list := make([]*store.Payment, 0)
	for rows.Next() {
		p, err := scanPayment(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan payment: %w", err)
		}
		list = append(list, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return list, nil
}

func (d *DB) SettlePayment(ctx context.Context, settle *store.SettlePayment) (*store.Payment, error) {
	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	payment, err := scanPayment(tx.QueryRowContext(ctx, "SELECT "+paymentColumns+" FROM payment WHERE id = "+placeholder(1), settle.PaymentID))
	if err == sql.ErrNoRows {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get payment: %w", err)
	}
	if payment.Status != store.PaymentStatusPending {
		return nil, store.ErrLedgerConflict
	}

	stmt := "UPDATE payment SET status = " + placeholder(1) + ", signature = " + placeholder(2) + ", updated_ts = " + placeholder(3) +
		" WHERE id = " + placeholder(4) + " AND status = " + placeholder(5)
	result, err := tx.ExecContext(ctx, stmt, string(settle.Status), settle.Signature, settle.UpdatedTs, payment.ID, string(store.PaymentStatusPending))
	if err != nil {
		return nil, fmt.Errorf("failed to settle payment: %w", err)
	}
	if n, err := result.RowsAffected(); err != nil || n == 0 {
		return nil, store.ErrLedgerConflict
	}

	actionStatus := store.ActionStatusFailed
	if settle.Status == store.PaymentStatusCompleted {
		actionStatus = store.ActionStatusConfirmed
	}
	stmt = "UPDATE action_ledger SET status = " + placeholder(1) + ", result = " + placeholder(2) + ", updated_ts = " + placeholder(3) +
		" WHERE id = " + placeholder(4) + " AND status = " + placeholder(5)
	result, err = tx.ExecContext(ctx, stmt, string(actionStatus), settle.Result, settle.UpdatedTs, payment.ActionID, string(store.ActionStatusPending))
	if err != nil {
		return nil, fmt.Errorf("failed to settle payment action: %w", err)
	}
	if n, err := result.RowsAffected(); err != nil || n == 0 {
		return nil, store.ErrLedgerConflict
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit settlement: %w", err)
	}
	payment.Status = settle.Status
	payment.Signature = settle.Signature
	payment.UpdatedTs = settle.UpdatedTs
	return payment, nil
}
