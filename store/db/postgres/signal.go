package postgres

import (
	"context"
	"fmt"
	"strings"

	"github.com/hrygo/execfi/store"
)

func (d *DB) CreateSignal(ctx context.Context, create *store.Signal) (*store.Signal, error) {
	fields := []string{"id", "user_id", "token_address", "token_symbol", "chain", "signal_type", "confidence", "risk_level", "reasoning", "price_at_signal", "volume_24h", "created_ts"}
	stmt := "INSERT INTO trading_signal (" + strings.Join(fields, ", ") + ") VALUES (" + placeholders(len(fields)) + ")"
	_, err := d.db.ExecContext(ctx, stmt,
		create.ID, create.UserID, create.TokenAddress, create.TokenSymbol, create.Chain,
		string(create.SignalType), create.Confidence, string(create.RiskLevel), create.Reasoning,
		create.PriceAtSignal, create.Volume24h, create.CreatedTs,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create signal: %w", err)
	}
	return create, nil
}

func (d *DB) ListSignals(ctx context.Context, find *store.FindSignal) ([]*store.Signal, error) {
	where, args := []string{"1 = 1"}, []any{}
	if v := find.UserID; v != nil {
		where, args = append(where, "user_id = "+placeholder(len(args)+1)), append(args, *v)
	}
	if v := find.Chain; v != nil {
		where, args = append(where, "chain = "+placeholder(len(args)+1)), append(args, *v)
	}
	if v := find.CreatedAfter; v != nil {
		where, args = append(where, "created_ts > "+placeholder(len(args)+1)), append(args, *v)
	}

	query := `SELECT id, user_id, token_address, token_symbol, chain, signal_type, confidence, risk_level, reasoning, price_at_signal, volume_24h, created_ts
		FROM trading_signal
		WHERE ` + strings.Join(where, " AND ") + `
		ORDER BY created_ts DESC, id DESC` + limitOffset(find.Limit, nil)

	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list signals: %w", err)
	}
	defer rows.Close()

	list := make([]*store.Signal, 0)
	for rows.Next() {
		s := &store.Signal{}
		var signalType, riskLevel string
		if err := rows.Scan(&s.ID, &s.UserID, &s.TokenAddress, &s.TokenSymbol, &s.Chain, &signalType,
			&s.Confidence, &riskLevel, &s.Reasoning, &s.PriceAtSignal, &s.Volume24h, &s.CreatedTs); err != nil {
			return nil, fmt.Errorf("failed to scan signal: %w", err)
		}
		s.SignalType = store.SignalType(signalType)
		s.RiskLevel = store.RiskLevel(riskLevel)
		list = append(list, s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return list, nil
}
