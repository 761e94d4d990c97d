package sqlite

import (
	"context"
	"fmt"
	"strings"

	"github.com/hrygo/execfi/store"
)

func (d *DB) UpsertTokenAnalysis(ctx context.Context, upsert *store.TokenAnalysis) (*store.TokenAnalysis, error) {
	stmt := `INSERT INTO token_analysis (user_id, token_address, chain, technical_score, fundamental_score, sentiment_score, overall_score, recommendation, risk_level, data, updated_ts)
		VALUES (` + placeholders(11) + `)
		ON CONFLICT (user_id, token_address) DO UPDATE SET
			chain = excluded.chain,
			technical_score = excluded.technical_score,
			fundamental_score = excluded.fundamental_score,
			sentiment_score = excluded.sentiment_score,
			overall_score = excluded.overall_score,
			recommendation = excluded.recommendation,
			risk_level = excluded.risk_level,
			data = excluded.data,
			updated_ts = excluded.updated_ts`
	_, err := d.db.ExecContext(ctx, stmt,
		upsert.UserID, upsert.TokenAddress, upsert.Chain, upsert.TechnicalScore, upsert.FundamentalScore,
		upsert.SentimentScore, upsert.OverallScore, upsert.Recommendation, string(upsert.RiskLevel),
		upsert.Data, upsert.UpdatedTs,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to upsert token_analysis: %w", err)
	}
	return upsert, nil
}

func (d *DB) ListTokenAnalyses(ctx context.Context, find *store.FindTokenAnalysis) ([]*store.TokenAnalysis, error) {
	where, args := []string{"1 = 1"}, []any{}
	if v := find.UserID; v != nil {
		where, args = append(where, "user_id = "+placeholder(len(args)+1)), append(args, *v)
	}
	if v := find.TokenAddress; v != nil {
		where, args = append(where, "token_address = "+placeholder(len(args)+1)), append(args, *v)
	}

	query := `SELECT user_id, token_address, chain, technical_score, fundamental_score, sentiment_score, overall_score, recommendation, risk_level, data, updated_ts
		FROM token_analysis
		WHERE ` + strings.Join(where, " AND ") + `
		ORDER BY updated_ts DESC`
	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list token analyses: %w", err)
	}
	defer rows.Close()

	list := make([]*store.TokenAnalysis, 0)
	for rows.Next() {
		a := &store.TokenAnalysis{}
		var riskLevel string
		if err := rows.Scan(&a.UserID, &a.TokenAddress, &a.Chain, &a.TechnicalScore, &a.FundamentalScore,
			&a.SentimentScore, &a.OverallScore, &a.Recommendation, &riskLevel, &a.Data, &a.UpdatedTs); err != nil {
			return nil, fmt.Errorf("failed to scan token analysis: %w", err)
		}
		a.RiskLevel = store.RiskLevel(riskLevel)
		list = append(list, a)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return list, nil
}

func (d *DB) UpsertMarketAnalysis(ctx context.Context, upsert *store.MarketAnalysis) (*store.MarketAnalysis, error) {
	stmt := `INSERT INTO market_analysis (user_id, market_id, confidence, data, updated_ts)
		VALUES (` + placeholders(5) + `)
		ON CONFLICT (user_id, market_id) DO UPDATE SET
			confidence = excluded.confidence,
			data = excluded.data,
			updated_ts = excluded.updated_ts`
	if _, err := d.db.ExecContext(ctx, stmt, upsert.UserID, upsert.MarketID, upsert.Confidence, upsert.Data, upsert.UpdatedTs); err != nil {
		return nil, fmt.Errorf("failed to upsert market_analysis: %w", err)
	}
	return upsert, nil
}

func (d *DB) ListMarketAnalyses(ctx context.Context, find *store.FindMarketAnalysis) ([]*store.MarketAnalysis, error) {
	where, args := []string{"1 = 1"}, []any{}
	if v := find.UserID; v != nil {
		where, args = append(where, "user_id = "+placeholder(len(args)+1)), append(args, *v)
	}
	if v := find.MarketID; v != nil {
		where, args = append(where, "market_id = "+placeholder(len(args)+1)), append(args, *v)
	}

	query := "SELECT user_id, market_id, confidence, data, updated_ts FROM market_analysis WHERE " +
		strings.Join(where, " AND ") + " ORDER BY updated_ts DESC"
	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list market analyses: %w", err)
	}
	defer rows.Close()

	list := make([]*store.MarketAnalysis, 0)
	for rows.Next() {
		a := &store.MarketAnalysis{}
		if err := rows.Scan(&a.UserID, &a.MarketID, &a.Confidence, &a.Data, &a.UpdatedTs); err != nil {
			return nil, fmt.Errorf("failed to scan market analysis: %w", err)
		}
		list = append(list, a)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return list, nil
}
