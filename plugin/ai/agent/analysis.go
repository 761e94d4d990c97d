package agent

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/pkg/errors"

	"github.com/hrygo/execfi/plugin/blockchain"
	"github.com/hrygo/execfi/store"
)

// AnalysisExecutor summarizes the holdings and activity of the user's wallet.
type AnalysisExecutor struct {
	deps Deps
}

func (e *AnalysisExecutor) Execute(ctx context.Context, input *Input) (*Result, error) {
	wallet, err := call(ctx, e.deps.Metrics, "blockchain", func(ctx context.Context) (*blockchain.WalletAnalysis, error) {
		return e.deps.Wallets.AnalyzeWallet(ctx, input.WalletAddress, input.Chain)
	})
	if err != nil {
		return nil, err
	}

	text, err := e.deps.responder().reply(ctx, TagAnalyze, input, wallet, walletSummary(wallet))
	if err != nil {
		return nil, err
	}

	details, err := json.Marshal(wallet)
	if err != nil {
		return nil, err
	}
	if _, err := e.deps.Store.CreateAuditLog(ctx, &store.AuditLog{
		UserID:       input.UserID,
		Action:       store.AuditWalletAnalyzed,
		ResourceType: "wallet",
		ResourceID:   input.WalletAddress,
		Details:      string(details),
	}); err != nil {
		return nil, errors.Wrap(err, "failed to write audit log")
	}

	action, err := informational(input, store.ActionKindAnalysis, wallet)
	if err != nil {
		return nil, err
	}
	return &Result{ResponseText: text, ExecutorTag: TagAnalyze, Actions: []*store.Action{action}}, nil
}

func walletSummary(w *blockchain.WalletAnalysis) string {
	return fmt.Sprintf("Wallet %s on %s holds $%.2f across %d tokens with %d transactions. Risk score: %d/100.",
		w.Address, w.Chain, w.TotalUSDValue, len(w.Balances), w.TransactionCount, w.RiskScore)
}
