package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"

	"github.com/hrygo/execfi/plugin/blockchain"
	"github.com/hrygo/execfi/plugin/gmgn"
	"github.com/hrygo/execfi/store"
)

// GMGN covers Solana tokens only.
const tokenAnalysisChain = "solana"

var base58Word = regexp.MustCompile(`\b[1-9A-HJ-NP-Za-km-z]{32,44}\b`)

// TokenAnalysisExecutor scores a token from its GMGN market metrics.
type TokenAnalysisExecutor struct {
	deps Deps
}

type tokenAnalysisPayload struct {
	Analysis       *gmgn.TokenAnalysis `json:"analysis"`
	Metrics        *gmgn.TokenMetrics  `json:"metrics"`
	Recommendation gmgn.Recommendation `json:"recommendation"`
	RiskScore      int                 `json:"riskScore"`
}

// tokenMint finds the mint a message refers to: an explicit mint parameter,
// a mint address in the text, then a registry symbol.
func tokenMint(input *Input) (string, bool) {
	if mint := input.Param(ParamMint); mint != "" {
		return mint, blockchain.IsTokenAddress(tokenAnalysisChain, mint)
	}
	for _, word := range base58Word.FindAllString(input.UserMessage, -1) {
		if blockchain.IsTokenAddress(tokenAnalysisChain, word) {
			return word, true
		}
	}
	if m := dollarTicker.FindStringSubmatch(input.UserMessage); m != nil {
		if token, ok := blockchain.ResolveToken(tokenAnalysisChain, m[1]); ok {
			return token.Address, true
		}
	}
	for _, word := range wordPattern.FindAllString(input.UserMessage, -1) {
		if token, ok := blockchain.ResolveToken(tokenAnalysisChain, word); ok {
			return token.Address, true
		}
	}
	return "", false
}

func (e *TokenAnalysisExecutor) Execute(ctx context.Context, input *Input) (*Result, error) {
	mint, ok := tokenMint(input)
	if !ok {
		return clarification(TagGMGN, "Please specify the Solana token mint or symbol you want analyzed."), nil
	}

	type analyzed struct {
		analysis *gmgn.TokenAnalysis
		metrics  *gmgn.TokenMetrics
	}
	res, err := call(ctx, e.deps.Metrics, "gmgn", func(ctx context.Context) (analyzed, error) {
		a, m, err := e.deps.Tokens.AnalyzeToken(ctx, mint)
		return analyzed{analysis: a, metrics: m}, err
	})
	if err != nil {
		return nil, err
	}

	payload := &tokenAnalysisPayload{
		Analysis:       res.analysis,
		Metrics:        res.metrics,
		Recommendation: res.analysis.Recommendation,
		RiskScore:      gmgn.RiskScore(res.analysis.RiskLevel),
	}
	name := res.metrics.Symbol
	if name == "" {
		name = mint
	}
	fallback := fmt.Sprintf("%s scores %.0f/100 (technical %.0f, fundamental %.0f, sentiment %.0f). Recommendation: %s. Risk: %s (%d/100).",
		name, res.analysis.OverallScore, res.analysis.TechnicalScore, res.analysis.FundamentalScore, res.analysis.SentimentScore,
		res.analysis.Recommendation, res.analysis.RiskLevel, payload.RiskScore)
	text, err := e.deps.responder().reply(ctx, TagGMGN, input, payload, fallback)
	if err != nil {
		return nil, err
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	if _, err := e.deps.Store.UpsertTokenAnalysis(ctx, &store.TokenAnalysis{
		UserID:           input.UserID,
		TokenAddress:     mint,
		Chain:            tokenAnalysisChain,
		TechnicalScore:   res.analysis.TechnicalScore,
		FundamentalScore: res.analysis.FundamentalScore,
		SentimentScore:   res.analysis.SentimentScore,
		OverallScore:     res.analysis.OverallScore,
		Recommendation:   string(res.analysis.Recommendation),
		RiskLevel:        res.analysis.RiskLevel,
		Data:             string(data),
	}); err != nil {
		return nil, err
	}

	action, err := informational(input, store.ActionKindTokenAnalysis, payload)
	if err != nil {
		return nil, err
	}
	return &Result{ResponseText: text, ExecutorTag: TagGMGN, Actions: []*store.Action{action}}, nil
}
