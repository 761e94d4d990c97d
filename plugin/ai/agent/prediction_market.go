package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/hrygo/execfi/plugin/polymarket"
	"github.com/hrygo/execfi/store"
)

// Prediction market sub-actions.
const (
	MarketActionSearch  = "search"
	MarketActionAnalyze = "analyze"
	MarketActionPredict = "predict"
	MarketActionBet     = "bet"
)

const (
	defaultMarketSearchLimit = 5
	betClarification         = "Please provide market ID, outcome, and amount to place a bet."
)

// PredictionMarketExecutor runs one Polymarket sub-action. The sub-action
// comes from Params and defaults to predict with the message as query.
type PredictionMarketExecutor struct {
	deps Deps
	now  func() time.Time
}

// BetPlacement is the payload of a bet_placement action. The order is
// placed when the action is confirmed.
type BetPlacement struct {
	MarketID     string `json:"marketId"`
	OutcomeIndex int    `json:"outcomeIndex"`
	Outcome      string `json:"outcome,omitempty"`
	Amount       string `json:"amount"`
	Maker        string `json:"maker"`
}

func (e *PredictionMarketExecutor) Execute(ctx context.Context, input *Input) (*Result, error) {
	switch action := input.Param(ParamAction); action {
	case MarketActionSearch:
		return e.search(ctx, input)
	case MarketActionAnalyze:
		return e.analyze(ctx, input)
	case MarketActionPredict, "":
		return e.predict(ctx, input)
	case MarketActionBet:
		return e.bet(ctx, input)
	default:
		return clarification(TagPolymarket, fmt.Sprintf("Unknown prediction market action %q. Use search, analyze, predict or bet.", action)), nil
	}
}

func (e *PredictionMarketExecutor) query(input *Input) string {
	if q := input.Param(ParamQuery); q != "" {
		return q
	}
	if input.Param(ParamAction) == "" {
		return strings.TrimSpace(input.UserMessage)
	}
	return ""
}

func (e *PredictionMarketExecutor) search(ctx context.Context, input *Input) (*Result, error) {
	query := e.query(input)
	if query == "" {
		return clarification(TagPolymarket, "Please specify what prediction market you're looking for."), nil
	}
	limit := input.intParam(ParamLimit, defaultMarketSearchLimit)
	markets, err := call(ctx, e.deps.Metrics, "polymarket", func(ctx context.Context) ([]*polymarket.Market, error) {
		return e.deps.Markets.SearchMarkets(ctx, query, limit)
	})
	if err != nil {
		return nil, err
	}
	if len(markets) == 0 {
		return clarification(TagPolymarket, "No prediction markets found for your query."), nil
	}

	action, err := informational(input, store.ActionKindMarketSearch, map[string]any{"query": query, "markets": markets})
	if err != nil {
		return nil, err
	}
	return &Result{
		ResponseText: fmt.Sprintf("Found %d prediction markets. Here are the top results:", len(markets)),
		ExecutorTag:  TagPolymarket,
		Actions:      []*store.Action{action},
	}, nil
}

func (e *PredictionMarketExecutor) analyze(ctx context.Context, input *Input) (*Result, error) {
	marketID := input.Param(ParamMarketID)
	if marketID == "" {
		return clarification(TagPolymarket, "Please specify a market ID to analyze."), nil
	}
	analysis, err := e.analyzeMarket(ctx, marketID)
	if err != nil {
		return nil, err
	}

	fallback := fmt.Sprintf("%s Favored outcome: %s at %d%% confidence (%s). Overall risk: %d/100.",
		analysis.Question, analysis.Prediction.FavoredOutcome, analysis.Prediction.Confidence,
		analysis.Prediction.Sentiment, analysis.RiskAssessment.OverallRisk)
	text, err := e.deps.responder().reply(ctx, TagPolymarket, input, analysis, fallback)
	if err != nil {
		return nil, err
	}
	if err := e.saveAnalysis(ctx, input, analysis); err != nil {
		return nil, err
	}
	actions, err := analysisActions(input, analysis)
	if err != nil {
		return nil, err
	}
	return &Result{ResponseText: text, ExecutorTag: TagPolymarket, Actions: actions}, nil
}

func (e *PredictionMarketExecutor) predict(ctx context.Context, input *Input) (*Result, error) {
	query := e.query(input)
	if query == "" {
		return clarification(TagPolymarket, "Please ask about a specific prediction market."), nil
	}
	markets, err := call(ctx, e.deps.Metrics, "polymarket", func(ctx context.Context) ([]*polymarket.Market, error) {
		return e.deps.Markets.SearchMarkets(ctx, query, 1)
	})
	if err != nil {
		return nil, err
	}
	if len(markets) == 0 {
		return clarification(TagPolymarket, "No prediction markets found for your query."), nil
	}
	analysis, err := e.analyzeMarket(ctx, markets[0].ID)
	if err != nil {
		return nil, err
	}
	if err := e.saveAnalysis(ctx, input, analysis); err != nil {
		return nil, err
	}
	actions, err := analysisActions(input, analysis)
	if err != nil {
		return nil, err
	}
	return &Result{
		ResponseText: fmt.Sprintf("Based on AI analysis: %s Risk Score: %d/100", analysis.Prediction.Reasoning, analysis.RiskAssessment.OverallRisk),
		ExecutorTag:  TagPolymarket,
		Actions:      actions,
	}, nil
}

func (e *PredictionMarketExecutor) bet(ctx context.Context, input *Input) (*Result, error) {
	marketID := input.Param(ParamMarketID)
	outcome, outcomeErr := strconv.Atoi(input.Param(ParamOutcomeIndex))
	amount, amountOK := parseAmount(input.Param(ParamAmount))
	if marketID == "" || outcomeErr != nil || outcome < 0 || !amountOK {
		return clarification(TagPolymarket, betClarification), nil
	}

	if rule := e.deps.Policy.Violation(ctx, PolicyInput{
		Kind:      string(store.ActionKindBetPlacement),
		Chain:     "polygon",
		Amount:    amount.InexactFloat64(),
		Token:     "USDC",
		Recipient: marketID,
	}); rule != "" {
		return clarification(TagPolymarket, policyRefusal(rule)), nil
	}

	placement := &BetPlacement{
		MarketID:     marketID,
		OutcomeIndex: outcome,
		Outcome:      input.Param(ParamOutcome),
		Amount:       amount.String(),
		Maker:        input.WalletAddress,
	}
	action, err := pendingAction(input, store.ActionKindBetPlacement, placement)
	if err != nil {
		return nil, err
	}
	if action, err = e.deps.Store.CreateAction(ctx, action); err != nil {
		return nil, err
	}
	return &Result{
		ResponseText: fmt.Sprintf("Ready to bet %s on outcome %d of market %s. Please confirm to place the order.", placement.Amount, outcome, marketID),
		ExecutorTag:  TagPolymarket,
		Actions:      []*store.Action{action},
	}, nil
}

func (e *PredictionMarketExecutor) analyzeMarket(ctx context.Context, marketID string) (*polymarket.Analysis, error) {
	return call(ctx, e.deps.Metrics, "polymarket", func(ctx context.Context) (*polymarket.Analysis, error) {
		return e.deps.Markets.AnalyzeMarket(ctx, marketID)
	})
}

func (e *PredictionMarketExecutor) saveAnalysis(ctx context.Context, input *Input, analysis *polymarket.Analysis) error {
	data, err := json.Marshal(analysis)
	if err != nil {
		return err
	}
	_, err = e.deps.Store.UpsertMarketAnalysis(ctx, &store.MarketAnalysis{
		UserID:     input.UserID,
		MarketID:   analysis.MarketID,
		Confidence: analysis.Prediction.Confidence,
		Data:       string(data),
		UpdatedTs:  e.now().UnixMilli(),
	})
	return err
}

// analysisActions returns the market_analysis action, followed by a
// bet_recommendation when the analysis recommends one.
func analysisActions(input *Input, analysis *polymarket.Analysis) ([]*store.Action, error) {
	action, err := informational(input, store.ActionKindMarketAnalysis, analysis)
	if err != nil {
		return nil, err
	}
	actions := []*store.Action{action}
	if bet := analysis.RecommendedBet; bet != nil {
		rec, err := informational(input, store.ActionKindBetRecommendation, &BetPlacement{
			MarketID:     analysis.MarketID,
			OutcomeIndex: bet.OutcomeIndex,
			Outcome:      bet.Outcome,
			Amount:       bet.SuggestedAmount,
			Maker:        input.WalletAddress,
		})
		if err != nil {
			return nil, err
		}
		actions = append(actions, rec)
	}
	return actions, nil
}
