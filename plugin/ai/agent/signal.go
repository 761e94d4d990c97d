package agent

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/hrygo/execfi/plugin/blockchain"
	"github.com/hrygo/execfi/plugin/gmgn"
	"github.com/hrygo/execfi/store"
)

// EventSignalAlert is published to the owner's room for every new signal.
const EventSignalAlert = "signal-alert"

// UserRoom is the realtime room of a user.
func UserRoom(userID string) string {
	return "user-" + userID
}

var (
	dollarTicker = regexp.MustCompile(`\$([A-Za-z][A-Za-z0-9]{1,9})\b`)
	upperTicker  = regexp.MustCompile(`\b[A-Z][A-Z0-9]{1,9}\b`)
	wordPattern  = regexp.MustCompile(`[A-Za-z][A-Za-z0-9]*`)

	// Upper-case words that are never tickers.
	tickerStopWords = map[string]bool{
		"BUY": true, "SELL": true, "HOLD": true, "SIGNAL": true, "USD": true, "ME": true, "IS": true, "IT": true, "OK": true,
	}
)

// SignalExecutor scores a token into a buy/hold/sell signal.
type SignalExecutor struct {
	deps Deps
}

// extractSymbol picks the token a message is about: a $TICKER, then a
// symbol of the chain's registry, then any upper-case ticker. It falls back
// to the chain's native token.
func extractSymbol(text, chain string) string {
	if m := dollarTicker.FindStringSubmatch(text); m != nil {
		return strings.ToUpper(m[1])
	}
	for _, word := range wordPattern.FindAllString(text, -1) {
		if token, ok := blockchain.ResolveToken(chain, word); ok {
			return token.Symbol
		}
	}
	for _, word := range upperTicker.FindAllString(text, -1) {
		if !tickerStopWords[word] {
			return word
		}
	}
	if native, ok := blockchain.NativeToken(chain); ok {
		return native.Symbol
	}
	return "SOL"
}

// signalMetrics maps market data onto the 0..100 inputs of the score.
//
//	liquidity = liquidity / $5M
//	community = buy pressure - sell pressure + 50
//	holders   = holders / 5000
//	on-chain  = 24h trades / 1000
func signalMetrics(data *blockchain.TokenData, m *gmgn.TokenMetrics) SignalMetrics {
	return SignalMetrics{
		PriceChange24h:      data.PriceChange24h,
		VolumeChange24h:     m.VolumeChange24h,
		LiquidityScore:      clamp(m.Liquidity/5_000_000*100, 0, 100),
		CommunityScore:      clamp(m.BuyPressure-m.SellPressure+50, 0, 100),
		HoldersDistribution: clamp(float64(m.Holders)/5000*100, 0, 100),
		OnChainActivity:     clamp(float64(m.Buys24h+m.Sells24h)/1000*100, 0, 100),
	}
}

type signalPayload struct {
	SignalID  string                `json:"signalId"`
	Token     string                `json:"token"`
	Address   string                `json:"tokenAddress"`
	Chain     string                `json:"chain"`
	Signal    store.SignalType      `json:"signal"`
	Score     SignalScore           `json:"score"`
	Reasoning string                `json:"reasoning"`
	Metrics   SignalMetrics         `json:"metrics"`
	TokenData *blockchain.TokenData `json:"tokenData"`
}

func (e *SignalExecutor) Execute(ctx context.Context, input *Input) (*Result, error) {
	if input.Chain != "solana" {
		return clarification(TagSignal, "Trading signals are currently available for Solana tokens only."), nil
	}
	symbol := extractSymbol(input.UserMessage, input.Chain)
	input.override(&symbol, ParamToken)
	token, ok := blockchain.ResolveToken(input.Chain, symbol)
	if !ok && blockchain.IsTokenAddress(input.Chain, symbol) {
		token, ok = blockchain.Token{Symbol: symbol, Address: symbol}, true
	}
	if !ok {
		return clarification(TagSignal, fmt.Sprintf("I couldn't find the token %s. Try one of: %s.", symbol, strings.Join(symbols(input.Chain), ", "))), nil
	}

	var (
		data    *blockchain.TokenData
		metrics *gmgn.TokenMetrics
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		data, err = call(gctx, e.deps.Metrics, "blockchain", func(ctx context.Context) (*blockchain.TokenData, error) {
			return e.deps.Wallets.GetTokenData(ctx, input.Chain, token.Address)
		})
		return err
	})
	g.Go(func() error {
		var err error
		metrics, err = call(gctx, e.deps.Metrics, "gmgn", func(ctx context.Context) (*gmgn.TokenMetrics, error) {
			return e.deps.Tokens.GetTokenMetrics(ctx, token.Address)
		})
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	sm := signalMetrics(data, metrics)
	score := CalculateSignalScore(sm)
	payload := &signalPayload{
		Token:   token.Symbol,
		Address: token.Address,
		Chain:   input.Chain,
		Signal:  score.SignalType,
		Score:   score,
		Reasoning: fmt.Sprintf("Composite score %.2f from 24h price change %.2f%%, volume change %.2f%%, liquidity %.0f, community %.0f, holders %.0f, on-chain activity %.0f.",
			score.Composite, sm.PriceChange24h, sm.VolumeChange24h, sm.LiquidityScore, sm.CommunityScore, sm.HoldersDistribution, sm.OnChainActivity),
		Metrics:   sm,
		TokenData: data,
	}

	fallback := fmt.Sprintf("Signal for %s: %s with %d%% confidence (risk: %s). %s",
		token.Symbol, strings.ToUpper(string(score.SignalType)), score.Confidence, score.RiskLevel, payload.Reasoning)
	text, err := e.deps.responder().reply(ctx, TagSignal, input, payload, fallback)
	if err != nil {
		return nil, err
	}

	signal, err := e.deps.Store.CreateSignal(ctx, &store.Signal{
		UserID:        input.UserID,
		TokenAddress:  token.Address,
		TokenSymbol:   token.Symbol,
		Chain:         input.Chain,
		SignalType:    score.SignalType,
		Confidence:    score.Confidence,
		RiskLevel:     score.RiskLevel,
		Reasoning:     payload.Reasoning,
		PriceAtSignal: data.Price,
		Volume24h:     data.Volume24h,
	})
	if err != nil {
		return nil, err
	}
	payload.SignalID = signal.ID

	if e.deps.Notifier != nil {
		e.deps.Notifier.Publish(UserRoom(input.UserID), EventSignalAlert, payload)
	} else {
		slog.Debug("no notifier configured, signal alert skipped", "signal_id", signal.ID)
	}

	action, err := informational(input, store.ActionKindTradingSignal, payload)
	if err != nil {
		return nil, err
	}
	return &Result{ResponseText: text, ExecutorTag: TagSignal, Actions: []*store.Action{action}}, nil
}

func symbols(chain string) []string {
	var list []string
	for _, t := range blockchain.Tokens(chain) {
		list = append(list, t.Symbol)
	}
	return list
}
