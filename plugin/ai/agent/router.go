package agent

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/hrygo/execfi/plugin/ai/router"
	"github.com/hrygo/execfi/plugin/ai/timeout"
)

const (
	balanceText = "I can help you check your balance. Which token would you like to check?"
	unknownText = "I'm not sure what you're asking. I can help you with wallet analysis, sending tokens, swapping, or getting trading signals."
)

// ExecutorRouter dispatches an intent to its executor. The mapping is fixed
// at construction and covers every intent.
type ExecutorRouter struct {
	executors map[router.Intent]Executor
	tags      map[router.Intent]string
	metrics   *Metrics
}

// NewExecutorRouter builds the executor for every intent from deps.
func NewExecutorRouter(deps Deps) (*ExecutorRouter, error) {
	switch {
	case deps.Store == nil:
		return nil, fmt.Errorf("executor router requires a store")
	case deps.Wallets == nil, deps.Swaps == nil, deps.Tokens == nil, deps.Markets == nil, deps.Payments == nil:
		return nil, fmt.Errorf("executor router requires every capability client")
	}
	if deps.Extractor == nil {
		deps.Extractor = GrammarExtractor{}
	}
	if deps.Metrics == nil {
		deps.Metrics = NewMetrics()
	}

	r := &ExecutorRouter{
		executors: map[router.Intent]Executor{
			router.IntentAnalysis:         &AnalysisExecutor{deps: deps},
			router.IntentSend:             &SendExecutor{deps: deps},
			router.IntentSwap:             &SwapExecutor{deps: deps},
			router.IntentSignal:           &SignalExecutor{deps: deps},
			router.IntentX402Payment:      &PaymentExecutor{deps: deps},
			router.IntentTokenAnalysis:    &TokenAnalysisExecutor{deps: deps},
			router.IntentPredictionMarket: &PredictionMarketExecutor{deps: deps, now: time.Now},
			router.IntentBalance:          cannedExecutor(balanceText),
			router.IntentUnknown:          cannedExecutor(unknownText),
		},
		tags: map[router.Intent]string{
			router.IntentAnalysis:         TagAnalyze,
			router.IntentSend:             TagSend,
			router.IntentSwap:             TagSwap,
			router.IntentSignal:           TagSignal,
			router.IntentX402Payment:      TagX402,
			router.IntentTokenAnalysis:    TagGMGN,
			router.IntentPredictionMarket: TagPolymarket,
			router.IntentBalance:          TagCanned,
			router.IntentUnknown:          TagCanned,
		},
		metrics: deps.Metrics,
	}
	return r, nil
}

// Metrics returns the collector shared by the executors.
func (r *ExecutorRouter) Metrics() *Metrics {
	return r.metrics
}

// Executor returns the executor of intent; intents outside the closed set
// get the unknown executor.
func (r *ExecutorRouter) Executor(intent router.Intent) Executor {
	if e, ok := r.executors[intent]; ok {
		return e
	}
	return r.executors[router.IntentUnknown]
}

// Route runs the executor of intent bounded by timeout.AgentTimeout.
func (r *ExecutorRouter) Route(ctx context.Context, intent router.Intent, input *Input) (*Result, error) {
	tag, ok := r.tags[intent]
	if !ok {
		intent, tag = router.IntentUnknown, TagCanned
	}

	ctx, cancel := context.WithTimeout(ctx, timeout.AgentTimeout)
	defer cancel()

	start := time.Now()
	result, err := r.Executor(intent).Execute(ctx, input)
	r.metrics.RecordExecution(tag, time.Since(start), err)
	if err != nil {
		slog.Error("executor failed",
			"intent", intent,
			"executor", tag,
			"user_id", input.UserID,
			"duration_ms", time.Since(start).Milliseconds(),
			"error", err,
		)
		return nil, NewExecutorError(tag, "Execute", err)
	}
	slog.Info("executor finished",
		"intent", intent,
		"executor", result.ExecutorTag,
		"actions", len(result.Actions),
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return result, nil
}

// cannedExecutor answers with fixed text and makes no capability calls.
func cannedExecutor(text string) Executor {
	return ExecutorFunc(func(context.Context, *Input) (*Result, error) {
		return clarification(TagCanned, text), nil
	})
}
