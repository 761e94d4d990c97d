package router

import (
	"context"
	"log/slog"
	"time"

	"github.com/hrygo/execfi/plugin/ai/timeout"
)

// Service selects the classification strategy from configuration and
// applies the classification timeout.
type Service struct {
	strategy      string
	ruleMatcher   *RuleMatcher
	llmClassifier *LLMClassifier
	timeout       time.Duration
}

// Config contains the configuration for the router service.
type Config struct {
	// Strategy is StrategyKeyword or StrategyAI.
	Strategy  string
	LLMClient LLMClient
	// Timeout defaults to timeout.ClassifyTimeout.
	Timeout time.Duration
}

// NewService creates a new router service.
func NewService(cfg Config) *Service {
	s := &Service{
		strategy:    cfg.Strategy,
		ruleMatcher: NewRuleMatcher(),
		timeout:     cfg.Timeout,
	}
	if s.strategy == "" {
		s.strategy = StrategyKeyword
	}
	if s.timeout <= 0 {
		s.timeout = timeout.ClassifyTimeout
	}
	if cfg.LLMClient != nil {
		s.llmClassifier = NewLLMClassifier(cfg.LLMClient)
	}
	return s
}

// Classify implements Classifier.
func (s *Service) Classify(ctx context.Context, text string) Classification {
	start := time.Now()

	var result Classification
	switch s.strategy {
	case StrategyAI:
		result = s.classifyWithLLM(ctx, text)
	default:
		result, _ = s.ruleMatcher.Match(text)
	}

	slog.Debug("intent classified",
		"strategy", s.strategy,
		"input", truncate(text, 50),
		"intent", result.Intent,
		"confidence", result.Confidence,
		"latency_ms", time.Since(start).Milliseconds())
	return result
}

func (s *Service) classifyWithLLM(ctx context.Context, text string) Classification {
	if s.llmClassifier == nil {
		slog.Warn("AI classification requested without an LLM client")
		return Unclassified()
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	result, err := s.llmClassifier.Classify(ctx, text)
	if err != nil {
		slog.Warn("LLM classifier error", "error", err)
		return Unclassified()
	}
	return result
}

func truncate(s string, maxLen int) string {
	runes := []rune(s)
	if len(runes) <= maxLen {
		return s
	}
	return string(runes[:maxLen]) + "..."
}
