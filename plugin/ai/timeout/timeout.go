// Package timeout defines centralized timeout constants for AI and
// capability operations.
package timeout

import "time"

const (
	// ClassifyTimeout bounds intent classification. Expiry degrades the
	// message to the unknown intent.
	ClassifyTimeout = 10 * time.Second

	// ExtractionTimeout bounds language-model instruction extraction.
	ExtractionTimeout = 15 * time.Second

	// CapabilityTimeout bounds every capability client call made by an
	// executor, including LLM summaries.
	CapabilityTimeout = 30 * time.Second

	// AgentTimeout is the timeout for one executor run.
	AgentTimeout = 2 * time.Minute

	// MaxTruncateLength is the maximum length for truncating strings in logs.
	MaxTruncateLength = 200
)
