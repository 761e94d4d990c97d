package router

import "context"

// MockClassifier is a Classifier for tests. Overrides are matched on the
// exact input; everything else goes through the keyword rules.
type MockClassifier struct {
	Overrides map[string]Classification
	rules     *RuleMatcher
}

// NewMockClassifier creates a new MockClassifier.
func NewMockClassifier() *MockClassifier {
	return &MockClassifier{
		Overrides: make(map[string]Classification),
		rules:     NewRuleMatcher(),
	}
}

func (m *MockClassifier) Classify(ctx context.Context, text string) Classification {
	if c, ok := m.Overrides[text]; ok {
		return c
	}
	return m.rules.Classify(ctx, text)
}
