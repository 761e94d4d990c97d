package agent

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/cel-go/cel"
	"github.com/pkg/errors"
)

// PolicyRule is a named CEL expression that must evaluate to true for an
// action to be allowed.
type PolicyRule struct {
	Name       string
	Expression string
}

// DefaultPolicyRules cap the transaction amount and reject blocklisted
// recipients.
var DefaultPolicyRules = []PolicyRule{
	{Name: "max_transaction_amount", Expression: "amount <= max_transaction_amount"},
	{Name: "blocklisted_recipient", Expression: "!(recipient in blocklist)"},
}

// PolicyInput describes a confirmable action before it is written.
type PolicyInput struct {
	Kind      string
	Chain     string
	Amount    float64
	Token     string
	Recipient string
}

// Policy evaluates compiled CEL rules against confirmable actions.
type Policy struct {
	rules                []compiledRule
	maxTransactionAmount float64
	blocklist            []string
}

type compiledRule struct {
	PolicyRule
	program cel.Program
}

// NewPolicy compiles rules. Every rule must type-check to bool.
func NewPolicy(maxTransactionAmount float64, blocklist []string, rules ...PolicyRule) (*Policy, error) {
	if len(rules) == 0 {
		rules = DefaultPolicyRules
	}
	env, err := cel.NewEnv(
		cel.Variable("kind", cel.StringType),
		cel.Variable("chain", cel.StringType),
		cel.Variable("amount", cel.DoubleType),
		cel.Variable("token", cel.StringType),
		cel.Variable("recipient", cel.StringType),
		cel.Variable("blocklist", cel.ListType(cel.StringType)),
		cel.Variable("max_transaction_amount", cel.DoubleType),
	)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create policy environment")
	}

	p := &Policy{maxTransactionAmount: maxTransactionAmount, blocklist: blocklist}
	if p.blocklist == nil {
		p.blocklist = []string{}
	}
	for _, rule := range rules {
		ast, issues := env.Compile(rule.Expression)
		if issues != nil && issues.Err() != nil {
			return nil, errors.Wrapf(issues.Err(), "failed to compile policy rule %s", rule.Name)
		}
		if !ast.OutputType().IsExactType(cel.BoolType) {
			return nil, errors.Errorf("policy rule %s must evaluate to bool, got %s", rule.Name, ast.OutputType())
		}
		program, err := env.Program(ast)
		if err != nil {
			return nil, errors.Wrapf(err, "failed to build policy rule %s", rule.Name)
		}
		p.rules = append(p.rules, compiledRule{PolicyRule: rule, program: program})
	}
	return p, nil
}

// Violation returns the name of the first rule that evaluates to false, or ""
// when every rule holds. A rule that fails to evaluate counts as violated.
func (p *Policy) Violation(ctx context.Context, in PolicyInput) string {
	if p == nil {
		return ""
	}
	vars := map[string]any{
		"kind":                   in.Kind,
		"chain":                  in.Chain,
		"amount":                 in.Amount,
		"token":                  in.Token,
		"recipient":              in.Recipient,
		"blocklist":              p.blocklist,
		"max_transaction_amount": p.maxTransactionAmount,
	}
	for _, rule := range p.rules {
		out, _, err := rule.program.ContextEval(ctx, vars)
		if err != nil {
			slog.Warn("policy rule evaluation failed", "rule", rule.Name, "error", err)
			return rule.Name
		}
		if allowed, ok := out.Value().(bool); !ok || !allowed {
			slog.Info("policy rule violated", "rule", rule.Name, "kind", in.Kind, "amount", in.Amount)
			return rule.Name
		}
	}
	return ""
}

func policyRefusal(rule string) string {
	return fmt.Sprintf("This request was blocked by the safety policy: %s.", rule)
}
