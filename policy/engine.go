// Package policy resolves per-role daily request allowances via OPA.
package policy

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/open-policy-agent/opa/v1/rego"
)

// UnlimitedDailyLimit is the sentinel passed to numeric interfaces for
// tiers with no daily cap.
const UnlimitedDailyLimit = 1_000_000

// DefaultDailyLimit is the most restrictive tier. Unknown roles and any
// policy evaluation problem resolve here, never to unlimited.
const DefaultDailyLimit = 25

// Engine is the OPA quota policy engine.
type Engine struct {
	query rego.PreparedEvalQuery
}

// NewEngine prepares the quota policy for evaluation.
func NewEngine(ctx context.Context, policyContent string) (*Engine, error) {
	r := rego.New(
		rego.Query("data.guru.quota.daily_limit"),
		rego.Module("quota.rego", policyContent),
	)

	query, err := r.PrepareForEval(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare rego: %w", err)
	}

	return &Engine{query: query}, nil
}

// DailyLimit resolves the daily request allowance for a role. There is
// no error path: anything unexpected resolves to DefaultDailyLimit.
func (e *Engine) DailyLimit(ctx context.Context, roleName string) int {
	results, err := e.query.Eval(ctx, rego.EvalInput(map[string]interface{}{
		"role": roleName,
	}))
	if err != nil || len(results) == 0 || len(results[0].Expressions) == 0 {
		return DefaultDailyLimit
	}

	switch v := results[0].Expressions[0].Value.(type) {
	case json.Number:
		n, err := v.Int64()
		if err != nil {
			return DefaultDailyLimit
		}
		return int(n)
	case int64:
		return int(v)
	case float64:
		return int(v)
	default:
		return DefaultDailyLimit
	}
}

// Unlimited reports whether a resolved limit means "no daily cap".
func Unlimited(limit int) bool {
	return limit >= UnlimitedDailyLimit
}

// DefaultPolicy is the default quota policy content.
const DefaultPolicy = `
package guru.quota

default daily_limit := 25

daily_limit := 1000000 if input.role == "admin"

daily_limit := 1000000 if input.role == "manager"

daily_limit := 100 if input.role == "power"
`
