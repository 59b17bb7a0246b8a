package policy

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/open-policy-agent/opa/rego"

	"github.com/confpilot/confpilot/pkg/telemetry"
)

// Gate evaluates Rego policies against an implementation request before
// the executor is allowed to run.
type Gate struct {
	mu       sync.RWMutex
	policies map[string]Policy
	logger   *telemetry.Logger
}

// NewGate creates a gate preloaded with the builtin policies.
func NewGate(logger *telemetry.Logger) *Gate {
	g := &Gate{
		policies: make(map[string]Policy),
		logger:   logger.NewComponentLogger("policy"),
	}
	for _, p := range builtinPolicies() {
		g.policies[p.Name] = p
	}
	return g
}

// AddPolicy registers or replaces a policy. The Rego source is compiled
// eagerly so a broken policy is rejected here rather than at check time.
func (g *Gate) AddPolicy(ctx context.Context, p Policy) error {
	if p.Name == "" {
		return fmt.Errorf("policy name is required")
	}
	query := fmt.Sprintf("data.%s.deny", packageName(p.Rego))
	if _, err := rego.New(
		rego.Module(p.Name, p.Rego),
		rego.Query(query),
	).PrepareForEval(ctx); err != nil {
		return fmt.Errorf("failed to compile policy %s: %w", p.Name, err)
	}

	g.mu.Lock()
	g.policies[p.Name] = p
	g.mu.Unlock()

	g.logger.WithField("policy", p.Name).Info("policy registered")
	return nil
}

// Check evaluates every enabled policy against the input. The request is
// allowed when no error-severity violation fires; warnings are returned
// but do not block.
func (g *Gate) Check(ctx context.Context, input Input) (*Result, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	result := &Result{Allowed: true}

	for _, p := range g.policies {
		if !p.Enabled {
			continue
		}

		violations, err := g.evaluate(ctx, p, input)
		if err != nil {
			return nil, fmt.Errorf("failed to evaluate policy %s: %w", p.Name, err)
		}
		result.Violations = append(result.Violations, violations...)
	}

	for _, v := range result.Violations {
		if v.Severity == SeverityError {
			result.Allowed = false
			break
		}
	}

	if !result.Allowed {
		g.logger.WithField("violations", len(result.Violations)).
			Warn("implementation blocked by policy")
	}
	return result, nil
}

func (g *Gate) evaluate(ctx context.Context, p Policy, input Input) ([]Violation, error) {
	query := fmt.Sprintf("data.%s.deny", packageName(p.Rego))

	r := rego.New(
		rego.Module(p.Name, p.Rego),
		rego.Query(query),
		rego.Input(input),
	)
	results, err := r.Eval(ctx)
	if err != nil {
		return nil, err
	}

	var violations []Violation
	for _, result := range results {
		for _, expr := range result.Expressions {
			denySet, ok := expr.Value.([]interface{})
			if !ok {
				continue
			}
			for _, d := range denySet {
				violations = append(violations, toViolation(p, d))
			}
		}
	}
	return violations, nil
}

func toViolation(p Policy, raw interface{}) Violation {
	v := Violation{Policy: p.Name, Severity: p.Severity}
	fields, ok := raw.(map[string]interface{})
	if !ok {
		v.Message = fmt.Sprintf("%v", raw)
		return v
	}
	if msg, ok := fields["message"].(string); ok {
		v.Message = msg
	}
	if sev, ok := fields["severity"].(string); ok {
		v.Severity = Severity(sev)
	}
	return v
}

// packageName extracts the package declaration from Rego source.
func packageName(source string) string {
	for _, line := range strings.Split(source, "\n") {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "package ") {
			if parts := strings.Fields(trimmed); len(parts) >= 2 {
				return parts[1]
			}
		}
	}
	return "confpilot.policies"
}
