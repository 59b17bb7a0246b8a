package policy

import (
	"context"
	"testing"

	"github.com/confpilot/confpilot/pkg/pipeline"
	"github.com/confpilot/confpilot/pkg/telemetry"
)

func testGate(t *testing.T) *Gate {
	t.Helper()
	logger, err := telemetry.NewLogger(telemetry.LoggingConfig{Level: "error"})
	if err != nil {
		t.Fatalf("failed to create logger: %v", err)
	}
	return NewGate(logger)
}

func TestCheckHighRiskRequiresApproval(t *testing.T) {
	g := testGate(t)
	ctx := context.Background()

	blocked, err := g.Check(ctx, Input{
		RiskLevel:        pipeline.RiskHigh,
		Complexity:       pipeline.ComplexityLow,
		EstimatedChanges: 3,
	})
	if err != nil {
		t.Fatalf("Check: %v", err)
	}
	if blocked.Allowed {
		t.Error("unapproved high-risk input must be blocked")
	}
	if len(blocked.Violations) == 0 {
		t.Fatal("expected at least one violation")
	}

	approved, err := g.Check(ctx, Input{
		RiskLevel:        pipeline.RiskHigh,
		Complexity:       pipeline.ComplexityLow,
		EstimatedChanges: 3,
		Approved:         true,
	})
	if err != nil {
		t.Fatalf("Check: %v", err)
	}
	if !approved.Allowed {
		t.Errorf("approved high-risk input must pass, got %+v", approved.Violations)
	}
}

func TestCheckLargeBatchRequiresApproval(t *testing.T) {
	g := testGate(t)
	ctx := context.Background()

	blocked, err := g.Check(ctx, Input{
		RiskLevel:        pipeline.RiskMedium,
		Complexity:       pipeline.ComplexityHigh,
		EstimatedChanges: 150,
	})
	if err != nil {
		t.Fatalf("Check: %v", err)
	}
	if blocked.Allowed {
		t.Error("unapproved 150-change high-complexity batch must be blocked")
	}

	// Under the change budget: high complexity alone is fine.
	small, err := g.Check(ctx, Input{
		RiskLevel:        pipeline.RiskMedium,
		Complexity:       pipeline.ComplexityHigh,
		EstimatedChanges: 60,
	})
	if err != nil {
		t.Fatalf("Check: %v", err)
	}
	if !small.Allowed {
		t.Errorf("60-change batch must pass, got %+v", small.Violations)
	}
}

func TestCheckMediumRiskPasses(t *testing.T) {
	g := testGate(t)

	result, err := g.Check(context.Background(), Input{
		RiskLevel:        pipeline.RiskMedium,
		Complexity:       pipeline.ComplexityMedium,
		EstimatedChanges: 20,
	})
	if err != nil {
		t.Fatalf("Check: %v", err)
	}
	if !result.Allowed {
		t.Errorf("medium-risk input must pass, got %+v", result.Violations)
	}
}

func TestAddPolicy(t *testing.T) {
	g := testGate(t)
	ctx := context.Background()

	err := g.AddPolicy(ctx, Policy{
		Name:     "no-compensation-fridays",
		Severity: SeverityError,
		Enabled:  true,
		Rego: `package confpilot.policies.custom

import rego.v1

deny contains violation if {
	input.estimated_changes > 5
	violation := {
		"message": "custom budget exceeded",
		"severity": "error",
	}
}
`,
	})
	if err != nil {
		t.Fatalf("AddPolicy: %v", err)
	}

	result, err := g.Check(ctx, Input{
		RiskLevel:        pipeline.RiskMedium,
		Complexity:       pipeline.ComplexityLow,
		EstimatedChanges: 6,
	})
	if err != nil {
		t.Fatalf("Check: %v", err)
	}
	if result.Allowed {
		t.Error("custom policy should block the input")
	}
}

func TestAddPolicyRejectsBrokenRego(t *testing.T) {
	g := testGate(t)

	err := g.AddPolicy(context.Background(), Policy{
		Name:    "broken",
		Enabled: true,
		Rego:    "package broken\n\nthis is not rego",
	})
	if err == nil {
		t.Fatal("expected compile error for broken rego")
	}
}
