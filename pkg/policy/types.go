package policy

import "github.com/confpilot/confpilot/pkg/pipeline"

// Severity ranks a policy violation.
type Severity string

const (
	// SeverityWarning flags something to review without blocking.
	SeverityWarning Severity = "warning"

	// SeverityError blocks the implementation.
	SeverityError Severity = "error"
)

// Policy is one Rego rule set evaluated before an implementation runs.
type Policy struct {
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Rego        string   `json:"rego"`
	Severity    Severity `json:"severity"`
	Enabled     bool     `json:"enabled"`
}

// Input is the document policies evaluate. It condenses the analysis and
// the operator's intent into the fields rules can reason about.
type Input struct {
	RiskLevel        pipeline.RiskLevel  `json:"risk_level"`
	Complexity       pipeline.Complexity `json:"complexity"`
	EstimatedChanges int                 `json:"estimated_changes"`
	Approved         bool                `json:"approved"`
}

// Violation is one deny result produced by a policy.
type Violation struct {
	Policy   string   `json:"policy"`
	Message  string   `json:"message"`
	Severity Severity `json:"severity"`
}

// Result is the aggregated verdict across all enabled policies.
type Result struct {
	Allowed    bool        `json:"allowed"`
	Violations []Violation `json:"violations,omitempty"`
}
