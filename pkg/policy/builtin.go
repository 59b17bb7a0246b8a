package policy

// builtinPolicies returns the policies every gate starts with.
func builtinPolicies() []Policy {
	return []Policy{
		highRiskApprovalPolicy(),
		largeBatchPolicy(),
	}
}

// highRiskApprovalPolicy blocks high-risk implementations that have not
// been explicitly approved.
func highRiskApprovalPolicy() Policy {
	return Policy{
		Name:        "high-risk-approval",
		Description: "High-risk implementations require explicit approval",
		Severity:    SeverityError,
		Enabled:     true,
		Rego: `package confpilot.policies.risk

import rego.v1

deny contains violation if {
	input.risk_level == "high"
	not input.approved
	violation := {
		"message": "high-risk implementation requires explicit approval",
		"severity": "error",
	}
}
`,
	}
}

// largeBatchPolicy blocks unapproved high-complexity batches above the
// change budget.
func largeBatchPolicy() Policy {
	return Policy{
		Name:        "large-batch-approval",
		Description: "High-complexity batches over 100 changes require explicit approval",
		Severity:    SeverityError,
		Enabled:     true,
		Rego: `package confpilot.policies.batch

import rego.v1

deny contains violation if {
	input.complexity == "high"
	input.estimated_changes > 100
	not input.approved
	violation := {
		"message": sprintf("batch of %d changes requires explicit approval", [input.estimated_changes]),
		"severity": "error",
	}
}
`,
	}
}
