// Package policy gates implementation runs with Rego policies evaluated
// through OPA. The builtin policies require explicit approval for
// high-risk analyses and for very large high-complexity batches;
// operators can register additional rules at runtime.
package policy
