// Package advisor provides the optional external recommendation
// collaborator consumed by the analyzer. The collaborator is best-effort by
// contract: any failure yields zero extra recommendations and never affects
// the analysis itself.
package advisor

import (
	"context"

	"github.com/confpilot/confpilot/pkg/pipeline"
)

// Summary is the condensed view of an analysis sent to the advisor.
type Summary struct {
	// TotalItems is the number of configuration items extracted.
	TotalItems int `json:"total_items"`

	// Types lists the distinct configuration types present.
	Types []pipeline.ConfigType `json:"types"`
}

// Advisor supplies supplementary recommendation strings for an analysis.
type Advisor interface {
	Suggest(ctx context.Context, summary Summary) ([]string, error)
}

// Noop is the default advisor. It returns no recommendations and never
// fails, keeping the analyzer's critical path free of external calls.
type Noop struct{}

// Suggest implements Advisor.
func (Noop) Suggest(_ context.Context, _ Summary) ([]string, error) {
	return nil, nil
}
