package versions

import (
	"context"

	"github.com/confpilot/confpilot/pkg/pipeline"
)

// DiffResult is the outcome of comparing two stored versions. Equality is
// content-addressed: two versions are equal exactly when their checksums
// match, regardless of version numbers.
type DiffResult struct {
	Equal    bool                      `json:"equal"`
	VersionA *pipeline.WorkbookVersion `json:"version_a"`
	VersionB *pipeline.WorkbookVersion `json:"version_b"`

	// Changes is the optional structural diff output, present only when a
	// StructuralDiffer is configured and the versions differ.
	Changes string `json:"changes,omitempty"`
}

// StructuralDiffer is the extension seam for full structural comparison
// (added/removed/changed rows). The equality verdict never depends on it.
type StructuralDiffer interface {
	Diff(ctx context.Context, a, b *pipeline.WorkbookVersion) (string, error)
}

// Diff compares stored versions by checksum.
type Diff struct {
	store  *Store
	differ StructuralDiffer
}

// NewDiff creates a diff engine. differ may be nil, in which case only the
// checksum verdict and version metadata are reported.
func NewDiff(store *Store, differ StructuralDiffer) *Diff {
	return &Diff{
		store:  store,
		differ: differ,
	}
}

// Compare reports whether two versions carry identical content.
func (d *Diff) Compare(ctx context.Context, versionAID, versionBID string) (*DiffResult, error) {
	a, err := d.store.Get(ctx, versionAID)
	if err != nil {
		return nil, err
	}
	b, err := d.store.Get(ctx, versionBID)
	if err != nil {
		return nil, err
	}

	result := &DiffResult{
		Equal:    a.Checksum == b.Checksum,
		VersionA: a,
		VersionB: b,
	}

	if !result.Equal && d.differ != nil {
		changes, err := d.differ.Diff(ctx, a, b)
		if err != nil {
			return nil, err
		}
		result.Changes = changes
	}

	return result, nil
}
