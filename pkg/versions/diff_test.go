package versions

import (
	"context"
	"fmt"
	"testing"

	"github.com/confpilot/confpilot/pkg/pipeline"
)

type fakeDiffer struct {
	called bool
}

func (f *fakeDiffer) Diff(_ context.Context, a, b *pipeline.WorkbookVersion) (string, error) {
	f.called = true
	return fmt.Sprintf("%s -> %s", a.Version, b.Version), nil
}

func TestCompareEqualByChecksum(t *testing.T) {
	vs, db := setupVersionStore(t)
	ctx := context.Background()
	createWorkbook(t, db, "wb-1")

	v1, err := vs.Put(ctx, "wb-1", []byte("same"), PutMetadata{})
	if err != nil {
		t.Fatalf("Put: %v", err)
	}

	// Comparing a version against itself: equal despite being the only way
	// to get two handles onto identical content (dedup forbids a second
	// version with the same bytes).
	d := NewDiff(vs, nil)
	result, err := d.Compare(ctx, v1.ID, v1.ID)
	if err != nil {
		t.Fatalf("Compare: %v", err)
	}
	if !result.Equal {
		t.Error("identical checksums must compare equal")
	}
	if result.VersionA == nil || result.VersionB == nil {
		t.Error("both version summaries must be present")
	}
}

func TestCompareDifferentContent(t *testing.T) {
	vs, db := setupVersionStore(t)
	ctx := context.Background()
	createWorkbook(t, db, "wb-1")

	v1, err := vs.Put(ctx, "wb-1", []byte("one"), PutMetadata{})
	if err != nil {
		t.Fatalf("Put: %v", err)
	}
	v2, err := vs.Put(ctx, "wb-1", []byte("two"), PutMetadata{})
	if err != nil {
		t.Fatalf("Put: %v", err)
	}

	d := NewDiff(vs, nil)
	result, err := d.Compare(ctx, v1.ID, v2.ID)
	if err != nil {
		t.Fatalf("Compare: %v", err)
	}
	if result.Equal {
		t.Error("different checksums must compare unequal")
	}
	if result.Changes != "" {
		t.Error("no structural differ configured, Changes must be empty")
	}
}

func TestCompareInvokesStructuralDiffer(t *testing.T) {
	vs, db := setupVersionStore(t)
	ctx := context.Background()
	createWorkbook(t, db, "wb-1")

	v1, err := vs.Put(ctx, "wb-1", []byte("one"), PutMetadata{})
	if err != nil {
		t.Fatalf("Put: %v", err)
	}
	v2, err := vs.Put(ctx, "wb-1", []byte("two"), PutMetadata{})
	if err != nil {
		t.Fatalf("Put: %v", err)
	}

	differ := &fakeDiffer{}
	d := NewDiff(vs, differ)
	result, err := d.Compare(ctx, v1.ID, v2.ID)
	if err != nil {
		t.Fatalf("Compare: %v", err)
	}
	if !differ.called {
		t.Error("structural differ should be invoked for unequal versions")
	}
	if result.Changes != "1.0.0 -> 1.0.1" {
		t.Errorf("changes = %q", result.Changes)
	}
}

func TestCompareMissingVersion(t *testing.T) {
	vs, _ := setupVersionStore(t)

	d := NewDiff(vs, nil)
	if _, err := d.Compare(context.Background(), "missing-a", "missing-b"); !pipeline.IsNotFound(err) {
		t.Errorf("expected not-found error, got %v", err)
	}
}
