package stores

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/confpilot/confpilot/pkg/pipeline"
)

// setupTestStore creates an in-memory SQLite store for testing.
func setupTestStore(t *testing.T) *SQLiteStore {
	t.Helper()

	store, err := NewSQLiteStore(Config{
		Path: ":memory:",
	})
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}

	ctx := context.Background()
	if err := store.Init(ctx); err != nil {
		t.Fatalf("failed to initialize store: %v", err)
	}

	if err := store.Migrate(ctx); err != nil {
		t.Fatalf("failed to migrate store: %v", err)
	}

	t.Cleanup(func() {
		_ = store.Close()
	})

	return store
}

func createTestWorkbook(t *testing.T, store *SQLiteStore, id string) *pipeline.Workbook {
	t.Helper()

	now := time.Now().UTC()
	wb := &pipeline.Workbook{
		ID:        id,
		Name:      id + ".xlsx",
		CreatedBy: "tester",
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := store.CreateWorkbook(context.Background(), wb); err != nil {
		t.Fatalf("failed to create workbook: %v", err)
	}
	return wb
}

func testVersion(workbookID, id, number, checksum string, createdAt time.Time) *pipeline.WorkbookVersion {
	return &pipeline.WorkbookVersion{
		ID:          id,
		WorkbookID:  workbookID,
		Version:     number,
		FileSize:    128,
		Checksum:    checksum,
		StoragePath: "/blobs/" + checksum + ".bin",
		CreatedBy:   "tester",
		CreatedAt:   createdAt,
	}
}

func TestStoreLifecycle(t *testing.T) {
	store, err := NewSQLiteStore(Config{Path: ":memory:"})
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}

	ctx := context.Background()
	if err := store.Init(ctx); err != nil {
		t.Fatalf("failed to initialize store: %v", err)
	}
	if err := store.HealthCheck(ctx); err != nil {
		t.Fatalf("health check failed: %v", err)
	}
	if err := store.Close(); err != nil {
		t.Fatalf("failed to close store: %v", err)
	}
}

func TestStoreMigrations(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	tables := []string{"workbooks", "workbook_versions", "implementations"}
	for _, table := range tables {
		var count int
		if err := store.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+table).Scan(&count); err != nil {
			t.Errorf("table %s does not exist or is not accessible: %v", table, err)
		}
	}
}

func TestWorkbookCRUD(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	wb := createTestWorkbook(t, store, "wb-001")

	got, err := store.GetWorkbook(ctx, wb.ID)
	if err != nil {
		t.Fatalf("failed to get workbook: %v", err)
	}
	if got.Name != wb.Name {
		t.Errorf("name = %s, want %s", got.Name, wb.Name)
	}
	if got.CurrentVersionID != nil {
		t.Errorf("new workbook should have no current version")
	}

	byName, err := store.GetWorkbookByName(ctx, wb.Name)
	if err != nil {
		t.Fatalf("failed to get workbook by name: %v", err)
	}
	if byName.ID != wb.ID {
		t.Errorf("id = %s, want %s", byName.ID, wb.ID)
	}

	list, err := store.ListWorkbooks(ctx, 10, 0)
	if err != nil {
		t.Fatalf("failed to list workbooks: %v", err)
	}
	if len(list) != 1 {
		t.Errorf("len = %d, want 1", len(list))
	}

	if err := store.DeleteWorkbook(ctx, wb.ID); err != nil {
		t.Fatalf("failed to delete workbook: %v", err)
	}
	if _, err := store.GetWorkbook(ctx, wb.ID); !pipeline.IsNotFound(err) {
		t.Errorf("expected not-found after delete, got %v", err)
	}
}

func TestGetWorkbookNotFound(t *testing.T) {
	store := setupTestStore(t)

	_, err := store.GetWorkbook(context.Background(), "missing")
	if !pipeline.IsNotFound(err) {
		t.Errorf("expected not-found error, got %v", err)
	}
}

func TestCreateVersionAndRetrieve(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	wb := createTestWorkbook(t, store, "wb-001")
	v := testVersion(wb.ID, "v-001", "1.0.0", "aaa111", time.Now().UTC())

	if err := store.CreateVersion(ctx, v); err != nil {
		t.Fatalf("failed to create version: %v", err)
	}

	got, err := store.GetVersion(ctx, v.ID)
	if err != nil {
		t.Fatalf("failed to get version: %v", err)
	}
	if got.Checksum != v.Checksum || got.Version != "1.0.0" {
		t.Errorf("got %+v, want checksum=%s version=1.0.0", got, v.Checksum)
	}

	byChecksum, err := store.GetVersionByChecksum(ctx, "aaa111")
	if err != nil {
		t.Fatalf("failed to get version by checksum: %v", err)
	}
	if byChecksum.ID != v.ID {
		t.Errorf("id = %s, want %s", byChecksum.ID, v.ID)
	}
}

func TestDuplicateChecksumRejected(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	wbA := createTestWorkbook(t, store, "wb-a")
	wbB := createTestWorkbook(t, store, "wb-b")

	v1 := testVersion(wbA.ID, "v-001", "1.0.0", "same-checksum", time.Now().UTC())
	if err := store.CreateVersion(ctx, v1); err != nil {
		t.Fatalf("first create failed: %v", err)
	}

	// Same checksum under a different workbook: the uniqueness is system-wide.
	v2 := testVersion(wbB.ID, "v-002", "1.0.0", "same-checksum", time.Now().UTC())
	err := store.CreateVersion(ctx, v2)
	if !pipeline.IsDuplicateContent(err) {
		t.Fatalf("expected duplicate-content error, got %v", err)
	}

	versions, err := store.ListVersions(ctx, wbB.ID)
	if err != nil {
		t.Fatalf("failed to list versions: %v", err)
	}
	if len(versions) != 0 {
		t.Errorf("duplicate create must not leave a version record, got %d", len(versions))
	}
}

func TestListVersionsNewestFirst(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	wb := createTestWorkbook(t, store, "wb-001")
	base := time.Now().UTC().Add(-time.Hour)

	for i, cs := range []string{"c1", "c2", "c3"} {
		v := testVersion(wb.ID, "v-"+cs, fmt.Sprintf("1.0.%d", i), cs, base.Add(time.Duration(i)*time.Minute))
		if err := store.CreateVersion(ctx, v); err != nil {
			t.Fatalf("create %s failed: %v", cs, err)
		}
	}

	versions, err := store.ListVersions(ctx, wb.ID)
	if err != nil {
		t.Fatalf("failed to list versions: %v", err)
	}
	if len(versions) != 3 {
		t.Fatalf("len = %d, want 3", len(versions))
	}
	if versions[0].Checksum != "c3" || versions[2].Checksum != "c1" {
		t.Errorf("versions not newest-first: %s, %s, %s",
			versions[0].Checksum, versions[1].Checksum, versions[2].Checksum)
	}

	latest, err := store.LatestVersion(ctx, wb.ID)
	if err != nil {
		t.Fatalf("failed to get latest version: %v", err)
	}
	if latest.Checksum != "c3" {
		t.Errorf("latest = %s, want c3", latest.Checksum)
	}
}

func TestLatestVersionEmpty(t *testing.T) {
	store := setupTestStore(t)
	wb := createTestWorkbook(t, store, "wb-001")

	_, err := store.LatestVersion(context.Background(), wb.ID)
	if !pipeline.IsNotFound(err) {
		t.Errorf("expected not-found for workbook without versions, got %v", err)
	}
}

func TestDeleteWorkbookCascades(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	wb := createTestWorkbook(t, store, "wb-001")
	v := testVersion(wb.ID, "v-001", "1.0.0", "cascade-cs", time.Now().UTC())
	if err := store.CreateVersion(ctx, v); err != nil {
		t.Fatalf("failed to create version: %v", err)
	}

	if err := store.DeleteWorkbook(ctx, wb.ID); err != nil {
		t.Fatalf("failed to delete workbook: %v", err)
	}

	if _, err := store.GetVersion(ctx, v.ID); !pipeline.IsNotFound(err) {
		t.Errorf("version should be cascade-deleted, got %v", err)
	}
}

func TestSetCurrentVersion(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	wb := createTestWorkbook(t, store, "wb-001")
	v := testVersion(wb.ID, "v-001", "1.0.0", "cur-cs", time.Now().UTC())
	if err := store.CreateVersion(ctx, v); err != nil {
		t.Fatalf("failed to create version: %v", err)
	}

	if err := store.SetCurrentVersion(ctx, wb.ID, v.ID); err != nil {
		t.Fatalf("failed to set current version: %v", err)
	}

	got, err := store.GetWorkbook(ctx, wb.ID)
	if err != nil {
		t.Fatalf("failed to get workbook: %v", err)
	}
	if got.CurrentVersionID == nil || *got.CurrentVersionID != v.ID {
		t.Errorf("current version = %v, want %s", got.CurrentVersionID, v.ID)
	}

	if err := store.SetCurrentVersion(ctx, "missing", v.ID); !pipeline.IsNotFound(err) {
		t.Errorf("expected not-found for missing workbook, got %v", err)
	}
}

func TestImplementationRoundTrip(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	wb := createTestWorkbook(t, store, "wb-001")
	v := testVersion(wb.ID, "v-001", "1.0.0", "impl-cs", time.Now().UTC())
	if err := store.CreateVersion(ctx, v); err != nil {
		t.Fatalf("failed to create version: %v", err)
	}

	rec := &pipeline.ImplementationRecord{
		ID:             "impl-001",
		VersionID:      v.ID,
		ConnectionID:   "conn-001",
		Status:         pipeline.StatusPartial,
		ChangesApplied: 7,
		Errors: []pipeline.ItemError{
			{ItemID: "Users_3", Message: "400 Bad Request"},
			{ItemID: "Users_8", Message: "timeout"},
		},
		Result:    `{"duration_ms":420}`,
		CreatedAt: time.Now().UTC(),
	}

	if err := store.CreateImplementation(ctx, rec); err != nil {
		t.Fatalf("failed to create implementation: %v", err)
	}

	got, err := store.GetImplementation(ctx, rec.ID)
	if err != nil {
		t.Fatalf("failed to get implementation: %v", err)
	}
	if got.Status != pipeline.StatusPartial || got.ChangesApplied != 7 {
		t.Errorf("got status=%s changes=%d, want partial/7", got.Status, got.ChangesApplied)
	}
	if len(got.Errors) != 2 || got.Errors[0].ItemID != "Users_3" {
		t.Errorf("errors round-trip failed: %+v", got.Errors)
	}

	list, err := store.ListImplementations(ctx, v.ID, 10, 0)
	if err != nil {
		t.Fatalf("failed to list implementations: %v", err)
	}
	if len(list) != 1 {
		t.Errorf("len = %d, want 1", len(list))
	}
}
