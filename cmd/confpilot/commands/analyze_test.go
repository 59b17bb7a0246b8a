package commands

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/confpilot/confpilot/pkg/config"
	"github.com/confpilot/confpilot/pkg/pipeline"
	"github.com/confpilot/confpilot/pkg/stores"
	"github.com/confpilot/confpilot/pkg/telemetry"
	"github.com/confpilot/confpilot/pkg/versions"
)

func newTestApp(t *testing.T) *app {
	t.Helper()

	cfg := config.Default()
	cfg.Telemetry.Logging.Level = "error"
	cfg.Storage.DatabasePath = ":memory:"
	cfg.Storage.BlobRoot = t.TempDir()

	tel, err := telemetry.New(cfg.Telemetry)
	if err != nil {
		t.Fatalf("failed to create telemetry: %v", err)
	}

	ctx := context.Background()
	db, err := stores.NewSQLiteStore(stores.Config{Path: cfg.Storage.DatabasePath})
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	if err := db.Init(ctx); err != nil {
		t.Fatalf("failed to init store: %v", err)
	}
	if err := db.Migrate(ctx); err != nil {
		t.Fatalf("failed to migrate store: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	vs, err := versions.NewStore(db, cfg.Storage.BlobRoot, tel.Logger)
	if err != nil {
		t.Fatalf("failed to create version store: %v", err)
	}

	return &app{cfg: cfg, telemetry: tel, db: db, versions: vs}
}

func TestAnalyzeVersionUsesUploadedFileName(t *testing.T) {
	a := newTestApp(t)
	ctx := context.Background()

	src := filepath.Join(t.TempDir(), "employees.csv")
	csv := "username,email\nalice,alice@example.com\nbob,bob@example.com\n"
	if err := os.WriteFile(src, []byte(csv), 0o644); err != nil {
		t.Fatalf("write source file: %v", err)
	}

	// The workbook label carries no extension; format detection has to
	// come from the uploaded file's name.
	version, err := a.ingestFile(ctx, src, "quarterly-users", "tester")
	if err != nil {
		t.Fatalf("ingestFile: %v", err)
	}
	if version.FileName != "employees.csv" {
		t.Errorf("file name = %q, want %q", version.FileName, "employees.csv")
	}

	result, err := analyzeVersion(ctx, a, version.ID)
	if err != nil {
		t.Fatalf("analyzeVersion: %v", err)
	}
	if len(result.Configurations) != 2 {
		t.Fatalf("configurations = %d, want 2", len(result.Configurations))
	}
	if result.Configurations[0].Type != pipeline.ConfigTypeUser {
		t.Errorf("type = %s, want %s", result.Configurations[0].Type, pipeline.ConfigTypeUser)
	}
}
