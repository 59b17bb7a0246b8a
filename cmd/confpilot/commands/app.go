package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/confpilot/confpilot/pkg/advisor"
	"github.com/confpilot/confpilot/pkg/analyzer"
	"github.com/confpilot/confpilot/pkg/config"
	"github.com/confpilot/confpilot/pkg/executor"
	"github.com/confpilot/confpilot/pkg/hcm"
	"github.com/confpilot/confpilot/pkg/pipeline"
	"github.com/confpilot/confpilot/pkg/stores"
	"github.com/confpilot/confpilot/pkg/telemetry"
	"github.com/confpilot/confpilot/pkg/versions"
	"github.com/confpilot/confpilot/pkg/workbook"
)

// app holds the wired collaborators shared by the subcommands.
type app struct {
	cfg       *config.Config
	telemetry *telemetry.Telemetry
	db        *stores.SQLiteStore
	versions  *versions.Store
}

// newApp loads configuration, applies the global flag overrides, and
// wires telemetry plus the stores. Callers must defer close.
func newApp(ctx context.Context) (*app, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	if logLevel != "" {
		cfg.Telemetry.Logging.Level = logLevel
	}
	if logFormat != "" {
		cfg.Telemetry.Logging.Format = logFormat
	}

	tel, err := telemetry.New(cfg.Telemetry)
	if err != nil {
		return nil, err
	}
	tel.Metrics.StartServer()

	db, err := stores.NewSQLiteStore(stores.Config{Path: cfg.Storage.DatabasePath})
	if err != nil {
		return nil, err
	}
	if err := db.Init(ctx); err != nil {
		return nil, err
	}
	if err := db.Migrate(ctx); err != nil {
		return nil, err
	}

	vs, err := versions.NewStore(db, cfg.Storage.BlobRoot, tel.Logger)
	if err != nil {
		return nil, err
	}

	return &app{cfg: cfg, telemetry: tel, db: db, versions: vs}, nil
}

func (a *app) close(ctx context.Context) {
	if a.db != nil {
		_ = a.db.Close()
	}
	if a.telemetry != nil {
		_ = a.telemetry.Shutdown(ctx)
	}
}

// newAnalyzer builds the analyzer with the configured advisor, falling
// back to the no-op advisor when none is configured.
func (a *app) newAnalyzer() *analyzer.Analyzer {
	var adv advisor.Advisor = advisor.Noop{}
	if a.cfg.Advisor.Enabled && a.cfg.Advisor.Endpoint != "" {
		adv = advisor.NewHTTPAdvisor(a.cfg.Advisor.Endpoint, a.cfg.Advisor.APIKey, a.cfg.Advisor.Model)
	}
	return analyzer.New(adv, a.telemetry.Logger, a.telemetry.Metrics)
}

// newExecutor builds the executor against the configured tenant.
func (a *app) newExecutor() *executor.Executor {
	tokens := hcm.NewTokenSource(a.cfg.HCM.BaseURL, a.telemetry.Logger)
	client := hcm.NewClient(a.cfg.HCM, a.telemetry.Logger)
	return executor.New(tokens, client, a.db, executor.Options{
		Workers:     a.cfg.Executor.Workers,
		ItemTimeout: a.cfg.Executor.ItemTimeout,
	}, a.telemetry.Logger, a.telemetry.Metrics, a.telemetry.Tracer)
}

// connection assembles the tenant connection from config. The secret is
// environment-only.
func (a *app) connection() (pipeline.Connection, error) {
	conn := pipeline.Connection{
		ID:          "default",
		CompanyID:   a.cfg.Connection.CompanyID,
		Username:    a.cfg.Connection.Username,
		Application: a.cfg.Connection.Application,
		Secret:      a.cfg.Connection.Secret,
	}
	if conn.CompanyID == "" || conn.Username == "" || conn.Secret == "" {
		return conn, fmt.Errorf("connection requires company_id, username and %s", config.EnvHCMSecret)
	}
	return conn, nil
}

// ingestFile uploads one tabular file as a new version of the named
// workbook, creating the workbook on first upload. An empty workbookName
// selects the file's own base name.
func (a *app) ingestFile(ctx context.Context, path, workbookName, createdBy string) (*pipeline.WorkbookVersion, error) {
	// Reject unsupported formats before anything is stored.
	wb, err := workbook.Load(path)
	if err != nil {
		return nil, err
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}

	name := workbookName
	if name == "" {
		name = filepath.Base(path)
	}

	owner, err := a.db.GetWorkbookByName(ctx, name)
	if pipeline.IsNotFound(err) {
		now := time.Now().UTC()
		owner = &pipeline.Workbook{
			ID:        uuid.New().String(),
			Name:      name,
			CreatedBy: createdBy,
			CreatedAt: now,
			UpdatedAt: now,
		}
		if err := a.db.CreateWorkbook(ctx, owner); err != nil {
			return nil, err
		}
	} else if err != nil {
		return nil, err
	}

	uploadCtx, span := a.telemetry.Tracer.StartUploadSpan(ctx, owner.ID)
	defer span.End()

	version, err := a.versions.Put(uploadCtx, owner.ID, raw, versions.PutMetadata{
		Summary:   wb.Summary(),
		FileName:  filepath.Base(path),
		CreatedBy: createdBy,
	})
	if err != nil {
		if pipeline.IsDuplicateContent(err) {
			a.telemetry.Metrics.RecordDuplicateUpload()
		} else {
			a.telemetry.Metrics.RecordUpload("error", int64(len(raw)))
		}
		telemetry.RecordError(span, err)
		return nil, err
	}
	a.telemetry.Metrics.RecordUpload("success", int64(len(raw)))
	telemetry.RecordSuccess(span)

	return version, nil
}

// printJSON writes v to stdout as indented JSON.
func printJSON(v interface{}) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
