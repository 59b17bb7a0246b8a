package stores

import (
	"context"

	"github.com/confpilot/confpilot/pkg/pipeline"
)

// Store is the persistence contract consumed by the pipeline components.
// SQLiteStore is the production implementation.
type Store interface {
	// Workbooks
	CreateWorkbook(ctx context.Context, wb *pipeline.Workbook) error
	GetWorkbook(ctx context.Context, id string) (*pipeline.Workbook, error)
	GetWorkbookByName(ctx context.Context, name string) (*pipeline.Workbook, error)
	ListWorkbooks(ctx context.Context, limit, offset int) ([]*pipeline.Workbook, error)
	DeleteWorkbook(ctx context.Context, id string) error
	SetCurrentVersion(ctx context.Context, workbookID, versionID string) error

	// Versions
	CreateVersion(ctx context.Context, v *pipeline.WorkbookVersion) error
	GetVersion(ctx context.Context, id string) (*pipeline.WorkbookVersion, error)
	GetVersionByChecksum(ctx context.Context, checksum string) (*pipeline.WorkbookVersion, error)
	ListVersions(ctx context.Context, workbookID string) ([]*pipeline.WorkbookVersion, error)
	LatestVersion(ctx context.Context, workbookID string) (*pipeline.WorkbookVersion, error)

	// Implementations
	CreateImplementation(ctx context.Context, rec *pipeline.ImplementationRecord) error
	GetImplementation(ctx context.Context, id string) (*pipeline.ImplementationRecord, error)
	ListImplementations(ctx context.Context, versionID string, limit, offset int) ([]*pipeline.ImplementationRecord, error)
}

var _ Store = (*SQLiteStore)(nil)
