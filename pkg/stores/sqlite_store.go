package stores

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source/iofs"

	// SQLite driver
	_ "modernc.org/sqlite"

	"github.com/confpilot/confpilot/pkg/pipeline"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// SQLiteStore implements the Store interface using SQLite.
type SQLiteStore struct {
	db   *sql.DB
	path string
}

// Config holds SQLite store configuration.
type Config struct {
	Path            string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// NewSQLiteStore creates a new SQLite store instance.
func NewSQLiteStore(cfg Config) (*SQLiteStore, error) {
	if cfg.Path == "" {
		return nil, fmt.Errorf("database path is required")
	}

	return &SQLiteStore{
		path: cfg.Path,
	}, nil
}

// Init initializes the database connection and enables WAL mode.
func (s *SQLiteStore) Init(ctx context.Context) error {
	dsn := fmt.Sprintf("%s?_foreign_keys=on&_journal_mode=WAL&_busy_timeout=5000&_synchronous=NORMAL&_txlock=immediate", s.path)

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to ping database: %w", err)
	}

	// Connection-level setting, the DSN parameter alone is not enough
	// for every pooled connection.
	if _, err := db.ExecContext(ctx, "PRAGMA foreign_keys = ON"); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	s.db = db
	return nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Migrate runs database migrations.
func (s *SQLiteStore) Migrate(_ context.Context) error {
	if s.db == nil {
		return fmt.Errorf("database not initialized")
	}

	sourceDriver, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("failed to create migration source: %w", err)
	}

	driver, err := sqlite3.WithInstance(s.db, &sqlite3.Config{})
	if err != nil {
		return fmt.Errorf("failed to create database driver: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", sourceDriver, "sqlite3", driver)
	if err != nil {
		return fmt.Errorf("failed to create migration instance: %w", err)
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	return nil
}

// HealthCheck verifies the database connection is healthy.
func (s *SQLiteStore) HealthCheck(ctx context.Context) error {
	if s.db == nil {
		return fmt.Errorf("database not initialized")
	}
	return s.db.PingContext(ctx)
}

// isUniqueViolation reports whether err is a SQLite unique-constraint failure.
func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

// CreateWorkbook creates a new workbook record.
func (s *SQLiteStore) CreateWorkbook(ctx context.Context, wb *pipeline.Workbook) error {
	query := `
		INSERT INTO workbooks (id, name, description, current_version_id, created_by, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`

	_, err := s.db.ExecContext(ctx, query,
		wb.ID,
		wb.Name,
		wb.Description,
		wb.CurrentVersionID,
		wb.CreatedBy,
		wb.CreatedAt,
		wb.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create workbook: %w", err)
	}

	return nil
}

// GetWorkbook retrieves a workbook by ID.
func (s *SQLiteStore) GetWorkbook(ctx context.Context, id string) (*pipeline.Workbook, error) {
	query := `
		SELECT id, name, description, current_version_id, created_by, created_at, updated_at
		FROM workbooks
		WHERE id = ?
	`

	wb := &pipeline.Workbook{}
	err := s.db.QueryRowContext(ctx, query, id).Scan(
		&wb.ID,
		&wb.Name,
		&wb.Description,
		&wb.CurrentVersionID,
		&wb.CreatedBy,
		&wb.CreatedAt,
		&wb.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, pipeline.NewNotFoundError("workbook", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get workbook: %w", err)
	}

	return wb, nil
}

// GetWorkbookByName retrieves a workbook by its name.
func (s *SQLiteStore) GetWorkbookByName(ctx context.Context, name string) (*pipeline.Workbook, error) {
	query := `
		SELECT id, name, description, current_version_id, created_by, created_at, updated_at
		FROM workbooks
		WHERE name = ?
		ORDER BY created_at ASC
		LIMIT 1
	`

	wb := &pipeline.Workbook{}
	err := s.db.QueryRowContext(ctx, query, name).Scan(
		&wb.ID,
		&wb.Name,
		&wb.Description,
		&wb.CurrentVersionID,
		&wb.CreatedBy,
		&wb.CreatedAt,
		&wb.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, pipeline.NewNotFoundError("workbook", name)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get workbook by name: %w", err)
	}

	return wb, nil
}

// ListWorkbooks lists workbooks newest-first with pagination.
func (s *SQLiteStore) ListWorkbooks(ctx context.Context, limit, offset int) ([]*pipeline.Workbook, error) {
	query := `
		SELECT id, name, description, current_version_id, created_by, created_at, updated_at
		FROM workbooks
		ORDER BY created_at DESC
		LIMIT ? OFFSET ?
	`

	rows, err := s.db.QueryContext(ctx, query, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list workbooks: %w", err)
	}
	defer rows.Close()

	workbooks := []*pipeline.Workbook{}
	for rows.Next() {
		wb := &pipeline.Workbook{}
		err := rows.Scan(
			&wb.ID,
			&wb.Name,
			&wb.Description,
			&wb.CurrentVersionID,
			&wb.CreatedBy,
			&wb.CreatedAt,
			&wb.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan workbook: %w", err)
		}
		workbooks = append(workbooks, wb)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating workbooks: %w", err)
	}

	return workbooks, nil
}

// DeleteWorkbook deletes a workbook and, through the foreign key cascade,
// its entire version history.
func (s *SQLiteStore) DeleteWorkbook(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM workbooks WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete workbook: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return pipeline.NewNotFoundError("workbook", id)
	}

	return nil
}

// SetCurrentVersion repoints the workbook's current version marker.
func (s *SQLiteStore) SetCurrentVersion(ctx context.Context, workbookID, versionID string) error {
	query := `
		UPDATE workbooks
		SET current_version_id = ?, updated_at = ?
		WHERE id = ?
	`

	result, err := s.db.ExecContext(ctx, query, versionID, time.Now().UTC(), workbookID)
	if err != nil {
		return fmt.Errorf("failed to set current version: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return pipeline.NewNotFoundError("workbook", workbookID)
	}

	return nil
}

// CreateVersion inserts a version record inside a transaction. The duplicate
// checksum check and the insert commit atomically: a concurrent upload of
// identical bytes fails either on the pre-check or on the unique index.
func (s *SQLiteStore) CreateVersion(ctx context.Context, v *pipeline.WorkbookVersion) error {
	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	var existing string
	err = tx.QueryRowContext(ctx,
		`SELECT id FROM workbook_versions WHERE checksum = ?`, v.Checksum,
	).Scan(&existing)
	if err == nil {
		return pipeline.NewDuplicateContentError(v.Checksum)
	}
	if err != sql.ErrNoRows {
		return fmt.Errorf("failed to check for duplicate checksum: %w", err)
	}

	query := `
		INSERT INTO workbook_versions (
			id, workbook_id, version_number, file_name, file_size, checksum,
			changes_summary, storage_path, created_by, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err = tx.ExecContext(ctx, query,
		v.ID,
		v.WorkbookID,
		v.Version,
		v.FileName,
		v.FileSize,
		v.Checksum,
		v.Summary,
		v.StoragePath,
		v.CreatedBy,
		v.CreatedAt,
	)
	if isUniqueViolation(err) {
		return pipeline.NewDuplicateContentError(v.Checksum)
	}
	if err != nil {
		return fmt.Errorf("failed to create version: %w", err)
	}

	if err := tx.Commit(); err != nil {
		if isUniqueViolation(err) {
			return pipeline.NewDuplicateContentError(v.Checksum)
		}
		return fmt.Errorf("failed to commit version: %w", err)
	}

	return nil
}

// GetVersion retrieves a version by ID.
func (s *SQLiteStore) GetVersion(ctx context.Context, id string) (*pipeline.WorkbookVersion, error) {
	return s.queryVersion(ctx, `WHERE id = ?`, id)
}

// GetVersionByChecksum retrieves a version by its content checksum.
func (s *SQLiteStore) GetVersionByChecksum(ctx context.Context, checksum string) (*pipeline.WorkbookVersion, error) {
	return s.queryVersion(ctx, `WHERE checksum = ?`, checksum)
}

func (s *SQLiteStore) queryVersion(ctx context.Context, where string, arg interface{}) (*pipeline.WorkbookVersion, error) {
	query := `
		SELECT id, workbook_id, version_number, file_name, file_size, checksum,
			   changes_summary, storage_path, created_by, created_at
		FROM workbook_versions ` + where

	v := &pipeline.WorkbookVersion{}
	err := s.db.QueryRowContext(ctx, query, arg).Scan(
		&v.ID,
		&v.WorkbookID,
		&v.Version,
		&v.FileName,
		&v.FileSize,
		&v.Checksum,
		&v.Summary,
		&v.StoragePath,
		&v.CreatedBy,
		&v.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, pipeline.NewNotFoundError("version", fmt.Sprintf("%v", arg))
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get version: %w", err)
	}

	return v, nil
}

// ListVersions lists the versions of a workbook newest-first.
func (s *SQLiteStore) ListVersions(ctx context.Context, workbookID string) ([]*pipeline.WorkbookVersion, error) {
	query := `
		SELECT id, workbook_id, version_number, file_name, file_size, checksum,
			   changes_summary, storage_path, created_by, created_at
		FROM workbook_versions
		WHERE workbook_id = ?
		ORDER BY created_at DESC, version_number DESC
	`

	rows, err := s.db.QueryContext(ctx, query, workbookID)
	if err != nil {
		return nil, fmt.Errorf("failed to list versions: %w", err)
	}
	defer rows.Close()

	versions := []*pipeline.WorkbookVersion{}
	for rows.Next() {
		v := &pipeline.WorkbookVersion{}
		err := rows.Scan(
			&v.ID,
			&v.WorkbookID,
			&v.Version,
			&v.FileName,
			&v.FileSize,
			&v.Checksum,
			&v.Summary,
			&v.StoragePath,
			&v.CreatedBy,
			&v.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan version: %w", err)
		}
		versions = append(versions, v)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating versions: %w", err)
	}

	return versions, nil
}

// LatestVersion returns the most recently created version of a workbook,
// or a not-found error when the workbook has no versions yet.
func (s *SQLiteStore) LatestVersion(ctx context.Context, workbookID string) (*pipeline.WorkbookVersion, error) {
	query := `
		SELECT id, workbook_id, version_number, file_name, file_size, checksum,
			   changes_summary, storage_path, created_by, created_at
		FROM workbook_versions
		WHERE workbook_id = ?
		ORDER BY created_at DESC, version_number DESC
		LIMIT 1
	`

	v := &pipeline.WorkbookVersion{}
	err := s.db.QueryRowContext(ctx, query, workbookID).Scan(
		&v.ID,
		&v.WorkbookID,
		&v.Version,
		&v.FileName,
		&v.FileSize,
		&v.Checksum,
		&v.Summary,
		&v.StoragePath,
		&v.CreatedBy,
		&v.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, pipeline.NewNotFoundError("version", workbookID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get latest version: %w", err)
	}

	return v, nil
}

// CreateImplementation persists an implementation record for audit.
func (s *SQLiteStore) CreateImplementation(ctx context.Context, rec *pipeline.ImplementationRecord) error {
	errorsJSON, err := json.Marshal(rec.Errors)
	if err != nil {
		return fmt.Errorf("failed to marshal implementation errors: %w", err)
	}

	query := `
		INSERT INTO implementations (
			id, workbook_version_id, connection_id, status,
			changes_applied, errors, result, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err = s.db.ExecContext(ctx, query,
		rec.ID,
		rec.VersionID,
		rec.ConnectionID,
		rec.Status,
		rec.ChangesApplied,
		string(errorsJSON),
		rec.Result,
		rec.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create implementation record: %w", err)
	}

	return nil
}

// GetImplementation retrieves an implementation record by ID.
func (s *SQLiteStore) GetImplementation(ctx context.Context, id string) (*pipeline.ImplementationRecord, error) {
	query := `
		SELECT id, workbook_version_id, connection_id, status,
			   changes_applied, errors, result, created_at
		FROM implementations
		WHERE id = ?
	`

	rec := &pipeline.ImplementationRecord{}
	var errorsJSON string
	err := s.db.QueryRowContext(ctx, query, id).Scan(
		&rec.ID,
		&rec.VersionID,
		&rec.ConnectionID,
		&rec.Status,
		&rec.ChangesApplied,
		&errorsJSON,
		&rec.Result,
		&rec.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, pipeline.NewNotFoundError("implementation", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get implementation: %w", err)
	}

	if err := json.Unmarshal([]byte(errorsJSON), &rec.Errors); err != nil {
		return nil, fmt.Errorf("failed to unmarshal implementation errors: %w", err)
	}

	return rec, nil
}

// ListImplementations lists implementation records for a version newest-first.
func (s *SQLiteStore) ListImplementations(ctx context.Context, versionID string, limit, offset int) ([]*pipeline.ImplementationRecord, error) {
	query := `
		SELECT id, workbook_version_id, connection_id, status,
			   changes_applied, errors, result, created_at
		FROM implementations
		WHERE workbook_version_id = ?
		ORDER BY created_at DESC
		LIMIT ? OFFSET ?
	`

	rows, err := s.db.QueryContext(ctx, query, versionID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list implementations: %w", err)
	}
	defer rows.Close()

	records := []*pipeline.ImplementationRecord{}
	for rows.Next() {
		rec := &pipeline.ImplementationRecord{}
		var errorsJSON string
		err := rows.Scan(
			&rec.ID,
			&rec.VersionID,
			&rec.ConnectionID,
			&rec.Status,
			&rec.ChangesApplied,
			&errorsJSON,
			&rec.Result,
			&rec.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan implementation: %w", err)
		}
		if err := json.Unmarshal([]byte(errorsJSON), &rec.Errors); err != nil {
			return nil, fmt.Errorf("failed to unmarshal implementation errors: %w", err)
		}
		records = append(records, rec)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating implementations: %w", err)
	}

	return records, nil
}
