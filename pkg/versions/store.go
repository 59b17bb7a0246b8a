package versions

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/confpilot/confpilot/pkg/pipeline"
	"github.com/confpilot/confpilot/pkg/stores"
	"github.com/confpilot/confpilot/pkg/telemetry"
)

// firstVersion is assigned to a workbook's first upload and used as the
// documented fallback when the stored latest version string is malformed.
const firstVersion = "1.0.0"

// Store provides content-addressed version storage for workbooks.
type Store struct {
	db       stores.Store
	blobRoot string
	logger   *telemetry.Logger
}

// PutMetadata carries caller-supplied metadata for a new version.
type PutMetadata struct {
	// Summary is the human-readable change summary.
	Summary string

	// FileName is the base name of the uploaded file. Workbooks can be
	// named freely, so this is the only place the format-bearing
	// extension survives.
	FileName string

	// CreatedBy identifies the uploading user.
	CreatedBy string
}

// NewStore creates a version store rooted at blobRoot.
func NewStore(db stores.Store, blobRoot string, logger *telemetry.Logger) (*Store, error) {
	if blobRoot == "" {
		return nil, fmt.Errorf("blob root directory is required")
	}
	if err := os.MkdirAll(blobRoot, 0755); err != nil {
		return nil, fmt.Errorf("failed to create blob root: %w", err)
	}

	return &Store{
		db:       db,
		blobRoot: blobRoot,
		logger:   logger.NewComponentLogger("versions"),
	}, nil
}

// Checksum returns the hex SHA-256 of raw.
func Checksum(raw []byte) string {
	sum := sha256.Sum256(raw)
	return hex.EncodeToString(sum[:])
}

// Put stores raw as the next version of the workbook. It fails with a
// duplicate-content error when a version with an identical checksum exists
// anywhere in the store, across all workbooks.
func (s *Store) Put(ctx context.Context, workbookID string, raw []byte, meta PutMetadata) (*pipeline.WorkbookVersion, error) {
	if len(raw) == 0 {
		return nil, pipeline.NewValidationError("uploaded file is empty", nil)
	}

	if _, err := s.db.GetWorkbook(ctx, workbookID); err != nil {
		return nil, err
	}

	checksum := Checksum(raw)

	// Fast-path dedup check. The authoritative guard is the unique index
	// inside CreateVersion's transaction.
	if _, err := s.db.GetVersionByChecksum(ctx, checksum); err == nil {
		return nil, pipeline.NewDuplicateContentError(checksum)
	} else if !pipeline.IsNotFound(err) {
		return nil, err
	}

	number, err := s.nextVersionNumber(ctx, workbookID)
	if err != nil {
		return nil, err
	}

	blobPath, err := s.writeBlob(workbookID, checksum, raw)
	if err != nil {
		return nil, err
	}

	version := &pipeline.WorkbookVersion{
		ID:          uuid.New().String(),
		WorkbookID:  workbookID,
		Version:     number,
		FileName:    meta.FileName,
		FileSize:    int64(len(raw)),
		Checksum:    checksum,
		Summary:     meta.Summary,
		StoragePath: blobPath,
		CreatedBy:   meta.CreatedBy,
		CreatedAt:   time.Now().UTC(),
	}

	if err := s.db.CreateVersion(ctx, version); err != nil {
		// The blob was persisted but the metadata commit failed: unlink
		// the orphan so a retry starts clean. Never on duplicate content:
		// the path is content-addressed, so losing the race to an
		// identical upload means a committed version can already point at
		// this exact file, and unlinking it would strand that version.
		if !pipeline.IsDuplicateContent(err) {
			if rmErr := os.Remove(blobPath); rmErr != nil && !os.IsNotExist(rmErr) {
				s.logger.WithError(rmErr).Warnf("failed to clean up orphaned blob %s", blobPath)
			}
		}
		return nil, err
	}

	if err := s.db.SetCurrentVersion(ctx, workbookID, version.ID); err != nil {
		return nil, err
	}

	s.logger.WithWorkbookID(workbookID).WithVersionID(version.ID).
		Infof("stored version %s (%d bytes, checksum %s)", number, version.FileSize, checksum[:12])

	return version, nil
}

// Get retrieves a version record by ID.
func (s *Store) Get(ctx context.Context, versionID string) (*pipeline.WorkbookVersion, error) {
	return s.db.GetVersion(ctx, versionID)
}

// List returns the versions of a workbook newest-first by creation time.
func (s *Store) List(ctx context.Context, workbookID string) ([]*pipeline.WorkbookVersion, error) {
	return s.db.ListVersions(ctx, workbookID)
}

// Open returns the version record together with its raw bytes, verifying
// the stored blob against the recorded checksum before returning it.
func (s *Store) Open(ctx context.Context, versionID string) (*pipeline.WorkbookVersion, []byte, error) {
	version, err := s.db.GetVersion(ctx, versionID)
	if err != nil {
		return nil, nil, err
	}

	raw, err := os.ReadFile(version.StoragePath)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read version blob: %w", err)
	}

	if got := Checksum(raw); got != version.Checksum {
		return nil, nil, &pipeline.Error{
			Class:    pipeline.ErrorClassPermanent,
			Code:     pipeline.ErrCodeChecksumMismatch,
			Message:  "stored blob does not match recorded checksum",
			Resource: versionID,
		}
	}

	return version, raw, nil
}

// Rollback repoints the workbook's current-version marker at an earlier
// version. History is append-only, so nothing is deleted or rewritten.
func (s *Store) Rollback(ctx context.Context, workbookID, versionID string) (*pipeline.WorkbookVersion, error) {
	target, err := s.db.GetVersion(ctx, versionID)
	if err != nil {
		return nil, err
	}
	if target.WorkbookID != workbookID {
		return nil, pipeline.NewNotFoundError("version", versionID)
	}

	if err := s.db.SetCurrentVersion(ctx, workbookID, versionID); err != nil {
		return nil, err
	}

	s.logger.WithWorkbookID(workbookID).WithVersionID(versionID).
		Infof("rolled back to version %s", target.Version)

	return target, nil
}

// nextVersionNumber computes the next version string for a workbook.
// The first version is 1.0.0; later uploads bump the patch component of
// the latest version. A latest version that does not parse as three
// dot-separated integers resets the sequence to 1.0.0.
func (s *Store) nextVersionNumber(ctx context.Context, workbookID string) (string, error) {
	latest, err := s.db.LatestVersion(ctx, workbookID)
	if pipeline.IsNotFound(err) {
		return firstVersion, nil
	}
	if err != nil {
		return "", err
	}

	major, minor, patch, ok := parseSemver(latest.Version)
	if !ok {
		s.logger.WithWorkbookID(workbookID).
			Warnf("latest version %q is not a semantic version, resetting to %s", latest.Version, firstVersion)
		return firstVersion, nil
	}

	return fmt.Sprintf("%d.%d.%d", major, minor, patch+1), nil
}

// parseSemver parses a MAJOR.MINOR.PATCH string.
func parseSemver(v string) (major, minor, patch int, ok bool) {
	parts := strings.Split(v, ".")
	if len(parts) != 3 {
		return 0, 0, 0, false
	}

	nums := make([]int, 3)
	for i, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil || n < 0 {
			return 0, 0, 0, false
		}
		nums[i] = n
	}

	return nums[0], nums[1], nums[2], true
}

// writeBlob persists raw under the blob root, keyed by workbook and
// checksum. An existing blob with the same checksum is content-identical,
// so rewriting it is safe.
func (s *Store) writeBlob(workbookID, checksum string, raw []byte) (string, error) {
	dir := filepath.Join(s.blobRoot, workbookID)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create blob directory: %w", err)
	}

	path := filepath.Join(dir, checksum+".bin")

	if existing, err := os.ReadFile(path); err == nil && bytes.Equal(existing, raw) {
		return path, nil
	}

	if err := os.WriteFile(path, raw, 0644); err != nil {
		return "", fmt.Errorf("failed to write blob: %w", err)
	}

	return path, nil
}
