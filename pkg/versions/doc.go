// Package versions implements content-addressed version control for
// configuration workbooks.
//
// Every upload is hashed with SHA-256 over the exact bytes. The checksum is
// unique system-wide: uploading identical bytes twice never creates two
// versions, regardless of filename or owning workbook. Version numbers are
// semantic version strings assigned per workbook, starting at 1.0.0 and
// bumping the patch component on each upload. History is append-only;
// rollback repoints the workbook's current-version marker instead of
// rewriting history.
//
// Raw bytes live in a blob directory keyed by workbook and checksum;
// metadata lives in pkg/stores. The blob is written first and unlinked if
// the metadata commit fails, so a failed upload leaves no orphaned state
// behind.
package versions
