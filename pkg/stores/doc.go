// Package stores provides SQLite-backed persistence for workbook metadata,
// version records and implementation audit logs.
//
// The store uses modernc.org/sqlite (pure Go driver) with WAL mode and
// embedded golang-migrate migrations. Version records enforce system-wide
// checksum uniqueness through a unique index, which is the mutual-exclusion
// boundary for concurrent uploads of identical content: the check-then-insert
// in CreateVersion runs inside an immediate transaction and a racing insert
// still fails on the index.
package stores
