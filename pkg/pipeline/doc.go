// Package pipeline defines the shared domain records and the classified
// error taxonomy for the configuration implementation pipeline.
//
// The pipeline moves a configuration workbook through three stages:
//
//	Upload    -> versions.Store assigns a content-addressed, semver-numbered
//	             snapshot (WorkbookVersion) and persists the raw bytes.
//	Analyze   -> analyzer.Analyzer turns the stored snapshot into typed
//	             ConfigurationItems with complexity and risk scoring
//	             (AnalysisResult).
//	Implement -> executor.Executor dispatches each item to the remote HCM
//	             platform and aggregates the outcome (ImplementationRecord).
//
// All records in this package are plain data. ConfigurationItem and
// AnalysisResult are transient (rebuilt on every analysis); WorkbookVersion
// and ImplementationRecord are persisted through pkg/stores.
package pipeline
