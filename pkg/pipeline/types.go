package pipeline

import "time"

// ConfigType classifies the kind of configuration a sheet carries.
type ConfigType string

const (
	ConfigTypeUser         ConfigType = "user"
	ConfigTypePosition     ConfigType = "position"
	ConfigTypeJob          ConfigType = "job"
	ConfigTypeDepartment   ConfigType = "department"
	ConfigTypePayGrade     ConfigType = "pay_grade"
	ConfigTypeCompensation ConfigType = "compensation"
	ConfigTypePermission   ConfigType = "permission"
	ConfigTypeWorkflow     ConfigType = "workflow"
	ConfigTypeFormTemplate ConfigType = "form_template"
	ConfigTypeRatingScale  ConfigType = "rating_scale"
	ConfigTypeGeneric      ConfigType = "generic"
)

// Complexity buckets an analysis by item count.
type Complexity string

const (
	ComplexityLow    Complexity = "low"
	ComplexityMedium Complexity = "medium"
	ComplexityHigh   Complexity = "high"
)

// RiskLevel rates an analysis by the presence of high-risk item types.
// There is no low level: absence of signal defaults to medium.
type RiskLevel string

const (
	RiskMedium RiskLevel = "medium"
	RiskHigh   RiskLevel = "high"
)

// ImplementationStatus is the overall outcome of one execution attempt.
type ImplementationStatus string

const (
	StatusSuccess ImplementationStatus = "success"
	StatusPartial ImplementationStatus = "partial"
	StatusFailed  ImplementationStatus = "failed"
)

// Priority ranks a recommendation.
type Priority string

const (
	PriorityHigh   Priority = "high"
	PriorityMedium Priority = "medium"
	PriorityLow    Priority = "low"
)

// Workbook is the parent record for a version history.
type Workbook struct {
	ID               string    `json:"id"`
	Name             string    `json:"name"`
	Description      string    `json:"description,omitempty"`
	CurrentVersionID *string   `json:"current_version_id,omitempty"`
	CreatedBy        string    `json:"created_by"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// WorkbookVersion is one immutable snapshot of a workbook.
// Checksum is the hex SHA-256 of the raw uploaded bytes and is unique
// across all versions of all workbooks.
type WorkbookVersion struct {
	ID          string    `json:"id"`
	WorkbookID  string    `json:"workbook_id"`
	Version     string    `json:"version_number"`
	FileName    string    `json:"file_name"`
	FileSize    int64     `json:"file_size"`
	Checksum    string    `json:"checksum"`
	Summary     string    `json:"changes_summary,omitempty"`
	StoragePath string    `json:"storage_path"`
	CreatedBy   string    `json:"created_by"`
	CreatedAt   time.Time `json:"created_at"`
}

// Column is one ordered column/value pair of a source row.
type Column struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// ConfigurationItem is one discrete, independently applicable change
// derived from a single source row. Items are transient: produced fresh on
// each analysis, never mutated, consumed once by the executor.
type ConfigurationItem struct {
	// ID is "<sheet name>_<zero-based row index>".
	ID    string     `json:"id"`
	Type  ConfigType `json:"type"`
	Sheet string     `json:"sheet"`
	// Row is the 1-based data row number within the sheet.
	Row  int      `json:"row"`
	Data []Column `json:"data"`
}

// DataMap flattens the ordered row data into a map for JSON payloads.
func (c ConfigurationItem) DataMap() map[string]string {
	m := make(map[string]string, len(c.Data))
	for _, col := range c.Data {
		m[col.Name] = col.Value
	}
	return m
}

// Recommendation is a review hint attached to an analysis.
type Recommendation struct {
	Type     string   `json:"type"`
	Message  string   `json:"message"`
	Priority Priority `json:"priority"`
	Source   string   `json:"source,omitempty"`
}

// AnalysisResult is the outcome of analyzing one stored version.
type AnalysisResult struct {
	Configurations   []ConfigurationItem `json:"configurations"`
	Recommendations  []Recommendation    `json:"recommendations"`
	EstimatedChanges int                 `json:"estimated_changes"`
	Complexity       Complexity          `json:"complexity"`
	RiskLevel        RiskLevel           `json:"risk_level"`
}

// Types returns the distinct configuration types present, in first-seen order.
func (a *AnalysisResult) Types() []ConfigType {
	seen := make(map[ConfigType]bool)
	var types []ConfigType
	for _, item := range a.Configurations {
		if !seen[item.Type] {
			seen[item.Type] = true
			types = append(types, item.Type)
		}
	}
	return types
}

// ItemError records a single item's failure during execution.
type ItemError struct {
	ItemID  string `json:"config_item"`
	Message string `json:"error"`
}

// ImplementationRecord is the persisted outcome of one execution attempt.
// Never mutated after creation.
type ImplementationRecord struct {
	ID             string               `json:"id"`
	VersionID      string               `json:"workbook_version_id"`
	ConnectionID   string               `json:"connection_id"`
	Status         ImplementationStatus `json:"status"`
	ChangesApplied int                  `json:"changes_count"`
	Errors         []ItemError          `json:"errors"`
	// Result is a free-form JSON payload describing the run.
	Result    string    `json:"result,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Connection binds the pipeline to one remote HCM tenant. The pipeline
// treats it as an opaque capability handle presented at execution time;
// Secret is never persisted or logged by this module.
type Connection struct {
	ID          string `json:"id"`
	CompanyID   string `json:"company_id" validate:"required"`
	Username    string `json:"username" validate:"required"`
	Application string `json:"application,omitempty"`
	Secret      string `json:"-" validate:"required"`
}
