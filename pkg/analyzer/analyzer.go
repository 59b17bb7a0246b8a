// Package analyzer turns a loaded workbook into a typed analysis: one
// configuration item per data row, rule-based recommendations, and
// complexity/risk scoring for the implementation planner.
package analyzer

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/confpilot/confpilot/pkg/advisor"
	"github.com/confpilot/confpilot/pkg/pipeline"
	"github.com/confpilot/confpilot/pkg/telemetry"
	"github.com/confpilot/confpilot/pkg/workbook"
)

// rule binds a set of header terms to a configuration type. Rules are
// evaluated in declaration order and the first match wins. The order is
// load-bearing: headers such as "job_position" match more than one rule,
// and changing the order changes the classification.
type rule struct {
	terms      []string
	configType pipeline.ConfigType
}

var classificationRules = []rule{
	{terms: []string{"user", "employee"}, configType: pipeline.ConfigTypeUser},
	{terms: []string{"position"}, configType: pipeline.ConfigTypePosition},
	{terms: []string{"job"}, configType: pipeline.ConfigTypeJob},
	{terms: []string{"compensation", "salary"}, configType: pipeline.ConfigTypeCompensation},
}

// highRiskTypes lists the configuration types whose presence anywhere in
// the item set raises the overall risk to high.
var highRiskTypes = map[pipeline.ConfigType]bool{
	pipeline.ConfigTypeCompensation: true,
	pipeline.ConfigTypePermission:   true,
	pipeline.ConfigTypeWorkflow:     true,
}

const (
	complexityLowThreshold  = 10
	complexityHighThreshold = 50
)

// Analyzer produces an AnalysisResult from a tabular file.
type Analyzer struct {
	advisor advisor.Advisor
	logger  *telemetry.Logger
	metrics *telemetry.Metrics
}

// New creates an Analyzer. A nil advisor disables the supplementary
// recommendation step entirely.
func New(adv advisor.Advisor, logger *telemetry.Logger, metrics *telemetry.Metrics) *Analyzer {
	if adv == nil {
		adv = advisor.Noop{}
	}
	return &Analyzer{
		advisor: adv,
		logger:  logger.NewComponentLogger("analyzer"),
		metrics: metrics,
	}
}

// AnalyzeFile loads the file at path and analyzes it. Unsupported file
// kinds surface the loader's unsupported-format error unchanged.
func (a *Analyzer) AnalyzeFile(ctx context.Context, path string) (*pipeline.AnalysisResult, error) {
	wb, err := workbook.Load(path)
	if err != nil {
		return nil, err
	}
	return a.Analyze(ctx, wb), nil
}

// Analyze classifies every sheet, emits one configuration item per data
// row, and scores the result. It never fails: the advisor step is
// best-effort and everything else is pure computation.
func (a *Analyzer) Analyze(ctx context.Context, wb *workbook.Workbook) *pipeline.AnalysisResult {
	start := time.Now()

	result := &pipeline.AnalysisResult{}
	for _, sheet := range wb.Sheets {
		configType := classifySheet(sheet.Columns)
		result.Recommendations = append(result.Recommendations, ruleRecommendations(configType, sheet.Name)...)

		for i, row := range sheet.Rows {
			item := pipeline.ConfigurationItem{
				ID:    fmt.Sprintf("%s_%d", sheet.Name, i),
				Type:  configType,
				Sheet: sheet.Name,
				Row:   i + 1,
				Data:  rowData(sheet.Columns, row),
			}
			result.Configurations = append(result.Configurations, item)
			a.metrics.RecordItemClassified(string(configType))
		}

		a.logger.WithField("sheet", sheet.Name).
			WithField("type", string(configType)).
			WithField("rows", len(sheet.Rows)).
			Debug("sheet classified")
	}

	result.EstimatedChanges = len(result.Configurations)
	result.Complexity = assessComplexity(len(result.Configurations))
	result.RiskLevel = assessRisk(result.Configurations)

	a.appendAdvisorRecommendations(ctx, result)

	a.metrics.RecordAnalysis(string(result.Complexity), string(result.RiskLevel), time.Since(start))
	a.logger.WithField("items", result.EstimatedChanges).
		WithField("complexity", string(result.Complexity)).
		WithField("risk_level", string(result.RiskLevel)).
		Info("analysis complete")

	return result
}

// classifySheet resolves the configuration type from the sheet's headers.
// Matching is a case-insensitive substring test over every header.
func classifySheet(columns []string) pipeline.ConfigType {
	lowered := make([]string, len(columns))
	for i, col := range columns {
		lowered[i] = strings.ToLower(col)
	}

	for _, r := range classificationRules {
		for _, col := range lowered {
			for _, term := range r.terms {
				if strings.Contains(col, term) {
					return r.configType
				}
			}
		}
	}
	return pipeline.ConfigTypeGeneric
}

// ruleRecommendations emits the deterministic, type-triggered review
// hints. One per classified sheet, independent of the advisor.
func ruleRecommendations(configType pipeline.ConfigType, sheet string) []pipeline.Recommendation {
	switch configType {
	case pipeline.ConfigTypeUser:
		return []pipeline.Recommendation{{
			Type:     "user_management",
			Message:  fmt.Sprintf("Sheet %q contains user/employee configuration. Ensure proper role assignments.", sheet),
			Priority: pipeline.PriorityHigh,
		}}
	case pipeline.ConfigTypeCompensation:
		return []pipeline.Recommendation{{
			Type:     "compensation",
			Message:  fmt.Sprintf("Sheet %q contains compensation changes. Review approval workflows.", sheet),
			Priority: pipeline.PriorityHigh,
		}}
	default:
		return nil
	}
}

func rowData(columns []string, row []string) []pipeline.Column {
	data := make([]pipeline.Column, len(columns))
	for i, col := range columns {
		value := ""
		if i < len(row) {
			value = row[i]
		}
		data[i] = pipeline.Column{Name: col, Value: value}
	}
	return data
}

func assessComplexity(count int) pipeline.Complexity {
	switch {
	case count < complexityLowThreshold:
		return pipeline.ComplexityLow
	case count < complexityHighThreshold:
		return pipeline.ComplexityMedium
	default:
		return pipeline.ComplexityHigh
	}
}

// assessRisk returns high when any item carries a high-risk type and
// medium otherwise. There is no low outcome: absence of signal is not
// evidence of safety.
func assessRisk(items []pipeline.ConfigurationItem) pipeline.RiskLevel {
	for _, item := range items {
		if highRiskTypes[item.Type] {
			return pipeline.RiskHigh
		}
	}
	return pipeline.RiskMedium
}

// appendAdvisorRecommendations asks the external advisor for extra hints.
// Any failure is logged, counted, and otherwise ignored so the advisor
// can never affect the analysis itself.
func (a *Analyzer) appendAdvisorRecommendations(ctx context.Context, result *pipeline.AnalysisResult) {
	summary := advisor.Summary{
		TotalItems: len(result.Configurations),
		Types:      result.Types(),
	}

	extras, err := a.advisor.Suggest(ctx, summary)
	if err != nil {
		a.metrics.RecordAdvisorFailure()
		a.logger.WithError(err).Warn("advisor unavailable, continuing without supplementary recommendations")
		return
	}

	for _, message := range extras {
		result.Recommendations = append(result.Recommendations, pipeline.Recommendation{
			Type:     "advisor",
			Message:  message,
			Priority: pipeline.PriorityMedium,
			Source:   "advisor",
		})
	}
}
