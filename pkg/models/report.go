package models

// ReportRecord is the per-item input to report generation.
type ReportRecord struct {
	Task                string   `json:"task"`
	EquipmentType       string   `json:"equipment_type"`
	PrimaryReading      *Reading `json:"primary_reading,omitempty"`
	ConditionAssessment string   `json:"condition_assessment"`
	IsAnomaly           bool     `json:"is_anomaly"`
	Summary             string   `json:"summary,omitempty"`
}

// NewReportRecord shapes an analysis result for the report.
func NewReportRecord(task string, r AnalysisResult) ReportRecord {
	return ReportRecord{
		Task:                task,
		EquipmentType:       r.EquipmentType,
		PrimaryReading:      r.PrimaryReading(),
		ConditionAssessment: r.ConditionAssessment,
		IsAnomaly:           r.IsAnomaly,
		Summary:             r.Summary,
	}
}
