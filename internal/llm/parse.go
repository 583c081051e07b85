package llm

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/dofliu/InduSpect/pkg/models"
)

var (
	ErrEmptyResponse   = errors.New("empty response from model")
	ErrInvalidResponse = errors.New("model response failed validation")
)

// extractJSON returns the JSON object in text, tolerating markdown fences
// and surrounding prose.
func extractJSON(text string) string {
	s := strings.TrimSpace(text)
	if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```json")
		s = strings.TrimPrefix(s, "```")
		if i := strings.LastIndex(s, "```"); i >= 0 {
			s = s[:i]
		}
		s = strings.TrimSpace(s)
	}
	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start >= 0 && end > start {
		return s[start : end+1]
	}
	return s
}

type rawAnalysis struct {
	EquipmentType       *string           `json:"equipment_type"`
	Readings            []models.Reading  `json:"readings"`
	ConditionAssessment *string           `json:"condition_assessment"`
	IsAnomaly           *bool             `json:"is_anomaly"`
	Summary             *string           `json:"summary"`
	Dimensions          *models.Dimension `json:"dimensions"`
}

func parseAnalysis(text string) (*models.AnalysisResult, error) {
	var raw rawAnalysis
	if err := json.Unmarshal([]byte(extractJSON(text)), &raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidResponse, err)
	}

	var missing []string
	if raw.EquipmentType == nil {
		missing = append(missing, "equipment_type")
	}
	if raw.ConditionAssessment == nil {
		missing = append(missing, "condition_assessment")
	}
	if raw.IsAnomaly == nil {
		missing = append(missing, "is_anomaly")
	}
	if raw.Summary == nil {
		missing = append(missing, "summary")
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("%w: missing %s", ErrInvalidResponse, strings.Join(missing, ", "))
	}

	dims := raw.Dimensions
	if dims != nil && dims.ObjectName == nil && dims.Value == nil && dims.Unit == nil {
		dims = nil
	}
	readings := raw.Readings
	if readings == nil {
		readings = []models.Reading{}
	}

	return &models.AnalysisResult{
		EquipmentType:       *raw.EquipmentType,
		Readings:            readings,
		ConditionAssessment: *raw.ConditionAssessment,
		IsAnomaly:           *raw.IsAnomaly,
		Summary:             *raw.Summary,
		Dimensions:          dims,
	}, nil
}

func parseTasks(text string) ([]string, error) {
	var resp struct {
		Tasks []string `json:"tasks"`
	}
	if err := json.Unmarshal([]byte(extractJSON(text)), &resp); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidResponse, err)
	}
	tasks := make([]string, 0, len(resp.Tasks))
	for _, t := range resp.Tasks {
		if t = strings.TrimSpace(t); t != "" {
			tasks = append(tasks, t)
		}
	}
	return tasks, nil
}
