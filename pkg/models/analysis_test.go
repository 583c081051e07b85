package models

import (
	"encoding/json"
	"testing"

	"github.com/dofliu/InduSpect/pkg/geometry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAnalysisResult_CloneIsDeep(t *testing.T) {
	orig := AnalysisResult{
		EquipmentType: "pump",
		Readings:      []Reading{{Label: "pressure", Value: Ptr(1.2), Unit: Ptr("bar")}},
		Dimensions:    &Dimension{ObjectName: Ptr("crack"), Value: Ptr(3.0), Unit: Ptr("mm")},
		MeasurementLines: &MeasurementLines{
			Ref: &geometry.Line{P2: geometry.Point{X: 1}},
		},
	}

	c := orig.Clone()
	*c.Readings[0].Value = 9
	*c.Dimensions.Unit = "cm"
	c.MeasurementLines.Ref.P2.X = 42

	assert.Equal(t, 1.2, *orig.Readings[0].Value)
	assert.Equal(t, "mm", *orig.Dimensions.Unit)
	assert.Equal(t, 1.0, orig.MeasurementLines.Ref.P2.X)
}

func TestAnalysisResult_JSONNullFields(t *testing.T) {
	raw := `{"equipment_type":"valve","readings":[{"label":"temp","value":null,"unit":null}],
		"condition_assessment":"good","is_anomaly":false,"summary":"ok","dimensions":null}`

	var r AnalysisResult
	require.NoError(t, json.Unmarshal([]byte(raw), &r))

	assert.Equal(t, "valve", r.EquipmentType)
	require.Len(t, r.Readings, 1)
	assert.Nil(t, r.Readings[0].Value)
	assert.Nil(t, r.Dimensions)
	assert.Nil(t, r.MeasurementLines)
}

func TestNewReportRecord(t *testing.T) {
	r := AnalysisResult{
		EquipmentType:       "motor",
		Readings:            []Reading{{Label: "rpm", Value: Ptr(1450.0)}, {Label: "temp", Value: Ptr(60.0)}},
		ConditionAssessment: "rust on housing",
		IsAnomaly:           true,
		Summary:             "needs cleaning",
	}

	rec := NewReportRecord("Motor M-3", r)

	assert.Equal(t, "Motor M-3", rec.Task)
	require.NotNil(t, rec.PrimaryReading)
	assert.Equal(t, "rpm", rec.PrimaryReading.Label)
	assert.True(t, rec.IsAnomaly)

	assert.Nil(t, NewReportRecord("x", AnalysisResult{}).PrimaryReading)
}
