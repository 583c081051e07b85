package llm

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/dofliu/InduSpect/pkg/models"
)

const extractionPrompt = `You are a document analysis expert. Read the photographed inspection form and extract every inspection task it lists.

Instructions:
1. Identify each independent check or inspection item on the form, in the order it appears.
2. Ignore titles, dates, signature fields and any other text that is not a task.

Output format:
Return a single minified JSON object without markdown fences, shaped exactly as:
{"tasks": ["first task", "second task"]}`

const analysisBasePrompt = `You are an industrial inspection assistant that extracts structured data from a single photo of an inspection point. Analyse the image accurately and objectively.

Work step by step:
1. Describe the overall scene and main object in one sentence.
2. Identify the main equipment type (for example pump, valve, pressure gauge, motor, switchboard, pipe).
3. Read every gauge or meter in the image, digital or analogue, with its value and unit. If a reading is unreadable or absent, return null for it.
4. Assess the equipment condition, describing any visible wear, rust, corrosion, leaks, physical damage, cracks or loose connections. If the condition is good, say so explicitly.
5. Look for a standard ID-1 card (85.6 mm long) as a scale reference. If one is present and the assessment found a measurable feature such as a crack, estimate its length in mm. Otherwise return null for the dimension fields.
6. Decide whether anything needs attention and set is_anomaly accordingly.
7. Summarise all findings in one sentence.`

const analysisOutputPrompt = `Output format:
Return a single minified JSON object without markdown fences that strictly follows the response schema:
{"equipment_type": string, "readings": [{"label": string, "value": number|null, "unit": string|null}], "condition_assessment": string, "is_anomaly": boolean, "summary": string, "dimensions": {"object_name": string|null, "value": number|null, "unit": string|null}}`

func analysisPrompt(task, hint string) string {
	var b strings.Builder
	b.WriteString(analysisBasePrompt)
	if task != "" {
		fmt.Fprintf(&b, "\n\nInspection task for this photo: %s", task)
	}
	if hint = strings.TrimSpace(hint); hint != "" {
		fmt.Fprintf(&b, "\n\nAdditional instruction from the operator:\n%s\nGive this instruction priority in your analysis.", hint)
	}
	b.WriteString("\n\n")
	b.WriteString(analysisOutputPrompt)
	return b.String()
}

func reportPrompt(records []models.ReportRecord) (string, error) {
	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to encode records: %w", err)
	}
	return fmt.Sprintf(`You are an experienced plant operations manager.

Background:
The JSON array below holds the findings of one facility inspection, one object per inspection point.
%s

Write an executive summary of at most 300 words in Markdown with these sections:
1. **Overview**: how many points were inspected and what share were anomalous.
2. **Key issues**: a bullet per record with "is_anomaly": true, naming the location (task) and the concrete problem (condition_assessment or summary). If there are none, state that no significant anomalies were found.
3. **Recommended actions**: one or two concrete, actionable follow-ups for the key issues.
4. **Conclusion**: one sentence on the overall maintenance state of the facility.

Keep the tone formal, professional and concise. Output only the report.`, string(data)), nil
}

func nullable(s Schema) Schema {
	s.Nullable = true
	return s
}

func tasksSchema() *Schema {
	return &Schema{
		Type: "OBJECT",
		Properties: map[string]Schema{
			"tasks": {Type: "ARRAY", Items: &Schema{Type: "STRING"}},
		},
		Required: []string{"tasks"},
	}
}

func analysisSchema() *Schema {
	return &Schema{
		Type: "OBJECT",
		Properties: map[string]Schema{
			"equipment_type": {Type: "STRING", Description: "equipment type"},
			"readings": {
				Type:        "ARRAY",
				Description: "values read from gauges and meters",
				Items: &Schema{
					Type: "OBJECT",
					Properties: map[string]Schema{
						"label": {Type: "STRING"},
						"value": nullable(Schema{Type: "NUMBER"}),
						"unit":  nullable(Schema{Type: "STRING"}),
					},
					Required: []string{"label", "value", "unit"},
				},
			},
			"condition_assessment": {Type: "STRING"},
			"is_anomaly":           {Type: "BOOLEAN"},
			"summary":              {Type: "STRING"},
			"dimensions": nullable(Schema{
				Type:        "OBJECT",
				Description: "length measured against a reference object",
				Properties: map[string]Schema{
					"object_name": nullable(Schema{Type: "STRING"}),
					"value":       nullable(Schema{Type: "NUMBER"}),
					"unit":        nullable(Schema{Type: "STRING"}),
				},
				Required: []string{"object_name", "value", "unit"},
			}),
		},
		Required: []string{"equipment_type", "readings", "condition_assessment", "is_anomaly", "summary", "dimensions"},
	}
}
