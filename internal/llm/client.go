package llm

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/dofliu/InduSpect/pkg/models"
)

const defaultBaseURL = "https://generativelanguage.googleapis.com/v1beta"

// Client calls the Gemini generateContent REST endpoint.
type Client struct {
	apiKey      string
	baseURL     string
	model       string
	reportModel string
	httpClient  *http.Client
}

// NewClient creates a Gemini client. model is used for photo analysis and
// form extraction, reportModel for report generation.
func NewClient(apiKey, model, reportModel string, timeout time.Duration) (*Client, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("GOOGLE_API_KEY environment variable required")
	}
	if model == "" {
		model = "gemini-2.5-flash"
	}
	if reportModel == "" {
		reportModel = "gemini-2.5-pro"
	}
	return &Client{
		apiKey:      apiKey,
		baseURL:     defaultBaseURL,
		model:       model,
		reportModel: reportModel,
		httpClient:  &http.Client{Timeout: timeout},
	}, nil
}

func imagePart(img models.Image) Part {
	return Part{InlineData: &InlineData{
		MIMEType: img.MIMEType,
		Data:     base64.StdEncoding.EncodeToString(img.Data),
	}}
}

func jsonConfig(schema *Schema) *GenerationConfig {
	return &GenerationConfig{
		Temperature:      0.1,
		MaxOutputTokens:  8192,
		ResponseMIMEType: "application/json",
		ResponseSchema:   schema,
	}
}

// Analyze sends one photo with its task description.
func (c *Client) Analyze(ctx context.Context, img models.Image, task, hint string) (*models.AnalysisResult, error) {
	contents := []Content{{
		Role:  "user",
		Parts: []Part{imagePart(img), {Text: analysisPrompt(task, hint)}},
	}}
	text, err := c.generateText(ctx, c.model, contents, jsonConfig(analysisSchema()))
	if err != nil {
		return nil, err
	}
	return parseAnalysis(text)
}

// ExtractTasks reads the task list off a photographed form.
func (c *Client) ExtractTasks(ctx context.Context, form models.Image) ([]string, error) {
	contents := []Content{{
		Role:  "user",
		Parts: []Part{imagePart(form), {Text: extractionPrompt}},
	}}
	text, err := c.generateText(ctx, c.model, contents, jsonConfig(tasksSchema()))
	if err != nil {
		return nil, err
	}
	return parseTasks(text)
}

// GenerateReport writes the summary report for confirmed records.
func (c *Client) GenerateReport(ctx context.Context, records []models.ReportRecord) (string, error) {
	prompt, err := reportPrompt(records)
	if err != nil {
		return "", err
	}
	contents := []Content{{Role: "user", Parts: []Part{{Text: prompt}}}}
	text, err := c.generateText(ctx, c.reportModel, contents, &GenerationConfig{
		Temperature:     0.3,
		MaxOutputTokens: 8192,
	})
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(text), nil
}

func (c *Client) generateText(ctx context.Context, model string, contents []Content, cfg *GenerationConfig) (string, error) {
	resp, err := c.generate(ctx, model, contents, cfg)
	if err != nil {
		return "", err
	}
	var cand *Candidate
	if len(resp.Candidates) > 0 {
		cand = &resp.Candidates[0]
	}
	if isEmptyResponse(cand) {
		return "", fmt.Errorf("%w (%s)", ErrEmptyResponse, describeEmptyResponse(cand))
	}
	var texts []string
	for _, p := range cand.Content.Parts {
		if p.Text != "" {
			texts = append(texts, p.Text)
		}
	}
	return strings.Join(texts, ""), nil
}

func (c *Client) generate(ctx context.Context, model string, contents []Content, cfg *GenerationConfig) (*GenerateResponse, error) {
	req := GenerateRequest{
		Contents:         contents,
		GenerationConfig: cfg,
	}

	jsonBody, err := json.Marshal(req)
	if err != nil {
		return nil, err
	}

	url := fmt.Sprintf("%s/models/%s:generateContent?key=%s", c.baseURL, model, c.apiKey)

	httpReq, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewReader(jsonBody))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")

	httpClient := c.httpClient
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	resp, err := httpClient.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("gemini API error: %s - %s", resp.Status, string(body))
	}

	var result GenerateResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}

	return &result, nil
}

func isEmptyResponse(c *Candidate) bool {
	if c == nil {
		return true
	}
	for _, p := range c.Content.Parts {
		if p.Text != "" {
			return false
		}
	}
	return true
}

func describeEmptyResponse(c *Candidate) string {
	if c == nil {
		return "no candidate"
	}
	parts := []string{"finishReason=" + c.FinishReason}
	for _, r := range c.SafetyRatings {
		if r.Blocked {
			parts = append(parts, fmt.Sprintf("%s=%s (blocked)", r.Category, r.Probability))
		}
	}
	return strings.Join(parts, ", ")
}
