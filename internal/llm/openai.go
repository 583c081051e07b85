package llm

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/dofliu/InduSpect/pkg/models"
	"github.com/sashabaranov/go-openai"
)

const openAIMaxTokens = 4096

// OpenAIClient implements the capabilities with OpenAI vision models.
type OpenAIClient struct {
	client      *openai.Client
	model       string
	reportModel string
}

// NewOpenAIClient creates an OpenAI client.
func NewOpenAIClient(apiKey, model, reportModel string, timeout time.Duration) (*OpenAIClient, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("OPENAI_API_KEY environment variable required")
	}
	cfg := openai.DefaultConfig(apiKey)
	cfg.HTTPClient = &http.Client{Timeout: timeout}
	return newOpenAIClient(cfg, model, reportModel), nil
}

func newOpenAIClient(cfg openai.ClientConfig, model, reportModel string) *OpenAIClient {
	if model == "" {
		model = "gpt-4o"
	}
	if reportModel == "" {
		reportModel = model
	}
	return &OpenAIClient{client: openai.NewClientWithConfig(cfg), model: model, reportModel: reportModel}
}

func dataURL(img models.Image) string {
	return fmt.Sprintf("data:%s;base64,%s", img.MIMEType, base64.StdEncoding.EncodeToString(img.Data))
}

func visionMessage(img models.Image, prompt string) openai.ChatCompletionMessage {
	return openai.ChatCompletionMessage{
		Role: openai.ChatMessageRoleUser,
		MultiContent: []openai.ChatMessagePart{
			{
				Type:     openai.ChatMessagePartTypeImageURL,
				ImageURL: &openai.ChatMessageImageURL{URL: dataURL(img), Detail: openai.ImageURLDetailHigh},
			},
			{Type: openai.ChatMessagePartTypeText, Text: prompt},
		},
	}
}

// reasoning models take MaxCompletionTokens instead of MaxTokens
func isReasoningModel(model string) bool {
	for _, p := range []string{"o1", "o3", "o4", "gpt-5"} {
		if strings.HasPrefix(model, p) {
			return true
		}
	}
	return false
}

func (c *OpenAIClient) complete(ctx context.Context, model string, jsonMode bool, msgs ...openai.ChatCompletionMessage) (string, error) {
	req := openai.ChatCompletionRequest{
		Model:    model,
		Messages: msgs,
	}
	if jsonMode {
		req.ResponseFormat = &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		}
	}
	if isReasoningModel(model) {
		req.MaxCompletionTokens = openAIMaxTokens
	} else {
		req.MaxTokens = openAIMaxTokens
		req.Temperature = 0.1
	}

	resp, err := c.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return "", fmt.Errorf("failed to create chat completion: %w", err)
	}
	if len(resp.Choices) == 0 || strings.TrimSpace(resp.Choices[0].Message.Content) == "" {
		return "", ErrEmptyResponse
	}
	return resp.Choices[0].Message.Content, nil
}

// Analyze sends one photo with its task description.
func (c *OpenAIClient) Analyze(ctx context.Context, img models.Image, task, hint string) (*models.AnalysisResult, error) {
	text, err := c.complete(ctx, c.model, true, visionMessage(img, analysisPrompt(task, hint)))
	if err != nil {
		return nil, err
	}
	return parseAnalysis(text)
}

// ExtractTasks reads the task list off a photographed form.
func (c *OpenAIClient) ExtractTasks(ctx context.Context, form models.Image) ([]string, error) {
	text, err := c.complete(ctx, c.model, true, visionMessage(form, extractionPrompt))
	if err != nil {
		return nil, err
	}
	return parseTasks(text)
}

// GenerateReport writes the summary report for confirmed records.
func (c *OpenAIClient) GenerateReport(ctx context.Context, records []models.ReportRecord) (string, error) {
	prompt, err := reportPrompt(records)
	if err != nil {
		return "", err
	}
	text, err := c.complete(ctx, c.reportModel, false, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleUser,
		Content: prompt,
	})
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(text), nil
}
