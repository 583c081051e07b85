// Package llm implements the photo analysis, form extraction and report
// generation capabilities on top of hosted multimodal models.
package llm

import (
	"context"
	"fmt"
	"time"

	"github.com/dofliu/InduSpect/pkg/models"
)

// Provider is the LLM provider type
type Provider string

const (
	ProviderGoogle Provider = "google"
	ProviderOpenAI Provider = "openai"
)

// Service bundles the three capabilities the workflow depends on.
type Service interface {
	Analyze(ctx context.Context, img models.Image, task, hint string) (*models.AnalysisResult, error)
	ExtractTasks(ctx context.Context, form models.Image) ([]string, error)
	GenerateReport(ctx context.Context, records []models.ReportRecord) (string, error)
}

// Options selects and configures a provider.
type Options struct {
	Provider    Provider
	APIKey      string
	Model       string
	ReportModel string
	Timeout     time.Duration
}

// New creates the Service for the configured provider.
func New(opts Options) (Service, error) {
	switch opts.Provider {
	case ProviderGoogle, "":
		c, err := NewClient(opts.APIKey, opts.Model, opts.ReportModel, opts.Timeout)
		if err != nil {
			return nil, err
		}
		return c, nil
	case ProviderOpenAI:
		c, err := NewOpenAIClient(opts.APIKey, opts.Model, opts.ReportModel, opts.Timeout)
		if err != nil {
			return nil, err
		}
		return c, nil
	default:
		return nil, fmt.Errorf("unsupported provider: %s", opts.Provider)
	}
}
