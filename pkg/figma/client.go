// Package figma fetches design tokens from the Figma REST API for the
// design synthesis stage. The pipeline treats it as one more fallible
// provider: any failure here means the run proceeds without a design system.
package figma

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/matura-ai/matura-engine/pkg/models"
)

const apiBase = "https://api.figma.com/v1"

// DesignProvider is the contract the orchestrator consumes.
type DesignProvider interface {
	FetchDesignTokens(ctx context.Context) (*models.DesignConfig, error)
}

// Client talks to the Figma REST API.
type Client struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	fileKey    string
	logger     *zap.Logger
}

// Config holds Figma client settings.
type Config struct {
	APIKey  string
	FileKey string
	Timeout time.Duration
	// BaseURL overrides the Figma API endpoint, for tests.
	BaseURL string
}

// NewClient creates a Figma API client.
func NewClient(cfg *Config, logger *zap.Logger) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("Figma API key is required")
	}
	if cfg.FileKey == "" {
		return nil, fmt.Errorf("Figma file key is required")
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = apiBase
	}

	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    baseURL,
		apiKey:     cfg.APIKey,
		fileKey:    cfg.FileKey,
		logger:     logger.Named("figma"),
	}, nil
}

// styleResponse is the subset of the Figma styles payload we consume.
type styleResponse struct {
	Meta struct {
		Styles []struct {
			Name      string `json:"name"`
			StyleType string `json:"style_type"`
		} `json:"styles"`
	} `json:"meta"`
}

// FetchDesignTokens pulls the file's published styles and folds them into a
// DesignConfig. Only fill styles become color tokens; everything else is
// carried as named tokens for the prompt context.
func (c *Client) FetchDesignTokens(ctx context.Context) (*models.DesignConfig, error) {
	url := fmt.Sprintf("%s/files/%s/styles", c.baseURL, c.fileKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("build figma request: %w", err)
	}
	req.Header.Set("X-Figma-Token", c.apiKey)

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Error("figma request failed",
			zap.Duration("elapsed", time.Since(start)),
			zap.Error(err))
		return nil, fmt.Errorf("figma request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("figma returned HTTP %d", resp.StatusCode)
	}

	var payload styleResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("decode figma styles: %w", err)
	}

	design := &models.DesignConfig{
		Source: "figma",
		Tokens: make(map[string]string),
	}
	for _, s := range payload.Meta.Styles {
		switch s.StyleType {
		case "FILL":
			if design.PrimaryColor == "" {
				design.PrimaryColor = s.Name
			} else if design.AccentColor == "" {
				design.AccentColor = s.Name
			}
		default:
			design.Tokens[s.StyleType+"/"+s.Name] = s.Name
		}
	}

	c.logger.Info("figma design tokens fetched",
		zap.Int("styles", len(payload.Meta.Styles)),
		zap.Duration("elapsed", time.Since(start)))
	return design, nil
}

// MockDesignProvider is a configurable mock for tests.
type MockDesignProvider struct {
	// FetchFunc is called when FetchDesignTokens is invoked.
	// If nil, returns a minimal design config.
	FetchFunc func(ctx context.Context) (*models.DesignConfig, error)

	// FetchCalls counts invocations.
	FetchCalls int
}

// FetchDesignTokens implements DesignProvider.
func (m *MockDesignProvider) FetchDesignTokens(ctx context.Context) (*models.DesignConfig, error) {
	m.FetchCalls++
	if m.FetchFunc != nil {
		return m.FetchFunc(ctx)
	}
	return &models.DesignConfig{Theme: "light", Source: "mock"}, nil
}

// Ensure implementations satisfy DesignProvider at compile time.
var (
	_ DesignProvider = (*Client)(nil)
	_ DesignProvider = (*MockDesignProvider)(nil)
)
