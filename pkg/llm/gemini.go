package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/generative-ai-go/genai"
	"go.uber.org/zap"
	"google.golang.org/api/option"
)

// GeminiProvider implements Provider using the Google Gemini API.
// Structured calls request a JSON response MIME type and embed the function
// schema in the prompt, since Gemini's function calling does not force a
// single named call the way OpenAI tools do.
type GeminiProvider struct {
	client  *genai.Client
	model   string
	timeout time.Duration
	meter   *UsageMeter
	logger  *zap.Logger
}

// NewGeminiProvider creates a new Gemini-backed provider.
func NewGeminiProvider(ctx context.Context, cfg *Config, meter *UsageMeter, logger *zap.Logger) (*GeminiProvider, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("Gemini API key is required")
	}
	if cfg.Model == "" {
		return nil, fmt.Errorf("model is required")
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(cfg.APIKey))
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}

	return &GeminiProvider{
		client:  client,
		model:   cfg.Model,
		timeout: cfg.Timeout,
		meter:   meter,
		logger:  logger.Named("gemini"),
	}, nil
}

// Name implements Provider.
func (p *GeminiProvider) Name() string {
	return ProviderGemini
}

// Close releases the underlying gRPC connection.
func (p *GeminiProvider) Close() error {
	return p.client.Close()
}

// ExecuteStructured implements Provider.
func (p *GeminiProvider) ExecuteStructured(ctx context.Context, call *StructuredCall) (*Result, error) {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	// A fresh GenerativeModel per call keeps generation settings off shared state.
	model := p.client.GenerativeModel(p.model)
	model.SetTemperature(float32(call.Temperature))
	if call.MaxTokens > 0 {
		model.SetMaxOutputTokens(int32(call.MaxTokens))
	}
	model.ResponseMIMEType = "application/json"
	if call.System != "" {
		model.SystemInstruction = &genai.Content{Parts: []genai.Part{genai.Text(call.System)}}
	}

	schemaJSON, err := json.Marshal(call.Parameters)
	if err != nil {
		return nil, NewError(ErrorTypeFormat, ProviderGemini, "invalid function parameters", false, err)
	}

	var prompt strings.Builder
	prompt.WriteString(call.Prompt)
	prompt.WriteString("\n\nRespond with a single JSON object for the function \"")
	prompt.WriteString(call.Name)
	prompt.WriteString("\" (")
	prompt.WriteString(call.Description)
	prompt.WriteString(") conforming to this JSON Schema:\n")
	prompt.Write(schemaJSON)

	start := time.Now()

	resp, err := model.GenerateContent(ctx, genai.Text(prompt.String()))
	if err != nil {
		p.meter.RecordFailure(ProviderGemini)
		p.logger.Error("structured call failed",
			zap.String("function", call.Name),
			zap.Duration("elapsed", time.Since(start)),
			zap.Error(err))
		return nil, ClassifyError(ProviderGemini, err)
	}

	text, quality, err := p.collectText(resp)
	if err != nil {
		p.meter.RecordFailure(ProviderGemini)
		return nil, err
	}

	jsonStr, err := ExtractJSON(text)
	if err != nil {
		p.meter.RecordFailure(ProviderGemini)
		return nil, NewError(ErrorTypeFormat, ProviderGemini, "non-conforming JSON payload", false, err)
	}

	result := p.buildResult(resp, quality)
	result.Data = []byte(jsonStr)
	p.meter.Record(ProviderGemini, result)

	p.logger.Info("structured call completed",
		zap.String("function", call.Name),
		zap.Int("total_tokens", result.TotalTokens),
		zap.Duration("elapsed", time.Since(start)))

	return result, nil
}

// GenerateText implements Provider.
func (p *GeminiProvider) GenerateText(ctx context.Context, req *TextRequest) (*Result, error) {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	model := p.client.GenerativeModel(p.model)
	model.SetTemperature(float32(req.Temperature))
	if req.MaxTokens > 0 {
		model.SetMaxOutputTokens(int32(req.MaxTokens))
	}
	if req.System != "" {
		model.SystemInstruction = &genai.Content{Parts: []genai.Part{genai.Text(req.System)}}
	}

	start := time.Now()

	resp, err := model.GenerateContent(ctx, genai.Text(req.Prompt))
	if err != nil {
		p.meter.RecordFailure(ProviderGemini)
		p.logger.Error("text call failed",
			zap.Duration("elapsed", time.Since(start)),
			zap.Error(err))
		return nil, ClassifyError(ProviderGemini, err)
	}

	text, quality, err := p.collectText(resp)
	if err != nil {
		p.meter.RecordFailure(ProviderGemini)
		return nil, err
	}

	result := p.buildResult(resp, quality)
	result.Text = text
	p.meter.Record(ProviderGemini, result)

	p.logger.Info("text call completed",
		zap.Int("total_tokens", result.TotalTokens),
		zap.Duration("elapsed", time.Since(start)))

	return result, nil
}

// collectText concatenates the text parts of the first candidate.
func (p *GeminiProvider) collectText(resp *genai.GenerateContentResponse) (string, float64, error) {
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", 0, NewError(ErrorTypeFormat, ProviderGemini, "no candidates in response", false, nil)
	}

	cand := resp.Candidates[0]
	var sb strings.Builder
	for _, part := range cand.Content.Parts {
		if t, ok := part.(genai.Text); ok {
			sb.WriteString(string(t))
		}
	}
	if sb.Len() == 0 {
		return "", 0, NewError(ErrorTypeFormat, ProviderGemini, "empty candidate content", false, nil)
	}

	quality := 0.9
	if cand.FinishReason == genai.FinishReasonMaxTokens {
		quality = 0.4
	}
	return sb.String(), quality, nil
}

func (p *GeminiProvider) buildResult(resp *genai.GenerateContentResponse, quality float64) *Result {
	result := &Result{
		Quality:  quality,
		Provider: ProviderGemini,
	}
	if resp.UsageMetadata != nil {
		result.PromptTokens = int(resp.UsageMetadata.PromptTokenCount)
		result.CompletionTokens = int(resp.UsageMetadata.CandidatesTokenCount)
		result.TotalTokens = int(resp.UsageMetadata.TotalTokenCount)
	}
	return result
}

// Ensure GeminiProvider implements Provider at compile time.
var _ Provider = (*GeminiProvider)(nil)
