package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/liushuangls/go-anthropic/v2"
	"go.uber.org/zap"
)

// AnthropicProvider implements Provider using the Anthropic Messages API.
// Structured calls embed the function schema in the prompt and lean on the
// lenient JSON extractor, which matches how Claude returns JSON reliably
// without a forced tool call.
type AnthropicProvider struct {
	client  *anthropic.Client
	model   string
	timeout time.Duration
	meter   *UsageMeter
	logger  *zap.Logger
}

// NewAnthropicProvider creates a new Anthropic-backed provider.
func NewAnthropicProvider(cfg *Config, meter *UsageMeter, logger *zap.Logger) (*AnthropicProvider, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("Anthropic API key is required")
	}
	if cfg.Model == "" {
		return nil, fmt.Errorf("model is required")
	}

	return &AnthropicProvider{
		client:  anthropic.NewClient(cfg.APIKey),
		model:   cfg.Model,
		timeout: cfg.Timeout,
		meter:   meter,
		logger:  logger.Named("anthropic"),
	}, nil
}

// Name implements Provider.
func (p *AnthropicProvider) Name() string {
	return ProviderAnthropic
}

// ExecuteStructured implements Provider.
func (p *AnthropicProvider) ExecuteStructured(ctx context.Context, call *StructuredCall) (*Result, error) {
	schemaJSON, err := json.Marshal(call.Parameters)
	if err != nil {
		return nil, NewError(ErrorTypeFormat, ProviderAnthropic, "invalid function parameters", false, err)
	}

	var prompt strings.Builder
	prompt.WriteString(call.Prompt)
	prompt.WriteString("\n\nReturn ONLY a JSON object for \"")
	prompt.WriteString(call.Name)
	prompt.WriteString("\" (")
	prompt.WriteString(call.Description)
	prompt.WriteString(") matching this JSON Schema:\n")
	prompt.Write(schemaJSON)

	result, err := p.createMessage(ctx, call.System, prompt.String(), call.Temperature, call.MaxTokens, call.Name)
	if err != nil {
		return nil, err
	}

	jsonStr, err := ExtractJSON(result.Text)
	if err != nil {
		p.meter.RecordFailure(ProviderAnthropic)
		return nil, NewError(ErrorTypeFormat, ProviderAnthropic, "non-conforming JSON payload", false, err)
	}
	result.Data = []byte(jsonStr)
	result.Text = ""

	p.meter.Record(ProviderAnthropic, result)
	return result, nil
}

// GenerateText implements Provider.
func (p *AnthropicProvider) GenerateText(ctx context.Context, req *TextRequest) (*Result, error) {
	result, err := p.createMessage(ctx, req.System, req.Prompt, req.Temperature, req.MaxTokens, "")
	if err != nil {
		return nil, err
	}

	p.meter.Record(ProviderAnthropic, result)
	return result, nil
}

func (p *AnthropicProvider) createMessage(ctx context.Context, system, prompt string, temperature float64, maxTokens int, function string) (*Result, error) {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	if maxTokens <= 0 {
		maxTokens = 4096
	}
	temp := float32(temperature)

	start := time.Now()

	resp, err := p.client.CreateMessages(ctx, anthropic.MessagesRequest{
		Model:       anthropic.Model(p.model),
		System:      system,
		MaxTokens:   maxTokens,
		Temperature: &temp,
		Messages: []anthropic.Message{
			anthropic.NewUserTextMessage(prompt),
		},
	})
	if err != nil {
		p.meter.RecordFailure(ProviderAnthropic)
		p.logger.Error("message call failed",
			zap.String("function", function),
			zap.Duration("elapsed", time.Since(start)),
			zap.Error(err))
		return nil, ClassifyError(ProviderAnthropic, err)
	}

	text := resp.GetFirstContentText()
	if text == "" {
		p.meter.RecordFailure(ProviderAnthropic)
		return nil, NewError(ErrorTypeFormat, ProviderAnthropic, "empty message content", false, nil)
	}

	quality := 0.9
	if resp.StopReason == anthropic.MessagesStopReasonMaxTokens {
		quality = 0.4
	}

	result := &Result{
		Text:             text,
		PromptTokens:     resp.Usage.InputTokens,
		CompletionTokens: resp.Usage.OutputTokens,
		TotalTokens:      resp.Usage.InputTokens + resp.Usage.OutputTokens,
		Quality:          quality,
		Provider:         ProviderAnthropic,
	}

	p.logger.Info("message call completed",
		zap.String("function", function),
		zap.Int("total_tokens", result.TotalTokens),
		zap.Duration("elapsed", time.Since(start)))

	return result, nil
}

// Ensure AnthropicProvider implements Provider at compile time.
var _ Provider = (*AnthropicProvider)(nil)
