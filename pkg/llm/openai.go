package llm

import (
	"context"
	"fmt"
	"time"

	"github.com/sashabaranov/go-openai"
	"go.uber.org/zap"
)

// Config holds construction settings shared by the provider adapters.
type Config struct {
	APIKey      string
	Model       string
	Temperature float64
	MaxTokens   int
	Timeout     time.Duration
}

// OpenAIProvider implements Provider using the OpenAI chat completions API.
// Structured calls use function tools so the response is parsed JSON rather
// than prose.
type OpenAIProvider struct {
	client  *openai.Client
	model   string
	timeout time.Duration
	meter   *UsageMeter
	logger  *zap.Logger
}

// NewOpenAIProvider creates a new OpenAI-backed provider.
func NewOpenAIProvider(cfg *Config, meter *UsageMeter, logger *zap.Logger) (*OpenAIProvider, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("OpenAI API key is required")
	}
	if cfg.Model == "" {
		return nil, fmt.Errorf("model is required")
	}

	return &OpenAIProvider{
		client:  openai.NewClient(cfg.APIKey),
		model:   cfg.Model,
		timeout: cfg.Timeout,
		meter:   meter,
		logger:  logger.Named("openai"),
	}, nil
}

// Name implements Provider.
func (p *OpenAIProvider) Name() string {
	return ProviderOpenAI
}

// ExecuteStructured implements Provider using a forced function tool call.
func (p *OpenAIProvider) ExecuteStructured(ctx context.Context, call *StructuredCall) (*Result, error) {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	p.logger.Debug("structured call",
		zap.String("function", call.Name),
		zap.Int("prompt_len", len(call.Prompt)))

	start := time.Now()

	resp, err := p.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: p.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: call.System},
			{Role: openai.ChatMessageRoleUser, Content: call.Prompt},
		},
		Temperature: float32(call.Temperature),
		MaxTokens:   call.MaxTokens,
		Tools: []openai.Tool{{
			Type: openai.ToolTypeFunction,
			Function: &openai.FunctionDefinition{
				Name:        call.Name,
				Description: call.Description,
				Parameters:  call.Parameters,
			},
		}},
		ToolChoice: openai.ToolChoice{
			Type:     openai.ToolTypeFunction,
			Function: openai.ToolFunction{Name: call.Name},
		},
	})
	if err != nil {
		p.meter.RecordFailure(ProviderOpenAI)
		p.logger.Error("structured call failed",
			zap.String("function", call.Name),
			zap.Duration("elapsed", time.Since(start)),
			zap.Error(err))
		return nil, ClassifyError(ProviderOpenAI, err)
	}

	if len(resp.Choices) == 0 {
		p.meter.RecordFailure(ProviderOpenAI)
		return nil, NewError(ErrorTypeFormat, ProviderOpenAI, "no choices in response", false, nil)
	}

	choice := resp.Choices[0]
	if len(choice.Message.ToolCalls) == 0 {
		p.meter.RecordFailure(ProviderOpenAI)
		return nil, NewError(ErrorTypeFormat, ProviderOpenAI, "model did not produce a tool call", false, nil)
	}

	args := choice.Message.ToolCalls[0].Function.Arguments
	jsonStr, err := ExtractJSON(args)
	if err != nil {
		p.meter.RecordFailure(ProviderOpenAI)
		return nil, NewError(ErrorTypeFormat, ProviderOpenAI, "non-conforming tool arguments", false, err)
	}

	result := &Result{
		Data:             []byte(jsonStr),
		PromptTokens:     resp.Usage.PromptTokens,
		CompletionTokens: resp.Usage.CompletionTokens,
		TotalTokens:      resp.Usage.TotalTokens,
		Quality:          finishQuality(string(choice.FinishReason)),
		Provider:         ProviderOpenAI,
	}
	p.meter.Record(ProviderOpenAI, result)

	p.logger.Info("structured call completed",
		zap.String("function", call.Name),
		zap.Int("total_tokens", result.TotalTokens),
		zap.Duration("elapsed", time.Since(start)))

	return result, nil
}

// GenerateText implements Provider.
func (p *OpenAIProvider) GenerateText(ctx context.Context, req *TextRequest) (*Result, error) {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	start := time.Now()

	resp, err := p.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: p.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: req.System},
			{Role: openai.ChatMessageRoleUser, Content: req.Prompt},
		},
		Temperature: float32(req.Temperature),
		MaxTokens:   req.MaxTokens,
	})
	if err != nil {
		p.meter.RecordFailure(ProviderOpenAI)
		p.logger.Error("text call failed",
			zap.Duration("elapsed", time.Since(start)),
			zap.Error(err))
		return nil, ClassifyError(ProviderOpenAI, err)
	}

	if len(resp.Choices) == 0 {
		p.meter.RecordFailure(ProviderOpenAI)
		return nil, NewError(ErrorTypeFormat, ProviderOpenAI, "no choices in response", false, nil)
	}

	choice := resp.Choices[0]
	result := &Result{
		Text:             choice.Message.Content,
		PromptTokens:     resp.Usage.PromptTokens,
		CompletionTokens: resp.Usage.CompletionTokens,
		TotalTokens:      resp.Usage.TotalTokens,
		Quality:          finishQuality(string(choice.FinishReason)),
		Provider:         ProviderOpenAI,
	}
	p.meter.Record(ProviderOpenAI, result)

	p.logger.Info("text call completed",
		zap.Int("total_tokens", result.TotalTokens),
		zap.Duration("elapsed", time.Since(start)))

	return result, nil
}

// finishQuality maps a finish reason to a confidence score. Truncated
// responses are penalized since their payloads are usually unusable.
func finishQuality(reason string) float64 {
	switch reason {
	case "stop", "tool_calls", "end_turn", "":
		return 0.9
	case "length", "max_tokens":
		return 0.4
	default:
		return 0.6
	}
}

// Ensure OpenAIProvider implements Provider at compile time.
var _ Provider = (*OpenAIProvider)(nil)
