package inference

import (
	"context"
	"errors"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/coachkit/coachplane/pkg/models"
)

// DefaultAnthropicModel is used when no model is configured.
const DefaultAnthropicModel = "claude-sonnet-4-5"

// AnthropicConfig configures the Anthropic driver.
type AnthropicConfig struct {
	APIKey string
	Model  string

	// Prefill starts the assistant turn with "{" when JSON is requested.
	// Leave off for models that reject assistant prefill.
	Prefill bool
}

// AnthropicDriver calls the Anthropic Messages API.
type AnthropicDriver struct {
	client  anthropic.Client
	model   string
	prefill bool
}

// NewAnthropicDriver creates an Anthropic driver.
func NewAnthropicDriver(cfg AnthropicConfig) *AnthropicDriver {
	opts := []option.RequestOption{}
	if cfg.APIKey != "" {
		opts = append(opts, option.WithAPIKey(cfg.APIKey))
	}
	// retries are owned by the inference Client
	opts = append(opts, option.WithMaxRetries(0))

	model := cfg.Model
	if model == "" {
		model = DefaultAnthropicModel
	}
	return &AnthropicDriver{
		client:  anthropic.NewClient(opts...),
		model:   model,
		prefill: cfg.Prefill,
	}
}

func (d *AnthropicDriver) Kind() string { return "anthropic" }

func (d *AnthropicDriver) Complete(ctx context.Context, req *models.InferenceRequest) (*models.InferenceResponse, error) {
	messages := []anthropic.MessageParam{
		anthropic.NewUserMessage(anthropic.NewTextBlock(req.User)),
	}
	prefilled := req.JSON && d.prefill
	if prefilled {
		messages = append(messages, anthropic.NewAssistantMessage(anthropic.NewTextBlock("{")))
	}

	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(d.model),
		MaxTokens: int64(req.MaxTokens),
		Messages:  messages,
	}
	if req.System != "" {
		params.System = []anthropic.TextBlockParam{{Text: req.System}}
	}
	if req.Temperature > 0 {
		params.Temperature = anthropic.Float(req.Temperature)
	}

	message, err := d.client.Messages.New(ctx, params)
	if err != nil {
		return nil, anthropicError(err)
	}

	var sb strings.Builder
	if prefilled {
		sb.WriteString("{")
	}
	for _, block := range message.Content {
		if block.Type == "text" {
			sb.WriteString(block.Text)
		}
	}

	return &models.InferenceResponse{
		Text:       sb.String(),
		TokensUsed: int(message.Usage.InputTokens + message.Usage.OutputTokens),
		Model:      string(message.Model),
	}, nil
}

func anthropicError(err error) error {
	pe := &ProviderError{Provider: "anthropic", Err: err}
	var apiErr *anthropic.Error
	if errors.As(err, &apiErr) {
		pe.StatusCode = apiErr.StatusCode
	}
	return pe
}
