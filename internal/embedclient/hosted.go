package embedclient

import (
	"context"
	"fmt"
	"strings"

	"google.golang.org/genai"

	"github.com/opennote/semindex/internal/pkg/apperr"
)

// HostedConfig configures the remote hosted provider (spec.md §4.1).
type HostedConfig struct {
	APIKey    string
	Model     string
	Dimension int // 0 = discover lazily
}

// hostedClient embeds via a remote hosted provider (Gemini), requiring an
// API key. Grounded on the teacher's internal/ai/gemini.go embed provider.
type hostedClient struct {
	*dimensioned
	apiKey string
	model  string
}

func NewHosted(cfg HostedConfig) (Client, error) {
	apiKey := strings.TrimSpace(cfg.APIKey)
	if apiKey == "" {
		return nil, fmt.Errorf("%w: hosted provider requires an api key", apperr.ErrConfig)
	}
	if cfg.Model == "" {
		return nil, fmt.Errorf("%w: hosted provider requires a model name", apperr.ErrConfig)
	}
	return &hostedClient{
		dimensioned: newDimensioned(cfg.Dimension),
		apiKey:      apiKey,
		model:       cfg.Model,
	}, nil
}

func (c *hostedClient) ID() string {
	return "hosted:" + c.model
}

func (c *hostedClient) Embed(ctx context.Context, text string) ([]float32, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  c.apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", apperr.ErrTransport, err)
	}
	resp, err := client.Models.EmbedContent(
		ctx,
		c.model,
		[]*genai.Content{{Parts: []*genai.Part{{Text: text}}}},
		nil,
	)
	if err != nil {
		return nil, classifyGenAIError(err)
	}
	if len(resp.Embeddings) == 0 {
		return nil, fmt.Errorf("%w: no embedding values returned", apperr.ErrTransport)
	}
	values := resp.Embeddings[0].Values
	c.observe(len(values))
	return values, nil
}

func classifyGenAIError(err error) error {
	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "unauthorized") || strings.Contains(msg, "api key not valid") || strings.Contains(msg, "permission"):
		return fmt.Errorf("%w: %v", apperr.ErrUnauthorized, err)
	case strings.Contains(msg, "429") || strings.Contains(msg, "quota") || strings.Contains(msg, "rate limit"):
		return fmt.Errorf("%w: %v", apperr.ErrRateLimited, err)
	default:
		return fmt.Errorf("%w: %v", apperr.ErrTransport, err)
	}
}
