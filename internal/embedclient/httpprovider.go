package embedclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/opennote/semindex/internal/pkg/apperr"
)

// httpEmbedRequest/httpEmbedResponse mirror the OpenAI-compatible wire
// format, grounded on the teacher's internal/ai/openai.go embed request.
type httpEmbedRequest struct {
	Model string `json:"model"`
	Input string `json:"input"`
}

type httpEmbedResponse struct {
	Data []struct {
		Embedding []float32 `json:"embedding"`
	} `json:"data"`
}

// httpClient implements the local-runtime and compatible-endpoint providers
// (spec.md §4.1): same OpenAI-shaped wire format, differing only in whether
// an API key is required.
type httpClient struct {
	*dimensioned
	name       string
	baseURL    string
	model      string
	apiKey     string // empty for the local-runtime variant
	httpClient *http.Client
}

// LocalConfig configures a local runtime provider: no API key, talks to a
// local HTTP endpoint (e.g. an on-machine embedding server).
type LocalConfig struct {
	BaseURL   string
	Model     string
	Dimension int
}

func NewLocal(cfg LocalConfig) (Client, error) {
	baseURL := strings.TrimSpace(cfg.BaseURL)
	if baseURL == "" {
		return nil, fmt.Errorf("%w: local provider requires a base url", apperr.ErrConfig)
	}
	if cfg.Model == "" {
		return nil, fmt.Errorf("%w: local provider requires a model name", apperr.ErrConfig)
	}
	return &httpClient{
		dimensioned: newDimensioned(cfg.Dimension),
		name:        "local",
		baseURL:     baseURL,
		model:       cfg.Model,
		httpClient:  &http.Client{Timeout: 60 * time.Second},
	}, nil
}

// CompatibleConfig configures a remote that mimics the hosted provider's
// wire format: needs both a key and a base URL.
type CompatibleConfig struct {
	APIKey    string
	BaseURL   string
	Model     string
	Dimension int
}

func NewCompatible(cfg CompatibleConfig) (Client, error) {
	apiKey := strings.TrimSpace(cfg.APIKey)
	baseURL := strings.TrimSpace(cfg.BaseURL)
	if apiKey == "" || baseURL == "" {
		return nil, fmt.Errorf("%w: compatible provider requires an api key and a base url", apperr.ErrConfig)
	}
	if cfg.Model == "" {
		return nil, fmt.Errorf("%w: compatible provider requires a model name", apperr.ErrConfig)
	}
	return &httpClient{
		dimensioned: newDimensioned(cfg.Dimension),
		name:        "compatible",
		baseURL:     baseURL,
		model:       cfg.Model,
		apiKey:      apiKey,
		httpClient:  &http.Client{Timeout: 60 * time.Second},
	}, nil
}

func (c *httpClient) ID() string {
	return c.name + ":" + c.model
}

func (c *httpClient) Embed(ctx context.Context, text string) ([]float32, error) {
	endpoint := strings.TrimRight(c.baseURL, "/") + "/embeddings"
	body, err := json.Marshal(httpEmbedRequest{Model: c.model, Input: text})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", apperr.ErrConfig, err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", apperr.ErrTransport, err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", apperr.ErrTransport, err)
	}
	defer resp.Body.Close()

	if cerr := classifyHTTPStatus(resp.StatusCode, c.apiKey != ""); cerr != nil {
		respBody, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("%w: %s: %s", cerr, resp.Status, strings.TrimSpace(string(respBody)))
	}
	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		respBody, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("%w: %s: %s", apperr.ErrTransport, resp.Status, strings.TrimSpace(string(respBody)))
	}

	var out httpEmbedResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("%w: %v", apperr.ErrTransport, err)
	}
	if len(out.Data) == 0 {
		return nil, fmt.Errorf("%w: no embeddings in response", apperr.ErrTransport)
	}
	values := out.Data[0].Embedding
	c.observe(len(values))
	return values, nil
}
