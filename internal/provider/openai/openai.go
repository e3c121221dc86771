package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	auth "github.com/bricks-cloud/byokllm/internal/authenticator"
	goopenai "github.com/sashabaranov/go-openai"
)

// Client talks to the upstream OpenAI API on behalf of exactly one inbound
// request. It is built from that request's resolved credential and is
// discarded when the request ends; only the underlying http.Client transport
// is shared across requests.
type Client struct {
	httpClient   http.Client
	baseUrl      string
	apiKey       string
	extraHeaders map[string]string
}

func NewClient(cfg *auth.UpstreamConfig, httpClient http.Client, baseUrl string) *Client {
	return &Client{
		httpClient:   httpClient,
		baseUrl:      strings.TrimRight(baseUrl, "/"),
		apiKey:       cfg.APIKey,
		extraHeaders: cfg.ExtraHeaders,
	}
}

func (c *Client) CreateChatCompletion(ctx context.Context, r *goopenai.ChatCompletionRequest) (*goopenai.ChatCompletionResponse, error) {
	res := &goopenai.ChatCompletionResponse{}
	if err := c.doJson(ctx, http.MethodPost, "/chat/completions", r, res); err != nil {
		return nil, err
	}

	return res, nil
}

func (c *Client) CreateCompletion(ctx context.Context, r *goopenai.CompletionRequest) (*goopenai.CompletionResponse, error) {
	res := &goopenai.CompletionResponse{}
	if err := c.doJson(ctx, http.MethodPost, "/completions", r, res); err != nil {
		return nil, err
	}

	return res, nil
}

func (c *Client) CreateEmbeddings(ctx context.Context, r *goopenai.EmbeddingRequest) (*goopenai.EmbeddingResponse, error) {
	res := &goopenai.EmbeddingResponse{}
	if err := c.doJson(ctx, http.MethodPost, "/embeddings", r, res); err != nil {
		return nil, err
	}

	return res, nil
}

func (c *Client) ListModels(ctx context.Context) (*goopenai.ModelsList, error) {
	res := &goopenai.ModelsList{}
	if err := c.doJson(ctx, http.MethodGet, "/models", nil, res); err != nil {
		return nil, err
	}

	return res, nil
}

func (c *Client) RetrieveModel(ctx context.Context, modelId string) (*goopenai.Model, error) {
	res := &goopenai.Model{}
	if err := c.doJson(ctx, http.MethodGet, "/models/"+url.PathEscape(modelId), nil, res); err != nil {
		return nil, err
	}

	return res, nil
}

func (c *Client) CreateImage(ctx context.Context, r *goopenai.ImageRequest) (*goopenai.ImageResponse, error) {
	res := &goopenai.ImageResponse{}
	if err := c.doJson(ctx, http.MethodPost, "/images/generations", r, res); err != nil {
		return nil, err
	}

	return res, nil
}

// doJson serializes payload (when present) and decodes the upstream response
// into out. A *json.RawMessage out relays the body without reshaping it.
func (c *Client) doJson(ctx context.Context, method, path string, payload any, out any) error {
	var body io.Reader
	contentType := ""

	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("error when marshalling openai request payload: %w", err)
		}

		body = bytes.NewReader(b)
		contentType = "application/json"
	}

	return c.do(ctx, method, path, body, contentType, out)
}

func (c *Client) do(ctx context.Context, method, path string, body io.Reader, contentType string, out any) error {
	req, err := http.NewRequestWithContext(ctx, method, c.baseUrl+path, body)
	if err != nil {
		return fmt.Errorf("error when creating openai http request: %w", err)
	}

	req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", c.apiKey))
	if len(contentType) != 0 {
		req.Header.Set("Content-Type", contentType)
	}

	for k, v := range c.extraHeaders {
		req.Header.Set(k, v)
	}

	res, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer res.Body.Close()

	data, err := io.ReadAll(res.Body)
	if err != nil {
		return fmt.Errorf("error when reading openai response body: %w", err)
	}

	if res.StatusCode >= http.StatusBadRequest {
		return decodeErrorResponse(data, res.StatusCode)
	}

	if out == nil {
		return nil
	}

	if raw, ok := out.(*json.RawMessage); ok {
		*raw = data
		return nil
	}

	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("error when unmarshalling openai response body: %w", err)
	}

	return nil
}

func decodeErrorResponse(data []byte, code int) *Error {
	errRes := &goopenai.ErrorResponse{}
	if err := json.Unmarshal(data, errRes); err == nil && errRes.Error != nil && len(errRes.Error.Message) != 0 {
		return NewError(errRes.Error.Message, errRes.Error.Type, code)
	}

	return NewError(http.StatusText(code), "", code)
}
