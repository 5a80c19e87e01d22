package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"
)

// ProviderOpenAI is the OpenAI provider name.
const ProviderOpenAI = "openai"

const openAIDefaultEndpoint = "https://api.openai.com/v1"

// systemPrompt is the fixed instruction prepended to every tagging request.
const systemPrompt = "You are an expert at tagging events. Follow the output format exactly."

// OpenAIAdapter is the terminal handler for OpenAI's chat/completions API.
type OpenAIAdapter struct {
	apiKey     string
	endpoint   string
	httpClient *http.Client
}

// NewOpenAIAdapter builds the adapter from client configuration.
func NewOpenAIAdapter(cfg *Config) *OpenAIAdapter {
	endpoint := cfg.Endpoint
	if endpoint == "" {
		endpoint = openAIDefaultEndpoint
	}
	hc := cfg.HTTPClient
	if hc == nil {
		timeout := cfg.HTTPTimeout
		if timeout <= 0 {
			timeout = DefaultHTTPTimeout
		}
		hc = &http.Client{Timeout: timeout}
	}
	return &OpenAIAdapter{apiKey: cfg.APIKey, endpoint: endpoint, httpClient: hc}
}

// Handle implements Handler by issuing one chat/completions request.
func (a *OpenAIAdapter) Handle(ctx context.Context, req *Request) (*Response, error) {
	if req.Prompt == "" {
		return nil, ErrEmptyPrompt
	}

	httpReq, err := a.build(ctx, req)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	httpResp, err := a.httpClient.Do(httpReq)
	if err != nil {
		return nil, a.transportError(req.Model, err)
	}
	defer httpResp.Body.Close()

	resp, err := a.parse(req.Model, httpResp)
	if err != nil {
		return nil, err
	}
	resp.LatencyMs = time.Since(start).Milliseconds()
	return resp, nil
}

func (a *OpenAIAdapter) build(ctx context.Context, req *Request) (*http.Request, error) {
	body := map[string]any{
		"model": req.Model,
		"messages": []map[string]string{
			{"role": "system", "content": systemPrompt},
			{"role": "user", "content": req.Prompt},
		},
		"temperature": req.Temperature,
	}
	if req.MaxTokens > 0 {
		body["max_tokens"] = req.MaxTokens
	}

	jsonBody, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost,
		a.endpoint+"/chat/completions", bytes.NewReader(jsonBody))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+a.apiKey)
	return httpReq, nil
}

func (a *OpenAIAdapter) parse(model string, httpResp *http.Response) (*Response, error) {
	body, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, &UpstreamError{
			Provider: ProviderOpenAI, Model: model,
			Type: ErrorTypeNetwork, Message: "failed to read response body", Err: err,
		}
	}

	if httpResp.StatusCode != http.StatusOK {
		return nil, a.statusError(model, httpResp, body)
	}

	var resp struct {
		Model   string `json:"model"`
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
			FinishReason string `json:"finish_reason"`
		} `json:"choices"`
		Usage struct {
			PromptTokens     int64 `json:"prompt_tokens"`
			CompletionTokens int64 `json:"completion_tokens"`
			TotalTokens      int64 `json:"total_tokens"`
		} `json:"usage"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, &UpstreamError{
			Provider: ProviderOpenAI, Model: model,
			Type: ErrorTypeInvalidResponse, Message: "failed to parse response body", Err: err,
		}
	}
	if len(resp.Choices) == 0 {
		return nil, &UpstreamError{
			Provider: ProviderOpenAI, Model: model,
			Type: ErrorTypeInvalidResponse, Message: "response carried no choices",
		}
	}

	return &Response{
		Content:          resp.Choices[0].Message.Content,
		Model:            resp.Model,
		FinishReason:     resp.Choices[0].FinishReason,
		PromptTokens:     resp.Usage.PromptTokens,
		CompletionTokens: resp.Usage.CompletionTokens,
		TokensUsed:       resp.Usage.TotalTokens,
	}, nil
}

func (a *OpenAIAdapter) statusError(model string, httpResp *http.Response, body []byte) error {
	var apiErr struct {
		Error struct {
			Message string `json:"message"`
			Type    string `json:"type"`
		} `json:"error"`
	}
	message := http.StatusText(httpResp.StatusCode)
	if err := json.Unmarshal(body, &apiErr); err == nil && apiErr.Error.Message != "" {
		message = apiErr.Error.Message
	}

	return &UpstreamError{
		Provider:   ProviderOpenAI,
		Model:      model,
		StatusCode: httpResp.StatusCode,
		Type:       classifyStatus(httpResp.StatusCode),
		Message:    message,
		RetryAfter: parseRetryAfter(httpResp.Header.Get("Retry-After")),
	}
}

func (a *OpenAIAdapter) transportError(model string, err error) error {
	typ := ErrorTypeNetwork
	if errors.Is(err, context.DeadlineExceeded) {
		typ = ErrorTypeTimeout
	}
	return &UpstreamError{
		Provider: ProviderOpenAI, Model: model,
		Type: typ, Message: err.Error(), Err: err,
	}
}

// parseRetryAfter handles the delay-seconds form of the Retry-After header.
func parseRetryAfter(value string) time.Duration {
	if value == "" {
		return 0
	}
	secs, err := strconv.Atoi(value)
	if err != nil || secs < 0 {
		return 0
	}
	return time.Duration(secs) * time.Second
}
