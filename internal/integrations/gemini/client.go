package gemini

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"mechanic-assistant/internal/domain"
)

const (
	defaultBaseURL = "https://generativelanguage.googleapis.com"
	defaultTimeout = 30 * time.Second

	roleUser  = "user"
	roleModel = "model"
)

type part struct {
	Text string `json:"text"`
}

type content struct {
	Role  string `json:"role,omitempty"`
	Parts []part `json:"parts"`
}

type generationConfig struct {
	Temperature     *float64 `json:"temperature,omitempty"`
	MaxOutputTokens int      `json:"maxOutputTokens,omitempty"`
}

// generateRequest is the request shape for the generateContent endpoint.
type generateRequest struct {
	SystemInstruction *content         `json:"systemInstruction,omitempty"`
	Contents          []content        `json:"contents"`
	GenerationConfig  generationConfig `json:"generationConfig"`
}

// generateResponse is the minimal response shape returned by generateContent.
type generateResponse struct {
	Candidates []struct {
		Content      content `json:"content"`
		FinishReason string  `json:"finishReason"`
	} `json:"candidates"`
	PromptFeedback *struct {
		BlockReason string `json:"blockReason"`
	} `json:"promptFeedback"`
}

// errorEnvelope is the error body Google APIs return on non-2xx responses.
type errorEnvelope struct {
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Status  string `json:"status"`
	} `json:"error"`
}

// HTTPStatusError captures non-2xx upstream responses. Body holds the raw
// (unredacted) response body and must not be logged as is.
type HTTPStatusError struct {
	StatusCode int
	Status     string
	Message    string
	Body       string
}

func (e *HTTPStatusError) Error() string {
	switch {
	case e.Status != "" && e.Message != "":
		return fmt.Sprintf("gemini: unexpected status %d (%s): %s", e.StatusCode, e.Status, e.Message)
	case e.Message != "":
		return fmt.Sprintf("gemini: unexpected status %d: %s", e.StatusCode, e.Message)
	case e.Status != "":
		return fmt.Sprintf("gemini: unexpected status %d (%s)", e.StatusCode, e.Status)
	default:
		return fmt.Sprintf("gemini: unexpected status %d", e.StatusCode)
	}
}

func (e *HTTPStatusError) HTTPStatusCode() int {
	return e.StatusCode
}

// ResponseBody returns the raw upstream body for diagnostic extraction.
func (e *HTTPStatusError) ResponseBody() string {
	return e.Body
}

// Client is a focused client for the Gemini generateContent REST endpoint.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

type Option func(*Client)

func WithBaseURL(baseURL string) Option {
	return func(c *Client) {
		c.baseURL = strings.TrimSpace(baseURL)
	}
}

func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// NewClient creates a Client. The API key is supplied per call so the caller
// stays the single owner of the credential.
func NewClient(opts ...Option) *Client {
	c := &Client{
		baseURL:    defaultBaseURL,
		httpClient: &http.Client{Timeout: defaultTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) resolvedHTTPClient() *http.Client {
	if c.httpClient != nil {
		return c.httpClient
	}
	return &http.Client{Timeout: defaultTimeout}
}

func generateURL(baseURL, model string) string {
	base := strings.TrimRight(baseURL, "/")
	if base == "" {
		base = defaultBaseURL
	}
	if !strings.HasSuffix(base, "/v1beta") {
		base += "/v1beta"
	}
	return base + "/models/" + model + ":generateContent"
}

// Generate sends the history and new message as one generateContent call and
// returns the concatenated text of the first candidate.
func (c *Client) Generate(ctx context.Context, apiKey string, in domain.GenerateRequest) (string, error) {
	if strings.TrimSpace(apiKey) == "" {
		return "", errors.New("gemini: API key must not be empty")
	}
	model := strings.TrimSpace(in.Model)
	if model == "" {
		return "", errors.New("gemini: model must not be empty")
	}

	body, err := json.Marshal(buildRequest(in))
	if err != nil {
		return "", fmt.Errorf("gemini: marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, generateURL(c.baseURL, model), bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("gemini: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-goog-api-key", apiKey)

	raw, err := c.doJSONRequest(req)
	if err != nil {
		return "", fmt.Errorf("gemini: request failed: %w", err)
	}

	var payload generateResponse
	if err := json.Unmarshal(raw, &payload); err != nil {
		return "", fmt.Errorf("gemini: decode response: %w", err)
	}
	if payload.PromptFeedback != nil && payload.PromptFeedback.BlockReason != "" {
		return "", fmt.Errorf("gemini: prompt blocked: %s", payload.PromptFeedback.BlockReason)
	}
	if len(payload.Candidates) == 0 {
		return "", errors.New("gemini: no candidates in response")
	}

	var sb strings.Builder
	for _, p := range payload.Candidates[0].Content.Parts {
		sb.WriteString(p.Text)
	}
	if sb.Len() == 0 {
		return "", fmt.Errorf("gemini: empty candidate (finish reason %q)", payload.Candidates[0].FinishReason)
	}
	return sb.String(), nil
}

func buildRequest(in domain.GenerateRequest) generateRequest {
	contents := make([]content, 0, len(in.History)+1)
	for _, turn := range in.History {
		contents = append(contents, content{
			Role:  providerRole(turn.Role),
			Parts: []part{{Text: turn.Content}},
		})
	}
	contents = append(contents, content{
		Role:  roleUser,
		Parts: []part{{Text: in.Message}},
	})

	req := generateRequest{
		Contents: contents,
		GenerationConfig: generationConfig{
			MaxOutputTokens: in.MaxOutputTokens,
		},
	}
	if in.SystemInstruction != "" {
		req.SystemInstruction = &content{Parts: []part{{Text: in.SystemInstruction}}}
	}
	if in.Temperature > 0 {
		t := in.Temperature
		req.GenerationConfig.Temperature = &t
	}
	return req
}

func providerRole(role string) string {
	if role == domain.RoleAssistant {
		return roleModel
	}
	return roleUser
}

func (c *Client) doJSONRequest(req *http.Request) ([]byte, error) {
	res, err := c.resolvedHTTPClient().Do(req)
	if err != nil {
		return nil, err
	}
	defer func() { _ = res.Body.Close() }()

	if res.StatusCode < 200 || res.StatusCode >= 300 {
		buf, _ := io.ReadAll(io.LimitReader(res.Body, 4096))
		statusErr := &HTTPStatusError{
			StatusCode: res.StatusCode,
			Body:       string(buf),
		}
		var env errorEnvelope
		if json.Unmarshal(buf, &env) == nil {
			statusErr.Status = env.Error.Status
			statusErr.Message = env.Error.Message
		}
		return nil, statusErr
	}

	buf, err := io.ReadAll(io.LimitReader(res.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("read response body: %w", err)
	}
	return buf, nil
}
