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

	"github.com/rs/zerolog/log"
)

// Sentinel failures of one generate call. Retrying is the caller's decision;
// the client itself never retries.
var (
	// ErrSafetyBlocked means the provider's safety filter withheld the
	// output entirely.
	ErrSafetyBlocked = errors.New("gemini: response blocked by safety filter")

	// ErrEmptyResponse means the provider returned no candidates, or a
	// candidate with no text.
	ErrEmptyResponse = errors.New("gemini: empty response")

	// ErrUnreachable means the provider could not be reached at all
	// (network failure or timeout).
	ErrUnreachable = errors.New("gemini: provider unreachable")
)

// ProviderError is a structured error payload returned by the API.
type ProviderError struct {
	Code    int
	Status  string
	Message string
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("gemini: provider error %d (%s): %s", e.Code, e.Status, e.Message)
}

// IsRetryable reports whether err is a transient failure worth retrying at
// the orchestration layer. Safety blocks and empty responses are not: the
// same prompt will fail the same way.
func IsRetryable(err error) bool {
	if errors.Is(err, ErrUnreachable) {
		return true
	}
	var pe *ProviderError
	if errors.As(err, &pe) {
		return pe.Code == http.StatusTooManyRequests || pe.Code >= 500
	}
	return false
}

// Generation parameters are fixed for determinism: reviews of the same diff
// should produce the same findings.
const (
	generationTemperature = 0.1
	generationTopK        = 1
)

const (
	defaultBaseURL = "https://generativelanguage.googleapis.com/v1beta"
	defaultModel   = "gemini-2.0-flash"
	defaultTimeout = 30 * time.Second
)

// Config contains configuration for the Gemini client.
type Config struct {
	APIKey  string        `koanf:"api_key"`
	Model   string        `koanf:"model"`
	BaseURL string        `koanf:"base_url"`
	Timeout time.Duration `koanf:"timeout"`
}

// Client invokes the Gemini generateContent endpoint. It is stateless: one
// prompt in, raw text or a typed failure out.
type Client struct {
	apiKey     string
	model      string
	baseURL    string
	httpClient *http.Client
}

// New creates a Gemini client.
func New(cfg Config) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("gemini: api_key is required")
	}
	if cfg.Model == "" {
		cfg.Model = defaultModel
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = defaultTimeout
	}

	return &Client{
		apiKey:  cfg.APIKey,
		model:   cfg.Model,
		baseURL: strings.TrimSuffix(cfg.BaseURL, "/"),
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
	}, nil
}

// Model returns the configured model name.
func (c *Client) Model() string {
	return c.model
}

// Result is the outcome of one successful (or partially successful) call.
// Truncated marks a token-limit cutoff: the text is a usable prefix, and the
// response repairer can often recover complete findings from it.
type Result struct {
	Text      string
	Truncated bool
}

// Wire types for the generateContent request/response.

type generateRequest struct {
	Contents         []content        `json:"contents"`
	GenerationConfig generationConfig `json:"generationConfig"`
}

type content struct {
	Role  string `json:"role,omitempty"`
	Parts []part `json:"parts"`
}

type part struct {
	Text string `json:"text"`
}

type generationConfig struct {
	Temperature float64 `json:"temperature"`
	TopK        int     `json:"topK"`
}

type generateResponse struct {
	Candidates []struct {
		Content struct {
			Parts []part `json:"parts"`
		} `json:"content"`
		FinishReason string `json:"finishReason"`
	} `json:"candidates"`
	PromptFeedback *struct {
		BlockReason string `json:"blockReason"`
	} `json:"promptFeedback"`
	Error *struct {
		Code    int    `json:"code"`
		Status  string `json:"status"`
		Message string `json:"message"`
	} `json:"error"`
}

// Generate sends one prompt and returns the raw response text or a typed
// failure. A MAX_TOKENS finish reason is not fatal: the partial text comes
// back with Truncated set.
func (c *Client) Generate(ctx context.Context, prompt string) (Result, error) {
	reqBody := generateRequest{
		Contents: []content{
			{Role: "user", Parts: []part{{Text: prompt}}},
		},
		GenerationConfig: generationConfig{
			Temperature: generationTemperature,
			TopK:        generationTopK,
		},
	}

	payload, err := json.Marshal(reqBody)
	if err != nil {
		return Result{}, fmt.Errorf("gemini: marshal request: %w", err)
	}

	url := fmt.Sprintf("%s/models/%s:generateContent?key=%s", c.baseURL, c.model, c.apiKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return Result{}, fmt.Errorf("gemini: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return Result{}, fmt.Errorf("%w: %v", ErrUnreachable, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return Result{}, fmt.Errorf("%w: reading body: %v", ErrUnreachable, err)
	}

	var apiResp generateResponse
	if err := json.Unmarshal(body, &apiResp); err != nil {
		return Result{}, &ProviderError{
			Code:    resp.StatusCode,
			Status:  resp.Status,
			Message: fmt.Sprintf("unparseable response body: %v", err),
		}
	}

	if apiResp.Error != nil {
		return Result{}, &ProviderError{
			Code:    apiResp.Error.Code,
			Status:  apiResp.Error.Status,
			Message: apiResp.Error.Message,
		}
	}
	if resp.StatusCode != http.StatusOK {
		return Result{}, &ProviderError{
			Code:    resp.StatusCode,
			Status:  resp.Status,
			Message: strings.TrimSpace(string(body)),
		}
	}

	if apiResp.PromptFeedback != nil && apiResp.PromptFeedback.BlockReason != "" {
		return Result{}, fmt.Errorf("%w: %s", ErrSafetyBlocked, apiResp.PromptFeedback.BlockReason)
	}
	if len(apiResp.Candidates) == 0 {
		return Result{}, ErrEmptyResponse
	}

	candidate := apiResp.Candidates[0]
	if candidate.FinishReason == "SAFETY" {
		return Result{}, fmt.Errorf("%w: finish reason SAFETY", ErrSafetyBlocked)
	}

	var sb strings.Builder
	for _, p := range candidate.Content.Parts {
		sb.WriteString(p.Text)
	}
	text := strings.TrimSpace(sb.String())
	if text == "" {
		return Result{}, ErrEmptyResponse
	}

	truncated := candidate.FinishReason == "MAX_TOKENS"
	log.Debug().
		Str("model", c.model).
		Int("prompt_len", len(prompt)).
		Int("response_len", len(text)).
		Bool("truncated", truncated).
		Dur("elapsed", time.Since(start)).
		Msg("gemini call completed")

	return Result{Text: text, Truncated: truncated}, nil
}
