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
)

const (
	defaultBaseURL = "https://generativelanguage.googleapis.com/v1beta"
	callTimeout    = 60 * time.Second
)

// Sentinel errors the retry layer branches on.
var (
	// ErrRateLimited signals the key's per-minute quota is exhausted.
	ErrRateLimited = errors.New("gemini: rate limit exceeded")
	// ErrInvalidKey signals the API rejected the key itself.
	ErrInvalidKey = errors.New("gemini: API key invalid")
)

// Client calls the Generative Language generateContent endpoint. The API key
// is passed per request so one client serves the whole key pool.
type Client struct {
	baseURL    string
	model      string
	httpClient *http.Client
}

// NewClient creates a Client for the given model.
func NewClient(model string) *Client {
	return &Client{
		baseURL:    defaultBaseURL,
		model:      model,
		httpClient: &http.Client{Timeout: callTimeout},
	}
}

// NewClientWithBaseURL is NewClient with an overridable endpoint, for tests.
func NewClientWithBaseURL(model, baseURL string) *Client {
	c := NewClient(model)
	c.baseURL = baseURL
	return c
}

type generateRequest struct {
	Contents []content `json:"contents"`
}

type content struct {
	Parts []part `json:"parts"`
}

type part struct {
	Text string `json:"text"`
}

type generateResponse struct {
	Candidates []struct {
		Content content `json:"content"`
	} `json:"candidates"`
}

type apiError struct {
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Status  string `json:"status"`
	} `json:"error"`
}

// GenerateContent sends prompt to the model using apiKey and returns the raw
// text of the first candidate.
func (c *Client) GenerateContent(ctx context.Context, apiKey, prompt string) (string, error) {
	reqBody, err := json.Marshal(generateRequest{
		Contents: []content{{Parts: []part{{Text: prompt}}}},
	})
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	url := fmt.Sprintf("%s/models/%s:generateContent?key=%s", c.baseURL, c.model, apiKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(reqBody))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("generateContent request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return "", classifyAPIError(resp.StatusCode, body)
	}

	var genResp generateResponse
	if err := json.Unmarshal(body, &genResp); err != nil {
		return "", fmt.Errorf("failed to parse response: %w", err)
	}
	if len(genResp.Candidates) == 0 || len(genResp.Candidates[0].Content.Parts) == 0 {
		return "", errors.New("gemini: response contains no candidates")
	}

	return genResp.Candidates[0].Content.Parts[0].Text, nil
}

// classifyAPIError maps an error response to the sentinel the retry layer
// understands. 429/RESOURCE_EXHAUSTED means the key's quota is spent;
// API_KEY_INVALID means the key is unusable.
func classifyAPIError(status int, body []byte) error {
	var ae apiError
	_ = json.Unmarshal(body, &ae)

	switch {
	case status == http.StatusTooManyRequests || ae.Error.Status == "RESOURCE_EXHAUSTED":
		return fmt.Errorf("%w: %s", ErrRateLimited, ae.Error.Message)
	case strings.Contains(ae.Error.Message, "API_KEY_INVALID") || strings.Contains(string(body), "API_KEY_INVALID"):
		return fmt.Errorf("%w: %s", ErrInvalidKey, ae.Error.Message)
	default:
		return fmt.Errorf("gemini: unexpected status %d: %s", status, ae.Error.Message)
	}
}
