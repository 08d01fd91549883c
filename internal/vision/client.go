// Package vision talks to a locally hosted vision-capable model and
// turns receipt photos into raw extraction text. Parsing that text is
// the extraction pipeline's job; this package only owns the transport
// and the prompt.
package vision

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// DefaultModel is the vision model requested when none is configured.
const DefaultModel = "llama3.2-vision"

const extractionPrompt = `Read this grocery receipt image and extract every line item.

Respond with ONLY a JSON object in exactly this shape, no prose and no markdown fences:
{
  "store_name": "...",
  "date": "YYYY-MM-DD",
  "total": 0.00,
  "items": [
    {"name": "...", "quantity": 1, "unit_price": 0.00, "total_price": 0.00}
  ]
}

Use null for any field you cannot read. Do not invent items that are not on the receipt. Exclude tax, subtotal, tip, and payment lines from items.`

// Config holds configuration for the vision client.
type Config struct {
	BaseURL     string
	Model       string
	Temperature float64
	Timeout     time.Duration
}

// Client calls an Ollama-compatible /api/generate endpoint with an
// attached image.
type Client struct {
	httpClient  *http.Client
	baseURL     string
	model       string
	temperature float64
}

// NewClient creates a vision client.
func NewClient(cfg Config) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("vision base URL is required")
	}

	model := cfg.Model
	if model == "" {
		model = DefaultModel
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		// Local vision models routinely take minutes on a dense receipt.
		timeout = 5 * time.Minute
	}

	return &Client{
		baseURL:     strings.TrimRight(cfg.BaseURL, "/"),
		model:       model,
		temperature: cfg.Temperature,
		httpClient: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				MaxIdleConns:        10,
				MaxIdleConnsPerHost: 2,
				IdleConnTimeout:     90 * time.Second,
			},
		},
	}, nil
}

type generateRequest struct {
	Model   string         `json:"model"`
	Prompt  string         `json:"prompt"`
	Images  []string       `json:"images"`
	Stream  bool           `json:"stream"`
	Options map[string]any `json:"options,omitempty"`
}

type generateResponse struct {
	Model    string `json:"model"`
	Response string `json:"response"`
	Done     bool   `json:"done"`
}

// ExtractText sends the receipt image to the model and returns its raw
// text response.
func (c *Client) ExtractText(ctx context.Context, image []byte) (string, error) {
	if len(image) == 0 {
		return "", fmt.Errorf("empty image")
	}

	prepared, err := PrepareImage(image)
	if err != nil {
		return "", fmt.Errorf("prepare image: %w", err)
	}

	requestBody := generateRequest{
		Model:  c.model,
		Prompt: extractionPrompt,
		Images: []string{base64.StdEncoding.EncodeToString(prepared)},
		Stream: false,
		Options: map[string]any{
			"temperature": c.temperature,
		},
	}

	jsonBody, err := json.Marshal(requestBody)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/generate", strings.NewReader(string(jsonBody)))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("vision API error (status %d): %s", resp.StatusCode, string(body))
	}

	var response generateResponse
	if err := json.Unmarshal(body, &response); err != nil {
		return "", fmt.Errorf("failed to parse response: %w", err)
	}

	if strings.TrimSpace(response.Response) == "" {
		return "", fmt.Errorf("no content in response")
	}
	return response.Response, nil
}
