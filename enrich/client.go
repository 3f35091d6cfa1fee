// Package enrich is the AI content helper: given a product name it suggests
// a menu description and price, or an image. It is a pure collaborator of
// the store - it never reads or writes state, its failures stay at the call
// site, and callers treat it as fire-and-forget-with-result.
package enrich

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/amorimbar/barpos/core"
)

const (
	// DefaultBaseURL is the default Gemini API endpoint
	DefaultBaseURL = "https://generativelanguage.googleapis.com/v1beta"

	defaultTimeout = 30 * time.Second
)

// Suggestion is the generated product copy.
type Suggestion struct {
	Description    string  `json:"description"`
	SuggestedPrice float64 `json:"suggestedPrice"`
}

// Client calls the Gemini GenerateContent API.
type Client struct {
	httpClient *http.Client
	apiKey     string
	baseURL    string
	model      string
	imageModel string
	logger     core.Logger
}

// NewClient creates a Gemini client from the AI configuration.
func NewClient(cfg core.AIConfig, logger core.Logger) *Client {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if logger == nil {
		logger = &core.NoOpLogger{}
	}
	return &Client{
		httpClient: &http.Client{Timeout: defaultTimeout},
		apiKey:     cfg.APIKey,
		baseURL:    baseURL,
		model:      cfg.Model,
		imageModel: cfg.ImageModel,
		logger:     logger,
	}
}

// SuggestDetails asks for a short description and price suggestion for a
// bar product, constrained to a JSON schema.
func (c *Client) SuggestDetails(ctx context.Context, productName string) (*Suggestion, error) {
	prompt := fmt.Sprintf(
		"Gerar uma descrição curta e apetitosa para um produto de bar chamado %q no tema country.",
		productName,
	)
	reqBody := geminiRequest{
		Contents: []content{
			{Role: "user", Parts: []part{{Text: prompt}}},
		},
		GenerationConfig: &generationConfig{
			ResponseMimeType: "application/json",
			ResponseSchema: &responseSchema{
				Type: "OBJECT",
				Properties: map[string]*responseSchema{
					"description":    {Type: "STRING"},
					"suggestedPrice": {Type: "NUMBER"},
				},
				Required: []string{"description", "suggestedPrice"},
			},
		},
	}

	resp, err := c.generate(ctx, c.model, reqBody)
	if err != nil {
		return nil, err
	}

	var text string
	for _, p := range resp.Candidates[0].Content.Parts {
		text += p.Text
	}
	if text == "" {
		return nil, fmt.Errorf("no text content in Gemini response")
	}

	var suggestion Suggestion
	if err := json.Unmarshal([]byte(text), &suggestion); err != nil {
		return nil, fmt.Errorf("failed to parse suggestion: %w", err)
	}
	return &suggestion, nil
}

// SuggestImage asks for a product photo and returns it as a data URL, or ""
// when the model returned no image part.
func (c *Client) SuggestImage(ctx context.Context, productName string) (string, error) {
	prompt := fmt.Sprintf(
		"A high quality, rustic, professional food photography of %s served at a country bar, wooden table background, warm lighting.",
		productName,
	)
	reqBody := geminiRequest{
		Contents: []content{
			{Parts: []part{{Text: prompt}}},
		},
	}

	resp, err := c.generate(ctx, c.imageModel, reqBody)
	if err != nil {
		return "", err
	}

	// The image part is not necessarily the first one.
	for _, p := range resp.Candidates[0].Content.Parts {
		if p.InlineData != nil {
			return "data:image/png;base64," + p.InlineData.Data, nil
		}
	}
	return "", nil
}

// generate performs one GenerateContent call and validates that at least
// one candidate came back.
func (c *Client) generate(ctx context.Context, model string, reqBody geminiRequest) (*geminiResponse, error) {
	if c.apiKey == "" {
		return nil, fmt.Errorf("gemini API key not configured")
	}
	if model == "" {
		return nil, fmt.Errorf("gemini model not configured")
	}

	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	url := fmt.Sprintf("%s/models/%s:generateContent?key=%s", c.baseURL, model, c.apiKey)
	req, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewBuffer(jsonData))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Error("Gemini request failed", map[string]interface{}{
			"model": model,
			"error": err.Error(),
		})
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		var apiErr errorResponse
		if json.Unmarshal(body, &apiErr) == nil && apiErr.Error.Message != "" {
			return nil, fmt.Errorf("gemini API error (HTTP %d): %s", resp.StatusCode, apiErr.Error.Message)
		}
		return nil, fmt.Errorf("gemini API error (HTTP %d)", resp.StatusCode)
	}

	var geminiResp geminiResponse
	if err := json.Unmarshal(body, &geminiResp); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}
	if len(geminiResp.Candidates) == 0 {
		return nil, fmt.Errorf("no candidates in Gemini response")
	}
	return &geminiResp, nil
}
