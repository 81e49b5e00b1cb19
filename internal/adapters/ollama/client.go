// Package ollama provides an adapter for the Ollama LLM service.
// It implements the language model port by sending chat requests, optionally
// with an attached image, to an Ollama instance and returning the raw reply.
package ollama

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/oauth2"

	"github.com/geomoodmap/backend/internal/core/domain"
	"github.com/geomoodmap/backend/internal/core/ports"
)

const (
	defaultBaseURL = "http://localhost:11434"
	defaultModel   = "llama3.2"
	defaultVision  = "llava"
	defaultTimeout = 30 * time.Second
)

var _ ports.LanguageModel = (*Client)(nil)

// Config configures a Client. Zero values fall back to local defaults.
type Config struct {
	BaseURL     string
	Model       string
	VisionModel string
	// APIKey is sent as a bearer token when the endpoint sits behind a gateway.
	APIKey  string
	Timeout time.Duration
}

type Client struct {
	baseURL     string
	model       string
	visionModel string
	httpClient  *http.Client
}

type chatMessage struct {
	Role    string   `json:"role"`
	Content string   `json:"content"`
	Images  []string `json:"images,omitempty"`
}

type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
	Stream   bool          `json:"stream"`
	Format   string        `json:"format,omitempty"`
}

type chatResponse struct {
	Message chatMessage `json:"message"`
	Error   string      `json:"error,omitempty"`
}

func NewClient(cfg Config) *Client {
	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	model := cfg.Model
	if model == "" {
		model = defaultModel
	}
	vision := cfg.VisionModel
	if vision == "" {
		vision = defaultVision
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	httpClient := &http.Client{Timeout: timeout}
	if cfg.APIKey != "" {
		httpClient.Transport = &oauth2.Transport{
			Source: oauth2.StaticTokenSource(&oauth2.Token{AccessToken: cfg.APIKey, TokenType: "Bearer"}),
			Base:   http.DefaultTransport,
		}
	}

	return &Client{
		baseURL:     baseURL,
		model:       model,
		visionModel: vision,
		httpClient:  httpClient,
	}
}

func (c *Client) Complete(ctx context.Context, prompt string) (string, error) {
	return c.chat(ctx, chatRequest{
		Model:  c.model,
		Stream: false,
		Format: "json",
		Messages: []chatMessage{
			{Role: "user", Content: prompt},
		},
	})
}

func (c *Client) CompleteWithImage(ctx context.Context, prompt string, picture domain.Picture) (string, error) {
	if len(picture.Data) == 0 {
		return "", fmt.Errorf("ollama: empty image")
	}
	return c.chat(ctx, chatRequest{
		Model:  c.visionModel,
		Stream: false,
		Format: "json",
		Messages: []chatMessage{
			{
				Role:    "user",
				Content: prompt,
				Images:  []string{base64.StdEncoding.EncodeToString(picture.Data)},
			},
		},
	})
}

func (c *Client) chat(ctx context.Context, payload chatRequest) (string, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("ollama: marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/chat", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("ollama: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("ollama: request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", fmt.Errorf("ollama: unexpected status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
	}

	var parsed chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", fmt.Errorf("ollama: decode response: %w", err)
	}
	if parsed.Error != "" {
		return "", fmt.Errorf("ollama: %s", parsed.Error)
	}

	content := strings.TrimSpace(parsed.Message.Content)
	if content == "" {
		return "", fmt.Errorf("ollama: empty response")
	}
	return content, nil
}
