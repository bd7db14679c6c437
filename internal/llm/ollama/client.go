// Package ollama talks to a local Ollama server's chat endpoint.
package ollama

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/zainab-noor-25/invoice-api/internal/common"
	"github.com/zainab-noor-25/invoice-api/internal/llm"
)

const DefaultBaseURL = "http://127.0.0.1:11434"

type Config struct {
	BaseURL string
	Model   string
	Timeout time.Duration
}

type Client struct {
	cfg        Config
	httpClient *http.Client
	log        *slog.Logger
}

var _ llm.Completer = (*Client)(nil)

func NewClient(cfg Config, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = "qwen2.5:3b-instruct"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 2 * time.Minute
	}
	return &Client{cfg: cfg, httpClient: &http.Client{Timeout: cfg.Timeout}, log: logger}
}

type chatOptions struct {
	Temperature float32 `json:"temperature"`
	NumPredict  int     `json:"num_predict,omitempty"`
	NumCtx      int     `json:"num_ctx,omitempty"`
}

type chatRequest struct {
	Model    string        `json:"model"`
	Messages []llm.Message `json:"messages"`
	Stream   bool          `json:"stream"`
	Format   string        `json:"format,omitempty"`
	Options  chatOptions   `json:"options"`
}

type chatResponse struct {
	Message llm.Message `json:"message"`
	Error   string      `json:"error,omitempty"`
}

// Complete posts a non-streaming request to /api/chat.
func (c *Client) Complete(ctx context.Context, req llm.Request) (string, error) {
	start := time.Now()
	body := chatRequest{
		Model:    c.cfg.Model,
		Messages: req.Messages(),
		Options: chatOptions{
			Temperature: req.Temperature,
			NumPredict:  req.MaxTokens,
			NumCtx:      req.ContextWindow,
		},
	}
	if req.JSON {
		body.Format = "json"
	}

	url := strings.TrimRight(c.cfg.BaseURL, "/") + "/api/chat"
	raw, _, err := llm.SendJSON(ctx, c.httpClient, url, body, nil, c.log)
	if err != nil {
		c.log.Error("llm.ollama.chat_failed", "model", c.cfg.Model, "error", err, "elapsed_ms", time.Since(start).Milliseconds())
		return "", err
	}

	var out chatResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return "", common.TransportError("ollama chat", fmt.Errorf("decode response: %w", err))
	}
	if out.Error != "" {
		return "", common.TransportError("ollama chat", fmt.Errorf("%s", out.Error))
	}

	c.log.Info("llm.ollama.chat_ok",
		"model", c.cfg.Model,
		"chars", len(out.Message.Content),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return strings.TrimSpace(out.Message.Content), nil
}
