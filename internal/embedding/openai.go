package embedding

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

type OpenAIConfig struct {
	BaseURL    string // default https://api.openai.com/v1
	APIKey     string
	Model      string // default text-embedding-3-small
	Dimensions int
	Timeout    time.Duration
}

// OpenAIEmbedder talks to any OpenAI-compatible /embeddings endpoint.
type OpenAIEmbedder struct {
	cfg    OpenAIConfig
	client *http.Client
	log    *slog.Logger
}

var _ Embedder = (*OpenAIEmbedder)(nil)

func NewOpenAI(cfg OpenAIConfig, logger *slog.Logger) *OpenAIEmbedder {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.openai.com/v1"
	}
	if cfg.Model == "" {
		cfg.Model = "text-embedding-3-small"
	}
	if cfg.Dimensions == 0 {
		cfg.Dimensions = 1536
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = time.Minute
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	return &OpenAIEmbedder{cfg: cfg, client: &http.Client{Timeout: cfg.Timeout}, log: logger}
}

func (o *OpenAIEmbedder) Dimensions() int { return o.cfg.Dimensions }

func (o *OpenAIEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	headers := map[string]string{}
	if o.cfg.APIKey != "" {
		headers["Authorization"] = "Bearer " + o.cfg.APIKey
	}
	raw, _, err := llm.SendJSON(ctx, o.client, o.cfg.BaseURL+"/embeddings",
		map[string]string{"model": o.cfg.Model, "input": text}, headers, o.log)
	if err != nil {
		return nil, err
	}

	var out struct {
		Data []struct {
			Embedding []float32 `json:"embedding"`
		} `json:"data"`
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, common.TransportError("openai embeddings", fmt.Errorf("decode response: %w", err))
	}
	if len(out.Data) == 0 {
		return nil, common.TransportError("openai embeddings", fmt.Errorf("no embedding data in response"))
	}
	vec := out.Data[0].Embedding
	if err := checkDims("openai embeddings", vec, o.cfg.Dimensions); err != nil {
		return nil, err
	}
	return vec, nil
}
