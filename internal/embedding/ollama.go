package embedding

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/zainab-noor-25/invoice-api/internal/common"
	"github.com/zainab-noor-25/invoice-api/internal/llm"
)

const (
	DefaultOllamaURL   = "http://127.0.0.1:11434"
	DefaultOllamaModel = "nomic-embed-text"
	DefaultDimensions  = 768 // nomic-embed-text
)

type OllamaConfig struct {
	BaseURL    string
	Model      string
	Dimensions int
	Timeout    time.Duration
}

// OllamaEmbedder calls /api/embeddings and falls back to /api/embed on servers
// that only ship the newer endpoint.
type OllamaEmbedder struct {
	cfg    OllamaConfig
	client *http.Client
	log    *slog.Logger
}

var _ Embedder = (*OllamaEmbedder)(nil)

func NewOllama(cfg OllamaConfig, logger *slog.Logger) *OllamaEmbedder {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultOllamaURL
	}
	if cfg.Model == "" {
		cfg.Model = DefaultOllamaModel
	}
	if cfg.Dimensions == 0 {
		cfg.Dimensions = DefaultDimensions
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = time.Minute
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	return &OllamaEmbedder{cfg: cfg, client: &http.Client{Timeout: cfg.Timeout}, log: logger}
}

func (o *OllamaEmbedder) Dimensions() int { return o.cfg.Dimensions }

func (o *OllamaEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	raw, _, err := llm.SendJSON(ctx, o.client, o.cfg.BaseURL+"/api/embeddings",
		map[string]string{"model": o.cfg.Model, "prompt": text}, nil, o.log)
	if err == nil {
		var out struct {
			Embedding []float64 `json:"embedding"`
		}
		if err := json.Unmarshal(raw, &out); err != nil {
			return nil, common.TransportError("ollama embeddings", fmt.Errorf("decode response: %w", err))
		}
		vec := toFloat32(out.Embedding)
		if err := checkDims("ollama embeddings", vec, o.cfg.Dimensions); err != nil {
			return nil, err
		}
		return vec, nil
	}

	var se *llm.StatusError
	if !errors.As(err, &se) || se.Status != http.StatusNotFound {
		return nil, err
	}
	o.log.Debug("embedding.ollama.legacy_endpoint_missing", "model", o.cfg.Model)
	return o.embedV2(ctx, text)
}

func (o *OllamaEmbedder) embedV2(ctx context.Context, text string) ([]float32, error) {
	raw, _, err := llm.SendJSON(ctx, o.client, o.cfg.BaseURL+"/api/embed",
		map[string]string{"model": o.cfg.Model, "input": text}, nil, o.log)
	if err != nil {
		return nil, err
	}
	var out struct {
		Embeddings [][]float64 `json:"embeddings"`
		Embedding  []float64   `json:"embedding"`
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, common.TransportError("ollama embed", fmt.Errorf("decode response: %w", err))
	}
	v := out.Embedding
	if len(out.Embeddings) > 0 {
		v = out.Embeddings[0]
	}
	vec := toFloat32(v)
	if err := checkDims("ollama embed", vec, o.cfg.Dimensions); err != nil {
		return nil, err
	}
	return vec, nil
}
