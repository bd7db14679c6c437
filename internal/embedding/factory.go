package embedding

import (
	"log/slog"

	"github.com/zainab-noor-25/invoice-api/internal/common"
)

// New builds the embedder selected by EMBEDDING_PROVIDER.
func New(cfg *common.Config, logger *slog.Logger) (Embedder, error) {
	switch cfg.Embedding.Provider {
	case "", "ollama":
		return NewOllama(OllamaConfig{
			BaseURL:    cfg.LLM.OllamaBaseURL,
			Model:      cfg.Embedding.Model,
			Dimensions: cfg.Embedding.Dim,
			Timeout:    cfg.Embedding.Timeout,
		}, logger), nil
	case "openai":
		return NewOpenAI(OpenAIConfig{
			BaseURL:    cfg.LLM.OpenAIBaseURL,
			APIKey:     cfg.LLM.APIKey,
			Model:      cfg.Embedding.Model,
			Dimensions: cfg.Embedding.Dim,
			Timeout:    cfg.Embedding.Timeout,
		}, logger), nil
	}
	return nil, common.InvalidInputf("unknown embedding provider %q", cfg.Embedding.Provider)
}
