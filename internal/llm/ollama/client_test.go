package ollama

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zainab-noor-25/invoice-api/internal/common"
	"github.com/zainab-noor-25/invoice-api/internal/llm"
)

func TestCompleteSendsDeterministicOptions(t *testing.T) {
	var got chatRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/chat", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_ = json.NewEncoder(w).Encode(map[string]any{
			"message": map[string]string{"role": "assistant", "content": "  {\"total_amount\": 10}  "},
		})
	}))
	defer srv.Close()

	c := NewClient(Config{BaseURL: srv.URL + "/", Model: "qwen2.5:3b-instruct"}, nil)
	out, err := c.Complete(context.Background(), llm.Request{
		System:        llm.ExtractionSystemPrompt,
		User:          "OCR TEXT",
		MaxTokens:     llm.ExtractMaxTokens,
		ContextWindow: llm.ExtractContextWindow,
		JSON:          true,
	})
	require.NoError(t, err)
	assert.Equal(t, `{"total_amount": 10}`, out)

	assert.Equal(t, "qwen2.5:3b-instruct", got.Model)
	assert.False(t, got.Stream)
	assert.Equal(t, "json", got.Format)
	assert.Equal(t, float32(0), got.Options.Temperature)
	assert.Equal(t, 80, got.Options.NumPredict)
	assert.Equal(t, 1024, got.Options.NumCtx)
	require.Len(t, got.Messages, 2)
	assert.Equal(t, "system", got.Messages[0].Role)
}

func TestCompleteServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	_, err := NewClient(Config{BaseURL: srv.URL}, nil).Complete(context.Background(), llm.Request{User: "q"})
	assert.ErrorIs(t, err, common.ErrTransport)
}

func TestCompleteErrorField(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"error":"model requires more system memory"}`))
	}))
	defer srv.Close()

	_, err := NewClient(Config{BaseURL: srv.URL}, nil).Complete(context.Background(), llm.Request{User: "q"})
	assert.ErrorIs(t, err, common.ErrTransport)
}
