package openai

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

func TestCompleteChatCompletions(t *testing.T) {
	var body map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		_, _ = w.Write([]byte(`{"choices":[{"message":{"content":" {\"supplier_name\":\"Globex\"} "}}]}`))
	}))
	defer srv.Close()

	c := NewClient(Config{BaseURL: srv.URL + "/v1", APIKey: "sk-test"}, nil)
	out, err := c.Complete(context.Background(), llm.Request{User: "text", MaxTokens: 80, JSON: true})
	require.NoError(t, err)
	assert.Equal(t, `{"supplier_name":"Globex"}`, out)

	assert.Equal(t, "gpt-4o-mini", body["model"])
	assert.Equal(t, float64(80), body["max_tokens"])
	assert.Equal(t, map[string]any{"type": "json_object"}, body["response_format"])
}

func TestCompleteNoChoices(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"choices":[]}`))
	}))
	defer srv.Close()

	_, err := NewClient(Config{BaseURL: srv.URL, APIKey: "k"}, nil).Complete(context.Background(), llm.Request{User: "q"})
	assert.ErrorIs(t, err, common.ErrTransport)
}
