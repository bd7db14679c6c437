package common

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("GO_ENVIRONMENT", "test")
	t.Setenv("CHUNK_SIZE", "")
	t.Setenv("TOP_K", "")

	cfg := LoadConfig()
	assert.Equal(t, "sqlite", cfg.Database.Driver)
	assert.Equal(t, ":8001", cfg.Server.HTTPAddr)
	assert.Equal(t, "http://127.0.0.1:11434", cfg.LLM.OllamaBaseURL)
	assert.Equal(t, "qwen2.5:3b-instruct", cfg.LLM.Model)
	assert.Equal(t, 1500, cfg.Pipeline.ChunkSize)
	assert.Equal(t, 150, cfg.Pipeline.ChunkOverlap)
	assert.Equal(t, 4, cfg.Pipeline.TopK)
	require.NoError(t, cfg.Validate())
}

func TestValidateRejectsOverlapNotSmallerThanSize(t *testing.T) {
	t.Setenv("GO_ENVIRONMENT", "test")
	t.Setenv("CHUNK_SIZE", "100")
	t.Setenv("CHUNK_OVERLAP", "100")

	err := LoadConfig().Validate()
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInvalidInput))

	var appErr *AppError
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, "CONFIG_ERROR", appErr.Code)
}

func TestValidateRequiresPostgresForPGVector(t *testing.T) {
	t.Setenv("GO_ENVIRONMENT", "test")
	t.Setenv("RETRIEVER", "pgvector")
	t.Setenv("DB_DRIVER", "sqlite")

	assert.ErrorIs(t, LoadConfig().Validate(), ErrInvalidInput)
}

func TestTransportErrorWrapsOnce(t *testing.T) {
	base := errors.New("connection refused")
	err := TransportError("ollama", base)
	assert.ErrorIs(t, err, ErrTransport)
	assert.ErrorIs(t, err, base)
	assert.Same(t, err, TransportError("outer", err))
	assert.Nil(t, TransportError("x", nil))
}

func TestRecognitionError(t *testing.T) {
	err := RecognitionError("no candidates", nil)
	assert.ErrorIs(t, err, ErrRecognition)

	cause := errors.New("exit status 1")
	err = RecognitionError("tesseract", cause)
	assert.ErrorIs(t, err, ErrRecognition)
	assert.ErrorIs(t, err, cause)
}

func TestValidator(t *testing.T) {
	v := NewValidator().
		Field("invoice_id", "not-a-uuid", Required, UUID).
		Field("question", "  ", Required, MaxLength(10))
	require.True(t, v.HasErrors())
	assert.Len(t, v.Errors(), 2)
	assert.ErrorIs(t, v.Err(), ErrValidation)

	ok := NewValidator().Field("question", "what is the total", Required, MaxLength(100))
	assert.NoError(t, ok.Err())
}

func TestContextValues(t *testing.T) {
	ctx := WithDocumentID(WithRequestID(context.Background(), "req-1"), "doc-1")
	assert.Equal(t, "req-1", RequestIDFromContext(ctx))
	assert.Equal(t, "doc-1", DocumentIDFromContext(ctx))
	assert.Empty(t, RequestIDFromContext(context.Background()))
}

func TestNewLoggerHonorsLevel(t *testing.T) {
	t.Setenv("LOG_LEVEL", "warn")
	t.Setenv("LOG_TIME", "false")
	var buf bytes.Buffer
	logger := NewLogger(&buf)
	logger.Info("hidden")
	logger.Warn("shown", "k", "v")
	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "msg=shown k=v")
	assert.NotContains(t, buf.String(), "time=")
	assert.Equal(t, slog.LevelDebug, ParseLevel(" DEBUG "))
}
