package cli

import (
	"bytes"
	"context"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zainab-noor-25/invoice-api/internal/app"
	"github.com/zainab-noor-25/invoice-api/internal/common"
	"github.com/zainab-noor-25/invoice-api/internal/llm"
)

const text = `ACME SUPPLIES LTD
INVOICE 88
Invoice Date: 05/06/2024
Bill To:
Jane Doe Consulting
Grand Total $450.00
Please pay by bank transfer`

type textRecognizer struct{}

func (textRecognizer) Recognize(context.Context, []byte) (string, error) { return text, nil }

type completer struct{}

func (completer) Complete(_ context.Context, req llm.Request) (string, error) {
	if req.System == llm.ExtractionSystemPrompt {
		return `{"supplier_name":"Acme Supplies Ltd","customer_name":"Jane Doe Consulting","date_issued":"2024-06-05","due_date":null,"total_amount":450}`, nil
	}
	return "By bank transfer.", nil
}

type embedder struct{}

func (embedder) Dimensions() int                                  { return 2 }
func (embedder) Embed(context.Context, string) ([]float32, error) { return []float32{1, 1}, nil }

type env struct {
	dir  string
	open Opener
}

func newEnv(t *testing.T) *env {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("GO_ENVIRONMENT", "test")
	t.Setenv("DB_DRIVER", "sqlite")
	t.Setenv("SQLITE_PATH", filepath.Join(dir, "cli.db"))
	t.Setenv("UPLOAD_DIR", filepath.Join(dir, "uploads"))
	t.Setenv("OCR_MIN_WIDTH", "8")
	t.Setenv("LLM_PROVIDER", "ollama")
	t.Setenv("EMBEDDING_PROVIDER", "ollama")
	t.Setenv("RETRIEVER", "local")
	cfg := common.LoadConfig()
	return &env{dir: dir, open: func(ctx context.Context) (*app.App, error) {
		a, err := app.New(ctx, cfg, nil,
			app.WithRecognizer(textRecognizer{}),
			app.WithCompleter(completer{}),
			app.WithEmbedder(embedder{}),
		)
		if err == nil {
			t.Cleanup(func() { a.Close(context.Background()) })
		}
		return a, err
	}}
}

func (e *env) run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	root := NewRootCmd(e.open)
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func writeImage(t *testing.T, path string) {
	t.Helper()
	f, err := os.Create(path)
	require.NoError(t, err)
	require.NoError(t, png.Encode(f, image.NewGray(image.Rect(0, 0, 10, 10))))
	require.NoError(t, f.Close())
}

func TestProcessListAskExport(t *testing.T) {
	e := newEnv(t)
	src := filepath.Join(e.dir, "acme.png")
	writeImage(t, src)

	out, err := e.run(t, "process", src)
	require.NoError(t, err)
	assert.Contains(t, out, `"supplier_name": "Acme Supplies Ltd"`)
	assert.Contains(t, out, `"status": "fields_extracted"`)

	out, err = e.run(t, "process", src)
	require.NoError(t, err)
	assert.Contains(t, out, "already ingested")

	out, err = e.run(t, "list")
	require.NoError(t, err)
	assert.Contains(t, out, "Acme Supplies Ltd")
	assert.Contains(t, out, "450.00")
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 2)
	id := strings.Fields(lines[1])[0]

	out, err = e.run(t, "ask", id, "total", "amount?")
	require.NoError(t, err)
	assert.Equal(t, "450\n", out)

	out, err = e.run(t, "ask", id, "how", "do", "I", "pay")
	require.NoError(t, err)
	assert.Contains(t, out, "By bank transfer.")

	out, err = e.run(t, "reprocess", id)
	require.NoError(t, err)
	assert.Contains(t, out, id)

	xlsx := filepath.Join(e.dir, "out.xlsx")
	_, err = e.run(t, "export", xlsx)
	require.NoError(t, err)
	info, err := os.Stat(xlsx)
	require.NoError(t, err)
	assert.Positive(t, info.Size())
}

func TestProcessDirectory(t *testing.T) {
	e := newEnv(t)
	in := filepath.Join(e.dir, "inbox")
	require.NoError(t, os.Mkdir(in, 0o755))
	writeImage(t, filepath.Join(in, "a.png"))

	out, err := e.run(t, "process", in)
	require.NoError(t, err)
	assert.Contains(t, out, "ingested 1 of 1 matching files")
}

func TestArgumentErrors(t *testing.T) {
	e := newEnv(t)

	_, err := e.run(t, "reprocess", "nope")
	assert.ErrorIs(t, err, common.ErrInvalidInput)

	_, err = e.run(t, "reprocess", uuid.NewString())
	assert.ErrorIs(t, err, common.ErrNotFound)

	_, err = e.run(t, "process", filepath.Join(e.dir, "missing.png"))
	assert.ErrorIs(t, err, common.ErrInvalidInput)
}
