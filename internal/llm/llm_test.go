package llm

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zainab-noor-25/invoice-api/internal/common"
)

func TestParseInvoiceFields(t *testing.T) {
	raw := "```json\n{\"supplier_name\":\"Globex\",\"customer_name\":\" Acme Corp \",\"date_issued\":\"2024-03-01\",\"due_date\":null,\"total_amount\":0}\n```"
	f, err := ParseInvoiceFields(raw)
	require.NoError(t, err)
	assert.Equal(t, "Globex", *f.SupplierName)
	assert.Equal(t, "Acme Corp", *f.CustomerName)
	assert.Equal(t, "2024-03-01", *f.DateIssued)
	assert.Nil(t, f.DueDate)
	require.NotNil(t, f.TotalAmount)
	assert.Equal(t, 0.0, *f.TotalAmount)
}

func TestParseInvoiceFieldsLenientValues(t *testing.T) {
	f, err := ParseInvoiceFields(`Here you go: {"customer_name":"null","total_amount":"$1,234.50"} thanks`)
	require.NoError(t, err)
	assert.Nil(t, f.CustomerName)
	assert.Nil(t, f.SupplierName)
	require.NotNil(t, f.TotalAmount)
	assert.InDelta(t, 1234.50, *f.TotalAmount, 1e-9)
}

func TestParseInvoiceFieldsRejectsOtherShapes(t *testing.T) {
	for name, raw := range map[string]string{
		"prose":      "I could not find an invoice.",
		"truncated":  `{"supplier_name": "Glo`,
		"extra key":  `{"supplier_name":"A","currency":"USD"}`,
		"wrong type": `{"customer_name": 42}`,
		"bad total":  `{"total_amount": true}`,
	} {
		t.Run(name, func(t *testing.T) {
			_, err := ParseInvoiceFields(raw)
			require.Error(t, err)
			assert.ErrorIs(t, err, common.ErrModelOutput)
		})
	}
}

func TestBuildExtractionPromptIsCapped(t *testing.T) {
	p := BuildExtractionPrompt(strings.Repeat("ß", 5000))
	assert.Equal(t, ExtractPromptLimit, utf8.RuneCountInString(p))
	assert.True(t, strings.HasPrefix(p, "Extract invoice fields"))
	assert.True(t, utf8.ValidString(p))
}

func TestBuildAnswerPrompt(t *testing.T) {
	p := BuildAnswerPrompt([]string{"chunk one", "chunk two"}, " who pays? ")
	assert.Contains(t, p, NotFoundAnswer)
	assert.Contains(t, p, "chunk one\n\nchunk two")
	assert.True(t, strings.HasSuffix(p, "QUESTION:\nwho pays?"))
}

func TestRequestMessages(t *testing.T) {
	msgs := Request{System: "sys", User: "hi"}.Messages()
	require.Len(t, msgs, 2)
	assert.Equal(t, "system", msgs[0].Role)
	assert.Len(t, Request{User: "hi"}.Messages(), 1)
}

func TestSendJSONStatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.Equal(t, "v", r.Header.Get("X-Test"))
		http.Error(w, "model not found", http.StatusNotFound)
	}))
	defer srv.Close()

	_, status, err := SendJSON(context.Background(), srv.Client(), srv.URL, map[string]string{"a": "b"}, map[string]string{"X-Test": "v"}, nil)
	require.Error(t, err)
	assert.Equal(t, http.StatusNotFound, status)
	assert.ErrorIs(t, err, common.ErrTransport)

	var se *StatusError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, http.StatusNotFound, se.Status)
}

func TestSendJSONUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	_, _, err := SendJSON(context.Background(), nil, url, map[string]string{}, nil, nil)
	assert.ErrorIs(t, err, common.ErrTransport)
}
