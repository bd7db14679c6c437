package llm

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/zainab-noor-25/invoice-api/internal/common"
	"github.com/zainab-noor-25/invoice-api/internal/entity"
)

var (
	reFence     = regexp.MustCompile("(?s)^```[A-Za-z]*\\s*(.*?)\\s*```$")
	reNotAmount = regexp.MustCompile(`[^0-9.\-]`)
)

// ParseInvoiceFields decodes a model completion into fields.
// Anything that is not the five-key object fails with common.ErrModelOutput.
func ParseInvoiceFields(raw string) (entity.ExtractedFields, error) {
	var out entity.ExtractedFields

	s := strings.TrimSpace(raw)
	if m := reFence.FindStringSubmatch(s); m != nil {
		s = m[1]
	}
	i, j := strings.IndexByte(s, '{'), strings.LastIndexByte(s, '}')
	if i < 0 || j < i {
		return out, modelOutputError("no JSON object in completion", nil)
	}
	s = s[i : j+1]

	var v any
	if err := json.Unmarshal([]byte(s), &v); err != nil {
		return out, modelOutputError("completion is not valid JSON", err)
	}
	schema, err := invoiceSchema()
	if err != nil {
		return out, fmt.Errorf("invoice schema: %w", err)
	}
	if err := schema.Validate(v); err != nil {
		return out, modelOutputError("completion does not match the invoice schema", err)
	}

	m := v.(map[string]any)
	out.SupplierName = stringField(m[entity.FieldSupplierName])
	out.CustomerName = stringField(m[entity.FieldCustomerName])
	out.DateIssued = stringField(m[entity.FieldDateIssued])
	out.DueDate = stringField(m[entity.FieldDueDate])
	out.TotalAmount = amountField(m[entity.FieldTotalAmount])
	return out, nil
}

func stringField(v any) *string {
	s, ok := v.(string)
	if !ok {
		return nil
	}
	s = strings.TrimSpace(s)
	switch strings.ToLower(s) {
	case "", "null", "none", "n/a":
		return nil
	}
	return &s
}

func amountField(v any) *float64 {
	switch t := v.(type) {
	case float64:
		return &t
	case string:
		cleaned := reNotAmount.ReplaceAllString(t, "")
		if cleaned == "" {
			return nil
		}
		f, err := strconv.ParseFloat(cleaned, 64)
		if err != nil {
			return nil
		}
		return &f
	}
	return nil
}

func modelOutputError(msg string, cause error) error {
	if cause == nil {
		return common.NewAppError("MODEL_OUTPUT", msg, common.ErrModelOutput)
	}
	return common.NewAppError("MODEL_OUTPUT", msg, fmt.Errorf("%w: %w", common.ErrModelOutput, cause))
}
