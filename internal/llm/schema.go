package llm

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// InvoiceFieldsSchema describes the only object shape accepted from the model.
// Keys may be omitted (treated as null); unknown keys are rejected.
func InvoiceFieldsSchema() map[string]any {
	nullableString := map[string]any{"type": []string{"string", "null"}}
	return map[string]any{
		"type":                 "object",
		"additionalProperties": false,
		"properties": map[string]any{
			"supplier_name": nullableString,
			"customer_name": nullableString,
			"date_issued":   nullableString,
			"due_date":      nullableString,
			"total_amount":  map[string]any{"type": []string{"number", "string", "null"}},
		},
	}
}

var invoiceSchema = sync.OnceValues(func() (*jsonschema.Schema, error) {
	return compileSchema(InvoiceFieldsSchema())
})

func compileSchema(schemaMap map[string]any) (*jsonschema.Schema, error) {
	b, err := json.Marshal(schemaMap)
	if err != nil {
		return nil, fmt.Errorf("marshal schema: %w", err)
	}
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("schema.json", bytes.NewReader(b)); err != nil {
		return nil, fmt.Errorf("add schema: %w", err)
	}
	schema, err := compiler.Compile("schema.json")
	if err != nil {
		return nil, fmt.Errorf("compile schema: %w", err)
	}
	return schema, nil
}
