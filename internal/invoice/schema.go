package invoice

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// DeltaSchema returns the JSON Schema of a delta object as a generic map.
// It is embedded in the model instruction and used to validate edits.
func DeltaSchema() map[string]any {
	props := map[string]any{
		"date":  map[string]any{"type": "string"},
		"rate":  numberProp(),
		"items": map[string]any{"type": "array", "items": map[string]any{"anyOf": []any{workItemSchema(), purchaseItemSchema()}}},
	}
	for key := range stringKeys {
		props[key] = map[string]any{"type": "string"}
	}
	return map[string]any{
		"type":                 "object",
		"additionalProperties": false,
		"properties":           props,
	}
}

func workItemSchema() map[string]any {
	return map[string]any{
		"type":                 "object",
		"additionalProperties": false,
		"properties": map[string]any{
			"type":        map[string]any{"const": string(ItemWork)},
			"day":         map[string]any{"type": "string"},
			"hours":       numberProp(),
			"rate":        numberProp(),
			"description": map[string]any{"type": "string"},
		},
	}
}

func purchaseItemSchema() map[string]any {
	return map[string]any{
		"type":                 "object",
		"additionalProperties": false,
		"required":             []string{"type"},
		"properties": map[string]any{
			"type":        map[string]any{"const": string(ItemPurchase)},
			"description": map[string]any{"type": "string"},
			"quantity":    numberProp(),
			"unitPrice":   numberProp(),
		},
	}
}

func numberProp() map[string]any {
	return map[string]any{"type": []string{"number", "string"}}
}

var compiledDeltaSchema = sync.OnceValues(func() (*jsonschema.Schema, error) {
	b, err := json.Marshal(DeltaSchema())
	if err != nil {
		return nil, fmt.Errorf("marshal schema: %w", err)
	}
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("delta.json", bytes.NewReader(b)); err != nil {
		return nil, fmt.Errorf("add schema: %w", err)
	}
	return compiler.Compile("delta.json")
})

// ValidateDelta checks raw JSON against DeltaSchema
func ValidateDelta(raw []byte) error {
	schema, err := compiledDeltaSchema()
	if err != nil {
		return fmt.Errorf("compile schema: %w", err)
	}
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return fmt.Errorf("unmarshal data: %w", err)
	}
	if err := schema.Validate(v); err != nil {
		return fmt.Errorf("json does not match schema: %w", err)
	}
	return nil
}
