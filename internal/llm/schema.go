package llm

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// responseSchema is the contract for the model's JSON reply. Positions are
// hints, so their entries stay loose and are filtered during normalization.
var responseSchema = map[string]any{
	"type":     "object",
	"required": []string{"auto_filled_data"},
	"properties": map[string]any{
		"auto_filled_data": map[string]any{
			"type": "object",
			"additionalProperties": map[string]any{
				"type": []string{"string", "number", "boolean", "null"},
			},
		},
		"placeholder_positions": map[string]any{
			"type": []string{"object", "null"},
			"additionalProperties": map[string]any{
				"type": []string{"object", "null"},
			},
		},
		"font_detection": map[string]any{
			"type": []string{"object", "null"},
			"properties": map[string]any{
				"font_name": map[string]any{"type": []string{"string", "null"}},
				"font_size": map[string]any{"type": []string{"number", "null"}},
			},
		},
	},
}

var (
	compileOnce    sync.Once
	compiledSchema *jsonschema.Schema
	compileErr     error
)

func schema() (*jsonschema.Schema, error) {
	compileOnce.Do(func() {
		b, err := json.Marshal(responseSchema)
		if err != nil {
			compileErr = fmt.Errorf("marshal schema: %w", err)
			return
		}
		compiler := jsonschema.NewCompiler()
		if err := compiler.AddResource("suggestion.json", bytes.NewReader(b)); err != nil {
			compileErr = fmt.Errorf("add schema: %w", err)
			return
		}
		compiledSchema, compileErr = compiler.Compile("suggestion.json")
	})
	return compiledSchema, compileErr
}

// ValidateResponse checks raw model output against the response schema.
func ValidateResponse(data []byte) error {
	s, err := schema()
	if err != nil {
		return err
	}
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return fmt.Errorf("unmarshal response: %w", err)
	}
	if err := s.Validate(v); err != nil {
		return fmt.Errorf("response does not match schema: %w", err)
	}
	return nil
}
