package llm

// ItemsEnvelopeSchema returns a JSON-Schema (draft 2020-12 subset) as a generic map for the
// extraction reply: either a bare array of entries, or an object carrying an "items" array.
// Entries themselves are not constrained here; they are normalized field by field.
func ItemsEnvelopeSchema() map[string]any {
	itemsArray := map[string]any{"type": "array"}
	return map[string]any{
		"oneOf": []any{
			itemsArray,
			map[string]any{
				"type":       "object",
				"properties": map[string]any{"items": itemsArray},
				"required":   []string{"items"},
			},
		},
	}
}
