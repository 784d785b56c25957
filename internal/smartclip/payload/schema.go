package payload

import (
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// Shape identifies which of the two payload layouts a reply used.
type Shape string

const (
	ShapeLegacy Shape = "legacy"
	ShapeTyped  Shape = "intent_type"
)

const legacySchema = `{
  "type": "object",
  "required": ["intent"],
  "properties": {
    "intent":                 {"type": "string"},
    "doc_title":              {"type": ["string", "null"]},
    "content":                {"type": ["string", "null"]},
    "position":               {"type": ["string", "null"]},
    "confirmation_needed":    {"type": ["boolean", "null"]},
    "system_action_required": {"type": ["string", "null"]}
  }
}`

const typedSchema = `{
  "type": "object",
  "required": ["intent_type"],
  "properties": {
    "intent_type":            {"type": "string"},
    "target_document":        {"type": ["string", "null"]},
    "content_to_process":     {"type": ["string", "null"]},
    "target_location_raw":    {"type": ["string", "null"]},
    "confirmation_needed":    {"type": ["boolean", "null"]},
    "system_action_required": {"type": ["string", "null"]}
  }
}`

var (
	legacyCompiled = jsonschema.MustCompileString("legacy.json", legacySchema)
	typedCompiled  = jsonschema.MustCompileString("intent_type.json", typedSchema)
)

// ShapeOf reports the layout Normalize will use for p.
func ShapeOf(p map[string]any) Shape {
	if _, ok := p["intent"]; ok {
		return ShapeLegacy
	}
	return ShapeTyped
}

// Check validates p against the schema of its shape. A violation does not
// stop normalization; callers log and count it.
func Check(p map[string]any) (Shape, error) {
	shape := ShapeOf(p)
	sch := typedCompiled
	if shape == ShapeLegacy {
		sch = legacyCompiled
	}
	if err := sch.Validate(p); err != nil {
		return shape, fmt.Errorf("payload: %s shape: %w", shape, err)
	}
	return shape, nil
}
