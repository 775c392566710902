package host

import (
	_ "embed"
	"fmt"
	"strings"

	"github.com/kaptinlin/jsonschema"
)

//go:embed capture.schema.json
var captureSchema []byte

// RequiredFields must be present in every capture payload.
var RequiredFields = []string{"id", "captured_at", "content_type", "content"}

func compileSchema() (*jsonschema.Schema, error) {
	compiler := jsonschema.NewCompiler()
	compiler.AssertFormat = true
	schema, err := compiler.Compile(captureSchema)
	if err != nil {
		return nil, fmt.Errorf("compile schema: %w", err)
	}
	return schema, nil
}

// checkPayload applies the field checks that have fixed user-facing
// messages. It returns "" when payload passes.
func checkPayload(payload any) string {
	obj, ok := payload.(map[string]any)
	if !ok {
		return "Payload must be a JSON object"
	}

	var missing []string
	for _, f := range RequiredFields {
		if _, ok := obj[f]; !ok {
			missing = append(missing, f)
		}
	}
	if len(missing) > 0 {
		return "Missing required fields: " + strings.Join(missing, ", ")
	}

	content, ok := obj["content"].(string)
	if !ok || strings.TrimSpace(content) == "" {
		return "Field 'content' must be a non-empty string"
	}
	return ""
}

// checkSchema validates the raw message against the capture schema.
func checkSchema(schema *jsonschema.Schema, msg []byte) string {
	result := schema.ValidateJSON(msg)
	if result.IsValid() {
		return ""
	}
	return fmt.Sprintf("schema validation failed: %v", result.Errors)
}
