package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/starford/perthro/internal/apperr"
)

// searchSchema describes the POST /api/search body. Anomalies may be plain
// strings or {id, query} objects; entries of any other kind are dropped on
// decode.
var searchSchema = map[string]any{
	"$schema": "http://json-schema.org/draft-07/schema#",
	"type":    "object",
	"properties": map[string]any{
		"base_dir": map[string]any{"type": "string"},
		"anomalies": map[string]any{
			"type":     "array",
			"minItems": 1,
			"items": map[string]any{
				"if": map[string]any{"type": "object"},
				"then": map[string]any{
					"properties": map[string]any{
						"id":    map[string]any{"type": []any{"string", "integer", "null"}},
						"query": map[string]any{"type": "string"},
					},
				},
			},
		},
		"artifact_types": map[string]any{
			"type":  "array",
			"items": map[string]any{"type": "string"},
		},
		"max_results": map[string]any{"type": "integer", "minimum": 0},
	},
	"required":             []any{"anomalies"},
	"additionalProperties": false,
}

// compileSchema compiles a schema document held as a Go map.
func compileSchema(name string, schemaMap map[string]any) (*jsonschema.Schema, error) {
	b, err := json.Marshal(schemaMap)
	if err != nil {
		return nil, fmt.Errorf("marshal schema: %w", err)
	}
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource(name, bytes.NewReader(b)); err != nil {
		return nil, fmt.Errorf("add schema: %w", err)
	}
	schema, err := compiler.Compile(name)
	if err != nil {
		return nil, fmt.Errorf("compile schema: %w", err)
	}
	return schema, nil
}

// decodeSearch validates raw against the search schema and decodes it.
func decodeSearch(schema *jsonschema.Schema, raw []byte) (SearchRequest, error) {
	var req SearchRequest
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return req, fmt.Errorf("%w: invalid JSON body: %v", apperr.ErrInvalidRequest, err)
	}
	if err := schema.Validate(v); err != nil {
		return req, fmt.Errorf("%w: %v", apperr.ErrInvalidRequest, err)
	}
	if err := json.Unmarshal(raw, &req); err != nil {
		return req, fmt.Errorf("%w: invalid JSON body: %v", apperr.ErrInvalidRequest, err)
	}
	if err := validateSearch(&req); err != nil {
		return req, fmt.Errorf("%w: %v", apperr.ErrInvalidRequest, err)
	}
	return req, nil
}

// validateSearch checks the decoded request beyond what the schema expresses.
func validateSearch(req *SearchRequest) error {
	return validation.ValidateStruct(req,
		validation.Field(&req.Anomalies, validation.Required),
		validation.Field(&req.ArtifactTypes, validation.Each(validation.By(notBlank))),
		validation.Field(&req.MaxResults, validation.Min(0)),
	)
}

func notBlank(value any) error {
	s, _ := value.(string)
	if strings.TrimSpace(s) == "" {
		return fmt.Errorf("must not be blank")
	}
	return nil
}
