package transfer

import (
	"bytes"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v6"
	"gopkg.in/yaml.v3"
)

//go:embed schemas/*.schema.yaml
var schemaFS embed.FS

// ErrInvalidDocument is returned when an import does not match its schema
var ErrInvalidDocument = errors.New("invalid transfer document")

var (
	schemasOnce sync.Once
	schemas     map[string]*jsonschema.Schema
	schemasErr  error
)

// compiledSchema returns the compiled schema for a document kind
func compiledSchema(kind string) (*jsonschema.Schema, error) {
	schemasOnce.Do(func() {
		schemas, schemasErr = compileSchemas(KindPlan, KindInventory)
	})
	if schemasErr != nil {
		return nil, schemasErr
	}
	schema, ok := schemas[kind]
	if !ok {
		return nil, fmt.Errorf("no schema for document kind %q", kind)
	}
	return schema, nil
}

func compileSchemas(kinds ...string) (map[string]*jsonschema.Schema, error) {
	compiler := jsonschema.NewCompiler()
	out := make(map[string]*jsonschema.Schema, len(kinds))

	for _, kind := range kinds {
		raw, err := schemaFS.ReadFile("schemas/" + kind + ".schema.yaml")
		if err != nil {
			return nil, fmt.Errorf("failed to read %s schema: %w", kind, err)
		}

		// Schemas are authored in YAML; the compiler wants JSON values
		var doc map[string]interface{}
		if err := yaml.Unmarshal(raw, &doc); err != nil {
			return nil, fmt.Errorf("failed to parse %s schema: %w", kind, err)
		}
		schemaJSON, err := json.Marshal(doc)
		if err != nil {
			return nil, fmt.Errorf("failed to convert %s schema: %w", kind, err)
		}
		resource, err := jsonschema.UnmarshalJSON(bytes.NewReader(schemaJSON))
		if err != nil {
			return nil, fmt.Errorf("failed to load %s schema: %w", kind, err)
		}

		uri := fmt.Sprintf("transfer://schemas/%s.json", kind)
		if err := compiler.AddResource(uri, resource); err != nil {
			return nil, fmt.Errorf("failed to add %s schema: %w", kind, err)
		}
		compiled, err := compiler.Compile(uri)
		if err != nil {
			return nil, fmt.Errorf("failed to compile %s schema: %w", kind, err)
		}
		out[kind] = compiled
	}
	return out, nil
}

// validateDocument checks raw JSON against the schema of kind
func validateDocument(kind string, data []byte) error {
	schema, err := compiledSchema(kind)
	if err != nil {
		return err
	}

	instance, err := jsonschema.UnmarshalJSON(bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("%w: malformed JSON: %v", ErrInvalidDocument, err)
	}
	if err := schema.Validate(instance); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidDocument, err)
	}
	return nil
}
