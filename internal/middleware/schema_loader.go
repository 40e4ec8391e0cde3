package middleware

import (
	"encoding/json"
	"os"

	"github.com/xeipuuv/gojsonschema"
	"gopkg.in/yaml.v2"

	contextutils "talentapp/internal/utils"
)

// DefaultSchemaFile is where schemas are read from when TALENTAPP_SCHEMA_FILE
// is not set.
const DefaultSchemaFile = "schemas.yaml"

// FeedbackLibrarySchema is the schema name checked against feedback catalog
// files before they replace an assessment's library.
const FeedbackLibrarySchema = "FeedbackLibrary"

// SchemaLoader holds compiled JSON schemas for externally supplied payloads:
// bulk import requests arriving over HTTP and feedback library files loaded
// through the adm CLI. Schemas are written in YAML with OpenAPI-style
// nullable flags and compiled down to draft-07 JSON schema.
type SchemaLoader struct {
	schemas map[string]*gojsonschema.Schema
}

// NewSchemaLoader creates an empty schema loader
func NewSchemaLoader() *SchemaLoader {
	return &SchemaLoader{
		schemas: make(map[string]*gojsonschema.Schema),
	}
}

// LoadSchemasFromFile loads every schema under the file's top-level
// "schemas" map. Schemas may reference each other with
// "#/schemas/<Name>" refs.
func (sl *SchemaLoader) LoadSchemasFromFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return contextutils.WrapError(err, "failed to read schema file")
	}

	var doc map[string]interface{}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return contextutils.WrapError(err, "failed to parse schema file as YAML")
	}

	rawSchemas, ok := doc["schemas"].(map[interface{}]interface{})
	if !ok {
		return contextutils.ErrorWithContextf("no schemas section found in %s", path)
	}

	// yaml.v2 produces interface{}-keyed maps; gojsonschema needs
	// JSON-compatible string-keyed ones.
	jsonSchemas := make(map[string]interface{})
	for name, schema := range rawSchemas {
		nameStr, ok := name.(string)
		if !ok {
			return contextutils.ErrorWithContextf("schema name is not a string: %v", name)
		}
		converted, err := convertToJSONCompatible(schema)
		if err != nil {
			return contextutils.WrapErrorf(err, "failed to convert schema %s", nameStr)
		}
		jsonSchemas[nameStr] = converted
	}

	for name := range jsonSchemas {
		// Compile each schema inside the full document so cross-schema
		// refs resolve.
		schemaDoc := map[string]interface{}{
			"$schema": "http://json-schema.org/draft-07/schema#",
			"schemas": jsonSchemas,
			"$ref":    "#/schemas/" + name,
		}

		schemaBytes, err := json.Marshal(schemaDoc)
		if err != nil {
			return contextutils.WrapErrorf(err, "failed to marshal schema %s", name)
		}

		compiled, err := gojsonschema.NewSchema(gojsonschema.NewBytesLoader(schemaBytes))
		if err != nil {
			return contextutils.WrapErrorf(err, "failed to compile schema %s", name)
		}

		sl.schemas[name] = compiled
	}

	return nil
}

// HasSchema reports whether a schema with the given name is loaded
func (sl *SchemaLoader) HasSchema(name string) bool {
	_, ok := sl.schemas[name]
	return ok
}

// ValidateData validates data against a loaded schema
func (sl *SchemaLoader) ValidateData(data interface{}, schemaName string) error {
	schema, exists := sl.schemas[schemaName]
	if !exists {
		return contextutils.ErrorWithContextf("schema %s not found", schemaName)
	}

	jsonData, err := json.Marshal(data)
	if err != nil {
		return contextutils.WrapError(err, "failed to marshal data")
	}

	result, err := schema.Validate(gojsonschema.NewBytesLoader(jsonData))
	if err != nil {
		return contextutils.WrapError(err, "validation error")
	}

	if !result.Valid() {
		details := ""
		for _, validationErr := range result.Errors() {
			if details != "" {
				details += "; "
			}
			details += validationErr.Field() + ": " + validationErr.Description()
		}
		return contextutils.ErrorWithContextf("schema validation failed: %s", details)
	}

	return nil
}

// LoadDefaultSchemas loads schemas from TALENTAPP_SCHEMA_FILE, falling back
// to schemas.yaml in the working directory. A missing file is not an error:
// the loader comes back empty and schema checks are skipped.
func LoadDefaultSchemas() (*SchemaLoader, error) {
	loader := NewSchemaLoader()

	path := os.Getenv("TALENTAPP_SCHEMA_FILE")
	if path == "" {
		path = DefaultSchemaFile
	}

	if _, err := os.Stat(path); err != nil {
		return loader, nil
	}

	if err := loader.LoadSchemasFromFile(path); err != nil {
		return nil, err
	}
	return loader, nil
}

// convertToJSONCompatible rewrites yaml.v2's interface{}-keyed maps into
// string-keyed ones and lowers OpenAPI-style "nullable: true" into draft-07
// union types.
func convertToJSONCompatible(data interface{}) (interface{}, error) {
	switch v := data.(type) {
	case map[interface{}]interface{}:
		result := make(map[string]interface{})
		hasNullable := false

		for k, val := range v {
			keyStr, ok := k.(string)
			if !ok {
				return nil, contextutils.ErrorWithContextf("key is not a string: %v", k)
			}

			if keyStr == "nullable" {
				if nullable, ok := val.(bool); ok && nullable {
					hasNullable = true
					continue
				}
			}

			convertedVal, err := convertToJSONCompatible(val)
			if err != nil {
				return nil, err
			}
			result[keyStr] = convertedVal
		}

		if hasNullable {
			if ref, hasRef := result["$ref"].(string); hasRef {
				result["oneOf"] = []interface{}{
					map[string]interface{}{"$ref": ref},
					map[string]interface{}{"enum": []interface{}{nil}},
				}
				delete(result, "$ref")
			} else if typeVal, hasType := result["type"].(string); hasType {
				result["type"] = []interface{}{typeVal, "null"}
			}
		}

		return result, nil
	case []interface{}:
		result := make([]interface{}, len(v))
		for i, val := range v {
			convertedVal, err := convertToJSONCompatible(val)
			if err != nil {
				return nil, err
			}
			result[i] = convertedVal
		}
		return result, nil
	default:
		return data, nil
	}
}
