// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Tessera Contributors

package config

import (
	"bytes"
	"encoding/json"
	"strings"
	"sync"

	"github.com/invopop/jsonschema"
	"github.com/samber/oops"
	jschema "github.com/santhosh-tekuri/jsonschema/v6"
	"gopkg.in/yaml.v3"
)

// SchemaID is the $id of the generated schema, for use in editor integrations.
const SchemaID = "https://tessera.build/schemas/tessera.schema.json"

var (
	schemaMu    sync.Mutex
	schemaCache *jschema.Schema
)

// GenerateSchema reflects a JSON Schema from the Config struct.
func GenerateSchema() ([]byte, error) {
	r := jsonschema.Reflector{
		DoNotReference: true,
	}
	schema := r.Reflect(&Config{})

	schema.ID = jsonschema.ID(SchemaID)
	schema.Title = "Tessera Build Configuration"
	schema.Description = "Schema for tessera.yaml files"

	data, err := json.MarshalIndent(schema, "", "  ")
	if err != nil {
		return nil, oops.Wrapf(err, "failed to marshal schema")
	}
	return data, nil
}

// ValidateSchema validates raw YAML against the configuration schema.
func ValidateSchema(data []byte) error {
	errb := oops.Code(CodeSchemaViolation)
	if len(data) == 0 {
		return errb.Errorf("config data is empty")
	}

	var doc any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return errb.Wrapf(err, "invalid YAML")
	}

	// Round-trip through JSON so the validator sees json.Number and plain maps.
	raw, err := json.Marshal(doc)
	if err != nil {
		return errb.Wrapf(err, "config is not representable as JSON")
	}
	inst, err := jschema.UnmarshalJSON(bytes.NewReader(raw))
	if err != nil {
		return errb.Wrapf(err, "config is not representable as JSON")
	}

	sch, err := compiledSchema()
	if err != nil {
		return err
	}
	if err := sch.Validate(inst); err != nil {
		return errb.Wrapf(err, "schema validation failed")
	}
	return nil
}

func compiledSchema() (*jschema.Schema, error) {
	schemaMu.Lock()
	defer schemaMu.Unlock()
	if schemaCache != nil {
		return schemaCache, nil
	}

	schemaBytes, err := GenerateSchema()
	if err != nil {
		return nil, err
	}
	schemaDoc, err := jschema.UnmarshalJSON(bytes.NewReader(schemaBytes))
	if err != nil {
		return nil, oops.Wrapf(err, "failed to parse schema JSON")
	}

	c := jschema.NewCompiler()
	if err := c.AddResource("tessera.schema.json", schemaDoc); err != nil {
		return nil, oops.Wrapf(err, "failed to add schema resource")
	}
	sch, err := c.Compile("tessera.schema.json")
	if err != nil {
		return nil, oops.Wrapf(err, "failed to compile schema")
	}

	schemaCache = sch
	return sch, nil
}

// FormatSchemaError trims wrapping from a validation error for display.
func FormatSchemaError(err error) string {
	if err == nil {
		return ""
	}
	msg := err.Error()
	if i := strings.Index(msg, "schema validation failed: "); i >= 0 {
		msg = msg[i+len("schema validation failed: "):]
	}
	return msg
}
