package capability

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/getkin/kin-openapi/openapi3"
)

var emptyObjectSchema = json.RawMessage(`{"type":"object","properties":{}}`)

func (c *Capability) compileSchema() error {
	if len(c.InputSchema) == 0 {
		c.InputSchema = emptyObjectSchema
	}

	var schema openapi3.Schema
	if err := json.Unmarshal(c.InputSchema, &schema); err != nil {
		return fmt.Errorf("invalid input schema: %w", err)
	}
	if !schema.Type.Is(openapi3.TypeObject) {
		return fmt.Errorf("input schema must be of type object")
	}
	c.schema = &schema
	return nil
}

// ValidateArguments checks args against the input schema. A nil map is
// treated as no arguments.
func (c Capability) ValidateArguments(args map[string]any) error {
	if c.schema == nil {
		return nil
	}
	if args == nil {
		args = map[string]any{}
	}

	if err := c.schema.VisitJSON(args); err != nil {
		return &ArgumentError{Name: c.Name, Err: simplifySchemaError(err)}
	}
	return nil
}

// simplifySchemaError drops kin-openapi's embedded schema dump and keeps the
// failing location and reason on one line.
func simplifySchemaError(err error) error {
	var schemaErr *openapi3.SchemaError
	if !errors.As(err, &schemaErr) {
		return err
	}
	location := "/" + strings.Join(schemaErr.JSONPointer(), "/")
	if location == "/" {
		return errors.New(schemaErr.Reason)
	}
	return fmt.Errorf("%s: %s", location, schemaErr.Reason)
}
