// Package schema converts discovered parameter requirements into JSON
// Schema documents so a tool layer can publish callable operation schemas.
package schema

import (
	"fmt"
	"strings"

	"github.com/invopop/jsonschema"

	"github.com/ccampora/mcp-xpp-sub003/metamodel"
)

// ForOperation builds a draft-07 object schema describing the inputs of
// one mutation. Each parameter becomes a property; foreign-object
// parameters flatten their property requirements into top-level keys,
// matching how the invoker consumes inputs.
func ForOperation(capability metamodel.MutationCapability) map[string]interface{} {
	properties := make(map[string]interface{})
	var required []string

	objectParam := false
	for _, req := range capability.ParameterRequirements {
		if len(req.RequiredProperties) == 0 {
			properties[req.ParameterName] = map[string]interface{}{
				"type":        jsonType(req.ParameterType),
				"description": fmt.Sprintf("Value for parameter %s (%s)", req.ParameterName, req.ParameterType),
			}
			if req.Required {
				required = append(required, req.ParameterName)
			}
			continue
		}

		for _, prop := range req.RequiredProperties {
			properties[prop.ExpectedInputKey] = map[string]interface{}{
				"type":        jsonType(prop.PropertyType),
				"description": fmt.Sprintf("Property %s of %s", prop.PropertyName, req.ParameterType),
			}
			if prop.Required {
				required = append(required, prop.ExpectedInputKey)
			}
		}
		objectParam = true
	}

	if objectParam {
		properties[metamodel.ConcreteTypeHintKey] = map[string]interface{}{
			"type":        "string",
			"description": "Concrete type to instantiate for an abstract parameter",
		}
	}

	s := map[string]interface{}{
		"$schema":    "http://json-schema.org/draft-07/schema#",
		"title":      capability.Name,
		"type":       "object",
		"properties": properties,
	}
	if len(required) > 0 {
		s["required"] = required
	}
	return s
}

// ForType reflects an arbitrary Go type into a full JSON schema document.
func ForType(v interface{}) *jsonschema.Schema {
	reflector := &jsonschema.Reflector{
		ExpandedStruct:            true,
		AllowAdditionalProperties: false,
		DoNotReference:            true,
	}
	return reflector.Reflect(v)
}

// jsonType maps a descriptor type name to its JSON Schema type.
func jsonType(typeName string) string {
	switch typeName {
	case "string":
		return "string"
	case "bool":
		return "boolean"
	case "int", "int8", "int16", "int32", "int64",
		"uint", "uint8", "uint16", "uint32", "uint64":
		return "integer"
	case "float32", "float64":
		return "number"
	}
	switch {
	case strings.HasPrefix(typeName, "[]"), strings.HasPrefix(typeName, "["):
		return "array"
	case strings.HasPrefix(typeName, "map["):
		return "object"
	case strings.HasPrefix(typeName, "*"):
		return jsonType(typeName[1:])
	}
	// Named foreign types: enums surface as strings (name or ordinal),
	// objects as flattened properties.
	return "string"
}
