package metamodel

import (
	"fmt"
	"reflect"
	"strings"
	"unicode"
	"unicode/utf8"
)

// RequirementBuilder expands operation parameters into the creation
// requirements a caller must satisfy. Foreign-object parameters expand one
// level deep into property requirements; nested objects are not recursed.
type RequirementBuilder struct {
	resolver *ConcreteResolver
	registry *TypeRegistry
	logger   Logger
}

// NewRequirementBuilder creates a builder over the given resolver.
func NewRequirementBuilder(resolver *ConcreteResolver, registry *TypeRegistry, logger Logger) *RequirementBuilder {
	if logger == nil {
		logger = &NoOpLogger{}
	}
	return &RequirementBuilder{
		resolver: resolver,
		registry: registry,
		logger:   logger,
	}
}

// Build produces one requirement per operation parameter, in declaration
// order.
func (b *RequirementBuilder) Build(params []ParameterDescriptor, paramTypes []reflect.Type) []ParameterCreationRequirement {
	requirements := make([]ParameterCreationRequirement, 0, len(paramTypes))
	for i, pt := range paramTypes {
		req := ParameterCreationRequirement{
			ParameterName: params[i].Name,
			ParameterType: params[i].Type,
			Required:      !params[i].IsOptional,
		}
		if target := b.propertyTarget(pt); target != nil {
			req.RequiredProperties = b.propertyRequirements(target)
		}
		requirements = append(requirements, req)
	}
	return requirements
}

// propertyTarget returns the struct type whose properties the caller can
// supply for the parameter, or nil for primitives. Abstract parameters use
// the default concrete resolution so the requirement reflects the type the
// engine would actually instantiate.
func (b *RequirementBuilder) propertyTarget(t reflect.Type) reflect.Type {
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	switch t.Kind() {
	case reflect.Struct:
		return t
	case reflect.Interface:
		desc, err := b.registry.GetType(t.Name())
		if err != nil {
			return nil
		}
		concrete, _, err := b.resolver.ResolveConcrete(desc, "")
		if err != nil {
			b.logger.Debug("No concrete target for abstract parameter", map[string]interface{}{
				"parameter_type": t.Name(),
				"error":          err.Error(),
			})
			return nil
		}
		return concrete.rtype
	default:
		return nil
	}
}

func (b *RequirementBuilder) propertyRequirements(t reflect.Type) []PropertyRequirement {
	var reqs []PropertyRequirement
	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		if !field.IsExported() || field.Anonymous {
			continue
		}
		reqs = append(reqs, PropertyRequirement{
			PropertyName: field.Name,
			PropertyType: displayTypeName(field.Type),
			Required:     isRequiredField(field),
			// Exact key only. Callers supply the literal property name.
			ExpectedInputKey: field.Name,
		})
	}
	return reqs
}

// isRequiredField marks plain scalar fields and explicitly tagged fields
// as required. Pointers, collections, and nested objects are optional by
// default.
func isRequiredField(field reflect.StructField) bool {
	if tag, ok := field.Tag.Lookup("meta"); ok {
		for _, part := range strings.Split(tag, ",") {
			if part == "required" {
				return true
			}
			if part == "optional" {
				return false
			}
		}
	}
	switch field.Type.Kind() {
	case reflect.String, reflect.Bool,
		reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return true
	default:
		return false
	}
}

// displayTypeName renders a type for descriptors: short names for named
// types, structural notation for pointers and collections.
func displayTypeName(t reflect.Type) string {
	switch t.Kind() {
	case reflect.Pointer:
		return "*" + displayTypeName(t.Elem())
	case reflect.Slice:
		return "[]" + displayTypeName(t.Elem())
	case reflect.Array:
		return fmt.Sprintf("[%d]%s", t.Len(), displayTypeName(t.Elem()))
	case reflect.Map:
		return "map[" + displayTypeName(t.Key()) + "]" + displayTypeName(t.Elem())
	default:
		if t.Name() != "" {
			return t.Name()
		}
		return t.String()
	}
}

// parameterName derives a caller-facing name for a parameter. Reflection
// carries no parameter names, so named types contribute a lowered form of
// their short name and everything else falls back to positional naming.
func parameterName(t reflect.Type, index int) string {
	base := t
	for base.Kind() == reflect.Pointer {
		base = base.Elem()
	}
	if base.Name() != "" && base.PkgPath() != "" {
		return lowerFirst(base.Name())
	}
	return fmt.Sprintf("arg%d", index)
}

func lowerFirst(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return s
	}
	return string(unicode.ToLower(r)) + s[size:]
}
