package metamodel

import (
	"reflect"
)

// TypeDescriptor is the cached, structural description of one foreign type.
// Identity is the qualified name; a descriptor is immutable once computed and
// two lookups for the same qualified name return the same pointer.
type TypeDescriptor struct {
	Name          string                  `json:"name"`
	QualifiedName string                  `json:"qualified_name"`
	IsAbstract    bool                    `json:"is_abstract"`
	BaseTypeName  string                  `json:"base_type_name,omitempty"`
	Constructors  []ConstructorDescriptor `json:"constructors"`

	rtype reflect.Type
}

// GoType returns the underlying reflect.Type of the foreign type.
func (d *TypeDescriptor) GoType() reflect.Type {
	return d.rtype
}

// ConstructorDescriptor describes one constructor signature.
type ConstructorDescriptor struct {
	Parameters []ParameterDescriptor `json:"parameters"`
}

// ParameterDescriptor describes one operation or constructor parameter.
type ParameterDescriptor struct {
	Name         string      `json:"name"`
	Type         string      `json:"type"`
	IsOptional   bool        `json:"is_optional"`
	DefaultValue interface{} `json:"default_value,omitempty"`
}

// PropertyCapability describes one discovered property on a foreign type.
type PropertyCapability struct {
	Name                   string   `json:"name"`
	Type                   string   `json:"type"`
	Readable               bool     `json:"readable"`
	Writable               bool     `json:"writable"`
	IsCollection           bool     `json:"is_collection"`
	CollectionMutatorNames []string `json:"collection_mutator_names,omitempty"`
}

// MutationCapability describes one discovered mutation operation.
type MutationCapability struct {
	Name                  string                        `json:"name"`
	ReturnType            string                        `json:"return_type,omitempty"`
	Parameters            []ParameterDescriptor         `json:"parameters"`
	ParameterRequirements []ParameterCreationRequirement `json:"parameter_requirements"`

	paramTypes []reflect.Type
}

// ParameterTypes returns the reflect.Types of the operation's parameters,
// in declaration order.
func (c *MutationCapability) ParameterTypes() []reflect.Type {
	return c.paramTypes
}

// ParameterCreationRequirement is the full input schema for one parameter.
// For foreign-object parameters RequiredProperties lists the settable
// properties a caller can (or must) supply.
type ParameterCreationRequirement struct {
	ParameterName      string                `json:"parameter_name"`
	ParameterType      string                `json:"parameter_type"`
	Required           bool                  `json:"required"`
	RequiredProperties []PropertyRequirement `json:"required_properties,omitempty"`
}

// PropertyRequirement names one settable property of a foreign-object
// parameter. ExpectedInputKey is the exact key a caller must use - it is
// always the literal property name, no synonym matching is performed.
type PropertyRequirement struct {
	PropertyName     string `json:"property_name"`
	PropertyType     string `json:"property_type"`
	Required         bool   `json:"required"`
	ExpectedInputKey string `json:"expected_input_key"`
}

// ObjectCapabilities aggregates everything discovered about one type.
// A failed discovery produces Success=false with Error set instead of an
// error return, since callers branch on capability availability.
type ObjectCapabilities struct {
	TypeName             string                      `json:"type_name"`
	Success              bool                        `json:"success"`
	Error                string                      `json:"error,omitempty"`
	MutationCapabilities []MutationCapability        `json:"mutation_capabilities,omitempty"`
	WritableProperties   []PropertyCapability        `json:"writable_properties,omitempty"`
	InheritanceHierarchy map[string][]TypeDescriptor `json:"inheritance_hierarchy,omitempty"`
}

// ExecutionResult is the structured outcome of one mutation invocation.
// Saved is independent of Success: a failed save does not undo the
// in-memory mutation, so the invocation still reports success.
type ExecutionResult struct {
	InvocationID          string                 `json:"invocation_id"`
	Success               bool                   `json:"success"`
	Error                 string                 `json:"error,omitempty"`
	Warnings              []string               `json:"warnings,omitempty"`
	ReturnValue           interface{}            `json:"return_value,omitempty"`
	ReturnType            string                 `json:"return_type,omitempty"`
	ExecutionDurationMs   int64                  `json:"execution_duration_ms"`
	Saved                 bool                   `json:"saved"`
	SaveMessage           string                 `json:"save_message,omitempty"`
	ResolvedTypes         map[string]string      `json:"resolved_types,omitempty"`
	UpdatedObjectSnapshot map[string]interface{} `json:"updated_object_snapshot,omitempty"`
}

// Statistics reports cache and library state for monitoring.
type Statistics struct {
	CachedTypeCount       int    `json:"cached_type_count"`
	CachedCapabilityCount int    `json:"cached_capability_count"`
	SupportedTypeCount    int    `json:"supported_type_count"`
	LibraryIdentity       string `json:"library_identity,omitempty"`
}
