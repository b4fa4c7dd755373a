package metamodel

import (
	"context"
	"encoding"
	"fmt"
	"reflect"
	"strconv"
	"time"

	"github.com/google/uuid"
)

// ConcreteTypeHintKey is the reserved input key naming the concrete type
// to instantiate for an abstract parameter.
const ConcreteTypeHintKey = "concreteType"

// Invoker executes one discovered mutation against a target object:
// obtain the target, bind inputs to parameters, call the method, snapshot
// the result, and hand the object to the persistence bridge. Binding is
// best effort; problems accumulate as warnings and only the invocation
// itself can fail the execution.
type Invoker struct {
	registry  *TypeRegistry
	resolver  *ConcreteResolver
	store     ObjectStore
	logger    Logger
	telemetry Telemetry
}

// NewInvoker creates an invoker. A nil store disables persistence.
func NewInvoker(registry *TypeRegistry, resolver *ConcreteResolver, store ObjectStore, logger Logger, telemetry Telemetry) *Invoker {
	if logger == nil {
		logger = &NoOpLogger{}
	}
	if telemetry == nil {
		telemetry = &NoOpTelemetry{}
	}
	return &Invoker{
		registry:  registry,
		resolver:  resolver,
		store:     store,
		logger:    logger,
		telemetry: telemetry,
	}
}

// Execute runs the capability against the named object and reports the
// structured outcome. The target is loaded from the store when present,
// otherwise freshly constructed. A save failure is reported through
// Saved/SaveMessage and never flips Success.
func (inv *Invoker) Execute(ctx context.Context, desc *TypeDescriptor, objectName string, capability *MutationCapability, inputs map[string]interface{}) *ExecutionResult {
	started := time.Now()
	result := &ExecutionResult{
		InvocationID:  uuid.NewString(),
		ResolvedTypes: make(map[string]string),
	}
	defer func() {
		result.ExecutionDurationMs = time.Since(started).Milliseconds()
	}()

	target := inv.obtainTarget(ctx, desc, objectName, result)

	args := make([]reflect.Value, 0, len(capability.paramTypes))
	for i, pt := range capability.paramTypes {
		arg, err := inv.bindParameter(pt, capability.Parameters[i], inputs, result)
		if err != nil {
			result.Success = false
			result.Error = err.Error()
			inv.logger.Error("Abstract parameter resolution failed", map[string]interface{}{
				"type":      desc.Name,
				"object":    objectName,
				"operation": capability.Name,
				"parameter": capability.Parameters[i].Name,
				"error":     err.Error(),
			})
			inv.telemetry.RecordMetric("metamodel.invocations", 1, map[string]string{
				"operation": capability.Name,
				"outcome":   "error",
			})
			return result
		}
		args = append(args, arg)
	}

	returns, err := inv.call(target, capability.Name, args)
	if err != nil {
		result.Success = false
		result.Error = err.Error()
		inv.logger.Error("Mutation invocation failed", map[string]interface{}{
			"type":      desc.Name,
			"object":    objectName,
			"operation": capability.Name,
			"error":     err.Error(),
		})
		inv.telemetry.RecordMetric("metamodel.invocations", 1, map[string]string{
			"operation": capability.Name,
			"outcome":   "error",
		})
		return result
	}
	result.Success = true
	inv.captureReturn(returns, result)

	result.UpdatedObjectSnapshot = snapshotObject(target)

	inv.persist(ctx, desc, objectName, target.Interface(), result)

	inv.telemetry.RecordMetric("metamodel.invocations", 1, map[string]string{
		"operation": capability.Name,
		"outcome":   "success",
	})
	return result
}

// obtainTarget loads the named object from the store or constructs a fresh
// instance. The returned value is always a pointer to the declared type.
func (inv *Invoker) obtainTarget(ctx context.Context, desc *TypeDescriptor, objectName string, result *ExecutionResult) reflect.Value {
	if inv.store != nil {
		if existing := inv.store.FindExisting(ctx, desc.Name, objectName); existing != nil {
			v := reflect.ValueOf(existing)
			if v.Kind() == reflect.Pointer && v.Type().Elem() == desc.rtype {
				return v
			}
			result.Warnings = append(result.Warnings,
				fmt.Sprintf("stored object %q has type %s, expected %s; using a fresh instance",
					objectName, v.Type(), desc.Name))
		}
	}
	return reflect.New(desc.rtype)
}

// bindParameter materializes one argument from the caller inputs. Foreign
// object parameters are constructed and populated; primitives are coerced
// from the input matching the parameter name. Only abstract parameter
// resolution can fail the binding; everything else degrades to warnings.
func (inv *Invoker) bindParameter(pt reflect.Type, param ParameterDescriptor, inputs map[string]interface{}, result *ExecutionResult) (reflect.Value, error) {
	switch pt.Kind() {
	case reflect.Interface:
		return inv.bindAbstractParameter(pt, inputs, result)
	case reflect.Struct:
		ptr := reflect.New(pt)
		inv.populate(ptr, inputs, result)
		return ptr.Elem(), nil
	case reflect.Pointer:
		if pt.Elem().Kind() == reflect.Struct {
			ptr := reflect.New(pt.Elem())
			inv.populate(ptr, inputs, result)
			return ptr, nil
		}
	}

	raw, ok := inputs[param.Name]
	if !ok {
		result.Warnings = append(result.Warnings,
			fmt.Sprintf("no input for parameter %q, using zero value", param.Name))
		return reflect.Zero(pt), nil
	}
	v, warning := coerceValue(pt, raw)
	if warning != "" {
		result.Warnings = append(result.Warnings, warning)
	}
	return v, nil
}

// bindAbstractParameter resolves the concrete type for an interface
// parameter, honoring the concreteType hint, then constructs and
// populates an instance. An unresolvable abstract type aborts the
// execution; invoking with a nil stand-in would mutate the object with a
// value the caller never chose.
func (inv *Invoker) bindAbstractParameter(pt reflect.Type, inputs map[string]interface{}, result *ExecutionResult) (reflect.Value, error) {
	desc, err := inv.registry.GetType(pt.Name())
	if err != nil {
		return reflect.Value{}, NewEngineError("invoker.Execute", "resolution",
			fmt.Errorf("%w: abstract parameter type %s is not registered: %w",
				ErrAmbiguousConcreteType, pt.Name(), err))
	}

	hint, _ := inputs[ConcreteTypeHintKey].(string)
	concrete, candidates, err := inv.resolver.ResolveConcrete(desc, hint)
	if err != nil {
		return reflect.Value{}, NewEngineError("invoker.Execute", "resolution",
			fmt.Errorf("%w: %w", ErrAmbiguousConcreteType, err))
	}
	if hint == "" && len(candidates) > 1 {
		result.Warnings = append(result.Warnings,
			fmt.Sprintf("multiple concrete types implement %s, defaulted to %s", pt.Name(), concrete.Name))
	}
	result.ResolvedTypes[pt.Name()] = concrete.Name

	instance := reflect.New(concrete.rtype)
	inv.populate(instance, inputs, result)

	if instance.Type().Implements(pt) {
		return instance.Convert(pt), nil
	}
	return instance.Elem().Convert(pt), nil
}

// populate sets the exported fields of the struct behind ptr from inputs,
// matching keys to field names exactly. Absent required fields warn but
// never abort.
func (inv *Invoker) populate(ptr reflect.Value, inputs map[string]interface{}, result *ExecutionResult) {
	elem := ptr.Elem()
	t := elem.Type()
	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		if !field.IsExported() || field.Anonymous {
			continue
		}
		raw, ok := inputs[field.Name]
		if !ok {
			if isRequiredField(field) {
				result.Warnings = append(result.Warnings,
					fmt.Sprintf("required property %q of %s not provided", field.Name, t.Name()))
			}
			continue
		}
		v, warning := coerceValue(field.Type, raw)
		if warning != "" {
			result.Warnings = append(result.Warnings, warning)
			continue
		}
		elem.Field(i).Set(v)
	}
}

// call invokes the named method on the target, converting panics and
// trailing error returns into a wrapped invocation failure carrying the
// inner message.
func (inv *Invoker) call(target reflect.Value, name string, args []reflect.Value) (returns []reflect.Value, err error) {
	method := target.MethodByName(name)
	if !method.IsValid() {
		return nil, NewEngineError("invoker.Execute", "invocation",
			fmt.Errorf("%w: %s", ErrOperationNotFound, name))
	}

	defer func() {
		if r := recover(); r != nil {
			err = NewEngineError("invoker.Execute", "invocation",
				fmt.Errorf("%w: %v", ErrInvocationFailed, r))
		}
	}()

	returns = method.Call(args)

	if n := len(returns); n > 0 {
		last := returns[n-1]
		if last.Type() == reflect.TypeOf((*error)(nil)).Elem() && !last.IsNil() {
			return nil, NewEngineError("invoker.Execute", "invocation",
				fmt.Errorf("%w: %v", ErrInvocationFailed, last.Interface().(error)))
		}
	}
	return returns, nil
}

func (inv *Invoker) captureReturn(returns []reflect.Value, result *ExecutionResult) {
	for _, ret := range returns {
		if ret.Type() == reflect.TypeOf((*error)(nil)).Elem() {
			continue
		}
		result.ReturnValue = ret.Interface()
		result.ReturnType = displayTypeName(ret.Type())
		return
	}
}

// persist hands the mutated object to the store. Failure is recorded but
// the invocation outcome stands.
func (inv *Invoker) persist(ctx context.Context, desc *TypeDescriptor, objectName string, instance interface{}, result *ExecutionResult) {
	if inv.store == nil {
		result.SaveMessage = "persistence disabled"
		return
	}
	if inv.store.Save(ctx, desc.Name, objectName, instance) {
		result.Saved = true
		return
	}
	result.Saved = false
	result.SaveMessage = fmt.Sprintf("object %q mutated in memory but not persisted", objectName)
	inv.logger.Warn("Persistence bridge rejected save", map[string]interface{}{
		"type":   desc.Name,
		"object": objectName,
	})
}

// snapshotObject summarizes the mutated object: element counts for
// collection properties and the values of string properties.
func snapshotObject(target reflect.Value) map[string]interface{} {
	elem := target
	for elem.Kind() == reflect.Pointer {
		elem = elem.Elem()
	}
	if elem.Kind() != reflect.Struct {
		return nil
	}
	snapshot := make(map[string]interface{})
	t := elem.Type()
	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		if !field.IsExported() || field.Anonymous {
			continue
		}
		value := elem.Field(i)
		switch field.Type.Kind() {
		case reflect.Slice, reflect.Array, reflect.Map:
			snapshot[field.Name+"Count"] = value.Len()
		case reflect.String:
			snapshot[field.Name] = value.String()
		}
	}
	if len(snapshot) == 0 {
		return nil
	}
	return snapshot
}

// coerceValue converts a raw input to the target type. Assignable values
// pass through, numerics widen or narrow, enum-like named integer types
// accept their textual name (TextUnmarshaler) or ordinal, and booleans
// parse from strings. Anything else yields the zero value plus a warning.
func coerceValue(target reflect.Type, raw interface{}) (reflect.Value, string) {
	if raw == nil {
		return reflect.Zero(target), ""
	}
	rv := reflect.ValueOf(raw)
	if rv.Type().AssignableTo(target) {
		return rv, ""
	}
	if rv.Type().ConvertibleTo(target) && isNumericKind(rv.Kind()) && isNumericKind(target.Kind()) {
		return rv.Convert(target), ""
	}

	if s, ok := raw.(string); ok {
		if v, done := coerceFromString(target, s); done {
			return v, ""
		}
	}

	return reflect.Zero(target), fmt.Sprintf(
		"cannot coerce %T value to %s, using zero value", raw, displayTypeName(target))
}

func coerceFromString(target reflect.Type, s string) (reflect.Value, bool) {
	// Named enum-like types first match by name.
	if target.PkgPath() != "" && isNumericKind(target.Kind()) {
		ptr := reflect.New(target)
		if tu, ok := ptr.Interface().(encoding.TextUnmarshaler); ok {
			if err := tu.UnmarshalText([]byte(s)); err == nil {
				return ptr.Elem(), true
			}
		}
		if ordinal, err := strconv.ParseInt(s, 10, 64); err == nil {
			return reflect.ValueOf(ordinal).Convert(target), true
		}
		return reflect.Value{}, false
	}

	switch target.Kind() {
	case reflect.Bool:
		if b, err := strconv.ParseBool(s); err == nil {
			return reflect.ValueOf(b).Convert(target), true
		}
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		if n, err := strconv.ParseInt(s, 10, 64); err == nil {
			return reflect.ValueOf(n).Convert(target), true
		}
	case reflect.Float32, reflect.Float64:
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			return reflect.ValueOf(f).Convert(target), true
		}
	case reflect.String:
		return reflect.ValueOf(s).Convert(target), true
	}
	return reflect.Value{}, false
}

func isNumericKind(k reflect.Kind) bool {
	switch k {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return true
	}
	return false
}
