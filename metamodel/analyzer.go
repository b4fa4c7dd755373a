package metamodel

import (
	"reflect"
	"sync"
	"sync/atomic"
)

// CapabilityAnalyzer discovers what can be done to each foreign type:
// mutation operations, writable properties, and the concrete candidates
// for abstract parameter types. Discovery runs once per type per cache
// generation.
type CapabilityAnalyzer struct {
	registry     *TypeRegistry
	resolver     *ConcreteResolver
	requirements *RequirementBuilder
	logger       Logger
	telemetry    Telemetry

	capabilityCache sync.Map // type name -> *ObjectCapabilities
	discoveryRuns   int64
	cachedCount     int64
}

// NewCapabilityAnalyzer creates an analyzer over the given registry and
// resolver.
func NewCapabilityAnalyzer(registry *TypeRegistry, resolver *ConcreteResolver, requirements *RequirementBuilder, logger Logger, telemetry Telemetry) *CapabilityAnalyzer {
	if logger == nil {
		logger = &NoOpLogger{}
	}
	if telemetry == nil {
		telemetry = &NoOpTelemetry{}
	}
	return &CapabilityAnalyzer{
		registry:     registry,
		resolver:     resolver,
		requirements: requirements,
		logger:       logger,
		telemetry:    telemetry,
	}
}

// GetCapabilities returns everything discovered about the named type.
// Unknown types produce a failed ObjectCapabilities value rather than an
// error, so callers can branch on Success uniformly. Results are cached;
// two calls for the same name trigger exactly one discovery.
func (a *CapabilityAnalyzer) GetCapabilities(typeName string) *ObjectCapabilities {
	if cached, ok := a.capabilityCache.Load(typeName); ok {
		return cached.(*ObjectCapabilities)
	}

	caps := a.discover(typeName)
	if actual, loaded := a.capabilityCache.LoadOrStore(typeName, caps); loaded {
		return actual.(*ObjectCapabilities)
	}
	atomic.AddInt64(&a.cachedCount, 1)
	return caps
}

func (a *CapabilityAnalyzer) discover(typeName string) *ObjectCapabilities {
	atomic.AddInt64(&a.discoveryRuns, 1)

	desc, err := a.registry.GetType(typeName)
	if err != nil {
		return &ObjectCapabilities{
			TypeName: typeName,
			Success:  false,
			Error:    err.Error(),
		}
	}

	caps := &ObjectCapabilities{
		TypeName: typeName,
		Success:  true,
	}
	caps.MutationCapabilities = a.discoverMutations(desc)
	caps.WritableProperties = a.discoverProperties(desc)
	caps.InheritanceHierarchy = a.discoverHierarchy(caps.MutationCapabilities)

	a.logger.Debug("Discovered capabilities", map[string]interface{}{
		"type":       typeName,
		"mutations":  len(caps.MutationCapabilities),
		"properties": len(caps.WritableProperties),
	})
	a.telemetry.RecordMetric("metamodel.capability.discoveries", 1, map[string]string{
		"type": typeName,
	})
	return caps
}

// discoverMutations classifies every exported method on the pointer type
// that takes at least one parameter beyond the receiver as a mutation.
// Zero-parameter methods are readers and excluded.
func (a *CapabilityAnalyzer) discoverMutations(desc *TypeDescriptor) []MutationCapability {
	ptr := reflect.PointerTo(desc.rtype)
	var mutations []MutationCapability
	for i := 0; i < ptr.NumMethod(); i++ {
		method := ptr.Method(i)
		mt := method.Type
		// In(0) is the receiver on a non-interface method set.
		if mt.NumIn() < 2 {
			continue
		}

		paramTypes := make([]reflect.Type, 0, mt.NumIn()-1)
		params := make([]ParameterDescriptor, 0, mt.NumIn()-1)
		for p := 1; p < mt.NumIn(); p++ {
			pt := mt.In(p)
			paramTypes = append(paramTypes, pt)
			params = append(params, ParameterDescriptor{
				Name:       parameterName(pt, p-1),
				Type:       displayTypeName(pt),
				IsOptional: false,
			})
		}

		capability := MutationCapability{
			Name:       method.Name,
			Parameters: params,
			paramTypes: paramTypes,
		}
		if mt.NumOut() > 0 {
			capability.ReturnType = displayTypeName(mt.Out(0))
		}
		capability.ParameterRequirements = a.requirements.Build(params, paramTypes)
		mutations = append(mutations, capability)
	}
	return mutations
}

// discoverProperties lists the exported struct fields. Fields are always
// readable; every exported field is settable through the pointer type, so
// writability follows directly. Collection-kind fields additionally carry
// the mutator method names of their element container type.
func (a *CapabilityAnalyzer) discoverProperties(desc *TypeDescriptor) []PropertyCapability {
	if desc.rtype.Kind() != reflect.Struct {
		return nil
	}
	var props []PropertyCapability
	for i := 0; i < desc.rtype.NumField(); i++ {
		field := desc.rtype.Field(i)
		if !field.IsExported() || field.Anonymous {
			continue
		}
		prop := PropertyCapability{
			Name:     field.Name,
			Type:     displayTypeName(field.Type),
			Readable: true,
			Writable: true,
		}
		switch field.Type.Kind() {
		case reflect.Slice, reflect.Array, reflect.Map:
			prop.IsCollection = true
			prop.CollectionMutatorNames = collectionMutators(field.Type)
		}
		props = append(props, prop)
	}
	return props
}

// collectionMutators lists exported methods on a named collection type
// that either take parameters or return nothing, i.e. methods that change
// the collection rather than read it.
func collectionMutators(t reflect.Type) []string {
	if t.Name() == "" {
		return nil
	}
	ptr := reflect.PointerTo(t)
	var names []string
	for i := 0; i < ptr.NumMethod(); i++ {
		method := ptr.Method(i)
		mt := method.Type
		if mt.NumIn() > 1 || mt.NumOut() == 0 {
			names = append(names, method.Name)
		}
	}
	return names
}

// discoverHierarchy walks every mutation's parameter types, keeps the ones
// belonging to the object library, and classifies each: abstract types
// expand to their concrete candidates, concrete types contribute a
// singleton entry. Primitives and types outside the library are filtered
// out by the registry lookup.
func (a *CapabilityAnalyzer) discoverHierarchy(mutations []MutationCapability) map[string][]TypeDescriptor {
	hierarchy := make(map[string][]TypeDescriptor)
	for _, m := range mutations {
		for _, pt := range m.paramTypes {
			for pt.Kind() == reflect.Pointer {
				pt = pt.Elem()
			}
			if pt.Name() == "" || pt.PkgPath() == "" {
				continue
			}
			if _, seen := hierarchy[pt.Name()]; seen {
				continue
			}
			desc, err := a.registry.GetType(pt.Name())
			if err != nil {
				continue
			}
			if !desc.IsAbstract {
				hierarchy[pt.Name()] = []TypeDescriptor{*desc}
				continue
			}
			candidates, err := a.resolver.Implementations(desc)
			if err != nil {
				continue
			}
			flattened := make([]TypeDescriptor, 0, len(candidates))
			for _, c := range candidates {
				flattened = append(flattened, *c)
			}
			hierarchy[pt.Name()] = flattened
		}
	}
	if len(hierarchy) == 0 {
		return nil
	}
	return hierarchy
}

// DiscoveryRuns reports how many discovery passes have executed. Cached
// hits do not increment it.
func (a *CapabilityAnalyzer) DiscoveryRuns() int64 {
	return atomic.LoadInt64(&a.discoveryRuns)
}

// CachedCapabilityCount reports how many capability sets are cached.
func (a *CapabilityAnalyzer) CachedCapabilityCount() int {
	return int(atomic.LoadInt64(&a.cachedCount))
}

// ClearCaches drops all cached capability sets.
func (a *CapabilityAnalyzer) ClearCaches() {
	a.capabilityCache.Range(func(key, _ interface{}) bool {
		a.capabilityCache.Delete(key)
		return true
	})
	atomic.StoreInt64(&a.cachedCount, 0)
}
