package metamodel

import (
	"context"
	"fmt"

	"github.com/google/uuid"
)

// Engine is the dependency-injected aggregate tying locator, registry,
// analyzer, resolver, and invoker together. Construct it explicitly; the
// only process-global state is the module registration table.
type Engine struct {
	config    *Config
	logger    Logger
	telemetry Telemetry
	store     ObjectStore

	locator      *Locator
	registry     *TypeRegistry
	resolver     *ConcreteResolver
	requirements *RequirementBuilder
	analyzer     *CapabilityAnalyzer
	invoker      *Invoker
}

// EngineOption customizes engine construction.
type EngineOption func(*Engine)

// WithLogger injects the logger used by every component.
func WithLogger(logger Logger) EngineOption {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithTelemetry injects the telemetry provider.
func WithTelemetry(telemetry Telemetry) EngineOption {
	return func(e *Engine) {
		if telemetry != nil {
			e.telemetry = telemetry
		}
	}
}

// WithObjectStore injects the persistence bridge. Nil disables saving.
func WithObjectStore(store ObjectStore) EngineOption {
	return func(e *Engine) {
		e.store = store
	}
}

// NewEngine assembles an engine from the configuration and options.
func NewEngine(config *Config, opts ...EngineOption) (*Engine, error) {
	if config == nil {
		return nil, NewEngineError("engine.NewEngine", "configuration",
			fmt.Errorf("%w: config is nil", ErrMissingConfiguration))
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}

	e := &Engine{
		config:    config,
		logger:    &NoOpLogger{},
		telemetry: &NoOpTelemetry{},
	}
	for _, opt := range opts {
		opt(e)
	}

	e.locator = NewLocator(config, e.logger)
	e.registry = NewTypeRegistry(e.locator, config, e.logger)
	e.resolver = NewConcreteResolver(e.locator, e.registry, e.logger)
	e.requirements = NewRequirementBuilder(e.resolver, e.registry, e.logger)
	e.analyzer = NewCapabilityAnalyzer(e.registry, e.resolver, e.requirements, e.logger, e.telemetry)
	e.invoker = NewInvoker(e.registry, e.resolver, e.store, e.logger, e.telemetry)

	return e, nil
}

// ListSupportedTypes returns the sorted names of the creatable model types.
func (e *Engine) ListSupportedTypes(ctx context.Context) ([]string, error) {
	_, span := e.telemetry.StartSpan(ctx, "engine.ListSupportedTypes")
	defer span.End()

	names, err := e.registry.ListSupportedTypes()
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	span.SetAttribute("type_count", len(names))
	return names, nil
}

// GetCapabilities returns the discovered capability set for the type.
func (e *Engine) GetCapabilities(ctx context.Context, typeName string) *ObjectCapabilities {
	_, span := e.telemetry.StartSpan(ctx, "engine.GetCapabilities")
	defer span.End()
	span.SetAttribute("type", typeName)

	return e.analyzer.GetCapabilities(typeName)
}

// ExecuteMutation runs one named operation against one named object. The
// result is always structured; only transport-level problems surface as
// Success=false with the error taxonomy message.
func (e *Engine) ExecuteMutation(ctx context.Context, objectType, objectName, operationName string, inputs map[string]interface{}) *ExecutionResult {
	ctx, span := e.telemetry.StartSpan(ctx, "engine.ExecuteMutation")
	defer span.End()
	span.SetAttribute("type", objectType)
	span.SetAttribute("operation", operationName)

	caps := e.analyzer.GetCapabilities(objectType)
	if !caps.Success {
		return &ExecutionResult{
			InvocationID: uuid.NewString(),
			Success:      false,
			Error:        caps.Error,
		}
	}

	capability := findCapability(caps.MutationCapabilities, operationName)
	if capability == nil {
		err := NewEngineError("engine.ExecuteMutation", "invocation",
			fmt.Errorf("%w: %s has no operation %q", ErrOperationNotFound, objectType, operationName))
		span.RecordError(err)
		return &ExecutionResult{
			InvocationID: uuid.NewString(),
			Success:      false,
			Error:        err.Error(),
		}
	}

	desc, err := e.registry.GetType(objectType)
	if err != nil {
		span.RecordError(err)
		return &ExecutionResult{
			InvocationID: uuid.NewString(),
			Success:      false,
			Error:        err.Error(),
		}
	}

	e.logger.Info("Executing mutation", map[string]interface{}{
		"type":      objectType,
		"object":    objectName,
		"operation": operationName,
	})
	return e.invoker.Execute(ctx, desc, objectName, capability, inputs)
}

func findCapability(mutations []MutationCapability, name string) *MutationCapability {
	for i := range mutations {
		if mutations[i].Name == name {
			return &mutations[i]
		}
	}
	return nil
}

// ClearCaches drops every cache, including the memoized library location.
func (e *Engine) ClearCaches(ctx context.Context) {
	_, span := e.telemetry.StartSpan(ctx, "engine.ClearCaches")
	defer span.End()

	e.analyzer.ClearCaches()
	e.resolver.ClearCaches()
	e.registry.ClearCaches()
	e.locator.Reset()

	e.logger.Info("Engine caches cleared", nil)
}

// GetStatistics reports cache sizes and the located library identity.
func (e *Engine) GetStatistics(ctx context.Context) Statistics {
	stats := Statistics{
		CachedTypeCount:       e.registry.CachedTypeCount(),
		CachedCapabilityCount: e.analyzer.CachedCapabilityCount(),
	}
	if names, err := e.registry.ListSupportedTypes(); err == nil {
		stats.SupportedTypeCount = len(names)
	}
	if module, err := e.locator.Locate(); err == nil {
		stats.LibraryIdentity = module.Name()
	}
	return stats
}
