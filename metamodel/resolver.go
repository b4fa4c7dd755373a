package metamodel

import (
	"fmt"
	"reflect"
	"sort"
	"sync"
)

// ConcreteResolver maps abstract foreign types to concrete implementations.
// Candidate scans are cached per abstract type until ClearCaches.
type ConcreteResolver struct {
	locator  *Locator
	registry *TypeRegistry
	logger   Logger

	candidateCache sync.Map // abstract qualified name -> []*TypeDescriptor
}

// NewConcreteResolver creates a resolver over the given registry.
func NewConcreteResolver(locator *Locator, registry *TypeRegistry, logger Logger) *ConcreteResolver {
	if logger == nil {
		logger = &NoOpLogger{}
	}
	return &ConcreteResolver{
		locator:  locator,
		registry: registry,
		logger:   logger,
	}
}

// ResolveConcrete picks the concrete type to instantiate for the given
// descriptor. A non-abstract descriptor resolves to itself. An explicit
// hint must name a concrete implementation of the abstract type or the
// resolution fails with ErrInvalidConcreteHint. Without a hint, a single
// implementation wins outright and multiple implementations fall back to
// the first in lexicographic name order; the returned candidate list lets
// callers surface the ambiguity.
func (r *ConcreteResolver) ResolveConcrete(abstract *TypeDescriptor, hint string) (*TypeDescriptor, []*TypeDescriptor, error) {
	if !abstract.IsAbstract {
		return abstract, nil, nil
	}

	candidates, err := r.Implementations(abstract)
	if err != nil {
		return nil, nil, err
	}

	if hint != "" {
		for _, c := range candidates {
			if c.Name == hint || c.QualifiedName == hint {
				return c, candidates, nil
			}
		}
		return nil, candidates, NewEngineError("resolver.ResolveConcrete", "resolution",
			fmt.Errorf("%w: %q is not a concrete implementation of %s",
				ErrInvalidConcreteHint, hint, abstract.Name))
	}

	switch len(candidates) {
	case 0:
		return nil, nil, NewEngineError("resolver.ResolveConcrete", "resolution",
			fmt.Errorf("%w: %s", ErrNoConcreteType, abstract.Name))
	case 1:
		return candidates[0], candidates, nil
	default:
		r.logger.Warn("Multiple concrete candidates, using lexicographic fallback", map[string]interface{}{
			"abstract": abstract.Name,
			"chosen":   candidates[0].Name,
			"count":    len(candidates),
		})
		return candidates[0], candidates, nil
	}
}

// Implementations returns the concrete types implementing the abstract
// type, sorted by name. Results are cached.
func (r *ConcreteResolver) Implementations(abstract *TypeDescriptor) ([]*TypeDescriptor, error) {
	if cached, ok := r.candidateCache.Load(abstract.QualifiedName); ok {
		return cached.([]*TypeDescriptor), nil
	}

	module, err := r.locator.Locate()
	if err != nil {
		return nil, err
	}

	iface := abstract.rtype
	var candidates []*TypeDescriptor
	for _, t := range module.Types() {
		if t.Kind() != reflect.Struct {
			continue
		}
		if t.Implements(iface) || reflect.PointerTo(t).Implements(iface) {
			candidates = append(candidates, r.registry.describe(module, t))
		}
	}
	sort.Slice(candidates, func(i, j int) bool {
		return candidates[i].Name < candidates[j].Name
	})

	actual, _ := r.candidateCache.LoadOrStore(abstract.QualifiedName, candidates)
	return actual.([]*TypeDescriptor), nil
}

// ClearCaches drops all cached candidate scans.
func (r *ConcreteResolver) ClearCaches() {
	r.candidateCache.Range(func(key, _ interface{}) bool {
		r.candidateCache.Delete(key)
		return true
	})
}
