package metamodel

import (
	"fmt"
	"reflect"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
)

// registryEntry is a cached lookup result. A nil descriptor records a
// definitive not-found so repeated misses stay cheap.
type registryEntry struct {
	descriptor *TypeDescriptor
	err        error
}

// TypeRegistry resolves names to foreign type descriptors and enumerates
// the supported type set. All lookups are cached until ClearCaches.
type TypeRegistry struct {
	locator *Locator
	config  *Config
	logger  Logger

	typeCache     sync.Map // lookup name -> *registryEntry
	cachedCount   int64
	supportedMu   sync.Mutex
	supportedList []string
}

// NewTypeRegistry creates a registry over the given locator.
func NewTypeRegistry(locator *Locator, config *Config, logger Logger) *TypeRegistry {
	if logger == nil {
		logger = &NoOpLogger{}
	}
	return &TypeRegistry{
		locator: locator,
		config:  config,
		logger:  logger,
	}
}

// GetType resolves a type name to its descriptor. Resolution order:
// exact qualified name, namespace-composed name, then a scan of all
// short names. Both hits and misses are cached; repeated calls for the
// same name return the same descriptor pointer.
func (r *TypeRegistry) GetType(name string) (*TypeDescriptor, error) {
	if cached, ok := r.typeCache.Load(name); ok {
		entry := cached.(*registryEntry)
		return entry.descriptor, entry.err
	}

	module, err := r.locator.Locate()
	if err != nil {
		return nil, err
	}

	entry := r.resolve(module, name)
	if actual, loaded := r.typeCache.LoadOrStore(name, entry); loaded {
		entry = actual.(*registryEntry)
	} else if entry.descriptor != nil {
		atomic.AddInt64(&r.cachedCount, 1)
	}
	return entry.descriptor, entry.err
}

func (r *TypeRegistry) resolve(module Module, name string) *registryEntry {
	types := module.Types()

	// Exact qualified name.
	for _, t := range types {
		if r.qualifiedName(module, t) == name {
			return &registryEntry{descriptor: r.describe(module, t)}
		}
	}

	// Namespace-composed name.
	if module.Namespace() != "" && !strings.Contains(name, ".") {
		composed := module.Namespace() + "." + name
		for _, t := range types {
			if r.qualifiedName(module, t) == composed {
				return &registryEntry{descriptor: r.describe(module, t)}
			}
		}
	}

	// Full short-name scan.
	for _, t := range types {
		if t.Name() == name {
			return &registryEntry{descriptor: r.describe(module, t)}
		}
	}

	r.logger.Debug("Type not found in foreign library", map[string]interface{}{
		"type":   name,
		"module": module.Name(),
	})
	return &registryEntry{err: NewEngineError("registry.GetType", "type",
		fmt.Errorf("%w: %s", ErrTypeNotFound, name))}
}

// ListSupportedTypes enumerates the exported, concrete, default-constructible
// types of the library that match the naming-convention prefix, excluding
// infrastructure suffixes. The sorted list is cached until ClearCaches.
func (r *TypeRegistry) ListSupportedTypes() ([]string, error) {
	r.supportedMu.Lock()
	defer r.supportedMu.Unlock()
	if r.supportedList != nil {
		return r.supportedList, nil
	}

	module, err := r.locator.Locate()
	if err != nil {
		return nil, err
	}

	var names []string
	for _, t := range module.Types() {
		if !r.isSupported(t) {
			continue
		}
		names = append(names, t.Name())
	}
	sort.Strings(names)
	r.supportedList = names

	r.logger.Info("Enumerated supported types", map[string]interface{}{
		"count":  len(names),
		"module": module.Name(),
	})
	return names, nil
}

func (r *TypeRegistry) isSupported(t reflect.Type) bool {
	name := t.Name()
	if name == "" || t.Kind() != reflect.Struct {
		return false
	}
	if !strings.HasPrefix(name, r.config.TypePrefix) {
		return false
	}
	for _, suffix := range r.config.ExcludedSuffixes {
		if strings.HasSuffix(name, suffix) {
			return false
		}
	}
	return true
}

// NewInstance constructs a fresh zero-valued instance of the named type.
// The returned value is a pointer to the struct so mutations apply.
func (r *TypeRegistry) NewInstance(name string) (interface{}, *TypeDescriptor, error) {
	desc, err := r.GetType(name)
	if err != nil {
		return nil, nil, err
	}
	if desc.IsAbstract {
		return nil, nil, NewEngineError("registry.NewInstance", "type",
			fmt.Errorf("%w: %s is abstract", ErrNoConcreteType, name))
	}
	return reflect.New(desc.rtype).Interface(), desc, nil
}

// describe builds the immutable descriptor for one foreign type.
func (r *TypeRegistry) describe(module Module, t reflect.Type) *TypeDescriptor {
	desc := &TypeDescriptor{
		Name:          t.Name(),
		QualifiedName: r.qualifiedName(module, t),
		IsAbstract:    t.Kind() == reflect.Interface,
		rtype:         t,
	}
	if t.Kind() == reflect.Struct {
		if t.NumField() > 0 && t.Field(0).Anonymous {
			desc.BaseTypeName = t.Field(0).Type.Name()
		}
		// Concrete model types expose exactly the implicit zero-argument
		// constructor.
		desc.Constructors = []ConstructorDescriptor{{Parameters: []ParameterDescriptor{}}}
	}
	return desc
}

func (r *TypeRegistry) qualifiedName(module Module, t reflect.Type) string {
	if module.Namespace() == "" {
		return t.Name()
	}
	return module.Namespace() + "." + t.Name()
}

// CachedTypeCount reports how many distinct descriptors are cached.
func (r *TypeRegistry) CachedTypeCount() int {
	return int(atomic.LoadInt64(&r.cachedCount))
}

// ClearCaches drops all cached lookups and the supported-type list.
func (r *TypeRegistry) ClearCaches() {
	r.typeCache.Range(func(key, _ interface{}) bool {
		r.typeCache.Delete(key)
		return true
	})
	atomic.StoreInt64(&r.cachedCount, 0)
	r.supportedMu.Lock()
	r.supportedList = nil
	r.supportedMu.Unlock()
}
