package metamodel

import (
	"fmt"
	"plugin"
	"strings"
	"sync"
	"sync/atomic"
)

// maxConventionSamples bounds how many types the convention scan inspects
// per module before moving on.
const maxConventionSamples = 8

// Locator finds the foreign object-model module the engine operates on.
// Locate is safe for concurrent use and performs the search at most once
// per cache generation; both success and failure are memoized until
// Reset is called.
type Locator struct {
	config *Config
	logger Logger

	mu     sync.Mutex
	done   uint32
	module Module
	err    error
}

// NewLocator creates a locator for the given configuration.
func NewLocator(config *Config, logger Logger) *Locator {
	if logger == nil {
		logger = &NoOpLogger{}
	}
	return &Locator{
		config: config,
		logger: logger,
	}
}

// Locate returns the foreign module, searching for it on first call.
// Strategies are tried in order: anchor type lookup, naming-convention
// scan, native plugin load. All failing returns ErrLibraryNotFound.
func (l *Locator) Locate() (Module, error) {
	if atomic.LoadUint32(&l.done) == 1 {
		return l.module, l.err
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if l.done == 1 {
		return l.module, l.err
	}

	l.module, l.err = l.locate()
	atomic.StoreUint32(&l.done, 1)
	return l.module, l.err
}

// Reset forgets the memoized result so the next Locate searches again.
func (l *Locator) Reset() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.module = nil
	l.err = nil
	atomic.StoreUint32(&l.done, 0)
}

func (l *Locator) locate() (Module, error) {
	if m := l.byAnchorType(); m != nil {
		l.logger.Info("Located foreign library via anchor type", map[string]interface{}{
			"module":      m.Name(),
			"anchor_type": l.config.AnchorTypeName,
		})
		return m, nil
	}

	if m := l.byConvention(); m != nil {
		l.logger.Info("Located foreign library via naming convention", map[string]interface{}{
			"module":    m.Name(),
			"prefix":    l.config.TypePrefix,
			"namespace": l.config.Namespace,
		})
		return m, nil
	}

	if m, err := l.byNativeLoad(); err == nil && m != nil {
		l.logger.Info("Located foreign library via native load", map[string]interface{}{
			"module": m.Name(),
			"path":   l.config.LibraryPath,
		})
		return m, nil
	} else if err != nil {
		l.logger.Debug("Native library load failed", map[string]interface{}{
			"path":  l.config.LibraryPath,
			"error": err.Error(),
		})
	}

	l.logger.Error("Foreign library not found", map[string]interface{}{
		"anchor_type": l.config.AnchorTypeName,
		"prefix":      l.config.TypePrefix,
	})
	return nil, NewEngineError("locator.Locate", "library",
		fmt.Errorf("%w: no registered module matched anchor type %q, prefix %q, or library path %q",
			ErrLibraryNotFound, l.config.AnchorTypeName, l.config.TypePrefix, l.config.LibraryPath))
}

// byAnchorType looks for a registered module exposing the configured
// well-known type by short name.
func (l *Locator) byAnchorType() Module {
	if l.config.AnchorTypeName == "" {
		return nil
	}
	for _, m := range RegisteredModules() {
		for _, t := range m.Types() {
			if t.Name() == l.config.AnchorTypeName {
				return m
			}
		}
	}
	return nil
}

// byConvention scans registered modules for types whose names carry the
// configured prefix inside the configured namespace. Only a bounded
// sample of each module's types is inspected.
func (l *Locator) byConvention() Module {
	if l.config.TypePrefix == "" {
		return nil
	}
	for _, m := range RegisteredModules() {
		if l.config.Namespace != "" && m.Namespace() != l.config.Namespace {
			continue
		}
		types := m.Types()
		limit := len(types)
		if limit > maxConventionSamples {
			limit = maxConventionSamples
		}
		for _, t := range types[:limit] {
			if strings.HasPrefix(t.Name(), l.config.TypePrefix) {
				return m
			}
		}
	}
	return nil
}

// byNativeLoad opens the configured shared library and takes its exported
// Module symbol. Only attempted when a library path is configured.
func (l *Locator) byNativeLoad() (Module, error) {
	if l.config.LibraryPath == "" {
		return nil, nil
	}
	p, err := plugin.Open(l.config.LibraryPath)
	if err != nil {
		return nil, fmt.Errorf("open plugin: %w", err)
	}
	sym, err := p.Lookup("Module")
	if err != nil {
		return nil, fmt.Errorf("lookup Module symbol: %w", err)
	}
	switch v := sym.(type) {
	case Module:
		return v, nil
	case *Module:
		if *v != nil {
			return *v, nil
		}
		return nil, fmt.Errorf("Module symbol is nil")
	default:
		return nil, fmt.Errorf("Module symbol has unexpected type %T", sym)
	}
}
