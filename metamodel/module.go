package metamodel

import (
	"fmt"
	"reflect"
	"sort"
	"sync"
)

// Module is the engine's view of a foreign object-model library: a named
// provider of Go types. Implementations are typically generated or
// hand-written adapters over the actual model package.
type Module interface {
	// Name identifies the library build (used as LibraryIdentity).
	Name() string
	// Namespace is the logical namespace the module's types live in.
	Namespace() string
	// Types returns every type the module exposes. The returned types are
	// the value types; the engine derives pointer types itself.
	Types() []reflect.Type
}

var (
	modulesMu sync.RWMutex
	modules   = make(map[string]Module)
)

// RegisterModule makes a foreign object-model module available to locators
// under its Name. It panics if called twice with the same name, matching
// the database/sql driver registration contract.
func RegisterModule(m Module) {
	modulesMu.Lock()
	defer modulesMu.Unlock()
	if m == nil {
		panic("metamodel: RegisterModule with nil module")
	}
	if _, dup := modules[m.Name()]; dup {
		panic(fmt.Sprintf("metamodel: RegisterModule called twice for module %q", m.Name()))
	}
	modules[m.Name()] = m
}

// UnregisterAllModules clears the registration table. Intended for tests.
func UnregisterAllModules() {
	modulesMu.Lock()
	defer modulesMu.Unlock()
	modules = make(map[string]Module)
}

// RegisteredModules returns the registered modules in name order.
func RegisteredModules() []Module {
	modulesMu.RLock()
	defer modulesMu.RUnlock()
	names := make([]string, 0, len(modules))
	for name := range modules {
		names = append(names, name)
	}
	sort.Strings(names)
	out := make([]Module, 0, len(names))
	for _, name := range names {
		out = append(out, modules[name])
	}
	return out
}

// StaticModule is a trivial Module backed by a fixed type list. It is the
// common way to expose a compiled-in foreign model.
type StaticModule struct {
	ModuleName      string
	ModuleNamespace string
	ModuleTypes     []reflect.Type
}

func (m *StaticModule) Name() string          { return m.ModuleName }
func (m *StaticModule) Namespace() string     { return m.ModuleNamespace }
func (m *StaticModule) Types() []reflect.Type { return m.ModuleTypes }
