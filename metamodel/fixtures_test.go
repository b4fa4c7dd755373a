package metamodel_test

import (
	"errors"
	"fmt"
	"reflect"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ccampora/mcp-xpp-sub003/metamodel"
)

// Test model: a small object library in the foreign naming convention.
// AxWidget is the mutable root, Part the abstract slot type with two
// concrete implementations.

type Part interface {
	PartKind() string
}

type StringPart struct {
	Name  string
	Value string
}

func (p *StringPart) PartKind() string { return "string" }

type NumberPart struct {
	Name  string
	Value float64
}

func (p *NumberPart) PartKind() string { return "number" }

type PartColor int

const (
	ColorNone PartColor = iota
	ColorRed
	ColorBlue
)

func (c *PartColor) UnmarshalText(text []byte) error {
	switch string(text) {
	case "none":
		*c = ColorNone
	case "red":
		*c = ColorRed
	case "blue":
		*c = ColorBlue
	default:
		return fmt.Errorf("unknown color %q", text)
	}
	return nil
}

type WidgetParts []Part

func (c *WidgetParts) Add(p Part)   { *c = append(*c, p) }
func (c *WidgetParts) Clear()       { *c = nil }
func (c WidgetParts) Count() int    { return len(c) }
func (c WidgetParts) At(i int) Part { return c[i] }

// Seal has no concrete implementation in the fixture module.
type Seal interface {
	SealKind() string
}

type AxWidget struct {
	Name  string
	Code  string
	Color PartColor
	Parts WidgetParts
}

func (w *AxWidget) AddPart(p Part)       { w.Parts.Add(p) }
func (w *AxWidget) Attach(p StringPart)  { w.Parts.Add(&p) }
func (w *AxWidget) SetSeal(s Seal)       {}
func (w *AxWidget) SetCode(code string)  { w.Code = code }
func (w *AxWidget) SetColor(c PartColor) { w.Color = c }
func (w *AxWidget) Validate() error      { return nil }

func (w *AxWidget) Rename(name string) string {
	previous := w.Name
	w.Name = name
	return previous
}

func (w *AxWidget) SetName(name string) error {
	if name == "" {
		return errors.New("name must not be empty")
	}
	w.Name = name
	return nil
}

func (w *AxWidget) Explode(reason string) {
	panic("widget exploded: " + reason)
}

type AxTable struct {
	Label string
}

func (t *AxTable) SetLabel(label string) { t.Label = label }

// Infrastructure types that must not appear in the supported list.
type AxFieldCollection struct{}
type AxNamingHelper struct{}

func fixtureModule() metamodel.Module {
	return &metamodel.StaticModule{
		ModuleName:      "fixture-model",
		ModuleNamespace: "Fixture.Model",
		ModuleTypes: []reflect.Type{
			reflect.TypeOf(AxWidget{}),
			reflect.TypeOf(AxTable{}),
			reflect.TypeOf(AxFieldCollection{}),
			reflect.TypeOf(AxNamingHelper{}),
			reflect.TypeOf(StringPart{}),
			reflect.TypeOf(NumberPart{}),
			reflect.TypeOf((*Part)(nil)).Elem(),
			reflect.TypeOf((*Seal)(nil)).Elem(),
		},
	}
}

func registerFixtures(t *testing.T) {
	t.Helper()
	metamodel.UnregisterAllModules()
	metamodel.RegisterModule(fixtureModule())
	t.Cleanup(metamodel.UnregisterAllModules)
}

func newTestConfig(t *testing.T, opts ...metamodel.Option) *metamodel.Config {
	t.Helper()
	base := []metamodel.Option{
		metamodel.WithAnchorType("AxWidget"),
		metamodel.WithTypePrefix("Ax"),
	}
	config, err := metamodel.NewConfig(append(base, opts...)...)
	require.NoError(t, err)
	return config
}

func newTestEngine(t *testing.T, opts ...metamodel.EngineOption) *metamodel.Engine {
	t.Helper()
	registerFixtures(t)
	engine, err := metamodel.NewEngine(newTestConfig(t), opts...)
	require.NoError(t, err)
	return engine
}

// newTestComponents wires the discovery pipeline without the engine facade
// for tests that inspect individual components.
func newTestComponents(t *testing.T) (*metamodel.TypeRegistry, *metamodel.ConcreteResolver, *metamodel.CapabilityAnalyzer) {
	t.Helper()
	registerFixtures(t)
	config := newTestConfig(t)
	locator := metamodel.NewLocator(config, nil)
	registry := metamodel.NewTypeRegistry(locator, config, nil)
	resolver := metamodel.NewConcreteResolver(locator, registry, nil)
	requirements := metamodel.NewRequirementBuilder(resolver, registry, nil)
	analyzer := metamodel.NewCapabilityAnalyzer(registry, resolver, requirements, nil, nil)
	return registry, resolver, analyzer
}
