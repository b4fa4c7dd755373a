package main

import (
	"fmt"
	"reflect"

	"github.com/ccampora/mcp-xpp-sub003/metamodel"
)

// Demo object model in the Ax naming convention. It stands in for the
// real metadata assembly so the engine has something to discover when
// run outside a development environment.

type AxTableField interface {
	FieldType() string
}

type AxStringField struct {
	Name      string
	Label     string
	MaxLength int
}

func (f *AxStringField) FieldType() string { return "string" }

type AxIntField struct {
	Name  string
	Label string
}

func (f *AxIntField) FieldType() string { return "int" }

type AxFieldList []AxTableField

func (l *AxFieldList) Add(f AxTableField) { *l = append(*l, f) }
func (l *AxFieldList) Clear()             { *l = nil }
func (l AxFieldList) Count() int          { return len(l) }

type AxTable struct {
	Name   string
	Label  string
	Fields AxFieldList
}

func (t *AxTable) AddField(f AxTableField) { t.Fields.Add(f) }
func (t *AxTable) SetLabel(label string)   { t.Label = label }

func (t *AxTable) Rename(name string) error {
	if name == "" {
		return fmt.Errorf("table name must not be empty")
	}
	t.Name = name
	return nil
}

type AxEnum struct {
	Name   string
	Values []string
}

func (e *AxEnum) AddValue(value string) { e.Values = append(e.Values, value) }

// Infrastructure types, excluded from the supported list by suffix.
type AxFieldCollection struct{}
type AxNamingHelper struct{}

func registerDemoModel() {
	metamodel.RegisterModule(&metamodel.StaticModule{
		ModuleName:      "demo-metadata-model",
		ModuleNamespace: "Demo.MetaModel",
		ModuleTypes: []reflect.Type{
			reflect.TypeOf(AxTable{}),
			reflect.TypeOf(AxEnum{}),
			reflect.TypeOf(AxStringField{}),
			reflect.TypeOf(AxIntField{}),
			reflect.TypeOf(AxFieldCollection{}),
			reflect.TypeOf(AxNamingHelper{}),
			reflect.TypeOf((*AxTableField)(nil)).Elem(),
		},
	})
}
