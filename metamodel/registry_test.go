package metamodel_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ccampora/mcp-xpp-sub003/metamodel"
)

func TestGetTypeResolutionOrder(t *testing.T) {
	registry, _, _ := newTestComponents(t)

	byQualified, err := registry.GetType("Fixture.Model.AxWidget")
	require.NoError(t, err)
	assert.Equal(t, "AxWidget", byQualified.Name)

	byShort, err := registry.GetType("AxWidget")
	require.NoError(t, err)
	assert.Equal(t, "Fixture.Model.AxWidget", byShort.QualifiedName)
}

func TestGetTypeCachesDescriptors(t *testing.T) {
	registry, _, _ := newTestComponents(t)

	first, err := registry.GetType("AxWidget")
	require.NoError(t, err)
	second, err := registry.GetType("AxWidget")
	require.NoError(t, err)

	assert.Same(t, first, second)
	assert.Equal(t, 1, registry.CachedTypeCount())
}

func TestGetTypeNotFound(t *testing.T) {
	registry, _, _ := newTestComponents(t)

	_, err := registry.GetType("AxNoSuchThing")
	require.Error(t, err)
	assert.True(t, metamodel.IsNotFound(err))

	// A repeated miss is answered from cache with the same outcome.
	_, err = registry.GetType("AxNoSuchThing")
	assert.True(t, metamodel.IsNotFound(err))
}

func TestListSupportedTypesExcludesInfrastructure(t *testing.T) {
	registry, _, _ := newTestComponents(t)

	names, err := registry.ListSupportedTypes()
	require.NoError(t, err)

	assert.Equal(t, []string{"AxTable", "AxWidget"}, names)
	assert.NotContains(t, names, "AxFieldCollection")
	assert.NotContains(t, names, "AxNamingHelper")
	assert.NotContains(t, names, "StringPart")
}

func TestNewInstanceReturnsPointer(t *testing.T) {
	registry, _, _ := newTestComponents(t)

	instance, desc, err := registry.NewInstance("AxWidget")
	require.NoError(t, err)
	assert.Equal(t, "AxWidget", desc.Name)

	widget, ok := instance.(*AxWidget)
	require.True(t, ok)
	widget.Name = "w1"
}

func TestNewInstanceRejectsAbstractTypes(t *testing.T) {
	registry, _, _ := newTestComponents(t)

	_, _, err := registry.NewInstance("Part")
	require.Error(t, err)
	assert.ErrorIs(t, err, metamodel.ErrNoConcreteType)
}

func TestClearCachesResetsRegistry(t *testing.T) {
	registry, _, _ := newTestComponents(t)

	_, err := registry.GetType("AxWidget")
	require.NoError(t, err)
	require.Equal(t, 1, registry.CachedTypeCount())

	registry.ClearCaches()
	assert.Equal(t, 0, registry.CachedTypeCount())

	_, err = registry.GetType("AxWidget")
	assert.NoError(t, err)
}

func TestTypeDescriptorShape(t *testing.T) {
	registry, _, _ := newTestComponents(t)

	desc, err := registry.GetType("AxWidget")
	require.NoError(t, err)
	assert.False(t, desc.IsAbstract)
	require.Len(t, desc.Constructors, 1)
	assert.Empty(t, desc.Constructors[0].Parameters)

	part, err := registry.GetType("Part")
	require.NoError(t, err)
	assert.True(t, part.IsAbstract)
	assert.Empty(t, part.Constructors)
}
