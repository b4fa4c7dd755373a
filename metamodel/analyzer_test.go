package metamodel_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ccampora/mcp-xpp-sub003/metamodel"
)

func findMutation(t *testing.T, caps *metamodel.ObjectCapabilities, name string) metamodel.MutationCapability {
	t.Helper()
	for _, m := range caps.MutationCapabilities {
		if m.Name == name {
			return m
		}
	}
	t.Fatalf("mutation %s not discovered", name)
	return metamodel.MutationCapability{}
}

func TestGetCapabilitiesDiscoversMutations(t *testing.T) {
	_, _, analyzer := newTestComponents(t)

	caps := analyzer.GetCapabilities("AxWidget")
	require.True(t, caps.Success)

	names := make([]string, 0, len(caps.MutationCapabilities))
	for _, m := range caps.MutationCapabilities {
		names = append(names, m.Name)
	}
	assert.Contains(t, names, "AddPart")
	assert.Contains(t, names, "SetCode")
	assert.Contains(t, names, "Rename")
	// Zero-parameter methods are readers, not mutations.
	assert.NotContains(t, names, "Validate")

	rename := findMutation(t, caps, "Rename")
	assert.Equal(t, "string", rename.ReturnType)
	require.Len(t, rename.Parameters, 1)
	assert.Equal(t, "arg0", rename.Parameters[0].Name)
	assert.False(t, rename.Parameters[0].IsOptional)
}

func TestGetCapabilitiesDiscoversWritableProperties(t *testing.T) {
	_, _, analyzer := newTestComponents(t)

	caps := analyzer.GetCapabilities("AxWidget")
	require.True(t, caps.Success)

	byName := make(map[string]metamodel.PropertyCapability)
	for _, p := range caps.WritableProperties {
		byName[p.Name] = p
	}

	name, ok := byName["Name"]
	require.True(t, ok)
	assert.True(t, name.Writable)
	assert.True(t, name.Readable)
	assert.False(t, name.IsCollection)

	parts, ok := byName["Parts"]
	require.True(t, ok)
	assert.True(t, parts.IsCollection)
	assert.Contains(t, parts.CollectionMutatorNames, "Add")
	assert.Contains(t, parts.CollectionMutatorNames, "Clear")
	assert.NotContains(t, parts.CollectionMutatorNames, "Count")
}

func TestGetCapabilitiesBuildsHierarchy(t *testing.T) {
	_, _, analyzer := newTestComponents(t)

	caps := analyzer.GetCapabilities("AxWidget")
	require.True(t, caps.Success)

	candidates, ok := caps.InheritanceHierarchy["Part"]
	require.True(t, ok)
	require.Len(t, candidates, 2)
	assert.Equal(t, "NumberPart", candidates[0].Name)
	assert.Equal(t, "StringPart", candidates[1].Name)
}

func TestGetCapabilitiesHierarchyClassifiesConcreteAndAbstract(t *testing.T) {
	_, _, analyzer := newTestComponents(t)

	caps := analyzer.GetCapabilities("AxWidget")
	require.True(t, caps.Success)

	// Concrete library-typed parameter yields a singleton entry.
	singleton, ok := caps.InheritanceHierarchy["StringPart"]
	require.True(t, ok)
	require.Len(t, singleton, 1)
	assert.Equal(t, "StringPart", singleton[0].Name)
	assert.False(t, singleton[0].IsAbstract)

	// Abstract parameter without implementations still gets its entry.
	seal, ok := caps.InheritanceHierarchy["Seal"]
	require.True(t, ok)
	assert.Empty(t, seal)

	// Primitives and types outside the library contribute nothing.
	_, ok = caps.InheritanceHierarchy["string"]
	assert.False(t, ok)
	_, ok = caps.InheritanceHierarchy["PartColor"]
	assert.False(t, ok)
}

func TestGetCapabilitiesUnknownType(t *testing.T) {
	_, _, analyzer := newTestComponents(t)

	caps := analyzer.GetCapabilities("AxMissing")
	assert.False(t, caps.Success)
	assert.NotEmpty(t, caps.Error)
	assert.Empty(t, caps.MutationCapabilities)
}

func TestGetCapabilitiesRunsDiscoveryOnce(t *testing.T) {
	_, _, analyzer := newTestComponents(t)

	first := analyzer.GetCapabilities("AxWidget")
	second := analyzer.GetCapabilities("AxWidget")

	assert.Same(t, first, second)
	assert.Equal(t, int64(1), analyzer.DiscoveryRuns())
	assert.Equal(t, 1, analyzer.CachedCapabilityCount())
}

func TestClearCachesTriggersRediscovery(t *testing.T) {
	_, _, analyzer := newTestComponents(t)

	analyzer.GetCapabilities("AxWidget")
	analyzer.ClearCaches()
	analyzer.GetCapabilities("AxWidget")

	assert.Equal(t, int64(2), analyzer.DiscoveryRuns())
}
