package metamodel_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ccampora/mcp-xpp-sub003/metamodel"
)

func TestConfigDefaults(t *testing.T) {
	config, err := metamodel.NewConfig()
	require.NoError(t, err)

	assert.Equal(t, "AxTable", config.AnchorTypeName)
	assert.Equal(t, "Ax", config.TypePrefix)
	assert.Equal(t, "memory", config.StoreBackend)
	assert.Equal(t, "info", config.LogLevel)
	assert.Equal(t, []string{"Collection", "Base", "Helper", "Util"}, config.ExcludedSuffixes)
}

func TestConfigEnvironmentOverridesDefaults(t *testing.T) {
	t.Setenv("METAMODEL_TYPE_PREFIX", "Zz")
	t.Setenv("METAMODEL_EXCLUDED_SUFFIXES", "Proxy, Shadow")
	t.Setenv("METAMODEL_TELEMETRY_ENABLED", "true")

	config, err := metamodel.NewConfig()
	require.NoError(t, err)

	assert.Equal(t, "Zz", config.TypePrefix)
	assert.Equal(t, []string{"Proxy", "Shadow"}, config.ExcludedSuffixes)
	assert.True(t, config.TelemetryEnabled)
}

func TestConfigOptionsOverrideEnvironment(t *testing.T) {
	t.Setenv("METAMODEL_TYPE_PREFIX", "Zz")

	config, err := metamodel.NewConfig(metamodel.WithTypePrefix("Ax"))
	require.NoError(t, err)
	assert.Equal(t, "Ax", config.TypePrefix)
}

func TestConfigValidation(t *testing.T) {
	_, err := metamodel.NewConfig(metamodel.WithStore("filesystem"))
	require.Error(t, err)
	assert.True(t, metamodel.IsConfigurationError(err))

	_, err = metamodel.NewConfig(metamodel.WithTypePrefix(""))
	require.Error(t, err)
	assert.True(t, metamodel.IsConfigurationError(err))
}

func TestConfigFromYAMLFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "engine.yaml")
	content := []byte("type_prefix: Qq\nstore_backend: redis\nredis_url: redis://example:6379\n")
	require.NoError(t, os.WriteFile(path, content, 0o600))

	config, err := metamodel.NewConfig(metamodel.WithConfigFile(path))
	require.NoError(t, err)

	assert.Equal(t, "Qq", config.TypePrefix)
	assert.Equal(t, "redis", config.StoreBackend)
	assert.Equal(t, "redis://example:6379", config.RedisURL)
	// Values absent from the file keep their defaults.
	assert.Equal(t, "AxTable", config.AnchorTypeName)
}

func TestConfigFileMissing(t *testing.T) {
	_, err := metamodel.NewConfig(metamodel.WithConfigFile("/nonexistent/engine.yaml"))
	require.Error(t, err)
	assert.True(t, metamodel.IsConfigurationError(err))
}
