package metamodel

import (
	"fmt"
	"os"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Config holds all engine settings. Values are resolved in three layers,
// lowest priority first: struct defaults, environment variables, then
// explicit options.
type Config struct {
	// Library discovery
	AnchorTypeName string `yaml:"anchor_type" env:"METAMODEL_ANCHOR_TYPE" default:"AxTable"`
	TypePrefix     string `yaml:"type_prefix" env:"METAMODEL_TYPE_PREFIX" default:"Ax" validate:"required"`
	Namespace      string `yaml:"namespace" env:"METAMODEL_NAMESPACE" default:""`
	LibraryPath    string `yaml:"library_path" env:"METAMODEL_LIBRARY_PATH" default:""`

	// Type enumeration. Types whose names end in one of these suffixes are
	// treated as infrastructure and excluded from the supported list.
	ExcludedSuffixes []string `yaml:"excluded_suffixes" env:"METAMODEL_EXCLUDED_SUFFIXES" default:"Collection,Base,Helper,Util"`

	// Persistence
	StoreBackend   string        `yaml:"store_backend" env:"METAMODEL_STORE_BACKEND" default:"memory" validate:"oneof=memory redis none"`
	StoreNamespace string        `yaml:"store_namespace" env:"METAMODEL_STORE_NAMESPACE" default:"metaengine"`
	RedisURL       string        `yaml:"redis_url" env:"METAMODEL_REDIS_URL" default:"redis://localhost:6379"`
	StoreTTL       time.Duration `yaml:"store_ttl" env:"METAMODEL_STORE_TTL" default:"0"`

	// Observability
	LogLevel         string `yaml:"log_level" env:"METAMODEL_LOG_LEVEL" default:"info" validate:"oneof=debug info warn error"`
	TelemetryEnabled bool   `yaml:"telemetry_enabled" env:"METAMODEL_TELEMETRY_ENABLED" default:"false"`
	ServiceName      string `yaml:"service_name" env:"METAMODEL_SERVICE_NAME" default:"metaengine"`
}

// Option configures a Config. Options run after defaults and environment
// variables, so they always win.
type Option func(*Config) error

// NewConfig builds a Config from defaults, environment variables, and the
// given options, then validates it.
func NewConfig(opts ...Option) (*Config, error) {
	config := &Config{}
	applyDefaults(config)
	applyEnvironment(config)

	for _, opt := range opts {
		if err := opt(config); err != nil {
			return nil, NewEngineError("config.NewConfig", "configuration",
				fmt.Errorf("%w: %v", ErrInvalidConfiguration, err))
		}
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

// Validate checks the configuration against its validate tags.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return NewEngineError("config.Validate", "configuration",
			fmt.Errorf("%w: %v", ErrInvalidConfiguration, err))
	}
	return nil
}

// WithConfigFile loads YAML settings from path over the current values.
func WithConfigFile(path string) Option {
	return func(c *Config) error {
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("read config file %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, c); err != nil {
			return fmt.Errorf("parse config file %s: %w", path, err)
		}
		return nil
	}
}

// WithAnchorType sets the well-known type used to recognize the library.
func WithAnchorType(name string) Option {
	return func(c *Config) error {
		c.AnchorTypeName = name
		return nil
	}
}

// WithTypePrefix sets the naming-convention prefix of the foreign model.
func WithTypePrefix(prefix string) Option {
	return func(c *Config) error {
		if prefix == "" {
			return fmt.Errorf("type prefix cannot be empty")
		}
		c.TypePrefix = prefix
		return nil
	}
}

// WithNamespace restricts discovery to one module namespace.
func WithNamespace(ns string) Option {
	return func(c *Config) error {
		c.Namespace = ns
		return nil
	}
}

// WithLibraryPath sets the shared-library path for the native-load fallback.
func WithLibraryPath(path string) Option {
	return func(c *Config) error {
		c.LibraryPath = path
		return nil
	}
}

// WithExcludedSuffixes replaces the infrastructure-type suffix list.
func WithExcludedSuffixes(suffixes ...string) Option {
	return func(c *Config) error {
		c.ExcludedSuffixes = suffixes
		return nil
	}
}

// WithStore selects the persistence backend.
func WithStore(backend string) Option {
	return func(c *Config) error {
		c.StoreBackend = backend
		return nil
	}
}

// WithRedisURL sets the Redis connection URL for the redis backend.
func WithRedisURL(url string) Option {
	return func(c *Config) error {
		c.RedisURL = url
		return nil
	}
}

// applyDefaults fills zero-valued fields from their default tags.
func applyDefaults(config *Config) {
	v := reflect.ValueOf(config).Elem()
	t := v.Type()
	for i := 0; i < t.NumField(); i++ {
		def, ok := t.Field(i).Tag.Lookup("default")
		if !ok || def == "" {
			continue
		}
		field := v.Field(i)
		if !field.IsZero() {
			continue
		}
		setFieldFromString(field, def)
	}
}

// applyEnvironment overrides fields from their env tag variables.
func applyEnvironment(config *Config) {
	v := reflect.ValueOf(config).Elem()
	t := v.Type()
	for i := 0; i < t.NumField(); i++ {
		name, ok := t.Field(i).Tag.Lookup("env")
		if !ok || name == "" {
			continue
		}
		raw, ok := os.LookupEnv(name)
		if !ok {
			continue
		}
		setFieldFromString(v.Field(i), raw)
	}
}

func setFieldFromString(field reflect.Value, raw string) {
	switch field.Interface().(type) {
	case time.Duration:
		if d, err := time.ParseDuration(raw); err == nil {
			field.Set(reflect.ValueOf(d))
		}
		return
	}
	switch field.Kind() {
	case reflect.String:
		field.SetString(raw)
	case reflect.Bool:
		if b, err := strconv.ParseBool(raw); err == nil {
			field.SetBool(b)
		}
	case reflect.Int, reflect.Int64:
		if n, err := strconv.ParseInt(raw, 10, 64); err == nil {
			field.SetInt(n)
		}
	case reflect.Slice:
		if field.Type().Elem().Kind() == reflect.String {
			parts := strings.Split(raw, ",")
			out := make([]string, 0, len(parts))
			for _, p := range parts {
				if trimmed := strings.TrimSpace(p); trimmed != "" {
					out = append(out, trimmed)
				}
			}
			field.Set(reflect.ValueOf(out))
		}
	}
}
