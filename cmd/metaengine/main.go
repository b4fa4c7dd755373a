// Command metaengine runs the capability discovery engine against the
// registered object model and prints what it finds.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/lmittmann/tint"

	"github.com/ccampora/mcp-xpp-sub003/metamodel"
	"github.com/ccampora/mcp-xpp-sub003/store"
	"github.com/ccampora/mcp-xpp-sub003/telemetry"
)

func main() {
	var (
		configPath = flag.String("config", "", "path to a YAML config file")
		typeName   = flag.String("type", "", "print capabilities for this type")
		demo       = flag.Bool("demo", false, "execute a demo mutation")
	)
	flag.Parse()

	if err := run(*configPath, *typeName, *demo); err != nil {
		fmt.Fprintf(os.Stderr, "metaengine: %v\n", err)
		os.Exit(1)
	}
}

func run(configPath, typeName string, demo bool) error {
	var opts []metamodel.Option
	if configPath != "" {
		opts = append(opts, metamodel.WithConfigFile(configPath))
	}
	config, err := metamodel.NewConfig(opts...)
	if err != nil {
		return err
	}

	logger := newLogger(config.LogLevel)
	registerDemoModel()

	objectStore, err := buildStore(config, logger)
	if err != nil {
		return err
	}

	engineOpts := []metamodel.EngineOption{
		metamodel.WithLogger(logger),
		metamodel.WithObjectStore(objectStore),
	}
	if config.TelemetryEnabled {
		provider, err := telemetry.NewOTelProvider(config.ServiceName)
		if err != nil {
			return err
		}
		defer provider.Shutdown(context.Background())
		engineOpts = append(engineOpts, metamodel.WithTelemetry(provider))
	}

	engine, err := metamodel.NewEngine(config, engineOpts...)
	if err != nil {
		return err
	}

	ctx := context.Background()

	names, err := engine.ListSupportedTypes(ctx)
	if err != nil {
		return err
	}
	fmt.Printf("Supported types (%d):\n", len(names))
	for _, name := range names {
		fmt.Printf("  %s\n", name)
	}

	if typeName != "" {
		caps := engine.GetCapabilities(ctx, typeName)
		if err := printJSON(caps); err != nil {
			return err
		}
	}

	if demo {
		if err := runDemo(ctx, engine); err != nil {
			return err
		}
	}

	stats := engine.GetStatistics(ctx)
	fmt.Printf("Statistics: types=%d capabilities=%d supported=%d library=%s\n",
		stats.CachedTypeCount, stats.CachedCapabilityCount,
		stats.SupportedTypeCount, stats.LibraryIdentity)
	return nil
}

// runDemo adds a string field to a fresh table, exercising abstract
// parameter resolution end to end.
func runDemo(ctx context.Context, engine *metamodel.Engine) error {
	result := engine.ExecuteMutation(ctx, "AxTable", "CustTable", "AddField", map[string]interface{}{
		"concreteType": "AxStringField",
		"Name":         "AccountNum",
		"Label":        "Account number",
		"MaxLength":    20,
	})
	return printJSON(result)
}

func buildStore(config *metamodel.Config, logger metamodel.Logger) (metamodel.ObjectStore, error) {
	switch config.StoreBackend {
	case "memory":
		return store.NewMemoryObjectStore(config.StoreTTL, logger), nil
	case "redis":
		locator := metamodel.NewLocator(config, logger)
		registry := metamodel.NewTypeRegistry(locator, config, logger)
		factory := func(objectType string) (interface{}, error) {
			instance, _, err := registry.NewInstance(objectType)
			return instance, err
		}
		return store.NewRedisObjectStore(config.RedisURL, config.StoreNamespace, config.StoreTTL, factory, logger)
	case "none":
		return nil, nil
	default:
		return nil, fmt.Errorf("unknown store backend %q", config.StoreBackend)
	}
}

func printJSON(v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(data))
	return nil
}

// slogLogger adapts slog to the engine's Logger interface.
type slogLogger struct {
	logger *slog.Logger
}

func newLogger(level string) metamodel.Logger {
	var lvl slog.Level
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}

	handler := tint.NewHandler(os.Stderr, &tint.Options{
		Level:      lvl,
		TimeFormat: time.Kitchen,
	})
	return &slogLogger{logger: slog.New(handler)}
}

func (l *slogLogger) attrs(fields map[string]interface{}) []any {
	out := make([]any, 0, len(fields)*2)
	for k, v := range fields {
		out = append(out, k, v)
	}
	return out
}

func (l *slogLogger) Info(msg string, fields map[string]interface{}) {
	l.logger.Info(msg, l.attrs(fields)...)
}

func (l *slogLogger) Error(msg string, fields map[string]interface{}) {
	l.logger.Error(msg, l.attrs(fields)...)
}

func (l *slogLogger) Warn(msg string, fields map[string]interface{}) {
	l.logger.Warn(msg, l.attrs(fields)...)
}

func (l *slogLogger) Debug(msg string, fields map[string]interface{}) {
	l.logger.Debug(msg, l.attrs(fields)...)
}
