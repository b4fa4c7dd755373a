package store

import (
	"context"
	"encoding/json"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/ccampora/mcp-xpp-sub003/metamodel"
)

// ObjectFactory produces an empty addressable instance of the named type
// so a stored payload can be unmarshaled into it. The registry's
// NewInstance is the usual implementation.
type ObjectFactory func(objectType string) (interface{}, error)

// RedisObjectStore persists mutated objects as JSON in Redis. Each object
// lives under a namespaced key and is tracked in a per-type index set so
// objects of one type can be enumerated.
type RedisObjectStore struct {
	client    *redis.Client
	namespace string
	ttl       time.Duration
	factory   ObjectFactory
	logger    metamodel.Logger

	hits   int64
	misses int64
}

// NewRedisObjectStore connects to Redis and verifies the connection.
func NewRedisObjectStore(redisURL, namespace string, ttl time.Duration, factory ObjectFactory, logger metamodel.Logger) (*RedisObjectStore, error) {
	if logger == nil {
		logger = &metamodel.NoOpLogger{}
	}
	if factory == nil {
		return nil, fmt.Errorf("object factory is required")
	}

	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis URL: %w", err)
	}
	opts.PoolSize = 10
	opts.MinIdleConns = 2
	opts.MaxRetries = 3

	client := redis.NewClient(opts)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis connection failed: %w", err)
	}

	return &RedisObjectStore{
		client:    client,
		namespace: namespace,
		ttl:       ttl,
		factory:   factory,
		logger:    logger,
	}, nil
}

func (s *RedisObjectStore) objectKey(objectType, objectName string) string {
	return fmt.Sprintf("%s:objects:%s:%s", s.namespace, objectType, objectName)
}

func (s *RedisObjectStore) indexKey(objectType string) string {
	return fmt.Sprintf("%s:objects:%s", s.namespace, objectType)
}

// Save serializes the instance and writes both the payload and the type
// index entry in one transaction. A false return means the object was not
// persisted; the caller's in-memory mutation is unaffected.
func (s *RedisObjectStore) Save(ctx context.Context, objectType, objectName string, instance interface{}) bool {
	payload, err := json.Marshal(instance)
	if err != nil {
		s.logger.Error("Failed to serialize object", map[string]interface{}{
			"type":  objectType,
			"name":  objectName,
			"error": err.Error(),
		})
		return false
	}

	pipe := s.client.TxPipeline()
	pipe.Set(ctx, s.objectKey(objectType, objectName), payload, s.ttl)
	pipe.SAdd(ctx, s.indexKey(objectType), objectName)
	if s.ttl > 0 {
		pipe.Expire(ctx, s.indexKey(objectType), s.ttl)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		s.logger.Error("Failed to persist object", map[string]interface{}{
			"type":  objectType,
			"name":  objectName,
			"error": err.Error(),
		})
		return false
	}

	s.logger.Debug("Object persisted", map[string]interface{}{
		"type": objectType,
		"name": objectName,
	})
	return true
}

// FindExisting loads and rehydrates the stored object through the factory,
// returning nil when absent or unreadable.
func (s *RedisObjectStore) FindExisting(ctx context.Context, objectType, objectName string) interface{} {
	payload, err := s.client.Get(ctx, s.objectKey(objectType, objectName)).Bytes()
	if err == redis.Nil {
		atomic.AddInt64(&s.misses, 1)
		return nil
	}
	if err != nil {
		atomic.AddInt64(&s.misses, 1)
		s.logger.Error("Failed to read object", map[string]interface{}{
			"type":  objectType,
			"name":  objectName,
			"error": err.Error(),
		})
		return nil
	}

	instance, err := s.factory(objectType)
	if err != nil {
		atomic.AddInt64(&s.misses, 1)
		s.logger.Error("Object factory failed", map[string]interface{}{
			"type":  objectType,
			"error": err.Error(),
		})
		return nil
	}
	if err := json.Unmarshal(payload, instance); err != nil {
		atomic.AddInt64(&s.misses, 1)
		s.logger.Error("Failed to deserialize object", map[string]interface{}{
			"type":  objectType,
			"name":  objectName,
			"error": err.Error(),
		})
		return nil
	}

	atomic.AddInt64(&s.hits, 1)
	return instance
}

// ListObjects returns the names of all stored objects of one type.
func (s *RedisObjectStore) ListObjects(ctx context.Context, objectType string) ([]string, error) {
	names, err := s.client.SMembers(ctx, s.indexKey(objectType)).Result()
	if err != nil {
		return nil, fmt.Errorf("list objects of type %s: %w", objectType, err)
	}
	return names, nil
}

// Delete removes one object and its index entry.
func (s *RedisObjectStore) Delete(ctx context.Context, objectType, objectName string) error {
	pipe := s.client.TxPipeline()
	pipe.Del(ctx, s.objectKey(objectType, objectName))
	pipe.SRem(ctx, s.indexKey(objectType), objectName)
	_, err := pipe.Exec(ctx)
	return err
}

// Stats reports lookup hit and miss counts.
func (s *RedisObjectStore) Stats() (hits, misses int64) {
	return atomic.LoadInt64(&s.hits), atomic.LoadInt64(&s.misses)
}

// Close releases the Redis connection pool.
func (s *RedisObjectStore) Close() error {
	return s.client.Close()
}
