package db

import (
	"context"
	"fmt"

	"github.com/go-redis/redis/v8"
)

// COUNTERS_DB tables.
const (
	CountersTable       = "COUNTERS"
	CountersPortNameMap = "COUNTERS_PORT_NAME_MAP"
)

// CounterStore reads port counters from COUNTERS_DB.
type CounterStore struct {
	client *redis.Client
}

func NewCounterStore(c *Connector) *CounterStore {
	return &CounterStore{client: c.Counters}
}

// LookupCounterKey resolves a port alias to the object id its counters are
// stored under. An empty index addresses the name map hash itself.
func (s *CounterStore) LookupCounterKey(ctx context.Context, index, alias string) (string, error) {
	key := tableKey(CountersPortNameMap, countersSeparator, index)
	oid, err := s.client.HGet(ctx, key, alias).Result()
	if err == redis.Nil {
		return "", fmt.Errorf("port %s in %s: %w", alias, key, ErrNotFound)
	}
	if err != nil {
		return "", fmt.Errorf("failed to read %s: %w", key, err)
	}
	return oid, nil
}

// ReadCounter returns the raw value of stat for the given object id.
func (s *CounterStore) ReadCounter(ctx context.Context, counterKey, stat string) (string, error) {
	key := tableKey(CountersTable, countersSeparator, counterKey)
	val, err := s.client.HGet(ctx, key, stat).Result()
	if err == redis.Nil {
		return "", fmt.Errorf("%s of %s: %w", stat, key, ErrNotFound)
	}
	if err != nil {
		return "", fmt.Errorf("failed to read %s: %w", key, err)
	}
	return val, nil
}
