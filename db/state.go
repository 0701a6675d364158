package db

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/go-redis/redis/v8"

	"txmon/models"
)

// PortStateField is the STATE_DB field holding the published state.
const PortStateField = "port_state"

// StateTable writes port states into STATE_DB.
type StateTable struct {
	client *redis.Client
	table  string
}

func NewStateTable(c *Connector, table string) *StateTable {
	return &StateTable{client: c.State, table: table}
}

// Publish sets port_state of the alias entry.
func (s *StateTable) Publish(ctx context.Context, alias string, state models.PortState) error {
	key := tableKey(s.table, stateSeparator, alias)
	if err := s.client.HSet(ctx, key, PortStateField, state.String()).Err(); err != nil {
		return fmt.Errorf("failed to write %s: %w", key, err)
	}
	return nil
}

// Get returns the stored state of one port.
func (s *StateTable) Get(ctx context.Context, alias string) (models.PortState, error) {
	key := tableKey(s.table, stateSeparator, alias)
	val, err := s.client.HGet(ctx, key, PortStateField).Result()
	if err == redis.Nil {
		return models.StateUnknown, fmt.Errorf("%s: %w", key, ErrNotFound)
	}
	if err != nil {
		return models.StateUnknown, fmt.Errorf("failed to read %s: %w", key, err)
	}
	return models.ParsePortState(val)
}

// List returns all stored port states sorted by alias.
func (s *StateTable) List(ctx context.Context) (map[string]models.PortState, []string, error) {
	prefix := s.table + stateSeparator
	states := make(map[string]models.PortState)
	iter := s.client.Scan(ctx, 0, prefix+"*", 0).Iterator()
	for iter.Next(ctx) {
		alias := strings.TrimPrefix(iter.Val(), prefix)
		state, err := s.Get(ctx, alias)
		if err != nil {
			return nil, nil, err
		}
		states[alias] = state
	}
	if err := iter.Err(); err != nil {
		return nil, nil, fmt.Errorf("failed to scan %s: %w", s.table, err)
	}

	aliases := make([]string, 0, len(states))
	for alias := range states {
		aliases = append(aliases, alias)
	}
	sort.Strings(aliases)
	return states, aliases, nil
}
