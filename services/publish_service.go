package services

import (
	"context"
	"sort"
	"sync"

	"github.com/benbjohnson/clock"
	"go.uber.org/multierr"

	"txmon/models"
)

// MultiPublisher hands every state to each of its publishers, even when one fails.
type MultiPublisher []Publisher

func (p MultiPublisher) Publish(ctx context.Context, alias string, state models.PortState) error {
	var err error
	for _, pub := range p {
		err = multierr.Append(err, pub.Publish(ctx, alias, state))
	}
	return err
}

// StateCache keeps the last state published for each port.
type StateCache struct {
	clock clock.Clock

	mu     sync.RWMutex
	states map[string]models.PortStatus
}

// NewStateCache returns an empty cache stamping entries with clk.
func NewStateCache(clk clock.Clock) *StateCache {
	return &StateCache{clock: clk, states: make(map[string]models.PortStatus)}
}

func (c *StateCache) Publish(_ context.Context, alias string, state models.PortState) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.states[alias] = models.PortStatus{Alias: alias, State: state, UpdatedAt: c.clock.Now()}
	return nil
}

// Get returns the last status of a port.
func (c *StateCache) Get(alias string) (models.PortStatus, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	st, ok := c.states[alias]
	return st, ok
}

// List returns all statuses sorted by alias.
func (c *StateCache) List() []models.PortStatus {
	c.mu.RLock()
	out := make([]models.PortStatus, 0, len(c.states))
	for _, st := range c.states {
		out = append(out, st)
	}
	c.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].Alias < out[j].Alias })
	return out
}
