package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/go-redis/redis/v8"
	"go.uber.org/multierr"

	"txmon/config"
)

// Key separators used by the device databases.
const (
	applSeparator     = ":"
	countersSeparator = ":"
	configSeparator   = "|"
	stateSeparator    = "|"
)

// ErrNotFound is returned when a key or field is absent.
var ErrNotFound = errors.New("not found")

// Connector holds one client per device database.
type Connector struct {
	Appl     *redis.Client
	Counters *redis.Client
	Config   *redis.Client
	State    *redis.Client

	configDB int
}

// InitDB connects to every database named in cfg and pings each one.
func InitDB(ctx context.Context, cfg config.RedisConfig) (*Connector, error) {
	newClient := func(db int) *redis.Client {
		return redis.NewClient(&redis.Options{
			Network:  cfg.Network,
			Addr:     cfg.Address,
			Password: cfg.Password,
			DB:       db,
		})
	}

	c := &Connector{
		Appl:     newClient(cfg.ApplDB),
		Counters: newClient(cfg.CountersDB),
		Config:   newClient(cfg.ConfigDB),
		State:    newClient(cfg.StateDB),
		configDB: cfg.ConfigDB,
	}
	if err := c.Ping(ctx); err != nil {
		_ = c.Close()
		return nil, err
	}
	return c, nil
}

// NewConnector wraps existing clients, mainly for tests.
func NewConnector(appl, counters, cfg, state *redis.Client, configDB int) *Connector {
	return &Connector{Appl: appl, Counters: counters, Config: cfg, State: state, configDB: configDB}
}

// Ping checks that every database answers.
func (c *Connector) Ping(ctx context.Context) error {
	for name, client := range c.clients() {
		if err := client.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("failed to ping %s: %w", name, err)
		}
	}
	return nil
}

// Close closes all clients.
func (c *Connector) Close() error {
	var err error
	for _, client := range c.clients() {
		err = multierr.Append(err, client.Close())
	}
	return err
}

func (c *Connector) clients() map[string]*redis.Client {
	return map[string]*redis.Client{
		"APPL_DB":     c.Appl,
		"COUNTERS_DB": c.Counters,
		"CONFIG_DB":   c.Config,
		"STATE_DB":    c.State,
	}
}

func tableKey(table, sep, key string) string {
	if key == "" {
		return table
	}
	return table + sep + key
}
