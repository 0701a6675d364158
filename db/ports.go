package db

import (
	"context"
	"fmt"
	"strings"

	"github.com/go-redis/redis/v8"

	"txmon/models"
)

// APPL_DB tables that make up the port inventory.
const (
	PortTable = "PORT_TABLE"
	LagTable  = "LAG_TABLE"
	VlanTable = "VLAN_TABLE"

	// PortInitDone is written into PORT_TABLE once every port has been created.
	PortInitDone   = "PortInitDone"
	PortConfigDone = "PortConfigDone"
)

var inventoryTables = []struct {
	table string
	kind  string
}{
	{PortTable, models.PortKindPhysical},
	{LagTable, models.PortKindLag},
	{VlanTable, models.PortKindVlan},
}

// PortInventory reads the port list and readiness marker from APPL_DB.
type PortInventory struct {
	client *redis.Client
}

func NewPortInventory(c *Connector) *PortInventory {
	return &PortInventory{client: c.Appl}
}

// ListPorts returns every known port keyed by name. The alias of a port is
// its table key; the alias hash field only fills Label.
func (p *PortInventory) ListPorts(ctx context.Context) (map[string]models.Port, error) {
	ports := make(map[string]models.Port)
	for _, t := range inventoryTables {
		prefix := t.table + applSeparator
		iter := p.client.Scan(ctx, 0, prefix+"*", 0).Iterator()
		for iter.Next(ctx) {
			name := strings.TrimPrefix(iter.Val(), prefix)
			if name == PortInitDone || name == PortConfigDone || strings.Contains(name, applSeparator) {
				continue
			}
			label, err := p.client.HGet(ctx, iter.Val(), "alias").Result()
			if err != nil && err != redis.Nil {
				return nil, fmt.Errorf("failed to read alias of %s: %w", iter.Val(), err)
			}
			ports[name] = models.Port{Alias: name, Label: label, Kind: t.kind}
		}
		if err := iter.Err(); err != nil {
			return nil, fmt.Errorf("failed to scan %s: %w", t.table, err)
		}
	}
	return ports, nil
}

// AllReady reports whether the port initialization marker is present.
func (p *PortInventory) AllReady(ctx context.Context) (bool, error) {
	n, err := p.client.Exists(ctx, tableKey(PortTable, applSeparator, PortInitDone)).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check %s: %w", PortInitDone, err)
	}
	return n > 0, nil
}
