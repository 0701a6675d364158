package db

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"txmon/models"
)

func TestPortInventoryListPorts(t *testing.T) {
	s, c := newTestConnector(t)
	appl := s.DB(testApplDB)
	appl.HSet("PORT_TABLE:Ethernet0", "alias", "etp1", "lanes", "0,1,2,3")
	appl.HSet("PORT_TABLE:Ethernet4", "lanes", "4,5,6,7")
	appl.HSet("PORT_TABLE:PortInitDone", "lanes", "0")
	appl.HSet("PORT_TABLE:PortConfigDone", "count", "2")
	appl.HSet("LAG_TABLE:PortChannel1", "admin_status", "up")
	appl.HSet("VLAN_TABLE:Vlan100", "admin_status", "up")

	ports, err := NewPortInventory(c).ListPorts(context.Background())
	require.NoError(t, err)

	assert.Equal(t, map[string]models.Port{
		"Ethernet0":    {Alias: "Ethernet0", Label: "etp1", Kind: models.PortKindPhysical},
		"Ethernet4":    {Alias: "Ethernet4", Kind: models.PortKindPhysical},
		"PortChannel1": {Alias: "PortChannel1", Kind: models.PortKindLag},
		"Vlan100":      {Alias: "Vlan100", Kind: models.PortKindVlan},
	}, ports)
}

func TestPortInventoryAllReady(t *testing.T) {
	s, c := newTestConnector(t)
	inv := NewPortInventory(c)

	ready, err := inv.AllReady(context.Background())
	require.NoError(t, err)
	assert.False(t, ready)

	s.DB(testApplDB).HSet("PORT_TABLE:PortInitDone", "lanes", "0")

	ready, err = inv.AllReady(context.Background())
	require.NoError(t, err)
	assert.True(t, ready)
}
