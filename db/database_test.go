package db

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"txmon/config"
)

const (
	testApplDB     = 0
	testCountersDB = 2
	testConfigDB   = 4
	testStateDB    = 6
)

func newTestConnector(t *testing.T) (*miniredis.Miniredis, *Connector) {
	t.Helper()
	s := miniredis.RunT(t)
	client := func(db int) *redis.Client {
		return redis.NewClient(&redis.Options{Addr: s.Addr(), DB: db})
	}
	c := NewConnector(client(testApplDB), client(testCountersDB), client(testConfigDB), client(testStateDB), testConfigDB)
	t.Cleanup(func() { _ = c.Close() })
	return s, c
}

func TestInitDB(t *testing.T) {
	s := miniredis.RunT(t)
	c, err := InitDB(context.Background(), config.RedisConfig{
		Network:    "tcp",
		Address:    s.Addr(),
		CountersDB: testCountersDB,
		ConfigDB:   testConfigDB,
		StateDB:    testStateDB,
	})
	require.NoError(t, err)
	assert.NoError(t, c.Ping(context.Background()))
	assert.NoError(t, c.Close())
}

func TestInitDBUnreachable(t *testing.T) {
	s := miniredis.RunT(t)
	addr := s.Addr()
	s.Close()

	_, err := InitDB(context.Background(), config.RedisConfig{Network: "tcp", Address: addr})
	assert.Error(t, err)
}

func TestTableKey(t *testing.T) {
	assert.Equal(t, "COUNTERS_PORT_NAME_MAP", tableKey(CountersPortNameMap, countersSeparator, ""))
	assert.Equal(t, "COUNTERS:oid:0x1", tableKey(CountersTable, countersSeparator, "oid:0x1"))
	assert.Equal(t, "TX_ERR_STATE|Ethernet0", tableKey("TX_ERR_STATE", stateSeparator, "Ethernet0"))
}
