package db

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCounterStore(t *testing.T) {
	s, c := newTestConnector(t)
	counters := s.DB(testCountersDB)
	counters.HSet("COUNTERS_PORT_NAME_MAP", "Ethernet0", "oid:0x1000000000002")
	counters.HSet("COUNTERS:oid:0x1000000000002", "SAI_PORT_STAT_IF_OUT_ERRORS", "17")

	store := NewCounterStore(c)
	ctx := context.Background()

	oid, err := store.LookupCounterKey(ctx, "", "Ethernet0")
	require.NoError(t, err)
	assert.Equal(t, "oid:0x1000000000002", oid)

	val, err := store.ReadCounter(ctx, oid, "SAI_PORT_STAT_IF_OUT_ERRORS")
	require.NoError(t, err)
	assert.Equal(t, "17", val)
}

func TestCounterStoreNotFound(t *testing.T) {
	_, c := newTestConnector(t)
	store := NewCounterStore(c)
	ctx := context.Background()

	_, err := store.LookupCounterKey(ctx, "", "Ethernet8")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = store.ReadCounter(ctx, "oid:0x1", "SAI_PORT_STAT_IF_OUT_ERRORS")
	assert.ErrorIs(t, err, ErrNotFound)
}
