package services

import (
	"context"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"txmon/models"
)

func TestMultiPublisherReachesEveryPublisher(t *testing.T) {
	failing := newRecordingPublisher()
	failing.err = errStore
	healthy := newRecordingPublisher()

	err := MultiPublisher{failing, healthy}.Publish(context.Background(), "P1", models.StateNotOK)

	assert.ErrorIs(t, err, errStore)
	assert.Equal(t, models.StateNotOK, healthy.snapshot()["P1"])
}

func TestStateCache(t *testing.T) {
	mock := clock.NewMock()
	cache := NewStateCache(mock)

	_, ok := cache.Get("P1")
	assert.False(t, ok)

	require.NoError(t, cache.Publish(context.Background(), "P2", models.StateOK))
	mock.Add(time.Minute)
	require.NoError(t, cache.Publish(context.Background(), "P1", models.StateUnknown))

	st, ok := cache.Get("P1")
	require.True(t, ok)
	assert.Equal(t, models.StateUnknown, st.State)
	assert.Equal(t, mock.Now(), st.UpdatedAt)

	list := cache.List()
	require.Len(t, list, 2)
	assert.Equal(t, "P1", list[0].Alias)
	assert.Equal(t, "P2", list[1].Alias)
	assert.Equal(t, mock.Now().Add(-time.Minute), list[1].UpdatedAt)
}
