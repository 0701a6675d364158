package services

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"

	"txmon/models"
)

func TestClassifyDeltaAgainstThreshold(t *testing.T) {
	for c1 := uint64(0); c1 <= 20; c1++ {
		for c2 := c1; c2 <= 40; c2++ {
			for threshold := uint64(0); threshold <= 25; threshold++ {
				h := CounterHistory{"Ethernet0": c1}
				state, delta := h.Classify("Ethernet0", c2, threshold)

				want := models.StateOK
				if c2-c1 >= threshold {
					want = models.StateNotOK
				}
				assert.Equal(t, want, state, "prev=%d cur=%d threshold=%d", c1, c2, threshold)
				assert.Equal(t, c2-c1, delta)
				assert.Equal(t, c2, h["Ethernet0"])
			}
		}
	}
}

func TestClassifyBaselineIsZero(t *testing.T) {
	tests := []struct {
		first     uint64
		threshold uint64
		want      models.PortState
	}{
		{0, 10, models.StateOK},
		{9, 10, models.StateOK},
		{10, 10, models.StateNotOK},
		{1000, 10, models.StateNotOK},
		{0, 0, models.StateNotOK},
	}
	for _, tt := range tests {
		h := CounterHistory{}
		state, _ := h.Classify("Ethernet0", tt.first, tt.threshold)
		assert.Equal(t, tt.want, state, "first=%d threshold=%d", tt.first, tt.threshold)
	}
}

func TestClassifyCounterDecreaseWrapsAround(t *testing.T) {
	h := CounterHistory{"Ethernet0": 100}
	state, delta := h.Classify("Ethernet0", 50, 10)

	assert.Equal(t, models.StateNotOK, state)
	assert.Equal(t, uint64(math.MaxUint64-49), delta)
	assert.Equal(t, uint64(50), h["Ethernet0"])
}

func TestClassifyHasNoMemoryBeyondOneInterval(t *testing.T) {
	h := CounterHistory{}
	state, _ := h.Classify("Ethernet0", 500, 10)
	assert.Equal(t, models.StateNotOK, state)

	state, _ = h.Classify("Ethernet0", 505, 10)
	assert.Equal(t, models.StateOK, state)
}
