package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPortStateNamesAndValues(t *testing.T) {
	tests := []struct {
		state PortState
		name  string
		value float64
	}{
		{StateOK, "OK", 0},
		{StateNotOK, "NOT_OK", 1},
		{StateUnknown, "UNKNOWN", 2},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.name, tt.state.String())
		assert.Equal(t, tt.value, tt.state.Value(), tt.name)

		parsed, err := ParsePortState(tt.name)
		require.NoError(t, err)
		assert.Equal(t, tt.state, parsed)
	}

	_, err := ParsePortState("DOWN")
	assert.Error(t, err)
}
