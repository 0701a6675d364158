package services

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"txmon/models"
)

// sampleCounters reads the TX error counter of every registered port. A port
// whose counter cannot be read or parsed is published as UNKNOWN and the
// cycle ends with ErrFatal.
func (m *Monitor) sampleCounters(ctx context.Context) (map[string]uint64, error) {
	current := make(map[string]uint64, len(m.registry))
	for _, port := range m.registry {
		value, err := m.readCounter(ctx, port.CounterKey)
		if err != nil {
			if perr := m.publisher.Publish(ctx, port.Alias, models.StateUnknown); perr != nil {
				m.logger.Error("failed to publish port state",
					zap.String("port", port.Alias), zap.Stringer("state", models.StateUnknown), zap.Error(perr))
			}
			return nil, fmt.Errorf("%w: could not get tx error counters of port %s: %w", ErrFatal, port.Alias, err)
		}
		current[port.Alias] = value
	}
	return current, nil
}

func (m *Monitor) readCounter(ctx context.Context, counterKey string) (uint64, error) {
	raw, err := m.telemetry.ReadCounter(ctx, counterKey, m.counterStat)
	if err != nil {
		return 0, err
	}
	value, err := strconv.ParseUint(strings.TrimSpace(raw), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("malformed %s value %q: %w", m.counterStat, raw, err)
	}
	return value, nil
}
