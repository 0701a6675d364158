package services

import (
	"context"
	"fmt"
	"sort"

	"go.uber.org/zap"

	"txmon/models"
)

// counterNameIndex addresses the whole port name map.
const counterNameIndex = ""

// buildRegistry resolves every physical port to its counter key. A port
// without a counter key aborts the build with ErrFatal.
func (m *Monitor) buildRegistry(ctx context.Context) ([]models.PortIdentifier, error) {
	ports, err := m.inventory.ListPorts(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list ports: %w", err)
	}

	registry := make([]models.PortIdentifier, 0, len(ports))
	for name, port := range ports {
		if port.Kind != models.PortKindPhysical {
			continue
		}
		key, err := m.telemetry.LookupCounterKey(ctx, counterNameIndex, port.Alias)
		if err != nil {
			return nil, fmt.Errorf("%w: failed to get counter key of port %s: %w", ErrFatal, name, err)
		}
		registry = append(registry, models.PortIdentifier{Alias: port.Alias, CounterKey: key})
	}
	sort.Slice(registry, func(i, j int) bool { return registry[i].Alias < registry[j].Alias })
	return registry, nil
}

// ensureRegistry builds the registry on the first call that succeeds. It is
// never rebuilt afterwards.
func (m *Monitor) ensureRegistry(ctx context.Context) error {
	if m.initialized {
		return nil
	}
	registry, err := m.buildRegistry(ctx)
	if err != nil {
		return err
	}

	m.mu.Lock()
	m.registry = registry
	m.initialized = true
	m.mu.Unlock()

	m.logger.Info("port registry built", zap.Int("ports", len(registry)))
	return nil
}

// Registry returns the monitored ports, empty until the registry is built.
func (m *Monitor) Registry() []models.PortIdentifier {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]models.PortIdentifier(nil), m.registry...)
}
