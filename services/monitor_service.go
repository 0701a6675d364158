package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/benbjohnson/clock"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"txmon/models"
)

// MonitorOptions configures a Monitor. Inventory, Telemetry, Publisher and
// Timer are required.
type MonitorOptions struct {
	Inventory   Inventory
	Telemetry   TelemetryStore
	Publisher   Publisher
	Timer       IntervalResetter
	Metrics     *Metrics
	Logger      *zap.Logger
	Clock       clock.Clock
	CounterStat string

	PollingPeriod uint32
	Threshold     uint64
}

// Monitor samples per-port TX error counters and publishes a health state
// for every physical port. HandleTick and HandleCommands must be called from
// a single goroutine; the read-only accessors are safe from any goroutine.
type Monitor struct {
	inventory   Inventory
	telemetry   TelemetryStore
	publisher   Publisher
	timer       IntervalResetter
	metrics     *Metrics
	logger      *zap.Logger
	clock       clock.Clock
	counterStat string

	// guards pollingPeriod, threshold and registry for outside readers
	mu            sync.RWMutex
	pollingPeriod uint32
	threshold     uint64
	registry      []models.PortIdentifier

	initialized bool
	history     CounterHistory
}

// NewMonitor returns a monitor with an empty registry and history.
func NewMonitor(opts MonitorOptions) *Monitor {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Clock == nil {
		opts.Clock = clock.New()
	}
	if opts.PollingPeriod == 0 {
		opts.PollingPeriod = models.DefaultPollingPeriod
	}
	if opts.CounterStat == "" {
		opts.CounterStat = DefaultCounterStat
	}
	return &Monitor{
		inventory:     opts.Inventory,
		telemetry:     opts.Telemetry,
		publisher:     opts.Publisher,
		timer:         opts.Timer,
		metrics:       opts.Metrics,
		logger:        opts.Logger,
		clock:         opts.Clock,
		counterStat:   opts.CounterStat,
		pollingPeriod: opts.PollingPeriod,
		threshold:     opts.Threshold,
		history:       make(CounterHistory),
	}
}

// DefaultCounterStat is the counter that tracks transmit errors.
const DefaultCounterStat = "SAI_PORT_STAT_IF_OUT_ERRORS"

// HandleTick runs one polling cycle: build the registry if needed, sample,
// classify and publish. It does nothing while ports are not ready.
func (m *Monitor) HandleTick(ctx context.Context) error {
	start := m.clock.Now()
	result, err := m.poll(ctx)
	m.metrics.ObserveCycle(result, m.clock.Since(start))
	return err
}

func (m *Monitor) poll(ctx context.Context) (string, error) {
	ready, err := m.inventory.AllReady(ctx)
	if err != nil {
		return cycleError, fmt.Errorf("failed to check port readiness: %w", err)
	}
	if !ready {
		m.logger.Info("ports are not ready yet")
		return cycleIdle, nil
	}

	if err := m.ensureRegistry(ctx); err != nil {
		return resultOf(err), err
	}
	current, err := m.sampleCounters(ctx)
	if err != nil {
		return resultOf(err), err
	}
	if err := m.updatePortStates(ctx, current); err != nil {
		return cycleError, err
	}
	return cycleOK, nil
}

// updatePortStates classifies every sampled port and publishes the result.
// Publish failures do not stop the pass.
func (m *Monitor) updatePortStates(ctx context.Context, current map[string]uint64) error {
	threshold := m.Config().Threshold

	aliases := make([]string, 0, len(current))
	for alias := range current {
		aliases = append(aliases, alias)
	}
	sort.Strings(aliases)

	var errs error
	for _, alias := range aliases {
		state, delta := m.history.Classify(alias, current[alias], threshold)
		m.metrics.ObserveDelta(alias, delta)
		m.logger.Debug("port classified",
			zap.String("port", alias), zap.Uint64("counter", current[alias]),
			zap.Uint64("delta", delta), zap.Stringer("state", state))

		if err := m.publisher.Publish(ctx, alias, state); err != nil {
			errs = multierr.Append(errs, fmt.Errorf("failed to publish state of port %s: %w", alias, err))
		}
	}
	return errs
}

// Config returns the current polling period and threshold.
func (m *Monitor) Config() models.MonitorConfig {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return models.MonitorConfig{PollingPeriod: m.pollingPeriod, Threshold: m.threshold}
}

func resultOf(err error) string {
	if errors.Is(err, ErrFatal) {
		return cycleFatal
	}
	return cycleError
}
