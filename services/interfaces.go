package services

import (
	"context"
	"errors"
	"time"

	"txmon/models"
)

// ErrFatal marks conditions after which the monitor must not keep running:
// the inventory and the counters database disagree.
var ErrFatal = errors.New("fatal")

// Inventory is the source of the device port list.
type Inventory interface {
	ListPorts(ctx context.Context) (map[string]models.Port, error)
	AllReady(ctx context.Context) (bool, error)
}

// TelemetryStore resolves ports to counter keys and reads raw counter values.
type TelemetryStore interface {
	LookupCounterKey(ctx context.Context, index, alias string) (string, error)
	ReadCounter(ctx context.Context, counterKey, stat string) (string, error)
}

// Publisher receives the state computed for a port.
type Publisher interface {
	Publish(ctx context.Context, alias string, state models.PortState) error
}

// IntervalResetter restarts the polling timer with a new period.
type IntervalResetter interface {
	ResetInterval(d time.Duration)
}

// Handler is what the scheduler dispatches ticks and command batches to.
type Handler interface {
	HandleTick(ctx context.Context) error
	HandleCommands(ctx context.Context, cmds []models.Command) error
}
