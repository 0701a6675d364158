package models

import (
	"fmt"
	"time"
)

// Port kinds reported by the port inventory.
const (
	PortKindPhysical = "physical"
	PortKindLag      = "lag"
	PortKindVlan     = "vlan"
)

// Port is an inventory entry. Alias is the port name the counters database
// is keyed by; Label is the optional front-panel name. Only physical ports
// are monitored.
type Port struct {
	Alias string `json:"alias"`
	Label string `json:"label,omitempty"`
	Kind  string `json:"kind"`
}

// PortIdentifier binds a port alias to the key its counters are stored under.
type PortIdentifier struct {
	Alias      string `json:"alias"`
	CounterKey string `json:"counter_key"`
}

// PortState is the health signal published for a port.
type PortState int

const (
	StateOK PortState = iota
	StateNotOK
	StateUnknown
)

// String returns the name written to the state store.
func (s PortState) String() string {
	switch s {
	case StateOK:
		return "OK"
	case StateNotOK:
		return "NOT_OK"
	case StateUnknown:
		return "UNKNOWN"
	}
	return fmt.Sprintf("PortState(%d)", int(s))
}

// Value returns the number exported for the state in metrics.
func (s PortState) Value() float64 {
	switch s {
	case StateOK:
		return 0
	case StateNotOK:
		return 1
	}
	return 2
}

// ParsePortState is the inverse of String.
func ParsePortState(s string) (PortState, error) {
	switch s {
	case "OK":
		return StateOK, nil
	case "NOT_OK":
		return StateNotOK, nil
	case "UNKNOWN":
		return StateUnknown, nil
	}
	return StateUnknown, fmt.Errorf("unknown port state %q", s)
}

func (s PortState) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *PortState) UnmarshalText(b []byte) error {
	v, err := ParsePortState(string(b))
	if err != nil {
		return err
	}
	*s = v
	return nil
}

// PortStatus is the last state published for a port.
type PortStatus struct {
	Alias     string    `json:"alias"`
	State     PortState `json:"state"`
	UpdatedAt time.Time `json:"updated_at"`
}
