package services

import "txmon/models"

// CounterHistory maps a port alias to the last counter value seen for it.
type CounterHistory map[string]uint64

// Classify computes the delta against the stored value (zero for a port seen
// for the first time), stores current and returns the resulting state.
// A counter that went backwards wraps around and is reported as NOT_OK.
func (h CounterHistory) Classify(alias string, current, threshold uint64) (models.PortState, uint64) {
	delta := current - h[alias]
	h[alias] = current
	return ClassifyDelta(delta, threshold), delta
}

// ClassifyDelta maps a per-interval delta to a port state.
func ClassifyDelta(delta, threshold uint64) models.PortState {
	if delta >= threshold {
		return models.StateNotOK
	}
	return models.StateOK
}
