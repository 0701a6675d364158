package services

import (
	"context"
	"errors"
	"sync"
	"time"

	"txmon/models"
)

var errStore = errors.New("store unavailable")

type fakeInventory struct {
	mu        sync.Mutex
	ready     bool
	readyErr  error
	ports     map[string]models.Port
	listCalls int
}

func (f *fakeInventory) ListPorts(context.Context) (map[string]models.Port, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.listCalls++
	out := make(map[string]models.Port, len(f.ports))
	for k, v := range f.ports {
		out[k] = v
	}
	return out, nil
}

func (f *fakeInventory) AllReady(context.Context) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.ready, f.readyErr
}

func (f *fakeInventory) setReady(ready bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ready = ready
}

func (f *fakeInventory) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.listCalls
}

type fakeTelemetry struct {
	mu       sync.Mutex
	keys     map[string]string
	counters map[string]string
	failing  map[string]bool
	lookups  int
}

func newFakeTelemetry() *fakeTelemetry {
	return &fakeTelemetry{
		keys:     make(map[string]string),
		counters: make(map[string]string),
		failing:  make(map[string]bool),
	}
}

func (f *fakeTelemetry) LookupCounterKey(_ context.Context, _ string, alias string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lookups++
	key, ok := f.keys[alias]
	if !ok {
		return "", errStore
	}
	return key, nil
}

func (f *fakeTelemetry) ReadCounter(_ context.Context, counterKey, stat string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if stat != DefaultCounterStat || f.failing[counterKey] {
		return "", errStore
	}
	v, ok := f.counters[counterKey]
	if !ok {
		return "", errStore
	}
	return v, nil
}

func (f *fakeTelemetry) set(counterKey, value string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.counters[counterKey] = value
}

func (f *fakeTelemetry) fail(counterKey string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failing[counterKey] = true
}

type publication struct {
	alias string
	state models.PortState
}

type recordingPublisher struct {
	mu     sync.Mutex
	err    error
	states map[string]models.PortState
	log    []publication
}

func newRecordingPublisher() *recordingPublisher {
	return &recordingPublisher{states: make(map[string]models.PortState)}
}

func (p *recordingPublisher) Publish(_ context.Context, alias string, state models.PortState) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.log = append(p.log, publication{alias, state})
	if p.err != nil {
		return p.err
	}
	p.states[alias] = state
	return nil
}

func (p *recordingPublisher) snapshot() map[string]models.PortState {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make(map[string]models.PortState, len(p.states))
	for k, v := range p.states {
		out[k] = v
	}
	return out
}

func (p *recordingPublisher) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.log)
}

type fakeTimer struct {
	mu     sync.Mutex
	resets []time.Duration
}

func (t *fakeTimer) ResetInterval(d time.Duration) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.resets = append(t.resets, d)
}

func (t *fakeTimer) snapshot() []time.Duration {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]time.Duration(nil), t.resets...)
}
