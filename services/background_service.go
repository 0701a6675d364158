package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"go.uber.org/zap"

	"txmon/models"
)

// commandQueueSize bounds the number of commands waiting for the dispatcher.
const commandQueueSize = 128

// Scheduler owns the polling timer and the command queue and dispatches both
// to a Handler from a single goroutine, so a command never runs in the
// middle of a polling cycle.
type Scheduler struct {
	clock    clock.Clock
	logger   *zap.Logger
	commands chan models.Command

	mu       sync.Mutex
	interval time.Duration
	ticker   *clock.Ticker
}

// NewScheduler returns a stopped scheduler ticking every interval.
func NewScheduler(clk clock.Clock, interval time.Duration, logger *zap.Logger) *Scheduler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Scheduler{
		clock:    clk,
		logger:   logger,
		commands: make(chan models.Command, commandQueueSize),
		interval: interval,
	}
}

// Interval returns the current polling period.
func (s *Scheduler) Interval() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.interval
}

// ResetInterval changes the polling period. A running timer is restarted,
// discarding the part of the period that already elapsed.
func (s *Scheduler) ResetInterval(d time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.interval = d
	if s.ticker != nil {
		s.ticker.Reset(d)
	}
	s.logger.Debug("polling timer reset", zap.Duration("interval", d))
}

// Submit queues a command for the dispatcher. It blocks while the queue is full.
func (s *Scheduler) Submit(ctx context.Context, cmd models.Command) error {
	select {
	case s.commands <- cmd:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Run dispatches timer ticks and command batches to h until ctx is done or
// a handler returns an error wrapping ErrFatal, which Run returns.
func (s *Scheduler) Run(ctx context.Context, h Handler) error {
	s.mu.Lock()
	if s.ticker != nil {
		s.mu.Unlock()
		return errors.New("scheduler is already running")
	}
	ticker := s.clock.Ticker(s.interval)
	s.ticker = ticker
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		ticker.Stop()
		s.ticker = nil
		s.mu.Unlock()
	}()

	s.logger.Info("polling started", zap.Duration("interval", s.Interval()))
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if err := s.dispatch("timer", func() error { return h.HandleTick(ctx) }); err != nil {
				return err
			}
		case cmd := <-s.commands:
			batch := s.drain(cmd)
			if err := s.dispatch("commands", func() error { return h.HandleCommands(ctx, batch) }); err != nil {
				return err
			}
		}
	}
}

// drain collects every command already queued behind first.
func (s *Scheduler) drain(first models.Command) []models.Command {
	batch := []models.Command{first}
	for {
		select {
		case cmd := <-s.commands:
			batch = append(batch, cmd)
		default:
			return batch
		}
	}
}

// dispatch runs fn and keeps the loop alive on anything but a fatal error.
func (s *Scheduler) dispatch(source string, fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("runtime error", zap.String("source", source), zap.String("panic", fmt.Sprint(r)))
			err = nil
		}
	}()

	if err := fn(); err != nil {
		if errors.Is(err, ErrFatal) {
			return err
		}
		s.logger.Error("runtime error", zap.String("source", source), zap.Error(err))
	}
	return nil
}

// Running reports whether Run is dispatching.
func (s *Scheduler) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ticker != nil
}
