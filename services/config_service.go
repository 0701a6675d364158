package services

import (
	"context"
	"strconv"
	"time"

	"go.uber.org/zap"

	"txmon/models"
)

// HandleCommands applies a batch of reconfiguration commands in order.
// Faulty commands are logged and skipped.
func (m *Monitor) HandleCommands(_ context.Context, cmds []models.Command) error {
	for _, cmd := range cmds {
		m.ApplyCommand(cmd)
	}
	return nil
}

// ApplyCommand applies a single command and reports whether it was accepted.
func (m *Monitor) ApplyCommand(cmd models.Command) bool {
	ok := m.applyCommand(cmd)
	m.metrics.ObserveCommand(cmd.Key, ok)
	return ok
}

func (m *Monitor) applyCommand(cmd models.Command) bool {
	if cmd.Op != models.OpSet {
		m.logger.Error("unexpected operation", zap.String("op", cmd.Op), zap.String("key", cmd.Key))
		return false
	}

	switch cmd.Key {
	case models.KeyPollingPeriod:
		return m.handlePeriodUpdate(cmd.Fields)
	case models.KeyThreshold:
		return m.handleThresholdUpdate(cmd.Fields)
	default:
		m.logger.Error("unexpected key", zap.String("key", cmd.Key))
		return false
	}
}

func (m *Monitor) handlePeriodUpdate(fields []models.FieldValuePair) bool {
	ok := true
	for _, fv := range fields {
		if fv.Field != models.FieldValue {
			m.logger.Error("unexpected field", zap.String("key", models.KeyPollingPeriod), zap.String("field", fv.Field))
			ok = false
			continue
		}

		period, err := strconv.ParseUint(fv.Value, 10, 32)
		if err != nil || period == 0 {
			m.logger.Error("invalid polling period", zap.String("value", fv.Value), zap.Error(err))
			ok = false
			continue
		}
		if uint32(period) != m.Config().PollingPeriod {
			m.setTimer(uint32(period))
		}
	}
	return ok
}

// setTimer stores the new period and restarts the timer so the next tick
// is a full period away.
func (m *Monitor) setTimer(period uint32) {
	m.mu.Lock()
	m.pollingPeriod = period
	m.mu.Unlock()

	m.timer.ResetInterval(time.Duration(period) * time.Second)
	m.logger.Info("polling period set", zap.Uint32("seconds", period))
}

func (m *Monitor) handleThresholdUpdate(fields []models.FieldValuePair) bool {
	ok := true
	for _, fv := range fields {
		if fv.Field != models.FieldValue {
			m.logger.Error("unexpected field", zap.String("key", models.KeyThreshold), zap.String("field", fv.Field))
			ok = false
			continue
		}

		threshold, err := strconv.ParseUint(fv.Value, 10, 64)
		if err != nil {
			m.logger.Error("invalid threshold", zap.String("value", fv.Value), zap.Error(err))
			ok = false
			continue
		}

		m.mu.Lock()
		m.threshold = threshold
		m.mu.Unlock()
		m.logger.Info("threshold set", zap.Uint64("packets", threshold))
	}
	return ok
}
