package models

// Command operations. Only OpSet changes monitor configuration.
const (
	OpSet = "SET"
	OpDel = "DEL"
)

// Configuration keys understood by the monitor.
const (
	KeyPollingPeriod = "polling_period"
	KeyThreshold     = "threshold"

	FieldValue = "value"
)

// Defaults used until the first reconfiguration command arrives.
const (
	DefaultPollingPeriod uint32 = 30
	DefaultThreshold     uint64 = 10
)

// FieldValuePair is a single field of a configuration entry.
type FieldValuePair struct {
	Field string `json:"field"`
	Value string `json:"value"`
}

// Command is a reconfiguration request as read from the config table.
type Command struct {
	Key    string           `json:"key"`
	Op     string           `json:"op"`
	Fields []FieldValuePair `json:"fields"`
}

// SetCommand builds a SET command carrying a single "value" field.
func SetCommand(key, value string) Command {
	return Command{
		Key:    key,
		Op:     OpSet,
		Fields: []FieldValuePair{{Field: FieldValue, Value: value}},
	}
}

// MonitorConfig is a read-only snapshot of the live monitor settings.
type MonitorConfig struct {
	PollingPeriod uint32 `json:"polling_period"`
	Threshold     uint64 `json:"threshold"`
}
