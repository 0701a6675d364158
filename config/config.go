package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"go.uber.org/multierr"
)

// EnvPrefix prefixes every environment override, e.g. TXMON_MONITOR_THRESHOLD.
const EnvPrefix = "TXMON"

// Config is the daemon configuration.
type Config struct {
	Redis    RedisConfig   `mapstructure:"redis"`
	Monitor  MonitorConfig `mapstructure:"monitor"`
	Server   ServerConfig  `mapstructure:"server"`
	LogFile  string        `mapstructure:"log_file"`
	LogLevel string        `mapstructure:"log_level"`
}

// RedisConfig describes the connection shared by the device databases.
type RedisConfig struct {
	Network    string `mapstructure:"network"`
	Address    string `mapstructure:"address"`
	Password   string `mapstructure:"password"`
	ApplDB     int    `mapstructure:"appl_db"`
	CountersDB int    `mapstructure:"counters_db"`
	ConfigDB   int    `mapstructure:"config_db"`
	StateDB    int    `mapstructure:"state_db"`
}

// MonitorConfig holds the startup values of the monitor and the table names it uses.
type MonitorConfig struct {
	PollingPeriod uint32 `mapstructure:"polling_period"`
	Threshold     uint64 `mapstructure:"threshold"`
	ConfigTable   string `mapstructure:"config_table"`
	StateTable    string `mapstructure:"state_table"`
	CounterStat   string `mapstructure:"counter_stat"`
}

// ServerConfig configures the HTTP API. An empty Port disables it.
type ServerConfig struct {
	Port      string `mapstructure:"port"`
	SSLCert   string `mapstructure:"ssl_cert"`
	SSLKey    string `mapstructure:"ssl_key"`
	JWTSecret string `mapstructure:"jwt_secret"`
}

var AppConfig *Config

// LoadConfig loads the configuration and stores it in AppConfig.
func LoadConfig(filename string) error {
	cfg, err := Load(filename)
	if err != nil {
		return err
	}
	AppConfig = cfg
	return nil
}

// Load reads filename (JSON, YAML or TOML by extension) on top of the
// defaults and applies TXMON_* environment overrides. An empty filename
// means defaults and environment only.
func Load(filename string) (*Config, error) {
	if err := loadDotEnv(); err != nil {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if filename != "" {
		v.SetConfigFile(filename)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", filename, err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("redis.network", "unix")
	v.SetDefault("redis.address", "/var/run/redis/redis.sock")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.appl_db", 0)
	v.SetDefault("redis.counters_db", 2)
	v.SetDefault("redis.config_db", 4)
	v.SetDefault("redis.state_db", 6)

	v.SetDefault("monitor.polling_period", 30)
	v.SetDefault("monitor.threshold", 10)
	v.SetDefault("monitor.config_table", "TX_ERR_CFG")
	v.SetDefault("monitor.state_table", "TX_ERR_STATE")
	v.SetDefault("monitor.counter_stat", "SAI_PORT_STAT_IF_OUT_ERRORS")

	v.SetDefault("server.port", "8080")
	v.SetDefault("server.ssl_cert", "")
	v.SetDefault("server.ssl_key", "")
	v.SetDefault("server.jwt_secret", "")

	v.SetDefault("log_file", "")
	v.SetDefault("log_level", "info")
}

// Validate rejects configurations the monitor cannot start with.
func (c *Config) Validate() error {
	var errs []error
	if c.Redis.Network != "unix" && c.Redis.Network != "tcp" {
		errs = append(errs, fmt.Errorf("redis.network must be unix or tcp, got %q", c.Redis.Network))
	}
	if c.Redis.Address == "" {
		errs = append(errs, errors.New("redis.address is required"))
	}
	if c.Monitor.PollingPeriod == 0 {
		errs = append(errs, errors.New("monitor.polling_period must be positive"))
	}
	if c.Monitor.ConfigTable == "" {
		errs = append(errs, errors.New("monitor.config_table is required"))
	}
	if c.Monitor.StateTable == "" {
		errs = append(errs, errors.New("monitor.state_table is required"))
	}
	if c.Monitor.CounterStat == "" {
		errs = append(errs, errors.New("monitor.counter_stat is required"))
	}
	if (c.Server.SSLCert == "") != (c.Server.SSLKey == "") {
		errs = append(errs, errors.New("server.ssl_cert and server.ssl_key must be set together"))
	}
	return multierr.Combine(errs...)
}

func loadDotEnv() error {
	if _, err := os.Stat(".env"); err == nil {
		return godotenv.Load(".env")
	}
	return nil
}
