package utils

import (
	"fmt"
	"time"

	"ips-guard/internal/model"
)

// ApplicationConfig holds the process level settings
type ApplicationConfig struct {
	HubbleServer  string   `yaml:"hubble_server"`
	Namespaces    []string `yaml:"namespaces,omitempty"`
	ListenAddress string   `yaml:"listen_address"`
	Workers       int      `yaml:"workers"`
	MaxAlerts     int      `yaml:"max_alerts"`
}

// RulesConfig lists the rule files to load plus rules written inline
type RulesConfig struct {
	Files  []string     `yaml:"files"`
	Inline []model.Rule `yaml:"inline,omitempty"`
}

// AlertingConfig selects the built-in alert channels
type AlertingConfig struct {
	Enabled  bool `yaml:"enabled"`
	Channels struct {
		Log       bool `yaml:"log"`
		Websocket bool `yaml:"websocket"`
	} `yaml:"channels"`
}

// LoggingConfig configures the process logger
type LoggingConfig struct {
	Level    string `yaml:"level"`
	Format   string `yaml:"format"`
	FilePath string `yaml:"file_path"`
}

// ProfileConfig controls how often worker profile counters are merged
type ProfileConfig struct {
	FlushIntervalSeconds int `yaml:"flush_interval_seconds"`
}

func (p ProfileConfig) FlushInterval() time.Duration {
	return time.Duration(p.FlushIntervalSeconds) * time.Second
}

// Config is the top level ips-guard configuration file.
//
// Loggers are written like rule options, `- alert_fast: {limit: 10, units: K}`,
// and are configured through the same parameter tables.
type Config struct {
	Application ApplicationConfig `yaml:"application"`
	Rules       RulesConfig       `yaml:"rules"`
	Loggers     []model.Option    `yaml:"loggers"`
	Alerting    AlertingConfig    `yaml:"alerting"`
	Logging     LoggingConfig     `yaml:"logging"`
	Profile     ProfileConfig     `yaml:"profile"`
}

// Validate fills defaults and rejects settings that cannot work.
func (c *Config) Validate() error {
	if c.Application.HubbleServer == "" {
		c.Application.HubbleServer = "localhost:4245"
	}
	if c.Application.ListenAddress == "" {
		c.Application.ListenAddress = ":8080"
	}
	if c.Application.MaxAlerts <= 0 {
		c.Application.MaxAlerts = 10000
	}
	if c.Application.Workers < 0 {
		return fmt.Errorf("workers cannot be negative: %d", c.Application.Workers)
	}

	if len(c.Rules.Files) == 0 && len(c.Rules.Inline) == 0 {
		return fmt.Errorf("no rules configured: set rules.files or rules.inline")
	}

	for i, l := range c.Loggers {
		if l.Name == "" {
			return fmt.Errorf("loggers[%d]: missing logger name", i)
		}
	}

	if c.Logging.Level == "" {
		c.Logging.Level = "INFO"
	}
	if c.Logging.Format == "" {
		c.Logging.Format = "text"
	}

	if c.Profile.FlushIntervalSeconds <= 0 {
		c.Profile.FlushIntervalSeconds = 5
	}

	return nil
}

// GetDefaultConfig returns the configuration used when no file is given
func GetDefaultConfig() *Config {
	cfg := &Config{
		Application: ApplicationConfig{
			HubbleServer:  "localhost:4245",
			ListenAddress: ":8080",
			MaxAlerts:     10000,
		},
		Rules: RulesConfig{
			Files: []string{"configs/rules.yaml"},
		},
		Loggers: []model.Option{
			{Name: "alert_fast", Params: []model.Param{
				{Name: "file", Value: "stdout"},
				{Name: "packet", Value: "false"},
			}},
		},
		Logging: LoggingConfig{
			Level:  "INFO",
			Format: "text",
		},
		Profile: ProfileConfig{
			FlushIntervalSeconds: 5,
		},
	}
	cfg.Alerting.Enabled = true
	cfg.Alerting.Channels.Log = true
	cfg.Alerting.Channels.Websocket = true
	return cfg
}
