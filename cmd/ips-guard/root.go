package main

import (
	"fmt"
	"os"

	"ips-guard/internal/alert"
	"ips-guard/internal/metrics"
	"ips-guard/internal/plugin"
	"ips-guard/internal/profile"
	"ips-guard/internal/rules"
	"ips-guard/internal/rules/builtin"
	"ips-guard/internal/utils"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var (
	configFile string
	logLevel   string
	ruleFiles  []string
)

var rootCmd = &cobra.Command{
	Use:   "ips-guard",
	Short: "ips-guard - rule option evaluation engine",
	Long: `ips-guard evaluates detection rules against decoded packets.

Rules are built from registered option kinds (window, ttl, dsize, itype),
each configured through its parameter table. Packets come from a live
Hubble flow stream or from pcap files.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", utils.DefaultConfigPath, "Configuration file path (YAML)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Override the configured log level")
	rootCmd.PersistentFlags().StringSliceVarP(&ruleFiles, "rules", "r", nil, "Rule files (overrides rules.files)")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(replayCmd)
	rootCmd.AddCommand(optionsCmd)
	rootCmd.AddCommand(versionCmd)
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

// loadConfig reads the config file, falling back to defaults when it does
// not exist, and applies command line overrides.
func loadConfig() (*utils.Config, error) {
	config, err := utils.LoadConfig(configFile)
	if err != nil {
		if _, statErr := os.Stat(configFile); !os.IsNotExist(statErr) {
			return nil, err
		}
		config = utils.GetDefaultConfig()
	}

	if len(ruleFiles) > 0 {
		config.Rules.Files = ruleFiles
	}
	if logLevel != "" {
		config.Logging.Level = logLevel
	}
	return config, config.Validate()
}

func newLogger(config *utils.Config) (*logrus.Logger, func()) {
	logger := utils.NewLogger(config.Logging.Level, config.Logging.Format)
	if config.Logging.FilePath == "" {
		return logger, func() {}
	}

	f, err := utils.SetLogFile(logger, config.Logging.FilePath)
	if err != nil {
		logger.Warnf("Failed to open log file, logging to stderr: %v", err)
		return logger, func() {}
	}
	return logger, func() { _ = f.Close() }
}

// newRegistry registers every builtin kind. A registration error is a
// programming error and stops the process.
func newRegistry(logger *logrus.Logger) *plugin.Registry {
	reg := plugin.NewRegistry(profile.NewAccumulator())
	if err := builtin.Register(reg); err != nil {
		logger.Fatalf("Failed to register rule options: %v", err)
	}
	if err := alert.Register(reg); err != nil {
		logger.Fatalf("Failed to register loggers: %v", err)
	}
	return reg
}

type app struct {
	config  *utils.Config
	logger  *logrus.Logger
	engine  *rules.Engine
	metrics *metrics.Metrics
	closers []func()
}

func (rt *app) Close() {
	rt.engine.Close()
	for i := len(rt.closers) - 1; i >= 0; i-- {
		rt.closers[i]()
	}
}

// setup loads the configuration and rules and wires the configured
// alert outputs into a fresh engine.
func setup() (*app, error) {
	config, err := loadConfig()
	if err != nil {
		return nil, err
	}
	logger, closeLog := newLogger(config)
	reg := newRegistry(logger)

	rt := &app{
		config:  config,
		logger:  logger,
		engine:  rules.NewEngine(reg, logger),
		metrics: metrics.New(reg.Profile()),
		closers: []func(){closeLog},
	}

	loaded, err := rules.LoadRuleFiles(config.Rules.Files)
	if err != nil {
		rt.Close()
		return nil, err
	}
	loaded = append(loaded, config.Rules.Inline...)

	if err := rt.engine.Reload(loaded); err != nil {
		rt.Close()
		return nil, err
	}
	set := rt.engine.RuleSet()
	rt.metrics.SetRuleSet(len(set.Rules), set.Table().Len())

	rt.engine.RegisterNotifier(rt.metrics)
	if config.Alerting.Enabled && config.Alerting.Channels.Log {
		rt.engine.RegisterNotifier(alert.NewLogAlertNotifier(logger))
	}

	loggers, err := alert.OpenLoggers(reg, config.Loggers)
	if err != nil {
		rt.Close()
		return nil, fmt.Errorf("failed to open loggers: %w", err)
	}
	for _, l := range loggers {
		logger.Infof("Alert logger %s enabled", l.Name())
		rt.engine.RegisterNotifier(l)
	}

	return rt, nil
}
