package alert

import (
	"fmt"

	"ips-guard/internal/model"
	"ips-guard/internal/module"
	"ips-guard/internal/plugin"

	"github.com/samber/lo"
)

// Register adds the logger kinds of this package to reg.
func Register(reg *plugin.Registry) error {
	return reg.RegisterLogger(FastApi)
}

// LoggerNotifier adapts an open plugin logger to the Notifier interface.
// Close closes the logger and hands it to its destructor.
type LoggerNotifier struct {
	name   string
	api    *plugin.LoggerApi
	logger plugin.Logger
}

func (n *LoggerNotifier) Name() string { return n.name }

func (n *LoggerNotifier) SendAlert(a model.Alert) error {
	return n.logger.Alert(a)
}

func (n *LoggerNotifier) Close() error {
	err := n.logger.Close()
	n.api.Dtor(n.logger)
	return err
}

// OpenLoggers configures and opens every logger in cfgs. On error the
// loggers already opened are closed again.
func OpenLoggers(reg *plugin.Registry, cfgs []model.Option) ([]*LoggerNotifier, error) {
	var opened []*LoggerNotifier
	for _, cfg := range cfgs {
		n, err := openLogger(reg, cfg)
		if err != nil {
			lo.ForEach(opened, func(n *LoggerNotifier, _ int) { _ = n.Close() })
			return nil, err
		}
		opened = append(opened, n)
	}
	return opened, nil
}

func openLogger(reg *plugin.Registry, cfg model.Option) (*LoggerNotifier, error) {
	entry, err := reg.Logger(cfg.Name)
	if err != nil {
		return nil, err
	}
	api := entry.Logger

	m := api.ModCtor()
	defer api.ModDtor(m)

	pairs := lo.Map(cfg.Params, func(p model.Param, _ int) module.Pair {
		return module.Pair{Name: p.Name, Value: p.Value}
	})
	if err := module.Configure(m, pairs); err != nil {
		return nil, err
	}

	l, err := api.Ctor(m)
	if err != nil {
		return nil, err
	}
	if err := l.Open(); err != nil {
		api.Dtor(l)
		return nil, fmt.Errorf("open logger %s: %w", cfg.Name, err)
	}
	return &LoggerNotifier{name: cfg.Name, api: api, logger: l}, nil
}
