// Package app wires the shared runtime of the command-line tools: logger,
// metrics and event bus built from configuration.
package app

import (
	stderrors "errors"

	"github.com/ricesearch/irtools/internal/bus"
	"github.com/ricesearch/irtools/internal/config"
	"github.com/ricesearch/irtools/internal/metrics"
	"github.com/ricesearch/irtools/internal/pkg/errors"
	"github.com/ricesearch/irtools/internal/pkg/logger"
)

// Runtime holds the long-lived services of one command invocation.
type Runtime struct {
	Config  *config.Config
	Log     *logger.Logger
	Metrics *metrics.Metrics
	Bus     bus.Bus
}

// Start builds the runtime. The caller must Close it.
func Start(cfg *config.Config) (*Runtime, error) {
	log := logger.New(cfg.Log.Level, cfg.Log.Format)

	m, err := metrics.NewWithConfig(cfg.Metrics.Persistence, cfg.Metrics.RedisURL)
	if err != nil {
		return nil, err
	}
	log.Debug("Initialized metrics", "persistence", cfg.Metrics.Persistence)

	eventBus, err := bus.NewBus(cfg.Bus, m, log)
	if err != nil {
		_ = m.Close()
		return nil, err
	}
	log.Debug("Initialized event bus", "type", cfg.Bus.Type, "event_log", cfg.Bus.EventLog)

	return &Runtime{
		Config:  cfg,
		Log:     log,
		Metrics: m,
		Bus:     eventBus,
	}, nil
}

// Close drains the bus, exports metrics to the configured file and releases
// connections. Every step runs even if an earlier one fails.
func (rt *Runtime) Close() error {
	var errs []error

	if err := rt.Bus.Close(); err != nil {
		errs = append(errs, err)
	}

	if path := rt.Config.Metrics.OutputFile; path != "" {
		if err := rt.Metrics.WriteFile(path); err != nil {
			errs = append(errs, errors.IOError("writing metrics file", path, err))
		} else {
			rt.Log.Debug("Wrote metrics", "path", path)
		}
	}

	if err := rt.Metrics.Close(); err != nil {
		errs = append(errs, err)
	}

	return stderrors.Join(errs...)
}
