package bus

import (
	"fmt"
	"strings"

	"github.com/ricesearch/irtools/internal/config"
	"github.com/ricesearch/irtools/internal/pkg/errors"
	"github.com/ricesearch/irtools/internal/pkg/logger"
)

// NewBus creates a Bus from configuration. When an event log path is
// configured the bus is wrapped in a LoggedBus, and when recorder is non-nil
// the result is instrumented.
func NewBus(cfg config.BusConfig, recorder MetricsRecorder, log *logger.Logger) (Bus, error) {
	var b Bus

	switch strings.ToLower(cfg.Type) {
	case "memory", "":
		b = NewMemoryBus(log)

	case "kafka":
		brokers := ParseKafkaBrokers(cfg.KafkaBrokers)
		if len(brokers) == 0 {
			return nil, errors.New(errors.CodeValidation, "kafka brokers not configured")
		}

		consumerGroup := cfg.KafkaGroup
		if consumerGroup == "" {
			consumerGroup = "irtools"
		}

		kb, err := NewKafkaBus(KafkaConfig{
			Brokers:       brokers,
			ConsumerGroup: consumerGroup,
		}, log)
		if err != nil {
			return nil, err
		}
		b = kb

	default:
		return nil, errors.New(errors.CodeValidation, fmt.Sprintf("unknown bus type: %s", cfg.Type))
	}

	if cfg.EventLog != "" {
		eventLogger, err := NewEventLogger(cfg.EventLog)
		if err != nil {
			b.Close()
			return nil, errors.IOError("failed to open event log", cfg.EventLog, err)
		}
		b = NewLoggedBus(b, eventLogger, log)
	}

	if recorder != nil {
		b = NewInstrumentedBus(b, recorder)
	}

	return b, nil
}
