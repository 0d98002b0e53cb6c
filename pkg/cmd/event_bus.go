// Package cmd provides common initialization functions for command-line applications.
package cmd

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/dukex/stageflow/pkg/channels/gochannel"
	"github.com/dukex/stageflow/pkg/channels/kafka"
	"github.com/dukex/stageflow/pkg/eventbus"
)

var ErrUnsupportedEventBus = errors.New("unsupported event bus provider")

// EventBusConfig selects the event bus transport. Brokers is a comma separated list used by
// the kafka provider.
type EventBusConfig struct {
	Provider    string
	Brokers     string
	OTELEnabled bool
}

func NewEventBus(config EventBusConfig, logger *slog.Logger) (*eventbus.WatermillEventBus, error) {
	wmLogger := watermill.NewSlogLogger(logger)

	switch config.Provider {
	case "", "gochannel":
		pub, sub := gochannel.New(wmLogger, gochannel.Config{})

		return eventbus.NewWatermillEventBus(pub, sub), nil
	case "kafka":
		pub, sub, err := kafka.New(wmLogger, kafka.Config{
			Brokers:     kafka.ParseBrokers(config.Brokers),
			OTELEnabled: config.OTELEnabled,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create Kafka pub/sub: %w", err)
		}

		return eventbus.NewWatermillEventBus(pub, sub), nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedEventBus, config.Provider)
	}
}
