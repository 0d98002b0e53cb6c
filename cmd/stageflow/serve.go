package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/dukex/stageflow/pkg/approval"
	"github.com/dukex/stageflow/pkg/cmd"
	"github.com/dukex/stageflow/pkg/log"
	"github.com/dukex/stageflow/pkg/models"
	"github.com/dukex/stageflow/pkg/otelhelper"
	cli "github.com/urfave/cli/v3"
)

const defaultPort = 9091

func apiCommand() *cli.Command {
	return &cli.Command{
		Name:  "api",
		Usage: "Serve the REST backend and the approval timeout sweeper",
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:    "port",
				Aliases: []string{"p"},
				Usage:   "Port to run the API server on",
				Value:   defaultPort,
				Sources: cli.EnvVars("PORT"),
			},
			&cli.StringFlag{
				Name:     "database-url",
				Usage:    "Database connection URL for persistence (file://dir or postgres://...)",
				Required: true,
				Sources:  cli.EnvVars("DATABASE_URL"),
			},
			&cli.StringFlag{
				Name:    "event-bus",
				Usage:   "Event bus type (gochannel, kafka)",
				Value:   "gochannel",
				Sources: cli.EnvVars("EVENT_BUS_TYPE"),
			},
			&cli.StringFlag{
				Name:    "kafka-brokers",
				Usage:   "Comma separated Kafka brokers for the kafka event bus",
				Sources: cli.EnvVars("KAFKA_BROKERS"),
			},
			&cli.StringFlag{
				Name:    "sweep-schedule",
				Usage:   "Cron schedule of the approval timeout sweeper",
				Value:   approval.DefaultSweepSchedule,
				Sources: cli.EnvVars("SWEEP_SCHEDULE"),
			},
			&cli.StringFlag{
				Name:  "functionalities",
				Usage: "JSON file of functionalities to register at startup",
			},
		},
		Action: runAPI,
	}
}

func runAPI(ctx context.Context, command *cli.Command) error {
	logger := log.WithModule("api")

	logger.InfoContext(ctx, "Initializing Stageflow API")

	shutdownTracing, err := otelhelper.Setup(ctx, "stageflow-api", command.Bool("tracing"))
	if err != nil {
		return fmt.Errorf("failed to initialize tracing: %w", err)
	}

	defer func() {
		if err := shutdownTracing(context.WithoutCancel(ctx)); err != nil {
			logger.ErrorContext(ctx, "Failed to shutdown tracer provider", "error", err)
		}
	}()

	store, err := cmd.NewPersistence(ctx, logger, command.String("database-url"))
	if err != nil {
		return err
	}

	defer func() {
		if err := store.Close(context.WithoutCancel(ctx)); err != nil {
			logger.ErrorContext(ctx, "Failed to close persistence", "error", err)
		}
	}()

	eventBus, err := cmd.NewEventBus(cmd.EventBusConfig{
		Provider:    command.String("event-bus"),
		Brokers:     command.String("kafka-brokers"),
		OTELEnabled: command.Bool("tracing"),
	}, logger)
	if err != nil {
		return err
	}

	defer func() {
		if err := eventBus.Close(); err != nil {
			logger.ErrorContext(ctx, "Failed to close event bus", "error", err)
		}
	}()

	api := NewAPI(logger, store, eventBus)

	if path := command.String("functionalities"); path != "" {
		err = api.seedFunctionalities(ctx, path)
		if err != nil {
			return err
		}
	}

	sweeper := api.Sweeper(command.String("sweep-schedule"))

	err = sweeper.Start(ctx)
	if err != nil {
		return err
	}

	defer sweeper.Stop()

	return api.Start(ctx, command.Int("port"))
}

func (a *API) seedFunctionalities(ctx context.Context, path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read functionalities: %w", err)
	}

	var functionalities []*models.Functionality

	err = json.Unmarshal(raw, &functionalities)
	if err != nil {
		return fmt.Errorf("failed to decode functionalities: %w", err)
	}

	for _, functionality := range functionalities {
		err = a.mapping.RegisterFunctionality(ctx, functionality)
		if err != nil {
			return fmt.Errorf("failed to register functionality %q: %w", functionality.ID, err)
		}
	}

	a.logger.InfoContext(ctx, "Functionalities registered", "count", len(functionalities))

	return nil
}
