// Package main provides the stageflow command line: the REST backend and client commands
// to list, import, simulate, approve and map workflows.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dukex/stageflow/pkg/client"
	"github.com/dukex/stageflow/pkg/directory"
	"github.com/dukex/stageflow/pkg/log"
	cli "github.com/urfave/cli/v3"
)

const (
	defaultAPIURL   = "http://localhost:9091"
	defaultCacheTTL = 30 * time.Second
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err := newApp().Run(ctx, os.Args)
	if err != nil {
		fmt.Fprintln(os.Stderr, "stageflow:", err)
		stop()
		os.Exit(1)
	}
}

func newApp() *cli.Command {
	return &cli.Command{
		Name:                  "stageflow",
		Usage:                 "Design, rehearse and approve release promotion workflows",
		EnableShellCompletion: true,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "log-level",
				Usage:   "Log level (debug, info, warn, error)",
				Value:   "info",
				Sources: cli.EnvVars("LOG_LEVEL"),
			},
			&cli.StringFlag{
				Name:    "api-url",
				Usage:   "Base URL of the Stageflow API",
				Value:   defaultAPIURL,
				Sources: cli.EnvVars("STAGEFLOW_API_URL"),
			},
			&cli.StringFlag{
				Name:    "cache-url",
				Usage:   "Redis URL used to cache workflow listings (in-memory when empty)",
				Sources: cli.EnvVars("CACHE_URL"),
			},
			&cli.BoolFlag{
				Name:    "tracing",
				Usage:   "Export OpenTelemetry traces over OTLP/HTTP",
				Sources: cli.EnvVars("OTEL_ENABLED"),
			},
		},
		Before: func(ctx context.Context, command *cli.Command) (context.Context, error) {
			log.Setup(command.String("log-level"))

			return ctx, nil
		},
		Commands: []*cli.Command{
			apiCommand(),
			workflowsCommand(),
			importCommand(),
			simulateCommand(),
			approvalsCommand(),
			requestApprovalCommand(),
			decisionCommand("approve", "Approve a pending approval"),
			decisionCommand("reject", "Reject a pending approval"),
			mapCommand(),
			mappingsCommand(),
			unmapCommand(),
			watchCommand(),
		},
	}
}

func newClient(command *cli.Command) *client.Client {
	return client.New(command.String("api-url"))
}

// newDirectory builds a directory over the API, cached in redis when --cache-url is set.
func newDirectory(ctx context.Context, command *cli.Command) (*directory.Directory, func(), error) {
	logger := log.WithModule("directory")
	opts := directory.Options{Logger: logger}
	cleanup := func() {}

	if url := command.String("cache-url"); url != "" {
		cache, err := directory.NewRedisCacheFromURL(ctx, url, defaultCacheTTL)
		if err != nil {
			return nil, nil, err
		}

		opts.Cache = cache
		cleanup = func() {
			if err := cache.Close(); err != nil {
				logger.ErrorContext(ctx, "Failed to close cache", "error", err)
			}
		}
	}

	return directory.New(newClient(command), opts), cleanup, nil
}
