package main

import (
	"context"
	"errors"
	"log/slog"
	"strconv"

	"github.com/dukex/stageflow/pkg/approval"
	"github.com/dukex/stageflow/pkg/eventbus"
	"github.com/dukex/stageflow/pkg/metrics"
	"github.com/dukex/stageflow/pkg/otelhelper"
	"github.com/dukex/stageflow/pkg/persistence"
	"github.com/dukex/stageflow/pkg/services"
	"github.com/dukex/stageflow/pkg/web"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/adaptor"
	"github.com/gofiber/fiber/v3/middleware/cors"
	"github.com/gofiber/fiber/v3/middleware/healthcheck"
	"github.com/gofiber/fiber/v3/middleware/logger"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel/attribute"
)

// API is the backend of record: REST handlers, metrics and the approval sweeper.
type API struct {
	logger      *slog.Logger
	persistence persistence.Persistence
	eventBus    eventbus.EventPublisher
	registry    *prometheus.Registry
	validate    *validator.Validate

	workflows *services.Workflow
	activity  *services.Activity
	mapping   *services.Mapping
	executor  *services.Executor
}

// NewAPI wires the services. eventBus may be nil, in which case no events are published.
func NewAPI(
	logger *slog.Logger,
	persistence persistence.Persistence,
	eventBus eventbus.EventPublisher,
) *API {
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	recorder := metrics.NewRecorder(metrics.Config{Registry: registry})

	opts := []services.Option{
		services.WithMetrics(recorder),
		services.WithLogger(logger),
	}

	if eventBus != nil {
		opts = append(opts, services.WithPublisher(eventBus))
	}

	return &API{
		logger:      logger,
		persistence: persistence,
		eventBus:    eventBus,
		registry:    registry,
		validate:    validator.New(validator.WithRequiredStructEnabled()),
		workflows:   services.NewWorkflow(persistence, opts...),
		activity:    services.NewActivity(persistence, opts...),
		mapping:     services.NewMapping(persistence, opts...),
		executor:    services.NewExecutor(persistence, opts...),
	}
}

func (a *API) App() *fiber.App {
	handlers := web.NewAPIHandlers(a.workflows, a.activity, a.mapping, a.executor, a.validate)

	app := fiber.New()
	app.Use(cors.New())
	app.Use(logger.New(logger.Config{
		DisableColors: true,
	}))
	app.Use(tracing())

	app.Get(healthcheck.DefaultLivenessEndpoint, healthcheck.NewHealthChecker())
	app.Get(healthcheck.DefaultReadinessEndpoint, healthcheck.NewHealthChecker(healthcheck.Config{
		Probe: func(c fiber.Ctx) bool {
			return a.persistence.HealthCheck(c.Context()) == nil
		},
	}))

	app.Get("/", func(c fiber.Ctx) error {
		return c.SendString("Stageflow API")
	})

	app.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(a.registry, promhttp.HandlerOpts{})))

	handlers.Register(app)

	return app
}

// Sweeper returns a sweeper that auto-approves timed-out gates through the executor.
func (a *API) Sweeper(schedule string) *approval.Sweeper {
	return approval.NewSweeper(a.executor, a.logger, schedule)
}

// Start serves on port until ctx is cancelled.
func (a *API) Start(ctx context.Context, port int) error {
	app := a.App()

	errCh := make(chan error, 1)

	go func() {
		errCh <- app.Listen(":"+strconv.Itoa(port), fiber.ListenConfig{DisableStartupMessage: true})
	}()

	a.logger.InfoContext(ctx, "Stageflow API listening", "port", port)

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		a.logger.InfoContext(ctx, "Shutting down Stageflow API")

		err := app.Shutdown()
		if err != nil && !errors.Is(err, context.Canceled) {
			return err
		}

		return <-errCh
	}
}

// tracing opens one span per request on the global tracer provider.
func tracing() fiber.Handler {
	tracer := otelhelper.Tracer("stageflow/api")

	return func(c fiber.Ctx) error {
		ctx, span := otelhelper.StartSpan(c.Context(), tracer, c.Method()+" "+c.Path(),
			attribute.String("http.method", c.Method()),
			attribute.String("http.target", c.OriginalURL()),
		)
		defer span.End()

		c.SetContext(ctx)

		err := c.Next()
		if err != nil {
			otelhelper.SetError(span, err)
		}

		span.SetAttributes(attribute.Int("http.status_code", c.Response().StatusCode()))

		return err
	}
}
