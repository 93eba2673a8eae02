package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/pandacrm/automation/pkg/audit"
	"github.com/pandacrm/automation/pkg/cmd"
	"github.com/pandacrm/automation/pkg/documents"
	"github.com/pandacrm/automation/pkg/eventbus"
	"github.com/pandacrm/automation/pkg/providers/httpapi"
	"github.com/pandacrm/automation/pkg/providers/outbox"
	"github.com/pandacrm/automation/pkg/registry"
	"github.com/pandacrm/automation/pkg/workflow"
	cli "github.com/urfave/cli/v3"
)

// config holds the settings shared by every subcommand.
type config struct {
	DatabaseURL          string
	RedisURL             string
	EventBus             string
	KafkaBrokers         []string
	CommissionServiceURL string
	SchedulingServiceURL string
	SigningBaseURL       string
	HTTPTimeout          time.Duration
	PluginsPath          string
	Tracing              bool
}

func configFromCommand(command *cli.Command) config {
	return config{
		DatabaseURL:          command.String("database-url"),
		RedisURL:             command.String("redis-url"),
		EventBus:             command.String("event-bus"),
		KafkaBrokers:         command.StringSlice("kafka-brokers"),
		CommissionServiceURL: command.String("commission-service-url"),
		SchedulingServiceURL: command.String("scheduling-service-url"),
		SigningBaseURL:       command.String("signing-base-url"),
		HTTPTimeout:          command.Duration("http-timeout"),
		PluginsPath:          command.String("plugins-path"),
		Tracing:              command.Bool("tracing"),
	}
}

// runtime is the wired engine shared by the api, worker and scheduler commands.
type runtime struct {
	logger     *slog.Logger
	storage    *cmd.Storage
	bus        eventbus.EventBus
	registry   *registry.Registry
	engine     *workflow.Engine
	dispatcher *workflow.Dispatcher
	repository *workflow.Repository

	shutdownTracer func(context.Context) error
}

func newRuntime(ctx context.Context, logger *slog.Logger, cfg config) (*runtime, error) {
	rt := &runtime{logger: logger}

	tracer, shutdownTracer, err := cmd.NewTracer(ctx, cfg.Tracing, serviceName)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize tracer: %w", err)
	}

	rt.shutdownTracer = shutdownTracer

	rt.storage, err = cmd.NewStorage(ctx, logger, cfg.DatabaseURL, cfg.RedisURL)
	if err != nil {
		rt.Close(ctx)

		return nil, err
	}

	rt.bus, err = cmd.NewEventBus(cfg.EventBus, cfg.KafkaBrokers, serviceName, logger)
	if err != nil {
		rt.Close(ctx)

		return nil, err
	}

	p := rt.storage.Persistence
	httpClient := &http.Client{Timeout: cfg.HTTPTimeout}
	box := outbox.New(rt.bus, logger)
	auditor := audit.NewRecorder(p.AuditLogRepository(), logger, nil)

	rt.registry, err = cmd.NewRegistry(logger, cfg.PluginsPath, registry.Dependencies{
		Store:          rt.storage.Records,
		Auditor:        auditor,
		Messenger:      box,
		Commissions:    httpapi.NewCommissionClient(cfg.CommissionServiceURL, httpClient),
		Appointments:   httpapi.NewSchedulingClient(cfg.SchedulingServiceURL, httpClient),
		Agreements:     box,
		Templates:      documents.NewService(p.DocumentTemplateRepository(), nil),
		HTTPClient:     httpClient,
		SigningBaseURL: cfg.SigningBaseURL,
	})
	if err != nil {
		rt.Close(ctx)

		return nil, fmt.Errorf("failed to load action plugins: %w", err)
	}

	rt.engine = workflow.NewEngine(rt.registry, p, logger,
		workflow.WithTracer(tracer),
		workflow.WithPublisher(rt.bus),
	)
	rt.dispatcher = workflow.NewDispatcher(rt.engine, auditor, logger)
	rt.repository = workflow.NewRepository(p, rt.registry)

	return rt, nil
}

// Close releases everything newRuntime opened. It is safe on a partially built runtime.
func (rt *runtime) Close(ctx context.Context) {
	if rt.bus != nil {
		err := rt.bus.Close()
		if err != nil {
			rt.logger.ErrorContext(ctx, "Failed to close event bus", "error", err)
		}
	}

	if rt.storage != nil {
		err := rt.storage.Close(ctx)
		if err != nil {
			rt.logger.ErrorContext(ctx, "Failed to close persistence", "error", err)
		}
	}

	if rt.shutdownTracer != nil {
		err := rt.shutdownTracer(ctx)
		if err != nil {
			rt.logger.ErrorContext(ctx, "Failed to shutdown tracer provider", "error", err)
		}
	}
}
