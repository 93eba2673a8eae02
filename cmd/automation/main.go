// Package main provides the automation binary: the HTTP API, the record-change worker,
// the deferred action scheduler and the definition file tools.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/pandacrm/automation/pkg/log"
	cli "github.com/urfave/cli/v3"
)

const (
	serviceName        = "automation"
	defaultPort        = 9091
	defaultDatabaseURL = "./data"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	command := &cli.Command{
		Name:                  serviceName,
		Usage:                 "Run CRM workflow automation",
		EnableShellCompletion: true,
		Flags:                 globalFlags(),
		Commands: []*cli.Command{
			NewAPICommand(),
			NewWorkerCommand(),
			NewSchedulerCommand(),
			NewValidateCommand(),
			NewImportCommand(),
		},
	}

	err := command.Run(ctx, os.Args)
	if err != nil {
		log.WithModule(serviceName).Error("Command failed", "error", err)
		os.Exit(1)
	}
}

func globalFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "database-url",
			Usage:   "Database connection URL for persistence (postgres://... or a directory)",
			Value:   defaultDatabaseURL,
			Sources: cli.EnvVars("DATABASE_URL"),
		},
		&cli.StringFlag{
			Name:    "redis-url",
			Usage:   "Redis URL for deferred actions; empty keeps them in the database",
			Sources: cli.EnvVars("REDIS_URL"),
		},
		&cli.StringFlag{
			Name:    "event-bus",
			Usage:   "Event bus type (gochannel, kafka)",
			Value:   "gochannel",
			Sources: cli.EnvVars("EVENT_BUS_TYPE"),
		},
		&cli.StringSliceFlag{
			Name:    "kafka-brokers",
			Usage:   "Kafka brokers when the event bus is kafka",
			Sources: cli.EnvVars("KAFKA_BROKERS"),
		},
		&cli.StringFlag{
			Name:    "commission-service-url",
			Usage:   "Base URL of the commission service",
			Sources: cli.EnvVars("COMMISSION_SERVICE_URL"),
		},
		&cli.StringFlag{
			Name:    "scheduling-service-url",
			Usage:   "Base URL of the scheduling service",
			Sources: cli.EnvVars("SCHEDULING_SERVICE_URL"),
		},
		&cli.StringFlag{
			Name:    "signing-base-url",
			Usage:   "Base URL signing links are built on",
			Value:   "http://localhost:3000",
			Sources: cli.EnvVars("SIGNING_BASE_URL"),
		},
		&cli.DurationFlag{
			Name:    "http-timeout",
			Usage:   "Timeout of outbound HTTP calls (webhooks, commission and scheduling services)",
			Value:   30 * time.Second,
			Sources: cli.EnvVars("HTTP_TIMEOUT"),
		},
		&cli.StringFlag{
			Name:    "plugins-path",
			Usage:   "Path to the directory containing action plugins",
			Value:   "./plugins",
			Sources: cli.EnvVars("PLUGINS_PATH"),
		},
		&cli.BoolFlag{
			Name:    "tracing",
			Usage:   "Export traces over OTLP/HTTP",
			Sources: cli.EnvVars("TRACING_ENABLED"),
		},
		&cli.StringFlag{
			Name:    "log-level",
			Usage:   "Log level (debug, info, warn, error)",
			Value:   "info",
			Sources: cli.EnvVars("LOG_LEVEL"),
		},
	}
}
