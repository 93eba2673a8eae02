package main

import (
	"context"

	"github.com/pandacrm/automation/pkg/log"
	"github.com/pandacrm/automation/pkg/scheduler"
	cli "github.com/urfave/cli/v3"
)

func NewSchedulerCommand() *cli.Command {
	return &cli.Command{
		Name:  "scheduler",
		Usage: "Run deferred actions once their delay has elapsed",
		Flags: []cli.Flag{
			&cli.DurationFlag{
				Name:    "interval",
				Usage:   "How often due deferred actions are polled",
				Value:   scheduler.DefaultInterval,
				Sources: cli.EnvVars("DEFERRED_POLL_INTERVAL"),
			},
			&cli.IntFlag{
				Name:    "batch-size",
				Usage:   "Maximum deferred actions claimed per poll",
				Value:   scheduler.DefaultBatchSize,
				Sources: cli.EnvVars("DEFERRED_BATCH_SIZE"),
			},
			&cli.IntFlag{
				Name:    "max-attempts",
				Usage:   "Failed runs after which a deferred action is marked FAILED",
				Value:   scheduler.DefaultMaxAttempts,
				Sources: cli.EnvVars("DEFERRED_MAX_ATTEMPTS"),
			},
			&cli.DurationFlag{
				Name:    "lease",
				Usage:   "How long a claimed deferred action may stay PROCESSING before it is released",
				Value:   scheduler.DefaultLease,
				Sources: cli.EnvVars("DEFERRED_LEASE"),
			},
		},
		Action: func(ctx context.Context, command *cli.Command) error {
			log.Setup(command.String("log-level"))

			logger := log.WithModule("scheduler")
			logger.InfoContext(ctx, "Initializing deferred action scheduler")

			rt, err := newRuntime(ctx, logger, configFromCommand(command))
			if err != nil {
				return err
			}
			defer rt.Close(context.WithoutCancel(ctx))

			runner := scheduler.NewDeferredRunner(rt.storage.Persistence, rt.engine, logger,
				scheduler.WithInterval(command.Duration("interval")),
				scheduler.WithBatchSize(command.Int("batch-size")),
				scheduler.WithMaxAttempts(command.Int("max-attempts")),
				scheduler.WithLease(command.Duration("lease")),
			)

			err = runner.Start(ctx)
			if err != nil {
				return err
			}

			<-ctx.Done()

			return runner.Stop(context.WithoutCancel(ctx))
		},
	}
}
