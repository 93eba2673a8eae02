package main

import (
	"context"
	"fmt"

	"github.com/pandacrm/automation/pkg/log"
	cli "github.com/urfave/cli/v3"
)

func NewWorkerCommand() *cli.Command {
	return &cli.Command{
		Name:  "worker",
		Usage: "Consume record.changed events and run matching workflows",
		Action: func(ctx context.Context, command *cli.Command) error {
			log.Setup(command.String("log-level"))

			logger := log.WithModule("worker")
			logger.InfoContext(ctx, "Initializing automation worker")

			rt, err := newRuntime(ctx, logger, configFromCommand(command))
			if err != nil {
				return err
			}
			defer rt.Close(context.WithoutCancel(ctx))

			err = rt.dispatcher.Subscribe(rt.bus)
			if err != nil {
				return fmt.Errorf("failed to register record change handler: %w", err)
			}

			err = rt.bus.Subscribe(ctx)
			if err != nil {
				return err
			}

			logger.InfoContext(ctx, "Worker is consuming record changes")
			<-ctx.Done()
			logger.InfoContext(ctx, "Worker stopped")

			return nil
		},
	}
}
