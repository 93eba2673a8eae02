package main

import (
	"context"
	"log/slog"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/cors"
	"github.com/gofiber/fiber/v3/middleware/healthcheck"
	fiberlogger "github.com/gofiber/fiber/v3/middleware/logger"
	"github.com/pandacrm/automation/pkg/log"
	"github.com/pandacrm/automation/pkg/web"
	cli "github.com/urfave/cli/v3"
)

type API struct {
	logger   *slog.Logger
	runtime  *runtime
	validate *validator.Validate
}

func NewAPI(logger *slog.Logger, rt *runtime) *API {
	return &API{
		logger:   logger,
		runtime:  rt,
		validate: validator.New(validator.WithRequiredStructEnabled()),
	}
}

func (a *API) App() *fiber.App {
	handlers := web.NewAPIHandlers(
		a.runtime.dispatcher,
		a.runtime.repository,
		a.runtime.storage.Persistence,
		a.runtime.registry,
		a.validate,
	)

	app := fiber.New()
	app.Use(cors.New())
	app.Use(fiberlogger.New(fiberlogger.Config{
		DisableColors: true,
	}))

	app.Get(healthcheck.DefaultLivenessEndpoint, healthcheck.NewHealthChecker())
	app.Get(healthcheck.DefaultReadinessEndpoint, healthcheck.NewHealthChecker())

	app.Get("/", func(c fiber.Ctx) error {
		return c.SendString("CRM Automation API")
	})

	handlers.Register(app)

	return app
}

// Start serves until ctx is done.
func (a *API) Start(ctx context.Context, port int) error {
	app := a.App()

	go func() {
		<-ctx.Done()

		err := app.ShutdownWithContext(context.WithoutCancel(ctx))
		if err != nil {
			a.logger.Error("Failed to shut down API", "error", err)
		}
	}()

	return app.Listen(":" + strconv.Itoa(port))
}

func NewAPICommand() *cli.Command {
	return &cli.Command{
		Name:  "api",
		Usage: "Serve the trigger, workflow and audit HTTP API",
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:    "port",
				Aliases: []string{"p"},
				Usage:   "Port to run the API server on",
				Value:   defaultPort,
				Sources: cli.EnvVars("PORT"),
			},
		},
		Action: func(ctx context.Context, command *cli.Command) error {
			log.Setup(command.String("log-level"))

			logger := log.WithModule("api")
			logger.InfoContext(ctx, "Initializing automation API")

			rt, err := newRuntime(ctx, logger, configFromCommand(command))
			if err != nil {
				return err
			}
			defer rt.Close(context.WithoutCancel(ctx))

			return NewAPI(logger, rt).Start(ctx, command.Int("port"))
		},
	}
}
