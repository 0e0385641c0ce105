package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	cli "github.com/urfave/cli/v3"

	"github.com/cascadeflow/cascade/pkg/cmd"
	"github.com/cascadeflow/cascade/pkg/log"
	"github.com/cascadeflow/cascade/pkg/sources/schedule"
	"github.com/cascadeflow/cascade/pkg/workflow"
)

func main() {
	command := &cli.Command{
		Name:                  "cascade-scheduler",
		EnableShellCompletion: true,
		Usage:                 "Fire scheduled workflows on their cron expressions",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "database-url",
				Usage:    "Database connection URL for persistence",
				Required: true,
				Sources:  cli.EnvVars("DATABASE_URL"),
			},
			&cli.StringFlag{
				Name:     "event-bus",
				Usage:    "Event bus type (kafka, gochannel)",
				Required: true,
				Sources:  cli.EnvVars("EVENT_BUS_TYPE"),
			},
			&cli.StringFlag{
				Name:    "log-level",
				Usage:   "Log level (debug, info, warn, error)",
				Value:   "info",
				Sources: cli.EnvVars("LOG_LEVEL"),
			},
		},
		Action: func(ctx context.Context, command *cli.Command) error {
			log.Setup(command.String("log-level"))

			logger := log.WithModule("cascade-scheduler")

			logger.InfoContext(ctx, "Initializing Cascade Scheduler")

			eventBus := cmd.NewEventBus(command.String("event-bus"), "cascade-scheduler", logger)
			defer func() {
				if err := eventBus.Close(); err != nil {
					logger.ErrorContext(ctx, "Failed to close event bus", "error", err)
				}
			}()

			persistence := cmd.NewPersistence(ctx, logger, command.String("database-url"))
			defer func() {
				if err := persistence.Close(ctx); err != nil {
					logger.ErrorContext(ctx, "Failed to close persistence", "error", err)
				}
			}()

			coordinator := workflow.NewCoordinator(persistence, eventBus, logger)
			source := schedule.NewSource(persistence, coordinator, logger)

			runCtx, cancel := context.WithCancel(ctx)
			defer cancel()

			sigChan := make(chan os.Signal, 1)
			signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

			go func() {
				<-sigChan
				logger.Info("Shutting down scheduler...")
				cancel()
			}()

			return source.Start(runCtx)
		},
	}

	err := command.Run(context.Background(), os.Args)
	if err != nil {
		panic(err)
	}
}
