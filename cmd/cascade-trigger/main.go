package main

import (
	"context"
	"os"

	cli "github.com/urfave/cli/v3"
)

func main() {
	command := &cli.Command{
		Name:                  "cascade-trigger",
		Usage:                 "Fire trigger events and validate workflow definitions",
		EnableShellCompletion: true,
		Commands: []*cli.Command{
			{
				Name:    "fire",
				Aliases: []string{"f"},
				Usage:   "Publish a trigger event and enqueue matching workflows",
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
						Name:     "tenant-id",
						Usage:    "Tenant the event belongs to",
						Required: true,
					},
					&cli.StringFlag{
						Name:     "entity-type",
						Usage:    "Entity type of the event (e.g. Deal, Contact)",
						Required: true,
					},
					&cli.StringFlag{
						Name:     "entity-id",
						Usage:    "Identifier of the entity the event is about",
						Required: true,
					},
					&cli.StringFlag{
						Name:     "trigger-type",
						Usage:    "Trigger type (created, updated, deleted, stage_changed, manual)",
						Required: true,
					},
					&cli.StringFlag{
						Name:  "data",
						Usage: "Trigger data as a JSON object",
						Value: "{}",
					},
					&cli.StringFlag{
						Name:  "triggered-by",
						Usage: "User ID that caused the event",
						Value: "",
					},
					&cli.StringFlag{
						Name:    "log-level",
						Usage:   "Log level (debug, info, warn, error)",
						Value:   "info",
						Sources: cli.EnvVars("LOG_LEVEL"),
					},
				},
				Action: FireTrigger,
			},
			{
				Name:    "validate",
				Aliases: []string{"v"},
				Usage:   "Validate a workflow definition file",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "file",
						Aliases:  []string{"f"},
						Usage:    "Path to a workflow definition JSON file",
						Required: true,
					},
					&cli.StringFlag{
						Name:    "log-level",
						Usage:   "Log level (debug, info, warn, error)",
						Value:   "info",
						Sources: cli.EnvVars("LOG_LEVEL"),
					},
				},
				Action: ValidateWorkflow,
			},
		},
	}

	if err := command.Run(context.Background(), os.Args); err != nil {
		panic(err)
	}
}
