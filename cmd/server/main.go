package main

import (
	"context"
	"os"

	"github.com/charmbracelet/log"
	"github.com/urfave/cli/v3"
)

func main() {
	app := &cli.Command{
		Name:  "escalas",
		Usage: "Worship schedule API server and maintenance tasks",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to an optional TOML configuration file",
				Sources: cli.EnvVars("CONFIG_FILE"),
			},
			&cli.BoolFlag{
				Name:  "dev",
				Usage: "Fall back to a development JWT secret when JWT_SECRET is unset",
			},
		},
		Action: serve,
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "Run the HTTP API (and the gRPC health service when GRPC_ADDRESS is set)",
				Action: serve,
			},
			{
				Name:  "migrate",
				Usage: "Manage the database schema",
				Commands: []*cli.Command{
					{
						Name:   "up",
						Usage:  "Apply pending migrations",
						Action: migrateUp,
					},
					{
						Name:   "down",
						Usage:  "Roll back the last applied migration",
						Action: migrateDown,
					},
				},
			},
			{
				Name:   "seed",
				Usage:  "Create the admin user if it does not exist",
				Action: seed,
			},
			{
				Name:  "cleanup",
				Usage: "Delete rows whose user or schedule no longer exists",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "dry-run",
						Usage: "Only list the orphaned rows",
					},
				},
				Action: cleanup,
			},
			{
				Name:   "ping",
				Usage:  "Check database connectivity",
				Action: ping,
			},
		},
	}

	if err := app.Run(context.Background(), os.Args); err != nil {
		log.Fatal("application error", "err", err)
	}
}
