// Command refdict is the operator tool for the reference-dictionary cache:
// it refreshes, inspects and purges the cached snapshot and can serve
// Prometheus metrics while keeping the cache warm.
//
// Exit codes: 0 = success, 1 = error.
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v2"

	"github.com/heartmarshall/refdict/internal/app"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newCLI().RunContext(ctx, os.Args); err != nil {
		log.Printf("refdict: %v", err)
		os.Exit(1)
	}
}

func newCLI() *cli.App {
	return &cli.App{
		Name:    "refdict",
		Usage:   "Inspect and maintain the reference-dictionary cache",
		Version: app.BuildVersion(),
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Config file path (overrides CONFIG_PATH)",
				EnvVars: []string{"CONFIG_PATH"},
			},
		},
		Commands: []*cli.Command{
			refreshCommand(),
			resolveCommand(),
			searchCommand(),
			treeCommand(),
			labelsCommand(),
			purgeCommand(),
			metricsCommand(),
		},
	}
}
