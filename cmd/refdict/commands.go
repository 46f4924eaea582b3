package main

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/heartmarshall/refdict/internal/app"
	"github.com/heartmarshall/refdict/internal/config"
	"github.com/heartmarshall/refdict/internal/service/picker"
	"github.com/heartmarshall/refdict/pkg/ctxutil"
)

// withApp loads configuration, wires the application and runs fn with it.
func withApp(c *cli.Context, fn func(ctx context.Context, a *app.App) error) error {
	cfg, err := config.LoadFrom(c.String("config"))
	if err != nil {
		return err
	}
	logger := app.NewLogger(cfg.Log)

	ctx := ctxutil.NewRun(c.Context)
	a, err := app.New(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	return fn(ctx, a)
}

func refreshCommand() *cli.Command {
	return &cli.Command{
		Name:  "refresh",
		Usage: "Reload every dictionary from the API and store the snapshot",
		Action: func(c *cli.Context) error {
			return withApp(c, func(ctx context.Context, a *app.App) error {
				start := time.Now()
				snap, err := a.Store.RefreshAll(ctx)
				if err != nil {
					return err
				}
				fmt.Fprintf(c.App.Writer, "refreshed %d dictionaries in %s (generation %s)\n",
					len(snap.Entries), time.Since(start).Round(time.Millisecond), snap.Generation)
				return nil
			})
		},
	}
}

func resolveCommand() *cli.Command {
	return &cli.Command{
		Name:      "resolve",
		Usage:     "Print a summary of one dictionary, or of all when none is given",
		ArgsUsage: "[dictionary]",
		Action: func(c *cli.Context) error {
			return withApp(c, func(ctx context.Context, a *app.App) error {
				if c.Args().Present() {
					entry, err := a.Store.Resolve(ctx, c.Args().First())
					if err != nil {
						return err
					}
					fmt.Fprintf(c.App.Writer, "%s\t%d\t%s\t%d items\tfetched %s\n",
						c.Args().First(), entry.DictionaryID, entry.DictionaryName, len(entry.ItemsByCode),
						entry.FetchedAt.Format(time.RFC3339))
					return nil
				}

				snap, err := a.Store.ResolveAll(ctx)
				if err != nil {
					return err
				}
				codes := snap.Codes()
				sort.Strings(codes)
				for _, code := range codes {
					e := snap.Entries[code]
					fmt.Fprintf(c.App.Writer, "%s\t%d\t%s\t%d items\n", code, e.DictionaryID, e.DictionaryName, len(e.ItemsByCode))
				}
				return nil
			})
		},
	}
}

func treeCommand() *cli.Command {
	return &cli.Command{
		Name:      "tree",
		Usage:     "Render a dictionary forest the way a picker shows it",
		ArgsUsage: "<dictionary>",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "query", Aliases: []string{"q"}, Usage: "Search query"},
			&cli.StringSliceFlag{Name: "select", Aliases: []string{"s"}, Usage: "Codes to click, in order"},
			&cli.BoolFlag{Name: "expand-all", Usage: "Expand every branch"},
			&cli.BoolFlag{Name: "single", Usage: "Single-select mode"},
		},
		Action: func(c *cli.Context) error {
			if !c.Args().Present() {
				return cli.Exit("tree: dictionary code required", 1)
			}
			return withApp(c, func(ctx context.Context, a *app.App) error {
				var expanded []string
				if c.Bool("expand-all") {
					entry, err := a.Store.Resolve(ctx, c.Args().First())
					if err != nil {
						return err
					}
					expanded = branchCodes(entry.Tree)
				}
				p := a.Pickers.Open(ctx, picker.Props{
					DictionaryCode: c.Args().First(),
					Multiple:       !c.Bool("single"),
					Expanded:       expanded,
				})
				for _, code := range c.StringSlice("select") {
					p.Click(code)
				}
				p.Search(c.String("query"))

				renderTree(c.App.Writer, p)
				return nil
			})
		},
	}
}

func searchCommand() *cli.Command {
	return &cli.Command{
		Name:      "search",
		Usage:     "Print every item matching a query with its path from the root",
		ArgsUsage: "<dictionary> <query>",
		Action: func(c *cli.Context) error {
			if c.Args().Len() < 2 {
				return cli.Exit("search: dictionary and query required", 1)
			}
			return withApp(c, func(ctx context.Context, a *app.App) error {
				entry, err := a.Store.Resolve(ctx, c.Args().Get(0))
				if err != nil {
					return err
				}
				query := strings.Join(c.Args().Slice()[1:], " ")
				for _, line := range matchPaths(entry.Tree, query) {
					fmt.Fprintln(c.App.Writer, line)
				}
				return nil
			})
		},
	}
}

func labelsCommand() *cli.Command {
	return &cli.Command{
		Name:      "labels",
		Usage:     "Print the display label of each code",
		ArgsUsage: "<dictionary> <code>...",
		Action: func(c *cli.Context) error {
			if c.Args().Len() < 2 {
				return cli.Exit("labels: dictionary and at least one code required", 1)
			}
			return withApp(c, func(ctx context.Context, a *app.App) error {
				args := c.Args().Slice()
				for _, l := range a.Labels.LoadMany(ctx, args[0], args[1:]) {
					mark := ""
					if !l.Found {
						mark = "\t(unknown)"
					}
					fmt.Fprintf(c.App.Writer, "%s\t%s%s\n", l.Code, l.Name, mark)
				}
				return nil
			})
		},
	}
}

func purgeCommand() *cli.Command {
	return &cli.Command{
		Name:  "purge",
		Usage: "Delete the cached snapshot; the next resolve refetches",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "namespace", Usage: "Also delete every key of the storage namespace (postgres only)"},
		},
		Action: func(c *cli.Context) error {
			return withApp(c, func(ctx context.Context, a *app.App) error {
				if c.Bool("namespace") {
					n, err := a.PurgeNamespace(ctx)
					if err != nil {
						return err
					}
					fmt.Fprintf(c.App.Writer, "namespace %s purged, %d keys removed\n", a.Config.Storage.Namespace, n)
					return nil
				}
				if err := a.Store.Invalidate(ctx); err != nil {
					return err
				}
				fmt.Fprintln(c.App.Writer, "cache purged")
				return nil
			})
		},
	}
}

func metricsCommand() *cli.Command {
	return &cli.Command{
		Name:  "metrics",
		Usage: "Serve /metrics and health endpoints while refreshing the cache periodically",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "addr", Usage: "Listen address (defaults to metrics.addr)"},
			&cli.DurationFlag{Name: "interval", Usage: "Refresh interval (defaults to half the cache TTL)"},
		},
		Action: func(c *cli.Context) error {
			return withApp(c, func(ctx context.Context, a *app.App) error {
				addr := c.String("addr")
				if addr == "" {
					addr = a.Config.Metrics.Addr
				}
				interval := c.Duration("interval")
				if interval <= 0 {
					interval = a.Config.Cache.TTL / 2
				}

				if _, err := a.Store.ResolveAll(ctx); err != nil {
					a.Logger.WarnContext(ctx, "initial resolve failed", slog.String("error", err.Error()))
				}
				go a.KeepWarm(ctx, interval)
				return a.Serve(ctx, addr)
			})
		},
	}
}
