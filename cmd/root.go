package cmd

import (
	"context"

	"github.com/urfave/cli/v3"

	"github.com/stupside/marquee/internal/app"
)

// Root returns the root CLI command.
func Root() *cli.Command {
	var configPath string

	return &cli.Command{
		Name:  "marquee",
		Usage: "Crawl movie catalogs and resolve playable media URLs",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "config",
				Aliases:     []string{"c"},
				Usage:       "Path to configuration file",
				Value:       "config.yaml",
				Destination: &configPath,
			},
			&cli.BoolFlag{
				Name:  "debug",
				Usage: "Enable debug logging and page snapshots",
			},
			&cli.StringFlag{
				Name:  "proxy",
				Usage: "Proxy server for every page session, e.g. http://127.0.0.1:8080",
			},
			&cli.StringFlag{
				Name:  "user-agent",
				Usage: "Fixed User-Agent instead of a random one per session",
			},
			&cli.BoolFlag{
				Name:  "static",
				Usage: "Fetch pages over plain HTTP instead of headless Chrome",
			},
			&cli.IntFlag{
				Name:  "workers",
				Usage: "Number of detail pages resolved concurrently",
			},
		},
		Before: func(ctx context.Context, cmd *cli.Command) (context.Context, error) {
			cfg, err := app.Load(configPath)
			if err != nil {
				return ctx, err
			}
			if cmd.IsSet("proxy") {
				cfg.Browser.Proxy = cmd.String("proxy")
			}
			if cmd.IsSet("user-agent") {
				cfg.Browser.UserAgent = cmd.String("user-agent")
			}
			if cmd.IsSet("static") {
				cfg.Browser.Static = cmd.Bool("static")
			}
			if cmd.IsSet("workers") {
				cfg.Workers = int(cmd.Int("workers"))
			}
			if err := cfg.Validate(); err != nil {
				return ctx, err
			}
			cmd.Metadata["config"] = cfg
			return ctx, nil
		},
		Commands: []*cli.Command{
			crawlCommand(),
			resolveCommand(),
			listCommand(),
			sitesCommand(),
		},
		Metadata: map[string]any{},
	}
}
