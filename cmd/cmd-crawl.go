package cmd

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"

	"github.com/stupside/marquee/internal/app"
)

// crawlCommand returns the "crawl" CLI subcommand.
func crawlCommand() *cli.Command {
	return &cli.Command{
		Name:  "crawl",
		Usage: "Crawl sites' listings, resolve every title and write one catalog",
		Flags: []cli.Flag{
			&cli.StringSliceFlag{
				Name:    "site",
				Aliases: []string{"s"},
				Usage:   "Name of a configured site (repeatable, crawled in order)",
			},
			&cli.BoolFlag{
				Name:  "all",
				Usage: "Crawl every configured site in configuration order",
			},
			&cli.StringSliceFlag{
				Name:  "listing",
				Usage: "Listing URL to crawl instead of the configured ones (repeatable, single site only)",
			},
			&cli.StringFlag{
				Name:    "output",
				Aliases: []string{"o"},
				Usage:   "Output file (defaults to output.path)",
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			cfg, err := app.ConfigFrom(cmd)
			if err != nil {
				return err
			}
			sites, err := crawlSites(cfg, cmd.StringSlice("site"), cmd.Bool("all"))
			if err != nil {
				return err
			}
			listings := cmd.StringSlice("listing")
			if len(listings) > 0 && len(sites) > 1 {
				return fmt.Errorf("--listing needs exactly one site, got %d", len(sites))
			}

			output := cfg.Output.Path
			if cmd.IsSet("output") {
				output = cmd.String("output")
			}

			h, runs, err := harvester(cfg, sites, listings, output)
			if err != nil {
				return err
			}

			if _, err := h.Run(ctx, runs...); err != nil {
				return fmt.Errorf("crawl: %w", err)
			}
			return nil
		},
	}
}

// crawlSites resolves the selected site names, or every site with all.
func crawlSites(cfg *app.Config, names []string, all bool) ([]*app.SiteConfig, error) {
	switch {
	case all && len(names) > 0:
		return nil, fmt.Errorf("--all and --site are mutually exclusive")
	case all:
		sites := make([]*app.SiteConfig, len(cfg.Sites))
		for i := range cfg.Sites {
			sites[i] = &cfg.Sites[i]
		}
		return sites, nil
	case len(names) == 0:
		return nil, fmt.Errorf("no site selected: pass --site or --all")
	}

	sites := make([]*app.SiteConfig, 0, len(names))
	seen := make(map[string]struct{}, len(names))
	for _, name := range names {
		if _, dup := seen[name]; dup {
			continue
		}
		seen[name] = struct{}{}
		site, err := cfg.Site(name)
		if err != nil {
			return nil, err
		}
		sites = append(sites, site)
	}
	return sites, nil
}

func siteFlag() cli.Flag {
	return &cli.StringFlag{
		Name:     "site",
		Aliases:  []string{"s"},
		Usage:    "Name of the configured site",
		Required: true,
	}
}
