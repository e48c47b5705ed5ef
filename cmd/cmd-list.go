package cmd

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/urfave/cli/v3"

	"github.com/stupside/marquee/internal/app"
	"github.com/stupside/marquee/internal/harvest"
)

// listCommand returns the "list" CLI subcommand.
func listCommand() *cli.Command {
	return &cli.Command{
		Name:  "list",
		Usage: "Print the titles found on a site's listings",
		Flags: []cli.Flag{
			siteFlag(),
			&cli.StringSliceFlag{
				Name:  "listing",
				Usage: "Listing URL to crawl instead of the configured ones (repeatable)",
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			cfg, err := app.ConfigFrom(cmd)
			if err != nil {
				return err
			}
			site, err := cfg.Site(cmd.String("site"))
			if err != nil {
				return err
			}

			factory, err := sessions(cfg.Browser)
			if err != nil {
				return err
			}
			h := &harvest.Harvester{Sessions: factory, Crawler: crawler(cfg, pacer(cfg))}

			links, err := h.Links(ctx, harvestSite(site, cmd.StringSlice("listing")))
			if err != nil {
				return err
			}
			if len(links) == 0 {
				slog.InfoContext(ctx, "no titles found", "site", site.Name)
				return nil
			}

			rows := make([][]string, len(links))
			for i, l := range links {
				rows[i] = []string{fmt.Sprint(i + 1), l.Title, l.URL}
			}
			fmt.Println(renderTable([]string{"#", "Title", "URL"}, rows, []columnAlignment{alignRight}))
			return nil
		},
	}
}
