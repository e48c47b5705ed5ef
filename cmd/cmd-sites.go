package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/urfave/cli/v3"

	"github.com/stupside/marquee/internal/app"
	"github.com/stupside/marquee/internal/film"
)

// sitesCommand returns the "sites" CLI subcommand.
func sitesCommand() *cli.Command {
	return &cli.Command{
		Name:  "sites",
		Usage: "Print the configured sites and their sources in probe order",
		Action: func(_ context.Context, cmd *cli.Command) error {
			cfg, err := app.ConfigFrom(cmd)
			if err != nil {
				return err
			}

			var rows [][]string
			for _, site := range cfg.Sites {
				for _, d := range film.ByPriority(site.Descriptors()) {
					rows = append(rows, []string{
						site.Name,
						fmt.Sprint(d.Priority),
						d.Name,
						d.Kind,
						strings.Join(locatorStrings(d.Tab), " "),
					})
				}
			}
			fmt.Println(renderTable([]string{"Site", "Priority", "Source", "Kind", "Tab"}, rows, []columnAlignment{alignLeft, alignRight}))
			return nil
		},
	}
}

func locatorStrings(locs []film.Locator) []string {
	out := make([]string, len(locs))
	for i, l := range locs {
		out[i] = l.String()
	}
	return out
}
