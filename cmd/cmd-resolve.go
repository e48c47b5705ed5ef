package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/stupside/marquee/internal/app"
	"github.com/stupside/marquee/internal/film"
	"github.com/stupside/marquee/internal/sink"
)

// resolveCommand returns the "resolve" CLI subcommand.
func resolveCommand() *cli.Command {
	var urlArg string

	return &cli.Command{
		Name:  "resolve",
		Usage: "Resolve a single detail page and print the record",
		Flags: []cli.Flag{
			siteFlag(),
			&cli.StringFlag{
				Name:  "title",
				Usage: "Title stored in the record",
			},
		},
		Arguments: []cli.Argument{
			&cli.StringArg{
				Name:        "url",
				Destination: &urlArg,
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			if !film.IsAbsoluteURL(urlArg) {
				return fmt.Errorf("invalid detail page URL %q", urlArg)
			}

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
			r, err := resolver(cfg, site, pacer(cfg))
			if err != nil {
				return err
			}

			sess, err := factory.Open(ctx)
			if err != nil {
				return fmt.Errorf("opening session: %w", err)
			}
			defer sess.Close()

			res, ok := r.Resolve(ctx, sess, film.Link{Title: cmd.String("title"), URL: urlArg})
			if !ok {
				slog.InfoContext(ctx, "no playable source found", "url", urlArg)
				return nil
			}

			data, err := sink.Encode([]film.Resolved{res})
			if err != nil {
				return err
			}
			_, err = os.Stdout.Write(data)
			return err
		},
	}
}
