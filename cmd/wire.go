package cmd

import (
	"fmt"
	"net/url"

	"github.com/stupside/marquee/internal/app"
	"github.com/stupside/marquee/internal/browser"
	"github.com/stupside/marquee/internal/catalog"
	"github.com/stupside/marquee/internal/harvest"
	"github.com/stupside/marquee/internal/pace"
	"github.com/stupside/marquee/internal/page"
	"github.com/stupside/marquee/internal/probe"
	"github.com/stupside/marquee/internal/resolve"
	"github.com/stupside/marquee/internal/sink"
	"github.com/stupside/marquee/internal/static"
)

// sessions returns the page session factory selected by cfg.
func sessions(cfg app.BrowserConfig) (page.Factory, error) {
	if !cfg.Static {
		return browser.Factory{Config: cfg}, nil
	}

	opts := static.Factory{static.WithTimeout(cfg.Timeout)}
	if cfg.UserAgent != "" {
		opts = append(opts, static.WithUserAgent(cfg.UserAgent))
	} else {
		opts = append(opts, static.WithUserAgent(browser.NewProfile("").UserAgent))
	}
	if cfg.Proxy != "" {
		proxy, err := url.Parse(cfg.Proxy)
		if err != nil {
			return nil, fmt.Errorf("invalid proxy %q: %w", cfg.Proxy, err)
		}
		opts = append(opts, static.WithProxy(proxy))
	}
	return opts, nil
}

func jitter(r app.DurationRange) pace.Jitter {
	return pace.Jitter{Min: r.Min, Max: r.Max}
}

func pacer(cfg *app.Config) *pace.Pacer {
	return pace.New(jitter(cfg.Pacing.Think), pace.WithRate(cfg.Pacing.RequestsPerSecond))
}

func crawler(cfg *app.Config, p pace.Waiter) *catalog.Crawler {
	return &catalog.Crawler{
		Pacer:     p,
		WaitUntil: page.WaitUntil(cfg.Resolver.WaitUntil),
	}
}

func resolver(cfg *app.Config, site *app.SiteConfig, p pace.Waiter) (*resolve.Resolver, error) {
	probers, err := probe.NewAll(site.Descriptors())
	if err != nil {
		return nil, fmt.Errorf("site %s: %w", site.Name, err)
	}

	rc := cfg.Resolver
	return &resolve.Resolver{
		Probers: probers,
		Policy: resolve.Policy{
			MaxAttempts:     cfg.Retry.MaxAttempts,
			Backoff:         jitter(cfg.Retry.Backoff),
			RetryNavigation: cfg.Retry.RetryNavigation,
		},
		Mode: resolve.Mode(rc.Mode),
		Timing: probe.Timing{
			Reveal:       rc.RevealTimeout,
			Player:       rc.PlayerTimeout,
			TabSettle:    rc.TabSettle,
			RevealSettle: rc.RevealSettle,
		},
		PageTimeout: rc.PageTimeout,
		WaitUntil:   page.WaitUntil(rc.WaitUntil),
		Settle:      jitter(rc.Settle),
		Pacer:       p,
	}, nil
}

func harvestSite(site *app.SiteConfig, listings []string) harvest.Site {
	if len(listings) == 0 {
		listings = site.Listings
	}
	return harvest.Site{
		Name:       site.Name,
		Listings:   listings,
		Card:       site.CardLocator(),
		TitleAttrs: site.TitleAttributes,
	}
}

// harvester wires a run over sites. Sites share the session factory and the
// pacer; each gets its own resolver.
func harvester(cfg *app.Config, sites []*app.SiteConfig, listings []string, outputPath string) (*harvest.Harvester, []harvest.Site, error) {
	factory, err := sessions(cfg.Browser)
	if err != nil {
		return nil, nil, err
	}
	p := pacer(cfg)

	runs := make([]harvest.Site, len(sites))
	for i, site := range sites {
		r, err := resolver(cfg, site, p)
		if err != nil {
			return nil, nil, err
		}
		runs[i] = harvestSite(site, listings)
		runs[i].Resolver = r
	}

	return &harvest.Harvester{
		Sessions: factory,
		Crawler:  crawler(cfg, p),
		Sink:     &sink.JSON{Path: outputPath},
		Workers:  cfg.Workers,
	}, runs, nil
}
