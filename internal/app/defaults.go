package app

import "time"

const (
	defaultBrowserTimeout = 30 * time.Second
	defaultWorkers        = 1
	defaultMaxAttempts    = 2
	defaultPageTimeout    = 60 * time.Second
	defaultRevealTimeout  = 5 * time.Second
	defaultPlayerTimeout  = 7 * time.Second
	defaultTabSettle      = 1500 * time.Millisecond
	defaultRevealSettle   = 2500 * time.Millisecond
	defaultOutputPath     = "import_films.json"
)

var (
	defaultThink   = DurationRange{Min: 6 * time.Second, Max: 12 * time.Second}
	defaultBackoff = DurationRange{Min: 2 * time.Second, Max: 5 * time.Second}
	defaultSettle  = DurationRange{Min: 2500 * time.Millisecond, Max: 4 * time.Second}

	defaultTitleAttributes = []string{"title", "alt"}
)

// applyDefaults fills zero values. Booleans keep their zero value.
func (c *Config) applyDefaults() {
	if c.Browser.Timeout == 0 {
		c.Browser.Timeout = defaultBrowserTimeout
	}
	if c.Workers == 0 {
		c.Workers = defaultWorkers
	}

	if c.Pacing.Think == (DurationRange{}) {
		c.Pacing.Think = defaultThink
	}

	if c.Retry.MaxAttempts == 0 {
		c.Retry.MaxAttempts = defaultMaxAttempts
	}
	if c.Retry.Backoff == (DurationRange{}) {
		c.Retry.Backoff = defaultBackoff
	}

	r := &c.Resolver
	if r.Mode == "" {
		r.Mode = "first"
	}
	if r.WaitUntil == "" {
		r.WaitUntil = "domcontentloaded"
	}
	if r.PageTimeout == 0 {
		r.PageTimeout = defaultPageTimeout
	}
	if r.RevealTimeout == 0 {
		r.RevealTimeout = defaultRevealTimeout
	}
	if r.PlayerTimeout == 0 {
		r.PlayerTimeout = defaultPlayerTimeout
	}
	if r.TabSettle == 0 {
		r.TabSettle = defaultTabSettle
	}
	if r.RevealSettle == 0 {
		r.RevealSettle = defaultRevealSettle
	}
	if r.Settle == (DurationRange{}) {
		r.Settle = defaultSettle
	}

	if c.Output.Path == "" {
		c.Output.Path = defaultOutputPath
	}

	for i := range c.Sites {
		c.Sites[i].applyDefaults()
	}
}

func (s *SiteConfig) applyDefaults() {
	if len(s.TitleAttributes) == 0 {
		s.TitleAttributes = defaultTitleAttributes
	}
	if s.Card.Value == "" {
		s.Card.Value = "a[href]"
	}
	defaultStrategy(&s.Card)

	for i := range s.Sources {
		src := &s.Sources[i]
		if src.Attribute == "" {
			src.Attribute = "src"
		}
		// A tab source without an explicit tab locator is selected by its
		// visible label, which is the source name.
		if src.Kind == "tab" && len(src.Tab) == 0 {
			src.Tab = []LocatorConfig{{Strategy: "text", Value: src.Name}}
		}
		for _, group := range [][]LocatorConfig{src.Tab, src.Reveal, src.Player} {
			for j := range group {
				defaultStrategy(&group[j])
			}
		}
	}
}

func defaultStrategy(l *LocatorConfig) {
	if l.Strategy == "" {
		l.Strategy = "css"
	}
}
