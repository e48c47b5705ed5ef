package app

import (
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	"github.com/urfave/cli/v3"

	"github.com/stupside/marquee/internal/film"
)

// Config holds all application configuration.
type Config struct {
	Browser  BrowserConfig  `koanf:"browser"`
	Pacing   PacingConfig   `koanf:"pacing"`
	Retry    RetryConfig    `koanf:"retry"`
	Resolver ResolverConfig `koanf:"resolver"`
	Output   OutputConfig   `koanf:"output"`
	Workers  int            `koanf:"workers" validate:"gte=1"`
	Sites    []SiteConfig   `koanf:"sites" validate:"required,min=1,unique=Name,dive"`
}

// BrowserConfig holds settings for the page sessions.
type BrowserConfig struct {
	Timeout    time.Duration `koanf:"timeout" validate:"gt=0"`
	Headless   bool          `koanf:"headless"`
	NoSandbox  bool          `koanf:"no_sandbox"`
	NoImages   bool          `koanf:"no_images"`
	ChromePath string        `koanf:"chrome_path"`
	Proxy      string        `koanf:"proxy"`
	UserAgent  string        `koanf:"user_agent"`
	IdleWait   time.Duration `koanf:"idle_wait" validate:"gte=0"`
	Static     bool          `koanf:"static"`
}

// DurationRange is an inclusive range a random delay is drawn from.
type DurationRange struct {
	Min time.Duration `koanf:"min" validate:"gte=0"`
	Max time.Duration `koanf:"max" validate:"gtefield=Min"`
}

// PacingConfig throttles requests to the same origin.
type PacingConfig struct {
	Think             DurationRange `koanf:"think"`
	RequestsPerSecond float64       `koanf:"requests_per_second" validate:"gte=0"`
}

// RetryConfig controls page-level retries of a detail page.
type RetryConfig struct {
	MaxAttempts     int           `koanf:"max_attempts" validate:"gte=1"`
	Backoff         DurationRange `koanf:"backoff"`
	RetryNavigation bool          `koanf:"retry_navigation"`
}

// ResolverConfig holds per-page resolution timing and policy.
type ResolverConfig struct {
	// Mode is "first" to stop at the first found source or "exhaustive" to
	// probe every source and collect all alternates.
	Mode          string        `koanf:"mode" validate:"oneof=first exhaustive"`
	WaitUntil     string        `koanf:"wait_until" validate:"oneof=load domcontentloaded networkidle"`
	PageTimeout   time.Duration `koanf:"page_timeout" validate:"gt=0"`
	RevealTimeout time.Duration `koanf:"reveal_timeout" validate:"gt=0"`
	PlayerTimeout time.Duration `koanf:"player_timeout" validate:"gt=0"`
	TabSettle     time.Duration `koanf:"tab_settle" validate:"gte=0"`
	RevealSettle  time.Duration `koanf:"reveal_settle" validate:"gte=0"`
	Settle        DurationRange `koanf:"settle"`
}

// OutputConfig holds the result file location.
type OutputConfig struct {
	Path string `koanf:"path" validate:"required"`
}

// SiteConfig describes one catalog site: where its listings are, how cards
// look and which player sources its detail pages offer.
type SiteConfig struct {
	Name            string         `koanf:"name" validate:"required"`
	Listings        []string       `koanf:"listings" validate:"required,min=1,dive,url"`
	Card            LocatorConfig  `koanf:"card"`
	TitleAttributes []string       `koanf:"title_attributes"`
	Sources         []SourceConfig `koanf:"sources" validate:"required,min=1,unique=Name,dive"`
}

// LocatorConfig is the YAML form of film.Locator.
type LocatorConfig struct {
	Strategy string `koanf:"strategy" validate:"oneof=css text xpath"`
	Value    string `koanf:"value" validate:"required"`
}

// SourceConfig is the YAML form of film.SourceDescriptor.
type SourceConfig struct {
	Name      string          `koanf:"name" validate:"required"`
	Kind      string          `koanf:"kind" validate:"required,oneof=tab direct json markup"`
	Priority  int             `koanf:"priority"`
	Tab       []LocatorConfig `koanf:"tab" validate:"dive"`
	Reveal    []LocatorConfig `koanf:"reveal" validate:"dive"`
	Player    []LocatorConfig `koanf:"player" validate:"dive"`
	Attribute string          `koanf:"attribute"`
	Keys      []string        `koanf:"keys"`
}

// Load reads, defaults and validates configuration from a YAML file.
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
		return nil, fmt.Errorf("loading config from %s: %w", path, err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate checks the configuration against its struct constraints. Static
// sessions cannot evaluate xpath, so xpath locators are rejected with them.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("validating config: %w", err)
	}
	if c.Browser.Static {
		for _, site := range c.Sites {
			if loc, ok := site.xpath(); ok {
				return fmt.Errorf("validating config: site %s: %s locator %q needs a browser session", site.Name, loc.Strategy, loc.Value)
			}
		}
	}
	return nil
}

func (s *SiteConfig) xpath() (LocatorConfig, bool) {
	locs := []LocatorConfig{s.Card}
	for _, src := range s.Sources {
		locs = append(locs, src.Tab...)
		locs = append(locs, src.Reveal...)
		locs = append(locs, src.Player...)
	}
	for _, l := range locs {
		if film.Strategy(l.Strategy) == film.ByXPath {
			return l, true
		}
	}
	return LocatorConfig{}, false
}

// Site returns the site configuration with the given name.
func (c *Config) Site(name string) (*SiteConfig, error) {
	for i := range c.Sites {
		if c.Sites[i].Name == name {
			return &c.Sites[i], nil
		}
	}
	return nil, fmt.Errorf("site %q not found", name)
}

// CardLocator returns the locator of listing cards.
func (s *SiteConfig) CardLocator() film.Locator {
	return s.Card.locator(film.RoleCard)
}

// Descriptors converts the configured sources to descriptors, in
// configuration order.
func (s *SiteConfig) Descriptors() []film.SourceDescriptor {
	descs := make([]film.SourceDescriptor, len(s.Sources))
	for i, src := range s.Sources {
		descs[i] = film.SourceDescriptor{
			Name:      src.Name,
			Kind:      src.Kind,
			Priority:  src.Priority,
			Tab:       locators(film.RoleTab, src.Tab),
			Reveal:    locators(film.RoleReveal, src.Reveal),
			Player:    locators(film.RolePlayer, src.Player),
			Attribute: src.Attribute,
			Keys:      src.Keys,
		}
	}
	return descs
}

func (l LocatorConfig) locator(role film.Role) film.Locator {
	return film.Locator{Role: role, Strategy: film.Strategy(l.Strategy), Value: l.Value}
}

func locators(role film.Role, cfgs []LocatorConfig) []film.Locator {
	if len(cfgs) == 0 {
		return nil
	}
	out := make([]film.Locator, len(cfgs))
	for i, c := range cfgs {
		out[i] = c.locator(role)
	}
	return out
}

// ConfigFrom extracts the Config from the CLI command metadata.
func ConfigFrom(cmd *cli.Command) (*Config, error) {
	v, ok := cmd.Root().Metadata["config"]
	if !ok {
		return nil, fmt.Errorf("config not found in command metadata")
	}
	cfg, ok := v.(*Config)
	if !ok {
		return nil, fmt.Errorf("config has unexpected type %T", v)
	}
	return cfg, nil
}
