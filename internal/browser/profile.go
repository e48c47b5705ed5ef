package browser

import (
	"fmt"
	"math/rand/v2"
)

// Profile is the identity a browser session presents: user agent, window
// size and preferred languages, drawn together so they stay consistent.
type Profile struct {
	UserAgent      string
	AcceptLanguage string
	ScreenWidth    int
	ScreenHeight   int
}

var uaPlatforms = []string{
	"Windows NT 10.0; Win64; x64",
	"Macintosh; Intel Mac OS X 10_15_7",
	"X11; Linux x86_64",
}

var chromeVersions = []string{
	"131.0.0.0",
	"132.0.0.0",
	"133.0.0.0",
}

type screenPreset struct {
	width  int
	height int
}

var screenPresets = []screenPreset{
	{1920, 1080},
	{2560, 1440},
	{1366, 768},
	{1536, 864},
	{1680, 1050},
}

var acceptLanguages = []string{
	"fr-FR,fr;q=0.9,en-US;q=0.8,en;q=0.7",
	"en-US,en;q=0.9",
	"en-GB,en;q=0.9,en-US;q=0.8",
}

// NewProfile draws a random profile. A non-empty userAgent replaces the
// drawn one.
func NewProfile(userAgent string) *Profile {
	scr := screenPresets[rand.IntN(len(screenPresets))]

	if userAgent == "" {
		userAgent = fmt.Sprintf(
			"Mozilla/5.0 (%s) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/%s Safari/537.36",
			uaPlatforms[rand.IntN(len(uaPlatforms))],
			chromeVersions[rand.IntN(len(chromeVersions))],
		)
	}

	return &Profile{
		UserAgent:      userAgent,
		AcceptLanguage: acceptLanguages[rand.IntN(len(acceptLanguages))],
		ScreenWidth:    scr.width,
		ScreenHeight:   scr.height,
	}
}
