package page

import (
	"context"
	"errors"

	"github.com/stupside/marquee/internal/film"
)

// Classify maps a session error to the probe failure reason it represents.
func Classify(err error) film.Reason {
	switch {
	case errors.Is(err, ErrTimeout), errors.Is(err, context.DeadlineExceeded):
		return film.ReasonTimeout
	case errors.Is(err, ErrNavigation):
		return film.ReasonNavigation
	default:
		return film.ReasonInteraction
	}
}
