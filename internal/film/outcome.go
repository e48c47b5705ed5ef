package film

import "fmt"

// Status tags the variant held by an Outcome.
type Status int

const (
	StatusNotPresent Status = iota
	StatusFound
	StatusFailed
)

func (s Status) String() string {
	switch s {
	case StatusFound:
		return "found"
	case StatusFailed:
		return "failed"
	default:
		return "not_present"
	}
}

// Reason explains a failed probe.
type Reason string

const (
	ReasonTimeout     Reason = "timeout"
	ReasonInteraction Reason = "interaction_error"
	ReasonNavigation  Reason = "navigation_error"
)

// Outcome is the result of probing exactly one source on one page visit.
// Only the fields matching Status are set.
type Outcome struct {
	Status   Status
	Source   string
	MediaURL string
	Reason   Reason
	Err      error
}

// Found reports a source that exposed mediaURL.
func Found(source, mediaURL string) Outcome {
	return Outcome{Status: StatusFound, Source: source, MediaURL: mediaURL}
}

// NotPresent reports a source that this page does not offer.
func NotPresent(source string) Outcome {
	return Outcome{Status: StatusNotPresent, Source: source}
}

// Failed reports a source attempt that broke for reason. err may be nil.
func Failed(source string, reason Reason, err error) Outcome {
	return Outcome{Status: StatusFailed, Source: source, Reason: reason, Err: err}
}

func (o Outcome) String() string {
	switch o.Status {
	case StatusFound:
		return fmt.Sprintf("%s: found %s", o.Source, o.MediaURL)
	case StatusFailed:
		return fmt.Sprintf("%s: failed (%s)", o.Source, o.Reason)
	default:
		return fmt.Sprintf("%s: not present", o.Source)
	}
}

// Attempt is one full pass over the sources of a detail page.
type Attempt struct {
	Number   int
	Outcomes []Outcome
}

// HasFailure reports whether any outcome failed.
func (a Attempt) HasFailure() bool {
	for _, o := range a.Outcomes {
		if o.Status == StatusFailed {
			return true
		}
	}
	return false
}

// NavigationFailed reports whether the page itself failed to load.
func (a Attempt) NavigationFailed() bool {
	for _, o := range a.Outcomes {
		if o.Status == StatusFailed && o.Reason == ReasonNavigation {
			return true
		}
	}
	return false
}
