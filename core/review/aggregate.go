package review

import (
	"github.com/confhub/backend/core/abstract"
)

// DecisionThreshold is the number of reviews needed to decide an abstract.
const DecisionThreshold = 2

// Outcome is the disposition of an abstract computed from its reviews.
type Outcome struct {
	Status           abstract.Status
	PresentationType abstract.PresentationType
}

// Matches reports whether abs already holds the outcome.
func (o Outcome) Matches(abs abstract.Abstract) bool {
	return abs.Status == o.Status && abs.PresentationType == o.PresentationType
}

// Decide computes the outcome of the full review set of an abstract.
// It returns false while fewer than DecisionThreshold reviews exist.
//
//	2 accepted  -> accepted, ORAL
//	1 accepted  -> accepted, E_POSTER
//	0 accepted  -> rejected
//
// Extra reviews only count towards the accepted total.
func Decide(reviews []Review) (Outcome, bool) {
	if len(reviews) < DecisionThreshold {
		return Outcome{}, false
	}

	var accepted int
	for _, rv := range reviews {
		if rv.Decision == DecisionAccepted {
			accepted++
		}
	}

	switch {
	case accepted >= 2:
		return Outcome{Status: abstract.StatusAccepted, PresentationType: abstract.PresentationOral}, true
	case accepted == 1:
		return Outcome{Status: abstract.StatusAccepted, PresentationType: abstract.PresentationEPoster}, true
	default:
		return Outcome{Status: abstract.StatusRejected, PresentationType: abstract.PresentationNone}, true
	}
}
