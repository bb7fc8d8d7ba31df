package abstract

import (
	"bytes"
	"encoding/json"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/confhub/backend/core"
)

// Status is the review state of an Abstract.
type Status string

// Statuses
const (
	StatusPending  Status = "pending"
	StatusAssigned Status = "assigned"
	StatusAccepted Status = "accepted"
	StatusRejected Status = "rejected"
)

// IsDecided reports whether s is a terminal status.
func (s Status) IsDecided() bool {
	return s == StatusAccepted || s == StatusRejected
}

// PresentationType is the format an accepted Abstract is presented in.
// The zero value means no presentation and is encoded as JSON null.
type PresentationType string

// Presentation types
const (
	PresentationNone    PresentationType = ""
	PresentationOral    PresentationType = "ORAL"
	PresentationEPoster PresentationType = "E_POSTER"
)

func (pt PresentationType) MarshalJSON() ([]byte, error) {
	if pt == PresentationNone {
		return []byte("null"), nil
	}
	return json.Marshal(string(pt))
}

func (pt *PresentationType) UnmarshalJSON(data []byte) error {
	if bytes.Equal(data, []byte("null")) {
		*pt = PresentationNone
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	*pt = PresentationType(s)
	return nil
}

type Abstract struct {
	ID               string           `json:"id"`
	ConferenceID     string           `json:"conference_id"`
	SubmitterID      string           `json:"submitter_id"`
	Title            string           `json:"title"`
	Summary          string           `json:"summary"`
	Keywords         string           `json:"keywords"`
	Status           Status           `json:"status"`
	PresentationType PresentationType `json:"presentation_type"`
	// Overridden is set once the organizer refused the abstract; reviews no longer decide it.
	Overridden  bool      `json:"overridden"`
	SubmittedAt time.Time `json:"submitted_at"` // UTC
	UpdatedAt   time.Time `json:"updated_at"`   // UTC
}

// NewAbstract contains information needed to submit a new Abstract.
type NewAbstract struct {
	Title    string `json:"title" validate:"required,notblank,max=255"`
	Summary  string `json:"summary" validate:"required,notblank,max=10000"`
	Keywords string `json:"keywords" validate:"max=255"`
}

func (na *NewAbstract) Validate(validate *validator.Validate) error {
	na.Title = core.CleanString(na.Title)
	na.Summary = core.CleanString(na.Summary)
	na.Keywords = core.CleanString(na.Keywords)
	return validate.Struct(na)
}

type QueryFilter struct {
	ConferenceID string
	SubmitterID  string
	Statuses     []Status
	Overridden   *bool
}

// OrderingFields lists the fields abstracts may be ordered by.
var OrderingFields = []string{"submitted_at", "updated_at", "title", "status"}

// CleanOrdering drops orderings on unknown fields.
func CleanOrdering(ordering []core.DBOrdering) []core.DBOrdering {
	cleaned := make([]core.DBOrdering, 0, len(ordering))
	for _, ord := range ordering {
		for _, fld := range OrderingFields {
			if ord.Field == fld {
				cleaned = append(cleaned, ord)
				break
			}
		}
	}
	return cleaned
}
