package conference

import (
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/confhub/backend/core"
	"github.com/confhub/backend/core/user"
)

type Conference struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	OrganizerID string    `json:"organizer_id"`
	Deadline    time.Time `json:"deadline"`   // UTC; abstracts are accepted until then
	CreatedAt   time.Time `json:"created_at"` // UTC
}

// IsOrganizer reports whether usr owns the conference.
func (c Conference) IsOrganizer(usr user.User) bool {
	return usr.ID != "" && usr.ID == c.OrganizerID
}

// AcceptsSubmissions reports whether abstracts may still be submitted at t.
func (c Conference) AcceptsSubmissions(t time.Time) bool {
	return !t.After(c.Deadline)
}

// NewConference contains information needed to create a new Conference.
type NewConference struct {
	Title       string    `json:"title" validate:"required,notblank,max=255"`
	Description string    `json:"description" validate:"max=5000"`
	Deadline    time.Time `json:"deadline" validate:"required"`
}

func (nc *NewConference) Validate(validate *validator.Validate) error {
	nc.Title = core.CleanString(nc.Title)
	nc.Description = core.CleanString(nc.Description)
	return validate.Struct(nc)
}
