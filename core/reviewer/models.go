package reviewer

import (
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/volatiletech/null/v8"

	"github.com/confhub/backend/core"
)

// MaxReviewers is the number of reviewers an abstract can be assigned.
const MaxReviewers = 2

// Membership registers a user as a reviewer of a conference.
type Membership struct {
	ConferenceID string    `json:"conference_id"`
	UserID       string    `json:"user_id"`
	CreatedAt    time.Time `json:"created_at"` // UTC
}

// Assignment links a reviewer to an abstract they have to evaluate.
type Assignment struct {
	AbstractID string    `json:"abstract_id"`
	ReviewerID string    `json:"reviewer_id"`
	CreatedAt  time.Time `json:"created_at"` // UTC
}

type InvitationStatus string

const (
	InvitationPending  InvitationStatus = "pending"
	InvitationAccepted InvitationStatus = "accepted"
	InvitationRejected InvitationStatus = "rejected"
)

type Invitation struct {
	ID           string           `json:"id"`
	ConferenceID string           `json:"conference_id"`
	InvitedByID  string           `json:"invited_by_id"`
	InviteeID    string           `json:"invitee_id"`
	InviteeEmail string           `json:"invitee_email"`
	Status       InvitationStatus `json:"status"`
	CreatedAt    time.Time        `json:"created_at"`   // UTC
	RespondedAt  null.Time        `json:"responded_at"` // UTC
}

func (inv Invitation) IsPending() bool { return inv.Status == InvitationPending }

type InvitationFilter struct {
	ConferenceID string
	InviteeID    string
	Statuses     []InvitationStatus
}

// NewInvitation contains information needed to invite a reviewer to a conference.
type NewInvitation struct {
	Email string `json:"email" validate:"required,email"`
}

func (ni *NewInvitation) Validate(validate *validator.Validate) error {
	ni.Email = core.CleanString(ni.Email, true /* lower */)
	return validate.Struct(ni)
}

// NewReviewer references the user to assign or add as a reviewer.
type NewReviewer struct {
	ReviewerID string `json:"reviewer_id" validate:"required,uuid"`
}

func (nr *NewReviewer) Validate(validate *validator.Validate) error {
	nr.ReviewerID = core.CleanString(nr.ReviewerID, true /* lower */)
	return validate.Struct(nr)
}

type invitationEmailData struct {
	InviteeName     string
	InviterName     string
	ConferenceTitle string
	AcceptToken     string
	RejectToken     string
}
