package review

import (
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/confhub/backend/core"
	"github.com/confhub/backend/core/user"
)

// Decision is a reviewer's verdict on an abstract.
type Decision string

const (
	DecisionAccepted Decision = "ACCEPTED"
	DecisionRejected Decision = "REJECTED"
)

// ParseDecision maps s (case-insensitive) to a Decision.
func ParseDecision(s string) (Decision, error) {
	d := Decision(strings.ToUpper(core.CleanString(s)))
	if !d.IsValid() {
		return "", ErrUnknownDecision
	}
	return d, nil
}

func (d Decision) IsValid() bool {
	return d == DecisionAccepted || d == DecisionRejected
}

func (d Decision) String() string { return string(d) }

type Review struct {
	ID         string    `json:"id"`
	ReviewerID string    `json:"reviewer_id"`
	AbstractID string    `json:"abstract_id"`
	Decision   Decision  `json:"decision"`
	Comment    string    `json:"comment"`
	CreatedAt  time.Time `json:"created_at"` // UTC
	UpdatedAt  time.Time `json:"updated_at"` // UTC
}

// Record is a Review along with the identity of its reviewer.
type Record struct {
	Review
	Reviewer user.Summary `json:"reviewer"`
}

// NewReview contains information needed to submit a Review.
type NewReview struct {
	AbstractID string   `json:"abstract_id" validate:"required,uuid"`
	Decision   Decision `json:"decision" validate:"required,decision"`
	Comment    string   `json:"comment" validate:"max=10000"`
}

func (nr *NewReview) Validate(validate *validator.Validate) error {
	nr.AbstractID = core.CleanString(nr.AbstractID, true /* lower */)
	nr.Decision = Decision(strings.ToUpper(core.CleanString(string(nr.Decision))))
	nr.Comment = core.CleanString(nr.Comment)
	return validate.Struct(nr)
}

// UpdateReview replaces the decision and comment of a Review.
type UpdateReview struct {
	Decision Decision `json:"decision" validate:"required,decision"`
	Comment  string   `json:"comment" validate:"max=10000"`
}

func (ur *UpdateReview) Validate(validate *validator.Validate) error {
	ur.Decision = Decision(strings.ToUpper(core.CleanString(string(ur.Decision))))
	ur.Comment = core.CleanString(ur.Comment)
	return validate.Struct(ur)
}
