package user

import (
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/confhub/backend/core"
)

// Role is the single role a User holds.
type Role string

// Roles
const (
	RoleAdmin     Role = "ADMIN"
	RoleOrganizer Role = "ORGANIZER"
	RoleReviewer  Role = "REVIEWER"
	RoleAuthor    Role = "AUTHOR"
)

var AllRoles = []Role{RoleAdmin, RoleOrganizer, RoleReviewer, RoleAuthor}

// ParseRole maps s (case-insensitive) to a Role.
func ParseRole(s string) (Role, error) {
	r := Role(strings.ToUpper(core.CleanString(s)))
	if !r.IsValid() {
		return "", ErrUnknownRole
	}
	return r, nil
}

func (r Role) IsValid() bool {
	for _, role := range AllRoles {
		if r == role {
			return true
		}
	}
	return false
}

func (r Role) String() string { return string(r) }

type User struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Role      Role      `json:"role"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"` // UTC
	UpdatedAt time.Time `json:"updated_at"` // UTC
}

func (u User) IsAdmin() bool     { return u.Role == RoleAdmin }
func (u User) IsOrganizer() bool { return u.Role == RoleOrganizer }
func (u User) IsReviewer() bool  { return u.Role == RoleReviewer }
func (u User) IsAuthor() bool    { return u.Role == RoleAuthor }

// Summary is the public identity shown next to records a User owns.
type Summary struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

func (u User) Summary() Summary {
	return Summary{ID: u.ID, Name: u.Name, Email: u.Email}
}

// NewUser contains information needed to create a new User.
type NewUser struct {
	Name  string `json:"name" validate:"required,notblank,max=120"`
	Email string `json:"email" validate:"required,email"`
	Role  Role   `json:"role" validate:"required,role"`
}

func (nu *NewUser) Validate(validate *validator.Validate) error {
	nu.Name = core.CleanString(nu.Name)
	nu.Email = core.CleanString(nu.Email, true /* lower */)
	nu.Role = Role(strings.ToUpper(string(nu.Role)))
	return validate.Struct(nu)
}

type GetFilter struct {
	ID    string
	Email string
}
