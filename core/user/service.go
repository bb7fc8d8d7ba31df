package user

import (
	"context"
	"errors"
	"strings"

	"github.com/confhub/backend/core"
)

var (
	// errors
	ErrNotFound    = errors.New("user not found")
	ErrEmailExists = errors.New("a user with this email already exists")
	ErrUnknownRole = errors.New("unknown role")
)

type (
	Repository interface {
		CreateUser(ctx context.Context, usr User, exec ...core.DBExecutor) (User, error)
		GetUser(ctx context.Context, filter GetFilter, exec ...core.DBExecutor) (User, error)
		QueryUsersByID(ctx context.Context, ids []string, exec ...core.DBExecutor) ([]User, error)
		CheckEmailUniqueness(ctx context.Context, email string, exec ...core.DBExecutor) error
	}

	Service struct {
		repo Repository
	}
)

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (svc *Service) checkUniqueness(ctx context.Context, email string, exec ...core.DBExecutor) error {
	if err := svc.repo.CheckEmailUniqueness(ctx, email, exec...); err != nil {
		if err == ErrEmailExists {
			return core.NewValidationError(err, core.FieldError{Field: "email", Error: err.Error()})
		}
		return err
	}
	return nil
}

// Create adds a new User. nu must have been validated.
func (svc *Service) Create(ctx context.Context, nu NewUser, exec ...core.DBExecutor) (User, error) {
	if err := svc.checkUniqueness(ctx, nu.Email, exec...); err != nil {
		return User{}, err
	}
	now := core.Now()
	usr := User{
		Name:      nu.Name,
		Email:     nu.Email,
		Role:      nu.Role,
		IsActive:  true,
		CreatedAt: now,
		UpdatedAt: now,
	}
	return svc.repo.CreateUser(ctx, usr, exec...)
}

// GetOrCreate returns the User registered with email, creating one holding role when none exists.
func (svc *Service) GetOrCreate(ctx context.Context, email string, role Role, exec ...core.DBExecutor) (User, bool, error) {
	email = core.CleanString(email, true /* lower */)
	usr, err := svc.repo.GetUser(ctx, GetFilter{Email: email}, exec...)
	if err == nil {
		return usr, false, nil
	}
	if err != ErrNotFound {
		return User{}, false, err
	}

	name := email
	if i := strings.Index(email, "@"); i > 0 {
		name = email[:i]
	}
	usr, err = svc.Create(ctx, NewUser{Name: name, Email: email, Role: role}, exec...)
	return usr, err == nil, err
}

func (svc *Service) GetByID(ctx context.Context, id string, exec ...core.DBExecutor) (User, error) {
	return svc.repo.GetUser(ctx, GetFilter{ID: id}, exec...)
}

func (svc *Service) GetByEmail(ctx context.Context, email string) (User, error) {
	return svc.repo.GetUser(ctx, GetFilter{Email: core.CleanString(email, true /* lower */)})
}
