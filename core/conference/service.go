package conference

import (
	"context"
	"errors"

	"github.com/confhub/backend/core"
	"github.com/confhub/backend/core/user"
)

var (
	// errors
	ErrNotFound = errors.New("conference not found")
)

type (
	Repository interface {
		CreateConference(ctx context.Context, conf Conference, exec ...core.DBExecutor) (Conference, error)
		GetConference(ctx context.Context, id string, exec ...core.DBExecutor) (Conference, error)
		QueryConferences(ctx context.Context, filter QueryFilter, exec ...core.DBExecutor) ([]Conference, error)
	}

	QueryFilter struct {
		OrganizerID string
	}

	Service struct {
		tx   core.Transactor
		repo Repository
	}
)

func NewService(tx core.Transactor, repo Repository) *Service {
	return &Service{tx: tx, repo: repo}
}

// Create registers a new Conference owned by actor, who must be an organizer.
func (svc *Service) Create(ctx context.Context, actor user.User, nc NewConference) (Conference, error) {
	if !actor.IsOrganizer() {
		return Conference{}, core.ErrPermissionDenied
	}

	var conf Conference
	err := svc.tx.InTx(ctx, func(exec core.DBExecutor) error {
		var err error
		conf, err = svc.repo.CreateConference(ctx, Conference{
			Title:       nc.Title,
			Description: nc.Description,
			OrganizerID: actor.ID,
			Deadline:    nc.Deadline.UTC(),
			CreatedAt:   core.Now(),
		}, exec)
		return err
	})
	return conf, err
}

func (svc *Service) Get(ctx context.Context, id string) (Conference, error) {
	return svc.repo.GetConference(ctx, id)
}

// QueryMine returns the conferences organized by actor.
func (svc *Service) QueryMine(ctx context.Context, actor user.User) ([]Conference, error) {
	return svc.repo.QueryConferences(ctx, QueryFilter{OrganizerID: actor.ID})
}

// QueryAll returns every conference, newest first.
func (svc *Service) QueryAll(ctx context.Context) ([]Conference, error) {
	return svc.repo.QueryConferences(ctx, QueryFilter{})
}
