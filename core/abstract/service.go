package abstract

import (
	"context"
	"errors"

	"github.com/confhub/backend/core"
	"github.com/confhub/backend/core/conference"
	"github.com/confhub/backend/core/user"
)

var (
	NowFunc = core.Now // mockable

	// errors
	ErrNotFound          = errors.New("abstract not found")
	ErrDeadlinePassed    = errors.New("the submission deadline has passed")
	ErrInvalidTransition = errors.New("the abstract status does not allow this action")
	ErrUnderReview       = errors.New("the abstract already has reviewers; it can no longer be changed")
)

type (
	Repository interface {
		CreateAbstract(ctx context.Context, abs Abstract, exec ...core.DBExecutor) (Abstract, error)
		GetAbstract(ctx context.Context, id string, exec ...core.DBExecutor) (Abstract, error)
		// LockAbstract reads the abstract and holds a row lock on it until exec's transaction ends.
		LockAbstract(ctx context.Context, id string, exec core.DBExecutor) (Abstract, error)
		QueryAbstracts(ctx context.Context, filter QueryFilter, ordering []core.DBOrdering, exec ...core.DBExecutor) ([]Abstract, error)
		// UpdateAbstractStatus persists Status, PresentationType, Overridden and UpdatedAt.
		UpdateAbstractStatus(ctx context.Context, abs Abstract, exec ...core.DBExecutor) (Abstract, error)
		// UpdateAbstractContent persists Title, Summary, Keywords and UpdatedAt.
		UpdateAbstractContent(ctx context.Context, abs Abstract, exec ...core.DBExecutor) (Abstract, error)
		// DeleteAbstract removes the abstract with its assignments and reviews.
		DeleteAbstract(ctx context.Context, id string, exec ...core.DBExecutor) error
		// IsUnderReview reports whether a reviewer was assigned to the abstract or reviewed it.
		IsUnderReview(ctx context.Context, id string, exec ...core.DBExecutor) (bool, error)
	}

	// AssignmentChecker tells whether a reviewer is assigned to an abstract.
	AssignmentChecker interface {
		AssignmentExists(ctx context.Context, abstractID, reviewerID string, exec ...core.DBExecutor) (bool, error)
	}

	Service struct {
		tx       core.Transactor
		repo     Repository
		confRepo conference.Repository
		asgCheck AssignmentChecker
	}
)

func NewService(tx core.Transactor, repo Repository, confRepo conference.Repository, asgCheck AssignmentChecker) *Service {
	return &Service{
		tx:       tx,
		repo:     repo,
		confRepo: confRepo,
		asgCheck: asgCheck,
	}
}

// Submit records a new pending Abstract for the conference; authors only, until the deadline.
func (svc *Service) Submit(ctx context.Context, actor user.User, conferenceID string, na NewAbstract) (Abstract, error) {
	if !actor.IsAuthor() {
		return Abstract{}, core.ErrPermissionDenied
	}

	var abs Abstract
	err := svc.tx.InTx(ctx, func(exec core.DBExecutor) error {
		conf, err := svc.confRepo.GetConference(ctx, conferenceID, exec)
		if err != nil {
			return err
		}
		now := NowFunc()
		if !conf.AcceptsSubmissions(now) {
			return ErrDeadlinePassed
		}

		abs, err = svc.repo.CreateAbstract(ctx, Abstract{
			ConferenceID: conf.ID,
			SubmitterID:  actor.ID,
			Title:        na.Title,
			Summary:      na.Summary,
			Keywords:     na.Keywords,
			Status:       StatusPending,
			SubmittedAt:  now,
			UpdatedAt:    now,
		}, exec)
		return err
	})
	return abs, err
}

// Get returns the abstract to its submitter, the conference organizer or an assigned reviewer.
// Anybody else gets ErrNotFound.
func (svc *Service) Get(ctx context.Context, actor user.User, id string) (Abstract, error) {
	abs, err := svc.repo.GetAbstract(ctx, id)
	if err != nil {
		return Abstract{}, err
	}
	if abs.SubmitterID == actor.ID {
		return abs, nil
	}

	conf, err := svc.confRepo.GetConference(ctx, abs.ConferenceID)
	if err != nil {
		return Abstract{}, err
	}
	if conf.IsOrganizer(actor) {
		return abs, nil
	}

	assigned, err := svc.asgCheck.AssignmentExists(ctx, abs.ID, actor.ID)
	if err != nil {
		return Abstract{}, err
	}
	if !assigned {
		return Abstract{}, ErrNotFound
	}
	return abs, nil
}

// QueryMine returns the abstracts submitted by actor.
func (svc *Service) QueryMine(ctx context.Context, actor user.User, ordering []core.DBOrdering) ([]Abstract, error) {
	return svc.repo.QueryAbstracts(ctx, QueryFilter{SubmitterID: actor.ID}, CleanOrdering(ordering))
}

// QueryByConference returns every abstract of the conference; organizer only.
func (svc *Service) QueryByConference(ctx context.Context, actor user.User, conferenceID string, filter QueryFilter, ordering []core.DBOrdering) ([]Abstract, error) {
	conf, err := svc.confRepo.GetConference(ctx, conferenceID)
	if err != nil {
		return nil, err
	}
	if !conf.IsOrganizer(actor) {
		return nil, core.ErrPermissionDenied
	}
	filter.ConferenceID = conf.ID
	filter.SubmitterID = ""
	return svc.repo.QueryAbstracts(ctx, filter, CleanOrdering(ordering))
}

// Update replaces the content of an abstract. See editable for who may do it and when.
func (svc *Service) Update(ctx context.Context, actor user.User, id string, na NewAbstract) (Abstract, error) {
	var abs Abstract
	err := svc.tx.InTx(ctx, func(exec core.DBExecutor) error {
		var err error
		if abs, err = svc.editable(ctx, actor, id, exec); err != nil {
			return err
		}
		abs.Title = na.Title
		abs.Summary = na.Summary
		abs.Keywords = na.Keywords
		abs.UpdatedAt = NowFunc()
		abs, err = svc.repo.UpdateAbstractContent(ctx, abs, exec)
		return err
	})
	if err != nil {
		return Abstract{}, err
	}
	return abs, nil
}

// Delete withdraws an abstract. See editable for who may do it and when.
func (svc *Service) Delete(ctx context.Context, actor user.User, id string) error {
	return svc.tx.InTx(ctx, func(exec core.DBExecutor) error {
		abs, err := svc.editable(ctx, actor, id, exec)
		if err != nil {
			return err
		}
		return svc.repo.DeleteAbstract(ctx, abs.ID, exec)
	})
}

// editable locks the abstract and checks that actor may still change it: only its submitter,
// until the conference deadline, while it is pending and nobody was assigned to it or reviewed it.
// Other users get ErrNotFound.
func (svc *Service) editable(ctx context.Context, actor user.User, id string, exec core.DBExecutor) (Abstract, error) {
	abs, err := svc.repo.LockAbstract(ctx, id, exec)
	if err != nil {
		return Abstract{}, err
	}
	if abs.SubmitterID != actor.ID {
		return Abstract{}, ErrNotFound
	}

	conf, err := svc.confRepo.GetConference(ctx, abs.ConferenceID, exec)
	if err != nil {
		return Abstract{}, err
	}
	if !conf.AcceptsSubmissions(NowFunc()) {
		return Abstract{}, ErrDeadlinePassed
	}
	if abs.Status != StatusPending {
		return Abstract{}, ErrInvalidTransition
	}

	busy, err := svc.repo.IsUnderReview(ctx, abs.ID, exec)
	if err != nil {
		return Abstract{}, err
	}
	if busy {
		return Abstract{}, ErrUnderReview
	}
	return abs, nil
}

// MarkAssigned moves a pending abstract to assigned.
func (svc *Service) MarkAssigned(ctx context.Context, actor user.User, id string) (Abstract, error) {
	return svc.transition(ctx, actor, id, func(abs *Abstract) error {
		if abs.Status != StatusPending {
			return ErrInvalidTransition
		}
		abs.Status = StatusAssigned
		return nil
	})
}

// Refuse rejects an abstract before the reviews decide it. Reviews written afterwards no longer change its status.
func (svc *Service) Refuse(ctx context.Context, actor user.User, id string) (Abstract, error) {
	return svc.transition(ctx, actor, id, func(abs *Abstract) error {
		if abs.Status.IsDecided() {
			return ErrInvalidTransition
		}
		abs.Status = StatusRejected
		abs.PresentationType = PresentationNone
		abs.Overridden = true
		return nil
	})
}

// transition applies an organizer status change with the abstract row locked.
func (svc *Service) transition(ctx context.Context, actor user.User, id string, apply func(abs *Abstract) error) (Abstract, error) {
	var abs Abstract
	err := svc.tx.InTx(ctx, func(exec core.DBExecutor) error {
		var err error
		if abs, err = svc.repo.LockAbstract(ctx, id, exec); err != nil {
			return err
		}
		conf, err := svc.confRepo.GetConference(ctx, abs.ConferenceID, exec)
		if err != nil {
			return err
		}
		if !conf.IsOrganizer(actor) {
			return core.ErrPermissionDenied
		}

		if err = apply(&abs); err != nil {
			return err
		}
		abs.UpdatedAt = NowFunc()
		abs, err = svc.repo.UpdateAbstractStatus(ctx, abs, exec)
		return err
	})
	if err != nil {
		return Abstract{}, err
	}
	return abs, nil
}
