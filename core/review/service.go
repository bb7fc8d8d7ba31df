package review

import (
	"context"
	"errors"
	"fmt"

	"github.com/confhub/backend/core"
	"github.com/confhub/backend/core/abstract"
	"github.com/confhub/backend/core/conference"
	"github.com/confhub/backend/core/reviewer"
	"github.com/confhub/backend/core/user"
)

var (
	// errors
	ErrNotFound        = errors.New("review not found")
	ErrDuplicateReview = errors.New("you already reviewed this abstract")
	ErrNotAReviewer    = errors.New("you are not a reviewer of this conference")
	ErrNotAssigned     = errors.New("you are not assigned to this abstract")
	ErrReviewLocked    = errors.New("the abstract was decided; its reviews can no longer be deleted")
	ErrUnknownDecision = errors.New("unknown decision")
)

// AggregationError reports a failure to recompute the status of an abstract after a review write.
// The review write is rolled back with it.
type AggregationError struct {
	AbstractID string
	Err        error
}

func (err *AggregationError) Error() string {
	return fmt.Sprintf("aggregating reviews of abstract %s: %v", err.AbstractID, err.Err)
}

func (err *AggregationError) Unwrap() error { return err.Err }

type (
	Repository interface {
		// CreateReview fails with ErrDuplicateReview if the reviewer already reviewed the abstract.
		CreateReview(ctx context.Context, rv Review, exec ...core.DBExecutor) (Review, error)
		GetReview(ctx context.Context, id string, exec ...core.DBExecutor) (Review, error)
		UpdateReview(ctx context.Context, rv Review, exec ...core.DBExecutor) (Review, error)
		DeleteReview(ctx context.Context, id string, exec ...core.DBExecutor) error
		ReviewExists(ctx context.Context, abstractID, reviewerID string, exec ...core.DBExecutor) (bool, error)
		// QueryReviews returns the reviews of an abstract, oldest first.
		QueryReviews(ctx context.Context, abstractID string, exec ...core.DBExecutor) ([]Review, error)
	}

	Options struct {
		// RequireAssignment restricts reviews to reviewers assigned to the abstract.
		RequireAssignment bool
	}

	Service struct {
		logger   core.Logger
		tx       core.Transactor
		repo     Repository
		absRepo  abstract.Repository
		confRepo conference.Repository
		rvwRepo  reviewer.Repository
		usrRepo  user.Repository
		opts     Options
	}
)

func NewService(
	logger core.Logger,
	tx core.Transactor,
	repo Repository,
	absRepo abstract.Repository,
	confRepo conference.Repository,
	rvwRepo reviewer.Repository,
	usrRepo user.Repository,
	opts Options,
) *Service {
	return &Service{
		logger:   logger,
		tx:       tx,
		repo:     repo,
		absRepo:  absRepo,
		confRepo: confRepo,
		rvwRepo:  rvwRepo,
		usrRepo:  usrRepo,
		opts:     opts,
	}
}

// Submit records the decision of actor on an abstract and aggregates the abstract's reviews.
// actor must be a reviewer of the conference and, with RequireAssignment, assigned to the abstract.
func (svc *Service) Submit(ctx context.Context, actor user.User, nr NewReview) (Review, error) {
	var (
		rv      Review
		decided *abstract.Abstract
	)
	err := svc.tx.InTx(ctx, func(exec core.DBExecutor) error {
		abs, err := svc.absRepo.LockAbstract(ctx, nr.AbstractID, exec)
		if err != nil {
			return err
		}
		if err = svc.checkReviewer(ctx, actor, abs, exec); err != nil {
			return err
		}

		exists, err := svc.repo.ReviewExists(ctx, abs.ID, actor.ID, exec)
		if err != nil {
			return err
		}
		if exists {
			return ErrDuplicateReview
		}

		now := core.Now()
		rv, err = svc.repo.CreateReview(ctx, Review{
			ReviewerID: actor.ID,
			AbstractID: abs.ID,
			Decision:   nr.Decision,
			Comment:    nr.Comment,
			CreatedAt:  now,
			UpdatedAt:  now,
		}, exec)
		if err != nil {
			return err
		}

		decided, err = svc.aggregate(ctx, abs, exec)
		return err
	})
	if err != nil {
		return Review{}, err
	}
	svc.committed("submit", decided)
	return rv, nil
}

func (svc *Service) checkReviewer(ctx context.Context, actor user.User, abs abstract.Abstract, exec core.DBExecutor) error {
	if !actor.IsReviewer() {
		return ErrNotAReviewer
	}
	member, err := svc.rvwRepo.MemberExists(ctx, abs.ConferenceID, actor.ID, exec)
	if err != nil {
		return err
	}
	if !member {
		return ErrNotAReviewer
	}

	if svc.opts.RequireAssignment {
		assigned, err := svc.rvwRepo.AssignmentExists(ctx, abs.ID, actor.ID, exec)
		if err != nil {
			return err
		}
		if !assigned {
			return ErrNotAssigned
		}
	}
	return nil
}

// Update replaces the decision and comment of a review owned by actor, then re-aggregates.
// Reviews of other reviewers are reported as not found.
func (svc *Service) Update(ctx context.Context, actor user.User, id string, ur UpdateReview) (Review, error) {
	var (
		rv      Review
		decided *abstract.Abstract
	)
	err := svc.tx.InTx(ctx, func(exec core.DBExecutor) error {
		var err error
		if rv, err = svc.getOwned(ctx, actor, id, exec); err != nil {
			return err
		}
		abs, err := svc.absRepo.LockAbstract(ctx, rv.AbstractID, exec)
		if err != nil {
			return err
		}

		rv.Decision = ur.Decision
		rv.Comment = ur.Comment
		rv.UpdatedAt = core.Now()
		if rv, err = svc.repo.UpdateReview(ctx, rv, exec); err != nil {
			return err
		}

		decided, err = svc.aggregate(ctx, abs, exec)
		return err
	})
	if err != nil {
		return Review{}, err
	}
	svc.committed("update", decided)
	return rv, nil
}

// Delete removes a review owned by actor. Reviews can no longer be deleted once they decided the abstract.
func (svc *Service) Delete(ctx context.Context, actor user.User, id string) error {
	err := svc.tx.InTx(ctx, func(exec core.DBExecutor) error {
		rv, err := svc.getOwned(ctx, actor, id, exec)
		if err != nil {
			return err
		}
		abs, err := svc.absRepo.LockAbstract(ctx, rv.AbstractID, exec)
		if err != nil {
			return err
		}
		if abs.Status.IsDecided() && !abs.Overridden {
			return ErrReviewLocked
		}
		return svc.repo.DeleteReview(ctx, rv.ID, exec)
	})
	if err != nil {
		return err
	}
	svc.committed("delete", nil)
	return nil
}

// Get returns a review owned by actor.
func (svc *Service) Get(ctx context.Context, actor user.User, id string) (Review, error) {
	return svc.getOwned(ctx, actor, id)
}

func (svc *Service) getOwned(ctx context.Context, actor user.User, id string, exec ...core.DBExecutor) (Review, error) {
	rv, err := svc.repo.GetReview(ctx, id, exec...)
	if err != nil {
		return Review{}, err
	}
	if rv.ReviewerID != actor.ID {
		return Review{}, ErrNotFound
	}
	return rv, nil
}

// ListForAbstract returns every review of an abstract with its reviewer; organizer only.
func (svc *Service) ListForAbstract(ctx context.Context, actor user.User, abstractID string) ([]Record, error) {
	abs, err := svc.absRepo.GetAbstract(ctx, abstractID)
	if err != nil {
		return nil, err
	}
	conf, err := svc.confRepo.GetConference(ctx, abs.ConferenceID)
	if err != nil {
		return nil, err
	}
	if !conf.IsOrganizer(actor) {
		return nil, core.ErrPermissionDenied
	}

	reviews, err := svc.repo.QueryReviews(ctx, abs.ID)
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(reviews))
	for _, rv := range reviews {
		ids = append(ids, rv.ReviewerID)
	}
	users, err := svc.usrRepo.QueryUsersByID(ctx, ids)
	if err != nil {
		return nil, err
	}
	byID := make(map[string]user.User, len(users))
	for _, usr := range users {
		byID[usr.ID] = usr
	}

	records := make([]Record, 0, len(reviews))
	for _, rv := range reviews {
		records = append(records, Record{Review: rv, Reviewer: byID[rv.ReviewerID].Summary()})
	}
	return records, nil
}

// aggregate recomputes the status of the locked abstract from its persisted reviews.
// It returns the abstract when its status changed.
func (svc *Service) aggregate(ctx context.Context, abs abstract.Abstract, exec core.DBExecutor) (*abstract.Abstract, error) {
	if abs.Overridden {
		return nil, nil
	}

	reviews, err := svc.repo.QueryReviews(ctx, abs.ID, exec)
	if err != nil {
		return nil, &AggregationError{AbstractID: abs.ID, Err: err}
	}
	outcome, ok := Decide(reviews)
	if !ok || outcome.Matches(abs) {
		return nil, nil
	}

	abs.Status = outcome.Status
	abs.PresentationType = outcome.PresentationType
	abs.UpdatedAt = core.Now()
	updated, err := svc.absRepo.UpdateAbstractStatus(ctx, abs, exec)
	if err != nil {
		return nil, &AggregationError{AbstractID: abs.ID, Err: err}
	}
	return &updated, nil
}

func (svc *Service) committed(op string, decided *abstract.Abstract) {
	reviewWrites.WithLabelValues(op).Inc()
	if decided != nil {
		recordDecision(*decided)
		svc.logger.Info(fmt.Sprintf("abstract %s decided: %s %s", decided.ID, decided.Status, decided.PresentationType))
	}
}

// Reconcile re-aggregates every abstract whose status disagrees with its reviews and
// returns how many were fixed.
func (svc *Service) Reconcile(ctx context.Context) (int, error) {
	notOverridden := false
	abstracts, err := svc.absRepo.QueryAbstracts(ctx, abstract.QueryFilter{Overridden: &notOverridden}, nil)
	if err != nil {
		return 0, err
	}

	var fixed int
	for _, abs := range abstracts {
		if err = ctx.Err(); err != nil {
			return fixed, err
		}

		reviews, err := svc.repo.QueryReviews(ctx, abs.ID)
		if err != nil {
			return fixed, err
		}
		if outcome, ok := Decide(reviews); !ok || outcome.Matches(abs) {
			continue
		}

		var decided *abstract.Abstract
		err = svc.tx.InTx(ctx, func(exec core.DBExecutor) error {
			locked, err := svc.absRepo.LockAbstract(ctx, abs.ID, exec)
			if err != nil {
				return err
			}
			decided, err = svc.aggregate(ctx, locked, exec)
			return err
		})
		if err != nil {
			return fixed, err
		}
		if decided != nil {
			fixed++
			recordDecision(*decided)
		}
	}
	return fixed, nil
}
