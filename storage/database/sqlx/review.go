package sqlxrepos

import (
	"context"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/confhub/backend/core"
	"github.com/confhub/backend/core/review"
)

var reviewColumns = []string{"id", "reviewer_id", "abstract_id", "decision", "comment", "created_at", "updated_at"}

type reviewRow struct {
	ID         string    `db:"id"`
	ReviewerID string    `db:"reviewer_id"`
	AbstractID string    `db:"abstract_id"`
	Decision   string    `db:"decision"`
	Comment    string    `db:"comment"`
	CreatedAt  time.Time `db:"created_at"`
	UpdatedAt  time.Time `db:"updated_at"`
}

func (row reviewRow) toReview() review.Review {
	return review.Review{
		ID:         row.ID,
		ReviewerID: row.ReviewerID,
		AbstractID: row.AbstractID,
		Decision:   review.Decision(row.Decision),
		Comment:    row.Comment,
		CreatedAt:  row.CreatedAt.UTC(),
		UpdatedAt:  row.UpdatedAt.UTC(),
	}
}

type reviewRepository struct {
	repository
}

var _ review.Repository = (*reviewRepository)(nil) // interface compliance check

func NewReviewRepository(exec core.DBExecutor) *reviewRepository {
	return &reviewRepository{repository{exec: exec}}
}

func (repo reviewRepository) CreateReview(ctx context.Context, rv review.Review, exec ...core.DBExecutor) (review.Review, error) {
	rv.ID = uuid.New().String()
	qb := psql.Insert("reviews").
		Columns(reviewColumns...).
		Values(rv.ID, rv.ReviewerID, rv.AbstractID, string(rv.Decision), rv.Comment, rv.CreatedAt.UTC(), rv.UpdatedAt.UTC())
	if _, err := execute(ctx, repo.getExec(exec), qb); err != nil {
		if isUniqueViolation(err) {
			return review.Review{}, review.ErrDuplicateReview
		}
		return review.Review{}, errors.Wrap(err, "inserting review")
	}
	return rv, nil
}

func (repo reviewRepository) GetReview(ctx context.Context, id string, exec ...core.DBExecutor) (review.Review, error) {
	if !validID(id) {
		return review.Review{}, review.ErrNotFound
	}

	var rows []reviewRow
	qb := psql.Select(reviewColumns...).From("reviews").Where(sq.Eq{"id": id})
	if err := selectInto(ctx, repo.getExec(exec), qb, &rows); err != nil {
		return review.Review{}, errors.Wrap(err, "getting review")
	}
	if len(rows) == 0 {
		return review.Review{}, review.ErrNotFound
	}
	return rows[0].toReview(), nil
}

func (repo reviewRepository) UpdateReview(ctx context.Context, rv review.Review, exec ...core.DBExecutor) (review.Review, error) {
	if !validID(rv.ID) {
		return review.Review{}, review.ErrNotFound
	}
	qb := psql.Update("reviews").
		Set("decision", string(rv.Decision)).
		Set("comment", rv.Comment).
		Set("updated_at", rv.UpdatedAt.UTC()).
		Where(sq.Eq{"id": rv.ID}).
		Suffix("RETURNING " + strings.Join(reviewColumns, ", "))

	var rows []reviewRow
	if err := selectInto(ctx, repo.getExec(exec), qb, &rows); err != nil {
		return review.Review{}, errors.Wrap(err, "updating review")
	}
	if len(rows) == 0 {
		return review.Review{}, review.ErrNotFound
	}
	return rows[0].toReview(), nil
}

func (repo reviewRepository) DeleteReview(ctx context.Context, id string, exec ...core.DBExecutor) error {
	if !validID(id) {
		return review.ErrNotFound
	}
	res, err := execute(ctx, repo.getExec(exec), psql.Delete("reviews").Where(sq.Eq{"id": id}))
	if err != nil {
		return errors.Wrap(err, "deleting review")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return errors.Wrap(err, "deleting review")
	}
	if n == 0 {
		return review.ErrNotFound
	}
	return nil
}

func (repo reviewRepository) ReviewExists(ctx context.Context, abstractID, reviewerID string, exec ...core.DBExecutor) (bool, error) {
	if !validID(abstractID) || !validID(reviewerID) {
		return false, nil
	}
	qb := psql.Select("1").From("reviews").Where(sq.Eq{"abstract_id": abstractID, "reviewer_id": reviewerID})
	found, err := exists(ctx, repo.getExec(exec), qb)
	return found, errors.Wrap(err, "checking review")
}

func (repo reviewRepository) QueryReviews(ctx context.Context, abstractID string, exec ...core.DBExecutor) ([]review.Review, error) {
	if !validID(abstractID) {
		return []review.Review{}, nil
	}
	qb := psql.Select(reviewColumns...).From("reviews").Where(sq.Eq{"abstract_id": abstractID}).OrderBy("created_at", "id")

	var rows []reviewRow
	if err := selectInto(ctx, repo.getExec(exec), qb, &rows); err != nil {
		return nil, errors.Wrap(err, "querying reviews")
	}
	reviews := make([]review.Review, 0, len(rows))
	for _, row := range rows {
		reviews = append(reviews, row.toReview())
	}
	return reviews, nil
}
