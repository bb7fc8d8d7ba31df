package dummydb

import (
	"context"

	"github.com/google/uuid"

	"github.com/confhub/backend/core"
	"github.com/confhub/backend/core/review"
)

type reviewRepository struct {
	db *DB
}

var _ review.Repository = (*reviewRepository)(nil) // interface compliance check

func NewReviewRepository(db *DB) review.Repository {
	return &reviewRepository{db: db}
}

func (repo *reviewRepository) CreateReview(_ context.Context, rv review.Review, _ ...core.DBExecutor) (review.Review, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	for _, existing := range repo.db.reviews {
		if existing.AbstractID == rv.AbstractID && existing.ReviewerID == rv.ReviewerID {
			return review.Review{}, review.ErrDuplicateReview
		}
	}
	rv.ID = uuid.New().String()
	repo.db.reviews = append(repo.db.reviews, rv)
	return rv, nil
}

func (repo *reviewRepository) GetReview(_ context.Context, id string, _ ...core.DBExecutor) (review.Review, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	for _, rv := range repo.db.reviews {
		if rv.ID == id {
			return rv, nil
		}
	}
	return review.Review{}, review.ErrNotFound
}

func (repo *reviewRepository) UpdateReview(_ context.Context, rv review.Review, _ ...core.DBExecutor) (review.Review, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	for i := range repo.db.reviews {
		if repo.db.reviews[i].ID == rv.ID {
			repo.db.reviews[i].Decision = rv.Decision
			repo.db.reviews[i].Comment = rv.Comment
			repo.db.reviews[i].UpdatedAt = rv.UpdatedAt
			return repo.db.reviews[i], nil
		}
	}
	return review.Review{}, review.ErrNotFound
}

func (repo *reviewRepository) DeleteReview(_ context.Context, id string, _ ...core.DBExecutor) error {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	for i, rv := range repo.db.reviews {
		if rv.ID == id {
			repo.db.reviews = append(repo.db.reviews[:i:i], repo.db.reviews[i+1:]...)
			return nil
		}
	}
	return review.ErrNotFound
}

func (repo *reviewRepository) ReviewExists(_ context.Context, abstractID, reviewerID string, _ ...core.DBExecutor) (bool, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	for _, rv := range repo.db.reviews {
		if rv.AbstractID == abstractID && rv.ReviewerID == reviewerID {
			return true, nil
		}
	}
	return false, nil
}

func (repo *reviewRepository) QueryReviews(_ context.Context, abstractID string, _ ...core.DBExecutor) ([]review.Review, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	reviews := make([]review.Review, 0)
	for _, rv := range repo.db.reviews {
		if rv.AbstractID == abstractID {
			reviews = append(reviews, rv)
		}
	}
	return reviews, nil
}
