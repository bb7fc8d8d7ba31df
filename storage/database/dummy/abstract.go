package dummydb

import (
	"context"
	"sort"
	"strings"

	"github.com/google/uuid"

	"github.com/confhub/backend/core"
	"github.com/confhub/backend/core/abstract"
)

type abstractRepository struct {
	db *DB
}

var _ abstract.Repository = (*abstractRepository)(nil) // interface compliance check

func NewAbstractRepository(db *DB) abstract.Repository {
	return &abstractRepository{db: db}
}

// findAbstract must be called with the lock held.
func (db *DB) findAbstract(id string) (int, bool) {
	for i, abs := range db.abstracts {
		if abs.ID == id {
			return i, true
		}
	}
	return -1, false
}

func (repo *abstractRepository) CreateAbstract(_ context.Context, abs abstract.Abstract, _ ...core.DBExecutor) (abstract.Abstract, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	abs.ID = uuid.New().String()
	repo.db.abstracts = append(repo.db.abstracts, abs)
	return abs, nil
}

func (repo *abstractRepository) GetAbstract(_ context.Context, id string, _ ...core.DBExecutor) (abstract.Abstract, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	if i, ok := repo.db.findAbstract(id); ok {
		return repo.db.abstracts[i], nil
	}
	return abstract.Abstract{}, abstract.ErrNotFound
}

// LockAbstract reads the abstract; transactions already run one at a time.
func (repo *abstractRepository) LockAbstract(ctx context.Context, id string, _ core.DBExecutor) (abstract.Abstract, error) {
	return repo.GetAbstract(ctx, id)
}

func (repo *abstractRepository) QueryAbstracts(_ context.Context, filter abstract.QueryFilter, ordering []core.DBOrdering, _ ...core.DBExecutor) ([]abstract.Abstract, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	abstracts := make([]abstract.Abstract, 0)
	for _, abs := range repo.db.abstracts {
		if matchAbstract(abs, filter) {
			abstracts = append(abstracts, abs)
		}
	}
	sortAbstracts(abstracts, ordering)
	return abstracts, nil
}

func matchAbstract(abs abstract.Abstract, filter abstract.QueryFilter) bool {
	if filter.ConferenceID != "" && abs.ConferenceID != filter.ConferenceID {
		return false
	}
	if filter.SubmitterID != "" && abs.SubmitterID != filter.SubmitterID {
		return false
	}
	if filter.Overridden != nil && abs.Overridden != *filter.Overridden {
		return false
	}
	if len(filter.Statuses) > 0 {
		for _, s := range filter.Statuses {
			if abs.Status == s {
				return true
			}
		}
		return false
	}
	return true
}

func sortAbstracts(abstracts []abstract.Abstract, ordering []core.DBOrdering) {
	if len(ordering) == 0 {
		ordering = []core.DBOrdering{{Field: "submitted_at", Ascending: true}}
	}
	sort.SliceStable(abstracts, func(i, j int) bool {
		a, b := abstracts[i], abstracts[j]
		for _, ord := range ordering {
			var cmp int
			switch ord.Field {
			case "submitted_at":
				cmp = compareTimes(a.SubmittedAt.UnixNano(), b.SubmittedAt.UnixNano())
			case "updated_at":
				cmp = compareTimes(a.UpdatedAt.UnixNano(), b.UpdatedAt.UnixNano())
			case "title":
				cmp = strings.Compare(a.Title, b.Title)
			case "status":
				cmp = strings.Compare(string(a.Status), string(b.Status))
			}
			if cmp == 0 {
				continue
			}
			if ord.Ascending {
				return cmp < 0
			}
			return cmp > 0
		}
		return false
	})
}

func compareTimes(a, b int64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

func (repo *abstractRepository) UpdateAbstractStatus(_ context.Context, abs abstract.Abstract, _ ...core.DBExecutor) (abstract.Abstract, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	i, ok := repo.db.findAbstract(abs.ID)
	if !ok {
		return abstract.Abstract{}, abstract.ErrNotFound
	}
	stored := &repo.db.abstracts[i]
	stored.Status = abs.Status
	stored.PresentationType = abs.PresentationType
	stored.Overridden = abs.Overridden
	stored.UpdatedAt = abs.UpdatedAt
	return *stored, nil
}

func (repo *abstractRepository) UpdateAbstractContent(_ context.Context, abs abstract.Abstract, _ ...core.DBExecutor) (abstract.Abstract, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	i, ok := repo.db.findAbstract(abs.ID)
	if !ok {
		return abstract.Abstract{}, abstract.ErrNotFound
	}
	stored := &repo.db.abstracts[i]
	stored.Title = abs.Title
	stored.Summary = abs.Summary
	stored.Keywords = abs.Keywords
	stored.UpdatedAt = abs.UpdatedAt
	return *stored, nil
}

func (repo *abstractRepository) DeleteAbstract(_ context.Context, id string, _ ...core.DBExecutor) error {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	i, ok := repo.db.findAbstract(id)
	if !ok {
		return abstract.ErrNotFound
	}
	repo.db.abstracts = append(repo.db.abstracts[:i:i], repo.db.abstracts[i+1:]...)

	// cascade
	assignments := repo.db.assignments[:0:0]
	for _, asg := range repo.db.assignments {
		if asg.AbstractID != id {
			assignments = append(assignments, asg)
		}
	}
	repo.db.assignments = assignments
	reviews := repo.db.reviews[:0:0]
	for _, rv := range repo.db.reviews {
		if rv.AbstractID != id {
			reviews = append(reviews, rv)
		}
	}
	repo.db.reviews = reviews
	return nil
}

func (repo *abstractRepository) IsUnderReview(_ context.Context, id string, _ ...core.DBExecutor) (bool, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	for _, asg := range repo.db.assignments {
		if asg.AbstractID == id {
			return true, nil
		}
	}
	for _, rv := range repo.db.reviews {
		if rv.AbstractID == id {
			return true, nil
		}
	}
	return false, nil
}
