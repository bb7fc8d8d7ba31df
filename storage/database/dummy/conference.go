package dummydb

import (
	"context"
	"sort"

	"github.com/google/uuid"

	"github.com/confhub/backend/core"
	"github.com/confhub/backend/core/conference"
)

type conferenceRepository struct {
	db *DB
}

var _ conference.Repository = (*conferenceRepository)(nil) // interface compliance check

func NewConferenceRepository(db *DB) conference.Repository {
	return &conferenceRepository{db: db}
}

func (repo *conferenceRepository) CreateConference(_ context.Context, conf conference.Conference, _ ...core.DBExecutor) (conference.Conference, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	conf.ID = uuid.New().String()
	repo.db.conferences = append(repo.db.conferences, conf)
	return conf, nil
}

func (repo *conferenceRepository) GetConference(_ context.Context, id string, _ ...core.DBExecutor) (conference.Conference, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	for _, conf := range repo.db.conferences {
		if conf.ID == id {
			return conf, nil
		}
	}
	return conference.Conference{}, conference.ErrNotFound
}

func (repo *conferenceRepository) QueryConferences(_ context.Context, filter conference.QueryFilter, _ ...core.DBExecutor) ([]conference.Conference, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	confs := make([]conference.Conference, 0)
	for _, conf := range repo.db.conferences {
		if filter.OrganizerID == "" || conf.OrganizerID == filter.OrganizerID {
			confs = append(confs, conf)
		}
	}
	// newest first
	sort.SliceStable(confs, func(i, j int) bool { return confs[i].CreatedAt.After(confs[j].CreatedAt) })
	return confs, nil
}
