package sqlxrepos

import (
	"context"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/confhub/backend/core"
	"github.com/confhub/backend/core/conference"
)

var conferenceColumns = []string{"id", "title", "description", "organizer_id", "deadline", "created_at"}

type conferenceRow struct {
	ID          string    `db:"id"`
	Title       string    `db:"title"`
	Description string    `db:"description"`
	OrganizerID string    `db:"organizer_id"`
	Deadline    time.Time `db:"deadline"`
	CreatedAt   time.Time `db:"created_at"`
}

func (row conferenceRow) toConference() conference.Conference {
	return conference.Conference{
		ID:          row.ID,
		Title:       row.Title,
		Description: row.Description,
		OrganizerID: row.OrganizerID,
		Deadline:    row.Deadline.UTC(),
		CreatedAt:   row.CreatedAt.UTC(),
	}
}

type conferenceRepository struct {
	repository
}

var _ conference.Repository = (*conferenceRepository)(nil) // interface compliance check

func NewConferenceRepository(exec core.DBExecutor) *conferenceRepository {
	return &conferenceRepository{repository{exec: exec}}
}

func (repo conferenceRepository) CreateConference(ctx context.Context, conf conference.Conference, exec ...core.DBExecutor) (conference.Conference, error) {
	conf.ID = uuid.New().String()
	qb := psql.Insert("conferences").
		Columns(conferenceColumns...).
		Values(conf.ID, conf.Title, conf.Description, conf.OrganizerID, conf.Deadline.UTC(), conf.CreatedAt.UTC())
	if _, err := execute(ctx, repo.getExec(exec), qb); err != nil {
		return conference.Conference{}, errors.Wrap(err, "inserting conference")
	}
	return conf, nil
}

func (repo conferenceRepository) GetConference(ctx context.Context, id string, exec ...core.DBExecutor) (conference.Conference, error) {
	if !validID(id) {
		return conference.Conference{}, conference.ErrNotFound
	}

	var rows []conferenceRow
	qb := psql.Select(conferenceColumns...).From("conferences").Where(sq.Eq{"id": id})
	if err := selectInto(ctx, repo.getExec(exec), qb, &rows); err != nil {
		return conference.Conference{}, errors.Wrap(err, "getting conference")
	}
	if len(rows) == 0 {
		return conference.Conference{}, conference.ErrNotFound
	}
	return rows[0].toConference(), nil
}

func (repo conferenceRepository) QueryConferences(ctx context.Context, filter conference.QueryFilter, exec ...core.DBExecutor) ([]conference.Conference, error) {
	qb := psql.Select(conferenceColumns...).From("conferences").OrderBy("created_at DESC", "id")
	if filter.OrganizerID != "" {
		if !validID(filter.OrganizerID) {
			return []conference.Conference{}, nil
		}
		qb = qb.Where(sq.Eq{"organizer_id": filter.OrganizerID})
	}

	var rows []conferenceRow
	if err := selectInto(ctx, repo.getExec(exec), qb, &rows); err != nil {
		return nil, errors.Wrap(err, "querying conferences")
	}
	confs := make([]conference.Conference, 0, len(rows))
	for _, row := range rows {
		confs = append(confs, row.toConference())
	}
	return confs, nil
}
