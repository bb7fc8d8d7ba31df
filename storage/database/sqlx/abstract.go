package sqlxrepos

import (
	"context"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/confhub/backend/core"
	"github.com/confhub/backend/core/abstract"
)

var abstractColumns = []string{
	"id", "conference_id", "submitter_id", "title", "summary", "keywords",
	"status", "presentation_type", "overridden", "submitted_at", "updated_at",
}

type abstractRow struct {
	ID               string      `db:"id"`
	ConferenceID     string      `db:"conference_id"`
	SubmitterID      string      `db:"submitter_id"`
	Title            string      `db:"title"`
	Summary          string      `db:"summary"`
	Keywords         string      `db:"keywords"`
	Status           string      `db:"status"`
	PresentationType null.String `db:"presentation_type"`
	Overridden       bool        `db:"overridden"`
	SubmittedAt      time.Time   `db:"submitted_at"`
	UpdatedAt        time.Time   `db:"updated_at"`
}

func presentationTypeValue(pt abstract.PresentationType) null.String {
	return null.NewString(string(pt), pt != abstract.PresentationNone)
}

func (row abstractRow) toAbstract() abstract.Abstract {
	return abstract.Abstract{
		ID:               row.ID,
		ConferenceID:     row.ConferenceID,
		SubmitterID:      row.SubmitterID,
		Title:            row.Title,
		Summary:          row.Summary,
		Keywords:         row.Keywords,
		Status:           abstract.Status(row.Status),
		PresentationType: abstract.PresentationType(row.PresentationType.String),
		Overridden:       row.Overridden,
		SubmittedAt:      row.SubmittedAt.UTC(),
		UpdatedAt:        row.UpdatedAt.UTC(),
	}
}

func toAbstracts(rows []abstractRow) []abstract.Abstract {
	abstracts := make([]abstract.Abstract, 0, len(rows))
	for _, row := range rows {
		abstracts = append(abstracts, row.toAbstract())
	}
	return abstracts
}

type abstractRepository struct {
	repository
}

var _ abstract.Repository = (*abstractRepository)(nil) // interface compliance check

func NewAbstractRepository(exec core.DBExecutor) *abstractRepository {
	return &abstractRepository{repository{exec: exec}}
}

func (repo abstractRepository) getOne(ctx context.Context, exe core.DBExecutor, qb sq.SelectBuilder) (abstract.Abstract, error) {
	var rows []abstractRow
	if err := selectInto(ctx, exe, qb, &rows); err != nil {
		return abstract.Abstract{}, errors.Wrap(err, "getting abstract")
	}
	if len(rows) == 0 {
		return abstract.Abstract{}, abstract.ErrNotFound
	}
	return rows[0].toAbstract(), nil
}

func (repo abstractRepository) CreateAbstract(ctx context.Context, abs abstract.Abstract, exec ...core.DBExecutor) (abstract.Abstract, error) {
	abs.ID = uuid.New().String()
	qb := psql.Insert("abstracts").
		Columns(abstractColumns...).
		Values(
			abs.ID, abs.ConferenceID, abs.SubmitterID, abs.Title, abs.Summary, abs.Keywords,
			string(abs.Status), presentationTypeValue(abs.PresentationType), abs.Overridden,
			abs.SubmittedAt.UTC(), abs.UpdatedAt.UTC(),
		)
	if _, err := execute(ctx, repo.getExec(exec), qb); err != nil {
		return abstract.Abstract{}, errors.Wrap(err, "inserting abstract")
	}
	return abs, nil
}

func (repo abstractRepository) GetAbstract(ctx context.Context, id string, exec ...core.DBExecutor) (abstract.Abstract, error) {
	if !validID(id) {
		return abstract.Abstract{}, abstract.ErrNotFound
	}
	qb := psql.Select(abstractColumns...).From("abstracts").Where(sq.Eq{"id": id})
	return repo.getOne(ctx, repo.getExec(exec), qb)
}

func (repo abstractRepository) LockAbstract(ctx context.Context, id string, exec core.DBExecutor) (abstract.Abstract, error) {
	if !validID(id) {
		return abstract.Abstract{}, abstract.ErrNotFound
	}
	qb := psql.Select(abstractColumns...).From("abstracts").Where(sq.Eq{"id": id}).Suffix("FOR UPDATE")
	return repo.getOne(ctx, repo.getExec([]core.DBExecutor{exec}), qb)
}

func (repo abstractRepository) QueryAbstracts(ctx context.Context, filter abstract.QueryFilter, ordering []core.DBOrdering, exec ...core.DBExecutor) ([]abstract.Abstract, error) {
	qb := psql.Select(abstractColumns...).
		From("abstracts").
		OrderBy(orderBy(ordering, "submitted_at", "id")...)

	if filter.ConferenceID != "" {
		if !validID(filter.ConferenceID) {
			return []abstract.Abstract{}, nil
		}
		qb = qb.Where(sq.Eq{"conference_id": filter.ConferenceID})
	}
	if filter.SubmitterID != "" {
		if !validID(filter.SubmitterID) {
			return []abstract.Abstract{}, nil
		}
		qb = qb.Where(sq.Eq{"submitter_id": filter.SubmitterID})
	}
	if len(filter.Statuses) > 0 {
		statuses := make([]string, 0, len(filter.Statuses))
		for _, s := range filter.Statuses {
			statuses = append(statuses, strings.ToLower(string(s)))
		}
		qb = qb.Where(sq.Eq{"status": statuses})
	}
	if filter.Overridden != nil {
		qb = qb.Where(sq.Eq{"overridden": *filter.Overridden})
	}

	var rows []abstractRow
	if err := selectInto(ctx, repo.getExec(exec), qb, &rows); err != nil {
		return nil, errors.Wrap(err, "querying abstracts")
	}
	return toAbstracts(rows), nil
}

func (repo abstractRepository) UpdateAbstractStatus(ctx context.Context, abs abstract.Abstract, exec ...core.DBExecutor) (abstract.Abstract, error) {
	if !validID(abs.ID) {
		return abstract.Abstract{}, abstract.ErrNotFound
	}
	qb := psql.Update("abstracts").
		Set("status", string(abs.Status)).
		Set("presentation_type", presentationTypeValue(abs.PresentationType)).
		Set("overridden", abs.Overridden).
		Set("updated_at", abs.UpdatedAt.UTC()).
		Where(sq.Eq{"id": abs.ID}).
		Suffix("RETURNING " + strings.Join(abstractColumns, ", "))

	var rows []abstractRow
	if err := selectInto(ctx, repo.getExec(exec), qb, &rows); err != nil {
		return abstract.Abstract{}, errors.Wrap(err, "updating abstract")
	}
	if len(rows) == 0 {
		return abstract.Abstract{}, abstract.ErrNotFound
	}
	return rows[0].toAbstract(), nil
}

func (repo abstractRepository) UpdateAbstractContent(ctx context.Context, abs abstract.Abstract, exec ...core.DBExecutor) (abstract.Abstract, error) {
	if !validID(abs.ID) {
		return abstract.Abstract{}, abstract.ErrNotFound
	}
	qb := psql.Update("abstracts").
		Set("title", abs.Title).
		Set("summary", abs.Summary).
		Set("keywords", abs.Keywords).
		Set("updated_at", abs.UpdatedAt.UTC()).
		Where(sq.Eq{"id": abs.ID}).
		Suffix("RETURNING " + strings.Join(abstractColumns, ", "))

	var rows []abstractRow
	if err := selectInto(ctx, repo.getExec(exec), qb, &rows); err != nil {
		return abstract.Abstract{}, errors.Wrap(err, "updating abstract content")
	}
	if len(rows) == 0 {
		return abstract.Abstract{}, abstract.ErrNotFound
	}
	return rows[0].toAbstract(), nil
}

// DeleteAbstract relies on ON DELETE CASCADE for assignments and reviews.
func (repo abstractRepository) DeleteAbstract(ctx context.Context, id string, exec ...core.DBExecutor) error {
	if !validID(id) {
		return abstract.ErrNotFound
	}
	res, err := execute(ctx, repo.getExec(exec), psql.Delete("abstracts").Where(sq.Eq{"id": id}))
	if err != nil {
		return errors.Wrap(err, "deleting abstract")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return errors.Wrap(err, "deleting abstract")
	}
	if n == 0 {
		return abstract.ErrNotFound
	}
	return nil
}

func (repo abstractRepository) IsUnderReview(ctx context.Context, id string, exec ...core.DBExecutor) (bool, error) {
	if !validID(id) {
		return false, nil
	}
	qb := psql.Select().Column(sq.Expr(
		"EXISTS (SELECT 1 FROM reviewer_assignments WHERE abstract_id = ?) OR EXISTS (SELECT 1 FROM reviews WHERE abstract_id = ?)",
		id, id,
	))
	query, args, err := qb.ToSql()
	if err != nil {
		return false, errors.Wrap(err, "building query")
	}
	var busy bool
	if err = repo.getExec(exec).QueryRowContext(ctx, query, args...).Scan(&busy); err != nil {
		return false, errors.Wrap(err, "checking abstract reviewers")
	}
	return busy, nil
}
