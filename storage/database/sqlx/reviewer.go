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
	"github.com/confhub/backend/core/reviewer"
	"github.com/confhub/backend/core/user"
)

var invitationColumns = []string{
	"id", "conference_id", "invited_by_id", "invitee_id", "invitee_email", "status", "created_at", "responded_at",
}

type invitationRow struct {
	ID           string    `db:"id"`
	ConferenceID string    `db:"conference_id"`
	InvitedByID  string    `db:"invited_by_id"`
	InviteeID    string    `db:"invitee_id"`
	InviteeEmail string    `db:"invitee_email"`
	Status       string    `db:"status"`
	CreatedAt    time.Time `db:"created_at"`
	RespondedAt  null.Time `db:"responded_at"`
}

func (row invitationRow) toInvitation() reviewer.Invitation {
	inv := reviewer.Invitation{
		ID:           row.ID,
		ConferenceID: row.ConferenceID,
		InvitedByID:  row.InvitedByID,
		InviteeID:    row.InviteeID,
		InviteeEmail: row.InviteeEmail,
		Status:       reviewer.InvitationStatus(row.Status),
		CreatedAt:    row.CreatedAt.UTC(),
	}
	if row.RespondedAt.Valid {
		inv.RespondedAt = null.TimeFrom(row.RespondedAt.Time.UTC())
	}
	return inv
}

type reviewerRepository struct {
	repository
}

var _ reviewer.Repository = (*reviewerRepository)(nil) // interface compliance check

func NewReviewerRepository(exec core.DBExecutor) *reviewerRepository {
	return &reviewerRepository{repository{exec: exec}}
}

func (repo reviewerRepository) AddMember(ctx context.Context, m reviewer.Membership, exec ...core.DBExecutor) error {
	qb := psql.Insert("conference_reviewers").
		Columns("conference_id", "user_id", "created_at").
		Values(m.ConferenceID, m.UserID, m.CreatedAt.UTC())
	if _, err := execute(ctx, repo.getExec(exec), qb); err != nil {
		if isUniqueViolation(err) {
			return reviewer.ErrAlreadyMember
		}
		return errors.Wrap(err, "inserting conference reviewer")
	}
	return nil
}

func (repo reviewerRepository) MemberExists(ctx context.Context, conferenceID, userID string, exec ...core.DBExecutor) (bool, error) {
	if !validID(conferenceID) || !validID(userID) {
		return false, nil
	}
	qb := psql.Select("1").From("conference_reviewers").Where(sq.Eq{"conference_id": conferenceID, "user_id": userID})
	found, err := exists(ctx, repo.getExec(exec), qb)
	return found, errors.Wrap(err, "checking conference reviewer")
}

func (repo reviewerRepository) QueryMembers(ctx context.Context, conferenceID string, exec ...core.DBExecutor) ([]user.User, error) {
	if !validID(conferenceID) {
		return []user.User{}, nil
	}
	qb := psql.Select(prefixed("u", userColumns)...).
		From("users u").
		Join("conference_reviewers cr ON cr.user_id = u.id").
		Where(sq.Eq{"cr.conference_id": conferenceID}).
		OrderBy("cr.created_at", "u.id")

	var rows []userRow
	if err := selectInto(ctx, repo.getExec(exec), qb, &rows); err != nil {
		return nil, errors.Wrap(err, "querying conference reviewers")
	}
	return toUsers(rows), nil
}

func (repo reviewerRepository) CreateAssignment(ctx context.Context, asg reviewer.Assignment, exec ...core.DBExecutor) error {
	qb := psql.Insert("reviewer_assignments").
		Columns("abstract_id", "reviewer_id", "created_at").
		Values(asg.AbstractID, asg.ReviewerID, asg.CreatedAt.UTC())
	if _, err := execute(ctx, repo.getExec(exec), qb); err != nil {
		if isUniqueViolation(err) {
			return reviewer.ErrAlreadyAssigned
		}
		return errors.Wrap(err, "inserting reviewer assignment")
	}
	return nil
}

func (repo reviewerRepository) AssignmentExists(ctx context.Context, abstractID, reviewerID string, exec ...core.DBExecutor) (bool, error) {
	if !validID(abstractID) || !validID(reviewerID) {
		return false, nil
	}
	qb := psql.Select("1").From("reviewer_assignments").Where(sq.Eq{"abstract_id": abstractID, "reviewer_id": reviewerID})
	found, err := exists(ctx, repo.getExec(exec), qb)
	return found, errors.Wrap(err, "checking reviewer assignment")
}

func (repo reviewerRepository) CountAssignments(ctx context.Context, abstractID string, exec ...core.DBExecutor) (int, error) {
	if !validID(abstractID) {
		return 0, nil
	}
	qb := psql.Select("COUNT(*)").From("reviewer_assignments").Where(sq.Eq{"abstract_id": abstractID})
	n, err := count(ctx, repo.getExec(exec), qb)
	return n, errors.Wrap(err, "counting reviewer assignments")
}

func (repo reviewerRepository) QueryAssignedReviewers(ctx context.Context, abstractID string, exec ...core.DBExecutor) ([]user.User, error) {
	if !validID(abstractID) {
		return []user.User{}, nil
	}
	qb := psql.Select(prefixed("u", userColumns)...).
		From("users u").
		Join("reviewer_assignments ra ON ra.reviewer_id = u.id").
		Where(sq.Eq{"ra.abstract_id": abstractID}).
		OrderBy("ra.created_at", "u.id")

	var rows []userRow
	if err := selectInto(ctx, repo.getExec(exec), qb, &rows); err != nil {
		return nil, errors.Wrap(err, "querying assigned reviewers")
	}
	return toUsers(rows), nil
}

func (repo reviewerRepository) QueryAssignedAbstracts(ctx context.Context, reviewerID, conferenceID string, exec ...core.DBExecutor) ([]abstract.Abstract, error) {
	if !validID(reviewerID) || !validID(conferenceID) {
		return []abstract.Abstract{}, nil
	}
	qb := psql.Select(prefixed("a", abstractColumns)...).
		From("abstracts a").
		Join("reviewer_assignments ra ON ra.abstract_id = a.id").
		Where(sq.Eq{"ra.reviewer_id": reviewerID, "a.conference_id": conferenceID}).
		OrderBy("a.submitted_at", "a.id")

	var rows []abstractRow
	if err := selectInto(ctx, repo.getExec(exec), qb, &rows); err != nil {
		return nil, errors.Wrap(err, "querying assigned abstracts")
	}
	return toAbstracts(rows), nil
}

func (repo reviewerRepository) CreateInvitation(ctx context.Context, inv reviewer.Invitation, exec ...core.DBExecutor) (reviewer.Invitation, error) {
	inv.ID = uuid.New().String()
	qb := psql.Insert("reviewer_invitations").
		Columns(invitationColumns...).
		Values(
			inv.ID, inv.ConferenceID, inv.InvitedByID, inv.InviteeID, inv.InviteeEmail,
			string(inv.Status), inv.CreatedAt.UTC(), inv.RespondedAt,
		)
	if _, err := execute(ctx, repo.getExec(exec), qb); err != nil {
		if isUniqueViolation(err) {
			return reviewer.Invitation{}, reviewer.ErrAlreadyInvited
		}
		return reviewer.Invitation{}, errors.Wrap(err, "inserting invitation")
	}
	return inv, nil
}

func (repo reviewerRepository) LockInvitation(ctx context.Context, id string, exec core.DBExecutor) (reviewer.Invitation, error) {
	if !validID(id) {
		return reviewer.Invitation{}, reviewer.ErrInvitationNotFound
	}
	qb := psql.Select(invitationColumns...).From("reviewer_invitations").Where(sq.Eq{"id": id}).Suffix("FOR UPDATE")

	var rows []invitationRow
	if err := selectInto(ctx, repo.getExec([]core.DBExecutor{exec}), qb, &rows); err != nil {
		return reviewer.Invitation{}, errors.Wrap(err, "getting invitation")
	}
	if len(rows) == 0 {
		return reviewer.Invitation{}, reviewer.ErrInvitationNotFound
	}
	return rows[0].toInvitation(), nil
}

func (repo reviewerRepository) UpdateInvitation(ctx context.Context, inv reviewer.Invitation, exec ...core.DBExecutor) (reviewer.Invitation, error) {
	if !validID(inv.ID) {
		return reviewer.Invitation{}, reviewer.ErrInvitationNotFound
	}
	qb := psql.Update("reviewer_invitations").
		Set("status", string(inv.Status)).
		Set("responded_at", inv.RespondedAt).
		Where(sq.Eq{"id": inv.ID}).
		Suffix("RETURNING " + strings.Join(invitationColumns, ", "))

	var rows []invitationRow
	if err := selectInto(ctx, repo.getExec(exec), qb, &rows); err != nil {
		return reviewer.Invitation{}, errors.Wrap(err, "updating invitation")
	}
	if len(rows) == 0 {
		return reviewer.Invitation{}, reviewer.ErrInvitationNotFound
	}
	return rows[0].toInvitation(), nil
}

func (repo reviewerRepository) QueryInvitations(ctx context.Context, filter reviewer.InvitationFilter, exec ...core.DBExecutor) ([]reviewer.Invitation, error) {
	qb := psql.Select(invitationColumns...).From("reviewer_invitations").OrderBy("created_at DESC", "id")
	if filter.ConferenceID != "" {
		if !validID(filter.ConferenceID) {
			return []reviewer.Invitation{}, nil
		}
		qb = qb.Where(sq.Eq{"conference_id": filter.ConferenceID})
	}
	if filter.InviteeID != "" {
		if !validID(filter.InviteeID) {
			return []reviewer.Invitation{}, nil
		}
		qb = qb.Where(sq.Eq{"invitee_id": filter.InviteeID})
	}
	if len(filter.Statuses) > 0 {
		statuses := make([]string, 0, len(filter.Statuses))
		for _, s := range filter.Statuses {
			statuses = append(statuses, string(s))
		}
		qb = qb.Where(sq.Eq{"status": statuses})
	}

	var rows []invitationRow
	if err := selectInto(ctx, repo.getExec(exec), qb, &rows); err != nil {
		return nil, errors.Wrap(err, "querying invitations")
	}
	invs := make([]reviewer.Invitation, 0, len(rows))
	for _, row := range rows {
		invs = append(invs, row.toInvitation())
	}
	return invs, nil
}
