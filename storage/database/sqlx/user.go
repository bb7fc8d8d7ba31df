package sqlxrepos

import (
	"context"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/confhub/backend/core"
	"github.com/confhub/backend/core/user"
)

var userColumns = []string{"id", "name", "email", "role", "is_active", "created_at", "updated_at"}

type userRow struct {
	ID        string    `db:"id"`
	Name      string    `db:"name"`
	Email     string    `db:"email"`
	Role      string    `db:"role"`
	IsActive  bool      `db:"is_active"`
	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}

func (row userRow) toUser() user.User {
	return user.User{
		ID:        row.ID,
		Name:      row.Name,
		Email:     row.Email,
		Role:      user.Role(row.Role),
		IsActive:  row.IsActive,
		CreatedAt: row.CreatedAt.UTC(),
		UpdatedAt: row.UpdatedAt.UTC(),
	}
}

func toUsers(rows []userRow) []user.User {
	users := make([]user.User, 0, len(rows))
	for _, row := range rows {
		users = append(users, row.toUser())
	}
	return users
}

// prefixed qualifies columns with a table alias.
func prefixed(alias string, columns []string) []string {
	cols := make([]string, 0, len(columns))
	for _, col := range columns {
		cols = append(cols, alias+"."+col)
	}
	return cols
}

type userRepository struct {
	repository
}

var _ user.Repository = (*userRepository)(nil) // interface compliance check

func NewUserRepository(exec core.DBExecutor) *userRepository {
	return &userRepository{repository{exec: exec}}
}

func (repo userRepository) CreateUser(ctx context.Context, usr user.User, exec ...core.DBExecutor) (user.User, error) {
	usr.ID = uuid.New().String()
	qb := psql.Insert("users").
		Columns(userColumns...).
		Values(usr.ID, usr.Name, usr.Email, string(usr.Role), usr.IsActive, usr.CreatedAt.UTC(), usr.UpdatedAt.UTC())
	if _, err := execute(ctx, repo.getExec(exec), qb); err != nil {
		if isUniqueViolation(err) {
			return user.User{}, user.ErrEmailExists
		}
		return user.User{}, errors.Wrap(err, "inserting user")
	}
	return usr, nil
}

func (repo userRepository) GetUser(ctx context.Context, filter user.GetFilter, exec ...core.DBExecutor) (user.User, error) {
	qb := psql.Select(userColumns...).From("users").Limit(1)
	switch {
	case filter.ID != "":
		if !validID(filter.ID) {
			return user.User{}, user.ErrNotFound
		}
		qb = qb.Where(sq.Eq{"id": filter.ID})
	case filter.Email != "":
		qb = qb.Where(sq.Eq{"email": filter.Email})
	default:
		return user.User{}, user.ErrNotFound
	}

	var rows []userRow
	if err := selectInto(ctx, repo.getExec(exec), qb, &rows); err != nil {
		return user.User{}, errors.Wrap(err, "getting user")
	}
	if len(rows) == 0 {
		return user.User{}, user.ErrNotFound
	}
	return rows[0].toUser(), nil
}

func (repo userRepository) QueryUsersByID(ctx context.Context, ids []string, exec ...core.DBExecutor) ([]user.User, error) {
	ids = validIDs(ids)
	if len(ids) == 0 {
		return []user.User{}, nil
	}

	qb := psql.Select(userColumns...).From("users").Where(sq.Eq{"id": ids}).OrderBy("name", "id")
	var rows []userRow
	if err := selectInto(ctx, repo.getExec(exec), qb, &rows); err != nil {
		return nil, errors.Wrap(err, "querying users")
	}
	return toUsers(rows), nil
}

func (repo userRepository) CheckEmailUniqueness(ctx context.Context, email string, exec ...core.DBExecutor) error {
	found, err := exists(ctx, repo.getExec(exec), psql.Select("1").From("users").Where(sq.Eq{"email": email}))
	if err != nil {
		return errors.Wrap(err, "checking email uniqueness")
	}
	if found {
		return user.ErrEmailExists
	}
	return nil
}
