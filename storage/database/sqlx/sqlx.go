// Package sqlxrepos implements the repositories on PostgreSQL with sqlx and squirrel.
package sqlxrepos

import (
	"context"
	"database/sql"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"

	"github.com/confhub/backend/core"
)

const uniqueViolation = "23505"

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

type repository struct {
	exec core.DBExecutor
}

func (repo repository) getExec(svcExec []core.DBExecutor) core.DBExecutor {
	if len(svcExec) > 0 && svcExec[0] != nil {
		return svcExec[0]
	}
	return repo.exec
}

// selectInto runs the query and scans every row into dest, a pointer to a slice of row structs.
func selectInto(ctx context.Context, exe core.DBExecutor, qb sq.Sqlizer, dest interface{}) error {
	query, args, err := qb.ToSql()
	if err != nil {
		return errors.Wrap(err, "building query")
	}
	rows, err := exe.QueryContext(ctx, query, args...)
	if err != nil {
		return err
	}
	defer func() { _ = rows.Close() }()
	return sqlx.StructScan(rows, dest)
}

func execute(ctx context.Context, exe core.DBExecutor, qb sq.Sqlizer) (sql.Result, error) {
	query, args, err := qb.ToSql()
	if err != nil {
		return nil, errors.Wrap(err, "building query")
	}
	return exe.ExecContext(ctx, query, args...)
}

func exists(ctx context.Context, exe core.DBExecutor, qb sq.SelectBuilder) (bool, error) {
	query, args, err := qb.Prefix("SELECT EXISTS (").Suffix(")").ToSql()
	if err != nil {
		return false, errors.Wrap(err, "building query")
	}
	var found bool
	err = exe.QueryRowContext(ctx, query, args...).Scan(&found)
	return found, err
}

func count(ctx context.Context, exe core.DBExecutor, qb sq.SelectBuilder) (int, error) {
	query, args, err := qb.ToSql()
	if err != nil {
		return 0, errors.Wrap(err, "building query")
	}
	var n int
	err = exe.QueryRowContext(ctx, query, args...).Scan(&n)
	return n, err
}

func isUniqueViolation(err error) bool {
	pqErr, ok := errors.Cause(err).(*pq.Error)
	return ok && pqErr.Code == uniqueViolation
}

// validID reports whether id can be compared with a uuid column.
func validID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}

func validIDs(ids []string) []string {
	valid := make([]string, 0, len(ids))
	for _, id := range ids {
		if validID(id) {
			valid = append(valid, id)
		}
	}
	return valid
}

func orderBy(ordering []core.DBOrdering, fallback ...string) []string {
	if len(ordering) == 0 {
		return fallback
	}
	clauses := make([]string, 0, len(ordering))
	for _, ord := range ordering {
		clauses = append(clauses, ord.String())
	}
	return clauses
}
