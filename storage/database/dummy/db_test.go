package dummydb

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/confhub/backend/core"
	"github.com/confhub/backend/core/user"
)

func TestDB_InTx(t *testing.T) {
	ctx := context.Background()
	db, err := Open()
	require.NoError(t, err)
	repo := NewUserRepository(db)

	create := func(email string) func(exec core.DBExecutor) error {
		return func(exec core.DBExecutor) error {
			_, err := repo.CreateUser(ctx, user.User{Name: "Rita", Email: email, Role: user.RoleReviewer}, exec)
			return err
		}
	}

	require.NoError(t, db.InTx(ctx, create("rita@confhub.test")))

	errBoom := errors.New("boom")
	err = db.InTx(ctx, func(exec core.DBExecutor) error {
		if err := create("ravi@confhub.test")(exec); err != nil {
			return err
		}
		return errBoom
	})
	assert.Equal(t, errBoom, err)

	assert.Panics(t, func() {
		_ = db.InTx(ctx, func(exec core.DBExecutor) error {
			_ = create("rosa@confhub.test")(exec)
			panic("boom")
		})
	})

	_, err = repo.GetUser(ctx, user.GetFilter{Email: "rita@confhub.test"})
	assert.NoError(t, err)
	_, err = repo.GetUser(ctx, user.GetFilter{Email: "ravi@confhub.test"})
	assert.Equal(t, user.ErrNotFound, err)
	_, err = repo.GetUser(ctx, user.GetFilter{Email: "rosa@confhub.test"})
	assert.Equal(t, user.ErrNotFound, err)

	cctx, cancel := context.WithCancel(ctx)
	cancel()
	assert.Equal(t, context.Canceled, db.InTx(cctx, create("rhea@confhub.test")))

	db.Reset()
	_, err = repo.GetUser(ctx, user.GetFilter{Email: "rita@confhub.test"})
	assert.Equal(t, user.ErrNotFound, err)
}
