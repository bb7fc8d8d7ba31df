package sqlxrepos_test

import (
	"context"
	"database/sql"
	"os"
	"sync"
	"testing"
	"time"

	_ "github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/confhub/backend/core"
	"github.com/confhub/backend/core/abstract"
	"github.com/confhub/backend/core/review"
	"github.com/confhub/backend/core/reviewer"
	"github.com/confhub/backend/core/user"
	emailsvc "github.com/confhub/backend/services/email"
	"github.com/confhub/backend/storage/database"
	sqlxrepos "github.com/confhub/backend/storage/database/sqlx"
	"github.com/confhub/backend/testutil"
)

// prepareDB connects to TEST_DATABASE_URL, migrates it and empties every table.
func prepareDB(t *testing.T) *sql.DB {
	t.Helper()

	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}
	db, err := sql.Open("postgres", dsn)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	ctx := context.Background()
	require.NoError(t, database.Migrate(ctx, db, "up"))
	_, err = db.ExecContext(ctx, `TRUNCATE users, conferences, abstracts, conference_reviewers,
		reviewer_assignments, reviewer_invitations, reviews CASCADE`)
	require.NoError(t, err)
	return db
}

func TestUserRepository(t *testing.T) {
	db := prepareDB(t)
	ctx := context.Background()
	repo := sqlxrepos.NewUserRepository(db)

	olga := testutil.CreateUser(t, repo, "Olga", "olga@confhub.test", user.RoleOrganizer)

	_, err := repo.CreateUser(ctx, user.User{Name: "Olga 2", Email: "olga@confhub.test", Role: user.RoleAuthor, CreatedAt: core.Now(), UpdatedAt: core.Now()})
	assert.ErrorIs(t, err, user.ErrEmailExists)
	assert.ErrorIs(t, repo.CheckEmailUniqueness(ctx, "olga@confhub.test"), user.ErrEmailExists)
	assert.NoError(t, repo.CheckEmailUniqueness(ctx, "otto@confhub.test"))

	got, err := repo.GetUser(ctx, user.GetFilter{Email: "olga@confhub.test"})
	require.NoError(t, err)
	assert.Equal(t, olga.ID, got.ID)
	assert.Equal(t, user.RoleOrganizer, got.Role)

	_, err = repo.GetUser(ctx, user.GetFilter{ID: "not-a-uuid"})
	assert.ErrorIs(t, err, user.ErrNotFound)

	users, err := repo.QueryUsersByID(ctx, []string{olga.ID, "not-a-uuid"})
	require.NoError(t, err)
	assert.Len(t, users, 1)
}

func TestAbstractRepository(t *testing.T) {
	db := prepareDB(t)
	ctx := context.Background()
	usrRepo := sqlxrepos.NewUserRepository(db)
	confRepo := sqlxrepos.NewConferenceRepository(db)
	repo := sqlxrepos.NewAbstractRepository(db)

	olga := testutil.CreateUser(t, usrRepo, "Olga", "olga@confhub.test", user.RoleOrganizer)
	aime := testutil.CreateUser(t, usrRepo, "Aimé", "aime@confhub.test", user.RoleAuthor)
	conf := testutil.CreateConference(t, confRepo, olga, "GopherCon", time.Now().Add(24*time.Hour))

	t0 := time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC)
	zeta := testutil.CreateAbstract(t, repo, conf, aime, "Zeta", t0)
	alpha := testutil.CreateAbstract(t, repo, conf, aime, "Alpha", t0.Add(time.Hour))

	abstracts, err := repo.QueryAbstracts(ctx, abstract.QueryFilter{ConferenceID: conf.ID}, nil)
	require.NoError(t, err)
	require.Len(t, abstracts, 2)
	assert.Equal(t, zeta.ID, abstracts[0].ID)

	abstracts, err = repo.QueryAbstracts(ctx, abstract.QueryFilter{ConferenceID: conf.ID}, []core.DBOrdering{{Field: "title", Ascending: true}})
	require.NoError(t, err)
	require.Len(t, abstracts, 2)
	assert.Equal(t, alpha.ID, abstracts[0].ID)

	err = database.NewTransactor(db).InTx(ctx, func(exec core.DBExecutor) error {
		locked, err := repo.LockAbstract(ctx, zeta.ID, exec)
		if err != nil {
			return err
		}
		locked.Status = abstract.StatusAccepted
		locked.PresentationType = abstract.PresentationOral
		locked.UpdatedAt = core.Now()
		_, err = repo.UpdateAbstractStatus(ctx, locked, exec)
		return err
	})
	require.NoError(t, err)

	abstracts, err = repo.QueryAbstracts(ctx, abstract.QueryFilter{Statuses: []abstract.Status{abstract.StatusAccepted}}, nil)
	require.NoError(t, err)
	require.Len(t, abstracts, 1)
	assert.Equal(t, abstract.PresentationOral, abstracts[0].PresentationType)

	_, err = repo.GetAbstract(ctx, "not-a-uuid")
	assert.ErrorIs(t, err, abstract.ErrNotFound)
}

func TestTransactor_rollback(t *testing.T) {
	db := prepareDB(t)
	ctx := context.Background()
	usrRepo := sqlxrepos.NewUserRepository(db)

	err := database.NewTransactor(db).InTx(ctx, func(exec core.DBExecutor) error {
		if _, err := usrRepo.CreateUser(ctx, user.User{Name: "Olga", Email: "olga@confhub.test", Role: user.RoleOrganizer, CreatedAt: core.Now(), UpdatedAt: core.Now()}, exec); err != nil {
			return err
		}
		_, err := usrRepo.CreateUser(ctx, user.User{Name: "Olga", Email: "olga@confhub.test", Role: user.RoleOrganizer, CreatedAt: core.Now(), UpdatedAt: core.Now()}, exec)
		return err
	})
	assert.ErrorIs(t, err, user.ErrEmailExists)

	_, err = usrRepo.GetUser(ctx, user.GetFilter{Email: "olga@confhub.test"})
	assert.ErrorIs(t, err, user.ErrNotFound)
}

type reviewEnv struct {
	usrRepo   user.Repository
	absRepo   abstract.Repository
	rvwRepo   reviewer.Repository
	rvRepo    review.Repository
	rvwSvc    *reviewer.Service
	reviewSvc *review.Service

	organizer user.User
	reviewers []user.User
	abs       abstract.Abstract
}

func setupReview(t *testing.T) *reviewEnv {
	db := prepareDB(t)
	conf := testutil.NewConfig()
	logger := testutil.NewLogger(conf)
	tx := database.NewTransactor(db)

	usrRepo := sqlxrepos.NewUserRepository(db)
	confRepo := sqlxrepos.NewConferenceRepository(db)
	env := &reviewEnv{
		usrRepo: usrRepo,
		absRepo: sqlxrepos.NewAbstractRepository(db),
		rvwRepo: sqlxrepos.NewReviewerRepository(db),
		rvRepo:  sqlxrepos.NewReviewRepository(db),
	}
	env.rvwSvc = reviewer.NewService(conf, logger, tx, env.rvwRepo, user.NewService(usrRepo), confRepo, env.absRepo, emailsvc.NewConsoleServiceMock(conf, logger))
	env.reviewSvc = review.NewService(logger, tx, env.rvRepo, env.absRepo, confRepo, env.rvwRepo, usrRepo, review.Options{RequireAssignment: true})

	env.organizer = testutil.CreateUser(t, usrRepo, "Olga", "olga@confhub.test", user.RoleOrganizer)
	author := testutil.CreateUser(t, usrRepo, "Aimé", "aime@confhub.test", user.RoleAuthor)
	env.reviewers = []user.User{
		testutil.CreateUser(t, usrRepo, "Rita", "rita@confhub.test", user.RoleReviewer),
		testutil.CreateUser(t, usrRepo, "Remy", "remy@confhub.test", user.RoleReviewer),
		testutil.CreateUser(t, usrRepo, "Rosa", "rosa@confhub.test", user.RoleReviewer),
	}
	cnf := testutil.CreateConference(t, confRepo, env.organizer, "GopherCon", time.Now().Add(24*time.Hour))
	env.abs = testutil.CreateAbstract(t, env.absRepo, cnf, author, "Generics in practice")
	return env
}

func TestReviewerService_concurrentAssignments(t *testing.T) {
	env := setupReview(t)
	ctx := context.Background()

	var wg sync.WaitGroup
	errs := make([]error, len(env.reviewers))
	for i, rvw := range env.reviewers {
		wg.Add(1)
		go func(i int, rvw user.User) {
			defer wg.Done()
			_, errs[i] = env.rvwSvc.AssignReviewer(ctx, env.organizer, env.abs.ID, rvw.ID)
		}(i, rvw)
	}
	wg.Wait()

	var assigned, rejected int
	for _, err := range errs {
		switch err {
		case nil:
			assigned++
		case reviewer.ErrCapacityExceeded:
			rejected++
		default:
			t.Fatalf("AssignReviewer() unexpected error = %v", err)
		}
	}
	assert.Equal(t, reviewer.MaxReviewers, assigned)
	assert.Equal(t, 1, rejected)

	n, err := env.rvwRepo.CountAssignments(ctx, env.abs.ID)
	require.NoError(t, err)
	assert.Equal(t, reviewer.MaxReviewers, n)
}

func TestReviewService_concurrentSubmissions(t *testing.T) {
	env := setupReview(t)
	ctx := context.Background()

	rvws := env.reviewers[:2]
	for _, rvw := range rvws {
		_, err := env.rvwSvc.AssignReviewer(ctx, env.organizer, env.abs.ID, rvw.ID)
		require.NoError(t, err)
	}

	var wg sync.WaitGroup
	errs := make([]error, len(rvws))
	for i, rvw := range rvws {
		wg.Add(1)
		go func(i int, rvw user.User) {
			defer wg.Done()
			_, errs[i] = env.reviewSvc.Submit(ctx, rvw, review.NewReview{AbstractID: env.abs.ID, Decision: review.DecisionAccepted})
		}(i, rvw)
	}
	wg.Wait()
	for _, err := range errs {
		require.NoError(t, err)
	}

	abs, err := env.absRepo.GetAbstract(ctx, env.abs.ID)
	require.NoError(t, err)
	assert.Equal(t, abstract.StatusAccepted, abs.Status)
	assert.Equal(t, abstract.PresentationOral, abs.PresentationType)

	// the unique index backs the duplicate check
	_, err = env.rvRepo.CreateReview(ctx, review.Review{
		ReviewerID: rvws[0].ID,
		AbstractID: env.abs.ID,
		Decision:   review.DecisionRejected,
		CreatedAt:  core.Now(),
		UpdatedAt:  core.Now(),
	})
	assert.ErrorIs(t, err, review.ErrDuplicateReview)
}

func TestAbstractRepository_deleteCascades(t *testing.T) {
	env := setupReview(t)
	ctx := context.Background()

	busy, err := env.absRepo.IsUnderReview(ctx, env.abs.ID)
	require.NoError(t, err)
	assert.False(t, busy)

	testutil.Assign(t, env.rvwRepo, env.abs, env.reviewers[0])
	testutil.CreateReview(t, env.rvRepo, env.abs, env.reviewers[0], review.DecisionAccepted)
	busy, err = env.absRepo.IsUnderReview(ctx, env.abs.ID)
	require.NoError(t, err)
	assert.True(t, busy)

	edited := env.abs
	edited.Title = "Generics, revisited"
	edited.UpdatedAt = core.Now()
	got, err := env.absRepo.UpdateAbstractContent(ctx, edited)
	require.NoError(t, err)
	assert.Equal(t, "Generics, revisited", got.Title)

	require.NoError(t, env.absRepo.DeleteAbstract(ctx, env.abs.ID))
	assert.ErrorIs(t, env.absRepo.DeleteAbstract(ctx, env.abs.ID), abstract.ErrNotFound)

	reviews, err := env.rvRepo.QueryReviews(ctx, env.abs.ID)
	require.NoError(t, err)
	assert.Empty(t, reviews)
	n, err := env.rvwRepo.CountAssignments(ctx, env.abs.ID)
	require.NoError(t, err)
	assert.Zero(t, n)
}
