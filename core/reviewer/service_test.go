package reviewer_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/confhub/backend/core"
	"github.com/confhub/backend/core/abstract"
	"github.com/confhub/backend/core/conference"
	"github.com/confhub/backend/core/reviewer"
	"github.com/confhub/backend/core/user"
	"github.com/confhub/backend/services/email"
	"github.com/confhub/backend/storage/database/dummy"
	"github.com/confhub/backend/testutil"
)

type fixture struct {
	ctx      context.Context
	usrRepo  user.Repository
	confRepo conference.Repository
	absRepo  abstract.Repository
	rvwRepo  reviewer.Repository
	mailSvc  *emailsvc.ConsoleServiceMock
	svc      *reviewer.Service

	organizer user.User
	stranger  user.User
	author    user.User
	rvw1      user.User
	rvw2      user.User
	rvw3      user.User
	conf      conference.Conference
	abs       abstract.Abstract
}

func setup(t *testing.T) *fixture {
	db, err := dummydb.Open()
	require.NoError(t, err)

	conf := testutil.NewConfig()
	logger := testutil.NewLogger(conf)
	f := &fixture{
		ctx:      context.Background(),
		usrRepo:  dummydb.NewUserRepository(db),
		confRepo: dummydb.NewConferenceRepository(db),
		absRepo:  dummydb.NewAbstractRepository(db),
		rvwRepo:  dummydb.NewReviewerRepository(db),
		mailSvc:  emailsvc.NewConsoleServiceMock(conf, logger),
	}
	f.svc = reviewer.NewService(conf, logger, db, f.rvwRepo, user.NewService(f.usrRepo), f.confRepo, f.absRepo, f.mailSvc)

	f.organizer = testutil.CreateUser(t, f.usrRepo, "Olga", "olga@confhub.test", user.RoleOrganizer)
	f.stranger = testutil.CreateUser(t, f.usrRepo, "Otto", "otto@confhub.test", user.RoleOrganizer)
	f.author = testutil.CreateUser(t, f.usrRepo, "Aimé", "aime@confhub.test", user.RoleAuthor)
	f.rvw1 = testutil.CreateUser(t, f.usrRepo, "Rita", "rita@confhub.test", user.RoleReviewer)
	f.rvw2 = testutil.CreateUser(t, f.usrRepo, "Remy", "remy@confhub.test", user.RoleReviewer)
	f.rvw3 = testutil.CreateUser(t, f.usrRepo, "Rosa", "rosa@confhub.test", user.RoleReviewer)
	f.conf = testutil.CreateConference(t, f.confRepo, f.organizer, "GopherCon", time.Now().Add(24*time.Hour))
	f.abs = testutil.CreateAbstract(t, f.absRepo, f.conf, f.author, "Generics in practice")
	return f
}

func (f *fixture) assignedIDs(t *testing.T) []string {
	users, err := f.rvwRepo.QueryAssignedReviewers(f.ctx, f.abs.ID)
	require.NoError(t, err)
	ids := make([]string, 0, len(users))
	for _, usr := range users {
		ids = append(ids, usr.ID)
	}
	return ids
}

func TestService_AssignReviewer(t *testing.T) {
	f := setup(t)

	tests := []struct {
		name       string
		actor      user.User
		abstractID string
		reviewerID string
		wantErr    error
	}{
		{name: "unknown abstract", actor: f.organizer, abstractID: "nope", reviewerID: f.rvw1.ID, wantErr: abstract.ErrNotFound},
		{name: "not the organizer", actor: f.stranger, abstractID: f.abs.ID, reviewerID: f.rvw1.ID, wantErr: core.ErrPermissionDenied},
		{name: "reviewer assigning themself", actor: f.rvw1, abstractID: f.abs.ID, reviewerID: f.rvw1.ID, wantErr: core.ErrPermissionDenied},
		{name: "permission checked before role", actor: f.stranger, abstractID: f.abs.ID, reviewerID: f.author.ID, wantErr: core.ErrPermissionDenied},
		{name: "unknown reviewer", actor: f.organizer, abstractID: f.abs.ID, reviewerID: "nope", wantErr: user.ErrNotFound},
		{name: "author is not a reviewer", actor: f.organizer, abstractID: f.abs.ID, reviewerID: f.author.ID, wantErr: reviewer.ErrInvalidRole},
		{name: "organizer is not a reviewer", actor: f.organizer, abstractID: f.abs.ID, reviewerID: f.organizer.ID, wantErr: reviewer.ErrInvalidRole},
		{name: "first reviewer", actor: f.organizer, abstractID: f.abs.ID, reviewerID: f.rvw1.ID},
		{name: "same reviewer again", actor: f.organizer, abstractID: f.abs.ID, reviewerID: f.rvw1.ID, wantErr: reviewer.ErrAlreadyAssigned},
		{name: "second reviewer", actor: f.organizer, abstractID: f.abs.ID, reviewerID: f.rvw2.ID},
		{name: "already assigned checked before capacity", actor: f.organizer, abstractID: f.abs.ID, reviewerID: f.rvw2.ID, wantErr: reviewer.ErrAlreadyAssigned},
		{name: "third reviewer", actor: f.organizer, abstractID: f.abs.ID, reviewerID: f.rvw3.ID, wantErr: reviewer.ErrCapacityExceeded},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			asg, err := f.svc.AssignReviewer(f.ctx, tt.actor, tt.abstractID, tt.reviewerID)
			if tt.wantErr != nil {
				assert.Equal(t, tt.wantErr, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.abstractID, asg.AbstractID)
			assert.Equal(t, tt.reviewerID, asg.ReviewerID)
		})
	}

	assert.Equal(t, []string{f.rvw1.ID, f.rvw2.ID}, f.assignedIDs(t))

	// assignment does not move the abstract status
	abs, err := f.absRepo.GetAbstract(f.ctx, f.abs.ID)
	require.NoError(t, err)
	assert.Equal(t, abstract.StatusPending, abs.Status)

	// assigned reviewers joined the conference
	members, err := f.svc.ListReviewers(f.ctx, f.organizer, f.conf.ID)
	require.NoError(t, err)
	assert.Equal(t, []user.User{f.rvw1, f.rvw2}, members)
}

func TestService_AssignReviewerConcurrently(t *testing.T) {
	f := setup(t)
	reviewers := []user.User{f.rvw1, f.rvw2, f.rvw3}
	for i := 0; i < 3; i++ {
		reviewers = append(reviewers, testutil.CreateUser(t, f.usrRepo, "Extra", "extra"+string(rune('a'+i))+"@confhub.test", user.RoleReviewer))
	}

	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		errs []error
	)
	for _, rvw := range reviewers {
		wg.Add(1)
		go func(rvw user.User) {
			defer wg.Done()
			_, err := f.svc.AssignReviewer(f.ctx, f.organizer, f.abs.ID, rvw.ID)
			mu.Lock()
			errs = append(errs, err)
			mu.Unlock()
		}(rvw)
	}
	wg.Wait()

	var succeeded int
	for _, err := range errs {
		if err == nil {
			succeeded++
			continue
		}
		assert.Equal(t, reviewer.ErrCapacityExceeded, err)
	}
	assert.Equal(t, reviewer.MaxReviewers, succeeded)
	assert.Len(t, f.assignedIDs(t), reviewer.MaxReviewers)
}

func TestService_AddReviewer(t *testing.T) {
	f := setup(t)

	_, err := f.svc.AddReviewer(f.ctx, f.stranger, f.conf.ID, f.rvw1.ID)
	assert.Equal(t, core.ErrPermissionDenied, err)

	_, err = f.svc.AddReviewer(f.ctx, f.organizer, f.conf.ID, f.author.ID)
	assert.Equal(t, reviewer.ErrInvalidRole, err)

	m, err := f.svc.AddReviewer(f.ctx, f.organizer, f.conf.ID, f.rvw2.ID)
	require.NoError(t, err)
	assert.Equal(t, f.rvw2.ID, m.UserID)

	_, err = f.svc.AddReviewer(f.ctx, f.organizer, f.conf.ID, f.rvw2.ID)
	assert.Equal(t, reviewer.ErrAlreadyMember, err)
}

func TestService_ListReviewers(t *testing.T) {
	f := setup(t)
	_, err := f.svc.AddReviewer(f.ctx, f.organizer, f.conf.ID, f.rvw3.ID)
	require.NoError(t, err)
	_, err = f.svc.AssignReviewer(f.ctx, f.organizer, f.abs.ID, f.rvw1.ID)
	require.NoError(t, err)

	tests := []struct {
		name         string
		actor        user.User
		conferenceID string
		want         []user.User
		wantErr      error
	}{
		{name: "organizer", actor: f.organizer, conferenceID: f.conf.ID, want: []user.User{f.rvw3, f.rvw1}},
		{name: "other organizer", actor: f.stranger, conferenceID: f.conf.ID, wantErr: core.ErrPermissionDenied},
		{name: "reviewer", actor: f.rvw1, conferenceID: f.conf.ID, wantErr: core.ErrPermissionDenied},
		{name: "unknown conference", actor: f.organizer, conferenceID: "nope", wantErr: conference.ErrNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := f.svc.ListReviewers(f.ctx, tt.actor, tt.conferenceID)
			assert.Equal(t, tt.wantErr, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestService_ListAssignedAbstracts(t *testing.T) {
	f := setup(t)
	abs2 := testutil.CreateAbstract(t, f.absRepo, f.conf, f.author, "Fuzzing", time.Now().Add(time.Minute))
	otherConf := testutil.CreateConference(t, f.confRepo, f.stranger, "RustConf", time.Now().Add(time.Hour))
	otherAbs := testutil.CreateAbstract(t, f.absRepo, otherConf, f.author, "Borrowing")

	testutil.Assign(t, f.rvwRepo, f.abs, f.rvw1)
	testutil.Assign(t, f.rvwRepo, abs2, f.rvw1)
	testutil.Assign(t, f.rvwRepo, otherAbs, f.rvw1)
	testutil.Assign(t, f.rvwRepo, abs2, f.rvw2)

	abs2, _ = f.absRepo.GetAbstract(f.ctx, abs2.ID)

	tests := []struct {
		name       string
		actor      user.User
		reviewerID string
		want       []abstract.Abstract
		wantErr    error
	}{
		{name: "reviewer themself", actor: f.rvw1, reviewerID: f.rvw1.ID, want: []abstract.Abstract{f.abs, abs2}},
		{name: "organizer", actor: f.organizer, reviewerID: f.rvw2.ID, want: []abstract.Abstract{abs2}},
		{name: "nothing assigned", actor: f.rvw3, reviewerID: f.rvw3.ID, want: []abstract.Abstract{}},
		{name: "another reviewer", actor: f.rvw2, reviewerID: f.rvw1.ID, wantErr: core.ErrPermissionDenied},
		{name: "other organizer", actor: f.stranger, reviewerID: f.rvw1.ID, wantErr: core.ErrPermissionDenied},
		{name: "author", actor: f.author, reviewerID: f.rvw1.ID, wantErr: core.ErrPermissionDenied},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := f.svc.ListAssignedAbstracts(f.ctx, tt.actor, tt.reviewerID, f.conf.ID)
			if tt.wantErr != nil {
				assert.Equal(t, tt.wantErr, err)
				assert.Nil(t, got)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestService_QueryAssignedReviewers(t *testing.T) {
	f := setup(t)
	testutil.Assign(t, f.rvwRepo, f.abs, f.rvw2)

	got, err := f.svc.QueryAssignedReviewers(f.ctx, f.organizer, f.abs.ID)
	require.NoError(t, err)
	assert.Equal(t, []user.User{f.rvw2}, got)

	_, err = f.svc.QueryAssignedReviewers(f.ctx, f.rvw2, f.abs.ID)
	assert.Equal(t, core.ErrPermissionDenied, err)
}

func TestService_Invitations(t *testing.T) {
	f := setup(t)

	t.Run("invite errors", func(t *testing.T) {
		testutil.AddMember(t, f.rvwRepo, f.conf, f.rvw3)

		tests := []struct {
			name    string
			actor   user.User
			email   string
			wantErr error
		}{
			{name: "not the organizer", actor: f.stranger, email: f.rvw1.Email, wantErr: core.ErrPermissionDenied},
			{name: "author email", actor: f.organizer, email: f.author.Email, wantErr: reviewer.ErrInvalidRole},
			{name: "already a member", actor: f.organizer, email: f.rvw3.Email, wantErr: reviewer.ErrAlreadyMember},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				_, err := f.svc.Invite(f.ctx, tt.actor, f.conf.ID, reviewer.NewInvitation{Email: tt.email})
				assert.Equal(t, tt.wantErr, err)
			})
		}
		assert.Empty(t, f.mailSvc.SentMessages())
	})

	t.Run("accept", func(t *testing.T) {
		f.mailSvc.Reset()
		inv, err := f.svc.Invite(f.ctx, f.organizer, f.conf.ID, reviewer.NewInvitation{Email: f.rvw1.Email})
		require.NoError(t, err)
		assert.Equal(t, reviewer.InvitationPending, inv.Status)
		assert.Equal(t, f.rvw1.ID, inv.InviteeID)

		_, err = f.svc.Invite(f.ctx, f.organizer, f.conf.ID, reviewer.NewInvitation{Email: f.rvw1.Email})
		assert.Equal(t, reviewer.ErrAlreadyInvited, err)

		sent := f.mailSvc.SentMessages()
		require.Len(t, sent, 1)
		assert.Equal(t, f.rvw1.Email, sent[0].To[0].Address)
		acceptToken, err := f.svc.InvitationToken(inv, reviewer.ActionAccept)
		require.NoError(t, err)
		assert.Contains(t, sent[0].TextContent, "/invitations/"+acceptToken+"/accept")
		assert.Contains(t, sent[0].HTMLContent, "GopherCon")

		// reject tokens cannot accept
		rejectToken, err := f.svc.InvitationToken(inv, reviewer.ActionReject)
		require.NoError(t, err)
		_, err = f.svc.AcceptInvitation(f.ctx, f.rvw1, rejectToken)
		assert.Equal(t, reviewer.ErrInvalidToken, err)

		// only the invitee may accept
		_, err = f.svc.AcceptInvitation(f.ctx, f.rvw2, acceptToken)
		assert.Equal(t, reviewer.ErrInvitationNotFound, err)

		got, err := f.svc.AcceptInvitation(f.ctx, f.rvw1, acceptToken)
		require.NoError(t, err)
		assert.Equal(t, reviewer.InvitationAccepted, got.Status)
		assert.True(t, got.RespondedAt.Valid)

		_, err = f.svc.AcceptInvitation(f.ctx, f.rvw1, acceptToken)
		assert.Equal(t, reviewer.ErrInvitationClosed, err)

		members, err := f.svc.ListReviewers(f.ctx, f.organizer, f.conf.ID)
		require.NoError(t, err)
		assert.Contains(t, members, f.rvw1)
	})

	t.Run("reject", func(t *testing.T) {
		inv, err := f.svc.Invite(f.ctx, f.organizer, f.conf.ID, reviewer.NewInvitation{Email: f.rvw2.Email})
		require.NoError(t, err)
		rejectToken, err := f.svc.InvitationToken(inv, reviewer.ActionReject)
		require.NoError(t, err)

		got, err := f.svc.RejectInvitation(f.ctx, rejectToken)
		require.NoError(t, err)
		assert.Equal(t, reviewer.InvitationRejected, got.Status)

		acceptToken, err := f.svc.InvitationToken(inv, reviewer.ActionAccept)
		require.NoError(t, err)
		_, err = f.svc.AcceptInvitation(f.ctx, f.rvw2, acceptToken)
		assert.Equal(t, reviewer.ErrInvitationClosed, err)

		isMember, err := f.rvwRepo.MemberExists(f.ctx, f.conf.ID, f.rvw2.ID)
		require.NoError(t, err)
		assert.False(t, isMember)

		// a new invitation can follow a rejected one
		_, err = f.svc.Invite(f.ctx, f.organizer, f.conf.ID, reviewer.NewInvitation{Email: f.rvw2.Email})
		assert.NoError(t, err)
	})

	t.Run("unknown email creates a reviewer", func(t *testing.T) {
		inv, err := f.svc.Invite(f.ctx, f.organizer, f.conf.ID, reviewer.NewInvitation{Email: "newcomer@confhub.test"})
		require.NoError(t, err)

		usr, err := f.usrRepo.GetUser(f.ctx, user.GetFilter{Email: "newcomer@confhub.test"})
		require.NoError(t, err)
		assert.Equal(t, user.RoleReviewer, usr.Role)
		assert.Equal(t, usr.ID, inv.InviteeID)

		received, err := f.svc.QueryReceivedInvitations(f.ctx, usr)
		require.NoError(t, err)
		assert.Equal(t, []reviewer.Invitation{inv}, received)
	})

	t.Run("sent invitations", func(t *testing.T) {
		sent, err := f.svc.QuerySentInvitations(f.ctx, f.organizer, f.conf.ID)
		require.NoError(t, err)
		assert.Len(t, sent, 4)

		_, err = f.svc.QuerySentInvitations(f.ctx, f.stranger, f.conf.ID)
		assert.Equal(t, core.ErrPermissionDenied, err)
	})
}
