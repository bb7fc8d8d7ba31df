// Package testutil holds fixtures shared by the package tests.
package testutil

import (
	"context"
	"io"
	"log"
	"testing"
	"time"

	"github.com/confhub/backend/core"
	"github.com/confhub/backend/core/abstract"
	"github.com/confhub/backend/core/conference"
	"github.com/confhub/backend/core/review"
	"github.com/confhub/backend/core/reviewer"
	"github.com/confhub/backend/core/user"
	logsvc "github.com/confhub/backend/services/logger"
)

// NewConfig returns a test configuration that does not read the environment.
func NewConfig() *core.Config {
	return &core.Config{
		TestMode:        true,
		AppName:         "Confhub",
		Env:             "TEST",
		Build:           "test",
		SecretKey:       "test-secret-key",
		FrontendBaseURL: "http://localhost:3000",
		Server: core.ServerConfig{
			Host:               "localhost",
			Address:            ":0",
			ShutdownTimeout:    time.Second,
			JWTExpirationDelta: time.Hour,
		},
		Database: core.DatabaseConfig{
			Engine:     "postgres",
			Host:       "localhost",
			Port:       5432,
			Name:       "confhub_test",
			DisableTLS: true,
		},
		Email: core.EmailConfig{
			Backend:     "console",
			FromName:    "Confhub",
			FromAddress: "noreply@confhub.test",
		},
		Review: core.ReviewConfig{
			RequireAssignment: true,
			InvitationTimeout: 3 * 24 * time.Hour,
		},
	}
}

// NewLogger returns a logger that discards its output and never reports to rollbar.
func NewLogger(conf *core.Config) core.Logger {
	return logsvc.NewRollbarLogger(log.New(io.Discard, "", 0), conf)
}

func CreateUser(t *testing.T, repo user.Repository, name, email string, role user.Role, createdAt ...time.Time) user.User {
	t.Helper()

	tstamp := core.Now()
	if len(createdAt) > 0 {
		tstamp = createdAt[0].UTC()
	}
	usr, err := repo.CreateUser(context.Background(), user.User{
		Name:      name,
		Email:     email,
		Role:      role,
		IsActive:  true,
		CreatedAt: tstamp,
		UpdatedAt: tstamp,
	})
	if err != nil {
		t.Fatalf("CreateUser() failed: %v", err)
	}
	return usr
}

func CreateConference(t *testing.T, repo conference.Repository, organizer user.User, title string, deadline time.Time) conference.Conference {
	t.Helper()

	conf, err := repo.CreateConference(context.Background(), conference.Conference{
		Title:       title,
		OrganizerID: organizer.ID,
		Deadline:    deadline.UTC(),
		CreatedAt:   core.Now(),
	})
	if err != nil {
		t.Fatalf("CreateConference() failed: %v", err)
	}
	return conf
}

func CreateAbstract(t *testing.T, repo abstract.Repository, conf conference.Conference, submitter user.User, title string, submittedAt ...time.Time) abstract.Abstract {
	t.Helper()

	tstamp := core.Now()
	if len(submittedAt) > 0 {
		tstamp = submittedAt[0].UTC()
	}
	abs, err := repo.CreateAbstract(context.Background(), abstract.Abstract{
		ConferenceID: conf.ID,
		SubmitterID:  submitter.ID,
		Title:        title,
		Summary:      title + " summary",
		Status:       abstract.StatusPending,
		SubmittedAt:  tstamp,
		UpdatedAt:    tstamp,
	})
	if err != nil {
		t.Fatalf("CreateAbstract() failed: %v", err)
	}
	return abs
}

func AddMember(t *testing.T, repo reviewer.Repository, conf conference.Conference, rvw user.User) {
	t.Helper()

	err := repo.AddMember(context.Background(), reviewer.Membership{ConferenceID: conf.ID, UserID: rvw.ID, CreatedAt: core.Now()})
	if err != nil {
		t.Fatalf("AddMember() failed: %v", err)
	}
}

// Assign assigns rvw to abs and makes them a member of the conference.
func Assign(t *testing.T, repo reviewer.Repository, abs abstract.Abstract, rvw user.User) {
	t.Helper()

	ctx := context.Background()
	if err := repo.CreateAssignment(ctx, reviewer.Assignment{AbstractID: abs.ID, ReviewerID: rvw.ID, CreatedAt: core.Now()}); err != nil {
		t.Fatalf("Assign() failed: %v", err)
	}
	member, err := repo.MemberExists(ctx, abs.ConferenceID, rvw.ID)
	if err != nil {
		t.Fatalf("Assign() failed: %v", err)
	}
	if !member {
		if err = repo.AddMember(ctx, reviewer.Membership{ConferenceID: abs.ConferenceID, UserID: rvw.ID, CreatedAt: core.Now()}); err != nil {
			t.Fatalf("Assign() failed: %v", err)
		}
	}
}

func CreateReview(t *testing.T, repo review.Repository, abs abstract.Abstract, rvw user.User, decision review.Decision) review.Review {
	t.Helper()

	now := core.Now()
	rv, err := repo.CreateReview(context.Background(), review.Review{
		ReviewerID: rvw.ID,
		AbstractID: abs.ID,
		Decision:   decision,
		CreatedAt:  now,
		UpdatedAt:  now,
	})
	if err != nil {
		t.Fatalf("CreateReview() failed: %v", err)
	}
	return rv
}
