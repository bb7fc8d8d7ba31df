package dummydb

import (
	"context"
	"sort"

	"github.com/google/uuid"

	"github.com/confhub/backend/core"
	"github.com/confhub/backend/core/abstract"
	"github.com/confhub/backend/core/reviewer"
	"github.com/confhub/backend/core/user"
)

type reviewerRepository struct {
	db *DB
}

var _ reviewer.Repository = (*reviewerRepository)(nil) // interface compliance check

func NewReviewerRepository(db *DB) reviewer.Repository {
	return &reviewerRepository{db: db}
}

func (repo *reviewerRepository) AddMember(_ context.Context, m reviewer.Membership, _ ...core.DBExecutor) error {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	for _, existing := range repo.db.members {
		if existing.ConferenceID == m.ConferenceID && existing.UserID == m.UserID {
			return reviewer.ErrAlreadyMember
		}
	}
	repo.db.members = append(repo.db.members, m)
	return nil
}

func (repo *reviewerRepository) MemberExists(_ context.Context, conferenceID, userID string, _ ...core.DBExecutor) (bool, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	for _, m := range repo.db.members {
		if m.ConferenceID == conferenceID && m.UserID == userID {
			return true, nil
		}
	}
	return false, nil
}

func (repo *reviewerRepository) QueryMembers(_ context.Context, conferenceID string, _ ...core.DBExecutor) ([]user.User, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	users := make([]user.User, 0)
	for _, m := range repo.db.members {
		if m.ConferenceID != conferenceID {
			continue
		}
		if usr, ok := repo.db.findUser(m.UserID); ok {
			users = append(users, usr)
		}
	}
	return users, nil
}

func (repo *reviewerRepository) CreateAssignment(_ context.Context, asg reviewer.Assignment, _ ...core.DBExecutor) error {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	for _, existing := range repo.db.assignments {
		if existing.AbstractID == asg.AbstractID && existing.ReviewerID == asg.ReviewerID {
			return reviewer.ErrAlreadyAssigned
		}
	}
	repo.db.assignments = append(repo.db.assignments, asg)
	return nil
}

func (repo *reviewerRepository) AssignmentExists(_ context.Context, abstractID, reviewerID string, _ ...core.DBExecutor) (bool, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	for _, asg := range repo.db.assignments {
		if asg.AbstractID == abstractID && asg.ReviewerID == reviewerID {
			return true, nil
		}
	}
	return false, nil
}

func (repo *reviewerRepository) CountAssignments(_ context.Context, abstractID string, _ ...core.DBExecutor) (int, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	var n int
	for _, asg := range repo.db.assignments {
		if asg.AbstractID == abstractID {
			n++
		}
	}
	return n, nil
}

func (repo *reviewerRepository) QueryAssignedReviewers(_ context.Context, abstractID string, _ ...core.DBExecutor) ([]user.User, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	users := make([]user.User, 0)
	for _, asg := range repo.db.assignments {
		if asg.AbstractID != abstractID {
			continue
		}
		if usr, ok := repo.db.findUser(asg.ReviewerID); ok {
			users = append(users, usr)
		}
	}
	return users, nil
}

func (repo *reviewerRepository) QueryAssignedAbstracts(_ context.Context, reviewerID, conferenceID string, _ ...core.DBExecutor) ([]abstract.Abstract, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	abstracts := make([]abstract.Abstract, 0)
	for _, asg := range repo.db.assignments {
		if asg.ReviewerID != reviewerID {
			continue
		}
		if i, ok := repo.db.findAbstract(asg.AbstractID); ok && repo.db.abstracts[i].ConferenceID == conferenceID {
			abstracts = append(abstracts, repo.db.abstracts[i])
		}
	}
	sortAbstracts(abstracts, nil)
	return abstracts, nil
}

func (repo *reviewerRepository) CreateInvitation(_ context.Context, inv reviewer.Invitation, _ ...core.DBExecutor) (reviewer.Invitation, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	for _, existing := range repo.db.invitations {
		if existing.IsPending() && existing.ConferenceID == inv.ConferenceID && existing.InviteeID == inv.InviteeID {
			return reviewer.Invitation{}, reviewer.ErrAlreadyInvited
		}
	}
	inv.ID = uuid.New().String()
	repo.db.invitations = append(repo.db.invitations, inv)
	return inv, nil
}

func (repo *reviewerRepository) LockInvitation(_ context.Context, id string, _ core.DBExecutor) (reviewer.Invitation, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	for _, inv := range repo.db.invitations {
		if inv.ID == id {
			return inv, nil
		}
	}
	return reviewer.Invitation{}, reviewer.ErrInvitationNotFound
}

func (repo *reviewerRepository) UpdateInvitation(_ context.Context, inv reviewer.Invitation, _ ...core.DBExecutor) (reviewer.Invitation, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	for i := range repo.db.invitations {
		if repo.db.invitations[i].ID == inv.ID {
			repo.db.invitations[i].Status = inv.Status
			repo.db.invitations[i].RespondedAt = inv.RespondedAt
			return repo.db.invitations[i], nil
		}
	}
	return reviewer.Invitation{}, reviewer.ErrInvitationNotFound
}

func (repo *reviewerRepository) QueryInvitations(_ context.Context, filter reviewer.InvitationFilter, _ ...core.DBExecutor) ([]reviewer.Invitation, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	invs := make([]reviewer.Invitation, 0)
	for _, inv := range repo.db.invitations {
		if filter.ConferenceID != "" && inv.ConferenceID != filter.ConferenceID {
			continue
		}
		if filter.InviteeID != "" && inv.InviteeID != filter.InviteeID {
			continue
		}
		if len(filter.Statuses) > 0 && !hasInvitationStatus(filter.Statuses, inv.Status) {
			continue
		}
		invs = append(invs, inv)
	}
	// newest first
	sort.SliceStable(invs, func(i, j int) bool { return invs[i].CreatedAt.After(invs[j].CreatedAt) })
	return invs, nil
}

func hasInvitationStatus(statuses []reviewer.InvitationStatus, s reviewer.InvitationStatus) bool {
	for _, status := range statuses {
		if status == s {
			return true
		}
	}
	return false
}
