package reviewer

import (
	"context"
	"errors"
	"fmt"
	"net/mail"

	"github.com/volatiletech/null/v8"

	"github.com/confhub/backend/core"
	"github.com/confhub/backend/core/abstract"
	"github.com/confhub/backend/core/conference"
	"github.com/confhub/backend/core/user"
)

var (
	// errors
	ErrInvalidRole         = errors.New("the user is not a reviewer")
	ErrAlreadyAssigned     = errors.New("the reviewer is already assigned to this abstract")
	ErrCapacityExceeded    = fmt.Errorf("an abstract cannot have more than %d reviewers", MaxReviewers)
	ErrAlreadyMember       = errors.New("the user is already a reviewer of this conference")
	ErrAlreadyInvited      = errors.New("the user already has a pending invitation to this conference")
	ErrInvitationNotFound  = errors.New("invitation not found")
	ErrInvitationClosed    = errors.New("the invitation was already answered")
	ErrInvalidToken        = errors.New("invalid token")
	ErrTokenExpired        = errors.New("token expired")
	errNoInvitationMessage = errors.New("no invitation message to send")
)

type (
	Repository interface {
		// AddMember fails with ErrAlreadyMember if the pair exists.
		AddMember(ctx context.Context, m Membership, exec ...core.DBExecutor) error
		MemberExists(ctx context.Context, conferenceID, userID string, exec ...core.DBExecutor) (bool, error)
		// QueryMembers returns the reviewers of a conference in membership order.
		QueryMembers(ctx context.Context, conferenceID string, exec ...core.DBExecutor) ([]user.User, error)

		// CreateAssignment fails with ErrAlreadyAssigned if the pair exists.
		CreateAssignment(ctx context.Context, asg Assignment, exec ...core.DBExecutor) error
		AssignmentExists(ctx context.Context, abstractID, reviewerID string, exec ...core.DBExecutor) (bool, error)
		CountAssignments(ctx context.Context, abstractID string, exec ...core.DBExecutor) (int, error)
		QueryAssignedReviewers(ctx context.Context, abstractID string, exec ...core.DBExecutor) ([]user.User, error)
		QueryAssignedAbstracts(ctx context.Context, reviewerID, conferenceID string, exec ...core.DBExecutor) ([]abstract.Abstract, error)

		// CreateInvitation fails with ErrAlreadyInvited if a pending invitation exists for the pair.
		CreateInvitation(ctx context.Context, inv Invitation, exec ...core.DBExecutor) (Invitation, error)
		LockInvitation(ctx context.Context, id string, exec core.DBExecutor) (Invitation, error)
		UpdateInvitation(ctx context.Context, inv Invitation, exec ...core.DBExecutor) (Invitation, error)
		QueryInvitations(ctx context.Context, filter InvitationFilter, exec ...core.DBExecutor) ([]Invitation, error)
	}

	Service struct {
		conf     *core.Config
		logger   core.Logger
		tx       core.Transactor
		repo     Repository
		usrSvc   *user.Service
		confRepo conference.Repository
		absRepo  abstract.Repository
		mailSvc  core.EmailService
		tokens   tokenGenerator
	}
)

var _ abstract.AssignmentChecker = (Repository)(nil)

func NewService(
	conf *core.Config,
	logger core.Logger,
	tx core.Transactor,
	repo Repository,
	usrSvc *user.Service,
	confRepo conference.Repository,
	absRepo abstract.Repository,
	mailSvc core.EmailService,
) *Service {
	return &Service{
		conf:     conf,
		logger:   logger,
		tx:       tx,
		repo:     repo,
		usrSvc:   usrSvc,
		confRepo: confRepo,
		absRepo:  absRepo,
		mailSvc:  mailSvc,
		tokens: tokenGenerator{
			secretKey: conf.SecretKey,
			timeout:   conf.Review.InvitationTimeout,
		},
	}
}

// organizerConference returns the conference if actor organizes it.
func (svc *Service) organizerConference(ctx context.Context, actor user.User, id string, exec ...core.DBExecutor) (conference.Conference, error) {
	conf, err := svc.confRepo.GetConference(ctx, id, exec...)
	if err != nil {
		return conference.Conference{}, err
	}
	if !conf.IsOrganizer(actor) {
		return conference.Conference{}, core.ErrPermissionDenied
	}
	return conf, nil
}

// getReviewer loads a user that must hold the REVIEWER role.
func (svc *Service) getReviewer(ctx context.Context, id string, exec ...core.DBExecutor) (user.User, error) {
	rvw, err := svc.usrSvc.GetByID(ctx, id, exec...)
	if err != nil {
		return user.User{}, err
	}
	if !rvw.IsReviewer() {
		return user.User{}, ErrInvalidRole
	}
	return rvw, nil
}

func (svc *Service) ensureMember(ctx context.Context, conferenceID, userID string, exec core.DBExecutor) error {
	ok, err := svc.repo.MemberExists(ctx, conferenceID, userID, exec)
	if err != nil || ok {
		return err
	}
	return svc.repo.AddMember(ctx, Membership{ConferenceID: conferenceID, UserID: userID, CreatedAt: core.Now()}, exec)
}

// AssignReviewer links a reviewer to an abstract. Only the conference organizer may assign,
// the target must be a reviewer, and an abstract holds at most MaxReviewers assignments.
// The reviewer also becomes a member of the conference. The abstract status is left unchanged.
func (svc *Service) AssignReviewer(ctx context.Context, actor user.User, abstractID, reviewerID string) (Assignment, error) {
	var asg Assignment
	err := svc.tx.InTx(ctx, func(exec core.DBExecutor) error {
		abs, err := svc.absRepo.LockAbstract(ctx, abstractID, exec)
		if err != nil {
			return err
		}
		if _, err = svc.organizerConference(ctx, actor, abs.ConferenceID, exec); err != nil {
			return err
		}

		rvw, err := svc.getReviewer(ctx, reviewerID, exec)
		if err != nil {
			return err
		}

		exists, err := svc.repo.AssignmentExists(ctx, abs.ID, rvw.ID, exec)
		if err != nil {
			return err
		}
		if exists {
			return ErrAlreadyAssigned
		}

		count, err := svc.repo.CountAssignments(ctx, abs.ID, exec)
		if err != nil {
			return err
		}
		if count >= MaxReviewers {
			return ErrCapacityExceeded
		}

		asg = Assignment{AbstractID: abs.ID, ReviewerID: rvw.ID, CreatedAt: core.Now()}
		if err = svc.repo.CreateAssignment(ctx, asg, exec); err != nil {
			return err
		}
		return svc.ensureMember(ctx, abs.ConferenceID, rvw.ID, exec)
	})
	if err != nil {
		return Assignment{}, err
	}
	return asg, nil
}

// AddReviewer registers a reviewer for the whole conference without assigning abstracts.
func (svc *Service) AddReviewer(ctx context.Context, actor user.User, conferenceID, reviewerID string) (Membership, error) {
	var m Membership
	err := svc.tx.InTx(ctx, func(exec core.DBExecutor) error {
		conf, err := svc.organizerConference(ctx, actor, conferenceID, exec)
		if err != nil {
			return err
		}
		rvw, err := svc.getReviewer(ctx, reviewerID, exec)
		if err != nil {
			return err
		}

		m = Membership{ConferenceID: conf.ID, UserID: rvw.ID, CreatedAt: core.Now()}
		return svc.repo.AddMember(ctx, m, exec)
	})
	if err != nil {
		return Membership{}, err
	}
	return m, nil
}

// ListReviewers returns the reviewers of a conference, however they joined it, in the order they joined.
func (svc *Service) ListReviewers(ctx context.Context, actor user.User, conferenceID string) ([]user.User, error) {
	conf, err := svc.organizerConference(ctx, actor, conferenceID)
	if err != nil {
		return nil, err
	}
	return svc.repo.QueryMembers(ctx, conf.ID)
}

// ListAssignedAbstracts returns the abstracts of a conference assigned to a reviewer.
// Only that reviewer and the conference organizer may list them.
func (svc *Service) ListAssignedAbstracts(ctx context.Context, actor user.User, reviewerID, conferenceID string) ([]abstract.Abstract, error) {
	conf, err := svc.confRepo.GetConference(ctx, conferenceID)
	if err != nil {
		return nil, err
	}
	if actor.ID != reviewerID && !conf.IsOrganizer(actor) {
		return nil, core.ErrPermissionDenied
	}
	return svc.repo.QueryAssignedAbstracts(ctx, reviewerID, conf.ID)
}

// QueryAssignedReviewers returns the reviewers assigned to an abstract; organizer only.
func (svc *Service) QueryAssignedReviewers(ctx context.Context, actor user.User, abstractID string) ([]user.User, error) {
	abs, err := svc.absRepo.GetAbstract(ctx, abstractID)
	if err != nil {
		return nil, err
	}
	if _, err = svc.organizerConference(ctx, actor, abs.ConferenceID); err != nil {
		return nil, err
	}
	return svc.repo.QueryAssignedReviewers(ctx, abs.ID)
}

// Invite asks the user registered with email to review for a conference, registering a new
// reviewer account when the email is unknown. The invitee is emailed accept and reject links.
func (svc *Service) Invite(ctx context.Context, actor user.User, conferenceID string, ni NewInvitation) (Invitation, error) {
	var (
		inv     Invitation
		conf    conference.Conference
		invitee user.User
	)
	err := svc.tx.InTx(ctx, func(exec core.DBExecutor) error {
		var err error
		if conf, err = svc.organizerConference(ctx, actor, conferenceID, exec); err != nil {
			return err
		}

		if invitee, _, err = svc.usrSvc.GetOrCreate(ctx, ni.Email, user.RoleReviewer, exec); err != nil {
			return err
		}
		if !invitee.IsReviewer() {
			return ErrInvalidRole
		}

		isMember, err := svc.repo.MemberExists(ctx, conf.ID, invitee.ID, exec)
		if err != nil {
			return err
		}
		if isMember {
			return ErrAlreadyMember
		}

		pending, err := svc.repo.QueryInvitations(ctx, InvitationFilter{
			ConferenceID: conf.ID,
			InviteeID:    invitee.ID,
			Statuses:     []InvitationStatus{InvitationPending},
		}, exec)
		if err != nil {
			return err
		}
		if len(pending) > 0 {
			return ErrAlreadyInvited
		}

		inv, err = svc.repo.CreateInvitation(ctx, Invitation{
			ConferenceID: conf.ID,
			InvitedByID:  actor.ID,
			InviteeID:    invitee.ID,
			InviteeEmail: invitee.Email,
			Status:       InvitationPending,
			CreatedAt:    core.Now(),
		}, exec)
		return err
	})
	if err != nil {
		return Invitation{}, err
	}

	// the invitation stands even if the email cannot be sent
	msg, err := svc.invitationMessage(inv, actor, invitee, conf)
	if err != nil {
		svc.logger.Error(fmt.Sprintf("preparing invitation email for %s: %v", inv.ID, err), err, actor)
		return inv, nil
	}
	svc.mailSvc.SendMessages(msg)
	return inv, nil
}

// InvitationToken returns the signed token allowing action on the invitation.
func (svc *Service) InvitationToken(inv Invitation, action Action) (string, error) {
	return svc.tokens.makeToken(inv.ID, action)
}

func (svc *Service) invitationMessage(inv Invitation, inviter, invitee user.User, conf conference.Conference) (*core.EmailMessage, error) {
	if invitee.Email == "" {
		return nil, errNoInvitationMessage
	}
	acceptToken, err := svc.InvitationToken(inv, ActionAccept)
	if err != nil {
		return nil, err
	}
	rejectToken, err := svc.InvitationToken(inv, ActionReject)
	if err != nil {
		return nil, err
	}

	return &core.EmailMessage{
		To:           []mail.Address{{Name: invitee.Name, Address: invitee.Email}},
		Subject:      "Invitation to review for " + conf.Title,
		TemplateName: "reviewer_invitation",
		TemplateData: invitationEmailData{
			InviteeName:     invitee.Name,
			InviterName:     inviter.Name,
			ConferenceTitle: conf.Title,
			AcceptToken:     acceptToken,
			RejectToken:     rejectToken,
		},
	}, nil
}

// AcceptInvitation makes actor, the invitee, a reviewer of the conference.
func (svc *Service) AcceptInvitation(ctx context.Context, actor user.User, token string) (Invitation, error) {
	return svc.respond(ctx, token, ActionAccept, func(inv *Invitation, exec core.DBExecutor) error {
		if inv.InviteeID != actor.ID {
			return ErrInvitationNotFound
		}
		inv.Status = InvitationAccepted
		return svc.ensureMember(ctx, inv.ConferenceID, inv.InviteeID, exec)
	})
}

// RejectInvitation declines an invitation. The signed token is the only credential required.
func (svc *Service) RejectInvitation(ctx context.Context, token string) (Invitation, error) {
	return svc.respond(ctx, token, ActionReject, func(inv *Invitation, _ core.DBExecutor) error {
		inv.Status = InvitationRejected
		return nil
	})
}

func (svc *Service) respond(ctx context.Context, token string, action Action, apply func(inv *Invitation, exec core.DBExecutor) error) (Invitation, error) {
	id, err := svc.tokens.verifyToken(token, action)
	if err != nil {
		return Invitation{}, err
	}

	var inv Invitation
	err = svc.tx.InTx(ctx, func(exec core.DBExecutor) error {
		if inv, err = svc.repo.LockInvitation(ctx, id, exec); err != nil {
			return err
		}
		if !inv.IsPending() {
			return ErrInvitationClosed
		}
		if err = apply(&inv, exec); err != nil {
			return err
		}
		inv.RespondedAt = null.TimeFrom(core.Now())
		inv, err = svc.repo.UpdateInvitation(ctx, inv, exec)
		return err
	})
	if err != nil {
		return Invitation{}, err
	}
	return inv, nil
}

// QuerySentInvitations returns the invitations of a conference; organizer only.
func (svc *Service) QuerySentInvitations(ctx context.Context, actor user.User, conferenceID string) ([]Invitation, error) {
	conf, err := svc.organizerConference(ctx, actor, conferenceID)
	if err != nil {
		return nil, err
	}
	return svc.repo.QueryInvitations(ctx, InvitationFilter{ConferenceID: conf.ID})
}

// QueryReceivedInvitations returns the invitations addressed to actor.
func (svc *Service) QueryReceivedInvitations(ctx context.Context, actor user.User) ([]Invitation, error) {
	return svc.repo.QueryInvitations(ctx, InvitationFilter{InviteeID: actor.ID})
}
