package invitation

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/piae/company-expenses/internal"
	"github.com/piae/company-expenses/internal/auth"
	"github.com/piae/company-expenses/internal/core/events"
	"github.com/piae/company-expenses/internal/workplace"
)

// Repository is the storage contract for invitations. Create enforces the
// one-pending-invitation-per-email rule inside its transaction; Accept
// applies the status flip and the optional member insert atomically.
type Repository interface {
	Create(ctx context.Context, inv *Invitation) error
	GetByID(ctx context.Context, id uuid.UUID) (*Invitation, error)
	GetByToken(ctx context.Context, token string) (*Invitation, error)
	GetAll(ctx context.Context) ([]*Invitation, error)
	Update(ctx context.Context, inv *Invitation) error
	UpdateStatus(ctx context.Context, id uuid.UUID, status string) error
	Accept(ctx context.Context, id uuid.UUID, acceptedAt time.Time, member *workplace.WorkplaceMember) error
}

// WorkplaceDirectory is the slice of the workplace repository the engine
// needs: existence checks on create and the name for the invite email.
type WorkplaceDirectory interface {
	ExistsActive(ctx context.Context, id uuid.UUID) (bool, error)
	GetByID(ctx context.Context, id uuid.UUID) (*workplace.Workplace, error)
}

type Service struct {
	repo       Repository
	workplaces WorkplaceDirectory
	bus        *events.EventBus
	ttl        time.Duration
	logger     *slog.Logger
}

func NewService(repo Repository, workplaces WorkplaceDirectory, bus *events.EventBus, logger *slog.Logger) *Service {
	return &Service{
		repo:       repo,
		workplaces: workplaces,
		bus:        bus,
		ttl:        DefaultTTL,
		logger:     logger,
	}
}

// Create issues a new invitation and publishes the email event. The email
// send is best-effort; a notifier failure never rolls the invitation back.
func (s *Service) Create(ctx context.Context, actor *auth.User, dto CreateInvitationDTO) (*Invitation, error) {
	if err := dto.Validate(); err != nil {
		return nil, err
	}

	workplaceName := ""
	if dto.WorkplaceID != nil {
		ok, err := s.workplaces.ExistsActive(ctx, *dto.WorkplaceID)
		if err != nil {
			return nil, internal.NewInternalError("failed to check workplace", err)
		}
		if !ok {
			return nil, internal.NewValidationError("workplace does not exist or is inactive", internal.ErrCodeInvalidWorkplace)
		}
		wp, err := s.workplaces.GetByID(ctx, *dto.WorkplaceID)
		if err != nil {
			return nil, internal.NewInternalError("failed to load workplace", err)
		}
		workplaceName = wp.Name
	}

	token, err := GenerateToken()
	if err != nil {
		return nil, internal.NewInternalError("failed to generate invitation token", err)
	}

	now := time.Now().UTC()
	inv := &Invitation{
		ID:              uuid.New(),
		Email:           dto.Email,
		InvitedRoleID:   dto.InvitedRoleID,
		WorkplaceID:     dto.WorkplaceID,
		Token:           token,
		Status:          StatusPending,
		ExpiresAt:       now.Add(s.ttl),
		InvitedByUserID: actor.ID,
		CreatedAt:       now,
		CreatedBy:       actor.ID,
	}

	if err := s.repo.Create(ctx, inv); err != nil {
		s.logger.Warn("failed to create invitation", "error", err, "email", dto.Email)
		return nil, err
	}

	if err := s.bus.Publish(ctx, events.NewInvitationCreatedEvent(inv.ID.String(), inv.Email, inv.Token, workplaceName)); err != nil {
		s.logger.Error("failed to publish invitation event", "error", err, "invitation_id", inv.ID)
	}

	s.logger.Info("invitation created", "invitation_id", inv.ID, "email", inv.Email, "invited_by", actor.ID)
	return inv, nil
}

// Verify resolves a token to its invitation. Expiry is lazy: the first
// read past the deadline persists the expired status, and every later read
// of that row reports the same error without another write.
func (s *Service) Verify(ctx context.Context, token string) (*Invitation, error) {
	inv, err := s.repo.GetByToken(ctx, token)
	if err != nil {
		return nil, err
	}
	if err := s.guardPending(ctx, inv); err != nil {
		return nil, err
	}
	return inv, nil
}

// Accept consumes a pending invitation on behalf of the authenticated
// user. When the invitation names a workplace the membership row is
// written in the same transaction as the status flip; an existing
// membership is left untouched.
func (s *Service) Accept(ctx context.Context, invitationID uuid.UUID, userID string) (*Invitation, error) {
	inv, err := s.repo.GetByID(ctx, invitationID)
	if err != nil {
		return nil, err
	}
	if err := s.guardPending(ctx, inv); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	var member *workplace.WorkplaceMember
	if inv.WorkplaceID != nil {
		member = &workplace.WorkplaceMember{
			ID:          uuid.New(),
			WorkplaceID: *inv.WorkplaceID,
			UserID:      userID,
			IsManager:   false,
			CreatedAt:   now,
			CreatedBy:   userID,
		}
	}

	if err := s.repo.Accept(ctx, invitationID, now, member); err != nil {
		s.logger.Warn("failed to accept invitation", "error", err, "invitation_id", invitationID)
		return nil, err
	}

	inv.Status = StatusAccepted
	inv.AcceptedAt = &now

	s.logger.Info("invitation accepted", "invitation_id", invitationID, "user_id", userID)
	return inv, nil
}

// Cancel withdraws an invitation. Accepted invitations are immutable
// history and cannot be cancelled.
func (s *Service) Cancel(ctx context.Context, invitationID uuid.UUID) error {
	inv, err := s.repo.GetByID(ctx, invitationID)
	if err != nil {
		return err
	}
	if inv.Status == StatusAccepted {
		return internal.ErrInvitationUsed
	}
	if inv.Status == StatusCancelled {
		return nil
	}

	if err := s.repo.UpdateStatus(ctx, invitationID, StatusCancelled); err != nil {
		return err
	}
	s.logger.Info("invitation cancelled", "invitation_id", invitationID)
	return nil
}

// Resend rotates the token, restarts the expiry clock and re-sends the
// email. It also revives expired and cancelled invitations back to
// pending.
func (s *Service) Resend(ctx context.Context, invitationID uuid.UUID) (*Invitation, error) {
	inv, err := s.repo.GetByID(ctx, invitationID)
	if err != nil {
		return nil, err
	}
	if inv.Status == StatusAccepted {
		return nil, internal.ErrInvitationUsed
	}

	token, err := GenerateToken()
	if err != nil {
		return nil, internal.NewInternalError("failed to generate invitation token", err)
	}

	now := time.Now().UTC()
	inv.Token = token
	inv.Status = StatusPending
	inv.ExpiresAt = now.Add(s.ttl)
	inv.UpdatedAt = &now

	if err := s.repo.Update(ctx, inv); err != nil {
		s.logger.Warn("failed to resend invitation", "error", err, "invitation_id", invitationID)
		return nil, err
	}

	workplaceName := ""
	if inv.WorkplaceID != nil {
		if wp, werr := s.workplaces.GetByID(ctx, *inv.WorkplaceID); werr == nil {
			workplaceName = wp.Name
		}
	}
	if err := s.bus.Publish(ctx, events.NewInvitationResentEvent(inv.ID.String(), inv.Email, inv.Token, workplaceName)); err != nil {
		s.logger.Error("failed to publish invitation event", "error", err, "invitation_id", inv.ID)
	}

	s.logger.Info("invitation resent", "invitation_id", invitationID, "email", inv.Email)
	return inv, nil
}

func (s *Service) List(ctx context.Context) ([]*Invitation, error) {
	return s.repo.GetAll(ctx)
}

func (s *Service) GetByID(ctx context.Context, id uuid.UUID) (*Invitation, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *Service) guardPending(ctx context.Context, inv *Invitation) error {
	switch inv.Status {
	case StatusAccepted:
		return internal.ErrInvitationUsed
	case StatusCancelled:
		return internal.ErrInvitationCancelled
	case StatusExpired:
		return internal.ErrInvitationExpired
	}

	if inv.IsExpired(time.Now().UTC()) {
		if err := s.repo.UpdateStatus(ctx, inv.ID, StatusExpired); err != nil {
			s.logger.Error("failed to persist invitation expiry", "error", err, "invitation_id", inv.ID)
		}
		inv.Status = StatusExpired
		return internal.ErrInvitationExpired
	}
	return nil
}
