package workplace

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/piae/company-expenses/internal"
)

type RepositoryAPI interface {
	GetAll(ctx context.Context, activeOnly bool) ([]*Workplace, error)
	GetByID(ctx context.Context, id uuid.UUID) (*Workplace, error)
	Create(ctx context.Context, wp *Workplace) error
	Update(ctx context.Context, wp *Workplace) error
	Deactivate(ctx context.Context, id uuid.UUID) error
	ExistsActive(ctx context.Context, id uuid.UUID) (bool, error)

	GetMembers(ctx context.Context) ([]*WorkplaceMember, error)
	GetMembersByWorkplace(ctx context.Context, workplaceID uuid.UUID) ([]*WorkplaceMember, error)
	GetMembersByUser(ctx context.Context, userID string) ([]*WorkplaceMember, error)
	GetMemberByID(ctx context.Context, id uuid.UUID) (*WorkplaceMember, error)
	FindMember(ctx context.Context, workplaceID uuid.UUID, userID string) (*WorkplaceMember, error)
	AddMember(ctx context.Context, member *WorkplaceMember) error
	UpdateMember(ctx context.Context, member *WorkplaceMember) error
	RemoveMember(ctx context.Context, id uuid.UUID) error
}

type Service struct {
	repo   RepositoryAPI
	logger *slog.Logger
}

func NewService(repo RepositoryAPI, logger *slog.Logger) *Service {
	return &Service{repo: repo, logger: logger}
}

func (s *Service) ListWorkplaces(ctx context.Context) ([]*Workplace, error) {
	workplaces, err := s.repo.GetAll(ctx, true)
	if err != nil {
		s.logger.Error("failed to list workplaces", "error", err)
		return nil, internal.NewInternalError("failed to list workplaces", err)
	}
	return workplaces, nil
}

func (s *Service) GetWorkplace(ctx context.Context, id uuid.UUID) (*Workplace, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *Service) CreateWorkplace(ctx context.Context, actorID string, dto CreateWorkplaceDTO) (*Workplace, error) {
	if err := dto.Validate(); err != nil {
		return nil, err
	}

	wp := &Workplace{
		ID:        uuid.New(),
		Name:      dto.Name,
		Code:      dto.Code,
		IsActive:  true,
		CreatedAt: time.Now().UTC(),
		CreatedBy: actorID,
	}

	if err := s.repo.Create(ctx, wp); err != nil {
		s.logger.Error("failed to create workplace", "error", err, "name", dto.Name)
		return nil, internal.NewInternalError("failed to create workplace", err)
	}

	s.logger.Info("workplace created", "workplace_id", wp.ID, "name", wp.Name, "actor", actorID)
	return wp, nil
}

func (s *Service) UpdateWorkplace(ctx context.Context, id uuid.UUID, actorID string, dto UpdateWorkplaceDTO) (*Workplace, error) {
	if err := dto.Validate(); err != nil {
		return nil, err
	}

	wp, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	wp.Name = dto.Name
	wp.Code = dto.Code
	if dto.IsActive != nil {
		wp.IsActive = *dto.IsActive
	}

	if err := s.repo.Update(ctx, wp); err != nil {
		s.logger.Error("failed to update workplace", "error", err, "workplace_id", id)
		return nil, internal.NewInternalError("failed to update workplace", err)
	}

	s.logger.Info("workplace updated", "workplace_id", id, "actor", actorID)
	return wp, nil
}

// DeactivateWorkplace soft-deletes. Hard deletion is not modeled: expenses
// restrict-reference their workplace.
func (s *Service) DeactivateWorkplace(ctx context.Context, id uuid.UUID, actorID string) error {
	if _, err := s.repo.GetByID(ctx, id); err != nil {
		return err
	}

	if err := s.repo.Deactivate(ctx, id); err != nil {
		s.logger.Error("failed to deactivate workplace", "error", err, "workplace_id", id)
		return internal.NewInternalError("failed to deactivate workplace", err)
	}

	s.logger.Info("workplace deactivated", "workplace_id", id, "actor", actorID)
	return nil
}

func (s *Service) ListMembers(ctx context.Context) ([]*WorkplaceMember, error) {
	return s.repo.GetMembers(ctx)
}

func (s *Service) ListMembersByWorkplace(ctx context.Context, workplaceID uuid.UUID) ([]*WorkplaceMember, error) {
	return s.repo.GetMembersByWorkplace(ctx, workplaceID)
}

func (s *Service) ListMembersByUser(ctx context.Context, userID string) ([]*WorkplaceMember, error) {
	return s.repo.GetMembersByUser(ctx, userID)
}

func (s *Service) GetMember(ctx context.Context, id uuid.UUID) (*WorkplaceMember, error) {
	return s.repo.GetMemberByID(ctx, id)
}

// AddMember enforces the unique (workplace, user) membership invariant. The
// storage layer backs this with a unique index, so a racing duplicate insert
// fails there too.
func (s *Service) AddMember(ctx context.Context, actorID string, dto CreateMemberDTO) (*WorkplaceMember, error) {
	if err := dto.Validate(); err != nil {
		return nil, err
	}

	exists, err := s.repo.ExistsActive(ctx, dto.WorkplaceID)
	if err != nil {
		return nil, internal.NewInternalError("failed to check workplace", err)
	}
	if !exists {
		return nil, internal.ErrWorkplaceNotFound
	}

	existing, err := s.repo.FindMember(ctx, dto.WorkplaceID, dto.UserID)
	if err != nil {
		return nil, internal.NewInternalError("failed to check membership", err)
	}
	if existing != nil {
		s.logger.Warn("duplicate membership rejected",
			"workplace_id", dto.WorkplaceID, "user_id", dto.UserID)
		return nil, internal.ErrDuplicateMember
	}

	member := &WorkplaceMember{
		ID:           uuid.New(),
		WorkplaceID:  dto.WorkplaceID,
		UserID:       dto.UserID,
		PositionName: dto.PositionName,
		IsManager:    dto.IsManager,
		CreatedAt:    time.Now().UTC(),
		CreatedBy:    actorID,
	}

	if err := s.repo.AddMember(ctx, member); err != nil {
		s.logger.Error("failed to add member", "error", err,
			"workplace_id", dto.WorkplaceID, "user_id", dto.UserID)
		return nil, internal.NewInternalError("failed to add member", err)
	}

	s.logger.Info("member added",
		"member_id", member.ID,
		"workplace_id", dto.WorkplaceID,
		"user_id", dto.UserID,
		"is_manager", dto.IsManager,
		"actor", actorID)
	return member, nil
}

func (s *Service) UpdateMember(ctx context.Context, id uuid.UUID, actorID string, dto UpdateMemberDTO) (*WorkplaceMember, error) {
	member, err := s.repo.GetMemberByID(ctx, id)
	if err != nil {
		return nil, err
	}

	member.PositionName = dto.PositionName
	member.IsManager = dto.IsManager

	if err := s.repo.UpdateMember(ctx, member); err != nil {
		s.logger.Error("failed to update member", "error", err, "member_id", id)
		return nil, internal.NewInternalError("failed to update member", err)
	}

	s.logger.Info("member updated", "member_id", id, "actor", actorID)
	return member, nil
}

func (s *Service) RemoveMember(ctx context.Context, id uuid.UUID, actorID string) error {
	if _, err := s.repo.GetMemberByID(ctx, id); err != nil {
		return err
	}

	if err := s.repo.RemoveMember(ctx, id); err != nil {
		s.logger.Error("failed to remove member", "error", err, "member_id", id)
		return internal.NewInternalError("failed to remove member", err)
	}

	s.logger.Info("member removed", "member_id", id, "actor", actorID)
	return nil
}

func (s *Service) SetManager(ctx context.Context, id uuid.UUID, actorID string, isManager bool) (*WorkplaceMember, error) {
	member, err := s.repo.GetMemberByID(ctx, id)
	if err != nil {
		return nil, err
	}

	member.IsManager = isManager
	if err := s.repo.UpdateMember(ctx, member); err != nil {
		s.logger.Error("failed to set manager flag", "error", err, "member_id", id)
		return nil, internal.NewInternalError("failed to set manager flag", err)
	}

	s.logger.Info("manager flag changed", "member_id", id, "is_manager", isManager, "actor", actorID)
	return member, nil
}

// IsManagerOf reports whether userID has a manager membership in the
// workplace. Used by the expense engine for decision authorization.
func (s *Service) IsManagerOf(ctx context.Context, workplaceID uuid.UUID, userID string) (bool, error) {
	member, err := s.repo.FindMember(ctx, workplaceID, userID)
	if err != nil {
		return false, err
	}
	return member != nil && member.IsManager, nil
}
