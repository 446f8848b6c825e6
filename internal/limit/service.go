package limit

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/piae/company-expenses/internal"
	"github.com/piae/company-expenses/internal/auth"
)

// Repository is the storage contract for workplace limits. Create and
// Update run the overlap scan inside the same transaction as the write and
// return internal.ErrLimitOverlap when an active same-scope limit collides.
type Repository interface {
	Create(ctx context.Context, lim *WorkplaceLimit) error
	Update(ctx context.Context, lim *WorkplaceLimit) error
	GetByID(ctx context.Context, id uuid.UUID) (*WorkplaceLimit, error)
	GetByWorkplace(ctx context.Context, workplaceID uuid.UUID) ([]*WorkplaceLimit, error)
	Deactivate(ctx context.Context, id uuid.UUID) error
	ConsumedAmount(ctx context.Context, lim *WorkplaceLimit, asOf time.Time) (int64, error)
}

type WorkplaceChecker interface {
	ExistsActive(ctx context.Context, id uuid.UUID) (bool, error)
}

type CategoryChecker interface {
	ExistsActive(ctx context.Context, id uuid.UUID) (bool, error)
}

type ManagerChecker interface {
	IsManagerOf(ctx context.Context, workplaceID uuid.UUID, userID string) (bool, error)
}

type Service struct {
	repo       Repository
	workplaces WorkplaceChecker
	categories CategoryChecker
	managers   ManagerChecker
	logger     *slog.Logger
}

func NewService(repo Repository, workplaces WorkplaceChecker, categories CategoryChecker, managers ManagerChecker, logger *slog.Logger) *Service {
	return &Service{
		repo:       repo,
		workplaces: workplaces,
		categories: categories,
		managers:   managers,
		logger:     logger,
	}
}

func (s *Service) authorize(ctx context.Context, workplaceID uuid.UUID, actor *auth.User) error {
	if actor.IsAdmin() {
		return nil
	}
	isManager, err := s.managers.IsManagerOf(ctx, workplaceID, actor.ID)
	if err != nil {
		return internal.NewInternalError("failed to check membership", err)
	}
	if !isManager {
		return internal.ErrUnauthorizedAccess
	}
	return nil
}

// Create adds a new active limit after the overlap rule has been checked in
// storage.
func (s *Service) Create(ctx context.Context, actor *auth.User, dto CreateLimitDTO) (*WorkplaceLimit, error) {
	if err := dto.Validate(); err != nil {
		return nil, err
	}
	if err := s.authorize(ctx, dto.WorkplaceID, actor); err != nil {
		return nil, err
	}

	ok, err := s.workplaces.ExistsActive(ctx, dto.WorkplaceID)
	if err != nil {
		return nil, internal.NewInternalError("failed to check workplace", err)
	}
	if !ok {
		return nil, internal.NewValidationError("workplace does not exist or is inactive", internal.ErrCodeInvalidWorkplace)
	}

	if dto.CategoryID != nil {
		ok, err := s.categories.ExistsActive(ctx, *dto.CategoryID)
		if err != nil {
			return nil, internal.NewInternalError("failed to check category", err)
		}
		if !ok {
			return nil, internal.NewValidationError("category does not exist or is inactive", internal.ErrCodeInvalidCategory)
		}
	}

	currency := dto.Currency
	if currency == "" {
		currency = "CZK"
	}

	lim := &WorkplaceLimit{
		ID:          uuid.New(),
		WorkplaceID: dto.WorkplaceID,
		CategoryID:  dto.CategoryID,
		PeriodFrom:  dto.PeriodFrom,
		PeriodTo:    dto.PeriodTo,
		LimitAmount: dto.LimitAmount,
		Currency:    currency,
		IsActive:    true,
		CreatedAt:   time.Now().UTC(),
		CreatedBy:   actor.ID,
	}

	if err := s.repo.Create(ctx, lim); err != nil {
		s.logger.Warn("failed to create limit", "error", err, "workplace_id", dto.WorkplaceID)
		return nil, err
	}

	s.logger.Info("limit created",
		"limit_id", lim.ID,
		"workplace_id", lim.WorkplaceID,
		"amount", lim.LimitAmount,
		"currency", lim.Currency)
	return lim, nil
}

// Update replaces the mutable fields. The record itself is excluded from
// the overlap scan so a limit can always be saved over its own period.
func (s *Service) Update(ctx context.Context, limitID uuid.UUID, actor *auth.User, dto UpdateLimitDTO) (*WorkplaceLimit, error) {
	if err := dto.Validate(); err != nil {
		return nil, err
	}

	lim, err := s.repo.GetByID(ctx, limitID)
	if err != nil {
		return nil, err
	}
	if err := s.authorize(ctx, lim.WorkplaceID, actor); err != nil {
		return nil, err
	}

	if dto.CategoryID != nil {
		ok, cerr := s.categories.ExistsActive(ctx, *dto.CategoryID)
		if cerr != nil {
			return nil, internal.NewInternalError("failed to check category", cerr)
		}
		if !ok {
			return nil, internal.NewValidationError("category does not exist or is inactive", internal.ErrCodeInvalidCategory)
		}
	}

	now := time.Now().UTC()
	lim.CategoryID = dto.CategoryID
	lim.PeriodFrom = dto.PeriodFrom
	lim.PeriodTo = dto.PeriodTo
	lim.LimitAmount = dto.LimitAmount
	if dto.Currency != "" {
		lim.Currency = dto.Currency
	}
	lim.UpdatedAt = &now

	if err := s.repo.Update(ctx, lim); err != nil {
		s.logger.Warn("failed to update limit", "error", err, "limit_id", limitID)
		return nil, err
	}

	s.logger.Info("limit updated", "limit_id", limitID, "actor", actor.ID)
	return lim, nil
}

// Deactivate retires a limit. There is no reactivation; a new limit is
// created instead.
func (s *Service) Deactivate(ctx context.Context, limitID uuid.UUID, actor *auth.User) error {
	lim, err := s.repo.GetByID(ctx, limitID)
	if err != nil {
		return err
	}
	if err := s.authorize(ctx, lim.WorkplaceID, actor); err != nil {
		return err
	}

	if err := s.repo.Deactivate(ctx, limitID); err != nil {
		return err
	}
	s.logger.Info("limit deactivated", "limit_id", limitID, "actor", actor.ID)
	return nil
}

func (s *Service) GetLimit(ctx context.Context, id uuid.UUID) (*WorkplaceLimit, error) {
	return s.repo.GetByID(ctx, id)
}

// ListForWorkplace returns the active limits ordered by period start.
func (s *Service) ListForWorkplace(ctx context.Context, workplaceID uuid.UUID) ([]*WorkplaceLimit, error) {
	limits, err := s.repo.GetByWorkplace(ctx, workplaceID)
	if err != nil {
		s.logger.Error("failed to list limits", "error", err, "workplace_id", workplaceID)
		return nil, internal.NewInternalError("failed to list limits", err)
	}
	return limits, nil
}

// Utilization reports how much of the limit the matching expenses consume
// as of the given date. It is reporting only and never gates a submission
// or a decision.
func (s *Service) Utilization(ctx context.Context, limitID uuid.UUID, asOf time.Time) (*Utilization, error) {
	lim, err := s.repo.GetByID(ctx, limitID)
	if err != nil {
		return nil, err
	}

	if asOf.IsZero() {
		asOf = time.Now().UTC()
	}

	consumed, err := s.repo.ConsumedAmount(ctx, lim, asOf)
	if err != nil {
		s.logger.Error("failed to compute limit utilization", "error", err, "limit_id", limitID)
		return nil, internal.NewInternalError("failed to compute limit utilization", err)
	}

	return &Utilization{
		Limit:          lim,
		ConsumedAmount: consumed,
		AsOf:           asOf,
	}, nil
}
