package category

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/piae/company-expenses/internal"
)

type RepositoryAPI interface {
	GetAll(ctx context.Context, activeOnly bool) ([]*ExpenseCategory, error)
	GetByID(ctx context.Context, id uuid.UUID) (*ExpenseCategory, error)
	Create(ctx context.Context, cat *ExpenseCategory) error
	Update(ctx context.Context, cat *ExpenseCategory) error
	Deactivate(ctx context.Context, id uuid.UUID) error
	ExistsActive(ctx context.Context, id uuid.UUID) (bool, error)
}

type Service struct {
	repo   RepositoryAPI
	logger *slog.Logger
}

func NewService(repo RepositoryAPI, logger *slog.Logger) *Service {
	return &Service{repo: repo, logger: logger}
}

func (s *Service) ListCategories(ctx context.Context) ([]*ExpenseCategory, error) {
	categories, err := s.repo.GetAll(ctx, true)
	if err != nil {
		s.logger.Error("failed to list categories", "error", err)
		return nil, internal.NewInternalError("failed to list categories", err)
	}
	return categories, nil
}

func (s *Service) GetCategory(ctx context.Context, id uuid.UUID) (*ExpenseCategory, error) {
	cat, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return cat, nil
}

func (s *Service) CreateCategory(ctx context.Context, actorID string, dto CreateCategoryDTO) (*ExpenseCategory, error) {
	if err := dto.Validate(); err != nil {
		s.logger.Warn("category validation failed", "error", err, "actor", actorID)
		return nil, err
	}

	cat := &ExpenseCategory{
		ID:        uuid.New(),
		Name:      dto.Name,
		Color:     dto.Color,
		IsActive:  true,
		CreatedAt: time.Now().UTC(),
		CreatedBy: actorID,
	}

	if err := s.repo.Create(ctx, cat); err != nil {
		s.logger.Error("failed to create category", "error", err, "name", dto.Name)
		return nil, internal.NewInternalError("failed to create category", err)
	}

	s.logger.Info("category created", "category_id", cat.ID, "name", cat.Name, "actor", actorID)
	return cat, nil
}

func (s *Service) UpdateCategory(ctx context.Context, id uuid.UUID, actorID string, dto UpdateCategoryDTO) (*ExpenseCategory, error) {
	if err := dto.Validate(); err != nil {
		return nil, err
	}

	cat, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	cat.Name = dto.Name
	cat.Color = dto.Color
	if dto.IsActive != nil {
		cat.IsActive = *dto.IsActive
	}
	now := time.Now().UTC()
	cat.UpdatedAt = &now

	if err := s.repo.Update(ctx, cat); err != nil {
		s.logger.Error("failed to update category", "error", err, "category_id", id)
		return nil, internal.NewInternalError("failed to update category", err)
	}

	s.logger.Info("category updated", "category_id", id, "actor", actorID)
	return cat, nil
}

// DeactivateCategory soft-deletes: expenses referencing the category stay
// valid, the category just disappears from pickers.
func (s *Service) DeactivateCategory(ctx context.Context, id uuid.UUID, actorID string) error {
	if _, err := s.repo.GetByID(ctx, id); err != nil {
		return err
	}

	if err := s.repo.Deactivate(ctx, id); err != nil {
		s.logger.Error("failed to deactivate category", "error", err, "category_id", id)
		return internal.NewInternalError("failed to deactivate category", err)
	}

	s.logger.Info("category deactivated", "category_id", id, "actor", actorID)
	return nil
}
