package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/piae/company-expenses/internal"
	"github.com/piae/company-expenses/internal/category"
)

type CategoryRepository struct {
	db *gorm.DB
}

func NewCategoryRepository(db *gorm.DB) category.RepositoryAPI {
	return &CategoryRepository{db: db}
}

func (r *CategoryRepository) GetAll(ctx context.Context, activeOnly bool) ([]*category.ExpenseCategory, error) {
	var categories []*category.ExpenseCategory
	q := r.db.WithContext(ctx).Order("name ASC")
	if activeOnly {
		q = q.Where("is_active = ?", true)
	}
	err := q.Find(&categories).Error
	return categories, err
}

func (r *CategoryRepository) GetByID(ctx context.Context, id uuid.UUID) (*category.ExpenseCategory, error) {
	var cat category.ExpenseCategory
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&cat).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, internal.ErrCategoryNotFound
		}
		return nil, err
	}
	return &cat, nil
}

func (r *CategoryRepository) Create(ctx context.Context, cat *category.ExpenseCategory) error {
	return r.db.WithContext(ctx).Create(cat).Error
}

func (r *CategoryRepository) Update(ctx context.Context, cat *category.ExpenseCategory) error {
	return r.db.WithContext(ctx).Save(cat).Error
}

func (r *CategoryRepository) ExistsActive(ctx context.Context, id uuid.UUID) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&category.ExpenseCategory{}).
		Where("id = ? AND is_active = ?", id, true).
		Count(&count).Error
	return count > 0, err
}

func (r *CategoryRepository) Deactivate(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Model(&category.ExpenseCategory{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"is_active":  false,
			"updated_at": time.Now().UTC(),
		}).Error
}
