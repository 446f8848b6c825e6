package postgres

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/piae/company-expenses/internal"
	"github.com/piae/company-expenses/internal/workplace"
)

type WorkplaceRepository struct {
	db *gorm.DB
}

func NewWorkplaceRepository(db *gorm.DB) workplace.RepositoryAPI {
	return &WorkplaceRepository{db: db}
}

func (r *WorkplaceRepository) GetAll(ctx context.Context, activeOnly bool) ([]*workplace.Workplace, error) {
	var workplaces []*workplace.Workplace
	q := r.db.WithContext(ctx).Preload("Members").Order("name ASC")
	if activeOnly {
		q = q.Where("is_active = ?", true)
	}
	err := q.Find(&workplaces).Error
	return workplaces, err
}

func (r *WorkplaceRepository) GetByID(ctx context.Context, id uuid.UUID) (*workplace.Workplace, error) {
	var wp workplace.Workplace
	err := r.db.WithContext(ctx).Preload("Members").Where("id = ?", id).First(&wp).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, internal.ErrWorkplaceNotFound
		}
		return nil, err
	}
	return &wp, nil
}

func (r *WorkplaceRepository) Create(ctx context.Context, wp *workplace.Workplace) error {
	return r.db.WithContext(ctx).Create(wp).Error
}

func (r *WorkplaceRepository) Update(ctx context.Context, wp *workplace.Workplace) error {
	return r.db.WithContext(ctx).Omit("Members").Save(wp).Error
}

func (r *WorkplaceRepository) Deactivate(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Model(&workplace.Workplace{}).
		Where("id = ?", id).
		Update("is_active", false).Error
}

func (r *WorkplaceRepository) ExistsActive(ctx context.Context, id uuid.UUID) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&workplace.Workplace{}).
		Where("id = ? AND is_active = ?", id, true).
		Count(&count).Error
	return count > 0, err
}

func (r *WorkplaceRepository) GetMembers(ctx context.Context) ([]*workplace.WorkplaceMember, error) {
	var members []*workplace.WorkplaceMember
	err := r.db.WithContext(ctx).Order("created_at ASC").Find(&members).Error
	return members, err
}

func (r *WorkplaceRepository) GetMembersByWorkplace(ctx context.Context, workplaceID uuid.UUID) ([]*workplace.WorkplaceMember, error) {
	var members []*workplace.WorkplaceMember
	err := r.db.WithContext(ctx).
		Where("workplace_id = ?", workplaceID).
		Order("created_at ASC").
		Find(&members).Error
	return members, err
}

func (r *WorkplaceRepository) GetMembersByUser(ctx context.Context, userID string) ([]*workplace.WorkplaceMember, error) {
	var members []*workplace.WorkplaceMember
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at ASC").
		Find(&members).Error
	return members, err
}

func (r *WorkplaceRepository) GetMemberByID(ctx context.Context, id uuid.UUID) (*workplace.WorkplaceMember, error) {
	var member workplace.WorkplaceMember
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&member).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, internal.ErrMemberNotFound
		}
		return nil, err
	}
	return &member, nil
}

// FindMember returns nil without error when no membership exists.
func (r *WorkplaceRepository) FindMember(ctx context.Context, workplaceID uuid.UUID, userID string) (*workplace.WorkplaceMember, error) {
	var member workplace.WorkplaceMember
	err := r.db.WithContext(ctx).
		Where("workplace_id = ? AND user_id = ?", workplaceID, userID).
		First(&member).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &member, nil
}

func (r *WorkplaceRepository) AddMember(ctx context.Context, member *workplace.WorkplaceMember) error {
	return r.db.WithContext(ctx).Create(member).Error
}

func (r *WorkplaceRepository) UpdateMember(ctx context.Context, member *workplace.WorkplaceMember) error {
	return r.db.WithContext(ctx).Save(member).Error
}

func (r *WorkplaceRepository) RemoveMember(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Delete(&workplace.WorkplaceMember{}, "id = ?", id).Error
}
