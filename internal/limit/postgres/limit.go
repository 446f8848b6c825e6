package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/piae/company-expenses/internal"
	"github.com/piae/company-expenses/internal/expense"
	"github.com/piae/company-expenses/internal/limit"
)

// The overlap check and the write must not interleave with a concurrent
// writer of the same scope; under SERIALIZABLE one of two racing
// transactions aborts with a serialization failure. The exclusion
// constraint on workplace_limits is the storage-level second line.
var serializable = &sql.TxOptions{Isolation: sql.LevelSerializable}

type LimitRepository struct {
	db *gorm.DB
}

func NewLimitRepository(db *gorm.DB) limit.Repository {
	return &LimitRepository{db: db}
}

// overlapExists loads the active limits of the workplace inside the
// caller's transaction and applies the domain predicates, so SQL and Go
// agree on one definition of a colliding limit.
func overlapExists(tx *gorm.DB, lim *limit.WorkplaceLimit, excludeID uuid.UUID) (bool, error) {
	var candidates []*limit.WorkplaceLimit
	err := tx.
		Where("workplace_id = ? AND is_active = ?", lim.WorkplaceID, true).
		Find(&candidates).Error
	if err != nil {
		return false, err
	}

	for _, other := range candidates {
		if other.ID == excludeID {
			continue
		}
		if lim.SameScope(other) && limit.PeriodsOverlap(lim.PeriodFrom, lim.PeriodTo, other.PeriodFrom, other.PeriodTo) {
			return true, nil
		}
	}
	return false, nil
}

func (r *LimitRepository) Create(ctx context.Context, lim *limit.WorkplaceLimit) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		overlaps, err := overlapExists(tx, lim, uuid.Nil)
		if err != nil {
			return err
		}
		if overlaps {
			return internal.ErrLimitOverlap
		}
		return tx.Create(lim).Error
	}, serializable)
	return internal.MapConflict(err, internal.ErrLimitOverlap)
}

func (r *LimitRepository) Update(ctx context.Context, lim *limit.WorkplaceLimit) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		overlaps, err := overlapExists(tx, lim, lim.ID)
		if err != nil {
			return err
		}
		if overlaps {
			return internal.ErrLimitOverlap
		}
		return tx.Save(lim).Error
	}, serializable)
	return internal.MapConflict(err, internal.ErrLimitOverlap)
}

func (r *LimitRepository) GetByID(ctx context.Context, id uuid.UUID) (*limit.WorkplaceLimit, error) {
	var lim limit.WorkplaceLimit
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&lim).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, internal.ErrLimitNotFound
		}
		return nil, err
	}
	return &lim, nil
}

func (r *LimitRepository) GetByWorkplace(ctx context.Context, workplaceID uuid.UUID) ([]*limit.WorkplaceLimit, error) {
	var limits []*limit.WorkplaceLimit
	err := r.db.WithContext(ctx).
		Where("workplace_id = ? AND is_active = ?", workplaceID, true).
		Order("period_from ASC").
		Find(&limits).Error
	return limits, err
}

func (r *LimitRepository) Deactivate(ctx context.Context, id uuid.UUID) error {
	res := r.db.WithContext(ctx).Model(&limit.WorkplaceLimit{}).
		Where("id = ? AND is_active = ?", id, true).
		Updates(map[string]interface{}{
			"is_active":  false,
			"updated_at": time.Now().UTC(),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return internal.ErrLimitNotFound
	}
	return nil
}

// ConsumedAmount sums the non-deleted, non-rejected expenses of the
// limit's workplace dated inside [period_from, min(period_to, asOf)],
// filtered to the limit's category when it is scoped.
func (r *LimitRepository) ConsumedAmount(ctx context.Context, lim *limit.WorkplaceLimit, asOf time.Time) (int64, error) {
	end := lim.PeriodTo
	if asOf.Before(end) {
		end = asOf
	}

	q := r.db.WithContext(ctx).Model(&expense.Expense{}).
		Where("workplace_id = ? AND is_deleted = ?", lim.WorkplaceID, false).
		Where("status <> ?", expense.StatusRejected).
		Where("expense_date >= ? AND expense_date <= ?", lim.PeriodFrom, end)
	if lim.CategoryID != nil {
		q = q.Where("category_id = ?", *lim.CategoryID)
	}

	var consumed int64
	err := q.Select("COALESCE(SUM(amount), 0)").Scan(&consumed).Error
	return consumed, err
}
