package limit

import (
	"time"

	"github.com/google/uuid"

	"github.com/piae/company-expenses/internal"
)

// WorkplaceLimit caps spending for a workplace over an inclusive date
// period, optionally scoped to a single category. A nil CategoryID covers
// every category. Limits are advisory: they report utilization but never
// block an expense.
type WorkplaceLimit struct {
	ID          uuid.UUID  `json:"id" gorm:"type:uuid;primaryKey"`
	WorkplaceID uuid.UUID  `json:"workplace_id" gorm:"type:uuid;column:workplace_id;not null"`
	CategoryID  *uuid.UUID `json:"category_id,omitempty" gorm:"type:uuid;column:category_id"`
	PeriodFrom  time.Time  `json:"period_from" gorm:"column:period_from;type:date"`
	PeriodTo    time.Time  `json:"period_to" gorm:"column:period_to;type:date"`
	LimitAmount int64      `json:"limit_amount" gorm:"column:limit_amount;not null"`
	Currency    string     `json:"currency" gorm:"column:currency;default:CZK"`
	IsActive    bool       `json:"is_active" gorm:"column:is_active;default:true"`
	CreatedAt   time.Time  `json:"created_at" gorm:"column:created_at"`
	CreatedBy   string     `json:"created_by" gorm:"column:created_by"`
	UpdatedAt   *time.Time `json:"updated_at,omitempty" gorm:"column:updated_at"`
}

func (WorkplaceLimit) TableName() string {
	return "workplace_limits"
}

// SameScope reports whether two limits guard the same (workplace, category)
// combination. Category-unscoped limits only collide with other unscoped
// ones.
func (l *WorkplaceLimit) SameScope(other *WorkplaceLimit) bool {
	if l.WorkplaceID != other.WorkplaceID {
		return false
	}
	if l.CategoryID == nil && other.CategoryID == nil {
		return true
	}
	if l.CategoryID == nil || other.CategoryID == nil {
		return false
	}
	return *l.CategoryID == *other.CategoryID
}

// PeriodsOverlap implements the inclusive interval test: [a,b] overlaps
// [c,d] iff a<=d && c<=b. Adjacent periods sharing an endpoint do overlap;
// back-to-back periods one day apart do not.
func PeriodsOverlap(aFrom, aTo, bFrom, bTo time.Time) bool {
	return !aFrom.After(bTo) && !bFrom.After(aTo)
}

// Utilization is the reporting view of one limit: how much of it the
// matching expenses have consumed as of a given date.
type Utilization struct {
	Limit          *WorkplaceLimit `json:"limit"`
	ConsumedAmount int64           `json:"consumed_amount"`
	AsOf           time.Time       `json:"as_of"`
}

// CreateLimitDTO is the creation payload.
type CreateLimitDTO struct {
	WorkplaceID uuid.UUID  `json:"workplace_id"`
	CategoryID  *uuid.UUID `json:"category_id,omitempty"`
	PeriodFrom  time.Time  `json:"period_from"`
	PeriodTo    time.Time  `json:"period_to"`
	LimitAmount int64      `json:"limit_amount"`
	Currency    string     `json:"currency"`
}

func (dto CreateLimitDTO) Validate() error {
	if dto.WorkplaceID == uuid.Nil {
		return internal.NewValidationError("workplace_id is required", internal.ErrCodeInvalidWorkplace)
	}
	if dto.LimitAmount <= 0 {
		return internal.NewValidationError("limit_amount must be greater than 0", internal.ErrCodeInvalidAmount)
	}
	if dto.PeriodFrom.IsZero() || dto.PeriodTo.IsZero() {
		return internal.NewValidationError("period_from and period_to are required", internal.ErrCodeInvalidPeriod)
	}
	if dto.PeriodFrom.After(dto.PeriodTo) {
		return internal.NewValidationError("period_from must not be after period_to", internal.ErrCodeInvalidPeriod)
	}
	return nil
}

// UpdateLimitDTO replaces the mutable fields of a limit. The workplace
// scope never changes after creation.
type UpdateLimitDTO struct {
	CategoryID  *uuid.UUID `json:"category_id,omitempty"`
	PeriodFrom  time.Time  `json:"period_from"`
	PeriodTo    time.Time  `json:"period_to"`
	LimitAmount int64      `json:"limit_amount"`
	Currency    string     `json:"currency"`
}

func (dto UpdateLimitDTO) Validate() error {
	if dto.LimitAmount <= 0 {
		return internal.NewValidationError("limit_amount must be greater than 0", internal.ErrCodeInvalidAmount)
	}
	if dto.PeriodFrom.IsZero() || dto.PeriodTo.IsZero() {
		return internal.NewValidationError("period_from and period_to are required", internal.ErrCodeInvalidPeriod)
	}
	if dto.PeriodFrom.After(dto.PeriodTo) {
		return internal.NewValidationError("period_from must not be after period_to", internal.ErrCodeInvalidPeriod)
	}
	return nil
}
