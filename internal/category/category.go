package category

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/piae/company-expenses/internal"
)

// ExpenseCategory is a classification label for expenses. Categories are
// deactivated, never hard-deleted, because expenses keep referencing them.
type ExpenseCategory struct {
	ID        uuid.UUID  `json:"id" gorm:"type:uuid;primaryKey"`
	Name      string     `json:"name" gorm:"not null"`
	Color     *string    `json:"color,omitempty" gorm:"column:color"`
	IsActive  bool       `json:"is_active" gorm:"column:is_active;default:true"`
	CreatedAt time.Time  `json:"created_at" gorm:"column:created_at"`
	CreatedBy string     `json:"created_by" gorm:"column:created_by"`
	UpdatedAt *time.Time `json:"updated_at,omitempty" gorm:"column:updated_at"`
}

func (ExpenseCategory) TableName() string {
	return "expense_categories"
}

type CreateCategoryDTO struct {
	Name  string  `json:"name"`
	Color *string `json:"color,omitempty"`
}

func (dto CreateCategoryDTO) Validate() error {
	if strings.TrimSpace(dto.Name) == "" {
		return internal.NewValidationError("name is required", internal.ErrCodeValidationFailed)
	}
	if len(dto.Name) > 200 {
		return internal.NewValidationError("name must be at most 200 characters", internal.ErrCodeValidationFailed)
	}
	return nil
}

type UpdateCategoryDTO struct {
	Name     string  `json:"name"`
	Color    *string `json:"color,omitempty"`
	IsActive *bool   `json:"is_active,omitempty"`
}

func (dto UpdateCategoryDTO) Validate() error {
	if strings.TrimSpace(dto.Name) == "" {
		return internal.NewValidationError("name is required", internal.ErrCodeValidationFailed)
	}
	return nil
}
