package workplace

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/piae/company-expenses/internal"
)

// Workplace is an organizational cost center. Expenses, members, limits and
// invitations all hang off it. Workplaces deactivate instead of deleting;
// expense rows keep their workplace reference forever.
type Workplace struct {
	ID        uuid.UUID         `json:"id" gorm:"type:uuid;primaryKey"`
	Name      string            `json:"name" gorm:"not null"`
	Code      *string           `json:"code,omitempty" gorm:"column:code"`
	IsActive  bool              `json:"is_active" gorm:"column:is_active;default:true"`
	CreatedAt time.Time         `json:"created_at" gorm:"column:created_at"`
	CreatedBy string            `json:"created_by" gorm:"column:created_by"`
	Members   []WorkplaceMember `json:"members,omitempty" gorm:"foreignKey:WorkplaceID"`
}

func (Workplace) TableName() string {
	return "workplaces"
}

// WorkplaceMember ties an identity-provider user to a workplace. The
// (workplace_id, user_id) pair is unique: one membership per user per
// workplace.
type WorkplaceMember struct {
	ID           uuid.UUID `json:"id" gorm:"type:uuid;primaryKey"`
	WorkplaceID  uuid.UUID `json:"workplace_id" gorm:"type:uuid;column:workplace_id;not null"`
	UserID       string    `json:"user_id" gorm:"column:user_id;not null"`
	PositionName *string   `json:"position_name,omitempty" gorm:"column:position_name"`
	IsManager    bool      `json:"is_manager" gorm:"column:is_manager;default:false"`
	CreatedAt    time.Time `json:"created_at" gorm:"column:created_at"`
	CreatedBy    string    `json:"created_by" gorm:"column:created_by"`
}

func (WorkplaceMember) TableName() string {
	return "workplace_members"
}

type CreateWorkplaceDTO struct {
	Name string  `json:"name"`
	Code *string `json:"code,omitempty"`
}

func (dto CreateWorkplaceDTO) Validate() error {
	if strings.TrimSpace(dto.Name) == "" {
		return internal.NewValidationError("name is required", internal.ErrCodeValidationFailed)
	}
	if len(dto.Name) > 200 {
		return internal.NewValidationError("name must be at most 200 characters", internal.ErrCodeValidationFailed)
	}
	return nil
}

type UpdateWorkplaceDTO struct {
	Name     string  `json:"name"`
	Code     *string `json:"code,omitempty"`
	IsActive *bool   `json:"is_active,omitempty"`
}

func (dto UpdateWorkplaceDTO) Validate() error {
	if strings.TrimSpace(dto.Name) == "" {
		return internal.NewValidationError("name is required", internal.ErrCodeValidationFailed)
	}
	return nil
}

type CreateMemberDTO struct {
	WorkplaceID  uuid.UUID `json:"workplace_id"`
	UserID       string    `json:"user_id"`
	PositionName *string   `json:"position_name,omitempty"`
	IsManager    bool      `json:"is_manager"`
}

func (dto CreateMemberDTO) Validate() error {
	if dto.WorkplaceID == uuid.Nil {
		return internal.NewValidationError("workplace_id is required", internal.ErrCodeInvalidWorkplace)
	}
	if strings.TrimSpace(dto.UserID) == "" {
		return internal.NewValidationError("user_id is required", internal.ErrCodeValidationFailed)
	}
	return nil
}

type UpdateMemberDTO struct {
	PositionName *string `json:"position_name,omitempty"`
	IsManager    bool    `json:"is_manager"`
}
