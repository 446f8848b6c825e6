package invitation

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"net/mail"
	"time"

	"github.com/google/uuid"

	"github.com/piae/company-expenses/internal"
)

// Invitation statuses. Expired is persisted lazily the first time an
// expired invitation is read through Verify or Accept.
const (
	StatusPending   = "pending"
	StatusAccepted  = "accepted"
	StatusExpired   = "expired"
	StatusCancelled = "cancelled"
)

// DefaultTTL is how long a freshly issued token stays valid.
const DefaultTTL = 7 * 24 * time.Hour

const tokenBytes = 32

// Invitation lets someone outside the system join, optionally straight
// into a workplace. The token travels in the invite email and is the only
// public handle on the record.
type Invitation struct {
	ID              uuid.UUID  `json:"id" gorm:"type:uuid;primaryKey"`
	Email           string     `json:"email" gorm:"column:email;not null"`
	InvitedRoleID   *uuid.UUID `json:"invited_role_id,omitempty" gorm:"type:uuid;column:invited_role_id"`
	WorkplaceID     *uuid.UUID `json:"workplace_id,omitempty" gorm:"type:uuid;column:workplace_id"`
	Token           string     `json:"-" gorm:"column:token;uniqueIndex;not null"`
	Status          string     `json:"status" gorm:"column:status;default:pending"`
	ExpiresAt       time.Time  `json:"expires_at" gorm:"column:expires_at"`
	AcceptedAt      *time.Time `json:"accepted_at,omitempty" gorm:"column:accepted_at"`
	InvitedByUserID string     `json:"invited_by_user_id" gorm:"column:invited_by_user_id"`
	CreatedAt       time.Time  `json:"created_at" gorm:"column:created_at"`
	CreatedBy       string     `json:"created_by" gorm:"column:created_by"`
	UpdatedAt       *time.Time `json:"updated_at,omitempty" gorm:"column:updated_at"`
}

func (Invitation) TableName() string {
	return "invitations"
}

func (i *Invitation) IsPending() bool {
	return i.Status == StatusPending
}

// IsExpired compares against the wall clock; the status flip to expired
// happens in the service, not here.
func (i *Invitation) IsExpired(now time.Time) bool {
	return now.After(i.ExpiresAt)
}

// GenerateToken produces an unguessable URL-safe token. 32 random bytes,
// base64url without padding.
func GenerateToken() (string, error) {
	buf := make([]byte, tokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate invitation token: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

// CreateInvitationDTO is the issuing payload.
type CreateInvitationDTO struct {
	Email         string     `json:"email"`
	InvitedRoleID *uuid.UUID `json:"invited_role_id,omitempty"`
	WorkplaceID   *uuid.UUID `json:"workplace_id,omitempty"`
}

func (dto CreateInvitationDTO) Validate() error {
	if dto.Email == "" {
		return internal.NewValidationError("email is required", internal.ErrCodeValidationFailed)
	}
	if _, err := mail.ParseAddress(dto.Email); err != nil {
		return internal.NewValidationError("email is not a valid address", internal.ErrCodeValidationFailed)
	}
	return nil
}
