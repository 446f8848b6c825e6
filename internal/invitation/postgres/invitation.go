package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/piae/company-expenses/internal"
	"github.com/piae/company-expenses/internal/invitation"
	"github.com/piae/company-expenses/internal/workplace"
)

// The pending-email check and the insert must not interleave with a
// concurrent Create for the same address; under SERIALIZABLE one of two
// racing transactions aborts. The partial unique index on pending emails
// is the storage-level second line.
var serializable = &sql.TxOptions{Isolation: sql.LevelSerializable}

type InvitationRepository struct {
	db *gorm.DB
}

func NewInvitationRepository(db *gorm.DB) invitation.Repository {
	return &InvitationRepository{db: db}
}

// Create inserts the invitation after checking for an existing pending one
// on the same email inside a serializable transaction.
func (r *InvitationRepository) Create(ctx context.Context, inv *invitation.Invitation) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		err := tx.Model(&invitation.Invitation{}).
			Where("email = ? AND status = ?", inv.Email, invitation.StatusPending).
			Count(&count).Error
		if err != nil {
			return err
		}
		if count > 0 {
			return internal.ErrPendingInvitation
		}
		return tx.Create(inv).Error
	}, serializable)
	return internal.MapConflict(err, internal.ErrPendingInvitation)
}

func (r *InvitationRepository) GetByID(ctx context.Context, id uuid.UUID) (*invitation.Invitation, error) {
	var inv invitation.Invitation
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&inv).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, internal.ErrInvitationNotFound
		}
		return nil, err
	}
	return &inv, nil
}

func (r *InvitationRepository) GetByToken(ctx context.Context, token string) (*invitation.Invitation, error) {
	var inv invitation.Invitation
	err := r.db.WithContext(ctx).Where("token = ?", token).First(&inv).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, internal.ErrInvitationNotFound
		}
		return nil, err
	}
	return &inv, nil
}

func (r *InvitationRepository) GetAll(ctx context.Context) ([]*invitation.Invitation, error) {
	var invs []*invitation.Invitation
	err := r.db.WithContext(ctx).Order("created_at DESC").Find(&invs).Error
	return invs, err
}

func (r *InvitationRepository) Update(ctx context.Context, inv *invitation.Invitation) error {
	return r.db.WithContext(ctx).Save(inv).Error
}

func (r *InvitationRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status string) error {
	res := r.db.WithContext(ctx).Model(&invitation.Invitation{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"status":     status,
			"updated_at": time.Now().UTC(),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return internal.ErrInvitationNotFound
	}
	return nil
}

// Accept flips a pending invitation to accepted and, when a membership row
// is supplied, inserts it in the same transaction. An already existing
// membership is kept as is.
func (r *InvitationRepository) Accept(ctx context.Context, id uuid.UUID, acceptedAt time.Time, member *workplace.WorkplaceMember) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&invitation.Invitation{}).
			Where("id = ? AND status = ?", id, invitation.StatusPending).
			Updates(map[string]interface{}{
				"status":      invitation.StatusAccepted,
				"accepted_at": acceptedAt,
				"updated_at":  acceptedAt,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			var inv invitation.Invitation
			err := tx.Where("id = ?", id).First(&inv).Error
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return internal.ErrInvitationNotFound
			}
			if err != nil {
				return err
			}
			return internal.ErrInvitationUsed
		}

		if member == nil {
			return nil
		}

		var count int64
		err := tx.Model(&workplace.WorkplaceMember{}).
			Where("workplace_id = ? AND user_id = ?", member.WorkplaceID, member.UserID).
			Count(&count).Error
		if err != nil {
			return err
		}
		if count > 0 {
			return nil
		}
		return tx.Create(member).Error
	})
}
