package postgres

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/piae/company-expenses/internal"
	"github.com/piae/company-expenses/internal/expense"
)

type ExpenseRepository struct {
	db *gorm.DB
}

func NewExpenseRepository(db *gorm.DB) expense.Repository {
	return &ExpenseRepository{db: db}
}

func (r *ExpenseRepository) Create(ctx context.Context, exp *expense.Expense) error {
	return r.db.WithContext(ctx).Create(exp).Error
}

func (r *ExpenseRepository) GetByID(ctx context.Context, id uuid.UUID) (*expense.Expense, error) {
	var exp expense.Expense
	err := r.db.WithContext(ctx).
		Preload("Approvals", func(db *gorm.DB) *gorm.DB {
			return db.Order("created_at ASC")
		}).
		Preload("Attachments").
		Where("id = ? AND is_deleted = ?", id, false).
		First(&exp).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, internal.ErrExpenseNotFound
		}
		return nil, err
	}
	return &exp, nil
}

func (r *ExpenseRepository) List(ctx context.Context, filter expense.ListFilter, limit, offset int) ([]*expense.Expense, error) {
	var expenses []*expense.Expense
	q := r.db.WithContext(ctx).
		Where("is_deleted = ?", false).
		Order("expense_date DESC")

	if filter.WorkplaceID != uuid.Nil {
		q = q.Where("workplace_id = ?", filter.WorkplaceID)
	}
	if filter.EmployeeUserID != "" {
		q = q.Where("employee_user_id = ?", filter.EmployeeUserID)
	}
	if filter.Status != "" {
		q = q.Where("status = ?", filter.Status)
	}
	if limit > 0 {
		q = q.Limit(limit)
	}
	if offset > 0 {
		q = q.Offset(offset)
	}

	err := q.Find(&expenses).Error
	return expenses, err
}

// Decide flips a pending expense to its decided status and records the
// approval row in one transaction. The conditional UPDATE is the guard: a
// second decider matches zero rows and is told why.
func (r *ExpenseRepository) Decide(ctx context.Context, id uuid.UUID, decision expense.Decision) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		updates := map[string]interface{}{
			"status":           decision.NewStatus,
			"last_decision_at": decision.DecidedAt,
			"last_decision_by": decision.ActorUserID,
			"updated_at":       decision.DecidedAt,
		}
		if decision.RejectionNote != nil {
			updates["rejection_note"] = *decision.RejectionNote
		}

		res := tx.Model(&expense.Expense{}).
			Where("id = ? AND status = ? AND is_deleted = ?", id, expense.StatusPending, false).
			Updates(updates)
		if res.Error != nil {
			return res.Error
		}

		if res.RowsAffected == 0 {
			var exp expense.Expense
			err := tx.Where("id = ? AND is_deleted = ?", id, false).First(&exp).Error
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return internal.ErrExpenseNotFound
			}
			if err != nil {
				return err
			}
			return internal.ErrExpenseAlreadyDecided
		}

		approval := expense.ExpenseApproval{
			ID:          uuid.New(),
			ExpenseID:   id,
			Action:      decision.Action,
			ActorUserID: decision.ActorUserID,
			Note:        decision.Note,
			CreatedAt:   decision.DecidedAt,
			CreatedBy:   decision.ActorUserID,
		}
		return tx.Create(&approval).Error
	})
}

func (r *ExpenseRepository) SoftDelete(ctx context.Context, id uuid.UUID) error {
	res := r.db.WithContext(ctx).Model(&expense.Expense{}).
		Where("id = ? AND is_deleted = ?", id, false).
		Update("is_deleted", true)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return internal.ErrExpenseNotFound
	}
	return nil
}

func (r *ExpenseRepository) AddAttachment(ctx context.Context, att *expense.ExpenseAttachment) error {
	return r.db.WithContext(ctx).Create(att).Error
}

func (r *ExpenseRepository) ListAttachments(ctx context.Context, expenseID uuid.UUID) ([]*expense.ExpenseAttachment, error) {
	var atts []*expense.ExpenseAttachment
	err := r.db.WithContext(ctx).
		Where("expense_id = ?", expenseID).
		Order("uploaded_at ASC").
		Find(&atts).Error
	return atts, err
}
