package expense

import (
	"time"

	"github.com/google/uuid"

	"github.com/piae/company-expenses/internal"
)

// CreateExpenseDTO is the submission payload.
type CreateExpenseDTO struct {
	WorkplaceID uuid.UUID `json:"workplace_id"`
	CategoryID  uuid.UUID `json:"category_id"`
	Amount      int64     `json:"amount"`
	Currency    string    `json:"currency"`
	ExpenseDate time.Time `json:"expense_date"`
	Description *string   `json:"description,omitempty"`
}

func (dto CreateExpenseDTO) Validate() error {
	if dto.Amount <= 0 {
		return internal.NewValidationError("amount must be greater than 0", internal.ErrCodeInvalidAmount)
	}
	if dto.WorkplaceID == uuid.Nil {
		return internal.NewValidationError("workplace_id is required", internal.ErrCodeInvalidWorkplace)
	}
	if dto.CategoryID == uuid.Nil {
		return internal.NewValidationError("category_id is required", internal.ErrCodeInvalidCategory)
	}
	if dto.ExpenseDate.IsZero() {
		return internal.NewValidationError("expense_date is required", internal.ErrCodeInvalidDate)
	}
	if dto.ExpenseDate.After(time.Now()) {
		return internal.NewValidationError("expense_date cannot be in the future", internal.ErrCodeInvalidDate)
	}
	if dto.Description != nil && len(*dto.Description) > 500 {
		return internal.NewValidationError("description must be at most 500 characters", internal.ErrCodeValidationFailed)
	}
	return nil
}

// RejectExpenseDTO carries the mandatory rejection note.
type RejectExpenseDTO struct {
	Note string `json:"note"`
}

func (dto RejectExpenseDTO) Validate() error {
	if dto.Note == "" {
		return internal.NewValidationError("note is required when rejecting an expense", internal.ErrCodeValidationFailed)
	}
	return nil
}

// ApproveExpenseDTO carries an optional approval note.
type ApproveExpenseDTO struct {
	Note *string `json:"note,omitempty"`
}

// AddAttachmentDTO registers receipt metadata; the blob is stored
// externally.
type AddAttachmentDTO struct {
	OriginalFileName string `json:"original_file_name"`
	StoredFileName   string `json:"stored_file_name"`
	DataType         string `json:"data_type"`
	FileSize         int64  `json:"file_size"`
}

func (dto AddAttachmentDTO) Validate() error {
	if dto.OriginalFileName == "" || dto.StoredFileName == "" {
		return internal.NewValidationError("file names are required", internal.ErrCodeValidationFailed)
	}
	if dto.FileSize <= 0 {
		return internal.NewValidationError("file_size must be greater than 0", internal.ErrCodeValidationFailed)
	}
	return nil
}
