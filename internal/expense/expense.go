package expense

import (
	"time"

	"github.com/google/uuid"
)

// Expense statuses. Paid is a reserved terminal state reachable only from
// approved; no operation currently sets it.
const (
	StatusPending  = "pending"
	StatusApproved = "approved"
	StatusRejected = "rejected"
	StatusPaid     = "paid"
)

// Approval actions recorded in the audit trail.
const (
	ActionApproved            = "approved"
	ActionRejected            = "rejected"
	ActionReturnedForRevision = "returned_for_revision"
)

// Expense is a monetary claim submitted by an employee. Status transitions
// happen only through the lifecycle service; rows are soft-deleted and a
// deleted expense is invisible to every read.
type Expense struct {
	ID             uuid.UUID  `json:"id" gorm:"type:uuid;primaryKey"`
	EmployeeUserID string     `json:"employee_user_id" gorm:"column:employee_user_id;not null"`
	WorkplaceID    uuid.UUID  `json:"workplace_id" gorm:"type:uuid;column:workplace_id;not null"`
	CategoryID     uuid.UUID  `json:"category_id" gorm:"type:uuid;column:category_id;not null"`
	Amount         int64      `json:"amount" gorm:"column:amount;not null"`
	Currency       string     `json:"currency" gorm:"column:currency;default:CZK"`
	ExpenseDate    time.Time  `json:"expense_date" gorm:"column:expense_date;type:date"`
	Description    *string    `json:"description,omitempty" gorm:"column:description"`
	Status         string     `json:"status" gorm:"column:status;default:pending"`
	SubmittedAt    time.Time  `json:"submitted_at" gorm:"column:submitted_at"`
	LastDecisionAt *time.Time `json:"last_decision_at,omitempty" gorm:"column:last_decision_at"`
	LastDecisionBy *string    `json:"last_decision_by,omitempty" gorm:"column:last_decision_by"`
	RejectionNote  *string    `json:"rejection_note,omitempty" gorm:"column:rejection_note"`
	IsDeleted      bool       `json:"-" gorm:"column:is_deleted;default:false"`
	CreatedAt      time.Time  `json:"created_at" gorm:"column:created_at"`
	CreatedBy      string     `json:"created_by" gorm:"column:created_by"`
	UpdatedAt      *time.Time `json:"updated_at,omitempty" gorm:"column:updated_at"`

	Approvals   []ExpenseApproval   `json:"approvals,omitempty" gorm:"foreignKey:ExpenseID"`
	Attachments []ExpenseAttachment `json:"attachments,omitempty" gorm:"foreignKey:ExpenseID"`
}

func (Expense) TableName() string {
	return "expenses"
}

// IsDecidable reports whether a decision may still be taken. Decisions are
// single-shot: once approved or rejected the expense never returns to
// pending.
func (e *Expense) IsDecidable() bool {
	return e.Status == StatusPending
}

// ExpenseApproval is the immutable audit record of one decision. Rows are
// append-only; nothing updates or deletes them.
type ExpenseApproval struct {
	ID          uuid.UUID `json:"id" gorm:"type:uuid;primaryKey"`
	ExpenseID   uuid.UUID `json:"expense_id" gorm:"type:uuid;column:expense_id;not null"`
	Action      string    `json:"action" gorm:"column:action;not null"`
	ActorUserID string    `json:"actor_user_id" gorm:"column:actor_user_id;not null"`
	Note        *string   `json:"note,omitempty" gorm:"column:note"`
	CreatedAt   time.Time `json:"created_at" gorm:"column:created_at"`
	CreatedBy   string    `json:"created_by" gorm:"column:created_by"`
}

func (ExpenseApproval) TableName() string {
	return "expense_approvals"
}

// ExpenseAttachment holds metadata about an uploaded receipt. The blob
// itself lives in an external store keyed by StoredFileName.
type ExpenseAttachment struct {
	ID               uuid.UUID `json:"id" gorm:"type:uuid;primaryKey"`
	ExpenseID        uuid.UUID `json:"expense_id" gorm:"type:uuid;column:expense_id;not null"`
	OriginalFileName string    `json:"original_file_name" gorm:"column:original_file_name"`
	StoredFileName   string    `json:"stored_file_name" gorm:"column:stored_file_name"`
	DataType         string    `json:"data_type" gorm:"column:data_type"`
	FileSize         int64     `json:"file_size" gorm:"column:file_size"`
	UploadedByUserID string    `json:"uploaded_by_user_id" gorm:"column:uploaded_by_user_id"`
	UploadedAt       time.Time `json:"uploaded_at" gorm:"column:uploaded_at"`
}

func (ExpenseAttachment) TableName() string {
	return "expense_attachments"
}

// Decision carries one approve/reject outcome into storage. NewStatus and
// RejectionNote are derived from Action by the service.
type Decision struct {
	Action        string
	NewStatus     string
	ActorUserID   string
	Note          *string
	RejectionNote *string
	DecidedAt     time.Time
}

// ListFilter narrows List results. Zero values mean "no filter".
type ListFilter struct {
	WorkplaceID    uuid.UUID
	EmployeeUserID string
	Status         string
}
