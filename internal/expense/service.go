package expense

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/piae/company-expenses/internal"
	"github.com/piae/company-expenses/internal/auth"
)

// Repository is the storage contract for expenses. Decide must apply the
// status update and the approval insert atomically, re-checking the pending
// guard inside the same transaction; a losing concurrent caller gets
// internal.ErrExpenseAlreadyDecided, never a silent overwrite.
type Repository interface {
	Create(ctx context.Context, exp *Expense) error
	GetByID(ctx context.Context, id uuid.UUID) (*Expense, error)
	List(ctx context.Context, filter ListFilter, limit, offset int) ([]*Expense, error)
	Decide(ctx context.Context, id uuid.UUID, decision Decision) error
	SoftDelete(ctx context.Context, id uuid.UUID) error
	AddAttachment(ctx context.Context, att *ExpenseAttachment) error
	ListAttachments(ctx context.Context, expenseID uuid.UUID) ([]*ExpenseAttachment, error)
}

// WorkplaceChecker and CategoryChecker are the slices of the workplace and
// category repositories the lifecycle engine needs for submission
// validation.
type WorkplaceChecker interface {
	ExistsActive(ctx context.Context, id uuid.UUID) (bool, error)
}

type CategoryChecker interface {
	ExistsActive(ctx context.Context, id uuid.UUID) (bool, error)
}

// ManagerChecker answers whether a user manages a workplace; decisions
// require either an admin role or a manager membership there.
type ManagerChecker interface {
	IsManagerOf(ctx context.Context, workplaceID uuid.UUID, userID string) (bool, error)
}

type Service struct {
	repo       Repository
	workplaces WorkplaceChecker
	categories CategoryChecker
	managers   ManagerChecker
	logger     *slog.Logger
}

func NewService(repo Repository, workplaces WorkplaceChecker, categories CategoryChecker, managers ManagerChecker, logger *slog.Logger) *Service {
	return &Service{
		repo:       repo,
		workplaces: workplaces,
		categories: categories,
		managers:   managers,
		logger:     logger,
	}
}

// Submit creates a new expense in pending state on behalf of the actor.
func (s *Service) Submit(ctx context.Context, actor *auth.User, dto CreateExpenseDTO) (*Expense, error) {
	if err := dto.Validate(); err != nil {
		s.logger.Warn("expense validation failed", "error", err, "user_id", actor.ID)
		return nil, err
	}

	ok, err := s.workplaces.ExistsActive(ctx, dto.WorkplaceID)
	if err != nil {
		return nil, internal.NewInternalError("failed to check workplace", err)
	}
	if !ok {
		return nil, internal.NewValidationError("workplace does not exist or is inactive", internal.ErrCodeInvalidWorkplace)
	}

	ok, err = s.categories.ExistsActive(ctx, dto.CategoryID)
	if err != nil {
		return nil, internal.NewInternalError("failed to check category", err)
	}
	if !ok {
		return nil, internal.NewValidationError("category does not exist or is inactive", internal.ErrCodeInvalidCategory)
	}

	currency := dto.Currency
	if currency == "" {
		currency = "CZK"
	}

	now := time.Now().UTC()
	exp := &Expense{
		ID:             uuid.New(),
		EmployeeUserID: actor.ID,
		WorkplaceID:    dto.WorkplaceID,
		CategoryID:     dto.CategoryID,
		Amount:         dto.Amount,
		Currency:       currency,
		ExpenseDate:    dto.ExpenseDate,
		Description:    dto.Description,
		Status:         StatusPending,
		SubmittedAt:    now,
		CreatedAt:      now,
		CreatedBy:      actor.ID,
	}

	if err := s.repo.Create(ctx, exp); err != nil {
		s.logger.Error("failed to create expense", "error", err, "user_id", actor.ID)
		return nil, internal.NewInternalError("failed to create expense", err)
	}

	s.logger.Info("expense submitted",
		"expense_id", exp.ID,
		"user_id", actor.ID,
		"workplace_id", exp.WorkplaceID,
		"amount", exp.Amount,
		"currency", exp.Currency)

	return exp, nil
}

// GetExpense returns one expense with its approval history and attachment
// metadata. Soft-deleted expenses are not found.
func (s *Service) GetExpense(ctx context.Context, id uuid.UUID, actor *auth.User) (*Expense, error) {
	exp, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if exp.EmployeeUserID != actor.ID && !actor.IsAdmin() {
		isManager, merr := s.managers.IsManagerOf(ctx, exp.WorkplaceID, actor.ID)
		if merr != nil {
			return nil, internal.NewInternalError("failed to check membership", merr)
		}
		if !isManager {
			s.logger.Warn("expense access denied", "expense_id", id, "user_id", actor.ID)
			return nil, internal.ErrUnauthorizedAccess
		}
	}

	return exp, nil
}

// List returns active expenses ordered by expense date descending. The
// ordering is part of the contract, not incidental.
func (s *Service) List(ctx context.Context, filter ListFilter, limit, offset int) ([]*Expense, error) {
	if filter.Status != "" {
		switch filter.Status {
		case StatusPending, StatusApproved, StatusRejected, StatusPaid:
		default:
			return nil, internal.NewValidationError("unknown status filter", internal.ErrCodeValidationFailed)
		}
	}

	expenses, err := s.repo.List(ctx, filter, limit, offset)
	if err != nil {
		s.logger.Error("failed to list expenses", "error", err)
		return nil, internal.NewInternalError("failed to list expenses", err)
	}
	return expenses, nil
}

// Approve decides a pending expense in the actor's favor.
func (s *Service) Approve(ctx context.Context, expenseID uuid.UUID, actor *auth.User, note *string) error {
	return s.decide(ctx, expenseID, actor, ActionApproved, note)
}

// Reject decides a pending expense against the employee; the note is
// mandatory and stored on the expense itself as the rejection note.
func (s *Service) Reject(ctx context.Context, expenseID uuid.UUID, actor *auth.User, note string) error {
	if err := (RejectExpenseDTO{Note: note}).Validate(); err != nil {
		return err
	}
	return s.decide(ctx, expenseID, actor, ActionRejected, &note)
}

func (s *Service) decide(ctx context.Context, expenseID uuid.UUID, actor *auth.User, action string, note *string) error {
	exp, err := s.repo.GetByID(ctx, expenseID)
	if err != nil {
		return err
	}

	if !actor.IsAdmin() {
		isManager, merr := s.managers.IsManagerOf(ctx, exp.WorkplaceID, actor.ID)
		if merr != nil {
			return internal.NewInternalError("failed to check membership", merr)
		}
		if !isManager {
			s.logger.Warn("decision denied: not a manager",
				"expense_id", expenseID, "user_id", actor.ID, "workplace_id", exp.WorkplaceID)
			return internal.ErrUnauthorizedAccess
		}
	}

	// Early guard for a friendly error; the authoritative check happens
	// inside the repository transaction.
	if !exp.IsDecidable() {
		return internal.ErrExpenseAlreadyDecided
	}

	decision := Decision{
		Action:      action,
		ActorUserID: actor.ID,
		Note:        note,
		DecidedAt:   time.Now().UTC(),
	}
	switch action {
	case ActionApproved:
		decision.NewStatus = StatusApproved
	case ActionRejected:
		decision.NewStatus = StatusRejected
		decision.RejectionNote = note
	default:
		return internal.NewValidationError("unknown decision action", internal.ErrCodeValidationFailed)
	}

	if err := s.repo.Decide(ctx, expenseID, decision); err != nil {
		s.logger.Warn("decision failed", "error", err, "expense_id", expenseID, "action", action)
		return err
	}

	s.logger.Info("expense decided",
		"expense_id", expenseID,
		"action", action,
		"actor", actor.ID)
	return nil
}

// SoftDelete marks the expense deleted. Only the owner or an admin may do
// it; a repeat delete is a not-found because deleted rows are invisible.
func (s *Service) SoftDelete(ctx context.Context, expenseID uuid.UUID, actor *auth.User) error {
	exp, err := s.repo.GetByID(ctx, expenseID)
	if err != nil {
		return err
	}

	if exp.EmployeeUserID != actor.ID && !actor.IsAdmin() {
		s.logger.Warn("delete denied", "expense_id", expenseID, "user_id", actor.ID)
		return internal.ErrUnauthorizedAccess
	}

	if err := s.repo.SoftDelete(ctx, expenseID); err != nil {
		s.logger.Error("failed to delete expense", "error", err, "expense_id", expenseID)
		return err
	}

	s.logger.Info("expense deleted", "expense_id", expenseID, "actor", actor.ID)
	return nil
}

// AddAttachment registers receipt metadata on an existing expense.
func (s *Service) AddAttachment(ctx context.Context, expenseID uuid.UUID, actor *auth.User, dto AddAttachmentDTO) (*ExpenseAttachment, error) {
	if err := dto.Validate(); err != nil {
		return nil, err
	}

	exp, err := s.repo.GetByID(ctx, expenseID)
	if err != nil {
		return nil, err
	}
	if exp.EmployeeUserID != actor.ID && !actor.IsAdmin() {
		return nil, internal.ErrUnauthorizedAccess
	}

	att := &ExpenseAttachment{
		ID:               uuid.New(),
		ExpenseID:        expenseID,
		OriginalFileName: dto.OriginalFileName,
		StoredFileName:   dto.StoredFileName,
		DataType:         dto.DataType,
		FileSize:         dto.FileSize,
		UploadedByUserID: actor.ID,
		UploadedAt:       time.Now().UTC(),
	}

	if err := s.repo.AddAttachment(ctx, att); err != nil {
		s.logger.Error("failed to add attachment", "error", err, "expense_id", expenseID)
		return nil, internal.NewInternalError("failed to add attachment", err)
	}

	return att, nil
}

func (s *Service) ListAttachments(ctx context.Context, expenseID uuid.UUID, actor *auth.User) ([]*ExpenseAttachment, error) {
	if _, err := s.GetExpense(ctx, expenseID, actor); err != nil {
		return nil, err
	}
	return s.repo.ListAttachments(ctx, expenseID)
}
