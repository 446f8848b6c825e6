package expense_test

import (
	"context"
	"log/slog"
	"os"
	"sort"
	"testing"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/google/uuid"

	"github.com/piae/company-expenses/internal"
	"github.com/piae/company-expenses/internal/auth"
	"github.com/piae/company-expenses/internal/expense"
)

func TestExpenseService(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Expense Service Suite")
}

type mockExpenseRepository struct {
	expenses    map[uuid.UUID]*expense.Expense
	approvals   map[uuid.UUID][]*expense.ExpenseApproval
	attachments map[uuid.UUID][]*expense.ExpenseAttachment
	createError error
	getError    error
}

func newMockExpenseRepository() *mockExpenseRepository {
	return &mockExpenseRepository{
		expenses:    make(map[uuid.UUID]*expense.Expense),
		approvals:   make(map[uuid.UUID][]*expense.ExpenseApproval),
		attachments: make(map[uuid.UUID][]*expense.ExpenseAttachment),
	}
}

func (m *mockExpenseRepository) Create(ctx context.Context, exp *expense.Expense) error {
	if m.createError != nil {
		return m.createError
	}
	m.expenses[exp.ID] = exp
	return nil
}

func (m *mockExpenseRepository) GetByID(ctx context.Context, id uuid.UUID) (*expense.Expense, error) {
	if m.getError != nil {
		return nil, m.getError
	}
	exp, exists := m.expenses[id]
	if !exists || exp.IsDeleted {
		return nil, internal.ErrExpenseNotFound
	}
	return exp, nil
}

func (m *mockExpenseRepository) List(ctx context.Context, filter expense.ListFilter, limit, offset int) ([]*expense.Expense, error) {
	var out []*expense.Expense
	for _, exp := range m.expenses {
		if exp.IsDeleted {
			continue
		}
		if filter.WorkplaceID != uuid.Nil && exp.WorkplaceID != filter.WorkplaceID {
			continue
		}
		if filter.EmployeeUserID != "" && exp.EmployeeUserID != filter.EmployeeUserID {
			continue
		}
		if filter.Status != "" && exp.Status != filter.Status {
			continue
		}
		out = append(out, exp)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].ExpenseDate.After(out[j].ExpenseDate)
	})
	return out, nil
}

func (m *mockExpenseRepository) Decide(ctx context.Context, id uuid.UUID, decision expense.Decision) error {
	exp, exists := m.expenses[id]
	if !exists || exp.IsDeleted {
		return internal.ErrExpenseNotFound
	}
	if exp.Status != expense.StatusPending {
		return internal.ErrExpenseAlreadyDecided
	}
	exp.Status = decision.NewStatus
	exp.LastDecisionAt = &decision.DecidedAt
	exp.LastDecisionBy = &decision.ActorUserID
	exp.RejectionNote = decision.RejectionNote
	m.approvals[id] = append(m.approvals[id], &expense.ExpenseApproval{
		ID:          uuid.New(),
		ExpenseID:   id,
		Action:      decision.Action,
		ActorUserID: decision.ActorUserID,
		Note:        decision.Note,
		CreatedAt:   decision.DecidedAt,
	})
	return nil
}

func (m *mockExpenseRepository) SoftDelete(ctx context.Context, id uuid.UUID) error {
	exp, exists := m.expenses[id]
	if !exists || exp.IsDeleted {
		return internal.ErrExpenseNotFound
	}
	exp.IsDeleted = true
	return nil
}

func (m *mockExpenseRepository) AddAttachment(ctx context.Context, att *expense.ExpenseAttachment) error {
	m.attachments[att.ExpenseID] = append(m.attachments[att.ExpenseID], att)
	return nil
}

func (m *mockExpenseRepository) ListAttachments(ctx context.Context, expenseID uuid.UUID) ([]*expense.ExpenseAttachment, error) {
	return m.attachments[expenseID], nil
}

type mockChecker struct {
	active map[uuid.UUID]bool
	err    error
}

func (m *mockChecker) ExistsActive(ctx context.Context, id uuid.UUID) (bool, error) {
	if m.err != nil {
		return false, m.err
	}
	return m.active[id], nil
}

type mockManagerChecker struct {
	managers map[string]uuid.UUID
}

func (m *mockManagerChecker) IsManagerOf(ctx context.Context, workplaceID uuid.UUID, userID string) (bool, error) {
	wp, ok := m.managers[userID]
	return ok && wp == workplaceID, nil
}

var _ = Describe("ExpenseService", func() {
	var (
		service     *expense.Service
		mockRepo    *mockExpenseRepository
		workplaces  *mockChecker
		categories  *mockChecker
		managers    *mockManagerChecker
		logger      *slog.Logger
		ctx         context.Context
		workplaceID uuid.UUID
		categoryID  uuid.UUID
		employee    *auth.User
		manager     *auth.User
		admin       *auth.User
		outsider    *auth.User
	)

	BeforeEach(func() {
		ctx = context.Background()
		workplaceID = uuid.New()
		categoryID = uuid.New()
		mockRepo = newMockExpenseRepository()
		workplaces = &mockChecker{active: map[uuid.UUID]bool{workplaceID: true}}
		categories = &mockChecker{active: map[uuid.UUID]bool{categoryID: true}}
		employee = &auth.User{ID: "user-1", Email: "employee@example.com"}
		manager = &auth.User{ID: "manager-1", Email: "manager@example.com"}
		admin = &auth.User{ID: "admin-1", Email: "admin@example.com", Roles: []string{"admin"}}
		outsider = &auth.User{ID: "outsider-1", Email: "outsider@example.com"}
		managers = &mockManagerChecker{managers: map[string]uuid.UUID{manager.ID: workplaceID}}
		logger = slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
		service = expense.NewService(mockRepo, workplaces, categories, managers, logger)
	})

	submit := func() *expense.Expense {
		exp, err := service.Submit(ctx, employee, expense.CreateExpenseDTO{
			WorkplaceID: workplaceID,
			CategoryID:  categoryID,
			Amount:      125000,
			ExpenseDate: time.Now().Add(-24 * time.Hour),
		})
		Expect(err).ToNot(HaveOccurred())
		return exp
	}

	Describe("Submit", func() {
		Context("with a valid payload", func() {
			It("should create a pending expense owned by the actor", func() {
				exp := submit()

				Expect(exp.Status).To(Equal(expense.StatusPending))
				Expect(exp.EmployeeUserID).To(Equal(employee.ID))
				Expect(exp.Currency).To(Equal("CZK"))
				Expect(exp.SubmittedAt).ToNot(BeZero())
			})

			It("should keep an explicit currency", func() {
				exp, err := service.Submit(ctx, employee, expense.CreateExpenseDTO{
					WorkplaceID: workplaceID,
					CategoryID:  categoryID,
					Amount:      9900,
					Currency:    "EUR",
					ExpenseDate: time.Now().Add(-time.Hour),
				})

				Expect(err).ToNot(HaveOccurred())
				Expect(exp.Currency).To(Equal("EUR"))
			})
		})

		Context("when validation fails", func() {
			It("should reject a non-positive amount", func() {
				_, err := service.Submit(ctx, employee, expense.CreateExpenseDTO{
					WorkplaceID: workplaceID,
					CategoryID:  categoryID,
					Amount:      0,
					ExpenseDate: time.Now().Add(-time.Hour),
				})

				Expect(err).To(HaveOccurred())
				appErr, ok := internal.IsAppError(err)
				Expect(ok).To(BeTrue())
				Expect(appErr.Code).To(Equal(internal.ErrCodeInvalidAmount))
			})

			It("should reject a future expense date", func() {
				_, err := service.Submit(ctx, employee, expense.CreateExpenseDTO{
					WorkplaceID: workplaceID,
					CategoryID:  categoryID,
					Amount:      5000,
					ExpenseDate: time.Now().Add(48 * time.Hour),
				})

				Expect(err).To(HaveOccurred())
				appErr, ok := internal.IsAppError(err)
				Expect(ok).To(BeTrue())
				Expect(appErr.Code).To(Equal(internal.ErrCodeInvalidDate))
			})
		})

		Context("when the workplace is unknown or inactive", func() {
			It("should return a validation error", func() {
				_, err := service.Submit(ctx, employee, expense.CreateExpenseDTO{
					WorkplaceID: uuid.New(),
					CategoryID:  categoryID,
					Amount:      5000,
					ExpenseDate: time.Now().Add(-time.Hour),
				})

				Expect(err).To(HaveOccurred())
				appErr, ok := internal.IsAppError(err)
				Expect(ok).To(BeTrue())
				Expect(appErr.Code).To(Equal(internal.ErrCodeInvalidWorkplace))
			})
		})

		Context("when the category is unknown or inactive", func() {
			It("should return a validation error", func() {
				_, err := service.Submit(ctx, employee, expense.CreateExpenseDTO{
					WorkplaceID: workplaceID,
					CategoryID:  uuid.New(),
					Amount:      5000,
					ExpenseDate: time.Now().Add(-time.Hour),
				})

				Expect(err).To(HaveOccurred())
				appErr, ok := internal.IsAppError(err)
				Expect(ok).To(BeTrue())
				Expect(appErr.Code).To(Equal(internal.ErrCodeInvalidCategory))
			})
		})
	})

	Describe("Approve", func() {
		Context("when a workplace manager approves a pending expense", func() {
			It("should set approved status and record exactly one approval", func() {
				exp := submit()

				err := service.Approve(ctx, exp.ID, manager, nil)

				Expect(err).ToNot(HaveOccurred())
				Expect(mockRepo.expenses[exp.ID].Status).To(Equal(expense.StatusApproved))
				Expect(mockRepo.approvals[exp.ID]).To(HaveLen(1))
				Expect(mockRepo.approvals[exp.ID][0].Action).To(Equal(expense.ActionApproved))
				Expect(mockRepo.approvals[exp.ID][0].ActorUserID).To(Equal(manager.ID))
			})
		})

		Context("when an admin approves", func() {
			It("should succeed without a manager membership", func() {
				exp := submit()

				Expect(service.Approve(ctx, exp.ID, admin, nil)).To(Succeed())
			})
		})

		Context("when the caller is neither admin nor manager", func() {
			It("should deny the decision", func() {
				exp := submit()

				err := service.Approve(ctx, exp.ID, outsider, nil)

				Expect(err).To(MatchError(internal.ErrUnauthorizedAccess))
				Expect(mockRepo.expenses[exp.ID].Status).To(Equal(expense.StatusPending))
			})
		})

		Context("when the expense is already decided", func() {
			It("should fail and not add a second approval row", func() {
				exp := submit()
				Expect(service.Approve(ctx, exp.ID, manager, nil)).To(Succeed())

				err := service.Approve(ctx, exp.ID, admin, nil)

				Expect(err).To(MatchError(internal.ErrExpenseAlreadyDecided))
				Expect(mockRepo.approvals[exp.ID]).To(HaveLen(1))
			})
		})

		Context("when the expense does not exist", func() {
			It("should return not found", func() {
				err := service.Approve(ctx, uuid.New(), admin, nil)

				Expect(err).To(MatchError(internal.ErrExpenseNotFound))
			})
		})
	})

	Describe("Reject", func() {
		Context("when rejecting with a note", func() {
			It("should store the note on the expense and in the approval row", func() {
				exp := submit()

				err := service.Reject(ctx, exp.ID, manager, "missing receipt")

				Expect(err).ToNot(HaveOccurred())
				Expect(mockRepo.expenses[exp.ID].Status).To(Equal(expense.StatusRejected))
				Expect(mockRepo.expenses[exp.ID].RejectionNote).ToNot(BeNil())
				Expect(*mockRepo.expenses[exp.ID].RejectionNote).To(Equal("missing receipt"))
				Expect(mockRepo.approvals[exp.ID]).To(HaveLen(1))
				Expect(mockRepo.approvals[exp.ID][0].Action).To(Equal(expense.ActionRejected))
			})
		})

		Context("when the note is missing", func() {
			It("should fail validation before touching the expense", func() {
				exp := submit()

				err := service.Reject(ctx, exp.ID, manager, "")

				Expect(err).To(HaveOccurred())
				Expect(mockRepo.expenses[exp.ID].Status).To(Equal(expense.StatusPending))
			})
		})

		Context("after a rejection", func() {
			It("should refuse a second decision without a second row", func() {
				exp := submit()
				Expect(service.Reject(ctx, exp.ID, manager, "missing receipt")).To(Succeed())

				err := service.Approve(ctx, exp.ID, manager, nil)

				Expect(err).To(MatchError(internal.ErrExpenseAlreadyDecided))
				Expect(mockRepo.approvals[exp.ID]).To(HaveLen(1))
			})
		})
	})

	Describe("SoftDelete", func() {
		Context("when the owner deletes", func() {
			It("should hide the expense from later reads", func() {
				exp := submit()

				Expect(service.SoftDelete(ctx, exp.ID, employee)).To(Succeed())

				_, err := service.GetExpense(ctx, exp.ID, employee)
				Expect(err).To(MatchError(internal.ErrExpenseNotFound))
			})

			It("should make a repeat delete a not found", func() {
				exp := submit()
				Expect(service.SoftDelete(ctx, exp.ID, employee)).To(Succeed())

				err := service.SoftDelete(ctx, exp.ID, employee)

				Expect(err).To(MatchError(internal.ErrExpenseNotFound))
			})
		})

		Context("when a non-owner without admin role deletes", func() {
			It("should be denied", func() {
				exp := submit()

				err := service.SoftDelete(ctx, exp.ID, outsider)

				Expect(err).To(MatchError(internal.ErrUnauthorizedAccess))
			})
		})

		Context("when an admin deletes someone else's expense", func() {
			It("should succeed", func() {
				exp := submit()

				Expect(service.SoftDelete(ctx, exp.ID, admin)).To(Succeed())
			})
		})
	})

	Describe("List", func() {
		It("should exclude soft-deleted expenses", func() {
			exp1 := submit()
			submit()
			Expect(service.SoftDelete(ctx, exp1.ID, employee)).To(Succeed())

			out, err := service.List(ctx, expense.ListFilter{}, 50, 0)

			Expect(err).ToNot(HaveOccurred())
			Expect(out).To(HaveLen(1))
		})

		It("should reject an unknown status filter", func() {
			_, err := service.List(ctx, expense.ListFilter{Status: "bogus"}, 50, 0)

			Expect(err).To(HaveOccurred())
		})
	})

	Describe("Attachments", func() {
		It("should register metadata for the owner", func() {
			exp := submit()

			att, err := service.AddAttachment(ctx, exp.ID, employee, expense.AddAttachmentDTO{
				OriginalFileName: "receipt.pdf",
				StoredFileName:   "a1b2c3.pdf",
				DataType:         "application/pdf",
				FileSize:         2048,
			})

			Expect(err).ToNot(HaveOccurred())
			Expect(att.UploadedByUserID).To(Equal(employee.ID))

			atts, err := service.ListAttachments(ctx, exp.ID, employee)
			Expect(err).ToNot(HaveOccurred())
			Expect(atts).To(HaveLen(1))
		})

		It("should deny attachment upload by an outsider", func() {
			exp := submit()

			_, err := service.AddAttachment(ctx, exp.ID, outsider, expense.AddAttachmentDTO{
				OriginalFileName: "receipt.pdf",
				StoredFileName:   "a1b2c3.pdf",
				FileSize:         2048,
			})

			Expect(err).To(MatchError(internal.ErrUnauthorizedAccess))
		})
	})
})
