package postgres_test

import (
	"context"
	"testing"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/piae/company-expenses/internal"
	"github.com/piae/company-expenses/internal/expense"
	expensePostgres "github.com/piae/company-expenses/internal/expense/postgres"
)

func TestExpenseRepository(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Expense Repository Suite")
}

var _ = Describe("Expense Repository", func() {
	var (
		db   *gorm.DB
		repo expense.Repository
		ctx  context.Context
	)

	newExpense := func(date time.Time) *expense.Expense {
		return &expense.Expense{
			ID:             uuid.New(),
			EmployeeUserID: "user-1",
			WorkplaceID:    uuid.New(),
			CategoryID:     uuid.New(),
			Amount:         125000,
			Currency:       "CZK",
			ExpenseDate:    date,
			Status:         expense.StatusPending,
			SubmittedAt:    time.Now().UTC(),
			CreatedAt:      time.Now().UTC(),
			CreatedBy:      "user-1",
		}
	}

	BeforeEach(func() {
		var err error
		ctx = context.Background()
		db, err = gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
			Logger: logger.Default.LogMode(logger.Silent),
		})
		Expect(err).NotTo(HaveOccurred())

		err = db.AutoMigrate(&expense.Expense{}, &expense.ExpenseApproval{}, &expense.ExpenseAttachment{})
		Expect(err).NotTo(HaveOccurred())

		repo = expensePostgres.NewExpenseRepository(db)
	})

	Describe("Create and GetByID", func() {
		It("should round-trip an expense", func() {
			exp := newExpense(time.Now().AddDate(0, 0, -1))

			Expect(repo.Create(ctx, exp)).To(Succeed())

			found, err := repo.GetByID(ctx, exp.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(found.ID).To(Equal(exp.ID))
			Expect(found.Status).To(Equal(expense.StatusPending))
			Expect(found.Amount).To(Equal(int64(125000)))
		})

		It("should not find an unknown id", func() {
			_, err := repo.GetByID(ctx, uuid.New())

			Expect(err).To(MatchError(internal.ErrExpenseNotFound))
		})
	})

	Describe("Decide", func() {
		It("should approve a pending expense and write one approval row", func() {
			exp := newExpense(time.Now().AddDate(0, 0, -1))
			Expect(repo.Create(ctx, exp)).To(Succeed())

			err := repo.Decide(ctx, exp.ID, expense.Decision{
				Action:      expense.ActionApproved,
				NewStatus:   expense.StatusApproved,
				ActorUserID: "manager-1",
				DecidedAt:   time.Now().UTC(),
			})
			Expect(err).NotTo(HaveOccurred())

			found, err := repo.GetByID(ctx, exp.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(found.Status).To(Equal(expense.StatusApproved))
			Expect(found.LastDecisionBy).NotTo(BeNil())
			Expect(*found.LastDecisionBy).To(Equal("manager-1"))
			Expect(found.Approvals).To(HaveLen(1))
			Expect(found.Approvals[0].Action).To(Equal(expense.ActionApproved))
		})

		It("should store the rejection note on reject", func() {
			exp := newExpense(time.Now().AddDate(0, 0, -1))
			Expect(repo.Create(ctx, exp)).To(Succeed())

			note := "missing receipt"
			err := repo.Decide(ctx, exp.ID, expense.Decision{
				Action:        expense.ActionRejected,
				NewStatus:     expense.StatusRejected,
				ActorUserID:   "manager-1",
				Note:          &note,
				RejectionNote: &note,
				DecidedAt:     time.Now().UTC(),
			})
			Expect(err).NotTo(HaveOccurred())

			found, err := repo.GetByID(ctx, exp.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(found.Status).To(Equal(expense.StatusRejected))
			Expect(found.RejectionNote).NotTo(BeNil())
			Expect(*found.RejectionNote).To(Equal(note))
		})

		It("should refuse a second decision and keep a single approval row", func() {
			exp := newExpense(time.Now().AddDate(0, 0, -1))
			Expect(repo.Create(ctx, exp)).To(Succeed())

			decision := expense.Decision{
				Action:      expense.ActionApproved,
				NewStatus:   expense.StatusApproved,
				ActorUserID: "manager-1",
				DecidedAt:   time.Now().UTC(),
			}
			Expect(repo.Decide(ctx, exp.ID, decision)).To(Succeed())

			err := repo.Decide(ctx, exp.ID, decision)
			Expect(err).To(MatchError(internal.ErrExpenseAlreadyDecided))

			var count int64
			Expect(db.Model(&expense.ExpenseApproval{}).Where("expense_id = ?", exp.ID).Count(&count).Error).To(Succeed())
			Expect(count).To(Equal(int64(1)))
		})

		It("should return not found for an unknown expense", func() {
			err := repo.Decide(ctx, uuid.New(), expense.Decision{
				Action:      expense.ActionApproved,
				NewStatus:   expense.StatusApproved,
				ActorUserID: "manager-1",
				DecidedAt:   time.Now().UTC(),
			})

			Expect(err).To(MatchError(internal.ErrExpenseNotFound))
		})
	})

	Describe("SoftDelete", func() {
		It("should hide the expense from reads and listings", func() {
			exp := newExpense(time.Now().AddDate(0, 0, -1))
			Expect(repo.Create(ctx, exp)).To(Succeed())

			Expect(repo.SoftDelete(ctx, exp.ID)).To(Succeed())

			_, err := repo.GetByID(ctx, exp.ID)
			Expect(err).To(MatchError(internal.ErrExpenseNotFound))

			out, err := repo.List(ctx, expense.ListFilter{}, 50, 0)
			Expect(err).NotTo(HaveOccurred())
			Expect(out).To(BeEmpty())
		})

		It("should treat a repeat delete as not found", func() {
			exp := newExpense(time.Now().AddDate(0, 0, -1))
			Expect(repo.Create(ctx, exp)).To(Succeed())
			Expect(repo.SoftDelete(ctx, exp.ID)).To(Succeed())

			Expect(repo.SoftDelete(ctx, exp.ID)).To(MatchError(internal.ErrExpenseNotFound))
		})
	})

	Describe("List", func() {
		It("should order by expense date descending", func() {
			older := newExpense(time.Now().AddDate(0, 0, -10))
			newer := newExpense(time.Now().AddDate(0, 0, -1))
			middle := newExpense(time.Now().AddDate(0, 0, -5))
			for _, exp := range []*expense.Expense{older, newer, middle} {
				Expect(repo.Create(ctx, exp)).To(Succeed())
			}

			out, err := repo.List(ctx, expense.ListFilter{}, 50, 0)

			Expect(err).NotTo(HaveOccurred())
			Expect(out).To(HaveLen(3))
			Expect(out[0].ID).To(Equal(newer.ID))
			Expect(out[1].ID).To(Equal(middle.ID))
			Expect(out[2].ID).To(Equal(older.ID))
		})

		It("should filter by status and employee", func() {
			exp1 := newExpense(time.Now().AddDate(0, 0, -1))
			exp2 := newExpense(time.Now().AddDate(0, 0, -2))
			exp2.EmployeeUserID = "user-2"
			Expect(repo.Create(ctx, exp1)).To(Succeed())
			Expect(repo.Create(ctx, exp2)).To(Succeed())
			Expect(repo.Decide(ctx, exp1.ID, expense.Decision{
				Action:      expense.ActionApproved,
				NewStatus:   expense.StatusApproved,
				ActorUserID: "manager-1",
				DecidedAt:   time.Now().UTC(),
			})).To(Succeed())

			approved, err := repo.List(ctx, expense.ListFilter{Status: expense.StatusApproved}, 50, 0)
			Expect(err).NotTo(HaveOccurred())
			Expect(approved).To(HaveLen(1))
			Expect(approved[0].ID).To(Equal(exp1.ID))

			byUser, err := repo.List(ctx, expense.ListFilter{EmployeeUserID: "user-2"}, 50, 0)
			Expect(err).NotTo(HaveOccurred())
			Expect(byUser).To(HaveLen(1))
			Expect(byUser[0].ID).To(Equal(exp2.ID))
		})
	})

	Describe("Attachments", func() {
		It("should store and list receipt metadata", func() {
			exp := newExpense(time.Now().AddDate(0, 0, -1))
			Expect(repo.Create(ctx, exp)).To(Succeed())

			att := &expense.ExpenseAttachment{
				ID:               uuid.New(),
				ExpenseID:        exp.ID,
				OriginalFileName: "receipt.pdf",
				StoredFileName:   "a1b2c3.pdf",
				DataType:         "application/pdf",
				FileSize:         2048,
				UploadedByUserID: "user-1",
				UploadedAt:       time.Now().UTC(),
			}
			Expect(repo.AddAttachment(ctx, att)).To(Succeed())

			atts, err := repo.ListAttachments(ctx, exp.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(atts).To(HaveLen(1))
			Expect(atts[0].OriginalFileName).To(Equal("receipt.pdf"))
		})
	})
})
