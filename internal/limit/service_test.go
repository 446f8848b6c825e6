package limit_test

import (
	"context"
	"log/slog"
	"os"
	"testing"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/google/uuid"

	"github.com/piae/company-expenses/internal"
	"github.com/piae/company-expenses/internal/auth"
	"github.com/piae/company-expenses/internal/limit"
)

func TestLimitService(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Limit Service Suite")
}

type mockLimitRepository struct {
	limits   map[uuid.UUID]*limit.WorkplaceLimit
	consumed int64
}

func newMockLimitRepository() *mockLimitRepository {
	return &mockLimitRepository{limits: make(map[uuid.UUID]*limit.WorkplaceLimit)}
}

func (m *mockLimitRepository) overlapExists(lim *limit.WorkplaceLimit, excludeID uuid.UUID) bool {
	for _, existing := range m.limits {
		if existing.ID == excludeID || !existing.IsActive {
			continue
		}
		if !existing.SameScope(lim) {
			continue
		}
		if limit.PeriodsOverlap(lim.PeriodFrom, lim.PeriodTo, existing.PeriodFrom, existing.PeriodTo) {
			return true
		}
	}
	return false
}

func (m *mockLimitRepository) Create(ctx context.Context, lim *limit.WorkplaceLimit) error {
	if m.overlapExists(lim, uuid.Nil) {
		return internal.ErrLimitOverlap
	}
	m.limits[lim.ID] = lim
	return nil
}

func (m *mockLimitRepository) Update(ctx context.Context, lim *limit.WorkplaceLimit) error {
	if _, exists := m.limits[lim.ID]; !exists {
		return internal.ErrLimitNotFound
	}
	if m.overlapExists(lim, lim.ID) {
		return internal.ErrLimitOverlap
	}
	cp := *lim
	m.limits[lim.ID] = &cp
	return nil
}

func (m *mockLimitRepository) GetByID(ctx context.Context, id uuid.UUID) (*limit.WorkplaceLimit, error) {
	lim, exists := m.limits[id]
	if !exists {
		return nil, internal.ErrLimitNotFound
	}
	cp := *lim
	return &cp, nil
}

func (m *mockLimitRepository) GetByWorkplace(ctx context.Context, workplaceID uuid.UUID) ([]*limit.WorkplaceLimit, error) {
	var out []*limit.WorkplaceLimit
	for _, lim := range m.limits {
		if lim.WorkplaceID == workplaceID && lim.IsActive {
			out = append(out, lim)
		}
	}
	return out, nil
}

func (m *mockLimitRepository) Deactivate(ctx context.Context, id uuid.UUID) error {
	lim, exists := m.limits[id]
	if !exists || !lim.IsActive {
		return internal.ErrLimitNotFound
	}
	lim.IsActive = false
	return nil
}

func (m *mockLimitRepository) ConsumedAmount(ctx context.Context, lim *limit.WorkplaceLimit, asOf time.Time) (int64, error) {
	return m.consumed, nil
}

type mockChecker struct {
	active map[uuid.UUID]bool
}

func (m *mockChecker) ExistsActive(ctx context.Context, id uuid.UUID) (bool, error) {
	return m.active[id], nil
}

type mockManagerChecker struct {
	managers map[string]uuid.UUID
}

func (m *mockManagerChecker) IsManagerOf(ctx context.Context, workplaceID uuid.UUID, userID string) (bool, error) {
	wp, ok := m.managers[userID]
	return ok && wp == workplaceID, nil
}

var _ = Describe("LimitService", func() {
	var (
		service     *limit.Service
		mockRepo    *mockLimitRepository
		workplaces  *mockChecker
		categories  *mockChecker
		managers    *mockManagerChecker
		ctx         context.Context
		workplaceID uuid.UUID
		categoryID  uuid.UUID
		admin       *auth.User
		manager     *auth.User
		outsider    *auth.User
	)

	date := func(s string) time.Time {
		t, err := time.Parse("2006-01-02", s)
		Expect(err).ToNot(HaveOccurred())
		return t
	}

	BeforeEach(func() {
		ctx = context.Background()
		workplaceID = uuid.New()
		categoryID = uuid.New()
		mockRepo = newMockLimitRepository()
		workplaces = &mockChecker{active: map[uuid.UUID]bool{workplaceID: true}}
		categories = &mockChecker{active: map[uuid.UUID]bool{categoryID: true}}
		admin = &auth.User{ID: "admin-1", Roles: []string{"admin"}}
		manager = &auth.User{ID: "manager-1"}
		outsider = &auth.User{ID: "outsider-1"}
		managers = &mockManagerChecker{managers: map[string]uuid.UUID{manager.ID: workplaceID}}
		logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
		service = limit.NewService(mockRepo, workplaces, categories, managers, logger)
	})

	createLimit := func(from, to string) *limit.WorkplaceLimit {
		lim, err := service.Create(ctx, admin, limit.CreateLimitDTO{
			WorkplaceID: workplaceID,
			PeriodFrom:  date(from),
			PeriodTo:    date(to),
			LimitAmount: 5000000,
		})
		Expect(err).ToNot(HaveOccurred())
		return lim
	}

	Describe("Create", func() {
		It("should create an active CZK limit by default", func() {
			lim := createLimit("2026-01-01", "2026-01-31")

			Expect(lim.IsActive).To(BeTrue())
			Expect(lim.Currency).To(Equal("CZK"))
			Expect(lim.LimitAmount).To(Equal(int64(5000000)))
		})

		It("should refuse an overlapping period for the same scope", func() {
			createLimit("2026-01-01", "2026-01-31")

			_, err := service.Create(ctx, admin, limit.CreateLimitDTO{
				WorkplaceID: workplaceID,
				PeriodFrom:  date("2026-01-15"),
				PeriodTo:    date("2026-02-15"),
				LimitAmount: 1000000,
			})

			Expect(err).To(MatchError(internal.ErrLimitOverlap))
		})

		It("should allow adjacent periods one day apart", func() {
			createLimit("2026-01-01", "2026-01-31")

			_, err := service.Create(ctx, admin, limit.CreateLimitDTO{
				WorkplaceID: workplaceID,
				PeriodFrom:  date("2026-02-01"),
				PeriodTo:    date("2026-02-28"),
				LimitAmount: 1000000,
			})

			Expect(err).ToNot(HaveOccurred())
		})

		It("should allow an overlapping period for a different category scope", func() {
			createLimit("2026-01-01", "2026-01-31")

			_, err := service.Create(ctx, admin, limit.CreateLimitDTO{
				WorkplaceID: workplaceID,
				CategoryID:  &categoryID,
				PeriodFrom:  date("2026-01-01"),
				PeriodTo:    date("2026-01-31"),
				LimitAmount: 1000000,
			})

			Expect(err).ToNot(HaveOccurred())
		})

		It("should allow an overlapping period once the colliding limit is deactivated", func() {
			lim := createLimit("2026-01-01", "2026-01-31")
			Expect(service.Deactivate(ctx, lim.ID, admin)).To(Succeed())

			_, err := service.Create(ctx, admin, limit.CreateLimitDTO{
				WorkplaceID: workplaceID,
				PeriodFrom:  date("2026-01-01"),
				PeriodTo:    date("2026-01-31"),
				LimitAmount: 1000000,
			})

			Expect(err).ToNot(HaveOccurred())
		})

		It("should reject an inverted period", func() {
			_, err := service.Create(ctx, admin, limit.CreateLimitDTO{
				WorkplaceID: workplaceID,
				PeriodFrom:  date("2026-02-01"),
				PeriodTo:    date("2026-01-01"),
				LimitAmount: 1000000,
			})

			Expect(err).To(HaveOccurred())
			appErr, ok := internal.IsAppError(err)
			Expect(ok).To(BeTrue())
			Expect(appErr.Code).To(Equal(internal.ErrCodeInvalidPeriod))
		})

		It("should deny creation by a non-manager", func() {
			_, err := service.Create(ctx, outsider, limit.CreateLimitDTO{
				WorkplaceID: workplaceID,
				PeriodFrom:  date("2026-01-01"),
				PeriodTo:    date("2026-01-31"),
				LimitAmount: 1000000,
			})

			Expect(err).To(MatchError(internal.ErrUnauthorizedAccess))
		})

		It("should allow creation by the workplace manager", func() {
			_, err := service.Create(ctx, manager, limit.CreateLimitDTO{
				WorkplaceID: workplaceID,
				PeriodFrom:  date("2026-01-01"),
				PeriodTo:    date("2026-01-31"),
				LimitAmount: 1000000,
			})

			Expect(err).ToNot(HaveOccurred())
		})
	})

	Describe("Update", func() {
		It("should save a limit over its own unchanged period", func() {
			lim := createLimit("2026-01-01", "2026-01-31")

			updated, err := service.Update(ctx, lim.ID, admin, limit.UpdateLimitDTO{
				PeriodFrom:  date("2026-01-01"),
				PeriodTo:    date("2026-01-31"),
				LimitAmount: 7500000,
			})

			Expect(err).ToNot(HaveOccurred())
			Expect(updated.LimitAmount).To(Equal(int64(7500000)))
		})

		It("should refuse moving onto another limit's period", func() {
			createLimit("2026-01-01", "2026-01-31")
			lim := createLimit("2026-02-01", "2026-02-28")

			_, err := service.Update(ctx, lim.ID, admin, limit.UpdateLimitDTO{
				PeriodFrom:  date("2026-01-15"),
				PeriodTo:    date("2026-02-28"),
				LimitAmount: 1000000,
			})

			Expect(err).To(MatchError(internal.ErrLimitOverlap))
		})

		It("should return not found for an unknown limit", func() {
			_, err := service.Update(ctx, uuid.New(), admin, limit.UpdateLimitDTO{
				PeriodFrom:  date("2026-01-01"),
				PeriodTo:    date("2026-01-31"),
				LimitAmount: 1000000,
			})

			Expect(err).To(MatchError(internal.ErrLimitNotFound))
		})
	})

	Describe("Utilization", func() {
		It("should report the consumed amount against the limit", func() {
			lim := createLimit("2026-01-01", "2026-01-31")
			mockRepo.consumed = 1250000

			util, err := service.Utilization(ctx, lim.ID, date("2026-01-20"))

			Expect(err).ToNot(HaveOccurred())
			Expect(util.Limit.ID).To(Equal(lim.ID))
			Expect(util.ConsumedAmount).To(Equal(int64(1250000)))
			Expect(util.AsOf).To(Equal(date("2026-01-20")))
		})

		It("should default as-of to now", func() {
			lim := createLimit("2026-01-01", "2026-01-31")

			util, err := service.Utilization(ctx, lim.ID, time.Time{})

			Expect(err).ToNot(HaveOccurred())
			Expect(util.AsOf).To(BeTemporally("~", time.Now(), time.Minute))
		})
	})

	Describe("Deactivate", func() {
		It("should retire the limit from workplace listings", func() {
			lim := createLimit("2026-01-01", "2026-01-31")

			Expect(service.Deactivate(ctx, lim.ID, admin)).To(Succeed())

			limits, err := service.ListForWorkplace(ctx, workplaceID)
			Expect(err).ToNot(HaveOccurred())
			Expect(limits).To(BeEmpty())
		})
	})
})
