package invitation_test

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
	"github.com/piae/company-expenses/internal/core/events"
	"github.com/piae/company-expenses/internal/invitation"
	"github.com/piae/company-expenses/internal/workplace"
)

func TestInvitationService(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Invitation Service Suite")
}

type mockInvitationRepository struct {
	invitations map[uuid.UUID]*invitation.Invitation
	members     []*workplace.WorkplaceMember
}

func newMockInvitationRepository() *mockInvitationRepository {
	return &mockInvitationRepository{
		invitations: make(map[uuid.UUID]*invitation.Invitation),
	}
}

func (m *mockInvitationRepository) Create(ctx context.Context, inv *invitation.Invitation) error {
	for _, existing := range m.invitations {
		if existing.Email == inv.Email && existing.Status == invitation.StatusPending {
			return internal.ErrPendingInvitation
		}
	}
	m.invitations[inv.ID] = inv
	return nil
}

func (m *mockInvitationRepository) GetByID(ctx context.Context, id uuid.UUID) (*invitation.Invitation, error) {
	inv, exists := m.invitations[id]
	if !exists {
		return nil, internal.ErrInvitationNotFound
	}
	cp := *inv
	return &cp, nil
}

func (m *mockInvitationRepository) GetByToken(ctx context.Context, token string) (*invitation.Invitation, error) {
	for _, inv := range m.invitations {
		if inv.Token == token {
			cp := *inv
			return &cp, nil
		}
	}
	return nil, internal.ErrInvitationNotFound
}

func (m *mockInvitationRepository) GetAll(ctx context.Context) ([]*invitation.Invitation, error) {
	var out []*invitation.Invitation
	for _, inv := range m.invitations {
		out = append(out, inv)
	}
	return out, nil
}

func (m *mockInvitationRepository) Update(ctx context.Context, inv *invitation.Invitation) error {
	if _, exists := m.invitations[inv.ID]; !exists {
		return internal.ErrInvitationNotFound
	}
	cp := *inv
	m.invitations[inv.ID] = &cp
	return nil
}

func (m *mockInvitationRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status string) error {
	inv, exists := m.invitations[id]
	if !exists {
		return internal.ErrInvitationNotFound
	}
	inv.Status = status
	return nil
}

func (m *mockInvitationRepository) Accept(ctx context.Context, id uuid.UUID, acceptedAt time.Time, member *workplace.WorkplaceMember) error {
	inv, exists := m.invitations[id]
	if !exists {
		return internal.ErrInvitationNotFound
	}
	if inv.Status != invitation.StatusPending {
		return internal.ErrInvitationUsed
	}
	inv.Status = invitation.StatusAccepted
	inv.AcceptedAt = &acceptedAt
	if member != nil {
		for _, existing := range m.members {
			if existing.WorkplaceID == member.WorkplaceID && existing.UserID == member.UserID {
				return nil
			}
		}
		m.members = append(m.members, member)
	}
	return nil
}

type mockWorkplaceDirectory struct {
	workplaces map[uuid.UUID]*workplace.Workplace
}

func (m *mockWorkplaceDirectory) ExistsActive(ctx context.Context, id uuid.UUID) (bool, error) {
	wp, ok := m.workplaces[id]
	return ok && wp.IsActive, nil
}

func (m *mockWorkplaceDirectory) GetByID(ctx context.Context, id uuid.UUID) (*workplace.Workplace, error) {
	wp, ok := m.workplaces[id]
	if !ok {
		return nil, internal.ErrWorkplaceNotFound
	}
	return wp, nil
}

var _ = Describe("InvitationService", func() {
	var (
		service     *invitation.Service
		mockRepo    *mockInvitationRepository
		directory   *mockWorkplaceDirectory
		bus         *events.EventBus
		logger      *slog.Logger
		ctx         context.Context
		admin       *auth.User
		workplaceID uuid.UUID
	)

	BeforeEach(func() {
		ctx = context.Background()
		mockRepo = newMockInvitationRepository()
		workplaceID = uuid.New()
		directory = &mockWorkplaceDirectory{workplaces: map[uuid.UUID]*workplace.Workplace{
			workplaceID: {ID: workplaceID, Name: "Head Office", IsActive: true},
		}}
		logger = slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
		bus = events.NewEventBus(logger)
		admin = &auth.User{ID: "admin-1", Email: "admin@example.com", Roles: []string{"admin"}}
		service = invitation.NewService(mockRepo, directory, bus, logger)
	})

	create := func(email string) *invitation.Invitation {
		inv, err := service.Create(ctx, admin, invitation.CreateInvitationDTO{
			Email:       email,
			WorkplaceID: &workplaceID,
		})
		Expect(err).ToNot(HaveOccurred())
		return inv
	}

	Describe("Create", func() {
		It("should issue a pending invitation with a token and 7-day expiry", func() {
			inv := create("new.hire@example.com")

			Expect(inv.Status).To(Equal(invitation.StatusPending))
			Expect(inv.Token).ToNot(BeEmpty())
			Expect(inv.ExpiresAt).To(BeTemporally("~", time.Now().Add(7*24*time.Hour), time.Minute))
			Expect(inv.InvitedByUserID).To(Equal(admin.ID))
		})

		It("should refuse a second pending invitation for the same email", func() {
			create("new.hire@example.com")

			_, err := service.Create(ctx, admin, invitation.CreateInvitationDTO{Email: "new.hire@example.com"})

			Expect(err).To(MatchError(internal.ErrPendingInvitation))
		})

		It("should allow a new invitation once the pending one is cancelled", func() {
			inv := create("new.hire@example.com")
			Expect(service.Cancel(ctx, inv.ID)).To(Succeed())

			_, err := service.Create(ctx, admin, invitation.CreateInvitationDTO{Email: "new.hire@example.com"})

			Expect(err).ToNot(HaveOccurred())
		})

		It("should reject an invalid email", func() {
			_, err := service.Create(ctx, admin, invitation.CreateInvitationDTO{Email: "not-an-email"})

			Expect(err).To(HaveOccurred())
		})

		It("should reject an unknown workplace", func() {
			unknown := uuid.New()
			_, err := service.Create(ctx, admin, invitation.CreateInvitationDTO{
				Email:       "new.hire@example.com",
				WorkplaceID: &unknown,
			})

			Expect(err).To(HaveOccurred())
		})
	})

	Describe("Verify", func() {
		It("should round-trip a freshly created invitation", func() {
			inv := create("new.hire@example.com")

			found, err := service.Verify(ctx, inv.Token)

			Expect(err).ToNot(HaveOccurred())
			Expect(found.ID).To(Equal(inv.ID))
			Expect(found.Email).To(Equal(inv.Email))
		})

		It("should return not found for an unknown token", func() {
			_, err := service.Verify(ctx, "no-such-token")

			Expect(err).To(MatchError(internal.ErrInvitationNotFound))
		})

		It("should persist expired status on first read past the deadline", func() {
			inv := create("new.hire@example.com")
			mockRepo.invitations[inv.ID].ExpiresAt = time.Now().Add(-time.Hour)

			_, err := service.Verify(ctx, inv.Token)

			Expect(err).To(MatchError(internal.ErrInvitationExpired))
			Expect(mockRepo.invitations[inv.ID].Status).To(Equal(invitation.StatusExpired))
		})

		It("should stay expired on later reads without flapping", func() {
			inv := create("new.hire@example.com")
			mockRepo.invitations[inv.ID].ExpiresAt = time.Now().Add(-time.Hour)

			_, err := service.Verify(ctx, inv.Token)
			Expect(err).To(MatchError(internal.ErrInvitationExpired))

			_, err = service.Verify(ctx, inv.Token)
			Expect(err).To(MatchError(internal.ErrInvitationExpired))
			Expect(mockRepo.invitations[inv.ID].Status).To(Equal(invitation.StatusExpired))
		})

		It("should report used invitations", func() {
			inv := create("new.hire@example.com")
			_, err := service.Accept(ctx, inv.ID, "user-9")
			Expect(err).ToNot(HaveOccurred())

			_, err = service.Verify(ctx, inv.Token)

			Expect(err).To(MatchError(internal.ErrInvitationUsed))
		})
	})

	Describe("Accept", func() {
		It("should mark accepted and create the workplace membership", func() {
			inv := create("new.hire@example.com")

			accepted, err := service.Accept(ctx, inv.ID, "user-9")

			Expect(err).ToNot(HaveOccurred())
			Expect(accepted.Status).To(Equal(invitation.StatusAccepted))
			Expect(accepted.AcceptedAt).ToNot(BeNil())
			Expect(mockRepo.members).To(HaveLen(1))
			Expect(mockRepo.members[0].UserID).To(Equal("user-9"))
			Expect(mockRepo.members[0].WorkplaceID).To(Equal(workplaceID))
			Expect(mockRepo.members[0].IsManager).To(BeFalse())
		})

		It("should not create a membership when no workplace is named", func() {
			inv, err := service.Create(ctx, admin, invitation.CreateInvitationDTO{Email: "solo@example.com"})
			Expect(err).ToNot(HaveOccurred())

			_, err = service.Accept(ctx, inv.ID, "user-9")

			Expect(err).ToNot(HaveOccurred())
			Expect(mockRepo.members).To(BeEmpty())
		})

		It("should refuse a second accept", func() {
			inv := create("new.hire@example.com")
			_, err := service.Accept(ctx, inv.ID, "user-9")
			Expect(err).ToNot(HaveOccurred())

			_, err = service.Accept(ctx, inv.ID, "user-10")

			Expect(err).To(MatchError(internal.ErrInvitationUsed))
			Expect(mockRepo.members).To(HaveLen(1))
		})

		It("should refuse an expired invitation and persist the expiry", func() {
			inv := create("new.hire@example.com")
			mockRepo.invitations[inv.ID].ExpiresAt = time.Now().Add(-time.Hour)

			_, err := service.Accept(ctx, inv.ID, "user-9")

			Expect(err).To(MatchError(internal.ErrInvitationExpired))
			Expect(mockRepo.invitations[inv.ID].Status).To(Equal(invitation.StatusExpired))
			Expect(mockRepo.members).To(BeEmpty())
		})
	})

	Describe("Cancel", func() {
		It("should cancel a pending invitation", func() {
			inv := create("new.hire@example.com")

			Expect(service.Cancel(ctx, inv.ID)).To(Succeed())
			Expect(mockRepo.invitations[inv.ID].Status).To(Equal(invitation.StatusCancelled))
		})

		It("should refuse to cancel an accepted invitation", func() {
			inv := create("new.hire@example.com")
			_, err := service.Accept(ctx, inv.ID, "user-9")
			Expect(err).ToNot(HaveOccurred())

			Expect(service.Cancel(ctx, inv.ID)).To(MatchError(internal.ErrInvitationUsed))
		})

		It("should be idempotent for an already cancelled invitation", func() {
			inv := create("new.hire@example.com")
			Expect(service.Cancel(ctx, inv.ID)).To(Succeed())

			Expect(service.Cancel(ctx, inv.ID)).To(Succeed())
		})
	})

	Describe("Resend", func() {
		It("should rotate the token and restart the expiry clock", func() {
			inv := create("new.hire@example.com")
			oldToken := inv.Token
			mockRepo.invitations[inv.ID].ExpiresAt = time.Now().Add(-time.Hour)
			mockRepo.invitations[inv.ID].Status = invitation.StatusExpired

			resent, err := service.Resend(ctx, inv.ID)

			Expect(err).ToNot(HaveOccurred())
			Expect(resent.Token).ToNot(Equal(oldToken))
			Expect(resent.Status).To(Equal(invitation.StatusPending))
			Expect(resent.ExpiresAt).To(BeTemporally(">", time.Now().Add(6*24*time.Hour)))
		})

		It("should refuse to resend an accepted invitation", func() {
			inv := create("new.hire@example.com")
			_, err := service.Accept(ctx, inv.ID, "user-9")
			Expect(err).ToNot(HaveOccurred())

			_, err = service.Resend(ctx, inv.ID)

			Expect(err).To(MatchError(internal.ErrInvitationUsed))
		})
	})

	Describe("GenerateToken", func() {
		It("should produce unique URL-safe tokens", func() {
			seen := make(map[string]bool)
			for i := 0; i < 100; i++ {
				token, err := invitation.GenerateToken()
				Expect(err).ToNot(HaveOccurred())
				Expect(token).To(HaveLen(43))
				Expect(token).ToNot(ContainSubstring("="))
				Expect(token).ToNot(ContainSubstring("+"))
				Expect(token).ToNot(ContainSubstring("/"))
				Expect(seen[token]).To(BeFalse())
				seen[token] = true
			}
		})
	})
})
