package rest

import (
	"database/sql"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi"

	"github.com/piae/company-expenses/internal/auth"
	"github.com/piae/company-expenses/internal/category"
	"github.com/piae/company-expenses/internal/expense"
	"github.com/piae/company-expenses/internal/invitation"
	"github.com/piae/company-expenses/internal/limit"
	"github.com/piae/company-expenses/internal/transport/middleware"
	"github.com/piae/company-expenses/internal/transport/swagger"
	"github.com/piae/company-expenses/internal/workplace"
)

// RegisterAllRoutes mounts the whole API under /api/v1. Health, the
// invitation verify link and category listing stay public; everything else
// sits behind JWT auth. Manager-level checks live in the services.
func RegisterAllRoutes(
	router *chi.Mux,
	db *sql.DB,
	authHandler *auth.Handler,
	expenseHandler *expense.Handler,
	limitHandler *limit.Handler,
	invitationHandler *invitation.Handler,
	workplaceHandler *workplace.Handler,
	categoryHandler *category.Handler,
	allowedOrigins string,
	logger *slog.Logger,
) {
	healthHandler := NewHealthHandler(db)

	router.Use(middleware.CORS(allowedOrigins))
	router.Use(middleware.RequestID)
	router.Use(middleware.LoggingMiddleware(logger))
	router.Use(middleware.RecoveryMiddleware(logger))

	router.Get("/openapi.yml", func(w http.ResponseWriter, r *http.Request) {
		http.ServeFile(w, r, "./api/openapi.yml")
	})
	router.Handle("/swagger/*", swagger.Handler())

	router.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", healthHandler.healthCheckHandler)
		r.Get("/ping", healthHandler.pingHandler)

		// Public routes
		r.Get("/categories", categoryHandler.ListCategories)
		r.Get("/invitations/verify/{token}", invitationHandler.VerifyInvitation)

		r.Group(func(pr chi.Router) {
			pr.Use(authHandler.AuthMiddleware)

			pr.Get("/users/me", authHandler.Me)

			pr.Route("/expenses", func(er chi.Router) {
				er.Get("/", expenseHandler.ListExpenses)
				er.Post("/", expenseHandler.SubmitExpense)
				er.Get("/{id}", expenseHandler.GetExpense)
				er.Delete("/{id}", expenseHandler.DeleteExpense)
				er.Post("/{id}/approve", expenseHandler.ApproveExpense)
				er.Post("/{id}/reject", expenseHandler.RejectExpense)
				er.Get("/{id}/attachments", expenseHandler.ListAttachments)
				er.Post("/{id}/attachments", expenseHandler.AddAttachment)
			})

			pr.Route("/workplace-limits", func(lr chi.Router) {
				lr.Post("/", limitHandler.CreateLimit)
				lr.Get("/workplace/{workplaceId}", limitHandler.ListByWorkplace)
				lr.Get("/{id}", limitHandler.GetLimit)
				lr.Put("/{id}", limitHandler.UpdateLimit)
				lr.Delete("/{id}", limitHandler.DeactivateLimit)
				lr.Get("/{id}/utilization", limitHandler.GetUtilization)
			})

			// GET /invitations/verify/{token} is public above, so
			// the invitation routes register flat on the same tree.
			pr.Get("/invitations", invitationHandler.ListInvitations)
			pr.Post("/invitations", invitationHandler.CreateInvitation)
			pr.Get("/invitations/{id}", invitationHandler.GetInvitation)
			pr.Post("/invitations/{id}/accept", invitationHandler.AcceptInvitation)
			pr.Post("/invitations/{id}/resend", invitationHandler.ResendInvitation)
			pr.Delete("/invitations/{id}", invitationHandler.CancelInvitation)

			pr.Route("/workplaces", func(wr chi.Router) {
				wr.Get("/", workplaceHandler.ListWorkplaces)
				wr.Post("/", workplaceHandler.CreateWorkplace)
				wr.Get("/{id}", workplaceHandler.GetWorkplace)
				wr.Put("/{id}", workplaceHandler.UpdateWorkplace)
				wr.Delete("/{id}", workplaceHandler.DeactivateWorkplace)
			})

			pr.Route("/workplace-members", func(mr chi.Router) {
				mr.Get("/", workplaceHandler.ListMembers)
				mr.Post("/", workplaceHandler.AddMember)
				mr.Get("/workplace/{workplaceId}", workplaceHandler.ListMembersByWorkplace)
				mr.Get("/user/{userId}", workplaceHandler.ListMembersByUser)
				mr.Get("/{id}", workplaceHandler.GetMember)
				mr.Put("/{id}", workplaceHandler.UpdateMember)
				mr.Delete("/{id}", workplaceHandler.RemoveMember)
				mr.Patch("/{id}/manager", workplaceHandler.ToggleManager)
			})

			// GET /categories is public above; the rest of the
			// category surface shares its path under auth.
			pr.Post("/categories", categoryHandler.CreateCategory)
			pr.Get("/categories/{id}", categoryHandler.GetCategory)
			pr.Put("/categories/{id}", categoryHandler.UpdateCategory)
			pr.Delete("/categories/{id}", categoryHandler.DeactivateCategory)
		})
	})
}
