package auth

import (
	"log/slog"
	"net/http"

	"github.com/piae/company-expenses/internal"
	"github.com/piae/company-expenses/internal/transport"
)

type Handler struct {
	*transport.BaseHandler
	Verifier *Verifier
}

func NewHandler(verifier *Verifier, lg *slog.Logger) *Handler {
	return &Handler{
		BaseHandler: transport.NewBaseHandler(lg),
		Verifier:    verifier,
	}
}

// AuthMiddleware verifies the bearer token and puts the resolved caller
// identity into the request context. Every protected operation downstream
// takes the actor from here, never from ambient globals.
func (h *Handler) AuthMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := h.ExtractTokenFromHeader(r)
		if token == "" {
			h.WriteError(w, http.StatusUnauthorized, "missing authorization token")
			return
		}

		claims, err := h.Verifier.VerifyToken(token)
		if err != nil {
			h.Logger.Warn("token verification failed", "error", err)
			h.WriteError(w, http.StatusUnauthorized, "invalid token")
			return
		}

		user := &User{
			ID:    claims.UserID,
			Email: claims.Email,
			Roles: claims.Roles,
		}

		ctx := ContextWithUser(r.Context(), user)
		ctx = internal.ContextWithUserID(ctx, user.ID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// Me returns the resolved identity of the calling user.
func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	user, ok := UserFromContext(r.Context())
	if !ok || user == nil {
		h.WriteError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	h.WriteJSON(w, http.StatusOK, user)
}
