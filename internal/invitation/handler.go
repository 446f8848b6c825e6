package invitation

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi"
	"github.com/google/uuid"

	"github.com/piae/company-expenses/internal/auth"
	"github.com/piae/company-expenses/internal/transport"
)

type ServiceAPI interface {
	Create(ctx context.Context, actor *auth.User, dto CreateInvitationDTO) (*Invitation, error)
	Verify(ctx context.Context, token string) (*Invitation, error)
	Accept(ctx context.Context, invitationID uuid.UUID, userID string) (*Invitation, error)
	Cancel(ctx context.Context, invitationID uuid.UUID) error
	Resend(ctx context.Context, invitationID uuid.UUID) (*Invitation, error)
	List(ctx context.Context) ([]*Invitation, error)
	GetByID(ctx context.Context, id uuid.UUID) (*Invitation, error)
}

type Handler struct {
	*transport.BaseHandler
	Service ServiceAPI
}

func NewHandler(service ServiceAPI, lg *slog.Logger) *Handler {
	return &Handler{
		BaseHandler: transport.NewBaseHandler(lg),
		Service:     service,
	}
}

func (h *Handler) actor(w http.ResponseWriter, r *http.Request) (*auth.User, bool) {
	user, ok := auth.UserFromContext(r.Context())
	if !ok || user == nil {
		h.WriteError(w, http.StatusUnauthorized, "unauthorized")
		return nil, false
	}
	return user, true
}

func (h *Handler) ListInvitations(w http.ResponseWriter, r *http.Request) {
	invs, err := h.Service.List(r.Context())
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, invs)
}

func (h *Handler) GetInvitation(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		h.WriteError(w, http.StatusBadRequest, "invalid invitation ID")
		return
	}

	inv, err := h.Service.GetByID(r.Context(), id)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, inv)
}

func (h *Handler) CreateInvitation(w http.ResponseWriter, r *http.Request) {
	user, ok := h.actor(w, r)
	if !ok {
		return
	}

	var dto CreateInvitationDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		h.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	inv, err := h.Service.Create(r.Context(), user, dto)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusCreated, inv)
}

// VerifyInvitation is the public endpoint behind the link in the invite
// email. It never reveals more than the invitation state.
func (h *Handler) VerifyInvitation(w http.ResponseWriter, r *http.Request) {
	token := chi.URLParam(r, "token")
	if token == "" {
		h.WriteError(w, http.StatusBadRequest, "token is required")
		return
	}

	inv, err := h.Service.Verify(r.Context(), token)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, inv)
}

func (h *Handler) AcceptInvitation(w http.ResponseWriter, r *http.Request) {
	user, ok := h.actor(w, r)
	if !ok {
		return
	}

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		h.WriteError(w, http.StatusBadRequest, "invalid invitation ID")
		return
	}

	inv, err := h.Service.Accept(r.Context(), id, user.ID)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, inv)
}

func (h *Handler) ResendInvitation(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.actor(w, r); !ok {
		return
	}

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		h.WriteError(w, http.StatusBadRequest, "invalid invitation ID")
		return
	}

	inv, err := h.Service.Resend(r.Context(), id)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, inv)
}

func (h *Handler) CancelInvitation(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.actor(w, r); !ok {
		return
	}

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		h.WriteError(w, http.StatusBadRequest, "invalid invitation ID")
		return
	}

	if err := h.Service.Cancel(r.Context(), id); err != nil {
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusNoContent, nil)
}
