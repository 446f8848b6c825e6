package workplace

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
	ListWorkplaces(ctx context.Context) ([]*Workplace, error)
	GetWorkplace(ctx context.Context, id uuid.UUID) (*Workplace, error)
	CreateWorkplace(ctx context.Context, actorID string, dto CreateWorkplaceDTO) (*Workplace, error)
	UpdateWorkplace(ctx context.Context, id uuid.UUID, actorID string, dto UpdateWorkplaceDTO) (*Workplace, error)
	DeactivateWorkplace(ctx context.Context, id uuid.UUID, actorID string) error

	ListMembers(ctx context.Context) ([]*WorkplaceMember, error)
	ListMembersByWorkplace(ctx context.Context, workplaceID uuid.UUID) ([]*WorkplaceMember, error)
	ListMembersByUser(ctx context.Context, userID string) ([]*WorkplaceMember, error)
	GetMember(ctx context.Context, id uuid.UUID) (*WorkplaceMember, error)
	AddMember(ctx context.Context, actorID string, dto CreateMemberDTO) (*WorkplaceMember, error)
	UpdateMember(ctx context.Context, id uuid.UUID, actorID string, dto UpdateMemberDTO) (*WorkplaceMember, error)
	RemoveMember(ctx context.Context, id uuid.UUID, actorID string) error
	SetManager(ctx context.Context, id uuid.UUID, actorID string, isManager bool) (*WorkplaceMember, error)
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

func (h *Handler) ListWorkplaces(w http.ResponseWriter, r *http.Request) {
	workplaces, err := h.Service.ListWorkplaces(r.Context())
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, workplaces)
}

func (h *Handler) GetWorkplace(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		h.WriteError(w, http.StatusBadRequest, "invalid workplace ID")
		return
	}

	wp, err := h.Service.GetWorkplace(r.Context(), id)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, wp)
}

func (h *Handler) CreateWorkplace(w http.ResponseWriter, r *http.Request) {
	user, ok := h.actor(w, r)
	if !ok {
		return
	}

	var dto CreateWorkplaceDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		h.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	wp, err := h.Service.CreateWorkplace(r.Context(), user.ID, dto)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusCreated, wp)
}

func (h *Handler) UpdateWorkplace(w http.ResponseWriter, r *http.Request) {
	user, ok := h.actor(w, r)
	if !ok {
		return
	}

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		h.WriteError(w, http.StatusBadRequest, "invalid workplace ID")
		return
	}

	var dto UpdateWorkplaceDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		h.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	wp, err := h.Service.UpdateWorkplace(r.Context(), id, user.ID, dto)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, wp)
}

func (h *Handler) DeactivateWorkplace(w http.ResponseWriter, r *http.Request) {
	user, ok := h.actor(w, r)
	if !ok {
		return
	}

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		h.WriteError(w, http.StatusBadRequest, "invalid workplace ID")
		return
	}

	if err := h.Service.DeactivateWorkplace(r.Context(), id, user.ID); err != nil {
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusNoContent, nil)
}

func (h *Handler) ListMembers(w http.ResponseWriter, r *http.Request) {
	members, err := h.Service.ListMembers(r.Context())
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, members)
}

func (h *Handler) ListMembersByWorkplace(w http.ResponseWriter, r *http.Request) {
	workplaceID, err := uuid.Parse(chi.URLParam(r, "workplaceId"))
	if err != nil {
		h.WriteError(w, http.StatusBadRequest, "invalid workplace ID")
		return
	}

	members, err := h.Service.ListMembersByWorkplace(r.Context(), workplaceID)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, members)
}

func (h *Handler) ListMembersByUser(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userId")
	if userID == "" {
		h.WriteError(w, http.StatusBadRequest, "invalid user ID")
		return
	}

	members, err := h.Service.ListMembersByUser(r.Context(), userID)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, members)
}

func (h *Handler) GetMember(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		h.WriteError(w, http.StatusBadRequest, "invalid member ID")
		return
	}

	member, err := h.Service.GetMember(r.Context(), id)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, member)
}

func (h *Handler) AddMember(w http.ResponseWriter, r *http.Request) {
	user, ok := h.actor(w, r)
	if !ok {
		return
	}

	var dto CreateMemberDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		h.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	member, err := h.Service.AddMember(r.Context(), user.ID, dto)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusCreated, member)
}

func (h *Handler) UpdateMember(w http.ResponseWriter, r *http.Request) {
	user, ok := h.actor(w, r)
	if !ok {
		return
	}

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		h.WriteError(w, http.StatusBadRequest, "invalid member ID")
		return
	}

	var dto UpdateMemberDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		h.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	member, err := h.Service.UpdateMember(r.Context(), id, user.ID, dto)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, member)
}

func (h *Handler) RemoveMember(w http.ResponseWriter, r *http.Request) {
	user, ok := h.actor(w, r)
	if !ok {
		return
	}

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		h.WriteError(w, http.StatusBadRequest, "invalid member ID")
		return
	}

	if err := h.Service.RemoveMember(r.Context(), id, user.ID); err != nil {
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusNoContent, nil)
}

func (h *Handler) ToggleManager(w http.ResponseWriter, r *http.Request) {
	user, ok := h.actor(w, r)
	if !ok {
		return
	}

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		h.WriteError(w, http.StatusBadRequest, "invalid member ID")
		return
	}

	var isManager bool
	if err := json.NewDecoder(r.Body).Decode(&isManager); err != nil {
		h.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	member, err := h.Service.SetManager(r.Context(), id, user.ID, isManager)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, member)
}
