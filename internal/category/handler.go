package category

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
	ListCategories(ctx context.Context) ([]*ExpenseCategory, error)
	GetCategory(ctx context.Context, id uuid.UUID) (*ExpenseCategory, error)
	CreateCategory(ctx context.Context, actorID string, dto CreateCategoryDTO) (*ExpenseCategory, error)
	UpdateCategory(ctx context.Context, id uuid.UUID, actorID string, dto UpdateCategoryDTO) (*ExpenseCategory, error)
	DeactivateCategory(ctx context.Context, id uuid.UUID, actorID string) error
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

func (h *Handler) ListCategories(w http.ResponseWriter, r *http.Request) {
	categories, err := h.Service.ListCategories(r.Context())
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, categories)
}

func (h *Handler) GetCategory(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		h.WriteError(w, http.StatusBadRequest, "invalid category ID")
		return
	}

	cat, err := h.Service.GetCategory(r.Context(), id)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, cat)
}

func (h *Handler) CreateCategory(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.UserFromContext(r.Context())
	if !ok || user == nil {
		h.WriteError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var dto CreateCategoryDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		h.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	cat, err := h.Service.CreateCategory(r.Context(), user.ID, dto)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusCreated, cat)
}

func (h *Handler) UpdateCategory(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.UserFromContext(r.Context())
	if !ok || user == nil {
		h.WriteError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		h.WriteError(w, http.StatusBadRequest, "invalid category ID")
		return
	}

	var dto UpdateCategoryDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		h.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	cat, err := h.Service.UpdateCategory(r.Context(), id, user.ID, dto)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, cat)
}

func (h *Handler) DeactivateCategory(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.UserFromContext(r.Context())
	if !ok || user == nil {
		h.WriteError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		h.WriteError(w, http.StatusBadRequest, "invalid category ID")
		return
	}

	if err := h.Service.DeactivateCategory(r.Context(), id, user.ID); err != nil {
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusNoContent, nil)
}
